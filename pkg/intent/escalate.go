package intent

import "strings"

// DefaultMaxPromptLen is the question length beyond which the heuristic
// escalates. Tuned empirically; override via the Heuristic field.
const DefaultMaxPromptLen = 180

var causalKeywords = []string{"why", "how", "explain", "recommend", "suggest", "tradeoff"}

var discoveryKeywords = []string{
	"which rooms are", "what kind of", "describe",
	"policy", "rules", "definition", "meaning",
}

// Heuristic decides whether a question is too open-ended for deterministic
// routing and must go to the multi-step reasoning agent. It favors recall:
// an unnecessary escalation is cheaper than an under-powered deterministic
// answer to a complex question.
type Heuristic struct {
	// MaxPromptLen escalates questions longer than this many characters.
	// Zero means DefaultMaxPromptLen.
	MaxPromptLen int
}

// NeedsAgent reports whether the question should escalate. Invoked only after
// both deterministic stages decline.
func (h Heuristic) NeedsAgent(question string) bool {
	qn := Normalize(question)

	// Causal / explanatory / advisory phrasing needs multi-step reasoning.
	for _, kw := range causalKeywords {
		if containsWord(qn, kw) {
			return true
		}
	}

	// Open-category, discovery, and policy questions need synthesis.
	if containsAny(qn, discoveryKeywords) {
		return true
	}

	// A conjunction outside the recognized compare-floors shape usually means
	// a multi-intent composition.
	if strings.Contains(qn, " and ") && !compareFloorsRe.MatchString(qn) {
		return true
	}

	maxLen := h.MaxPromptLen
	if maxLen == 0 {
		maxLen = DefaultMaxPromptLen
	}
	return len(qn) > maxLen
}

// containsWord reports whether word occurs in s delimited by non-word bytes.
func containsWord(s, word string) bool {
	idx := 0
	for idx < len(s) {
		i := strings.Index(s[idx:], word)
		if i < 0 {
			return false
		}
		i += idx
		end := i + len(word)
		beforeOK := i == 0 || !isWordByte(s[i-1])
		afterOK := end == len(s) || !isWordByte(s[end])
		if beforeOK && afterOK {
			return true
		}
		idx = i + 1
	}
	return false
}

func isWordByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_'
}
