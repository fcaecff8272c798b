// Package planner is the language-model routing stage: the last resort after
// the deterministic matchers decline. It asks the model to pick a registered
// tool, fall back to one safety-gated SELECT, and refuses rather than guess
// when neither works.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/atlas-systems/floorsense/pkg/adapter"
	"github.com/atlas-systems/floorsense/pkg/decision"
	"github.com/atlas-systems/floorsense/pkg/grounding"
	"github.com/atlas-systems/floorsense/pkg/intent"
	"github.com/atlas-systems/floorsense/pkg/sqlgate"
)

// RefusalText is returned when no stage could produce a safe answer.
const RefusalText = "I can only answer questions about this building's occupancy data, and I could not map that question to a safe query."

// Planner drives the model through the tool protocol.
type Planner struct {
	adapter     adapter.Adapter
	gate        *sqlgate.Gate
	model       string
	temperature float64
	log         *zap.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithModel sets the model identifier passed to the adapter.
func WithModel(model string) Option {
	return func(p *Planner) { p.model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(p *Planner) { p.temperature = t }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(p *Planner) { p.log = log }
}

// New creates a planner on top of an adapter and a safety gate.
func New(a adapter.Adapter, gate *sqlgate.Gate, opts ...Option) *Planner {
	p := &Planner{
		adapter:     a,
		gate:        gate,
		temperature: 0.1,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// reply is the JSON protocol the model answers in when the provider has no
// native tool calls.
type reply struct {
	Tool  string         `json:"tool"`
	Args  map[string]any `json:"args"`
	Mode  string         `json:"mode"`
	SQL   string         `json:"sql"`
	Final string         `json:"final"`
}

// Plan routes one question. It never returns an error for model or protocol
// failures; those degrade to a textual refusal so the caller always has a
// decision to act on.
func (p *Planner) Plan(ctx context.Context, question string, pack *grounding.Pack, tools []adapter.ToolDef) (*decision.Decision, error) {
	resp, err := p.adapter.Chat(ctx, &adapter.ChatRequest{
		Model:       p.model,
		Temperature: p.temperature,
		Messages: []adapter.Message{
			{Role: adapter.RoleSystem, Content: systemPrompt(pack, tools)},
			{Role: adapter.RoleUser, Content: question},
		},
		Tools: tools,
	})
	if err != nil {
		// A provider failure is not a protocol failure; a second call would
		// hit the same broken service.
		p.log.Warn("planner chat failed", zap.Error(err))
		d := decision.Textual(RefusalText, "planner: refusal after adapter error")
		return &d, nil
	}

	if resp.ToolCall != nil {
		args := map[string]any{}
		if len(resp.ToolCall.Args) > 0 {
			if err := json.Unmarshal(resp.ToolCall.Args, &args); err != nil {
				p.log.Warn("tool call args not decodable", zap.Error(err))
				return p.planSQLOnly(ctx, question, pack)
			}
		}
		return p.toolDecision(resp.ToolCall.Name, args, question, "planner: native tool call"), nil
	}

	r, ok := parseReply(resp.Content)
	if !ok {
		p.log.Debug("planner reply not parseable", zap.String("content", resp.Content))
		return p.planSQLOnly(ctx, question, pack)
	}

	switch {
	case r.Tool != "":
		return p.toolDecision(r.Tool, r.Args, question, "planner: tool protocol"), nil
	case r.Mode == "sql" && r.SQL != "":
		safe, err := p.gate.EnsureSafe(r.SQL)
		if err != nil {
			p.log.Warn("planner SQL rejected", zap.Error(err))
			return p.planSQLOnly(ctx, question, pack)
		}
		d := decision.SQLQuery(safe, "planner: generated SQL")
		return &d, nil
	case r.Final != "":
		d := decision.Textual(r.Final, "planner: final text")
		return &d, nil
	}
	return p.planSQLOnly(ctx, question, pack)
}

// planSQLOnly is the second and last attempt: ask for one bare SELECT.
func (p *Planner) planSQLOnly(ctx context.Context, question string, pack *grounding.Pack) (*decision.Decision, error) {
	resp, err := p.adapter.Chat(ctx, &adapter.ChatRequest{
		Model:       p.model,
		Temperature: p.temperature,
		Messages: []adapter.Message{
			{Role: adapter.RoleSystem, Content: sqlOnlyPrompt(pack)},
			{Role: adapter.RoleUser, Content: question},
		},
	})
	if err != nil {
		p.log.Warn("sql-only attempt failed", zap.Error(err))
		d := decision.Textual(RefusalText, "planner: refusal after adapter error")
		return &d, nil
	}

	raw := extractSQL(resp.Content)
	safe, gateErr := p.gate.EnsureSafe(raw)
	if gateErr != nil {
		p.log.Warn("sql-only attempt rejected", zap.Error(gateErr), zap.String("sql", raw))
		d := decision.Textual(RefusalText, "planner: refusal, no safe SQL")
		return &d, nil
	}
	d := decision.SQLQuery(safe, "planner: sql-only fallback")
	return &d, nil
}

// toolDecision normalizes model-picked arguments before handing them over.
func (p *Planner) toolDecision(name string, args map[string]any, question, trace string) *decision.Decision {
	if args == nil {
		args = map[string]any{}
	}
	// A blank floor means building-wide; drop it so tool defaults apply.
	if f, ok := args["floor"].(string); ok && strings.TrimSpace(f) == "" {
		delete(args, "floor")
	}
	// "now" questions about placement get an hour window unless the model
	// already chose one.
	if name == "plan_coffee_machines" {
		if _, ok := args["hours"]; !ok {
			if w := intent.ParseWindow(intent.Normalize(question)); w.Hours > 0 {
				args["hours"] = w.Hours
			}
		}
	}
	d := decision.Tool(name, args, trace)
	return &d
}

// parseReply finds and decodes the first JSON object in the content,
// tolerating code fences and surrounding prose.
func parseReply(content string) (*reply, bool) {
	raw := extractJSON(content)
	if raw == "" {
		return nil, false
	}
	r := &reply{}
	if err := json.Unmarshal([]byte(raw), r); err != nil {
		return nil, false
	}
	if r.Tool == "" && r.SQL == "" && r.Final == "" {
		return nil, false
	}
	return r, true
}

// extractJSON returns the first balanced {...} block in s.
func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// extractSQL strips markdown fences and labels from a raw SQL reply.
func extractSQL(content string) string {
	s := strings.TrimSpace(content)
	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[idx+3:]
		s = strings.TrimPrefix(s, "sql")
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "SQL:")
	s = strings.TrimPrefix(s, "sql:")
	return strings.TrimSpace(s)
}

func systemPrompt(pack *grounding.Pack, tools []adapter.ToolDef) string {
	var b strings.Builder
	b.WriteString("You route questions about building occupancy to tools or SQL.\n\n")
	if pack != nil {
		b.WriteString(pack.PromptContext())
		b.WriteString("\n")
	}
	if len(tools) > 0 {
		b.WriteString("Available tools:\n")
		for _, t := range tools {
			fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString(`Reply with exactly one JSON object and nothing else:
{"tool": "<name>", "args": {...}} to call a tool,
{"mode": "sql", "sql": "SELECT ..."} for a single read-only SELECT,
{"final": "<answer>"} only when the question is out of scope.`)
	return b.String()
}

func sqlOnlyPrompt(pack *grounding.Pack) string {
	var b strings.Builder
	b.WriteString("Translate the question into exactly one SQLite SELECT statement. Output only the SQL, no prose, no semicolon.\n\n")
	if pack != nil {
		b.WriteString(pack.PromptContext())
	}
	return b.String()
}
