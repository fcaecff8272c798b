// Package sqlgate validates and rewrites SQL strings before execution.
//
// The gate is the only path between model-emitted (or templated) SQL and the
// live database: it either returns a guaranteed-safe executable string or
// fails with a ValidationError. It never executes anything itself.
package sqlgate

import (
	"fmt"
	"strings"
)

// DefaultMaxRows is the row cap applied when a query has no LIMIT clause.
const DefaultMaxRows = 500

// bannedKeywords are rejected as whole words anywhere in the statement. The
// scan runs over whitespace-collapsed text so the multiword "replace into"
// matches across line breaks. Word-boundary matching matters: a column named
// "dropbox" is legitimate, and so is the replace() scalar function.
var bannedKeywords = []string{
	"insert", "update", "delete", "replace into",
	"create", "alter", "drop",
	"attach", "detach", "copy", "pragma", "call", "vacuum", "reindex",
}

// ParseFunc is an optional dialect-accurate syntax check, supplied by the
// storage backend (it prepares the statement against the live connection).
// Defense in depth; the keyword checks are the primary mechanism.
type ParseFunc func(sql string) error

// ValidationError reports why a statement was rejected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "unsafe sql rejected: " + e.Reason
}

// Gate enforces the read-only SQL policy.
type Gate struct {
	maxRows int
	parse   ParseFunc
}

// Option configures a Gate.
type Option func(*Gate)

// WithMaxRows overrides the enforced row cap.
func WithMaxRows(n int) Option {
	return func(g *Gate) {
		if n > 0 {
			g.maxRows = n
		}
	}
}

// WithParser installs a dialect parse check.
func WithParser(fn ParseFunc) Option {
	return func(g *Gate) {
		g.parse = fn
	}
}

// New creates a Gate with the default row cap.
func New(opts ...Option) *Gate {
	g := &Gate{maxRows: DefaultMaxRows}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// MaxRows returns the enforced row cap.
func (g *Gate) MaxRows() int {
	return g.maxRows
}

// EnsureSafe validates a statement and returns an executable form of it.
//
// Checks run in order: no statement separators, read-only prefix, banned
// keywords as whole words, optional dialect parse, and finally a LIMIT wrap
// when no row-limiting clause is present. Re-gating an already gated query is
// a no-op because the wrap introduces a "limit" token.
func (g *Gate) EnsureSafe(sql string) (string, error) {
	if strings.Contains(sql, ";") {
		return "", &ValidationError{Reason: "multiple statements are not allowed"}
	}

	low := strings.ToLower(strings.TrimSpace(sql))
	if low == "" {
		return "", &ValidationError{Reason: "empty statement"}
	}
	if !strings.HasPrefix(low, "select") && !strings.HasPrefix(low, "with") {
		return "", &ValidationError{Reason: "only SELECT (or WITH ... SELECT) is allowed"}
	}

	scan := strings.Join(strings.Fields(low), " ")
	for _, kw := range bannedKeywords {
		if containsWord(scan, kw) {
			return "", &ValidationError{Reason: fmt.Sprintf("banned keyword %q", kw)}
		}
	}

	if g.parse != nil {
		if err := g.parse(sql); err != nil {
			return "", &ValidationError{Reason: fmt.Sprintf("statement does not parse: %v", err)}
		}
	}

	if !containsWord(low, "limit") {
		sql = fmt.Sprintf("SELECT * FROM (%s) AS _capped LIMIT %d", strings.TrimSpace(sql), g.maxRows)
	}
	return sql, nil
}

// containsWord reports whether word occurs in s delimited by non-word
// characters on both sides.
func containsWord(s, word string) bool {
	for start := 0; start < len(s); {
		idx := strings.Index(s[start:], word)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(word)
		beforeOK := idx == 0 || !isWordChar(s[idx-1])
		afterOK := end == len(s) || !isWordChar(s[end])
		if beforeOK && afterOK {
			return true
		}
		start = idx + 1
	}
	return false
}

func isWordChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}
