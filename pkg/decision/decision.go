// Package decision defines the uniform output contract of the routing
// pipeline. Every stage, from the fast intent matchers to the model-assisted
// planner, resolves a user turn into a single Decision, and every consumer
// branches on Mode.
package decision

// Mode discriminates the decision variants.
type Mode string

const (
	// ModeTool names a registered tool plus its arguments.
	ModeTool Mode = "tool"
	// ModeSQL carries a safety-gated SQL string.
	ModeSQL Mode = "sql"
	// ModeAgent escalates the turn to the external reasoning agent.
	ModeAgent Mode = "agent"
	// ModeRAG escalates the turn to the external document index.
	ModeRAG Mode = "rag"
	// ModeText carries a final free-form response (usually a refusal).
	ModeText Mode = "text"
)

// Decision is the result of routing one user turn. Exactly one of
// {Name+Args, SQL, Text} is populated, determined by Mode. Trace is a short
// human-readable justification for diagnostics only; it must never influence
// the routing of subsequent turns.
type Decision struct {
	Mode  Mode           `json:"mode"`
	Name  string         `json:"name,omitempty"`
	Args  map[string]any `json:"args,omitempty"`
	SQL   string         `json:"sql,omitempty"`
	Text  string         `json:"text,omitempty"`
	Trace string         `json:"trace"`
}

// Tool builds a tool-invocation decision.
func Tool(name string, args map[string]any, trace string) Decision {
	if args == nil {
		args = map[string]any{}
	}
	return Decision{Mode: ModeTool, Name: name, Args: args, Trace: trace}
}

// SQLQuery builds a raw-SQL decision. The SQL is expected to have passed the
// safety gate already.
func SQLQuery(sql, trace string) Decision {
	return Decision{Mode: ModeSQL, SQL: sql, Trace: trace}
}

// Agent builds an escalation decision for the external reasoning agent.
func Agent(trace string) Decision {
	return Decision{Mode: ModeAgent, Trace: trace}
}

// RAG builds an escalation decision for the external document index.
func RAG(trace string) Decision {
	return Decision{Mode: ModeRAG, Trace: trace}
}

// Textual builds a free-text decision.
func Textual(text, trace string) Decision {
	return Decision{Mode: ModeText, Text: text, Trace: trace}
}
