// Package router is the staged question pipeline: deterministic intent
// matchers first, templated SQL second, an escalation heuristic third, the
// language-model planner last. Each stage can be switched off independently,
// and a question no stage claims gets a refusal rather than a guess.
package router

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/atlas-systems/floorsense/pkg/config"
	"github.com/atlas-systems/floorsense/pkg/decision"
	"github.com/atlas-systems/floorsense/pkg/dispatch"
	"github.com/atlas-systems/floorsense/pkg/grounding"
	"github.com/atlas-systems/floorsense/pkg/intent"
	"github.com/atlas-systems/floorsense/pkg/placement"
	"github.com/atlas-systems/floorsense/pkg/planner"
	"github.com/atlas-systems/floorsense/pkg/sqlgate"
	"github.com/atlas-systems/floorsense/pkg/store"
)

// StrictRefusal is the strict-mode answer when a query legitimately ran but
// matched nothing. The router never invents rows to fill the gap.
const StrictRefusal = "No data in the loaded dataset matches that question."

// AgentNote surfaces an escalation decision when no deeper agent is attached.
const AgentNote = "This question needs open-ended analysis rather than a single lookup; it has been marked for escalation."

// Router wires the pipeline stages together.
type Router struct {
	pipeline   config.Pipeline
	classifier *intent.Classifier
	templates  *intent.SQLTemplates
	heuristic  intent.Heuristic
	planner    *planner.Planner
	dispatcher *dispatch.Dispatcher
	store      *store.Store
	gate       *sqlgate.Gate
	pack       *grounding.Pack
	log        *zap.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithPlanner attaches the language-model stage.
func WithPlanner(p *planner.Planner) Option {
	return func(r *Router) { r.planner = p }
}

// WithGrounding attaches the dataset context pack for the planner prompt.
func WithGrounding(pack *grounding.Pack) Option {
	return func(r *Router) { r.pack = pack }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Router) { r.log = log }
}

// New creates a router over a store and dispatcher.
func New(pipeline config.Pipeline, st *store.Store, d *dispatch.Dispatcher, opts ...Option) *Router {
	gate := sqlgate.New(
		sqlgate.WithMaxRows(pipeline.MaxRows),
		sqlgate.WithParser(st.ParseFunc()),
	)
	r := &Router{
		pipeline:   pipeline,
		classifier: intent.NewClassifier(),
		templates:  intent.NewSQLTemplates(gate),
		heuristic:  intent.Heuristic{MaxPromptLen: pipeline.AgentMaxPromptLen},
		dispatcher: d,
		store:      st,
		gate:       gate,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Gate exposes the router's configured safety gate.
func (r *Router) Gate() *sqlgate.Gate {
	return r.gate
}

// AttachPlanner sets the language-model stage after construction, for
// callers that need the router's gate to build the planner.
func (r *Router) AttachPlanner(p *planner.Planner) {
	r.planner = p
}

// Infer runs the staged pipeline and returns a decision without executing
// it. The trace on the decision names the stage that claimed the question.
func (r *Router) Infer(ctx context.Context, question string) (*decision.Decision, error) {
	if r.pipeline.FastIntents {
		if d := r.classifier.Classify(question); d != nil {
			r.log.Debug("fast intent matched", zap.String("tool", d.Name))
			return d, nil
		}
	}
	if r.pipeline.FastSQL {
		if d := r.templates.Match(question); d != nil {
			r.log.Debug("sql template matched")
			return d, nil
		}
	}
	if r.heuristic.NeedsAgent(question) {
		r.log.Debug("question escalated to agent")
		d := decision.Agent("escalation heuristic")
		return &d, nil
	}
	if r.pipeline.LLMRouting && r.planner != nil {
		return r.planner.Plan(ctx, question, r.pack, r.dispatcher.Tools())
	}
	d := decision.Textual(planner.RefusalText, "no stage claimed the question")
	return &d, nil
}

// Answer is a fully resolved reply.
type Answer struct {
	Decision    *decision.Decision     `json:"decision"`
	Title       string                 `json:"title,omitempty"`
	Text        string                 `json:"text,omitempty"`
	Table       *store.Table           `json:"table,omitempty"`
	Suggestions []placement.Suggestion `json:"suggestions,omitempty"`
	Evidence    *dispatch.Evidence     `json:"evidence,omitempty"`
}

// Answer routes the question and executes the resulting decision.
func (r *Router) Answer(ctx context.Context, question string) (*Answer, error) {
	d, err := r.Infer(ctx, question)
	if err != nil {
		return nil, err
	}
	return r.Resolve(ctx, d)
}

// Resolve executes a decision against the store and dispatcher.
func (r *Router) Resolve(ctx context.Context, d *decision.Decision) (*Answer, error) {
	switch d.Mode {
	case decision.ModeTool:
		result, err := r.dispatcher.Dispatch(ctx, d.Name, dispatch.Args(d.Args))
		if err != nil {
			return nil, fmt.Errorf("dispatching %s: %w", d.Name, err)
		}
		ans := &Answer{
			Decision:    d,
			Title:       result.Title,
			Text:        result.Text,
			Table:       result.Table,
			Suggestions: result.Suggestions,
			Evidence:    &result.Evidence,
		}
		// Suggestion-carrying tools answer with a nil table, so nil and empty
		// both count as no data once the suggestions are also gone.
		if r.pipeline.StrictMode && len(result.Suggestions) == 0 &&
			(result.Table == nil || result.Table.Empty()) {
			ans.Text = StrictRefusal
		}
		return ans, nil

	case decision.ModeSQL:
		safe, err := r.gate.EnsureSafe(d.SQL)
		if err != nil {
			return nil, fmt.Errorf("unsafe SQL reached resolution: %w", err)
		}
		table, err := r.store.Query(safe)
		if err != nil {
			// Model-emitted SQL can fail at runtime even after the gate's
			// syntax check. That is an answer, not an operator fault.
			r.log.Debug("routed SQL failed", zap.Error(err))
			return &Answer{Decision: d, Text: "The generated query could not be executed against the dataset."}, nil
		}
		ans := &Answer{Decision: d, Title: "Query result", Table: table}
		if r.pipeline.StrictMode && table.Empty() {
			ans.Text = StrictRefusal
		}
		return ans, nil

	case decision.ModeAgent, decision.ModeRAG:
		return &Answer{Decision: d, Text: AgentNote}, nil

	case decision.ModeText:
		return &Answer{Decision: d, Text: d.Text}, nil
	}
	return nil, fmt.Errorf("unknown decision mode %q", d.Mode)
}
