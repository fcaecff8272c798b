// Package dispatch executes routing decisions against the store. Every tool
// is registered with a JSON Schema for its arguments; calls are validated
// before they run and stamped with an evidence ID afterwards so an answer
// can always be traced back to the exact call that produced it.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.uber.org/zap"

	"github.com/atlas-systems/floorsense/pkg/adapter"
	"github.com/atlas-systems/floorsense/pkg/placement"
	"github.com/atlas-systems/floorsense/pkg/store"
)

// ErrUnknownTool is returned for a tool name that was never registered.
var ErrUnknownTool = errors.New("unknown tool")

// Args holds a tool invocation's arguments. Unknown keys are ignored by the
// schemas, so a chatty model cannot break a call by inventing extras.
type Args map[string]any

// String reads a string argument, coercing JSON numbers ("floor": 3).
func (a Args) String(key, def string) string {
	v, ok := a[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return s
		}
		return def
	case float64:
		if t == math.Trunc(t) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	}
	return def
}

// Int reads an integer argument.
func (a Args) Int(key string, def int) int {
	switch t := a[key].(type) {
	case float64:
		return int(t)
	case int:
		return t
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
	}
	return def
}

// Float reads a float argument.
func (a Args) Float(key string, def float64) float64 {
	switch t := a[key].(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f
		}
	}
	return def
}

// Bool reads a boolean argument.
func (a Args) Bool(key string, def bool) bool {
	switch t := a[key].(type) {
	case bool:
		return t
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			return b
		}
	}
	return def
}

// Has reports whether the key was supplied at all.
func (a Args) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// Evidence ties a result to the call that produced it.
type Evidence struct {
	ID       string `json:"id"`
	Tool     string `json:"tool"`
	Args     Args   `json:"args"`
	RowCount int    `json:"row_count"`
}

// Result is a tool's answer.
type Result struct {
	Title       string                 `json:"title"`
	Text        string                 `json:"text,omitempty"`
	Table       *store.Table           `json:"table,omitempty"`
	Suggestions []placement.Suggestion `json:"suggestions,omitempty"`
	Evidence    Evidence               `json:"evidence"`
}

// rows returns how many data rows the result carries, counting suggestions
// for tools that answer in suggestions rather than tables.
func (r *Result) rows() int {
	if r.Table != nil {
		return len(r.Table.Rows)
	}
	return len(r.Suggestions)
}

// Tool is one registered operation.
type Tool struct {
	Name        string
	Description string
	Schema      map[string]any
	Run         func(ctx context.Context, args Args) (*Result, error)
}

// Dispatcher holds the tool registry.
type Dispatcher struct {
	store    *store.Store
	tools    map[string]*Tool
	order    []string
	compiled map[string]*jsonschema.Schema
	log      *zap.Logger
}

// New creates a dispatcher with the full registry wired to the store.
func New(st *store.Store, log *zap.Logger) (*Dispatcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Dispatcher{
		store:    st,
		tools:    map[string]*Tool{},
		compiled: map[string]*jsonschema.Schema{},
		log:      log,
	}
	for _, t := range d.registry() {
		if err := d.register(t); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Dispatcher) register(t *Tool) error {
	if _, exists := d.tools[t.Name]; exists {
		return fmt.Errorf("tool %q registered twice", t.Name)
	}

	schema := t.Schema
	if schema == nil {
		schema = map[string]any{"type": "object"}
	}
	compiler := jsonschema.NewCompiler()
	url := "floorsense://tools/" + t.Name
	if err := compiler.AddResource(url, schema); err != nil {
		return fmt.Errorf("adding schema for %s: %w", t.Name, err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return fmt.Errorf("compiling schema for %s: %w", t.Name, err)
	}

	d.tools[t.Name] = t
	d.compiled[t.Name] = compiled
	d.order = append(d.order, t.Name)
	return nil
}

// Tools returns the registry as adapter tool definitions, in registration
// order, for the planner prompt.
func (d *Dispatcher) Tools() []adapter.ToolDef {
	defs := make([]adapter.ToolDef, 0, len(d.order))
	for _, name := range d.order {
		t := d.tools[name]
		schema := t.Schema
		if schema == nil {
			schema = map[string]any{"type": "object"}
		}
		defs = append(defs, adapter.ToolDef{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  schema,
		})
	}
	return defs
}

// Names returns the registered tool names in registration order.
func (d *Dispatcher) Names() []string {
	return append([]string(nil), d.order...)
}

// Dispatch validates the arguments and runs the named tool. A coffee
// placement call that comes back empty is retried once with a widened
// window, and the result says so.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args Args) (*Result, error) {
	t, ok := d.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	if args == nil {
		args = Args{}
	}
	instance, err := normalizeArgs(args)
	if err != nil {
		return nil, fmt.Errorf("encoding arguments for %s: %w", name, err)
	}
	if err := d.compiled[name].Validate(instance); err != nil {
		return nil, fmt.Errorf("invalid arguments for %s: %w", name, err)
	}

	result, err := t.Run(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("running %s: %w", name, err)
	}

	if name == "plan_coffee_machines" && result.rows() == 0 {
		if repaired, rerr := d.repairCoffeeCall(ctx, t, args); rerr == nil && repaired != nil {
			result = repaired
		}
	}

	result.Evidence = Evidence{
		ID:       uuid.NewString(),
		Tool:     name,
		Args:     args,
		RowCount: result.rows(),
	}
	d.log.Debug("tool dispatched",
		zap.String("tool", name),
		zap.String("evidence_id", result.Evidence.ID),
		zap.Int("rows", result.Evidence.RowCount))
	return result, nil
}

// normalizeArgs round-trips the arguments through JSON so the schema
// validator sees the value shapes it expects, whatever Go types the caller
// used.
func normalizeArgs(args Args) (any, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, err
	}
	return instance, nil
}

// repairCoffeeCall retries an empty placement run once with the window
// widened: the hour restriction dropped, at least two weeks of data, and the
// quiet-zone penalty off.
func (d *Dispatcher) repairCoffeeCall(ctx context.Context, t *Tool, args Args) (*Result, error) {
	relaxed := Args{}
	for k, v := range args {
		relaxed[k] = v
	}
	delete(relaxed, "hours")
	if relaxed.Int("days", 0) < 14 {
		relaxed["days"] = 14
	}
	relaxed["avoid_quiet"] = false

	result, err := t.Run(ctx, relaxed)
	if err != nil || result.rows() == 0 {
		return nil, err
	}
	note := fmt.Sprintf("No candidates in the requested window; widened to the last %d days.",
		relaxed.Int("days", 14))
	if result.Text != "" {
		result.Text = note + " " + result.Text
	} else {
		result.Text = note
	}
	d.log.Info("coffee placement widened after empty result")
	return result, nil
}
