// Package pipeline provides a small graph engine for multi-step generation
// flows. A pipeline is a set of named nodes over a shared mutable state with
// static edges between them; routing decisions happen through conditional
// edges whose router inspects the state after a node finishes.
//
// Nodes run strictly one at a time. Concurrency belongs inside a node, never
// between nodes, which keeps state mutation race-free without locks.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/team-leekim/newsnack-ai/internal/logging"
)

// End is the sentinel target that terminates a run.
const End = "__end__"

// NodeFunc executes one step against the shared state.
type NodeFunc[S any] func(ctx context.Context, state S) error

// Router picks the next node name based on the state.
type Router[S any] func(state S) string

type conditionalEdge[S any] struct {
	router  Router[S]
	targets map[string]string
}

// Pipeline is a compiled graph of nodes. Build with New, AddNode, AddEdge,
// and AddConditionalEdges, then Compile before Run.
type Pipeline[S any] struct {
	name         string
	entry        string
	nodes        map[string]NodeFunc[S]
	order        []string
	edges        map[string]string
	conditionals map[string]conditionalEdge[S]
	maxSteps     int
	logger       *slog.Logger
	compiled     bool
}

// Option configures optional pipeline behaviour.
type Option func(*options)

type options struct {
	maxSteps int
	logger   *slog.Logger
}

// WithLogger attaches a logger for per-node progress events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMaxSteps overrides the cycle guard's step budget.
func WithMaxSteps(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxSteps = n
		}
	}
}

// New creates an empty pipeline with the given name.
func New[S any](name string, opts ...Option) *Pipeline[S] {
	o := options{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Pipeline[S]{
		name:         name,
		nodes:        make(map[string]NodeFunc[S]),
		edges:        make(map[string]string),
		conditionals: make(map[string]conditionalEdge[S]),
		maxSteps:     o.maxSteps,
		logger:       o.logger,
	}
}

// AddNode registers a named step. The first node added becomes the entry
// point unless SetEntry overrides it.
func (p *Pipeline[S]) AddNode(name string, fn NodeFunc[S]) *Pipeline[S] {
	if p.entry == "" {
		p.entry = name
	}
	if _, exists := p.nodes[name]; !exists {
		p.order = append(p.order, name)
	}
	p.nodes[name] = fn
	return p
}

// SetEntry overrides the entry node.
func (p *Pipeline[S]) SetEntry(name string) *Pipeline[S] {
	p.entry = name
	return p
}

// AddEdge wires an unconditional transition from one node to the next.
func (p *Pipeline[S]) AddEdge(from, to string) *Pipeline[S] {
	p.edges[from] = to
	return p
}

// AddConditionalEdges wires a router after the named node. The router's
// return value is looked up in targets to find the next node.
func (p *Pipeline[S]) AddConditionalEdges(from string, router Router[S], targets map[string]string) *Pipeline[S] {
	p.conditionals[from] = conditionalEdge[S]{router: router, targets: targets}
	return p
}

// Compile validates the graph. Every node needs exactly one outgoing route,
// every referenced target must exist, and the entry node must be registered.
func (p *Pipeline[S]) Compile() error {
	if len(p.nodes) == 0 {
		return fmt.Errorf("pipeline %s: no nodes registered", p.name)
	}
	if _, ok := p.nodes[p.entry]; !ok {
		return fmt.Errorf("pipeline %s: entry node %q is not registered", p.name, p.entry)
	}

	for _, name := range p.order {
		_, hasEdge := p.edges[name]
		_, hasConditional := p.conditionals[name]
		if hasEdge && hasConditional {
			return fmt.Errorf("pipeline %s: node %q has both a static and a conditional edge", p.name, name)
		}
		if !hasEdge && !hasConditional {
			return fmt.Errorf("pipeline %s: node %q has no outgoing edge", p.name, name)
		}
	}

	for from, to := range p.edges {
		if _, ok := p.nodes[from]; !ok {
			return fmt.Errorf("pipeline %s: edge from unknown node %q", p.name, from)
		}
		if err := p.checkTarget(to); err != nil {
			return err
		}
	}
	for from, edge := range p.conditionals {
		if _, ok := p.nodes[from]; !ok {
			return fmt.Errorf("pipeline %s: conditional edge from unknown node %q", p.name, from)
		}
		if edge.router == nil {
			return fmt.Errorf("pipeline %s: node %q has a nil router", p.name, from)
		}
		if len(edge.targets) == 0 {
			return fmt.Errorf("pipeline %s: node %q has no conditional targets", p.name, from)
		}
		for _, to := range edge.targets {
			if err := p.checkTarget(to); err != nil {
				return err
			}
		}
	}

	if p.maxSteps == 0 {
		// Default guard: generous headroom over the node count so loops in
		// legitimate graphs still run, runaway cycles do not.
		p.maxSteps = len(p.nodes) * 8
	}
	p.compiled = true
	return nil
}

func (p *Pipeline[S]) checkTarget(to string) error {
	if to == End {
		return nil
	}
	if _, ok := p.nodes[to]; !ok {
		return fmt.Errorf("pipeline %s: edge to unknown node %q", p.name, to)
	}
	return nil
}

// Name returns the pipeline's name.
func (p *Pipeline[S]) Name() string {
	return p.name
}

// Nodes returns registered node names in registration order.
func (p *Pipeline[S]) Nodes() []string {
	cp := make([]string, len(p.order))
	copy(cp, p.order)
	return cp
}

// Run executes the graph from the entry node until a route reaches End,
// a node fails, the context ends, or the cycle guard trips. The state is
// shared across nodes and mutated in place.
func (p *Pipeline[S]) Run(ctx context.Context, state S) error {
	if !p.compiled {
		return fmt.Errorf("pipeline %s: run before compile", p.name)
	}

	ctx = logging.WithPipeline(ctx, p.name)
	logger := logging.WithContext(ctx, p.logger)

	current := p.entry
	steps := 0
	started := time.Now()

	for current != End {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("pipeline %s: %w", p.name, err)
		}
		steps++
		if steps > p.maxSteps {
			return fmt.Errorf("pipeline %s: step budget %d exhausted at node %q", p.name, p.maxSteps, current)
		}

		fn := p.nodes[current]
		nodeStarted := time.Now()
		logger.Debug("node started", logging.String(logging.FieldNode, current))

		if err := fn(logging.WithNode(ctx, current), state); err != nil {
			logger.Error("node failed",
				logging.String(logging.FieldNode, current),
				logging.Duration("elapsed", time.Since(nodeStarted)),
				logging.Error(err))
			return fmt.Errorf("pipeline %s: node %s: %w", p.name, current, err)
		}
		logger.Debug("node finished",
			logging.String(logging.FieldNode, current),
			logging.Duration("elapsed", time.Since(nodeStarted)))

		next, err := p.next(current, state)
		if err != nil {
			return err
		}
		current = next
	}

	logger.Info("pipeline finished",
		logging.Int("steps", steps),
		logging.Duration("elapsed", time.Since(started)))
	return nil
}

func (p *Pipeline[S]) next(current string, state S) (string, error) {
	if to, ok := p.edges[current]; ok {
		return to, nil
	}
	edge, ok := p.conditionals[current]
	if !ok {
		return "", fmt.Errorf("pipeline %s: node %q has no outgoing edge", p.name, current)
	}
	key := edge.router(state)
	to, ok := edge.targets[key]
	if !ok {
		return "", fmt.Errorf("pipeline %s: router after %q returned unmapped key %q", p.name, current, key)
	}
	return to, nil
}
