package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fpang/genprompt/internal/metrics"
	"github.com/fpang/genprompt/internal/session"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Node identifies a step in the graph.
type Node string

const (
	NodeAnalyze    Node = "analyze"
	NodeSynthesize Node = "synthesize"
	NodeDirect     Node = "direct"
	NodeRefine     Node = "refine"

	// End terminates a traversal. It is never registered as a node.
	End Node = "__end__"
)

func (n Node) String() string { return string(n) }

// Builder assembles a Graph. It is not safe for concurrent use.
type Builder struct {
	nodes   map[Node]StepFunc
	edges   map[Node]Node
	router  func(session.State) Route
	entries map[Route]Node
	errs    []error
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes: make(map[Node]StepFunc),
		edges: make(map[Node]Node),
	}
}

// AddNode registers a step under name.
func (b *Builder) AddNode(name Node, fn StepFunc) *Builder {
	switch {
	case name == "" || name == End:
		b.errs = append(b.errs, fmt.Errorf("invalid node name %q", name))
	case fn == nil:
		b.errs = append(b.errs, fmt.Errorf("node %s: nil step", name))
	default:
		if _, dup := b.nodes[name]; dup {
			b.errs = append(b.errs, fmt.Errorf("node %s registered twice", name))
		}
		b.nodes[name] = fn
	}
	return b
}

// AddEdge adds the static edge from -> to. Each node has exactly one
// outgoing edge; to may be End.
func (b *Builder) AddEdge(from, to Node) *Builder {
	if _, dup := b.edges[from]; dup {
		b.errs = append(b.errs, fmt.Errorf("node %s already has an outgoing edge", from))
	}
	b.edges[from] = to
	return b
}

// SetEntry sets the conditional entry point: router picks a Route and
// entries maps each Route to the node it starts at.
func (b *Builder) SetEntry(router func(session.State) Route, entries map[Route]Node) *Builder {
	b.router = router
	b.entries = entries
	return b
}

// Compile validates the wiring and returns an immutable Graph.
func (b *Builder) Compile() (*Graph, error) {
	errs := append([]error(nil), b.errs...)

	if b.router == nil {
		errs = append(errs, errors.New("no entry router set"))
	}
	for _, r := range Routes {
		n, ok := b.entries[r]
		if !ok {
			errs = append(errs, fmt.Errorf("route %s has no entry node", r))
			continue
		}
		if _, ok := b.nodes[n]; !ok {
			errs = append(errs, fmt.Errorf("route %s enters unknown node %s", r, n))
		}
	}
	for _, n := range sortedNodes(b.nodes) {
		if _, ok := b.edges[n]; !ok {
			errs = append(errs, fmt.Errorf("node %s has no outgoing edge", n))
		}
	}
	for from, to := range b.edges {
		if _, ok := b.nodes[from]; !ok {
			errs = append(errs, fmt.Errorf("edge from unknown node %s", from))
		}
		if _, ok := b.nodes[to]; !ok && to != End {
			errs = append(errs, fmt.Errorf("edge %s -> unknown node %s", from, to))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("compile graph: %w", errors.Join(errs...))
	}

	g := &Graph{
		nodes:   make(map[Node]StepFunc, len(b.nodes)),
		edges:   make(map[Node]Node, len(b.edges)),
		entries: make(map[Route]Node, len(b.entries)),
		router:  b.router,
	}
	for k, v := range b.nodes {
		g.nodes[k] = v
	}
	for k, v := range b.edges {
		g.edges[k] = v
	}
	for k, v := range b.entries {
		g.entries[k] = v
	}
	return g, nil
}

func sortedNodes(m map[Node]StepFunc) []Node {
	out := make([]Node, 0, len(m))
	for n := range m {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Graph is a compiled, immutable step graph. Invoke may be called
// concurrently on independent states.
type Graph struct {
	nodes   map[Node]StepFunc
	edges   map[Node]Node
	entries map[Route]Node
	router  func(session.State) Route
}

// New returns the GenPrompt graph: Analyze -> Synthesize, Direct, and Refine,
// entered through Decide.
func New(deps Deps) (*Graph, error) {
	if deps.Inference == nil || deps.Renderer == nil {
		return nil, errors.New("graph: inference and renderer are required")
	}
	s := &steps{deps: deps}
	return NewBuilder().
		AddNode(NodeAnalyze, s.analyze).
		AddNode(NodeSynthesize, s.synthesize).
		AddNode(NodeDirect, s.direct).
		AddNode(NodeRefine, s.refine).
		AddEdge(NodeAnalyze, NodeSynthesize).
		AddEdge(NodeSynthesize, End).
		AddEdge(NodeDirect, End).
		AddEdge(NodeRefine, End).
		SetEntry(Decide, map[Route]Node{
			RouteAnalyze: RouteAnalyze.Node(),
			RouteDirect:  RouteDirect.Node(),
			RouteRefine:  RouteRefine.Node(),
		}).
		Compile()
}

// StepRecord describes one executed step.
type StepRecord struct {
	Node     Node
	Outcome  Outcome
	Duration time.Duration
	Cause    error
}

// Trace describes one traversal.
type Trace struct {
	RunID string
	Entry Route
	Steps []StepRecord
}

// Invoke runs one traversal over a copy of st and returns the final state.
// The only error it returns is a fatal step error, wrapped with the node name;
// the state returned alongside it is the state as of that failure.
func (g *Graph) Invoke(ctx context.Context, st session.State) (session.State, Trace, error) {
	cur := st.Clone()
	route := g.router(cur)
	trace := Trace{RunID: uuid.New().String(), Entry: route}

	logger := log.With().Str("run_id", trace.RunID).Logger()
	logger.Info().Str("route", route.String()).Msg("Graph traversal started")

	node := g.entries[route]
	for i := 0; node != End; i++ {
		if i >= len(g.nodes) {
			return cur, trace, fmt.Errorf("graph: exceeded %d steps at node %s", len(g.nodes), node)
		}
		if err := ctx.Err(); err != nil {
			return cur, trace, fmt.Errorf("graph: before %s: %w", node, err)
		}

		start := time.Now()
		res, err := g.nodes[node](ctx, cur)
		elapsed := time.Since(start)
		cur = res.State

		trace.Steps = append(trace.Steps, StepRecord{Node: node, Outcome: res.Outcome, Duration: elapsed, Cause: res.Cause})
		recordStep(node, res.Outcome, err, elapsed)

		if err != nil {
			logger.Error().Err(err).Str("node", node.String()).Msg("Graph traversal aborted")
			return cur, trace, fmt.Errorf("%s: %w", node, err)
		}
		logger.Debug().
			Str("node", node.String()).
			Str("outcome", res.Outcome.String()).
			Dur("duration", elapsed).
			Msg("Step finished")

		node = g.edges[node]
	}

	logger.Info().Int("steps", len(trace.Steps)).Msg("Graph traversal finished")
	return cur, trace, nil
}

func recordStep(node Node, outcome Outcome, fatal error, d time.Duration) {
	label := outcome.String()
	if fatal != nil {
		label = "fatal"
	}
	metrics.New(metrics.Namespace).
		Dimension("Step", node.String()).
		Dimension("Outcome", label).
		Duration("StepLatencyMs", d).
		Count("StepCount").
		Flush()
}
