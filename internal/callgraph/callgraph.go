// Package callgraph computes the direct call targets of a method from an
// entry-rooted call graph built over the compiled program view.
package callgraph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/dominikbraun/graph"
	"github.com/maypok86/otter"

	"github.com/mvp-joe/javacorpus/internal/classfile"
	"github.com/mvp-joe/javacorpus/internal/program"
)

// Algorithm selects how virtual call sites are dispatched.
type Algorithm string

const (
	// RTA dispatches virtual calls against subtypes instantiated by reachable code.
	RTA Algorithm = "rta"

	// CHA dispatches virtual calls against every concrete subtype in the view.
	CHA Algorithm = "cha"
)

var (
	// ErrNoBody indicates an entry method without bytecode (abstract or native).
	ErrNoBody = errors.New("method has no body")

	// ErrUnknownAlgorithm indicates an unsupported algorithm name.
	ErrUnknownAlgorithm = errors.New("unknown call graph algorithm")

	// ErrPanic indicates graph construction panicked.
	ErrPanic = errors.New("call graph construction panicked")
)

// Edge is a call relationship from the probed entry to one callee.
type Edge struct {
	Caller string
	Callee string
}

// Options configures a Prober.
type Options struct {
	Algorithm Algorithm
	CacheSize int // entries; 0 disables caching
}

// Stats counts probe outcomes.
type Stats struct {
	Probes    int64
	CacheHits int64
	Failures  int64
}

// ParseAlgorithm validates an algorithm name; "" selects RTA.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(name) {
	case "", RTA:
		return RTA, nil
	case CHA:
		return CHA, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
}

// Prober builds a fresh call graph per entry method. It is safe for concurrent
// use: probes share only the read-only view and the optional cache.
type Prober struct {
	view      *program.View
	algorithm Algorithm
	cache     otter.Cache[string, []Edge]
	cached    bool

	probes    atomic.Int64
	cacheHits atomic.Int64
	failures  atomic.Int64
}

// New creates a Prober over view.
func New(view *program.View, opts Options) (*Prober, error) {
	algo, err := ParseAlgorithm(string(opts.Algorithm))
	if err != nil {
		return nil, err
	}
	p := &Prober{view: view, algorithm: algo}
	if opts.CacheSize > 0 {
		cache, err := otter.MustBuilder[string, []Edge](opts.CacheSize).
			Cost(func(key string, value []Edge) uint32 { return 1 }).
			Build()
		if err != nil {
			return nil, fmt.Errorf("failed to create probe cache: %w", err)
		}
		p.cache = cache
		p.cached = true
	}
	return p, nil
}

// Algorithm returns the dispatch algorithm in use.
func (p *Prober) Algorithm() Algorithm {
	return p.algorithm
}

// Stats returns probe counters.
func (p *Prober) Stats() Stats {
	return Stats{
		Probes:    p.probes.Load(),
		CacheHits: p.cacheHits.Load(),
		Failures:  p.failures.Load(),
	}
}

// Close releases the cache.
func (p *Prober) Close() {
	if p.cached {
		p.cache.Close()
	}
}

// Probe returns the direct callees of m. Any failure yields an empty result.
func (p *Prober) Probe(ctx context.Context, m *program.Method) []Edge {
	edges, err := p.Edges(ctx, m)
	if err != nil {
		return nil
	}
	return edges
}

// Edges builds a call graph seeded with m alone and returns the edges leaving
// m, ordered by first call site.
func (p *Prober) Edges(ctx context.Context, m *program.Method) (edges []Edge, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.probes.Add(1)

	if p.cached {
		if hit, ok := p.cache.Get(m.Signature); ok {
			p.cacheHits.Add(1)
			return hit, nil
		}
	}

	defer func() {
		if r := recover(); r != nil {
			edges, err = nil, fmt.Errorf("%w: %s: %v", ErrPanic, m.Signature, r)
		}
		if err != nil {
			p.failures.Add(1)
			return
		}
		if p.cached {
			p.cache.Set(m.Signature, edges)
		}
	}()

	if !m.HasBody() {
		return nil, fmt.Errorf("%w: %s", ErrNoBody, m.Signature)
	}

	b := newBuilder(p.view, p.algorithm, m)
	if err := b.run(); err != nil {
		return nil, err
	}
	return b.edgesFrom(m.Signature)
}

// builder holds the state of one graph construction.
type builder struct {
	view         *program.View
	algorithm    Algorithm
	g            graph.Graph[string, string]
	reachable    []*program.Method
	seen         map[string]bool
	instantiated map[string]bool
	decoded      map[string][]classfile.Instruction
}

func newBuilder(view *program.View, algo Algorithm, entry *program.Method) *builder {
	b := &builder{
		view:         view,
		algorithm:    algo,
		g:            graph.New(graph.StringHash, graph.Directed()),
		seen:         make(map[string]bool),
		instantiated: make(map[string]bool),
		decoded:      make(map[string][]classfile.Instruction),
	}
	b.reach(entry)
	return b
}

func (b *builder) reach(m *program.Method) {
	if b.seen[m.Signature] {
		return
	}
	b.seen[m.Signature] = true
	_ = b.addVertex(m.Signature)
	if m.HasBody() {
		b.reachable = append(b.reachable, m)
	}
}

func (b *builder) addVertex(sig string) error {
	if err := b.g.AddVertex(sig); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
		return err
	}
	return nil
}

// run scans reachable methods until neither the reachable set nor the
// instantiated types grow.
func (b *builder) run() error {
	for {
		before := len(b.reachable) + len(b.instantiated)
		for i := 0; i < len(b.reachable); i++ {
			if err := b.scan(b.reachable[i]); err != nil {
				return err
			}
		}
		if len(b.reachable)+len(b.instantiated) == before {
			return nil
		}
	}
}

func (b *builder) instructions(m *program.Method) ([]classfile.Instruction, error) {
	if insns, ok := b.decoded[m.Signature]; ok {
		return insns, nil
	}
	insns, err := m.Instructions()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.Signature, err)
	}
	b.decoded[m.Signature] = insns
	return insns, nil
}

func (b *builder) scan(m *program.Method) error {
	insns, err := b.instructions(m)
	if err != nil {
		return err
	}
	pool := m.Pool()

	site := 0
	for _, in := range insns {
		switch {
		case in.Opcode == classfile.OpNew:
			name, err := pool.ClassName(uint16(in.Index))
			if err != nil {
				return err
			}
			if c, ok := b.view.Class(name); ok && c.IsConcrete() {
				b.instantiated[name] = true
			}
		case in.Opcode == classfile.OpInvokedynamic:
			site++
		case in.IsInvoke():
			ref, err := pool.MemberRef(uint16(in.Index))
			if err != nil {
				return err
			}
			for _, callee := range b.targets(in.Opcode, ref) {
				if err := b.connect(m.Signature, callee, site); err != nil {
					return err
				}
			}
			site++
		}
	}
	return nil
}

// target is a callee: a method of the view, or a library signature.
type target struct {
	method    *program.Method
	signature string
}

func (b *builder) targets(op byte, ref classfile.Ref) []target {
	resolved, ok := b.view.ResolveMethod(ref.Owner, ref.Name, ref.Descriptor)
	if !ok {
		mt, err := classfile.ParseMethodDescriptor(ref.Descriptor)
		if err != nil {
			return nil
		}
		return []target{{signature: classfile.Signature(classfile.ArrayClassName(ref.Owner), ref.Name, mt)}}
	}

	if op == classfile.OpInvokestatic || op == classfile.OpInvokespecial || resolved.IsStatic() {
		return []target{{method: resolved, signature: resolved.Signature}}
	}

	var out []target
	seen := make(map[string]bool)
	for _, name := range b.view.Subtypes(ref.Owner) {
		c, _ := b.view.Class(name)
		if !c.IsConcrete() {
			continue
		}
		if b.algorithm == RTA && !b.instantiated[name] {
			continue
		}
		impl, ok := b.view.Dispatch(name, ref.Name, ref.Descriptor)
		if !ok || seen[impl.Signature] {
			continue
		}
		seen[impl.Signature] = true
		out = append(out, target{method: impl, signature: impl.Signature})
	}
	return out
}

func (b *builder) connect(caller string, callee target, site int) error {
	if callee.method != nil {
		b.reach(callee.method)
	} else if err := b.addVertex(callee.signature); err != nil {
		return err
	}
	err := b.g.AddEdge(caller, callee.signature, graph.EdgeWeight(site))
	if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
		return err
	}
	return nil
}

// edgesFrom lists the edges leaving sig, by call site then callee signature.
func (b *builder) edgesFrom(sig string) ([]Edge, error) {
	adjacency, err := b.g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	out := adjacency[sig]
	edges := make([]graph.Edge[string], 0, len(out))
	for _, e := range out {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Properties.Weight != edges[j].Properties.Weight {
			return edges[i].Properties.Weight < edges[j].Properties.Weight
		}
		return edges[i].Target < edges[j].Target
	})

	result := make([]Edge, len(edges))
	for i, e := range edges {
		result[i] = Edge{Caller: sig, Callee: e.Target}
	}
	return result, nil
}
