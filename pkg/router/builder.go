package router

import (
	"fmt"
	"strings"

	"github.com/BolvicBolvicovic/feather/pkg/immut"
	"github.com/BolvicBolvicovic/feather/pkg/plug"
)

// Handler is a terminal stage run after a scope's pipeline. A nil Handler
// means the route only runs the pipeline.
type Handler func(plug.Conn) plug.Conn

// MatchMode selects how a scope prefix is matched against a request path.
type MatchMode int

const (
	// MatchPrefix requires the request path to start with the scope prefix
	// on a segment boundary.
	MatchPrefix MatchMode = iota
	// MatchSubstring accepts the prefix anywhere in the request path and
	// looks the route up from that position onward.
	MatchSubstring
)

func (m MatchMode) String() string {
	if m == MatchSubstring {
		return "substring"
	}
	return "prefix"
}

type routeSpec struct {
	method  string
	path    string
	handler Handler
}

// ScopeBuilder collects the pipelines and routes of one scope.
type ScopeBuilder struct {
	prefix string
	pipes  immut.Vector[string]
	routes immut.Vector[routeSpec]
}

// PipeThrough appends named pipelines, run in the order given.
func (s ScopeBuilder) PipeThrough(names ...string) ScopeBuilder {
	for _, n := range names {
		s.pipes = s.pipes.Append(n)
	}
	return s
}

// Get registers a GET route.
func (s ScopeBuilder) Get(path string, h Handler) ScopeBuilder { return s.add("get", path, h) }

// Post registers a POST route.
func (s ScopeBuilder) Post(path string, h Handler) ScopeBuilder { return s.add("post", path, h) }

// Put registers a PUT route.
func (s ScopeBuilder) Put(path string, h Handler) ScopeBuilder { return s.add("put", path, h) }

// Delete registers a DELETE route.
func (s ScopeBuilder) Delete(path string, h Handler) ScopeBuilder { return s.add("delete", path, h) }

func (s ScopeBuilder) add(method, path string, h Handler) ScopeBuilder {
	s.routes = s.routes.Append(routeSpec{method: method, path: path, handler: h})
	return s
}

// Builder assembles a Router. Every method returns a new Builder.
type Builder struct {
	pipelines immut.Map[string, plug.Pipeline]
	order     immut.Vector[string]
	scopes    immut.Vector[ScopeBuilder]
	mode      MatchMode
}

// NewBuilder returns an empty builder using MatchPrefix.
func NewBuilder() Builder { return Builder{} }

// Pipeline registers stages under name. Registering a name twice appends
// the new stages to the existing pipeline.
func (b Builder) Pipeline(name string, stages ...plug.Stage) Builder {
	p, ok := b.pipelines.Get(name)
	if !ok {
		p = plug.NewPipeline(name)
		b.order = b.order.Append(name)
	}
	for _, st := range stages {
		p = p.Then(st.Plug, st.Opts)
	}
	b.pipelines = b.pipelines.Set(name, p)
	return b
}

// Scope registers a scope at prefix configured by fn. Scopes are tried in
// registration order; several may share a prefix.
func (b Builder) Scope(prefix string, fn func(ScopeBuilder) ScopeBuilder) Builder {
	s := ScopeBuilder{prefix: prefix}
	if fn != nil {
		s = fn(s)
	}
	b.scopes = b.scopes.Append(s)
	return b
}

// Mode selects the prefix matching mode.
func (b Builder) Mode(m MatchMode) Builder {
	b.mode = m
	return b
}

// Build resolves pipeline names and freezes the route tables.
func (b Builder) Build() (*Router, error) {
	r := &Router{mode: b.mode, pipelines: b.order.Slice()}
	for i, sb := range b.scopes.Slice() {
		if sb.prefix == "" || sb.prefix[0] != '/' {
			return nil, fmt.Errorf("scope %d: prefix %q must start with /", i, sb.prefix)
		}
		sc := scope{prefix: sb.prefix, tables: make(map[string]*table)}
		composed := plug.NewPipeline(sb.prefix)
		for _, name := range sb.pipes.Slice() {
			p, ok := b.pipelines.Get(name)
			if !ok {
				return nil, fmt.Errorf("scope %q: unknown pipeline %q", sb.prefix, name)
			}
			composed = composed.Concat(p)
			sc.pipes = append(sc.pipes, name)
		}
		sc.pipeline = composed
		for _, rs := range sb.routes.Slice() {
			if !strings.HasPrefix(rs.path, "/") {
				return nil, fmt.Errorf("scope %q: route %q must start with /", sb.prefix, rs.path)
			}
			t := sc.tables[rs.method]
			if t == nil {
				t = &table{exact: make(map[string]Handler), all: make(map[string]Handler)}
				sc.tables[rs.method] = t
			}
			if err := t.add(rs.path, rs.handler); err != nil {
				return nil, fmt.Errorf("scope %q: %s %s: %w", sb.prefix, strings.ToUpper(rs.method), rs.path, err)
			}
		}
		r.scopes = append(r.scopes, sc)
	}
	return r, nil
}

// MustBuild is Build for router definitions known at compile time.
func (b Builder) MustBuild() *Router {
	r, err := b.Build()
	if err != nil {
		panic(err)
	}
	return r
}
