// Package router maps request paths to scope pipelines and terminal
// handlers. A Router is built once with a Builder and is read-only
// afterwards, so it can serve concurrent requests without locking.
package router

import (
	"errors"
	"sort"
	"strings"

	"github.com/BolvicBolvicovic/feather/pkg/immut"
	"github.com/BolvicBolvicovic/feather/pkg/plug"
)

var errDuplicateRoute = errors.New("duplicate route")

// Router dispatches conns to scopes.
type Router struct {
	scopes    []scope
	pipelines []string
	mode      MatchMode
}

type scope struct {
	prefix   string
	pipes    []string
	pipeline plug.Pipeline
	tables   map[string]*table
}

// table holds the routes of one method. Exact paths are looked up first,
// then parameterised ones in registration order.
type table struct {
	exact  map[string]Handler
	params []route
	order  []string
	all    map[string]Handler
}

type route struct {
	path     string
	segments []segment
	handler  Handler
}

type segment struct {
	name    string
	isParam bool
}

func (t *table) add(path string, h Handler) error {
	if _, dup := t.all[path]; dup {
		return errDuplicateRoute
	}
	t.order = append(t.order, path)
	t.all[path] = h
	segs := parse(path)
	for _, s := range segs {
		if s.isParam {
			t.params = append(t.params, route{path: path, segments: segs, handler: h})
			return nil
		}
	}
	t.exact[path] = h
	return nil
}

func (t *table) lookup(path string) (Handler, immut.Map[string, string], bool) {
	if h, ok := t.exact[path]; ok {
		return h, immut.Map[string, string]{}, true
	}
	for _, rt := range t.params {
		if values, ok := match(path, rt.segments); ok {
			return rt.handler, values, true
		}
	}
	return nil, immut.Map[string, string]{}, false
}

// Dispatch runs the first scope whose prefix and route table accept the
// conn: its pipeline, then its handler unless the handler is nil or the
// pipeline halted. When no route matches the conn is returned unchanged.
func (r *Router) Dispatch(c plug.Conn) plug.Conn {
	path := c.RequestPath()
	if path == "" {
		path = "/"
	}
	for _, sc := range r.scopes {
		key, ok := r.locate(sc.prefix, path)
		if !ok {
			continue
		}
		t := sc.tables[c.Method()]
		if t == nil {
			continue
		}
		h, params, ok := t.lookup(key)
		if !ok {
			continue
		}
		out := c
		if params.Len() > 0 {
			out = out.PutPathParams(params)
		}
		out = sc.pipeline.Run(out)
		if h == nil || out.Halted() {
			return out
		}
		return h(out)
	}
	return c
}

// Handle makes the router usable as a Handler.
func (r *Router) Handle(c plug.Conn) plug.Conn { return r.Dispatch(c) }

// locate returns the part of path looked up in a scope's tables.
func (r *Router) locate(prefix, path string) (string, bool) {
	if r.mode == MatchSubstring {
		pos := strings.Index(path, prefix)
		if pos < 0 {
			return "", false
		}
		return path[pos:], true
	}
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	if len(path) > len(prefix) && !strings.HasSuffix(prefix, "/") && path[len(prefix)] != '/' {
		return "", false
	}
	return path, true
}

// Mode returns the prefix matching mode.
func (r *Router) Mode() MatchMode { return r.mode }

// Pipelines returns the registered pipeline names in registration order.
func (r *Router) Pipelines() []string { return append([]string(nil), r.pipelines...) }

// RouteInfo describes one registered route.
type RouteInfo struct {
	Method    string
	Path      string
	Scope     string
	Pipelines []string
	Handler   bool
}

// Routes lists every route, scope by scope, methods in a fixed order.
func (r *Router) Routes() []RouteInfo {
	var out []RouteInfo
	for _, sc := range r.scopes {
		methods := make([]string, 0, len(sc.tables))
		for m := range sc.tables {
			methods = append(methods, m)
		}
		sort.Slice(methods, func(i, j int) bool { return methodRank(methods[i]) < methodRank(methods[j]) })
		for _, m := range methods {
			t := sc.tables[m]
			for _, p := range t.order {
				out = append(out, RouteInfo{
					Method:    strings.ToUpper(m),
					Path:      p,
					Scope:     sc.prefix,
					Pipelines: append([]string(nil), sc.pipes...),
					Handler:   t.all[p] != nil,
				})
			}
		}
	}
	return out
}

func methodRank(m string) int {
	switch m {
	case "get":
		return 0
	case "post":
		return 1
	case "put":
		return 2
	case "delete":
		return 3
	}
	return 4
}

func parse(path string) []segment {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return []segment{{name: ""}}
	}
	parts := strings.Split(path, "/")
	segs := make([]segment, len(parts))
	for i, part := range parts {
		if strings.HasPrefix(part, ":") && len(part) > 1 {
			segs[i] = segment{name: part[1:], isParam: true}
		} else {
			segs[i] = segment{name: part}
		}
	}
	return segs
}

func match(path string, segs []segment) (immut.Map[string, string], bool) {
	var values immut.Map[string, string]
	path = strings.TrimPrefix(path, "/")
	parts := []string{""}
	if path != "" {
		parts = strings.Split(path, "/")
	}
	if len(parts) != len(segs) {
		return values, false
	}
	for i, seg := range segs {
		if seg.isParam {
			if parts[i] == "" {
				return values, false
			}
			values = values.Set(seg.name, parts[i])
			continue
		}
		if seg.name != parts[i] {
			return values, false
		}
	}
	return values, true
}
