package plug

import "github.com/BolvicBolvicovic/feather/pkg/immut"

// Options configures one plug invocation.
type Options = immut.Map[string, string]

// Opts builds Options from alternating keys and values. A trailing key
// without a value maps to "true", so a flag can only come last.
func Opts(kv ...string) Options {
	var o Options
	for i := 0; i < len(kv); i += 2 {
		if i+1 < len(kv) {
			o = o.Set(kv[i], kv[i+1])
		} else {
			o = o.Set(kv[i], "true")
		}
	}
	return o
}

// Plug is one pipeline stage.
type Plug func(Conn, Options) Conn

// Func adapts a stage that takes no options.
func Func(fn func(Conn) Conn) Plug {
	return func(c Conn, _ Options) Conn { return fn(c) }
}

// Stage is a plug bound to the options it runs with.
type Stage struct {
	Plug Plug
	Opts Options
}

// Bind pairs p with opts.
func Bind(p Plug, opts Options) Stage { return Stage{Plug: p, Opts: opts} }

// Pipeline is a named, immutable sequence of stages.
type Pipeline struct {
	name   string
	stages immut.Vector[Stage]
}

// NewPipeline returns a pipeline running stages in order.
func NewPipeline(name string, stages ...Stage) Pipeline {
	return Pipeline{name: name, stages: immut.NewVector(stages...)}
}

func (p Pipeline) Name() string { return p.name }
func (p Pipeline) Len() int { return p.stages.Len() }

// Then returns a pipeline with plug appended.
func (p Pipeline) Then(plug Plug, opts Options) Pipeline {
	p.stages = p.stages.Append(Stage{Plug: plug, Opts: opts})
	return p
}

// Concat returns p followed by the stages of other.
func (p Pipeline) Concat(other Pipeline) Pipeline {
	p.stages = p.stages.Concat(other.stages)
	return p
}

// Run threads c through every stage in order. Once a stage halts the conn
// the remaining stages are skipped.
func (p Pipeline) Run(c Conn) Conn {
	out := c
	p.stages.Range(func(_ int, s Stage) bool {
		if out.halted {
			return false
		}
		out = s.Plug(out, s.Opts)
		return true
	})
	return out
}

// AsPlug exposes the whole pipeline as a single plug.
func (p Pipeline) AsPlug() Plug {
	return func(c Conn, _ Options) Conn { return p.Run(c) }
}
