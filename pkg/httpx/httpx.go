// Package httpx connects the plug pipeline to real HTTP servers. Both
// adapters turn the transport request into a plug.Request, run it through
// a Dispatcher and write the resulting Conn back.
package httpx

import (
	"strings"

	"github.com/BolvicBolvicovic/feather/pkg/logger"
	"github.com/BolvicBolvicovic/feather/pkg/plug"
	"github.com/BolvicBolvicovic/feather/pkg/session"
)

// Dispatcher routes a conn to its pipeline and handler.
type Dispatcher interface {
	Dispatch(c plug.Conn) plug.Conn
}

// DispatchFunc adapts a plain function to Dispatcher.
type DispatchFunc func(plug.Conn) plug.Conn

func (f DispatchFunc) Dispatch(c plug.Conn) plug.Conn { return f(c) }

// Options configures an Adapter.
type Options struct {
	// Registry holds sessions between requests. Nil disables sessions.
	Registry *session.Registry
	// CookieName is the key the session id is staged under. Defaults to "id".
	CookieName string
	// SecretKeyBase is put on every conn.
	SecretKeyBase string
	// NotFound answers conns the dispatcher left untouched.
	NotFound func(plug.Conn) plug.Conn
	// MaxBodySize caps request bodies read by the net/http adapter.
	MaxBodySize int64
	// AfterSend, when set, receives every conn once its response is encoded
	// and the conn is marked sent.
	AfterSend func(plug.Conn)
}

// Response is the serialised form of a finished conn.
type Response struct {
	Status     int
	Headers    []plug.Header
	SetCookies []string
	Body       string
}

// Adapter runs requests through a Dispatcher.
type Adapter struct {
	d    Dispatcher
	opts Options
}

// New returns an Adapter for d.
func New(d Dispatcher, opts Options) *Adapter {
	if opts.CookieName == "" {
		opts.CookieName = "id"
	}
	return &Adapter{d: d, opts: opts}
}

// Serve runs one request through the pipeline and returns what should be
// written to the client. A conn the dispatcher hands back unchanged matched
// no route and goes to NotFound.
func (a *Adapter) Serve(req plug.Request) Response {
	sid, sess := a.lookupSession(req)
	c := plug.New(req, sess)
	if a.opts.SecretKeyBase != "" {
		c = c.PutSecretKeyBase(a.opts.SecretKeyBase)
	}

	out := a.d.Dispatch(c)
	if a.opts.NotFound != nil && out.Equal(c) {
		out = a.opts.NotFound(out)
	}
	out = out.RunBeforeSend()
	if a.opts.Registry != nil {
		out = a.writeSession(out, sid)
	}
	resp := Encode(out)
	out = out.MarkSent()
	if a.opts.AfterSend != nil {
		a.opts.AfterSend(out)
	}
	return resp
}

func sessionCookieOpts() plug.Options {
	return plug.Opts("path", "/", "httponly")
}

func (a *Adapter) lookupSession(req plug.Request) (string, session.Session) {
	if a.opts.Registry == nil {
		return "", nil
	}
	wire := plug.CookieWireName(a.opts.CookieName)
	id := ""
	for _, h := range req.Headers {
		if !strings.EqualFold(h.Key, "cookie") {
			continue
		}
		if v, ok := plug.ParseCookie(h.Value).Get(wire); ok && v != "" {
			id = v
		}
	}
	if id == "" {
		return "", nil
	}
	s, ok := a.opts.Registry.Lookup(id)
	if !ok {
		logger.Debug("session_unknown", "cookie", a.opts.CookieName)
		return "", nil
	}
	return id, s
}

// writeSession applies the session option the pipeline chose. sid is empty
// when the request carried no known session; such a session only gets an id
// and a cookie once something was written to it.
func (a *Adapter) writeSession(c plug.Conn, sid string) plug.Conn {
	reg := a.opts.Registry
	name := a.opts.CookieName
	switch c.SessionInfo() {
	case session.Write:
		if session.Equal(c.OriginalSession(), c.Session()) {
			return c
		}
		if sid == "" {
			sid = session.NewID()
			c = stageCookie(c, name, sid, sessionCookieOpts())
		}
		reg.Store(sid, c.Session())
	case session.Renew:
		if sid != "" {
			reg.Remove(sid)
		}
		nid := session.NewID()
		reg.Store(nid, c.Session())
		c = stageCookie(c, name, nid, sessionCookieOpts())
		logger.Debug("session_renewed")
	case session.Drop:
		if sid == "" {
			return c
		}
		reg.Remove(sid)
		c = stageCookie(c, name, "", plug.Opts("path", "/", "max_age", "0", "expires", plug.EpochDate))
		logger.Debug("session_dropped")
	}
	return c
}

func stageCookie(c plug.Conn, name, value string, opts plug.Options) plug.Conn {
	next, err := c.PutRespCookie(name, value, opts)
	if err != nil {
		logger.Warn("session_cookie_refused", "state", c.State().String(), "error", err)
		return c
	}
	return next
}

// Encode serialises a conn. The status defaults to 200.
func Encode(c plug.Conn) Response {
	status, ok := c.Status()
	if !ok {
		status = 200
	}
	body, _ := c.RespBody()
	resp := Response{Status: status, Headers: c.RespHeaders(), Body: body}
	c.RespCookies().Range(func(_ string, attrs plug.CookieAttrs) bool {
		if line, ok := FormatSetCookie(attrs); ok {
			resp.SetCookies = append(resp.SetCookies, line)
		}
		return true
	})
	return resp
}
