// Package plug implements the connection value threaded through a request
// pipeline and the plug composition model built on top of it.
//
// A Conn is persistent: every operation returns a new Conn that shares
// unchanged structure with its input, and the input is never altered.
// Operations that can be refused return (Conn, error); on error the
// returned Conn is the input, unchanged, so a pipeline can carry on.
package plug

import (
	"net"
	"os"
	"reflect"
	"strings"

	"github.com/BolvicBolvicovic/feather/pkg/immut"
	"github.com/BolvicBolvicovic/feather/pkg/session"
)

// Header is one header line.
type Header struct {
	Key   string
	Value string
}

// Request is the parsed request record a transport hands to New.
type Request struct {
	Method     string
	Target     string
	Path       string
	Version    string
	Scheme     string
	Headers    []Header
	Body       string
	RemoteAddr string
}

// optMap is an optional string map: nil until fetched.
type optMap = *immut.Map[string, string]

// CookieAttrs holds the Set-Cookie directives staged for one cookie.
type CookieAttrs = immut.Map[string, string]

// Conn is one request/response lifecycle.
type Conn struct {
	// request
	host        string
	method      string
	pathInfo    immut.Vector[string]
	scriptName  immut.Vector[string]
	requestURL  string
	requestPath string
	port        int
	remoteIP    string
	reqHeaders  immut.Multimap[string, string]
	scheme      string
	queryString string
	reqBody     string
	bodyOffset  int

	// fetchable
	cookies     optMap
	reqCookies  optMap
	bodyParams  optMap
	queryParams optMap
	pathParams  optMap

	// response
	respBody    *string
	respCookies immut.Map[string, CookieAttrs]
	respHeaders immut.Multimap[string, string]
	status      int

	// control
	beforeSend    immut.Vector[func(Conn) Conn]
	assigns       immut.Map[string, any]
	owner         int
	halted        bool
	secretKeyBase string
	state         State

	// session
	session     session.Session
	sessionCopy session.Session
	sessionInfo session.Opt
}

// New builds a Conn from a parsed request. s is the session found for the
// request; nil means a fresh, empty session.
func New(req Request, s session.Session) Conn {
	if s == nil {
		s = session.NewCookieSession(nil)
	}
	c := Conn{
		method:      strings.ToLower(req.Method),
		requestURL:  req.Target,
		requestPath: req.Path,
		pathInfo:    immut.NewVector(BuildPathInfo(req.Path)...),
		scheme:      strings.ToLower(req.Scheme),
		queryString: GetQueryFromTarget(req.Target),
		reqBody:     req.Body,
		remoteIP:    remoteIP(req.RemoteAddr),
		owner:       os.Getpid(),
		session:     s,
		sessionCopy: s.Clone(),
	}
	if c.scheme == "" {
		c.scheme = "http"
	}
	for _, h := range req.Headers {
		k := foldKey(h.Key)
		if k == "host" {
			c.host = h.Value
			continue
		}
		c.reqHeaders = c.reqHeaders.Insert(k, h.Value)
	}
	if p, ok := GetPortFromHost(c.host); ok {
		c.port = p
	}
	return c
}

func remoteIP(addr string) string {
	if addr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func foldKey(k string) string { return strings.ToLower(strings.TrimSpace(k)) }

func (c Conn) Host() string { return c.host }
func (c Conn) Method() string { return c.method }
func (c Conn) PathInfo() []string { return c.pathInfo.Slice() }
func (c Conn) ScriptName() []string { return c.scriptName.Slice() }
func (c Conn) RequestURL() string { return c.requestURL }
func (c Conn) RequestPath() string { return c.requestPath }
func (c Conn) Port() int { return c.port }
func (c Conn) RemoteIP() string { return c.remoteIP }
func (c Conn) Scheme() string { return c.scheme }
func (c Conn) QueryString() string { return c.queryString }
func (c Conn) ReqBody() string { return c.reqBody }
func (c Conn) Owner() int { return c.owner }
func (c Conn) Halted() bool { return c.halted }
func (c Conn) State() State { return c.state }
func (c Conn) SecretKeyBase() string { return c.secretKeyBase }
func (c Conn) Assigns() immut.Map[string, any] { return c.assigns }

// Status returns the response status. The second result is false while unset.
func (c Conn) Status() (int, bool) { return c.status, c.status != 0 }

// RespBody returns the response body. The second result is false while unset.
func (c Conn) RespBody() (string, bool) {
	if c.respBody == nil {
		return "", false
	}
	return *c.respBody, true
}

// RespCookies returns the staged response cookies.
func (c Conn) RespCookies() immut.Map[string, CookieAttrs] { return c.respCookies }

// PutSecretKeyBase sets the secret used for signed cookies.
func (c Conn) PutSecretKeyBase(secret string) Conn {
	c.secretKeyBase = secret
	return c
}

// Assign stores value under key in the assigns bag.
func (c Conn) Assign(key string, value any) Conn {
	c.assigns = c.assigns.Set(key, value)
	return c
}

// GetAssign returns the assign stored under key.
func (c Conn) GetAssign(key string) (any, bool) { return c.assigns.Get(key) }

// MergeAssigns stores every entry of values in the assigns bag.
func (c Conn) MergeAssigns(values map[string]any) Conn {
	for k, v := range values {
		c.assigns = c.assigns.Set(k, v)
	}
	return c
}

// Halt flags the conn so that the remaining plugs and the handler are skipped.
func (c Conn) Halt() Conn {
	c.halted = true
	return c
}

// Equal reports whether c and other carry the same request, response,
// session and control fields. Before-send callbacks are compared by count.
func (c Conn) Equal(other Conn) bool {
	eqs := func(a, b string) bool { return a == b }
	eqAny := func(a, b any) bool { return reflect.DeepEqual(a, b) }
	eqCookie := func(a, b CookieAttrs) bool { return a.Equal(b, eqs) }

	switch {
	case c.host != other.host, c.method != other.method, c.requestURL != other.requestURL,
		c.requestPath != other.requestPath, c.port != other.port, c.remoteIP != other.remoteIP,
		c.scheme != other.scheme, c.queryString != other.queryString, c.reqBody != other.reqBody,
		c.bodyOffset != other.bodyOffset, c.status != other.status, c.owner != other.owner,
		c.halted != other.halted, c.state != other.state, c.sessionInfo != other.sessionInfo,
		c.secretKeyBase != other.secretKeyBase:
		return false
	}
	if !c.pathInfo.Equal(other.pathInfo, eqs) || !c.scriptName.Equal(other.scriptName, eqs) {
		return false
	}
	if !c.reqHeaders.Equal(other.reqHeaders, eqs) || !c.respHeaders.Equal(other.respHeaders, eqs) {
		return false
	}
	for _, p := range [][2]optMap{
		{c.cookies, other.cookies},
		{c.reqCookies, other.reqCookies},
		{c.bodyParams, other.bodyParams},
		{c.queryParams, other.queryParams},
		{c.pathParams, other.pathParams},
	} {
		if !equalParams(p[0], p[1]) {
			return false
		}
	}
	if (c.respBody == nil) != (other.respBody == nil) ||
		(c.respBody != nil && *c.respBody != *other.respBody) {
		return false
	}
	if !c.respCookies.Equal(other.respCookies, eqCookie) || !c.assigns.Equal(other.assigns, eqAny) {
		return false
	}
	if c.beforeSend.Len() != other.beforeSend.Len() {
		return false
	}
	return session.Equal(c.session, other.session) && session.Equal(c.sessionCopy, other.sessionCopy)
}

func equalParams(a, b optMap) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b, func(x, y string) bool { return x == y })
}

func some(m immut.Map[string, string]) optMap { return &m }
