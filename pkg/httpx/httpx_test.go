package httpx

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"

	"github.com/BolvicBolvicovic/feather/pkg/controller"
	"github.com/BolvicBolvicovic/feather/pkg/plug"
	"github.com/BolvicBolvicovic/feather/pkg/plug/plugtest"
	"github.com/BolvicBolvicovic/feather/pkg/router"
	"github.com/BolvicBolvicovic/feather/pkg/session"
)

func request(path string, headers ...plug.Header) plug.Request {
	return plug.Request{
		Method:     "GET",
		Target:     path,
		Path:       path,
		Version:    "HTTP/1.1",
		Headers:    append([]plug.Header{{Key: "Host", Value: "example.com"}}, headers...),
		RemoteAddr: "10.0.0.1:5000",
	}
}

// sessionID pulls the id out of an "id_cookie=<id>; ..." line.
func sessionID(t *testing.T, resp Response) string {
	t.Helper()
	for _, line := range resp.SetCookies {
		if v, ok := strings.CutPrefix(line, "id_cookie="); ok {
			id, _, _ := strings.Cut(v, ";")
			return id
		}
	}
	t.Fatalf("no session cookie in %v", resp.SetCookies)
	return ""
}

func counter(c plug.Conn) plug.Conn {
	n := 0
	if v, ok := c.GetSession("n"); ok {
		n = v.(int)
	}
	return controller.Text(c.PutSession("n", n+1), strings.Repeat("x", n+1))
}

func TestFormatSetCookie(t *testing.T) {
	c, err := plugtest.New("GET", "/").PutRespCookie("test", "v", plug.Opts("max_age", "60", "same_site", "Lax", "httponly"))
	if err != nil {
		t.Fatalf("put cookie: %v", err)
	}
	attrs, _ := c.RespCookies().Get("test")
	line, ok := FormatSetCookie(attrs)
	assert.True(t, ok)
	assert.Equal(t, "test_cookie=v; Path=/; Max-Age=60; HttpOnly; SameSite=Lax", line)

	c, _ = c.DeleteRespCookie("test", plug.Options{})
	attrs, _ = c.RespCookies().Get("test")
	_, ok = FormatSetCookie(attrs)
	assert.False(t, ok)
}

func TestServeDefaultsStatusTo200(t *testing.T) {
	a := New(DispatchFunc(func(c plug.Conn) plug.Conn { return c.Assign("seen", true) }), Options{})
	resp := a.Serve(request("/"))
	assert.Equal(t, 200, resp.Status)
	assert.Empty(t, resp.Body)
	assert.Empty(t, resp.SetCookies)
}

func TestServeNotFound(t *testing.T) {
	a := New(DispatchFunc(func(c plug.Conn) plug.Conn { return c }), Options{NotFound: controller.NotFound})
	resp := a.Serve(request("/missing"))
	assert.Equal(t, 404, resp.Status)
	assert.Equal(t, `{"error":"not found"}`, resp.Body)
}

func TestServeRunsBeforeSendInOrder(t *testing.T) {
	d := DispatchFunc(func(c plug.Conn) plug.Conn {
		c = c.RegisterBeforeSend(func(c plug.Conn) plug.Conn {
			next, _ := c.PutRespHeader("x-trace", "first")
			return next
		})
		c = c.RegisterBeforeSend(func(c plug.Conn) plug.Conn {
			next, _ := c.UpdateRespHeader("x-trace", "", func(v string) string { return v + ",second" })
			return next
		})
		return c.Resp(200, "ok")
	})
	resp := New(d, Options{}).Serve(request("/"))
	assert.Contains(t, resp.Headers, plug.Header{Key: "x-trace", Value: "first,second"})
}

func TestSessionRoundTrip(t *testing.T) {
	reg := session.NewRegistry(nil)
	a := New(DispatchFunc(counter), Options{Registry: reg})

	first := a.Serve(request("/"))
	id := sessionID(t, first)
	assert.Equal(t, "x", first.Body)
	assert.Equal(t, 1, reg.Len())

	second := a.Serve(request("/", plug.Header{Key: "Cookie", Value: "id_cookie=" + id}))
	assert.Equal(t, "xx", second.Body)
	assert.Empty(t, second.SetCookies)
	assert.Equal(t, 1, reg.Len())
}

func TestSessionDrop(t *testing.T) {
	reg := session.NewRegistry(nil)
	a := New(DispatchFunc(counter), Options{Registry: reg})
	id := sessionID(t, a.Serve(request("/")))

	drop := New(DispatchFunc(func(c plug.Conn) plug.Conn {
		c, _ = c.ConfigureSession(session.Drop)
		return c.Resp(204, "")
	}), Options{Registry: reg})
	resp := drop.Serve(request("/", plug.Header{Key: "cookie", Value: "id_cookie=" + id}))
	assert.Equal(t, 0, reg.Len())
	if assert.Len(t, resp.SetCookies, 1) {
		assert.Contains(t, resp.SetCookies[0], "Max-Age=0")
		assert.Contains(t, resp.SetCookies[0], plug.EpochDate)
	}
}

func TestSessionRenew(t *testing.T) {
	reg := session.NewRegistry(nil)
	a := New(DispatchFunc(counter), Options{Registry: reg})
	id := sessionID(t, a.Serve(request("/")))

	renew := New(DispatchFunc(func(c plug.Conn) plug.Conn {
		c, _ = c.ConfigureSession(session.Renew)
		return counter(c)
	}), Options{Registry: reg})
	resp := renew.Serve(request("/", plug.Header{Key: "cookie", Value: "id_cookie=" + id}))
	nid := sessionID(t, resp)
	assert.NotEqual(t, id, nid)
	_, ok := reg.Lookup(id)
	assert.False(t, ok)
	s, ok := reg.Lookup(nid)
	if assert.True(t, ok) {
		v, _ := s.Get("n")
		assert.Equal(t, 2, v)
	}
}

func TestServeKeepsStatusOfUnroutedConn(t *testing.T) {
	a := New(DispatchFunc(func(c plug.Conn) plug.Conn {
		return c.FetchQueryParams(plug.Options{})
	}), Options{NotFound: controller.NotFound})
	req := request("/x?broken")
	req.Path = "/x"
	resp := a.Serve(req)
	assert.Equal(t, 414, resp.Status)
}

func TestAfterSendSeesSentConn(t *testing.T) {
	var got plug.Conn
	a := New(DispatchFunc(func(c plug.Conn) plug.Conn { return controller.Text(c, "ok") }),
		Options{AfterSend: func(c plug.Conn) { got = c }})
	a.Serve(request("/"))
	assert.Equal(t, plug.Sent, got.State())
	body, _ := got.RespBody()
	assert.Equal(t, "ok", body)
}

type countingBackend struct {
	saves int
}

func (b *countingBackend) Save(string, session.Session) error { b.saves++; return nil }
func (b *countingBackend) Load(string) (session.Session, bool, error) {
	return nil, false, nil
}
func (b *countingBackend) Delete(string) error { return nil }

func TestSessionCreatedOnlyWhenWritten(t *testing.T) {
	b := &countingBackend{}
	reg := session.NewRegistry(b)
	untouched := New(DispatchFunc(func(c plug.Conn) plug.Conn { return controller.Text(c, "ok") }), Options{Registry: reg})

	resp := untouched.Serve(request("/"))
	assert.Empty(t, resp.SetCookies)
	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, 0, b.saves)

	id := sessionID(t, New(DispatchFunc(counter), Options{Registry: reg}).Serve(request("/")))
	assert.Equal(t, 1, b.saves)

	resp = untouched.Serve(request("/", plug.Header{Key: "Cookie", Value: "id_cookie=" + id}))
	assert.Empty(t, resp.SetCookies)
	assert.Equal(t, 1, b.saves)
}

func TestSessionIgnoreSkipsFreshCookie(t *testing.T) {
	reg := session.NewRegistry(nil)
	a := New(DispatchFunc(func(c plug.Conn) plug.Conn {
		c, _ = c.ConfigureSession(session.Ignore)
		return c.Resp(200, "")
	}), Options{Registry: reg})
	resp := a.Serve(request("/"))
	assert.Empty(t, resp.SetCookies)
	assert.Equal(t, 0, reg.Len())
}

func testRouter() *router.Router {
	return router.NewBuilder().
		Pipeline("browser", plug.Bind(plug.Func(func(c plug.Conn) plug.Conn { return c.FetchQueryParams(plug.Options{}) }), plug.Options{})).
		Scope("/", func(s router.ScopeBuilder) router.ScopeBuilder {
			return s.PipeThrough("browser").
				Get("/hello", func(c plug.Conn) plug.Conn {
					q, _ := c.QueryParams()
					name, _ := q.Get("name")
					return controller.Text(c, "hello "+name)
				}).
				Post("/echo", func(c plug.Conn) plug.Conn {
					return controller.Text(c.PutSession("last", c.ReqBody()), c.ReqBody())
				})
		}).
		MustBuild()
}

func TestNetHTTPAdapter(t *testing.T) {
	a := New(testRouter(), Options{Registry: session.NewRegistry(nil), NotFound: controller.NotFound})

	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest("GET", "/hello?name=ada", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "hello ada", rec.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Values("Set-Cookie"))

	rec = httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest("POST", "/echo", strings.NewReader("ping")))
	if cookies := rec.Header().Values("Set-Cookie"); assert.Len(t, cookies, 1) {
		assert.True(t, strings.HasPrefix(cookies[0], "id_cookie="))
		assert.Contains(t, cookies[0], "HttpOnly")
	}

	rec = httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest("GET", "/nope", nil))
	assert.Equal(t, 404, rec.Code)
}

func TestNetHTTPBodyLimit(t *testing.T) {
	a := New(testRouter(), Options{MaxBodySize: 4})
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest("POST", "/echo", strings.NewReader("too long")))
	assert.Equal(t, 413, rec.Code)
}

func TestFastHTTPAdapter(t *testing.T) {
	a := New(testRouter(), Options{Registry: session.NewRegistry(nil)})

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod("POST")
	ctx.Request.SetRequestURI("/echo")
	ctx.Request.Header.SetHost("example.com")
	ctx.Request.SetBodyString("ping")
	a.FastHTTPHandler()(&ctx)

	assert.Equal(t, 200, ctx.Response.StatusCode())
	assert.Equal(t, "ping", string(ctx.Response.Body()))
	ck := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(ck)
	ck.SetKey("id_cookie")
	if assert.True(t, ctx.Response.Header.Cookie(ck)) {
		assert.NotEmpty(t, ck.Value())
		assert.True(t, ck.HTTPOnly())
	}
}
