package plug_test

import (
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/BolvicBolvicovic/feather/pkg/plug"
	"github.com/BolvicBolvicovic/feather/pkg/plug/plugtest"
	"github.com/BolvicBolvicovic/feather/pkg/session"
)

func buildFirstConn() plug.Conn {
	return plug.New(plug.Request{
		Method:  "GET",
		Target:  "/users/123?test=tested&patate=douce",
		Path:    "/users/123",
		Version: "HTTP/1.1",
		Headers: []plug.Header{
			{Key: "Host", Value: "example.com:8080"},
			{Key: "Authorization", Value: "Bearer token"},
			{Key: "Accept", Value: "application/json"},
			{Key: "Accept-Language", Value: "en-US,en;q=0.5"},
			{Key: "cookie", Value: "session=abc123;"},
			{Key: "cookie", Value: `user_id=42; preferences="theme:dark,font:large"; Path=/; Domain=example.com; Secure; HttpOnly`},
		},
		RemoteAddr: "10.0.0.7:51234",
	}, nil)
}

func keysOf(m interface{ Keys() []string }) []string {
	k := m.Keys()
	sort.Strings(k)
	return k
}

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("%s: expected panic", name)
		}
	}()
	fn()
}

func TestNewFromRequest(t *testing.T) {
	c := buildFirstConn()
	if c.Method() != "get" {
		t.Fatalf("method = %q", c.Method())
	}
	if c.Host() != "example.com:8080" || c.Port() != 8080 {
		t.Fatalf("host/port = %q/%d", c.Host(), c.Port())
	}
	if got := c.PathInfo(); !reflect.DeepEqual(got, []string{"users", "123"}) {
		t.Fatalf("path info = %v", got)
	}
	if c.QueryString() != "test=tested&patate=douce" {
		t.Fatalf("query string = %q", c.QueryString())
	}
	if c.RemoteIP() != "10.0.0.7" {
		t.Fatalf("remote ip = %q", c.RemoteIP())
	}
	if got := c.GetReqHeader("accept-language"); !reflect.DeepEqual(got, []string{"en-US,en;q=0.5"}) {
		t.Fatalf("accept-language = %v", got)
	}
	if got := c.GetReqHeader("host"); len(got) != 0 {
		t.Fatalf("host stored as header: %v", got)
	}
	if c.State() != plug.Unset {
		t.Fatalf("state = %s", c.State())
	}
	if _, ok := c.Status(); ok {
		t.Fatalf("status set on a fresh conn")
	}
}

func TestAssignIsPersistent(t *testing.T) {
	c := buildFirstConn()
	c2 := c.Assign("k", 42)
	if _, ok := c.GetAssign("k"); ok {
		t.Fatalf("assign leaked into the original conn")
	}
	if v, _ := c2.GetAssign("k"); v != 42 {
		t.Fatalf("k = %v", v)
	}
	c3 := c2.MergeAssigns(map[string]any{"a": 1, "k": 7})
	if v, _ := c3.GetAssign("k"); v != 7 {
		t.Fatalf("merge did not overwrite: %v", v)
	}
	if v, _ := c2.GetAssign("k"); v != 42 {
		t.Fatalf("merge mutated c2: %v", v)
	}
}

func TestMutatorsLeaveInputUnchanged(t *testing.T) {
	c := buildFirstConn()
	snapshot := buildFirstConn()

	_, _ = c.PutRespHeader("x", "1")
	_, _ = c.PutReqHeader("accept", "text/html")
	_, _ = c.PutStatus(201)
	_, _ = c.PutRespCookie("a", "b", plug.Options{})
	_ = c.Resp(200, "ok")
	_ = c.FetchCookies(plug.Options{})
	_ = c.FetchQueryParams(plug.Options{})
	_ = c.PutSession("user", "ada")
	_ = c.Halt()

	if !c.Equal(snapshot) {
		t.Fatalf("mutators altered the input conn")
	}
}

func TestFetchQueryParams(t *testing.T) {
	c := buildFirstConn().FetchQueryParams(plug.Options{})
	q, ok := c.QueryParams()
	if !ok {
		t.Fatalf("query params not fetched")
	}
	want := map[string]string{"test": "tested", "patate": "douce"}
	if !reflect.DeepEqual(q.ToMap(), want) {
		t.Fatalf("query params = %v", q.ToMap())
	}
	if again := c.FetchQueryParams(plug.Options{}); !again.Equal(c) {
		t.Fatalf("second fetch changed the conn")
	}
}

func TestFetchQueryParamsRejects(t *testing.T) {
	cases := []struct {
		name   string
		target string
		opts   plug.Options
		status int
	}{
		{"too long", "/p?test=tested", plug.Opts("length", "5"), 414},
		{"missing equals", "/p?a=1&broken", plug.Options{}, 414},
		{"invalid utf8", "/p?a=\xff", plug.Options{}, 414},
		{"utf8 check disabled", "/p?a=\xff", plug.Opts("validate_utf8", "false"), 0},
		{"empty pairs skipped", "/p?&a=1&&", plug.Options{}, 0},
		{"raw values", "/p?q=a%20b", plug.Options{}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := plugtest.New("GET", tc.target).FetchQueryParams(tc.opts)
			status, _ := c.Status()
			if status != tc.status {
				t.Fatalf("status = %d, want %d", status, tc.status)
			}
			_, fetched := c.QueryParams()
			if fetched != (tc.status == 0) {
				t.Fatalf("fetched = %v", fetched)
			}
		})
	}
	c := plugtest.New("GET", "/p?q=a%20b").FetchQueryParams(plug.Options{})
	if v, _ := c.Params().Get("q"); v != "a%20b" {
		t.Fatalf("query value decoded: %q", v)
	}
}

func TestFetchCookies(t *testing.T) {
	c := buildFirstConn().FetchCookies(plug.Options{})
	cookies, ok := c.Cookies()
	if !ok {
		t.Fatalf("cookies not fetched")
	}
	want := map[string]string{
		"session":     "abc123",
		"user_id":     "42",
		"preferences": `"theme:dark,font:large"`,
	}
	if !reflect.DeepEqual(cookies.ToMap(), want) {
		t.Fatalf("cookies = %v", cookies.ToMap())
	}
	if again := c.FetchCookies(plug.Options{}); !again.Equal(c) {
		t.Fatalf("second fetch changed the conn")
	}
}

func TestFetchCookiesOverlaysStaged(t *testing.T) {
	c := buildFirstConn()
	c, err := c.PutRespCookie("fresh", "v", plug.Options{})
	if err != nil {
		t.Fatalf("PutRespCookie: %v", err)
	}
	c, _ = c.PutRespCookie("session", "new", plug.Options{})
	c, _ = c.DeleteRespCookie("session", plug.Options{})
	c = c.FetchCookies(plug.Options{})

	cookies, _ := c.Cookies()
	if v, _ := cookies.Get("fresh"); v != "fresh_cookie=v" {
		t.Fatalf("fresh = %q", v)
	}
	if cookies.Has("session") {
		t.Fatalf("deleted cookie still visible")
	}
	req, _ := c.ReqCookies()
	if v, _ := req.Get("session"); v != "abc123" {
		t.Fatalf("request cookie session = %q", v)
	}
}

func TestRespCookieRoundTrip(t *testing.T) {
	c, err := buildFirstConn().PutRespCookie("test", "v", plug.Opts("path", "/app", "sign"))
	if err != nil {
		t.Fatalf("PutRespCookie: %v", err)
	}
	attrs, ok := c.RespCookies().Get("test")
	if !ok {
		t.Fatalf("cookie not staged")
	}
	if v, _ := attrs.Get("value"); v != "test_cookie=v" {
		t.Fatalf("value = %q", v)
	}
	if attrs.Has("sign") {
		t.Fatalf("sign flag stored")
	}

	d, err := c.DeleteRespCookie("test", plug.Options{})
	if err != nil {
		t.Fatalf("DeleteRespCookie: %v", err)
	}
	attrs, _ = d.RespCookies().Get("test")
	if v, _ := attrs.Get("max_age"); v != "0" {
		t.Fatalf("max_age = %q", v)
	}
	if attrs.Has("value") {
		t.Fatalf("deleted cookie kept its value")
	}
	if v, _ := attrs.Get("universal_time"); v != plug.EpochDate {
		t.Fatalf("universal_time = %q", v)
	}
	if attrs.Has("secure") {
		t.Fatalf("secure set on http")
	}
}

func TestDeleteRespCookie(t *testing.T) {
	c := plugtest.New("GET", "/", plugtest.WithScheme("https"))
	same, err := c.DeleteRespCookie("never", plug.Options{})
	if err != nil || !same.Equal(c) {
		t.Fatalf("deleting an unstaged cookie changed the conn: %v", err)
	}
	c, _ = c.PutRespCookie("k", "v", plug.Options{})
	c, _ = c.DeleteRespCookie("k", plug.Options{})
	attrs, _ := c.RespCookies().Get("k")
	if v, _ := attrs.Get("secure"); v != "true" {
		t.Fatalf("secure = %q on https", v)
	}
}

func TestPutRespCookieSignAndEncrypt(t *testing.T) {
	c := buildFirstConn()
	got, err := c.PutRespCookie("k", "v", plug.Opts("sign", "true", "encrypt", "true"))
	if !errors.Is(err, plug.ErrSignAndEncrypt) {
		t.Fatalf("err = %v", err)
	}
	if !got.Equal(c) {
		t.Fatalf("failed put changed the conn")
	}
}

func TestRespHeaders(t *testing.T) {
	c := buildFirstConn()
	c, err := c.PutRespHeader("X-Test", "42")
	if err != nil {
		t.Fatalf("PutRespHeader: %v", err)
	}
	c, _ = c.PutRespHeader("x-test", "43")
	if got := c.GetRespHeader("x-test"); !reflect.DeepEqual(got, []string{"43"}) {
		t.Fatalf("put did not replace: %v", got)
	}

	c, _ = c.PrependRespHeaders([]plug.Header{{Key: "x-test", Value: "1"}, {Key: "vary", Value: "accept"}})
	if got := c.GetRespHeader("x-test"); !reflect.DeepEqual(got, []string{"1", "43"}) {
		t.Fatalf("prepend = %v", got)
	}

	c, _ = c.UpdateRespHeader("x-test", "0", func(s string) string { return s + "!" })
	if got := c.GetRespHeader("x-test"); !reflect.DeepEqual(got, []string{"1!", "43"}) {
		t.Fatalf("update = %v", got)
	}
	c, _ = c.UpdateRespHeader("x-new", "0", func(s string) string { return s + "!" })
	if got := c.GetRespHeader("x-new"); !reflect.DeepEqual(got, []string{"0"}) {
		t.Fatalf("update absent = %v", got)
	}

	c, _ = c.MergeRespHeaders([]plug.Header{{Key: "x-test", Value: "m"}})
	if got := c.GetRespHeader("x-test"); !reflect.DeepEqual(got, []string{"m"}) {
		t.Fatalf("merge = %v", got)
	}

	c, _ = c.DeleteRespHeader("x-test")
	c, err = c.DeleteRespHeader("x-test")
	if err != nil || len(c.GetRespHeader("x-test")) != 0 {
		t.Fatalf("delete not idempotent: %v", err)
	}
}

func TestRespHeaderInjection(t *testing.T) {
	c := buildFirstConn()
	for _, v := range []string{"a\nb", "a\rb"} {
		got, err := c.PutRespHeader("x", v)
		if !errors.Is(err, plug.ErrInvalidHeader) {
			t.Fatalf("PutRespHeader(%q) err = %v", v, err)
		}
		if !got.Equal(c) {
			t.Fatalf("rejected header changed the conn")
		}
	}
	if _, err := c.MergeRespHeaders([]plug.Header{{Key: "x", Value: "a\r\nSet-Cookie: x"}}); err == nil {
		t.Fatalf("merge accepted CRLF")
	}
}

func TestReqHeaders(t *testing.T) {
	c := buildFirstConn()
	c, err := c.PutReqHeader("host", "other.org")
	if err != nil || c.Host() != "other.org" {
		t.Fatalf("host = %q, err = %v", c.Host(), err)
	}
	if withPort, _ := c.PutReqHeader("host", "other.org:9000"); withPort.Host() != "other.org:9000" || withPort.Port() != c.Port() {
		t.Fatalf("host with port = %q/%d", withPort.Host(), withPort.Port())
	}
	c, _ = c.MergeReqHeaders([]plug.Header{{Key: "Accept", Value: "text/html"}, {Key: "host", Value: "merged.org"}})
	if got := c.GetReqHeader("accept"); !reflect.DeepEqual(got, []string{"text/html"}) || c.Host() != "merged.org" {
		t.Fatalf("merge: accept=%v host=%q", got, c.Host())
	}
	c, _ = c.PrependReqHeaders([]plug.Header{{Key: "accept", Value: "*/*"}})
	if got := c.GetReqHeader("accept"); !reflect.DeepEqual(got, []string{"*/*", "text/html"}) {
		t.Fatalf("prepend: %v", got)
	}
	c, _ = c.DeleteReqHeader("accept")
	if len(c.GetReqHeader("accept")) != 0 {
		t.Fatalf("delete left values")
	}
}

func TestSentConnRefusesMutation(t *testing.T) {
	sent := buildFirstConn().Resp(200, "ok").MarkSent()

	ops := map[string]func(plug.Conn) (plug.Conn, error){
		"put_status":          func(c plug.Conn) (plug.Conn, error) { return c.PutStatus(500) },
		"put_resp_header":     func(c plug.Conn) (plug.Conn, error) { return c.PutRespHeader("x", "y") },
		"merge_resp_headers":  func(c plug.Conn) (plug.Conn, error) { return c.MergeRespHeaders(nil) },
		"prepend_resp_header": func(c plug.Conn) (plug.Conn, error) { return c.PrependRespHeaders(nil) },
		"update_resp_header":  func(c plug.Conn) (plug.Conn, error) { return c.UpdateRespHeader("x", "", nil) },
		"delete_resp_header":  func(c plug.Conn) (plug.Conn, error) { return c.DeleteRespHeader("x") },
		"put_req_header":      func(c plug.Conn) (plug.Conn, error) { return c.PutReqHeader("x", "y") },
		"delete_req_header":   func(c plug.Conn) (plug.Conn, error) { return c.DeleteReqHeader("x") },
		"put_resp_cookie":     func(c plug.Conn) (plug.Conn, error) { return c.PutRespCookie("k", "v", plug.Options{}) },
		"delete_resp_cookie":  func(c plug.Conn) (plug.Conn, error) { return c.DeleteRespCookie("k", plug.Options{}) },
		"content_type":        func(c plug.Conn) (plug.Conn, error) { return c.PutRespContentType("text/plain", "") },
		"configure_session":   func(c plug.Conn) (plug.Conn, error) { return c.ConfigureSession(session.Drop) },
		"upgrade_conn":        func(c plug.Conn) (plug.Conn, error) { return c.UpgradeConn("websocket") },
		"send_chunked":        func(c plug.Conn) (plug.Conn, error) { return c.SendChunked(200) },
	}
	for name, op := range ops {
		got, err := op(sent)
		if !errors.Is(err, plug.ErrIncorrectState) {
			t.Fatalf("%s: err = %v", name, err)
		}
		if !got.Equal(sent) {
			t.Fatalf("%s: conn changed on error", name)
		}
	}
	mustPanic(t, "resp", func() { sent.Resp(200, "again") })
	mustPanic(t, "register_before_send", func() { sent.RegisterBeforeSend(func(c plug.Conn) plug.Conn { return c }) })
}

func TestChunkedConn(t *testing.T) {
	c := buildFirstConn()
	if _, err := c.Chunk("early"); !errors.Is(err, plug.ErrIncorrectState) {
		t.Fatalf("chunk before send_chunked: %v", err)
	}
	if _, err := c.Chunk(""); err != nil {
		t.Fatalf("empty chunk: %v", err)
	}

	c, err := c.SendChunked(200)
	if err != nil {
		t.Fatalf("SendChunked: %v", err)
	}
	c, _ = c.Chunk("a")
	c, _ = c.Chunk("b")
	if body, _ := c.RespBody(); body != "ab" {
		t.Fatalf("body = %q", body)
	}
	if _, err := c.PutStatus(500); !errors.Is(err, plug.ErrIncorrectState) {
		t.Fatalf("put_status on chunked: %v", err)
	}
	mustPanic(t, "resp on chunked", func() { c.Resp(200, "") })
	_ = c.RegisterBeforeSend(func(c plug.Conn) plug.Conn { return c })
}

func TestUpgradeConn(t *testing.T) {
	c, err := buildFirstConn().UpgradeConn("websocket")
	if err != nil {
		t.Fatalf("UpgradeConn: %v", err)
	}
	if s, _ := c.Status(); s != 426 {
		t.Fatalf("status = %d", s)
	}
	if c.State() != plug.Upgraded {
		t.Fatalf("state = %s", c.State())
	}
	if got := c.GetRespHeader("upgrade"); !reflect.DeepEqual(got, []string{"websocket"}) {
		t.Fatalf("upgrade header = %v", got)
	}
	if got := c.GetRespHeader("connection"); !reflect.DeepEqual(got, []string{"Upgrade"}) {
		t.Fatalf("connection header = %v", got)
	}
	if _, err := c.PutRespHeader("x", "y"); !errors.Is(err, plug.ErrIncorrectState) {
		t.Fatalf("header write on upgraded conn: %v", err)
	}
	mustPanic(t, "resp on upgraded", func() { c.Resp(200, "") })
}

func TestRespAndStatus(t *testing.T) {
	c, err := buildFirstConn().PutStatus(204)
	if err != nil {
		t.Fatalf("PutStatus: %v", err)
	}
	if s, ok := c.Status(); !ok || s != 204 {
		t.Fatalf("status = %d,%v", s, ok)
	}
	c = c.Resp(201, "created")
	body, ok := c.RespBody()
	if !ok || body != "created" || c.State() != plug.Set {
		t.Fatalf("resp: body=%q ok=%v state=%s", body, ok, c.State())
	}
	c = c.Resp(200, "replaced")
	if s, _ := c.Status(); s != 200 {
		t.Fatalf("second resp status = %d", s)
	}
}

func TestPutRespContentType(t *testing.T) {
	c, _ := buildFirstConn().PutRespContentType("text/html", "")
	if got := c.GetRespHeader("content-type"); !reflect.DeepEqual(got, []string{"text/html; charset=utf-8"}) {
		t.Fatalf("content-type = %v", got)
	}
	c, _ = c.PutRespContentType("application/octet-stream", "none")
	if got := c.GetRespHeader("Content-Type"); !reflect.DeepEqual(got, []string{"application/octet-stream"}) {
		t.Fatalf("content-type = %v", got)
	}
}

func TestBeforeSendOrder(t *testing.T) {
	var order []string
	mark := func(name string) func(plug.Conn) plug.Conn {
		return func(c plug.Conn) plug.Conn {
			order = append(order, name)
			return c.Assign(name, true)
		}
	}
	c := buildFirstConn().RegisterBeforeSend(mark("first")).RegisterBeforeSend(mark("second"))
	out := c.RunBeforeSend()
	if !reflect.DeepEqual(order, []string{"first", "second"}) {
		t.Fatalf("order = %v", order)
	}
	if _, ok := out.GetAssign("second"); !ok {
		t.Fatalf("callback result dropped")
	}
}

func TestSessionOps(t *testing.T) {
	c := buildFirstConn().PutSession("user", "ada").PutSession("cart", 2)
	if v, _ := c.GetSession("user"); v != "ada" {
		t.Fatalf("user = %v", v)
	}
	if c.OriginalSession().Len() != 0 {
		t.Fatalf("original session written")
	}
	if d := c.DeleteSession("cart"); d.Session().Len() != 1 {
		t.Fatalf("delete_session len = %d", d.Session().Len())
	}
	if cl := c.ClearSession(); cl.Session().Len() != 0 {
		t.Fatalf("clear_session left entries")
	}

	c, err := c.ConfigureSession(session.Drop)
	if err != nil || c.SessionInfo() != session.Drop {
		t.Fatalf("configure drop: %v %s", err, c.SessionInfo())
	}
	c, _ = c.ConfigureSession(session.Write)
	if c.SessionInfo() != session.Drop {
		t.Fatalf("write overrode a previous choice")
	}
}

func TestReadBody(t *testing.T) {
	c := plugtest.New("POST", "/upload", plugtest.WithBody("text/plain", "abcdefg"))
	chunk, c, err := c.ReadBody(plug.Opts("length", "3"))
	if err != nil || chunk.Data != "abc" || !chunk.More {
		t.Fatalf("first read = %+v, %v", chunk, err)
	}
	chunk, c, _ = c.ReadBody(plug.Opts("length", "3"))
	if chunk.Data != "def" || !chunk.More {
		t.Fatalf("second read = %+v", chunk)
	}
	chunk, c, _ = c.ReadBody(plug.Options{})
	if chunk.Data != "g" || chunk.More {
		t.Fatalf("last read = %+v", chunk)
	}
	if _, _, err := c.MarkSent().ReadBody(plug.Options{}); !errors.Is(err, plug.ErrIncorrectState) {
		t.Fatalf("read after send: %v", err)
	}
}

func TestFetchBodyParams(t *testing.T) {
	form := plugtest.New("POST", "/posts?page=1",
		plugtest.WithBody("application/x-www-form-urlencoded", "title=hello+world&page=2")).
		FetchQueryParams(plug.Options{}).
		FetchBodyParams(plug.Options{})
	body, ok := form.BodyParams()
	if !ok {
		t.Fatalf("body params not fetched")
	}
	if v, _ := body.Get("title"); v != "hello world" {
		t.Fatalf("title = %q", v)
	}
	if v, _ := form.Params().Get("page"); v != "2" {
		t.Fatalf("body should win over query, page = %q", v)
	}

	js := plugtest.New("POST", "/posts",
		plugtest.WithBody("application/json; charset=utf-8", `{"title":"x","n":3,"tags":["a"]}`)).
		FetchBodyParams(plug.Options{})
	body, _ = js.BodyParams()
	want := map[string]string{"title": "x", "n": "3", "tags": `["a"]`}
	if !reflect.DeepEqual(body.ToMap(), want) {
		t.Fatalf("json params = %v", body.ToMap())
	}

	bad := plugtest.New("POST", "/posts", plugtest.WithBody("application/json", `{"title":`)).
		FetchBodyParams(plug.Options{})
	if s, _ := bad.Status(); s != 400 {
		t.Fatalf("malformed json status = %d", s)
	}
	big := plugtest.New("POST", "/posts", plugtest.WithBody("text/plain", "0123456789")).
		FetchBodyParams(plug.Opts("length", "4"))
	if s, _ := big.Status(); s != 413 {
		t.Fatalf("oversized body status = %d", s)
	}
}

func TestHaltAndPathParams(t *testing.T) {
	c := buildFirstConn()
	if c.Halt().Halted() != true || c.Halted() {
		t.Fatalf("halt not persistent")
	}
	var p = plug.Opts("id", "123")
	c = c.PutPathParams(p)
	if got, ok := c.PathParams(); !ok || keysOf(got)[0] != "id" {
		t.Fatalf("path params = %v", got.ToMap())
	}
}
