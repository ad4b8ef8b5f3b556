package plug

import (
	"fmt"

	"github.com/BolvicBolvicovic/feather/pkg/immut"
)

// EpochDate is the expiry written on deleted cookies.
const EpochDate = "Thu, 01 Jan 1970 00:00:00 GMT"

// CookieWireName is the name under which a cookie staged as key reaches
// the client, since staged values are stored as "<key>_cookie=<value>".
func CookieWireName(key string) string { return key + "_cookie" }

// Cookies returns the cookies visible to this request. The second result
// is false until FetchCookies has run.
func (c Conn) Cookies() (immut.Map[string, string], bool) {
	if c.cookies == nil {
		return immut.Map[string, string]{}, false
	}
	return *c.cookies, true
}

// ReqCookies returns the cookies sent by the client.
func (c Conn) ReqCookies() (immut.Map[string, string], bool) {
	if c.reqCookies == nil {
		return immut.Map[string, string]{}, false
	}
	return *c.reqCookies, true
}

// FetchCookies parses every cookie request header, later headers winning,
// then overlays the cookies staged on the response: staged values become
// visible and staged deletions hide the key. It does nothing when cookies
// were already fetched. The "signed" and "encrypted" options are accepted
// and currently pass values through untouched.
func (c Conn) FetchCookies(opts Options) Conn {
	if c.reqCookies != nil {
		return c
	}
	var req immut.Map[string, string]
	for _, h := range c.reqHeaders.Values("cookie") {
		req = req.Merge(ParseCookie(h))
	}
	visible := req
	c.respCookies.Range(func(name string, attrs CookieAttrs) bool {
		if v, ok := attrs.Get("value"); ok {
			visible = visible.Set(name, v)
		} else {
			visible = visible.Delete(name)
		}
		return true
	})
	c.reqCookies = some(req)
	c.cookies = some(visible)
	return c
}

// PutRespCookie stages a response cookie. The stored value is
// "<key>_cookie=<value>"; every other option is kept as a Set-Cookie
// attribute except the sign and encrypt flags, which may not be combined.
func (c Conn) PutRespCookie(key, value string, opts Options) (Conn, error) {
	if !c.state.writable() {
		return c, stateError("put_resp_cookie", c.state)
	}
	if opts.Has("sign") && opts.Has("encrypt") {
		return c, fmt.Errorf("put_resp_cookie %q: %w", key, ErrSignAndEncrypt)
	}
	attrs := opts.Delete("sign").Delete("encrypt").Set("value", key+"_cookie="+value)
	c.respCookies = c.respCookies.Set(key, attrs)
	return c, nil
}

// DeleteRespCookie replaces a staged cookie with an expired one carrying no
// value. Keys that were never staged are left alone.
func (c Conn) DeleteRespCookie(key string, opts Options) (Conn, error) {
	if !c.state.writable() {
		return c, stateError("delete_resp_cookie", c.state)
	}
	attrs := opts.Delete("value").
		Set("universal_time", EpochDate).
		Set("expires", EpochDate).
		Set("max_age", "0")
	if c.scheme == "https" {
		attrs = attrs.Set("secure", "true")
	}
	c.respCookies = c.respCookies.Update(key, func(CookieAttrs) CookieAttrs { return attrs })
	return c, nil
}
