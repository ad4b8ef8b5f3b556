package plug

import (
	"fmt"
	"mime"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	json "github.com/goccy/go-json"

	"github.com/BolvicBolvicovic/feather/pkg/immut"
)

const (
	defaultQueryLength = 1_000_000
	defaultBodyLength  = 8_000_000
)

// QueryParams returns the parsed query. The second result is false until
// FetchQueryParams has succeeded.
func (c Conn) QueryParams() (immut.Map[string, string], bool) {
	if c.queryParams == nil {
		return immut.Map[string, string]{}, false
	}
	return *c.queryParams, true
}

// BodyParams returns the parsed body parameters.
func (c Conn) BodyParams() (immut.Map[string, string], bool) {
	if c.bodyParams == nil {
		return immut.Map[string, string]{}, false
	}
	return *c.bodyParams, true
}

// PathParams returns the segments captured by the router.
func (c Conn) PathParams() (immut.Map[string, string], bool) {
	if c.pathParams == nil {
		return immut.Map[string, string]{}, false
	}
	return *c.pathParams, true
}

// PutPathParams records the path segments captured while routing.
func (c Conn) PutPathParams(params immut.Map[string, string]) Conn {
	c.pathParams = some(params)
	return c
}

// Params merges query, body and path parameters, later sources winning.
func (c Conn) Params() immut.Map[string, string] {
	var out immut.Map[string, string]
	for _, p := range []optMap{c.queryParams, c.bodyParams, c.pathParams} {
		if p != nil {
			out = out.Merge(*p)
		}
	}
	return out
}

func intOpt(opts Options, key string, def int) int {
	raw, ok := opts.Get(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || f < 0 {
		return def
	}
	return int(f)
}

// FetchQueryParams parses the query string into key/value pairs split on
// '&' and '='. Values are kept as sent, without percent decoding.
//
// Options: "length" caps the query string size (default 1_000_000 bytes)
// and "validate_utf8" ("true" by default) checks every pair. An oversized
// query, a pair without '=' or an invalid UTF-8 pair sets status 414 and
// leaves the params unfetched. Fetching twice is a no-op.
func (c Conn) FetchQueryParams(opts Options) Conn {
	if c.queryParams != nil {
		return c
	}
	if len(c.queryString) > intOpt(opts, "length", defaultQueryLength) {
		c.status = 414
		return c
	}
	validate := true
	if v, ok := opts.Get("validate_utf8"); ok && v == "false" {
		validate = false
	}

	var params immut.Map[string, string]
	for _, pair := range strings.Split(c.queryString, "&") {
		if pair == "" {
			continue
		}
		eq := strings.IndexByte(pair, '=')
		if eq < 0 {
			c.status = 414
			return c
		}
		if validate && !utf8.ValidString(pair) {
			c.status = 414
			return c
		}
		params = params.Set(pair[:eq], pair[eq+1:])
	}
	c.queryParams = some(params)
	return c
}

// FetchBodyParams parses a urlencoded form or a flat JSON object body.
// Other content types yield an empty map. A body larger than "length"
// (default 8_000_000 bytes) sets status 413; a malformed body sets 400.
// Fetching twice is a no-op.
func (c Conn) FetchBodyParams(opts Options) Conn {
	if c.bodyParams != nil {
		return c
	}
	if len(c.reqBody) > intOpt(opts, "length", defaultBodyLength) {
		c.status = 413
		return c
	}
	var ctype string
	if v, ok := c.reqHeaders.Find("content-type"); ok {
		ctype, _, _ = mime.ParseMediaType(v)
	}

	var (
		params immut.Map[string, string]
		err    error
	)
	switch ctype {
	case "application/x-www-form-urlencoded":
		params, err = parseForm(c.reqBody)
	case "application/json":
		params, err = parseJSONObject(c.reqBody)
	}
	if err != nil {
		c.status = 400
		return c
	}
	c.bodyParams = some(params)
	return c
}

func parseForm(body string) (immut.Map[string, string], error) {
	var out immut.Map[string, string]
	for _, pair := range strings.Split(body, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return out, err
		}
		val, err := url.QueryUnescape(v)
		if err != nil {
			return out, err
		}
		out = out.Set(key, val)
	}
	return out, nil
}

func parseJSONObject(body string) (immut.Map[string, string], error) {
	var out immut.Map[string, string]
	if strings.TrimSpace(body) == "" {
		return out, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return out, err
	}
	for k, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out = out.Set(k, s)
			continue
		}
		out = out.Set(k, string(v))
	}
	return out, nil
}

// BodyChunk is one read from the request body.
type BodyChunk struct {
	Data string
	// More is true while unread bytes remain.
	More bool
}

// ReadBody returns up to "length" bytes of the request body (default
// 8_000_000) from where the previous read stopped. The returned Conn must
// be used for the next read.
func (c Conn) ReadBody(opts Options) (BodyChunk, Conn, error) {
	if c.state == Sent {
		return BodyChunk{}, c, stateError("read_body", c.state)
	}
	n := intOpt(opts, "length", defaultBodyLength)
	if n <= 0 {
		return BodyChunk{}, c, fmt.Errorf("read_body: invalid length %d", n)
	}
	rest := c.reqBody[c.bodyOffset:]
	if len(rest) > n {
		rest = rest[:n]
	}
	c.bodyOffset += len(rest)
	return BodyChunk{Data: rest, More: c.bodyOffset < len(c.reqBody)}, c, nil
}
