package plug

import (
	"fmt"
	"strings"

	"github.com/BolvicBolvicovic/feather/pkg/immut"
)

// Header keys are folded to lowercase on every read and write.

func validHeaderValue(v string) bool {
	return !strings.ContainsAny(v, "\r\n")
}

// ReqHeaders returns every request header in key order.
func (c Conn) ReqHeaders() []Header {
	return toHeaders(c.reqHeaders.Pairs())
}

// GetReqHeader returns all values for key.
func (c Conn) GetReqHeader(key string) []string {
	return c.reqHeaders.Values(foldKey(key))
}

// PutReqHeader replaces the values of key with value. The host key updates
// the conn host instead.
func (c Conn) PutReqHeader(key, value string) (Conn, error) {
	if !c.state.writable() {
		return c, stateError("put_req_header", c.state)
	}
	k := foldKey(key)
	if k == "host" {
		c.host = value
		return c, nil
	}
	c.reqHeaders = c.reqHeaders.Replace(k, value)
	return c, nil
}

// UpdateReqHeader sets key to initial when absent, otherwise replaces its
// first value with fn applied to it.
func (c Conn) UpdateReqHeader(key, initial string, fn func(string) string) (Conn, error) {
	if !c.state.writable() {
		return c, stateError("update_req_header", c.state)
	}
	c.reqHeaders = c.reqHeaders.UpdateFirst(foldKey(key), initial, fn)
	return c, nil
}

// PrependReqHeaders adds headers in front of existing values without
// removing them.
func (c Conn) PrependReqHeaders(headers []Header) (Conn, error) {
	if !c.state.writable() {
		return c, stateError("prepend_req_headers", c.state)
	}
	for i := len(headers) - 1; i >= 0; i-- {
		k := foldKey(headers[i].Key)
		if k == "host" {
			c.host = headers[i].Value
			continue
		}
		c.reqHeaders = c.reqHeaders.Prepend(k, headers[i].Value)
	}
	return c, nil
}

// MergeReqHeaders replaces the values of every key present in headers.
func (c Conn) MergeReqHeaders(headers []Header) (Conn, error) {
	if !c.state.writable() {
		return c, stateError("merge_req_headers", c.state)
	}
	for _, h := range headers {
		k := foldKey(h.Key)
		if k == "host" {
			c.host = h.Value
			continue
		}
		c.reqHeaders = c.reqHeaders.Replace(k, h.Value)
	}
	return c, nil
}

// DeleteReqHeader removes every value of key. It only fails once sent.
func (c Conn) DeleteReqHeader(key string) (Conn, error) {
	if c.state == Sent {
		return c, stateError("delete_req_header", c.state)
	}
	c.reqHeaders = c.reqHeaders.Erase(foldKey(key))
	return c, nil
}

// RespHeaders returns every response header in key order.
func (c Conn) RespHeaders() []Header {
	return toHeaders(c.respHeaders.Pairs())
}

// GetRespHeader returns all values for key.
func (c Conn) GetRespHeader(key string) []string {
	return c.respHeaders.Values(foldKey(key))
}

// PutRespHeader replaces the values of key with value.
func (c Conn) PutRespHeader(key, value string) (Conn, error) {
	if !c.state.writable() {
		return c, stateError("put_resp_header", c.state)
	}
	if !validHeaderValue(value) {
		return c, fmt.Errorf("put_resp_header %q: %w", key, ErrInvalidHeader)
	}
	c.respHeaders = c.respHeaders.Replace(foldKey(key), value)
	return c, nil
}

// UpdateRespHeader sets key to initial when absent, otherwise replaces its
// first value with fn applied to it.
func (c Conn) UpdateRespHeader(key, initial string, fn func(string) string) (Conn, error) {
	if !c.state.writable() {
		return c, stateError("update_resp_header", c.state)
	}
	k := foldKey(key)
	next := initial
	if old, ok := c.respHeaders.Find(k); ok {
		next = fn(old)
	}
	if !validHeaderValue(next) {
		return c, fmt.Errorf("update_resp_header %q: %w", key, ErrInvalidHeader)
	}
	c.respHeaders = c.respHeaders.UpdateFirst(k, initial, func(string) string { return next })
	return c, nil
}

// PrependRespHeaders adds headers in front of existing values without
// removing them.
func (c Conn) PrependRespHeaders(headers []Header) (Conn, error) {
	if !c.state.writable() {
		return c, stateError("prepend_resp_headers", c.state)
	}
	if err := checkValues("prepend_resp_headers", headers); err != nil {
		return c, err
	}
	for i := len(headers) - 1; i >= 0; i-- {
		c.respHeaders = c.respHeaders.Prepend(foldKey(headers[i].Key), headers[i].Value)
	}
	return c, nil
}

// MergeRespHeaders replaces the values of every key present in headers.
func (c Conn) MergeRespHeaders(headers []Header) (Conn, error) {
	if !c.state.writable() {
		return c, stateError("merge_resp_headers", c.state)
	}
	if err := checkValues("merge_resp_headers", headers); err != nil {
		return c, err
	}
	for _, h := range headers {
		c.respHeaders = c.respHeaders.Replace(foldKey(h.Key), h.Value)
	}
	return c, nil
}

// DeleteRespHeader removes every value of key.
func (c Conn) DeleteRespHeader(key string) (Conn, error) {
	if !c.state.writable() {
		return c, stateError("delete_resp_header", c.state)
	}
	c.respHeaders = c.respHeaders.Erase(foldKey(key))
	return c, nil
}

func checkValues(op string, headers []Header) error {
	for _, h := range headers {
		if !validHeaderValue(h.Value) {
			return fmt.Errorf("%s %q: %w", op, h.Key, ErrInvalidHeader)
		}
	}
	return nil
}

func toHeaders(pairs []immut.Pair[string, string]) []Header {
	out := make([]Header, len(pairs))
	for i, p := range pairs {
		out[i] = Header{Key: p.Key, Value: p.Value}
	}
	return out
}
