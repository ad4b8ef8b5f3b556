package plug

import "fmt"

// PutStatus stores the response status.
func (c Conn) PutStatus(status int) (Conn, error) {
	if !c.state.writable() {
		return c, stateError("put_status", c.state)
	}
	c.status = status
	return c, nil
}

// Resp sets the response status and body and moves the conn to Set.
// It panics on a sent, chunked or upgraded conn.
func (c Conn) Resp(status int, body string) Conn {
	mustNotBeSent("resp", c.state)
	if !c.state.writable() {
		panic(stateError("resp", c.state))
	}
	c.state = Set
	c.status = status
	c.respBody = &body
	return c
}

// SendChunked starts a chunked response with the given status.
func (c Conn) SendChunked(status int) (Conn, error) {
	if !c.state.writable() {
		return c, stateError("send_chunked", c.state)
	}
	empty := ""
	c.state = Chunked
	c.status = status
	c.respBody = &empty
	return c, nil
}

// Chunk appends data to a chunked response. Empty data is always accepted.
func (c Conn) Chunk(data string) (Conn, error) {
	if data == "" {
		return c, nil
	}
	if c.state != Chunked {
		return c, stateError("chunk", c.state)
	}
	body := data
	if c.respBody != nil {
		body = *c.respBody + data
	}
	c.respBody = &body
	return c, nil
}

// RegisterBeforeSend appends fn to the callbacks run right before the
// response is written. It panics on a sent conn.
func (c Conn) RegisterBeforeSend(fn func(Conn) Conn) Conn {
	mustNotBeSent("register_before_send", c.state)
	c.beforeSend = c.beforeSend.Append(fn)
	return c
}

// RunBeforeSend applies the registered callbacks in registration order.
func (c Conn) RunBeforeSend() Conn {
	out := c
	c.beforeSend.Range(func(_ int, fn func(Conn) Conn) bool {
		out = fn(out)
		return true
	})
	return out
}

// PutRespContentType sets the content-type response header. An empty
// charset means utf-8; "none" omits the charset.
func (c Conn) PutRespContentType(contentType, charset string) (Conn, error) {
	if charset == "" {
		charset = "utf-8"
	}
	value := contentType
	if charset != "none" {
		value = contentType + "; charset=" + charset
	}
	return c.PutRespHeader("content-type", value)
}

// UpgradeConn requests a protocol upgrade: status 426 with the upgrade and
// connection headers set.
func (c Conn) UpgradeConn(protocol string) (Conn, error) {
	if c.state == Sent || c.state == Chunked {
		return c, stateError("upgrade_conn", c.state)
	}
	if !validHeaderValue(protocol) {
		return c, fmt.Errorf("upgrade_conn %q: %w", protocol, ErrInvalidHeader)
	}
	c.status = 426
	c.respHeaders = c.respHeaders.
		Replace("upgrade", protocol).
		Replace("connection", "Upgrade")
	c.state = Upgraded
	return c, nil
}

// MarkSent moves the conn to its terminal state. Only transports call it,
// after the response has been written.
func (c Conn) MarkSent() Conn {
	c.state = Sent
	return c
}
