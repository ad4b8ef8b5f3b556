package plug

import "github.com/BolvicBolvicovic/feather/pkg/session"

// Session returns the working copy of the session.
func (c Conn) Session() session.Session { return c.sessionCopy }

// OriginalSession returns the session as it was when the request arrived.
func (c Conn) OriginalSession() session.Session { return c.session }

// SessionInfo reports what the transport should do with the session.
func (c Conn) SessionInfo() session.Opt { return c.sessionInfo }

// GetSession returns one value of the working session.
func (c Conn) GetSession(key string) (any, bool) { return c.sessionCopy.Get(key) }

// PutSession stores value in the working session.
func (c Conn) PutSession(key string, value any) Conn {
	c.sessionCopy = c.sessionCopy.Put(key, value)
	return c
}

// DeleteSession removes key from the working session.
func (c Conn) DeleteSession(key string) Conn {
	c.sessionCopy = c.sessionCopy.Delete(key)
	return c
}

// ClearSession empties the working session. The session is still written
// back; use ConfigureSession with session.Drop to discard it.
func (c Conn) ClearSession() Conn {
	c.sessionCopy = c.sessionCopy.Reset()
	return c
}

// ConfigureSession selects how the session is handled after the request.
// session.Write keeps the current choice.
func (c Conn) ConfigureSession(opt session.Opt) (Conn, error) {
	if c.state == Sent {
		return c, stateError("configure_session", c.state)
	}
	if opt != session.Write {
		c.sessionInfo = opt
	}
	return c, nil
}
