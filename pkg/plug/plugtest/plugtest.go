// Package plugtest builds connections for tests without a transport.
package plugtest

import (
	"strings"

	"github.com/BolvicBolvicovic/feather/pkg/plug"
	"github.com/BolvicBolvicovic/feather/pkg/session"
)

// Option tweaks the request record before the conn is built.
type Option func(*plug.Request)

// WithHeader adds a request header.
func WithHeader(key, value string) Option {
	return func(r *plug.Request) { r.Headers = append(r.Headers, plug.Header{Key: key, Value: value}) }
}

// WithBody sets the request body and its content type.
func WithBody(contentType, body string) Option {
	return func(r *plug.Request) {
		r.Body = body
		r.Headers = append(r.Headers, plug.Header{Key: "content-type", Value: contentType})
	}
}

// WithScheme overrides the default http scheme.
func WithScheme(scheme string) Option {
	return func(r *plug.Request) { r.Scheme = scheme }
}

// New returns a conn for method and target with host example.com.
func New(method, target string, opts ...Option) plug.Conn {
	path := target
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	req := plug.Request{
		Method:     method,
		Target:     target,
		Path:       path,
		Version:    "HTTP/1.1",
		Scheme:     "http",
		Headers:    []plug.Header{{Key: "host", Value: "example.com"}},
		RemoteAddr: "127.0.0.1:40000",
	}
	for _, o := range opts {
		o(&req)
	}
	return plug.New(req, session.NewCookieSession(nil))
}
