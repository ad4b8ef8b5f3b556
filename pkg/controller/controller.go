// Package controller holds helpers terminal handlers use to build
// responses.
package controller

import (
	"html"

	json "github.com/goccy/go-json"

	"github.com/BolvicBolvicovic/feather/pkg/logger"
	"github.com/BolvicBolvicovic/feather/pkg/plug"
)

func respond(c plug.Conn, status int, contentType, body string) plug.Conn {
	next, err := c.PutRespContentType(contentType, "")
	if err != nil {
		logger.Warn("controller_respond_refused", "path", c.RequestPath(), "state", c.State().String(), "error", err)
		return c
	}
	return next.Resp(status, body)
}

// Text responds 200 with a plain text body.
func Text(c plug.Conn, body string) plug.Conn {
	return respond(c, 200, "text/plain", body)
}

// HTML responds 200 with an HTML body.
func HTML(c plug.Conn, body string) plug.Conn {
	return respond(c, 200, "text/html", body)
}

// JSON responds 200 with v encoded as JSON.
func JSON(c plug.Conn, v any) plug.Conn {
	return JSONStatus(c, 200, v)
}

// JSONStatus responds with status and v encoded as JSON. Encoding failures
// become a 500 with a JSON error body.
func JSONStatus(c plug.Conn, status int, v any) plug.Conn {
	b, err := json.Marshal(v)
	if err != nil {
		logger.Error("controller_json_encode_failed", "path", c.RequestPath(), "error", err)
		return respond(c, 500, "application/json", `{"error":"internal error"}`)
	}
	return respond(c, status, "application/json", string(b))
}

// Error responds with status and {"error": msg}.
func Error(c plug.Conn, status int, msg string) plug.Conn {
	return JSONStatus(c, status, map[string]string{"error": msg})
}

// Redirect responds 302 pointing the client at location.
func Redirect(c plug.Conn, location string) plug.Conn {
	next, err := c.PutRespHeader("location", location)
	if err != nil {
		logger.Warn("controller_redirect_refused", "location", location, "error", err)
		return c
	}
	return respond(next, 302, "text/html",
		`<html><body>You are being <a href="`+html.EscapeString(location)+`">redirected</a>.</body></html>`)
}

// NotFound responds 404 unless a response was already set.
func NotFound(c plug.Conn) plug.Conn {
	if c.State() != plug.Unset {
		return c
	}
	return Error(c, 404, "not found")
}
