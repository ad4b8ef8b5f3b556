// Package plugs holds the stock plugs applications compose into
// pipelines.
package plugs

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BolvicBolvicovic/feather/pkg/controller"
	"github.com/BolvicBolvicovic/feather/pkg/logger"
	"github.com/BolvicBolvicovic/feather/pkg/metrics"
	"github.com/BolvicBolvicovic/feather/pkg/plug"
)

// FetchCookies makes request cookies available through Conn.Cookies.
func FetchCookies(c plug.Conn, opts plug.Options) plug.Conn { return c.FetchCookies(opts) }

// FetchQueryParams parses the query string and halts with the status the
// parser set when it rejects the query.
func FetchQueryParams(c plug.Conn, opts plug.Options) plug.Conn {
	next := c.FetchQueryParams(opts)
	if _, ok := next.QueryParams(); !ok {
		return haltOnStatus(next, "invalid query string")
	}
	return next
}

// FetchBodyParams parses form and JSON bodies, halting on an oversized or
// malformed body.
func FetchBodyParams(c plug.Conn, opts plug.Options) plug.Conn {
	next := c.FetchBodyParams(opts)
	if _, ok := next.BodyParams(); !ok {
		return haltOnStatus(next, "invalid request body")
	}
	return next
}

func haltOnStatus(c plug.Conn, msg string) plug.Conn {
	status, ok := c.Status()
	if !ok || status < 400 {
		return c
	}
	if status == 413 {
		msg = "request body too large"
	}
	logger.Debug("request_rejected", "path", c.RequestPath(), "status", status)
	return Halt(c, status, msg)
}

// Halt stops the pipeline with an error response.
func Halt(c plug.Conn, status int, msg string) plug.Conn {
	return controller.Error(c, status, msg).Halt()
}

// RequestID reuses the x-request-id request header or generates a uuid,
// stores it in the request_id assign and echoes it on the response.
// The "header" option renames the header.
func RequestID(c plug.Conn, opts plug.Options) plug.Conn {
	header := "x-request-id"
	if h, ok := opts.Get("header"); ok && h != "" {
		header = h
	}
	id := ""
	if vs := c.GetReqHeader(header); len(vs) > 0 && validRequestID(vs[0]) {
		id = vs[0]
	}
	if id == "" {
		id = uuid.NewString()
	}
	next, err := c.PutRespHeader(header, id)
	if err != nil {
		return c.Assign("request_id", id)
	}
	return next.Assign("request_id", id)
}

func validRequestID(id string) bool {
	if len(id) < 8 || len(id) > 200 {
		return false
	}
	for _, r := range id {
		if r < 0x21 || r > 0x7e {
			return false
		}
	}
	return true
}

// Logger logs every request once its response is ready. The "level"
// option set to "debug" demotes the record.
func Logger(c plug.Conn, opts plug.Options) plug.Conn {
	start := time.Now()
	debug := false
	if lvl, ok := opts.Get("level"); ok && lvl == "debug" {
		debug = true
	}
	return c.RegisterBeforeSend(func(c plug.Conn) plug.Conn {
		status, ok := c.Status()
		if !ok {
			status = 200
		}
		args := []any{
			"method", c.Method(),
			"path", c.RequestPath(),
			"status", status,
			"duration", time.Since(start).String(),
			"remote", c.RemoteIP(),
			"halted", c.Halted(),
		}
		if id, ok := c.GetAssign("request_id"); ok {
			args = append(args, "request_id", id)
		}
		args = append(args, "headers", safeHeaders(c))
		if debug {
			logger.Debug("request_completed", args...)
		} else {
			logger.Request("request_completed", args...)
		}
		return c
	})
}

// safeHeaders renders the request headers with credentials redacted.
func safeHeaders(c plug.Conn) string {
	hs := c.ReqHeaders()
	parts := make([]string, 0, len(hs))
	for _, h := range hs {
		parts = append(parts, h.Key+"="+logger.RedactHeader(h.Key, h.Value))
	}
	return strings.Join(parts, "; ")
}

// Metrics returns a plug recording each request in m.
func Metrics(m *metrics.Metrics) plug.Plug {
	return func(c plug.Conn, _ plug.Options) plug.Conn {
		start := time.Now()
		return c.RegisterBeforeSend(func(c plug.Conn) plug.Conn {
			status, ok := c.Status()
			if !ok {
				status = 200
			}
			m.Observe(c.Method(), status, c.Halted(), time.Since(start))
			return c
		})
	}
}

// SecureBrowserHeaders sets conservative browser security headers. Every
// option is written as an extra response header.
func SecureBrowserHeaders(c plug.Conn, opts plug.Options) plug.Conn {
	headers := []plug.Header{
		{Key: "x-frame-options", Value: "SAMEORIGIN"},
		{Key: "x-content-type-options", Value: "nosniff"},
		{Key: "referrer-policy", Value: "strict-origin-when-cross-origin"},
		{Key: "x-permitted-cross-domain-policies", Value: "none"},
	}
	opts.Range(func(k, v string) bool {
		headers = append(headers, plug.Header{Key: k, Value: v})
		return true
	})
	next, err := c.MergeRespHeaders(headers)
	if err != nil {
		logger.Warn("secure_headers_refused", "path", c.RequestPath(), "error", err)
		return c
	}
	return next
}
