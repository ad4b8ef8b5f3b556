package httpx

import (
	"errors"
	"io"
	"net/http"

	"github.com/BolvicBolvicovic/feather/pkg/logger"
	"github.com/BolvicBolvicovic/feather/pkg/plug"
)

// ServeHTTP serves r through the pipeline.
func (a *Adapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var src io.Reader = r.Body
	if a.opts.MaxBodySize > 0 {
		src = http.MaxBytesReader(w, r.Body, a.opts.MaxBodySize)
	}
	body, err := io.ReadAll(src)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		logger.Warn("request_body_read_failed", "path", r.URL.Path, "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	target := r.RequestURI
	if target == "" {
		target = r.URL.RequestURI()
	}
	req := plug.Request{
		Method:     r.Method,
		Target:     target,
		Path:       r.URL.Path,
		Version:    r.Proto,
		Scheme:     "http",
		Body:       string(body),
		RemoteAddr: r.RemoteAddr,
		Headers:    []plug.Header{{Key: "host", Value: r.Host}},
	}
	if r.TLS != nil {
		req.Scheme = "https"
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Headers = append(req.Headers, plug.Header{Key: k, Value: v})
		}
	}

	resp := a.Serve(req)

	hdr := w.Header()
	for _, h := range resp.Headers {
		hdr.Add(h.Key, h.Value)
	}
	for _, line := range resp.SetCookies {
		hdr.Add("Set-Cookie", line)
	}
	w.WriteHeader(resp.Status)
	if resp.Body != "" {
		_, _ = io.WriteString(w, resp.Body)
	}
}
