package httpx

import (
	"github.com/valyala/fasthttp"

	"github.com/BolvicBolvicovic/feather/pkg/logger"
	"github.com/BolvicBolvicovic/feather/pkg/plug"
)

// FastHTTP serves ctx through the pipeline.
func (a *Adapter) FastHTTP(ctx *fasthttp.RequestCtx) {
	req := plug.Request{
		Method:     string(ctx.Method()),
		Target:     string(ctx.RequestURI()),
		Path:       string(ctx.Path()),
		Version:    string(ctx.Request.Header.Protocol()),
		Scheme:     "http",
		Body:       string(ctx.PostBody()),
		RemoteAddr: ctx.RemoteAddr().String(),
	}
	if ctx.IsTLS() {
		req.Scheme = "https"
	}
	ctx.Request.Header.VisitAll(func(k, v []byte) {
		req.Headers = append(req.Headers, plug.Header{Key: string(k), Value: string(v)})
	})

	resp := a.Serve(req)

	for _, h := range resp.Headers {
		ctx.Response.Header.Add(h.Key, h.Value)
	}
	// Set-Cookie is special cased by fasthttp; one Cookie per name.
	for _, line := range resp.SetCookies {
		ck := fasthttp.AcquireCookie()
		if err := ck.Parse(line); err != nil {
			logger.Warn("set_cookie_unparsable", "error", err)
		} else {
			ctx.Response.Header.SetCookie(ck)
		}
		fasthttp.ReleaseCookie(ck)
	}
	ctx.SetStatusCode(resp.Status)
	ctx.SetBodyString(resp.Body)
}

// FastHTTPHandler returns a fasthttp.RequestHandler for a.
func (a *Adapter) FastHTTPHandler() fasthttp.RequestHandler { return a.FastHTTP }
