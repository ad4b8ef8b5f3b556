package httpx

import (
	"strings"

	"github.com/BolvicBolvicovic/feather/pkg/plug"
)

// FormatSetCookie renders one Set-Cookie value. The stored value already
// carries the cookie name, so it leads the line as is. Attribute maps
// without a value are staged deletions and produce nothing.
func FormatSetCookie(attrs plug.CookieAttrs) (string, bool) {
	value, ok := attrs.Get("value")
	if !ok {
		return "", false
	}
	var b strings.Builder
	b.WriteString(value)
	path, _ := attrs.Get("path")
	if path == "" {
		path = "/"
	}
	b.WriteString("; Path=")
	b.WriteString(path)
	if v, ok := attrs.Get("domain"); ok && v != "" {
		b.WriteString("; Domain=")
		b.WriteString(v)
	}
	if v, ok := attrs.Get("max_age"); ok && v != "" {
		b.WriteString("; Max-Age=")
		b.WriteString(v)
	}
	if v, ok := attrs.Get("expires"); ok && v != "" {
		b.WriteString("; Expires=")
		b.WriteString(v)
	}
	if flag(attrs, "secure") {
		b.WriteString("; Secure")
	}
	if flag(attrs, "httponly") {
		b.WriteString("; HttpOnly")
	}
	if v, ok := attrs.Get("same_site"); ok && v != "" {
		b.WriteString("; SameSite=")
		b.WriteString(v)
	}
	return b.String(), true
}

func flag(attrs plug.CookieAttrs, key string) bool {
	v, ok := attrs.Get(key)
	return ok && v != "false"
}
