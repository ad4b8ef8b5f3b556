package plug

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/BolvicBolvicovic/feather/pkg/immut"
)

var hostPattern = regexp.MustCompile(`^([\w\.-]+|\[?[a-fA-F0-9:\.]+\]?)(?::(\d+))?$`)

// BuildPathInfo splits a request path into its non-empty segments.
func BuildPathInfo(path string) []string {
	segs := strings.Split(path, "/")
	out := segs[:0]
	for _, s := range segs {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// GetPortFromHost returns the port of a host header. An explicit port wins;
// otherwise localhost maps to 80 and any other host to 443. The second
// result is false when host is not a valid host value.
func GetPortFromHost(host string) (int, bool) {
	m := hostPattern.FindStringSubmatch(host)
	if m == nil {
		return 0, false
	}
	if m[2] != "" {
		p, err := strconv.Atoi(m[2])
		if err != nil {
			return 0, false
		}
		return p, true
	}
	if m[1] == "localhost" {
		return 80, true
	}
	return 443, true
}

// GetQueryFromTarget returns the text between '?' and '#' in a request
// target, or "" when there is no query.
func GetQueryFromTarget(target string) string {
	start := strings.IndexByte(target, '?')
	if start < 0 {
		return ""
	}
	rest := target[start+1:]
	if end := strings.IndexByte(rest, '#'); end >= 0 {
		return rest[:end]
	}
	return rest
}

// ParseCookie parses a Cookie header value. Tokens without '=' and keys
// starting with an uppercase letter (Path, Domain, ...) are attributes and
// are dropped. Values are kept verbatim, quotes included.
func ParseCookie(header string) immut.Map[string, string] {
	var out immut.Map[string, string]
	for _, tok := range strings.Split(header, ";") {
		eq := strings.IndexByte(tok, '=')
		if eq < 0 {
			continue
		}
		key := strings.TrimSpace(tok[:eq])
		value := strings.TrimSpace(tok[eq+1:])
		if key == "" {
			continue
		}
		if r := []rune(key)[0]; unicode.IsUpper(r) {
			continue
		}
		out = out.Set(key, value)
	}
	return out
}
