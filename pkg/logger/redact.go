package logger

import "strings"

// sensitiveHeaders lists request headers whose values never reach the logs.
var sensitiveHeaders = map[string]struct{}{
	"authorization": {},
	"x-api-key":     {},
	"cookie":        {},
	"set-cookie":    {},
}

// RedactHeader returns value, or a placeholder when key is sensitive.
func RedactHeader(key, value string) string {
	if _, ok := sensitiveHeaders[strings.ToLower(key)]; ok {
		return "[redacted]"
	}
	return value
}
