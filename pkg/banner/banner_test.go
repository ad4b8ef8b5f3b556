package banner

import (
	"bytes"
	"strings"
	"testing"

	"github.com/BolvicBolvicovic/feather/pkg/config"
	"github.com/BolvicBolvicovic/feather/pkg/router"
)

func TestRoutesTable(t *testing.T) {
	var buf bytes.Buffer
	Routes(&buf, []router.RouteInfo{
		{Method: "GET", Path: "/", Scope: "/", Pipelines: []string{"browser"}, Handler: true},
		{Method: "POST", Path: "/api/posts", Scope: "/api", Pipelines: []string{"api", "auth"}},
	})
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.Contains(lines[1], "pipe=api,auth") || !strings.Contains(lines[1], "(pipeline only)") {
		t.Fatalf("line = %q", lines[1])
	}
}

func TestPrintPlainWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Default()
	Print(&buf, cfg, nil, "v1")
	out := buf.String()
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("escape codes written to a buffer")
	}
	for _, want := range []string{"0.0.0.0:8080 (fasthttp)", "Version:    v1", "Cookie:     id", "API keys: MISSING"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}
