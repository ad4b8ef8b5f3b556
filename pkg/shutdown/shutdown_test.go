package shutdown

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriteCrashDump(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteCrashDump(dir, "store open", errors.New("boom"))
	if err != nil {
		t.Fatalf("WriteCrashDump: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}
	if !strings.Contains(string(b), "reason: store open") || !strings.Contains(string(b), "error: boom") {
		t.Fatalf("dump = %s", b)
	}
	recs, _ := filepath.Glob(filepath.Join(dir, "crash", "crash-*.json"))
	if len(recs) != 1 {
		t.Fatalf("records = %v", recs)
	}
}

func TestAbortExits(t *testing.T) {
	code := -1
	exit = func(c int) { code = c }
	defer func() { exit = os.Exit }()

	Abort("config", errors.New("bad"), t.TempDir(), 0)
	if code != 2 {
		t.Fatalf("exit code = %d", code)
	}
}

func TestSignalHandlerCancelsWithParent(t *testing.T) {
	parent, stop := context.WithCancel(context.Background())
	ctx, cancel := SetupSignalHandler(parent)
	defer cancel()
	stop()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatalf("context not cancelled with parent")
	}
}
