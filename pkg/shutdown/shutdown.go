package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/goccy/go-json"

	"github.com/BolvicBolvicovic/feather/pkg/logger"
)

type abortRecord struct {
	Time      string            `json:"time"`
	Reason    string            `json:"reason"`
	Error     string            `json:"error,omitempty"`
	CrashPath string            `json:"crash_path,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
}

var exit = os.Exit

// Abort logs a fatal startup error, writes a crash dump under stateDir and
// exits with status 2 after delay seconds.
func Abort(contextMsg string, err error, stateDir string, delay int) {
	logger.Error("startup_fatal", "msg", contextMsg, "error", err)
	dumpPath, derr := WriteCrashDump(stateDir, contextMsg, err)
	if derr != nil {
		logger.Error("crash_dump_failed", "error", derr)
		fmt.Fprintf(os.Stderr, "FAILED TO WRITE CRASH DUMP: %v\n", derr)
	} else {
		fmt.Fprintf(os.Stderr, "CRASH DUMP WRITTEN: %s\n", dumpPath)
	}
	for i := delay; i > 0; i-- {
		logger.Info("exiting_in_seconds", "seconds", i)
		time.Sleep(time.Second)
	}
	exit(2)
}

// WriteCrashDump writes goroutine stacks to <dir>/crash/crash-<ts>.log and
// a JSON record pointing at it to <dir>/crash/crash-<ts>.json. An empty dir
// means the working directory.
func WriteCrashDump(dir, reason string, err error) (string, error) {
	if dir == "" {
		dir = "."
	}
	crashDir := filepath.Join(dir, "crash")
	if e := os.MkdirAll(crashDir, 0o700); e != nil {
		return "", fmt.Errorf("failed to create crash dir: %w", e)
	}
	ts := time.Now().UnixNano()
	dumpPath := filepath.Join(crashDir, fmt.Sprintf("crash-%d.log", ts))

	f, ferr := os.CreateTemp(crashDir, ".crash-*.tmp")
	if ferr != nil {
		return "", fmt.Errorf("failed to create temp crash file: %w", ferr)
	}
	tmpName := f.Name()
	defer func() { _ = os.Remove(tmpName) }()

	fmt.Fprintf(f, "time: %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(f, "reason: %s\n", reason)
	fmt.Fprintf(f, "error: %v\n", err)
	fmt.Fprintf(f, "\n--- goroutine stacks ---\n")
	buf := make([]byte, 1<<20)
	n := runtime.Stack(buf, true)
	_, _ = f.Write(buf[:n])
	_ = f.Sync()
	_ = f.Close()

	if e := os.Rename(tmpName, dumpPath); e != nil {
		return "", fmt.Errorf("failed to move crash dump into place: %w", e)
	}

	rec := abortRecord{
		Time:      time.Now().UTC().Format(time.RFC3339),
		Reason:    reason,
		CrashPath: dumpPath,
		Meta:      map[string]string{"pid": fmt.Sprintf("%d", os.Getpid())},
	}
	if err != nil {
		rec.Error = err.Error()
	}
	b, jerr := json.MarshalIndent(rec, "", "  ")
	if jerr != nil {
		return dumpPath, fmt.Errorf("failed to encode crash record: %w", jerr)
	}
	recPath := filepath.Join(crashDir, fmt.Sprintf("crash-%d.json", ts))
	if e := os.WriteFile(recPath, b, 0o600); e != nil {
		return dumpPath, fmt.Errorf("failed to write crash record: %w", e)
	}
	return dumpPath, nil
}

// SetupSignalHandler returns a context cancelled on SIGINT or SIGTERM.
// SIGPIPE dumps goroutine stacks to the log before cancelling.
func SetupSignalHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM, syscall.SIGPIPE)
	go func() {
		defer signal.Stop(sigc)
		select {
		case s := <-sigc:
			if s == syscall.SIGPIPE {
				buf := make([]byte, 1<<20)
				n := runtime.Stack(buf, true)
				logger.Info("goroutine_stack_dump", "dump", string(buf[:n]))
			}
			logger.Info("signal_received", "signal", s.String(), "msg", "shutdown requested")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
