//go:build linux || darwin || freebsd || netbsd || openbsd

package app

import (
	"golang.org/x/sys/unix"

	"github.com/BolvicBolvicovic/feather/pkg/logger"
)

// raiseFileLimit lifts the open file soft limit to the hard limit.
func raiseFileLimit() {
	var lim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		logger.Warn("rlimit_read_failed", "error", err)
		return
	}
	if lim.Cur >= lim.Max {
		return
	}
	old := lim.Cur
	lim.Cur = lim.Max
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		logger.Warn("rlimit_raise_failed", "error", err)
		return
	}
	logger.Debug("rlimit_raised", "from", old, "to", lim.Cur)
}
