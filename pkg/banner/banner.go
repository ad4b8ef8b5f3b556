package banner

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/BolvicBolvicovic/feather/pkg/config"
	"github.com/BolvicBolvicovic/feather/pkg/router"
)

const banner = `
 _____ _____    _  _____ _   _ _____ ____
|  ___| ____|  / \|_   _| | | | ____|  _ \
| |_  |  _|   / _ \ | | | |_| |  _| | |_) |
|  _| | |___ / ___ \| | |  _  | |___|  _ <
|_|   |_____/_/   \_\_| |_| |_|_____|_| \_\
`

const (
	bold  = "\x1b[1m"
	reset = "\x1b[0m"
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func heading(w io.Writer, color bool, title string) {
	line := "== " + title + " " + strings.Repeat("=", max(0, 60-len(title)))
	if color {
		line = bold + line + reset
	}
	fmt.Fprintln(w, line)
}

// Print writes the startup banner: listener, limits, sessions and the
// route table.
func Print(w io.Writer, cfg *config.Config, routes []router.RouteInfo, version string) {
	color := isTerminal(w)
	fmt.Fprint(w, banner)
	heading(w, color, "Config")
	fmt.Fprintf(w, "Listen:     %s (%s)\n", cfg.Addr(), cfg.Server.Transport)
	if version != "" {
		fmt.Fprintf(w, "Version:    %s\n", version)
	}
	fmt.Fprintf(w, "Max body:   %s\n", humanize.IBytes(uint64(cfg.Server.MaxBodySize)))
	fmt.Fprintf(w, "Max query:  %s\n", humanize.IBytes(uint64(cfg.Query.MaxLength)))

	fmt.Fprintln(w)
	heading(w, color, "Sessions")
	fmt.Fprintf(w, "Cookie:     %s\n", cfg.Sessions.CookieName)
	if cfg.Sessions.StorePath != "" {
		fmt.Fprintf(w, "Store:      %s\n", cfg.Sessions.StorePath)
	} else {
		fmt.Fprintln(w, "Store:      memory only")
	}
	fmt.Fprintf(w, "Idle TTL:   %s (sweep %q)\n", cfg.Sessions.IdleTTL.Duration(), cfg.Sessions.SweepCron)

	fmt.Fprintln(w)
	heading(w, color, "Routes")
	Routes(w, routes)

	fmt.Fprintln(w)
	heading(w, color, "Production?")
	if n := len(cfg.Security.APIKeys.Admin) + len(cfg.Security.APIKeys.User); n > 0 {
		fmt.Fprintf(w, "- API keys: OK (%d)\n", n)
	} else {
		fmt.Fprintln(w, "- API keys: MISSING (api scope rejects every request)")
	}
	if cfg.Server.SecretKey == "" {
		fmt.Fprintln(w, "- secret_key_base: not set")
	}
	if cfg.Metrics.Enabled {
		fmt.Fprintf(w, "- Metrics: %s\n", cfg.Metrics.Path)
	}
	fmt.Fprintln(w)
	heading(w, color, "Logs")
}

// Routes writes one aligned line per route.
func Routes(w io.Writer, routes []router.RouteInfo) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range routes {
		handler := ""
		if !r.Handler {
			handler = "(pipeline only)"
		}
		fmt.Fprintf(tw, "%s\t%s\tscope=%s\tpipe=%s\t%s\n",
			r.Method, r.Path, r.Scope, strings.Join(r.Pipelines, ","), handler)
	}
	_ = tw.Flush()
}
