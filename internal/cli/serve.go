package cli

import (
	"context"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/BolvicBolvicovic/feather/internal/app"
	"github.com/BolvicBolvicovic/feather/pkg/logger"
	"github.com/BolvicBolvicovic/feather/pkg/shutdown"
)

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides config)")
	serveCmd.Flags().String("transport", "", "fasthttp or nethttp (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("transport") {
			cfg.Server.Transport, _ = cmd.Flags().GetString("transport")
		}

		logger.Init(cfg.Logging.Level)
		if cfg.Logging.AccessLog != "" {
			if err := logger.AttachAccessFile(cfg.Logging.AccessLog); err != nil {
				logger.Warn("access_log_unavailable", "error", err)
			}
		}

		stateDir := ""
		if cfg.Sessions.StorePath != "" {
			stateDir = filepath.Dir(cfg.Sessions.StorePath)
		}
		a, err := app.New(cfg, rootCmd.Version)
		if err != nil {
			shutdown.Abort("app_init_failed", err, stateDir, 3)
			return err
		}

		ctx, cancel := shutdown.SetupSignalHandler(context.Background())
		defer cancel()
		runErr := a.Run(ctx)

		sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer scancel()
		if err := a.Shutdown(sctx); err != nil {
			logger.Error("shutdown_failed", "error", err)
		}
		return runErr
	},
}
