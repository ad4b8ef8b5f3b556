package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/BolvicBolvicovic/feather/pkg/config"
)

var (
	version = "dev"
	commit  = "none"
)

var rootCmd = &cobra.Command{
	Use:   "feather",
	Short: "feather serves plug pipelines over HTTP",
	Long: `feather runs an application built from immutable connections, plug
pipelines and scoped routes, and inspects its session store.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. It is called by main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path (default is ./config.yaml or $FEATHER_CONFIG)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before the environment is read")
}

// loadConfig resolves the effective configuration: defaults, then the YAML
// file, then FEATHER_* variables.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	flagPath, _ := cmd.Flags().GetString("config")
	path := config.ResolveConfigPath(flagPath, cmd.Flags().Changed("config"))
	cfg, _, err := config.LoadOptional(path)
	if err != nil {
		return nil, err
	}
	if _, err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
