package cli

import (
	"github.com/spf13/cobra"

	"github.com/BolvicBolvicovic/feather/internal/site"
	"github.com/BolvicBolvicovic/feather/pkg/banner"
)

func init() {
	rootCmd.AddCommand(routesCmd)
}

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Print the route table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		r, err := site.Router(cfg, nil)
		if err != nil {
			return err
		}
		banner.Routes(cmd.OutOrStdout(), r.Routes())
		return nil
	},
}
