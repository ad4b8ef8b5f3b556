package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/BolvicBolvicovic/feather/pkg/store"
)

func init() {
	sessionsCmd.PersistentFlags().String("store", "", "session store path (default sessions.store_path)")
	sessionsCmd.Flags().Bool("json", false, "print one JSON record per line")
	sessionsPurgeCmd.Flags().Duration("older-than", 24*time.Hour, "purge sessions saved before now minus this")
	sessionsCmd.AddCommand(sessionsPurgeCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func storePath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("store"); p != "" {
		return p, nil
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}
	if cfg.Sessions.StorePath == "" {
		return "", fmt.Errorf("no session store configured: set sessions.store_path or --store")
	}
	return cfg.Sessions.StorePath, nil
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List stored sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := storePath(cmd)
		if err != nil {
			return err
		}
		st, err := store.OpenReadOnly(path)
		if err != nil {
			return err
		}
		defer st.Close()

		asJSON, _ := cmd.Flags().GetBool("json")
		out := cmd.OutOrStdout()
		total := 0
		err = st.Iterate(func(rec store.Record) error {
			total++
			if asJSON {
				b, err := json.Marshal(rec)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(b))
				return err
			}
			keys := make([]string, 0, len(rec.Data))
			for k := range rec.Data {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			_, err := fmt.Fprintf(out, "%s  saved %s  keys=[%s]\n", rec.ID, humanize.Time(rec.SavedAt), strings.Join(keys, ","))
			return err
		})
		if err != nil {
			return err
		}
		if !asJSON {
			fmt.Fprintf(out, "%s session(s)\n", humanize.Comma(int64(total)))
		}
		return nil
	},
}

var sessionsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete sessions saved before a cutoff",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := storePath(cmd)
		if err != nil {
			return err
		}
		age, _ := cmd.Flags().GetDuration("older-than")
		st, err := store.Open(path)
		if err != nil {
			return err
		}
		defer st.Close()
		n, err := st.Expire(time.Now().Add(-age))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "purged %d session(s)\n", n)
		return nil
	},
}
