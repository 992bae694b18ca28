package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func statsCMD() *cobra.Command {
	var cfgPath string
	var asJSON bool
	var stats = &cobra.Command{
		Use:   "stats",
		Short: "Print session queue occupancy",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			rl, closer, err := openRelay(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()

			st, err := rl.Stats(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}
			fmt.Fprintf(out, "frames: %d  sessions: %d\n", st.NumImages, st.NumSessions)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SESSION\tQUEUED")
			for _, s := range st.Sessions {
				fmt.Fprintf(tw, "%s\t%d\n", s.ID, s.Len)
			}
			return tw.Flush()
		},
	}
	stats.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	stats.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config/config.json)")

	return stats
}
