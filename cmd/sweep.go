package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func sweepCMD() *cobra.Command {
	var cfgPath string
	var grace time.Duration
	var sweep = &cobra.Command{
		Use:   "sweep",
		Short: "Give orphaned frame payloads an expiry once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}
			if grace <= 0 {
				grace = cfg.Relay.SweepGrace
			}
			if up := cfg.Server.UploadTimeout; up <= 0 || grace < up {
				return fmt.Errorf("grace %s must cover server.upload_timeout (%s)", grace, up)
			}
			ctx := cmd.Context()
			rl, closer, err := openRelay(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()

			n, err := rl.Sweep(ctx, grace)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "swept %d payload(s), grace %s\n", n, grace)
			return nil
		},
	}
	sweep.Flags().DurationVar(&grace, "grace", 0, "expiry for orphaned payloads (default relay.sweep_grace)")
	sweep.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config/config.json)")

	return sweep
}
