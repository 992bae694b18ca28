package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mohammad-safakhou/framerelay/config"
	"github.com/mohammad-safakhou/framerelay/internal/blobstore"
	"github.com/mohammad-safakhou/framerelay/internal/logging"
	"github.com/mohammad-safakhou/framerelay/internal/relay"
	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{
		Use:           "framerelay",
		Short:         "Relay image frames between producers and consumers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(serveCMD(), statsCMD(), sweepCMD(), feedCMD())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

// loadConfig reads the config and sets up logging from it.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.General.LogLevel, cfg.General.LogPretty)
	return cfg, nil
}

// openRelay connects to the configured Redis and builds a relay on it.
// The caller closes the returned handle.
var openRelay = func(ctx context.Context, cfg *config.Config) (*relay.Relay, io.Closer, error) {
	rc := cfg.Storage.Redis
	client, err := blobstore.Conn(ctx, rc.Host, rc.Port, rc.Password, rc.DB, rc.Timeout)
	if err != nil {
		return nil, nil, fmt.Errorf("redis connection failed (%s:%s): %w", rc.Host, rc.Port, err)
	}
	rl := relay.New(blobstore.NewRedis(client), relay.Options{
		TTL:           cfg.Relay.TTL(),
		MaxFrameBytes: cfg.Relay.MaxFrameBytes,
	})
	return rl, client, nil
}
