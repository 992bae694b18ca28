package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mohammad-safakhou/framerelay/internal/placeholder"
	"github.com/mohammad-safakhou/framerelay/internal/relay"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// feeder uploads numbered images to one session, standing in for a camera.
type feeder struct {
	source  *placeholder.Remote
	client  *http.Client
	target  string
	session string
	ratio   placeholder.Ratio
	height  int
}

// send fetches the image labelled seq and posts it to the relay.
func (f *feeder) send(ctx context.Context, seq int) error {
	img, err := f.source.Fetch(ctx, f.ratio, f.height, strconv.Itoa(seq))
	if err != nil {
		return err
	}
	defer img.Body.Close()

	url := f.target + "/image/" + f.session
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, img.Body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", img.ContentType)
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", url, err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("post %s: status %d", url, resp.StatusCode)
	}
	return nil
}

// run sends a frame every interval until ctx ends. count > 0 stops after
// that many frames.
func (f *feeder) run(ctx context.Context, interval time.Duration, count int) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for seq := 1; count <= 0 || seq <= count; seq++ {
		if err := f.send(ctx, seq); err != nil {
			log.Warn().Err(err).Int("seq", seq).Msg("feed frame failed")
		} else {
			log.Info().Int("seq", seq).Str("session", f.session).Msg("frame sent")
		}
		if count > 0 && seq == count {
			break
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}

func feedCMD() *cobra.Command {
	var cfgPath, target, session, source string
	var interval time.Duration
	var count int
	var feed = &cobra.Command{
		Use:   "feed",
		Short: "Upload numbered test frames to a running relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}
			ratio, err := cfg.Placeholder.Ratio()
			if err != nil {
				return err
			}
			if session == "" {
				session = getenv("TEST_SESSION", relay.NewSession())
			}
			if source == "" {
				source = cfg.Placeholder.BaseURL
			}
			remote := placeholder.NewRemote(source, cfg.Placeholder.Timeout)
			remote.Ext = ".jpg"

			fmt.Fprintln(cmd.OutOrStdout(), "SESSION:", session)
			f := &feeder{
				source:  remote,
				client:  &http.Client{Timeout: cfg.Server.UploadTimeout},
				target:  strings.TrimRight(target, "/"),
				session: session,
				ratio:   ratio,
				height:  cfg.Placeholder.Height,
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return f.run(ctx, interval, count)
		},
	}
	feed.Flags().StringVar(&target, "target", getenv("FEED_TARGET", "http://localhost:3000"), "relay base URL")
	feed.Flags().StringVar(&session, "session", "", "session to feed (default $TEST_SESSION or a new one)")
	feed.Flags().StringVar(&source, "source", "", "image service base URL (default placeholder.base_url)")
	feed.Flags().DurationVar(&interval, "interval", 2*time.Second, "time between frames")
	feed.Flags().IntVar(&count, "count", 0, "stop after this many frames (0 runs until interrupted)")
	feed.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config/config.json)")

	return feed
}
