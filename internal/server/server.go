package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	appconfig "github.com/mohammad-safakhou/framerelay/config"
	"github.com/mohammad-safakhou/framerelay/internal/blobstore"
	"github.com/mohammad-safakhou/framerelay/internal/placeholder"
	"github.com/mohammad-safakhou/framerelay/internal/relay"
	"github.com/mohammad-safakhou/framerelay/internal/telemetry"
	"github.com/rs/zerolog/log"
)

// Options configures the HTTP boundary.
type Options struct {
	MimeType      string
	Ratio         placeholder.Ratio
	Height        int
	UploadTimeout time.Duration
	Metrics       http.Handler
}

// Server exposes the relay over HTTP.
type Server struct {
	Echo *echo.Echo

	relay       *relay.Relay
	store       blobstore.Store
	placeholder placeholder.Provider
	opts        Options
}

// New wires routes and middleware around r.
func New(r *relay.Relay, store blobstore.Store, ph placeholder.Provider, opts Options) *Server {
	if opts.MimeType == "" {
		opts.MimeType = "image/jpeg"
	}
	if opts.Ratio <= 0 {
		opts.Ratio = placeholder.DefaultRatio
	}
	if opts.Height <= 0 {
		opts.Height = 720
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = opts.UploadTimeout
	e.Server.ReadHeaderTimeout = 10 * time.Second
	e.Use(middleware.Recover())
	e.Use(RequestLogger())
	e.HTTPErrorHandler = errorHandler
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAccept},
	}))

	s := &Server{Echo: e, relay: r, store: store, placeholder: ph, opts: opts}

	e.GET("/healthz", s.health)
	if opts.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(opts.Metrics))
	}
	e.GET("/session", s.newSession)
	e.POST("/imageForm/:session", s.uploadForm)
	e.POST("/image/:session", s.uploadRaw)
	e.GET("/image/:session", s.nextImage)
	e.GET("/stats", s.stats)

	return s
}

// errorHandler renders every failure as {"error": msg} and logs it.
func errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := err.Error()

	var he *echo.HTTPError
	var se *relay.StoreError
	switch {
	case errors.As(err, &he):
		code = he.Code
		if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
	case errors.Is(err, relay.ErrInvalidSession), errors.Is(err, relay.ErrEmptyFrame):
		code = http.StatusBadRequest
	case errors.Is(err, relay.ErrFrameTooLarge):
		code = http.StatusRequestEntityTooLarge
	case errors.As(err, &se):
		msg = "store unavailable"
	}

	req := c.Request()
	logger := log.Ctx(req.Context())
	ev := logger.Warn()
	if code >= http.StatusInternalServerError {
		ev = logger.Error()
	}
	ev.Err(err).Int("status", code).Str("method", req.Method).Str("path", req.URL.Path).Msg("request failed")

	if !c.Response().Committed {
		_ = c.JSON(code, map[string]interface{}{"error": msg})
	}
}

// Run builds the relay from cfg and serves until ctx is cancelled.
func Run(ctx context.Context, cfg *appconfig.Config) error {
	tel, err := telemetry.Setup(cfg.Telemetry.Enabled)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tel.Shutdown(shutdownCtx)
	}()

	rc := cfg.Storage.Redis
	client, err := blobstore.Conn(ctx, rc.Host, rc.Port, rc.Password, rc.DB, rc.Timeout)
	if err != nil {
		return fmt.Errorf("redis connection failed (%s:%s): %w", rc.Host, rc.Port, err)
	}
	defer func() { _ = client.Close() }()
	store := blobstore.NewRedis(client)

	rl := relay.New(store, relay.Options{TTL: cfg.Relay.TTL(), MaxFrameBytes: cfg.Relay.MaxFrameBytes})

	ratio, err := cfg.Placeholder.Ratio()
	if err != nil {
		return err
	}
	ph := placeholder.Fallback{
		placeholder.NewRemote(cfg.Placeholder.BaseURL, cfg.Placeholder.Timeout),
		placeholder.NewStatic(),
	}

	srv := New(rl, store, ph, Options{
		MimeType:      cfg.Relay.MimeType,
		Ratio:         ratio,
		Height:        cfg.Placeholder.Height,
		UploadTimeout: cfg.Server.UploadTimeout,
		Metrics:       tel.Handler(),
	})

	schedule, err := cfg.Relay.Schedule()
	if err != nil {
		return err
	}
	sweeper := NewSweeper(rl, schedule, cfg.Relay.SweepInterval, cfg.Relay.SweepGrace)
	sweeper.Start()
	defer sweeper.Stop()

	addr := cfg.Server.Address()
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Dur("ttl", rl.TTL()).Msg("server listening")
		if err := srv.Echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutdown signal received")
	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info().Msg("server stopped cleanly")
	return nil
}
