package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

var (
	httpMetricsOnce sync.Once
	httpRequests    otelmetric.Int64Counter
	httpDuration    otelmetric.Float64Histogram
)

func initHTTPMetrics() {
	meter := otel.Meter("framerelay/server")
	var err error
	httpRequests, err = meter.Int64Counter("http_requests_total",
		otelmetric.WithDescription("HTTP requests served"))
	if err != nil {
		log.Warn().Err(err).Msg("http metrics init: http_requests_total")
	}
	httpDuration, err = meter.Float64Histogram("http_request_duration_seconds",
		otelmetric.WithDescription("HTTP request latency"),
		otelmetric.WithUnit("s"))
	if err != nil {
		log.Warn().Err(err).Msg("http metrics init: http_request_duration_seconds")
	}
}

// RequestLogger attaches a request-scoped zerolog logger carrying an
// X-Request-ID, logs each request and records request metrics.
func RequestLogger() echo.MiddlewareFunc {
	httpMetricsOnce.Do(initHTTPMetrics)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid := req.Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, rid)

			logger := log.With().
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Str("remote_ip", c.RealIP()).
				Logger()
			c.SetRequest(req.WithContext(logger.WithContext(req.Context())))

			err := next(c)
			if err != nil {
				// Render now so the status below is the one sent.
				c.Error(err)
			}

			status := c.Response().Status
			duration := time.Since(start)
			attrs := otelmetric.WithAttributes(
				attribute.String("method", req.Method),
				attribute.String("route", c.Path()),
				attribute.String("status", statusClass(status)),
			)
			if httpRequests != nil {
				httpRequests.Add(req.Context(), 1, attrs)
			}
			if httpDuration != nil {
				httpDuration.Record(req.Context(), duration.Seconds(), attrs)
			}

			if status < 500 && err == nil {
				logger.Debug().Int("status", status).Dur("duration", duration).Int64("bytes", c.Response().Size).Msg("http request served")
			}
			return nil
		}
	}
}

func statusClass(code int) string {
	switch {
	case code >= 100 && code < 200:
		return "1xx"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "0"
	}
}
