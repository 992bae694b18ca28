package relay

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	otelmetric "go.opentelemetry.io/otel/metric"
)

var (
	relayMetricsOnce sync.Once
	framesIngested   otelmetric.Int64Counter
	bytesIngested    otelmetric.Int64Counter
	ingestAborted    otelmetric.Int64Counter
	framesDelivered  otelmetric.Int64Counter
	framesExpired    otelmetric.Int64Counter
	retrieveNoData   otelmetric.Int64Counter
	orphansSwept     otelmetric.Int64Counter
)

func initRelayMetrics() {
	meter := otel.Meter("framerelay/relay")
	counter := func(name, desc string) otelmetric.Int64Counter {
		c, err := meter.Int64Counter(name, otelmetric.WithDescription(desc))
		if err != nil {
			log.Warn().Err(err).Str("instrument", name).Msg("relay metrics init")
			return nil
		}
		return c
	}
	framesIngested = counter("frames_ingested_total", "Frames committed to a session queue")
	bytesIngested = counter("frame_bytes_ingested_total", "Payload bytes committed to session queues")
	ingestAborted = counter("frames_ingest_aborted_total", "Uploads aborted before commit")
	framesDelivered = counter("frames_delivered_total", "Frames handed to a consumer")
	framesExpired = counter("frames_expired_skipped_total", "Queue entries skipped because their payload expired")
	retrieveNoData = counter("retrieve_no_data_total", "Retrievals that found no live frame")
	orphansSwept = counter("orphan_payloads_swept_total", "Payload keys without expiry given a grace TTL")
}

func add(ctx context.Context, c *otelmetric.Int64Counter, n int64) {
	relayMetricsOnce.Do(initRelayMetrics)
	if *c == nil || n == 0 {
		return
	}
	(*c).Add(ctx, n)
}
