package relay

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/mohammad-safakhou/framerelay/internal/blobstore"
	"github.com/rs/zerolog/log"
)

// Stats is an occupancy snapshot. Queue lengths and the frame count are read
// separately and need not agree with each other.
type Stats struct {
	NumImages   int            `json:"numImages"`
	NumSessions int            `json:"numSessions"`
	Sessions    []SessionStats `json:"sessions"`
}

// SessionStats reports one session queue.
type SessionStats struct {
	ID  string `json:"id"`
	Len int64  `json:"len"`
}

// Stats enumerates session queues and frame payloads. Any failing store call
// aborts the report.
func (r *Relay) Stats(ctx context.Context) (*Stats, error) {
	st := r.store
	queues, err := st.Keys(ctx, sessionKeyPrefix+"*")
	if err != nil {
		return nil, storeErr("keys", sessionKeyPrefix+"*", err)
	}

	out := &Stats{NumSessions: len(queues), Sessions: make([]SessionStats, 0, len(queues))}
	for _, q := range queues {
		n, err := st.Len(ctx, q)
		if err != nil {
			return nil, storeErr("len", q, err)
		}
		out.Sessions = append(out.Sessions, SessionStats{ID: strings.TrimPrefix(q, sessionKeyPrefix), Len: n})
	}
	sort.Slice(out.Sessions, func(i, j int) bool { return out.Sessions[i].ID < out.Sessions[j].ID })

	images, err := st.Keys(ctx, imageKeyPrefix+"*")
	if err != nil {
		return nil, storeErr("keys", imageKeyPrefix+"*", err)
	}
	out.NumImages = len(images)
	return out, nil
}

// Sweep gives every payload key that has no expiry a TTL of grace and
// returns how many it touched. Such keys come from uploads that died before
// Commit. Keys are never deleted here, so an upload still in flight keeps
// its data and Commit later replaces the grace TTL with the frame TTL.
func (r *Relay) Sweep(ctx context.Context, grace time.Duration) (int, error) {
	if grace <= 0 {
		grace = r.ttl
	}
	st := r.store
	keys, err := st.Keys(ctx, imageKeyPrefix+"*")
	if err != nil {
		return 0, storeErr("keys", imageKeyPrefix+"*", err)
	}
	swept := 0
	for _, k := range keys {
		ttl, err := st.TTL(ctx, k)
		if err != nil {
			return swept, storeErr("ttl", k, err)
		}
		if ttl != blobstore.NoExpiry {
			continue
		}
		if err := st.Expire(ctx, k, grace); err != nil {
			return swept, storeErr("expire", k, err)
		}
		swept++
	}
	add(ctx, &orphansSwept, int64(swept))
	if swept > 0 {
		log.Ctx(ctx).Info().Int("swept", swept).Dur("grace", grace).Msg("orphan payloads expired")
	}
	return swept, nil
}
