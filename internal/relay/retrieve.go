package relay

import (
	"context"
	"errors"

	"github.com/mohammad-safakhou/framerelay/internal/blobstore"
	"github.com/rs/zerolog/log"
)

// Retrieve returns the oldest live frame of sessionID and deletes it, or
// ErrNoData when nothing live is queued.
//
// Queue entries whose payload has expired are popped and dropped. The loop
// runs at most as many times as the queue was long when it started, since
// every iteration pops one entry.
func (r *Relay) Retrieve(ctx context.Context, sessionID string) ([]byte, error) {
	if sessionID == "" {
		return nil, ErrInvalidSession
	}
	queue := sessionKey(sessionID)
	st := r.store

	n, err := st.Len(ctx, queue)
	if err != nil {
		return nil, storeErr("len", queue, err)
	}
	if n == 0 {
		add(ctx, &retrieveNoData, 1)
		return nil, ErrNoData
	}

	var skipped int64
	defer func() { add(ctx, &framesExpired, skipped) }()

	for i := int64(0); i < n; i++ {
		key, err := st.PopHead(ctx, queue)
		if errors.Is(err, blobstore.ErrEmpty) {
			break
		}
		if err != nil {
			return nil, storeErr("pop", queue, err)
		}

		data, err := st.Get(ctx, key)
		if err != nil {
			return nil, storeErr("get", key, err)
		}
		if len(data) > 0 {
			if err := st.Del(ctx, key); err != nil {
				return nil, storeErr("del", key, err)
			}
			add(ctx, &framesDelivered, 1)
			if skipped > 0 {
				log.Ctx(ctx).Debug().Str("session", sessionID).Int64("skipped", skipped).Msg("expired frames skipped")
			}
			return data, nil
		}

		skipped++
		left, err := st.Len(ctx, queue)
		if err != nil {
			return nil, storeErr("len", queue, err)
		}
		if left == 0 {
			break
		}
	}

	add(ctx, &retrieveNoData, 1)
	return nil, ErrNoData
}
