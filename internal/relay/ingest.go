package relay

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
)

var (
	errFrameClosed = errors.New("frame already committed or aborted")
	errPayloadLost = errors.New("partial payload lost")
)

// FrameWriter accumulates one frame's payload chunk by chunk. Nothing is
// visible to consumers until Commit sets the TTL and queues the frame.
type FrameWriter struct {
	relay   *Relay
	ctx     context.Context
	session string
	id      string
	key     string
	n       int64
	closed  bool
}

// NewFrame opens a writer for a new frame in sessionID.
func (r *Relay) NewFrame(ctx context.Context, sessionID string) (*FrameWriter, error) {
	if sessionID == "" {
		return nil, ErrInvalidSession
	}
	id := newToken()
	return &FrameWriter{
		relay:   r,
		ctx:     ctx,
		session: sessionID,
		id:      id,
		key:     imageKey(id),
	}, nil
}

// ID returns the frame token.
func (w *FrameWriter) ID() string { return w.id }

// Size returns the number of bytes written so far.
func (w *FrameWriter) Size() int64 { return w.n }

// Write appends p to the payload key.
func (w *FrameWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errFrameClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	if err := w.ctx.Err(); err != nil {
		return 0, err
	}
	if limit := w.relay.maxBytes; limit > 0 && w.n+int64(len(p)) > limit {
		return 0, ErrFrameTooLarge
	}
	size, err := w.relay.store.Append(w.ctx, w.key, p)
	if err != nil {
		return 0, storeErr("append", w.key, err)
	}
	if want := w.n + int64(len(p)); size != want {
		// The payload expired or was replaced mid-upload.
		return 0, storeErr("append", w.key, fmt.Errorf("%w: length %d, expected %d", errPayloadLost, size, want))
	}
	w.n += int64(len(p))
	return len(p), nil
}

// Commit applies the TTL and then queues the frame. The order matters: a
// consumer must never pop a token whose payload or expiry is not in place.
func (w *FrameWriter) Commit(ctx context.Context) error {
	if w.closed {
		return errFrameClosed
	}
	w.closed = true
	if w.n == 0 {
		return ErrEmptyFrame
	}
	st := w.relay.store
	if err := st.Expire(ctx, w.key, w.relay.ttl); err != nil {
		w.discard(ctx)
		return storeErr("expire", w.key, err)
	}
	queue := sessionKey(w.session)
	if err := st.PushTail(ctx, queue, w.key); err != nil {
		w.discard(ctx)
		return storeErr("push", queue, err)
	}

	add(ctx, &framesIngested, 1)
	add(ctx, &bytesIngested, w.n)
	log.Ctx(ctx).Debug().
		Str("session", w.session).
		Str("frame", w.id).
		Int64("bytes", w.n).
		Msg("frame queued")
	return nil
}

// Abort drops a frame that will never be committed. It is a no-op after
// Commit. The partial payload is deleted best effort; the sweeper catches
// whatever is left behind.
func (w *FrameWriter) Abort(ctx context.Context) {
	if w.closed {
		return
	}
	w.closed = true
	add(ctx, &ingestAborted, 1)
	if w.n > 0 {
		w.discard(ctx)
	}
}

func (w *FrameWriter) discard(ctx context.Context) {
	if err := w.relay.store.Del(context.WithoutCancel(ctx), w.key); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("frame", w.id).Msg("discard partial frame")
	}
}

// Ingest streams body into a new frame of sessionID and queues it once the
// stream completes. A failed or cancelled stream is never queued.
func (r *Relay) Ingest(ctx context.Context, sessionID string, body io.Reader) (string, error) {
	w, err := r.NewFrame(ctx, sessionID)
	if err != nil {
		return "", err
	}
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(w, body, buf); err != nil {
		w.Abort(ctx)
		return "", err
	}
	if err := w.Commit(ctx); err != nil {
		return "", err
	}
	return w.ID(), nil
}
