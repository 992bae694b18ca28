// Package relay moves image frames from producers to consumers through
// per-session FIFO queues held in a blob store.
//
// A frame is written under its own payload key, given a TTL and only then
// queued. Consumers pop queue entries in order and skip entries whose payload
// has already expired, so the first live frame in submission order wins.
package relay

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mohammad-safakhou/framerelay/internal/blobstore"
)

const (
	sessionKeyPrefix = "session:"
	imageKeyPrefix   = "image:"

	// DefaultTTL is how long a frame stays retrievable after upload.
	DefaultTTL = 120 * time.Second
	// DefaultMaxFrameBytes caps a single upload.
	DefaultMaxFrameBytes int64 = 16 << 20

	chunkSize = 32 << 10
)

// Options tune a Relay.
type Options struct {
	// TTL applied to every committed frame. Zero means DefaultTTL.
	TTL time.Duration
	// MaxFrameBytes rejects larger uploads. Zero or negative disables the cap.
	MaxFrameBytes int64
}

// Relay implements ingest, retrieval and stats over a blob store.
// It holds no per-session state and is safe for concurrent use.
type Relay struct {
	store    blobstore.Store
	ttl      time.Duration
	maxBytes int64
}

// New builds a Relay backed by store.
func New(store blobstore.Store, opts Options) *Relay {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	return &Relay{store: store, ttl: opts.TTL, maxBytes: opts.MaxFrameBytes}
}

// TTL reports the expiry applied to committed frames.
func (r *Relay) TTL() time.Duration { return r.ttl }

// NewSession returns a fresh opaque, URL-safe session token. Sessions are
// not stored; the queue appears with the first frame.
func NewSession() string {
	return newToken()
}

func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func sessionKey(id string) string { return sessionKeyPrefix + id }

func imageKey(id string) string { return imageKeyPrefix + id }
