// Package blobstore is the adapter over the transient key-value/list store
// that brokers frames between producers and consumers.
//
// Every operation is atomic at single-key granularity. No cross-key
// transactions are offered; callers order their writes instead.
package blobstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrEmpty is returned by PopHead when the list holds no members.
	ErrEmpty = errors.New("blobstore: list is empty")

	errWrongType = errors.New("blobstore: operation against a key holding the wrong kind of value")
)

const (
	// NoExpiry is reported by TTL for a key that exists without an expiry.
	NoExpiry time.Duration = -1
	// Missing is reported by TTL for a key that does not exist.
	Missing time.Duration = -2
)

// Store defines the operations the relay needs from its broker.
type Store interface {
	// Append creates the key or appends to its current value and returns
	// the value's length afterwards.
	Append(ctx context.Context, key string, p []byte) (int64, error)
	// Expire attaches or refreshes the key's time-to-live.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// PushTail appends member to the list stored at queue.
	PushTail(ctx context.Context, queue, member string) error
	// PopHead removes and returns the first member of the list, or ErrEmpty.
	PopHead(ctx context.Context, queue string) (string, error)
	// Len returns the list length, zero for a missing list.
	Len(ctx context.Context, queue string) (int64, error)
	// Get returns the value, or nil without error when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	// Del removes the key. Deleting a missing key is not an error.
	Del(ctx context.Context, key string) error
	// Keys enumerates keys matching a glob pattern. Best effort.
	Keys(ctx context.Context, pattern string) ([]string, error)
	// TTL returns the remaining time-to-live, NoExpiry or Missing.
	TTL(ctx context.Context, key string) (time.Duration, error)
	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}
