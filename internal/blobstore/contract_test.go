package blobstore

import (
	"context"
	"errors"
	"testing"
	"time"
)

// runContract exercises the behaviour the relay depends on. advance must
// move the store's notion of time forward by at least d.
func runContract(t *testing.T, st Store, advance func(d time.Duration)) {
	t.Helper()
	ctx := context.Background()

	t.Run("append accumulates", func(t *testing.T) {
		if n, err := st.Append(ctx, "image:a", []byte("he")); err != nil || n != 2 {
			t.Fatalf("append: n=%d err=%v", n, err)
		}
		if n, err := st.Append(ctx, "image:a", []byte("llo")); err != nil || n != 5 {
			t.Fatalf("append: n=%d err=%v", n, err)
		}
		got, err := st.Get(ctx, "image:a")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if string(got) != "hello" {
			t.Fatalf("expected hello got %q", got)
		}
		if err := st.Del(ctx, "image:a"); err != nil {
			t.Fatalf("del: %v", err)
		}
		got, err = st.Get(ctx, "image:a")
		if err != nil || got != nil {
			t.Fatalf("expected nil after del, got %q err=%v", got, err)
		}
	})

	t.Run("list is fifo", func(t *testing.T) {
		for _, m := range []string{"1", "2", "3"} {
			if err := st.PushTail(ctx, "session:fifo", m); err != nil {
				t.Fatalf("push: %v", err)
			}
		}
		n, err := st.Len(ctx, "session:fifo")
		if err != nil || n != 3 {
			t.Fatalf("expected len 3 got %d err=%v", n, err)
		}
		for _, want := range []string{"1", "2", "3"} {
			got, err := st.PopHead(ctx, "session:fifo")
			if err != nil {
				t.Fatalf("pop: %v", err)
			}
			if got != want {
				t.Fatalf("expected %s got %s", want, got)
			}
		}
		if _, err := st.PopHead(ctx, "session:fifo"); !errors.Is(err, ErrEmpty) {
			t.Fatalf("expected ErrEmpty got %v", err)
		}
		n, err = st.Len(ctx, "session:fifo")
		if err != nil || n != 0 {
			t.Fatalf("expected empty list, got %d err=%v", n, err)
		}
	})

	t.Run("expiry hides key", func(t *testing.T) {
		if _, err := st.Append(ctx, "image:ttl", []byte("x")); err != nil {
			t.Fatalf("append: %v", err)
		}
		ttl, err := st.TTL(ctx, "image:ttl")
		if err != nil || ttl != NoExpiry {
			t.Fatalf("expected NoExpiry got %v err=%v", ttl, err)
		}
		if err := st.Expire(ctx, "image:ttl", time.Second); err != nil {
			t.Fatalf("expire: %v", err)
		}
		ttl, err = st.TTL(ctx, "image:ttl")
		if err != nil || ttl <= 0 || ttl > time.Second {
			t.Fatalf("expected ttl in (0,1s] got %v err=%v", ttl, err)
		}
		advance(1500 * time.Millisecond)
		got, err := st.Get(ctx, "image:ttl")
		if err != nil || got != nil {
			t.Fatalf("expected expired key, got %q err=%v", got, err)
		}
		ttl, err = st.TTL(ctx, "image:ttl")
		if err != nil || ttl != Missing {
			t.Fatalf("expected Missing got %v err=%v", ttl, err)
		}
	})

	t.Run("keys by pattern", func(t *testing.T) {
		_, _ = st.Append(ctx, "image:k1", []byte("1"))
		_, _ = st.Append(ctx, "image:k2", []byte("2"))
		_ = st.PushTail(ctx, "session:k", "image:k1")
		keys, err := st.Keys(ctx, "image:k*")
		if err != nil {
			t.Fatalf("keys: %v", err)
		}
		if len(keys) != 2 {
			t.Fatalf("expected 2 image keys got %v", keys)
		}
		keys, err = st.Keys(ctx, "session:*")
		if err != nil {
			t.Fatalf("keys: %v", err)
		}
		if len(keys) != 1 || keys[0] != "session:k" {
			t.Fatalf("expected [session:k] got %v", keys)
		}
	})
}
