package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/mohammad-safakhou/framerelay/config"
	"github.com/mohammad-safakhou/framerelay/internal/blobstore"
	"github.com/mohammad-safakhou/framerelay/internal/relay"
	"github.com/spf13/cobra"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// useMemoryRelay points the subcommands at an in-memory store for the test.
func useMemoryRelay(t *testing.T) (*relay.Relay, *blobstore.Memory) {
	t.Helper()
	chdir(t, t.TempDir())
	st := blobstore.NewMemory()
	rl := relay.New(st, relay.Options{})
	prev := openRelay
	openRelay = func(context.Context, *config.Config) (*relay.Relay, io.Closer, error) {
		return rl, closerFunc(func() error { return nil }), nil
	}
	t.Cleanup(func() { openRelay = prev })
	return rl, st
}

func runCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func seed(t *testing.T, rl *relay.Relay, session string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := rl.Ingest(context.Background(), session, strings.NewReader("frame")); err != nil {
			t.Fatalf("ingest: %v", err)
		}
	}
}

func TestStatsCommandTable(t *testing.T) {
	rl, _ := useMemoryRelay(t)
	seed(t, rl, "front-door", 2)
	seed(t, rl, "garage", 1)

	out, err := runCommand(t, statsCMD())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected summary, header and 2 rows, got:\n%s", out)
	}
	if lines[0] != "frames: 3  sessions: 2" {
		t.Fatalf("unexpected summary %q", lines[0])
	}
	if f := strings.Fields(lines[2]); len(f) != 2 || f[0] != "front-door" || f[1] != "2" {
		t.Fatalf("unexpected row %q", lines[2])
	}
	if f := strings.Fields(lines[3]); len(f) != 2 || f[0] != "garage" || f[1] != "1" {
		t.Fatalf("unexpected row %q", lines[3])
	}
}

func TestStatsCommandJSON(t *testing.T) {
	rl, _ := useMemoryRelay(t)
	seed(t, rl, "cam", 2)

	out, err := runCommand(t, statsCMD(), "--json")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	var st relay.Stats
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if st.NumImages != 2 || st.NumSessions != 1 || st.Sessions[0].ID != "cam" || st.Sessions[0].Len != 2 {
		t.Fatalf("unexpected report %+v", st)
	}
}

func TestSweepCommandDefaultsToConfiguredGrace(t *testing.T) {
	rl, st := useMemoryRelay(t)
	ctx := context.Background()
	w, err := rl.NewFrame(ctx, "cam")
	if err != nil {
		t.Fatalf("new frame: %v", err)
	}
	if _, err := w.Write([]byte("partial")); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := runCommand(t, sweepCMD())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if !strings.Contains(out, "swept 1 payload(s), grace 10m0s") {
		t.Fatalf("unexpected output %q", out)
	}
	ttl, _ := st.TTL(ctx, "image:"+w.ID())
	if ttl <= 9*time.Minute || ttl > 10*time.Minute {
		t.Fatalf("expected ~10m ttl got %v", ttl)
	}
}

func TestSweepCommandRejectsGraceBelowUploadTimeout(t *testing.T) {
	_, st := useMemoryRelay(t)
	ctx := context.Background()
	if _, err := st.Append(ctx, "image:orphan", []byte("partial")); err != nil {
		t.Fatalf("append: %v", err)
	}

	if _, err := runCommand(t, sweepCMD(), "--grace", "30s"); err == nil {
		t.Fatalf("expected grace shorter than upload timeout to be rejected")
	}
	if ttl, _ := st.TTL(ctx, "image:orphan"); ttl != blobstore.NoExpiry {
		t.Fatalf("expected orphan untouched, got ttl %v", ttl)
	}
}
