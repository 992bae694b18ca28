package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Relay.TTL() != 120*time.Second {
		t.Fatalf("expected 120s ttl got %v", cfg.Relay.TTL())
	}
	if cfg.Server.Address() != ":3000" {
		t.Fatalf("expected :3000 got %s", cfg.Server.Address())
	}
	if cfg.Relay.MimeType != "image/jpeg" {
		t.Fatalf("expected image/jpeg got %s", cfg.Relay.MimeType)
	}
	if cfg.Placeholder.Height != 720 || cfg.Placeholder.AspectRatio != "16:9" {
		t.Fatalf("unexpected placeholder defaults %+v", cfg.Placeholder)
	}
	if cfg.Storage.Redis.Host != "redis" || cfg.Storage.Redis.Port != "6379" {
		t.Fatalf("unexpected redis defaults %+v", cfg.Storage.Redis)
	}
}

func TestLoadConfigPlainEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("EXPIRE", "30")
	t.Setenv("PORT", "8080")
	t.Setenv("MIMETYPE", "image/png")
	t.Setenv("NODATA_ASPECT_RATIO", "0.75")
	t.Setenv("NODATA_HEIGHT", "480")
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("UPLOAD_TIMEOUT", "15s")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Relay.Expire != 30 || cfg.Server.Port != 8080 || cfg.Relay.MimeType != "image/png" {
		t.Fatalf("env not applied: %+v %+v", cfg.Relay, cfg.Server)
	}
	if cfg.Server.UploadTimeout != 15*time.Second {
		t.Fatalf("expected 15s upload timeout got %v", cfg.Server.UploadTimeout)
	}
	r, err := cfg.Placeholder.Ratio()
	if err != nil {
		t.Fatalf("ratio: %v", err)
	}
	if w := r.Width(cfg.Placeholder.Height); w != 640 {
		t.Fatalf("expected width 640 got %d", w)
	}
	if cfg.Storage.Redis.Host != "cache.internal" {
		t.Fatalf("expected redis host from env got %s", cfg.Storage.Redis.Host)
	}
}

func TestLoadConfigPrefixedEnvironmentWins(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("EXPIRE", "30")
	t.Setenv("FRAMERELAY_RELAY_EXPIRE", "45")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Relay.Expire != 45 {
		t.Fatalf("expected prefixed variable to win, got %d", cfg.Relay.Expire)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "relay.json")
	body := `{"relay": {"expire": 10, "mime_type": "image/webp"}, "server": {"port": 9000}}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Relay.Expire != 10 || cfg.Relay.MimeType != "image/webp" || cfg.Server.Port != 9000 {
		t.Fatalf("file not applied: %+v %+v", cfg.Relay, cfg.Server)
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	chdir(t, t.TempDir())
	cases := map[string]string{
		"EXPIRE":              "0",
		"PORT":                "70000",
		"NODATA_HEIGHT":       "-1",
		"NODATA_ASPECT_RATIO": "wide",
	}
	for env, val := range cases {
		t.Run(env, func(t *testing.T) {
			t.Setenv(env, val)
			if _, err := LoadConfig(""); err == nil {
				t.Fatalf("expected %s=%s to be rejected", env, val)
			}
		})
	}
}

func TestValidateSweepGraceCoversUploads(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("UPLOAD_TIMEOUT", "20m")
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected grace shorter than upload timeout to be rejected")
	}
}

func TestValidateSweepNeedsUploadTimeout(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("UPLOAD_TIMEOUT", "0s")
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected unbounded uploads to be rejected while sweeping")
	}

	t.Setenv("FRAMERELAY_RELAY_SWEEP_INTERVAL", "0s")
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("expected unbounded uploads to be allowed without sweeping: %v", err)
	}
	if cfg.Relay.SweepEnabled() {
		t.Fatalf("expected sweeping disabled")
	}
}

func TestSweepSchedule(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SWEEP_SCHEDULE", "*/5 * * * *")
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	expr, err := cfg.Relay.Schedule()
	if err != nil || expr == nil {
		t.Fatalf("schedule: %v", err)
	}
	from := time.Date(2024, 1, 1, 0, 1, 0, 0, time.UTC)
	if next := expr.Next(from); !next.Equal(from.Add(4 * time.Minute)) {
		t.Fatalf("expected next sweep at 00:05 got %v", next)
	}

	t.Setenv("SWEEP_SCHEDULE", "not a cron line")
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected invalid schedule to be rejected")
	}
}
