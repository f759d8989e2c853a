package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

var redirectorEnv = []string{
	"CHROMIUM_CDP_ADDRESS", "CHROMIUM_CDP_PORT", "REDIRECTOR_CDP_TIMEOUT_MS",
	"REDIRECTOR_BIND_ADDR", "REDIRECTOR_PORT_CANDIDATES", "REDIRECTOR_PORT_AUTO_FALLBACK",
	"REDIRECTOR_DB_PATH", "REDIRECTOR_SEED_FILE", "REDIRECTOR_RECOMMENDED_URL",
	"REDIRECTOR_CLEANUP_DELAY_MS", "REDIRECTOR_AUDIT_DIR", "REDIRECTOR_AUDIT_MAX_SIZE_MB",
	"REDIRECTOR_LOG_LEVEL", "REDIRECTOR_LOG_FILE", "REDIRECTOR_LAUNCH_BROWSER",
	"REDIRECTOR_HEADLESS", "REDIRECTOR_PROFILE_DIR", "REDIRECTOR_START_URL",
	"REDIRECTOR_NTFY_URL",
}

// clearEnv unsets every variable Load reads and restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range redirectorEnv {
		if prev, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, prev) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
	// Keep a stray ./.env in the package dir from leaking in.
	t.Chdir(t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.GetCDPURL() != "http://127.0.0.1:9220" {
		t.Fatalf("GetCDPURL() = %q; want %q", cfg.GetCDPURL(), "http://127.0.0.1:9220")
	}
	if cfg.BindAddr != "127.0.0.1:8190" {
		t.Fatalf("BindAddr = %q; want 127.0.0.1:8190", cfg.BindAddr)
	}
	if want := []string{"127.0.0.1:8191", "127.0.0.1:8192"}; !reflect.DeepEqual(cfg.PortCandidates, want) {
		t.Fatalf("PortCandidates = %v; want %v", cfg.PortCandidates, want)
	}
	if cfg.CleanupDelay != 60*time.Second {
		t.Fatalf("CleanupDelay = %v; want 60s", cfg.CleanupDelay)
	}
	if cfg.CDPTimeout != 10*time.Second {
		t.Fatalf("CDPTimeout = %v; want 10s", cfg.CDPTimeout)
	}
	if cfg.RecommendedURL != DefaultRecommendedURL {
		t.Fatalf("RecommendedURL = %q", cfg.RecommendedURL)
	}
	if cfg.AuditDir != "./data/audit" || cfg.LogLevel != "info" || cfg.LaunchBrowser || cfg.NtfyURL != "" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadOverridesAndClamps(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHROMIUM_CDP_PORT", "9333")
	t.Setenv("REDIRECTOR_CLEANUP_DELAY_MS", "10")
	t.Setenv("REDIRECTOR_CDP_TIMEOUT_MS", "2500")
	t.Setenv("REDIRECTOR_PORT_CANDIDATES", " 127.0.0.1:9001 ,,127.0.0.1:9002")
	t.Setenv("REDIRECTOR_LOG_LEVEL", "DEBUG")
	t.Setenv("REDIRECTOR_LAUNCH_BROWSER", "true")
	t.Setenv("REDIRECTOR_AUDIT_DIR", "")
	t.Setenv("REDIRECTOR_AUDIT_MAX_SIZE_MB", "0")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.CDPPort != 9333 {
		t.Fatalf("CDPPort = %d; want 9333", cfg.CDPPort)
	}
	if cfg.CleanupDelay != time.Second {
		t.Fatalf("CleanupDelay = %v; want clamped to 1s", cfg.CleanupDelay)
	}
	if cfg.CDPTimeout != 2500*time.Millisecond {
		t.Fatalf("CDPTimeout = %v; want 2.5s", cfg.CDPTimeout)
	}
	if want := []string{"127.0.0.1:9001", "127.0.0.1:9002"}; !reflect.DeepEqual(cfg.PortCandidates, want) {
		t.Fatalf("PortCandidates = %v; want %v", cfg.PortCandidates, want)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q; want debug", cfg.LogLevel)
	}
	if !cfg.LaunchBrowser {
		t.Fatal("LaunchBrowser = false; want true")
	}
	if cfg.AuditDir != "" {
		t.Fatalf("AuditDir = %q; want disabled", cfg.AuditDir)
	}
	if cfg.AuditMaxSizeMB != 1 {
		t.Fatalf("AuditMaxSizeMB = %d; want 1", cfg.AuditMaxSizeMB)
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "redirector.env")
	if err := os.WriteFile(path, []byte("REDIRECTOR_DB_PATH=/tmp/x.db\nREDIRECTOR_BIND_ADDR=0.0.0.0:9999\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DBPath != "/tmp/x.db" || cfg.BindAddr != "0.0.0.0:9999" {
		t.Fatalf("env file not applied: %+v", cfg)
	}
}

func TestLoadMissingEnvFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatal("Load() error = nil; want error for missing env file")
	}
}
