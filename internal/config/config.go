package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultRecommendedURL is the upstream list of domains known to work well
// with archive.is.
const DefaultRecommendedURL = "https://raw.githubusercontent.com/kylefmohr/archive.is-redirector/refs/heads/main/recommended_domains.json"

// Config holds all configuration for the redirector daemon and CLI.
type Config struct {
	// CDP connection settings
	CDPAddress string
	CDPPort    int
	CDPTimeout time.Duration

	// HTTP API
	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool

	// Settings persistence
	DBPath         string
	SeedFile       string
	RecommendedURL string

	// Interceptor behavior
	CleanupDelay time.Duration

	// Decision audit log
	AuditDir       string
	AuditMaxSizeMB int

	// Optional ntfy endpoint notified on every redirect
	NtfyURL string

	LogLevel string
	LogFile  string

	// Optional local browser
	LaunchBrowser bool
	Headless      bool
	ProfileDir    string
	StartURL      string
}

// Load reads configuration from environment variables and an optional .env
// file. An explicitly named envFile must exist; the implicit ./.env may not.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		CDPAddress:       getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:          getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9220),
		CDPTimeout:       getEnvMillisOrDefault("REDIRECTOR_CDP_TIMEOUT_MS", 10000, 1000),
		BindAddr:         getEnvOrDefault("REDIRECTOR_BIND_ADDR", "127.0.0.1:8190"),
		PortCandidates:   getEnvListOrDefault("REDIRECTOR_PORT_CANDIDATES", []string{"127.0.0.1:8191", "127.0.0.1:8192"}),
		PortAutoFallback: getEnvBoolOrDefault("REDIRECTOR_PORT_AUTO_FALLBACK", true),
		DBPath:           getEnvOrDefault("REDIRECTOR_DB_PATH", "./data/archive_redirector.db"),
		SeedFile:         getEnvOrDefault("REDIRECTOR_SEED_FILE", "./config/domains.yaml"),
		RecommendedURL:   getEnvOrDefault("REDIRECTOR_RECOMMENDED_URL", DefaultRecommendedURL),
		CleanupDelay:     getEnvMillisOrDefault("REDIRECTOR_CLEANUP_DELAY_MS", 60000, 1000),
		AuditDir:         getEnvOrDefault("REDIRECTOR_AUDIT_DIR", "./data/audit"),
		AuditMaxSizeMB:   getEnvIntOrDefault("REDIRECTOR_AUDIT_MAX_SIZE_MB", 50),
		NtfyURL:          getEnvOrDefault("REDIRECTOR_NTFY_URL", ""),
		LogLevel:         strings.ToLower(getEnvOrDefault("REDIRECTOR_LOG_LEVEL", "info")),
		LogFile:          getEnvOrDefault("REDIRECTOR_LOG_FILE", "logs/archive_redirector.log"),
		LaunchBrowser:    getEnvBoolOrDefault("REDIRECTOR_LAUNCH_BROWSER", false),
		Headless:         getEnvBoolOrDefault("REDIRECTOR_HEADLESS", false),
		ProfileDir:       getEnvOrDefault("REDIRECTOR_PROFILE_DIR", "./browser_profile"),
		StartURL:         getEnvOrDefault("REDIRECTOR_START_URL", "about:blank"),
	}
	// REDIRECTOR_AUDIT_DIR= (set but empty) disables the audit log.
	if v, ok := os.LookupEnv("REDIRECTOR_AUDIT_DIR"); ok && strings.TrimSpace(v) == "" {
		cfg.AuditDir = ""
	}
	if cfg.AuditMaxSizeMB < 1 {
		cfg.AuditMaxSizeMB = 1
	}

	return cfg, nil
}

// GetCDPURL returns the full CDP HTTP endpoint.
func (c *Config) GetCDPURL() string {
	return fmt.Sprintf("http://%s:%d", c.CDPAddress, c.CDPPort)
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvMillisOrDefault reads a millisecond count, clamped to minMS.
func getEnvMillisOrDefault(key string, defaultMS, minMS int) time.Duration {
	ms := getEnvIntOrDefault(key, defaultMS)
	if ms < minMS {
		ms = minMS
	}
	return time.Duration(ms) * time.Millisecond
}

func getEnvListOrDefault(key string, defaultVal []string) []string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
