package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dgnsrekt/archive_redirector/internal/config"
	"github.com/dgnsrekt/archive_redirector/internal/settings"
)

// loadConfig reads the environment and applies global flag overrides.
func loadConfig(globals *GlobalFlags) (*config.Config, error) {
	cfg, err := config.Load(globals.EnvFile)
	if err != nil {
		return nil, err
	}
	if globals.DB != "" {
		cfg.DBPath = globals.DB
	}
	return cfg, nil
}

// withSettings opens the settings database, seeds it on first use and
// runs fn against it.
func withSettings(globals *GlobalFlags, fn func(ctx context.Context, cfg *config.Config, svc *settings.Service) error) error {
	cfg, err := loadConfig(globals)
	if err != nil {
		return err
	}
	store, err := settings.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	svc := settings.NewService(store)
	if err := svc.Initialize(ctx, cfg.SeedFile); err != nil {
		return err
	}
	return fn(ctx, cfg, svc)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func setupLogger(level, filename string) error {
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: parseLevel(level)})
	slog.SetDefault(slog.New(h))
	return nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func parseOnOff(s string) (bool, error) {
	switch s {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}
