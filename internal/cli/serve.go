package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgnsrekt/archive_redirector/internal/api"
	"github.com/dgnsrekt/archive_redirector/internal/browser"
	"github.com/dgnsrekt/archive_redirector/internal/cdp"
	"github.com/dgnsrekt/archive_redirector/internal/interceptor"
	"github.com/dgnsrekt/archive_redirector/internal/metrics"
	"github.com/dgnsrekt/archive_redirector/internal/netutil"
	"github.com/dgnsrekt/archive_redirector/internal/notify"
	"github.com/dgnsrekt/archive_redirector/internal/recommend"
	"github.com/dgnsrekt/archive_redirector/internal/relay"
	"github.com/dgnsrekt/archive_redirector/internal/settings"
	"github.com/dgnsrekt/archive_redirector/internal/storage"
	"github.com/dgnsrekt/archive_redirector/internal/tracker"
)

const shutdownTimeout = 10 * time.Second

var errBrowserGone = errors.New("browser connection lost")

// Execute implements the go-flags Commander interface for ServeCommand.
func (c *ServeCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		if _, writeErr := io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n"); writeErr != nil {
			slog.Debug("logger setup stderr write failed", "error", writeErr)
		}
		return err
	}

	slog.Info("archive_redirector config loaded",
		"version", c.version,
		"cdp_url", cfg.GetCDPURL(),
		"bind_addr", cfg.BindAddr,
		"port_auto_fallback", cfg.PortAutoFallback,
		"port_candidates", cfg.PortCandidates,
		"db_path", cfg.DBPath,
		"cleanup_delay", cfg.CleanupDelay,
		"audit_dir", cfg.AuditDir,
		"launch_browser", cfg.LaunchBrowser,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := settings.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	svc := settings.NewService(store)
	if err := svc.Initialize(ctx, cfg.SeedFile); err != nil {
		return err
	}

	m := metrics.New()
	broker := relay.NewBroker(relay.WithConnectHook(m.StreamConnected))
	tr := tracker.New(tracker.WithOnChange(m.SetTrackedTabs))
	defer tr.Close()

	recorders := []interceptor.Recorder{m, relay.NewDecisionPublisher(broker)}
	if cfg.AuditDir != "" {
		audit := storage.NewAuditLog(cfg.AuditDir, cfg.AuditMaxSizeMB)
		defer func() {
			if err := audit.Close(); err != nil {
				slog.Warn("audit log close failed", "error", err)
			}
		}()
		recorders = append(recorders, audit)
	}

	if cfg.NtfyURL != "" {
		notifier := notify.NewNotifier(cfg.NtfyURL, nil)
		defer notifier.Close()
		recorders = append(recorders, notifier)
	}

	if cfg.LaunchBrowser {
		launcher := browser.NewLauncher(browser.Config{
			CDPAddress: cfg.CDPAddress,
			CDPPort:    cfg.CDPPort,
			StartURL:   cfg.StartURL,
			ProfileDir: cfg.ProfileDir,
			Headless:   cfg.Headless,
		})
		if err := launcher.Launch(ctx); err != nil {
			return fmt.Errorf("launch browser: %w", err)
		}
		defer launcher.Stop()
	}

	client := cdp.NewClient(cfg, cdp.NewTabRegistry(), cdp.WithTabsChanged(m.SetAttachedTabs))
	ic := interceptor.New(tr, store, client,
		interceptor.WithCleanupDelay(cfg.CleanupDelay),
		interceptor.WithTimeout(cfg.CDPTimeout),
		interceptor.WithRecorders(recorders...),
	)
	if err := client.Connect(ctx, ic); err != nil {
		return fmt.Errorf("connect to browser at %s: %w", cfg.GetCDPURL(), err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			slog.Debug("CDP client close failed", "error", err)
		}
	}()

	ln, err := netutil.Listen(cfg.BindAddr, cfg.PortCandidates, cfg.PortAutoFallback)
	if err != nil {
		return fmt.Errorf("select bind address: %w", err)
	}

	fetcher := recommend.NewFetcher(cfg.RecommendedURL, recommend.WithObserver(m.RecordRecommendedFetch))
	srv := &http.Server{
		Handler: api.NewServer(api.Deps{
			Settings:    svc,
			Recommended: fetcher,
			Tracker:     tr,
			Tabs:        client,
			Broker:      broker,
			Metrics:     m,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ln.Addr().String()
		slog.Info("archive_redirector listening", "addr", addr, "docs", "http://"+addr+"/docs")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case <-client.Done():
			return errBrowserGone
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http shutdown failed", "error", err)
		}
		return nil
	})

	return g.Wait()
}
