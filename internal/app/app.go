// Package app wires configuration, stores, the Hypixel client and the
// poll loop into one runnable daemon.
package app

import (
	"context"
	"fmt"
	"time"

	"forgewatch/internal/config"
	"forgewatch/internal/forge"
	"forgewatch/internal/hypixel"
	"forgewatch/internal/notify"
	"forgewatch/internal/observability/pprof"
	"forgewatch/internal/runtime/supervisor"
	"forgewatch/internal/store"
	"forgewatch/internal/tracker"
	"forgewatch/pkg/logx"
)

type App struct {
	cfg *config.Config
	log logx.Logger

	catalog *forge.Catalog
	history store.History
	manager *tracker.Manager
	pprof   *pprof.Service

	// ready gates the manager's first cycle until Run has launched the
	// supporting goroutines.
	ready chan struct{}
}

func New(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	dur, err := cfg.Durations()
	if err != nil {
		return nil, err
	}

	log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	appLog := log.With(logx.String("comp", "app"))

	history, err := store.OpenHistory(store.HistoryConfig{
		Driver: cfg.Stores.History.Driver,
		Path:   cfg.Stores.History.Path,
	}, log.With(logx.String("comp", "history")))
	if err != nil {
		return nil, fmt.Errorf("open notification history: %w", err)
	}

	clocks := store.OpenClockLedger(cfg.Stores.ClockUsage, dur.ClockDuration,
		log.With(logx.String("comp", "clock")))
	catalog := forge.LoadCatalog(cfg.Stores.Catalog, log.With(logx.String("comp", "catalog")))

	client := hypixel.NewClient(hypixel.Config{
		APIKey:     cfg.Hypixel.APIKey,
		BaseURL:    cfg.Hypixel.BaseURL,
		Timeout:    dur.HypixelTimeout,
		RatePerMin: cfg.HypixelRatePerMin(),
	})

	if cfg.Webhook.URL == "" {
		appLog.Warn("no webhook url configured; completions will be tracked but not delivered")
	}
	webhook := notify.NewWebhook(notify.WebhookConfig{
		URL:        cfg.Webhook.URL,
		Timeout:    dur.WebhookTimeout,
		RatePerSec: cfg.WebhookRatePerSec(),
	})
	dispatcher := notify.NewDispatcher(webhook, history, log.With(logx.String("comp", "notify")))

	scanner := tracker.NewScanner(client, catalog, clocks, history, dur.ClockDuration,
		log.With(logx.String("comp", "scanner")))

	ready := make(chan struct{})
	manager := tracker.NewManager(tracker.ManagerConfig{
		RegistrationsPath: cfg.Stores.Registrations,
		PollInterval:      dur.PollInterval,
		Retention:         dur.Retention,
	}, scanner, dispatcher, clocks, history, ready, log.With(logx.String("comp", "tracker")))
	manager.SetResolver(hypixel.NewMojangClient(dur.HypixelTimeout))

	pprofSvc := pprof.New(pprof.Config{
		Enabled: cfg.Pprof.Enabled,
		Addr:    cfg.Pprof.Addr,
		Token:   cfg.Pprof.Token,
	}, log.With(logx.String("comp", "pprof")))

	return &App{
		cfg:     cfg,
		log:     appLog,
		catalog: catalog,
		history: history,
		manager: manager,
		pprof:   pprofSvc,
		ready:   ready,
	}, nil
}

// Run blocks until ctx is cancelled or the poll loop fails, then releases
// the stores.
func (a *App) Run(ctx context.Context) error {
	sup := supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	sup.GoRestart("catalog.watch", func(c context.Context) error {
		a.catalog.Watch(c, a.cfg.Stores.Catalog, a.log.With(logx.String("comp", "catalog")))
		return nil
	})
	if a.pprof.Enabled() {
		sup.GoRestart("pprof.serve", a.pprof.Run)
	}
	sup.Go("tracker.poll", a.manager.Start)

	close(a.ready)
	<-sup.Context().Done()

	waitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := sup.Stop(waitCtx)
	if err != nil && err != context.DeadlineExceeded {
		a.log.Error("shut down with error", logx.Err(err))
	} else {
		err = nil
	}

	if cerr := a.history.Close(); cerr != nil {
		a.log.Warn("closing notification history", logx.Err(cerr))
	}
	a.log.Info("shutdown complete")
	_ = a.log.Close()
	return err
}
