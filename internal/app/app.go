// Package app wires the storefront: configuration, storage, sessions,
// payments, routing and the Telegram runtime options.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/starshop/core/bootstrap"
	coredatabase "github.com/m3rciful/starshop/core/database"
	"github.com/m3rciful/starshop/core/logger"
	"github.com/m3rciful/starshop/core/state"
	coretelegram "github.com/m3rciful/starshop/core/telegram"
	"github.com/m3rciful/starshop/core/telegram/netutil"
	tgsender "github.com/m3rciful/starshop/core/telegram/sender"
	"github.com/m3rciful/starshop/internal/access"
	"github.com/m3rciful/starshop/internal/httpserver"
	"github.com/m3rciful/starshop/internal/metrics"
	"github.com/m3rciful/starshop/internal/payments"
	"github.com/m3rciful/starshop/internal/session"
	"github.com/m3rciful/starshop/internal/shop"
	"github.com/m3rciful/starshop/internal/store"
	"github.com/m3rciful/starshop/internal/tgbot"
	"github.com/m3rciful/starshop/migrations"
)

const (
	sweepInterval   = time.Minute
	shutdownTimeout = 5 * time.Second
)

// App holds the wired storefront.
type App struct {
	cfg *Config

	store      store.Store
	redis      *redis.Client
	metrics    *metrics.Metrics
	dispatcher *tgsender.Dispatcher
	client     *tgbot.Client
	router     *shop.Router
	http       *httpserver.Server

	stopSweeper context.CancelFunc
}

// Bootstrap initializes logging and infrastructure and wires every
// storefront component. The bot itself is created later by the runtime.
func Bootstrap(ctx context.Context, cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}

	var dbCfg *coredatabase.Config
	if cfg.Store.Driver == store.DriverPostgres {
		dbCfg = &cfg.Store.Postgres
	}
	res, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:     &cfg.Config,
		Database:   dbCfg,
		Migrations: migrations.Files,
	})
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg}
	if err := a.openStore(res); err != nil {
		return nil, err
	}
	sessions, err := a.openSessions(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.metrics = metrics.Registry(cfg.HTTP.Namespace)
	// Notifications are not idempotent, so only requests that never left
	// the process are retried.
	a.dispatcher = tgsender.NewDispatcher(tgsender.Options{
		MaxRetries: 2,
		Retryable:  netutil.NotSent,
	})
	a.client = tgbot.NewClient()

	guard := access.NewGuard(cfg.Telegram.AdminIDs)
	notifier := payments.NewAdminNotifier(a.client, guard.Admins(), a.dispatcher, a.metrics)
	coordinator := payments.NewCoordinator(a.store, a.client, a.client, notifier, payments.Options{
		Currency:          cfg.Payments.Currency,
		ProviderToken:     cfg.Payments.ProviderToken,
		StrictPreCheckout: cfg.Payments.StrictPreCheckout,
		Recorder:          a.metrics,
	})
	a.router = shop.NewRouter(shop.Deps{
		Store:    a.store,
		Sessions: session.New(sessions),
		Guard:    guard,
		Payments: coordinator,
		Out:      a.client,
		Errors:   a.metrics,
	})

	if cfg.HTTP.Listen != "" {
		a.http = httpserver.New(cfg.HTTP.Listen, a.store, prometheus.DefaultGatherer)
	}

	logger.Info(ctx, logger.CompApp, "bootstrap",
		slog.String("status", "ok"),
		slog.String("store", cfg.Store.Driver),
		slog.String("sessions", cfg.Session.Backend),
		slog.Int("admins", len(guard.Admins())),
		slog.Bool("strict_pre_checkout", cfg.Payments.StrictPreCheckout),
	)
	return a, nil
}

func (a *App) openStore(res *bootstrap.Result) error {
	switch a.cfg.Store.Driver {
	case store.DriverPostgres:
		a.store = store.NewPostgres(res.DB)
	default:
		s, err := store.OpenBolt(a.cfg.Store.BoltPath)
		if err != nil {
			return err
		}
		a.store = s
	}
	return nil
}

func (a *App) openSessions(ctx context.Context) (state.Manager, error) {
	ttl := a.cfg.Session.TTL
	if a.cfg.Session.Backend == SessionRedis {
		client, err := state.NewRedisClient(ctx, a.cfg.Session.Redis)
		if err != nil {
			return nil, fmt.Errorf("app: sessions: %w", err)
		}
		a.redis = client
		return state.NewRedisManager(client, ttl), nil
	}

	mem := state.NewMemoryManager(ttl)
	sweepCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.stopSweeper = cancel
	go mem.RunSweeper(sweepCtx, sweepInterval)
	return mem, nil
}

// TelegramRunOptions implements cmd.TelegramApp.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := tgbot.Registry()
	return coretelegram.RunOptions{
		Config:      &a.cfg.Config,
		Registry:    reg,
		Dispatcher:  a.dispatcher,
		Middlewares: coretelegram.DefaultMiddlewares(&a.cfg.Config, a.metrics, nil),
		Routes:      tgbot.Routes(reg, a.router),
		OnStart: func(_ context.Context, rt coretelegram.Runtime) error {
			a.client.Bind(rt.Bot)
			a.startHTTP()
			return nil
		},
		OnStop: func(ctx context.Context, _ coretelegram.Runtime) error {
			return a.stopHTTP(ctx)
		},
	}, nil
}

func (a *App) startHTTP() {
	if a.http == nil {
		return
	}
	go func() {
		if err := a.http.Start(); err != nil {
			logger.Error(logger.Background(), logger.CompHTTP, "listen", slog.String("status", "fail"), logger.Err(err))
		}
	}()
}

func (a *App) stopHTTP(ctx context.Context) error {
	if a.http == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return a.http.Shutdown(ctx)
}

// Close releases the store and session backends.
func (a *App) Close() error {
	if a.stopSweeper != nil {
		a.stopSweeper()
	}
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}
