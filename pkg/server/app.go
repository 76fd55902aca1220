package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/antonbeski0/Predflux/internal/service/ratelimit"
	"github.com/antonbeski0/Predflux/internal/usecase"
	"github.com/antonbeski0/Predflux/pkg/config"
	xhttp "github.com/antonbeski0/Predflux/pkg/http"
	pkgkafka "github.com/antonbeski0/Predflux/pkg/kafka"
	applogger "github.com/antonbeski0/Predflux/pkg/logger"
)

// App encapsulates the service lifecycle. Infrastructure clients are owned
// by the injector and closed by its cleanup function.
type App struct {
	cfg       *config.Config
	l         *applogger.Logger
	server    *xhttp.Server
	runner    *usecase.ForecastRunner
	consumer  *pkgkafka.Consumer
	requests  pkgkafka.MessageHandler
	collector *usecase.LiveCollector
	limiter   *ratelimit.Limiter
}

// New creates an App. consumer, requests, collector and limiter may be nil.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	server *xhttp.Server,
	runner *usecase.ForecastRunner,
	consumer *pkgkafka.Consumer,
	requests pkgkafka.MessageHandler,
	collector *usecase.LiveCollector,
	limiter *ratelimit.Limiter,
) *App {
	return &App{
		cfg:       cfg,
		l:         l,
		server:    server,
		runner:    runner,
		consumer:  consumer,
		requests:  requests,
		collector: collector,
		limiter:   limiter,
	}
}

// Runner exposes the forecast runner for one-shot commands.
func (a *App) Runner() *usecase.ForecastRunner { return a.runner }

// Run starts every component and blocks until ctx ends, SIGINT/SIGTERM
// arrives, or a component fails.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.warmUp(ctx)

	g, gctx := errgroup.WithContext(ctx)

	if a.collector != nil {
		if err := a.collector.Start(gctx); err != nil {
			a.l.Warn("live collector not started", applogger.Error(err))
			a.collector = nil
		} else {
			a.l.Info("live collector started", applogger.Strings("symbols", a.cfg.Finnhub.Symbols))
		}
	}

	if a.consumer != nil && a.requests != nil {
		a.consumer.RegisterHandler(a.requests)
		if err := a.consumer.Start(gctx); err != nil {
			return err
		}
	}

	g.Go(a.server.Start)

	if a.limiter != nil {
		g.Go(func() error {
			t := time.NewTicker(time.Minute)
			defer t.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-t.C:
					a.limiter.Sweep()
				}
			}
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.l.Info("shutting down")
		return a.shutdown(context.Background())
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	a.l.Info("shutdown complete")
	return err
}

// warmUp restores persisted models so the first request does not pay for it.
func (a *App) warmUp(ctx context.Context) {
	single, multi := a.runner.Engines()
	if err := single.Initialize(ctx); err != nil {
		a.l.Warn("single-asset engine init", applogger.Error(err))
	}
	if err := multi.Initialize(ctx); err != nil {
		a.l.Warn("multi-asset engine init", applogger.Error(err))
	}
}

func (a *App) shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.server.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop", applogger.Error(err))
		}
	}
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			a.l.Warn("live collector stop", applogger.Error(err))
		}
	}
	return errors.Join(errs...)
}
