package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"StockHolo/internal/render"
	"StockHolo/internal/usecase"
	"StockHolo/pkg/config"
	xhttp "StockHolo/pkg/http"
	pkgkafka "StockHolo/pkg/kafka"
	applogger "StockHolo/pkg/logger"
)

// Deps are the components the application drives. Collector, Consumer and
// QuotesHandler are optional.
type Deps struct {
	Config        *config.Config
	Logger        *applogger.Logger
	Store         *usecase.MarketStore
	Refresher     *usecase.Refresher
	News          *usecase.NewsUpdater
	Dispatcher    *render.Dispatcher
	Collector     *usecase.StreamCollector
	Consumer      *pkgkafka.Consumer
	QuotesHandler pkgkafka.MessageHandler
	HTTPServer    *xhttp.Server
}

// App encapsulates the entire application lifecycle.
type App struct {
	Deps
	logger *applogger.Logger
}

// New creates a new App instance with all dependencies.
func New(d Deps) *App {
	l := d.Logger
	if l == nil {
		l = applogger.Nop()
	}
	return &App{Deps: d, logger: l.With("app")}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		_ = a.Shutdown(context.Background())
		return err
	}
	<-ctx.Done()

	a.logger.Info("shutdown signal received")
	return a.Shutdown(context.Background())
}

// Start launches every background loop and the HTTP server.
func (a *App) Start(ctx context.Context) error {
	a.Store.Subscribe(a.Dispatcher.Dispatch)

	if a.Config.Refresh.Enabled {
		a.Refresher.Start(ctx)
	}
	if a.Config.News.Enabled {
		a.News.Start(ctx)
	}

	if a.Collector != nil {
		symbols := make([]string, 0)
		for _, s := range a.Store.Stocks() {
			symbols = append(symbols, s.Symbol)
		}
		if err := a.Collector.Start(ctx, symbols); err != nil {
			// REST polling keeps the store fresh without the stream
			a.logger.Error("stream start failed", applogger.Error(err))
		} else {
			a.logger.Info("stream started", applogger.Strings("symbols", symbols))
		}
	}

	if a.Consumer != nil && a.QuotesHandler != nil {
		a.Consumer.RegisterHandler(a.QuotesHandler)
		if err := a.Consumer.Start(); err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		a.logger.Info("kafka consumer started", applogger.String("topic", a.QuotesHandler.Topic()))
	}

	if err := a.HTTPServer.Start(); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops loops, then the HTTP server, then drains the render
// surfaces. Clients and producers are closed by the DI cleanup.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down")
	var errs []error

	a.Refresher.Stop()
	a.News.Stop()

	if a.Collector != nil {
		if err := a.Collector.Shutdown(ctx); err != nil {
			a.logger.Warn("stream close error", applogger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := a.HTTPServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}

	if a.Consumer != nil {
		if err := a.Consumer.Stop(shutdownCtx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	a.Dispatcher.Close()

	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}
