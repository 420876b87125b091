package di

import (
	"context"
	"fmt"
	"os"
	"time"

	"StockHolo/internal/domain/models"
	"StockHolo/internal/domain/repository"
	dsvc "StockHolo/internal/domain/service"
	"StockHolo/internal/handler/api"
	mid "StockHolo/internal/middleware"
	"StockHolo/internal/render"
	internalrepo "StockHolo/internal/repository"
	"StockHolo/internal/service/cache"
	"StockHolo/internal/service/finnhub"
	"StockHolo/internal/services/encoder"
	"StockHolo/internal/services/market"
	"StockHolo/internal/services/sentiment"
	"StockHolo/internal/usecase"
	"StockHolo/pkg/config"
	xhttp "StockHolo/pkg/http"
	pkgkafka "StockHolo/pkg/kafka"
	applogger "StockHolo/pkg/logger"
	"StockHolo/pkg/metrics"
	"StockHolo/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder on the default registry.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New(nil)
}

func ProvideEncoder(cfg *config.Config) *encoder.Encoder {
	return encoder.New(cfg.Encoder)
}

func ProvideAggregator(cfg *config.Config, enc *encoder.Encoder) *market.Aggregator {
	return market.NewAggregator(cfg.Market.Config, enc)
}

// ProvideFinnhubClient creates the REST client, or nil when Finnhub is off.
func ProvideFinnhubClient(cfg *config.Config) *finnhub.Client {
	if !cfg.Finnhub.Enabled {
		return nil
	}
	return finnhub.NewClient(cfg.Finnhub.APIKey,
		finnhub.WithBaseURL(cfg.Finnhub.BaseURL),
		finnhub.WithTimeout(cfg.Finnhub.Timeout),
		finnhub.WithRateLimit(cfg.Finnhub.RequestsPerSecond, cfg.Finnhub.Burst),
		finnhub.WithBreaker(cfg.Finnhub.BreakerFailures, cfg.Finnhub.BreakerCooldown),
	)
}

// ProvideMarketDataSource exposes the client as a quote source. A nil client
// yields a nil interface so callers fall back to simulation.
func ProvideMarketDataSource(c *finnhub.Client) repository.MarketDataSource {
	if c == nil {
		return nil
	}
	return c
}

func ProvideNewsSource(c *finnhub.Client) repository.NewsSource {
	if c == nil {
		return nil
	}
	return c
}

// ProvideCache picks Redis when configured and an in-process TTL cache
// otherwise.
func ProvideCache(cfg *config.Config, logger *applogger.Logger) (cache.BytesCache, func(), error) {
	if !cfg.Redis.Enabled {
		return cache.NewTTLCache(), func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	cleanup := func() {
		if err := rc.Close(); err != nil {
			logger.Warn("redis close error", applogger.Error(err))
		}
	}
	return rc, cleanup, nil
}

func ProvideSentimentService(cfg *config.Config, news repository.NewsSource, bc cache.BytesCache, logger *applogger.Logger, m repository.Metrics) *sentiment.Service {
	return sentiment.NewService(news, logger.With("sentiment"), m, sentiment.WithCache(bc, cfg.News.CacheTTL))
}

// ProvideMarketStore seeds the store from the configured symbols. Symbols
// outside the seed list are added as if an operator had added them.
func ProvideMarketStore(cfg *config.Config, agg *market.Aggregator, m repository.Metrics, logger *applogger.Logger, src repository.MarketDataSource) (*usecase.MarketStore, error) {
	var opts []usecase.StoreOption
	if len(cfg.Market.Symbols) > 0 {
		opts = append(opts, usecase.WithInitialStocks(agg.SeedStocks(time.Now(), cfg.Market.Symbols...)))
	}
	if cfg.Market.RandomSeed != 0 {
		opts = append(opts, usecase.WithSeed(cfg.Market.RandomSeed))
	}
	if src != nil {
		opts = append(opts, usecase.WithDataSource(src))
	}
	store := usecase.NewMarketStore(agg, m, logger, opts...)

	if len(cfg.Market.Symbols) == 0 {
		return store, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Finnhub.Timeout)
	defer cancel()
	seen := make(map[string]bool, len(cfg.Market.Symbols))
	for _, sym := range cfg.Market.Symbols {
		norm := models.NormalizeSymbol(sym)
		if seen[norm] {
			continue
		}
		seen[norm] = true
		if _, ok := store.Get(norm); ok {
			continue
		}
		if _, err := store.AddSymbol(ctx, norm); err != nil {
			return nil, fmt.Errorf("market symbol %q: %w", sym, err)
		}
	}
	store.Arrange(cfg.Market.Symbols)
	return store, nil
}

// ProvideQuotePipeline is the pipeline shared by REST polling and the stream.
func ProvideQuotePipeline(store *usecase.MarketStore, m repository.Metrics) *mid.QuotePipeline {
	return mid.NewQuotePipeline(store, m)
}

func ProvideRefresher(cfg *config.Config, store *usecase.MarketStore, src repository.MarketDataSource, pipe *mid.QuotePipeline, m repository.Metrics, logger *applogger.Logger) *usecase.Refresher {
	return usecase.NewRefresher(store, src, pipe, m, logger, usecase.RefresherConfig{
		DriftInterval: cfg.Refresh.DriftInterval,
		QuoteInterval: cfg.Refresh.QuoteInterval,
		QuoteTimeout:  cfg.Refresh.QuoteTimeout,
	})
}

func ProvideNewsUpdater(cfg *config.Config, store *usecase.MarketStore, svc dsvc.NewsSentiment, m repository.Metrics, logger *applogger.Logger) *usecase.NewsUpdater {
	return usecase.NewNewsUpdater(store, svc, m, logger, usecase.NewsUpdaterConfig{
		Interval:    cfg.News.Interval,
		Days:        cfg.News.Days,
		BlendWeight: cfg.News.BlendWeight,
		HistorySize: cfg.News.HistorySize,
	})
}

// ProvideStreamCollector creates the trade stream collector, or nil when
// streaming is off.
func ProvideStreamCollector(cfg *config.Config, pipe *mid.QuotePipeline, m repository.Metrics, logger *applogger.Logger) *usecase.StreamCollector {
	if !cfg.Finnhub.Stream {
		return nil
	}
	stream := finnhub.NewStream(
		cfg.Finnhub.APIKey,
		cfg.Finnhub.WebSocketURL,
		nil,
		cfg.Finnhub.ReconnectDelay,
		cfg.Finnhub.PingInterval,
		logger,
	)
	return usecase.NewStreamCollector(stream, pipe, m, logger)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is off.
func ProvideKafkaProducer(cfg *config.Config, logger *applogger.Logger) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatch(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	cleanup := func() {
		if err := producer.Close(); err != nil {
			logger.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	return producer, cleanup, nil
}

// ProvideKafkaConsumer creates a consumer for the quotes topic, or nil.
func ProvideKafkaConsumer(cfg *config.Config, logger *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(logger,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideQuotesHandler builds the quotes topic handler with its own throttle.
func ProvideQuotesHandler(cfg *config.Config, store *usecase.MarketStore, m repository.Metrics) *usecase.QuotesHandler {
	pipe := mid.NewQuotePipeline(store, m, mid.WithMaxRPS(float64(cfg.Kafka.Consumer.MaxRPS)))
	return usecase.NewQuotesHandler(cfg.Kafka.QuotesTopic, pipe, m)
}

func ProvideHub(cfg *config.Config, store *usecase.MarketStore, logger *applogger.Logger) *render.Hub {
	return render.NewHub(store.Frame, logger, cfg.Render.ClientBuffer, cfg.Render.WriteTimeout)
}

// ProvideDispatcher attaches every enabled render surface.
func ProvideDispatcher(cfg *config.Config, m repository.Metrics, logger *applogger.Logger, hub *render.Hub, producer *pkgkafka.Producer) *render.Dispatcher {
	d := render.NewDispatcher(m, logger, hub)
	if producer != nil {
		d.Add(internalrepo.NewKafkaFramePublisher(producer, cfg.Kafka.FramesTopic))
	}
	if cfg.Render.Console {
		d.Add(render.NewConsole(os.Stdout, cfg.Render.ConsoleInterval))
	}
	return d
}

// ProvideHandlers collects the HTTP route groups.
func ProvideHandlers(
	cfg *config.Config,
	logger *applogger.Logger,
	store *usecase.MarketStore,
	refresher *usecase.Refresher,
	news *usecase.NewsUpdater,
	enc *encoder.Encoder,
	src repository.MarketDataSource,
	collector *usecase.StreamCollector,
	svc dsvc.NewsSentiment,
	hub *render.Hub,
) []xhttp.Handler {
	var watcher api.SymbolWatcher
	if collector != nil {
		watcher = collector
	}
	return []xhttp.Handler{
		api.NewMarketEchoHandler(logger, store, refresher, news, enc, src, watcher),
		api.NewSentimentEchoHandler(logger, svc),
		api.NewStreamEchoHandler(cfg.Render.WebSocketPath, hub),
	}
}

func ProvideHTTPServer(cfg *config.Config, logger *applogger.Logger, handlers []xhttp.Handler) *xhttp.Server {
	var origins []string
	if cfg.Server.CORS {
		origins = []string{"*"}
	}
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(logger, handlers,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowRequest(cfg.Server.SlowRequest),
		xhttp.WithCORSOrigins(origins),
		xhttp.WithMetricsPath(metricsPath),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	store *usecase.MarketStore,
	refresher *usecase.Refresher,
	news *usecase.NewsUpdater,
	dispatcher *render.Dispatcher,
	collector *usecase.StreamCollector,
	consumer *pkgkafka.Consumer,
	quotes *usecase.QuotesHandler,
	httpServer *xhttp.Server,
) *server.App {
	return server.New(server.Deps{
		Config:        cfg,
		Logger:        logger,
		Store:         store,
		Refresher:     refresher,
		News:          news,
		Dispatcher:    dispatcher,
		Collector:     collector,
		Consumer:      consumer,
		QuotesHandler: quotes,
		HTTPServer:    httpServer,
	})
}
