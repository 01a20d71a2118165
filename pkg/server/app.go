package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"SigDerive/internal/service/ratelimit"
	"SigDerive/internal/usecase"
	pkgch "SigDerive/pkg/clickhouse"
	"SigDerive/pkg/config"
	xhttp "SigDerive/pkg/http"
	pkgkafka "SigDerive/pkg/kafka"
	applogger "SigDerive/pkg/logger"
)

// App encapsulates the entire application lifecycle. Optional parts (collector, consumer,
// redis, producer, limiter) are nil when disabled by config.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	handler    xhttp.Handler
	collector  *usecase.SampleCollector
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	chClient   *pkgch.Client
	redis      *redis.Client
	producer   *pkgkafka.Producer
	limiter    *ratelimit.Limiter
	httpServer *xhttp.Server
}

// Deps groups everything App owns.
type Deps struct {
	Handler   xhttp.Handler
	Collector *usecase.SampleCollector
	Consumer  *pkgkafka.Consumer
	Ingest    pkgkafka.MessageHandler
	CH        *pkgch.Client
	Redis     *redis.Client
	Producer  *pkgkafka.Producer
	Limiter   *ratelimit.Limiter
}

func New(cfg *config.Config, l *applogger.Logger, d Deps) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{
		cfg:       cfg,
		log:       l,
		handler:   d.Handler,
		collector: d.Collector,
		consumer:  d.Consumer,
		kh:        d.Ingest,
		chClient:  d.CH,
		redis:     d.Redis,
		producer:  d.Producer,
		limiter:   d.Limiter,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := []xhttp.ServerOption{
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(a.cfg.Server.AllowedOrigins),
	}
	if a.cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(a.cfg.Metrics.Path))
	} else {
		opts = append(opts, xhttp.WithMetrics(""))
	}
	a.httpServer = xhttp.NewServer(a.log, a.handler, opts...)

	if a.limiter != nil {
		go a.sweepLimiter(ctx)
	}

	if a.collector != nil {
		if err := a.collector.Start(ctx); err != nil {
			a.log.Error("collector error", applogger.Error(err))
		} else {
			a.log.Info("collector started", applogger.Strings("channels", a.cfg.Collector.Channels))
		}
	}

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		if err := a.consumer.Start(); err != nil {
			a.log.Error("kafka consumer error", applogger.Error(err))
		} else {
			a.log.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
		}
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

func (a *App) sweepLimiter(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.limiter.Sweep(10 * time.Minute); n > 0 {
				a.log.Debug("rate limiter swept", applogger.Int("buckets", n))
			}
		}
	}
}

// shutdown stops inbound traffic first, then ingest, then closes the pools.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			a.log.Warn("collector stop error", applogger.Error(err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("redis close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
