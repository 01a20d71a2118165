package di

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"SigDerive/internal/domain/repository"
	"SigDerive/internal/handler/api"
	mid "SigDerive/internal/middleware"
	internalrepo "SigDerive/internal/repository"
	"SigDerive/internal/service/ratelimit"
	"SigDerive/internal/service/stream"
	"SigDerive/internal/services/derived"
	"SigDerive/internal/usecase"
	pkgch "SigDerive/pkg/clickhouse"
	"SigDerive/pkg/config"
	xhttp "SigDerive/pkg/http"
	pkgkafka "SigDerive/pkg/kafka"
	applogger "SigDerive/pkg/logger"
	"SigDerive/pkg/metrics"
	pkgredis "SigDerive/pkg/redis"
	"SigDerive/pkg/server"
)

// ProvideLogger builds the process logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("service", cfg.Service.Name)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient opens the ClickHouse pool and creates the schema when configured.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithPool(cfg.ClickHouse.MaxOpenConns, cfg.ClickHouse.MaxIdleConns, time.Hour),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	if cfg.ClickHouse.InitSchema {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.InitSchema(ctx, pkgch.SchemaStatements(cfg.ClickHouse.Database)); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
	}
	l.Info("clickhouse ready",
		applogger.String("host", cfg.ClickHouse.Host),
		applogger.String("database", cfg.ClickHouse.Database),
	)
	return client, nil
}

// ProvideRedisClient connects to Redis when it backs the registry; nil otherwise.
func ProvideRedisClient(cfg *config.Config) (*redis.Client, error) {
	if cfg.Registry.Backend != "redis" {
		return nil, nil
	}
	client, err := pkgredis.NewClient(cfg.Redis.Addr,
		pkgredis.WithPassword(cfg.Redis.Password),
		pkgredis.WithDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis client: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates the shared producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates the sample ingest consumer, or nil when it is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
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

func ProvideChannelStore(ch *pkgch.Client, l *applogger.Logger) repository.TimeSeriesStore {
	return internalrepo.NewCHChannelStore(ch, l)
}

func ProvideSampleWriter(ch *pkgch.Client) repository.SampleWriter {
	return internalrepo.NewCHSampleWriter(ch)
}

// ProvideSignalRegistry picks the registry backend from config.
func ProvideSignalRegistry(cfg *config.Config, ch *pkgch.Client, rdb *redis.Client, l *applogger.Logger) (repository.SignalRegistry, error) {
	switch cfg.Registry.Backend {
	case "clickhouse":
		return internalrepo.NewCHSignalRegistry(ch, l), nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("redis registry without a redis client")
		}
		return internalrepo.NewRedisSignalRegistry(rdb, cfg.Redis.KeyPrefix), nil
	case "memory":
		return internalrepo.NewMemorySignalRegistry(), nil
	default:
		return nil, fmt.Errorf("unknown registry backend: %s", cfg.Registry.Backend)
	}
}

func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.EventPublisher {
	if producer == nil {
		return internalrepo.NopEventPublisher{}
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.EventsTopic)
}

func ProvideSamplePublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.SamplePublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaSamplePublisher(producer, cfg.Kafka.SamplesTopic)
}

func ProvideEngine(cfg *config.Config) *derived.Engine {
	return derived.NewEngine(derived.WithMaxFormulaLength(cfg.Derived.MaxFormulaLength))
}

func ProvideDerivedSignalUseCase(
	store repository.TimeSeriesStore,
	engine *derived.Engine,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.DerivedSignalUseCase {
	return usecase.NewDerivedSignalUseCase(store, engine, m, l, cfg.Derived.FetchConcurrency, cfg.Derived.FetchTimeout)
}

func ProvideRegistryUseCase(
	registry repository.SignalRegistry,
	events repository.EventPublisher,
	engine *derived.Engine,
	eval *usecase.DerivedSignalUseCase,
	l *applogger.Logger,
) *usecase.RegistryUseCase {
	return usecase.NewRegistryUseCase(registry, events, engine, eval, l)
}

// ProvideRateLimiter returns nil when rate limiting is disabled.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
}

// ProvideHTTPHandler assembles every route group served by the app.
func ProvideHTTPHandler(
	cfg *config.Config,
	l *applogger.Logger,
	eval *usecase.DerivedSignalUseCase,
	registry *usecase.RegistryUseCase,
	rl *ratelimit.Limiter,
	store repository.TimeSeriesStore,
) xhttp.Handler {
	return xhttp.Handlers{
		api.NewDerivedEchoHandler(l, eval, registry, rl),
		api.NewHealthEchoHandler(l, store, cfg.Service.Name, cfg.Service.Version),
	}
}

// ProvideSampleStream creates the websocket feed, or nil when the collector is disabled.
func ProvideSampleStream(cfg *config.Config, l *applogger.Logger) repository.SampleStream {
	if !cfg.Collector.Enabled {
		return nil
	}
	return stream.New(
		cfg.Collector.URL,
		cfg.Collector.Channels,
		cfg.Collector.ReconnectDelay,
		cfg.Collector.PingInterval,
		l,
	)
}

func ProvideSampleProcessor(
	pub repository.SamplePublisher,
	writer repository.SampleWriter,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.SampleProcessor {
	return usecase.NewSampleProcessor(pub, writer, m, cfg.Collector.Backend)
}

// ProvideSampleCollector builds the collector with a batching pipeline in front of the
// processor; nil when the collector is disabled.
func ProvideSampleCollector(
	cfg *config.Config,
	s repository.SampleStream,
	processor *usecase.SampleProcessor,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.SampleCollector {
	if s == nil {
		return nil
	}
	pipe := mid.NewSamplePipeline(processor, m,
		mid.WithBatchSize(cfg.Collector.BatchSize),
		mid.WithBatchTimeout(cfg.Collector.BatchTimeout),
	)
	return usecase.NewSampleCollector(s, processor, m, pipe, l)
}

func ProvideKafkaSamplesHandler(cfg *config.Config, writer repository.SampleWriter, m repository.Metrics) *usecase.KafkaSamplesHandler {
	return usecase.NewKafkaSamplesHandler(cfg.Kafka.SamplesTopic, writer, m)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	collector *usecase.SampleCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaSamplesHandler,
	chClient *pkgch.Client,
	rdb *redis.Client,
	producer *pkgkafka.Producer,
	rl *ratelimit.Limiter,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.HookFuncs{
			Err: func(_ context.Context, topic string, _ kafkago.Message, err error) {
				l.Warn("kafka handler error", applogger.String("topic", topic), applogger.Error(err))
			},
		})
	}
	return server.New(cfg, l, server.Deps{
		Handler:   handler,
		Collector: collector,
		Consumer:  consumer,
		Ingest:    kh,
		CH:        chClient,
		Redis:     rdb,
		Producer:  producer,
		Limiter:   rl,
	})
}
