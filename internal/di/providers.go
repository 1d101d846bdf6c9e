package di

import (
	"context"
	"fmt"
	"time"

	"MacroPulse/internal/analytics/forward"
	"MacroPulse/internal/analytics/judge"
	"MacroPulse/internal/analytics/scorer"
	"MacroPulse/internal/analytics/signals"
	domrepo "MacroPulse/internal/domain/repository"
	"MacroPulse/internal/domain/service"
	"MacroPulse/internal/handler/api"
	internalrepo "MacroPulse/internal/repository"
	"MacroPulse/internal/usecase"
	"MacroPulse/pkg/cache"
	pkgch "MacroPulse/pkg/clickhouse"
	"MacroPulse/pkg/config"
	pkgkafka "MacroPulse/pkg/kafka"
	"MacroPulse/pkg/logger"
	"MacroPulse/pkg/metrics"
	"MacroPulse/pkg/server"
)

// ProvideLogger creates the application logger. Console output in dev,
// JSON elsewhere.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	return logger.New(&logger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideClickHouseClient creates a ClickHouse client and initializes the
// panel schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		`CREATE TABLE IF NOT EXISTS ` + db + `.panel_obs (
			date Date,
			indicator LowCardinality(String),
			value Float64,
			inserted_at DateTime DEFAULT now()
		) ENGINE = ReplacingMergeTree(inserted_at)
		ORDER BY (indicator, date)`,
		`CREATE TABLE IF NOT EXISTS ` + db + `.evaluations (
			date Date,
			created_at DateTime DEFAULT now(),
			regime LowCardinality(String),
			confidence LowCardinality(String),
			score Float64,
			tier LowCardinality(String),
			forward_score Float64,
			payload String
		) ENGINE = MergeTree
		ORDER BY (date, created_at)`,
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvidePanelStore creates the ClickHouse-backed panel repository. The
// concrete store serves both reads and snapshot writes.
func ProvidePanelStore(chClient *pkgch.Client, cfg *config.Config, l *logger.Logger) *internalrepo.CHPanelStore {
	store := internalrepo.NewCHPanelStore(chClient, cfg.ClickHouse.Database)
	store.SetLogger(l)
	return store
}

// ProvidePanelSource exposes the store as a read-side panel source.
func ProvidePanelSource(store *internalrepo.CHPanelStore) domrepo.PanelSource { return store }

// ProvideSnapshotStore exposes the store as an evaluation snapshot store.
func ProvideSnapshotStore(store *internalrepo.CHPanelStore) domrepo.SnapshotStore { return store }

// ProvidePublisher creates the Kafka evaluation publisher.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.EvaluationsTopic)
}

// ProvideCache builds the cache per config: in-process memory, Redis, or
// both layered.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	switch cfg.Cache.Type {
	case "redis", "layered":
		rc, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Cache.Redis.Host),
			cache.WithRedisPort(cfg.Cache.Redis.Port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		if cfg.Cache.Type == "layered" {
			return cache.NewLayeredCache(rc, 1024), nil
		}
		return rc, nil
	default:
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(1024)), nil
	}
}

// ProvideSignalEngine creates the signal engine.
func ProvideSignalEngine(cfg *config.Config, l *logger.Logger) service.SignalEngine {
	e := signals.NewEngine(cfg.Analytics)
	e.SetLogger(l)
	return e
}

// ProvideJudgmentEngine creates the judgment engine.
func ProvideJudgmentEngine(cfg *config.Config) service.JudgmentEngine {
	return judge.NewEngine(cfg.Analytics)
}

// ProvideCompositeScorer creates the composite scorer.
func ProvideCompositeScorer(cfg *config.Config, l *logger.Logger) service.CompositeScorer {
	e := scorer.NewEngine(cfg.Analytics)
	e.SetLogger(l)
	return e
}

// ProvideForwardAnalyzer creates the forward analyzer.
func ProvideForwardAnalyzer(cfg *config.Config, l *logger.Logger) service.ForwardAnalyzer {
	a := forward.NewAnalyzer(cfg.Analytics)
	a.SetLogger(l)
	return a
}

// ProvideEvaluator creates the evaluation pipeline use case.
func ProvideEvaluator(
	source domrepo.PanelSource,
	store domrepo.SnapshotStore,
	pub domrepo.Publisher,
	cch cache.Service,
	m domrepo.Metrics,
	se service.SignalEngine,
	je service.JudgmentEngine,
	cs service.CompositeScorer,
	fa service.ForwardAnalyzer,
	cfg *config.Config,
	l *logger.Logger,
) *usecase.Evaluator {
	eval := usecase.NewEvaluator(source, store, pub, cch, m, se, je, cs, fa, cfg)
	eval.SetLogger(l)
	return eval
}

// ProvideKafkaPanelHandler registers the handler for the panel topic.
func ProvideKafkaPanelHandler(source domrepo.PanelSource, m domrepo.Metrics, cfg *config.Config) *usecase.KafkaPanelHandler {
	return usecase.NewKafkaPanelHandler(cfg.Kafka.PanelTopic, source, m)
}

// ProvideAPIHandler creates the HTTP handler.
func ProvideAPIHandler(l *logger.Logger, eval *usecase.Evaluator) *api.AnalyticsEchoHandler {
	return api.NewAnalyticsEchoHandler(l, eval)
}

// ProvideWSHub creates the websocket broadcast hub.
func ProvideWSHub(l *logger.Logger) *api.WSHub {
	return api.NewWSHub(l)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	eval *usecase.Evaluator,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaPanelHandler,
	chClient *pkgch.Client,
	pub domrepo.Publisher,
	handler *api.AnalyticsEchoHandler,
	hub *api.WSHub,
	l *logger.Logger,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	return server.New(cfg, eval, consumer, kh, chClient, pub, handler, hub, l)
}
