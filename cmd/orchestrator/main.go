package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/sync/errgroup"

	specapp "github.com/aegis-tests/orchestrator/internal/app/specification"
	"github.com/aegis-tests/orchestrator/internal/config"
	"github.com/aegis-tests/orchestrator/internal/domain/specification"
	"github.com/aegis-tests/orchestrator/internal/infra/messaging"
	"github.com/aegis-tests/orchestrator/internal/infra/messaging/factory"
	"github.com/aegis-tests/orchestrator/internal/infra/messaging/rabbitmq"
	"github.com/aegis-tests/orchestrator/internal/infra/storage"
	"github.com/aegis-tests/orchestrator/internal/infra/storage/specification/memory"
	"github.com/aegis-tests/orchestrator/internal/infra/storage/specification/postgres"
	"github.com/aegis-tests/orchestrator/pkg/common"
	"github.com/aegis-tests/orchestrator/pkg/common/logger"
	"github.com/aegis-tests/orchestrator/pkg/common/otel"
)

const serviceType = "orchestrator"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "orchestrator: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_, _ = maxprocs.Set()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewLoader("").Load(ctx)
	if err != nil {
		return err
	}

	hostname, err := os.Hostname()
	if err != nil {
		return fmt.Errorf("failed to get hostname: %w", err)
	}

	log, err := newLogger(cfg, hostname)
	if err != nil {
		return err
	}

	tracer, mp, teardown, err := initTelemetry(log, cfg, hostname)
	if err != nil {
		return err
	}
	defer teardown(context.Background())

	repo, catalog, closeStore, err := openStores(ctx, log, cfg, tracer)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	msgMetrics := messaging.NewPrometheusMetrics(reg)
	publisher, err := factory.New(ctx, messagingConfig(cfg), log, msgMetrics, tracer)
	if err != nil {
		return fmt.Errorf("failed to create event publisher: %w", err)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error(context.Background(), "Failed to close event publisher", "error", err)
		}
	}()

	svcMetrics, err := specapp.NewMetrics(mp)
	if err != nil {
		return fmt.Errorf("failed to create service metrics: %w", err)
	}
	svc := specapp.NewService(repo, catalog, publisher, svcMetrics, log, tracer)

	consumer, closeConsumer, err := newStatusConsumer(ctx, cfg, publisher.Provider(), svc, log, msgMetrics, tracer)
	if err != nil {
		return err
	}
	defer closeConsumer()

	ready := &atomic.Bool{}
	healthServer, err := common.NewHealthServer(cfg.Health.Addr, ready, reg)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if consumer != nil {
		g.Go(func() error { return consumer.Run(gctx) })
	}
	g.Go(func() error {
		log.Info(gctx, "Health server listening", "addr", cfg.Health.Addr)
		if err := healthServer.Server().ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		ready.Store(false)
		log.Info(context.Background(), "Shutting down", "reason", context.Cause(gctx))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return healthServer.Server().Shutdown(shutdownCtx)
	})

	ready.Store(true)
	log.Info(ctx, "Orchestrator initialized",
		"messaging_provider", publisher.Provider(),
		"persistent_storage", cfg.Database.URL != "",
	)

	return g.Wait()
}

func newLogger(cfg *config.Config, hostname string) (*logger.Logger, error) {
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	logEvents := logger.Events{
		Error: func(ctx context.Context, r logger.Record) {
			errorAttrs := map[string]any{
				"error_message": r.Message,
				"error_time":    r.Time.UTC().Format(time.RFC3339),
				"trace_id":      otel.GetTraceID(ctx),
			}
			for k, v := range r.Attributes {
				errorAttrs[k] = v
			}

			errorAttrsJSON, err := json.Marshal(errorAttrs)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to marshal error attributes: %v\n", err)
				return
			}
			fmt.Fprintf(os.Stderr, "Error event: %s, details: %s\n", r.Message, errorAttrsJSON)
		},
	}

	traceIDFn := func(ctx context.Context) string { return otel.GetTraceID(ctx) }

	svcName := fmt.Sprintf("%s-%s", cfg.Service.Name, hostname)
	metadata := map[string]string{
		"service":   svcName,
		"hostname":  hostname,
		"pod":       os.Getenv("POD_NAME"),
		"namespace": os.Getenv("POD_NAMESPACE"),
		"app":       serviceType,
	}

	return logger.NewWithMetadata(os.Stdout, level, svcName, traceIDFn, logEvents, metadata), nil
}

// initTelemetry exports traces and metrics over OTLP when enabled. Otherwise
// spans are dropped and metrics stay in process.
func initTelemetry(
	log *logger.Logger,
	cfg *config.Config,
	hostname string,
) (trace.Tracer, metric.MeterProvider, func(context.Context), error) {
	if !cfg.Telemetry.Enabled {
		tracer := noop.NewTracerProvider().Tracer(cfg.Service.Name)
		return tracer, otel.NewMeterProvider(cfg.Service.Name), func(context.Context) {}, nil
	}

	tp, teardown, err := otel.InitTelemetry(log, otel.Config{
		ServiceName:      cfg.Service.Name,
		ExporterEndpoint: cfg.Telemetry.Endpoint,
		ExcludedRoutes: map[string]struct{}{
			"/v1/health":    {},
			"/v1/readiness": {},
			"/metrics":      {},
		},
		Probability: cfg.Telemetry.SamplingRatio,
		ResourceAttributes: map[string]string{
			"library.language": "go",
			"k8s.pod.name":     os.Getenv("POD_NAME"),
			"k8s.namespace":    os.Getenv("POD_NAMESPACE"),
			"k8s.container.id": hostname,
		},
		InsecureExporter: true,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	return tp.Tracer(cfg.Service.Name), otel.GetMeterProvider(), teardown, nil
}

// openStores connects to Postgres and applies migrations. Without a database
// URL the process runs on in-memory stores and loses state on restart.
func openStores(
	ctx context.Context,
	log *logger.Logger,
	cfg *config.Config,
	tracer trace.Tracer,
) (specification.Repository, specification.APICallCatalog, func(), error) {
	if cfg.Database.URL == "" {
		log.Warn(ctx, "No database configured, using in-memory storage")
		return memory.NewSpecificationStore(), memory.NewAPICallStore(), func() {}, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to parse db config: %w", err)
	}
	poolCfg.MinConns = cfg.Database.MinConns
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.ConnConfig.Tracer = otelpgx.NewTracer()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := storage.MigrateUp(pool, cfg.Database.MigrationsPath); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info(ctx, "Migrations applied successfully")

	return postgres.NewSpecificationStore(pool, tracer),
		postgres.NewAPICallStore(pool, tracer),
		pool.Close,
		nil
}

// newStatusConsumer dials a dedicated RabbitMQ connection for worker status
// reports. Other providers carry no status reports and get a nil consumer.
func newStatusConsumer(
	ctx context.Context,
	cfg *config.Config,
	provider messaging.Provider,
	svc *specapp.Service,
	log *logger.Logger,
	metrics messaging.ConsumerMetrics,
	tracer trace.Tracer,
) (*rabbitmq.Consumer, func(), error) {
	if provider != messaging.ProviderQueue {
		log.Info(ctx, "Status updates are only consumed from RabbitMQ", "messaging_provider", provider)
		return nil, func() {}, nil
	}

	conn, err := rabbitmq.Connect(ctx, cfg.Messaging.RabbitMQ.URL, cfg.Messaging.ConnectMaxElapsed, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect status consumer: %w", err)
	}
	closeConn := func() {
		if err := conn.Close(); err != nil {
			log.Error(context.Background(), "Failed to close status consumer connection", "error", err)
		}
	}

	source, err := conn.Deliveries(cfg.Messaging.RabbitMQ.Prefetch)
	if err != nil {
		closeConn()
		return nil, nil, fmt.Errorf("failed to open status deliveries: %w", err)
	}

	return rabbitmq.NewConsumer(source, svc.HandleStatusUpdate, log, metrics, tracer), closeConn, nil
}

func messagingConfig(cfg *config.Config) factory.Config {
	m := cfg.Messaging
	return factory.Config{
		Provider:               messaging.Provider(m.Provider),
		ConnectMaxElapsed:      m.ConnectMaxElapsed,
		RabbitMQURL:            m.RabbitMQ.URL,
		RabbitMQConfirmTimeout: m.RabbitMQ.ConfirmTimeout,
		PubSubProjectID:        m.PubSub.ProjectID,
		PubSubTopic:            m.PubSub.TestGenerationRequestedTopic,
		KafkaBrokers:           m.Kafka.Brokers,
		KafkaTopic:             m.Kafka.Topic,
		KafkaClientID:          m.Kafka.ClientID,
	}
}
