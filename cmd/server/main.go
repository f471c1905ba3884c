package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/internal/handlers"
	"github.com/Ramsey-B/clover/internal/repositories/assignments"
	"github.com/Ramsey-B/clover/internal/repositories/cases"
	"github.com/Ramsey-B/clover/internal/repositories/clusters"
	"github.com/Ramsey-B/clover/internal/repositories/dedupaudit"
	"github.com/Ramsey-B/clover/pkg/accessscope"
	"github.com/Ramsey-B/clover/pkg/cluster"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/dedup"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/redis"
	"github.com/Ramsey-B/clover/pkg/searchtoken"
	"github.com/Ramsey-B/clover/pkg/startup"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/tracing/exporters"
)

const version = "1.0.0"

// dependency adapts start/stop closures to the startup orderer.
type dependency struct {
	name      string
	dependsOn []string
	start     func(ctx context.Context) error
	stop      func(ctx context.Context) error
}

func (d *dependency) GetName() string     { return d.name }
func (d *dependency) DependsOn() []string { return d.dependsOn }
func (d *dependency) Start(ctx context.Context) error {
	if d.start == nil {
		return nil
	}
	return d.start(ctx)
}
func (d *dependency) Stop(ctx context.Context) error {
	if d.stop == nil {
		return nil
	}
	return d.stop(ctx)
}

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		log.Fatalf("failed to read configuration: %v", err)
	}

	logger := newLogger(cfg)
	ctx := context.Background()

	if cfg.TracingEnabled {
		var exporter sdktrace.SpanExporter = &exporters.ConsoleExporter{}
		if cfg.OTLPEndpoint != "" {
			otlp, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
				Endpoint: cfg.OTLPEndpoint,
				Protocol: cfg.OTLPProtocol,
				Insecure: true,
				Timeout:  10 * time.Second,
			})
			if err != nil {
				logger.WithError(err).Error("Failed to create OTLP exporter, falling back to console exporter")
			} else {
				exporter = otlp
			}
		}

		provider := tracing.Setup(cfg.AppName, exporter)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = provider.Shutdown(shutdownCtx)
		}()
	}

	var (
		db          database.DB
		redisClient *redis.Client
		producer    *kafka.Producer
		miner       *cluster.Miner
		e           *echo.Echo
	)

	minerCtx, cancelMiner := context.WithCancel(ctx)
	defer cancelMiner()

	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)

	boot.AddDependency(&dependency{
		name: "database",
		start: func(ctx context.Context) error {
			var err error
			db, err = database.Connect(ctx, database.ConnectionConfig{
				Driver:          cfg.DatabaseDriver,
				Host:            cfg.DatabaseHost,
				Port:            cfg.DatabasePort,
				UserName:        cfg.DatabaseUserName,
				Password:        cfg.DatabasePassword,
				Name:            cfg.DatabaseName,
				SSLMode:         cfg.DatabaseSSLMode,
				MaxOpenConns:    cfg.DatabaseMaxOpenConns,
				MaxIdleConns:    cfg.DatabaseMaxIdleConns,
				ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
			}, logger)
			return err
		},
		stop: func(ctx context.Context) error {
			if db == nil {
				return nil
			}
			return db.Close()
		},
	})

	boot.AddDependency(&dependency{
		name:      "migrations",
		dependsOn: []string{"database"},
		start: func(ctx context.Context) error {
			return runMigrations(cfg, db, logger)
		},
	})

	boot.AddDependency(&dependency{
		name: "redis",
		start: func(ctx context.Context) error {
			var err error
			redisClient, err = redis.NewClient(redis.Config{
				Host:     cfg.RedisHost,
				Port:     cfg.RedisPort,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			}, logger)
			return err
		},
		stop: func(ctx context.Context) error {
			if redisClient == nil {
				return nil
			}
			return redisClient.Close()
		},
	})

	boot.AddDependency(&dependency{
		name: "kafka",
		start: func(ctx context.Context) error {
			if !cfg.KafkaEventsEnabled {
				return nil
			}
			producer = kafka.NewProducer(kafka.ProducerConfig{
				Brokers:      cfg.KafkaBrokers,
				Topic:        cfg.KafkaOutputTopic,
				BatchSize:    cfg.KafkaBatchSize,
				BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
				RequiredAcks: cfg.KafkaRequiredAcks,
				Compression:  cfg.KafkaCompression,
			}, logger)
			return nil
		},
		stop: func(ctx context.Context) error {
			if producer == nil {
				return nil
			}
			return producer.Close()
		},
	})

	boot.AddDependency(&dependency{
		name:      "cluster-miner",
		dependsOn: []string{"database", "migrations", "redis"},
		start: func(ctx context.Context) error {
			if !cfg.ClusterMinerEnabled {
				return nil
			}
			locker := redis.NewLocker(redisClient, "")
			clusterRepo := clusters.NewRepository(db, logger)
			miner = cluster.NewMiner(clusterRepo, redisClient, locker, cluster.MinerConfig{
				ScanInterval: cfg.ClusterMinerInterval,
				LockTTL:      cfg.ClusterMinerLockTTL,
				PageSize:     cfg.ClusterMinerPageSize,
				CacheTTL:     cfg.ClusterCacheTTL,
			}, logger)
			return miner.Start(minerCtx)
		},
		stop: func(ctx context.Context) error {
			if miner != nil {
				miner.Stop()
			}
			return nil
		},
	})

	boot.AddDependency(&dependency{
		name:      "http-server",
		dependsOn: []string{"database", "migrations", "redis", "kafka", "cluster-miner"},
		start: func(ctx context.Context) error {
			caseRepo := cases.NewRepository(db, logger)
			auditRepo := dedupaudit.NewRepository(db, logger)
			clusterRepo := clusters.NewRepository(db, logger)
			assignmentRepo := assignments.NewRepository(db, logger)

			scopes := accessscope.NewResolver(assignmentRepo, logger)
			signer := searchtoken.NewSigner(cfg.SearchTokenSecret, cfg.SearchTokenMaxAge)
			emitter := events.NewEmitter(producer, logger)

			var cache dedup.ClusterCache
			if miner != nil {
				cache = miner
			}

			service := dedup.NewService(caseRepo, auditRepo, clusterRepo, cache, scopes, emitter, signer, dedup.Config{
				NameSimilarityThreshold: cfg.NameSimilarityThreshold,
				MaxCandidates:           cfg.MaxCandidates,
				ClusterPageSize:         cfg.ClusterMinerPageSize,
			}, logger)

			var err error
			e, err = buildServer(cfg, logger, db, redisClient, service, assignmentRepo)
			if err != nil {
				return err
			}

			go func() {
				addr := fmt.Sprintf(":%d", cfg.Port)
				logger.Infof("Starting %s on %s", cfg.AppName, addr)
				if serveErr := e.Start(addr); serveErr != nil && serveErr != http.ErrServerClosed {
					logger.WithError(serveErr).Error("HTTP server stopped")
				}
			}()
			return nil
		},
		stop: func(ctx context.Context) error {
			if e == nil {
				return nil
			}
			return e.Shutdown(ctx)
		},
	})

	if err := boot.Start(ctx); err != nil {
		logger.WithError(err).Error("Startup failed")
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	cancelMiner()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := boot.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}
}

func newLogger(cfg config.Config) ectologger.Logger {
	var zapLogger *zap.Logger
	var err error
	if cfg.PrettyLogs {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func runMigrations(cfg config.Config, db database.DB, logger ectologger.Logger) error {
	instance, ok := db.(*database.DatabaseInstance)
	if !ok {
		return fmt.Errorf("unexpected database instance type")
	}

	driver, err := postgres.WithInstance(instance.DB.DB, &postgres.Config{})
	if err != nil {
		return err
	}

	ms := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})

	return ms.Migrate(cfg.DatabaseName, driver)
}

func buildServer(
	cfg config.Config,
	logger ectologger.Logger,
	db database.DB,
	redisClient *redis.Client,
	service *dedup.Service,
	assignmentRepo *assignments.Repository,
) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	e.HTTPErrorHandler = middleware.Error(logger)

	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))

	handlers.NewHealthHandler(db, redisClient, version).RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("")
	if cfg.AuthEnabled {
		auth, err := middleware.Authentication(logger, cfg.AuthIssuerURL, cfg.AuthClientID)
		if err != nil {
			return nil, err
		}
		api.Use(auth)
	}

	handlers.NewDedupHandler(service).RegisterRoutes(api)
	handlers.NewAssignmentHandler(assignmentRepo).RegisterRoutes(api)

	return e, nil
}
