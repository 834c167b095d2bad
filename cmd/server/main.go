package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"

	adminhandler "facevote/internal/admin/handler"
	adminservice "facevote/internal/admin/service"
	"facevote/internal/admin/session"
	adminstore "facevote/internal/admin/store"
	"facevote/internal/audit"
	"facevote/internal/biometric"
	electionhandler "facevote/internal/election/handler"
	electionservice "facevote/internal/election/service"
	electionstore "facevote/internal/election/store"
	jwttoken "facevote/internal/jwt_token"
	"facevote/internal/ledger"
	"facevote/internal/platform/config"
	"facevote/internal/platform/httpserver"
	"facevote/internal/platform/logger"
	"facevote/internal/platform/metrics"
	"facevote/internal/platform/middleware"
	platformredis "facevote/internal/platform/redis"
	voterhandler "facevote/internal/voter/handler"
	voterservice "facevote/internal/voter/service"
	voterstore "facevote/internal/voter/store"
	votinghandler "facevote/internal/voting/handler"
	"facevote/internal/voting/reconcile"
	votingservice "facevote/internal/voting/service"
	votingstore "facevote/internal/voting/store"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(slog.LevelInfo)

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	m := metrics.New()

	// Storage: Postgres when configured, in-memory otherwise. The memory
	// stores carry the same invariants, so development runs behave the same.
	var (
		voters    voterstore.Store
		elections electionstore.Store
		admins    adminstore.Store
		attempts  votingstore.Store
	)
	if cfg.Database.URL != "" {
		db, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}
		voters = voterstore.NewPostgres(db)
		elections = electionstore.NewPostgres(db)
		admins = adminstore.NewPostgres(db)
		attempts = votingstore.NewPostgres(db)
		log.Info("using postgres storage")
	} else {
		voters = voterstore.NewInMemory()
		elections = electionstore.NewInMemory()
		admins = adminstore.NewInMemory()
		attempts = votingstore.NewInMemory()
		log.Warn("DATABASE_URL not set, using in-memory storage")
	}

	// Sessions: Redis keeps admin logout working across restarts.
	var sessions session.Store = session.NewInMemory()
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		sessions = session.NewRedis(redisClient.Client)
		log.Info("using redis session storage")
	}

	// Audit sink: Kafka when brokers are configured. Services emit into a
	// buffered queue; the worker drains it to the broker off the request path.
	auditCtx, stopAudit := context.WithCancel(ctx)
	defer stopAudit()
	recorder := audit.NewRecorder(256)
	var auditPublisher audit.Publisher = recorder
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaClient, err := kgo.NewClient(
			kgo.SeedBrokers(cfg.Kafka.Brokers...),
			kgo.DefaultProduceTopic(cfg.Kafka.Topic),
		)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		kafkaPublisher := audit.NewKafkaPublisher(kafkaClient, cfg.Kafka.Topic, log)
		defer kafkaPublisher.Close(context.Background())

		inbox := make(chan audit.Event, 256)
		go func() {
			if err := audit.NewWorker(kafkaPublisher, inbox).Run(auditCtx); err != nil && auditCtx.Err() == nil {
				log.Error("audit worker stopped", "error", err.Error())
			}
		}()
		auditPublisher = audit.Tee{recorder, audit.NewQueue(inbox)}
		log.Info("audit events publishing to kafka", "topic", cfg.Kafka.Topic)
	}

	// The ledger and the face detector are hard requirements: without them
	// the system would silently degrade into something that is not a
	// biometric voting service.
	if cfg.Ledger.RPCURL == "" {
		return fmt.Errorf("LEDGER_RPC_URL is required")
	}
	ethClient, err := ethclient.DialContext(ctx, cfg.Ledger.RPCURL)
	if err != nil {
		return fmt.Errorf("dial ledger node: %w", err)
	}
	defer ethClient.Close()
	artifact, err := ledger.LoadArtifact(cfg.Ledger.ArtifactPath)
	if err != nil {
		return fmt.Errorf("load contract artifact: %w", err)
	}
	bridge, err := ledger.NewEthereum(ethClient, artifact, ledger.EthereumConfig{
		PrivateKeyHex:  cfg.Ledger.PrivateKeyHex,
		ChainID:        cfg.Ledger.ChainID,
		ConfirmTimeout: cfg.Ledger.ConfirmTimeout,
	}, log)
	if err != nil {
		return fmt.Errorf("build ledger bridge: %w", err)
	}
	log.Info("ledger bridge ready", "signer", bridge.Signer(), "chain_id", cfg.Ledger.ChainID)

	if cfg.Detector.URL == "" {
		return fmt.Errorf("FACE_DETECTOR_URL is required")
	}
	encoder := biometric.NewEncoder(
		biometric.NewHTTPDetector(cfg.Detector.URL, cfg.Detector.Timeout), log)

	// Services.
	voterSvc := voterservice.New(voters, encoder,
		voterservice.WithLogger(log),
		voterservice.WithAuditPublisher(auditPublisher),
		voterservice.WithMetrics(m))
	electionSvc := electionservice.New(elections, bridge, voters,
		electionservice.WithLogger(log),
		electionservice.WithAuditPublisher(auditPublisher),
		electionservice.WithMetrics(m))
	orchestrator := votingservice.New(voters, voterSvc, electionSvc, attempts, bridge,
		votingservice.WithLogger(log),
		votingservice.WithAuditPublisher(auditPublisher),
		votingservice.WithMetrics(m))
	reconciler := reconcile.New(attempts, voters,
		reconcile.WithLogger(log),
		reconcile.WithAuditPublisher(auditPublisher),
		reconcile.WithMetrics(m))

	jwtService := jwttoken.NewJWTService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience)
	jwtValidator := jwttoken.NewJWTServiceAdapter(jwtService, sessions)
	adminSvc := adminservice.New(admins, sessions, jwtService,
		adminservice.WithLogger(log),
		adminservice.WithAuditPublisher(auditPublisher),
		adminservice.WithEncoder(encoder),
		adminservice.WithSessionTTL(cfg.JWT.SessionTTL))

	// Router: the common stack wraps everything; route guards live in the
	// handlers themselves.
	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Timeout(cfg.RequestTimeout))
	router.Use(middleware.ContentTypeJSON)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	adminhandler.New(adminSvc, recorder, log, m, jwtValidator).Register(router)
	voterhandler.New(voterSvc, log, m, jwtValidator).Register(router)
	electionhandler.New(electionSvc, log, m, jwtValidator).Register(router)
	votinghandler.New(orchestrator, reconciler, log, m, jwtValidator).Register(router)

	server := httpserver.New(cfg.Addr, router)
	return httpserver.Run(ctx, server, log)
}
