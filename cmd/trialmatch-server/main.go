package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/trialmatch/platform/pkg/common/config"
	"github.com/trialmatch/platform/pkg/common/database"
	"github.com/trialmatch/platform/pkg/common/kafka"
	"github.com/trialmatch/platform/pkg/common/logger"
	"github.com/trialmatch/platform/pkg/common/models"
	"github.com/trialmatch/platform/pkg/gateway/auth"
	"github.com/trialmatch/platform/pkg/gateway/middleware"
	"github.com/trialmatch/platform/pkg/index"
	"github.com/trialmatch/platform/pkg/llm"
	"github.com/trialmatch/platform/pkg/match"
	"github.com/trialmatch/platform/pkg/observability/metrics"
	"github.com/trialmatch/platform/pkg/organization"
	"github.com/trialmatch/platform/pkg/pipeline"
	"github.com/trialmatch/platform/pkg/trial"
	"github.com/trialmatch/platform/pkg/volunteer"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.NewPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redisClient := database.NewRedis(cfg)
	defer database.CloseRedis(redisClient)

	var producer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
	} else {
		logger.Log.Info("No Kafka brokers configured, domain events disabled")
	}

	llmClient := llm.NewClient(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModelName, cfg.LLMEmbeddingModel, llm.WithTimeout(cfg.LLMTimeout))

	trialIndex, err := index.NewTrialIndex(cfg.IndexPath, cfg.IndexCollection, llmClient)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to open trial index")
	}

	prompts, err := pipeline.LoadPrompts(cfg.PromptsPath)
	if err != nil {
		logger.Log.WithError(err).WithField("path", cfg.PromptsPath).Warn("Failed to load prompt overrides, using defaults")
		prompts = pipeline.DefaultPrompts()
	}

	reportPipeline := pipeline.NewReportPipeline(llmClient, prompts)
	matchPipeline := pipeline.NewMatchPipeline(llmClient, trialIndex, prompts)

	orgRepo := organization.NewRepository(db)
	trialRepo := trial.NewRepository(db)
	volunteerRepo := volunteer.NewRepository(db)
	matchRepo := match.NewRepository(db)

	for name, migrate := range map[string]func() error{
		"organizations": orgRepo.AutoMigrate,
		"trials":        trialRepo.AutoMigrate,
		"users":         volunteerRepo.AutoMigrate,
		"matches":       matchRepo.AutoMigrate,
	} {
		if err := migrate(); err != nil {
			logger.Log.WithError(err).WithField("table", name).Fatal("Failed to run migration")
		}
	}

	orgService := organization.NewService(orgRepo)
	trialService := trial.NewService(trialRepo, orgRepo, trialIndex, producer, redisClient, cfg.CacheTTL)
	volunteerService := volunteer.NewService(volunteerRepo, reportPipeline, matchPipeline, producer, redisClient, cfg.CacheTTL)
	matchService := match.NewService(matchRepo, trialRepo, volunteerRepo, producer)

	tokenSigner, err := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTTTL)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to configure session tokens")
	}

	oidcAuth, err := auth.NewOIDCAuthenticator(cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCClientSecret)
	if err != nil {
		logger.Log.WithError(err).Warn("Staff SSO not configured, review endpoints run without auth")
	}

	router := mux.NewRouter()
	router.Use(middleware.Logging)
	router.Use(middleware.Recovery)
	router.Use(middleware.CORS)
	router.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))

	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"Welcome to TrialMatch!"}`))
	}).Methods("GET")

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods("GET")

	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods("GET")

	organization.NewHandler(orgService, trialService, tokenSigner).Register(router)
	trial.NewHandler(trialService, matchService).Register(router, tokenSigner)
	volunteer.NewHandler(volunteerService, cfg.MaxRequestBody).Register(router)

	// Match creation is open; only the approve/reject review routes sit
	// behind staff SSO when it is configured.
	matchHandler := match.NewHandler(matchService)
	if oidcAuth != nil {
		staff := router.NewRoute().Subrouter()
		staff.Use(middleware.AuthenticateStaff(oidcAuth))
		matchHandler.Register(router, staff)
	} else {
		matchHandler.Register(router, router)
	}

	// Optional audit tail: re-consume the event topic and log every
	// domain event with its payload. Enabled by setting a group id.
	var auditConsumer *kafka.Consumer
	auditCtx, stopAudit := context.WithCancel(context.Background())
	defer stopAudit()
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaGroupID != "" {
		auditConsumer = kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID)
		go func() {
			err := auditConsumer.Consume(auditCtx, func(ctx context.Context, event models.Event) error {
				logger.Log.WithFields(map[string]interface{}{
					"event_id":   event.ID,
					"event_type": event.Type,
					"source":     event.Source,
					"data":       event.Data,
				}).Info("Domain event")
				return nil
			})
			if err != nil && err != context.Canceled {
				logger.Log.WithError(err).Error("Audit consumer stopped")
			}
		}()
		defer auditConsumer.Close()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("TrialMatch server started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down TrialMatch server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("TrialMatch server stopped")
}
