package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/clinicware/assistant-platform/internal/api/router"
	"github.com/clinicware/assistant-platform/internal/assistant"
	"github.com/clinicware/assistant-platform/internal/clinic"
	appconfig "github.com/clinicware/assistant-platform/internal/config"
	"github.com/clinicware/assistant-platform/internal/notify"
	"github.com/clinicware/assistant-platform/internal/observability/metrics"
	"github.com/clinicware/assistant-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting assistant-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	assistantMetrics := metrics.NewAssistantMetrics(nil)

	// Clinic directory: Postgres when configured, seeded in-memory otherwise.
	var (
		doctors      clinic.DoctorRepository
		patients     clinic.PatientRepository
		appointments clinic.AppointmentRepository
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(context.Background()); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}
		store := clinic.NewStore(db)
		doctors, patients, appointments = store, store, store
		logger.Info("clinic directory backed by postgres")
	} else {
		dir := clinic.NewInMemoryDirectory()
		dir.SeedDemoData()
		doctors, patients, appointments = dir, dir, dir
		logger.Warn("DATABASE_URL not set, using seeded in-memory clinic directory")
	}

	// Response cache: Redis for shared deployments, bounded memory otherwise.
	var cache assistant.ResponseCache
	if cfg.UseRedisCache {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		cache = assistant.NewRedisCache(redis.NewClient(opts), logger)
		logger.Info("response cache backed by redis", "addr", cfg.RedisAddr)
	} else {
		memCache := assistant.NewMemoryCache(cfg.CacheMaxEntries)
		defer memCache.Close()
		cache = memCache
	}

	sessions := assistant.NewSessionStore(cfg.SessionHistoryLimit, cfg.SessionIdleTTL)
	defer sessions.Close()

	var emailSender notify.EmailSender = notify.NoopSender{}
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sg != nil {
		emailSender = sg
	}

	booking := assistant.NewBookingFlow(doctors, patients, appointments, emailSender, sessions, assistantMetrics, logger)

	// LLM backends. The remote tier is the OpenAI-compatible client guarded by
	// the throttle breaker, with an optional Bedrock fallback behind it.
	localLLM := assistant.NewLocalLLMClient(assistant.LocalLLMConfig{
		BaseURL: cfg.LocalLLMBaseURL,
		Model:   cfg.LocalLLMModel,
		Timeout: cfg.LocalLLMTimeout,
	}, assistantMetrics, logger)

	var remoteLLM assistant.LLMClient
	if cfg.RemoteLLMEnabled {
		openAI := assistant.NewOpenAIClient(assistant.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.RemoteLLMTimeout,
		}, assistantMetrics, logger)
		if openAI != nil {
			breaker := assistant.NewRateLimitBreaker(assistantMetrics, logger)
			guarded := assistant.NewGuardedClient(openAI, breaker)
			remoteLLM = guarded

			if cfg.BedrockModelID != "" {
				bedrockAPI, err := newBedrockClient(cfg)
				if err != nil {
					logger.Error("failed to configure bedrock fallback", "error", err)
				} else {
					fallback := assistant.NewBedrockClient(bedrockAPI, cfg.BedrockModelID, assistantMetrics)
					remoteLLM = assistant.NewFallbackLLMClient(guarded, fallback, nil, logger)
					logger.Info("bedrock fallback enabled", "model", cfg.BedrockModelID)
				}
			}
		} else {
			logger.Warn("OPENAI_API_KEY not set, remote LLM tier disabled")
		}
	}

	engine := assistant.NewRouter(assistant.RouterConfig{
		Sessions:   sessions,
		Booking:    booking,
		Knowledge:  assistant.NewKnowledgeMatcher(assistant.DefaultKnowledgeRules()),
		Triage:     assistant.NewTriageComposer(assistant.NewSpecialtyDetector(assistant.DefaultSpecialtyProfiles()), doctors, cfg.SpecialtyMinConfidence, logger),
		Cache:      cache,
		LocalLLM:   localLLM,
		RemoteLLM:  remoteLLM,
		Patients:   patients,
		MaxRetries: cfg.RemoteLLMMaxRetries,
		RetryDelay: cfg.RemoteLLMRetryDelay,
		RemoteTTL:  cfg.CacheRemoteTTL,
		LocalTTL:   cfg.CacheLocalTTL,
		Metrics:    assistantMetrics,
		Logger:     logger,
	})

	// Dispatch through a queue so the HTTP handlers never talk to the engine
	// directly. In-memory channel by default, SQS when configured.
	var dispatcher assistant.Dispatcher
	if !cfg.UseMemoryQueue && cfg.AssistantQueueURL != "" {
		awsCfg, err := loadAWSConfig(context.Background(), cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		sqsQueue := assistant.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.AssistantQueueURL)
		dispatcher = assistant.NewOrchestrator(engine, sqsQueue, logger,
			assistant.WithWorkerCount(cfg.WorkerCount))
		logger.Info("assistant dispatch backed by SQS", "queue_url", cfg.AssistantQueueURL)
	} else {
		dispatcher = assistant.NewOrchestrator(engine, assistant.NewMemoryQueue(256), logger,
			assistant.WithWorkerCount(cfg.WorkerCount),
			assistant.WithReceiveWaitSeconds(1))
	}

	assistantHandler := assistant.NewHandler(dispatcher, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		AssistantHandler:   assistantHandler,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	if err := dispatcher.Shutdown(ctx); err != nil {
		logger.Error("dispatcher forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}

func newBedrockClient(cfg *appconfig.Config) (*bedrockruntime.Client, error) {
	awsCfg, err := loadAWSConfig(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	return bedrockruntime.NewFromConfig(awsCfg), nil
}

func loadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, "")))
	}
	if cfg.AWSEndpointOverride != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(cfg.AWSEndpointOverride))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}
