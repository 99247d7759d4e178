package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/vcscsvcscs/medassist/internal/ai"
	"github.com/vcscsvcscs/medassist/internal/audit"
	"github.com/vcscsvcscs/medassist/internal/azure"
	"github.com/vcscsvcscs/medassist/internal/config"
	"github.com/vcscsvcscs/medassist/internal/credential"
	"github.com/vcscsvcscs/medassist/internal/export"
	"github.com/vcscsvcscs/medassist/internal/handler"
	"github.com/vcscsvcscs/medassist/internal/logging"
	"github.com/vcscsvcscs/medassist/internal/middleware"
	"github.com/vcscsvcscs/medassist/internal/navigation"
	"github.com/vcscsvcscs/medassist/internal/repository"
	"github.com/vcscsvcscs/medassist/internal/security"
	"github.com/vcscsvcscs/medassist/internal/service"
	"github.com/vcscsvcscs/medassist/internal/session"
	"github.com/vcscsvcscs/medassist/internal/storage"
	"github.com/vcscsvcscs/medassist/pkg/api"
	"github.com/vcscsvcscs/medassist/pkg/model"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize Zap logger
	logger, err := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, "medassist-backend")
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded successfully",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("storage_driver", cfg.Storage.Driver),
	)

	// Open the local state store
	kv, err := storage.Open(context.Background(), cfg.Storage, logger)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer kv.Close()

	// Credentials are encrypted at rest when a key is configured
	var encryptor *security.Encryptor
	if cfg.Security.EncryptionKey != "" {
		encryptor, err = security.NewEncryptorFromBase64(cfg.Security.EncryptionKey)
		if err != nil {
			logger.Fatal("Failed to initialize encryptor", zap.Error(err))
		}
	} else {
		logger.Warn("No encryption key configured, API keys are stored in clear")
	}
	credentials := credential.NewStore(kv, encryptor, cfg.AI.APIKeys, logger)

	// Initialize the AI pipeline
	provider, err := newProvider(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize AI provider", zap.Error(err))
	}
	invoker := ai.NewInvoker(provider, credentials, logger, ai.WithAttemptTimeout(cfg.AI.Timeout))

	builder, err := service.NewRequestBuilderFromConfig(cfg.AI)
	if err != nil {
		logger.Fatal("Failed to initialize request builder", zap.Error(err))
	}
	assistant := service.NewAssistant(invoker, builder, logger)

	transcriber, err := newTranscriber(cfg, assistant, logger)
	if err != nil {
		logger.Fatal("Failed to initialize transcriber", zap.Error(err))
	}

	images, err := newImageStorage(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize image storage", zap.Error(err))
	}

	// Initialize repositories
	records := repository.NewRecordRepository(kv, logger)
	profiles := repository.NewProfileRepository(kv, logger)
	auditLog := audit.NewLogger(kv, logger)

	// Initialize session managers
	chatReply := func(ctx context.Context, history []model.Message, text string, image *service.Blob) (string, error) {
		profile := profiles.Get(ctx)
		return assistant.Chat(ctx, history, text, image, &profile)
	}
	therapyReply := func(ctx context.Context, history []model.Message, text string, _ *service.Blob) (string, error) {
		return assistant.Therapy(ctx, history, text)
	}
	chatSessions := session.NewManager(
		model.SessionKindChat,
		repository.NewSessionRepository(kv, model.SessionKindChat, logger),
		chatReply, images, logger,
	)
	therapySessions := session.NewManager(
		model.SessionKindTherapy,
		repository.NewSessionRepository(kv, model.SessionKindTherapy, logger),
		therapyReply, nil, logger,
	)

	controller := navigation.NewController(assistant, assistant, records, profiles, images, logger)

	// Initialize handlers
	maxUpload := cfg.Server.MaxUploadBytes
	apiHandler := &handler.Server{
		Health:     handler.NewHealthHandler(kv, cfg.Storage.Driver, credentials, logger),
		Navigation: handler.NewNavigationHandler(controller, maxUpload, logger),
		Assistant:  handler.NewAssistantHandler(assistant, transcriber, maxUpload, logger),
		Chat:       handler.NewConversationHandler(chatSessions, true, maxUpload, logger),
		Therapy:    handler.NewConversationHandler(therapySessions, false, maxUpload, logger),
		Records: handler.NewRecordsHandler(
			records, profiles, images,
			export.NewPDFGenerator(logger),
			export.NewRecordsWorkbook(logger),
			auditLog,
			logger,
		),
		Settings: handler.NewSettingsHandler(profiles, credentials, auditLog, logger),
	}

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Gin router
	r := gin.New()
	r.MaxMultipartMemory = maxUpload

	// Add recovery middleware (must be first)
	r.Use(middleware.RecoveryMiddleware(logger))

	// Add CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RequestLoggingMiddleware(logger))
	r.Use(middleware.ErrorLoggingMiddleware(logger))
	// model calls routinely take several seconds
	r.Use(middleware.SlowRequestLoggingMiddleware(logger, 20*time.Second))

	// Validate requests against the API document
	doc, err := api.GetSwagger()
	if err != nil {
		logger.Fatal("Failed to load API document", zap.Error(err))
	}
	validator, err := middleware.OpenAPIValidator(doc, logger)
	if err != nil {
		logger.Fatal("Failed to initialize request validator", zap.Error(err))
	}
	r.Use(validator)

	// Register generated API handlers
	api.RegisterHandlers(r, apiHandler)

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// newProvider selects the generative model backend
func newProvider(cfg *config.Config, logger *zap.Logger) (ai.Provider, error) {
	switch cfg.AI.Provider {
	case "azure-openai":
		return ai.NewOpenAIProvider(
			cfg.Azure.OpenAI.Endpoint,
			cfg.Azure.OpenAI.APIVersion,
			cfg.Azure.OpenAI.Deployment,
			logger,
		)
	default:
		return ai.NewGeminiProvider(cfg.AI.BaseURL, logger), nil
	}
}

// newTranscriber selects the speech-to-text engine
func newTranscriber(cfg *config.Config, assistant *service.Assistant, logger *zap.Logger) (service.Transcriber, error) {
	if cfg.Transcription.Engine != "azure-speech" {
		return assistant, nil
	}
	return azure.NewSpeechServiceClient(
		cfg.Azure.Speech.SubscriptionKey,
		cfg.Azure.Speech.Region,
		cfg.Azure.Speech.Language,
		logger,
	)
}

// newImageStorage keeps captured images in Azure Blob Storage when configured,
// otherwise in process memory
func newImageStorage(cfg *config.Config, logger *zap.Logger) (azure.BlobStorage, error) {
	if !cfg.Azure.Storage.Enabled() {
		logger.Info("Azure Blob Storage not configured, keeping images in memory")
		return azure.NewMemoryBlobStorage(logger), nil
	}
	return azure.NewBlobStorageClient(
		cfg.Azure.Storage.AccountName,
		cfg.Azure.Storage.AccountKey,
		cfg.Azure.Storage.ImageContainer,
		logger,
	)
}
