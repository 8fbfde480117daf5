package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"github.com/quangtuanitmo18/qr-order-server/internal/config"
	calendardomain "github.com/quangtuanitmo18/qr-order-server/internal/domain/calendar"
	"github.com/quangtuanitmo18/qr-order-server/internal/domain/chat"
	"github.com/quangtuanitmo18/qr-order-server/internal/infrastructure/auth"
	"github.com/quangtuanitmo18/qr-order-server/internal/infrastructure/database"
	"github.com/quangtuanitmo18/qr-order-server/internal/infrastructure/database/transaction"
	"github.com/quangtuanitmo18/qr-order-server/internal/infrastructure/logger"
	"github.com/quangtuanitmo18/qr-order-server/internal/infrastructure/observability"
	accountrepo "github.com/quangtuanitmo18/qr-order-server/internal/infrastructure/repository/account"
	calendarrepo "github.com/quangtuanitmo18/qr-order-server/internal/infrastructure/repository/calendar"
	chatrepo "github.com/quangtuanitmo18/qr-order-server/internal/infrastructure/repository/chat"
	"github.com/quangtuanitmo18/qr-order-server/internal/interfaces/httpserver"
	"github.com/quangtuanitmo18/qr-order-server/internal/interfaces/httpserver/handlers"
	"github.com/quangtuanitmo18/qr-order-server/internal/notify"
	"github.com/quangtuanitmo18/qr-order-server/internal/realtime"
)

// Application bundles the long-running pieces of the chat service.
type Application struct {
	httpServer *httpserver.HttpServer
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	db, err := database.Connect(ctx, database.Config{
		DSN:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}

	if err := database.AutoMigrate(ctx, db, log); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	txDB := transaction.NewDatabase(db)
	accountRepository := accountrepo.NewRepository(txDB)
	conversationRepository := chatrepo.NewConversationRepository(txDB)
	messageRepository := chatrepo.NewMessageRepository(txDB)
	eventRepository := calendarrepo.NewEventRepository(txDB)

	authValidator, err := auth.NewValidator(ctx, cfg, accountRepository, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize auth validator")
	}

	hub := realtime.NewHub(log)
	go hub.Run(ctx)

	dispatcher := notify.NewDispatcher(
		notify.NewWebhookSender(cfg.NotifyWebhookURL, cfg.NotifyTimeout, log),
		notify.Config{
			WorkerCount: cfg.NotifyWorkers,
			SendTimeout: cfg.NotifyTimeout,
		},
		log,
	)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	chatLimits := chat.DefaultChatValidatorConfig()
	chatLimits.MaxGroupParticipants = cfg.GroupParticipantLimit
	chatLimits.MaxContentLength = cfg.MessageContentLimit

	conversationService := chat.NewConversationServiceWithConfig(conversationRepository, messageRepository, accountRepository, chatLimits)
	messageService := chat.NewMessageServiceWithConfig(messageRepository, conversationRepository, hub, chatLimits)
	calendarService := calendardomain.NewCalendarService(eventRepository, accountRepository, dispatcher)

	handlerProvider := handlers.NewProvider(
		conversationService,
		messageService,
		calendarService,
		hub,
		conversationRepository,
		log,
	)

	httpServer := httpserver.New(cfg, log, handlerProvider, authValidator)
	app := NewApplication(httpServer, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
