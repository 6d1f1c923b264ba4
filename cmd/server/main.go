package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"

	"guardian-chat/auth"
	"guardian-chat/classifier"
	"guardian-chat/contract"
	"guardian-chat/domain/event"
	"guardian-chat/infrastructure/httpapi"
	"guardian-chat/infrastructure/ws"
	"guardian-chat/internal"
	"guardian-chat/observability"
	"guardian-chat/repositories"
	"guardian-chat/runtime"
	"guardian-chat/runtime/workers"
	"guardian-chat/services"
	"guardian-chat/sink"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// Returning instead of calling os.Exit directly guarantees the deferred
// database cleanups execute before the process dies.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, fmt.Errorf("config validation failed: %w", err)
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	ctx := context.Background()

	// 2. Storage (BadgerDB + Bluge)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		// Defer ensures the database lock is released and buffers are flushed before the function returns.
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	if logger.Enabled(ctx, slog.LevelDebug) {
		debugPort := 8081
		endpoint := "/inspect"
		logger.Info("Debug Badger inspector available",
			"url", fmt.Sprintf("http://localhost:%d%s", debugPort, endpoint))
		database.StartDebugServer(db, debugPort, endpoint, ArchiveMapper)
	}

	// 3. Supervision, classification and fanout
	events := make(chan event.DomainEvent, config.BufferSize)
	sup := workers.NewSupervisor(logger)
	registry := runtime.NewRegistry()
	searchIndex := repositories.NewSearchIndex(blugeWriter, logger, config.ArchivePageSize)
	archive := repositories.NewMessageArchive(db, searchIndex, logger, lo.ToPtr(config.ArchivePageSize))
	monitor := observability.NewMonitor(logger)

	var riskClassifier contract.IClassifier
	if config.ClassifierURL != "" {
		logger.Info("Using remote classifier", "url", config.ClassifierURL)
		riskClassifier = classifier.NewClient(config.ClassifierURL, config.ClassifierTimeout, logger)
	} else {
		logger.Info("No classifier URL configured, using keyword screener")
		riskClassifier, err = classifier.NewScreener(logger)
		if err != nil {
			return exitRuntime, fmt.Errorf("screener init failed: %w", err)
		}
	}

	fanout := workers.NewEventFanout(logger, registry, events, config.SinkTimeout).
		Add(monitor, sink.NewArchiveSink(archive, logger))
	sup.Add(fanout)

	lifecycle := runtime.NewLifecycle(logger, sup, riskClassifier, events,
		config.RoomCapacity, config.HistoryLimit, config.MaxContentLength, config.BufferSize)

	// 4. Context & Signals
	// NotifyContext captures OS signals and cancels the context to trigger a shutdown.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	lifecycle.Start(ctx)

	supervisorDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supervisorDone)
	}()

	// 5. HTTP Server (REST + WebSocket)
	// Accounts and socket authentication both hinge on AUTH_SECRET
	var tokens *auth.TokenManager
	var authService services.IAuthService
	if config.AuthSecret != "" {
		tokens = auth.NewTokenManager(config.AuthSecret, config.AuthTokenDuration)
		hasher := auth.Argon2Params{
			MemoryKiB:   uint32(config.ArgonMemoryKiB),
			Iterations:  uint32(config.ArgonIterations),
			Parallelism: uint8(config.ArgonParallelism),
		}
		authService = services.NewAuthService(repositories.NewUserRepository(db), tokens, hasher)
	}

	chatService := services.NewChatService(lifecycle, registry)
	socketHandler := ws.NewHandler(chatService, tokens, logger, config.ConnectionBufferSize)
	router := httpapi.NewRouter(httpapi.Dependencies{
		Service: chatService,
		Auth:    authService,
		Monitor: monitor,
		Archive: archive,
		Search:  searchIndex,
		Socket:  socketHandler,
		Log:     logger,
	})

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: router}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 6. Wait for Stop or Error
	// The execution blocks here until either a signal is received or the server crashes.
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 7. Final Cleanup (Graceful Shutdown)
	// Active connections get a short window to drain before workers stop.
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = server.Shutdown(shutdownCtx)
	sup.Stop()
	<-supervisorDone
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}

	return options
}

// ArchiveMapper renders archived message records in the Badger inspector.
func ArchiveMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)

	var message repositories.ArchivedMessage
	if err := json.Unmarshal(val, &message); err != nil {
		row.Detail = "Error: unmarshal failed"
		return row
	}

	row.Type = message.RiskLevel
	row.EntityID = message.ID
	row.Namespace = message.Room
	row.Detail = fmt.Sprintf("%s: %s", message.Author, message.Text)
	row.Scores = fmt.Sprintf("%d", message.RiskScore)
	return row
}
