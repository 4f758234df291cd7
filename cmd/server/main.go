package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"studymate/auth"
	"studymate/domain"
	"studymate/gateway"
	"studymate/internal"
	"studymate/moderation"
	"studymate/observability"
	"studymate/repositories"
	"studymate/runtime"
	"studymate/runtime/workers"
	"studymate/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components and manages the server lifecycle, so that
// every defer (database close included) executes before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	censoredChar, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return err
	}

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Moderation
	wordlists, err := moderation.LoadWordlists()
	if err != nil {
		return fmt.Errorf("wordlists loading failed: %w", err)
	}
	moderator, err := moderation.NewModerator(wordlists.Words, censoredChar)
	if err != nil {
		return fmt.Errorf("moderator setup failed: %w", err)
	}
	log.Info("Moderation ready", "words", len(wordlists.Words), "languages", wordlists.Languages)

	// 4. Supervision & Orchestration
	sup := workers.NewSupervisor(log, config.RestartInterval)
	registry := runtime.NewRegistry()
	monitoring := observability.NewMonitoring()

	settings := domain.Settings{
		StudyDuration: config.StudyDuration,
		BreakDuration: config.BreakDuration,
		TotalSessions: config.TotalSessions,
	}
	orchestrator := runtime.NewOrchestrator(
		log, sup, registry, monitoring, settings,
		config.MailboxSize, config.BufferSize,
		config.SinkTimeout, config.TickInterval,
	)
	sup.Add(workers.NewHealthWorker(log, config.MetricInterval, monitoring, registry.Stats))

	// 5. Services
	verifier := auth.NewVerifier(config.JWTSecret)
	users := repositories.NewUserRepository(db)
	messages := repositories.NewMessageRepository(db, log)
	relay := services.NewChatRelay(log, verifier, users, messages,
		orchestrator, &moderator, monitoring, config.PersistRetries)

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 7. Start the Engine
	orchDone := make(chan struct{})
	go func() {
		defer close(orchDone)
		_ = orchestrator.Start(ctx)
	}()

	// 8. Gateway
	server := gateway.NewServer(log, orchestrator, relay, verifier, users, gateway.Options{
		ConnBufferSize:  config.ConnectionBufferSize,
		MaxMessageBytes: config.MaxMessageBytes,
		WriteTimeout:    config.WriteTimeout,
		PongTimeout:     config.PongTimeout,
	})

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{
		Addr:    address,
		Handler: server.Router(),
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting websocket gateway", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("gateway server error: %w", err)
		}
	}()

	// 9. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 10. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)

	orchestrator.Stop()
	<-orchDone
	log.Info("Program stopped cleanly")

	return nil
}
