package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chat-gateway/auth"
	"chat-gateway/moderation"
	"chat-gateway/observability"
	"chat-gateway/repositories"
	"chat-gateway/runtime"
	"chat-gateway/runtime/workers"
	"chat-gateway/services"
	"chat-gateway/transport"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// Returning an error instead of exiting keeps every defer (database close,
// graceful shutdown) honored, and keeps the wiring testable.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	censorChar, err := CharacterRune(config.CharReplacement)
	if err != nil {
		return err
	}

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Messaging core
	monitor := observability.NewMonitoring()
	registry := runtime.NewRegistry(log, monitor, config.QueueCapacity)
	broker := runtime.NewBroker(log, monitor, registry)
	router := runtime.NewRouter(log, monitor, registry)

	censored, err := moderation.LoadDefaultWords()
	if err != nil {
		return fmt.Errorf("loading censored words: %w", err)
	}
	log.Info(fmt.Sprintf("%d censored words loaded [%s]",
		len(censored.Words), strings.Join(censored.Languages, ",")))
	moderator, err := moderation.NewModerator(log, censored.Words, censorChar)
	if err != nil {
		return fmt.Errorf("building moderator: %w", err)
	}

	gateway := runtime.NewGateway(log, registry, broker, router, moderator, config.PublicTopic)

	// 4. Records & services
	userRepository := repositories.NewUserRepository(db, log, config.PageSize)
	reservationRepository := repositories.NewReservationRepository(db, log, config.PageSize)
	tokens := auth.NewTokenManager([]byte(config.TokenSecret), config.TokenIssuer, config.TokenDuration)
	authenticator := auth.NewStoreAuthenticator(log, userRepository)
	userService := services.NewUserService(log, userRepository)
	authService := services.NewAuthService(log, authenticator, userRepository, tokens)
	reservationService := services.NewReservationService(log, reservationRepository)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Supervised workers
	sup := workers.NewSupervisor(log)
	sup.Add(workers.NewHeartbeatWorker(log, monitor, config.HeartbeatInterval))
	go sup.Run(ctx)

	// 7. HTTP server
	server := transport.NewServer(log, gateway, authService, userService,
		reservationService, tokens, config.WriteTimeout)
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{Addr: address, Handler: server.Routes()}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 9. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}
	sup.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
