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

	"courier/auth"
	"courier/httpapi"
	"courier/notify"
	"courier/repositories"
	"courier/services"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so deferred cleanup always executes before
// the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Storage (BadgerDB + Bluge)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	index, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing search index...")
		_ = index.Close()
	}()

	// 3. Notification channel: real SMTP when configured, log otherwise.
	var notifier notify.INotifier
	if config.SMTPHost != "" {
		mailer, err := notify.NewMailer(config.SMTPHost, config.SMTPPort,
			config.SMTPUsername, config.SMTPPassword, config.SMTPSender,
			config.PublicBaseURL, log)
		if err != nil {
			return fmt.Errorf("smtp setup failed: %w", err)
		}
		notifier = mailer
	} else {
		log.Warn("SMTP not configured, verification tokens go to the log")
		notifier = notify.NewLogNotifier(log)
	}

	// 4. Wiring
	tokens := auth.NewTokenManager(config.TokenSecret, config.TokenDuration)

	accountRepository := repositories.NewAccountRepository(db, index, log)
	conversationRepository := repositories.NewConversationRepository(db, log)
	messageRepository := repositories.NewMessageRepository(db, log)

	accountService := services.NewAccountService(accountRepository, tokens, notifier, log)
	conversationService := services.NewConversationService(conversationRepository,
		accountRepository, messageRepository, log)
	messageService := services.NewMessageService(messageRepository,
		conversationRepository, log, config.MaxContentLength)

	handlers := httpapi.NewHandlers(accountService, conversationService, messageService, log)
	router := httpapi.NewRouter(handlers, tokens)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. HTTP Server
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{
		Addr:              address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	log.Info("Program stopped cleanly")

	return nil
}
