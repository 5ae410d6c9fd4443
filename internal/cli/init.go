// Package cli wires configuration, logging, storage and the MCP server into
// the expensetracker command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"expensetracker/internal/amqp"
	"expensetracker/internal/config"
	applog "expensetracker/internal/log"
	"expensetracker/internal/services"
	"expensetracker/internal/storage"
)

// SetupLogger builds the application logger at the given level writing to w
// and installs it as the slog default.
func SetupLogger(level string, w io.Writer) (*applog.Logger, error) {
	lvl, err := applog.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger := applog.New(applog.Config{
		Level:     lvl,
		Component: applog.ComponentApp,
		Output:    w,
	})
	applog.SetDefault(logger)
	return logger, nil
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig reads the environment and applies overrides before
// validating, so flags can repair an invalid environment value.
func LoadAndValidateConfig(overrides ...func(*config.Config)) (*config.Config, error) {
	cfg := config.Load()
	for _, o := range overrides {
		o(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OpenRepository prepares the SQLite repository described by cfg.
func OpenRepository(cfg *config.Config) (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, storage.Options{
		BusyTimeout:  cfg.SQLiteBusyTimeout,
		MaxOpenConns: cfg.SQLiteMaxOpenConns,
	})
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", cfg.SQLiteDBPath, err)
	}
	return repo, nil
}

// NewExpenseService opens the repository and, when AMQP is configured, the
// event publisher. A broker that cannot be reached is logged and skipped.
func NewExpenseService(cfg *config.Config, logger *applog.Logger) (*services.ExpenseService, *storage.SQLiteRepository, error) {
	repo, err := OpenRepository(cfg)
	if err != nil {
		return nil, nil, err
	}

	if cfg.AMQPURL == "" {
		return services.NewExpenseService(repo, nil), repo, nil
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.WithComponent(applog.ComponentAMQP).Warn("AMQP unavailable, expense events disabled",
			applog.FieldError, err)
		return services.NewExpenseService(repo, nil), repo, nil
	}
	return services.NewExpenseService(repo, client), repo, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
