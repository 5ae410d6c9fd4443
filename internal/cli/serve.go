package cli

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"expensetracker/internal/cache"
	"expensetracker/internal/catalog"
	"expensetracker/internal/config"
	apphttp "expensetracker/internal/http"
	applog "expensetracker/internal/log"
	"expensetracker/internal/mcpserver"
)

const shutdownTimeout = 10 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Transport string
	Addr      string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		Long: `Run the MCP server over streamable HTTP (mounted at /mcp) or stdio.

Example:
  expensetracker serve --transport http --addr 0.0.0.0:8000
  expensetracker serve --transport stdio`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := opts.Config.Addr()
			if cmd.Flags().Changed("addr") {
				addr = opts.Addr
			}

			ctx, stop := SignalContext(cmd.Context())
			defer stop()
			return serve(ctx, cmd, opts.Config, opts.Logger, addr)
		},
	}

	cmd.Flags().StringVar(&opts.Transport, "transport", config.TransportHTTP, "transport: http|stdio (overrides MCP_TRANSPORT)")
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address for the http transport (overrides HOST and PORT)")

	return cmd
}

func serve(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *applog.Logger, addr string) error {
	service, repo, err := NewExpenseService(cfg, logger)
	if err != nil {
		return err
	}
	defer service.Close()

	cat := catalog.New(cfg.CategoriesPath, cfg.CatalogCacheTTL)
	caches := cache.NewManager()
	caches.Register(cat.Cache())
	caches.StartCleanup(ctx, cfg.CatalogCacheTTL)
	defer caches.Stop()

	// Create the schema up front so a broken store shows in the logs at start.
	if err := repo.EnsureReady(ctx); err != nil {
		logger.Error("Store not ready, will retry on first request",
			applog.FieldDBPath, repo.Path(),
			applog.FieldError, err)
	}

	mcp := mcpserver.New(service, cat)
	logger.Info("Starting expense tracker",
		applog.FieldOperation, applog.OpStartup,
		applog.FieldTransport, cfg.Transport,
		applog.FieldDBPath, repo.Path(),
		"catalog", cat.Path())

	if cfg.Transport == config.TransportStdio {
		err := mcpserver.ServeStdio(ctx, mcp, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("serve stdio: %w", err)
		}
		return nil
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:              addr,
		RequestsPerMinute: cfg.RateLimit,
		TrustedProxies:    cfg.TrustedProxies,
		Logger:            logger,
	}, mcpserver.HTTPHandler(mcp), repo)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", applog.FieldOperation, applog.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
