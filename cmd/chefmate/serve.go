package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aretw0/chefmate"
	"github.com/aretw0/chefmate/internal/cli"
	httpAdapter "github.com/aretw0/chefmate/pkg/adapters/http"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serves conversations over HTTP: JSON endpoints per session, a server-sent event
stream, a websocket voice bridge, /health, /info and /metrics.

With --catalog the built-in catalog is also exposed as a recipe search service
(POST /search/, /modify/, /reset_session/), so other instances can point
search.url at this one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if f := cmd.Flags().Lookup("addr"); f.Changed {
			cfg.Server.Addr = f.Value.String()
		}
		withCatalog, _ := cmd.Flags().GetBool("catalog")

		stack, err := newStack()
		if err != nil {
			return err
		}
		defer stack.Close()

		streams := httpAdapter.NewStreamManager(logger)
		opts := []httpAdapter.Option{
			httpAdapter.WithStreams(streams),
			httpAdapter.WithMetrics(stack.Metrics),
			httpAdapter.WithLogger(logger),
			httpAdapter.WithHealthCheck(stack.Health),
			httpAdapter.WithVersion(chefmate.Version),
			httpAdapter.WithVoice(cfg.Voice.Cooldown, stack.Hooks()),
		}
		if withCatalog {
			if stack.Catalog == nil {
				c, err := cli.LoadCatalog(cfg.Catalog)
				if err != nil {
					return err
				}
				stack.Catalog = c
			}
			opts = append(opts, httpAdapter.WithCatalog(stack.Catalog))
		}

		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           httpAdapter.NewServer(stack.Sessions(streams.Sink), opts...).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("Starting ChefMate server", "addr", srv.Addr, "catalog", withCatalog, "store", cfg.Store.Driver)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err

		case <-ctx.Done():
			logger.Info("Start shutdown", "signal", ctx.Signal())

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				if err := srv.Close(); err != nil {
					logger.Error("Error killing server", "err", err)
				}
			}
			logger.Info("ChefMate server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
	serveCmd.Flags().Bool("catalog", false, "Also serve the built-in catalog as a recipe search service")
}
