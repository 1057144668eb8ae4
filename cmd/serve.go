package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bathroom-finder/internal/config"
	"github.com/sells-group/bathroom-finder/internal/discovery"
	"github.com/sells-group/bathroom-finder/internal/model"
	"github.com/sells-group/bathroom-finder/internal/server"
)

const shutdownTimeout = 10 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bathroom finder HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := initApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close() //nolint:errcheck

		finder, err := buildFinder(cfg)
		if err != nil {
			zap.L().Warn("place discovery disabled", zap.Error(err))
			finder = nil
		}

		handler, err := buildHandler(a, cfg, finder)
		if err != nil {
			return err
		}

		return startServer(ctx, handler, resolvePort(servePort, cfg.Server.Port))
	},
}

// buildHandler activates the explorer so writes invalidate its snapshot and
// returns the routed API. finder may be nil.
func buildHandler(a *app, c *config.Config, finder *discovery.Finder) (http.Handler, error) {
	sortKey, err := model.ParseSortKey(c.Explore.DefaultSort)
	if err != nil {
		return nil, eris.Wrap(err, "serve: default sort")
	}

	opts := []server.Option{
		server.WithDefaultSort(sortKey),
		server.WithAllowedOrigins(c.Server.AllowedOrigins),
	}
	if finder != nil {
		opts = append(opts, server.WithFinder(finder))
	}

	a.explorer.Activate()
	return server.New(a.explorer, a.reviews, opts...).Handler(), nil
}

// resolvePort returns the flag port if set, otherwise the config port.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return cfgPort
}

// startServer serves handler until ctx is done, then shuts down gracefully.
func startServer(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return eris.Wrap(err, "server listen")
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server shutdown")
	}
	return nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
