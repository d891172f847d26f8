package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/version"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the question answering HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			handler, err := a.services.Handler(ctx)
			if err != nil {
				return err
			}

			addr := fmt.Sprintf(":%d", a.cfg.HTTP.Port)
			srv := &http.Server{
				Addr:              addr,
				Handler:           handler,
				ReadTimeout:       time.Duration(a.cfg.HTTP.ReadTimeoutSec) * time.Second,
				ReadHeaderTimeout: time.Duration(a.cfg.HTTP.ReadTimeoutSec) * time.Second,
				WriteTimeout:      time.Duration(a.cfg.HTTP.WriteTimeoutSec) * time.Second,
			}

			a.logger.Info("Starting docqa API server",
				zap.String("version", version.Version),
				zap.String("commit", version.Commit),
				zap.String("addr", addr),
				zap.String("index", a.cfg.Search.IndexName),
			)

			errCh := make(chan error, 1)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			a.logger.Info("Received shutdown signal")
			shutdownCtx, cancel := context.WithTimeout(context.Background(),
				time.Duration(a.cfg.HTTP.ShutdownSec)*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("Error during shutdown", zap.Error(err))
			}
			a.logger.Info("Server stopped gracefully")
			return nil
		},
	}
}
