package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"findoc/internal/logger"
	"findoc/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis pipeline over HTTP",
	Long: `Start the HTTP service.

Routes:
  GET  /           liveness message
  GET  /health     plain OK
  POST /analyze/   multipart upload in field "file", returns the analysis record
  GET  /metrics    Prometheus metrics

Environment variables:
  PORT - listen port (default: 8000)
  MAX_UPLOAD_BYTES - largest accepted upload (default: 20MB)`,
	Example: `  # Start on the default port
  findoc serve

  # Allow one browser origin
  findoc serve --port 9000 --cors-origin https://app.example.com`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("port", "", "Listen port (default: PORT)")
	serveCmd.Flags().StringSlice("cors-origin", nil, "Allowed CORS origins (default: any)")
	serveCmd.Flags().Duration("shutdown-timeout", 30*time.Second, "Grace period for in-flight requests")
}

func runServe(cmd *cobra.Command, _ []string) error {
	log := logger.WithComponent("serve")

	port, _ := cmd.Flags().GetString("port")
	origins, _ := cmd.Flags().GetStringSlice("cors-origin")
	shutdownTimeout, _ := cmd.Flags().GetDuration("shutdown-timeout")

	ctx, cancel := signalContext(0, log)
	defer cancel()

	a, err := newApp(ctx, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if port == "" {
		port = a.cfg.Port
	}
	addr := ":" + strings.TrimPrefix(port, ":")

	handler := server.New(a.analyzer, a.metrics, server.Options{
		MaxUploadBytes: a.cfg.MaxUploadBytes,
		AllowedOrigins: origins,
	}).Handler()

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}
	return nil
}
