package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ROTl24/ai-web-generator/internal/logging"
	webgen "github.com/ROTl24/ai-web-generator/internal/server"
)

const shutdownTimeout = 10 * time.Second

var httpCmd = &cobra.Command{
	Use:   "http",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API:

  GET /api/apps/{id}/generate   streaming generation (Server-Sent Events)
  GET /api/apps/{id}/versions   version history
  GET /api/apps/{id}/diff       file diff between two versions
  GET /api/builds/progress      build progress (Server-Sent Events)
  GET /static/{deployKey}/...   generated sites`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		app, err := webgen.NewApp(cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		srv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           app.HTTPHandler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			logging.Logger().Info("http server listening", "addr", cfg.HTTPAddr)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	},
}

func init() {
	httpCmd.Flags().String("http-addr", "", "Listen address (default :8123)")
}
