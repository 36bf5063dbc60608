package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/skylock/skylock/internal/cli/runner"
	"github.com/skylock/skylock/internal/logging"
	"github.com/skylock/skylock/internal/middleware"
	"github.com/skylock/skylock/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reference storage server",
	Long: `Start the HTTP storage server this vault's own backups can push
to, or that another skylock installation can be pointed at via
--http-endpoint. This is a plain object store speaking the
{backup_root}/{backup_id}/... layout; it never sees a passphrase,
master key, or decrypted content.`,
	Example: `  skylock serve --addr :8443 --path /mnt/backup-disk`,
	RunE:    runners.Config().Wrap(runServe),
}

func init() {
	f := serveCmd.Flags()
	f.StringP("addr", "a", ":8443", "Listen address")
	f.String("path", "", "Storage directory (default: this vault's configured local path)")
	f.Bool("append-only", false, "Refuse object deletes and overwrites")
	f.Int64("quota-bytes", 0, "Reject writes once the store exceeds this size (0 = unlimited)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx *runner.CommandContext, cmd *cobra.Command, args []string) error {
	flags := runner.Flags(cmd)
	addr := flags.String("addr")
	path := flags.String("path")
	appendOnly := flags.Bool("append-only")
	quotaBytes := flags.Int64("quota-bytes")
	if err := flags.Err(); err != nil {
		return err
	}

	if path == "" {
		path = ctx.Config.Storage.LocalPath
	}
	if path == "" {
		return cmdErrorf("no storage path given and no local storage path configured")
	}

	server, err := storage.NewServer(storage.Config{
		BasePath:        path,
		AppendOnly:      appendOnly,
		QuotaBytes:      quotaBytes,
		MaxDiskUsagePct: ctx.Config.Storage.ServeMaxDiskUsagePct,
	})
	if err != nil {
		return err
	}

	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())
	defer limiter.Stop()

	handler := limiter.Middleware(storage.WithLogging(server.Handler()))
	httpServer := &http.Server{Addr: addr, Handler: handler}

	logging.Info("storage server starting",
		logging.String("addr", addr), logging.String("path", path), logging.Bool("appendOnly", appendOnly))
	PrintInfo("Listening on %s, serving %s", addr, path)
	PrintInfo("Press Ctrl+C to stop")

	server.Start()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	logging.Info("shutting down")
	server.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}

	PrintInfo("storage server stopped")
	return nil
}
