package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/presenca/discovery-audit/internal/report"
	"github.com/presenca/discovery-audit/internal/server"
	"github.com/presenca/discovery-audit/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the audit worker pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		eng, err := newEngine(ctx)
		if err != nil {
			return err
		}
		defer eng.close()

		pool := worker.New(cfg.Worker.Count, eng.queue, eng.store, eng.pipeline)
		if err := pool.Start(ctx); err != nil {
			return err
		}

		pdf := report.NewPDFRenderer(cfg.Report.PDFServiceURL)
		srv := server.New(cfg.Server.Port, eng.store, eng.audits, eng.deliverer, pdf)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		zap.L().Info("serve: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("serve: shutdown error", zap.Error(err))
		}
		pool.Wait()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
