package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/0x-stone/clauseguard/pkg/logging"
	"github.com/0x-stone/clauseguard/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		defer logger.Sync()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := newRuntime(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer rt.Close()

		analyzer, err := rt.analyzer(ctx)
		if err != nil {
			return err
		}
		opts := []server.Option{
			server.WithLogger(logging.Named(logger, "server")),
			server.WithMetricsHandler(rt.metrics.Handler()),
			server.WithQuestionHook(rt.metrics.ObserveQuestion),
		}
		if assistant, err := rt.assistant(ctx); err != nil {
			logger.Warn("QA endpoint disabled", zap.Error(err))
		} else {
			opts = append(opts, server.WithAssistant(assistant))
		}

		srv := server.New(server.Config{
			AllowOrigins: cfg.Server.AllowOrigins,
			AccessLog:    DebugMode,
		}, analyzer, opts...)

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Listen(cfg.Server.Addr) }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}
