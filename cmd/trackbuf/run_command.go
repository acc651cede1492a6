package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"trackbuf/internal/daemon"
	"trackbuf/internal/logging"
	"trackbuf/internal/telemetry"
	"trackbuf/internal/uploader"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the uploader loop in the foreground until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if !cfg.Uploader.Enabled {
				return fmt.Errorf("uploader is disabled; set uploader.enabled = true in %s", displayPath(ctx.configPath))
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			store, err := telemetry.Open(cfg)
			if err != nil {
				logger.Error("open telemetry store", logging.Error(err))
				return err
			}

			sink, err := uploader.NewHTTPSink(cfg, nil)
			if err != nil {
				_ = store.Close()
				return err
			}
			up, err := uploader.New(store, sink, uploader.OptionsFromConfig(cfg), logger)
			if err != nil {
				_ = store.Close()
				return err
			}

			d, err := daemon.New(cfg, store, up, logger)
			if err != nil {
				_ = store.Close()
				return fmt.Errorf("create daemon: %w", err)
			}
			defer d.Close()

			if err := d.Start(signalCtx); err != nil {
				return err
			}
			logger.Info("uploading telemetry",
				logging.String("collector", cfg.Uploader.CollectorURL),
				logging.String("session_id", sink.SessionID()),
			)

			<-signalCtx.Done()
			logger.Info("trackbuf daemon shutting down")
			return nil
		},
	}
}

func displayPath(path string) string {
	if path == "" {
		return "the config file"
	}
	return path
}
