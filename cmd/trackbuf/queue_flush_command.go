package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"trackbuf/internal/config"
	"trackbuf/internal/telemetry"
	"trackbuf/internal/uploader"
)

type flushSummary struct {
	CorrelationID string `json:"correlation_id"`
	Fetched       int    `json:"fetched"`
	Sent          int    `json:"sent"`
	Failed        int    `json:"failed"`
	Remaining     int    `json:"remaining"`
	Error         string `json:"error,omitempty"`
}

func newQueueFlushCommand(ctx *commandContext) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "flush",
		Short: "Deliver pending records to the collector now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *telemetry.Store) error {
				up, err := newUploader(ctx, cfg, store)
				if err != nil {
					return err
				}

				run := up.Drain
				if once {
					run = up.Flush
				}
				result, flushErr := run(cmd.Context())
				if flushErr != nil && !errors.Is(flushErr, uploader.ErrDeliveryFailed) {
					return flushErr
				}

				remaining, err := store.Count(cmd.Context())
				if err != nil {
					return err
				}
				summary := flushSummary{
					CorrelationID: result.CorrelationID,
					Fetched:       result.Fetched,
					Sent:          result.Sent,
					Failed:        result.Failed,
					Remaining:     remaining,
				}
				if flushErr != nil {
					summary.Error = flushErr.Error()
				}

				if ctx.JSONMode() {
					if err := writeJSON(cmd, summary); err != nil {
						return err
					}
					return flushErr
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Sent %d of %d fetched record(s); %d pending\n", summary.Sent, summary.Fetched, summary.Remaining)
				return flushErr
			})
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Deliver a single batch instead of draining the backlog")
	return cmd
}

// newUploader builds an uploader against the configured HTTP collector.
func newUploader(ctx *commandContext, cfg *config.Config, store *telemetry.Store) (*uploader.Uploader, error) {
	if !cfg.Uploader.Enabled {
		return nil, errors.New("uploader is disabled; set uploader.enabled = true in the config")
	}
	sink, err := uploader.NewHTTPSink(cfg, nil)
	if err != nil {
		return nil, err
	}
	return uploader.New(store, sink, uploader.OptionsFromConfig(cfg), ctx.commandLogger(cfg))
}
