package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trackbuf/internal/backpressure"
	"trackbuf/internal/config"
	"trackbuf/internal/telemetry"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the telemetry buffer",
	}

	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueAckCommand(ctx))
	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueFlushCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

type addResult struct {
	ID       int64              `json:"id"`
	Depth    int                `json:"depth"`
	Pressure backpressure.Level `json:"pressure"`
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var (
		lat, lng, speed float64
		timestamp       int64
		explicitID      int64
		mock            bool
		force           bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Buffer a single location sample",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *telemetry.Store) error {
				monitor := backpressure.NewMonitor(store, backpressure.ThresholdsFromConfig(cfg))
				status, err := monitor.Check(cmd.Context())
				if err != nil {
					return err
				}
				if status.PauseSampling() && !force {
					return fmt.Errorf("buffer saturated (%d records pending); retry after a flush or pass --force", status.Depth)
				}

				ts := timestamp
				if !cmd.Flags().Changed("timestamp") {
					ts = time.Now().UnixMilli()
				}
				rec := telemetry.Record{
					Timestamp: ts,
					Lat:       lat,
					Lng:       lng,
					Speed:     speed,
					IsMock:    mock,
				}

				var opts []telemetry.InsertOption
				if explicitID != 0 {
					opts = append(opts, telemetry.WithID(explicitID))
				}

				id, err := store.Insert(cmd.Context(), rec, opts...)
				if err != nil {
					return err
				}

				after, err := monitor.Check(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, addResult{ID: id, Depth: after.Depth, Pressure: after.Level})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Buffered record %d (%d pending, pressure %s)\n", id, after.Depth, after.Level)
				return nil
			})
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude in degrees")
	cmd.Flags().Float64Var(&lng, "lng", 0, "Longitude in degrees")
	cmd.Flags().Float64Var(&speed, "speed", 0, "Speed in metres per second")
	cmd.Flags().Int64Var(&timestamp, "timestamp", 0, "Capture time in epoch milliseconds (default now)")
	cmd.Flags().Int64Var(&explicitID, "id", 0, "Explicit non-zero record identifier (0 lets the store assign one)")
	cmd.Flags().BoolVar(&mock, "mock", false, "Mark the sample as synthetic")
	cmd.Flags().BoolVar(&force, "force", false, "Insert even when the buffer is saturated")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")
	return cmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the next batch of unsent records (oldest first)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *telemetry.Store) error {
				records, err := store.Unsent(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					if records == nil {
						records = []telemetry.Record{}
					}
					return writeJSON(cmd, records)
				}
				if len(records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Buffer is empty")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Captured", "Lat", "Lng", "Speed", "Mock"},
					buildRecordRows(records),
					[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft},
				)
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func buildRecordRows(records []telemetry.Record) [][]string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			strconv.FormatInt(rec.ID, 10),
			formatCaptured(rec.Timestamp),
			strconv.FormatFloat(rec.Lat, 'f', 6, 64),
			strconv.FormatFloat(rec.Lng, 'f', 6, 64),
			strconv.FormatFloat(rec.Speed, 'f', 2, 64),
			yesNo(rec.IsMock),
		})
	}
	return rows
}

func formatCaptured(millis int64) string {
	return time.UnixMilli(millis).UTC().Format(time.RFC3339)
}

type ackResult struct {
	Acknowledged []int64 `json:"acknowledged"`
	Missing      []int64 `json:"missing"`
}

func newQueueAckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ack <id> [id...]",
		Short: "Remove delivered records from the buffer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseRecordIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *telemetry.Store) error {
				result := ackResult{Acknowledged: []int64{}, Missing: []int64{}}
				for _, id := range ids {
					removed, err := store.Acknowledge(cmd.Context(), id)
					if err != nil {
						return err
					}
					if removed {
						result.Acknowledged = append(result.Acknowledged, id)
					} else {
						result.Missing = append(result.Missing, id)
					}
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Acknowledged %d record(s)\n", len(result.Acknowledged))
				for _, id := range result.Missing {
					fmt.Fprintf(out, "Record %d not found (already acknowledged)\n", id)
				}
				return nil
			})
		},
	}
}

func parseRecordIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, raw := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid record id %q", raw)
		}
		if id == 0 {
			return nil, fmt.Errorf("%w: %d", telemetry.ErrInvalidID, id)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("at least one record id is required")
	}
	return ids, nil
}

type queueStatus struct {
	Depth             int                `json:"depth"`
	Pressure          backpressure.Level `json:"pressure"`
	ElevatedWatermark int                `json:"elevated_watermark"`
	HighWatermark     int                `json:"high_watermark"`
	DatabasePath      string             `json:"database_path"`
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show buffer depth and backpressure level",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *telemetry.Store) error {
				thresholds := backpressure.ThresholdsFromConfig(cfg)
				status, err := backpressure.NewMonitor(store, thresholds).Check(cmd.Context())
				if err != nil {
					return err
				}
				summary := queueStatus{
					Depth:             status.Depth,
					Pressure:          status.Level,
					ElevatedWatermark: thresholds.Elevated,
					HighWatermark:     thresholds.High,
					DatabasePath:      store.Path(),
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, summary)
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintln(out, renderSectionHeader("Buffer", colorize))
				fmt.Fprintln(out, renderStatusLine("Pending", statusInfo, strconv.Itoa(summary.Depth), colorize))
				fmt.Fprintln(out, renderStatusLine("Pressure", pressureKind(summary.Pressure), string(summary.Pressure), colorize))
				fmt.Fprintln(out, renderStatusLine("Watermarks", statusInfo,
					fmt.Sprintf("elevated %d, high %d", summary.ElevatedWatermark, summary.HighWatermark), colorize))
				fmt.Fprintln(out, renderStatusLine("Database", statusInfo, summary.DatabasePath, colorize))
				return nil
			})
		},
	}
}
