package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"trackbuf/internal/config"
	"trackbuf/internal/preflight"
	"trackbuf/internal/telemetry"
)

type healthReport struct {
	Database telemetry.DatabaseHealth `json:"database"`
	Checks   []preflight.Result       `json:"checks"`
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check buffer database health (schema, integrity, columns) and paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *telemetry.Store) error {
				db, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}
				report := healthReport{
					Database: db,
					Checks:   preflight.RunAll(cmd.Context(), cfg),
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, report)
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintln(out, renderSectionHeader("Database", colorize))
				fmt.Fprintln(out, renderStatusLine("Path", statusInfo, db.DBPath, colorize))
				fmt.Fprintln(out, renderStatusLine("Exists", passKind(db.DatabaseExists), yesNo(db.DatabaseExists), colorize))
				fmt.Fprintln(out, renderStatusLine("Readable", passKind(db.DatabaseReadable), yesNo(db.DatabaseReadable), colorize))
				fmt.Fprintln(out, renderStatusLine("Schema version", statusInfo, strconv.Itoa(db.SchemaVersion), colorize))
				fmt.Fprintln(out, renderStatusLine("Table present", passKind(db.TableExists), yesNo(db.TableExists), colorize))
				if len(db.MissingColumns) > 0 {
					missing := append([]string(nil), db.MissingColumns...)
					sort.Strings(missing)
					fmt.Fprintln(out, renderStatusLine("Missing columns", statusError, strings.Join(missing, ", "), colorize))
				} else {
					fmt.Fprintln(out, renderStatusLine("Missing columns", statusOK, "none", colorize))
				}
				fmt.Fprintln(out, renderStatusLine("Integrity check", passKind(db.IntegrityCheck), yesNo(db.IntegrityCheck), colorize))
				fmt.Fprintln(out, renderStatusLine("Records", statusInfo,
					fmt.Sprintf("%d total, %d unsent", db.TotalRecords, db.UnsentRecords), colorize))
				if db.Error != "" {
					fmt.Fprintln(out, renderStatusLine("Error", statusError, db.Error, colorize))
				}

				fmt.Fprintln(out)
				fmt.Fprintln(out, renderSectionHeader("Preflight", colorize))
				for _, check := range report.Checks {
					fmt.Fprintln(out, renderStatusLine(check.Name, passKind(check.Passed), check.Detail, colorize))
				}
				return nil
			})
		},
	}
}
