package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

var expectedColumns = []string{"id", "timestamp", "lat", "lng", "speed", "isMock", "sent"}

// Health returns diagnostic information about the buffer database.
func (s *Store) Health(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.Path()}

	if health.DBPath == "" {
		return health, errors.New("telemetry database path is unknown")
	}

	info, err := os.Stat(health.DBPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat telemetry database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("telemetry database path %q is a directory", health.DBPath)
	}
	health.DatabaseExists = true

	if err := s.available(); err != nil {
		health.Error = err.Error()
		return health, err
	}

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping telemetry database: %w", classify(err))
	}
	health.DatabaseReadable = true

	if err := s.db.QueryRowContext(connCtx, "SELECT version FROM schema_version LIMIT 1").Scan(&health.SchemaVersion); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("read schema version: %w", classify(err))
	}

	var tableName string
	row := s.db.QueryRowContext(connCtx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'telemetry_queue'")
	if err := row.Scan(&tableName); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			health.Error = err.Error()
			return health, fmt.Errorf("query table info: %w", classify(err))
		}
	} else {
		health.TableExists = true
	}

	if health.TableExists {
		columns, err := s.tableColumns(connCtx)
		if err != nil {
			health.Error = err.Error()
			return health, err
		}
		health.ColumnsPresent = columns
		health.MissingColumns = missingColumns(columns)

		if err := s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM telemetry_queue").Scan(&health.TotalRecords); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count records: %w", classify(err))
		}
		if err := s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM telemetry_queue WHERE sent = 0").Scan(&health.UnsentRecords); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count unsent records: %w", classify(err))
		}
	}

	var integrityResult string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", classify(err))
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}

func (s *Store) tableColumns(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info(telemetry_queue)")
	if err != nil {
		return nil, fmt.Errorf("table info: %w", classify(err))
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			cid     int
			name    string
			typeStr string
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typeStr, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table info: %w", err)
	}
	return columns, nil
}

func missingColumns(present []string) []string {
	missing := make(map[string]struct{}, len(expectedColumns))
	for _, col := range expectedColumns {
		missing[col] = struct{}{}
	}
	for _, col := range present {
		delete(missing, col)
	}
	out := make([]string, 0, len(missing))
	for col := range missing {
		out = append(out, col)
	}
	sort.Strings(out)
	return out
}
