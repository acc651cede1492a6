package telemetry

import (
	"context"
	"database/sql"
	"fmt"
)

// Insert durably appends a pending record and returns its identifier.
//
// The store assigns the next identifier unless WithID is supplied. The ID
// field of rec is ignored. A colliding explicit identifier fails with
// ErrConstraintViolation and leaves the table unchanged.
func (s *Store) Insert(ctx context.Context, rec Record, opts ...InsertOption) (int64, error) {
	if err := s.available(); err != nil {
		return 0, err
	}
	ctx = ensureContext(ctx)
	var options insertOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.hasID && options.id == 0 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidID, options.id)
	}

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			res sql.Result
			err error
		)
		if options.hasID {
			res, err = tx.ExecContext(ctx,
				`INSERT INTO telemetry_queue (id, timestamp, lat, lng, speed, isMock, sent)
                 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				options.id, rec.Timestamp, rec.Lat, rec.Lng, rec.Speed,
				boolToInt(rec.IsMock), boolToInt(rec.Sent),
			)
		} else {
			res, err = tx.ExecContext(ctx,
				`INSERT INTO telemetry_queue (timestamp, lat, lng, speed, isMock, sent)
                 VALUES (?, ?, ?, ?, ?, ?)`,
				rec.Timestamp, rec.Lat, rec.Lng, rec.Speed,
				boolToInt(rec.IsMock), boolToInt(rec.Sent),
			)
		}
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", classify(err))
	}
	return id, nil
}

// Unsent returns up to BatchSize records with sent = 0, oldest timestamp
// first. Records sharing a timestamp are ordered by identifier, which matches
// insertion order for store-assigned identifiers.
//
// Unsent is a read-only peek. It never marks or claims rows, so a later call
// returns the same records until they are deleted.
func (s *Store) Unsent(ctx context.Context) ([]Record, error) {
	if err := s.available(); err != nil {
		return nil, err
	}
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM telemetry_queue
         WHERE sent = 0
         ORDER BY timestamp ASC, id ASC
         LIMIT ?`,
		BatchSize,
	)
	if err != nil {
		return nil, fmt.Errorf("query unsent: %w", classify(err))
	}
	defer rows.Close()

	records := make([]Record, 0, BatchSize)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", classify(err))
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unsent: %w", classify(err))
	}
	return records, nil
}

// Delete acknowledges delivery of the record with the given identifier and
// removes it. Deleting an identifier that is not present succeeds without
// changing anything, so acknowledgments can be repeated safely.
func (s *Store) Delete(ctx context.Context, id int64) error {
	_, err := s.Acknowledge(ctx, id)
	return err
}

// Acknowledge behaves like Delete and additionally reports whether a row was
// removed.
func (s *Store) Acknowledge(ctx context.Context, id int64) (bool, error) {
	if err := s.available(); err != nil {
		return false, err
	}
	ctx = ensureContext(ctx)
	var affected int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM telemetry_queue WHERE id = ?`, id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete record: %w", classify(err))
	}
	return affected > 0, nil
}

// Count returns the number of records currently buffered.
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := s.available(); err != nil {
		return 0, err
	}
	ctx = ensureContext(ctx)
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM telemetry_queue`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count records: %w", classify(err))
	}
	return count, nil
}
