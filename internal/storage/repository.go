// Package storage persists service records in SQLite. Each record is kept
// as its stored document (JSON) next to the service date, so reads go
// through the same normalization as every other backend.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"keswan/internal/core"
	"keswan/internal/log"
	"keswan/internal/sheets"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
	now    func() time.Time
}

var _ sheets.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if logger == nil {
		logger = log.Discard()
	}

	return &SQLiteRepository{
		db:     db,
		logger: logger.WithComponent(log.ComponentStorage),
		now:    time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Create implements sheets.RecordWriter
func (r *SQLiteRepository) Create(ctx context.Context, rec core.ServiceRecord) (core.ServiceRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	payload, err := json.Marshal(rec.Fields())
	if err != nil {
		return core.ServiceRecord{}, fmt.Errorf("encode record: %w", err)
	}
	now := r.now().UTC().Format(timeLayout)

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO service_records (id, service_on, payload, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Date.UTC().Format(timeLayout), string(payload), now, now)
	if err != nil {
		return core.ServiceRecord{}, fmt.Errorf("insert record: %w", err)
	}

	r.logger.InfoContext(ctx, "Record saved to SQLite",
		log.FieldRecordID, rec.ID,
		log.FieldFacility, rec.Facility,
		log.FieldOfficer, rec.Officer)
	return rec, nil
}

// Replace implements sheets.RecordWriter
func (r *SQLiteRepository) Replace(ctx context.Context, rec core.ServiceRecord) error {
	payload, err := json.Marshal(rec.Fields())
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE service_records SET service_on = ?, payload = ?, updated_at = ? WHERE id = ?`,
		rec.Date.UTC().Format(timeLayout), string(payload), r.now().UTC().Format(timeLayout), rec.ID)
	if err != nil {
		return fmt.Errorf("update record %s: %w", rec.ID, err)
	}
	if err := expectOneRow(res, rec.ID); err != nil {
		return err
	}
	r.logger.InfoContext(ctx, "Record replaced", log.FieldRecordID, rec.ID)
	return nil
}

// Delete implements sheets.RecordWriter
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM service_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	if err := expectOneRow(res, id); err != nil {
		return err
	}
	r.logger.InfoContext(ctx, "Record deleted", log.FieldRecordID, id)
	return nil
}

// GetRaw implements sheets.RecordReader
func (r *SQLiteRepository) GetRaw(ctx context.Context, id string) (core.RawRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, service_on, payload FROM service_records WHERE id = ?`, id)
	raw, err := scanRaw(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RawRecord{}, fmt.Errorf("%w: %s", core.ErrRecordNotFound, id)
	}
	return raw, err
}

// ListRaw implements sheets.RecordSource. Documents whose payload is not
// valid JSON are returned with nil fields so normalization drops them.
func (r *SQLiteRepository) ListRaw(ctx context.Context) ([]core.RawRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, service_on, payload FROM service_records ORDER BY service_on, id`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []core.RawRecord
	for rows.Next() {
		raw, err := scanRaw(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// References implements sheets.ReferenceReader
func (r *SQLiteRepository) References(ctx context.Context, list sheets.ReferenceList) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT value FROM reference_values WHERE list = ? ORDER BY position, value`, string(list))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", list, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan %s: %w", list, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// SeedReferences replaces a reference list, keeping the given order.
func (r *SQLiteRepository) SeedReferences(ctx context.Context, list sheets.ReferenceList, values []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reference_values WHERE list = ?`, string(list)); err != nil {
		return fmt.Errorf("clear %s: %w", list, err)
	}
	for i, v := range values {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO reference_values (list, value, position) VALUES (?, ?, ?)`,
			string(list), v, i); err != nil {
			return fmt.Errorf("insert %s: %w", list, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	r.logger.InfoContext(ctx, "Reference list seeded", log.FieldList, string(list), log.FieldRecords, len(values))
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRaw(s scanner) (core.RawRecord, error) {
	var id, serviceOn, payload string
	if err := s.Scan(&id, &serviceOn, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.RawRecord{}, err
		}
		return core.RawRecord{}, fmt.Errorf("scan record: %w", err)
	}
	raw := core.RawRecord{ID: id}
	if t, err := time.Parse(timeLayout, serviceOn); err == nil {
		raw.StoredAt = t
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(payload), &fields); err == nil {
		raw.Fields = fields
	}
	return raw, nil
}

func expectOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", core.ErrRecordNotFound, id)
	}
	return nil
}
