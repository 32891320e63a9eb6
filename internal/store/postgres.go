package store

import (
	"context"
	"embed"
	"io/fs"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/lojaops/gerencial-vendas/internal/db"
	"github.com/lojaops/gerencial-vendas/internal/model"
	"github.com/lojaops/gerencial-vendas/internal/normalize"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrationLockID keys the advisory lock held while migrating.
const migrationLockID = 7215506

// PostgresStore implements Persister using pgx.
type PostgresStore struct {
	pool db.Pool
	log  *zap.Logger
}

// NewPostgres connects to Postgres and returns a store owning the pool.
func NewPostgres(ctx context.Context, dsn string, log *zap.Logger) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, dsn, nil)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return NewPostgresWithPool(pool, log), nil
}

// NewPostgresWithPool wraps an existing pool. The store closes it on Close.
func NewPostgresWithPool(pool db.Pool, log *zap.Logger) *PostgresStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &PostgresStore{pool: pool, log: log.With(zap.String("component", "store.postgres"))}
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// EnsureSchema applies pending migrations in lexicographic order, recording
// each in schema_migrations. Everything runs in one transaction holding a
// transaction-scoped advisory lock, so the lock is released with the
// connection that took it.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin migration tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", migrationLockID); err != nil {
		return eris.Wrap(err, "postgres: acquire migration advisory lock")
	}

	if _, err := tx.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
			filename   TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return eris.Wrap(err, "postgres: ensure migration table")
	}

	names, err := migrationNames()
	if err != nil {
		return err
	}

	applied, err := appliedMigrations(ctx, tx)
	if err != nil {
		return err
	}

	for _, name := range names {
		if applied[name] {
			continue
		}

		data, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return eris.Wrapf(err, "postgres: read migration %s", name)
		}

		s.log.Info("applying migration", zap.String("file", name))
		if _, err := tx.Exec(ctx, string(data)); err != nil {
			return eris.Wrapf(err, "postgres: apply migration %s", name)
		}
		if _, err := tx.Exec(ctx,
			"INSERT INTO schema_migrations (filename, applied_at) VALUES ($1, now())",
			name,
		); err != nil {
			return eris.Wrapf(err, "postgres: record migration %s", name)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: commit migrations")
	}
	return nil
}

// migrationNames returns the embedded migration files in order.
func migrationNames() ([]string, error) {
	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return nil, eris.Wrap(err, "postgres: read migration dir")
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func appliedMigrations(ctx context.Context, tx pgx.Tx) (map[string]bool, error) {
	rows, err := tx.Query(ctx, "SELECT filename FROM schema_migrations")
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query applied migrations")
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan migration row")
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

// Upsert writes recs through a temp table and one INSERT ... ON CONFLICT.
func (s *PostgresStore) Upsert(ctx context.Context, recs []model.Record) (int64, error) {
	recs, err := Dedup(recs)
	if err != nil {
		return 0, err
	}
	if len(recs) == 0 {
		return 0, nil
	}

	rows := make([][]any, len(recs))
	for i, r := range recs {
		rows[i] = rowValues(r, model.Date(*r.Date))
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        Table,
		Columns:      Columns(),
		ConflictKeys: normalize.KeyColumns,
		UpdateCols:   UpdateColumns(),
	}, rows)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: upsert %d records", len(recs))
	}

	s.log.Info("records upserted", zap.Int("records", len(recs)), zap.Int64("affected", n))
	return n, nil
}

// RecordRun inserts run into the sync log, assigning an ID when empty.
func (s *PostgresStore) RecordRun(ctx context.Context, run *model.SyncRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO gerencial_vendas_sync_log
			(id, report, range_start, range_end, strategy, windows_total, windows_failed,
			 rows_parsed, rows_dropped, rows_written, status, error, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		run.ID, run.Report, run.Range.Start, run.Range.End, run.Strategy,
		run.WindowsTotal, run.WindowsFailed, run.RowsParsed, run.RowsDropped, run.RowsWritten,
		string(run.Status), nullString(run.Error), run.StartedAt, run.CompletedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: record run %s", run.ID)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, report, range_start, range_end, strategy, windows_total, windows_failed,
			rows_parsed, rows_dropped, rows_written, status, error, started_at, completed_at
		 FROM gerencial_vendas_sync_log ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.SyncRun
	for rows.Next() {
		var (
			r          model.SyncRun
			id         string
			status     string
			errMsg     *string
			start, end time.Time
		)
		if err := rows.Scan(&id, &r.Report, &start, &end, &r.Strategy, &r.WindowsTotal, &r.WindowsFailed,
			&r.RowsParsed, &r.RowsDropped, &r.RowsWritten, &status, &errMsg, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.ID = id
		r.Status = model.RunStatus(status)
		r.Range = model.DateRange{Start: model.Date(start), End: model.Date(end)}
		if errMsg != nil {
			r.Error = *errMsg
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
