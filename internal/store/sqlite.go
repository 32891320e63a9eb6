package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/lojaops/gerencial-vendas/internal/model"
)

// sqliteBatchSize bounds the rows per INSERT statement (17 columns each).
const sqliteBatchSize = 500

// sqliteTimeLayout is fixed-width so that text ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02 15:04:05.000000000"

// SQLiteStore implements Persister using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	log *zap.Logger
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string, log *zap.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, log: log.With(zap.String("component", "store.sqlite"))}, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS gerencial_vendas (
	data                          TEXT NOT NULL,
	gmv                           DECIMAL(15,2),
	boleto_medio                  DECIMAL(15,2),
	qtd_boletos                   INTEGER,
	itens_boleto                  INTEGER,
	receita_liquida               DECIMAL(15,2),
	receita_liquida_trocas        DECIMAL(15,2),
	vendas_b1                     DECIMAL(15,2),
	fidelidade_qtd_boletos        INTEGER,
	fidelidade_penetracao_boletos DECIMAL(9,6),
	total_descontos               DECIMAL(15,2),
	trocas                        DECIMAL(15,2),
	qtd_trocas                    INTEGER,
	presente_recarga              DECIMAL(15,2),
	qtd_b1                        INTEGER,
	id_consultor                  INTEGER NOT NULL,
	nome_consultor                VARCHAR(255),
	PRIMARY KEY (id_consultor, data)
);

CREATE INDEX IF NOT EXISTS idx_gerencial_vendas_data ON gerencial_vendas (data);
CREATE INDEX IF NOT EXISTS idx_gerencial_vendas_id_consultor ON gerencial_vendas (id_consultor);
CREATE INDEX IF NOT EXISTS idx_gerencial_vendas_consultor_data ON gerencial_vendas (id_consultor, data);

CREATE TABLE IF NOT EXISTS gerencial_vendas_sync_log (
	id             TEXT PRIMARY KEY,
	report         TEXT NOT NULL,
	range_start    TEXT NOT NULL,
	range_end      TEXT NOT NULL,
	strategy       TEXT NOT NULL DEFAULT '',
	windows_total  INTEGER NOT NULL DEFAULT 0,
	windows_failed INTEGER NOT NULL DEFAULT 0,
	rows_parsed    INTEGER NOT NULL DEFAULT 0,
	rows_dropped   INTEGER NOT NULL DEFAULT 0,
	rows_written   INTEGER NOT NULL DEFAULT 0,
	status         TEXT NOT NULL,
	error          TEXT,
	started_at     TEXT NOT NULL,
	completed_at   TEXT
);

CREATE INDEX IF NOT EXISTS idx_gerencial_vendas_sync_log_started ON gerencial_vendas_sync_log (started_at DESC);
`

// EnsureSchema creates the tables and indexes.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteSchema)
	return eris.Wrap(err, "sqlite: ensure schema")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Upsert writes recs in one transaction using multi-row INSERT ... ON CONFLICT
// statements. Dates are stored as YYYY-MM-DD text.
func (s *SQLiteStore) Upsert(ctx context.Context, recs []model.Record) (int64, error) {
	recs, err := Dedup(recs)
	if err != nil {
		return 0, err
	}
	if len(recs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	var total int64
	for start := 0; start < len(recs); start += sqliteBatchSize {
		end := min(start+sqliteBatchSize, len(recs))
		batch := recs[start:end]

		args := make([]any, 0, len(batch)*len(Columns()))
		for _, r := range batch {
			args = append(args, rowValues(r, r.Date.Format(model.DateLayout))...)
		}

		res, err := tx.ExecContext(ctx, upsertSQL(len(batch)), args...)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert rows %d-%d", start, end-1)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: rows affected")
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit tx")
	}

	s.log.Info("records upserted", zap.Int("records", len(recs)), zap.Int64("affected", total))
	return total, nil
}

// upsertSQL builds an INSERT for n rows that overwrites non-key columns on conflict.
func upsertSQL(n int) string {
	cols := Columns()
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	values := make([]string, n)
	for i := range values {
		values[i] = placeholder
	}

	update := UpdateColumns()
	set := make([]string, len(update))
	for i, c := range update {
		set[i] = fmt.Sprintf("%s = excluded.%s", c, c)
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s ON CONFLICT (id_consultor, data) DO UPDATE SET %s",
		Table, strings.Join(cols, ", "), strings.Join(values, ", "), strings.Join(set, ", "))
}

// RecordRun inserts run into the sync log, assigning an ID when empty.
func (s *SQLiteStore) RecordRun(ctx context.Context, run *model.SyncRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	var completed *string
	if run.CompletedAt != nil {
		c := run.CompletedAt.UTC().Format(sqliteTimeLayout)
		completed = &c
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO gerencial_vendas_sync_log
			(id, report, range_start, range_end, strategy, windows_total, windows_failed,
			 rows_parsed, rows_dropped, rows_written, status, error, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Report, run.Range.Start.Format(model.DateLayout), run.Range.End.Format(model.DateLayout),
		run.Strategy, run.WindowsTotal, run.WindowsFailed, run.RowsParsed, run.RowsDropped, run.RowsWritten,
		string(run.Status), nullString(run.Error), run.StartedAt.UTC().Format(sqliteTimeLayout), completed,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: record run %s", run.ID)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, report, range_start, range_end, strategy, windows_total, windows_failed,
			rows_parsed, rows_dropped, rows_written, status, error, started_at, completed_at
		 FROM gerencial_vendas_sync_log ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.SyncRun
	for rows.Next() {
		var (
			r                           model.SyncRun
			start, end, status, started string
			errMsg, completedStr        sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Report, &start, &end, &r.Strategy, &r.WindowsTotal, &r.WindowsFailed,
			&r.RowsParsed, &r.RowsDropped, &r.RowsWritten, &status, &errMsg, &started, &completedStr); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.Status = model.RunStatus(status)
		r.Error = errMsg.String
		if r.Range, err = model.ParseDateRange(start, end); err != nil {
			return nil, eris.Wrapf(err, "sqlite: run %s range", r.ID)
		}
		if r.StartedAt, err = time.Parse(sqliteTimeLayout, started); err != nil {
			return nil, eris.Wrapf(err, "sqlite: run %s started_at", r.ID)
		}
		if completedStr.Valid {
			t, err := time.Parse(sqliteTimeLayout, completedStr.String)
			if err != nil {
				return nil, eris.Wrapf(err, "sqlite: run %s completed_at", r.ID)
			}
			r.CompletedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
