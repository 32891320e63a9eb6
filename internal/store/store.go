// Package store persists normalized sales records and sync runs.
package store

import (
	"context"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/lojaops/gerencial-vendas/internal/model"
	"github.com/lojaops/gerencial-vendas/internal/normalize"
)

// Table is the sales table name.
const Table = "gerencial_vendas"

// SyncLogTable records one row per report sync run.
const SyncLogTable = "gerencial_vendas_sync_log"

// maxNameLen is the VARCHAR size of nome_consultor.
const maxNameLen = 255

// ErrMissingDate is returned when a record without a date reaches Upsert.
var ErrMissingDate = eris.New("store: record has no date")

// Persister writes records idempotently keyed by (id_consultor, data).
type Persister interface {
	// EnsureSchema creates the tables and indexes if needed. Idempotent.
	EnsureSchema(ctx context.Context) error
	// Upsert writes recs in one transaction. On key conflict every non-key
	// column is overwritten. Any failure rolls the whole batch back.
	Upsert(ctx context.Context, recs []model.Record) (int64, error)
	// RecordRun appends a sync run to the sync log.
	RecordRun(ctx context.Context, run *model.SyncRun) error
	// ListRuns returns the most recent sync runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]model.SyncRun, error)
	Close() error
}

// Driver names accepted by Open.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the store selected by driver.
func Open(ctx context.Context, driver, dsn string, log *zap.Logger) (Persister, error) {
	switch driver {
	case DriverPostgres, "":
		return NewPostgres(ctx, dsn, log)
	case DriverSQLite:
		return NewSQLite(dsn, log)
	default:
		return nil, eris.Errorf("store: unknown driver %q (valid: postgres, sqlite)", driver)
	}
}

// Dedup collapses records sharing a key to the last occurrence, keeping the
// position of the first. Records without a date are an error.
func Dedup(recs []model.Record) ([]model.Record, error) {
	index := make(map[model.Key]int, len(recs))
	out := make([]model.Record, 0, len(recs))
	for i, r := range recs {
		k, ok := r.Key()
		if !ok {
			return nil, eris.Wrapf(ErrMissingDate, "record %d (consultor %d)", i, r.ConsultantID)
		}
		if j, seen := index[k]; seen {
			out[j] = r
			continue
		}
		index[k] = len(out)
		out = append(out, r)
	}
	return out, nil
}

// Columns returns the column list used for writes, in schema order.
func Columns() []string {
	return normalize.ColumnNames()
}

// UpdateColumns returns the non-key columns overwritten on conflict.
func UpdateColumns() []string {
	key := make(map[string]bool, len(normalize.KeyColumns))
	for _, k := range normalize.KeyColumns {
		key[k] = true
	}
	var cols []string
	for _, c := range Columns() {
		if !key[c] {
			cols = append(cols, c)
		}
	}
	return cols
}

// rowValues renders r in Columns() order. date is the driver's encoding of
// the record date.
func rowValues(r model.Record, date any) []any {
	vals := make([]any, 0, len(normalize.Schema))
	for _, f := range normalize.Schema {
		switch f.Name {
		case normalize.ColDate:
			vals = append(vals, date)
		case normalize.ColGMV:
			vals = append(vals, floatVal(r.GMV))
		case normalize.ColAverageTicket:
			vals = append(vals, floatVal(r.AverageTicket))
		case normalize.ColTickets:
			vals = append(vals, countVal(r.Tickets))
		case normalize.ColItemsPerTicket:
			vals = append(vals, countVal(r.ItemsPerTicket))
		case normalize.ColNetRevenue:
			vals = append(vals, floatVal(r.NetRevenue))
		case normalize.ColNetRevenueExchanges:
			vals = append(vals, floatVal(r.NetRevenueExchanges))
		case normalize.ColSalesB1:
			vals = append(vals, floatVal(r.SalesB1))
		case normalize.ColLoyaltyTickets:
			vals = append(vals, countVal(r.LoyaltyTickets))
		case normalize.ColLoyaltyTicketShare:
			vals = append(vals, floatVal(r.LoyaltyTicketShare))
		case normalize.ColTotalDiscounts:
			vals = append(vals, floatVal(r.TotalDiscounts))
		case normalize.ColExchanges:
			vals = append(vals, floatVal(r.Exchanges))
		case normalize.ColExchangeCount:
			vals = append(vals, countVal(r.ExchangeCount))
		case normalize.ColGiftCardRecharge:
			vals = append(vals, floatVal(r.GiftCardRecharge))
		case normalize.ColB1Count:
			vals = append(vals, countVal(r.B1Count))
		case normalize.ColConsultantID:
			vals = append(vals, r.ConsultantID)
		case normalize.ColConsultantName:
			vals = append(vals, truncate(r.ConsultantName, maxNameLen))
		}
	}
	return vals
}

func floatVal(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func countVal(c model.Count) any {
	if p := c.Ptr(); p != nil {
		return *p
	}
	return nil
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
