package normalize

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/lojaops/gerencial-vendas/internal/fetcher"
	"github.com/lojaops/gerencial-vendas/internal/model"
)

// ErrParse marks documents that cannot be read as semicolon-delimited report text.
var ErrParse = eris.New("normalize: document is not a delimited report")

// Stats counts what Normalize discarded or could not parse.
type Stats struct {
	RowsIn          int
	EmptyRows       int
	EmptyColumns    int
	UnmappedColumns []string
	BadDates        int
	BadNumbers      int
}

// Normalizer maps report columns onto the canonical schema.
type Normalizer struct {
	cols ColumnMap
	log  *zap.Logger
}

// New creates a Normalizer. A nil ColumnMap uses DefaultColumnMap.
func New(cols ColumnMap, log *zap.Logger) *Normalizer {
	if cols == nil {
		cols = DefaultColumnMap()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Normalizer{cols: cols, log: log.With(zap.String("component", "normalize"))}
}

// column is a source column bound to its canonical target.
type column struct {
	index int
	field Field
	label string
}

// Normalize parses doc into records. The first line is the header. Entirely
// empty rows and columns are dropped, unmapped columns are ignored, and
// missing columns leave their fields unset.
func (n *Normalizer) Normalize(ctx context.Context, doc string) ([]model.Record, error) {
	recs, _, err := n.NormalizeWithStats(ctx, doc)
	return recs, err
}

// NormalizeWithStats is Normalize plus counters of what was discarded.
func (n *Normalizer) NormalizeWithStats(ctx context.Context, doc string) ([]model.Record, *Stats, error) {
	if strings.TrimSpace(doc) == "" {
		return nil, nil, eris.Wrap(ErrParse, "empty document")
	}

	tbl, err := fetcher.ReadTable(ctx, strings.NewReader(doc), fetcher.CSVOptions{
		Delimiter:  ';',
		LazyQuotes: true,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, eris.Wrap(ctx.Err(), "normalize: read document")
		}
		return nil, nil, eris.Wrapf(ErrParse, "%v", err)
	}

	stats := &Stats{RowsIn: len(tbl.Rows)}
	width := len(tbl.Header)
	rows := make([][]string, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		if isBlank(row) {
			stats.EmptyRows++
			continue
		}
		if len(row) < width {
			row = append(row, make([]string, width-len(row))...)
		}
		rows = append(rows, row)
	}

	nonEmpty := make([]bool, width)
	for _, row := range rows {
		for i := 0; i < width; i++ {
			if strings.TrimSpace(row[i]) != "" {
				nonEmpty[i] = true
			}
		}
	}

	var cols []column
	consultantIdx := -1
	for i, label := range tbl.Header {
		if !nonEmpty[i] {
			stats.EmptyColumns++
			continue
		}
		if Fold(label) == Fold(ConsultantColumn) {
			consultantIdx = i
			continue
		}
		name, ok := n.cols.Lookup(label)
		if !ok {
			stats.UnmappedColumns = append(stats.UnmappedColumns, strings.TrimSpace(label))
			continue
		}
		f, _ := FieldByName(name)
		cols = append(cols, column{index: i, field: f, label: label})
	}
	if len(cols) == 0 && consultantIdx < 0 && len(rows) > 0 {
		return nil, nil, eris.Wrapf(ErrParse, "no known column in header %q", strings.Join(tbl.Header, ";"))
	}

	records := make([]model.Record, 0, len(rows))
	for _, row := range rows {
		var rec model.Record
		if consultantIdx >= 0 {
			rec.ConsultantID, rec.ConsultantName = splitConsultant(row[consultantIdx])
		}
		for _, c := range cols {
			if !assign(&rec, c.field, row[c.index]) {
				if c.field.Kind == KindDate {
					stats.BadDates++
				} else {
					stats.BadNumbers++
				}
			}
		}
		records = append(records, rec)
	}

	n.log.Info("report normalized",
		zap.Int("rows", len(records)),
		zap.Int("empty_rows", stats.EmptyRows),
		zap.Int("empty_columns", stats.EmptyColumns),
		zap.Strings("unmapped_columns", stats.UnmappedColumns),
		zap.Int("bad_dates", stats.BadDates),
		zap.Int("bad_numbers", stats.BadNumbers),
	)
	return records, stats, nil
}

// assign stores raw into the record field for f. It returns false when a
// non-blank cell could not be parsed.
func assign(rec *model.Record, f Field, raw string) bool {
	blank := strings.TrimSpace(raw) == ""
	switch f.Kind {
	case KindDate:
		rec.Date = parseDate(raw)
		return blank || rec.Date != nil
	case KindMoney:
		v := parseMoney(raw)
		*moneyField(rec, f.Name) = v
		return blank || v != nil
	case KindPercent:
		v := parsePercent(raw)
		rec.LoyaltyTicketShare = v
		return blank || v != nil
	case KindCount:
		c := parseCount(raw)
		*countField(rec, f.Name) = c
		return c.Status != model.CountUnparsable
	}
	return true
}

func moneyField(rec *model.Record, name string) **float64 {
	switch name {
	case ColGMV:
		return &rec.GMV
	case ColAverageTicket:
		return &rec.AverageTicket
	case ColNetRevenue:
		return &rec.NetRevenue
	case ColNetRevenueExchanges:
		return &rec.NetRevenueExchanges
	case ColSalesB1:
		return &rec.SalesB1
	case ColTotalDiscounts:
		return &rec.TotalDiscounts
	case ColExchanges:
		return &rec.Exchanges
	case ColGiftCardRecharge:
		return &rec.GiftCardRecharge
	}
	panic("normalize: not a money column: " + name)
}

func countField(rec *model.Record, name string) *model.Count {
	switch name {
	case ColTickets:
		return &rec.Tickets
	case ColItemsPerTicket:
		return &rec.ItemsPerTicket
	case ColLoyaltyTickets:
		return &rec.LoyaltyTickets
	case ColExchangeCount:
		return &rec.ExchangeCount
	case ColB1Count:
		return &rec.B1Count
	}
	panic("normalize: not a count column: " + name)
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
