package model

import "time"

// CountStatus tells how a count field was obtained from the source text.
type CountStatus int

const (
	// CountAbsent means the source column was not present in the report.
	CountAbsent CountStatus = iota
	// CountPresent means the cell held a parsable number.
	CountPresent
	// CountBlank means the column exists but the cell was empty.
	CountBlank
	// CountUnparsable means the cell held text that is not a number.
	CountUnparsable
)

func (s CountStatus) String() string {
	switch s {
	case CountAbsent:
		return "absent"
	case CountPresent:
		return "present"
	case CountBlank:
		return "blank"
	case CountUnparsable:
		return "unparsable"
	default:
		return "unknown"
	}
}

// Count is an integer count field. Blank and unparsable cells carry Value 0,
// the compatibility default of the report pipeline; absent columns persist as NULL.
type Count struct {
	Value  int64
	Status CountStatus
}

// Ptr returns nil for an absent column and the value otherwise.
func (c Count) Ptr() *int64 {
	if c.Status == CountAbsent {
		return nil
	}
	v := c.Value
	return &v
}

// Record is one normalized row of the sales report.
type Record struct {
	Date           *time.Time `json:"data"`
	ConsultantID   int64      `json:"id_consultor"`
	ConsultantName string     `json:"nome_consultor"`

	GMV                 *float64 `json:"gmv"`
	AverageTicket       *float64 `json:"boleto_medio"`
	NetRevenue          *float64 `json:"receita_liquida"`
	NetRevenueExchanges *float64 `json:"receita_liquida_trocas"`
	SalesB1             *float64 `json:"vendas_b1"`
	TotalDiscounts      *float64 `json:"total_descontos"`
	Exchanges           *float64 `json:"trocas"`
	GiftCardRecharge    *float64 `json:"presente_recarga"`
	LoyaltyTicketShare  *float64 `json:"fidelidade_penetracao_boletos"`

	Tickets        Count `json:"qtd_boletos"`
	ItemsPerTicket Count `json:"itens_boleto"`
	LoyaltyTickets Count `json:"fidelidade_qtd_boletos"`
	ExchangeCount  Count `json:"qtd_trocas"`
	B1Count        Count `json:"qtd_b1"`
}

// Key is the natural key of a persisted sales row.
type Key struct {
	ConsultantID int64
	Date         time.Time
}

// Key returns the natural key. ok is false when the date is unknown.
func (r Record) Key() (Key, bool) {
	if r.Date == nil {
		return Key{}, false
	}
	return Key{ConsultantID: r.ConsultantID, Date: Date(*r.Date)}, true
}
