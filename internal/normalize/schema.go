// Package normalize turns the semicolon-delimited sales report into typed records.
package normalize

// Kind is the value encoding of a canonical column.
type Kind int

const (
	KindDate Kind = iota
	KindMoney
	KindCount
	KindPercent
	KindID
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindDate:
		return "date"
	case KindMoney:
		return "money"
	case KindCount:
		return "count"
	case KindPercent:
		return "percent"
	case KindID:
		return "id"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Field is one canonical column.
type Field struct {
	Name string
	Kind Kind
}

// Canonical column names.
const (
	ColDate                = "data"
	ColGMV                 = "gmv"
	ColAverageTicket       = "boleto_medio"
	ColTickets             = "qtd_boletos"
	ColItemsPerTicket      = "itens_boleto"
	ColNetRevenue          = "receita_liquida"
	ColNetRevenueExchanges = "receita_liquida_trocas"
	ColSalesB1             = "vendas_b1"
	ColLoyaltyTickets      = "fidelidade_qtd_boletos"
	ColLoyaltyTicketShare  = "fidelidade_penetracao_boletos"
	ColTotalDiscounts      = "total_descontos"
	ColExchanges           = "trocas"
	ColExchangeCount       = "qtd_trocas"
	ColGiftCardRecharge    = "presente_recarga"
	ColB1Count             = "qtd_b1"
	ColConsultantID        = "id_consultor"
	ColConsultantName      = "nome_consultor"
)

// Schema is the ordered canonical schema of the gerencial_vendas table.
var Schema = []Field{
	{ColDate, KindDate},
	{ColGMV, KindMoney},
	{ColAverageTicket, KindMoney},
	{ColTickets, KindCount},
	{ColItemsPerTicket, KindCount},
	{ColNetRevenue, KindMoney},
	{ColNetRevenueExchanges, KindMoney},
	{ColSalesB1, KindMoney},
	{ColLoyaltyTickets, KindCount},
	{ColLoyaltyTicketShare, KindPercent},
	{ColTotalDiscounts, KindMoney},
	{ColExchanges, KindMoney},
	{ColExchangeCount, KindCount},
	{ColGiftCardRecharge, KindMoney},
	{ColB1Count, KindCount},
	{ColConsultantID, KindID},
	{ColConsultantName, KindText},
}

// KeyColumns are the natural key of a sales row.
var KeyColumns = []string{ColConsultantID, ColDate}

// ColumnNames returns the schema column names in order.
func ColumnNames() []string {
	names := make([]string, len(Schema))
	for i, f := range Schema {
		names[i] = f.Name
	}
	return names
}

// FieldByName returns the schema field called name.
func FieldByName(name string) (Field, bool) {
	for _, f := range Schema {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
