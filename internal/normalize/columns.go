package normalize

import (
	"os"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// ConsultantColumn is the source label of the compound "id - name" column.
const ConsultantColumn = "Listar Por Consultor"

// defaultLabels maps report column labels to canonical names.
var defaultLabels = map[string]string{
	"Quebrar Por Data":                             ColDate,
	"GMV-GMV":                                      ColGMV,
	"GMV-Boleto médio":                             ColAverageTicket,
	"GMV-Qtd de boletos":                           ColTickets,
	"GMV-Itens por boleto":                         ColItemsPerTicket,
	"Valores de vendas-Receita líquida":            ColNetRevenue,
	"Valores de vendas-Receita líquida (-) trocas": ColNetRevenueExchanges,
	"Valores de vendas-B1":                         ColSalesB1,
	"Fidelidade-Qtd de boletos":                    ColLoyaltyTickets,
	"Fidelidade-Penetração Boletos":                ColLoyaltyTicketShare,
	"Descontos-Total de descontos":                 ColTotalDiscounts,
	"Trocas-Trocas":                                ColExchanges,
	"Trocas-Qtd de trocas":                         ColExchangeCount,
	"Cartão presente-Recarga":                      ColGiftCardRecharge,
	"Quantitativo-B1":                              ColB1Count,
}

// ColumnMap maps folded source labels to canonical column names.
type ColumnMap map[string]string

// DefaultColumnMap returns the built-in label table.
func DefaultColumnMap() ColumnMap {
	m := make(ColumnMap, len(defaultLabels))
	for label, name := range defaultLabels {
		m[Fold(label)] = name
	}
	return m
}

// Lookup returns the canonical name for a source label.
func (m ColumnMap) Lookup(label string) (string, bool) {
	name, ok := m[Fold(label)]
	return name, ok
}

// Set maps label to a canonical column, which must be part of Schema.
func (m ColumnMap) Set(label, canonical string) error {
	f, ok := FieldByName(canonical)
	if !ok {
		return eris.Errorf("normalize: unknown canonical column %q for label %q", canonical, label)
	}
	if f.Kind == KindID || f.Kind == KindText {
		return eris.Errorf("normalize: column %q is derived from %q and cannot be mapped", canonical, ConsultantColumn)
	}
	m[Fold(label)] = canonical
	return nil
}

var folder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold normalizes a column label for matching: accents removed, lower case,
// whitespace collapsed, byte-order mark dropped.
func Fold(label string) string {
	label = strings.TrimPrefix(label, "\ufeff")
	if out, _, err := transform.String(folder, label); err == nil {
		label = out
	}
	return strings.Join(strings.Fields(strings.ToLower(label)), " ")
}

type columnMapFile struct {
	Columns map[string]string `yaml:"columns"`
}

// LoadColumnMap reads label overrides from a YAML file and layers them over
// the default table. The file has the form:
//
//	columns:
//	  "GMV-GMV": gmv
func LoadColumnMap(path string) (ColumnMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "normalize: read column map %s", path)
	}

	var f columnMapFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "normalize: parse column map %s", path)
	}

	m := DefaultColumnMap()
	for label, name := range f.Columns {
		if err := m.Set(label, name); err != nil {
			return nil, err
		}
	}
	return m, nil
}
