package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/lojaops/gerencial-vendas/internal/model"
)

// DateLayout is the day/month/year layout of report dates. Single-digit
// days and months are accepted.
const DateLayout = "2/1/2006"

// cleanNumber applies pt-BR separator normalization: thousands dots removed,
// decimal comma turned into a point. Currency and percent signs and any
// whitespace are dropped.
func cleanNumber(s string) string {
	s = strings.ReplaceAll(s, "R$", "")
	s = strings.ReplaceAll(s, "%", "")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	return strings.Join(strings.Fields(s), "")
}

// parseMoney parses "R$ 1.234,56" into 1234.56. Blank or unparsable cells are nil.
func parseMoney(s string) *float64 {
	s = cleanNumber(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// parsePercent parses "12,30%" into 0.123. The result is not clamped.
func parsePercent(s string) *float64 {
	v := parseMoney(s)
	if v == nil {
		return nil
	}
	p := *v / 100
	return &p
}

// parseCount parses an integer count, tolerating stray decimals by rounding
// half to even. Blank and unparsable cells default to zero.
func parseCount(s string) model.Count {
	s = cleanNumber(s)
	if s == "" {
		return model.Count{Status: model.CountBlank}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return model.Count{Status: model.CountUnparsable}
	}
	return model.Count{Value: int64(math.RoundToEven(v)), Status: model.CountPresent}
}

// parseDate parses a dd/mm/yyyy date. Unparsable values are nil.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

// splitConsultant splits "123 - Maria Silva" on the first " - ".
// Whole decimal ids such as "12.0" are accepted; any other non-numeric id
// becomes 0.
func splitConsultant(s string) (int64, string) {
	idPart, name, _ := strings.Cut(s, " - ")
	return parseConsultantID(strings.TrimSpace(idPart)), strings.TrimSpace(name)
}

func parseConsultantID(s string) int64 {
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0
	}
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0
	}
	return int64(f)
}
