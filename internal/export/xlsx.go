// Package export writes normalized records to spreadsheet files.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/lojaops/gerencial-vendas/internal/model"
	"github.com/lojaops/gerencial-vendas/internal/normalize"
)

// SheetName is the worksheet holding the report rows.
const SheetName = "gerencial_vendas"

// FileName returns the export file name for a report configuration.
func FileName(report string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, report)
	return fmt.Sprintf("relatorio_%s.xlsx", name)
}

// WriteXLSX writes recs to dir/relatorio_<report>.xlsx with one column per
// schema field, and returns the file path. Missing values are left blank.
func WriteXLSX(dir, report string, recs []model.Record) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "export: create dir %s", dir)
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return "", eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, field := range normalize.Schema {
		header.AddCell().SetString(field.Name)
	}

	for _, r := range recs {
		row := sheet.AddRow()
		for _, field := range normalize.Schema {
			writeCell(row.AddCell(), field, r)
		}
	}

	path := filepath.Join(dir, FileName(report))
	if err := f.Save(path); err != nil {
		return "", eris.Wrapf(err, "export: save %s", path)
	}
	return path, nil
}

func writeCell(c *xlsx.Cell, field normalize.Field, r model.Record) {
	switch field.Name {
	case normalize.ColDate:
		if r.Date != nil {
			c.SetDate(*r.Date)
		}
	case normalize.ColConsultantID:
		c.SetInt64(r.ConsultantID)
	case normalize.ColConsultantName:
		c.SetString(r.ConsultantName)
	case normalize.ColGMV:
		setFloat(c, r.GMV)
	case normalize.ColAverageTicket:
		setFloat(c, r.AverageTicket)
	case normalize.ColNetRevenue:
		setFloat(c, r.NetRevenue)
	case normalize.ColNetRevenueExchanges:
		setFloat(c, r.NetRevenueExchanges)
	case normalize.ColSalesB1:
		setFloat(c, r.SalesB1)
	case normalize.ColTotalDiscounts:
		setFloat(c, r.TotalDiscounts)
	case normalize.ColExchanges:
		setFloat(c, r.Exchanges)
	case normalize.ColGiftCardRecharge:
		setFloat(c, r.GiftCardRecharge)
	case normalize.ColLoyaltyTicketShare:
		setFloat(c, r.LoyaltyTicketShare)
	case normalize.ColTickets:
		setCount(c, r.Tickets)
	case normalize.ColItemsPerTicket:
		setCount(c, r.ItemsPerTicket)
	case normalize.ColLoyaltyTickets:
		setCount(c, r.LoyaltyTickets)
	case normalize.ColExchangeCount:
		setCount(c, r.ExchangeCount)
	case normalize.ColB1Count:
		setCount(c, r.B1Count)
	}
}

func setFloat(c *xlsx.Cell, v *float64) {
	if v != nil {
		c.SetFloat(*v)
	}
}

func setCount(c *xlsx.Cell, v model.Count) {
	if p := v.Ptr(); p != nil {
		c.SetInt64(*p)
	}
}
