package export

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/lojaops/gerencial-vendas/internal/model"
	"github.com/lojaops/gerencial-vendas/internal/normalize"
)

func TestFileName(t *testing.T) {
	assert.Equal(t, "relatorio_por_consultor.xlsx", FileName("por_consultor"))
	assert.Equal(t, "relatorio_a_b_c.xlsx", FileName("a/b c"))
}

func TestWriteXLSX(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	d := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	gmv := 1234.56
	recs := []model.Record{
		{
			Date:           &d,
			ConsultantID:   10,
			ConsultantName: "Ana",
			GMV:            &gmv,
			Tickets:        model.Count{Value: 7, Status: model.CountPresent},
		},
		{ConsultantID: 11, ConsultantName: "Bia"},
	}

	path, err := WriteXLSX(dir, "por_consultor", recs)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "relatorio_por_consultor.xlsx"), path)

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	sheet, ok := f.Sheet[SheetName]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 3)

	cols := normalize.ColumnNames()
	idx := map[string]int{}
	for i, c := range sheet.Rows[0].Cells {
		assert.Equal(t, cols[i], c.Value)
		idx[c.Value] = i
	}

	first := sheet.Rows[1].Cells
	assert.Equal(t, "1234.56", first[idx["gmv"]].Value)
	assert.Equal(t, "7", first[idx["qtd_boletos"]].Value)
	assert.Equal(t, "10", first[idx["id_consultor"]].Value)
	assert.Equal(t, "Ana", first[idx["nome_consultor"]].Value)
	assert.NotEmpty(t, first[idx["data"]].Value)

	second := sheet.Rows[2].Cells
	assert.Empty(t, second[idx["gmv"]].Value)
	assert.Empty(t, second[idx["data"]].Value)
	assert.Equal(t, "Bia", second[idx["nome_consultor"]].Value)
}
