// Package report retrieves the sales report from the commerce backend and
// assembles windowed responses into one CSV document.
package report

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/lojaops/gerencial-vendas/internal/fetcher"
	"github.com/lojaops/gerencial-vendas/internal/model"
	"github.com/lojaops/gerencial-vendas/internal/resilience"
)

// ReportPath is the report generation endpoint relative to the API base URL.
const ReportPath = "/v1/relatorios/gerencial-vendas/gera"

// Source performs one report request for a bounded date range. It never retries.
type Source interface {
	Fetch(ctx context.Context, r model.DateRange, listBy, breakBy, token string) (string, error)
}

// FetchError is a failed report request: either a non-200 response or a
// transport error.
type FetchError struct {
	Range      model.DateRange
	StatusCode int
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("report: fetch %s: %v", e.Range, e.Err)
	}
	return fmt.Sprintf("report: fetch %s: status %d: %s", e.Range, e.StatusCode, e.Body)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// request is the fixed-shape body of the report generation call.
type request struct {
	AtivaMetas                 bool    `json:"ativaMetas"`
	AtivaPersonalizacao        bool    `json:"ativaPersonalizacao"`
	CalculoMetasComplementares string  `json:"calculoMetasComplementares"`
	CampoOrdenado              string  `json:"campoOrdenado"`
	DataInicial                string  `json:"dataInicial"`
	DataFinal                  string  `json:"dataFinal"`
	DiasCom                    string  `json:"diasCom"`
	Exibicao                   string  `json:"exibicao"`
	HoraInicial                string  `json:"horaInicial"`
	HoraFinal                  string  `json:"horaFinal"`
	IndicadorReceita           string  `json:"indicadorReceita"`
	ListarPor                  string  `json:"listarPor"`
	Ordenacao                  string  `json:"ordenacao"`
	PersonalizacaoID           *string `json:"personalizacaoId"`
	QuebrarPor                 string  `json:"quebrarPor"`
	Sistema                    string  `json:"sistema"`
	VisualizacaoAnoAnterior    string  `json:"visualizacaoAnoAnterior"`
}

func newRequest(r model.DateRange, listBy, breakBy string) request {
	return request{
		AtivaMetas:                 true,
		AtivaPersonalizacao:        true,
		CalculoMetasComplementares: "GMV",
		CampoOrdenado:              "listarPor",
		DataInicial:                r.Start.Format(model.DateLayout),
		DataFinal:                  r.End.Format(model.DateLayout),
		DiasCom:                    "VENDAS",
		Exibicao:                   "CSV",
		HoraInicial:                "00:00",
		HoraFinal:                  "23:59",
		IndicadorReceita:           "GMV",
		ListarPor:                  listBy,
		Ordenacao:                  "asc",
		QuebrarPor:                 breakBy,
		Sistema:                    "TODOS",
		VisualizacaoAnoAnterior:    "ANO_VAREJO",
	}
}

// HTTPSource fetches the report over HTTP.
type HTTPSource struct {
	poster  fetcher.Poster
	baseURL string
	log     *zap.Logger
}

// NewHTTPSource creates a Source posting to {baseURL}/v1/relatorios/gerencial-vendas/gera.
func NewHTTPSource(poster fetcher.Poster, baseURL string, log *zap.Logger) *HTTPSource {
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPSource{
		poster:  poster,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log.With(zap.String("component", "report.source")),
	}
}

// Fetch requests the report for r. The token is sent verbatim as the
// Authorization header. The returned string is the raw response body.
func (s *HTTPSource) Fetch(ctx context.Context, r model.DateRange, listBy, breakBy, token string) (string, error) {
	hdr := http.Header{}
	hdr.Set("Authorization", token)

	s.log.Debug("requesting report",
		zap.String("range", r.String()),
		zap.String("list_by", listBy),
		zap.String("break_by", breakBy),
	)

	resp, err := s.poster.PostJSON(ctx, s.baseURL+ReportPath, hdr, newRequest(r, listBy, breakBy))
	if err != nil {
		return "", &FetchError{Range: r, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &FetchError{
			Range:      r,
			StatusCode: resp.StatusCode,
			Body:       resilience.Snippet(resp.Body),
		}
	}
	return string(resp.Body), nil
}
