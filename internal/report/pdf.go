package report

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/presenca/discovery-audit/internal/model"
)

// ErrPDFUnconfigured is returned when no external renderer is configured.
var ErrPDFUnconfigured = eris.New("report: pdf renderer not configured")

// PDFRenderer proxies report payloads to an external HTML-to-PDF service.
type PDFRenderer struct {
	serviceURL string
	http       *http.Client
}

// NewPDFRenderer creates a renderer. An empty serviceURL leaves PDF output
// disabled; Render then returns ErrPDFUnconfigured.
func NewPDFRenderer(serviceURL string) *PDFRenderer {
	return &PDFRenderer{
		serviceURL: serviceURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Enabled reports whether a PDF service is configured.
func (r *PDFRenderer) Enabled() bool {
	return r.serviceURL != ""
}

type pdfRequest struct {
	Business    *model.Business    `json:"business"`
	Audit       *model.Audit       `json:"audit"`
	Competitors []model.Competitor `json:"competitors"`
}

// Render posts the audit payload to the external service and returns the
// PDF bytes.
func (r *PDFRenderer) Render(ctx context.Context, b *model.Business, a *model.Audit, competitors []model.Competitor) ([]byte, error) {
	if !r.Enabled() {
		return nil, ErrPDFUnconfigured
	}

	body, err := json.Marshal(pdfRequest{Business: b, Audit: a, Competitors: competitors})
	if err != nil {
		return nil, eris.Wrap(err, "report: marshal pdf request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.serviceURL, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "report: create pdf request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "report: pdf service request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, eris.Errorf("report: pdf service status %d: %s", resp.StatusCode, string(payload))
	}
	return io.ReadAll(resp.Body)
}
