package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/presenca/discovery-audit/internal/audit"
	"github.com/presenca/discovery-audit/internal/delivery"
	"github.com/presenca/discovery-audit/internal/model"
	"github.com/presenca/discovery-audit/internal/report"
	"github.com/presenca/discovery-audit/internal/store"
	"github.com/presenca/discovery-audit/pkg/places"
)

type createAuditRequest struct {
	BusinessName string `json:"business_name"`
	Location     string `json:"location"`
	Contact      string `json:"contact,omitempty"`
	DeliveryMode string `json:"delivery_mode,omitempty"`
}

type createAuditResponse struct {
	ID     string            `json:"id"`
	Status model.AuditStatus `json:"status"`
	Cached bool              `json:"cached"`
	Audit  *model.Audit      `json:"audit,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateAudit(w http.ResponseWriter, r *http.Request) {
	var req createAuditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.BusinessName == "" || req.Location == "" {
		writeError(w, http.StatusBadRequest, "business_name and location are required")
		return
	}

	mode := model.DeliveryMode(req.DeliveryMode)
	if mode == "" {
		mode = model.DeliveryModeStandalone
	}
	if mode != model.DeliveryModeStandalone && mode != model.DeliveryModeMessaging {
		writeError(w, http.StatusBadRequest, "delivery_mode must be standalone or messaging")
		return
	}
	if mode == model.DeliveryModeMessaging && req.Contact == "" {
		writeError(w, http.StatusBadRequest, "messaging mode requires a contact")
		return
	}

	result, err := s.audits.Create(r.Context(), audit.Request{
		BusinessName: req.BusinessName,
		Location:     req.Location,
		Contact:      req.Contact,
		DeliveryMode: mode,
	})
	if err != nil {
		switch {
		case model.IsNotFound(err):
			writeError(w, http.StatusNotFound, err.Error())
		case places.IsQuotaError(err):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			zap.L().Error("server: create audit failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to create audit")
		}
		return
	}

	status := http.StatusCreated
	resp := createAuditResponse{
		ID:     result.Audit.ID,
		Status: result.Audit.Status,
		Cached: result.Cached,
	}
	if result.Cached {
		status = http.StatusOK
		resp.Audit = result.Audit
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, err := s.store.GetAudit(r.Context(), id)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "audit not found")
			return
		}
		zap.L().Error("server: get audit failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load audit")
		return
	}

	type snapshot struct {
		model.Audit
		Delivery *model.DeliveryAttempt `json:"delivery,omitempty"`
	}
	out := snapshot{Audit: *a}
	if a.Contact != "" {
		if attempt, attemptErr := s.store.GetDeliveryAttempt(r.Context(), a.ID, a.Contact); attemptErr == nil {
			out.Delivery = attempt
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListCompetitors(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.GetAudit(r.Context(), id); err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "audit not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load audit")
		return
	}

	competitors, err := s.store.ListCompetitors(r.Context(), id)
	if err != nil {
		zap.L().Error("server: list competitors failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load competitors")
		return
	}
	if competitors == nil {
		competitors = []model.Competitor{}
	}
	writeJSON(w, http.StatusOK, competitors)
}

func (s *Server) handleSendWhatsApp(w http.ResponseWriter, r *http.Request) {
	if s.deliverer == nil {
		writeError(w, http.StatusNotImplemented, "messaging gateway not configured")
		return
	}
	id := chi.URLParam(r, "id")
	a, err := s.store.GetAudit(r.Context(), id)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "audit not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load audit")
		return
	}
	if a.Status != model.AuditStatusCompleted {
		writeError(w, http.StatusConflict, "audit is not completed")
		return
	}

	attempt, err := s.deliverer.Deliver(r.Context(), id)
	if err != nil {
		var dErr *delivery.Error
		if eris.As(err, &dErr) {
			// The attempt row records the failure; surface it with 502/422.
			status := http.StatusBadGateway
			if !dErr.Retryable {
				status = http.StatusUnprocessableEntity
			}
			writeJSON(w, status, map[string]any{
				"error":   dErr.Error(),
				"attempt": attempt,
			})
			return
		}
		zap.L().Error("server: delivery failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "delivery failed")
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, err := s.store.GetAudit(r.Context(), id)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "audit not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load audit")
		return
	}
	if a.Status != model.AuditStatusCompleted {
		writeError(w, http.StatusConflict, "audit is not completed")
		return
	}

	business, err := s.store.GetBusiness(r.Context(), a.BusinessID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load business")
		return
	}
	competitors, err := s.store.ListCompetitors(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load competitors")
		return
	}

	switch r.URL.Query().Get("format") {
	case "pdf":
		pdf, renderErr := s.pdf.Render(r.Context(), business, a, competitors)
		if renderErr != nil {
			if eris.Is(renderErr, report.ErrPDFUnconfigured) {
				writeError(w, http.StatusNotImplemented, "pdf rendering is not configured")
				return
			}
			zap.L().Error("server: pdf render failed", zap.Error(renderErr))
			writeError(w, http.StatusBadGateway, "pdf rendering failed")
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(pdf)
	case "", "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(report.RenderText(business, a, competitors)))
	default:
		writeError(w, http.StatusBadRequest, "format must be text or pdf")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: write response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
