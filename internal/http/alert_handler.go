package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/MahmutEsadErman/HealthCareWristlet/internal/models"
	"github.com/MahmutEsadErman/HealthCareWristlet/internal/service"

	"go.uber.org/zap"
)

// AlertHandler caregiver alert endpoints
type AlertHandler struct {
	alerts *service.AlertService
	logger *zap.Logger
	now    func() time.Time
}

func NewAlertHandler(alerts *service.AlertService, logger *zap.Logger) *AlertHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertHandler{alerts: alerts, logger: logger, now: time.Now}
}

// filterFromQuery ?patient_id=&unresolved=true&limit=
func filterFromQuery(r *http.Request) models.AlertFilter {
	q := r.URL.Query()
	return models.AlertFilter{
		PatientID:      q.Get("patient_id"),
		UnresolvedOnly: parseBool(q.Get("unresolved")),
		Limit:          parseInt(q.Get("limit"), 0),
	}
}

// List GET /api/alerts
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	list, err := h.alerts.ListAlerts(r.Context(), caller, filterFromQuery(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}

// Resolve PUT /api/alerts/{id}/resolve
func (h *AlertHandler) Resolve(w http.ResponseWriter, r *http.Request, alertID string) {
	alert, err := h.alerts.ResolveAlert(r.Context(), alertID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, OkMessage("Alert resolved", alert))
}

// Export GET /api/alerts/export, same visibility as List
func (h *AlertHandler) Export(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	list, err := h.alerts.ListAlerts(r.Context(), caller, filterFromQuery(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	data, err := GenerateAlertExport(list)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	filename := fmt.Sprintf("alerts_%s.xlsx", h.now().UTC().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)

	h.logger.Info("Alerts exported", zap.String("caller_id", caller), zap.Int("count", len(list)))
}
