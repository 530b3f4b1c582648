package httpapi

import (
	"net/http"
	"time"

	"github.com/MahmutEsadErman/HealthCareWristlet/internal/models"
	"github.com/MahmutEsadErman/HealthCareWristlet/internal/service"

	"go.uber.org/zap"
)

// UserHandler accounts, patient list and thresholds
type UserHandler struct {
	patients *service.PatientService
	logger   *zap.Logger
}

func NewUserHandler(patients *service.PatientService, logger *zap.Logger) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{patients: patients, logger: logger}
}

type registerRequest struct {
	Username string `json:"username"`
	UserType string `json:"user_type"`
}

// thresholdsBody request and response shape of patient thresholds
type thresholdsBody struct {
	UserID                 string   `json:"user_id,omitempty"`
	MinHR                  *float64 `json:"min_hr"`
	MaxHR                  *float64 `json:"max_hr"`
	InactivityLimitMinutes *float64 `json:"inactivity_limit_minutes"`
}

func toThresholdsBody(cfg *models.PatientConfig) thresholdsBody {
	minutes := cfg.InactivityLimitMinutes()
	return thresholdsBody{
		UserID:                 cfg.PatientID,
		MinHR:                  &cfg.MinHR,
		MaxHR:                  &cfg.MaxHR,
		InactivityLimitMinutes: &minutes,
	}
}

// Register POST /api/users
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := readBodyJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.patients.RegisterUser(r.Context(), req.Username, models.Role(req.UserType))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, OkMessage("User registered successfully", user))
}

// ListPatients GET /api/patients (caregivers only)
func (h *UserHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	list, err := h.patients.ListPatients(r.Context(), caller)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}

// GetThresholds GET /api/patients/{id}/thresholds
func (h *UserHandler) GetThresholds(w http.ResponseWriter, r *http.Request, patientID string) {
	cfg, err := h.patients.GetThresholds(r.Context(), patientID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(toThresholdsBody(cfg)))
}

// UpdateThresholds PUT /api/patients/{id}/thresholds; omitted fields keep their value.
func (h *UserHandler) UpdateThresholds(w http.ResponseWriter, r *http.Request, patientID string) {
	var req thresholdsBody
	if err := readBodyJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	update := models.ThresholdUpdate{MinHR: req.MinHR, MaxHR: req.MaxHR}
	if req.InactivityLimitMinutes != nil {
		limit := time.Duration(*req.InactivityLimitMinutes * float64(time.Minute))
		update.InactivityLimit = &limit
	}

	cfg, err := h.patients.UpdateThresholds(r.Context(), patientID, update)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, OkMessage("Thresholds updated", toThresholdsBody(cfg)))
}
