package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/MahmutEsadErman/HealthCareWristlet/internal/models"
	"github.com/MahmutEsadErman/HealthCareWristlet/internal/service"

	"go.uber.org/zap"
)

// WearableHandler POST /api/wearable/{kind}; the caller is the wearing patient.
type WearableHandler struct {
	ingester service.Ingester
	logger   *zap.Logger
	now      func() time.Time
}

func NewWearableHandler(ingester service.Ingester, logger *zap.Logger) *WearableHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WearableHandler{ingester: ingester, logger: logger, now: time.Now}
}

func (h *WearableHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	kind := models.SampleKind(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/wearable/"), "/"))
	if kind.AlertKinds() == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	patientID, ok := requireCaller(w, r)
	if !ok {
		return
	}

	body, err := readBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("failed to read request body"))
		return
	}

	sample, err := models.DecodeSample(kind, patientID, body, h.now())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.ingester.Ingest(service.WithIngestSource(r.Context(), "http"), sample)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	status, message := ingestOutcome(sample, res)
	writeJSON(w, status, OkMessage(message, res.Alert))
}

// ingestOutcome status code and message reported to the device.
func ingestOutcome(sample models.Sample, res *service.IngestResult) (int, string) {
	switch s := sample.(type) {
	case models.HeartRateSample:
		return http.StatusCreated, "Heart rate data processed"
	case models.MotionSample:
		return http.StatusCreated, "IMU data processed"
	case models.ButtonSample:
		return http.StatusCreated, "Button status processed"
	case models.InactivityReport:
		switch {
		case !s.Detected:
			return http.StatusOK, "No inactivity detected"
		case res.Raised():
			return http.StatusCreated, "Inactivity alert created"
		default:
			return http.StatusOK, "Inactivity already reported recently"
		}
	case models.FallSample:
		if res.Raised() {
			return http.StatusCreated, "Fall alert created"
		}
		return http.StatusOK, "Fall already reported recently"
	}
	return http.StatusOK, "ok"
}
