package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MahmutEsadErman/HealthCareWristlet/internal/evaluator"
	"github.com/MahmutEsadErman/HealthCareWristlet/internal/models"
	"github.com/MahmutEsadErman/HealthCareWristlet/internal/repository"
	"github.com/MahmutEsadErman/HealthCareWristlet/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

type testAPI struct {
	router *Router
	store  *repository.MemoryStore
}

func setupAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := zap.NewNop()
	store := repository.NewMemoryStore()
	engine := service.NewEngine(store,
		evaluator.NewEvaluator(evaluator.DefaultMotionThreshold, logger),
		evaluator.NewDedupPolicy(evaluator.DefaultCooldown),
		logger,
	)
	alerts := service.NewAlertService(store, nil, logger)
	patients := service.NewPatientService(store, logger)

	wearable := NewWearableHandler(engine, logger)
	wearable.now = func() time.Time { return t0 }
	alertHandler := NewAlertHandler(alerts, logger)
	alertHandler.now = func() time.Time { return t0 }

	r := NewRouter(logger)
	r.RegisterHealthRoutes()
	r.RegisterWearableRoutes(wearable)
	r.RegisterUserRoutes(NewUserHandler(patients, logger))
	r.RegisterAlertRoutes(alertHandler)
	return &testAPI{router: r, store: store}
}

func (a *testAPI) do(t *testing.T, method, path, caller, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if caller != "" {
		req.Header.Set("X-User-Id", caller)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Result[json.RawMessage] {
	t.Helper()
	var res Result[json.RawMessage]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res), w.Body.String())
	return res
}

func (a *testAPI) register(t *testing.T, username, role string) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/users", "", `{"username":"`+username+`","user_type":"`+role+`"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var user models.User
	require.NoError(t, json.Unmarshal(decode(t, w).Result, &user))
	return user.UserID
}

func TestRegisterUser(t *testing.T) {
	api := setupAPI(t)
	id := api.register(t, "alice", "patient")
	assert.NotEmpty(t, id)

	w := api.do(t, http.MethodPost, "/api/users", "", `{"username":"alice","user_type":"caregiver"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Username already exists", decode(t, w).Message)

	w = api.do(t, http.MethodPost, "/api/users", "", `{"username":"bob"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Username and user_type required", decode(t, w).Message)

	w = api.do(t, http.MethodPost, "/api/users", "", `{"username":"bob","user_type":"admin"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPost, "/api/users", "", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodGet, "/api/users", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestWearable_HeartRateAndIMU(t *testing.T) {
	api := setupAPI(t)
	p := api.register(t, "alice", "patient")

	w := api.do(t, http.MethodPost, "/api/wearable/heart_rate", p, `{"value": 72}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Heart rate data processed", decode(t, w).Message)

	w = api.do(t, http.MethodPost, "/api/wearable/heart_rate", p, `{"value": 130, "timestamp": "2026-03-01 08:00:05"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var alert models.Alert
	require.NoError(t, json.Unmarshal(decode(t, w).Result, &alert))
	assert.Equal(t, models.AlertKindHRHigh, alert.Kind)
	assert.Equal(t, "Heart rate high: 130", alert.Message)
	assert.True(t, alert.At.Equal(t0.Add(5*time.Second)))

	w = api.do(t, http.MethodPost, "/api/wearable/heart_rate", p, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Value required", decode(t, w).Message)

	w = api.do(t, http.MethodPost, "/api/wearable/imu", p, `{"x_axis": 0.1, "y_axis": 0, "z_axis": 9.8, "gx": 0, "gy": 0, "gz": 0}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "IMU data processed", decode(t, w).Message)

	w = api.do(t, http.MethodPost, "/api/wearable/imu", p, `{"x_axis": 0.1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Accelerometer data required", decode(t, w).Message)
}

func TestWearable_InactivityAndFallOutcomes(t *testing.T) {
	api := setupAPI(t)
	p := api.register(t, "alice", "patient")

	w := api.do(t, http.MethodPost, "/api/wearable/inactivity", p, `{"inactivity_detected": false}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "No inactivity detected", decode(t, w).Message)

	w = api.do(t, http.MethodPost, "/api/wearable/inactivity", p, `{"inactivity_detected": true}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Inactivity alert created", decode(t, w).Message)

	w = api.do(t, http.MethodPost, "/api/wearable/inactivity", p, `{"inactivity_detected": true}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Inactivity already reported recently", decode(t, w).Message)

	w = api.do(t, http.MethodPost, "/api/wearable/fall", p, `{"probability": 0.87, "bpm": 110.5}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	var alert models.Alert
	require.NoError(t, json.Unmarshal(decode(t, w).Result, &alert))
	assert.Equal(t, "Fall detected (p=0.87, bpm=110.5)", alert.Message)

	w = api.do(t, http.MethodPost, "/api/wearable/fall", p, `{"probability": 0.95}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Fall already reported recently", decode(t, w).Message)

	w = api.do(t, http.MethodPost, "/api/wearable/fall", p, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Probability required", decode(t, w).Message)
}

func TestWearable_Button(t *testing.T) {
	api := setupAPI(t)
	p := api.register(t, "alice", "patient")

	for i := 0; i < 2; i++ {
		w := api.do(t, http.MethodPost, "/api/wearable/button", p, `{"panic_button_status": true}`)
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "Button status processed", decode(t, w).Message)
	}
	w := api.do(t, http.MethodPost, "/api/wearable/button", p, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Status required", decode(t, w).Message)

	alerts, err := api.store.ListAlerts(t.Context(), models.AlertFilter{PatientID: p})
	require.NoError(t, err)
	assert.Len(t, alerts, 2)
}

func TestWearable_RequestErrors(t *testing.T) {
	api := setupAPI(t)
	p := api.register(t, "alice", "patient")
	c := api.register(t, "carl", "caregiver")

	assert.Equal(t, http.StatusUnauthorized, api.do(t, http.MethodPost, "/api/wearable/heart_rate", "", `{"value": 70}`).Code)
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodPost, "/api/wearable/temperature", p, `{}`).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, api.do(t, http.MethodGet, "/api/wearable/heart_rate", p, "").Code)

	w := api.do(t, http.MethodPost, "/api/wearable/heart_rate", c, `{"value": 70}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Patient not found", decode(t, w).Message)
}

func TestAlerts_ListResolveExport(t *testing.T) {
	api := setupAPI(t)
	p1 := api.register(t, "alice", "patient")
	p2 := api.register(t, "bert", "patient")
	c := api.register(t, "carl", "caregiver")

	require.Equal(t, http.StatusCreated, api.do(t, http.MethodPost, "/api/wearable/heart_rate", p1, `{"value": 20, "timestamp": "2026-03-01T08:00:00Z"}`).Code)
	require.Equal(t, http.StatusCreated, api.do(t, http.MethodPost, "/api/wearable/button", p2, `{"panic_button_status": 1, "timestamp": "2026-03-01T08:01:00Z"}`).Code)

	var all []models.Alert
	w := api.do(t, http.MethodGet, "/api/alerts", c, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(decode(t, w).Result, &all))
	require.Len(t, all, 2)
	assert.Equal(t, models.AlertKindButton, all[0].Kind)

	var own []models.Alert
	w = api.do(t, http.MethodGet, "/api/alerts?patient_id="+p2, p1, "")
	require.NoError(t, json.Unmarshal(decode(t, w).Result, &own))
	require.Len(t, own, 1)
	assert.Equal(t, p1, own[0].PatientID)

	w = api.do(t, http.MethodPut, "/api/alerts/"+all[1].AlertID+"/resolve", c, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Alert resolved", decode(t, w).Message)

	var open []models.Alert
	w = api.do(t, http.MethodGet, "/api/alerts?unresolved=true", c, "")
	require.NoError(t, json.Unmarshal(decode(t, w).Result, &open))
	require.Len(t, open, 1)
	assert.Equal(t, all[0].AlertID, open[0].AlertID)

	w = api.do(t, http.MethodPut, "/api/alerts/nope/resolve", c, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Alert not found", decode(t, w).Message)

	assert.Equal(t, http.StatusMethodNotAllowed, api.do(t, http.MethodGet, "/api/alerts/x/resolve", c, "").Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(t, http.MethodGet, "/api/alerts", "", "").Code)
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/api/alerts", "ghost", "").Code)

	w = api.do(t, http.MethodGet, "/api/alerts/export", c, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "alerts_20260301_080000.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(alertSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, AlertExportHeader, rows[0])
	assert.Equal(t, "BUTTON", rows[1][2])
	assert.Equal(t, "2026-03-01 08:00:00", rows[2][4])
	assert.Equal(t, "TRUE", rows[2][5])
}

func TestPatients_ListAndThresholds(t *testing.T) {
	api := setupAPI(t)
	p := api.register(t, "alice", "patient")
	c := api.register(t, "carl", "caregiver")

	w := api.do(t, http.MethodGet, "/api/patients", c, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.PatientSummary
	require.NoError(t, json.Unmarshal(decode(t, w).Result, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "alice", list[0].Username)
	assert.Equal(t, float64(30), list[0].InactivityLimitMinutes)

	w = api.do(t, http.MethodGet, "/api/patients", p, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Access denied", decode(t, w).Message)

	w = api.do(t, http.MethodPut, "/api/patients/"+p+"/thresholds", c, `{"min_hr": 50, "max_hr": 100, "inactivity_limit_minutes": 1}`)
	require.Equal(t, http.StatusOK, w.Code)
	var body thresholdsBody
	require.NoError(t, json.Unmarshal(decode(t, w).Result, &body))
	assert.Equal(t, 50.0, *body.MinHR)
	assert.Equal(t, 100.0, *body.MaxHR)
	assert.Equal(t, 1.0, *body.InactivityLimitMinutes)

	cfg, err := api.store.GetPatientConfig(t.Context(), p)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.InactivityLimit)

	w = api.do(t, http.MethodGet, "/api/patients/"+p+"/thresholds", c, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodPut, "/api/patients/"+p+"/thresholds", c, `{"min_hr": 150}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 0.6s cannot be stored in whole seconds
	w = api.do(t, http.MethodPut, "/api/patients/"+p+"/thresholds", c, `{"inactivity_limit_minutes": 0.01}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPut, "/api/patients/ghost/thresholds", c, `{"min_hr": 45}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodPut, "/api/patients/"+p+"/other", c, `{}`).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, api.do(t, http.MethodDelete, "/api/patients/"+p+"/thresholds", c, "").Code)
}

func TestHealthz(t *testing.T) {
	api := setupAPI(t)
	w := api.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ResultSuccess, decode(t, w).Code)

	w = api.do(t, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(models.NewValidationError("x")))
	assert.Equal(t, http.StatusNotFound, statusFor(models.NewNotFoundError("alert", "1")))
	assert.Equal(t, http.StatusForbidden, statusFor(models.NewForbiddenError("x")))
	assert.Equal(t, http.StatusConflict, statusFor(models.NewConflictError("x")))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}
