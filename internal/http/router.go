package httpapi

import (
	"net/http"
	"time"

	"github.com/MahmutEsadErman/HealthCareWristlet/internal/metrics"

	"go.uber.org/zap"
)

// Router uses the standard library http.ServeMux and records request metrics.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler for plain http.Handler values (/metrics)
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	_, route := r.mux.Handler(req)
	if route == "" {
		route = "unmatched"
	}
	r.mux.ServeHTTP(rec, req)

	metrics.ObserveHTTP(req.Method, route, rec.status, time.Since(start))
}

// RegisterHealthRoutes /healthz and /metrics
func (r *Router) RegisterHealthRoutes() {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	})
	r.HandleHandler("/metrics", metrics.Handler())
}

// RegisterWearableRoutes POST /api/wearable/{kind}
func (r *Router) RegisterWearableRoutes(h *WearableHandler) {
	r.Handle("/api/wearable/", h.ServeHTTP)
}

// RegisterUserRoutes accounts and patient thresholds
func (r *Router) RegisterUserRoutes(h *UserHandler) {
	r.Handle("/api/users", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Register(w, req)
	})

	r.Handle("/api/patients", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.ListPatients(w, req)
	})

	// /api/patients/{id}/thresholds
	r.Handle("/api/patients/", func(w http.ResponseWriter, req *http.Request) {
		id, rest := pathParam(req.URL.Path, "/api/patients/")
		if id == "" || rest != "thresholds" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch req.Method {
		case http.MethodGet:
			h.GetThresholds(w, req, id)
		case http.MethodPut:
			h.UpdateThresholds(w, req, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

// RegisterAlertRoutes list, resolve and export
func (r *Router) RegisterAlertRoutes(h *AlertHandler) {
	r.Handle("/api/alerts", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.List(w, req)
	})

	r.Handle("/api/alerts/", func(w http.ResponseWriter, req *http.Request) {
		id, rest := pathParam(req.URL.Path, "/api/alerts/")
		switch {
		case id == "export" && rest == "":
			if req.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.Export(w, req)
		case id != "" && rest == "resolve":
			if req.Method != http.MethodPut {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.Resolve(w, req, id)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
