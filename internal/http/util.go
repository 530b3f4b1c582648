package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/MahmutEsadErman/HealthCareWristlet/internal/models"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}

func readBody(r *http.Request) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
}

// readBodyJSON empty bodies leave out untouched
func readBodyJSON(r *http.Request, out any) error {
	body, err := readBody(r)
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return models.NewValidationError("invalid JSON body: " + err.Error())
	}
	return nil
}

// callerID identity set by the upstream gateway
func callerID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-Id"))
}

// requireCaller writes 401 and returns false when the identity header is missing.
func requireCaller(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := callerID(r)
	if id == "" {
		writeJSON(w, http.StatusUnauthorized, Fail("X-User-Id header required"))
		return "", false
	}
	return id, true
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case models.IsValidation(err):
		return http.StatusBadRequest
	case models.IsNotFound(err):
		return http.StatusNotFound
	case models.IsForbidden(err):
		return http.StatusForbidden
	case models.IsConflict(err):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", zap.Error(err))
		writeJSON(w, status, Fail("Internal server error"))
		return
	}
	var msg string
	var nf *models.NotFoundError
	if errors.As(err, &nf) {
		msg = capitalize(nf.Resource) + " not found"
	} else {
		msg = err.Error()
	}
	writeJSON(w, status, Fail(msg))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// pathParam extracts the segment after prefix up to the next '/' and the remainder.
func pathParam(path, prefix string) (id, rest string) {
	tail := strings.TrimPrefix(path, prefix)
	if tail == path {
		return "", ""
	}
	id, rest, _ = strings.Cut(tail, "/")
	return id, rest
}
