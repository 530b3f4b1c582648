package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/MahmutEsadErman/HealthCareWristlet/internal/models"
)

// MemoryStore in-process Store used when no database is configured and in tests.
// Units of work are serialized store-wide; a failed unit is undone in reverse order.
type MemoryStore struct {
	mu   sync.Mutex
	data *memData
}

type memAlert struct {
	alert models.Alert
	seq   int64
}

type memData struct {
	users      map[string]models.User
	usernames  map[string]string // username -> user_id
	configs    map[string]models.PatientConfig
	heartRates map[string][]models.HeartRateSample
	motion     map[string][]models.MotionSample
	alerts     map[string]*memAlert
	byPatient  map[string][]*memAlert // insertion order
	seq        int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: &memData{
			users:      map[string]models.User{},
			usernames:  map[string]string{},
			configs:    map[string]models.PatientConfig{},
			heartRates: map[string][]models.HeartRateSample{},
			motion:     map[string][]models.MotionSample{},
			alerts:     map[string]*memAlert{},
			byPatient:  map[string][]*memAlert{},
		},
	}
}

// WithinTx runs fn while holding the store lock. Writes are undone if fn
// returns an error or panics.
func (s *MemoryStore) WithinTx(ctx context.Context, fn TxFunc) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var undo []func()
	committed := false
	defer func() {
		if committed {
			return
		}
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
	}()

	if err := fn(ctx, &memRepo{d: s.data, undo: &undo}); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) direct() *memRepo { return &memRepo{d: s.data} }

func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.direct().CreateUser(ctx, user)
}

func (s *MemoryStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.direct().GetUser(ctx, userID)
}

func (s *MemoryStore) CreatePatientConfig(ctx context.Context, cfg *models.PatientConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.direct().CreatePatientConfig(ctx, cfg)
}

func (s *MemoryStore) GetPatientConfig(ctx context.Context, patientID string) (*models.PatientConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.direct().GetPatientConfig(ctx, patientID)
}

func (s *MemoryStore) UpdatePatientConfig(ctx context.Context, cfg *models.PatientConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.direct().UpdatePatientConfig(ctx, cfg)
}

func (s *MemoryStore) ListPatients(ctx context.Context) ([]models.PatientSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.direct().ListPatients(ctx)
}

func (s *MemoryStore) AppendHeartRate(ctx context.Context, sample models.HeartRateSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.direct().AppendHeartRate(ctx, sample)
}

func (s *MemoryStore) AppendMotion(ctx context.Context, sample models.MotionSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.direct().AppendMotion(ctx, sample)
}

func (s *MemoryStore) MotionSince(ctx context.Context, patientID string, from time.Time) ([]models.MotionSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.direct().MotionSince(ctx, patientID, from)
}

func (s *MemoryStore) LockAlertKind(ctx context.Context, patientID string, kind models.AlertKind) error {
	return nil
}

func (s *MemoryStore) HasUnresolvedAlert(ctx context.Context, patientID string, kind models.AlertKind) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.direct().HasUnresolvedAlert(ctx, patientID, kind)
}

func (s *MemoryStore) LatestAlert(ctx context.Context, patientID string, kind models.AlertKind) (*models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.direct().LatestAlert(ctx, patientID, kind)
}

func (s *MemoryStore) InsertAlert(ctx context.Context, alert *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.direct().InsertAlert(ctx, alert)
}

func (s *MemoryStore) GetAlert(ctx context.Context, alertID string) (*models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.direct().GetAlert(ctx, alertID)
}

func (s *MemoryStore) ResolveAlert(ctx context.Context, alertID string, at time.Time) (*models.Alert, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.direct().ResolveAlert(ctx, alertID, at)
}

func (s *MemoryStore) ListAlerts(ctx context.Context, filter models.AlertFilter) ([]models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.direct().ListAlerts(ctx, filter)
}

// ============================================
// memRepo: lock-free view over memData
// ============================================

type memRepo struct {
	d    *memData
	undo *[]func() // nil outside a unit of work
}

func (r *memRepo) onRollback(fn func()) {
	if r.undo != nil {
		*r.undo = append(*r.undo, fn)
	}
}

func (r *memRepo) CreateUser(_ context.Context, user *models.User) error {
	if user == nil || user.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if _, ok := r.d.usernames[user.Username]; ok {
		return models.NewConflictError("Username already exists")
	}
	if _, ok := r.d.users[user.UserID]; ok {
		return models.NewConflictError("user id already exists")
	}
	u := *user
	u.CreatedAt = u.CreatedAt.UTC()
	r.d.users[u.UserID] = u
	r.d.usernames[u.Username] = u.UserID
	r.onRollback(func() {
		delete(r.d.users, u.UserID)
		delete(r.d.usernames, u.Username)
	})
	return nil
}

func (r *memRepo) GetUser(_ context.Context, userID string) (*models.User, error) {
	u, ok := r.d.users[userID]
	if !ok {
		return nil, models.NewNotFoundError("user", userID)
	}
	return &u, nil
}

func (r *memRepo) CreatePatientConfig(_ context.Context, cfg *models.PatientConfig) error {
	if cfg == nil || cfg.PatientID == "" {
		return fmt.Errorf("patient_id is required")
	}
	if _, ok := r.d.configs[cfg.PatientID]; ok {
		return models.NewConflictError("patient config already exists: " + cfg.PatientID)
	}
	r.d.configs[cfg.PatientID] = *cfg
	id := cfg.PatientID
	r.onRollback(func() { delete(r.d.configs, id) })
	return nil
}

func (r *memRepo) GetPatientConfig(_ context.Context, patientID string) (*models.PatientConfig, error) {
	cfg, ok := r.d.configs[patientID]
	if !ok {
		return nil, models.NewNotFoundError("patient", patientID)
	}
	return &cfg, nil
}

func (r *memRepo) UpdatePatientConfig(_ context.Context, cfg *models.PatientConfig) error {
	prev, ok := r.d.configs[cfg.PatientID]
	if !ok {
		return models.NewNotFoundError("patient", cfg.PatientID)
	}
	r.d.configs[cfg.PatientID] = *cfg
	r.onRollback(func() { r.d.configs[prev.PatientID] = prev })
	return nil
}

func (r *memRepo) ListPatients(_ context.Context) ([]models.PatientSummary, error) {
	out := make([]models.PatientSummary, 0, len(r.d.configs))
	for id, cfg := range r.d.configs {
		out = append(out, cfg.Summary(r.d.users[id].Username))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Username != out[j].Username {
			return out[i].Username < out[j].Username
		}
		return out[i].PatientID < out[j].PatientID
	})
	return out, nil
}

func (r *memRepo) AppendHeartRate(_ context.Context, s models.HeartRateSample) error {
	s.At = s.At.UTC()
	series := r.d.heartRates[s.PatientID]
	i := sort.Search(len(series), func(i int) bool { return series[i].At.After(s.At) })
	r.d.heartRates[s.PatientID] = slices.Insert(series, i, s)
	r.onRollback(func() {
		r.d.heartRates[s.PatientID] = slices.Delete(r.d.heartRates[s.PatientID], i, i+1)
	})
	return nil
}

func (r *memRepo) AppendMotion(_ context.Context, s models.MotionSample) error {
	s.At = s.At.UTC()
	if s.Gyro != nil {
		g := *s.Gyro
		s.Gyro = &g
	}
	series := r.d.motion[s.PatientID]
	i := sort.Search(len(series), func(i int) bool { return series[i].At.After(s.At) })
	r.d.motion[s.PatientID] = slices.Insert(series, i, s)
	r.onRollback(func() {
		r.d.motion[s.PatientID] = slices.Delete(r.d.motion[s.PatientID], i, i+1)
	})
	return nil
}

func (r *memRepo) MotionSince(_ context.Context, patientID string, from time.Time) ([]models.MotionSample, error) {
	series := r.d.motion[patientID]
	i := sort.Search(len(series), func(i int) bool { return !series[i].At.Before(from) })
	return slices.Clone(series[i:]), nil
}

func (r *memRepo) LockAlertKind(context.Context, string, models.AlertKind) error {
	return nil
}

func (r *memRepo) HasUnresolvedAlert(_ context.Context, patientID string, kind models.AlertKind) (bool, error) {
	for _, a := range r.d.byPatient[patientID] {
		if a.alert.Kind == kind && !a.alert.Resolved {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) LatestAlert(_ context.Context, patientID string, kind models.AlertKind) (*models.Alert, error) {
	var latest *memAlert
	for _, a := range r.d.byPatient[patientID] {
		if a.alert.Kind != kind {
			continue
		}
		if latest == nil || !a.alert.At.Before(latest.alert.At) {
			latest = a
		}
	}
	if latest == nil {
		return nil, nil
	}
	out := latest.alert
	return &out, nil
}

func (r *memRepo) InsertAlert(_ context.Context, alert *models.Alert) error {
	if alert == nil || alert.AlertID == "" {
		return fmt.Errorf("alert_id is required")
	}
	if _, ok := r.d.alerts[alert.AlertID]; ok {
		return models.NewConflictError("alert already exists: " + alert.AlertID)
	}
	r.d.seq++
	a := &memAlert{alert: *alert, seq: r.d.seq}
	a.alert.At = a.alert.At.UTC()
	r.d.alerts[alert.AlertID] = a
	r.d.byPatient[alert.PatientID] = append(r.d.byPatient[alert.PatientID], a)
	r.onRollback(func() {
		delete(r.d.alerts, a.alert.AlertID)
		list := r.d.byPatient[a.alert.PatientID]
		r.d.byPatient[a.alert.PatientID] = list[:len(list)-1]
		r.d.seq--
	})
	return nil
}

func (r *memRepo) GetAlert(_ context.Context, alertID string) (*models.Alert, error) {
	a, ok := r.d.alerts[alertID]
	if !ok {
		return nil, models.NewNotFoundError("alert", alertID)
	}
	out := a.alert
	return &out, nil
}

func (r *memRepo) ResolveAlert(_ context.Context, alertID string, at time.Time) (*models.Alert, bool, error) {
	a, ok := r.d.alerts[alertID]
	if !ok {
		return nil, false, models.NewNotFoundError("alert", alertID)
	}
	if a.alert.Resolved {
		out := a.alert
		return &out, false, nil
	}
	prev := a.alert
	resolvedAt := at.UTC()
	a.alert.Resolved = true
	a.alert.ResolvedAt = &resolvedAt
	r.onRollback(func() { a.alert = prev })
	out := a.alert
	return &out, true, nil
}

func (r *memRepo) ListAlerts(_ context.Context, filter models.AlertFilter) ([]models.Alert, error) {
	var picked []*memAlert
	if filter.PatientID != "" {
		picked = slices.Clone(r.d.byPatient[filter.PatientID])
	} else {
		picked = make([]*memAlert, 0, len(r.d.alerts))
		for _, a := range r.d.alerts {
			picked = append(picked, a)
		}
	}

	sort.Slice(picked, func(i, j int) bool {
		if !picked[i].alert.At.Equal(picked[j].alert.At) {
			return picked[i].alert.At.After(picked[j].alert.At)
		}
		return picked[i].seq > picked[j].seq
	})

	out := make([]models.Alert, 0, len(picked))
	for _, a := range picked {
		if filter.UnresolvedOnly && a.alert.Resolved {
			continue
		}
		out = append(out, a.alert)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}
