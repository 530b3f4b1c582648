package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(f float64) *float64 { return &f }

func ptrDuration(d time.Duration) *time.Duration { return &d }

func TestNewPatientConfigDefaults(t *testing.T) {
	cfg := NewPatientConfig("p1")
	assert.Equal(t, 40.0, cfg.MinHR)
	assert.Equal(t, 120.0, cfg.MaxHR)
	assert.Equal(t, 30*time.Minute, cfg.InactivityLimit)
	assert.Equal(t, 30.0, cfg.InactivityLimitMinutes())
}

func TestThresholdUpdateApply(t *testing.T) {
	base := *NewPatientConfig("p1")

	got, err := ThresholdUpdate{MinHR: fptr(50)}.Apply(base)
	require.NoError(t, err)
	assert.Equal(t, 50.0, got.MinHR)
	assert.Equal(t, 120.0, got.MaxHR)
	assert.Equal(t, 40.0, base.MinHR, "input must not be mutated")

	limit := 5 * time.Minute
	got, err = ThresholdUpdate{InactivityLimit: &limit}.Apply(base)
	require.NoError(t, err)
	assert.Equal(t, limit, got.InactivityLimit)

	_, err = ThresholdUpdate{MinHR: fptr(130)}.Apply(base)
	assert.True(t, IsValidation(err))

	zero := time.Duration(0)
	_, err = ThresholdUpdate{InactivityLimit: &zero}.Apply(base)
	assert.True(t, IsValidation(err))

	subSecond := 600 * time.Millisecond
	_, err = ThresholdUpdate{InactivityLimit: &subSecond}.Apply(base)
	assert.True(t, IsValidation(err))

	got, err = ThresholdUpdate{InactivityLimit: ptrDuration(time.Second)}.Apply(base)
	require.NoError(t, err)
	assert.Equal(t, time.Second, got.InactivityLimit)

	assert.True(t, ThresholdUpdate{}.Empty())
}

func TestErrorsMatchWhenWrapped(t *testing.T) {
	err := NewNotFoundError("patient", "p9")
	assert.EqualError(t, err, "patient not found: p9")
	wrapped := fmt.Errorf("load config: %w", err)
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsValidation(wrapped))
	assert.True(t, IsConflict(NewConflictError("taken")))
	assert.True(t, IsForbidden(NewForbiddenError("no")))
}
