package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MahmutEsadErman/HealthCareWristlet/internal/models"
)

const alertColumns = `alert_id, patient_id, kind, message, at, resolved, resolved_at`

// LockAlertKind takes a transaction-scoped advisory lock on (patientID, kind).
func (r *pgRepo) LockAlertKind(ctx context.Context, patientID string, kind models.AlertKind) error {
	if !r.inTx {
		return fmt.Errorf("LockAlertKind requires a transaction")
	}
	if _, err := r.q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, patientID+":"+string(kind)); err != nil {
		return fmt.Errorf("failed to lock %s alerts: %w", kind, err)
	}
	return nil
}

func (r *pgRepo) HasUnresolvedAlert(ctx context.Context, patientID string, kind models.AlertKind) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM alerts
			WHERE patient_id = $1 AND kind = $2 AND resolved = FALSE
		)
	`, patientID, string(kind)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check unresolved alerts: %w", err)
	}
	return exists, nil
}

func (r *pgRepo) LatestAlert(ctx context.Context, patientID string, kind models.AlertKind) (*models.Alert, error) {
	a, err := scanAlert(r.q.QueryRowContext(ctx, `
		SELECT `+alertColumns+`
		FROM alerts
		WHERE patient_id = $1 AND kind = $2
		ORDER BY at DESC, seq DESC
		LIMIT 1
	`, patientID, string(kind)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest alert: %w", err)
	}
	return a, nil
}

func (r *pgRepo) InsertAlert(ctx context.Context, alert *models.Alert) error {
	if alert == nil || alert.AlertID == "" {
		return fmt.Errorf("alert_id is required")
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO alerts (alert_id, patient_id, kind, message, at, resolved)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, alert.AlertID, alert.PatientID, string(alert.Kind), alert.Message, alert.At.UTC(), alert.Resolved)
	if err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("alert already exists: " + alert.AlertID)
		}
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

func (r *pgRepo) GetAlert(ctx context.Context, alertID string) (*models.Alert, error) {
	a, err := scanAlert(r.q.QueryRowContext(ctx, `
		SELECT `+alertColumns+`
		FROM alerts
		WHERE alert_id = $1
	`, alertID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFoundError("alert", alertID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return a, nil
}

func (r *pgRepo) ResolveAlert(ctx context.Context, alertID string, at time.Time) (*models.Alert, bool, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE alerts
		SET resolved = TRUE, resolved_at = $2
		WHERE alert_id = $1 AND resolved = FALSE
	`, alertID, at.UTC())
	if err != nil {
		return nil, false, fmt.Errorf("failed to resolve alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	a, err := r.GetAlert(ctx, alertID)
	if err != nil {
		return nil, false, err
	}
	return a, n > 0, nil
}

func (r *pgRepo) ListAlerts(ctx context.Context, filter models.AlertFilter) ([]models.Alert, error) {
	where := []string{}
	args := []any{}
	argN := 1
	if filter.PatientID != "" {
		where = append(where, fmt.Sprintf("patient_id = $%d", argN))
		args = append(args, filter.PatientID)
		argN++
	}
	if filter.UnresolvedOnly {
		where = append(where, "resolved = FALSE")
	}

	q := `SELECT ` + alertColumns + ` FROM alerts`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY at DESC, seq DESC"
	if filter.Limit > 0 {
		q += fmt.Sprintf(" LIMIT $%d", argN)
		args = append(args, filter.Limit)
	}

	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	out := []models.Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*models.Alert, error) {
	var a models.Alert
	var kind string
	var resolvedAt sql.NullTime
	if err := row.Scan(&a.AlertID, &a.PatientID, &kind, &a.Message, &a.At, &a.Resolved, &resolvedAt); err != nil {
		return nil, err
	}
	a.Kind = models.AlertKind(kind)
	a.At = a.At.UTC()
	if resolvedAt.Valid {
		t := resolvedAt.Time.UTC()
		a.ResolvedAt = &t
	}
	return &a, nil
}
