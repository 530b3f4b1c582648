package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/MahmutEsadErman/HealthCareWristlet/internal/models"
)

func (r *pgRepo) AppendHeartRate(ctx context.Context, s models.HeartRateSample) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO heart_rates (patient_id, value, at)
		VALUES ($1, $2, $3)
	`, s.PatientID, s.Value, s.At.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert heart rate: %w", err)
	}
	return nil
}

func (r *pgRepo) AppendMotion(ctx context.Context, s models.MotionSample) error {
	var gx, gy, gz sql.NullFloat64
	if s.Gyro != nil {
		gx = sql.NullFloat64{Float64: s.Gyro.X, Valid: true}
		gy = sql.NullFloat64{Float64: s.Gyro.Y, Valid: true}
		gz = sql.NullFloat64{Float64: s.Gyro.Z, Valid: true}
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO motion_samples (patient_id, ax, ay, az, gx, gy, gz, at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, s.PatientID, s.Accel.X, s.Accel.Y, s.Accel.Z, gx, gy, gz, s.At.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert motion sample: %w", err)
	}
	return nil
}

func (r *pgRepo) MotionSince(ctx context.Context, patientID string, from time.Time) ([]models.MotionSample, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT ax, ay, az, gx, gy, gz, at
		FROM motion_samples
		WHERE patient_id = $1 AND at >= $2
		ORDER BY at ASC, id ASC
	`, patientID, from.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query motion window: %w", err)
	}
	defer rows.Close()

	var out []models.MotionSample
	for rows.Next() {
		s := models.MotionSample{PatientID: patientID}
		var gx, gy, gz sql.NullFloat64
		if err := rows.Scan(&s.Accel.X, &s.Accel.Y, &s.Accel.Z, &gx, &gy, &gz, &s.At); err != nil {
			return nil, fmt.Errorf("failed to scan motion sample: %w", err)
		}
		if gx.Valid && gy.Valid && gz.Valid {
			s.Gyro = &models.Vector3{X: gx.Float64, Y: gy.Float64, Z: gz.Float64}
		}
		s.At = s.At.UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}
