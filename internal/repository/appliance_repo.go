package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"appliance_status/internal/models"
)

type ApplianceSQLite struct {
	db *sql.DB
}

func NewApplianceSQLite(db *sql.DB) *ApplianceSQLite { return &ApplianceSQLite{db: db} }

var _ ApplianceRepo = (*ApplianceSQLite)(nil)

const (
	insertApplianceSQL = `
		INSERT INTO appliances
			(id, name, power_sensor, energy_sensor, standby_threshold_w, running_threshold_w,
			 start_delay_s, finish_delay_s, debounce_s, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	selectApplianceSQL = `
		SELECT id, name, power_sensor, energy_sensor, standby_threshold_w, running_threshold_w,
		       start_delay_s, finish_delay_s, debounce_s, created_at
		FROM appliances
	`

	updateSettingsSQL = `
		UPDATE appliances
		SET standby_threshold_w=?, running_threshold_w=?, start_delay_s=?, finish_delay_s=?, debounce_s=?
		WHERE id=?
	`

	deleteApplianceSQL = `DELETE FROM appliances WHERE id=?`
)

// Create inserts a new appliance row.
func (r *ApplianceSQLite) Create(ctx context.Context, a models.Appliance) error {
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	} else {
		createdAt = createdAt.UTC()
	}

	var energy *string
	if a.EnergySensor != "" {
		energy = &a.EnergySensor
	}

	_, err := r.db.ExecContext(ctx, insertApplianceSQL,
		a.ID,
		a.Name,
		a.PowerSensor,
		energy,
		a.Settings.StandbyThresholdW,
		a.Settings.RunningThresholdW,
		a.Settings.StartDelayS,
		a.Settings.FinishDelayS,
		a.Settings.DebounceS,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert appliance %q: %w", a.Name, err)
	}
	return nil
}

// GetByID fetches one appliance. Returns ErrApplianceNotFound if missing.
func (r *ApplianceSQLite) GetByID(ctx context.Context, id string) (models.Appliance, error) {
	row := r.db.QueryRowContext(ctx, selectApplianceSQL+" WHERE id=?", id)
	a, err := scanAppliance(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Appliance{}, ErrApplianceNotFound
		}
		return models.Appliance{}, fmt.Errorf("select appliance %q: %w", id, err)
	}
	return a, nil
}

// List returns all configured appliances ordered by creation time.
func (r *ApplianceSQLite) List(ctx context.Context) ([]models.Appliance, error) {
	rows, err := r.db.QueryContext(ctx, selectApplianceSQL+" ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("list appliances: %w", err)
	}
	defer rows.Close()

	out := make([]models.Appliance, 0, 8)
	for rows.Next() {
		a, err := scanAppliance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateSettings replaces the detector settings columns of one appliance.
func (r *ApplianceSQLite) UpdateSettings(ctx context.Context, id string, s models.DetectorSettings) error {
	res, err := r.db.ExecContext(ctx, updateSettingsSQL,
		s.StandbyThresholdW, s.RunningThresholdW, s.StartDelayS, s.FinishDelayS, s.DebounceS, id)
	if err != nil {
		return fmt.Errorf("update settings for %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrApplianceNotFound
	}
	return nil
}

// Delete removes the appliance row; the snapshot row cascades.
func (r *ApplianceSQLite) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, deleteApplianceSQL, id)
	if err != nil {
		return fmt.Errorf("delete appliance %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrApplianceNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppliance(row rowScanner) (models.Appliance, error) {
	var (
		a      models.Appliance
		energy sql.NullString
	)
	if err := row.Scan(
		&a.ID,
		&a.Name,
		&a.PowerSensor,
		&energy,
		&a.Settings.StandbyThresholdW,
		&a.Settings.RunningThresholdW,
		&a.Settings.StartDelayS,
		&a.Settings.FinishDelayS,
		&a.Settings.DebounceS,
		&a.CreatedAt,
	); err != nil {
		return models.Appliance{}, err
	}
	if energy.Valid {
		a.EnergySensor = energy.String
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}
