package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"appliance_status/internal/models"
)

type SnapshotSQLite struct {
	db *sql.DB
}

func NewSnapshotSQLite(db *sql.DB) *SnapshotSQLite { return &SnapshotSQLite{db: db} }

var _ SnapshotRepo = (*SnapshotSQLite)(nil)

const (
	upsertSnapshotSQL = `
		INSERT INTO appliance_snapshots
			(appliance_id, state, current_power_w, last_started, last_completed, cycle_duration_s,
			 cycles_today, cycles_today_date, cycle_energy_kwh, energy_at_start_kwh, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(appliance_id) DO UPDATE SET
			state=excluded.state,
			current_power_w=excluded.current_power_w,
			last_started=excluded.last_started,
			last_completed=excluded.last_completed,
			cycle_duration_s=excluded.cycle_duration_s,
			cycles_today=excluded.cycles_today,
			cycles_today_date=excluded.cycles_today_date,
			cycle_energy_kwh=excluded.cycle_energy_kwh,
			energy_at_start_kwh=excluded.energy_at_start_kwh,
			updated_at=excluded.updated_at
	`

	selectSnapshotSQL = `
		SELECT appliance_id, state, current_power_w, last_started, last_completed, cycle_duration_s,
		       cycles_today, cycles_today_date, cycle_energy_kwh, energy_at_start_kwh, updated_at
		FROM appliance_snapshots WHERE appliance_id=?
	`

	deleteSnapshotSQL = `DELETE FROM appliance_snapshots WHERE appliance_id=?`
)

// Save upserts the snapshot row for one appliance.
func (r *SnapshotSQLite) Save(ctx context.Context, s models.ApplianceSnapshot) error {
	tsUTC := s.UpdatedAt
	if tsUTC.IsZero() {
		tsUTC = time.Now().UTC()
	} else {
		tsUTC = tsUTC.UTC()
	}

	_, err := r.db.ExecContext(ctx, upsertSnapshotSQL,
		s.ApplianceID,
		s.State,
		s.CurrentPowerW,
		nullableTime(s.LastStarted),
		nullableTime(s.LastCompleted),
		s.CycleDurationS,
		s.CyclesToday,
		nullableString(s.CyclesTodayDate),
		s.CycleEnergyKWh,
		s.EnergyAtStart,
		tsUTC,
	)
	if err != nil {
		return fmt.Errorf("save snapshot for %q: %w", s.ApplianceID, err)
	}
	return nil
}

// Load fetches the snapshot row. Returns a zero-value snapshot when the
// appliance has never been persisted (fresh install).
func (r *SnapshotSQLite) Load(ctx context.Context, applianceID string) (models.ApplianceSnapshot, error) {
	row := r.db.QueryRowContext(ctx, selectSnapshotSQL, applianceID)

	var (
		s                    models.ApplianceSnapshot
		started, completed   sql.NullTime
		duration, energy, at sql.NullFloat64
		date                 sql.NullString
	)
	if err := row.Scan(
		&s.ApplianceID,
		&s.State,
		&s.CurrentPowerW,
		&started,
		&completed,
		&duration,
		&s.CyclesToday,
		&date,
		&energy,
		&at,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ApplianceSnapshot{}, nil // no snapshot yet
		}
		return models.ApplianceSnapshot{}, fmt.Errorf("load snapshot for %q: %w", applianceID, err)
	}

	if started.Valid {
		t := started.Time.UTC()
		s.LastStarted = &t
	}
	if completed.Valid {
		t := completed.Time.UTC()
		s.LastCompleted = &t
	}
	if duration.Valid {
		s.CycleDurationS = &duration.Float64
	}
	if energy.Valid {
		s.CycleEnergyKWh = &energy.Float64
	}
	if at.Valid {
		s.EnergyAtStart = &at.Float64
	}
	if date.Valid {
		s.CyclesTodayDate = date.String
	}
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}

// Delete removes the snapshot row, if any.
func (r *SnapshotSQLite) Delete(ctx context.Context, applianceID string) error {
	_, err := r.db.ExecContext(ctx, deleteSnapshotSQL, applianceID)
	if err != nil {
		return fmt.Errorf("delete snapshot for %q: %w", applianceID, err)
	}
	return nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
