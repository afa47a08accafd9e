package repository_test

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"appliance_status/internal/models"
	"appliance_status/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
)

type sqlmockArgumentFunc func(v driver.Value) bool

func (f sqlmockArgumentFunc) Match(v driver.Value) bool {
	return f(v)
}

func isUTCRecent() sqlmockArgumentFunc {
	return func(v driver.Value) bool {
		tm, ok := v.(time.Time)
		if !ok {
			return false
		}
		if tm.Location() != time.UTC {
			return false
		}
		now := time.Now().UTC()
		return !tm.Before(now.Add(-5*time.Second)) && !tm.After(now.Add(5*time.Second))
	}
}

func TestSnapshotSQLite_Save_SetsUTCNowWhenTimeZero(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	repo := repository.NewSnapshotSQLite(db)

	started := time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC)
	dur := 1800.0
	snap := models.ApplianceSnapshot{
		ApplianceID:     "a1",
		State:           "running",
		CurrentPowerW:   42.5,
		LastStarted:     &started,
		CycleDurationS:  &dur,
		CyclesToday:     2,
		CyclesTodayDate: "2025-03-10",
		// UpdatedAt is zero
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO appliance_snapshots")).
		WithArgs(
			"a1",
			"running",
			42.5,
			started,
			nil, // last_completed
			dur,
			2,
			"2025-03-10",
			nil, // cycle_energy_kwh
			nil, // energy_at_start_kwh
			isUTCRecent(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Save(context.Background(), snap); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSnapshotSQLite_Load_NoRowsReturnsZeroSnapshot(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	repo := repository.NewSnapshotSQLite(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT appliance_id")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"appliance_id", "state", "current_power_w", "last_started", "last_completed",
			"cycle_duration_s", "cycles_today", "cycles_today_date", "cycle_energy_kwh",
			"energy_at_start_kwh", "updated_at",
		}))

	got, err := repo.Load(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.ApplianceID != "" || got.CyclesToday != 0 {
		t.Fatalf("expected zero snapshot, got %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSnapshotSQLite_Load_MapsNullableColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	repo := repository.NewSnapshotSQLite(db)

	started := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	completed := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	updated := time.Date(2025, 3, 10, 9, 2, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"appliance_id", "state", "current_power_w", "last_started", "last_completed",
		"cycle_duration_s", "cycles_today", "cycles_today_date", "cycle_energy_kwh",
		"energy_at_start_kwh", "updated_at",
	}).AddRow("a1", "completed", 0.5, started, completed, 3600.0, 3, "2025-03-10", 0.75, nil, updated)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT appliance_id")).
		WithArgs("a1").
		WillReturnRows(rows)

	got, err := repo.Load(context.Background(), "a1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.LastStarted == nil || !got.LastStarted.Equal(started) {
		t.Fatalf("last_started = %v, want %v", got.LastStarted, started)
	}
	if got.CycleDurationS == nil || *got.CycleDurationS != 3600.0 {
		t.Fatalf("cycle_duration_s = %v, want 3600", got.CycleDurationS)
	}
	if got.CycleEnergyKWh == nil || *got.CycleEnergyKWh != 0.75 {
		t.Fatalf("cycle_energy_kwh = %v, want 0.75", got.CycleEnergyKWh)
	}
	if got.EnergyAtStart != nil {
		t.Fatalf("energy_at_start must stay nil, got %v", *got.EnergyAtStart)
	}
	if got.CyclesToday != 3 || got.CyclesTodayDate != "2025-03-10" {
		t.Fatalf("cycles_today = %d/%s", got.CyclesToday, got.CyclesTodayDate)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
