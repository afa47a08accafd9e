package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"appliance_status/internal/models"
	"appliance_status/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestEventSQLite_Append_FillsIDAndTimestamp(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	repo := repository.NewEventSQLite(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO cycle_events")).
		WithArgs(
			sqlmock.AnyArg(), // generated event id
			"a1",
			"dishwasher",
			isUTCRecent(),
			"CYCLE_COMPLETED",
			"Cycle completed",
			sqlmock.AnyArg(), // marshaled metadata
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.Append(context.Background(), models.CycleEvent{
		ApplianceID:   "a1",
		ApplianceName: "dishwasher",
		Type:          "cycle_completed", // normalized to upper case
		Description:   "Cycle completed",
		Metadata:      map[string]any{"cycle_duration": 3600.0},
	})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEventSQLite_List_BuildsFiltersAndParsesMeta(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	repo := repository.NewEventSQLite(db)

	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	at := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "appliance_id", "appliance_name", "occurred_at", "type", "message", "meta"}).
		AddRow("e1", "a1", "dishwasher", at, "CYCLE_COMPLETED", "Cycle completed", `{"cycle_duration":3600}`)

	mock.ExpectQuery(regexp.QuoteMeta(
		"occurred_at >= ? AND occurred_at <= ? AND type = ? AND appliance_id = ?",
	)).
		WithArgs(from, to, "CYCLE_COMPLETED", "a1").
		WillReturnRows(rows)

	events, err := repo.List(context.Background(), from, to, " cycle_completed ", "a1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.EventID != "e1" || ev.Type != "CYCLE_COMPLETED" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	meta, ok := ev.Metadata.(map[string]any)
	if !ok || meta["cycle_duration"] != 3600.0 {
		t.Fatalf("metadata not parsed: %#v", ev.Metadata)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEventSQLite_List_NoFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	repo := repository.NewEventSQLite(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM cycle_events ORDER BY occurred_at ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "appliance_id", "appliance_name", "occurred_at", "type", "message", "meta"}))

	events, err := repo.List(context.Background(), time.Time{}, time.Time{}, "", "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
