package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"appliance_status/internal/models"
)

// ErrApplianceNotFound is returned when an appliance id has no row.
var ErrApplianceNotFound = errors.New("appliance not found")

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
}

// ApplianceRepo stores configured appliances and their detector settings.
type ApplianceRepo interface {
	Create(ctx context.Context, a models.Appliance) error
	GetByID(ctx context.Context, id string) (models.Appliance, error)
	List(ctx context.Context) ([]models.Appliance, error)
	UpdateSettings(ctx context.Context, id string, s models.DetectorSettings) error
	Delete(ctx context.Context, id string) error
}

// SnapshotRepo stores the latest detector snapshot, one row per appliance.
type SnapshotRepo interface {
	Save(ctx context.Context, s models.ApplianceSnapshot) error
	Load(ctx context.Context, applianceID string) (models.ApplianceSnapshot, error)
	Delete(ctx context.Context, applianceID string) error
}

// EventRepo is the append-only cycle event log with filtered access.
type EventRepo interface {
	Append(ctx context.Context, e models.CycleEvent) error
	List(ctx context.Context, from, to time.Time, typ, applianceID string) ([]models.CycleEvent, error)
}

type Repository struct {
	Appliances ApplianceRepo
	Snapshots  SnapshotRepo
	Events     EventRepo
	Auth       Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Appliances: NewApplianceSQLite(db),
		Snapshots:  NewSnapshotSQLite(db),
		Events:     NewEventSQLite(db),
		Auth:       NewUserRepository(db),
	}
}
