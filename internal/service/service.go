package service

import (
	"context"
	"time"

	"appliance_status/internal/detector"
	"appliance_status/internal/logger"
	"appliance_status/internal/models"
	"appliance_status/internal/repository"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Appliances manages configured appliances and their live cycle detectors.
// Start loads the persisted appliances into the registry; the other methods
// keep the registry and the store in step.
type Appliances interface {
	Start(ctx context.Context) error
	Create(ctx context.Context, p CreateApplianceParams) (models.Appliance, error)
	List(ctx context.Context) ([]models.Appliance, error)
	Get(ctx context.Context, id string) (models.Appliance, error)
	Delete(ctx context.Context, id string) error
	UpdateSettings(ctx context.Context, id string, p SettingsPatch) (models.Appliance, error)
}

// Readings ingests power and energy sensor data into the detectors.
type Readings interface {
	ReportPower(ctx context.Context, id string, powerW float64, at time.Time) error
	ReportEnergy(ctx context.Context, id string, energyKWh float64, at time.Time) error
}

// Monitoring exposes read-only appliance status snapshots.
type Monitoring interface {
	Status(ctx context.Context, id string) (detector.Snapshot, error)
	StatusAll(ctx context.Context) (map[string]detector.Snapshot, error)
}

// EventLog exposes append-only cycle events with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.CycleEvent, error)
}

// Ticker runs the background loop that expires confirm delays when sensors go
// quiet. Stop via context cancellation in main() for graceful shutdown.
type Ticker interface {
	Run(ctx context.Context, tick time.Duration)
}

//
// Root Service aggregates all sub-services.
//

type Service struct {
	Appliances
	Readings
	Monitoring
	EventLog
	Ticker
	Authorization
}

// NewService wires the repository layer and the shared detector registry into
// the concrete services.
func NewService(repos *repository.Repository, log *logger.Logger, jwtSigningKey string) *Service {
	reg := newRegistry()
	return &Service{
		Appliances:    NewApplianceService(repos.Appliances, repos.Snapshots, repos.Events, reg, log),
		Readings:      NewReadingService(reg, log),
		Monitoring:    NewMonitoringService(reg),
		EventLog:      NewEventLogService(repos.Events),
		Ticker:        NewTickerService(reg),
		Authorization: NewAuthService(repos.Auth, jwtSigningKey),
	}
}
