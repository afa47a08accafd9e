package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"appliance_status/internal/detector"
	"appliance_status/internal/models"
	"appliance_status/internal/repository"
)

// fakeApplianceRepo is an in-memory stand-in for repository.ApplianceRepo.
type fakeApplianceRepo struct {
	items map[string]models.Appliance

	createErr   error
	updateErr   error
	updateCalls int
}

func newFakeApplianceRepo() *fakeApplianceRepo {
	return &fakeApplianceRepo{items: make(map[string]models.Appliance)}
}

func (f *fakeApplianceRepo) Create(ctx context.Context, a models.Appliance) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.items[a.ID] = a
	return nil
}

func (f *fakeApplianceRepo) GetByID(ctx context.Context, id string) (models.Appliance, error) {
	a, ok := f.items[id]
	if !ok {
		return models.Appliance{}, repository.ErrApplianceNotFound
	}
	return a, nil
}

func (f *fakeApplianceRepo) List(ctx context.Context) ([]models.Appliance, error) {
	out := make([]models.Appliance, 0, len(f.items))
	for _, a := range f.items {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeApplianceRepo) UpdateSettings(ctx context.Context, id string, s models.DetectorSettings) error {
	f.updateCalls++
	if f.updateErr != nil {
		return f.updateErr
	}
	a, ok := f.items[id]
	if !ok {
		return repository.ErrApplianceNotFound
	}
	a.Settings = s
	f.items[id] = a
	return nil
}

func (f *fakeApplianceRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.items[id]; !ok {
		return repository.ErrApplianceNotFound
	}
	delete(f.items, id)
	return nil
}

// fakeSnapshotRepo is an in-memory stand-in for repository.SnapshotRepo.
type fakeSnapshotRepo struct {
	rows map[string]models.ApplianceSnapshot
}

func newFakeSnapshotRepo() *fakeSnapshotRepo {
	return &fakeSnapshotRepo{rows: make(map[string]models.ApplianceSnapshot)}
}

func (f *fakeSnapshotRepo) Save(ctx context.Context, s models.ApplianceSnapshot) error {
	f.rows[s.ApplianceID] = s
	return nil
}

func (f *fakeSnapshotRepo) Load(ctx context.Context, applianceID string) (models.ApplianceSnapshot, error) {
	// Matches the SQLite repo contract: missing row yields the zero value.
	return f.rows[applianceID], nil
}

func (f *fakeSnapshotRepo) Delete(ctx context.Context, applianceID string) error {
	delete(f.rows, applianceID)
	return nil
}

type applianceFixture struct {
	svc        *ApplianceService
	reg        *registry
	appliances *fakeApplianceRepo
	snapshots  *fakeSnapshotRepo
	events     *fakeEventRepo
}

func newApplianceFixture() *applianceFixture {
	reg := newRegistry()
	appliances := newFakeApplianceRepo()
	snapshots := newFakeSnapshotRepo()
	events := &fakeEventRepo{}
	return &applianceFixture{
		svc:        NewApplianceService(appliances, snapshots, events, reg, nil),
		reg:        reg,
		appliances: appliances,
		snapshots:  snapshots,
		events:     events,
	}
}

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

// --- Create ---

func TestApplianceService_Create_DefaultsAndRegistersDetector(t *testing.T) {
	fx := newApplianceFixture()

	a, err := fx.svc.Create(context.Background(), CreateApplianceParams{
		Name:        "Dishwasher",
		PowerSensor: "sensor.dishwasher_power",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if a.ID == "" {
		t.Fatalf("expected generated appliance id")
	}
	if a.Settings != defaultSettings() {
		t.Fatalf("expected default settings, got %+v", a.Settings)
	}
	if a.HasEnergySensor() {
		t.Fatalf("expected no energy sensor")
	}

	if _, ok := fx.appliances.items[a.ID]; !ok {
		t.Fatalf("appliance not persisted")
	}
	d, ok := fx.reg.get(a.ID)
	if !ok {
		t.Fatalf("detector not registered")
	}
	if d.Name() != "Dishwasher" {
		t.Fatalf("detector name: got %q", d.Name())
	}
}

func TestApplianceService_Create_AppliesSettingsOverrides(t *testing.T) {
	fx := newApplianceFixture()

	a, err := fx.svc.Create(context.Background(), CreateApplianceParams{
		Name:         "Washer",
		PowerSensor:  "sensor.washer_power",
		EnergySensor: "sensor.washer_energy",
		Settings: SettingsPatch{
			RunningThresholdW: fptr(12),
			StartDelayS:       iptr(120),
		},
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	want := defaultSettings()
	want.RunningThresholdW = 12
	want.StartDelayS = 120
	if a.Settings != want {
		t.Fatalf("settings: got %+v, want %+v", a.Settings, want)
	}
	if !a.HasEnergySensor() {
		t.Fatalf("expected energy sensor")
	}
}

func TestApplianceService_Create_Validation(t *testing.T) {
	fx := newApplianceFixture()
	ctx := context.Background()

	if _, err := fx.svc.Create(ctx, CreateApplianceParams{PowerSensor: "s.p"}); !errors.Is(err, errEmptyName) {
		t.Fatalf("empty name: got %v", err)
	}
	if _, err := fx.svc.Create(ctx, CreateApplianceParams{Name: "x"}); !errors.Is(err, errEmptyPowerSensor) {
		t.Fatalf("empty power sensor: got %v", err)
	}

	// Running threshold below standby threshold is an invalid combination.
	_, err := fx.svc.Create(ctx, CreateApplianceParams{
		Name:        "Broken",
		PowerSensor: "s.p",
		Settings: SettingsPatch{
			StandbyThresholdW: fptr(10),
			RunningThresholdW: fptr(5),
		},
	})
	if !errors.Is(err, detector.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if len(fx.appliances.items) != 0 {
		t.Fatalf("invalid appliance must not be persisted")
	}
}

// --- UpdateSettings ---

func TestApplianceService_UpdateSettings_MergesAndLogsEvent(t *testing.T) {
	fx := newApplianceFixture()
	ctx := context.Background()

	a, err := fx.svc.Create(ctx, CreateApplianceParams{Name: "Dryer", PowerSensor: "s.p"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	got, err := fx.svc.UpdateSettings(ctx, a.ID, SettingsPatch{FinishDelayS: iptr(300)})
	if err != nil {
		t.Fatalf("UpdateSettings returned error: %v", err)
	}
	if got.Settings.FinishDelayS != 300 {
		t.Fatalf("finish delay: got %d, want 300", got.Settings.FinishDelayS)
	}
	// Untouched fields keep their previous values.
	if got.Settings.StandbyThresholdW != a.Settings.StandbyThresholdW {
		t.Fatalf("standby threshold changed unexpectedly")
	}

	if fx.appliances.items[a.ID].Settings.FinishDelayS != 300 {
		t.Fatalf("store not updated")
	}

	d, _ := fx.reg.get(a.ID)
	if d.Config().FinishConfirmDelay != 300*time.Second {
		t.Fatalf("live detector not updated: %v", d.Config().FinishConfirmDelay)
	}

	if len(fx.events.appended) != 1 {
		t.Fatalf("expected 1 event, got %d", len(fx.events.appended))
	}
	ev := fx.events.appended[0]
	if ev.Type != models.EventConfigChange || ev.ApplianceID != a.ID {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestApplianceService_UpdateSettings_InvalidKeepsPrevious(t *testing.T) {
	fx := newApplianceFixture()
	ctx := context.Background()

	a, err := fx.svc.Create(ctx, CreateApplianceParams{Name: "Oven", PowerSensor: "s.p"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	before := fx.appliances.items[a.ID].Settings

	_, err = fx.svc.UpdateSettings(ctx, a.ID, SettingsPatch{RunningThresholdW: fptr(0.5)})
	if !errors.Is(err, detector.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}

	if fx.appliances.items[a.ID].Settings != before {
		t.Fatalf("stored settings changed after rejected update")
	}
	d, _ := fx.reg.get(a.ID)
	if d.Config() != configFromSettings(before) {
		t.Fatalf("live detector config changed after rejected update")
	}
	if len(fx.events.appended) != 0 {
		t.Fatalf("no event expected for rejected update")
	}
}

func TestApplianceService_UpdateSettings_UnknownAppliance(t *testing.T) {
	fx := newApplianceFixture()

	_, err := fx.svc.UpdateSettings(context.Background(), "nope", SettingsPatch{})
	if !errors.Is(err, repository.ErrApplianceNotFound) {
		t.Fatalf("expected ErrApplianceNotFound, got %v", err)
	}
}

// --- Start / restore ---

func TestApplianceService_Start_RestoresSnapshot(t *testing.T) {
	fx := newApplianceFixture()
	ctx := context.Background()

	a := models.Appliance{
		ID:          "a-1",
		Name:        "Dishwasher",
		PowerSensor: "s.p",
		Settings:    defaultSettings(),
		CreatedAt:   time.Now().UTC(),
	}
	fx.appliances.items[a.ID] = a

	started := time.Now().Add(-45 * time.Minute).UTC()
	dur := 2710.0
	fx.snapshots.rows[a.ID] = models.ApplianceSnapshot{
		ApplianceID:     a.ID,
		State:           string(detector.StatePendingCompleted),
		CurrentPowerW:   55,
		LastStarted:     &started,
		CycleDurationS:  &dur,
		CyclesToday:     3,
		CyclesTodayDate: time.Now().Local().Format("2006-01-02"),
		UpdatedAt:       time.Now().UTC(),
	}

	if err := fx.svc.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	d, ok := fx.reg.get(a.ID)
	if !ok {
		t.Fatalf("detector not registered after Start")
	}
	snap := d.Snapshot()
	// A persisted pending state comes back as a plain running cycle; the
	// confirmation timer does not survive a restart.
	if snap.InternalState != detector.StateRunning {
		t.Fatalf("restored state: got %q, want %q", snap.InternalState, detector.StateRunning)
	}
	if snap.CyclesToday != 3 {
		t.Fatalf("restored cycles today: got %d, want 3", snap.CyclesToday)
	}
	if snap.LastStarted == nil || !snap.LastStarted.Equal(started) {
		t.Fatalf("restored last started: got %v", snap.LastStarted)
	}
}

func TestApplianceService_Start_NoSnapshotStartsOff(t *testing.T) {
	fx := newApplianceFixture()

	fx.appliances.items["a-2"] = models.Appliance{
		ID: "a-2", Name: "Washer", PowerSensor: "s.p", Settings: defaultSettings(),
	}
	if err := fx.svc.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	d, _ := fx.reg.get("a-2")
	if got := d.Snapshot().InternalState; got != detector.StateOff {
		t.Fatalf("fresh detector state: got %q, want %q", got, detector.StateOff)
	}
}

// --- Delete ---

func TestApplianceService_Delete_RemovesDetector(t *testing.T) {
	fx := newApplianceFixture()
	ctx := context.Background()

	a, err := fx.svc.Create(ctx, CreateApplianceParams{Name: "Kettle", PowerSensor: "s.p"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := fx.svc.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, ok := fx.reg.get(a.ID); ok {
		t.Fatalf("detector still registered after delete")
	}
	if _, ok := fx.appliances.items[a.ID]; ok {
		t.Fatalf("appliance still stored after delete")
	}
	if err := fx.svc.Delete(ctx, a.ID); !errors.Is(err, repository.ErrApplianceNotFound) {
		t.Fatalf("second delete: got %v", err)
	}
}

// --- State change persistence through callbacks ---

func TestApplianceService_StateChangesPersistSnapshotAndEvent(t *testing.T) {
	fx := newApplianceFixture()
	ctx := context.Background()

	a, err := fx.svc.Create(ctx, CreateApplianceParams{Name: "Microwave", PowerSensor: "s.p"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	d, _ := fx.reg.get(a.ID)
	if err := d.ReportPower(3, time.Now()); err != nil { // standby level
		t.Fatalf("ReportPower returned error: %v", err)
	}

	row, ok := fx.snapshots.rows[a.ID]
	if !ok {
		t.Fatalf("snapshot not persisted on state change")
	}
	if row.State != string(detector.StateStandby) {
		t.Fatalf("persisted state: got %q, want %q", row.State, detector.StateStandby)
	}

	if len(fx.events.appended) != 1 {
		t.Fatalf("expected 1 event, got %d", len(fx.events.appended))
	}
	if fx.events.appended[0].Type != models.EventStateChange {
		t.Fatalf("event type: got %q", fx.events.appended[0].Type)
	}
}
