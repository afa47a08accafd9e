package handlers

import (
	"context"
	"net/http"
	"time"

	"appliance_status/internal/detector"
	"appliance_status/internal/models"
	"appliance_status/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockAppliances struct {
	createResp models.Appliance
	createErr  error
	listResp   []models.Appliance
	listErr    error
	getResp    models.Appliance
	getErr     error
	deleteErr  error
	updateResp models.Appliance
	updateErr  error

	lastCreate  service.CreateApplianceParams
	lastPatchID string
	lastPatch   service.SettingsPatch
	lastDelete  string
	createCalls int
	deleteCalls int
}

func (m *mockAppliances) Start(ctx context.Context) error { return nil }
func (m *mockAppliances) Create(ctx context.Context, p service.CreateApplianceParams) (models.Appliance, error) {
	m.createCalls++
	m.lastCreate = p
	return m.createResp, m.createErr
}
func (m *mockAppliances) List(ctx context.Context) ([]models.Appliance, error) {
	return m.listResp, m.listErr
}
func (m *mockAppliances) Get(ctx context.Context, id string) (models.Appliance, error) {
	return m.getResp, m.getErr
}
func (m *mockAppliances) Delete(ctx context.Context, id string) error {
	m.deleteCalls++
	m.lastDelete = id
	return m.deleteErr
}
func (m *mockAppliances) UpdateSettings(ctx context.Context, id string, p service.SettingsPatch) (models.Appliance, error) {
	m.lastPatchID = id
	m.lastPatch = p
	return m.updateResp, m.updateErr
}

type mockReadings struct {
	powerErr  error
	energyErr error

	lastPowerID  string
	lastPowerW   float64
	lastPowerAt  time.Time
	lastEnergyID string
	lastEnergy   float64
	powerCalls   int
	energyCalls  int
}

func (m *mockReadings) ReportPower(ctx context.Context, id string, powerW float64, at time.Time) error {
	m.powerCalls++
	m.lastPowerID = id
	m.lastPowerW = powerW
	m.lastPowerAt = at
	return m.powerErr
}
func (m *mockReadings) ReportEnergy(ctx context.Context, id string, energyKWh float64, at time.Time) error {
	m.energyCalls++
	m.lastEnergyID = id
	m.lastEnergy = energyKWh
	return m.energyErr
}

type mockMonitoring struct {
	snap    detector.Snapshot
	snapErr error
	all     map[string]detector.Snapshot
	allErr  error
}

func (m *mockMonitoring) Status(ctx context.Context, id string) (detector.Snapshot, error) {
	return m.snap, m.snapErr
}
func (m *mockMonitoring) StatusAll(ctx context.Context) (map[string]detector.Snapshot, error) {
	return m.all, m.allErr
}

type mockEventLog struct {
	resp            []models.CycleEvent
	err             error
	lastFrom        time.Time
	lastTo          time.Time
	lastType        string
	lastApplianceID string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.CycleEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	m.lastApplianceID = f.ApplianceID
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
