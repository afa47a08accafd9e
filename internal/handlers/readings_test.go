package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"appliance_status/internal/detector"
	"appliance_status/internal/repository"
	"appliance_status/internal/service"
)

func TestReadingHandlers_ReportPower(t *testing.T) {
	readings := &mockReadings{}
	mon := &mockMonitoring{snap: detector.Snapshot{
		Status:        detector.StateRunning,
		InternalState: detector.StateRunning,
		IsRunning:     true,
		CurrentPowerW: 1850.5,
	}}
	s := &service.Service{
		Authorization: &mockAuth{parseID: 7},
		Readings:      readings,
		Monitoring:    mon,
	}
	r := newTestRouter(s)

	w := doJSON(r, http.MethodPost, "/api/v1/appliances/a-1/power",
		`{"power_w":1850.5,"at":"2025-08-27T15:04:05Z"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("power status=%d, body=%s", w.Code, w.Body.String())
	}
	if readings.powerCalls != 1 || readings.lastPowerID != "a-1" || readings.lastPowerW != 1850.5 {
		t.Fatalf("wrong ReportPower call: %+v", readings)
	}
	want := time.Date(2025, 8, 27, 15, 4, 5, 0, time.UTC)
	if !readings.lastPowerAt.Equal(want) {
		t.Fatalf("timestamp: got %v, want %v", readings.lastPowerAt, want)
	}

	var resp struct {
		Status    string            `json:"status"`
		Appliance detector.Snapshot `json:"appliance"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != statusAccepted || !resp.Appliance.IsRunning {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestReadingHandlers_StaleReadingRejectedWith409(t *testing.T) {
	readings := &mockReadings{
		powerErr: fmt.Errorf("reading at 10:00: %w", detector.ErrOutOfOrderReading),
	}
	s := &service.Service{
		Authorization: &mockAuth{parseID: 7},
		Readings:      readings,
	}
	r := newTestRouter(s)

	w := doJSON(r, http.MethodPost, "/api/v1/appliances/a-1/power", `{"power_w":5}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d (body=%s)", w.Code, w.Body.String())
	}
	var out struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Error != errStaleReading {
		t.Fatalf("error message: got %q", out.Error)
	}
}

func TestReadingHandlers_ReportEnergy(t *testing.T) {
	readings := &mockReadings{}
	s := &service.Service{
		Authorization: &mockAuth{parseID: 7},
		Readings:      readings,
	}
	r := newTestRouter(s)

	w := doJSON(r, http.MethodPost, "/api/v1/appliances/a-1/energy", `{"energy_kwh":152.731}`)
	if w.Code != http.StatusOK {
		t.Fatalf("energy status=%d, body=%s", w.Code, w.Body.String())
	}
	if readings.energyCalls != 1 || readings.lastEnergyID != "a-1" || readings.lastEnergy != 152.731 {
		t.Fatalf("wrong ReportEnergy call: %+v", readings)
	}

	// Unknown appliance → 404
	readings.energyErr = repository.ErrApplianceNotFound
	w = doJSON(r, http.MethodPost, "/api/v1/appliances/nope/energy", `{"energy_kwh":1}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
