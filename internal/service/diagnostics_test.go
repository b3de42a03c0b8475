package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"diagnostic_assistant/internal/catalog"
	"diagnostic_assistant/internal/engine"
	"diagnostic_assistant/internal/models"
	"diagnostic_assistant/internal/simulator"
)

func newSimulatedDiagnostics(t *testing.T, cfg simulator.Config) *DiagnosticsService {
	t.Helper()
	cat := catalog.Default()
	coord := engine.NewCoordinator(simulator.New(cat, cfg, nil), cat, nil, engine.Options{})
	t.Cleanup(func() { _ = coord.Close(context.Background()) })
	return NewDiagnosticsService(coord)
}

func waitScan(t *testing.T, svc *DiagnosticsService) models.ScanRun {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if run, ok := svc.CurrentScan(); ok && run.Status.Terminal() {
			return run
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("scan did not finish")
	return models.ScanRun{}
}

func TestDiagnosticsService_ScanAndFilter(t *testing.T) {
	t.Parallel()

	svc := newSimulatedDiagnostics(t, simulator.Config{})
	if _, err := svc.StartScan(ScanParams{VIN: simulator.DefaultVIN, ModelCode: simulator.DefaultModel}); !errors.Is(err, engine.ErrNotConnected) {
		t.Fatalf("want ErrNotConnected before connect, got %v", err)
	}
	if _, err := svc.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	accepted, err := svc.StartScan(ScanParams{VIN: " " + simulator.DefaultVIN, ModelCode: simulator.DefaultModel + " "})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if accepted.Status.Terminal() {
		t.Fatalf("accepted run already terminal: %s", accepted.Status)
	}
	final := waitScan(t, svc)
	if final.ID != accepted.ID || final.Status != models.ScanWarning {
		t.Fatalf("final run %+v", final)
	}

	cases := []struct {
		name   string
		status string
		dtc    bool
		want   int
	}{
		{name: "all", want: 15},
		{name: "with dtcs", dtc: true, want: 13},
		{name: "dashboard", status: "dashboard_data", want: 1},
		{name: "success", status: "SUCCESS", want: 1},
	}
	for _, tc := range cases {
		f, err := ParseECUFilter(tc.status, tc.dtc)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got := len(svc.ECUs(f)); got != tc.want {
			t.Errorf("%s: got %d ECUs, want %d", tc.name, got, tc.want)
		}
	}

	rec, err := svc.ECU(" svs ")
	if err != nil || !rec.IsSpecialUnit {
		t.Fatalf("ECU(svs) = %+v, %v", rec, err)
	}
	if _, err := svc.ECU("NOPE"); !errors.Is(err, engine.ErrUnknownECU) {
		t.Fatalf("want ErrUnknownECU, got %v", err)
	}

	before := svc.Summary()
	one, sum, err := svc.RefreshECU(context.Background(), "svs")
	if err != nil || one.ID != rec.ID {
		t.Fatalf("RefreshECU(svs) = %+v, %v", one, err)
	}
	if sum.TotalECUs != before.TotalECUs {
		t.Fatalf("single refresh changed ECU count: %+v -> %+v", before, sum)
	}
	if _, _, err := svc.RefreshECU(context.Background(), "NOPE"); !errors.Is(err, engine.ErrUnknownECU) {
		t.Fatalf("RefreshECU(NOPE) err = %v", err)
	}
}

func TestParseECUFilter_RejectsUnknownStatus(t *testing.T) {
	t.Parallel()

	if _, err := ParseECUFilter("broken", false); !errors.Is(err, errInvalidECUStatus) {
		t.Fatalf("want errInvalidECUStatus, got %v", err)
	}
}
