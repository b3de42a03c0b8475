package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"diagnostic_assistant/internal/engine"
	"diagnostic_assistant/internal/models"
	"diagnostic_assistant/internal/service"
)

func TestScanHandlers_Start(t *testing.T) {
	accepted := models.ScanRun{ID: 3, Status: models.ScanFetchingIdentity, Vehicle: models.VehicleIdentity{VIN: "MA1NS2NVPR2DS1667", ModelCode: "AS22XPNV5TP03D00ZY"}}

	cases := []struct {
		name       string
		body       string
		err        error
		wantCode   int
		wantParams service.ScanParams
	}{
		{name: "stored vehicle", body: "", wantCode: http.StatusAccepted},
		{
			name:       "override",
			body:       `{"vin":"MA1NS2NVPR2DS1667","model_code":"AS22XPNV5TP03D00ZY"}`,
			wantCode:   http.StatusAccepted,
			wantParams: service.ScanParams{VIN: "MA1NS2NVPR2DS1667", ModelCode: "AS22XPNV5TP03D00ZY"},
		},
		{name: "malformed body", body: `{"vin":`, wantCode: http.StatusBadRequest},
		{name: "busy", err: fmt.Errorf("scan 2: %w", engine.ErrSessionBusy), wantCode: http.StatusConflict},
		{name: "not connected", err: engine.ErrNotConnected, wantCode: http.StatusConflict},
		{name: "bad vin", err: engine.ErrInvalidVehicleIdentity, wantCode: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := &mockDiagnostics{scanRun: accepted, scanErr: tc.err}
			w := doWithAuth(t, newDiagRouter(d, nil), http.MethodPost, "/api/v1/scan", tc.body)
			if w.Code != tc.wantCode {
				t.Fatalf("status=%d, want %d (body=%s)", w.Code, tc.wantCode, w.Body.String())
			}
			if tc.wantCode != http.StatusAccepted {
				return
			}
			if d.lastParams != tc.wantParams {
				t.Fatalf("params=%+v, want %+v", d.lastParams, tc.wantParams)
			}
			var run models.ScanRun
			_ = json.Unmarshal(w.Body.Bytes(), &run)
			if run.ID != 3 || run.Status != models.ScanFetchingIdentity {
				t.Fatalf("unexpected run: %+v", run)
			}
		})
	}
}

func TestScanHandlers_CancelAndCurrent(t *testing.T) {
	t.Run("nothing to cancel", func(t *testing.T) {
		w := doWithAuth(t, newDiagRouter(&mockDiagnostics{}, nil), http.MethodPost, "/api/v1/scan/cancel", "")
		if w.Code != http.StatusNotFound {
			t.Fatalf("status=%d, want 404", w.Code)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		d := &mockDiagnostics{cancelOK: true, cancelRun: models.ScanRun{ID: 5, Status: models.ScanFailed, Reason: models.ReasonCancelled}}
		w := doWithAuth(t, newDiagRouter(d, nil), http.MethodPost, "/api/v1/scan/cancel", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status=%d", w.Code)
		}
		var run models.ScanRun
		_ = json.Unmarshal(w.Body.Bytes(), &run)
		if run.Reason != models.ReasonCancelled {
			t.Fatalf("reason=%q", run.Reason)
		}
	})

	t.Run("idle before first scan", func(t *testing.T) {
		w := doWithAuth(t, newDiagRouter(&mockDiagnostics{}, nil), http.MethodGet, "/api/v1/scan", "")
		var run models.ScanRun
		_ = json.Unmarshal(w.Body.Bytes(), &run)
		if w.Code != http.StatusOK || run.Status != models.ScanIdle {
			t.Fatalf("status=%d run=%+v", w.Code, run)
		}
	})
}

func TestECUHandlers_List(t *testing.T) {
	records := []models.ECURecord{{ID: "TCU", Status: models.ECUStatusDTCFound, DTCCount: 5}}
	cases := []struct {
		query      string
		wantCode   int
		wantFilter service.ECUFilter
	}{
		{query: "", wantCode: http.StatusOK},
		{query: "?status=dtc_found", wantCode: http.StatusOK, wantFilter: service.ECUFilter{Status: models.ECUStatusDTCFound}},
		{query: "?with_dtc=true", wantCode: http.StatusOK, wantFilter: service.ECUFilter{WithDTCOnly: true}},
		{query: "?status=BROKEN", wantCode: http.StatusBadRequest},
		{query: "?with_dtc=maybe", wantCode: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			d := &mockDiagnostics{ecus: records, summary: models.DTCSummary{TotalDTCs: 5, TotalECUs: 1, ECUsWithDTCs: 1}}
			w := doWithAuth(t, newDiagRouter(d, nil), http.MethodGet, "/api/v1/ecus"+tc.query, "")
			if w.Code != tc.wantCode {
				t.Fatalf("status=%d, want %d", w.Code, tc.wantCode)
			}
			if tc.wantCode != http.StatusOK {
				return
			}
			if d.lastFilter != tc.wantFilter {
				t.Fatalf("filter=%+v, want %+v", d.lastFilter, tc.wantFilter)
			}
			var out struct {
				Count   int                `json:"count"`
				Summary models.DTCSummary  `json:"summary"`
				ECUs    []models.ECURecord `json:"ecus"`
			}
			_ = json.Unmarshal(w.Body.Bytes(), &out)
			if out.Count != 1 || out.Summary.TotalDTCs != 5 {
				t.Fatalf("unexpected body: %+v", out)
			}
		})
	}
}

func TestECUHandlers_GetAndRefresh(t *testing.T) {
	t.Run("unknown ecu", func(t *testing.T) {
		d := &mockDiagnostics{ecuErr: fmt.Errorf("XYZ: %w", engine.ErrUnknownECU)}
		w := doWithAuth(t, newDiagRouter(d, nil), http.MethodGet, "/api/v1/ecus/xyz", "")
		if w.Code != http.StatusNotFound {
			t.Fatalf("status=%d, want 404", w.Code)
		}
		if d.lastECUID != "xyz" {
			t.Fatalf("id=%q", d.lastECUID)
		}
	})

	t.Run("known ecu", func(t *testing.T) {
		d := &mockDiagnostics{ecu: models.ECURecord{ID: "SVS", Status: models.ECUStatusDashboardData, DTCCount: 7, IsSpecialUnit: true}}
		w := doWithAuth(t, newDiagRouter(d, nil), http.MethodGet, "/api/v1/ecus/SVS", "")
		var rec models.ECURecord
		_ = json.Unmarshal(w.Body.Bytes(), &rec)
		if w.Code != http.StatusOK || !rec.IsSpecialUnit {
			t.Fatalf("status=%d rec=%+v", w.Code, rec)
		}
	})

	t.Run("partial refresh", func(t *testing.T) {
		d := &mockDiagnostics{refresh: engine.RefreshResult{
			Summary:   models.DTCSummary{TotalDTCs: 70, TotalECUs: 15, ECUsWithDTCs: 11},
			Failures:  []models.ECUFailure{{ECUID: "EPS", Kind: "FETCH_TIMEOUT"}},
			Queried:   15,
			Responded: 14,
		}}
		w := doWithAuth(t, newDiagRouter(d, nil), http.MethodPost, "/api/v1/ecus/refresh", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status=%d", w.Code)
		}
		var out struct {
			Partial bool                 `json:"partial"`
			Result  engine.RefreshResult `json:"result"`
		}
		_ = json.Unmarshal(w.Body.Bytes(), &out)
		if !out.Partial || len(out.Result.Failures) != 1 || out.Result.Summary.TotalDTCs != 70 {
			t.Fatalf("unexpected body: %+v", out)
		}
	})

	t.Run("nothing responded", func(t *testing.T) {
		d := &mockDiagnostics{refreshErr: fmt.Errorf("all-ecus: %w", engine.ErrFetchFailed)}
		w := doWithAuth(t, newDiagRouter(d, nil), http.MethodPost, "/api/v1/ecus/refresh", "")
		if w.Code != http.StatusBadGateway {
			t.Fatalf("status=%d, want 502", w.Code)
		}
	})
}

func TestECUHandlers_RefreshOne(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "updated", want: http.StatusOK},
		{name: "unknown", err: fmt.Errorf("x: %w", engine.ErrUnknownECU), want: http.StatusNotFound},
		{name: "busy", err: engine.ErrSessionBusy, want: http.StatusConflict},
		{name: "timeout", err: fmt.Errorf("EMS: %w", engine.ErrFetchTimeout), want: http.StatusGatewayTimeout},
		{name: "nack", err: fmt.Errorf("EMS: %w", engine.ErrFetchFailed), want: http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := &mockDiagnostics{
				ecu:           models.ECURecord{ID: "EMS", Status: models.ECUStatusDTCFound, DTCCount: 2},
				refresh:       engine.RefreshResult{Summary: models.DTCSummary{TotalDTCs: 2, TotalECUs: 15, ECUsWithDTCs: 1}},
				refreshOneErr: tc.err,
			}
			w := doWithAuth(t, newDiagRouter(d, nil), http.MethodPost, "/api/v1/ecus/ems/refresh", "")
			if w.Code != tc.want {
				t.Fatalf("status=%d, want %d body=%s", w.Code, tc.want, w.Body.String())
			}
			if d.lastECUID != "ems" {
				t.Fatalf("id=%q", d.lastECUID)
			}
			if tc.err != nil {
				return
			}
			var out struct {
				ECU     models.ECURecord  `json:"ecu"`
				Summary models.DTCSummary `json:"summary"`
			}
			_ = json.Unmarshal(w.Body.Bytes(), &out)
			if out.ECU.ID != "EMS" || out.Summary.TotalDTCs != 2 {
				t.Fatalf("body: %+v", out)
			}
		})
	}
}
