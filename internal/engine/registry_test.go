package engine

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"diagnostic_assistant/internal/models"
)

// fifteenECUs returns 14 DTC_FOUND units summing to 87 and one clean unit.
func fifteenECUs() []models.ECURecord {
	recs := make([]models.ECURecord, 0, 15)
	for i := 1; i <= 14; i++ {
		count := 6
		if i <= 3 {
			count = 7
		}
		recs = append(recs, models.ECURecord{
			ID:       fmt.Sprintf("ECU%02d", i),
			Status:   models.ECUStatusDTCFound,
			DTCCount: count,
		})
	}
	recs = append(recs, models.ECURecord{ID: "ECU15", Status: models.ECUStatusSuccess})
	return recs
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		records []models.ECURecord
		want    models.DTCSummary
	}{
		{
			name: "empty",
			want: models.DTCSummary{},
		},
		{
			name:    "fifteen units, fourteen with faults",
			records: fifteenECUs(),
			want:    models.DTCSummary{TotalDTCs: 87, TotalECUs: 15, ECUsWithDTCs: 14},
		},
		{
			name: "special unit excluded from dtc total",
			records: []models.ECURecord{
				{ID: "BCM", Status: models.ECUStatusDTCFound, DTCCount: 4},
				{ID: "SVS", Status: models.ECUStatusDashboardData, DTCCount: 9, IsSpecialUnit: true},
			},
			want: models.DTCSummary{TotalDTCs: 4, TotalECUs: 2, ECUsWithDTCs: 1},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Summarize(tc.records)
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
			if got.ECUsWithDTCs > got.TotalECUs {
				t.Fatalf("ecus with dtcs %d exceeds total %d", got.ECUsWithDTCs, got.TotalECUs)
			}
		})
	}
}

func TestRegistry_ReplaceAll(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	sum, err := r.ReplaceAll(fifteenECUs())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum != (models.DTCSummary{TotalDTCs: 87, TotalECUs: 15, ECUsWithDTCs: 14}) {
		t.Fatalf("summary: got %+v", sum)
	}
	if r.Summary() != sum {
		t.Fatalf("Summary() disagrees with ReplaceAll result")
	}

	t.Run("duplicate ids rejected and registry untouched", func(t *testing.T) {
		_, err := r.ReplaceAll([]models.ECURecord{
			{ID: "X", Status: models.ECUStatusSuccess},
			{ID: "X", Status: models.ECUStatusSuccess},
		})
		if !errors.Is(err, ErrDuplicateECU) {
			t.Fatalf("want ErrDuplicateECU, got %v", err)
		}
		if EntityOf(err) != "X" {
			t.Errorf("entity: want X, got %q", EntityOf(err))
		}
		if r.Len() != 15 {
			t.Errorf("registry changed: len %d", r.Len())
		}
	})

	t.Run("negative count rejected", func(t *testing.T) {
		_, err := r.ReplaceAll([]models.ECURecord{{ID: "Y", Status: models.ECUStatusSuccess, DTCCount: -1}})
		if err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("records are copies", func(t *testing.T) {
		recs := r.Records()
		recs[0].DTCCount = 1000
		if got, _ := r.Get(recs[0].ID); got.DTCCount == 1000 {
			t.Fatalf("caller mutation leaked into registry")
		}
	})
}

func TestRegistry_ApplyDelta(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if _, err := r.ReplaceAll(fifteenECUs()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := r.ApplyDelta("NOPE", models.ECUStatusSuccess, 0); !errors.Is(err, ErrUnknownECU) {
		t.Fatalf("want ErrUnknownECU, got %v", err)
	}

	sum, err := r.ApplyDelta("ECU01", models.ECUStatusSuccess, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := models.DTCSummary{TotalDTCs: 80, TotalECUs: 15, ECUsWithDTCs: 13}
	if sum != want || r.Summary() != want {
		t.Fatalf("got %+v / %+v, want %+v", sum, r.Summary(), want)
	}
}

func TestRegistry_IDsMatchCaseInsensitively(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if _, err := r.ReplaceAll([]models.ECURecord{
		{ID: "ems", Status: models.ECUStatusSuccess},
		{ID: "SVS", Status: models.ECUStatusDashboardData, IsSpecialUnit: true},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	for _, id := range []string{"EMS", " ems ", "Ems"} {
		rec, ok := r.Get(id)
		if !ok || rec.ID != "ems" {
			t.Fatalf("Get(%q) = %+v, %v; want the transport id preserved", id, rec, ok)
		}
	}
	if _, err := r.ApplyDelta("svs", models.ECUStatusDashboardData, 4); err != nil {
		t.Fatalf("ApplyDelta(svs): %v", err)
	}
	if rec, _ := r.Get("SVS"); rec.DTCCount != 4 {
		t.Fatalf("delta not applied: %+v", rec)
	}

	_, err := r.ReplaceAll([]models.ECURecord{
		{ID: "EMS", Status: models.ECUStatusSuccess},
		{ID: "ems", Status: models.ECUStatusSuccess},
	})
	if !errors.Is(err, ErrDuplicateECU) {
		t.Fatalf("ids differing only in case: err = %v; want ErrDuplicateECU", err)
	}
}

func TestRegistry_ReadersSeeWholeSnapshots(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	a := fifteenECUs()
	b := []models.ECURecord{
		{ID: "ECU01", Status: models.ECUStatusSuccess},
		{ID: "ECU02", Status: models.ECUStatusDTCFound, DTCCount: 3},
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			set := a
			if i%2 == 1 {
				set = b
			}
			if _, err := r.ReplaceAll(set); err != nil {
				t.Errorf("replace: %v", err)
				return
			}
		}
		close(stop)
	}()

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				recs, sum := r.View()
				if Summarize(recs) != sum {
					t.Errorf("summary %+v inconsistent with records", sum)
					return
				}
			}
		}()
	}
	wg.Wait()
}
