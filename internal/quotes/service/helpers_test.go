package service

import (
	"testing"
	"time"

	"cotizador_backend/internal/catalog/domain"
)

func testEntries() []domain.MachineEntry {
	return []domain.MachineEntry{
		{
			ID:             "CM640",
			DisplayID:      "CM640",
			Template:       "CM640.docx",
			BasePriceCents: 1799500,
			Steps: []domain.Step{
				{Name: "Voltage", Kind: domain.StepSelect, Options: []domain.Option{
					{Value: "208V_3PH_60HZ", PriceDeltaCents: 0},
					{Value: "480V_3PH_60HZ", PriceDeltaCents: 25000},
				}},
				{Name: "Lid size", Kind: domain.StepSelect, Options: []domain.Option{
					{Value: "6", PriceDeltaCents: 0},
					{Value: "8", PriceDeltaCents: 40000},
				}},
				{Name: "Pump Options", Kind: domain.StepSelect, Options: []domain.Option{
					{Value: "Busch 21 m3/h", PriceDeltaCents: 0},
					{Value: "Busch 40 m3/h", PriceDeltaCents: 150000},
				}},
				domain.NewCheckboxStep("Gas Flush", 85000),
			},
		},
		{
			ID:             "TS100",
			Template:       "TS100.docx",
			BasePriceCents: 4250000,
			Steps: []domain.Step{
				domain.NewCheckboxStep("Index", 120000),
			},
		},
	}
}

func testSnapshot(t *testing.T) *domain.Snapshot {
	t.Helper()
	snap, err := domain.NewSnapshot(domain.SourceSheets, "test", time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), testEntries())
	if err != nil {
		t.Fatalf("build snapshot: %v", err)
	}
	return snap
}

func cents(v int64) *int64 { return &v }
