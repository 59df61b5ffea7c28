package forecast

import (
	"math"
	"testing"
)

func f(v float64) *float64 { return &v }

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
		wantOK  bool
		wantMax float64
	}{
		{
			name: "valid payload",
			payload: Payload{
				Latitude:  40.75,
				Longitude: -73.99,
				Current:   Current{Time: "2026-08-30T12:00", Temperature2M: f(71.2)},
				Daily:     Daily{Time: []string{"2026-08-30"}, Temperature2MMax: []*float64{f(75.0)}},
			},
			wantOK:  true,
			wantMax: 75.0,
		},
		{
			name:    "empty daily block",
			payload: Payload{Daily: Daily{}},
			wantOK:  false,
		},
		{
			name: "null daily max",
			payload: Payload{
				Daily: Daily{Time: []string{"2026-08-30"}, Temperature2MMax: []*float64{nil}},
			},
			wantOK: false,
		},
		{
			name: "NaN daily max",
			payload: Payload{
				Daily: Daily{Time: []string{"2026-08-30"}, Temperature2MMax: []*float64{f(math.NaN())}},
			},
			wantOK: false,
		},
		{
			name: "infinite daily max",
			payload: Payload{
				Daily: Daily{Time: []string{"2026-08-30"}, Temperature2MMax: []*float64{f(math.Inf(1))}},
			},
			wantOK: false,
		},
		{
			name: "missing current temperature still usable",
			payload: Payload{
				Daily: Daily{Time: []string{"2026-08-30"}, Temperature2MMax: []*float64{f(68.0)}},
			},
			wantOK:  true,
			wantMax: 68.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize("10001", "New York", "fahrenheit", tt.payload)
			if ok != tt.wantOK {
				t.Fatalf("Normalize() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.MaxTemp != tt.wantMax {
				t.Errorf("MaxTemp = %f, want %f", got.MaxTemp, tt.wantMax)
			}
			if got.Zip != "10001" {
				t.Errorf("Zip = %q, want %q", got.Zip, "10001")
			}
			if got.Unit != "fahrenheit" {
				t.Errorf("Unit = %q, want %q", got.Unit, "fahrenheit")
			}
			if got.Date != "2026-08-30" {
				t.Errorf("Date = %q, want %q", got.Date, "2026-08-30")
			}
		})
	}
}
