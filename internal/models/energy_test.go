package models

import (
	"testing"
	"time"
)

// TestParseDate tests date parsing and validation
func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
		want    time.Time
	}{
		{
			name:  "valid date",
			value: "2026-03-10",
			want:  time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "wrong format",
			value:   "10.03.2026",
			wantErr: true,
		},
		{
			name:    "empty",
			value:   "",
			wantErr: true,
		},
		{
			name:    "impossible day",
			value:   "2026-02-30",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate("date", tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if _, ok := err.(*ValidationError); !ok {
					t.Errorf("error type = %T, want *ValidationError", err)
				}
				return
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestDateOf tests instant truncation
func TestDateOf(t *testing.T) {
	in := time.Date(2026, 7, 4, 23, 59, 58, 123, time.UTC)
	want := time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC)

	if got := DateOf(in); !got.Equal(want) {
		t.Errorf("DateOf() = %v, want %v", got, want)
	}
}

// TestSeries_SortSamples tests that consumers can rely on ordering
func TestSeries_SortSamples(t *testing.T) {
	day := Date(2026, time.March, 10)

	s := Series{
		Samples: []TimeSample{
			{Timestamp: day.Add(2 * time.Hour), Value: 3},
			{Timestamp: day, Value: 1},
			{Timestamp: day.Add(time.Hour), Value: 2},
		},
	}

	s.SortSamples()

	for i, want := range []float64{1, 2, 3} {
		if s.Samples[i].Value != want {
			t.Errorf("Samples[%d].Value = %v, want %v", i, s.Samples[i].Value, want)
		}
	}
}

// TestSeries_Empty tests the empty check
func TestSeries_Empty(t *testing.T) {
	if !(Series{}).Empty() {
		t.Error("empty series should report Empty")
	}
	if (Series{Samples: []TimeSample{{}}}).Empty() {
		t.Error("non-empty series should not report Empty")
	}
}

// TestDayType_DemandHint tests the demand direction mapping
func TestDayType_DemandHint(t *testing.T) {
	if got := DayTypeWorking.DemandHint(); got != "higher demand" {
		t.Errorf("working day hint = %q", got)
	}
	if got := DayTypeWeekend.DemandHint(); got != "lower demand" {
		t.Errorf("weekend hint = %q", got)
	}
	if got := DayTypeHoliday.DemandHint(); got != "lower demand" {
		t.Errorf("holiday hint = %q", got)
	}
}
