package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDateAddDaysCrossesMonth(t *testing.T) {
	d := NewDate(2024, time.January, 28).AddDays(7)
	if d.String() != "2024-02-04" {
		t.Errorf("expected 2024-02-04, got %s", d)
	}
}

func TestDateOfIgnoresZone(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	// 00:30 in India is still the previous day in UTC.
	ts := time.Date(2024, time.March, 1, 0, 30, 0, 0, ist)
	if got := DateOf(ts).String(); got != "2024-03-01" {
		t.Errorf("expected 2024-03-01, got %s", got)
	}
}

func TestDateDaysSince(t *testing.T) {
	due := NewDate(2024, time.January, 10)
	tests := []struct {
		asOf Date
		want int
	}{
		{NewDate(2024, time.January, 10), 0},
		{NewDate(2024, time.January, 11), 1},
		{NewDate(2024, time.February, 9), 30},
		{NewDate(2024, time.January, 9), -1},
	}
	for _, tt := range tests {
		if got := tt.asOf.DaysSince(due); got != tt.want {
			t.Errorf("%s.DaysSince(%s) = %d, want %d", tt.asOf, due, got, tt.want)
		}
	}
}

func TestDateJSON(t *testing.T) {
	var payload struct {
		Pickup Date `json:"pickup"`
	}
	if err := json.Unmarshal([]byte(`{"pickup":"2024-01-01"}`), &payload); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !payload.Pickup.Equal(NewDate(2024, time.January, 1)) {
		t.Errorf("unexpected date %s", payload.Pickup)
	}

	out, _ := json.Marshal(payload)
	if string(out) != `{"pickup":"2024-01-01"}` {
		t.Errorf("unexpected JSON %s", out)
	}

	if err := json.Unmarshal([]byte(`{"pickup":"01/01/2024"}`), &payload); err == nil {
		t.Error("expected error for non ISO date")
	}
}

func TestDateScan(t *testing.T) {
	var d Date
	if err := d.Scan("2024-05-06"); err != nil {
		t.Fatalf("Scan string: %v", err)
	}
	if d.String() != "2024-05-06" {
		t.Errorf("got %s", d)
	}
	if err := d.Scan(time.Date(2024, time.May, 7, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Scan time: %v", err)
	}
	if d.String() != "2024-05-07" {
		t.Errorf("got %s", d)
	}
	if err := d.Scan(nil); err != nil || !d.IsZero() {
		t.Errorf("expected zero date after scanning NULL, got %s (%v)", d, err)
	}
	if err := d.Scan(42); err == nil {
		t.Error("expected error scanning int")
	}
}
