package domain

import (
	"testing"
	"time"
)

func TestResolve_NoRow(t *testing.T) {
	r := Resolve(nil, time.Now())
	if r.Status != StatusUnregistered {
		t.Errorf("Status = %q, want unregistered", r.Status)
	}
	if !r.NeedsActivation {
		t.Error("NeedsActivation should be true for a missing row")
	}
}

func TestResolve_LifetimeOverridesTrial(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-24 * time.Hour)
	d := &Device{ID: "k", IsLifetime: true, TrialEnd: &past}
	r := Resolve(d, now)
	if r.Status != StatusActive {
		t.Errorf("Status = %q, want active even with an expired trial", r.Status)
	}
	if r.NeedsActivation {
		t.Error("lifetime device never needs activation")
	}
}

func TestResolve_TrialDaysLeftRoundsUp(t *testing.T) {
	now := time.Now().UTC()
	end := now.Add(36 * time.Hour)
	d := &Device{ID: "k", TrialEnd: &end}
	r := Resolve(d, now)
	if r.Status != StatusTrial {
		t.Fatalf("Status = %q, want trial", r.Status)
	}
	if r.DaysLeft != 2 {
		t.Errorf("DaysLeft = %d, want 2 for 36h remaining", r.DaysLeft)
	}
}

func TestResolve_PartialFinalDayCountsAsOne(t *testing.T) {
	now := time.Now().UTC()
	end := now.Add(30 * time.Minute)
	d := &Device{ID: "k", TrialEnd: &end}
	r := Resolve(d, now)
	if r.Status != StatusTrial || r.DaysLeft != 1 {
		t.Errorf("got (%q, %d), want (trial, 1)", r.Status, r.DaysLeft)
	}
}

func TestResolve_TrialEndExactlyNowIsExpired(t *testing.T) {
	now := time.Now().UTC()
	d := &Device{ID: "k", TrialEnd: &now}
	r := Resolve(d, now)
	if r.Status != StatusExpired {
		t.Errorf("Status = %q, want expired at the exact boundary", r.Status)
	}
	if !r.NeedsActivation {
		t.Error("expired device needs activation")
	}
}

func TestResolve_NoTrialEverGranted(t *testing.T) {
	d := &Device{ID: "k"}
	r := Resolve(d, time.Now())
	if r.Status != StatusUnregistered {
		t.Errorf("Status = %q, want unregistered", r.Status)
	}
}

// Resolve must be total: spot-check that every row shape lands in exactly one
// of the four states.
func TestResolve_Total(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	rows := []*Device{
		nil,
		{ID: "a"},
		{ID: "b", IsLifetime: true},
		{ID: "c", TrialEnd: &future},
		{ID: "d", TrialEnd: &past},
		{ID: "e", IsLifetime: true, TrialEnd: &future},
	}
	valid := map[Status]bool{StatusUnregistered: true, StatusTrial: true, StatusActive: true, StatusExpired: true}
	for i, d := range rows {
		r := Resolve(d, now)
		if !valid[r.Status] {
			t.Errorf("row %d: unexpected status %q", i, r.Status)
		}
	}
}
