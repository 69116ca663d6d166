package handlers

import (
	"testing"
	"time"
)

func TestCanTransitionControl(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{"pending", "in_production", true},
		{"pending", "cancelled", true},
		{"in_production", "delivered", true},
		{"in_production", "cancelled", true},
		{"delivered", "invoiced", true},
		{"delivered", "cancelled", true},
		{"invoiced", "paid", true},
		{"invoiced", "cancelled", true},
		{"pending", "delivered", false},
		{"pending", "paid", false},
		{"in_production", "invoiced", false},
		{"delivered", "paid", false},
		{"paid", "cancelled", false},
		{"paid", "pending", false},
		{"cancelled", "pending", false},
		{"cancelled", "in_production", false},
		{"invoiced", "delivered", false},
		{"bogus", "paid", false},
	}

	for _, tc := range cases {
		if got := CanTransitionControl(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransitionControl(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestControlOrdinal(t *testing.T) {
	cases := []struct {
		status string
		want   int
	}{
		{"pending", 0},
		{"in_production", 1},
		{"delivered", 2},
		{"invoiced", 3},
		{"paid", 4},
		{"cancelled", -1},
		{"unknown", -1},
	}
	for _, tc := range cases {
		if got := ControlOrdinal(tc.status); got != tc.want {
			t.Errorf("ControlOrdinal(%q) = %d, want %d", tc.status, got, tc.want)
		}
	}
}

func TestIsControlOverdue(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -3)
	future := now.AddDate(0, 0, 3)

	if !IsControlOverdue("pending", &past, now) {
		t.Error("pending control past its promise date should be overdue")
	}
	if !IsControlOverdue("in_production", &past, now) {
		t.Error("in_production control past its promise date should be overdue")
	}
	if IsControlOverdue("pending", &future, now) {
		t.Error("control with a future promise date should not be overdue")
	}
	if IsControlOverdue("delivered", &past, now) {
		t.Error("delivered control is never overdue")
	}
	if IsControlOverdue("paid", &past, now) {
		t.Error("paid control is never overdue")
	}
	if IsControlOverdue("cancelled", &past, now) {
		t.Error("cancelled control is never overdue")
	}
	if IsControlOverdue("pending", nil, now) {
		t.Error("control without a promise date cannot be overdue")
	}
}
