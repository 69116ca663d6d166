package handlers

import "testing"

func TestCanTransitionStage(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{"prospecting", "qualification", true},
		{"qualification", "proposal", true},
		{"proposal", "negotiation", true},
		{"negotiation", "closed_won", true},
		{"prospecting", "closed_lost", true},
		{"qualification", "closed_lost", true},
		{"proposal", "closed_lost", true},
		{"negotiation", "closed_lost", true},
		// one step back is allowed among open stages
		{"qualification", "prospecting", true},
		{"proposal", "qualification", true},
		{"negotiation", "proposal", true},
		// skipping forward is not
		{"prospecting", "proposal", false},
		{"prospecting", "negotiation", false},
		{"qualification", "negotiation", false},
		// only negotiation can close won
		{"prospecting", "closed_won", false},
		{"qualification", "closed_won", false},
		{"proposal", "closed_won", false},
		// closed stages are terminal
		{"closed_won", "prospecting", false},
		{"closed_won", "closed_lost", false},
		{"closed_lost", "negotiation", false},
		{"bogus", "qualification", false},
	}

	for _, tc := range cases {
		if got := CanTransitionStage(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransitionStage(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
