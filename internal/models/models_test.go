package models

import "testing"

func TestJobStatusTerminal(t *testing.T) {
	cases := []struct {
		status   JobStatus
		terminal bool
	}{
		{JobStatusPending, false},
		{JobStatusProcessing, false},
		{JobStatusDone, true},
		{JobStatusError, true},
	}
	for _, tc := range cases {
		if got := tc.status.Terminal(); got != tc.terminal {
			t.Errorf("%s.Terminal() = %v, want %v", tc.status, got, tc.terminal)
		}
		// A status is either active or terminal, never both or neither.
		if tc.status.Active() == tc.terminal {
			t.Errorf("%s: Active() and Terminal() overlap", tc.status)
		}
	}
}
