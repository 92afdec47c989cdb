package state

import "testing"

func TestStatusTransitions(t *testing.T) {
	all := []Status{StatusIdle, StatusUploading, StatusProcessing, StatusComplete, StatusError}
	allowed := map[Status][]Status{
		StatusIdle:       {StatusUploading},
		StatusUploading:  {StatusProcessing, StatusError},
		StatusProcessing: {StatusComplete, StatusError},
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, ok := range allowed[from] {
				if ok == to {
					want = true
				}
			}
			if got := from.CanTransition(to); got != want {
				t.Errorf("%s -> %s: expected %v, got %v", from, to, want, got)
			}
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	tests := []struct {
		status   Status
		terminal bool
	}{
		{StatusIdle, false},
		{StatusUploading, false},
		{StatusProcessing, false},
		{StatusComplete, true},
		{StatusError, true},
		{Status("bogus"), false},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.terminal {
			t.Errorf("%s: expected terminal=%v, got %v", tt.status, tt.terminal, got)
		}
	}
}
