package job

import "testing"

func TestDeriveProgress(t *testing.T) {
	cases := []struct {
		name   string
		counts StatusCounts
		want   Progress
	}{
		{
			name:   "all succeeded is completed",
			counts: StatusCounts{Succeeded: 3},
			want:   Progress{Total: 3, Completed: 3, Percentage: 100, Status: StatusCompleted},
		},
		{
			name:   "mixed terminal is completed",
			counts: StatusCounts{Succeeded: 2, Failed: 1},
			want:   Progress{Total: 3, Completed: 3, Percentage: 100, Status: StatusCompleted},
		},
		{
			name:   "all queued is pending",
			counts: StatusCounts{Queued: 5},
			want:   Progress{Total: 5, Completed: 0, Percentage: 0, Status: StatusPending},
		},
		{
			name:   "partial progress is running",
			counts: StatusCounts{Queued: 1, Processing: 1, Succeeded: 1},
			want:   Progress{Total: 3, Completed: 1, Percentage: 33, Status: StatusRunning},
		},
		{
			name:   "no objects is running with zero percentage",
			counts: StatusCounts{},
			want:   Progress{Total: 0, Completed: 0, Percentage: 0, Status: StatusRunning},
		},
		{
			name:   "rounds to nearest percent",
			counts: StatusCounts{Succeeded: 2, Processing: 1},
			want:   Progress{Total: 3, Completed: 2, Percentage: 67, Status: StatusRunning},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveProgress(tc.counts)
			if got != tc.want {
				t.Fatalf("DeriveProgress(%+v) = %+v, want %+v", tc.counts, got, tc.want)
			}
		})
	}
}

func TestObjectStatusTerminalValues(t *testing.T) {
	for _, s := range []ObjectStatus{StatusSucceeded, StatusFailed} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []ObjectStatus{StatusQueued, StatusProcessing} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}
