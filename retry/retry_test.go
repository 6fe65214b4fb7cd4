package retry

import (
	"testing"
	"time"

	"github.com/fxsml/busroute"
	"github.com/fxsml/busroute/envelope"
)

func TestPolicy_RetryStamps(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		mode   busroute.Mode
		want   []envelope.Stamp
	}{
		{
			name:   "defaults",
			policy: Policy{},
			mode:   busroute.Async,
			want: []envelope.Stamp{envelope.RetryStamp{
				MaxAttempts: 3,
				Delay:       time.Second,
				Multiplier:  1,
			}},
		},
		{
			name:   "exponential",
			policy: Exponential(5, 100*time.Millisecond, 2, time.Second),
			mode:   busroute.Sync,
			want: []envelope.Stamp{envelope.RetryStamp{
				MaxAttempts: 5,
				Delay:       100 * time.Millisecond,
				Multiplier:  2,
				MaxDelay:    time.Second,
			}},
		},
		{
			name:   "async only skips sync dispatch",
			policy: Policy{AsyncOnly: true},
			mode:   busroute.Sync,
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.policy.RetryStamps(nil, tt.mode)
			if len(got) != len(tt.want) {
				t.Fatalf("RetryStamps() returned %d stamps, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("RetryStamps()[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestCombine(t *testing.T) {
	combined := Combine(Constant(2, time.Millisecond), Policy{AsyncOnly: true}, Constant(4, time.Millisecond))

	if got := len(combined.RetryStamps(nil, busroute.Async)); got != 3 {
		t.Errorf("Combine() async stamps = %d, want 3", got)
	}
	if got := len(combined.RetryStamps(nil, busroute.Sync)); got != 2 {
		t.Errorf("Combine() sync stamps = %d, want 2", got)
	}
}

func TestExponentialBackoff(t *testing.T) {
	backoff := ExponentialBackoff(100*time.Millisecond, 2, 500*time.Millisecond, 0)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 500 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := backoff(tt.attempt); got != tt.want {
			t.Errorf("backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestBackoff_Jitter(t *testing.T) {
	backoff := Backoff(envelope.RetryStamp{Delay: 100 * time.Millisecond, Multiplier: 1, Jitter: 0.2})

	for i := 0; i < 100; i++ {
		d := backoff(1)
		if d < 80*time.Millisecond || d > 120*time.Millisecond {
			t.Fatalf("backoff(1) = %v, want within ±20%% of 100ms", d)
		}
	}
}
