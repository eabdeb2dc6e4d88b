package coord

import (
	"testing"
	"time"
)

func TestTimeout(t *testing.T) {
	now := time.Unix(1000, 0)

	timeout := NewTimeout(100 * time.Millisecond)
	if timeout.Active() || timeout.Expired(now) {
		t.Fatalf("new timeout should be inactive")
	}

	timeout.Start(now)
	if timeout.Expired(now.Add(99 * time.Millisecond)) {
		t.Errorf("timeout expired too early")
	}
	if !timeout.Expired(now.Add(100 * time.Millisecond)) {
		t.Errorf("timeout did not expire")
	}

	timeout.Stop()
	if timeout.Expired(now.Add(time.Hour)) {
		t.Errorf("stopped timeout expired")
	}
}

func TestBackoffTimeout(t *testing.T) {
	now := time.Unix(1000, 0)

	timeout := NewBackoffTimeout(100*time.Millisecond, 350*time.Millisecond)
	timeout.Start(now)

	expected := []time.Duration{
		200 * time.Millisecond,
		350 * time.Millisecond,
		350 * time.Millisecond,
	}

	for i, d := range expected {
		timeout.Backoff(now)

		if timeout.Current() != d {
			t.Errorf("backoff %d: expected %v, got %v", i, d, timeout.Current())
		}

		if !timeout.Deadline().Equal(now.Add(d)) {
			t.Errorf("backoff %d: wrong deadline %v", i, timeout.Deadline())
		}
	}

	timeout.Start(now)
	if timeout.Current() != 100*time.Millisecond {
		t.Errorf("restart did not reset the backoff")
	}
}
