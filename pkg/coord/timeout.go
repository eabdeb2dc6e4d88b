package coord

import "time"

// Timeout is a deadline driven by the caller's clock. It does not own a
// goroutine or a runtime timer: the owner polls Expired on its own ticker,
// which keeps every timeout inside the goroutine owning the related state.
//
// A timeout created with NewBackoffTimeout doubles its duration every time
// Backoff is called, up to its maximum.
type Timeout struct {
	Initial time.Duration
	Max     time.Duration

	current  time.Duration
	deadline time.Time
}

func NewTimeout(d time.Duration) Timeout {
	return Timeout{Initial: d, Max: d}
}

func NewBackoffTimeout(initial, max time.Duration) Timeout {
	if max < initial {
		max = initial
	}

	return Timeout{Initial: initial, Max: max}
}

func (t *Timeout) Start(now time.Time) {
	t.current = t.Initial
	t.deadline = now.Add(t.current)
}

func (t *Timeout) Backoff(now time.Time) {
	if t.current == 0 {
		t.current = t.Initial
	} else {
		t.current = min(2*t.current, t.Max)
	}

	t.deadline = now.Add(t.current)
}

func (t *Timeout) Stop() {
	t.deadline = time.Time{}
}

func (t *Timeout) Active() bool {
	return !t.deadline.IsZero()
}

func (t *Timeout) Current() time.Duration {
	return t.current
}

func (t *Timeout) Deadline() time.Time {
	return t.deadline
}

func (t *Timeout) Expired(now time.Time) bool {
	return t.Active() && !now.Before(t.deadline)
}
