package coord

import (
	"testing"
	"time"
)

func TestPeerMonitor(t *testing.T) {
	now := time.Unix(1000, 0)
	timeout := 200 * time.Millisecond

	m := NewPeerMonitor("1", timeout, nil)

	if m.Observe("1", now) {
		t.Errorf("local node reported as joined")
	}

	if !m.Observe("2", now) {
		t.Errorf("node 2 not reported as joined")
	}
	if !m.Observe("3", now) {
		t.Errorf("node 3 not reported as joined")
	}
	if m.Observe("2", now.Add(50*time.Millisecond)) {
		t.Errorf("node 2 reported as joined twice")
	}

	alive := m.Alive()
	if len(alive) != 3 || alive[0] != "1" || alive[1] != "2" || alive[2] != "3" {
		t.Errorf("unexpected live nodes %v", alive)
	}

	if lost := m.Check(now.Add(150 * time.Millisecond)); len(lost) != 0 {
		t.Errorf("unexpected lost nodes %v", lost)
	}

	lost := m.Check(now.Add(210 * time.Millisecond))
	if len(lost) != 1 || lost[0] != "3" {
		t.Errorf("unexpected lost nodes %v", lost)
	}

	if m.IsAlive("3") {
		t.Errorf("node 3 still alive")
	}

	// A lost node coming back is a new join.
	if !m.Observe("3", now.Add(300*time.Millisecond)) {
		t.Errorf("node 3 not reported as joined again")
	}

	lost = m.Check(now.Add(time.Second))
	if len(lost) != 2 || lost[0] != "2" || lost[1] != "3" {
		t.Errorf("unexpected lost nodes %v", lost)
	}
}
