package coord

import (
	"os"
	"path"
	"testing"
)

func TestPersistentStore(t *testing.T) {
	filePath := path.Join(t.TempDir(), "node", "state.json")

	s := NewPersistentStore(filePath)

	var state PersistentState
	if err := s.Load(&state); err != nil {
		t.Fatalf("cannot load missing state: %v", err)
	}
	if state.Incarnation != 0 || state.WorldView != nil {
		t.Errorf("unexpected default state %#v", state)
	}

	view := NewWorldView()
	view.Clock = 12
	view.Requests[HallRequest{Floor: 1, Direction: HallDirectionUp}] =
		RequestClock{Pressed: 12}

	state = PersistentState{
		Incarnation: 3,
		Term:        MasterTerm{MasterId: "2", Epoch: 7},
		WorldView:   view,
	}

	if err := s.Save(state); err != nil {
		t.Fatalf("cannot save state: %v", err)
	}

	var state2 PersistentState
	if err := NewPersistentStore(filePath).Load(&state2); err != nil {
		t.Fatalf("cannot load state: %v", err)
	}

	if state2.Incarnation != 3 || state2.Term != state.Term {
		t.Errorf("unexpected state %#v", state2)
	}

	clock := state2.WorldView.Requests[HallRequest{Floor: 1, Direction: HallDirectionUp}]
	if state2.WorldView.Clock != 12 || clock.Pressed != 12 {
		t.Errorf("unexpected world view %#v", state2.WorldView)
	}

	if _, err := os.Stat(filePath + ".tmp"); err == nil {
		t.Errorf("temporary file left behind")
	}
}

func TestPersistentStoreCorruption(t *testing.T) {
	filePath := path.Join(t.TempDir(), "state.json")

	if err := os.WriteFile(filePath, []byte("{\"incarnation\":"), 0600); err != nil {
		t.Fatalf("cannot write file: %v", err)
	}

	var state PersistentState
	if err := NewPersistentStore(filePath).Load(&state); err == nil {
		t.Errorf("corrupted state was loaded")
	}
}
