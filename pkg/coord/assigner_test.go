package coord

import (
	"context"
	"errors"
	"testing"
)

// fixedCostFunc assigns every hall request to a single node.
func fixedCostFunc(owner *NodeId, calls *int) CostFunc {
	return func(ctx context.Context, input *CostInput) (CostOutput, error) {
		*calls++

		output := make(CostOutput)
		for id := range input.States {
			rows := make([][]bool, len(input.HallRequests))
			for floor, hall := range input.HallRequests {
				rows[floor] = []bool{false, false, input.States[id].CabRequests[floor]}
				if id == *owner {
					rows[floor][0] = hall[0]
					rows[floor][1] = hall[1]
				}
			}

			output[id] = rows
		}

		return output, nil
	}
}

func newTestAssignerView(t *testing.T) *WorldViewStore {
	store := NewWorldViewStore("1", 1, nil)

	store.Merge(NodeState{Id: "2", Incarnation: 1, Version: 1,
		Behaviour: BehaviourIdle, Direction: MotorDirectionStop})
	store.Merge(NodeState{Id: "3", Incarnation: 1, Version: 1, Floor: 3,
		Behaviour: BehaviourIdle, Direction: MotorDirectionStop,
		Tasks: []Task{CabTask(CabRequest{Floor: 1})}})

	return store
}

func TestAssignerDiff(t *testing.T) {
	ctx := context.Background()
	store := newTestAssignerView(t)
	alive := []NodeId{"1", "2", "3"}

	owner := NodeId("3")
	calls := 0

	a := NewAssigner(AssignerCfg{
		NbFloors: 4,
		CostFunc: fixedCostFunc(&owner, &calls),
	})
	a.Reset(2)

	// Nothing to assign: the cost function is not called
	directives, err := a.Run(ctx, store.View(), alive)
	if err != nil || len(directives) != 0 || calls != 0 {
		t.Fatalf("unexpected result %v %v (%d calls)", directives, err, calls)
	}

	r := HallRequest{Floor: 2, Direction: HallDirectionUp}
	store.Press(r)

	directives, err = a.Run(ctx, store.View(), alive)
	if err != nil {
		t.Fatalf("cannot run assigner: %v", err)
	}

	expected := Directive{Kind: DirectiveAssign, Target: "3", Request: r,
		Stamp: Stamp{Epoch: 2, Seq: 1}}
	if len(directives) != 1 || directives[0] != expected {
		t.Fatalf("unexpected directives %v", directives)
	}

	// Same result: nothing to send, even before node 3 reports the task
	directives, _ = a.Run(ctx, store.View(), alive)
	if len(directives) != 0 {
		t.Errorf("unexpected directives %v", directives)
	}

	store.Merge(NodeState{Id: "3", Incarnation: 1, Version: 2, Floor: 3,
		Tasks: []Task{HallTask(r, Stamp{Epoch: 2, Seq: 1})}})

	// The cost function moves the request to node 2
	owner = "2"

	directives, _ = a.Run(ctx, store.View(), alive)
	if len(directives) != 2 {
		t.Fatalf("unexpected directives %v", directives)
	}

	if directives[0].Kind != DirectiveWithdraw || directives[0].Target != "3" {
		t.Errorf("unexpected withdrawal %v", directives[0])
	}
	if directives[1].Kind != DirectiveAssign || directives[1].Target != "2" {
		t.Errorf("unexpected assignment %v", directives[1])
	}
	if directives[1].Stamp != (Stamp{Epoch: 2, Seq: 2}) {
		t.Errorf("unexpected stamp %v", directives[1].Stamp)
	}
}

func TestAssignerStartedTask(t *testing.T) {
	ctx := context.Background()
	store := newTestAssignerView(t)
	alive := []NodeId{"1", "2", "3"}

	r := HallRequest{Floor: 1, Direction: HallDirectionDown}
	store.Press(r)

	task := HallTask(r, Stamp{Epoch: 1, Seq: 4})
	task.Started = true

	store.Merge(NodeState{Id: "3", Incarnation: 1, Version: 2,
		Tasks: []Task{task}})

	owner := NodeId("2")
	calls := 0

	a := NewAssigner(AssignerCfg{
		NbFloors: 4,
		CostFunc: fixedCostFunc(&owner, &calls),
	})
	a.Reset(2)

	directives, err := a.Run(ctx, store.View(), alive)
	if err != nil {
		t.Fatalf("cannot run assigner: %v", err)
	}

	if len(directives) != 0 {
		t.Errorf("started task was moved: %v", directives)
	}
}

func TestAssignerReap(t *testing.T) {
	ctx := context.Background()
	store := newTestAssignerView(t)

	r := HallRequest{Floor: 0, Direction: HallDirectionUp}
	store.Press(r)
	store.Merge(NodeState{Id: "2", Incarnation: 1, Version: 2,
		Tasks: []Task{HallTask(r, Stamp{Epoch: 1, Seq: 1})}})

	owner := NodeId("2")
	calls := 0

	a := NewAssigner(AssignerCfg{
		NbFloors: 4,
		CostFunc: fixedCostFunc(&owner, &calls),
	})
	a.Reset(1)

	directives, _ := a.Run(ctx, store.View(), []NodeId{"1", "2", "3"})
	if len(directives) != 0 {
		t.Fatalf("unexpected directives %v", directives)
	}

	// Node 2 dies: its request returns to the unassigned set and goes to a
	// surviving node on the next cycle.
	store.Reap("2")
	a.Forget("2")

	if !a.Dirty() {
		t.Errorf("assigner not dirty after a reap")
	}

	owner = "3"

	directives, _ = a.Run(ctx, store.View(), []NodeId{"1", "3"})
	if len(directives) != 1 || directives[0].Kind != DirectiveAssign ||
		directives[0].Target != "3" || directives[0].Request != r {
		t.Errorf("unexpected directives %v", directives)
	}
}

func TestAssignerFailure(t *testing.T) {
	ctx := context.Background()
	store := newTestAssignerView(t)
	alive := []NodeId{"1", "2", "3"}

	store.Press(HallRequest{Floor: 3, Direction: HallDirectionDown})

	a := NewAssigner(AssignerCfg{
		NbFloors: 4,
		CostFunc: func(context.Context, *CostInput) (CostOutput, error) {
			return nil, errors.New("exit status 1")
		},
	})
	a.Reset(1)

	_, err := a.Run(ctx, store.View(), alive)

	var assignerErr *AssignerFunctionError
	if !errors.As(err, &assignerErr) {
		t.Fatalf("unexpected error %v", err)
	}

	if !a.Dirty() {
		t.Errorf("assigner not dirty after a failure")
	}

	// Malformed output
	a.Cfg.CostFunc = func(context.Context, *CostInput) (CostOutput, error) {
		return CostOutput{"2": [][]bool{{true, false}}}, nil
	}

	_, err = a.Run(ctx, store.View(), alive)
	if !errors.As(err, &assignerErr) {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestAssignerInput(t *testing.T) {
	store := newTestAssignerView(t)

	store.Press(HallRequest{Floor: 1, Direction: HallDirectionDown})
	store.Press(HallRequest{Floor: 3, Direction: HallDirectionDown})

	a := NewAssigner(AssignerCfg{NbFloors: 4})

	input := a.Prepare(store.View(), []NodeId{"1", "3"})
	if input == nil {
		t.Fatalf("missing input")
	}

	expected := [][2]bool{{false, false}, {false, true}, {false, false},
		{false, true}}
	for floor := range expected {
		if input.HallRequests[floor] != expected[floor] {
			t.Errorf("floor %d: unexpected hall requests %v", floor,
				input.HallRequests[floor])
		}
	}

	if len(input.States) != 2 {
		t.Fatalf("unexpected states %v", input.States)
	}

	state := input.States["3"]
	if state.Floor != 3 || !state.CabRequests[1] || state.CabRequests[0] {
		t.Errorf("unexpected state %v", state)
	}
}
