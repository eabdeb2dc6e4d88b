package coord

import (
	"context"
	"fmt"
)

type DirectiveKind string

const (
	DirectiveAssign   DirectiveKind = "assign"
	DirectiveWithdraw DirectiveKind = "withdraw"
)

// Directive is a decision of the assigner which must be sent to a node over
// the reliable channel.
type Directive struct {
	Kind    DirectiveKind
	Target  NodeId
	Request HallRequest
	Stamp   Stamp
}

func (d Directive) String() string {
	return fmt.Sprintf("%s %v to %s @%v", d.Kind, d.Request, d.Target, d.Stamp)
}

type dispatch struct {
	node  NodeId
	stamp Stamp
}

type AssignerCfg struct {
	NbFloors int
	CostFunc CostFunc
	Logger   Logger
}

// Assigner runs on the master only. It calls the cost function and turns its
// result into assignments and withdrawals, remembering what was dispatched to
// which node. The optimization itself belongs to the cost function.
type Assigner struct {
	Cfg AssignerCfg
	Log Logger

	epoch int64
	seq   uint64

	dispatches map[HallRequest]dispatch

	dirty bool
}

func NewAssigner(cfg AssignerCfg) *Assigner {
	if cfg.Logger == nil {
		cfg.Logger = NopLogger{}
	}

	return &Assigner{
		Cfg: cfg,
		Log: cfg.Logger,

		dispatches: make(map[HallRequest]dispatch),
	}
}

// Reset starts a new mastership. Dispatches of previous terms are forgotten;
// the world view tells where requests currently are.
func (a *Assigner) Reset(epoch int64) {
	a.epoch = epoch
	a.seq = 0
	a.dispatches = make(map[HallRequest]dispatch)
	a.dirty = true
}

func (a *Assigner) Epoch() int64 {
	return a.epoch
}

func (a *Assigner) Invalidate() {
	a.dirty = true
}

func (a *Assigner) Dirty() bool {
	return a.dirty
}

// Forget drops the dispatches to a node, for example when the node was reaped
// or when the messages carrying them were dropped.
func (a *Assigner) Forget(id NodeId) {
	for r, d := range a.dispatches {
		if d.node == id {
			delete(a.dispatches, r)
		}
	}

	a.dirty = true
}

// ForgetRequest drops the dispatch of a request to a node.
func (a *Assigner) ForgetRequest(r HallRequest, id NodeId) {
	if d, found := a.dispatches[r]; found && d.node == id {
		delete(a.dispatches, r)
		a.dirty = true
	}
}

// Prepare builds the input of the cost function. It returns nil if there is
// nothing to assign.
func (a *Assigner) Prepare(view *WorldView, alive []NodeId) *CostInput {
	a.dirty = false

	outstanding := view.Outstanding()
	if len(outstanding) == 0 {
		a.dispatches = make(map[HallRequest]dispatch)
		return nil
	}

	input := CostInput{
		HallRequests: make([][2]bool, a.Cfg.NbFloors),
		States:       make(map[NodeId]CostState),
	}

	for _, r := range outstanding {
		if r.Floor < 0 || r.Floor >= a.Cfg.NbFloors {
			a.Log.Error("ignoring hall request %v outside of the %d floors",
				r, a.Cfg.NbFloors)
			continue
		}

		input.HallRequests[r.Floor][directionIndex(r.Direction)] = true
	}

	for _, id := range alive {
		state, found := view.Nodes[id]
		if !found {
			continue
		}

		floor := min(max(state.Floor, 0), a.Cfg.NbFloors-1)

		input.States[id] = CostState{
			Behaviour:   state.Behaviour,
			Floor:       floor,
			Direction:   state.Direction,
			CabRequests: state.CabRequests(a.Cfg.NbFloors),
		}
	}

	if len(input.States) == 0 {
		return nil
	}

	return &input
}

// Apply diffs the output of the cost function against current dispatches and
// returns the directives to send, in floor order.
func (a *Assigner) Apply(view *WorldView, alive []NodeId, input *CostInput, output CostOutput) ([]Directive, error) {
	if err := output.Validate(input); err != nil {
		a.dirty = true
		return nil, &AssignerFunctionError{Err: err}
	}

	outstanding := view.Outstanding()

	isOutstanding := make(map[HallRequest]bool)
	for _, r := range outstanding {
		isOutstanding[r] = true
	}

	for r := range a.dispatches {
		if !isOutstanding[r] {
			delete(a.dispatches, r)
		}
	}

	ids := make([]NodeId, 0, len(output))
	for id := range output {
		ids = append(ids, id)
	}
	SortNodeIds(ids)

	var directives []Directive

	for _, r := range outstanding {
		if r.Floor < 0 || r.Floor >= a.Cfg.NbFloors {
			continue
		}

		var owner NodeId
		for _, id := range ids {
			if output[id][r.Floor][directionIndex(r.Direction)] {
				owner = id
				break
			}
		}

		if owner == "" {
			continue
		}

		current, currentStamp := a.currentOwner(view, alive, r)

		if current == owner {
			a.dispatches[r] = dispatch{node: owner, stamp: currentStamp}
			continue
		}

		if current != "" && taskStarted(view, current, r) {
			a.Log.Debug(1, "keeping started request %v on %s", r, current)
			a.dispatches[r] = dispatch{node: current, stamp: currentStamp}
			continue
		}

		a.seq++
		stamp := Stamp{Epoch: a.epoch, Seq: a.seq}

		if current != "" {
			directives = append(directives, Directive{
				Kind:    DirectiveWithdraw,
				Target:  current,
				Request: r,
				Stamp:   stamp,
			})
		}

		directives = append(directives, Directive{
			Kind:    DirectiveAssign,
			Target:  owner,
			Request: r,
			Stamp:   stamp,
		})

		a.dispatches[r] = dispatch{node: owner, stamp: stamp}
	}

	return directives, nil
}

// Run prepares the input, calls the cost function and applies its output. On
// failure the previous assignment is kept and the assigner stays dirty so
// that the next trigger retries.
func (a *Assigner) Run(ctx context.Context, view *WorldView, alive []NodeId) ([]Directive, error) {
	input := a.Prepare(view, alive)
	if input == nil {
		return nil, nil
	}

	output, err := a.Cfg.CostFunc(ctx, input)
	if err != nil {
		a.dirty = true
		return nil, &AssignerFunctionError{Err: err}
	}

	return a.Apply(view, alive, input, output)
}

func (a *Assigner) currentOwner(view *WorldView, alive []NodeId, r HallRequest) (NodeId, Stamp) {
	if d, found := a.dispatches[r]; found && containsNodeId(alive, d.node) {
		return d.node, d.stamp
	}

	owner, found := view.Placement(r)
	if !found || !containsNodeId(alive, owner) {
		return "", Stamp{}
	}

	state := view.Nodes[owner]
	if idx := state.FindTask(HallTask(r, Stamp{})); idx >= 0 {
		return owner, state.Tasks[idx].Stamp
	}

	return owner, Stamp{}
}

func taskStarted(view *WorldView, id NodeId, r HallRequest) bool {
	state, found := view.Nodes[id]
	if !found {
		return false
	}

	idx := state.FindTask(HallTask(r, Stamp{}))
	return idx >= 0 && state.Tasks[idx].Started
}

func directionIndex(d HallDirection) int {
	if d == HallDirectionDown {
		return 1
	}

	return 0
}
