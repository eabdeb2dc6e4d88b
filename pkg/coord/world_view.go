package coord

import (
	"encoding/json"
	"fmt"

	"github.com/tiendc/go-deepcopy"
)

// RequestSet maps hall requests to their press and completion clocks. It is
// encoded as a sorted JSON array since JSON objects cannot have structured
// keys.
type RequestSet map[HallRequest]RequestClock

type requestSetEntry struct {
	Floor     int           `json:"floor"`
	Direction HallDirection `json:"direction"`
	Pressed   uint64        `json:"pressed"`
	Served    uint64        `json:"served"`
}

func (rs RequestSet) MarshalJSON() ([]byte, error) {
	requests := make([]HallRequest, 0, len(rs))
	for r := range rs {
		requests = append(requests, r)
	}
	SortHallRequests(requests)

	entries := make([]requestSetEntry, len(requests))
	for i, r := range requests {
		clock := rs[r]

		entries[i] = requestSetEntry{
			Floor:     r.Floor,
			Direction: r.Direction,
			Pressed:   clock.Pressed,
			Served:    clock.Served,
		}
	}

	return json.Marshal(entries)
}

func (rs *RequestSet) UnmarshalJSON(data []byte) error {
	var entries []requestSetEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}

	set := make(RequestSet, len(entries))
	for _, e := range entries {
		r := HallRequest{Floor: e.Floor, Direction: e.Direction}
		set[r] = RequestClock{Pressed: e.Pressed, Served: e.Served}
	}

	*rs = set
	return nil
}

// WorldView is the replicated state shared by all nodes.
type WorldView struct {
	Clock      uint64                `json:"clock"`
	Nodes      map[NodeId]*NodeState `json:"nodes"`
	Requests   RequestSet            `json:"requests"`
	Unassigned []HallRequest         `json:"unassigned"`
}

func NewWorldView() *WorldView {
	return &WorldView{
		Nodes:      make(map[NodeId]*NodeState),
		Requests:   make(RequestSet),
		Unassigned: []HallRequest{},
	}
}

// Placement returns the live node owning an outstanding hall request. The
// owner is the node holding the request with the highest assignment stamp,
// the lowest node id winning ties. A request without owner is unassigned.
func (v *WorldView) Placement(r HallRequest) (NodeId, bool) {
	var owner NodeId
	var ownerStamp Stamp
	found := false

	for id, state := range v.Nodes {
		for _, t := range state.Tasks {
			tr, ok := t.HallRequest()
			if !ok || tr != r {
				continue
			}

			if !found {
				owner, ownerStamp, found = id, t.Stamp, true
				continue
			}

			cmp := t.Stamp.Compare(ownerStamp)
			if cmp > 0 || (cmp == 0 && CompareNodeIds(id, owner) < 0) {
				owner, ownerStamp = id, t.Stamp
			}
		}
	}

	return owner, found
}

func (v *WorldView) Outstanding() []HallRequest {
	var requests []HallRequest

	for r, clock := range v.Requests {
		if clock.Outstanding() {
			requests = append(requests, r)
		}
	}

	SortHallRequests(requests)
	return requests
}

// AssignedTo returns the outstanding hall requests owned by a node.
func (v *WorldView) AssignedTo(id NodeId) []HallRequest {
	var requests []HallRequest

	for _, r := range v.Outstanding() {
		if owner, found := v.Placement(r); found && owner == id {
			requests = append(requests, r)
		}
	}

	return requests
}

func (v *WorldView) NodeIds() []NodeId {
	ids := make([]NodeId, 0, len(v.Nodes))
	for id := range v.Nodes {
		ids = append(ids, id)
	}

	SortNodeIds(ids)
	return ids
}

func (v *WorldView) updateUnassigned() {
	unassigned := []HallRequest{}

	for _, r := range v.Outstanding() {
		if _, found := v.Placement(r); !found {
			unassigned = append(unassigned, r)
		}
	}

	v.Unassigned = unassigned
}

func (v *WorldView) mergeRequests(requests RequestSet) bool {
	changed := false

	for r, clock := range requests {
		current := v.Requests[r]
		merged := current

		merged.Pressed = max(merged.Pressed, clock.Pressed)
		merged.Served = max(merged.Served, clock.Served)

		if merged != current {
			v.Requests[r] = merged
			changed = true
		}
	}

	return changed
}

// WorldViewStore owns the world view of one node. All mutations go through
// it; the local node state is only modified by LocalUpdate, which is the only
// operation incrementing a version.
type WorldViewStore struct {
	Log Logger

	localId NodeId
	view    *WorldView
}

func NewWorldViewStore(localId NodeId, incarnation uint64, logger Logger) *WorldViewStore {
	if logger == nil {
		logger = NopLogger{}
	}

	view := NewWorldView()

	view.Nodes[localId] = &NodeState{
		Id:          localId,
		Incarnation: incarnation,
		Version:     1,
		Direction:   MotorDirectionStop,
		Behaviour:   BehaviourIdle,
		Tasks:       []Task{},
	}

	return &WorldViewStore{
		Log: logger,

		localId: localId,
		view:    view,
	}
}

// Restore loads the parts of a persisted world view which remain valid after
// a restart: the request register, the Lamport clock and the cab requests of
// the local node. States of other nodes are dropped, they will be learnt
// again from their announcements.
func (s *WorldViewStore) Restore(saved *WorldView) {
	if saved == nil {
		return
	}

	s.view.Clock = max(s.view.Clock, saved.Clock)
	s.view.mergeRequests(saved.Requests)

	if state, found := saved.Nodes[s.localId]; found {
		s.LocalUpdate(func(local *NodeState) {
			for _, t := range state.Tasks {
				if t.Kind == TaskKindCab && local.FindTask(t) == -1 {
					t.Started = false
					local.Tasks = append(local.Tasks, t)
				}
			}

			local.Floor = state.Floor
		})
	}

	s.view.updateUnassigned()
}

func (s *WorldViewStore) LocalId() NodeId {
	return s.localId
}

func (s *WorldViewStore) View() *WorldView {
	return s.view
}

func (s *WorldViewStore) Local() *NodeState {
	return s.view.Nodes[s.localId]
}

func (s *WorldViewStore) Node(id NodeId) (*NodeState, bool) {
	state, found := s.view.Nodes[id]
	return state, found
}

func (s *WorldViewStore) LocalUpdate(fn func(*NodeState)) {
	local := s.view.Nodes[s.localId]

	fn(local)
	local.Version++

	s.view.updateUnassigned()
}

// Merge applies the state of a remote node if it is strictly more recent than
// the one currently held, and returns whether it was applied.
func (s *WorldViewStore) Merge(remote NodeState) bool {
	if remote.Id == s.localId {
		return false
	}

	held, found := s.view.Nodes[remote.Id]
	if found && !remote.Newer(held) {
		return false
	}

	state := remote
	state.Tasks = append([]Task{}, remote.Tasks...)

	if found {
		state.LastHeartbeat = held.LastHeartbeat
	}

	s.view.Nodes[remote.Id] = &state

	s.view.updateUnassigned()

	s.Log.Debug(2, "merged state of node %s (incarnation %d, version %d)",
		remote.Id, remote.Incarnation, remote.Version)

	return true
}

// MergeRequests merges a remote request register and Lamport clock; it
// returns whether the set of outstanding requests changed.
func (s *WorldViewStore) MergeRequests(requests RequestSet, clock uint64) bool {
	s.Observe(clock)

	before := s.view.Outstanding()

	if !s.view.mergeRequests(requests) {
		return false
	}

	s.view.updateUnassigned()

	return !equalHallRequests(before, s.view.Outstanding())
}

// Observe advances the Lamport clock past a remote clock value.
func (s *WorldViewStore) Observe(clock uint64) {
	s.view.Clock = max(s.view.Clock, clock)
}

func (s *WorldViewStore) tick() uint64 {
	s.view.Clock++
	return s.view.Clock
}

// Press records a hall button press. Pressing an outstanding request is a
// no-op.
func (s *WorldViewStore) Press(r HallRequest) bool {
	clock := s.view.Requests[r]
	if clock.Outstanding() {
		return false
	}

	clock.Pressed = s.tick()
	s.view.Requests[r] = clock

	s.view.updateUnassigned()

	return true
}

// Serve records the completion of a hall request.
func (s *WorldViewStore) Serve(r HallRequest) bool {
	clock := s.view.Requests[r]
	if !clock.Outstanding() {
		return false
	}

	clock.Served = s.tick()
	s.view.Requests[r] = clock

	s.view.updateUnassigned()

	return true
}

func (s *WorldViewStore) RequestClock(r HallRequest) RequestClock {
	return s.view.Requests[r]
}

// Insert adds a node which was just discovered. It is a no-op if the node is
// already known.
func (s *WorldViewStore) Insert(id NodeId) bool {
	if _, found := s.view.Nodes[id]; found {
		return false
	}

	s.view.Nodes[id] = &NodeState{
		Id:        id,
		Direction: MotorDirectionStop,
		Behaviour: BehaviourIdle,
		Tasks:     []Task{},
	}

	s.view.updateUnassigned()

	return true
}

// Reap deletes the state of a lost node. Its hall requests go back to the
// unassigned set; they are returned.
func (s *WorldViewStore) Reap(id NodeId) []HallRequest {
	if id == s.localId {
		Panicf("cannot reap the local node")
	}

	if _, found := s.view.Nodes[id]; !found {
		return nil
	}

	assigned := s.view.AssignedTo(id)

	delete(s.view.Nodes, id)
	s.view.updateUnassigned()

	var released []HallRequest
	for _, r := range assigned {
		if _, found := s.view.Placement(r); !found {
			released = append(released, r)
		}
	}

	s.Log.Debug(1, "reaped node %s, %d hall requests released", id,
		len(released))

	return released
}

func (s *WorldViewStore) Unassigned() []HallRequest {
	return append([]HallRequest{}, s.view.Unassigned...)
}

func (s *WorldViewStore) Placement(r HallRequest) (NodeId, bool) {
	return s.view.Placement(r)
}

func (s *WorldViewStore) Outstanding() []HallRequest {
	return s.view.Outstanding()
}

func (s *WorldViewStore) Snapshot() *WorldView {
	var view WorldView

	if err := deepcopy.Copy(&view, s.view); err != nil {
		Panicf("cannot copy world view: %v", err)
	}

	return &view
}

// SerializeForBroadcast encodes the whole world view; it is the payload of
// announcements.
func (s *WorldViewStore) SerializeForBroadcast() ([]byte, error) {
	data, err := json.Marshal(s.view)
	if err != nil {
		return nil, fmt.Errorf("cannot encode world view: %w", err)
	}

	return data, nil
}

func equalHallRequests(rs1, rs2 []HallRequest) bool {
	if len(rs1) != len(rs2) {
		return false
	}

	for i := range rs1 {
		if rs1[i] != rs2[i] {
			return false
		}
	}

	return true
}
