package coord

import (
	"fmt"
	"strconv"
	"time"
)

type NodeId string

type NodeAddress string

// CompareNodeIds orders node identifiers numerically when both are unsigned
// integers and lexicographically otherwise. This is the total order used to
// elect masters and to break ownership ties.
func CompareNodeIds(id1, id2 NodeId) int {
	n1, err1 := strconv.ParseUint(string(id1), 10, 64)
	n2, err2 := strconv.ParseUint(string(id2), 10, 64)

	if err1 == nil && err2 == nil {
		switch {
		case n1 < n2:
			return -1
		case n1 > n2:
			return 1
		default:
			return 0
		}
	}

	switch {
	case id1 < id2:
		return -1
	case id1 > id2:
		return 1
	default:
		return 0
	}
}

type HallDirection string

const (
	HallDirectionUp   HallDirection = "up"
	HallDirectionDown HallDirection = "down"
)

type HallRequest struct {
	Floor     int           `json:"floor"`
	Direction HallDirection `json:"direction"`
}

func (r HallRequest) String() string {
	return fmt.Sprintf("%d/%s", r.Floor, r.Direction)
}

func CompareHallRequests(r1, r2 HallRequest) int {
	if r1.Floor != r2.Floor {
		if r1.Floor < r2.Floor {
			return -1
		}
		return 1
	}

	switch {
	case r1.Direction < r2.Direction:
		return 1 // "up" before "down"
	case r1.Direction > r2.Direction:
		return -1
	default:
		return 0
	}
}

type CabRequest struct {
	Floor int `json:"floor"`
}

type MotorDirection string

const (
	MotorDirectionUp   MotorDirection = "up"
	MotorDirectionDown MotorDirection = "down"
	MotorDirectionStop MotorDirection = "stop"
)

type Behaviour string

const (
	BehaviourIdle     Behaviour = "idle"
	BehaviourMoving   Behaviour = "moving"
	BehaviourDoorOpen Behaviour = "doorOpen"
)

// Stamp identifies one assignment decision of a master.
type Stamp struct {
	Epoch int64  `json:"epoch"`
	Seq   uint64 `json:"seq"`
}

func (s Stamp) Compare(s2 Stamp) int {
	switch {
	case s.Epoch < s2.Epoch:
		return -1
	case s.Epoch > s2.Epoch:
		return 1
	case s.Seq < s2.Seq:
		return -1
	case s.Seq > s2.Seq:
		return 1
	default:
		return 0
	}
}

func (s Stamp) String() string {
	return fmt.Sprintf("%d.%d", s.Epoch, s.Seq)
}

type TaskKind string

const (
	TaskKindHall TaskKind = "hall"
	TaskKindCab  TaskKind = "cab"
)

type Task struct {
	Kind      TaskKind      `json:"kind"`
	Floor     int           `json:"floor"`
	Direction HallDirection `json:"direction,omitempty"`
	Stamp     Stamp         `json:"stamp"`
	Started   bool          `json:"started,omitempty"`
}

func HallTask(r HallRequest, stamp Stamp) Task {
	return Task{
		Kind:      TaskKindHall,
		Floor:     r.Floor,
		Direction: r.Direction,
		Stamp:     stamp,
	}
}

func CabTask(r CabRequest) Task {
	return Task{
		Kind:  TaskKindCab,
		Floor: r.Floor,
	}
}

func (t Task) HallRequest() (HallRequest, bool) {
	if t.Kind != TaskKindHall {
		return HallRequest{}, false
	}

	return HallRequest{Floor: t.Floor, Direction: t.Direction}, true
}

func (t Task) SameRequest(t2 Task) bool {
	return t.Kind == t2.Kind && t.Floor == t2.Floor && t.Direction == t2.Direction
}

func (t Task) String() string {
	if t.Kind == TaskKindCab {
		return fmt.Sprintf("cab:%d", t.Floor)
	}

	return fmt.Sprintf("hall:%d/%s@%v", t.Floor, t.Direction, t.Stamp)
}

type NodeState struct {
	Id          NodeId      `json:"id"`
	Incarnation uint64      `json:"incarnation"`
	Version     uint64      `json:"version"`
	Address     NodeAddress `json:"address"`

	Floor     int            `json:"floor"`
	Direction MotorDirection `json:"direction"`
	DoorOpen  bool           `json:"doorOpen"`
	Behaviour Behaviour      `json:"behaviour"`

	Tasks []Task `json:"tasks"`

	// Local bookkeeping only
	LastHeartbeat time.Time `json:"-"`
}

// Newer reports whether the state is strictly more recent than s2 for the
// same node.
func (s *NodeState) Newer(s2 *NodeState) bool {
	if s.Incarnation != s2.Incarnation {
		return s.Incarnation > s2.Incarnation
	}

	return s.Version > s2.Version
}

func (s *NodeState) FindTask(t Task) int {
	for i, t2 := range s.Tasks {
		if t2.SameRequest(t) {
			return i
		}
	}

	return -1
}

func (s *NodeState) CabRequests(nbFloors int) []bool {
	requests := make([]bool, nbFloors)

	for _, t := range s.Tasks {
		if t.Kind == TaskKindCab && t.Floor >= 0 && t.Floor < nbFloors {
			requests[t.Floor] = true
		}
	}

	return requests
}

// RequestClock holds the Lamport clock values of the last press and the last
// completion of a hall request.
type RequestClock struct {
	Pressed uint64 `json:"pressed"`
	Served  uint64 `json:"served"`
}

func (c RequestClock) Outstanding() bool {
	return c.Pressed > c.Served
}

type MasterTerm struct {
	MasterId NodeId `json:"masterId"`
	Epoch    int64  `json:"epoch"`
}

func (t MasterTerm) String() string {
	if t.MasterId == "" {
		return fmt.Sprintf("{epoch %d, no master}", t.Epoch)
	}

	return fmt.Sprintf("{epoch %d, master %s}", t.Epoch, t.MasterId)
}

type Role string

const (
	RoleSlave     Role = "slave"
	RoleCandidate Role = "candidate"
	RoleMaster    Role = "master"
)

type PersistentState struct {
	Incarnation uint64     `json:"incarnation"`
	Term        MasterTerm `json:"term"`
	WorldView   *WorldView `json:"worldView,omitempty"`
}
