package coord

import (
	"fmt"
	"time"
)

type ElectorTransition struct {
	From Role
	To   Role
	Term MasterTerm
}

func (t *ElectorTransition) String() string {
	return fmt.Sprintf("%s -> %s %v", t.From, t.To, t.Term)
}

// Elector decides which node is master. There is no vote: when a master has
// to be chosen, every node picks the live node with the lowest identifier.
// Membership being shared by all nodes, they all reach the same decision
// without exchanging messages. Epochs only serve to detect stale masters.
type Elector struct {
	Log Logger

	localId NodeId

	role         Role
	term         MasterTerm
	highestEpoch int64

	// Armed while we are slave without a live master
	discovery Timeout
}

func NewElector(localId NodeId, discoveryWindow time.Duration, highestEpoch int64, logger Logger) *Elector {
	if logger == nil {
		logger = NopLogger{}
	}

	return &Elector{
		Log: logger,

		localId: localId,

		role:         RoleSlave,
		term:         MasterTerm{Epoch: highestEpoch},
		highestEpoch: highestEpoch,

		discovery: NewTimeout(discoveryWindow),
	}
}

func (e *Elector) Start(now time.Time) {
	e.discovery.Start(now)
}

func (e *Elector) Role() Role {
	return e.role
}

func (e *Elector) IsMaster() bool {
	return e.role == RoleMaster
}

// Term returns the term the node follows, or leads if it is master.
func (e *Elector) Term() MasterTerm {
	return e.term
}

func (e *Elector) HighestEpoch() int64 {
	return e.highestEpoch
}

// OnTerm processes the term advertised in the heartbeat of another node.
func (e *Elector) OnTerm(term MasterTerm, now time.Time) *ElectorTransition {
	e.highestEpoch = max(e.highestEpoch, term.Epoch)

	if term.MasterId == "" || term.MasterId == e.localId {
		return nil
	}

	if term == e.term {
		return nil
	}

	adopt := false

	switch {
	case term.Epoch > e.term.Epoch:
		adopt = true

	case term.Epoch == e.term.Epoch:
		// Two nodes asserted themselves for the same epoch on both sides
		// of a partition; the lowest id keeps it.
		adopt = e.term.MasterId == "" ||
			CompareNodeIds(term.MasterId, e.term.MasterId) < 0
	}

	if !adopt {
		return nil
	}

	previousRole := e.role

	if previousRole == RoleMaster {
		e.Log.Info("stale master: yielding to %v (own term %v)", term, e.term)
	} else {
		e.Log.Info("following master %s for epoch %d", term.MasterId,
			term.Epoch)
	}

	e.role = RoleSlave
	e.term = term
	e.discovery.Stop()

	return &ElectorTransition{From: previousRole, To: RoleSlave, Term: term}
}

// OnPeerLost reacts to the loss of a peer; alive contains the remaining live
// nodes, including the local node.
func (e *Elector) OnPeerLost(id NodeId, alive []NodeId, now time.Time) *ElectorTransition {
	if e.role == RoleMaster || id != e.term.MasterId {
		return nil
	}

	e.Log.Info("master %s lost", id)

	return e.runCandidacy(alive, now)
}

// Tick starts a candidacy when no live master has been known for a whole
// discovery window, at startup or while waiting for an elected node to
// assert itself.
//
// A master which learnt of an epoch higher than its own without ever seeing
// the master of that epoch leaves its stale term: it asserts itself again
// for a new epoch if it is still the winner, and steps down otherwise.
func (e *Elector) Tick(alive []NodeId, now time.Time) *ElectorTransition {
	if e.role == RoleMaster {
		if e.highestEpoch > e.term.Epoch {
			return e.leaveStaleTerm(alive, now)
		}

		return nil
	}

	if e.term.MasterId != "" && containsNodeId(alive, e.term.MasterId) {
		e.discovery.Stop()
		return nil
	}

	if !e.discovery.Active() {
		e.discovery.Start(now)
		return nil
	}

	if !e.discovery.Expired(now) {
		return nil
	}

	if e.term.MasterId == "" {
		e.Log.Debug(1, "no master after discovery window")
	} else {
		e.Log.Info("master %s never announced itself", e.term.MasterId)
	}

	return e.runCandidacy(alive, now)
}

// Winner returns the node which must become master for a set of live nodes.
func Winner(alive []NodeId) NodeId {
	var winner NodeId

	for i, id := range alive {
		if i == 0 || CompareNodeIds(id, winner) < 0 {
			winner = id
		}
	}

	return winner
}

func (e *Elector) runCandidacy(alive []NodeId, now time.Time) *ElectorTransition {
	previousRole := e.role
	e.role = RoleCandidate

	winner := Winner(alive)
	if winner == "" {
		winner = e.localId
	}

	if winner == e.localId {
		e.highestEpoch++

		e.role = RoleMaster
		e.term = MasterTerm{MasterId: e.localId, Epoch: e.highestEpoch}
		e.discovery.Stop()

		e.Log.Info("becoming master for epoch %d", e.term.Epoch)

		return &ElectorTransition{From: previousRole, To: RoleMaster,
			Term: e.term}
	}

	e.Log.Debug(1, "expecting node %s to become master", winner)

	e.role = RoleSlave
	e.term = MasterTerm{Epoch: e.term.Epoch}
	e.discovery.Start(now)

	return nil
}

func (e *Elector) leaveStaleTerm(alive []NodeId, now time.Time) *ElectorTransition {
	if Winner(alive) == e.localId {
		e.highestEpoch++
		e.term = MasterTerm{MasterId: e.localId, Epoch: e.highestEpoch}

		e.Log.Info("stale master: asserting mastership again for epoch %d",
			e.term.Epoch)

		return &ElectorTransition{From: RoleMaster, To: RoleMaster,
			Term: e.term}
	}

	e.Log.Info("stale master: stepping down (highest epoch %d)",
		e.highestEpoch)

	e.role = RoleSlave
	e.term = MasterTerm{Epoch: e.highestEpoch}
	e.discovery.Start(now)

	return &ElectorTransition{From: RoleMaster, To: RoleSlave, Term: e.term}
}

func containsNodeId(ids []NodeId, id NodeId) bool {
	for _, id2 := range ids {
		if id2 == id {
			return true
		}
	}

	return false
}
