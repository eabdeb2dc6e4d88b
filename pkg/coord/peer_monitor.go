package coord

import "time"

type peerEntry struct {
	lastHeartbeat time.Time
	timeout       Timeout
}

// PeerMonitor tracks the liveness of remote nodes from their heartbeats. It
// never blocks and never sends anything itself: the owner feeds it received
// heartbeats and calls Check periodically.
type PeerMonitor struct {
	Log Logger

	localId NodeId
	timeout time.Duration

	peers map[NodeId]*peerEntry
}

func NewPeerMonitor(localId NodeId, timeout time.Duration, logger Logger) *PeerMonitor {
	if logger == nil {
		logger = NopLogger{}
	}

	return &PeerMonitor{
		Log: logger,

		localId: localId,
		timeout: timeout,

		peers: make(map[NodeId]*peerEntry),
	}
}

// Observe records a heartbeat and returns true if the node was unknown or
// previously lost.
func (m *PeerMonitor) Observe(id NodeId, now time.Time) bool {
	if id == m.localId {
		return false
	}

	peer, found := m.peers[id]
	if !found {
		peer = &peerEntry{timeout: NewTimeout(m.timeout)}
		m.peers[id] = peer

		m.Log.Info("peer %s joined", id)
	}

	peer.lastHeartbeat = now
	peer.timeout.Start(now)

	return !found
}

// Check returns the nodes whose last heartbeat is older than the timeout and
// forgets them.
func (m *PeerMonitor) Check(now time.Time) []NodeId {
	var lost []NodeId

	for id, peer := range m.peers {
		if peer.timeout.Expired(now) {
			lost = append(lost, id)
		}
	}

	SortNodeIds(lost)

	for _, id := range lost {
		m.Log.Info("peer %s lost (last heartbeat %v ago)", id,
			now.Sub(m.peers[id].lastHeartbeat))

		delete(m.peers, id)
	}

	return lost
}

func (m *PeerMonitor) IsAlive(id NodeId) bool {
	if id == m.localId {
		return true
	}

	_, found := m.peers[id]
	return found
}

// Alive returns the sorted identifiers of live nodes, including the local
// node.
func (m *PeerMonitor) Alive() []NodeId {
	ids := []NodeId{m.localId}
	for id := range m.peers {
		ids = append(ids, id)
	}

	SortNodeIds(ids)
	return ids
}

func (m *PeerMonitor) LastHeartbeat(id NodeId) (time.Time, bool) {
	peer, found := m.peers[id]
	if !found {
		return time.Time{}, false
	}

	return peer.lastHeartbeat, true
}
