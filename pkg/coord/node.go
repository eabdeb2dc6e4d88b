package coord

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"
	"time"
)

var (
	ErrUnknownNode = errors.New("unknown node")
	ErrNodeStopped = errors.New("node stopped")
)

type NodeCfg struct {
	Id       NodeId
	NbFloors int

	// The node owns the transport once started and closes it when stopping
	Transport Transport

	CostFunc CostFunc

	DataDirectory string

	Logger Logger

	HeartbeatInterval    time.Duration
	PeerTimeout          time.Duration
	DiscoveryWindow      time.Duration
	RetransmitTimeout    time.Duration
	MaxRetransmitTimeout time.Duration
	AssignmentInterval   time.Duration
	AssignmentCycle      time.Duration

	// Called from the main goroutine every time the task list of the local
	// node changes; it must not block.
	TasksFunc func([]Task)
}

type NodeStatus struct {
	Id        NodeId     `json:"id"`
	Role      Role       `json:"role"`
	Term      MasterTerm `json:"term"`
	Alive     []NodeId   `json:"alive"`
	Tasks     []Task     `json:"tasks"`
	WorldView *WorldView `json:"worldView"`
}

type assignmentResult struct {
	epoch  int64
	input  *CostInput
	output CostOutput
	err    error
}

// Node runs the coordination layer of one elevator. All state is owned by a
// single goroutine; the outside world talks to it with Submit and Status.
type Node struct {
	Cfg NodeCfg
	Log Logger

	Id NodeId

	transport Transport

	store    *WorldViewStore
	monitor  *PeerMonitor
	elector  *Elector
	channel  *Channel
	assigner *Assigner

	addresses map[NodeId]NodeAddress

	persistentState PersistentState
	persistentStore *PersistentStore

	assignmentRunning bool
	lastAssignment    time.Time

	lastTasks []Task

	heartbeatTicker  *time.Ticker
	checkTicker      *time.Ticker
	assignmentTicker *time.Ticker

	eventChan      chan Event
	queryChan      chan chan NodeStatus
	assignmentChan chan assignmentResult

	ctx    context.Context
	cancel context.CancelFunc

	errorChan chan<- error
	stopChan  chan struct{}
	doneChan  chan struct{} // closed when the main goroutine exits
	wg        sync.WaitGroup
}

func NewNode(cfg NodeCfg) (*Node, error) {
	if cfg.Id == "" {
		return nil, fmt.Errorf("missing or empty node id")
	}

	if cfg.NbFloors < 2 {
		return nil, fmt.Errorf("invalid number of floors %d", cfg.NbFloors)
	}

	if cfg.Transport == nil {
		return nil, fmt.Errorf("missing transport")
	}

	if cfg.CostFunc == nil {
		return nil, fmt.Errorf("missing cost function")
	}

	if cfg.DataDirectory == "" {
		return nil, fmt.Errorf("missing or empty data directory")
	}

	if cfg.Logger == nil {
		return nil, fmt.Errorf("missing logger")
	}

	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = 50 * time.Millisecond
	}

	if cfg.PeerTimeout == 0 {
		cfg.PeerTimeout = 5 * cfg.HeartbeatInterval
	}

	if cfg.PeerTimeout <= cfg.HeartbeatInterval {
		return nil, fmt.Errorf("peer timeout must be greater than the " +
			"heartbeat interval")
	}

	if cfg.DiscoveryWindow == 0 {
		cfg.DiscoveryWindow = 4 * cfg.PeerTimeout
	}

	if cfg.RetransmitTimeout == 0 {
		cfg.RetransmitTimeout = 100 * time.Millisecond
	}

	if cfg.MaxRetransmitTimeout == 0 {
		cfg.MaxRetransmitTimeout = 16 * cfg.RetransmitTimeout
	}

	if cfg.AssignmentInterval == 0 {
		cfg.AssignmentInterval = 100 * time.Millisecond
	}

	if cfg.AssignmentCycle == 0 {
		cfg.AssignmentCycle = time.Second
	}

	persistentStorePath := path.Join(cfg.DataDirectory, string(cfg.Id),
		"persistent-state.json")

	n := &Node{
		Cfg: cfg,
		Log: cfg.Logger,

		Id: cfg.Id,

		transport: cfg.Transport,

		addresses: make(map[NodeId]NodeAddress),

		persistentStore: NewPersistentStore(persistentStorePath),

		eventChan:      make(chan Event),
		queryChan:      make(chan chan NodeStatus),
		assignmentChan: make(chan assignmentResult),

		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}

	return n, nil
}

func (n *Node) Start(errorChan chan<- error) error {
	n.Log.Debug(1, "starting")

	n.errorChan = errorChan

	// Persistent store
	n.Log.Debug(1, "loading persistent state from %q",
		n.persistentStore.FilePath())

	if err := n.persistentStore.Load(&n.persistentState); err != nil {
		return fmt.Errorf("cannot load persistent state: %w", err)
	}

	n.persistentState.Incarnation++

	if err := n.persistentStore.Save(n.persistentState); err != nil {
		return fmt.Errorf("cannot save persistent state: %w", err)
	}

	incarnation := n.persistentState.Incarnation

	n.Log.Debug(1, "incarnation %d, last term %v", incarnation,
		n.persistentState.Term)

	// Components
	n.store = NewWorldViewStore(n.Id, incarnation, n.Log)
	n.store.Restore(n.persistentState.WorldView)

	address := n.transport.LocalAddress()
	n.store.LocalUpdate(func(local *NodeState) {
		local.Address = address
	})

	n.monitor = NewPeerMonitor(n.Id, n.Cfg.PeerTimeout, n.Log)

	n.elector = NewElector(n.Id, n.Cfg.DiscoveryWindow,
		n.persistentState.Term.Epoch, n.Log)

	n.channel = NewChannel(ChannelCfg{
		LocalId:     n.Id,
		Incarnation: incarnation,
		Send:        n.sendPacket,
		Logger:      n.Log,

		RetransmitTimeout:    n.Cfg.RetransmitTimeout,
		MaxRetransmitTimeout: n.Cfg.MaxRetransmitTimeout,
	})

	n.assigner = NewAssigner(AssignerCfg{
		NbFloors: n.Cfg.NbFloors,
		CostFunc: n.Cfg.CostFunc,
		Logger:   n.Log,
	})

	n.ctx, n.cancel = context.WithCancel(context.Background())

	n.elector.Start(time.Now())

	n.heartbeatTicker = time.NewTicker(n.Cfg.HeartbeatInterval)
	n.checkTicker = time.NewTicker(n.Cfg.HeartbeatInterval)
	n.assignmentTicker = time.NewTicker(n.Cfg.AssignmentCycle)

	n.Log.Info("listening on %s", address)

	// Main
	n.wg.Add(1)
	go n.main()

	n.Log.Debug(1, "started")

	return nil
}

func (n *Node) Stop() {
	n.Log.Debug(1, "stopping")

	close(n.stopChan)
	n.cancel()

	n.wg.Wait()

	n.Log.Debug(1, "stopped")
}

// Submit passes an event of the local elevator to the node.
func (n *Node) Submit(ev Event) error {
	if err := ev.Check(n.Cfg.NbFloors); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}

	select {
	case n.eventChan <- ev:
		return nil
	case <-n.doneChan:
		return ErrNodeStopped
	}
}

func (n *Node) Status() (NodeStatus, error) {
	c := make(chan NodeStatus, 1)

	select {
	case n.queryChan <- c:
	case <-n.doneChan:
		return NodeStatus{}, ErrNodeStopped
	}

	select {
	case status := <-c:
		return status, nil
	case <-n.doneChan:
		return NodeStatus{}, ErrNodeStopped
	}
}

func (n *Node) main() {
	defer n.wg.Done()
	defer close(n.doneChan)

	defer func() {
		if value := recover(); value != nil {
			msg := RecoverValueString(value)
			trace := StackTrace(10)
			n.Log.Error("panic: %s\n%s", msg, trace)

			n.errorChan <- fmt.Errorf("panic: %s", msg)
			n.shutdown()
		}
	}()

	for {
		select {
		case <-n.stopChan:
			n.shutdown()
			return

		case now := <-n.heartbeatTicker.C:
			n.onHeartbeatTicker(now)

		case now := <-n.checkTicker.C:
			n.onCheckTicker(now)

		case <-n.assignmentTicker.C:
			if n.elector.IsMaster() {
				n.assigner.Invalidate()
			}

		case packet := <-n.transport.Broadcasts():
			n.onBroadcast(packet)

		case packet := <-n.transport.Packets():
			n.onPacket(packet)

		case ev := <-n.eventChan:
			n.onEvent(ev)

		case c := <-n.queryChan:
			c <- n.status()

		case res := <-n.assignmentChan:
			n.onAssignmentResult(res)
		}
	}
}

func (n *Node) shutdown() {
	n.Log.Debug(1, "shutting down")

	n.heartbeatTicker.Stop()
	n.checkTicker.Stop()
	n.assignmentTicker.Stop()

	n.persist()

	n.transport.Close()
}

func (n *Node) status() NodeStatus {
	local := n.store.Local()

	return NodeStatus{
		Id:        n.Id,
		Role:      n.elector.Role(),
		Term:      n.elector.Term(),
		Alive:     n.monitor.Alive(),
		Tasks:     append([]Task{}, local.Tasks...),
		WorldView: n.store.Snapshot(),
	}
}

func (n *Node) sendPacket(target NodeId, data []byte) error {
	address, found := n.addresses[target]
	if !found {
		return fmt.Errorf("%w %s", ErrUnknownNode, target)
	}

	return n.transport.SendTo(address, data)
}

func (n *Node) onHeartbeatTicker(now time.Time) {
	// Only the master advertises itself; other nodes only propagate the
	// highest epoch they know, so that a dead master is never resurrected
	// by its former slaves.
	term := MasterTerm{Epoch: n.elector.HighestEpoch()}
	if n.elector.IsMaster() {
		term = n.elector.Term()
	}

	msg := Announcement{
		Id:      n.Id,
		Address: n.transport.LocalAddress(),
		Term:    term,
		View:    n.store.View(),
	}

	data, err := EncodeMsg(&msg)
	if err != nil {
		n.Log.Error("cannot encode %v: %v", &msg, err)
		return
	}

	if err := n.transport.Broadcast(data); err != nil {
		n.Log.Debug(1, "cannot broadcast announcement: %v", err)
	}
}

func (n *Node) onCheckTicker(now time.Time) {
	for _, id := range n.monitor.Check(now) {
		n.onPeerLost(id, now)
	}

	n.onTransition(n.elector.Tick(n.monitor.Alive(), now))

	n.channel.Tick(now)

	n.pruneTasks()
	n.maybeRunAssignment(now)
}

func (n *Node) onPeerLost(id NodeId, now time.Time) {
	released := n.store.Reap(id)
	if len(released) > 0 {
		n.Log.Info("node %s lost, hall requests %v released", id, released)
	}

	n.channel.Drop(id)
	n.assigner.Forget(id)

	n.onTransition(n.elector.OnPeerLost(id, n.monitor.Alive(), now))
}

func (n *Node) onBroadcast(packet Packet) {
	msg, err := DecodeMsg(packet.Data)
	if err != nil {
		n.Log.Error("invalid broadcast from %s: %v", packet.Source, err)
		return
	}

	announcement, ok := msg.(*Announcement)
	if !ok {
		n.Log.Error("unexpected broadcast %v from %s", msg, packet.Source)
		return
	}

	if announcement.Id == n.Id || announcement.Id == "" {
		return
	}

	n.onAnnouncement(announcement, time.Now())
}

func (n *Node) onAnnouncement(msg *Announcement, now time.Time) {
	n.Log.Debug(3, "received %v", msg)

	if msg.Address != "" {
		n.addresses[msg.Id] = msg.Address
	}

	if n.monitor.Observe(msg.Id, now) {
		n.store.Insert(msg.Id)
		n.assigner.Invalidate()
	}

	if msg.View != nil {
		if remote := msg.View.Nodes[msg.Id]; remote != nil {
			n.detectRestart(remote)
		}

		// States relayed for nodes we consider dead are ignored: they would
		// resurrect nodes which were reaped.
		for _, id := range msg.View.NodeIds() {
			state := msg.View.Nodes[id]
			if state == nil || state.Id != id {
				continue
			}

			if id != msg.Id && !n.monitor.IsAlive(id) {
				continue
			}

			if n.store.Merge(*state) {
				n.assigner.Invalidate()
			}
		}

		if n.store.MergeRequests(msg.View.Requests, msg.View.Clock) {
			n.assigner.Invalidate()
		}
	}

	if state, found := n.store.Node(msg.Id); found {
		state.LastHeartbeat = now
	}

	n.onTransition(n.elector.OnTerm(msg.Term, now))

	n.pruneTasks()
}

// detectRestart resets the outgoing stream to a node which restarted faster
// than the peer timeout: it lost the receiving end of the stream along with
// every task it held.
func (n *Node) detectRestart(remote *NodeState) {
	held, found := n.store.Node(remote.Id)
	if !found || held.Incarnation == 0 || remote.Incarnation <= held.Incarnation {
		return
	}

	n.Log.Info("node %s restarted (incarnation %d)", remote.Id,
		remote.Incarnation)

	n.channel.Drop(remote.Id)
	n.assigner.Forget(remote.Id)
}

func (n *Node) onPacket(packet Packet) {
	msg, err := DecodeMsg(packet.Data)
	if err != nil {
		n.Log.Error("invalid packet from %s: %v", packet.Source, err)
		return
	}

	cmsg, ok := msg.(*ChannelMsg)
	if !ok {
		n.Log.Error("unexpected packet %v from %s", msg, packet.Source)
		return
	}

	if cmsg.Sender == "" || cmsg.Sender == n.Id {
		return
	}

	if _, found := n.addresses[cmsg.Sender]; !found {
		n.addresses[cmsg.Sender] = NodeAddress(packet.Source)
	}

	for _, dmsg := range n.channel.Receive(cmsg) {
		n.onChannelMsg(dmsg)
	}
}

func (n *Node) onChannelMsg(msg *ChannelMsg) {
	n.Log.Debug(2, "delivered %v", msg)

	switch msg.Kind {
	case ChannelMsgKindAssign:
		var payload AssignPayload
		if err := msg.DecodePayload(&payload); err != nil {
			n.Log.Error("%v", err)
			return
		}

		if n.isStale(msg) {
			return
		}

		r, ok := payload.Task.HallRequest()
		if !ok {
			n.Log.Error("ignoring assignment of non-hall task %v",
				payload.Task)
			return
		}

		n.store.MergeRequests(RequestSet{r: payload.Clock}, payload.Clock.Pressed)
		n.assign(payload.Task)

	case ChannelMsgKindWithdraw:
		var payload WithdrawPayload
		if err := msg.DecodePayload(&payload); err != nil {
			n.Log.Error("%v", err)
			return
		}

		if n.isStale(msg) {
			return
		}

		n.withdraw(payload.Request, payload.Stamp)

	case ChannelMsgKindComplete:
		var payload CompletePayload
		if err := msg.DecodePayload(&payload); err != nil {
			n.Log.Error("%v", err)
			return
		}

		n.store.MergeRequests(RequestSet{payload.Request: payload.Clock},
			payload.Clock.Served)
		n.assigner.ForgetRequest(payload.Request, msg.Sender)
		n.assigner.Invalidate()

		n.pruneTasks()

	default:
		n.Log.Error("unexpected channel message %v", msg)
	}
}

func (n *Node) isStale(msg *ChannelMsg) bool {
	if msg.Epoch < n.elector.HighestEpoch() {
		n.Log.Debug(1, "ignoring %v from a previous epoch (current epoch %d)",
			msg, n.elector.HighestEpoch())
		return true
	}

	return false
}

// assign adds a hall task to the local task list, or updates the stamp of the
// task if it is already there.
func (n *Node) assign(task Task) {
	r, _ := task.HallRequest()

	if !n.store.RequestClock(r).Outstanding() {
		n.Log.Debug(1, "ignoring assignment of served request %v", r)
		return
	}

	local := n.store.Local()

	idx := local.FindTask(task)
	if idx >= 0 && local.Tasks[idx].Stamp.Compare(task.Stamp) >= 0 {
		return
	}

	n.Log.Debug(1, "assigned %v", task)

	n.store.LocalUpdate(func(local *NodeState) {
		if idx >= 0 {
			local.Tasks[idx].Stamp = task.Stamp
		} else {
			task.Started = false
			local.Tasks = append(local.Tasks, task)
		}
	})

	n.pushTasks()
}

// withdraw removes a hall task moved to another node by a later decision.
// Started tasks are kept: the car is already on its way.
func (n *Node) withdraw(r HallRequest, stamp Stamp) {
	local := n.store.Local()

	idx := local.FindTask(HallTask(r, Stamp{}))
	if idx < 0 {
		return
	}

	task := local.Tasks[idx]

	if task.Started {
		n.Log.Debug(1, "ignoring withdrawal of started task %v", task)
		return
	}

	if task.Stamp.Compare(stamp) >= 0 {
		return
	}

	n.Log.Debug(1, "withdrawn %v", task)

	n.store.LocalUpdate(func(local *NodeState) {
		local.Tasks = append(local.Tasks[:idx:idx], local.Tasks[idx+1:]...)
	})

	n.pushTasks()
}

// pruneTasks removes the hall tasks which were served, or which are owned by
// another live node with a more recent stamp and were not started.
func (n *Node) pruneTasks() {
	view := n.store.View()
	local := n.store.Local()

	var kept []Task

	for _, t := range local.Tasks {
		r, ok := t.HallRequest()
		if !ok {
			kept = append(kept, t)
			continue
		}

		if !view.Requests[r].Outstanding() {
			n.Log.Debug(1, "dropping served task %v", t)
			continue
		}

		if !t.Started {
			owner, _ := view.Placement(r)
			if owner != n.Id && n.monitor.IsAlive(owner) {
				n.Log.Debug(1, "dropping task %v owned by %s", t, owner)
				continue
			}
		}

		kept = append(kept, t)
	}

	if len(kept) == len(local.Tasks) {
		return
	}

	n.store.LocalUpdate(func(local *NodeState) {
		local.Tasks = append([]Task{}, kept...)
	})

	n.assigner.Invalidate()

	n.pushTasks()
}

func (n *Node) onEvent(ev Event) {
	n.Log.Debug(1, "event %v", ev)

	switch ev.Type {
	case EventTypeButtonPressed:
		task := ev.Task()

		if r, ok := task.HallRequest(); ok {
			if n.store.Press(r) {
				n.assigner.Invalidate()
			}

			return
		}

		if n.store.Local().FindTask(task) >= 0 {
			return
		}

		n.store.LocalUpdate(func(local *NodeState) {
			local.Tasks = append(local.Tasks, task)
		})

		n.assigner.Invalidate()
		n.persist()

	case EventTypeFloorReached:
		n.store.LocalUpdate(func(local *NodeState) {
			local.Floor = ev.Floor
			local.Direction = ev.Motor

			if ev.Motor == MotorDirectionStop {
				local.Behaviour = BehaviourIdle
			} else {
				local.Behaviour = BehaviourMoving
			}
		})

	case EventTypeDoorOpened:
		n.store.LocalUpdate(func(local *NodeState) {
			local.DoorOpen = true
			local.Direction = MotorDirectionStop
			local.Behaviour = BehaviourDoorOpen
		})

	case EventTypeDoorClosed:
		n.store.LocalUpdate(func(local *NodeState) {
			local.DoorOpen = false
			local.Behaviour = BehaviourIdle
		})

	case EventTypeTaskStarted:
		idx := n.store.Local().FindTask(ev.Task())
		if idx < 0 {
			n.Log.Debug(1, "ignoring start of unknown task %v", ev.Task())
			return
		}

		n.store.LocalUpdate(func(local *NodeState) {
			local.Tasks[idx].Started = true
		})

	case EventTypeTaskCompleted:
		n.onTaskCompleted(ev.Task())
	}

	n.pushTasks()
}

func (n *Node) onTaskCompleted(task Task) {
	if idx := n.store.Local().FindTask(task); idx >= 0 {
		n.store.LocalUpdate(func(local *NodeState) {
			local.Tasks = append(local.Tasks[:idx:idx], local.Tasks[idx+1:]...)
		})
	}

	r, ok := task.HallRequest()
	if !ok {
		n.assigner.Invalidate()
		n.persist()
		return
	}

	// The completion may be reported for a request this node does not hold,
	// e.g. when the car stops at a floor for another reason; it is recorded
	// all the same.
	if !n.store.Serve(r) {
		return
	}

	n.Log.Info("served %v", r)

	term := n.elector.Term()

	switch {
	case n.elector.IsMaster():
		n.assigner.ForgetRequest(r, n.Id)
		n.assigner.Invalidate()

	case term.MasterId != "":
		payload := CompletePayload{Request: r, Clock: n.store.RequestClock(r)}

		_, err := n.channel.Send(term.MasterId, ChannelMsgKindComplete,
			term.Epoch, payload, time.Now())
		if err != nil {
			n.Log.Error("cannot send completion of %v: %v", r, err)
		}
	}
}

func (n *Node) maybeRunAssignment(now time.Time) {
	if !n.elector.IsMaster() || n.assignmentRunning || !n.assigner.Dirty() {
		return
	}

	if now.Sub(n.lastAssignment) < n.Cfg.AssignmentInterval {
		return
	}

	input := n.assigner.Prepare(n.store.View(), n.monitor.Alive())
	if input == nil {
		return
	}

	n.assignmentRunning = true
	n.lastAssignment = now

	epoch := n.assigner.Epoch()

	n.wg.Add(1)
	go n.runCostFunc(epoch, input)
}

// runCostFunc calls the cost function outside of the main goroutine, which
// keeps processing heartbeats while it runs.
func (n *Node) runCostFunc(epoch int64, input *CostInput) {
	defer n.wg.Done()

	res := assignmentResult{epoch: epoch, input: input}

	func() {
		defer func() {
			if value := recover(); value != nil {
				res.err = fmt.Errorf("panic: %s", RecoverValueString(value))
			}
		}()

		res.output, res.err = n.Cfg.CostFunc(n.ctx, input)
	}()

	select {
	case n.assignmentChan <- res:
	case <-n.doneChan:
	}
}

func (n *Node) onAssignmentResult(res assignmentResult) {
	n.assignmentRunning = false

	if !n.elector.IsMaster() || res.epoch != n.assigner.Epoch() {
		n.Log.Debug(1, "discarding assignment computed for epoch %d",
			res.epoch)
		return
	}

	if res.err != nil {
		n.assigner.Invalidate()

		err := &AssignerFunctionError{Err: res.err}
		n.Log.Error("%v", err)
		return
	}

	directives, err := n.assigner.Apply(n.store.View(), n.monitor.Alive(),
		res.input, res.output)
	if err != nil {
		n.Log.Error("%v", err)
		return
	}

	now := time.Now()

	for _, d := range directives {
		n.dispatch(d, now)
	}
}

func (n *Node) dispatch(d Directive, now time.Time) {
	n.Log.Debug(1, "dispatching %v", d)

	if d.Target == n.Id {
		switch d.Kind {
		case DirectiveAssign:
			n.assign(HallTask(d.Request, d.Stamp))
		case DirectiveWithdraw:
			n.withdraw(d.Request, d.Stamp)
		}

		return
	}

	var kind ChannelMsgKind
	var payload interface{}

	switch d.Kind {
	case DirectiveAssign:
		kind = ChannelMsgKindAssign
		payload = AssignPayload{
			Task:  HallTask(d.Request, d.Stamp),
			Clock: n.store.RequestClock(d.Request),
		}

	case DirectiveWithdraw:
		kind = ChannelMsgKindWithdraw
		payload = WithdrawPayload{Request: d.Request, Stamp: d.Stamp}
	}

	if _, err := n.channel.Send(d.Target, kind, d.Stamp.Epoch, payload,
		now); err != nil {
		n.Log.Error("cannot send %v: %v", d, err)
		n.assigner.ForgetRequest(d.Request, d.Target)
	}
}

func (n *Node) onTransition(t *ElectorTransition) {
	if t == nil {
		return
	}

	n.Log.Debug(1, "transition %v", t)

	if t.To == RoleMaster {
		n.assigner.Reset(t.Term.Epoch)
		n.lastAssignment = time.Time{}
	}

	n.persist()
}

func (n *Node) persist() {
	state := PersistentState{
		Incarnation: n.persistentState.Incarnation,
		Term: MasterTerm{
			MasterId: n.elector.Term().MasterId,
			Epoch:    n.elector.HighestEpoch(),
		},
		WorldView: n.store.Snapshot(),
	}

	if err := n.persistentStore.Save(state); err != nil {
		n.Log.Error("cannot save persistent state: %v", err)
		return
	}

	n.persistentState = state
}

func (n *Node) pushTasks() {
	local := n.store.Local()

	if equalTasks(local.Tasks, n.lastTasks) {
		return
	}

	n.lastTasks = append([]Task{}, local.Tasks...)

	if n.Cfg.TasksFunc != nil {
		n.Cfg.TasksFunc(append([]Task{}, local.Tasks...))
	}
}

func equalTasks(ts1, ts2 []Task) bool {
	if len(ts1) != len(ts2) {
		return false
	}

	for i := range ts1 {
		if ts1[i] != ts2[i] {
			return false
		}
	}

	return true
}
