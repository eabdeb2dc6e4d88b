package coord

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// SendFunc transmits an encoded message to a node. Errors are transient: the
// channel retransmits on its own schedule.
type SendFunc func(target NodeId, data []byte) error

type ChannelCfg struct {
	LocalId     NodeId
	Incarnation uint64
	Send        SendFunc
	Logger      Logger

	RetransmitTimeout    time.Duration
	MaxRetransmitTimeout time.Duration
}

type pendingMsg struct {
	msg      *ChannelMsg
	target   NodeId
	timeout  Timeout
	attempts int
}

type outgoingStream struct {
	id         uuid.UUID
	generation uint64
	lastSeq    uint64
	pending    map[uint64]*pendingMsg
}

type incomingStream struct {
	id          uuid.UUID
	incarnation uint64
	generation  uint64
	delivered   uint64
	buffer      map[uint64]*ChannelMsg
}

func (s *incomingStream) olderThan(msg *ChannelMsg) bool {
	if s.incarnation != msg.Incarnation {
		return s.incarnation < msg.Incarnation
	}

	return s.generation < msg.Generation
}

// Channel is a reliable, ordered point-to-point transport layered over a
// lossy datagram transport. Every message carries a sequence number in a
// stream; receivers acknowledge every copy and deliver each sequence number
// exactly once and in order.
//
// A new stream starts after a restart of the sender or after the target was
// dropped. Streams are identified by a random uuid and ordered by sender
// incarnation and generation, so that late packets of an old stream never
// reset the receiver.
type Channel struct {
	Cfg ChannelCfg
	Log Logger

	generation uint64

	outgoing map[NodeId]*outgoingStream
	incoming map[NodeId]*incomingStream
}

func NewChannel(cfg ChannelCfg) *Channel {
	if cfg.Logger == nil {
		cfg.Logger = NopLogger{}
	}

	if cfg.RetransmitTimeout == 0 {
		cfg.RetransmitTimeout = 100 * time.Millisecond
	}

	if cfg.MaxRetransmitTimeout == 0 {
		cfg.MaxRetransmitTimeout = 16 * cfg.RetransmitTimeout
	}

	return &Channel{
		Cfg: cfg,
		Log: cfg.Logger,

		outgoing: make(map[NodeId]*outgoingStream),
		incoming: make(map[NodeId]*incomingStream),
	}
}

// Send queues a message for a target and transmits it immediately. It
// returns the sequence number of the message.
func (c *Channel) Send(target NodeId, kind ChannelMsgKind, epoch int64, payload interface{}, now time.Time) (uint64, error) {
	payloadData, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("cannot encode payload: %w", err)
	}

	stream, found := c.outgoing[target]
	if !found {
		c.generation++

		stream = &outgoingStream{
			id:         uuid.New(),
			generation: c.generation,
			pending:    make(map[uint64]*pendingMsg),
		}

		c.outgoing[target] = stream
	}

	stream.lastSeq++

	msg := ChannelMsg{
		Seq:         stream.lastSeq,
		Sender:      c.Cfg.LocalId,
		Stream:      stream.id,
		Incarnation: c.Cfg.Incarnation,
		Generation:  stream.generation,
		Kind:        kind,
		Epoch:       epoch,
		Payload:     payloadData,
	}

	pmsg := pendingMsg{
		msg:     &msg,
		target:  target,
		timeout: NewBackoffTimeout(c.Cfg.RetransmitTimeout, c.Cfg.MaxRetransmitTimeout),
	}

	stream.pending[msg.Seq] = &pmsg

	pmsg.timeout.Start(now)
	c.transmit(&pmsg)

	return msg.Seq, nil
}

func (c *Channel) transmit(pmsg *pendingMsg) {
	pmsg.attempts++

	c.sendMsg(pmsg.target, pmsg.msg)
}

func (c *Channel) sendMsg(target NodeId, msg *ChannelMsg) {
	data, err := EncodeMsg(msg)
	if err != nil {
		c.Log.Error("cannot encode %v: %v", msg, err)
		return
	}

	if err := c.Cfg.Send(target, data); err != nil {
		c.Log.Debug(1, "cannot send %v to %s: %v", msg, target, err)
	}
}

// Tick retransmits every pending message whose timeout expired.
func (c *Channel) Tick(now time.Time) {
	for _, stream := range c.outgoing {
		for _, seq := range sortedPendingSeqs(stream) {
			pmsg := stream.pending[seq]

			if !pmsg.timeout.Expired(now) {
				continue
			}

			c.Log.Debug(2, "retransmitting %v to %s (attempt %d)", pmsg.msg,
				pmsg.target, pmsg.attempts+1)

			pmsg.timeout.Backoff(now)
			c.transmit(pmsg)
		}
	}
}

// Receive processes a message received from the transport and returns the
// messages which can now be delivered to the application, in order.
func (c *Channel) Receive(msg *ChannelMsg) []*ChannelMsg {
	if msg.Kind == ChannelMsgKindAck {
		c.onAck(msg)
		return nil
	}

	c.sendMsg(msg.Sender, &ChannelMsg{
		Seq:    msg.Seq,
		Sender: c.Cfg.LocalId,
		Stream: msg.Stream,
		Kind:   ChannelMsgKindAck,
	})

	stream, found := c.incoming[msg.Sender]
	if !found || stream.olderThan(msg) {
		stream = &incomingStream{
			id:          msg.Stream,
			incarnation: msg.Incarnation,
			generation:  msg.Generation,
			buffer:      make(map[uint64]*ChannelMsg),
		}

		c.incoming[msg.Sender] = stream
	} else if stream.id != msg.Stream {
		c.Log.Debug(2, "ignoring %v from an old stream", msg)
		return nil
	}

	if msg.Seq <= stream.delivered {
		c.Log.Debug(2, "ignoring duplicate %v", msg)
		return nil
	}

	stream.buffer[msg.Seq] = msg

	var delivered []*ChannelMsg

	for {
		next, found := stream.buffer[stream.delivered+1]
		if !found {
			break
		}

		delete(stream.buffer, next.Seq)
		stream.delivered = next.Seq

		delivered = append(delivered, next)
	}

	return delivered
}

func (c *Channel) onAck(msg *ChannelMsg) {
	stream, found := c.outgoing[msg.Sender]
	if !found || stream.id != msg.Stream {
		c.Log.Debug(2, "ignoring ack for unknown stream %v", msg)
		return
	}

	if _, found := stream.pending[msg.Seq]; !found {
		c.Log.Debug(2, "ignoring ack for unknown message %v", msg)
		return
	}

	delete(stream.pending, msg.Seq)
}

// Drop discards the outgoing stream to a target, typically when the target
// was reaped. The messages which were never acknowledged are returned.
func (c *Channel) Drop(target NodeId) []*ChannelMsg {
	stream, found := c.outgoing[target]
	if !found {
		return nil
	}

	delete(c.outgoing, target)

	var dropped []*ChannelMsg
	for _, seq := range sortedPendingSeqs(stream) {
		dropped = append(dropped, stream.pending[seq].msg)
	}

	if len(dropped) > 0 {
		c.Log.Debug(1, "dropped %d pending messages to %s", len(dropped),
			target)
	}

	return dropped
}

// Pending returns the unacknowledged messages to a target in sequence order.
func (c *Channel) Pending(target NodeId) []*ChannelMsg {
	stream, found := c.outgoing[target]
	if !found {
		return nil
	}

	var msgs []*ChannelMsg
	for _, seq := range sortedPendingSeqs(stream) {
		msgs = append(msgs, stream.pending[seq].msg)
	}

	return msgs
}

func sortedPendingSeqs(stream *outgoingStream) []uint64 {
	seqs := make([]uint64, 0, len(stream.pending))
	for seq := range stream.pending {
		seqs = append(seqs, seq)
	}

	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	return seqs
}
