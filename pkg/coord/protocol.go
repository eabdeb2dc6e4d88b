package coord

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type Msg interface {
	GetType() string

	fmt.Stringer
}

// Announcement is broadcast periodically by every node. It is both the
// heartbeat and the replication vehicle of the world view.
type Announcement struct {
	Id      NodeId      `json:"id"`
	Address NodeAddress `json:"address"`
	Term    MasterTerm  `json:"term"`
	View    *WorldView  `json:"view"`
}

func (msg *Announcement) GetType() string {
	return "announcement"
}

func (msg *Announcement) String() string {
	nbNodes := 0
	if msg.View != nil {
		nbNodes = len(msg.View.Nodes)
	}

	return fmt.Sprintf("Announcement{id: %q, address: %q, term: %v, "+
		"%d nodes}", msg.Id, msg.Address, msg.Term, nbNodes)
}

type ChannelMsgKind string

const (
	ChannelMsgKindAssign   ChannelMsgKind = "assign"
	ChannelMsgKindWithdraw ChannelMsgKind = "withdraw"
	ChannelMsgKindComplete ChannelMsgKind = "complete"
	ChannelMsgKindAck      ChannelMsgKind = "ack"
)

// ChannelMsg is the point-to-point message of the reliable channel. For
// acknowledgements, Seq and Stream identify the acknowledged message.
type ChannelMsg struct {
	Seq         uint64          `json:"seq"`
	Sender      NodeId          `json:"sender"`
	Stream      uuid.UUID       `json:"stream"`
	Incarnation uint64          `json:"incarnation,omitempty"`
	Generation  uint64          `json:"generation,omitempty"`
	Kind        ChannelMsgKind  `json:"kind"`
	Epoch       int64           `json:"epoch,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

func (msg *ChannelMsg) GetType() string {
	return "channel"
}

func (msg *ChannelMsg) String() string {
	return fmt.Sprintf("ChannelMsg{kind: %s, sender: %q, stream: %s, "+
		"seq: %d, epoch: %d}", msg.Kind, msg.Sender, msg.Stream, msg.Seq,
		msg.Epoch)
}

func (msg *ChannelMsg) DecodePayload(dest interface{}) error {
	if err := json.Unmarshal(msg.Payload, dest); err != nil {
		return fmt.Errorf("invalid %s payload: %w", msg.Kind, err)
	}

	return nil
}

type AssignPayload struct {
	Task  Task         `json:"task"`
	Clock RequestClock `json:"clock"`
}

type WithdrawPayload struct {
	Request HallRequest `json:"request"`
	Stamp   Stamp       `json:"stamp"`
}

type CompletePayload struct {
	Request HallRequest  `json:"request"`
	Clock   RequestClock `json:"clock"`
}

func EncodeMsg(msg Msg) ([]byte, error) {
	value := struct {
		Type  string `json:"type"`
		Value Msg    `json:"value"`
	}{
		Type:  msg.GetType(),
		Value: msg,
	}

	return json.Marshal(value)
}

func DecodeMsg(data []byte) (Msg, error) {
	var value struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	}

	if err := json.Unmarshal(data, &value); err != nil {
		return nil, err
	}

	var msg Msg

	switch value.Type {
	case "announcement":
		msg = &Announcement{}

	case "channel":
		msg = &ChannelMsg{}

	default:
		return nil, fmt.Errorf("unknown message type %q", value.Type)
	}

	if err := json.Unmarshal(value.Value, msg); err != nil {
		return nil, err
	}

	return msg, nil
}
