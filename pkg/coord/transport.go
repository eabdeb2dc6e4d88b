package coord

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/libp2p/go-reuseport"
)

const maxDatagramSize = 65507

type Packet struct {
	Source string
	Data   []byte
}

// Transport is a best-effort datagram transport: packets may be lost,
// duplicated or reordered.
type Transport interface {
	Broadcast([]byte) error
	SendTo(NodeAddress, []byte) error

	Broadcasts() <-chan Packet
	Packets() <-chan Packet

	// The unicast address peers use to reach this node
	LocalAddress() NodeAddress

	Close()
}

type UDPTransportCfg struct {
	// The well-known port shared by all nodes for broadcasts, and the
	// address broadcasts are sent to (e.g. "255.255.255.255:16569").
	BroadcastPort    int
	BroadcastAddress string

	// The unicast address used by the reliable channel and the address
	// announced to other nodes.
	LocalAddress  NodeAddress
	PublicAddress NodeAddress

	Logger Logger
}

type UDPTransport struct {
	Cfg UDPTransportCfg
	Log Logger

	broadcastConn net.PacketConn
	broadcastAddr *net.UDPAddr
	unicastConn   net.PacketConn

	broadcasts chan Packet
	packets    chan Packet

	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewUDPTransport(cfg UDPTransportCfg) (*UDPTransport, error) {
	if cfg.Logger == nil {
		cfg.Logger = NopLogger{}
	}

	if cfg.BroadcastAddress == "" {
		cfg.BroadcastAddress = fmt.Sprintf("255.255.255.255:%d",
			cfg.BroadcastPort)
	}

	if cfg.PublicAddress == "" {
		cfg.PublicAddress = cfg.LocalAddress
	}

	broadcastAddr, err := net.ResolveUDPAddr("udp4", cfg.BroadcastAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid broadcast address %q: %w",
			cfg.BroadcastAddress, err)
	}

	t := &UDPTransport{
		Cfg: cfg,
		Log: cfg.Logger,

		broadcastAddr: broadcastAddr,

		broadcasts: make(chan Packet, 64),
		packets:    make(chan Packet, 64),

		stopChan: make(chan struct{}),
	}

	// Several nodes running on the same host must all receive broadcasts,
	// hence SO_REUSEPORT.
	listenAddress := fmt.Sprintf(":%d", cfg.BroadcastPort)

	broadcastConn, err := reuseport.ListenPacket("udp4", listenAddress)
	if err != nil {
		return nil, fmt.Errorf("cannot listen on %s: %w", listenAddress, err)
	}

	if err := setBroadcast(broadcastConn); err != nil {
		broadcastConn.Close()
		return nil, fmt.Errorf("cannot enable broadcasts: %w", err)
	}

	unicastConn, err := net.ListenPacket("udp4", string(cfg.LocalAddress))
	if err != nil {
		broadcastConn.Close()
		return nil, fmt.Errorf("cannot listen on %s: %w", cfg.LocalAddress, err)
	}

	t.broadcastConn = broadcastConn
	t.unicastConn = unicastConn

	t.wg.Add(2)
	go t.read(broadcastConn, t.broadcasts)
	go t.read(unicastConn, t.packets)

	return t, nil
}

func (t *UDPTransport) Close() {
	close(t.stopChan)

	t.broadcastConn.Close()
	t.unicastConn.Close()

	t.wg.Wait()
}

func (t *UDPTransport) LocalAddress() NodeAddress {
	return t.Cfg.PublicAddress
}

func (t *UDPTransport) Broadcasts() <-chan Packet {
	return t.broadcasts
}

func (t *UDPTransport) Packets() <-chan Packet {
	return t.packets
}

func (t *UDPTransport) Broadcast(data []byte) error {
	if _, err := t.broadcastConn.WriteTo(data, t.broadcastAddr); err != nil {
		return fmt.Errorf("cannot broadcast: %w", err)
	}

	return nil
}

func (t *UDPTransport) SendTo(address NodeAddress, data []byte) error {
	addr, err := net.ResolveUDPAddr("udp4", string(address))
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", address, err)
	}

	if _, err := t.unicastConn.WriteTo(data, addr); err != nil {
		return fmt.Errorf("cannot send packet to %s: %w", address, err)
	}

	return nil
}

func (t *UDPTransport) read(conn net.PacketConn, packets chan<- Packet) {
	defer t.wg.Done()

	defer func() {
		if value := recover(); value != nil {
			msg := RecoverValueString(value)
			trace := StackTrace(10)
			t.Log.Error("panic: %s\n%s", msg, trace)
		}
	}()

	buf := make([]byte, maxDatagramSize)

	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-t.stopChan:
				return
			default:
			}

			if errors.Is(err, net.ErrClosed) {
				return
			}

			t.Log.Error("cannot read packet: %v", err)
			continue
		}

		packet := Packet{
			Source: addr.String(),
			Data:   append([]byte(nil), buf[:n]...),
		}

		select {
		case packets <- packet:
		case <-t.stopChan:
			return
		default:
			t.Log.Debug(2, "dropping packet from %s", packet.Source)
		}
	}
}
