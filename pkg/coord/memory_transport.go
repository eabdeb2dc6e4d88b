package coord

import (
	"fmt"
	"math/rand"
	"sync"
)

// MemoryNetwork connects in-process transports. It can lose, duplicate and
// partition traffic; it is used to simulate clusters.
type MemoryNetwork struct {
	mu sync.Mutex

	rng             *rand.Rand
	lossRate        float64
	duplicationRate float64

	endpoints  map[NodeAddress]*MemoryTransport
	partitions map[NodeAddress]int
}

func NewMemoryNetwork(seed int64) *MemoryNetwork {
	return &MemoryNetwork{
		rng: rand.New(rand.NewSource(seed)),

		endpoints:  make(map[NodeAddress]*MemoryTransport),
		partitions: make(map[NodeAddress]int),
	}
}

func (n *MemoryNetwork) SetLossRate(rate float64) {
	n.mu.Lock()
	n.lossRate = rate
	n.mu.Unlock()
}

func (n *MemoryNetwork) SetDuplicationRate(rate float64) {
	n.mu.Lock()
	n.duplicationRate = rate
	n.mu.Unlock()
}

// Partition splits the network: endpoints in different groups cannot reach
// each other. Endpoints not listed form an additional group.
func (n *MemoryNetwork) Partition(groups ...[]NodeAddress) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.partitions = make(map[NodeAddress]int)

	for i, group := range groups {
		for _, address := range group {
			n.partitions[address] = i + 1
		}
	}
}

func (n *MemoryNetwork) Heal() {
	n.Partition()
}

func (n *MemoryNetwork) NewTransport(address NodeAddress) *MemoryTransport {
	n.mu.Lock()
	defer n.mu.Unlock()

	t := &MemoryTransport{
		network: n,
		address: address,

		broadcasts: make(chan Packet, 256),
		packets:    make(chan Packet, 256),
	}

	n.endpoints[address] = t

	return t
}

func (n *MemoryNetwork) deliver(source NodeAddress, target *MemoryTransport, data []byte, broadcast bool) {
	if n.partitions[source] != n.partitions[target.address] {
		return
	}

	if n.rng.Float64() < n.lossRate {
		return
	}

	nbCopies := 1
	if n.rng.Float64() < n.duplicationRate {
		nbCopies = 2
	}

	packets := target.packets
	if broadcast {
		packets = target.broadcasts
	}

	for i := 0; i < nbCopies; i++ {
		packet := Packet{
			Source: string(source),
			Data:   append([]byte(nil), data...),
		}

		select {
		case packets <- packet:
		default:
		}
	}
}

type MemoryTransport struct {
	network *MemoryNetwork
	address NodeAddress

	broadcasts chan Packet
	packets    chan Packet
}

func (t *MemoryTransport) Broadcast(data []byte) error {
	n := t.network

	n.mu.Lock()
	defer n.mu.Unlock()

	if _, found := n.endpoints[t.address]; !found {
		return fmt.Errorf("transport closed")
	}

	for _, target := range n.endpoints {
		n.deliver(t.address, target, data, true)
	}

	return nil
}

func (t *MemoryTransport) SendTo(address NodeAddress, data []byte) error {
	n := t.network

	n.mu.Lock()
	defer n.mu.Unlock()

	if _, found := n.endpoints[t.address]; !found {
		return fmt.Errorf("transport closed")
	}

	target, found := n.endpoints[address]
	if !found {
		// Nobody listening: the datagram is silently lost
		return nil
	}

	n.deliver(t.address, target, data, false)

	return nil
}

func (t *MemoryTransport) Broadcasts() <-chan Packet {
	return t.broadcasts
}

func (t *MemoryTransport) Packets() <-chan Packet {
	return t.packets
}

func (t *MemoryTransport) LocalAddress() NodeAddress {
	return t.address
}

// Close disconnects the transport, simulating a crash of its node.
func (t *MemoryTransport) Close() {
	n := t.network

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.endpoints[t.address] == t {
		delete(n.endpoints, t.address)
	}
}
