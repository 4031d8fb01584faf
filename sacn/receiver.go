package sacn

import (
	"log"
	"net"
	"sync"

	"golang.org/x/net/ipv4"
)

// Handler receives every successfully classified sACN packet (§4.1): the
// bridge switches on the concrete type to run priority/sync arbitration.
type Handler interface {
	HandlePacket(src *net.UDPAddr, pkt interface{})
}

// Receiver listens for sACN packets on UDP 5568 and manages the multicast
// group memberships a bound universe set requires (§4.7: "joined at
// port-up, released at port-down; re-acquired on address-change").
type Receiver struct {
	conn    *ipv4.PacketConn
	iface   *net.Interface
	handler Handler
	done    chan struct{}

	mu     sync.Mutex
	groups map[string]bool
}

// NewReceiver binds UDP 5568 on ifaceName (the empty string selects the
// system default multicast interface).
func NewReceiver(ifaceName string, handler Handler) (*Receiver, error) {
	c, err := net.ListenPacket("udp4", ":5568")
	if err != nil {
		return nil, err
	}

	var iface *net.Interface
	if ifaceName != "" {
		iface, err = net.InterfaceByName(ifaceName)
		if err != nil {
			c.Close()
			return nil, err
		}
	}

	return &Receiver{
		conn:    ipv4.NewPacketConn(c),
		iface:   iface,
		handler: handler,
		done:    make(chan struct{}),
		groups:  make(map[string]bool),
	}, nil
}

// JoinUniverse joins the multicast group for universe (idempotent).
func (r *Receiver) JoinUniverse(universe uint16) error {
	return r.join(MulticastAddr(universe).IP)
}

// LeaveUniverse leaves the multicast group for universe (idempotent).
func (r *Receiver) LeaveUniverse(universe uint16) error {
	return r.leave(MulticastAddr(universe).IP)
}

// JoinDiscovery joins the fixed universe-discovery group.
func (r *Receiver) JoinDiscovery() error {
	return r.join(DiscoveryAddr.IP)
}

// JoinSyncAddress joins the multicast group for a synchronization address
// (§4.7: "joins that multicast group" when a data packet requests sync).
func (r *Receiver) JoinSyncAddress(address uint16) error {
	return r.join(MulticastAddr(address).IP)
}

// LeaveSyncAddress leaves a previously joined synchronization address group.
func (r *Receiver) LeaveSyncAddress(address uint16) error {
	return r.leave(MulticastAddr(address).IP)
}

func (r *Receiver) join(ip net.IP) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := ip.String()
	if r.groups[key] {
		return nil
	}
	if err := r.conn.JoinGroup(r.iface, &net.UDPAddr{IP: ip}); err != nil {
		return err
	}
	r.groups[key] = true
	return nil
}

func (r *Receiver) leave(ip net.IP) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := ip.String()
	if !r.groups[key] {
		return nil
	}
	if err := r.conn.LeaveGroup(r.iface, &net.UDPAddr{IP: ip}); err != nil {
		return err
	}
	delete(r.groups, key)
	return nil
}

// Start begins receiving packets on a background goroutine.
func (r *Receiver) Start() {
	go r.receiveLoop()
}

// Stop closes the socket and ends the receive loop.
func (r *Receiver) Stop() {
	close(r.done)
	r.conn.Close()
}

func (r *Receiver) receiveLoop() {
	buf := make([]byte, 1500)

	for {
		select {
		case <-r.done:
			return
		default:
		}

		n, _, src, err := r.conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-r.done:
				return
			default:
				log.Printf("sacn: read error: %v", err)
				continue
			}
		}

		udpSrc, ok := src.(*net.UDPAddr)
		if !ok {
			continue
		}
		r.handlePacket(udpSrc, buf[:n])
	}
}

func (r *Receiver) handlePacket(src *net.UDPAddr, data []byte) {
	pkt, err := ParsePacket(data)
	if err != nil {
		return
	}
	r.handler.HandlePacket(src, pkt)
}
