package sacn

import (
	"net"
	"sort"
	"sync"
	"time"

	"golang.org/x/net/ipv4"
)

// DiscoveryInterval is the sACN universe-discovery broadcast cadence
// (§5's "discovery (10 s for sACN)").
const DiscoveryInterval = 10 * time.Second

// Sender transmits E1.31 data/sync/discovery packets over multicast (or
// unicast, for point-to-point delivery) on behalf of a SacnController.
type Sender struct {
	conn       *net.UDPConn
	sourceName string
	cid        [16]byte

	mu        sync.Mutex
	sequences map[uint16]uint8
	universes map[uint16]bool

	done chan struct{}
}

// NewSender opens a UDP4 socket bound to ifaceName's multicast interface
// (the empty string selects the system default) and identifies outbound
// packets with sourceName/cid (§3.6 node/bridge identity).
func NewSender(sourceName string, cid [16]byte, ifaceName string) (*Sender, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		return nil, err
	}

	if ifaceName != "" {
		iface, err := net.InterfaceByName(ifaceName)
		if err != nil {
			conn.Close()
			return nil, err
		}
		p := ipv4.NewPacketConn(conn)
		if err := p.SetMulticastInterface(iface); err != nil {
			conn.Close()
			return nil, err
		}
	}

	return &Sender{
		conn:       conn,
		sourceName: sourceName,
		cid:        cid,
		sequences:  make(map[uint16]uint8),
		universes:  make(map[uint16]bool),
		done:       make(chan struct{}),
	}, nil
}

func (s *Sender) nextSequence(universe uint16) uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.sequences[universe] + 1
	s.sequences[universe] = seq
	return seq
}

// SendDmx multicasts one universe's data packet. syncAddress is 0 for an
// unsynchronized source; priority is written into the packet as given
// (§4.7/§4.8).
func (s *Sender) SendDmx(universe uint16, priority uint8, syncAddress uint16, options uint8, data []byte) error {
	pkt := BuildDataPacket(universe, s.nextSequence(universe), s.sourceName, s.cid, priority, syncAddress, options, data)
	_, err := s.conn.WriteToUDP(pkt, MulticastAddr(universe))
	return err
}

// SendDmxUnicast sends one universe's data packet directly to addr.
func (s *Sender) SendDmxUnicast(addr *net.UDPAddr, universe uint16, priority uint8, syncAddress uint16, options uint8, data []byte) error {
	pkt := BuildDataPacket(universe, s.nextSequence(universe), s.sourceName, s.cid, priority, syncAddress, options, data)
	_, err := s.conn.WriteToUDP(pkt, addr)
	return err
}

// SendSync multicasts a Synchronization packet for syncAddress, closing out
// a burst of SendDmx calls to that address (§4.7).
func (s *Sender) SendSync(syncAddress uint16) error {
	pkt := BuildSyncPacket(s.cid, s.nextSequence(syncAddress), syncAddress)
	_, err := s.conn.WriteToUDP(pkt, MulticastAddr(syncAddress))
	return err
}

// Close releases the socket and stops the discovery loop if running.
func (s *Sender) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return s.conn.Close()
}

// RegisterUniverse adds universe to the set advertised by discovery.
func (s *Sender) RegisterUniverse(universe uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.universes[universe] = true
}

// StartDiscovery runs the periodic Universe Discovery broadcast
// (§4.8, every DiscoveryInterval) on a background goroutine.
func (s *Sender) StartDiscovery() {
	go s.discoveryLoop()
}

func (s *Sender) discoveryLoop() {
	ticker := time.NewTicker(DiscoveryInterval)
	defer ticker.Stop()

	s.sendDiscovery()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sendDiscovery()
		}
	}
}

func (s *Sender) sendDiscovery() {
	s.mu.Lock()
	universes := make([]uint16, 0, len(s.universes))
	for u := range s.universes {
		universes = append(universes, u)
	}
	s.mu.Unlock()

	if len(universes) == 0 {
		return
	}

	sort.Slice(universes, func(i, j int) bool { return universes[i] < universes[j] })

	totalPages := (len(universes) + DiscoveryUniversesPerPage - 1) / DiscoveryUniversesPerPage

	for page := 0; page < totalPages; page++ {
		start := page * DiscoveryUniversesPerPage
		end := start + DiscoveryUniversesPerPage
		if end > len(universes) {
			end = len(universes)
		}
		pkt := BuildDiscoveryPacket(s.sourceName, s.cid, uint8(page), uint8(totalPages-1), universes[start:end])
		_, _ = s.conn.WriteToUDP(pkt, DiscoveryAddr)
	}
}
