package artnet

import (
	"net"
	"sort"
	"sync"
	"time"

	"github.com/gopatchy/dmxnode/portaddr"
)

// UnicastSubscriberLimit is the §4.6 threshold above which the controller
// switches a universe's dispatch from per-node unicast to broadcast, to
// bound outbound packet fan-out on networks with many subscribed nodes.
const UnicastSubscriberLimit = 40

// MaxActiveUniverses bounds how many distinct universes one controller
// instance drives (§4.6); registrations past the bound are ignored.
const MaxActiveUniverses = 512

// DiscoveryCleanInterval is how often the controller advances the poll
// table's incremental eviction sweep (§4.6; independent of PollInterval so
// a full table sweep amortizes smoothly between polls).
const DiscoveryCleanInterval = 2 * time.Second

// Controller is the Art-Net controller state machine (component C6): it
// tracks the set of universes it is driving, discovers receiving nodes via
// ArtPoll/ArtPollReply into a PollTable, and dispatches ArtDmx frames
// unicast or broadcast depending on subscriber count, following a burst of
// universe updates with ArtSync (§4.6).
type Controller struct {
	mu sync.Mutex

	sender *Sender
	table  *PollTable

	universes map[portaddr.Address]bool
	sequences map[portaddr.Address]uint8

	localIP net.IP

	attenuatorEnabled bool
	attenuatorLevel   uint8
}

// NewController creates a controller bound to sender for transmit and
// localIP for recognizing (and discarding) its own PollReply broadcasts.
func NewController(sender *Sender, localIP net.IP) *Controller {
	return &Controller{
		sender:    sender,
		table:     NewPollTable(),
		universes: make(map[portaddr.Address]bool),
		sequences: make(map[portaddr.Address]uint8),
		localIP:   localIP,
	}
}

// RegisterUniverse adds address to the set of universes this controller
// drives, up to MaxActiveUniverses.
func (c *Controller) RegisterUniverse(address portaddr.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.universes) >= MaxActiveUniverses {
		return
	}
	c.universes[address] = true
}

// ActiveUniverses returns the registered universes in ascending order
// (§4.6 "maintains a sorted list of active universes").
func (c *Controller) ActiveUniverses() []portaddr.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]portaddr.Address, 0, len(c.universes))
	for u := range c.universes {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HandlePacket implements Handler: PollReply feeds the poll table, every
// other op-code this controller does not originate is ignored.
func (c *Controller) HandlePacket(src *net.UDPAddr, opCode uint16, pkt interface{}) {
	if opCode != OpPollReply {
		return
	}
	reply, ok := pkt.(*PollReplyPacket)
	if !ok {
		return
	}
	if src.IP.Equal(c.localIP) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.table.Add(NodeReply{
		IP:        portaddr.IPv4ToUint32(net.IP(reply.IPAddress[:])),
		MAC:       reply.MAC,
		BindIndex: reply.BindIndex,
		LongName:  trimNull(reply.LongName[:]),
		ShortName: trimNull(reply.ShortName[:]),
		NetSwitch: reply.NetSwitch,
		SubSwitch: reply.SubSwitch,
		PortTypes: reply.PortTypes,
		SwOut:     reply.SwOut,
	}, time.Now())
}

// SetMasterAttenuator enables or disables scaling every outbound frame's
// levels by level/255 before transmission (§4.6).
func (c *Controller) SetMasterAttenuator(enabled bool, level uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attenuatorEnabled = enabled
	c.attenuatorLevel = level
}

func (c *Controller) scaleLocked(data []byte) []byte {
	if !c.attenuatorEnabled {
		return data
	}
	scaled := make([]byte, len(data))
	for i, v := range data {
		scaled[i] = byte(uint16(v) * uint16(c.attenuatorLevel) / 255)
	}
	return scaled
}

// SendDmx sequences, attenuates, and dispatches one universe's frame:
// unicast to every subscriber if there are between 1 and
// UnicastSubscriberLimit of them, else (none known, or more than the limit)
// a single broadcast (§4.6). The caller is responsible for batching multiple
// SendDmx calls ahead of a single SendSync for a burst update.
func (c *Controller) SendDmx(address portaddr.Address, data []byte) error {
	c.mu.Lock()
	seq := c.sequences[address] + 1
	if seq == 0 {
		seq = 1
	}
	c.sequences[address] = seq
	ips := c.table.NodesForUniverse(address)
	data = c.scaleLocked(data)
	c.mu.Unlock()

	frame := BuildDmx(uint16(address), seq, 0, data)

	if len(ips) == 0 || len(ips) > UnicastSubscriberLimit {
		return c.sender.SendBroadcast(frame)
	}

	var firstErr error
	for _, ip := range ips {
		if err := c.sender.SendTo(frame, portaddr.Uint32ToIPv4(ip)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SendSync broadcasts an ArtSync frame, closing out a burst of SendDmx
// calls so subscribers buffer-swap atomically (§4.5/§4.6).
func (c *Controller) SendSync() error {
	return c.sender.SendBroadcast(BuildSync())
}

// Poll broadcasts an ArtPoll to discover nodes (§4.6, the PollInterval
// cadence).
func (c *Controller) Poll() error {
	return c.sender.SendBroadcast(BuildPoll(0, 0))
}

// Clean advances the poll table's incremental eviction sweep one step
// (§4.6, the DiscoveryCleanInterval cadence).
func (c *Controller) Clean(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table.Clean(now)
}

// Table exposes the underlying poll table for inspection (diagnostics,
// tests).
func (c *Controller) Table() *PollTable {
	return c.table
}

// Run drives the controller's discovery cadence until stop is closed:
// ArtPoll every PollInterval, PollTable.Clean every DiscoveryCleanInterval.
func (c *Controller) Run(stop <-chan struct{}) {
	pollTicker := time.NewTicker(PollInterval)
	defer pollTicker.Stop()
	cleanTicker := time.NewTicker(DiscoveryCleanInterval)
	defer cleanTicker.Stop()

	_ = c.Poll()

	for {
		select {
		case <-stop:
			return
		case <-pollTicker.C:
			_ = c.Poll()
		case <-cleanTicker.C:
			c.Clean(time.Now())
		}
	}
}
