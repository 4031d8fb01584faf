package sacn

import (
	"sort"
	"sync"
)

// Controller is the sACN controller state machine (component C8): it tracks
// the universes it drives, applies an optional master attenuator, and hands
// frames to a Sender for per-universe sequencing, multicast dispatch, and
// discovery advertisement.
type Controller struct {
	mu sync.Mutex

	sender *Sender

	universes map[uint16]bool

	attenuatorEnabled bool
	attenuatorLevel   uint8
}

// NewController creates a controller bound to sender for transmit.
func NewController(sender *Sender) *Controller {
	return &Controller{
		sender:    sender,
		universes: make(map[uint16]bool),
	}
}

// RegisterUniverse adds universe to the set this controller drives and to
// the sender's discovery advertisement (§4.8).
func (c *Controller) RegisterUniverse(universe uint16) {
	c.mu.Lock()
	c.universes[universe] = true
	c.mu.Unlock()
	c.sender.RegisterUniverse(universe)
}

// ActiveUniverses returns the registered universes in ascending order.
func (c *Controller) ActiveUniverses() []uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]uint16, 0, len(c.universes))
	for u := range c.universes {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SetMasterAttenuator enables or disables scaling every outbound frame's
// levels by level/255 before transmission (§4.6/§4.8).
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

// SendDmx scales and multicasts one universe's data packet. syncAddress is 0
// for an unsynchronized source; priority is written into the packet as given.
func (c *Controller) SendDmx(universe uint16, priority uint8, syncAddress uint16, options uint8, data []byte) error {
	c.mu.Lock()
	scaled := c.scaleLocked(data)
	c.mu.Unlock()
	return c.sender.SendDmx(universe, priority, syncAddress, options, scaled)
}

// SendSync closes out a burst of SendDmx calls to syncAddress (§4.7).
func (c *Controller) SendSync(syncAddress uint16) error {
	return c.sender.SendSync(syncAddress)
}

// StartDiscovery begins the periodic Universe Discovery broadcast (§4.8).
func (c *Controller) StartDiscovery() {
	c.sender.StartDiscovery()
}

// Close releases the underlying sender.
func (c *Controller) Close() error {
	return c.sender.Close()
}
