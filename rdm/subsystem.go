// Package rdm implements the RDM sub-protocol layered on Art-Net (component
// C9): per-port Table-of-Devices bookkeeping, full discovery, and request/
// response relay with DMX-transmit gating while a transaction is in flight.
//
// This package only holds UID lists and raw RDM payloads; it never
// wire-encodes an ArtTodData/ArtRdm frame itself (that stays the artnet
// package's job, per its WireCodec role) so rdm has no dependency on artnet
// and can be driven by either protocol's node in principle.
package rdm

import (
	"sync"

	"github.com/gopatchy/dmxnode/iface"
)

// MaxUIDsPerBlock is the TOD paging threshold from
// original_source/lib-artnet/include/packets.h's `TArtTodData::Tod[200][6]`.
const MaxUIDsPerBlock = 200

// Subsystem is one port's RDM state: its discovered Table of Devices and
// the gating flag asserted while a request/response transaction is
// in flight (§4.9).
type Subsystem struct {
	mu sync.Mutex

	provider  iface.RdmProvider
	portIndex int

	tod  [][6]byte
	busy bool
}

func NewSubsystem(provider iface.RdmProvider, portIndex int) *Subsystem {
	return &Subsystem{provider: provider, portIndex: portIndex}
}

// TOD returns a snapshot of the current Table of Devices.
func (s *Subsystem) TOD() [][6]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][6]byte, len(s.tod))
	copy(out, s.tod)
	return out
}

// FullDiscovery clears the TOD and asks the provider to run full RDM
// discovery, then refreshes the TOD from the provider's result
// (TodControl.AtcFlush, §4.9).
func (s *Subsystem) FullDiscovery() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tod = nil
	s.provider.FullDiscovery(s.portIndex)
	s.refreshLocked()
}

// Refresh re-reads the provider's UID count/list without forcing a new
// discovery cycle (TodRequest, §4.9's "must not interpret it as forcing
// full discovery").
func (s *Subsystem) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked()
}

func (s *Subsystem) refreshLocked() {
	count := s.provider.UIDCount(s.portIndex)
	buf := make([]byte, count*6)
	n := s.provider.CopyUIDs(s.portIndex, buf)
	uids := n / 6
	s.tod = make([][6]byte, uids)
	for i := 0; i < uids; i++ {
		copy(s.tod[i][:], buf[i*6:i*6+6])
	}
}

// Busy reports whether a request/response transaction currently holds the
// DMX-transmit gate on this port.
func (s *Subsystem) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// HandleRequest relays request to the provider, gating DMX transmit for the
// duration of the call (§4.9: "pause DMX transmit on that port ... await
// response ... resume"). ok is false for a broadcast request the provider
// chose not to answer.
func (s *Subsystem) HandleRequest(request []byte) (response []byte, ok bool) {
	s.mu.Lock()
	s.busy = true
	s.mu.Unlock()

	response, ok = s.provider.Handle(s.portIndex, request)

	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()

	return response, ok
}

// ShouldGateSacn implements §4.9's conditional gating for a port configured
// as sACN output: the DMX pause only matters if sACN is actually the thing
// driving output right now, so the caller passes the bridge's current
// merging/transmitting state for that port.
func (s *Subsystem) ShouldGateSacn(sacnActive bool) bool {
	return s.Busy() && sacnActive
}
