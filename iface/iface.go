// Package iface declares the narrow capability sets the core takes as
// explicit dependencies instead of the virtual base classes and `::Get()`
// singletons of the original implementation (see spec.md §9 "Design Notes").
// A concrete host supplies these functions; nothing in this module reaches
// for a global.
package iface

import "net"

// DmxPort is the serial DMX512 UART driver collaborator (wire timing,
// break/MAB) — out of scope per spec.md §1, specified only by this
// interface.
type DmxPort interface {
	Open(index int, dir PortDir) error
	// Read returns the most recent input frame for index and the
	// updates-per-second the driver is observing on the wire, or ok=false if
	// no frame has arrived yet.
	Read(index int) (data []byte, updatesPerSec float64, ok bool)
	Write(index int, data []byte) error
	Close(index int) error
}

// PortDir is the direction a DmxPort or node port operates in.
type PortDir int

const (
	PortDisabled PortDir = iota
	PortInput
	PortOutput
)

// Protocol is the wire protocol an Art-Net/sACN port speaks. A node's local
// Input/Output loopback merge (spec.md §4.5) only fires when both ports
// share the same PortAddress and Protocol.
type Protocol int

const (
	ProtocolArtNet Protocol = iota
	ProtocolSacn
)

// FailsafeMode is the per-port behavior applied on network data loss
// (§4.5, §4.7).
type FailsafeMode int

const (
	FailsafeHoldLast FailsafeMode = iota
	FailsafeZero
	FailsafeFull
	FailsafePlaybackScene
	FailsafeRecordScene
)

// LightSet is the hardware pixel/LED sink or display backend collaborator.
type LightSet interface {
	SetData(port int, data []byte, push bool)
	Start(port int)
	Stop(port int)
	Sync(port int)
	Blackout(on bool)
	SetOutputStyle(port int, style OutputStyle)
}

// OutputStyle selects how a LightSet refreshes an output between frames.
type OutputStyle int

const (
	OutputStyleDelta OutputStyle = iota
	OutputStyleConstant
)

// RdmProvider is the device-side RDM responder/discovery collaborator
// consulted by rdm.Subsystem.
type RdmProvider interface {
	UIDCount(port int) int
	CopyUIDs(port int, dst []byte) int
	FullDiscovery(port int)
	// Handle processes an inbound RDM request and returns the response
	// payload, or ok=false if there is none to send (e.g. broadcast request).
	Handle(port int, request []byte) (response []byte, ok bool)
}

// Host supplies the environment facts the core needs but cannot observe
// itself: the one legitimate global per spec.md §9 ("For the one truly
// global item... accept as a host-capability object").
type Host interface {
	NowMillis() uint32
	MAC() [6]byte
	LocalIP() net.IP
	BroadcastIP() net.IP
	IsDHCP() bool
	UUID() [16]byte
}

// TriggerSink receives ArtTrigger payloads accepted by the OEM/wildcard
// filter in spec.md §4.5.
type TriggerSink interface {
	OnTrigger(key, subKey uint16, payload []byte)
}
