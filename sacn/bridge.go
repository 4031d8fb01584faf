package sacn

import (
	"net"
	"sync"
	"time"

	"github.com/gopatchy/dmxnode/iface"
	"github.com/gopatchy/dmxnode/merge"
	"github.com/gopatchy/dmxnode/stats"
)

// MaxPorts is the number of universe bindings one bridge instance manages,
// mirroring the Art-Net node's port-group count (§3.3).
const MaxPorts = 4

// PriorityTimeout is how long the governing priority tier must go silent
// before a lower-priority source is admitted (§4.7 priority arbitration).
const PriorityTimeout = 10 * time.Second

// SyncLossTimeout is how long a port waits for a matching Synchronization
// packet before falling back per the Force_Synchronization option (§4.7).
const SyncLossTimeout = 10 * time.Second

// NetworkDataLossTimeout is the sACN analogue of the Art-Net node's
// network-data-loss failsafe threshold (§4.5, §4.7).
const NetworkDataLossTimeout = 10 * time.Second

// Port is one bound universe's receive-side state: merge arbitration,
// priority tracking, and synchronization deferral (§4.7).
type Port struct {
	Universe    uint16
	Failsafe    iface.FailsafeMode
	OutputStyle iface.OutputStyle

	merger *merge.Port

	highestPriority  uint8
	priorityLastSeen time.Time

	syncAddress    uint16
	forceSync      bool
	waitingForSync bool
	pendingData    [512]byte
	pendingLen     int

	isTransmitting bool
	lastFrameTime  time.Time

	loopbackSeq uint8
}

// GroupJoiner is the multicast membership surface a Bridge needs; *Receiver
// satisfies it. Narrowed to an interface so the bridge's arbitration logic
// can be tested without a live socket.
type GroupJoiner interface {
	JoinUniverse(universe uint16) error
	JoinDiscovery() error
	JoinSyncAddress(address uint16) error
	LeaveSyncAddress(address uint16) error
}

// Bridge is the sACN receive-side component (C7): it joins the multicast
// groups a bound universe set requires, arbitrates priority and merge
// across sources, defers output behind Synchronization packets, and applies
// each port's failsafe on data loss.
type Bridge struct {
	mu sync.Mutex

	LightSet iface.LightSet
	receiver GroupJoiner
	Stats    *stats.Tracker

	// LocalIP is this host's own address, used to recognize a locally
	// looped-back frame (delivered by the OS back to our own receive
	// socket) and skip re-ingesting it: LoopbackData already merged it
	// directly, and HandleData must not double-count it (§4.5/§9).
	LocalIP net.IP

	// RdmGate, when set, is consulted before admitting a data frame on
	// port idx: a true result means an RDM transaction is holding that
	// port's DMX-transmit gate and the frame must be dropped (§4.9).
	RdmGate func(idx int) bool

	Ports      [MaxPorts]*Port
	joinedSync map[uint16]bool
}

// NewBridge creates a bridge with all ports unbound; call ConfigurePort to
// bind a universe.
func NewBridge(lightSet iface.LightSet) *Bridge {
	b := &Bridge{LightSet: lightSet, joinedSync: make(map[uint16]bool)}
	for i := range b.Ports {
		b.Ports[i] = &Port{}
	}
	return b
}

// ConfigurePort binds port idx to universe with the given merge mode and
// failsafe behavior.
func (b *Bridge) ConfigurePort(idx int, universe uint16, mode merge.Mode, failsafe iface.FailsafeMode, style iface.OutputStyle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Ports[idx] = &Port{
		Universe:    universe,
		Failsafe:    failsafe,
		OutputStyle: style,
		merger:      merge.NewPort(mode, true),
	}
}

// AttachReceiver wires the multicast transport used for group membership.
func (b *Bridge) AttachReceiver(r GroupJoiner) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.receiver = r
}

// Join joins the multicast group for every bound port's universe plus the
// universe-discovery group (§4.7: "joined at port-up").
func (b *Bridge) Join() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, p := range b.Ports {
		if p.merger == nil {
			continue
		}
		if err := b.receiver.JoinUniverse(p.Universe); err != nil {
			return err
		}
	}
	return b.receiver.JoinDiscovery()
}

func (b *Bridge) portForUniverseLocked(universe uint16) (int, *Port) {
	for i, p := range b.Ports {
		if p.merger != nil && p.Universe == universe {
			return i, p
		}
	}
	return -1, nil
}

// HandlePacket implements Handler, dispatching a parsed frame to the
// matching port's merge/sync state.
func (b *Bridge) HandlePacket(src *net.UDPAddr, pkt interface{}) {
	now := time.Now()
	switch v := pkt.(type) {
	case *DataPacket:
		b.handleData(src, v, now)
	case *SyncPacket:
		b.handleSync(v.SynchronizationAddress, now)
	case *DiscoveryPacket:
		// Universe Discovery is advertised by other sources; nothing for a
		// receiving bridge to act on.
	}
}

func (b *Bridge) handleData(src *net.UDPAddr, dp *DataPacket, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx, p := b.portForUniverseLocked(dp.Universe)
	if p == nil {
		return
	}

	if b.LocalIP != nil && src.IP.Equal(b.LocalIP) {
		// Already merged directly by LoopbackData; the OS handed our own
		// multicast frame back to us. Ingesting it again here would
		// double-count the local source (§4.5/§9).
		return
	}

	id := merge.Identity{CID: dp.CID}
	if ip4 := src.IP.To4(); ip4 != nil {
		copy(id.IP[:], ip4)
	}

	if dp.StreamTerminated() {
		p.merger.Evict(id)
		snap := p.merger.Snapshot()
		if snap.SourceA == nil && snap.SourceB == nil {
			p.highestPriority = 0
			p.priorityLastSeen = time.Time{}
			if p.isTransmitting {
				b.applyFailsafeLocked(idx, p)
			}
		}
		return
	}

	if !b.admitLocked(p, dp.Priority, now) {
		return
	}

	if dp.PreviewData() {
		return
	}

	if b.RdmGate != nil && b.RdmGate(idx) {
		return
	}

	res := p.merger.Ingest(id, dp.Data, dp.Sequence, now)
	if !res.Accepted {
		return
	}
	p.isTransmitting = true
	p.lastFrameTime = now
	p.forceSync = dp.ForceSync()
	if b.Stats != nil {
		b.Stats.Record(stats.ProtocolSacn, dp.Universe, src.IP, len(dp.Data))
	}

	if dp.SynchronizationAddress != 0 {
		p.syncAddress = dp.SynchronizationAddress
		p.waitingForSync = true
		snap := p.merger.Snapshot()
		p.pendingData = snap.Data
		p.pendingLen = snap.Length
		if err := b.receiver.JoinSyncAddress(p.syncAddress); err == nil {
			b.joinedSync[p.syncAddress] = true
		}
		return
	}

	p.syncAddress = 0
	p.waitingForSync = false
	snap := p.merger.Snapshot()
	b.LightSet.SetData(idx, snap.Data[:snap.Length], true)
}

// admitLocked applies the §4.7 priority arbitration: a strictly higher
// priority source displaces and clears both merge slots; equal priority
// proceeds to the normal two-source merge; a lower priority is admitted only
// once the governing priority tier has gone silent for PriorityTimeout.
func (b *Bridge) admitLocked(p *Port, priority uint8, now time.Time) bool {
	switch {
	case p.priorityLastSeen.IsZero():
		p.highestPriority = priority
		p.priorityLastSeen = now
		return true
	case priority > p.highestPriority:
		p.merger.Reset()
		p.highestPriority = priority
		p.priorityLastSeen = now
		return true
	case priority == p.highestPriority:
		p.priorityLastSeen = now
		return true
	default:
		if now.Sub(p.priorityLastSeen) > PriorityTimeout {
			p.merger.Reset()
			p.highestPriority = priority
			p.priorityLastSeen = now
			return true
		}
		return false
	}
}

func (b *Bridge) handleSync(syncAddress uint16, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, p := range b.Ports {
		if p.merger == nil || !p.waitingForSync || p.syncAddress != syncAddress {
			continue
		}
		b.LightSet.SetData(i, p.pendingData[:p.pendingLen], false)
		b.LightSet.Sync(i)
		p.waitingForSync = false
	}
}

// Tick advances sync-loss fallback and network-data-loss failsafe timers,
// for the cooperative loop's periodic step (§4.7, §4.5).
func (b *Bridge) Tick(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, p := range b.Ports {
		if p.merger == nil {
			continue
		}
		if p.waitingForSync && !p.forceSync && now.Sub(p.lastFrameTime) > SyncLossTimeout {
			// The source stopped pairing Synchronization packets and did not
			// request forced synchronization: fall back to displaying the
			// buffered frame directly instead of holding it forever.
			b.LightSet.SetData(i, p.pendingData[:p.pendingLen], true)
			p.waitingForSync = false
		}
		if p.isTransmitting && now.Sub(p.lastFrameTime) > NetworkDataLossTimeout {
			b.applyFailsafeLocked(i, p)
		}
	}
}

func (b *Bridge) applyFailsafeLocked(idx int, p *Port) {
	switch p.Failsafe {
	case iface.FailsafeZero:
		var zero [512]byte
		b.LightSet.SetData(idx, zero[:], true)
	case iface.FailsafeFull:
		var full [512]byte
		for i := range full {
			full[i] = 0xFF
		}
		b.LightSet.SetData(idx, full[:], true)
	case iface.FailsafeHoldLast:
		// No-op: LightSet already holds the last frame written.
	default:
		// PlaybackScene/RecordScene are host-side behaviors out of this
		// core's scope (§1); nothing to do here.
	}
	p.isTransmitting = false
}

// IsMerging reports whether port idx currently has two simultaneous
// sources, consulted by rdm.Subsystem.ShouldGateSacn (§4.9) to decide
// whether RDM traffic should suppress sACN-driven output.
func (b *Bridge) IsMerging(idx int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if idx < 0 || idx >= MaxPorts || b.Ports[idx].merger == nil {
		return false
	}
	return b.Ports[idx].merger.IsMerging()
}

// LoopbackData feeds a locally-read Input port's data directly into the
// co-addressed Output port's merger as a synthetic source identified by
// localIP, bypassing the network entirely (§4.5 "Local merge": "if a local
// Input port and a local Output port carry the same port_address and same
// protocol, the Input is looped back into the merger as a synthetic source
// using the local IP, filling slot A if free else slot B"). Each call is
// stamped with the next value of a per-port loopback sequence counter, so the
// merger's out-of-order window never rejects a fresh tick's data. The merged
// output is written to the LightSet.
func (b *Bridge) LoopbackData(universe uint16, localIP net.IP, data []byte) {
	b.mu.Lock()
	idx, p := b.portForUniverseLocked(universe)
	var seq uint8
	if p != nil {
		p.loopbackSeq++
		seq = p.loopbackSeq
	}
	b.mu.Unlock()
	if p == nil {
		return
	}

	id := merge.IdentityFromIP(localIP)
	id.CID = localLoopbackCID(localIP)

	res := p.merger.Ingest(id, data, seq, time.Now())
	if !res.Accepted {
		return
	}
	snap := p.merger.Snapshot()
	b.LightSet.SetData(idx, snap.Data[:snap.Length], true)
}

// localLoopbackCID derives a stable pseudo-CID from localIP so the merger's
// IP+CID identity comparison (UseCID, sACN ports) treats repeated loopback
// calls as the same source rather than a new one each time.
func localLoopbackCID(localIP net.IP) [16]byte {
	var cid [16]byte
	if ip4 := localIP.To4(); ip4 != nil {
		copy(cid[:4], ip4)
	}
	return cid
}
