package artnet

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gopatchy/dmxnode/iface"
	"github.com/gopatchy/dmxnode/merge"
	"github.com/gopatchy/dmxnode/portaddr"
	"github.com/gopatchy/dmxnode/rdm"
	"github.com/gopatchy/dmxnode/stats"
)

// NetworkDataLossTimeout is the §4.5 "Network data loss" threshold: with no
// DMX frame for this long, the port's configured failsafe kicks in.
const NetworkDataLossTimeout = 10 * time.Second

// SyncHoldDuration is how long a node stays in synchronous mode after an
// ArtSync before falling back to immediate output (§4.5 "enter synchronous
// mode for 4 s").
const SyncHoldDuration = 4 * time.Second

// LedState is the front-panel LED/status mode toggled by Address port
// commands (§4.5, original_source's `m_State.Report`/locate-mute pattern).
type LedState int

const (
	LedNormal LedState = iota
	LedMute
	LedLocate
)

// Status is the node's overall lifecycle state (§3.8).
type Status int

const (
	StatusStandBy Status = iota
	StatusOn
	StatusOff
)

// reportRingSize bounds the NodeReport history surfaced in PollReply
// (§7 "Local programming errors").
const reportRingSize = 4

// Port is one bound port group's state (§3.3/§3.4 merged into a single
// per-index record, matching how a single physical port group is
// configured as either Input or Output on real hardware).
type Port struct {
	Direction   iface.PortDir
	Protocol    iface.Protocol
	Address     portaddr.Address
	MergeMode   merge.Mode
	OutputStyle iface.OutputStyle
	RdmEnabled  bool
	Failsafe    iface.FailsafeMode

	merger *merge.Port
	Rdm    *rdm.Subsystem

	isTransmitting bool
	synchronous    bool
	syncUntil      time.Time
	dataPending    bool
	lastFrameTime  time.Time

	disabledByController bool
	destinationIP        net.IP
}

// Node is the Art-Net node state machine (component C5): Poll/PollReply,
// Dmx, Sync, Address, Input, IpProg, Trigger, and RDM dispatch, hosting a
// merge.Port per output port.
type Node struct {
	mu sync.Mutex

	Host     iface.Host
	LightSet iface.LightSet
	DmxPort  iface.DmxPort
	Trigger  iface.TriggerSink
	sender   *Sender
	Stats    *stats.Tracker

	ShortName string
	LongName  string
	Oem       uint16
	Style     uint8

	Ports [MaxPorts]*Port

	status Status

	diagControllers map[[4]byte]uint8 // IP -> requested diag priority
	ledState        LedState
	reportRing      [reportRingSize]string
	reportHead      int

	pendingReplies []pendingReply
}

type pendingReply struct {
	due  time.Time
	data []byte
}

// NewNode creates a node with all ports disabled; call ConfigurePort to
// bring a port group up.
func NewNode(host iface.Host, lightSet iface.LightSet, dmxPort iface.DmxPort, shortName, longName string) *Node {
	n := &Node{
		Host:            host,
		LightSet:        lightSet,
		DmxPort:         dmxPort,
		ShortName:       shortName,
		LongName:        longName,
		diagControllers: make(map[[4]byte]uint8),
		status:          StatusStandBy,
	}
	for i := range n.Ports {
		n.Ports[i] = &Port{Direction: iface.PortDisabled}
	}
	return n
}

// ConfigurePort brings up port index idx (0-based, up to MaxPorts) with the
// given direction/protocol/address. Output ports get a merge.Port; RDM
// subsystems are attached by the caller via AttachRdm once provisioned.
func (n *Node) ConfigurePort(idx int, dir iface.PortDir, protocol iface.Protocol, address portaddr.Address, mode merge.Mode) {
	n.mu.Lock()
	defer n.mu.Unlock()

	p := &Port{
		Direction: dir,
		Protocol:  protocol,
		Address:   address,
		MergeMode: mode,
	}
	if dir == iface.PortOutput {
		p.merger = merge.NewPort(mode, protocol == iface.ProtocolSacn)
	}
	n.Ports[idx] = p
}

// AttachRdm enables RDM on port idx.
func (n *Node) AttachRdm(idx int, provider iface.RdmProvider) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Ports[idx].RdmEnabled = true
	n.Ports[idx].Rdm = rdm.NewSubsystem(provider, idx)
}

// Start transitions StandBy -> On (§3.8): it opens DmxPort channels for
// every configured port and marks the node live. Only Start propagates an
// error to the caller per §7's error policy; everything past this point is
// handled internally.
func (n *Node) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, p := range n.Ports {
		if p.Direction == iface.PortDisabled {
			continue
		}
		if err := n.DmxPort.Open(i, p.Direction); err != nil {
			return err
		}
	}
	n.status = StatusOn
	return nil
}

// Stop transitions On -> Off: flush outputs to their failsafe state, leave
// multicast groups is the sACN bridge's job (N/A here), and release DmxPort
// channels (§3.8).
func (n *Node) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, p := range n.Ports {
		if p.Direction == iface.PortDisabled {
			continue
		}
		n.applyFailsafeLocked(i, p)
		_ = n.DmxPort.Close(i)
	}
	n.status = StatusOff
}

func (n *Node) recordReport(format string) {
	n.reportRing[n.reportHead] = format
	n.reportHead = (n.reportHead + 1) % reportRingSize
	n.emitDiagDataLocked(format)
}

// emitDiagDataLocked broadcasts (or unicasts to the sole requester) a
// DiagData frame carrying text, gated by whichever controllers asked for
// diagnostics via Poll (§3.7 invariant 7, `artnetnodehandlepoll.cpp`'s
// diagnostic-broadcast behavior). A no-op until a sender is attached or no
// controller has requested diagnostics.
func (n *Node) emitDiagDataLocked(text string) {
	if n.sender == nil || len(n.diagControllers) == 0 {
		return
	}
	priority, broadcast := n.effectiveDiagPriority()
	frame := BuildDiagData(priority, text)
	if broadcast {
		_ = n.sender.SendBroadcast(frame)
		return
	}
	for ip := range n.diagControllers {
		_ = n.sender.SendTo(frame, net.IP(ip[:]))
	}
}

// NodeReport returns the most recent report line, surfaced in PollReply
// (§7 "a NodeReport string records the last error code").
func (n *Node) NodeReport() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	idx := (n.reportHead - 1 + reportRingSize) % reportRingSize
	return n.reportRing[idx]
}

// HandlePoll records the sender's diagnostic preference and enqueues one
// PollReply per bound port group with an output (§4.5 "enqueue a PollReply
// per bound index"); DrainReplies hands them out. Per §3.7 invariant 7, when more
// than one controller has requested diagnostics the node broadcasts and
// uses the minimum requested priority.
func (n *Node) HandlePoll(senderIP net.IP, poll *PollPacket) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if poll.Flags&0x04 != 0 { // SEND_ARTP_ON_CHANGE style "send me diagnostics" bit
		var key [4]byte
		if ip4 := senderIP.To4(); ip4 != nil {
			copy(key[:], ip4)
		}
		n.diagControllers[key] = poll.DiagPriority
	}

	n.enqueueReplies(time.Now())
}

func (n *Node) effectiveDiagPriority() (priority uint8, broadcast bool) {
	if len(n.diagControllers) == 0 {
		return 0, false
	}
	broadcast = len(n.diagControllers) > 1
	first := true
	for _, p := range n.diagControllers {
		if first || p < priority {
			priority = p
			first = false
		}
	}
	return priority, broadcast
}

func (n *Node) enqueueReplies(now time.Time) {
	bound := n.boundOutputIndexesLocked()
	for _, idx := range bound {
		n.pendingReplies = append(n.pendingReplies, pendingReply{
			due:  now,
			data: n.buildPollReplyLocked(idx),
		})
	}
}

func (n *Node) boundOutputIndexesLocked() []int {
	var out []int
	for i, p := range n.Ports {
		if p.Direction == iface.PortOutput {
			out = append(out, i)
		}
	}
	return out
}

func (n *Node) buildPollReplyLocked(idx int) []byte {
	p := n.Ports[idx]

	var ip [4]byte
	if local := n.Host.LocalIP(); local != nil {
		if ip4 := local.To4(); ip4 != nil {
			copy(ip[:], ip4)
		}
	}

	var portTypes, goodOutput, swOut [MaxPorts]byte
	portTypes[0] = PortTypeOutputArtNet
	if p.isTransmitting {
		goodOutput[0] = 0x80
	}
	swOut[0] = p.Address.Universe()

	return BuildPollReply(PollReplyFields{
		IP:         ip,
		ShortName:  n.ShortName,
		LongName:   n.LongName,
		NodeReport: n.reportRing[(n.reportHead-1+reportRingSize)%reportRingSize],
		NetSwitch:  p.Address.Net(),
		SubSwitch:  p.Address.Sub(),
		Oem:        n.Oem,
		Style:      StyleNode,
		MAC:        n.Host.MAC(),
		NumPorts:   1,
		PortTypes:  portTypes,
		GoodOutput: goodOutput,
		SwOut:      swOut,
	})
}

// DrainReplies returns (and clears) any queued PollReply frames whose due
// time has passed. enqueueReplies makes every reply due at once, so no
// jitter delay is applied; HandlePacket drains the queue right after
// HandlePoll and broadcasts the frames.
func (n *Node) DrainReplies(now time.Time) [][]byte {
	n.mu.Lock()
	defer n.mu.Unlock()

	var ready [][]byte
	var remaining []pendingReply
	for _, r := range n.pendingReplies {
		if !now.Before(r.due) {
			ready = append(ready, r.data)
		} else {
			remaining = append(remaining, r)
		}
	}
	n.pendingReplies = remaining
	return ready
}

// HandleDmx feeds an inbound ArtDmx frame into the matching output port's
// merge engine and either writes immediately to LightSet or buffers for a
// pending Sync, per §4.5.
func (n *Node) HandleDmx(senderIP net.IP, dmx *DmxPacket) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if local := n.Host.LocalIP(); local != nil && senderIP.Equal(local) {
		// Already merged directly by LoopbackDmx; the OS handed our own
		// broadcast frame back to our receive socket. Ingesting it again
		// here would double-count the local source (§4.5/§9).
		return
	}

	for i, p := range n.Ports {
		if p.Direction != iface.PortOutput || p.Protocol != iface.ProtocolArtNet {
			continue
		}
		if portaddr.Address(dmx.PortAddress) != p.Address {
			continue
		}
		if p.RdmEnabled && p.Rdm != nil && p.Rdm.Busy() {
			// §4.9: pause DMX transmit on this port for the duration of an
			// in-flight RDM transaction.
			continue
		}

		now := time.Now()
		res := p.merger.Ingest(merge.IdentityFromIP(senderIP), dmx.Data, dmx.Sequence, now)
		if !res.Accepted {
			continue
		}
		p.isTransmitting = true
		p.lastFrameTime = now
		if n.Stats != nil {
			n.Stats.Record(stats.ProtocolArtNet, uint16(p.Address), senderIP, len(dmx.Data))
		}

		if p.synchronous && now.Before(p.syncUntil) {
			p.dataPending = true
			continue
		}

		snap := p.merger.Snapshot()
		n.LightSet.SetData(i, snap.Data[:snap.Length], true)
	}
}

// LoopbackDmx feeds a locally-read Input port's data directly into the
// co-addressed Output port's merger as a synthetic source identified by
// localIP, bypassing the network entirely (§4.5 "Local merge": "if a local
// Input port and a local Output port carry the same port_address and same
// protocol, the Input is looped back into the merger as a synthetic source
// using the local IP, filling slot A if free else slot B").
func (n *Node) LoopbackDmx(localIP net.IP, address portaddr.Address, data []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, p := range n.Ports {
		if p.Direction != iface.PortOutput || p.Protocol != iface.ProtocolArtNet {
			continue
		}
		if p.Address != address {
			continue
		}
		if p.RdmEnabled && p.Rdm != nil && p.Rdm.Busy() {
			continue
		}

		now := time.Now()
		res := p.merger.Ingest(merge.IdentityFromIP(localIP), data, 0, now)
		if !res.Accepted {
			continue
		}
		p.isTransmitting = true
		p.lastFrameTime = now

		if p.synchronous && now.Before(p.syncUntil) {
			p.dataPending = true
			continue
		}

		snap := p.merger.Snapshot()
		n.LightSet.SetData(i, snap.Data[:snap.Length], true)
	}
}

// HandleSync enters synchronous mode on every output port for
// SyncHoldDuration and flushes any pending buffered frame (§4.5).
func (n *Node) HandleSync() {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := time.Now()
	for i, p := range n.Ports {
		if p.Direction != iface.PortOutput {
			continue
		}
		p.synchronous = true
		p.syncUntil = now.Add(SyncHoldDuration)
		if p.dataPending {
			snap := p.merger.Snapshot()
			n.LightSet.SetData(i, snap.Data[:snap.Length], false)
			n.LightSet.Sync(i)
			p.dataPending = false
		}
	}
}

// HandleAddress applies remote programming (§4.5): names, net/sub/universe,
// and port commands. A net/sub/universe byte changes the address only when
// its bit 7 is set (the low bits carry the new value); any other value,
// including the 0x7F no-change sentinel and 0x00, leaves the address as it
// is, so no reset to a default address is applied. Invalid commands are
// ignored and recorded to the NodeReport ring rather than returned as an
// error (§7).
func (n *Node) HandleAddress(addr *AddressPacket) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if addr.ShortName != "" {
		n.ShortName = addr.ShortName
	}
	if addr.LongName != "" {
		n.LongName = addr.LongName
	}

	for i, p := range n.Ports {
		if p.Direction == iface.PortDisabled {
			continue
		}
		if addr.NetSwitch&0x80 != 0 {
			newNet := addr.NetSwitch & 0x7F
			p.Address = portaddr.Compose(newNet, p.Address.Sub(), p.Address.Universe())
		}
		if addr.SubSwitch&0x80 != 0 {
			p.Address = portaddr.Compose(p.Address.Net(), addr.SubSwitch&0x0F, p.Address.Universe())
		}
		if p.Direction == iface.PortOutput && addr.SwOut[i]&0x80 != 0 {
			p.Address = portaddr.Compose(p.Address.Net(), p.Address.Sub(), addr.SwOut[i]&0x0F)
		}
		if p.Direction == iface.PortInput && addr.SwIn[i]&0x80 != 0 {
			p.Address = portaddr.Compose(p.Address.Net(), p.Address.Sub(), addr.SwIn[i]&0x0F)
		}
	}

	n.applyCommandLocked(addr.Command)
}

func (n *Node) applyCommandLocked(command uint8) {
	switch command {
	case CommandNone:
		return
	case CommandCancelMerge:
		for _, p := range n.Ports {
			if p.Direction == iface.PortOutput {
				p.merger.Reset()
			}
		}
	case CommandLedNormal:
		n.ledState = LedNormal
	case CommandLedMute:
		n.ledState = LedMute
	case CommandLedLocate:
		n.ledState = LedLocate
	case CommandResetRxFlags:
		for _, p := range n.Ports {
			p.disabledByController = false
		}
	default:
		switch {
		case command >= CommandClearOutput0 && command < CommandClearOutput0+MaxPorts:
			idx := int(command - CommandClearOutput0)
			if n.Ports[idx].Direction == iface.PortOutput {
				n.Ports[idx].merger.Reset()
				n.LightSet.Blackout(true)
			}
		case command >= CommandMergeLTP0 && command < CommandMergeLTP0+MaxPorts:
			idx := int(command - CommandMergeLTP0)
			if n.Ports[idx].merger == nil {
				n.recordReport(fmt.Sprintf("bad Address command %#x", command))
				return
			}
			n.Ports[idx].MergeMode = merge.LTP
			n.Ports[idx].merger.SetMode(merge.LTP)
		case command >= CommandMergeHTP0 && command < CommandMergeHTP0+MaxPorts:
			idx := int(command - CommandMergeHTP0)
			if n.Ports[idx].merger == nil {
				n.recordReport(fmt.Sprintf("bad Address command %#x", command))
				return
			}
			n.Ports[idx].MergeMode = merge.HTP
			n.Ports[idx].merger.SetMode(merge.HTP)
		default:
			n.recordReport(fmt.Sprintf("bad Address command %#x", command))
		}
	}
}

// HandleInput enables or disables an input port (§4.5).
func (n *Node) HandleInput(idx int, disable bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if idx < 0 || idx >= MaxPorts {
		return
	}
	n.Ports[idx].disabledByController = disable
}

// HandleTrigger invokes the host's trigger handler when the OEM code
// matches the node's own, or is the wildcard (§4.5).
func (n *Node) HandleTrigger(t *TriggerPacket) {
	if n.Trigger == nil {
		return
	}
	if t.OemCode != OemWildcard && t.OemCode != n.Oem {
		return
	}
	n.Trigger.OnTrigger(uint16(t.Key), uint16(t.SubKey), t.Data)
}

// HandleIpProg returns the ArtIpProgReply payload (§4.5): it reports the
// host's current local IP, echoes the request's subnet mask and port, and
// sets the DHCP bit from Host.IsDHCP. The request's Command bits are not
// acted on: the local IP, netmask and gateway are never reconfigured. Host is the only
// legitimate place this core reaches for environment facts it cannot
// observe itself.
func (n *Node) HandleIpProg(p *IpProgPacket) []byte {
	status := uint8(0)
	if n.Host.IsDHCP() {
		status |= IpProgCommandDHCPEnable
	}
	ip := [4]byte{}
	if local := n.Host.LocalIP(); local != nil {
		if ip4 := local.To4(); ip4 != nil {
			copy(ip[:], ip4)
		}
	}
	return BuildIpProgReply(ip, p.ProgSm, p.ProgUDPPort, status)
}

// HandleTodRequest delegates to the matching port's RDM subsystem and
// returns the TodData frames, split into MaxUIDsPerPacket-sized blocks
// (§4.9). A port without RDM enabled, or that does not match any requested
// address, yields no frames.
func (n *Node) HandleTodRequest(req *TodRequestPacket) [][]byte {
	n.mu.Lock()
	defer n.mu.Unlock()

	var frames [][]byte
	for i, p := range n.Ports {
		if p.Direction != iface.PortOutput || !p.RdmEnabled {
			continue
		}
		if p.Address.Net() != req.Net&0x7F {
			continue
		}
		lowByte := p.Address.Sub()<<4 | p.Address.Universe()
		if req.AddCount > 0 && !addressListed(req.Address[:req.AddCount], lowByte) {
			continue
		}
		p.Rdm.Refresh()
		frames = append(frames, n.buildTodDataFramesLocked(i, p)...)
	}
	return frames
}

func addressListed(list []byte, lowByte uint8) bool {
	for _, b := range list {
		if b == lowByte {
			return true
		}
	}
	return false
}

func (n *Node) buildTodDataFramesLocked(idx int, p *Port) [][]byte {
	tod := p.Rdm.TOD()
	lowByte := p.Address.Sub()<<4 | p.Address.Universe()

	if len(tod) == 0 {
		return [][]byte{BuildTodData(p.Address.Net(), uint8(idx+1), lowByte, 0, 0, nil)}
	}

	var frames [][]byte
	var block uint8
	for off := 0; off < len(tod); off += rdm.MaxUIDsPerBlock {
		end := off + rdm.MaxUIDsPerBlock
		if end > len(tod) {
			end = len(tod)
		}
		frames = append(frames, BuildTodData(p.Address.Net(), uint8(idx+1), lowByte, len(tod), block, tod[off:end]))
		block++
	}
	return frames
}

// HandleTodControl runs full discovery (AtcFlush) and returns the
// resulting TodData frames (§4.9).
func (n *Node) HandleTodControl(ctrl *TodControlPacket) [][]byte {
	n.mu.Lock()
	defer n.mu.Unlock()

	if ctrl.Command != TodControlAtcFlush {
		return nil
	}

	lowByte := ctrl.Address
	for i, p := range n.Ports {
		if p.Direction != iface.PortOutput || !p.RdmEnabled {
			continue
		}
		if p.Address.Net() != ctrl.Net&0x7F {
			continue
		}
		if p.Address.Sub()<<4|p.Address.Universe() != lowByte {
			continue
		}
		p.Rdm.FullDiscovery()
		return n.buildTodDataFramesLocked(i, p)
	}
	return nil
}

// HandleRdm relays a non-discovery RDM request to the matching port's
// subsystem, gating DMX transmit for the duration per §4.9, and returns the
// wire-encoded response frame (or nil if the provider had none, e.g. a
// broadcast request).
func (n *Node) HandleRdm(req *RdmPacket) []byte {
	n.mu.Lock()
	var target *Port
	for _, p := range n.Ports {
		if p.Direction != iface.PortOutput || !p.RdmEnabled {
			continue
		}
		if p.Address.Sub()<<4|p.Address.Universe() == req.Address && p.Address.Net() == req.Net&0x7F {
			target = p
			break
		}
	}
	n.mu.Unlock()

	if target == nil {
		return nil
	}

	response, ok := target.Rdm.HandleRequest(req.Data)
	if !ok {
		return nil
	}
	return BuildRdm(req.Net, req.Address, response)
}

// CheckNetworkDataLoss applies the configured failsafe to any output port
// that has not seen a DMX frame in NetworkDataLossTimeout (§4.5).
func (n *Node) CheckNetworkDataLoss(now time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, p := range n.Ports {
		if p.Direction != iface.PortOutput || !p.isTransmitting {
			continue
		}
		if now.Sub(p.lastFrameTime) > NetworkDataLossTimeout {
			n.applyFailsafeLocked(i, p)
		}
	}
}

func (n *Node) applyFailsafeLocked(idx int, p *Port) {
	if p.Direction != iface.PortOutput {
		return
	}
	switch p.Failsafe {
	case iface.FailsafeZero:
		var zero [512]byte
		n.LightSet.SetData(idx, zero[:], true)
	case iface.FailsafeFull:
		var full [512]byte
		for i := range full {
			full[i] = 0xFF
		}
		n.LightSet.SetData(idx, full[:], true)
	case iface.FailsafeHoldLast:
		// No-op: LightSet already holds the last frame written.
	default:
		// PlaybackScene/RecordScene are host-side behaviors out of this
		// core's scope (§1); nothing to do here.
	}
	p.isTransmitting = false
}

// Tick advances the node's internal timers one cooperative-loop step
// (§5): synchronous-mode expiry and network-data-loss detection.
func (n *Node) Tick(now time.Time) {
	n.mu.Lock()
	for _, p := range n.Ports {
		if p.Direction == iface.PortOutput && p.synchronous && !now.Before(p.syncUntil) {
			p.synchronous = false
		}
	}
	n.mu.Unlock()

	n.CheckNetworkDataLoss(now)
}

// SetSender attaches the transport used to send replies/relays triggered by
// inbound packets (PollReply, TodData, Rdm response, IpProgReply).
func (n *Node) SetSender(sender *Sender) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sender = sender
}

// HandlePacket implements Handler, dispatching a parsed frame to the
// matching handler method. PollReply frames are broadcast; the other
// replies/relays that produce outbound bytes are sent back to src through
// the attached Sender, and TodData can fan out multiple frames. ArtInput is
// not dispatched (ParsePacket yields no payload for it), so HandleInput is
// only reached by direct calls.
func (n *Node) HandlePacket(src *net.UDPAddr, opCode uint16, pkt interface{}) {
	switch opCode {
	case OpPoll:
		if poll, ok := pkt.(*PollPacket); ok {
			n.HandlePoll(src.IP, poll)
			for _, frame := range n.DrainReplies(time.Now()) {
				_ = n.sender.SendBroadcast(frame)
			}
		}
	case OpDmx:
		if dmx, ok := pkt.(*DmxPacket); ok {
			n.HandleDmx(src.IP, dmx)
		}
	case OpSync:
		n.HandleSync()
	case OpAddress:
		if addr, ok := pkt.(*AddressPacket); ok {
			n.HandleAddress(addr)
		}
	case OpTrigger:
		if trig, ok := pkt.(*TriggerPacket); ok {
			n.HandleTrigger(trig)
		}
	case OpIpProg:
		if prog, ok := pkt.(*IpProgPacket); ok {
			reply := n.HandleIpProg(prog)
			_ = n.sender.SendTo(reply, src.IP)
		}
	case OpTodRequest:
		if req, ok := pkt.(*TodRequestPacket); ok {
			for _, frame := range n.HandleTodRequest(req) {
				_ = n.sender.SendTo(frame, src.IP)
			}
		}
	case OpTodControl:
		if ctrl, ok := pkt.(*TodControlPacket); ok {
			for _, frame := range n.HandleTodControl(ctrl) {
				_ = n.sender.SendTo(frame, src.IP)
			}
		}
	case OpRdm:
		if req, ok := pkt.(*RdmPacket); ok {
			if frame := n.HandleRdm(req); frame != nil {
				_ = n.sender.SendTo(frame, src.IP)
			}
		}
	}
}
