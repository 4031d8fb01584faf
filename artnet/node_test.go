package artnet

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gopatchy/dmxnode/iface"
	"github.com/gopatchy/dmxnode/merge"
	"github.com/gopatchy/dmxnode/portaddr"
)

type fakeHost struct {
	localIP net.IP
}

func (h *fakeHost) NowMillis() uint32     { return 0 }
func (h *fakeHost) MAC() [6]byte          { return [6]byte{} }
func (h *fakeHost) LocalIP() net.IP       { return h.localIP }
func (h *fakeHost) BroadcastIP() net.IP   { return net.IPv4bcast }
func (h *fakeHost) IsDHCP() bool          { return false }
func (h *fakeHost) UUID() [16]byte        { return [16]byte{} }

type fakeLightSet struct {
	writes [][]byte
}

func (f *fakeLightSet) SetData(port int, data []byte, push bool) {
	buf := make([]byte, len(data))
	copy(buf, data)
	f.writes = append(f.writes, buf)
}
func (f *fakeLightSet) Start(port int)                                  {}
func (f *fakeLightSet) Stop(port int)                                   {}
func (f *fakeLightSet) Sync(port int)                                   {}
func (f *fakeLightSet) Blackout(on bool)                                {}
func (f *fakeLightSet) SetOutputStyle(port int, style iface.OutputStyle) {}

func (f *fakeLightSet) last() []byte { return f.writes[len(f.writes)-1] }

type fakeDmxPort struct{}

func (f *fakeDmxPort) Open(index int, dir iface.PortDir) error             { return nil }
func (f *fakeDmxPort) Read(index int) ([]byte, float64, bool)              { return nil, 0, false }
func (f *fakeDmxPort) Write(index int, data []byte) error                  { return nil }
func (f *fakeDmxPort) Close(index int) error                               { return nil }

type fakeRdmProvider struct {
	duringHandle func()
}

func (f *fakeRdmProvider) UIDCount(port int) int             { return 0 }
func (f *fakeRdmProvider) CopyUIDs(port int, dst []byte) int { return 0 }
func (f *fakeRdmProvider) FullDiscovery(port int)            {}
func (f *fakeRdmProvider) Handle(port int, request []byte) ([]byte, bool) {
	if f.duringHandle != nil {
		f.duringHandle()
	}
	return []byte{0x01}, true
}

func newTestNode(localIP net.IP) (*Node, *fakeLightSet) {
	ls := &fakeLightSet{}
	n := NewNode(&fakeHost{localIP: localIP}, ls, &fakeDmxPort{}, "short", "long")
	return n, ls
}

func TestHandleDmxMergesMatchingOutputPort(t *testing.T) {
	n, ls := newTestNode(net.ParseIP("10.0.0.1"))
	addr := portaddr.Compose(0, 0, 1)
	n.ConfigurePort(0, iface.PortOutput, iface.ProtocolArtNet, addr, merge.HTP)

	n.HandleDmx(net.ParseIP("10.0.0.5"), &DmxPacket{PortAddress: uint16(addr), Sequence: 1, Data: []byte{0x11, 0x22}})

	require.Len(t, ls.writes, 1)
	assert.Equal(t, []byte{0x11, 0x22}, ls.last())
}

func TestHandleDmxDiscardsOwnLoopedBackFrame(t *testing.T) {
	local := net.ParseIP("10.0.0.1")
	n, ls := newTestNode(local)
	addr := portaddr.Compose(0, 0, 1)
	n.ConfigurePort(0, iface.PortOutput, iface.ProtocolArtNet, addr, merge.HTP)

	n.HandleDmx(local, &DmxPacket{PortAddress: uint16(addr), Data: []byte{0xFF}})

	assert.Empty(t, ls.writes, "a frame from our own address must not be double-counted against LoopbackDmx")
}

func TestHandleDmxGatedWhileRdmBusy(t *testing.T) {
	n, ls := newTestNode(net.ParseIP("10.0.0.1"))
	addr := portaddr.Compose(0, 0, 1)
	n.ConfigurePort(0, iface.PortOutput, iface.ProtocolArtNet, addr, merge.HTP)

	provider := &fakeRdmProvider{}
	n.AttachRdm(0, provider)
	provider.duringHandle = func() {
		// §4.9: a DMX frame arriving while the request is in flight must be
		// dropped, not merged.
		n.HandleDmx(net.ParseIP("10.0.0.5"), &DmxPacket{PortAddress: uint16(addr), Data: []byte{0x99}})
	}

	n.HandleRdm(&RdmPacket{Net: addr.Net(), Address: addr.Sub()<<4 | addr.Universe(), Data: []byte{0xCC}})
	assert.Empty(t, ls.writes, "DMX arriving mid-transaction must be gated")

	// Once the transaction completes the gate releases again.
	n.HandleDmx(net.ParseIP("10.0.0.5"), &DmxPacket{PortAddress: uint16(addr), Data: []byte{0x99}})
	require.Len(t, ls.writes, 1)
	assert.Equal(t, byte(0x99), ls.last()[0])
}

func TestLoopbackDmxFillsSyntheticSource(t *testing.T) {
	local := net.ParseIP("10.0.0.1")
	n, ls := newTestNode(local)
	addr := portaddr.Compose(0, 0, 1)
	n.ConfigurePort(0, iface.PortOutput, iface.ProtocolArtNet, addr, merge.HTP)

	n.LoopbackDmx(local, addr, []byte{0x7F})

	require.Len(t, ls.writes, 1)
	assert.Equal(t, byte(0x7F), ls.last()[0])
}

func TestLoopbackDmxThenRemoteSourceMerges(t *testing.T) {
	local := net.ParseIP("10.0.0.1")
	n, ls := newTestNode(local)
	addr := portaddr.Compose(0, 0, 1)
	n.ConfigurePort(0, iface.PortOutput, iface.ProtocolArtNet, addr, merge.HTP)

	n.LoopbackDmx(local, addr, []byte{0x10, 0x10})
	n.HandleDmx(net.ParseIP("10.0.0.9"), &DmxPacket{PortAddress: uint16(addr), Data: []byte{0x30, 0x05}})

	require.NotEmpty(t, ls.writes)
	assert.Equal(t, []byte{0x30, 0x10}, ls.last())
}
