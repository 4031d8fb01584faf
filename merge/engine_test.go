package merge

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idFor(ip string) Identity {
	return IdentityFromIP(net.ParseIP(ip))
}

// S1 — single-source DMX to an output port.
func TestSingleSource(t *testing.T) {
	p := NewPort(HTP, false)
	data := make([]byte, 512)
	for i := range data {
		data[i] = byte(i)
	}

	res := p.Ingest(idFor("10.0.0.2"), data, 0, time.Now())
	require.True(t, res.Accepted)
	assert.True(t, res.Changed)
	assert.False(t, res.IsMerging)

	snap := p.Snapshot()
	assert.Equal(t, 512, snap.Length)
	assert.Equal(t, data, snap.Data[:])
	assert.Equal(t, "10.0.0.2", snap.SourceA.String())
	assert.Nil(t, snap.SourceB)
}

// S2 — HTP merge of two Art-Net sources.
func TestHTPMerge(t *testing.T) {
	p := NewPort(HTP, false)
	a := []byte{0x10, 0x20, 0x30}
	b := []byte{0x30, 0x10, 0x20}

	now := time.Now()
	res1 := p.Ingest(idFor("10.0.0.2"), a, 0, now)
	require.True(t, res1.Accepted)
	assert.False(t, res1.IsMerging)

	res2 := p.Ingest(idFor("10.0.0.3"), b, 0, now)
	require.True(t, res2.Accepted)
	assert.True(t, res2.IsMerging)

	snap := p.Snapshot()
	assert.Equal(t, []byte{0x30, 0x20, 0x30}, snap.Data[:3])
	assert.True(t, snap.IsMerging)
}

// S3 — LTP merge ordering: most recent frame wins bit-for-bit.
func TestLTPMerge(t *testing.T) {
	p := NewPort(LTP, false)
	a := []byte{0x10, 0x20, 0x30}
	b := []byte{0x30, 0x10, 0x20}

	now := time.Now()
	p.Ingest(idFor("10.0.0.2"), a, 0, now)
	p.Ingest(idFor("10.0.0.3"), b, 0, now)

	snap := p.Snapshot()
	assert.Equal(t, b, snap.Data[:3])
}

// Third distinct source on a full port is dropped (§3.7 invariant 1).
func TestThirdSourceDropped(t *testing.T) {
	p := NewPort(HTP, false)
	now := time.Now()
	p.Ingest(idFor("10.0.0.2"), []byte{1}, 0, now)
	p.Ingest(idFor("10.0.0.3"), []byte{2}, 0, now)

	res := p.Ingest(idFor("10.0.0.4"), []byte{3}, 0, now)
	assert.False(t, res.Accepted)

	snap := p.Snapshot()
	assert.Equal(t, "10.0.0.2", snap.SourceA.String())
	assert.Equal(t, "10.0.0.3", snap.SourceB.String())
}

// Invariant 5/S6-adjacent: a stale source is evicted after MergeTimeout.
func TestMergeTimeoutEviction(t *testing.T) {
	p := NewPort(HTP, false)
	t0 := time.Now()
	p.Ingest(idFor("10.0.0.2"), []byte{1, 2, 3}, 0, t0)

	p.Sweep(t0.Add(MergeTimeout + time.Second))

	snap := p.Snapshot()
	assert.Nil(t, snap.SourceA)
	assert.False(t, snap.IsMerging)
}

// sACN identity distinguishes sources sharing an IP by CID.
func TestSacnIdentityByCID(t *testing.T) {
	p := NewPort(HTP, true)
	ip := net.ParseIP("10.0.0.2")
	id1 := IdentityFromIP(ip)
	id1.CID[0] = 1
	id2 := IdentityFromIP(ip)
	id2.CID[0] = 2

	now := time.Now()
	res1 := p.Ingest(id1, []byte{5}, 0, now)
	require.True(t, res1.Accepted)
	res2 := p.Ingest(id2, []byte{9}, 0, now)
	require.True(t, res2.Accepted)
	assert.True(t, res2.IsMerging)
}

// S4 — sACN sequence window: a frame whose sequence falls behind the last
// accepted one within (-20, 0] is discarded as out of order (§3.7
// invariant 4).
func TestSacnSequenceWindow(t *testing.T) {
	p := NewPort(HTP, true)
	id := idFor("10.0.0.2")
	now := time.Now()

	res1 := p.Ingest(id, []byte{1}, 10, now)
	require.True(t, res1.Accepted)

	res2 := p.Ingest(id, []byte{2}, 12, now)
	require.True(t, res2.Accepted)

	res3 := p.Ingest(id, []byte{3}, 11, now)
	assert.False(t, res3.Accepted)
	assert.True(t, res3.OutOfOrder)

	snap := p.Snapshot()
	assert.Equal(t, byte(2), snap.Data[0])
}

// A sequence jump larger than the out-of-order window (e.g. a wraparound
// past 0, which never transmits per §3.7 invariant 3) is accepted.
func TestSacnSequenceWraparoundAccepted(t *testing.T) {
	p := NewPort(HTP, true)
	id := idFor("10.0.0.2")
	now := time.Now()

	p.Ingest(id, []byte{1}, 250, now)
	res := p.Ingest(id, []byte{2}, 5, now)
	assert.True(t, res.Accepted)
}

// Art-Net ports (UseCID=false) never reject on sequence.
func TestArtNetIgnoresSequenceWindow(t *testing.T) {
	p := NewPort(HTP, false)
	id := idFor("10.0.0.2")
	now := time.Now()

	p.Ingest(id, []byte{1}, 10, now)
	res := p.Ingest(id, []byte{2}, 9, now)
	assert.True(t, res.Accepted)
}

func TestEvictExplicit(t *testing.T) {
	p := NewPort(HTP, false)
	now := time.Now()
	id := idFor("10.0.0.2")
	p.Ingest(id, []byte{1, 2}, 0, now)
	p.Evict(id)

	snap := p.Snapshot()
	assert.Nil(t, snap.SourceA)
	assert.False(t, snap.IsMerging)
}

// HTP merge idempotence/commutativity over the common prefix (§8.1.3).
func FuzzHTPCommutative(f *testing.F) {
	f.Add([]byte{0x10, 0x20, 0x30}, []byte{0x30, 0x10, 0x20})
	f.Add([]byte{}, []byte{1, 2, 3})

	f.Fuzz(func(t *testing.T, a, b []byte) {
		if len(a) > 512 || len(b) > 512 {
			t.Skip()
		}
		now := time.Now()

		p1 := NewPort(HTP, false)
		p1.Ingest(idFor("10.0.0.2"), a, 0, now)
		p1.Ingest(idFor("10.0.0.3"), b, 0, now)
		s1 := p1.Snapshot()

		p2 := NewPort(HTP, false)
		p2.Ingest(idFor("10.0.0.3"), b, 0, now)
		p2.Ingest(idFor("10.0.0.2"), a, 0, now)
		s2 := p2.Snapshot()

		common := len(a)
		if len(b) < common {
			common = len(b)
		}
		if !bytes.Equal(s1.Data[:common], s2.Data[:common]) {
			t.Fatalf("HTP merge not commutative over common prefix")
		}
	})
}
