package stats

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAccumulates(t *testing.T) {
	tr := New()
	ip := net.ParseIP("10.0.0.5")

	tr.Record(ProtocolArtNet, 1, ip, 512)
	tr.Record(ProtocolArtNet, 1, ip, 512)

	sources := tr.Sources()
	require.Len(t, sources, 1)
	assert.Equal(t, uint64(2), sources[0].Frames)
	assert.Equal(t, uint64(1024), sources[0].Bytes)
	assert.Equal(t, ProtocolArtNet, sources[0].Protocol)
	assert.Equal(t, uint16(1), sources[0].Universe)
}

func TestRecordDistinguishesProtocolUniverseAndIP(t *testing.T) {
	tr := New()
	tr.Record(ProtocolArtNet, 1, net.ParseIP("10.0.0.2"), 10)
	tr.Record(ProtocolSacn, 1, net.ParseIP("10.0.0.2"), 10)
	tr.Record(ProtocolArtNet, 2, net.ParseIP("10.0.0.2"), 10)
	tr.Record(ProtocolArtNet, 1, net.ParseIP("10.0.0.3"), 10)

	assert.Len(t, tr.Sources(), 4)
}

func TestExpireDropsStaleSources(t *testing.T) {
	tr := New()
	tr.Record(ProtocolArtNet, 1, net.ParseIP("10.0.0.2"), 10)

	tr.sources[sourceKey{protocol: ProtocolArtNet, universe: 1, ip: "10.0.0.2"}].lastSeen = time.Now().Add(-time.Hour)
	tr.Expire(time.Minute)

	assert.Empty(t, tr.Sources())
}

func TestReportFormatsOneLinePerSource(t *testing.T) {
	tr := New()
	tr.Record(ProtocolSacn, 7, net.ParseIP("10.0.0.9"), 512)

	lines := tr.Report()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "sacn")
	assert.Contains(t, lines[0], "universe 7")
	assert.Contains(t, lines[0], "10.0.0.9")
}
