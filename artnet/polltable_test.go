package artnet

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gopatchy/dmxnode/portaddr"
)

func replyFor(ip uint32, universe uint8) NodeReply {
	return NodeReply{
		IP:        ip,
		PortTypes: [MaxPorts]byte{PortTypeOutputArtNet, 0, 0, 0},
		SwOut:     [MaxPorts]byte{universe, 0, 0, 0},
	}
}

func TestPollTableAddAndLookup(t *testing.T) {
	table := NewPollTable()
	now := time.Now()

	table.Add(replyFor(0x0A000001, 1), now)
	table.Add(replyFor(0x0A000002, 1), now)

	assert.Equal(t, 2, table.Size())
	nodes := table.NodesForUniverse(portaddr.Compose(0, 0, 1))
	assert.ElementsMatch(t, []uint32{0x0A000001, 0x0A000002}, nodes)
}

func TestPollTableStaysSorted10k(t *testing.T) {
	table := NewPollTable()
	now := time.Now()
	r := rand.New(rand.NewSource(1))

	for i := 0; i < 10000; i++ {
		ip := r.Uint32()
		table.Add(replyFor(ip, uint8(i%16)), now)
	}

	require.LessOrEqual(t, table.Size(), PollTableSize)
	assert.True(t, table.Sorted())

	for universe, ips := range table.byUniverse {
		for _, ip := range ips {
			found := false
			for _, n := range table.nodes {
				if n.ip != ip {
					continue
				}
				for _, u := range n.universes {
					if u.universe == universe {
						found = true
					}
				}
			}
			assert.True(t, found, "reverse index entry not present in primary table")
		}
	}
}

func TestPollTableCleanEvictsStaleUniverse(t *testing.T) {
	table := NewPollTable()
	t0 := time.Now()
	table.Add(replyFor(0x0A000001, 1), t0)

	future := t0.Add(evictAfter + time.Second)
	for i := 0; i < NodeUniverseLimit+1; i++ {
		table.Clean(future)
	}

	assert.Equal(t, 0, table.Size())
	assert.Empty(t, table.NodesForUniverse(portaddr.Compose(0, 0, 1)))
}

func TestPollTableBindIndexDoesNotOverwritePrimary(t *testing.T) {
	table := NewPollTable()
	now := time.Now()

	r := replyFor(0x0A000001, 1)
	r.BindIndex = 1
	r.LongName = "primary"
	table.Add(r, now)

	r2 := replyFor(0x0A000001, 2)
	r2.BindIndex = 2
	r2.LongName = "secondary"
	table.Add(r2, now)

	assert.Equal(t, "primary", table.nodes[0].longName)
}
