package artnet

import (
	"sort"
	"time"

	"github.com/gopatchy/dmxnode/portaddr"
)

// PollInterval is the controller's discovery poll cadence (§4.6,
// original_source/artnetpolltable.h POLL_INTERVAL_SECONDS).
const PollInterval = 8 * time.Second

// PollTableSize bounds the number of distinct node IPs tracked, mirroring
// artnet::POLL_TABLE_SIZE_ENRIES.
const PollTableSize = 255

// NodeUniverseLimit bounds how many (bound-index, universe) pairs a single
// node entry tracks, mirroring artnet::POLL_TABLE_SIZE_NODE_UNIVERSES.
const NodeUniverseLimit = 64

// evictAfter is the 1.5*POLL_INTERVAL staleness threshold from
// artnetpolltable.cpp's Clean().
const evictAfter = PollInterval * 3 / 2

type nodeUniverse struct {
	universe       portaddr.Address
	shortName      string
	lastUpdateTime time.Time
}

type nodeEntry struct {
	ip        uint32 // network-order uint32, the sort key
	mac       [6]byte
	longName  string
	universes []nodeUniverse
}

// PollTable is the sorted-by-IPv4 table of nodes discovered via PollReply,
// owned exclusively by Controller (component C4, §4.4). It supports the
// bounded binary-search insert/lookup and the incremental per-tick Clean
// sweep from original_source/lib-artnet/src/controller/artnetpolltable.cpp.
type PollTable struct {
	nodes []nodeEntry

	// inverted index: universe -> sorted list of contributing node IPs.
	byUniverse map[portaddr.Address][]uint32

	cleanTableIndex    int
	cleanUniverseIndex int
	cleanOffline       bool
}

func NewPollTable() *PollTable {
	return &PollTable{
		byUniverse:   make(map[portaddr.Address][]uint32),
		cleanOffline: true,
	}
}

// search returns the index of ip in t.nodes, or the insertion point and
// found=false, using the IPv4-network-order binary search from Add().
func (t *PollTable) search(ip uint32) (idx int, found bool) {
	lo, hi := 0, len(t.nodes)-1
	for lo <= hi {
		mid := lo + (hi-lo)/2
		if t.nodes[mid].ip < ip {
			lo = mid + 1
		} else if t.nodes[mid].ip > ip {
			hi = mid - 1
		} else {
			return mid, true
		}
	}
	return lo, false
}

// NodeReply is the subset of an ArtPollReply the poll table consumes.
type NodeReply struct {
	IP         uint32
	MAC        [6]byte
	BindIndex  uint8
	LongName   string
	ShortName  string
	NetSwitch  uint8
	SubSwitch  uint8
	PortTypes  [MaxPorts]byte
	SwOut      [MaxPorts]byte
}

// Add records or refreshes a node's entry and its output universes
// (artnet::ArtNetPollTable::Add). BindIndex > 1 (a secondary bound device)
// does not overwrite the primary device's MAC/LongName.
func (t *PollTable) Add(r NodeReply, now time.Time) {
	idx, found := t.search(r.IP)
	if !found {
		if len(t.nodes) >= PollTableSize {
			return
		}
		t.nodes = append(t.nodes, nodeEntry{})
		copy(t.nodes[idx+1:], t.nodes[idx:])
		t.nodes[idx] = nodeEntry{ip: r.IP}
	}

	entry := &t.nodes[idx]
	if r.BindIndex <= 1 {
		entry.mac = r.MAC
		entry.longName = r.LongName
	}

	for i := 0; i < MaxPorts; i++ {
		if r.PortTypes[i] != PortTypeOutputArtNet {
			continue
		}
		universe := portaddr.Compose(r.NetSwitch, r.SubSwitch, r.SwOut[i])

		univIdx := -1
		for j := range entry.universes {
			if entry.universes[j].universe == universe {
				univIdx = j
				break
			}
		}
		if univIdx < 0 {
			if len(entry.universes) >= NodeUniverseLimit {
				continue
			}
			entry.universes = append(entry.universes, nodeUniverse{
				universe:  universe,
				shortName: r.ShortName,
			})
			univIdx = len(entry.universes) - 1
		}
		entry.universes[univIdx].lastUpdateTime = now
		t.addUniverseIndex(universe, r.IP)
	}
}

func (t *PollTable) addUniverseIndex(universe portaddr.Address, ip uint32) {
	ips := t.byUniverse[universe]
	i := sort.Search(len(ips), func(i int) bool { return ips[i] >= ip })
	if i < len(ips) && ips[i] == ip {
		return
	}
	ips = append(ips, 0)
	copy(ips[i+1:], ips[i:])
	ips[i] = ip
	t.byUniverse[universe] = ips
}

func (t *PollTable) removeUniverseIndex(universe portaddr.Address, ip uint32) {
	ips := t.byUniverse[universe]
	for i, existing := range ips {
		if existing == ip {
			t.byUniverse[universe] = append(ips[:i], ips[i+1:]...)
			break
		}
	}
	if len(t.byUniverse[universe]) == 0 {
		delete(t.byUniverse, universe)
	}
}

// Clean advances the incremental eviction cursor by exactly one
// (node, universe-slot) pair per call, matching
// ArtNetPollTable::Clean()'s per-tick contract so a full sweep is amortized
// across many calls instead of blocking on one large pass.
func (t *PollTable) Clean(now time.Time) {
	if len(t.nodes) == 0 {
		return
	}
	if t.cleanTableIndex >= len(t.nodes) {
		t.cleanTableIndex = 0
		t.cleanUniverseIndex = 0
		t.cleanOffline = true
	}

	entry := &t.nodes[t.cleanTableIndex]

	if t.cleanUniverseIndex == 0 {
		t.cleanOffline = true
	}

	if t.cleanUniverseIndex < len(entry.universes) {
		u := &entry.universes[t.cleanUniverseIndex]
		if !u.lastUpdateTime.IsZero() {
			if now.Sub(u.lastUpdateTime) > evictAfter {
				stale := u.universe
				u.lastUpdateTime = time.Time{}
				t.removeUniverseIndex(stale, entry.ip)
			} else {
				t.cleanOffline = false
			}
		}
	}

	t.cleanUniverseIndex++

	limit := NodeUniverseLimit
	if len(entry.universes) > limit {
		limit = len(entry.universes)
	}
	if t.cleanUniverseIndex >= limit {
		if t.cleanOffline {
			t.removeNodeAt(t.cleanTableIndex)
		} else {
			t.cleanTableIndex++
		}
		t.cleanUniverseIndex = 0
		t.cleanOffline = true
	}
}

func (t *PollTable) removeNodeAt(idx int) {
	entry := t.nodes[idx]
	for _, u := range entry.universes {
		t.removeUniverseIndex(u.universe, entry.ip)
	}
	t.nodes = append(t.nodes[:idx], t.nodes[idx+1:]...)
}

// Size returns the number of distinct node IPs currently tracked.
func (t *PollTable) Size() int {
	return len(t.nodes)
}

// Sorted reports whether the table's primary index remains IP-sorted — an
// invariant the Add insertion path must never break (§8.3 "Insert 10k
// random PollReply... primary table sorted").
func (t *PollTable) Sorted() bool {
	return sort.SliceIsSorted(t.nodes, func(i, j int) bool {
		return t.nodes[i].ip < t.nodes[j].ip
	})
}

// NodesForUniverse returns the IPs of nodes currently contributing an
// output port bound to universe, for the controller's unicast/broadcast
// dispatch decision (§4.6).
func (t *PollTable) NodesForUniverse(universe portaddr.Address) []uint32 {
	ips := t.byUniverse[universe]
	out := make([]uint32, len(ips))
	copy(out, ips)
	return out
}
