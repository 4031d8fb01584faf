// Package stats tracks per-source, per-universe DMX traffic (frame/byte
// counters, last-seen time) and renders a periodic human-readable report,
// the ambient traffic-visibility concern the distilled spec leaves implicit
// (adapted from the teacher's per-universe sender bookkeeping).
package stats

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Protocol distinguishes which wire protocol a tracked source arrived on.
type Protocol int

const (
	ProtocolArtNet Protocol = iota
	ProtocolSacn
)

func (p Protocol) String() string {
	if p == ProtocolSacn {
		return "sacn"
	}
	return "artnet"
}

type sourceKey struct {
	protocol Protocol
	universe uint16
	ip       string
}

type sourceStats struct {
	frames    uint64
	bytes     uint64
	firstSeen time.Time
	lastSeen  time.Time
}

// Tracker accumulates traffic counters keyed by (protocol, universe,
// source IP). Safe for concurrent use from a node's and a bridge's receive
// paths.
type Tracker struct {
	mu      sync.Mutex
	sources map[sourceKey]*sourceStats
}

// New creates an empty Tracker.
func New() *Tracker {
	return &Tracker{sources: make(map[sourceKey]*sourceStats)}
}

// Record accounts for one inbound DMX frame of frameLen bytes from ip on
// universe, carried over protocol.
func (t *Tracker) Record(protocol Protocol, universe uint16, ip net.IP, frameLen int) {
	key := sourceKey{protocol: protocol, universe: universe, ip: ip.String()}

	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sources[key]
	if !ok {
		s = &sourceStats{firstSeen: time.Now()}
		t.sources[key] = s
	}
	s.frames++
	s.bytes += uint64(frameLen)
	s.lastSeen = time.Now()
}

// Expire drops any source that has not sent a frame in maxAge, mirroring a
// source's eviction from the merge engine once it has gone silent.
func (t *Tracker) Expire(maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge)

	t.mu.Lock()
	defer t.mu.Unlock()
	for k, s := range t.sources {
		if s.lastSeen.Before(cutoff) {
			delete(t.sources, k)
		}
	}
}

// SourceReport is a consistent snapshot of one tracked source's counters.
type SourceReport struct {
	Protocol Protocol
	Universe uint16
	IP       string
	Frames   uint64
	Bytes    uint64
	Age      time.Duration
}

// Sources returns a snapshot of every tracked source, unordered.
func (t *Tracker) Sources() []SourceReport {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	out := make([]SourceReport, 0, len(t.sources))
	for k, s := range t.sources {
		out = append(out, SourceReport{
			Protocol: k.protocol,
			Universe: k.universe,
			IP:       k.ip,
			Frames:   s.frames,
			Bytes:    s.bytes,
			Age:      now.Sub(s.lastSeen),
		})
	}
	return out
}

// Report renders one human-readable line per tracked source, for the
// periodic stats log (§1 ambient logging).
func (t *Tracker) Report() []string {
	sources := t.Sources()
	lines := make([]string, 0, len(sources))
	for _, s := range sources {
		lines = append(lines, fmt.Sprintf(
			"[stats] %s universe %d from %s: %s frames, %s, last seen %s",
			s.Protocol, s.Universe, s.IP,
			humanize.Comma(int64(s.Frames)),
			humanize.Bytes(s.Bytes),
			humanize.Time(time.Now().Add(-s.Age)),
		))
	}
	return lines
}
