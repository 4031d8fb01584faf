package main

import (
	"log"
	"sync"

	"github.com/gopatchy/dmxnode/iface"
)

// logLightSet is the default LightSet: it keeps the last frame written per
// port (so a failsafe's "hold last" has something to hold) and optionally
// logs every write, standing in for a real pixel/LED driver (§1 out of
// scope; specified only by the iface.LightSet contract).
type logLightSet struct {
	mu    sync.Mutex
	debug bool
	last  map[int][]byte
}

func newLogLightSet(debug bool) *logLightSet {
	return &logLightSet{debug: debug, last: make(map[int][]byte)}
}

func (l *logLightSet) SetData(port int, data []byte, push bool) {
	l.mu.Lock()
	buf := make([]byte, len(data))
	copy(buf, data)
	l.last[port] = buf
	l.mu.Unlock()

	if l.debug {
		log.Printf("[lightset] port=%d len=%d push=%t", port, len(data), push)
	}
}

func (l *logLightSet) Start(port int) {
	if l.debug {
		log.Printf("[lightset] port=%d start", port)
	}
}

func (l *logLightSet) Stop(port int) {
	if l.debug {
		log.Printf("[lightset] port=%d stop", port)
	}
}

func (l *logLightSet) Sync(port int) {
	if l.debug {
		log.Printf("[lightset] port=%d sync", port)
	}
}

func (l *logLightSet) Blackout(on bool) {
	log.Printf("[lightset] blackout=%t", on)
}

func (l *logLightSet) SetOutputStyle(port int, style iface.OutputStyle) {
	if l.debug {
		log.Printf("[lightset] port=%d output_style=%d", port, style)
	}
}

// logDmxPort stands in for the serial DMX512 UART driver (§1 out of scope):
// it satisfies iface.DmxPort by logging channel opens/closes and writes
// without touching any real wire timing.
type logDmxPort struct {
	mu    sync.Mutex
	debug bool
	dirs  map[int]iface.PortDir
}

func newLogDmxPort(debug bool) *logDmxPort {
	return &logDmxPort{debug: debug, dirs: make(map[int]iface.PortDir)}
}

func (d *logDmxPort) Open(index int, dir iface.PortDir) error {
	d.mu.Lock()
	d.dirs[index] = dir
	d.mu.Unlock()
	if d.debug {
		log.Printf("[dmxport] index=%d open dir=%d", index, dir)
	}
	return nil
}

func (d *logDmxPort) Read(index int) (data []byte, updatesPerSec float64, ok bool) {
	return nil, 0, false
}

func (d *logDmxPort) Write(index int, data []byte) error {
	if d.debug {
		log.Printf("[dmxport] index=%d write len=%d", index, len(data))
	}
	return nil
}

func (d *logDmxPort) Close(index int) error {
	d.mu.Lock()
	delete(d.dirs, index)
	d.mu.Unlock()
	if d.debug {
		log.Printf("[dmxport] index=%d close", index)
	}
	return nil
}

// nullRdmProvider stands in for the device-side RDM responder (§1 out of
// scope): an empty Table of Devices, discovery that finds nothing, and no
// response to any request. A host wiring in real RDM-capable fixtures
// supplies its own iface.RdmProvider in place of this one.
type nullRdmProvider struct{}

func newNullRdmProvider() *nullRdmProvider {
	return &nullRdmProvider{}
}

func (p *nullRdmProvider) UIDCount(port int) int                 { return 0 }
func (p *nullRdmProvider) CopyUIDs(port int, dst []byte) int     { return 0 }
func (p *nullRdmProvider) FullDiscovery(port int)                {}
func (p *nullRdmProvider) Handle(port int, request []byte) ([]byte, bool) {
	return nil, false
}
