package main

import (
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/gopatchy/dmxnode/artnet"
	"github.com/gopatchy/dmxnode/config"
	"github.com/gopatchy/dmxnode/iface"
	"github.com/gopatchy/dmxnode/portaddr"
	"github.com/gopatchy/dmxnode/sacn"
	"github.com/gopatchy/dmxnode/stats"
)

// statsInterval is how often the human-readable traffic summary prints.
const statsInterval = 10 * time.Second

// tickInterval drives Node.Tick/Bridge.Tick, the cooperative loop step (§5).
const tickInterval = 1 * time.Second

func init() {
	log.SetFlags(log.Ltime | log.Lmicroseconds)
}

// receiver is the Start/Stop surface common to a bound-socket Receiver and a
// PcapReceiver, letting main pick either transport behind one variable.
type receiver interface {
	Start()
	Stop()
}

func main() {
	configPath := flag.String("config", "node.toml", "path to node/controller TOML config")
	artnetListen := flag.String("artnet-listen", ":6454", "artnet listen address (empty to disable)")
	sacnIface := flag.String("sacn-interface", "", "network interface for sACN multicast")
	pcapIface := flag.String("pcap-interface", "", "capture via this interface instead of bound UDP sockets, to coexist with other Art-Net/sACN software on the host (§6.4)")
	envFile := flag.String("env", ".env", "optional dotenv file loaded into the process environment after flags are parsed")
	debug := flag.Bool("debug", false, "log inbound/outbound frame summaries")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		log.Printf("[env] %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[config] %v", err)
	}
	ports := cfg.Normalize()

	localIP, localMAC, broadcastIP := detectLocalInterface()
	h := &host{
		mac:         localMAC,
		localIP:     localIP,
		broadcastIP: broadcastIP,
		uuid:        uuid.New(),
	}

	statsTracker := stats.New()
	lights := newLogLightSet(*debug)
	dmx := newLogDmxPort(*debug)
	provider := newNullRdmProvider()

	node := artnet.NewNode(h, lights, dmx, cfg.Identity.ShortName, cfg.Identity.LongName)
	node.Oem = uint16(cfg.Identity.Oem)
	node.Stats = statsTracker

	sacnBridge := sacn.NewBridge(lights)
	sacnBridge.Stats = statsTracker
	sacnBridge.LocalIP = h.LocalIP()
	sacnBridge.RdmGate = func(idx int) bool {
		if idx < 0 || idx >= artnet.MaxPorts || node.Ports[idx].Rdm == nil {
			return false
		}
		return node.Ports[idx].Rdm.ShouldGateSacn(sacnBridge.IsMerging(idx))
	}

	artSender, err := artnet.NewSender(h.BroadcastIP())
	if err != nil {
		log.Fatalf("[artnet] sender: %v", err)
	}
	defer artSender.Close()
	node.SetSender(artSender)

	artController := artnet.NewController(artSender, h.LocalIP())
	artController.SetMasterAttenuator(false, 255)

	cid := [16]byte(h.uuid)
	sacnSender, err := sacn.NewSender(cfg.Identity.ShortName, cid, *sacnIface)
	if err != nil {
		log.Fatalf("[sacn] sender: %v", err)
	}
	defer sacnSender.Close()

	sacnController := sacn.NewController(sacnSender)
	sacnController.SetMasterAttenuator(false, 255)

	var inputs []inputRelay
	for _, p := range ports {
		switch p.Protocol {
		case iface.ProtocolArtNet:
			node.ConfigurePort(p.Index, p.Direction, p.Protocol, p.Address, p.MergeMode)
			if p.RdmEnabled {
				node.AttachRdm(p.Index, provider)
			}
			if p.Direction == iface.PortOutput {
				artController.RegisterUniverse(p.Address)
			}
			if p.Direction == iface.PortInput {
				inputs = append(inputs, inputRelay{index: p.Index, protocol: p.Protocol, address: p.Address})
			}
		case iface.ProtocolSacn:
			sacnBridge.ConfigurePort(p.Index, uint16(p.Address), p.MergeMode, p.Failsafe, p.OutputStyle)
			sacnController.RegisterUniverse(uint16(p.Address))
			if p.Direction == iface.PortInput {
				inputs = append(inputs, inputRelay{index: p.Index, protocol: p.Protocol, address: p.Address})
			}
		}
	}

	if err := node.Start(); err != nil {
		log.Fatalf("[artnet] node start: %v", err)
	}
	defer node.Stop()

	var artReceiver receiver
	if *pcapIface != "" {
		pr, err := artnet.NewPcapReceiver(*pcapIface, node)
		if err != nil {
			log.Fatalf("[artnet] pcap receiver: %v", err)
		}
		artReceiver = pr
		log.Printf("[artnet] capturing iface=%s", *pcapIface)
	} else if *artnetListen != "" {
		addr, err := net.ResolveUDPAddr("udp4", *artnetListen)
		if err != nil {
			log.Fatalf("[artnet] listen addr: %v", err)
		}
		r, err := artnet.NewReceiver(addr, node)
		if err != nil {
			log.Fatalf("[artnet] receiver: %v", err)
		}
		artReceiver = r
		log.Printf("[artnet] listening addr=%s", addr)
	}
	if artReceiver != nil {
		artReceiver.Start()
	}

	var sacnReceiver receiver
	if *pcapIface != "" {
		// Capture mode coexists with another process already holding the
		// multicast sockets (§6.4), so it observes traffic on the wire
		// rather than joining groups itself.
		pr, err := sacn.NewPcapReceiver(*pcapIface, sacnBridge)
		if err != nil {
			log.Fatalf("[sacn] pcap receiver: %v", err)
		}
		sacnReceiver = pr
	} else {
		r, err := sacn.NewReceiver(*sacnIface, sacnBridge)
		if err != nil {
			log.Fatalf("[sacn] receiver: %v", err)
		}
		sacnBridge.AttachReceiver(r)
		if err := sacnBridge.Join(); err != nil {
			log.Printf("[sacn] join: %v", err)
		}
		sacnReceiver = r
	}
	sacnReceiver.Start()
	sacnController.StartDiscovery()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		artController.Run(stop)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runCooperativeLoop(stop, node, sacnBridge, statsTracker, dmx, artController, sacnController, inputs, h.LocalIP())
	}()

	log.Printf("[main] %s online, identity=%s", cfg.Identity.ShortName, h.uuid)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("[main] shutting down")
	close(stop)
	wg.Wait()

	if artReceiver != nil {
		artReceiver.Stop()
	}
	sacnReceiver.Stop()
}

// inputRelay names one locally-sourced input port that the cooperative loop
// polls each tick. Its data is looped back directly into any co-addressed,
// same-protocol local Output port's merger (§4.5 "Local merge") and also
// handed to the matching protocol's controller to drive remote nodes on the
// network (§4.6); these are independent concerns and do not double-count
// each other (the node/bridge recognize and discard their own looped-back
// wire traffic, see HandleDmx/handleData).
type inputRelay struct {
	index    int
	protocol iface.Protocol
	address  portaddr.Address
}

// runCooperativeLoop advances the node/bridge internal timers, relays
// locally-sourced input ports both into the local merge engine and onto the
// wire, and emits the periodic traffic report: the one main-loop tick §5
// describes for a process without dedicated hardware interrupts to drive it.
func runCooperativeLoop(
	stop <-chan struct{},
	node *artnet.Node,
	bridge *sacn.Bridge,
	tr *stats.Tracker,
	dmx *logDmxPort,
	artController *artnet.Controller,
	sacnController *sacn.Controller,
	inputs []inputRelay,
	localIP net.IP,
) {
	tick := time.NewTicker(tickInterval)
	defer tick.Stop()
	report := time.NewTicker(statsInterval)
	defer report.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-tick.C:
			node.Tick(now)
			bridge.Tick(now)
			sentArtNet := false
			for _, in := range inputs {
				data, _, ok := dmx.Read(in.index)
				if !ok {
					continue
				}
				switch in.protocol {
				case iface.ProtocolArtNet:
					node.LoopbackDmx(localIP, in.address, data)
					if err := artController.SendDmx(in.address, data); err != nil {
						log.Printf("[artnet] send port=%d: %v", in.index, err)
					}
					sentArtNet = true
				case iface.ProtocolSacn:
					bridge.LoopbackData(uint16(in.address), localIP, data)
					if err := sacnController.SendDmx(uint16(in.address), 100, 0, 0, data); err != nil {
						log.Printf("[sacn] send port=%d: %v", in.index, err)
					}
				}
			}
			if sentArtNet {
				if err := artController.SendSync(); err != nil {
					log.Printf("[artnet] sync: %v", err)
				}
			}
		case <-report.C:
			tr.Expire(5 * time.Minute)
			for _, line := range tr.Report() {
				log.Printf("[stats] %s", line)
			}
		}
	}
}

// host implements iface.Host from locally detected network facts; it is the
// one concrete global this core accepts (§9).
type host struct {
	mac         net.HardwareAddr
	localIP     net.IP
	broadcastIP net.IP
	uuid        uuid.UUID
}

func (h *host) NowMillis() uint32 {
	return uint32(time.Now().UnixMilli())
}

func (h *host) MAC() [6]byte {
	var out [6]byte
	if len(h.mac) == 6 {
		copy(out[:], h.mac)
	}
	return out
}

func (h *host) LocalIP() net.IP     { return h.localIP }
func (h *host) BroadcastIP() net.IP { return h.broadcastIP }
func (h *host) IsDHCP() bool        { return true }
func (h *host) UUID() [16]byte      { return [16]byte(h.uuid) }

// detectLocalInterface picks the first non-loopback, up interface with an
// IPv4 address and derives its broadcast address.
func detectLocalInterface() (ip net.IP, mac net.HardwareAddr, broadcast net.IP) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return net.IPv4zero, nil, net.IPv4bcast
	}

	for _, i := range ifaces {
		if i.Flags&net.FlagLoopback != 0 || i.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := i.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipnet.IP.To4()
			if ip4 == nil {
				continue
			}
			mask := ipnet.Mask
			if len(mask) != 4 {
				continue
			}
			bcast := make(net.IP, 4)
			for j := 0; j < 4; j++ {
				bcast[j] = ip4[j] | ^mask[j]
			}
			return ip4, i.HardwareAddr, bcast
		}
	}
	return net.IPv4zero, nil, net.IPv4bcast
}
