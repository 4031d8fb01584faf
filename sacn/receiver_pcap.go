package sacn

import (
	"fmt"
	"log"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
)

// PcapReceiver listens for sACN packets via packet capture, letting
// diagnostics run alongside a process that already holds the multicast
// sockets (§6.4).
type PcapReceiver struct {
	handle  *pcap.Handle
	handler Handler
	done    chan struct{}
}

// NewPcapReceiver opens iface in promiscuous mode filtered to sACN's UDP
// port.
func NewPcapReceiver(iface string, handler Handler) (*PcapReceiver, error) {
	handle, err := pcap.OpenLive(iface, 1600, true, pcap.BlockForever)
	if err != nil {
		return nil, fmt.Errorf("pcap open: %w", err)
	}

	if err := handle.SetBPFFilter("udp port 5568"); err != nil {
		handle.Close()
		return nil, fmt.Errorf("pcap filter: %w", err)
	}

	return &PcapReceiver{
		handle:  handle,
		handler: handler,
		done:    make(chan struct{}),
	}, nil
}

// Start begins receiving packets on a background goroutine.
func (r *PcapReceiver) Start() {
	go r.receiveLoop()
}

// Stop closes the capture handle and ends the receive loop.
func (r *PcapReceiver) Stop() {
	close(r.done)
	r.handle.Close()
}

func (r *PcapReceiver) receiveLoop() {
	packetSource := gopacket.NewPacketSource(r.handle, r.handle.LinkType())

	for {
		select {
		case <-r.done:
			return
		case packet, ok := <-packetSource.Packets():
			if !ok {
				return
			}
			r.handlePacket(packet)
		}
	}
}

func (r *PcapReceiver) handlePacket(packet gopacket.Packet) {
	udpLayer := packet.Layer(layers.LayerTypeUDP)
	if udpLayer == nil {
		return
	}
	udp, ok := udpLayer.(*layers.UDP)
	if !ok {
		return
	}

	var srcIP [4]byte
	if ipLayer := packet.Layer(layers.LayerTypeIPv4); ipLayer != nil {
		if ip, ok := ipLayer.(*layers.IPv4); ok {
			copy(srcIP[:], ip.SrcIP.To4())
		}
	}

	pkt, err := ParsePacket(udp.Payload)
	if err != nil {
		return
	}

	src := &net.UDPAddr{IP: net.IP(srcIP[:]), Port: int(udp.SrcPort)}
	r.handler.HandlePacket(src, pkt)
}

// ListInterfaces returns the interface names available for packet capture.
func ListInterfaces() ([]string, error) {
	devices, err := pcap.FindAllDevs()
	if err != nil {
		return nil, err
	}

	var names []string
	for _, dev := range devices {
		names = append(names, dev.Name)
	}
	return names, nil
}

// DefaultInterface picks a reasonable default capture interface.
func DefaultInterface() string {
	devices, err := pcap.FindAllDevs()
	if err != nil {
		return "en0"
	}

	for _, dev := range devices {
		if len(dev.Addresses) > 0 && dev.Name != "lo0" && dev.Name != "lo" {
			log.Printf("sacn pcap using interface: %s", dev.Name)
			return dev.Name
		}
	}

	if len(devices) > 0 {
		return devices[0].Name
	}
	return "en0"
}
