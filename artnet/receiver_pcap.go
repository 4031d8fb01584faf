package artnet

import (
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
)

// PcapReceiver listens for Art-Net packets via packet capture instead of a
// bound UDP socket, so it can coexist with another process already holding
// port 6454 (§6.4 "run alongside other Art-Net software on the same host").
type PcapReceiver struct {
	handle  *pcap.Handle
	handler Handler
	done    chan struct{}
}

// NewPcapReceiver opens iface in promiscuous mode filtered to Art-Net's UDP
// port. Requires packet-capture privilege on the host.
func NewPcapReceiver(iface string, handler Handler) (*PcapReceiver, error) {
	handle, err := pcap.OpenLive(iface, 1600, true, pcap.BlockForever)
	if err != nil {
		return nil, err
	}

	if err := handle.SetBPFFilter("udp port 6454"); err != nil {
		handle.Close()
		return nil, err
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

	data := udp.Payload
	if len(data) < 10 {
		return
	}

	opCode, pkt, err := ParsePacket(data)
	if err != nil {
		return
	}

	src := &net.UDPAddr{IP: net.IP(srcIP[:]), Port: int(udp.SrcPort)}
	r.handler.HandlePacket(src, opCode, pkt)
}
