package artnet

import "net"

// Sender is the raw UDP transport shared by Node and Controller: it knows
// nothing about Art-Net semantics, only how to put a pre-built frame on the
// wire to a unicast or broadcast destination (§4.1's WireCodec is strictly
// encode/decode; this is the I/O half component C5/C6 layer on top of it).
type Sender struct {
	conn          *net.UDPConn
	broadcastAddr *net.UDPAddr
}

// NewSender opens an ephemeral UDP4 socket for sending and resolves
// broadcastIP:6454 as the destination used by SendBroadcast.
func NewSender(broadcastIP net.IP) (*Sender, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		return nil, err
	}
	if err := conn.SetWriteBuffer(65536); err != nil {
		conn.Close()
		return nil, err
	}

	return &Sender{
		conn:          conn,
		broadcastAddr: &net.UDPAddr{IP: broadcastIP, Port: Port},
	}, nil
}

// SendTo writes data to a specific unicast destination on the Art-Net port.
func (s *Sender) SendTo(data []byte, ip net.IP) error {
	_, err := s.conn.WriteToUDP(data, &net.UDPAddr{IP: ip, Port: Port})
	return err
}

// SendBroadcast writes data to the configured broadcast address.
func (s *Sender) SendBroadcast(data []byte) error {
	_, err := s.conn.WriteToUDP(data, s.broadcastAddr)
	return err
}

// Close releases the socket.
func (s *Sender) Close() error {
	return s.conn.Close()
}

// BroadcastAddr returns the configured broadcast destination.
func (s *Sender) BroadcastAddr() *net.UDPAddr {
	return s.broadcastAddr
}
