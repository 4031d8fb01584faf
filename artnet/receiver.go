package artnet

import (
	"log"
	"net"
)

// Handler receives every successfully classified Art-Net frame; it switches
// on opCode/pkt to dispatch into Node and/or Controller, which hold the
// actual protocol state (§4.1's WireCodec stays a pure parser, so the
// transport layer here only needs one callback, not one per op-code).
type Handler interface {
	HandlePacket(src *net.UDPAddr, opCode uint16, pkt interface{})
}

// Receiver listens for Art-Net packets on a UDP socket.
type Receiver struct {
	conn    *net.UDPConn
	handler Handler
	done    chan struct{}
}

// NewReceiver binds addr (typically :6454) and starts dispatching parsed
// packets to handler once Start is called.
func NewReceiver(addr *net.UDPAddr, handler Handler) (*Receiver, error) {
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return nil, err
	}

	return &Receiver{
		conn:    conn,
		handler: handler,
		done:    make(chan struct{}),
	}, nil
}

// Start begins receiving packets on a background goroutine.
func (r *Receiver) Start() {
	go r.receiveLoop()
}

// Stop closes the socket and ends the receive loop.
func (r *Receiver) Stop() {
	close(r.done)
	r.conn.Close()
}

func (r *Receiver) receiveLoop() {
	buf := make([]byte, 1500)

	for {
		select {
		case <-r.done:
			return
		default:
		}

		n, src, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-r.done:
				return
			default:
				log.Printf("artnet: read error: %v", err)
				continue
			}
		}

		r.handlePacket(src, buf[:n])
	}
}

func (r *Receiver) handlePacket(src *net.UDPAddr, data []byte) {
	opCode, pkt, err := ParsePacket(data)
	if err != nil {
		return
	}
	r.handler.HandlePacket(src, opCode, pkt)
}

// LocalAddr returns the socket's bound address.
func (r *Receiver) LocalAddr() net.Addr {
	return r.conn.LocalAddr()
}

// SendTo writes a raw frame out through the receiver's own socket, letting a
// single bound port serve both send and receive (needed when a controller
// must reply from the same port it listens on).
func (r *Receiver) SendTo(data []byte, addr *net.UDPAddr) error {
	_, err := r.conn.WriteToUDP(data, addr)
	return err
}
