// Package sacn implements the E1.31 (sACN) half of the wire codec
// (component C1), priority/synchronization arbitration (C7 SacnBridge), and
// the controller's data/discovery/sync transmit side (C8 SacnController).
package sacn

import (
	"encoding/binary"
	"errors"
	"net"
)

const (
	Port = 5568

	SourceNameLength = 64

	VectorRootE131Data     = 0x00000004
	VectorRootE131Extended = 0x00000008

	VectorE131DataPacket        = 0x00000002
	VectorE131ExtendedSync      = 0x00000001
	VectorE131ExtendedDiscovery = 0x00000002

	VectorDMPSetProperty = 0x02

	VectorUniverseDiscovery = 0x00000001
)

// Framing-layer Options bits (§4.7).
const (
	OptionPreviewData      = 0x80
	OptionStreamTerminated = 0x40
	OptionForceSync        = 0x20
)

// DiscoveryUniversesPerPage bounds how many universe numbers fit in one
// ArtNet-independent Universe Discovery packet before paging (§4.8).
const DiscoveryUniversesPerPage = 512

var (
	// packetIdentifier is the 12-byte ACN root-layer identifier,
	// "ASC-E1.17\0\0\0" (§6.2).
	packetIdentifier = [12]byte{
		0x41, 0x53, 0x43, 0x2d, 0x45, 0x31, 0x2e, 0x31, 0x37, 0x00, 0x00, 0x00,
	}

	ErrPacketTooShort  = errors.New("sacn: packet too short")
	ErrBadIdentifier   = errors.New("sacn: bad ACN packet identifier")
	ErrUnknownVector   = errors.New("sacn: unrecognized root/framing vector")
)

func flagsLength(length int) uint16 {
	return 0x7000 | uint16(length)
}

func pduLength(flagsAndLength uint16) int {
	return int(flagsAndLength & 0x0FFF)
}

func classifyRoot(data []byte) (vector uint32, err error) {
	if len(data) < 38 {
		return 0, ErrPacketTooShort
	}
	if [12]byte(data[4:16]) != packetIdentifier {
		return 0, ErrBadIdentifier
	}
	return binary.BigEndian.Uint32(data[18:22]), nil
}

// DataPacket is a parsed E1.31 data packet (§4.7/§6.2).
type DataPacket struct {
	CID                   [16]byte
	SourceName            string
	Priority              uint8
	SynchronizationAddress uint16
	Sequence              uint8
	Options               uint8
	Universe              uint16
	Data                  []byte
}

// PreviewData reports whether the packet's Preview_Data option bit is set
// (§4.7: "frames are silently discarded from live output").
func (p *DataPacket) PreviewData() bool { return p.Options&OptionPreviewData != 0 }

// StreamTerminated reports whether the Stream_Terminated option bit is set.
func (p *DataPacket) StreamTerminated() bool { return p.Options&OptionStreamTerminated != 0 }

// ForceSync reports whether the sender wants unsynchronized loss-of-sync
// frames discarded rather than played out immediately.
func (p *DataPacket) ForceSync() bool { return p.Options&OptionForceSync != 0 }

// SyncPacket is a parsed E1.31 Synchronization packet (§4.7).
type SyncPacket struct {
	CID                    [16]byte
	Sequence               uint8
	SynchronizationAddress uint16
}

// DiscoveryPacket is a parsed Universe Discovery packet (§4.8).
type DiscoveryPacket struct {
	CID        [16]byte
	SourceName string
	Page       uint8
	LastPage   uint8
	Universes  []uint16
}

// ParsePacket classifies a raw UDP payload and decodes it into a DataPacket,
// SyncPacket, or DiscoveryPacket. Like artnet.ParsePacket it reports a
// malformed frame through a sentinel error (ErrPacketTooShort,
// ErrBadIdentifier, ErrUnknownVector) (§4.1).
func ParsePacket(data []byte) (pkt interface{}, err error) {
	rootVector, err := classifyRoot(data)
	if err != nil {
		return nil, err
	}

	var cid [16]byte
	copy(cid[:], data[22:38])

	switch rootVector {
	case VectorRootE131Data:
		return parseDataPacket(data, cid)
	case VectorRootE131Extended:
		return parseExtended(data, cid)
	default:
		return nil, ErrUnknownVector
	}
}

func parseDataPacket(data []byte, cid [16]byte) (*DataPacket, error) {
	if len(data) < 126 {
		return nil, ErrPacketTooShort
	}
	framingVector := binary.BigEndian.Uint32(data[40:44])
	if framingVector != VectorE131DataPacket {
		return nil, ErrUnknownVector
	}

	dmpLen := pduLength(binary.BigEndian.Uint16(data[115:117]))
	propCount := int(binary.BigEndian.Uint16(data[123:125]))
	slotCount := propCount - 1 // excludes the START code
	end := 126 + slotCount
	if end > len(data) {
		end = len(data)
	}
	if dmpLen > 0 && 115+dmpLen < end {
		end = 115 + dmpLen
	}
	if end > 126+512 {
		end = 126 + 512
	}
	if end < 126 {
		end = 126
	}

	return &DataPacket{
		CID:                    cid,
		SourceName:             trimNull(data[44:108]),
		Priority:               data[108],
		SynchronizationAddress: binary.BigEndian.Uint16(data[109:111]),
		Sequence:               data[111],
		Options:                data[112],
		Universe:               binary.BigEndian.Uint16(data[113:115]),
		Data:                   append([]byte(nil), data[126:end]...),
	}, nil
}

func parseExtended(data []byte, cid [16]byte) (interface{}, error) {
	if len(data) < 44 {
		return nil, ErrPacketTooShort
	}
	framingVector := binary.BigEndian.Uint32(data[40:44])
	switch framingVector {
	case VectorE131ExtendedSync:
		if len(data) < 49 {
			return nil, ErrPacketTooShort
		}
		return &SyncPacket{
			CID:                    cid,
			Sequence:               data[44],
			SynchronizationAddress: binary.BigEndian.Uint16(data[45:47]),
		}, nil
	case VectorE131ExtendedDiscovery:
		if len(data) < 120 {
			return nil, ErrPacketTooShort
		}
		universeCount := (len(data) - 120) / 2
		pkt := &DiscoveryPacket{
			CID:        cid,
			SourceName: trimNull(data[44:108]),
			Page:       data[118],
			LastPage:   data[119],
		}
		for i := 0; i < universeCount; i++ {
			pkt.Universes = append(pkt.Universes, binary.BigEndian.Uint16(data[120+i*2:122+i*2]))
		}
		return pkt, nil
	default:
		return nil, ErrUnknownVector
	}
}

func trimNull(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// BuildDataPacket encodes an E1.31 data packet. syncAddress is 0 when the
// source does not require synchronization (§4.7).
func BuildDataPacket(universe uint16, sequence uint8, sourceName string, cid [16]byte, priority uint8, syncAddress uint16, options uint8, data []byte) []byte {
	dataLen := len(data)
	if dataLen > 512 {
		dataLen = 512
	}

	pktLen := 126 + dataLen
	buf := make([]byte, pktLen)

	binary.BigEndian.PutUint16(buf[0:2], 0x0010)
	binary.BigEndian.PutUint16(buf[2:4], 0x0000)
	copy(buf[4:16], packetIdentifier[:])
	binary.BigEndian.PutUint16(buf[16:18], flagsLength(pktLen-16))
	binary.BigEndian.PutUint32(buf[18:22], VectorRootE131Data)
	copy(buf[22:38], cid[:])

	binary.BigEndian.PutUint16(buf[38:40], flagsLength(pktLen-38))
	binary.BigEndian.PutUint32(buf[40:44], VectorE131DataPacket)
	copy(buf[44:108], sourceName)
	buf[108] = priority
	binary.BigEndian.PutUint16(buf[109:111], syncAddress)
	buf[111] = sequence
	buf[112] = options
	binary.BigEndian.PutUint16(buf[113:115], universe)

	dmpLen := 11 + dataLen
	binary.BigEndian.PutUint16(buf[115:117], flagsLength(dmpLen))
	buf[117] = VectorDMPSetProperty
	buf[118] = 0xa1
	binary.BigEndian.PutUint16(buf[119:121], 0)
	binary.BigEndian.PutUint16(buf[121:123], 1)
	binary.BigEndian.PutUint16(buf[123:125], uint16(dataLen+1))
	buf[125] = 0
	copy(buf[126:], data[:dataLen])

	return buf
}

// BuildSyncPacket encodes an E1.31 Synchronization packet (§4.7).
func BuildSyncPacket(cid [16]byte, sequence uint8, syncAddress uint16) []byte {
	const pktLen = 49
	buf := make([]byte, pktLen)

	binary.BigEndian.PutUint16(buf[0:2], 0x0010)
	binary.BigEndian.PutUint16(buf[2:4], 0x0000)
	copy(buf[4:16], packetIdentifier[:])
	binary.BigEndian.PutUint16(buf[16:18], flagsLength(pktLen-16))
	binary.BigEndian.PutUint32(buf[18:22], VectorRootE131Extended)
	copy(buf[22:38], cid[:])

	binary.BigEndian.PutUint16(buf[38:40], flagsLength(pktLen-38))
	binary.BigEndian.PutUint32(buf[40:44], VectorE131ExtendedSync)
	buf[44] = sequence
	binary.BigEndian.PutUint16(buf[45:47], syncAddress)

	return buf
}

// BuildDiscoveryPacket encodes one page of a Universe Discovery packet
// (§4.8's Page/LastPage paging).
func BuildDiscoveryPacket(sourceName string, cid [16]byte, page, lastPage uint8, universes []uint16) []byte {
	universeCount := len(universes)
	if universeCount > DiscoveryUniversesPerPage {
		universeCount = DiscoveryUniversesPerPage
	}

	pktLen := 120 + universeCount*2
	buf := make([]byte, pktLen)

	binary.BigEndian.PutUint16(buf[0:2], 0x0010)
	binary.BigEndian.PutUint16(buf[2:4], 0x0000)
	copy(buf[4:16], packetIdentifier[:])
	binary.BigEndian.PutUint16(buf[16:18], flagsLength(pktLen-16))
	binary.BigEndian.PutUint32(buf[18:22], VectorRootE131Extended)
	copy(buf[22:38], cid[:])

	binary.BigEndian.PutUint16(buf[38:40], flagsLength(pktLen-38))
	binary.BigEndian.PutUint32(buf[40:44], VectorE131ExtendedDiscovery)
	copy(buf[44:108], sourceName)
	binary.BigEndian.PutUint32(buf[108:112], 0)

	binary.BigEndian.PutUint16(buf[112:114], flagsLength(pktLen-112))
	binary.BigEndian.PutUint32(buf[114:118], VectorUniverseDiscovery)
	buf[118] = page
	buf[119] = lastPage
	for i := 0; i < universeCount; i++ {
		binary.BigEndian.PutUint16(buf[120+i*2:122+i*2], universes[i])
	}

	return buf
}

// MulticastAddr computes the per-universe multicast group (§4.2).
func MulticastAddr(universe uint16) *net.UDPAddr {
	return &net.UDPAddr{
		IP:   net.IPv4(239, 255, byte(universe>>8), byte(universe&0xff)),
		Port: Port,
	}
}

// DiscoveryAddr is the fixed universe-discovery multicast group (§4.2).
var DiscoveryAddr = &net.UDPAddr{
	IP:   net.IPv4(239, 255, 250, 214),
	Port: Port,
}
