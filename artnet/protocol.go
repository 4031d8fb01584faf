// Package artnet implements the Art-Net 4 half of the wire codec (component
// C1), the poll table (C4), the node state machine (C5) and the controller
// state machine (C6).
package artnet

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	Port = 6454

	ProtocolVersion = 14

	ShortNameLength = 18
	LongNameLength  = 64
	ReportLength    = 64
	MaxPorts        = 4
	MacSize         = 6
	DmxLength       = 512
)

// OpCodes, §4.1.
const (
	OpPoll          = 0x2000
	OpPollReply     = 0x2100
	OpDiagData      = 0x2300
	OpDmx           = 0x5000
	OpSync          = 0x5200
	OpAddress       = 0x6000
	OpInput         = 0x7000
	OpTodRequest    = 0x8000
	OpTodData       = 0x8100
	OpTodControl    = 0x8200
	OpRdm           = 0x8300
	OpRdmSub        = 0x8400
	OpTimeCode      = 0x9700
	OpTimeSync      = 0x9800
	OpTrigger       = 0x9900
	OpDirectory     = 0x9A00
	OpDirectoryRepl = 0x9B00
	OpIpProg        = 0xF800
	OpIpProgReply   = 0xF900
)

// PortTypes bits, §6.1 ("PortTypes[0] has bit OutputArtNet set...").
const (
	PortTypeOutputArtNet = 0x80
	PortTypeInputArtNet  = 0x40
)

// Style codes for ArtPollReply.Style.
const (
	StyleNode       = 0x00
	StyleController = 0x01
	StyleMedia      = 0x02
	StyleRoute      = 0x03
	StyleBackup     = 0x04
	StyleConfig     = 0x05
	StyleVisual     = 0x06
)

// TodControl/TodRequest/Rdm Command values.
const (
	TodRequestTodFull = 0x00

	TodControlAtcNone  = 0x00
	TodControlAtcFlush = 0x01

	TodDataTodFull = 0x00

	RdmCommandArProcess = 0x00
)

// Address port-command values, §4.5/§4.8.
const (
	CommandNone         = 0x00
	CommandCancelMerge  = 0x01
	CommandLedNormal    = 0x02
	CommandLedMute      = 0x03
	CommandLedLocate    = 0x04
	CommandResetRxFlags = 0x05
	CommandMergeLTP0    = 0x10
	CommandMergeHTP0    = 0x50
	CommandClearOutput0 = 0x90
)

// IpProg Command bits.
const (
	IpProgCommandProgEnable = 0x80
	IpProgCommandDHCPEnable = 0x40
)

// OemWildcard accepts a trigger regardless of the node's configured OEM code.
const OemWildcard = 0xFFFF

// MaxUIDsPerPacket is the §4.9/original_source `ArtTodData::BlockCount`
// paging threshold: TOD lists longer than this are split across multiple
// packets sharing increasing BlockCount values.
const MaxUIDsPerPacket = 200

var (
	ArtNetID = [8]byte{'A', 'r', 't', '-', 'N', 'e', 't', 0x00}

	ErrPacketTooShort      = errors.New("artnet: packet too short")
	ErrInvalidHeader       = errors.New("artnet: invalid Art-Net identifier")
	ErrBadProtocolRevision = errors.New("artnet: bad protocol revision")
)

// Header is the common prefix every Art-Net packet shares: the 8-byte
// identifier and the 16-bit little-endian OpCode (§4.1/§6.1).
type Header struct {
	ID     [8]byte
	OpCode uint16
}

func classify(data []byte) (uint16, error) {
	if len(data) < 12 {
		return 0, ErrPacketTooShort
	}
	if !bytes.Equal(data[:8], ArtNetID[:]) {
		return 0, ErrInvalidHeader
	}
	opCode := binary.LittleEndian.Uint16(data[8:10])
	// ArtPollReply has no ProtVer field: bytes 10-13 carry the node's IP.
	if opCode != OpPollReply && (data[10] != 0 || data[11] != ProtocolVersion) {
		return 0, ErrBadProtocolRevision
	}
	return opCode, nil
}

// ParsePacket decodes a raw UDP payload and returns its OpCode plus a typed
// payload. A recognized but structurally unhandled OpCode (Input, TimeCode,
// TimeSync, Directory, DirectoryReply, RdmSub), like an op-code outside the
// known set, returns pkt=nil, err=nil: the caller has enough to classify the
// frame even though this core does not act on it (§4.1: "fails with..." only
// applies to truly malformed frames).
func ParsePacket(data []byte) (opCode uint16, pkt interface{}, err error) {
	opCode, err = classify(data)
	if err != nil {
		return 0, nil, err
	}

	switch opCode {
	case OpPoll:
		pkt, err = parsePoll(data)
	case OpPollReply:
		pkt, err = parsePollReply(data)
	case OpDiagData:
		pkt, err = parseDiagData(data)
	case OpDmx:
		pkt, err = parseDmx(data)
	case OpSync:
		pkt, err = parseSync(data)
	case OpAddress:
		pkt, err = parseAddress(data)
	case OpTodRequest:
		pkt, err = parseTodRequest(data)
	case OpTodControl:
		pkt, err = parseTodControl(data)
	case OpTodData:
		pkt, err = parseTodData(data)
	case OpRdm:
		pkt, err = parseRdm(data)
	case OpIpProg:
		pkt, err = parseIpProg(data)
	case OpIpProgReply:
		pkt, err = parseIpProgReply(data)
	case OpTrigger:
		pkt, err = parseTrigger(data)
	default:
		return opCode, nil, nil
	}
	return opCode, pkt, err
}

func trimNull(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func opCodeName(opCode uint16) string {
	switch opCode {
	case OpPoll:
		return "Poll"
	case OpPollReply:
		return "PollReply"
	case OpDiagData:
		return "DiagData"
	case OpDmx:
		return "Dmx"
	case OpSync:
		return "Sync"
	case OpAddress:
		return "Address"
	case OpInput:
		return "Input"
	case OpTodRequest:
		return "TodRequest"
	case OpTodData:
		return "TodData"
	case OpTodControl:
		return "TodControl"
	case OpRdm:
		return "Rdm"
	case OpRdmSub:
		return "RdmSub"
	case OpTimeCode:
		return "TimeCode"
	case OpTimeSync:
		return "TimeSync"
	case OpTrigger:
		return "Trigger"
	case OpDirectory:
		return "Directory"
	case OpDirectoryRepl:
		return "DirectoryReply"
	case OpIpProg:
		return "IpProg"
	case OpIpProgReply:
		return "IpProgReply"
	default:
		return fmt.Sprintf("0x%04x", opCode)
	}
}

// ---- ArtPoll (0x2000), 18 bytes. The newer artnet.h layout (with the
// Art-Net 4 target port address range) supersedes packets.h's 14-byte
// definition per spec.md §9's "prefer the newer artnet.h struct" note.

type PollPacket struct {
	Flags                   uint8
	DiagPriority            uint8
	TargetPortAddressTop    uint16
	TargetPortAddressBottom uint16
}

const pollLen = 18

func parsePoll(data []byte) (*PollPacket, error) {
	if len(data) < pollLen {
		return nil, ErrPacketTooShort
	}
	return &PollPacket{
		Flags:                   data[12],
		DiagPriority:            data[13],
		TargetPortAddressTop:    binary.BigEndian.Uint16(data[14:16]),
		TargetPortAddressBottom: binary.BigEndian.Uint16(data[16:18]),
	}, nil
}

func BuildPoll(flags, diagPriority uint8) []byte {
	buf := make([]byte, pollLen)
	copy(buf[0:8], ArtNetID[:])
	binary.LittleEndian.PutUint16(buf[8:10], OpPoll)
	buf[10] = 0
	buf[11] = ProtocolVersion
	buf[12] = flags
	buf[13] = diagPriority
	return buf
}

// ---- ArtPollReply (0x2100), 239 bytes. Ground truth: artnet.h's
// struct ArtPollReply (preferred over packets.h's definition per spec.md
// §9's "prefer the newer artnet.h struct" note). Both total 239 bytes once
// every trailing field through Filler is counted, so the "PollReply is 207
// bytes" note in spec.md §6.1 names the length through the end of MAC[6] —
// an older wire revision — not the full frame this implementation emits and
// expects.

const PollReplyLen = 239

type PollReplyPacket struct {
	IPAddress   [4]byte
	Port        uint16
	VersInfoH   uint8
	VersInfoL   uint8
	NetSwitch   uint8
	SubSwitch   uint8
	OemHi       uint8
	Oem         uint8
	Ubea        uint8
	Status1     uint8
	EstaMan     [2]byte
	ShortName   [ShortNameLength]byte
	LongName    [LongNameLength]byte
	NodeReport  [ReportLength]byte
	NumPorts    uint16
	PortTypes   [MaxPorts]byte
	GoodInput   [MaxPorts]byte
	GoodOutput  [MaxPorts]byte
	SwIn        [MaxPorts]byte
	SwOut       [MaxPorts]byte
	AcnPriority uint8
	SwMacro     uint8
	SwRemote    uint8
	Style       uint8
	MAC         [MacSize]byte
	BindIP      [4]byte
	BindIndex   uint8
	Status2     uint8
	GoodOutputB [MaxPorts]byte
	Status3     uint8
	DefaultUID  [6]byte
	UserHi      uint8
	UserLo      uint8
	RefreshRate uint16
	QueuePolicy uint8
}

func parsePollReply(data []byte) (*PollReplyPacket, error) {
	if len(data) < PollReplyLen {
		return nil, ErrPacketTooShort
	}
	pkt := &PollReplyPacket{
		Port:        binary.LittleEndian.Uint16(data[14:16]),
		VersInfoH:   data[16],
		VersInfoL:   data[17],
		NetSwitch:   data[18],
		SubSwitch:   data[19],
		OemHi:       data[20],
		Oem:         data[21],
		Ubea:        data[22],
		Status1:     data[23],
		NumPorts:    binary.BigEndian.Uint16(data[172:174]),
		AcnPriority: data[194],
		SwMacro:     data[195],
		SwRemote:    data[196],
		Style:       data[200],
		BindIndex:   data[212],
		Status2:     data[213],
		Status3:     data[217],
		UserHi:      data[224],
		UserLo:      data[225],
		RefreshRate: binary.BigEndian.Uint16(data[226:228]),
		QueuePolicy: data[228],
	}
	copy(pkt.IPAddress[:], data[10:14])
	copy(pkt.EstaMan[:], data[24:26])
	copy(pkt.ShortName[:], data[26:44])
	copy(pkt.LongName[:], data[44:108])
	copy(pkt.NodeReport[:], data[108:172])
	copy(pkt.PortTypes[:], data[174:178])
	copy(pkt.GoodInput[:], data[178:182])
	copy(pkt.GoodOutput[:], data[182:186])
	copy(pkt.SwIn[:], data[186:190])
	copy(pkt.SwOut[:], data[190:194])
	copy(pkt.MAC[:], data[201:207])
	copy(pkt.BindIP[:], data[207:211])
	copy(pkt.GoodOutputB[:], data[213:217])
	copy(pkt.DefaultUID[:], data[218:224])
	return pkt, nil
}

// PollReplyFields is the subset of PollReplyPacket a node actually fills in
// when composing a reply; the rest (reserved/future fields) are transmitted
// as zero per spec.md §9.
type PollReplyFields struct {
	IP          [4]byte
	ShortName   string
	LongName    string
	NodeReport  string
	NetSwitch   uint8
	SubSwitch   uint8
	Oem         uint16
	Style       uint8
	MAC         [6]byte
	BindIP      [4]byte
	BindIndex   uint8
	AcnPriority uint8
	NumPorts    int
	PortTypes   [MaxPorts]byte
	GoodInput   [MaxPorts]byte
	GoodOutput  [MaxPorts]byte
	SwIn        [MaxPorts]byte
	SwOut       [MaxPorts]byte
}

func BuildPollReply(f PollReplyFields) []byte {
	buf := make([]byte, PollReplyLen)
	copy(buf[0:8], ArtNetID[:])
	binary.LittleEndian.PutUint16(buf[8:10], OpPollReply)
	copy(buf[10:14], f.IP[:])
	binary.LittleEndian.PutUint16(buf[14:16], 0x1936)
	buf[18] = f.NetSwitch
	buf[19] = f.SubSwitch
	binary.BigEndian.PutUint16(buf[20:22], f.Oem)
	copy(buf[26:44], f.ShortName)
	copy(buf[44:108], f.LongName)
	copy(buf[108:172], f.NodeReport)

	numPorts := f.NumPorts
	if numPorts > MaxPorts {
		numPorts = MaxPorts
	}
	binary.BigEndian.PutUint16(buf[172:174], uint16(numPorts))
	copy(buf[174:178], f.PortTypes[:])
	copy(buf[178:182], f.GoodInput[:])
	copy(buf[182:186], f.GoodOutput[:])
	copy(buf[186:190], f.SwIn[:])
	copy(buf[190:194], f.SwOut[:])
	buf[194] = f.AcnPriority
	buf[200] = f.Style
	copy(buf[201:207], f.MAC[:])
	copy(buf[207:211], f.BindIP[:])
	buf[212] = f.BindIndex
	return buf
}

// ---- ArtDiagData (0x2300).

type DiagDataPacket struct {
	Priority uint8
	Data     []byte
}

const diagDataHeaderLen = 18

func parseDiagData(data []byte) (*DiagDataPacket, error) {
	if len(data) < diagDataHeaderLen {
		return nil, ErrPacketTooShort
	}
	length := int(binary.BigEndian.Uint16(data[16:18]))
	end := diagDataHeaderLen + length
	if end > len(data) {
		end = len(data)
	}
	return &DiagDataPacket{
		Priority: data[13],
		Data:     append([]byte(nil), data[diagDataHeaderLen:end]...),
	}, nil
}

func BuildDiagData(priority uint8, text string) []byte {
	payload := append([]byte(text), 0)
	if len(payload) > 512 {
		payload = payload[:512]
	}
	buf := make([]byte, diagDataHeaderLen+len(payload))
	copy(buf[0:8], ArtNetID[:])
	binary.LittleEndian.PutUint16(buf[8:10], OpDiagData)
	buf[11] = ProtocolVersion
	buf[13] = priority
	binary.BigEndian.PutUint16(buf[16:18], uint16(len(payload)))
	copy(buf[diagDataHeaderLen:], payload)
	return buf
}

// ---- ArtDmx (0x5000).

type DmxPacket struct {
	Sequence    uint8
	Physical    uint8
	PortAddress uint16
	Data        []byte
}

const dmxHeaderLen = 18

func parseDmx(data []byte) (*DmxPacket, error) {
	if len(data) < dmxHeaderLen {
		return nil, ErrPacketTooShort
	}
	length := int(binary.BigEndian.Uint16(data[16:18]))
	end := dmxHeaderLen + length
	if end > len(data) {
		end = len(data)
	}
	if end < dmxHeaderLen {
		end = dmxHeaderLen
	}
	return &DmxPacket{
		Sequence:    data[12],
		Physical:    data[13],
		PortAddress: binary.LittleEndian.Uint16(data[14:16]),
		Data:        append([]byte(nil), data[dmxHeaderLen:end]...),
	}, nil
}

func BuildDmx(portAddress uint16, sequence, physical uint8, data []byte) []byte {
	length := len(data)
	if length > DmxLength {
		length = DmxLength
	}
	if length%2 != 0 {
		length++
	}
	if length < 2 {
		length = 2
	}

	buf := make([]byte, dmxHeaderLen+length)
	copy(buf[0:8], ArtNetID[:])
	binary.LittleEndian.PutUint16(buf[8:10], OpDmx)
	buf[11] = ProtocolVersion
	buf[12] = sequence
	buf[13] = physical
	binary.LittleEndian.PutUint16(buf[14:16], portAddress)
	binary.BigEndian.PutUint16(buf[16:18], uint16(length))
	copy(buf[dmxHeaderLen:], data)
	return buf
}

// ---- ArtSync (0x5200).

const syncLen = 14

func BuildSync() []byte {
	buf := make([]byte, syncLen)
	copy(buf[0:8], ArtNetID[:])
	binary.LittleEndian.PutUint16(buf[8:10], OpSync)
	buf[11] = ProtocolVersion
	return buf
}

func parseSync(data []byte) (struct{}, error) {
	if len(data) < syncLen {
		return struct{}{}, ErrPacketTooShort
	}
	return struct{}{}, nil
}

// ---- ArtAddress (0x6000), 107 bytes.

type AddressPacket struct {
	NetSwitch uint8
	ShortName string
	LongName  string
	SwIn      [MaxPorts]byte
	SwOut     [MaxPorts]byte
	SubSwitch uint8
	Command   uint8
}

const addressLen = 107

func parseAddress(data []byte) (*AddressPacket, error) {
	if len(data) < addressLen {
		return nil, ErrPacketTooShort
	}
	pkt := &AddressPacket{
		NetSwitch: data[12],
		ShortName: trimNull(data[14:32]),
		LongName:  trimNull(data[32:96]),
		SubSwitch: data[104],
		Command:   data[106],
	}
	copy(pkt.SwIn[:], data[96:100])
	copy(pkt.SwOut[:], data[100:104])
	return pkt, nil
}

func BuildAddress(p AddressPacket) []byte {
	buf := make([]byte, addressLen)
	copy(buf[0:8], ArtNetID[:])
	binary.LittleEndian.PutUint16(buf[8:10], OpAddress)
	buf[11] = ProtocolVersion
	buf[12] = p.NetSwitch
	copy(buf[14:32], p.ShortName)
	copy(buf[32:96], p.LongName)
	copy(buf[96:100], p.SwIn[:])
	copy(buf[100:104], p.SwOut[:])
	buf[104] = p.SubSwitch
	buf[106] = p.Command
	return buf
}

// ---- ArtTodRequest (0x8000), 56 bytes.

type TodRequestPacket struct {
	Net      uint8
	Command  uint8
	AddCount uint8
	Address  [32]byte
}

const todRequestLen = 56

func parseTodRequest(data []byte) (*TodRequestPacket, error) {
	if len(data) < todRequestLen {
		return nil, ErrPacketTooShort
	}
	pkt := &TodRequestPacket{
		Net:      data[21],
		Command:  data[22],
		AddCount: data[23],
	}
	copy(pkt.Address[:], data[24:56])
	return pkt, nil
}

func BuildTodRequest(net uint8, addresses []uint8) []byte {
	buf := make([]byte, todRequestLen)
	copy(buf[0:8], ArtNetID[:])
	binary.LittleEndian.PutUint16(buf[8:10], OpTodRequest)
	buf[11] = ProtocolVersion
	buf[21] = net
	buf[22] = TodRequestTodFull
	count := len(addresses)
	if count > 32 {
		count = 32
	}
	buf[23] = uint8(count)
	copy(buf[24:24+count], addresses[:count])
	return buf
}

// ---- ArtTodControl (0x8200), 24 bytes.

type TodControlPacket struct {
	Net     uint8
	Command uint8
	Address uint8
}

const todControlLen = 24

func parseTodControl(data []byte) (*TodControlPacket, error) {
	if len(data) < todControlLen {
		return nil, ErrPacketTooShort
	}
	return &TodControlPacket{
		Net:     data[21],
		Command: data[22],
		Address: data[23],
	}, nil
}

func BuildTodControl(net, command, address uint8) []byte {
	buf := make([]byte, todControlLen)
	copy(buf[0:8], ArtNetID[:])
	binary.LittleEndian.PutUint16(buf[8:10], OpTodControl)
	buf[11] = ProtocolVersion
	buf[21] = net
	buf[22] = command
	buf[23] = address
	return buf
}

// ---- ArtTodData (0x8100).

type TodDataPacket struct {
	RdmVer          uint8
	Port            uint8
	Net             uint8
	CommandResponse uint8
	Address         uint8
	UidTotal        uint16
	BlockCount      uint8
	Uids            [][6]byte
}

const todDataHeaderLen = 28

func parseTodData(data []byte) (*TodDataPacket, error) {
	if len(data) < todDataHeaderLen {
		return nil, ErrPacketTooShort
	}
	pkt := &TodDataPacket{
		RdmVer:          data[12],
		Port:            data[13],
		Net:             data[21],
		CommandResponse: data[22],
		Address:         data[23],
		UidTotal:        binary.BigEndian.Uint16(data[24:26]),
		BlockCount:      data[26],
	}
	uidCount := int(data[27])
	if uidCount > MaxUIDsPerPacket {
		uidCount = MaxUIDsPerPacket
	}
	for i := 0; i < uidCount; i++ {
		off := todDataHeaderLen + i*6
		if off+6 > len(data) {
			break
		}
		var uid [6]byte
		copy(uid[:], data[off:off+6])
		pkt.Uids = append(pkt.Uids, uid)
	}
	return pkt, nil
}

func BuildTodData(net, port uint8, address uint8, uidTotal int, blockCount uint8, uids [][6]byte) []byte {
	count := len(uids)
	if count > MaxUIDsPerPacket {
		count = MaxUIDsPerPacket
	}
	buf := make([]byte, todDataHeaderLen+count*6)
	copy(buf[0:8], ArtNetID[:])
	binary.LittleEndian.PutUint16(buf[8:10], OpTodData)
	buf[11] = ProtocolVersion
	buf[13] = port
	buf[21] = net
	buf[22] = TodDataTodFull
	buf[23] = address
	binary.BigEndian.PutUint16(buf[24:26], uint16(uidTotal))
	buf[26] = blockCount
	buf[27] = uint8(count)
	for i := 0; i < count; i++ {
		copy(buf[todDataHeaderLen+i*6:todDataHeaderLen+i*6+6], uids[i][:])
	}
	return buf
}

// ---- ArtRdm (0x8300).

type RdmPacket struct {
	RdmVer  uint8
	Net     uint8
	Command uint8
	Address uint8
	Data    []byte
}

const rdmHeaderLen = 24

func parseRdm(data []byte) (*RdmPacket, error) {
	if len(data) < rdmHeaderLen {
		return nil, ErrPacketTooShort
	}
	end := len(data)
	if end > rdmHeaderLen+255 {
		end = rdmHeaderLen + 255
	}
	return &RdmPacket{
		RdmVer:  data[12],
		Net:     data[21],
		Command: data[22],
		Address: data[23],
		Data:    append([]byte(nil), data[rdmHeaderLen:end]...),
	}, nil
}

func BuildRdm(net, address uint8, payload []byte) []byte {
	if len(payload) > 255 {
		payload = payload[:255]
	}
	buf := make([]byte, rdmHeaderLen+len(payload))
	copy(buf[0:8], ArtNetID[:])
	binary.LittleEndian.PutUint16(buf[8:10], OpRdm)
	buf[11] = ProtocolVersion
	buf[12] = 0x01 // RDM STANDARD V1.0
	buf[21] = net
	buf[22] = RdmCommandArProcess
	buf[23] = address
	copy(buf[rdmHeaderLen:], payload)
	return buf
}

// ---- ArtIpProg (0xF800) / ArtIpProgReply (0xF900), 34 bytes each.

type IpProgPacket struct {
	Command     uint8
	ProgIP      [4]byte
	ProgSm      [4]byte
	ProgUDPPort uint16
}

const ipProgLen = 34

func parseIpProg(data []byte) (*IpProgPacket, error) {
	if len(data) < ipProgLen {
		return nil, ErrPacketTooShort
	}
	pkt := &IpProgPacket{
		Command:     data[14],
		ProgUDPPort: binary.BigEndian.Uint16(data[24:26]),
	}
	copy(pkt.ProgIP[:], data[16:20])
	copy(pkt.ProgSm[:], data[20:24])
	return pkt, nil
}

func BuildIpProg(command uint8, ip, sm [4]byte, udpPort uint16) []byte {
	buf := make([]byte, ipProgLen)
	copy(buf[0:8], ArtNetID[:])
	binary.LittleEndian.PutUint16(buf[8:10], OpIpProg)
	buf[11] = ProtocolVersion
	buf[14] = command
	copy(buf[16:20], ip[:])
	copy(buf[20:24], sm[:])
	binary.BigEndian.PutUint16(buf[24:26], udpPort)
	return buf
}

type IpProgReplyPacket struct {
	ProgIP      [4]byte
	ProgSm      [4]byte
	ProgUDPPort uint16
	Status      uint8
}

func parseIpProgReply(data []byte) (*IpProgReplyPacket, error) {
	if len(data) < ipProgLen {
		return nil, ErrPacketTooShort
	}
	pkt := &IpProgReplyPacket{
		ProgUDPPort: binary.BigEndian.Uint16(data[24:26]),
		Status:      data[26],
	}
	copy(pkt.ProgIP[:], data[16:20])
	copy(pkt.ProgSm[:], data[20:24])
	return pkt, nil
}

func BuildIpProgReply(ip, sm [4]byte, udpPort uint16, status uint8) []byte {
	buf := make([]byte, ipProgLen)
	copy(buf[0:8], ArtNetID[:])
	binary.LittleEndian.PutUint16(buf[8:10], OpIpProgReply)
	buf[11] = ProtocolVersion
	copy(buf[16:20], ip[:])
	copy(buf[20:24], sm[:])
	binary.BigEndian.PutUint16(buf[24:26], udpPort)
	buf[26] = status
	return buf
}

// ---- ArtTrigger (0x9900).

type TriggerPacket struct {
	OemCode uint16
	Key     uint8
	SubKey  uint8
	Data    []byte
}

const triggerHeaderLen = 16

func parseTrigger(data []byte) (*TriggerPacket, error) {
	if len(data) < triggerHeaderLen {
		return nil, ErrPacketTooShort
	}
	end := len(data)
	if end > triggerHeaderLen+512 {
		end = triggerHeaderLen + 512
	}
	return &TriggerPacket{
		OemCode: binary.BigEndian.Uint16(data[12:14]),
		Key:     data[14],
		SubKey:  data[15],
		Data:    append([]byte(nil), data[triggerHeaderLen:end]...),
	}, nil
}

func BuildTrigger(oemCode uint16, key, subKey uint8, payload []byte) []byte {
	if len(payload) > 512 {
		payload = payload[:512]
	}
	buf := make([]byte, triggerHeaderLen+len(payload))
	copy(buf[0:8], ArtNetID[:])
	binary.LittleEndian.PutUint16(buf[8:10], OpTrigger)
	buf[11] = ProtocolVersion
	binary.BigEndian.PutUint16(buf[12:14], oemCode)
	buf[14] = key
	buf[15] = subKey
	copy(buf[triggerHeaderLen:], payload)
	return buf
}
