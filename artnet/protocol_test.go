package artnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollRoundTrip(t *testing.T) {
	raw := BuildPoll(0x02, 0x40)
	opCode, pkt, err := ParsePacket(raw)
	require.NoError(t, err)
	assert.Equal(t, uint16(OpPoll), opCode)
	poll, ok := pkt.(*PollPacket)
	require.True(t, ok)
	assert.Equal(t, uint8(0x02), poll.Flags)
	assert.Equal(t, uint8(0x40), poll.DiagPriority)
}

func TestPollReplyRoundTrip(t *testing.T) {
	var ports [MaxPorts]byte
	ports[0] = PortTypeOutputArtNet

	raw := BuildPollReply(PollReplyFields{
		IP:         [4]byte{10, 0, 0, 5},
		ShortName:  "node-1",
		LongName:   "dmxnode output gateway",
		NetSwitch:  0,
		SubSwitch:  0,
		Style:      StyleNode,
		NumPorts:   1,
		PortTypes:  ports,
		GoodOutput: [MaxPorts]byte{0x80, 0, 0, 0},
		SwOut:      [MaxPorts]byte{1, 0, 0, 0},
	})
	assert.Len(t, raw, PollReplyLen)

	opCode, pkt, err := ParsePacket(raw)
	require.NoError(t, err)
	assert.Equal(t, uint16(OpPollReply), opCode)

	reply, ok := pkt.(*PollReplyPacket)
	require.True(t, ok)
	assert.Equal(t, [4]byte{10, 0, 0, 5}, reply.IPAddress)
	assert.Equal(t, "node-1", trimNull(reply.ShortName[:]))
	assert.Equal(t, "dmxnode output gateway", trimNull(reply.LongName[:]))
	assert.Equal(t, uint16(1), reply.NumPorts)
	assert.Equal(t, byte(PortTypeOutputArtNet), reply.PortTypes[0])
}

func TestDmxRoundTrip(t *testing.T) {
	data := make([]byte, 512)
	for i := range data {
		data[i] = byte(i)
	}
	raw := BuildDmx(0x0001, 7, 0, data)

	opCode, pkt, err := ParsePacket(raw)
	require.NoError(t, err)
	assert.Equal(t, uint16(OpDmx), opCode)

	dmx, ok := pkt.(*DmxPacket)
	require.True(t, ok)
	assert.Equal(t, uint8(7), dmx.Sequence)
	assert.Equal(t, uint16(0x0001), dmx.PortAddress)
	assert.Equal(t, data, dmx.Data)
}

func TestDmxOddLengthPadsToEven(t *testing.T) {
	raw := BuildDmx(0, 0, 0, []byte{1, 2, 3})
	_, pkt, err := ParsePacket(raw)
	require.NoError(t, err)
	dmx := pkt.(*DmxPacket)
	assert.Equal(t, 4, len(dmx.Data))
}

func TestAddressRoundTrip(t *testing.T) {
	raw := BuildAddress(AddressPacket{
		NetSwitch: 3,
		ShortName: "short",
		LongName:  "a long node name",
		SwOut:     [MaxPorts]byte{5, 0, 0, 0},
		SubSwitch: 2,
		Command:   CommandLedLocate,
	})
	_, pkt, err := ParsePacket(raw)
	require.NoError(t, err)
	addr := pkt.(*AddressPacket)
	assert.Equal(t, uint8(3), addr.NetSwitch)
	assert.Equal(t, "short", addr.ShortName)
	assert.Equal(t, "a long node name", addr.LongName)
	assert.Equal(t, uint8(5), addr.SwOut[0])
	assert.Equal(t, uint8(CommandLedLocate), addr.Command)
}

func TestTodDataPagingRoundTrip(t *testing.T) {
	uids := make([][6]byte, 3)
	for i := range uids {
		uids[i] = [6]byte{0, 0, 0, 0, 0, byte(i)}
	}
	raw := BuildTodData(0, 1, 1, 3, 0, uids)
	_, pkt, err := ParsePacket(raw)
	require.NoError(t, err)
	tod := pkt.(*TodDataPacket)
	assert.Equal(t, uint16(3), tod.UidTotal)
	require.Len(t, tod.Uids, 3)
	assert.Equal(t, byte(2), tod.Uids[2][5])
}

func TestRdmRoundTrip(t *testing.T) {
	payload := []byte{0xCC, 1, 2, 3, 4}
	raw := BuildRdm(1, 2, payload)
	_, pkt, err := ParsePacket(raw)
	require.NoError(t, err)
	rdm := pkt.(*RdmPacket)
	assert.Equal(t, uint8(1), rdm.Net)
	assert.Equal(t, uint8(2), rdm.Address)
	assert.Equal(t, payload, rdm.Data)
}

func TestTriggerOemWildcard(t *testing.T) {
	raw := BuildTrigger(OemWildcard, 1, 2, []byte("payload"))
	_, pkt, err := ParsePacket(raw)
	require.NoError(t, err)
	trig := pkt.(*TriggerPacket)
	assert.Equal(t, uint16(OemWildcard), trig.OemCode)
}

func TestInvalidHeader(t *testing.T) {
	_, _, err := ParsePacket([]byte("not-art-net-at-all"))
	assert.ErrorIs(t, err, ErrInvalidHeader)
}

func TestTooShort(t *testing.T) {
	_, _, err := ParsePacket([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrPacketTooShort)
}

func TestBadProtocolRevision(t *testing.T) {
	raw := BuildPoll(0, 0)
	raw[11] = ProtocolVersion + 1
	_, _, err := ParsePacket(raw)
	assert.ErrorIs(t, err, ErrBadProtocolRevision)

	raw = BuildPoll(0, 0)
	raw[10] = 1
	_, _, err = ParsePacket(raw)
	assert.ErrorIs(t, err, ErrBadProtocolRevision)
}

func TestUnknownOpCodeClassifiedNotInvalid(t *testing.T) {
	raw := make([]byte, 20)
	copy(raw[0:8], ArtNetID[:])
	raw[8], raw[9] = byte(OpTimeCode), byte(OpTimeCode>>8)
	raw[11] = ProtocolVersion
	opCode, pkt, err := ParsePacket(raw)
	require.NoError(t, err)
	assert.Equal(t, uint16(OpTimeCode), opCode)
	assert.Nil(t, pkt)
}

// Encode-then-decode any valid PollReply yields identical bytes (§8.2).
func FuzzPollReplyRoundTrip(f *testing.F) {
	f.Add([4]byte{10, 0, 0, 1}[0], [4]byte{10, 0, 0, 1}[1], [4]byte{10, 0, 0, 1}[2], [4]byte{10, 0, 0, 1}[3], "short", "long")

	f.Fuzz(func(t *testing.T, a, b, c, d byte, short, long string) {
		raw := BuildPollReply(PollReplyFields{
			IP:        [4]byte{a, b, c, d},
			ShortName: short,
			LongName:  long,
			NumPorts:  1,
		})
		if len(raw) != PollReplyLen {
			t.Fatalf("wrong length: %d", len(raw))
		}
		_, pkt, err := ParsePacket(raw)
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		reply := pkt.(*PollReplyPacket)
		raw2 := BuildPollReply(PollReplyFields{
			IP:        reply.IPAddress,
			ShortName: trimNull(reply.ShortName[:]),
			LongName:  trimNull(reply.LongName[:]),
			NumPorts:  int(reply.NumPorts),
		})
		if string(raw) != string(raw2) {
			t.Fatalf("round trip not stable")
		}
	})
}

func FuzzDmxRoundTrip(f *testing.F) {
	f.Add(uint16(1), uint8(1), []byte{1, 2, 3, 4})

	f.Fuzz(func(t *testing.T, portAddress uint16, seq uint8, data []byte) {
		if len(data) > 512 {
			data = data[:512]
		}
		raw := BuildDmx(portAddress, seq, 0, data)
		_, pkt, err := ParsePacket(raw)
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		dmx := pkt.(*DmxPacket)
		if dmx.Sequence != seq || dmx.PortAddress != portAddress {
			t.Fatalf("header mismatch")
		}
	})
}
