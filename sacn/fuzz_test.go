package sacn

import (
	"bytes"
	"testing"
)

func FuzzParsePacket(f *testing.F) {
	cid := [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	f.Add(BuildDataPacket(1, 0, "test", cid, 100, 0, 0, make([]byte, 512)))
	f.Add(BuildDataPacket(1, 0, "test", cid, 100, 0, 0, make([]byte, 100)))
	f.Add(BuildDataPacket(63999, 255, "long source name here", cid, 200, 1, OptionForceSync, make([]byte, 512)))
	f.Add(BuildSyncPacket(cid, 0, 1))
	f.Add(BuildDiscoveryPacket("test", cid, 0, 0, []uint16{1, 2, 3}))
	f.Add([]byte{})
	f.Add(make([]byte, 125))
	f.Add(make([]byte, 126))
	f.Add(make([]byte, 638))

	f.Fuzz(func(t *testing.T, data []byte) {
		pkt, err := ParsePacket(data)
		if err != nil {
			return
		}
		if dp, ok := pkt.(*DataPacket); ok {
			if len(dp.Data) > 512 {
				t.Fatalf("dmx data should be at most 512 bytes, got %d", len(dp.Data))
			}
		}
	})
}

func FuzzBuildParseRoundtrip(f *testing.F) {
	f.Add(uint16(1), uint8(0), "test", make([]byte, 512))
	f.Add(uint16(63999), uint8(255), "source", make([]byte, 100))
	f.Add(uint16(100), uint8(128), "", make([]byte, 0))
	f.Add(uint16(1), uint8(0), "a very long source name that exceeds normal limits", make([]byte, 512))

	f.Fuzz(func(t *testing.T, universe uint16, seq uint8, sourceName string, dmxInput []byte) {
		if universe < 1 || universe > 63999 {
			return
		}
		cid := [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
		packet := BuildDataPacket(universe, seq, sourceName, cid, 100, 0, 0, dmxInput)
		pkt, err := ParsePacket(packet)
		if err != nil {
			t.Fatalf("failed to parse packet we just built: %v", err)
		}
		dp, ok := pkt.(*DataPacket)
		if !ok {
			t.Fatalf("expected *DataPacket, got %T", pkt)
		}
		if dp.Universe != universe {
			t.Fatalf("universe mismatch: sent %d, got %d", universe, dp.Universe)
		}
		expectedLen := len(dmxInput)
		if expectedLen > 512 {
			expectedLen = 512
		}
		if !bytes.Equal(dp.Data[:expectedLen], dmxInput[:expectedLen]) {
			t.Fatalf("dmx data mismatch")
		}
	})
}
