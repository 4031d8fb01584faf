package portaddr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComposeDecompose(t *testing.T) {
	for net := 0; net < 128; net++ {
		for sub := 0; sub < 16; sub++ {
			for universe := 0; universe < 16; universe++ {
				a := Compose(uint8(net), uint8(sub), uint8(universe))
				gotNet, gotSub, gotUniverse := a.Decompose()
				assert.Equal(t, uint8(net), gotNet)
				assert.Equal(t, uint8(sub), gotSub)
				assert.Equal(t, uint8(universe), gotUniverse)
			}
		}
	}
}

func TestSacnMulticastIP(t *testing.T) {
	assert.Equal(t, "239.255.0.1", SacnMulticastIP(1).String())
	assert.Equal(t, "239.255.1.0", SacnMulticastIP(256).String())
	assert.Equal(t, "239.255.255.255", SacnMulticastIP(65535).String())
}

func TestDiscoveryMulticastIP(t *testing.T) {
	assert.Equal(t, "239.255.250.214", DiscoveryMulticastIP.String())
	assert.Equal(t, SacnMulticastIP(DiscoveryUniverse).String(), DiscoveryMulticastIP.String())
}

func TestParseAddressDotted(t *testing.T) {
	a, err := ParseAddress("1.2.3")
	assert.NoError(t, err)
	assert.Equal(t, Compose(1, 2, 3), a)
}

func TestParseAddressBareUniverse(t *testing.T) {
	a, err := ParseAddress("5")
	assert.NoError(t, err)
	assert.Equal(t, Compose(0, 0, 5), a)
}

func TestParseAddressInvalid(t *testing.T) {
	_, err := ParseAddress("1.2")
	assert.Error(t, err)
	_, err = ParseAddress("a.b.c")
	assert.Error(t, err)
	_, err = ParseAddress("not-a-number")
	assert.Error(t, err)
}

func TestIPv4RoundTrip(t *testing.T) {
	ip := Uint32ToIPv4(0x0A000102)
	assert.Equal(t, "10.0.1.2", ip.String())
	assert.Equal(t, uint32(0x0A000102), IPv4ToUint32(ip))
}

func FuzzComposeDecompose(f *testing.F) {
	f.Add(uint8(0), uint8(0), uint8(0))
	f.Add(uint8(127), uint8(15), uint8(15))
	f.Add(uint8(200), uint8(200), uint8(200))

	f.Fuzz(func(t *testing.T, net, sub, universe uint8) {
		a := Compose(net, sub, universe)
		if a&0x8000 != 0 {
			t.Fatalf("reserved high bit set: %#x", a)
		}
		gotNet, gotSub, gotUniverse := a.Decompose()
		if gotNet != net&0x7F || gotSub != sub&0x0F || gotUniverse != universe&0x0F {
			t.Fatalf("roundtrip mismatch for (%d,%d,%d): got (%d,%d,%d)", net, sub, universe, gotNet, gotSub, gotUniverse)
		}
	})
}

func FuzzSacnMulticastIP(f *testing.F) {
	f.Add(uint16(0))
	f.Add(uint16(1))
	f.Add(uint16(32767))
	f.Add(uint16(65535))

	f.Fuzz(func(t *testing.T, u uint16) {
		ip := SacnMulticastIP(SacnUniverse(u)).To4()
		if ip == nil {
			t.Fatalf("not an IPv4 address")
		}
		if ip[0] != 239 || ip[1] != 255 {
			t.Fatalf("wrong multicast prefix: %v", ip)
		}
		if ip[2] != byte(u>>8) || ip[3] != byte(u&0xFF) {
			t.Fatalf("wrong universe encoding: u=%d ip=%v", u, ip)
		}
	})
}
