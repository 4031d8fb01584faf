package sacn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestControllerActiveUniversesSorted(t *testing.T) {
	c := NewController(&Sender{sequences: map[uint16]uint8{}, universes: map[uint16]bool{}})
	c.RegisterUniverse(5)
	c.RegisterUniverse(1)
	c.RegisterUniverse(3)

	assert.Equal(t, []uint16{1, 3, 5}, c.ActiveUniverses())
}

func TestControllerAttenuatorScalesData(t *testing.T) {
	c := NewController(&Sender{sequences: map[uint16]uint8{}, universes: map[uint16]bool{}})
	c.SetMasterAttenuator(true, 128)

	scaled := c.scaleLocked([]byte{255, 0, 100})
	assert.Equal(t, byte(128), scaled[0])
	assert.Equal(t, byte(0), scaled[1])
}

func TestControllerAttenuatorDisabledPassesThrough(t *testing.T) {
	c := NewController(&Sender{sequences: map[uint16]uint8{}, universes: map[uint16]bool{}})
	data := []byte{255, 10, 0}
	assert.Equal(t, data, c.scaleLocked(data))
}
