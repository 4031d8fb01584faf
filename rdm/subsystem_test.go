package rdm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	uids      [][6]byte
	discovery int
	response  []byte
	respondOK bool
}

func (f *fakeProvider) UIDCount(port int) int { return len(f.uids) }

func (f *fakeProvider) CopyUIDs(port int, dst []byte) int {
	n := 0
	for _, u := range f.uids {
		n += copy(dst[n:], u[:])
	}
	return n
}

func (f *fakeProvider) FullDiscovery(port int) { f.discovery++ }

func (f *fakeProvider) Handle(port int, request []byte) ([]byte, bool) {
	return f.response, f.respondOK
}

func TestFullDiscoveryRefreshesTOD(t *testing.T) {
	p := &fakeProvider{uids: [][6]byte{{1, 2, 3, 4, 5, 6}, {1, 2, 3, 4, 5, 7}}}
	s := NewSubsystem(p, 0)

	s.FullDiscovery()

	assert.Equal(t, 1, p.discovery)
	tod := s.TOD()
	require.Len(t, tod, 2)
	assert.Equal(t, [6]byte{1, 2, 3, 4, 5, 7}, tod[1])
}

func TestHandleRequestGatesDuringCall(t *testing.T) {
	p := &fakeProvider{response: []byte{0xAA}, respondOK: true}
	s := NewSubsystem(p, 0)

	assert.False(t, s.Busy())
	resp, ok := s.HandleRequest([]byte{0x01})
	assert.True(t, ok)
	assert.Equal(t, []byte{0xAA}, resp)
	assert.False(t, s.Busy())
}

func TestShouldGateSacnOnlyWhenBothBusyAndActive(t *testing.T) {
	p := &fakeProvider{}
	s := NewSubsystem(p, 0)
	assert.False(t, s.ShouldGateSacn(true))
}

func TestRefreshDoesNotTriggerDiscovery(t *testing.T) {
	p := &fakeProvider{uids: [][6]byte{{9, 9, 9, 9, 9, 9}}}
	s := NewSubsystem(p, 0)

	s.Refresh()

	assert.Equal(t, 0, p.discovery)
	assert.Len(t, s.TOD(), 1)
}
