package raptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStore(t *testing.T) {
	worst := Comparator{Forward: true}.WorstTime()
	s := NewStore(3, worst)

	assert.Equal(t, 3, s.Points())
	assert.Equal(t, worst, s.BestReachTime(1))
	assert.Equal(t, worst, s.BestInRound(1, 2))
	_, ok := s.Entry(1, 2)
	assert.False(t, ok)

	s.SetEntry(1, 2, Entry{Kind: EntryStart, Time: 100})
	s.SetBestReachTime(1, 100)

	e, ok := s.Entry(1, 2)
	assert.True(t, ok)
	assert.Equal(t, EntryStart, e.Kind)
	assert.Equal(t, int64(100), s.BestInRound(1, 2))
	assert.Equal(t, int64(100), s.BestReachTime(1))

	// Neighbouring points and rounds are untouched.
	assert.Equal(t, worst, s.BestInRound(1, 1))
	assert.Equal(t, worst, s.BestInRound(2, 2))
	assert.Equal(t, worst, s.BestInRound(0, Rounds))
}

func TestEntryIsTransfer(t *testing.T) {
	for kind, want := range map[EntryKind]bool{
		EntryNone:           false,
		EntryStart:          false,
		EntryTrip:           false,
		EntryTransfer:       true,
		EntryBikeTransfer:   true,
		EntryCustomTransfer: true,
		EntryBikeTrip:       false,
	} {
		e := Entry{Kind: kind}
		assert.Equal(t, want, e.IsTransfer(), kind.String())
	}

	assert.Panics(t, func() {
		e := Entry{Kind: EntryKind(42)}
		e.IsTransfer()
	})
}
