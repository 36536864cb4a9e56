package raptor

import (
	"fmt"

	"raptor.transitrouter.org/internal/transit"
)

// EntryKind tells how a point was reached in a round.
type EntryKind uint8

const (
	EntryNone EntryKind = iota
	EntryStart
	EntryTrip
	EntryTransfer
	EntryBikeTransfer
	EntryCustomTransfer
	EntryBikeTrip
)

func (k EntryKind) String() string {
	switch k {
	case EntryNone:
		return "none"
	case EntryStart:
		return "start"
	case EntryTrip:
		return "trip"
	case EntryTransfer:
		return "transfer"
	case EntryBikeTransfer:
		return "bike-transfer"
	case EntryCustomTransfer:
		return "custom-transfer"
	case EntryBikeTrip:
		return "bike-trip"
	default:
		panic(fmt.Sprintf("unsupported entry kind %d", k))
	}
}

// Entry records how a point was best reached in one round and when. Which
// fields are set depends on Kind. Transfers are stored in their real-world
// direction; Other and From are the points the search came from.
type Entry struct {
	Kind EntryKind
	Time int64

	// EntryTrip
	Trip       *transit.Trip
	Date       transit.Date
	Other      *transit.Stop
	OtherIndex int
	Index      int

	Transfer     *transit.Transfer
	BikeTransfer *transit.BikeTransfer
	Custom       *CustomTransfer

	// EntryBikeTrip
	From *transit.BikeStation
	To   *transit.BikeStation
}

// IsTransfer reports whether the entry is a walk of any kind.
func (e *Entry) IsTransfer() bool {
	switch e.Kind {
	case EntryTransfer, EntryBikeTransfer, EntryCustomTransfer:
		return true
	case EntryNone, EntryStart, EntryTrip, EntryBikeTrip:
		return false
	default:
		panic(fmt.Sprintf("unsupported entry kind %d", e.Kind))
	}
}
