package raptor

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	// Rounds is the number of trip rounds a search runs. A result uses at
	// most this many trips.
	Rounds = 5
	// MaxTripLengthDays bounds how far from the requested time a search may
	// reach.
	MaxTripLengthDays = 1

	secondsPerDay = 24 * 60 * 60
	// maxBilledBikeSeconds is the free ride period of the bike-share scheme.
	maxBilledBikeSeconds = 15 * 60
)

type TransferBuffer int

const (
	TransferBufferNone TransferBuffer = iota
	TransferBufferShort
	TransferBufferNormal
	TransferBufferLong
)

func (b TransferBuffer) String() string {
	switch b {
	case TransferBufferNone:
		return "none"
	case TransferBufferShort:
		return "short"
	case TransferBufferNormal:
		return "normal"
	case TransferBufferLong:
		return "long"
	default:
		return fmt.Sprintf("TransferBuffer(%d)", int(b))
	}
}

type ComfortBalance int

const (
	ComfortShortestTimeAbsolute ComfortBalance = iota
	ComfortShortestTime
	ComfortBalanced
	ComfortLeastTransfers
)

func (c ComfortBalance) String() string {
	switch c {
	case ComfortShortestTimeAbsolute:
		return "shortest-time-absolute"
	case ComfortShortestTime:
		return "shortest-time"
	case ComfortBalanced:
		return "balanced"
	case ComfortLeastTransfers:
		return "least-transfers"
	default:
		return fmt.Sprintf("ComfortBalance(%d)", int(c))
	}
}

type WalkingPreference int

const (
	WalkingHigh WalkingPreference = iota
	WalkingNormal
	WalkingLow
)

func (w WalkingPreference) String() string {
	switch w {
	case WalkingHigh:
		return "high"
	case WalkingNormal:
		return "normal"
	case WalkingLow:
		return "low"
	default:
		return fmt.Sprintf("WalkingPreference(%d)", int(w))
	}
}

type BikeTripBuffer int

const (
	BikeTripBufferNone BikeTripBuffer = iota
	BikeTripBufferShort
	BikeTripBufferMedium
	BikeTripBufferLong
)

func (b BikeTripBuffer) String() string {
	switch b {
	case BikeTripBufferNone:
		return "none"
	case BikeTripBufferShort:
		return "short"
	case BikeTripBufferMedium:
		return "medium"
	case BikeTripBufferLong:
		return "long"
	default:
		return fmt.Sprintf("BikeTripBuffer(%d)", int(b))
	}
}

// Settings are the rider preferences of one search. Paces are minutes per
// kilometer, lock and unlock times are seconds.
type Settings struct {
	WalkingPace       int               `json:"walkingPace" yaml:"walkingPace" validate:"min=2,max=60"`
	CyclingPace       int               `json:"cyclingPace" yaml:"cyclingPace" validate:"min=1,max=60"`
	BikeUnlockTime    int               `json:"bikeUnlockTime" yaml:"bikeUnlockTime" validate:"min=0,max=120"`
	BikeLockTime      int               `json:"bikeLockTime" yaml:"bikeLockTime" validate:"min=0,max=120"`
	UseSharedBikes    bool              `json:"useSharedBikes" yaml:"useSharedBikes"`
	BikeMax15Minutes  bool              `json:"bikeMax15Minutes" yaml:"bikeMax15Minutes"`
	TransferBuffer    TransferBuffer    `json:"transferBuffer" yaml:"transferBuffer" validate:"min=0,max=3"`
	ComfortBalance    ComfortBalance    `json:"comfortBalance" yaml:"comfortBalance" validate:"min=0,max=3"`
	WalkingPreference WalkingPreference `json:"walkingPreference" yaml:"walkingPreference" validate:"min=0,max=2"`
	BikeTripBuffer    BikeTripBuffer    `json:"bikeTripBuffer" yaml:"bikeTripBuffer" validate:"min=0,max=3"`
}

func DefaultSettings() Settings {
	return Settings{
		WalkingPace:       12,
		CyclingPace:       5,
		BikeUnlockTime:    30,
		BikeLockTime:      15,
		UseSharedBikes:    false,
		BikeMax15Minutes:  true,
		TransferBuffer:    TransferBufferNormal,
		ComfortBalance:    ComfortBalanced,
		WalkingPreference: WalkingNormal,
		BikeTripBuffer:    BikeTripBufferMedium,
	}
}

var validate = validator.New()

// Validate checks every field is within its allowed range.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// MaxTransferDistance is the longest walk in meters the rider accepts.
func (s Settings) MaxTransferDistance() int {
	switch s.WalkingPreference {
	case WalkingHigh:
		return 750
	case WalkingLow:
		return 250
	default:
		return 400
	}
}

func (s Settings) MovingTransferMultiplier() float64 {
	switch s.TransferBuffer {
	case TransferBufferNormal:
		return 1.25
	case TransferBufferLong:
		return 1.5
	default:
		return 1.0
	}
}

// StationaryTransferSeconds is the minimum time spent changing vehicles at
// a single stop.
func (s Settings) StationaryTransferSeconds() int {
	switch s.TransferBuffer {
	case TransferBufferNone:
		return 0
	case TransferBufferShort:
		return 30
	default:
		return 60
	}
}

func (s Settings) BikeTripMultiplier() float64 {
	switch s.BikeTripBuffer {
	case BikeTripBufferShort:
		return 1.1
	case BikeTripBufferMedium:
		return 1.25
	case BikeTripBufferLong:
		return 1.5
	default:
		return 1.0
	}
}

// TransferPenaltySeconds is added per transfer when results of different
// rounds are compared.
func (s Settings) TransferPenaltySeconds() int {
	switch s.ComfortBalance {
	case ComfortShortestTimeAbsolute:
		return 0
	case ComfortShortestTime:
		return 2 * 60
	case ComfortLeastTransfers:
		return 10 * 60
	default:
		return 4 * 60
	}
}

// BikeTripTime is the bare riding time over distance meters.
func (s Settings) BikeTripTime(distance int) int {
	return int(float64(distance) / 1000 * float64(s.CyclingPace) * 60)
}

// BilledBikeTripTime is the rented time the operator charges for.
func (s Settings) BilledBikeTripTime(distance int) int {
	return int(float64(distance)/1000*float64(s.CyclingPace)*60*s.BikeTripMultiplier()) + s.BikeLockTime
}

// AdjustedBikeTripTime includes the buffer and the unlock and lock times.
func (s Settings) AdjustedBikeTripTime(distance int) int {
	return int(float64(distance)/1000*float64(s.CyclingPace)*60*s.BikeTripMultiplier()) + s.BikeUnlockTime + s.BikeLockTime
}

func (s Settings) AdjustedWalkingTime(distance int) int {
	return int(float64(distance) / 1000 * float64(s.WalkingPace) * 60 * s.MovingTransferMultiplier())
}

// TransferTime is the time a stop to stop transfer takes.
func (s Settings) TransferTime(distance int) int {
	return max(s.AdjustedWalkingTime(distance), s.StationaryTransferSeconds())
}
