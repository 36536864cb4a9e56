package transit

// StopDelay is the real-time delay of one trip at one stop, in seconds.
type StopDelay struct {
	Arrival   int32
	Departure int32
	Known     bool
}

// TripStopDelays holds the per-stop delays of one dated trip, indexed by the
// position of the stop in the trip.
type TripStopDelays struct {
	Stops []StopDelay
}

func (d TripStopDelays) Len() int {
	return len(d.Stops)
}

// TryGet returns the delay at stop index i.
func (d TripStopDelays) TryGet(i int) (arrival, departure int, ok bool) {
	if i < 0 || i >= len(d.Stops) || !d.Stops[i].Known {
		return 0, 0, false
	}
	return int(d.Stops[i].Arrival), int(d.Stops[i].Departure), true
}

// Last returns the delay at the last stop that has one.
func (d TripStopDelays) Last() (arrival, departure int) {
	for i := len(d.Stops) - 1; i >= 0; i-- {
		if d.Stops[i].Known {
			return int(d.Stops[i].Arrival), int(d.Stops[i].Departure)
		}
	}
	return 0, 0
}

// DelayLookup answers real-time delay questions for dated trips.
type DelayLookup interface {
	TripHasDelayData(date Date, tripID string) bool
	TryGetDelay(date Date, tripID string, stopIndex int) (arrival, departure int, ok bool)
	TripStopDelays(date Date, tripID string) (TripStopDelays, bool)
}

// NoDelays is a DelayLookup without any data.
type NoDelays struct{}

func (NoDelays) TripHasDelayData(Date, string) bool { return false }

func (NoDelays) TryGetDelay(Date, string, int) (int, int, bool) { return 0, 0, false }

func (NoDelays) TripStopDelays(Date, string) (TripStopDelays, bool) {
	return TripStopDelays{}, false
}

// StopDelayOrLast returns the delay at stop index i. When the trip has delay
// data that ends before i, the delay at the last known stop is used instead.
func StopDelayOrLast(lookup DelayLookup, date Date, tripID string, i int) (arrival, departure int, ok bool) {
	if lookup == nil {
		return 0, 0, false
	}
	delays, has := lookup.TripStopDelays(date, tripID)
	if !has {
		return 0, 0, false
	}
	if a, d, found := delays.TryGet(i); found {
		return a, d, true
	}
	if i >= delays.Len() {
		a, d := delays.Last()
		return a, d, true
	}
	return 0, 0, false
}
