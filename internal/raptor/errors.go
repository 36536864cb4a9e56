package raptor

// ConnectionSearchError is the outcome of a connection request that did not
// produce results because of the request itself.
type ConnectionSearchError int

const (
	NoError ConnectionSearchError = iota
	InvalidDateTime
	InvalidSettings
	InvalidSrcCoordinates
	InvalidDestCoordinates
	InvalidBothCoordinates
	NoStopsNearSrcCoords
	NoStopsNearDestCoords
	NoStopsNearBothCoords
	InvalidSrcStopName
	InvalidDestStopName
	InvalidBothStopNames
	NoConnectionFound
)

func (e ConnectionSearchError) Message() string {
	switch e {
	case NoError:
		return "No error"
	case InvalidDateTime:
		return "Invalid dateTime format"
	case InvalidSettings:
		return "Invalid settings"
	case InvalidSrcCoordinates:
		return "Invalid source coordinates"
	case InvalidDestCoordinates:
		return "Invalid destination coordinates"
	case InvalidBothCoordinates:
		return "Invalid source and destination coordinates"
	case NoStopsNearSrcCoords:
		return "No stops near source coordinates"
	case NoStopsNearDestCoords:
		return "No stops near destination coordinates"
	case NoStopsNearBothCoords:
		return "No stops near source and destination coordinates"
	case InvalidSrcStopName:
		return "Invalid source stop name"
	case InvalidDestStopName:
		return "Invalid destination stop name"
	case InvalidBothStopNames:
		return "Invalid source and destination stop names"
	case NoConnectionFound:
		return "No connection found"
	default:
		return "Unknown error"
	}
}

// combine picks the error naming the source, the destination or both.
func combine(src, dest bool, srcErr, destErr, bothErr ConnectionSearchError) ConnectionSearchError {
	switch {
	case src && dest:
		return bothErr
	case src:
		return srcErr
	case dest:
		return destErr
	default:
		return NoError
	}
}

type AlternativesSearchError int

const (
	AltNoError AlternativesSearchError = iota
	AltInvalidDateTime
	AltNonExistentSrcStopID
	AltNonExistentDestStopID
	AltNonExistentBothStopIDs
	AltInvalidCount
	AltNoTripsFound
)

func (e AlternativesSearchError) Message() string {
	switch e {
	case AltNoError:
		return "No error"
	case AltInvalidDateTime:
		return "Invalid dateTime format"
	case AltNonExistentSrcStopID:
		return "Non-existent source stop ID"
	case AltNonExistentDestStopID:
		return "Non-existent destination stop ID"
	case AltNonExistentBothStopIDs:
		return "Non-existent source and destination stop IDs"
	case AltInvalidCount:
		return "Invalid count. The count must be a value between 1 and 10"
	case AltNoTripsFound:
		return "No trips found"
	default:
		return "Unknown error"
	}
}
