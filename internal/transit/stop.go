package transit

// Stop is a physical boarding point. Index is dense and assigned when the
// model is built.
type Stop struct {
	Index  int
	ID     string
	Name   string
	Coords Coordinates

	Routes        []*Route
	Transfers     []*Transfer     // transfers leaving this stop
	BikeTransfers []*BikeTransfer // walks from this stop to a bike station
}

func (s *Stop) Identifier() string    { return s.ID }
func (s *Stop) DisplayName() string   { return s.Name }
func (s *Stop) Location() Coordinates { return s.Coords }
func (s *Stop) String() string        { return s.Name + " (" + s.ID + ")" }

// Transfer is a walk between two stops. Every transfer has an opposite
// covering the same walk in reverse, used when searching backward.
type Transfer struct {
	From     *Stop
	To       *Stop
	Distance int // meters
	Opposite *Transfer
}

// NewTransferPair creates a transfer and its opposite.
func NewTransferPair(from, to *Stop, distance int) (*Transfer, *Transfer) {
	there := &Transfer{From: from, To: to, Distance: distance}
	back := &Transfer{From: to, To: from, Distance: distance, Opposite: there}
	there.Opposite = back
	return there, back
}

// SameName reports whether both ends share a display name. Such transfers are
// usable regardless of distance.
func (t *Transfer) SameName() bool {
	return t.From.Name == t.To.Name
}
