package model

// Symbol identifies a tradable series: an instrument code on a venue.
// It is a small comparable value, cheap to hash and copy.
type Symbol struct {
	Venue string
	Code  string
}

// NewSymbol builds a symbol from a venue and instrument code.
func NewSymbol(venue, code string) Symbol {
	return Symbol{Venue: venue, Code: code}
}

func (s Symbol) IsZero() bool {
	return s.Venue == "" && s.Code == ""
}

func (s Symbol) String() string {
	return s.Code + "." + s.Venue
}
