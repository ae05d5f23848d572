package enum

// AggressorSide describes which side initiated a trade.
type AggressorSide uint8

const (
	AggressorNone AggressorSide = iota
	AggressorBuyer
	AggressorSeller
)

func (s AggressorSide) String() string {
	switch s {
	case AggressorBuyer:
		return "BUYER"
	case AggressorSeller:
		return "SELLER"
	default:
		return "NONE"
	}
}
