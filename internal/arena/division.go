package arena

import "fmt"

type Division string

const (
	Novice   Division = "NOVICE"
	Euclid   Division = "EUCLID"
	Einstein Division = "EINSTEIN"
)

// Divisions is the fixed processing and display order.
var Divisions = [...]Division{Novice, Euclid, Einstein}

// DivisionFor classifies a rating. Any integer is accepted.
func DivisionFor(rating int) Division {
	switch {
	case rating < 500:
		return Novice
	case rating < 1550:
		return Euclid
	default:
		return Einstein
	}
}

// ParseDivision accepts the canonical upper-case names.
func ParseDivision(s string) (Division, error) {
	switch d := Division(s); d {
	case Novice, Euclid, Einstein:
		return d, nil
	default:
		return "", fmt.Errorf("unknown division: %q", s)
	}
}

func (d Division) Title() string {
	switch d {
	case Novice:
		return "Novice League"
	case Euclid:
		return "Euclid League"
	case Einstein:
		return "Einstein League"
	default:
		return "unknown"
	}
}
