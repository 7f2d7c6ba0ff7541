package rating

// Title returns the rank title shown next to a rating.
func Title(r int) string {
	switch {
	case r < 500:
		return "Novice"
	case r < 1000:
		return "Apprentice"
	case r < 1500:
		return "Adept"
	case r < 2000:
		return "Master"
	default:
		return "Grandmaster"
	}
}

var gradeDifficulty = map[int]int{
	1: 200, 2: 300, 3: 400, 4: 500,
	5: 700, 6: 900, 7: 1100, 8: 1300,
	9: 1500, 10: 1700, 11: 1900, 12: 2100,
}

// RecommendedDifficulty picks a problem difficulty for a learner. Grade wins
// over age; with neither the current rating is used as the base. The result
// is the midpoint of base and rating, bounded to [200, 2500].
func RecommendedDifficulty(grade, age, r int) int {
	base := r
	switch {
	case grade > 0:
		d, ok := gradeDifficulty[grade]
		if !ok {
			d = DefaultRating
		}
		base = d
	case age > 0:
		base = ageDifficulty(age)
	}
	return max(200, min(2500, floorDiv(base+r, 2)))
}

func ageDifficulty(age int) int {
	switch {
	case age <= 7:
		return 200
	case age <= 10:
		return 400
	case age <= 13:
		return 800
	case age <= 15:
		return 1200
	case age <= 17:
		return 1600
	default:
		return 1800
	}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
