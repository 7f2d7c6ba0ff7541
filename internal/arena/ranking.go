package arena

import "sort"

// Rank is a user's standing in the weekly arena.
type Rank struct {
	UserID      int64    `json:"user_id"`
	Rating      int      `json:"rating"`
	Division    Division `json:"division"`
	WeeklyScore int      `json:"weekly_score"`
	// Position is 1-based within Division; 0 means unranked.
	Position    int `json:"position"`
	TotalCups   int `json:"total_cups"`
	TotalMedals int `json:"total_medals"`
}

// Standings returns the records of division d in ranking order: weekly score
// descending, then rating descending, then input order.
func Standings(records []*Rank, d Division) []*Rank {
	out := make([]*Rank, 0, len(records))
	for _, r := range records {
		if r.Division == d {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].WeeklyScore != out[j].WeeklyScore {
			return out[i].WeeklyScore > out[j].WeeklyScore
		}
		return out[i].Rating > out[j].Rating
	})
	return out
}

// RecomputeRanks assigns dense positions 1..N to the records of division d
// and returns those whose position changed. Other divisions are untouched.
func RecomputeRanks(records []*Rank, d Division) []*Rank {
	var changed []*Rank
	for i, r := range Standings(records, d) {
		if r.Position != i+1 {
			r.Position = i + 1
			changed = append(changed, r)
		}
	}
	return changed
}

// RecomputeAll re-ranks every division and returns the changed records.
func RecomputeAll(records []*Rank) []*Rank {
	var changed []*Rank
	for _, d := range Divisions {
		changed = append(changed, RecomputeRanks(records, d)...)
	}
	return changed
}

// Reclassify moves each record into the division matching its rating and
// reports how many records moved.
func Reclassify(records []*Rank) int {
	moved := 0
	for _, r := range records {
		if d := DivisionFor(r.Rating); d != r.Division {
			r.Division = d
			moved++
		}
	}
	return moved
}
