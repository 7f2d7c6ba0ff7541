package arena

const (
	LabelGold   = "cup+gold"
	LabelSilver = "silver"
	LabelBronze = "bronze"
)

// Podium is the number of awarded places per division.
const Podium = 3

// Award is one podium finish recorded at settlement.
type Award struct {
	UserID      int64    `json:"user_id"`
	Division    Division `json:"division"`
	Position    int      `json:"position"`
	WeeklyScore int      `json:"weekly_score"`
	Label       string   `json:"label"`
}

// SettleWeek closes the week in memory: it awards the podium of every
// division, zeroes all weekly scores and positions, then re-ranks every
// division by rating. Awards come back NOVICE, EUCLID, EINSTEIN, each by
// position. Users with a zero weekly score are never awarded.
//
// The caller persists the mutated records and the awards in one transaction.
func SettleWeek(records []*Rank) []Award {
	var awards []Award
	for _, d := range Divisions {
		for i, r := range Standings(records, d) {
			if i >= Podium || r.WeeklyScore <= 0 {
				break
			}
			pos := i + 1
			r.TotalMedals++
			if pos == 1 {
				r.TotalCups++
			}
			awards = append(awards, Award{
				UserID:      r.UserID,
				Division:    d,
				Position:    pos,
				WeeklyScore: r.WeeklyScore,
				Label:       labelFor(pos),
			})
		}
	}

	for _, r := range records {
		r.WeeklyScore = 0
		r.Position = 0
	}
	RecomputeAll(records)

	return awards
}

func labelFor(pos int) string {
	switch pos {
	case 1:
		return LabelGold
	case 2:
		return LabelSilver
	default:
		return LabelBronze
	}
}
