package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettleWeekEuclidPodium(t *testing.T) {
	records := []*Rank{
		{UserID: 1, Rating: 900, Division: Euclid, WeeklyScore: 50},
		{UserID: 2, Rating: 1300, Division: Euclid, WeeklyScore: 50},
		{UserID: 3, Rating: 1500, Division: Euclid, WeeklyScore: 30},
		{UserID: 4, Rating: 1100, Division: Euclid},
		{UserID: 5, Rating: 600, Division: Euclid},
	}
	RecomputeAll(records)

	awards := SettleWeek(records)

	require.Len(t, awards, 3)
	assert.Equal(t, Award{UserID: 2, Division: Euclid, Position: 1, WeeklyScore: 50, Label: LabelGold}, awards[0])
	assert.Equal(t, Award{UserID: 1, Division: Euclid, Position: 2, WeeklyScore: 50, Label: LabelSilver}, awards[1])
	assert.Equal(t, Award{UserID: 3, Division: Euclid, Position: 3, WeeklyScore: 30, Label: LabelBronze}, awards[2])

	byID := map[int64]*Rank{}
	for _, r := range records {
		byID[r.UserID] = r
		assert.Zero(t, r.WeeklyScore)
	}
	assert.Equal(t, 1, byID[2].TotalCups)
	assert.Equal(t, 1, byID[2].TotalMedals)
	assert.Equal(t, 0, byID[1].TotalCups)
	assert.Equal(t, 1, byID[1].TotalMedals)
	assert.Equal(t, 1, byID[3].TotalMedals)
	assert.Zero(t, byID[4].TotalMedals)
	assert.Zero(t, byID[5].TotalMedals)

	// With every score at zero the order is purely by rating.
	assert.Equal(t, map[int64]int{3: 1, 2: 2, 4: 3, 1: 4, 5: 5}, positions(records))
}

func TestSettleWeekAwardOrder(t *testing.T) {
	records := []*Rank{
		{UserID: 10, Rating: 2000, Division: Einstein, WeeklyScore: 400},
		{UserID: 11, Rating: 1800, Division: Einstein, WeeklyScore: 100},
		{UserID: 20, Rating: 800, Division: Euclid, WeeklyScore: 70},
		{UserID: 30, Rating: 300, Division: Novice, WeeklyScore: 5},
		{UserID: 31, Rating: 200, Division: Novice, WeeklyScore: 15},
		{UserID: 32, Rating: 100, Division: Novice, WeeklyScore: 25},
		{UserID: 33, Rating: 400, Division: Novice, WeeklyScore: 1},
	}

	awards := SettleWeek(records)

	type key struct {
		user int64
		div  Division
		pos  int
	}
	var got []key
	for _, a := range awards {
		got = append(got, key{a.UserID, a.Division, a.Position})
	}
	assert.Equal(t, []key{
		{32, Novice, 1}, {31, Novice, 2}, {30, Novice, 3},
		{20, Euclid, 1},
		{10, Einstein, 1}, {11, Einstein, 2},
	}, got)

	for _, r := range records {
		if r.UserID == 33 {
			assert.Zero(t, r.TotalMedals, "fourth place is not awarded")
		}
	}
}

func TestSettleWeekNobodyScored(t *testing.T) {
	records := []*Rank{
		{UserID: 1, Rating: 1000, Division: Euclid, TotalCups: 2, TotalMedals: 5, Position: 1},
		{UserID: 2, Rating: 1100, Division: Euclid, TotalMedals: 1, Position: 2},
	}

	awards := SettleWeek(records)

	assert.Empty(t, awards)
	assert.Equal(t, 2, records[0].TotalCups)
	assert.Equal(t, 5, records[0].TotalMedals)
	assert.Equal(t, 1, records[1].TotalMedals)
	assert.Equal(t, map[int64]int{1: 2, 2: 1}, positions(records))
}

func TestSettleWeekInvariants(t *testing.T) {
	records := []*Rank{
		{UserID: 1, Rating: 100, Division: Novice, WeeklyScore: 40, TotalCups: 1, TotalMedals: 3},
		{UserID: 2, Rating: 450, Division: Novice, WeeklyScore: 40},
		{UserID: 3, Rating: 700, Division: Euclid, WeeklyScore: 0},
		{UserID: 4, Rating: 1600, Division: Einstein, WeeklyScore: 900, TotalCups: 4, TotalMedals: 4},
		{UserID: 5, Rating: 2900, Division: Einstein, WeeklyScore: 10},
	}
	before := map[int64][2]int{}
	for _, r := range records {
		before[r.UserID] = [2]int{r.TotalCups, r.TotalMedals}
	}

	for week := 0; week < 3; week++ {
		SettleWeek(records)

		total := 0
		for _, r := range records {
			total += r.WeeklyScore
			assert.LessOrEqual(t, r.TotalCups, r.TotalMedals)
			assert.GreaterOrEqual(t, r.TotalCups, before[r.UserID][0])
			assert.GreaterOrEqual(t, r.TotalMedals, before[r.UserID][1])
		}
		assert.Zero(t, total)

		for _, d := range Divisions {
			for i, r := range Standings(records, d) {
				assert.Equal(t, i+1, r.Position)
			}
		}
	}
}
