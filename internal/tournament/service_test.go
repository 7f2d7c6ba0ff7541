package tournament

import (
	"testing"

	"github.com/osimia/algoridmi/internal/arena"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeCreatesAndRefreshes(t *testing.T) {
	existing := []*arena.Rank{
		{UserID: 2, Rating: 1000, Division: arena.Euclid, WeeklyScore: 80, Position: 1, TotalCups: 1, TotalMedals: 2},
		{UserID: 5, Rating: 1600, Division: arena.Einstein, Position: 1},
	}
	ratings := map[int64]int{2: 450, 5: 1700, 3: 1200, 1: 1200}
	points := map[int64]int{2: 300, 3: 150, 1: 150}

	ranks, report := merge(existing, ratings, points)

	require.Len(t, ranks, 4)
	assert.Equal(t, SyncReport{Created: 2, Updated: 2, Moved: 1}, report)

	var ids []int64
	for _, r := range ranks {
		ids = append(ids, r.UserID)
	}
	assert.Equal(t, []int64{1, 2, 3, 5}, ids)

	byID := map[int64]*arena.Rank{}
	for _, r := range ranks {
		byID[r.UserID] = r
	}

	assert.Equal(t, arena.Novice, byID[2].Division)
	assert.Equal(t, 450, byID[2].Rating)
	assert.Equal(t, 300, byID[2].WeeklyScore)
	assert.Equal(t, 1, byID[2].Position)
	assert.Equal(t, 1, byID[2].TotalCups, "counters survive a sync")
	assert.Equal(t, 2, byID[2].TotalMedals)

	// 1 and 3 tie on score and rating; user order decides.
	assert.Equal(t, 1, byID[1].Position)
	assert.Equal(t, 2, byID[3].Position)

	assert.Equal(t, 1700, byID[5].Rating)
	assert.Zero(t, byID[5].WeeklyScore, "no points this week")
	assert.Equal(t, 1, byID[5].Position)
}

func TestMergeKeepsRowsWithoutProfileRating(t *testing.T) {
	existing := []*arena.Rank{{UserID: 9, Rating: 700, Division: arena.Euclid, WeeklyScore: 40}}

	ranks, report := merge(existing, map[int64]int{}, map[int64]int{})

	require.Len(t, ranks, 1)
	assert.Equal(t, 700, ranks[0].Rating)
	assert.Zero(t, ranks[0].WeeklyScore)
	assert.Equal(t, SyncReport{Updated: 1}, report)
}
