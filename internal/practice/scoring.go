package practice

import "strings"

const (
	PointsPhotoCorrect = 250
	PointsPhotoAttempt = 50
	PointsTextCorrect  = 150
)

// AnswerMatches compares answers ignoring case, surrounding and inner
// whitespace.
func AnswerMatches(expected, submitted string) bool {
	if strings.TrimSpace(submitted) == "" {
		return false
	}
	return normalize(expected) == normalize(submitted)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "")
}

// Points awards arena points for an attempt. A photo earns partial credit
// even when wrong.
func Points(correct, hasPhoto bool) int {
	switch {
	case hasPhoto && correct:
		return PointsPhotoCorrect
	case hasPhoto:
		return PointsPhotoAttempt
	case correct:
		return PointsTextCorrect
	default:
		return 0
	}
}
