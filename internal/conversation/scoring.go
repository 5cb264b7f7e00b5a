package conversation

import "strings"

// QualifyThreshold is the lead score at which a session counts as qualified.
const QualifyThreshold = 50

var intentScoreDeltas = map[Intent]int{
	IntentLeadQualification: 20,
	IntentAppointment:       15,
	IntentContact:           10,
}

// ScoreResult is the scorer's output for one turn.
type ScoreResult struct {
	Score     int  `json:"leadScore"`
	Qualified bool `json:"qualified"`
}

// ScoreLead adds this turn's deltas to the previous score. Deltas are
// re-applied every turn the same intent or profile field is seen; the score
// is not capped.
func ScoreLead(previous int, intent Intent, profile Profile) ScoreResult {
	if previous < 0 {
		previous = 0
	}
	score := previous + intentScoreDeltas[intent]
	if present(profile.PropertyInterest) {
		score += 10
	}
	if present(profile.Budget) {
		score += 10
	}
	if present(profile.Location) {
		score += 10
	}
	if present(profile.Timeline) {
		score += 15
	}
	return ScoreResult{Score: score, Qualified: IsQualified(score)}
}

// IsQualified reports whether score meets QualifyThreshold.
func IsQualified(score int) bool {
	return score >= QualifyThreshold
}

func present(v string) bool {
	return strings.TrimSpace(v) != ""
}
