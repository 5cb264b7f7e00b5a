package conversation

// NextState picks the state after a turn. Rules are checked in order and the
// first match wins; otherwise the session stays where it is. A qualified
// session without an email always moves to collecting_contact, even when the
// visitor asked for an appointment in the same turn.
func NextState(current State, intent Intent, profile Profile, qualified bool) State {
	switch {
	case intent == IntentLeadQualification && !present(profile.PropertyInterest):
		return StateGatheringInfo
	case qualified && !present(profile.Email):
		return StateCollectingContact
	case intent == IntentAppointment:
		return StateScheduling
	}
	if !current.Valid() {
		return StateGreeting
	}
	return current
}

// Assessment is the deterministic part of a turn: what was learned from the
// message and where the conversation goes next.
type Assessment struct {
	Classification
	Profile  Profile     `json:"userInfo"`
	Score    ScoreResult `json:"score"`
	NewState State       `json:"newState"`
}

// Assess runs slot extraction, intent classification, scoring and the state
// transition for msg against the session's pre-turn values. The session is
// not modified.
func Assess(session *Session, msg string) Assessment {
	profile := ExtractSlots(msg, session.Profile)
	class := ClassifyIntent(msg)
	score := ScoreLead(session.Context.LeadScore, class.Intent, profile)
	return Assessment{
		Classification: class,
		Profile:        profile,
		Score:          score,
		NewState:       NextState(session.CurrentState, class.Intent, profile, score.Qualified),
	}
}
