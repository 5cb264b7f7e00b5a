package conversation

import "strings"

// Intent is the coarse category of a visitor utterance.
type Intent string

const (
	IntentPricing           Intent = "pricing"
	IntentLocation          Intent = "location"
	IntentPropertyType      Intent = "property_type"
	IntentServices          Intent = "services"
	IntentContact           Intent = "contact"
	IntentAppointment       Intent = "appointment"
	IntentLeadQualification Intent = "lead_qualification"
	IntentGeneral           Intent = "general"
	// IntentError labels agent replies produced by the apology fallback.
	IntentError Intent = "error"
)

type intentPattern struct {
	intent   Intent
	triggers []string
}

// intentPatterns is ordered; ties go to the earlier entry.
var intentPatterns = []intentPattern{
	{IntentPricing, []string{"price", "cost", "how much", "budget", "afford", "expensive", "cheap"}},
	{IntentLocation, []string{"where", "location", "area", "neighborhood", "district", "downtown", "suburban"}},
	{IntentPropertyType, []string{"apartment", "house", "condo", "villa", "luxury", "commercial"}},
	{IntentServices, []string{"service", "help", "assist", "tour", "financing", "legal", "management"}},
	{IntentContact, []string{"contact", "speak", "talk", "agent", "human", "call", "phone"}},
	{IntentAppointment, []string{"schedule", "book", "appointment", "meeting", "visit", "tour"}},
	{IntentLeadQualification, []string{"interested", "buy", "purchase", "looking for", "want to"}},
}

// Classification is the classifier's verdict for one utterance.
type Classification struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// ClassifyIntent scores msg against every intent's trigger set. Confidence is
// the share of an intent's triggers found in the lower-cased message. Only a
// strictly greater confidence replaces the current best.
func ClassifyIntent(msg string) Classification {
	lower := strings.ToLower(msg)
	best := Classification{Intent: IntentGeneral}
	if strings.TrimSpace(lower) == "" {
		return best
	}

	for _, p := range intentPatterns {
		matches := 0
		for _, trigger := range p.triggers {
			if strings.Contains(lower, trigger) {
				matches++
			}
		}
		confidence := float64(matches) / float64(len(p.triggers))
		if confidence > best.Confidence {
			best = Classification{Intent: p.intent, Confidence: confidence}
		}
	}
	return best
}

// IntentTriggerCount returns how many triggers an intent defines, or 0 for
// intents without a pattern set.
func IntentTriggerCount(intent Intent) int {
	for _, p := range intentPatterns {
		if p.intent == intent {
			return len(p.triggers)
		}
	}
	return 0
}
