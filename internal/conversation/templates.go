package conversation

import (
	"fmt"
	"strings"

	"github.com/wolfman30/urbanhaven-leadbot/internal/knowledge"
)

// TemplateKey selects a variant within an intent's templates.
type TemplateKey string

const (
	KeyGeneral      TemplateKey = "general"
	KeyWithBudget   TemplateKey = "with_budget"
	KeyWithProperty TemplateKey = "with_property"
	KeyWithLocation TemplateKey = "with_location"
	KeyQualified    TemplateKey = "qualified"
	KeyWithInfo     TemplateKey = "with_info"
)

// DefaultReply is used for intents without templates.
const DefaultReply = "I'd be happy to help you with that! Could you tell me more about what you're looking for?"

type renderFunc func(p Profile, kb *knowledge.Base) string

func literal(text string) renderFunc {
	return func(Profile, *knowledge.Base) string { return text }
}

// Templates renders canned replies from the knowledge base.
type Templates struct {
	kb    *knowledge.Base
	table map[Intent]map[TemplateKey]renderFunc
}

// NewTemplates builds the reply table. A nil base uses knowledge.Default().
func NewTemplates(kb *knowledge.Base) *Templates {
	if kb == nil {
		kb = knowledge.Default()
	}
	return &Templates{
		kb: kb,
		table: map[Intent]map[TemplateKey]renderFunc{
			IntentPricing: {
				KeyGeneral: literal("I'd be happy to help you understand our pricing! We have properties across different price ranges. What type of property are you interested in - apartments, houses, or luxury properties?"),
				KeyWithBudget: func(p Profile, _ *knowledge.Base) string {
					return fmt.Sprintf("Based on your budget of %s, I can recommend some great options. Would you like to hear about specific properties in that range?", p.Budget)
				},
				KeyWithProperty: func(p Profile, kb *knowledge.Base) string {
					return fmt.Sprintf("Great choice! %ss typically range from %s. Would you like to schedule a viewing?", capitalize(p.PropertyInterest), kb.PriceRange(p.PropertyInterest))
				},
			},
			IntentLocation: {
				KeyGeneral: func(_ Profile, kb *knowledge.Base) string {
					return fmt.Sprintf("We have properties in several great locations! We offer %s. Which area interests you most?", locationSummary(kb))
				},
				KeyWithLocation: func(p Profile, _ *knowledge.Base) string {
					return fmt.Sprintf("%s is an excellent choice! We have several properties available there. What's your budget range?", capitalize(p.Location))
				},
			},
			IntentContact: {
				KeyGeneral:   literal("I'd be happy to connect you with one of our expert agents! To better assist you, could you tell me a bit about what you're looking for?"),
				KeyQualified: literal("Perfect! I can see you're seriously interested. Let me collect your contact information so our agent can reach out to you personally."),
			},
			IntentAppointment: {
				KeyGeneral: literal("I'd love to schedule a property viewing for you! What type of property are you interested in seeing?"),
				KeyWithInfo: func(p Profile, _ *knowledge.Base) string {
					return fmt.Sprintf("Great! I have your preferences for %s in %s. When would you like to schedule a viewing?", p.PropertyInterest, p.Location)
				},
			},
		},
	}
}

// Lookup renders the (intent, key) template. A missing key falls back to the
// intent's general template and an unknown intent to DefaultReply. The
// returned key is the one actually used; it is empty for DefaultReply.
func (t *Templates) Lookup(intent Intent, key TemplateKey, p Profile) (string, TemplateKey) {
	variants, ok := t.table[intent]
	if !ok {
		return DefaultReply, ""
	}
	if render, ok := variants[key]; ok {
		return render(p, t.kb), key
	}
	if render, ok := variants[KeyGeneral]; ok {
		return render(p, t.kb), KeyGeneral
	}
	return DefaultReply, ""
}

// TemplateKeyFor derives the coarse template key from what is known so far.
func TemplateKeyFor(intent Intent, p Profile, qualified bool) TemplateKey {
	switch intent {
	case IntentPricing:
		if present(p.PropertyInterest) {
			return KeyWithProperty
		}
		if present(p.Budget) {
			return KeyWithBudget
		}
	case IntentLocation:
		if present(p.Location) {
			return KeyWithLocation
		}
	case IntentContact:
		if qualified {
			return KeyQualified
		}
	case IntentAppointment:
		if present(p.PropertyInterest) && present(p.Location) {
			return KeyWithInfo
		}
	}
	return KeyGeneral
}

func locationSummary(kb *knowledge.Base) string {
	names := make([]string, 0, len(kb.Locations))
	for _, loc := range kb.Locations {
		names = append(names, loc.Name)
	}
	switch len(names) {
	case 0:
		return "several neighbourhoods"
	case 1:
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
