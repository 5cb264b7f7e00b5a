package conversation

import (
	"regexp"
	"strings"
)

type slotRule struct {
	value   string
	pattern *regexp.Regexp
}

var (
	propertyRules = []slotRule{
		{"apartment", regexp.MustCompile(`(?i)apartment|condo|flat`)},
		{"house", regexp.MustCompile(`(?i)house|home|single.?family`)},
		{"luxury", regexp.MustCompile(`(?i)luxury|villa|mansion|premium`)},
		{"commercial", regexp.MustCompile(`(?i)commercial|office|retail`)},
	}
	locationRules = []slotRule{
		{"downtown", regexp.MustCompile(`(?i)downtown|city|urban`)},
		{"suburban", regexp.MustCompile(`(?i)suburban|suburb|family`)},
		{"waterfront", regexp.MustCompile(`(?i)waterfront|beach|lake`)},
		{"mountain", regexp.MustCompile(`(?i)mountain|scenic|view`)},
	}
	timelineRules = []slotRule{
		{"urgent", regexp.MustCompile(`(?i)urgent|asap|soon|immediately`)},
		{"3-6 months", regexp.MustCompile(`(?i)3.?6.?month|quarter|few.?month`)},
		{"6-12 months", regexp.MustCompile(`(?i)6.?12.?month|half.?year|year`)},
		{"1+ years", regexp.MustCompile(`(?i)year.?plus|long.?term|future`)},
	}

	// budgetPattern keeps the first raw match, currency symbol and suffix included.
	budgetPattern = regexp.MustCompile(`(?i)\$?(\d+(?:,\d{3})*(?:k|m)?)`)

	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`(?:\+?1[\s.-]?)?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}`)
	namePattern  = regexp.MustCompile(`\b(?i:my name is|my name's|this is)\s+([A-Z][a-zA-Z'-]+(?:\s+[A-Z][a-zA-Z'-]+)?)`)
)

func firstRule(rules []slotRule, msg string) string {
	for _, rule := range rules {
		if rule.pattern.MatchString(msg) {
			return rule.value
		}
	}
	return ""
}

// ExtractSlots pulls profile facts out of msg and merges them into current.
// The caller's profile is never modified; fields already set are kept.
func ExtractSlots(msg string, current Profile) Profile {
	found := Profile{
		PropertyInterest: firstRule(propertyRules, msg),
		Location:         firstRule(locationRules, msg),
		Timeline:         firstRule(timelineRules, msg),
		Budget:           budgetPattern.FindString(withoutContact(msg)),
		Email:            emailPattern.FindString(msg),
		Phone:            strings.TrimSpace(phonePattern.FindString(msg)),
	}
	if m := namePattern.FindStringSubmatch(msg); len(m) == 2 {
		found.Name = strings.TrimSpace(m[1])
	}
	return MergeProfile(current, found)
}

// withoutContact blanks out email addresses and phone numbers so their digits
// are not read as a budget.
func withoutContact(msg string) string {
	msg = emailPattern.ReplaceAllString(msg, " ")
	return phonePattern.ReplaceAllString(msg, " ")
}

// MergeProfile fills the blank fields of base from update.
func MergeProfile(base, update Profile) Profile {
	out := base
	fill := func(dst *string, v string) {
		if strings.TrimSpace(*dst) == "" && strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	fill(&out.Name, update.Name)
	fill(&out.Email, update.Email)
	fill(&out.Phone, update.Phone)
	fill(&out.PropertyInterest, update.PropertyInterest)
	fill(&out.Budget, update.Budget)
	fill(&out.Location, update.Location)
	fill(&out.Urgency, update.Urgency)
	fill(&out.Timeline, update.Timeline)
	return out
}

// HasContact reports whether the profile carries enough to create a lead.
func (p Profile) HasContact() bool {
	return strings.TrimSpace(p.Name) != "" && strings.TrimSpace(p.Email) != ""
}
