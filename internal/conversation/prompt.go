package conversation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wolfman30/urbanhaven-leadbot/internal/knowledge"
)

var promptGuidelines = []string{
	"If user shows interest in properties, ask for their contact information",
	"If user asks about pricing, provide specific ranges and ask about their budget",
	"If user asks about locations, describe the areas and ask about their preferences",
	"If user wants to schedule a viewing, collect necessary details",
	"Be conversational and ask follow-up questions to gather more information",
	fmt.Sprintf("When lead score reaches %d+, politely ask for contact information", QualifyThreshold),
}

// BuildSystemPrompt renders the instruction block for delegated replies from
// the turn's assessment.
func BuildSystemPrompt(kb *knowledge.Base, a Assessment) string {
	if kb == nil {
		kb = knowledge.Default()
	}
	profileJSON, err := json.Marshal(a.Profile)
	if err != nil {
		profileJSON = []byte("{}")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, an AI real estate agent for %s. You help customers with property questions and collect leads for the marketing team. Be friendly, professional, and knowledgeable about real estate.\n\n", kb.AgentName, kb.Brand)
	fmt.Fprintf(&b, "Current conversation state: %s\n", a.NewState)
	fmt.Fprintf(&b, "User intent: %s (confidence: %.2f)\n", a.Intent, a.Confidence)
	fmt.Fprintf(&b, "Lead score: %d/100\n", a.Score.Score)
	fmt.Fprintf(&b, "User info: %s\n\n", profileJSON)

	fmt.Fprintf(&b, "Key information about %s:\n", kb.Brand)
	fmt.Fprintf(&b, "- Property types: %s\n", kb.PropertyTypesLine())
	fmt.Fprintf(&b, "- Services: %s\n", kb.ServicesLine())
	fmt.Fprintf(&b, "- Locations: %s\n\n", kb.LocationsLine())

	b.WriteString("Conversation Guidelines:\n")
	for i, g := range promptGuidelines {
		fmt.Fprintf(&b, "%d. %s\n", i+1, g)
	}
	b.WriteString("\n")
	b.WriteString("Current user preferences: ")
	b.WriteString(preferencesLine(a.Profile))
	return b.String()
}

func preferencesLine(p Profile) string {
	parts := make([]string, 0, 3)
	if present(p.PropertyInterest) {
		parts = append(parts, "Property: "+p.PropertyInterest)
	} else {
		parts = append(parts, "Not specified")
	}
	if present(p.Budget) {
		parts = append(parts, "Budget: "+p.Budget)
	}
	if present(p.Location) {
		parts = append(parts, "Location: "+p.Location)
	}
	return strings.Join(parts, " ")
}

// BuildChatMessages maps the prior transcript window onto chat roles and
// appends the new user message.
func BuildChatMessages(history []Message, userMessage string) []ChatMessage {
	out := make([]ChatMessage, 0, len(history)+1)
	for _, msg := range history {
		out = append(out, ChatMessage{Role: roleForSender(msg.Sender), Content: msg.Content})
	}
	return append(out, ChatMessage{Role: ChatRoleUser, Content: userMessage})
}
