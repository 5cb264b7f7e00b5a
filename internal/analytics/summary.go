// Package analytics aggregates stored chat sessions into dashboard figures.
package analytics

import (
	"math"
	"sort"

	"github.com/wolfman30/urbanhaven-leadbot/internal/conversation"
)

// TopIntentLimit caps the intent leaderboard.
const TopIntentLimit = 5

// IntentCount is one row of the intent leaderboard.
type IntentCount struct {
	Intent string `json:"intent"`
	Count  int    `json:"count"`
}

// Summary is the payload of GET /analytics.
type Summary struct {
	TotalSessions  int           `json:"totalSessions"`
	QualifiedLeads int           `json:"qualifiedLeads"`
	AvgLeadScore   float64       `json:"avgLeadScore"`
	TopIntents     []IntentCount `json:"topIntents"`
	ConversionRate float64       `json:"conversionRate"`
}

// Summarize computes the dashboard figures. Intents are counted over every
// message of every session; messages without an intent label are skipped.
// ConversionRate is a percentage rounded to two decimals.
func Summarize(sessions []*conversation.Session) Summary {
	summary := Summary{TopIntents: []IntentCount{}}
	counts := make(map[string]int)
	scoreTotal := 0

	for _, sess := range sessions {
		if sess == nil {
			continue
		}
		summary.TotalSessions++
		if sess.Context.Qualified {
			summary.QualifiedLeads++
		}
		scoreTotal += sess.Context.LeadScore
		for _, msg := range sess.Messages {
			if msg.Intent == "" {
				continue
			}
			counts[string(msg.Intent)]++
		}
	}

	if summary.TotalSessions > 0 {
		summary.AvgLeadScore = float64(scoreTotal) / float64(summary.TotalSessions)
		rate := float64(summary.QualifiedLeads) / float64(summary.TotalSessions) * 100
		summary.ConversionRate = math.Round(rate*100) / 100
	}

	for intent, n := range counts {
		summary.TopIntents = append(summary.TopIntents, IntentCount{Intent: intent, Count: n})
	}
	sort.Slice(summary.TopIntents, func(i, j int) bool {
		a, b := summary.TopIntents[i], summary.TopIntents[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Intent < b.Intent
	})
	if len(summary.TopIntents) > TopIntentLimit {
		summary.TopIntents = summary.TopIntents[:TopIntentLimit]
	}
	return summary
}
