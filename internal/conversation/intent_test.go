package conversation

import (
	"math"
	"testing"
)

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		name       string
		msg        string
		intent     Intent
		confidence float64
	}{
		{name: "pricing", msg: "How much does it cost?", intent: IntentPricing, confidence: 2.0 / 7},
		{name: "case folded", msg: "HOW MUCH IS THIS", intent: IntentPricing, confidence: 1.0 / 7},
		{name: "location", msg: "Where is the downtown area?", intent: IntentLocation, confidence: 3.0 / 7},
		{name: "lead qualification", msg: "I want to buy a house", intent: IntentLeadQualification, confidence: 2.0 / 5},
		{name: "shared trigger goes to smaller set", msg: "I'd like a tour", intent: IntentAppointment, confidence: 1.0 / 6},
		{name: "tie keeps table order", msg: "price in this location", intent: IntentPricing, confidence: 1.0 / 7},
		{name: "schedule", msg: "Can I schedule a visit?", intent: IntentAppointment, confidence: 2.0 / 6},
		{name: "no triggers", msg: "hello there", intent: IntentGeneral, confidence: 0},
		{name: "empty", msg: "   ", intent: IntentGeneral, confidence: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyIntent(tt.msg)
			if got.Intent != tt.intent {
				t.Fatalf("expected intent %s, got %s (%.3f)", tt.intent, got.Intent, got.Confidence)
			}
			if math.Abs(got.Confidence-tt.confidence) > 1e-9 {
				t.Fatalf("expected confidence %.4f, got %.4f", tt.confidence, got.Confidence)
			}
		})
	}
}

func TestClassifyIntentCountsTriggersOnce(t *testing.T) {
	got := ClassifyIntent("price price price")
	if got.Intent != IntentPricing || math.Abs(got.Confidence-1.0/7) > 1e-9 {
		t.Fatalf("expected one distinct trigger, got %+v", got)
	}
}

func TestIntentTriggerCount(t *testing.T) {
	if n := IntentTriggerCount(IntentPropertyType); n != 6 {
		t.Fatalf("expected 6 property triggers, got %d", n)
	}
	if n := IntentTriggerCount(IntentGeneral); n != 0 {
		t.Fatalf("expected no triggers for general, got %d", n)
	}
}
