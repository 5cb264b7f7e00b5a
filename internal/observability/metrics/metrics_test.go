package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if labelsMatch(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func labelsMatch(metric *dto.Metric, want map[string]string) bool {
	got := make(map[string]string, len(metric.GetLabel()))
	for _, lp := range metric.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestConversationMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConversationMetrics(reg)

	m.ObserveTurn("pricing", "greeting")
	m.ObserveTurn("pricing", "greeting")
	m.ObserveQualified()
	m.ObserveGenerationFailure("timeout")
	m.ObserveGenerationLatency("delegated", 0.4)
	m.ObserveLeadCreated("chatbot")
	m.ObserveNotification("failed")

	if got := counterValue(t, reg, "urbanhaven_chat_turns_total", map[string]string{"intent": "pricing", "state": "greeting"}); got != 2 {
		t.Fatalf("expected 2 turns, got %v", got)
	}
	if got := counterValue(t, reg, "urbanhaven_chat_sessions_qualified_total", nil); got != 1 {
		t.Fatalf("expected 1 qualified session, got %v", got)
	}
	if got := counterValue(t, reg, "urbanhaven_leads_created_total", map[string]string{"source": "chatbot"}); got != 1 {
		t.Fatalf("expected 1 lead, got %v", got)
	}
	if got := counterValue(t, reg, "urbanhaven_leads_notifications_total", map[string]string{"status": "failed"}); got != 1 {
		t.Fatalf("expected 1 failed notification, got %v", got)
	}
}

func TestConversationMetricsDefaultRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	prev := prometheus.DefaultRegisterer
	prometheus.DefaultRegisterer = reg
	defer func() { prometheus.DefaultRegisterer = prev }()

	m := NewConversationMetrics(nil)
	m.ObserveLeadCreated("form")
	if got := counterValue(t, reg, "urbanhaven_leads_created_total", map[string]string{"source": "form"}); got != 1 {
		t.Fatalf("expected metrics on default registerer, got %v", got)
	}
}

func TestConversationMetricsNilSafe(t *testing.T) {
	var m *ConversationMetrics
	m.ObserveTurn("general", "greeting")
	m.ObserveQualified()
	m.ObserveGenerationFailure("error")
	m.ObserveGenerationLatency("templated", 0.1)
	m.ObserveLeadCreated("chatbot")
	m.ObserveNotification("sent")
}
