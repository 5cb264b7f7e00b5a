package router

import (
	"encoding/json"
	"net/http"

	"github.com/wolfman30/urbanhaven-leadbot/internal/knowledge"
)

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "OK",
		"message": "Chatbot server is running",
	})
}

// propertiesHandler serves the read-only knowledge base.
func propertiesHandler(kb *knowledge.Base) http.HandlerFunc {
	catalog := kb.Catalog()
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, catalog)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
