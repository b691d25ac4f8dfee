package handlers

import (
	"encoding/json"
	"net/http"
)

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// respondJSONError sends an error JSON response. Messages are kept short and
// free of internal detail.
func respondJSONError(w http.ResponseWriter, status int, message string) {
	if len(message) > 200 {
		message = message[:200] + "..."
	}

	respondJSON(w, status, map[string]any{
		"error": message,
	})
}
