package api

import (
	"encoding/json"
	"net/http"

	"github.com/parting-gifts/internal/logging"
)

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondText sends a plain text response.
func respondText(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(statusCode)
	w.Write([]byte(message))
}

// respondError sends the standard JSON error envelope.
func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, map[string]string{"error": message})
}

// logUnexpected records a failure the client only sees as a 500.
func logUnexpected(r *http.Request, err error) {
	logging.FromContext(r.Context()).WithError(err).Error("unexpected handler error")
}

// parseJSONBody parses a JSON request body. Unknown fields are tolerated
// so old clients keep working.
func parseJSONBody(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}
