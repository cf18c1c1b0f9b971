package api

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// writeJSONResponse writes a JSON response with the given status code
func writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeErrorResponse writes {"detail": message, "status": "error"}
func writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	writeJSONResponse(w, statusCode, map[string]any{
		"detail": message,
		"status": "error",
	})
}

// writeValidationErrorResponse writes a 422 with the per-field messages
func writeValidationErrorResponse(w http.ResponseWriter, fields map[string]string) {
	writeJSONResponse(w, http.StatusUnprocessableEntity, map[string]any{
		"detail": "Invalid employee record",
		"status": "error",
		"errors": fields,
	})
}

// writeInternalServerErrorResponse writes a 500 Internal Server Error response
func writeInternalServerErrorResponse(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Internal Server Error"
	}
	writeErrorResponse(w, http.StatusInternalServerError, message)
}

// parseLimit extracts a positive limit parameter, returning def when absent or invalid
func parseLimit(r *http.Request, def, ceiling int) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return def
	}
	if limit > ceiling {
		return ceiling
	}
	return limit
}
