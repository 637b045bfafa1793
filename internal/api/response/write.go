package response

import (
	"encoding/json"
	"net/http"
)

// JSON writes a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Null writes a 200 response whose body is the JSON literal null
func Null(w http.ResponseWriter) {
	JSON(w, http.StatusOK, json.RawMessage("null"))
}
