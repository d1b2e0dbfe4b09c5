package middleware

import (
	"net/http"

	"github.com/officine/bilan/internal/httputil"
)

// rejectJSON answers with the {"error": ...} body the tablet script displays.
func rejectJSON(w http.ResponseWriter, status int, message string) {
	httputil.WriteJSON(w, status, map[string]string{"error": message})
}
