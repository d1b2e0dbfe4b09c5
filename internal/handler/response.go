package handler

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/officine/bilan/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDenied renders the uniform refusal page. Every refusal shares this
// page; only the status and the reason text differ.
func writeDenied(w http.ResponseWriter, status int, message string) {
	body, err := renderPage("denied.html", deniedPage{Message: message})
	if err != nil {
		log.Error().Err(err).Msg("failed to render denied page")
		http.Error(w, "Acces non autorise", status)
		return
	}
	httputil.WriteHTML(w, status, body)
}

// WriteDeniedPage exposes the refusal page to middleware mounted in front of
// the tablet routes.
func WriteDeniedPage(w http.ResponseWriter, status int, message string) {
	writeDenied(w, status, message)
}
