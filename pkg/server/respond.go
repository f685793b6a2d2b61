package server

import (
	"net/http"

	"github.com/goccy/go-json"

	"mercator-hq/tabula/pkg/api"
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, body *api.ErrorResponse) {
	respondJSON(w, status, body)
}
