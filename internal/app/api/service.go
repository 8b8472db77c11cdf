package api

import (
	"encoding/json"
	"net/http"
)

func (api *API) serviceDescription(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.descriptor)
}

func (api *API) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v)
}
