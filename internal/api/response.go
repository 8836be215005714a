// Package api is Prismis's REST surface: a chi router, X-API-Key auth
// middleware, and one handler file per resource. Every response, error
// paths included, renders through the single flat envelope.
package api

import (
	"encoding/json"
	"net/http"
)

// Envelope is the uniform response shape: {success, message, data}.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// writeSuccess writes a 200 envelope carrying data.
func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

// writeCreated writes a 201 envelope carrying data.
func writeCreated(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, Envelope{Success: true, Data: data})
}

// writeMessage writes a 200 envelope with no data, just a message -
// used by the source update/remove/pause/resume and entry update endpoints.
func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Message: message})
}
