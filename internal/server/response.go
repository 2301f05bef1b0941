package server

import (
	"encoding/json"
	"net/http"
)

// Envelope wraps every JSON body the server writes.
type Envelope struct {
	Status  int    `json:"status"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(env)
}

func success(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, Envelope{
		Status:  status,
		Success: true,
		Message: message,
		Data:    data,
	})
}

func failure(w http.ResponseWriter, status int, message string, errs any) {
	writeJSON(w, status, Envelope{
		Status:  status,
		Success: false,
		Message: message,
		Errors:  errs,
	})
}
