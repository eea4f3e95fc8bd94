package main

import (
	"encoding/json"
	"net/http"
)

type response struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *errorDetail   `json:"error,omitempty"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	d := &errorDetail{Code: code, Message: http.StatusText(status)}
	if err != nil && status < http.StatusInternalServerError {
		d.Message = err.Error()
	}
	writeJSON(w, status, response{Error: d})
}
