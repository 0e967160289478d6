// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package types defines the JSON envelope shared by all HTTP endpoints.
package types

import (
	"encoding/json"
	"net/http"
)

// Response is the standard envelope for API responses. Data is omitted on
// errors, Message is omitted on plain success payloads.
type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// WriteResponse writes the envelope with the given status code.
func WriteResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{
		Status: status,
		Data:   data,
	})
}

// WriteErrorResponse writes an error envelope with the given status code.
func WriteErrorResponse(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{
		Status:  status,
		Message: message,
	})
}
