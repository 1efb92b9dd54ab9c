// Gatekeeper - Policy-Based Authorization Core for Event Provenance
// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventprovenance/gatekeeper

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/eventprovenance/gatekeeper/internal/logging"
	"github.com/eventprovenance/gatekeeper/internal/storage"
)

// APIResponse is the envelope for all API responses.
type APIResponse struct {
	Status    string      `json:"status"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Error     *APIError   `json:"error,omitempty"`
}

// APIError carries a machine-readable code and a human-readable
// message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondJSON sends a JSON response with proper headers.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	body, err := json.Marshal(&APIResponse{
		Status:    "ok",
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().Str("code", code).Err(err).Msg("API error")
	}

	w.Header().Set("Content-Type", "application/json")
	body, merr := json.Marshal(&APIResponse{
		Status:    "error",
		Timestamp: time.Now().UTC(),
		Error: &APIError{
			Code:    code,
			Message: message,
		},
	})
	if merr != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	if _, werr := w.Write(body); werr != nil {
		logging.Error().Err(werr).Msg("Failed to write JSON response")
	}
}

// respondStoreError maps repository errors onto HTTP statuses.
func respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "resource not found", nil)
		return
	}
	respondError(w, http.StatusInternalServerError, "STORAGE_ERROR", "storage operation failed", err)
}

// decodeAndValidate unmarshals the request body into v and runs
// struct validation.
func decodeAndValidate(r *http.Request, validate *validator.Validate, v interface{}) *APIError {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &APIError{Code: "INVALID_BODY", Message: "request body is not valid JSON"}
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &APIError{
				Code:    "VALIDATION_ERROR",
				Message: "field " + verrs[0].Field() + " failed " + verrs[0].Tag() + " validation",
			}
		}
		return &APIError{Code: "VALIDATION_ERROR", Message: "request validation failed"}
	}
	return nil
}
