// Gatekeeper - Policy-Based Authorization Core for Event Provenance
// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventprovenance/gatekeeper

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/eventprovenance/gatekeeper/internal/authz"
	"github.com/eventprovenance/gatekeeper/internal/storage"
)

// Handlers serves the domain resource endpoints over the repository.
type Handlers struct {
	store    storage.Store
	validate *validator.Validate
}

// NewHandlers creates the handler set.
func NewHandlers(store storage.Store) *Handlers {
	return &Handlers{
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// createReceiverRequest is the body for creating an event receiver.
type createReceiverRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=255"`
	Type        string `json:"type" validate:"omitempty,max=255"`
	Description string `json:"description" validate:"omitempty,max=4096"`
	GroupID     string `json:"group_id" validate:"omitempty,uuid4"`
}

// updateReceiverRequest is the body for updating an event receiver.
type updateReceiverRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=255"`
	Type        string `json:"type" validate:"omitempty,max=255"`
	Description string `json:"description" validate:"omitempty,max=4096"`
	GroupID     string `json:"group_id" validate:"omitempty,uuid4"`
}

// CreateReceiver handles POST /api/v1/receivers.
func (h *Handlers) CreateReceiver(w http.ResponseWriter, r *http.Request) {
	var req createReceiverRequest
	if apiErr := decodeAndValidate(r, h.validate, &req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	principal, _ := authz.PrincipalFromContext(r.Context())
	receiver := &storage.EventReceiver{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Type:        req.Type,
		Description: req.Description,
		OwnerID:     principal.ID,
		GroupID:     req.GroupID,
	}

	if err := h.store.CreateEventReceiver(r.Context(), receiver); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, receiver)
}

// GetReceiver handles GET /api/v1/receivers/{receiverID}.
func (h *Handlers) GetReceiver(w http.ResponseWriter, r *http.Request) {
	receiver, err := h.store.GetEventReceiver(r.Context(), chi.URLParam(r, "receiverID"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, receiver)
}

// UpdateReceiver handles PUT /api/v1/receivers/{receiverID}.
func (h *Handlers) UpdateReceiver(w http.ResponseWriter, r *http.Request) {
	var req updateReceiverRequest
	if apiErr := decodeAndValidate(r, h.validate, &req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	id := chi.URLParam(r, "receiverID")
	existing, err := h.store.GetEventReceiver(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	existing.Name = req.Name
	existing.Type = req.Type
	existing.Description = req.Description
	existing.GroupID = req.GroupID

	if err := h.store.UpdateEventReceiver(r.Context(), existing); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, existing)
}

// DeleteReceiver handles DELETE /api/v1/receivers/{receiverID}.
func (h *Handlers) DeleteReceiver(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteEventReceiver(r.Context(), chi.URLParam(r, "receiverID")); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

// createGroupRequest is the body for creating an event receiver group.
type createGroupRequest struct {
	Name        string   `json:"name" validate:"required,min=1,max=255"`
	Description string   `json:"description" validate:"omitempty,max=4096"`
	MemberIDs   []string `json:"member_ids" validate:"omitempty,dive,min=1"`
	ReceiverIDs []string `json:"receiver_ids" validate:"omitempty,dive,uuid4"`
}

// updateGroupRequest is the body for updating an event receiver group.
type updateGroupRequest struct {
	Name        string   `json:"name" validate:"required,min=1,max=255"`
	Description string   `json:"description" validate:"omitempty,max=4096"`
	MemberIDs   []string `json:"member_ids" validate:"omitempty,dive,min=1"`
	ReceiverIDs []string `json:"receiver_ids" validate:"omitempty,dive,uuid4"`
}

// CreateGroup handles POST /api/v1/groups.
func (h *Handlers) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if apiErr := decodeAndValidate(r, h.validate, &req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	principal, _ := authz.PrincipalFromContext(r.Context())
	group := &storage.EventReceiverGroup{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     principal.ID,
		MemberIDs:   req.MemberIDs,
		ReceiverIDs: req.ReceiverIDs,
	}

	if err := h.store.CreateEventReceiverGroup(r.Context(), group); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, group)
}

// GetGroup handles GET /api/v1/groups/{groupID}.
func (h *Handlers) GetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := h.store.GetEventReceiverGroup(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, group)
}

// UpdateGroup handles PUT /api/v1/groups/{groupID}.
func (h *Handlers) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	var req updateGroupRequest
	if apiErr := decodeAndValidate(r, h.validate, &req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	id := chi.URLParam(r, "groupID")
	existing, err := h.store.GetEventReceiverGroup(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	existing.Name = req.Name
	existing.Description = req.Description
	existing.MemberIDs = req.MemberIDs
	existing.ReceiverIDs = req.ReceiverIDs

	if err := h.store.UpdateEventReceiverGroup(r.Context(), existing); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, existing)
}

// DeleteGroup handles DELETE /api/v1/groups/{groupID}.
func (h *Handlers) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteEventReceiverGroup(r.Context(), chi.URLParam(r, "groupID")); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

// createEventRequest is the body for recording an event.
type createEventRequest struct {
	Name       string `json:"name" validate:"required,min=1,max=255"`
	ReceiverID string `json:"receiver_id" validate:"required,uuid4"`
	Payload    []byte `json:"payload" validate:"omitempty,max=1048576"`
}

// CreateEvent handles POST /api/v1/events. Events are immutable once
// recorded; there is no update or delete route.
func (h *Handlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if apiErr := decodeAndValidate(r, h.validate, &req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	// The receiver must exist before an event can target it.
	if _, err := h.store.GetEventReceiver(r.Context(), req.ReceiverID); err != nil {
		respondStoreError(w, err)
		return
	}

	principal, _ := authz.PrincipalFromContext(r.Context())
	event := &storage.Event{
		ID:         uuid.New().String(),
		Name:       req.Name,
		ReceiverID: req.ReceiverID,
		OwnerID:    principal.ID,
		Payload:    req.Payload,
	}

	if err := h.store.CreateEvent(r.Context(), event); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, event)
}

// GetEvent handles GET /api/v1/events/{eventID}.
func (h *Handlers) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.store.GetEvent(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, event)
}
