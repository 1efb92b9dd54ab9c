// Gatekeeper - Policy-Based Authorization Core for Event Provenance
// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventprovenance/gatekeeper

package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/eventprovenance/gatekeeper/internal/authz"
	"github.com/eventprovenance/gatekeeper/internal/storage"
)

// handlersHarness mounts the handlers on a chi router with a fixed
// authenticated principal and no authorization guard; the guard has its
// own tests.
func handlersHarness(store storage.Store) *chi.Mux {
	h := NewHandlers(store)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := authz.WithPrincipal(req.Context(), authz.Principal{ID: "alice"})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})

	r.Post("/receivers", h.CreateReceiver)
	r.Get("/receivers/{receiverID}", h.GetReceiver)
	r.Put("/receivers/{receiverID}", h.UpdateReceiver)
	r.Delete("/receivers/{receiverID}", h.DeleteReceiver)
	r.Post("/groups", h.CreateGroup)
	r.Get("/groups/{groupID}", h.GetGroup)
	r.Put("/groups/{groupID}", h.UpdateGroup)
	r.Delete("/groups/{groupID}", h.DeleteGroup)
	r.Post("/events", h.CreateEvent)
	r.Get("/events/{eventID}", h.GetEvent)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode envelope: %v (body: %s)", err, rec.Body.String())
	}
	if out != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
}

func TestReceiverCRUD(t *testing.T) {
	router := handlersHarness(storage.NewMemoryStore(nil))

	rec := doJSON(t, router, http.MethodPost, "/receivers", map[string]interface{}{
		"name":        "build-notifier",
		"type":        "webhook",
		"description": "notifies on builds",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	var created storage.EventReceiver
	decodeData(t, rec, &created)
	if created.ID == "" || created.Version != 1 {
		t.Errorf("created = %+v", created)
	}
	if created.OwnerID != "alice" {
		t.Errorf("OwnerID = %q, want the authenticated principal", created.OwnerID)
	}

	rec = doJSON(t, router, http.MethodGet, "/receivers/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPut, "/receivers/"+created.ID, map[string]interface{}{
		"name": "renamed",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	var updated storage.EventReceiver
	decodeData(t, rec, &updated)
	if updated.Name != "renamed" || updated.Version != 2 {
		t.Errorf("updated = %+v", updated)
	}

	rec = doJSON(t, router, http.MethodDelete, "/receivers/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/receivers/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestGroupCRUD(t *testing.T) {
	router := handlersHarness(storage.NewMemoryStore(nil))

	rec := doJSON(t, router, http.MethodPost, "/groups", map[string]interface{}{
		"name":       "pipeline",
		"member_ids": []string{"alice", "bob"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	var created storage.EventReceiverGroup
	decodeData(t, rec, &created)
	if len(created.MemberIDs) != 2 || created.OwnerID != "alice" {
		t.Errorf("created = %+v", created)
	}

	rec = doJSON(t, router, http.MethodPut, "/groups/"+created.ID, map[string]interface{}{
		"name":       "pipeline",
		"member_ids": []string{"alice", "bob", "carol"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	var updated storage.EventReceiverGroup
	decodeData(t, rec, &updated)
	if len(updated.MemberIDs) != 3 || updated.Version != 2 {
		t.Errorf("updated = %+v", updated)
	}

	rec = doJSON(t, router, http.MethodDelete, "/groups/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
}

func TestCreateEventRequiresExistingReceiver(t *testing.T) {
	store := storage.NewMemoryStore(nil)
	router := handlersHarness(store)

	// A syntactically valid receiver id that does not exist.
	rec := doJSON(t, router, http.MethodPost, "/events", map[string]interface{}{
		"name":        "build finished",
		"receiver_id": "a2b1c3d4-e5f6-4a7b-8c9d-0e1f2a3b4c5d",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for a missing receiver (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestEventCreateAndGet(t *testing.T) {
	store := storage.NewMemoryStore(nil)
	router := handlersHarness(store)

	rec := doJSON(t, router, http.MethodPost, "/receivers", map[string]interface{}{"name": "sink"})
	var receiver storage.EventReceiver
	decodeData(t, rec, &receiver)

	rec = doJSON(t, router, http.MethodPost, "/events", map[string]interface{}{
		"name":        "deploy finished",
		"receiver_id": receiver.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	var event storage.Event
	decodeData(t, rec, &event)
	if event.ReceiverID != receiver.ID || event.OwnerID != "alice" {
		t.Errorf("event = %+v", event)
	}

	rec = doJSON(t, router, http.MethodGet, "/events/"+event.ID, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("get status = %d", rec.Code)
	}
}

func TestValidationErrors(t *testing.T) {
	router := handlersHarness(storage.NewMemoryStore(nil))

	tests := []struct {
		name string
		path string
		body interface{}
	}{
		{"receiver without name", "/receivers", map[string]interface{}{"type": "webhook"}},
		{"receiver with bad group id", "/receivers", map[string]interface{}{"name": "x", "group_id": "not-a-uuid"}},
		{"group without name", "/groups", map[string]interface{}{"member_ids": []string{"a"}}},
		{"event without receiver", "/events", map[string]interface{}{"name": "x"}},
		{"event with bad receiver id", "/events", map[string]interface{}{"name": "x", "receiver_id": "nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, tt.path, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body: %s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestMalformedJSONRejected(t *testing.T) {
	router := handlersHarness(storage.NewMemoryStore(nil))

	req := httptest.NewRequest(http.MethodPost, "/receivers", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestNotFoundResponses(t *testing.T) {
	router := handlersHarness(storage.NewMemoryStore(nil))

	for _, path := range []string{"/receivers/missing", "/groups/missing", "/events/missing"} {
		rec := doJSON(t, router, http.MethodGet, path, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", path, rec.Code)
		}
	}
}
