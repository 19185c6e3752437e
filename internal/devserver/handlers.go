// SPDX-License-Identifier: Apache-2.0

package devserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mknoufi/stockverify/models"
)

const idempotencyHeader = "Idempotency-Key"

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var m models.SessionMutation
	if !s.decode(w, r, &m) {
		return
	}

	key := r.Header.Get(idempotencyHeader)
	if s.replay(w, key) {
		return
	}

	s.mu.Lock()
	session := m.Session
	if session.ID == "" {
		session.ID = s.ids.Generate()
	}
	session.Status = models.SessionOpen
	session.Version = 1
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	s.sessions[session.ID] = session
	s.mu.Unlock()

	s.respond(w, key, http.StatusCreated, session)
}

func (s *Server) updateSessionStatus(w http.ResponseWriter, r *http.Request) {
	var m models.SessionMutation
	if !s.decode(w, r, &m) {
		return
	}

	key := r.Header.Get(idempotencyHeader)
	if s.replay(w, key) {
		return
	}

	sessionID := chi.URLParam(r, "sessionID")

	s.mu.Lock()
	current, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if m.BaseVersion != current.Version {
		s.mu.Unlock()
		s.writeJSON(w, http.StatusConflict, current)
		return
	}

	current.Status = m.Session.Status
	current.Version++
	current.UpdatedAt = time.Now().UTC()
	s.sessions[sessionID] = current
	s.mu.Unlock()

	s.respond(w, key, http.StatusOK, current)
}

func (s *Server) createCountLine(w http.ResponseWriter, r *http.Request) {
	var m models.CountLineMutation
	if !s.decode(w, r, &m) {
		return
	}

	key := r.Header.Get(idempotencyHeader)
	if s.replay(w, key) {
		return
	}

	if m.Line.CountedQty < 0 {
		s.writeError(w, http.StatusUnprocessableEntity, "counted_qty must be >= 0")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")

	s.mu.Lock()
	line := m.Line
	line.SessionID = sessionID
	if line.ID == "" {
		line.ID = s.ids.Generate()
	}
	if existing, ok := s.lines[line.ID]; ok {
		// the line already exists (e.g. created by another device): this
		// create raced a concurrent write, report the current record
		s.mu.Unlock()
		s.writeJSON(w, http.StatusConflict, existing)
		return
	}
	line.Version = 1
	line.UpdatedAt = time.Now().UTC()
	s.lines[line.ID] = line
	s.mu.Unlock()

	s.respond(w, key, http.StatusCreated, line)
}

func (s *Server) updateCountLine(w http.ResponseWriter, r *http.Request) {
	var m models.CountLineMutation
	if !s.decode(w, r, &m) {
		return
	}

	key := r.Header.Get(idempotencyHeader)
	if s.replay(w, key) {
		return
	}

	if m.Line.CountedQty < 0 {
		s.writeError(w, http.StatusUnprocessableEntity, "counted_qty must be >= 0")
		return
	}

	lineID := chi.URLParam(r, "lineID")

	s.mu.Lock()
	current, ok := s.lines[lineID]
	if !ok {
		s.mu.Unlock()
		s.writeError(w, http.StatusNotFound, "count line not found")
		return
	}
	if m.BaseVersion != current.Version {
		s.mu.Unlock()
		s.writeJSON(w, http.StatusConflict, current)
		return
	}

	current.CountedQty = m.Line.CountedQty
	current.Version++
	current.UpdatedAt = time.Now().UTC()
	s.lines[lineID] = current
	s.mu.Unlock()

	s.respond(w, key, http.StatusOK, current)
}

func (s *Server) createUnknownItem(w http.ResponseWriter, r *http.Request) {
	var m models.UnknownItemMutation
	if !s.decode(w, r, &m) {
		return
	}

	key := r.Header.Get(idempotencyHeader)
	if s.replay(w, key) {
		return
	}

	if m.Item.Description == "" && m.Item.Barcode == "" {
		s.writeError(w, http.StatusUnprocessableEntity, "unknown item needs a barcode or description")
		return
	}

	s.mu.Lock()
	unknown := m.Item
	if unknown.ID == "" {
		unknown.ID = s.ids.Generate()
	}
	if unknown.ReportedAt.IsZero() {
		unknown.ReportedAt = time.Now().UTC()
	}
	s.unknown[unknown.ID] = unknown
	s.mu.Unlock()

	s.respond(w, key, http.StatusCreated, unknown)
}

func (s *Server) searchItems(w http.ResponseWriter, r *http.Request) {
	needle := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))

	s.mu.Lock()
	matches := make([]models.Item, 0)
	for _, item := range s.catalog {
		if needle == "" ||
			strings.Contains(strings.ToLower(item.SKU), needle) ||
			strings.Contains(strings.ToLower(item.Barcode), needle) ||
			strings.Contains(strings.ToLower(item.Name), needle) {
			matches = append(matches, item)
		}
	}
	s.mu.Unlock()

	s.writeJSON(w, http.StatusOK, matches)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

// replay answers from the idempotency record when this key was already
// applied, reporting true when it did.
func (s *Server) replay(w http.ResponseWriter, key string) bool {
	if key == "" {
		return false
	}

	s.mu.Lock()
	body, ok := s.applied[key]
	s.mu.Unlock()
	if !ok {
		return false
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
	return true
}

// respond writes the result and records it under the idempotency key so a
// redelivery of the same mutation returns this exact body.
func (s *Server) respond(w http.ResponseWriter, key string, status int, body any) {
	raw, err := json.Marshal(body)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "encoding response failed")
		return
	}

	if key != "" {
		s.mu.Lock()
		s.applied[key] = raw
		s.mu.Unlock()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	raw, err := json.Marshal(body)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "encoding response failed")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}

func (s *Server) writeError(w http.ResponseWriter, status int, reason string) {
	s.writeJSON(w, status, map[string]string{"error": reason})
}
