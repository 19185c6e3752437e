// SPDX-License-Identifier: Apache-2.0

// Package devserver is an in-memory stand-in for the warehouse API, used for
// local development and integration tests. It implements the same contract
// the real backend does: idempotent mutation handling keyed on the client's
// Idempotency-Key header, optimistic version checks, and 409 responses that
// carry the server's current record.
package devserver

import (
	"sync"

	"github.com/mknoufi/stockverify/internal/logger"
	"github.com/mknoufi/stockverify/internal/utils"
	"github.com/mknoufi/stockverify/models"
)

// Server holds the in-memory warehouse state. Safe for concurrent use.
type Server struct {
	logger *logger.Logger
	ids    *utils.UUIDGenerator

	mu       sync.Mutex
	catalog  []models.Item
	sessions map[string]models.Session
	lines    map[string]models.CountLine
	unknown  map[string]models.UnknownItem

	// applied maps idempotency keys to the response already produced for
	// them, so a replayed delivery returns the original result instead of
	// applying the mutation twice.
	applied map[string][]byte
}

func NewServer(log *logger.Logger) *Server {
	return &Server{
		logger:   log,
		ids:      utils.NewUUIDGenerator(),
		sessions: make(map[string]models.Session),
		lines:    make(map[string]models.CountLine),
		unknown:  make(map[string]models.UnknownItem),
		applied:  make(map[string][]byte),
	}
}

// Seed loads catalog items served by the search endpoint.
func (s *Server) Seed(items []models.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = append(s.catalog, items...)
}

// Session returns a stored session by id.
func (s *Server) Session(id string) (models.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	return session, ok
}

// CountLine returns a stored count line by id.
func (s *Server) CountLine(id string) (models.CountLine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line, ok := s.lines[id]
	return line, ok
}

// CloseSession force-closes a session server-side, bumping its version.
// Used to provoke conflicts in tests and demos.
func (s *Server) CloseSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return
	}
	session.Status = models.SessionClosed
	session.Version++
	s.sessions[id] = session
}

// SetCountLine overwrites a count line server-side, bumping its version.
// Used to provoke conflicts in tests and demos.
func (s *Server) SetCountLine(line models.CountLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.lines[line.ID]
	if ok {
		line.Version = current.Version + 1
	} else if line.Version == 0 {
		line.Version = 1
	}
	s.lines[line.ID] = line
}
