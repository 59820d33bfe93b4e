// Package memory provides an in-process implementation of storage.Store.
//
// It backs tests and single-process deployments that keep no state across
// restarts. Semantics match the SQLite backend.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/mmynk/secretsanta/internal/errs"
	"github.com/mmynk/secretsanta/internal/models"
	"github.com/mmynk/secretsanta/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

// Store keeps every record in maps guarded by a single RWMutex.
type Store struct {
	mu sync.RWMutex

	groups       map[string]*models.Group
	byDigest     map[string]string // admin digest -> group ID
	participants map[string]*models.Participant
	byToken      map[string]string   // public token -> participant ID
	members      map[string][]string // group ID -> participant IDs in creation order
	logs         map[string][]*models.RevelationLog
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		groups:       make(map[string]*models.Group),
		byDigest:     make(map[string]string),
		participants: make(map[string]*models.Participant),
		byToken:      make(map[string]string),
		members:      make(map[string][]string),
		logs:         make(map[string][]*models.RevelationLog),
	}
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// CreateGroup checks every constraint before the first write, so a failure
// leaves the store untouched.
func (s *Store) CreateGroup(ctx context.Context, group *models.Group, participants []*models.Participant) error {
	if err := storage.CheckAssignment(group, participants); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.groups[group.ID]; exists {
		return fmt.Errorf("group %q already exists", group.ID)
	}
	if _, exists := s.byDigest[group.AdminTokenDigest]; exists {
		return fmt.Errorf("admin token digest already in use")
	}
	seenTokens := make(map[string]bool, len(participants))
	for _, p := range participants {
		if _, exists := s.participants[p.ID]; exists {
			return fmt.Errorf("participant %q already exists", p.ID)
		}
		if _, exists := s.byToken[p.PublicToken]; exists || seenTokens[p.PublicToken] {
			return fmt.Errorf("participant token already in use")
		}
		seenTokens[p.PublicToken] = true
	}

	g := *group
	s.groups[g.ID] = &g
	s.byDigest[g.AdminTokenDigest] = g.ID

	ids := make([]string, len(participants))
	for i, p := range participants {
		cp := *p
		s.participants[cp.ID] = &cp
		s.byToken[cp.PublicToken] = cp.ID
		ids[i] = cp.ID
	}
	s.members[g.ID] = ids

	return nil
}

// GetGroup retrieves a group by ID.
func (s *Store) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[groupID]
	if !ok {
		return nil, errs.NotFound("group", groupID)
	}
	cp := *g
	return &cp, nil
}

// GetGroupByAdminDigest retrieves a group by admin token digest.
func (s *Store) GetGroupByAdminDigest(ctx context.Context, digest string) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byDigest[digest]
	if !ok {
		return nil, fmt.Errorf("group by admin token: %w", errs.ErrNotFound)
	}
	cp := *s.groups[id]
	return &cp, nil
}

// ListParticipants returns a group's participants in creation order.
func (s *Store) ListParticipants(ctx context.Context, groupID string) ([]*models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, ok := s.members[groupID]
	if !ok {
		return nil, errs.NotFound("group", groupID)
	}

	out := make([]*models.Participant, len(ids))
	for i, id := range ids {
		cp := *s.participants[id]
		out[i] = &cp
	}
	return out, nil
}

// GetParticipant retrieves a participant by ID.
func (s *Store) GetParticipant(ctx context.Context, participantID string) (*models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.participants[participantID]
	if !ok {
		return nil, errs.NotFound("participant", participantID)
	}
	cp := *p
	return &cp, nil
}

// GetParticipantByToken retrieves a participant by reveal token.
func (s *Store) GetParticipantByToken(ctx context.Context, token string) (*models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byToken[token]
	if !ok {
		return nil, fmt.Errorf("participant by token: %w", errs.ErrNotFound)
	}
	cp := *s.participants[id]
	return &cp, nil
}

// RecordReveal appends the log entry and performs the null -> set
// transition under the write lock.
func (s *Store) RecordReveal(ctx context.Context, participantID string, entry *models.RevelationLog) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[participantID]
	if !ok {
		return false, errs.NotFound("participant", participantID)
	}

	e := copyLog(entry)
	e.ParticipantID = participantID
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	s.logs[participantID] = append(s.logs[participantID], e)

	if p.RevealedAt != 0 {
		return false, nil
	}
	p.RevealedAt = entry.ViewedAt
	if g, ok := s.groups[p.GroupID]; ok {
		g.Status = models.StatusRevealed
	}
	return true, nil
}

// ListRevelationLogs returns a participant's entries oldest first.
func (s *Store) ListRevelationLogs(ctx context.Context, participantID string) ([]*models.RevelationLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.participants[participantID]; !ok {
		return nil, errs.NotFound("participant", participantID)
	}

	entries := s.logs[participantID]
	out := make([]*models.RevelationLog, len(entries))
	for i, e := range entries {
		out[i] = copyLog(e)
	}
	return out, nil
}

// DeleteGroup removes a group and everything it owns.
func (s *Store) DeleteGroup(ctx context.Context, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[groupID]
	if !ok {
		return errs.NotFound("group", groupID)
	}

	for _, id := range s.members[groupID] {
		delete(s.byToken, s.participants[id].PublicToken)
		delete(s.participants, id)
		delete(s.logs, id)
	}
	delete(s.members, groupID)
	delete(s.byDigest, g.AdminTokenDigest)
	delete(s.groups, groupID)
	return nil
}

func copyLog(e *models.RevelationLog) *models.RevelationLog {
	cp := *e
	if e.DeviceInfo != nil {
		info := *e.DeviceInfo
		cp.DeviceInfo = &info
	}
	return &cp
}
