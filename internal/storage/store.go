// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"fmt"

	"github.com/mmynk/secretsanta/internal/assign"
	"github.com/mmynk/secretsanta/internal/models"
)

// Store defines the persistence operations for groups, participants and
// revelation logs. It is the only writer of that state, which lets the
// backend be swapped (SQLite, in-memory, ...) without touching the services.
//
// Lookups that find nothing return an error matching errs.ErrNotFound.
type Store interface {
	// CreateGroup persists a group and all of its participants, including
	// their targets, as one atomic unit. Either everything is written or
	// nothing is. The assignment must already be a valid derangement.
	CreateGroup(ctx context.Context, group *models.Group, participants []*models.Participant) error

	// GetGroup retrieves a group by its ID.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// GetGroupByAdminDigest retrieves a group by the digest of its admin token.
	GetGroupByAdminDigest(ctx context.Context, digest string) (*models.Group, error)

	// ListParticipants returns a group's participants in creation order.
	// It fails with ErrNotFound if the group does not exist.
	ListParticipants(ctx context.Context, groupID string) ([]*models.Participant, error)

	// GetParticipant retrieves a participant by ID.
	GetParticipant(ctx context.Context, participantID string) (*models.Participant, error)

	// GetParticipantByToken retrieves a participant by their reveal token.
	GetParticipantByToken(ctx context.Context, token string) (*models.Participant, error)

	// RecordReveal appends entry to the participant's revelation log and sets
	// RevealedAt to entry.ViewedAt if it is still unset, moving the group to
	// revealed. Both happen atomically. first is true for exactly one call
	// per participant, even under concurrency. An empty entry.ID is replaced
	// with a fresh UUID.
	RecordReveal(ctx context.Context, participantID string, entry *models.RevelationLog) (first bool, err error)

	// ListRevelationLogs returns a participant's log entries oldest first.
	ListRevelationLogs(ctx context.Context, participantID string) ([]*models.RevelationLog, error)

	// DeleteGroup removes a group, its participants and their logs.
	DeleteGroup(ctx context.Context, groupID string) error

	// Close releases any resources held by the store.
	Close() error
}

// CheckAssignment rejects participants that do not belong to group or whose
// targets are not a derangement. Backends call it before writing anything.
func CheckAssignment(group *models.Group, participants []*models.Participant) error {
	ids := make([]string, len(participants))
	mapping := make(map[string]string, len(participants))
	for i, p := range participants {
		if p.GroupID != group.ID {
			return fmt.Errorf("participant %q belongs to group %q, not %q", p.ID, p.GroupID, group.ID)
		}
		ids[i] = p.ID
		mapping[p.ID] = p.TargetParticipantID
	}
	if err := assign.Verify(ids, mapping); err != nil {
		return fmt.Errorf("invalid assignment: %w", err)
	}
	return nil
}
