package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/secretsanta/internal/errs"
	"github.com/mmynk/secretsanta/internal/models"
)

const participantColumns = "id, group_id, name, public_token, target_participant_id, revealed_at, created_at"

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanParticipant(row scanner) (*models.Participant, error) {
	p := &models.Participant{}
	var revealedAt sql.NullInt64
	if err := row.Scan(&p.ID, &p.GroupID, &p.Name, &p.PublicToken, &p.TargetParticipantID, &revealedAt, &p.CreatedAt); err != nil {
		return nil, err
	}
	if revealedAt.Valid {
		p.RevealedAt = revealedAt.Int64
	}
	return p, nil
}

// ListParticipants retrieves all participants of a group in creation order.
func (s *SQLiteStore) ListParticipants(ctx context.Context, groupID string) ([]*models.Participant, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM groups WHERE id = ?", groupID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("group", groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check group existence: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+participantColumns+" FROM participants WHERE group_id = ? ORDER BY position",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []*models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	return participants, nil
}

// GetParticipant retrieves a participant by ID.
func (s *SQLiteStore) GetParticipant(ctx context.Context, participantID string) (*models.Participant, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+participantColumns+" FROM participants WHERE id = ?", participantID)
	p, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("participant", participantID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return p, nil
}

// GetParticipantByToken retrieves a participant by reveal token.
func (s *SQLiteStore) GetParticipantByToken(ctx context.Context, token string) (*models.Participant, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+participantColumns+" FROM participants WHERE public_token = ?", token)
	p, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("participant by token: %w", errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant by token: %w", err)
	}
	return p, nil
}
