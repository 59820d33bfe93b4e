package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/secretsanta/internal/audit"
	"github.com/mmynk/secretsanta/internal/errs"
	"github.com/mmynk/secretsanta/internal/metrics"
	"github.com/mmynk/secretsanta/internal/models"
	"github.com/mmynk/secretsanta/internal/storage"
	"github.com/mmynk/secretsanta/internal/token"
)

// Match is what a participant sees when they reveal.
type Match struct {
	RecipientName string
	GroupName     string
	// FirstReveal is true only for the call that set RevealedAt.
	FirstReveal bool
}

// RevealService resolves reveal tokens and keeps the revelation log.
type RevealService struct {
	store  storage.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewRevealService creates a new RevealService.
func NewRevealService(store storage.Store, logger *slog.Logger) *RevealService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RevealService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Reveal returns the recipient assigned to the token's participant. Every
// successful call is logged; only the first one sets RevealedAt.
// A token that does not resolve fails with errs.ErrInvalidToken and leaves
// no trace.
func (s *RevealService) Reveal(ctx context.Context, tok string, viewer audit.Viewer) (*Match, error) {
	if !token.WellFormed(tok) {
		return nil, fmt.Errorf("reveal: %w", errs.ErrInvalidToken)
	}

	p, err := s.store.GetParticipantByToken(ctx, tok)
	if err != nil {
		return nil, s.lookupError(err)
	}

	target, err := s.store.GetParticipant(ctx, p.TargetParticipantID)
	if err != nil {
		s.logger.Error("Target participant missing", "participant_id", p.ID, "error", err)
		return nil, fmt.Errorf("resolve target: %w", err)
	}

	group, err := s.store.GetGroup(ctx, p.GroupID)
	if err != nil {
		s.logger.Error("Group missing for participant", "participant_id", p.ID, "error", err)
		return nil, fmt.Errorf("resolve group: %w", err)
	}

	entry := &models.RevelationLog{
		ID:            uuid.NewString(),
		ParticipantID: p.ID,
		ViewedAt:      s.now().Unix(),
		IPAddress:     viewer.IPAddress,
		UserAgent:     viewer.UserAgent,
		DeviceInfo:    audit.Describe(viewer.UserAgent),
	}

	first, err := s.store.RecordReveal(ctx, p.ID, entry)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			// Group deleted between lookup and write.
			return nil, fmt.Errorf("reveal: %w", errs.ErrInvalidToken)
		}
		s.logger.Error("RecordReveal failed", "participant_id", p.ID, "error", err)
		return nil, fmt.Errorf("record reveal: %w", err)
	}

	metrics.ObserveReveal(first)
	if first {
		s.logger.Info("First reveal", "group_id", p.GroupID, "participant_id", p.ID)
	}

	return &Match{
		RecipientName: target.Name,
		GroupName:     group.Name,
		FirstReveal:   first,
	}, nil
}

func (s *RevealService) lookupError(err error) error {
	if errors.Is(err, errs.ErrNotFound) {
		return fmt.Errorf("reveal: %w", errs.ErrInvalidToken)
	}
	s.logger.Error("GetParticipantByToken failed", "error", err)
	return fmt.Errorf("lookup token: %w", err)
}
