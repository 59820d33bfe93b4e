package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mmynk/secretsanta/internal/assign"
	"github.com/mmynk/secretsanta/internal/errs"
	"github.com/mmynk/secretsanta/internal/metrics"
	"github.com/mmynk/secretsanta/internal/models"
	"github.com/mmynk/secretsanta/internal/storage"
	"github.com/mmynk/secretsanta/internal/token"
)

// CreatedGroup is returned once, to the organizer, by CreateGroup.
type CreatedGroup struct {
	GroupID    string
	AdminToken string
}

// GroupSummary is the organizer's view of a group.
type GroupSummary struct {
	ID               string
	Name             string
	Status           models.GroupStatus
	CreatedAt        int64
	ParticipantCount int
	RevealedCount    int
}

// AdminParticipant is the organizer's view of one participant.
// It never carries the participant's target.
type AdminParticipant struct {
	ID         string
	Name       string
	RevealedAt int64
	CreatedAt  int64
}

// GroupService creates groups and serves the organizer and public views.
type GroupService struct {
	store    storage.Store
	issuer   token.Issuer
	validate *validator.Validate
	limits   Limits
	logger   *slog.Logger
	now      func() time.Time
}

// NewGroupService creates a new GroupService with the given storage backend.
func NewGroupService(store storage.Store, limits Limits, logger *slog.Logger) *GroupService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GroupService{
		store:    store,
		validate: validator.New(),
		limits:   limits.withDefaults(),
		logger:   logger,
		now:      time.Now,
	}
}

// CreateGroup validates the input, draws the assignment and stores the group
// with all participants in one write. The admin token is only ever returned
// here.
func (s *GroupService) CreateGroup(ctx context.Context, name string, participantNames []string) (*CreatedGroup, error) {
	name = strings.TrimSpace(name)
	names := normalizeNames(participantNames)

	if err := checkGroupInput(s.validate, s.limits, name, names); err != nil {
		s.logger.Info("CreateGroup rejected", "error", err, "participants_count", len(names))
		return nil, err
	}

	adminToken, err := s.issuer.New()
	if err != nil {
		return nil, fmt.Errorf("issue admin token: %w", err)
	}

	now := s.now().Unix()
	group := &models.Group{
		ID:               uuid.NewString(),
		Name:             name,
		AdminTokenDigest: token.Digest(adminToken),
		Status:           models.StatusMatched,
		CreatedAt:        now,
	}

	participants := make([]*models.Participant, len(names))
	ids := make([]string, len(names))
	for i, n := range names {
		tok, err := s.issuer.New()
		if err != nil {
			return nil, fmt.Errorf("issue participant token: %w", err)
		}
		participants[i] = &models.Participant{
			ID:          uuid.NewString(),
			GroupID:     group.ID,
			Name:        n,
			PublicToken: tok,
			CreatedAt:   now,
		}
		ids[i] = participants[i].ID
	}

	targets, err := assign.Assign(ids)
	if err != nil {
		return nil, err
	}
	for _, p := range participants {
		p.TargetParticipantID = targets[p.ID]
	}

	if err := s.store.CreateGroup(ctx, group, participants); err != nil {
		s.logger.Error("CreateGroup failed", "error", err)
		return nil, fmt.Errorf("store group: %w", err)
	}

	metrics.ObserveGroupCreated(len(participants))
	s.logger.Info("Group created", "group_id", group.ID, "participants_count", len(participants))

	return &CreatedGroup{GroupID: group.ID, AdminToken: adminToken}, nil
}

// GetGroupByAdminToken returns the organizer's summary of a group.
func (s *GroupService) GetGroupByAdminToken(ctx context.Context, adminToken string) (*GroupSummary, error) {
	group, participants, err := s.loadAdminGroup(ctx, adminToken)
	if err != nil {
		return nil, err
	}

	summary := &GroupSummary{
		ID:               group.ID,
		Name:             group.Name,
		Status:           group.Status,
		CreatedAt:        group.CreatedAt,
		ParticipantCount: len(participants),
	}
	for _, p := range participants {
		if p.Revealed() {
			summary.RevealedCount++
		}
	}
	// revealed_at is the source of truth; status is a denormalized view of it.
	if summary.RevealedCount > 0 {
		summary.Status = models.StatusRevealed
	}

	return summary, nil
}

// GetParticipantsByAdminToken lists every participant with reveal status.
func (s *GroupService) GetParticipantsByAdminToken(ctx context.Context, adminToken string) ([]AdminParticipant, error) {
	_, participants, err := s.loadAdminGroup(ctx, adminToken)
	if err != nil {
		return nil, err
	}

	out := make([]AdminParticipant, len(participants))
	for i, p := range participants {
		out[i] = AdminParticipant{
			ID:         p.ID,
			Name:       p.Name,
			RevealedAt: p.RevealedAt,
			CreatedAt:  p.CreatedAt,
		}
	}
	return out, nil
}

// GetParticipantsPublicList returns the names participants pick themselves
// from. It carries no assignment data.
func (s *GroupService) GetParticipantsPublicList(ctx context.Context, groupID string) ([]models.PublicParticipant, error) {
	if _, err := uuid.Parse(groupID); err != nil {
		return nil, errs.NotFound("group", groupID)
	}

	participants, err := s.store.ListParticipants(ctx, groupID)
	if err != nil {
		return nil, s.storeError("ListParticipants", err)
	}

	out := make([]models.PublicParticipant, len(participants))
	for i, p := range participants {
		out[i] = models.PublicParticipant{ID: p.ID, Name: p.Name}
	}
	return out, nil
}

// GetParticipantToken returns the reveal token for a participant picked
// from the public list.
func (s *GroupService) GetParticipantToken(ctx context.Context, participantID string) (string, error) {
	if _, err := uuid.Parse(participantID); err != nil {
		return "", errs.NotFound("participant", participantID)
	}

	p, err := s.store.GetParticipant(ctx, participantID)
	if err != nil {
		return "", s.storeError("GetParticipant", err)
	}
	return p.PublicToken, nil
}

// GetRevelationLogs returns a participant's reveal history, oldest first.
// The participant must belong to the group the admin token controls.
func (s *GroupService) GetRevelationLogs(ctx context.Context, adminToken, participantID string) ([]*models.RevelationLog, error) {
	group, err := s.adminGroup(ctx, adminToken)
	if err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(participantID); err != nil {
		return nil, errs.NotFound("participant", participantID)
	}
	p, err := s.store.GetParticipant(ctx, participantID)
	if err != nil {
		return nil, s.storeError("GetParticipant", err)
	}
	if p.GroupID != group.ID {
		// Same answer as a missing participant so ids of other groups don't leak.
		return nil, errs.NotFound("participant", participantID)
	}

	logs, err := s.store.ListRevelationLogs(ctx, participantID)
	if err != nil {
		return nil, s.storeError("ListRevelationLogs", err)
	}
	return logs, nil
}

// DeleteGroup removes the group with its participants and logs.
func (s *GroupService) DeleteGroup(ctx context.Context, adminToken string) error {
	group, err := s.adminGroup(ctx, adminToken)
	if err != nil {
		return err
	}

	if err := s.store.DeleteGroup(ctx, group.ID); err != nil {
		return s.storeError("DeleteGroup", err)
	}

	s.logger.Info("Group deleted", "group_id", group.ID)
	return nil
}

func (s *GroupService) adminGroup(ctx context.Context, adminToken string) (*models.Group, error) {
	if !token.WellFormed(adminToken) {
		return nil, fmt.Errorf("group by admin token: %w", errs.ErrNotFound)
	}

	group, err := s.store.GetGroupByAdminDigest(ctx, token.Digest(adminToken))
	if err != nil {
		return nil, s.storeError("GetGroupByAdminDigest", err)
	}
	return group, nil
}

func (s *GroupService) loadAdminGroup(ctx context.Context, adminToken string) (*models.Group, []*models.Participant, error) {
	group, err := s.adminGroup(ctx, adminToken)
	if err != nil {
		return nil, nil, err
	}

	participants, err := s.store.ListParticipants(ctx, group.ID)
	if err != nil {
		return nil, nil, s.storeError("ListParticipants", err)
	}
	return group, participants, nil
}

// storeError passes ErrNotFound through and logs anything else.
func (s *GroupService) storeError(op string, err error) error {
	if errors.Is(err, errs.ErrNotFound) {
		return err
	}
	s.logger.Error("Store operation failed", "op", op, "error", err)
	return fmt.Errorf("%s: %w", op, err)
}
