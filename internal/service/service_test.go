package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mmynk/secretsanta/internal/audit"
	"github.com/mmynk/secretsanta/internal/errs"
	"github.com/mmynk/secretsanta/internal/models"
	"github.com/mmynk/secretsanta/internal/storage"
	"github.com/mmynk/secretsanta/internal/storage/memory"
	"github.com/mmynk/secretsanta/internal/storage/sqlite"
)

const firefox = "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0"

type services struct {
	store  storage.Store
	groups *GroupService
	reveal *RevealService
}

func newServices(t *testing.T, store storage.Store) *services {
	t.Helper()
	t.Cleanup(func() { store.Close() })
	return &services{
		store:  store,
		groups: NewGroupService(store, Limits{}, nil),
		reveal: NewRevealService(store, nil),
	}
}

func setupMemory(t *testing.T) *services {
	return newServices(t, memory.New())
}

func setupSQLite(t *testing.T) *services {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "santa.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return newServices(t, store)
}

// backends lists every store a service test runs against.
var backends = map[string]func(*testing.T) *services{
	"memory": setupMemory,
	"sqlite": setupSQLite,
}

// revealAll reveals for every participant of the group and returns
// participant name -> recipient name.
func revealAll(t *testing.T, s *services, groupID string) map[string]string {
	t.Helper()
	ctx := context.Background()

	public, err := s.groups.GetParticipantsPublicList(ctx, groupID)
	if err != nil {
		t.Fatalf("GetParticipantsPublicList failed: %v", err)
	}

	out := make(map[string]string, len(public))
	for _, p := range public {
		tok, err := s.groups.GetParticipantToken(ctx, p.ID)
		if err != nil {
			t.Fatalf("GetParticipantToken(%s) failed: %v", p.Name, err)
		}
		match, err := s.reveal.Reveal(ctx, tok, audit.Viewer{})
		if err != nil {
			t.Fatalf("Reveal(%s) failed: %v", p.Name, err)
		}
		out[p.Name] = match.RecipientName
	}
	return out
}

func TestEndToEnd(t *testing.T) {
	for name, setup := range backends {
		t.Run(name, func(t *testing.T) {
			s := setup(t)
			ctx := context.Background()

			created, err := s.groups.CreateGroup(ctx, "Team", []string{"A", "B", "C"})
			if err != nil {
				t.Fatalf("CreateGroup failed: %v", err)
			}
			if created.GroupID == "" || created.AdminToken == "" {
				t.Fatalf("expected group id and admin token, got %+v", created)
			}

			admin, err := s.groups.GetParticipantsByAdminToken(ctx, created.AdminToken)
			if err != nil {
				t.Fatalf("GetParticipantsByAdminToken failed: %v", err)
			}
			if len(admin) != 3 {
				t.Fatalf("expected 3 participants, got %d", len(admin))
			}
			for _, p := range admin {
				if p.RevealedAt != 0 {
					t.Errorf("participant %s already revealed", p.Name)
				}
			}

			public, err := s.groups.GetParticipantsPublicList(ctx, created.GroupID)
			if err != nil {
				t.Fatalf("GetParticipantsPublicList failed: %v", err)
			}
			if got := []string{public[0].Name, public[1].Name, public[2].Name}; strings.Join(got, ",") != "A,B,C" {
				t.Errorf("expected names in creation order, got %v", got)
			}

			matches := revealAll(t, s, created.GroupID)
			seen := map[string]bool{}
			for giver, recipient := range matches {
				if giver == recipient {
					t.Errorf("%s drew themselves", giver)
				}
				if seen[recipient] {
					t.Errorf("%s drawn twice", recipient)
				}
				seen[recipient] = true
			}
			if len(seen) != 3 {
				t.Errorf("expected 3 distinct recipients, got %v", matches)
			}

			summary, err := s.groups.GetGroupByAdminToken(ctx, created.AdminToken)
			if err != nil {
				t.Fatalf("GetGroupByAdminToken failed: %v", err)
			}
			if summary.Status != models.StatusRevealed {
				t.Errorf("expected status revealed, got %s", summary.Status)
			}
			if summary.ParticipantCount != 3 || summary.RevealedCount != 3 {
				t.Errorf("expected 3/3 revealed, got %d/%d", summary.RevealedCount, summary.ParticipantCount)
			}
		})
	}
}

func TestCreateGroup_DuplicateNames(t *testing.T) {
	s := setupMemory(t)
	ctx := context.Background()

	created, err := s.groups.CreateGroup(ctx, "Family", []string{"Ana", "Ana", "Bruno"})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	participants, err := s.store.ListParticipants(ctx, created.GroupID)
	if err != nil {
		t.Fatalf("ListParticipants failed: %v", err)
	}
	if len(participants) != 3 {
		t.Fatalf("expected 3 participants, got %d", len(participants))
	}

	ids := map[string]bool{}
	targets := map[string]bool{}
	for _, p := range participants {
		ids[p.ID] = true
		targets[p.TargetParticipantID] = true
		if p.TargetParticipantID == p.ID {
			t.Errorf("participant %s targets themselves", p.ID)
		}
	}
	if len(ids) != 3 || len(targets) != 3 {
		t.Errorf("expected 3 distinct ids and targets, got %d and %d", len(ids), len(targets))
	}
}

func TestCreateGroup_TrimsNames(t *testing.T) {
	s := setupMemory(t)
	ctx := context.Background()

	created, err := s.groups.CreateGroup(ctx, "  Office  ", []string{" Ana ", "", "   ", "Bruno\t"})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	summary, err := s.groups.GetGroupByAdminToken(ctx, created.AdminToken)
	if err != nil {
		t.Fatalf("GetGroupByAdminToken failed: %v", err)
	}
	if summary.Name != "Office" {
		t.Errorf("expected trimmed group name, got %q", summary.Name)
	}
	if summary.Status != models.StatusMatched {
		t.Errorf("expected status matched, got %s", summary.Status)
	}

	public, err := s.groups.GetParticipantsPublicList(ctx, created.GroupID)
	if err != nil {
		t.Fatalf("GetParticipantsPublicList failed: %v", err)
	}
	if len(public) != 2 || public[0].Name != "Ana" || public[1].Name != "Bruno" {
		t.Errorf("expected [Ana Bruno], got %+v", public)
	}
}

// countingStore fails the test if CreateGroup is ever reached.
type countingStore struct {
	storage.Store
	creates int
}

func (c *countingStore) CreateGroup(ctx context.Context, g *models.Group, p []*models.Participant) error {
	c.creates++
	return c.Store.CreateGroup(ctx, g, p)
}

func TestCreateGroup_Invalid(t *testing.T) {
	tests := []struct {
		name         string
		group        string
		participants []string
		insufficient bool
	}{
		{"empty name", "  ", []string{"A", "B"}, false},
		{"no participants", "Team", nil, true},
		{"one participant", "Team", []string{"A"}, true},
		{"one after trim", "Team", []string{"A", " ", ""}, true},
		{"name too long", strings.Repeat("x", 101), []string{"A", "B"}, false},
		{"participant name too long", "Team", []string{"A", strings.Repeat("y", 101)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &countingStore{Store: memory.New()}
			svc := NewGroupService(store, Limits{}, nil)

			_, err := svc.CreateGroup(context.Background(), tt.group, tt.participants)
			if !errors.Is(err, errs.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if got := errors.Is(err, errs.ErrInsufficientParticipants); got != tt.insufficient {
				t.Errorf("insufficient participants = %v, want %v", got, tt.insufficient)
			}
			if store.creates != 0 {
				t.Errorf("store was written %d times", store.creates)
			}
		})
	}
}

func TestCreateGroup_TooManyParticipants(t *testing.T) {
	store := &countingStore{Store: memory.New()}
	svc := NewGroupService(store, Limits{MaxParticipants: 3}, nil)

	_, err := svc.CreateGroup(context.Background(), "Team", []string{"A", "B", "C", "D"})

	var fe *errs.FieldError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FieldError, got %v", err)
	}
	if fe.Field != "participant_names" {
		t.Errorf("expected field participant_names, got %s", fe.Field)
	}
	if store.creates != 0 {
		t.Errorf("store was written %d times", store.creates)
	}
}

func TestAdminViews_UnknownToken(t *testing.T) {
	s := setupMemory(t)
	ctx := context.Background()

	if _, err := s.groups.CreateGroup(ctx, "Team", []string{"A", "B"}); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	for _, tok := range []string{"", "garbage", strings.Repeat("A", 43)} {
		if _, err := s.groups.GetGroupByAdminToken(ctx, tok); !errors.Is(err, errs.ErrNotFound) {
			t.Errorf("GetGroupByAdminToken(%q): expected not found, got %v", tok, err)
		}
		if _, err := s.groups.GetParticipantsByAdminToken(ctx, tok); !errors.Is(err, errs.ErrNotFound) {
			t.Errorf("GetParticipantsByAdminToken(%q): expected not found, got %v", tok, err)
		}
		if err := s.groups.DeleteGroup(ctx, tok); !errors.Is(err, errs.ErrNotFound) {
			t.Errorf("DeleteGroup(%q): expected not found, got %v", tok, err)
		}
	}
}

func TestPublicLookups_NotFound(t *testing.T) {
	s := setupMemory(t)
	ctx := context.Background()

	for _, id := range []string{"", "not-a-uuid", "7d5b6a36-4a3e-4c1a-9f0e-2b7f1f1c0a11"} {
		if _, err := s.groups.GetParticipantsPublicList(ctx, id); !errors.Is(err, errs.ErrNotFound) {
			t.Errorf("GetParticipantsPublicList(%q): expected not found, got %v", id, err)
		}
		if _, err := s.groups.GetParticipantToken(ctx, id); !errors.Is(err, errs.ErrNotFound) {
			t.Errorf("GetParticipantToken(%q): expected not found, got %v", id, err)
		}
	}
}

func TestReveal_Twice(t *testing.T) {
	for name, setup := range backends {
		t.Run(name, func(t *testing.T) {
			s := setup(t)
			ctx := context.Background()

			created, err := s.groups.CreateGroup(ctx, "Team", []string{"A", "B", "C"})
			if err != nil {
				t.Fatalf("CreateGroup failed: %v", err)
			}
			public, _ := s.groups.GetParticipantsPublicList(ctx, created.GroupID)
			tok, err := s.groups.GetParticipantToken(ctx, public[0].ID)
			if err != nil {
				t.Fatalf("GetParticipantToken failed: %v", err)
			}

			s.reveal.now = func() time.Time { return time.Unix(1000, 0) }
			first, err := s.reveal.Reveal(ctx, tok, audit.NewViewer("10.0.0.1:5555", "", firefox))
			if err != nil {
				t.Fatalf("first Reveal failed: %v", err)
			}

			s.reveal.now = func() time.Time { return time.Unix(2000, 0) }
			second, err := s.reveal.Reveal(ctx, tok, audit.NewViewer("10.0.0.2:5555", "", ""))
			if err != nil {
				t.Fatalf("second Reveal failed: %v", err)
			}

			if !first.FirstReveal || second.FirstReveal {
				t.Errorf("expected only the first call to be first, got %v then %v", first.FirstReveal, second.FirstReveal)
			}
			if first.RecipientName != second.RecipientName {
				t.Errorf("recipient changed: %s then %s", first.RecipientName, second.RecipientName)
			}
			if first.RecipientName == "A" {
				t.Error("A drew themselves")
			}
			if first.GroupName != "Team" {
				t.Errorf("expected group name Team, got %s", first.GroupName)
			}

			admin, _ := s.groups.GetParticipantsByAdminToken(ctx, created.AdminToken)
			if admin[0].RevealedAt != 1000 {
				t.Errorf("expected revealed_at 1000, got %d", admin[0].RevealedAt)
			}

			logs, err := s.groups.GetRevelationLogs(ctx, created.AdminToken, public[0].ID)
			if err != nil {
				t.Fatalf("GetRevelationLogs failed: %v", err)
			}
			if len(logs) != 2 {
				t.Fatalf("expected 2 log entries, got %d", len(logs))
			}
			checkLogIDs(t, logs)
			if logs[0].ViewedAt != 1000 || logs[1].ViewedAt != 2000 {
				t.Errorf("expected logs oldest first, got %d, %d", logs[0].ViewedAt, logs[1].ViewedAt)
			}
			if logs[0].IPAddress != "10.0.0.1" {
				t.Errorf("expected ip 10.0.0.1, got %s", logs[0].IPAddress)
			}
			if logs[0].DeviceInfo == nil || logs[0].DeviceInfo.Browser != "Firefox" {
				t.Errorf("expected Firefox device info, got %+v", logs[0].DeviceInfo)
			}
			if logs[1].DeviceInfo != nil {
				t.Errorf("expected no device info without user agent, got %+v", logs[1].DeviceInfo)
			}
		})
	}
}

// TestReveal_ManyParticipants reveals repeatedly across two groups so every
// log entry must get its own id.
func TestReveal_ManyParticipants(t *testing.T) {
	for name, setup := range backends {
		t.Run(name, func(t *testing.T) {
			s := setup(t)
			ctx := context.Background()

			var all []*models.RevelationLog
			for _, group := range []string{"One", "Two"} {
				created, err := s.groups.CreateGroup(ctx, group, []string{"A", "B"})
				if err != nil {
					t.Fatalf("CreateGroup failed: %v", err)
				}
				revealAll(t, s, created.GroupID)
				revealAll(t, s, created.GroupID)

				admin, _ := s.groups.GetParticipantsByAdminToken(ctx, created.AdminToken)
				for _, p := range admin {
					logs, err := s.groups.GetRevelationLogs(ctx, created.AdminToken, p.ID)
					if err != nil {
						t.Fatalf("GetRevelationLogs failed: %v", err)
					}
					if len(logs) != 2 {
						t.Errorf("expected 2 log entries for %s, got %d", p.Name, len(logs))
					}
					all = append(all, logs...)
				}
			}
			checkLogIDs(t, all)
		})
	}
}

func checkLogIDs(t *testing.T, logs []*models.RevelationLog) {
	t.Helper()
	seen := make(map[string]bool, len(logs))
	for _, l := range logs {
		if l.ID == "" {
			t.Errorf("log entry at %d has no id", l.ViewedAt)
			continue
		}
		if seen[l.ID] {
			t.Errorf("duplicate log id %s", l.ID)
		}
		seen[l.ID] = true
	}
}

func TestReveal_InvalidToken(t *testing.T) {
	for name, setup := range backends {
		t.Run(name, func(t *testing.T) {
			s := setup(t)
			ctx := context.Background()

			created, err := s.groups.CreateGroup(ctx, "Team", []string{"A", "B"})
			if err != nil {
				t.Fatalf("CreateGroup failed: %v", err)
			}

			for _, tok := range []string{"", "garbage", strings.Repeat("A", 43), created.AdminToken} {
				if _, err := s.reveal.Reveal(ctx, tok, audit.Viewer{}); !errors.Is(err, errs.ErrInvalidToken) {
					t.Errorf("Reveal(%q): expected invalid token, got %v", tok, err)
				}
			}

			admin, _ := s.groups.GetParticipantsByAdminToken(ctx, created.AdminToken)
			for _, p := range admin {
				if p.RevealedAt != 0 {
					t.Errorf("participant %s marked revealed", p.Name)
				}
				logs, err := s.groups.GetRevelationLogs(ctx, created.AdminToken, p.ID)
				if err != nil {
					t.Fatalf("GetRevelationLogs failed: %v", err)
				}
				if len(logs) != 0 {
					t.Errorf("expected no logs for %s, got %d", p.Name, len(logs))
				}
			}

			summary, _ := s.groups.GetGroupByAdminToken(ctx, created.AdminToken)
			if summary.Status != models.StatusMatched {
				t.Errorf("expected status matched, got %s", summary.Status)
			}
		})
	}
}

func TestReveal_Concurrent(t *testing.T) {
	for name, setup := range backends {
		t.Run(name, func(t *testing.T) {
			s := setup(t)
			ctx := context.Background()

			created, err := s.groups.CreateGroup(ctx, "Team", []string{"A", "B", "C", "D"})
			if err != nil {
				t.Fatalf("CreateGroup failed: %v", err)
			}
			public, _ := s.groups.GetParticipantsPublicList(ctx, created.GroupID)
			tok, _ := s.groups.GetParticipantToken(ctx, public[1].ID)

			const calls = 50
			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				firsts  int
				names   = map[string]int{}
				callErr error
			)
			for i := 0; i < calls; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					match, err := s.reveal.Reveal(ctx, tok, audit.Viewer{})
					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						callErr = err
						return
					}
					names[match.RecipientName]++
					if match.FirstReveal {
						firsts++
					}
				}()
			}
			wg.Wait()

			if callErr != nil {
				t.Fatalf("Reveal failed: %v", callErr)
			}
			if firsts != 1 {
				t.Errorf("expected exactly one first reveal, got %d", firsts)
			}
			if len(names) != 1 {
				t.Errorf("expected one recipient name, got %v", names)
			}

			logs, err := s.groups.GetRevelationLogs(ctx, created.AdminToken, public[1].ID)
			if err != nil {
				t.Fatalf("GetRevelationLogs failed: %v", err)
			}
			if len(logs) != calls {
				t.Errorf("expected %d log entries, got %d", calls, len(logs))
			}
			checkLogIDs(t, logs)
		})
	}
}

func TestGetRevelationLogs_OtherGroup(t *testing.T) {
	s := setupMemory(t)
	ctx := context.Background()

	first, _ := s.groups.CreateGroup(ctx, "One", []string{"A", "B"})
	second, _ := s.groups.CreateGroup(ctx, "Two", []string{"C", "D"})

	public, _ := s.groups.GetParticipantsPublicList(ctx, second.GroupID)

	_, err := s.groups.GetRevelationLogs(ctx, first.AdminToken, public[0].ID)
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected not found for a participant of another group, got %v", err)
	}
}

func TestDeleteGroup(t *testing.T) {
	s := setupSQLite(t)
	ctx := context.Background()

	created, err := s.groups.CreateGroup(ctx, "Team", []string{"A", "B"})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	public, _ := s.groups.GetParticipantsPublicList(ctx, created.GroupID)
	tok, _ := s.groups.GetParticipantToken(ctx, public[0].ID)
	if _, err := s.reveal.Reveal(ctx, tok, audit.Viewer{}); err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}

	if err := s.groups.DeleteGroup(ctx, created.AdminToken); err != nil {
		t.Fatalf("DeleteGroup failed: %v", err)
	}

	if _, err := s.groups.GetGroupByAdminToken(ctx, created.AdminToken); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected group to be gone, got %v", err)
	}
	if _, err := s.groups.GetParticipantsPublicList(ctx, created.GroupID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected participants to be gone, got %v", err)
	}
	if _, err := s.reveal.Reveal(ctx, tok, audit.Viewer{}); !errors.Is(err, errs.ErrInvalidToken) {
		t.Errorf("expected token to stop resolving, got %v", err)
	}
}
