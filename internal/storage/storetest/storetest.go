// Package storetest holds the behavioural contract every storage.Store
// backend must satisfy. Backends call Run from their own tests.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/secretsanta/internal/assign"
	"github.com/mmynk/secretsanta/internal/errs"
	"github.com/mmynk/secretsanta/internal/models"
	"github.com/mmynk/secretsanta/internal/storage"
	"github.com/mmynk/secretsanta/internal/token"
)

// Opener returns a fresh, empty store. Cleanup is the opener's job.
type Opener func(t *testing.T) storage.Store

// NewGroup builds a matched group with a valid assignment, ready to persist.
func NewGroup(t *testing.T, name string, names ...string) (*models.Group, []*models.Participant) {
	t.Helper()

	var issuer token.Issuer
	adminToken, err := issuer.New()
	require.NoError(t, err)

	now := time.Now().Unix()
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
		tok, err := issuer.New()
		require.NoError(t, err)
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
	require.NoError(t, err)
	for _, p := range participants {
		p.TargetParticipantID = targets[p.ID]
	}

	return group, participants
}

// Run executes the full contract against stores produced by open.
func Run(t *testing.T, open Opener) {
	t.Run("CreateGroup persists group and participants", func(t *testing.T) {
		testCreateAndRead(t, open(t))
	})
	t.Run("lookups of unknown records return ErrNotFound", func(t *testing.T) {
		testNotFound(t, open(t))
	})
	t.Run("CreateGroup rejects an invalid assignment without writing", func(t *testing.T) {
		testRejectsInvalidAssignment(t, open(t))
	})
	t.Run("CreateGroup is all-or-nothing on token collision", func(t *testing.T) {
		testAtomicOnCollision(t, open(t))
	})
	t.Run("RecordReveal sets revealed_at once and logs every call", func(t *testing.T) {
		testRecordReveal(t, open(t))
	})
	t.Run("RecordReveal assigns ids to entries without one", func(t *testing.T) {
		testRevealAssignsIDs(t, open(t))
	})
	t.Run("RecordReveal has a single winner under concurrency", func(t *testing.T) {
		testConcurrentReveal(t, open(t))
	})
	t.Run("DeleteGroup cascades", func(t *testing.T) {
		testDeleteCascade(t, open(t))
	})
	t.Run("returned records are detached copies", func(t *testing.T) {
		testDetachedCopies(t, open(t))
	})
}

func testCreateAndRead(t *testing.T, store storage.Store) {
	ctx := context.Background()
	group, participants := NewGroup(t, "Team", "Ana", "Ana", "Bruno")

	require.NoError(t, store.CreateGroup(ctx, group, participants))

	got, err := store.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, group.ID, got.ID)
	assert.Equal(t, "Team", got.Name)
	assert.Equal(t, models.StatusMatched, got.Status)
	assert.Equal(t, group.CreatedAt, got.CreatedAt)

	byDigest, err := store.GetGroupByAdminDigest(ctx, group.AdminTokenDigest)
	require.NoError(t, err)
	assert.Equal(t, group.ID, byDigest.ID)

	listed, err := store.ListParticipants(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	ids := make([]string, len(listed))
	mapping := make(map[string]string, len(listed))
	for i, p := range listed {
		assert.Equal(t, participants[i].ID, p.ID, "creation order must be preserved")
		assert.Equal(t, participants[i].Name, p.Name)
		assert.False(t, p.Revealed())
		ids[i] = p.ID
		mapping[p.ID] = p.TargetParticipantID
	}
	assert.NoError(t, assign.Verify(ids, mapping))

	byID, err := store.GetParticipant(ctx, participants[1].ID)
	require.NoError(t, err)
	assert.Equal(t, participants[1].PublicToken, byID.PublicToken)
	assert.Equal(t, group.ID, byID.GroupID)

	byToken, err := store.GetParticipantByToken(ctx, participants[2].PublicToken)
	require.NoError(t, err)
	assert.Equal(t, participants[2].ID, byToken.ID)
}

func testNotFound(t *testing.T, store storage.Store) {
	ctx := context.Background()
	missing := uuid.NewString()

	_, err := store.GetGroup(ctx, missing)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = store.GetGroupByAdminDigest(ctx, token.Digest("nope"))
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = store.ListParticipants(ctx, missing)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = store.GetParticipant(ctx, missing)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = store.GetParticipantByToken(ctx, "garbage")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = store.RecordReveal(ctx, missing, &models.RevelationLog{ID: uuid.NewString(), ViewedAt: 1})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = store.ListRevelationLogs(ctx, missing)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	assert.ErrorIs(t, store.DeleteGroup(ctx, missing), errs.ErrNotFound)
}

func testRejectsInvalidAssignment(t *testing.T, store storage.Store) {
	ctx := context.Background()
	group, participants := NewGroup(t, "Broken", "A", "B", "C")
	participants[0].TargetParticipantID = participants[0].ID

	assert.Error(t, store.CreateGroup(ctx, group, participants))

	_, err := store.GetGroup(ctx, group.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = store.GetParticipant(ctx, participants[1].ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func testAtomicOnCollision(t *testing.T, store storage.Store) {
	ctx := context.Background()
	first, firstParticipants := NewGroup(t, "First", "A", "B")
	require.NoError(t, store.CreateGroup(ctx, first, firstParticipants))

	second, secondParticipants := NewGroup(t, "Second", "C", "D", "E")
	// The last participant reuses an existing token, which only fails after
	// the group row and earlier participants have been written.
	secondParticipants[2].PublicToken = firstParticipants[0].PublicToken

	assert.Error(t, store.CreateGroup(ctx, second, secondParticipants))

	_, err := store.GetGroup(ctx, second.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	for _, p := range secondParticipants[:2] {
		_, err := store.GetParticipant(ctx, p.ID)
		assert.ErrorIs(t, err, errs.ErrNotFound)
	}

	owner, err := store.GetParticipantByToken(ctx, firstParticipants[0].PublicToken)
	require.NoError(t, err)
	assert.Equal(t, firstParticipants[0].ID, owner.ID)
}

func testRecordReveal(t *testing.T, store storage.Store) {
	ctx := context.Background()
	group, participants := NewGroup(t, "Reveal", "A", "B", "C")
	require.NoError(t, store.CreateGroup(ctx, group, participants))
	p := participants[0]

	first, err := store.RecordReveal(ctx, p.ID, &models.RevelationLog{
		ID:         uuid.NewString(),
		ViewedAt:   1000,
		IPAddress:  "203.0.113.9",
		UserAgent:  "test-agent",
		DeviceInfo: &models.DeviceInfo{Browser: "Firefox", OS: "Linux", Device: "Desktop"},
	})
	require.NoError(t, err)
	assert.True(t, first)

	again, err := store.RecordReveal(ctx, p.ID, &models.RevelationLog{ID: uuid.NewString(), ViewedAt: 2000})
	require.NoError(t, err)
	assert.False(t, again)

	got, err := store.GetParticipant(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got.RevealedAt, "revealed_at is set once")

	g, err := store.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRevealed, g.Status)

	logs, err := store.ListRevelationLogs(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, int64(1000), logs[0].ViewedAt)
	assert.Equal(t, int64(2000), logs[1].ViewedAt)
	assert.Equal(t, "203.0.113.9", logs[0].IPAddress)
	assert.Equal(t, "test-agent", logs[0].UserAgent)
	require.NotNil(t, logs[0].DeviceInfo)
	assert.Equal(t, "Firefox", logs[0].DeviceInfo.Browser)
	assert.Nil(t, logs[1].DeviceInfo)
	for _, l := range logs {
		assert.Equal(t, p.ID, l.ParticipantID)
	}

	others, err := store.ListRevelationLogs(ctx, participants[1].ID)
	require.NoError(t, err)
	assert.Empty(t, others)
}

func testRevealAssignsIDs(t *testing.T, store storage.Store) {
	ctx := context.Background()

	// Two groups so ids must be unique across the whole table.
	_, first := createGroup(t, store, "One", "A", "B")
	_, second := createGroup(t, store, "Two", "C", "D")

	var all []*models.RevelationLog
	for _, p := range []*models.Participant{first[0], first[0], first[1], second[0], second[0]} {
		_, err := store.RecordReveal(ctx, p.ID, &models.RevelationLog{ViewedAt: 3000})
		require.NoError(t, err, "reveal for %s", p.Name)
	}
	for _, p := range []*models.Participant{first[0], first[1], second[0]} {
		logs, err := store.ListRevelationLogs(ctx, p.ID)
		require.NoError(t, err)
		all = append(all, logs...)
	}

	require.Len(t, all, 5)
	assertDistinctIDs(t, all)
}

func createGroup(t *testing.T, store storage.Store, name string, names ...string) (*models.Group, []*models.Participant) {
	t.Helper()
	group, participants := NewGroup(t, name, names...)
	require.NoError(t, store.CreateGroup(context.Background(), group, participants))
	return group, participants
}

func assertDistinctIDs(t *testing.T, logs []*models.RevelationLog) {
	t.Helper()
	seen := make(map[string]bool, len(logs))
	for _, l := range logs {
		assert.NotEmpty(t, l.ID)
		assert.False(t, seen[l.ID], "duplicate log id %q", l.ID)
		seen[l.ID] = true
	}
}

func testConcurrentReveal(t *testing.T, store storage.Store) {
	ctx := context.Background()
	group, participants := NewGroup(t, "Race", "A", "B", "C", "D")
	require.NoError(t, store.CreateGroup(ctx, group, participants))
	p := participants[2]

	const callers = 50
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		firsts int
		errsCh = make(chan error, callers)
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			first, err := store.RecordReveal(ctx, p.ID, &models.RevelationLog{
				ViewedAt: int64(5000 + i),
			})
			if err != nil {
				errsCh <- err
				return
			}
			if first {
				mu.Lock()
				firsts++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	close(errsCh)

	for err := range errsCh {
		t.Errorf("RecordReveal failed: %v", err)
	}
	assert.Equal(t, 1, firsts)

	logs, err := store.ListRevelationLogs(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, logs, callers)
	assertDistinctIDs(t, logs)

	got, err := store.GetParticipant(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Revealed())
}

func testDeleteCascade(t *testing.T, store storage.Store) {
	ctx := context.Background()
	group, participants := NewGroup(t, "Doomed", "A", "B")
	require.NoError(t, store.CreateGroup(ctx, group, participants))
	keep, keepParticipants := NewGroup(t, "Kept", "C", "D")
	require.NoError(t, store.CreateGroup(ctx, keep, keepParticipants))

	_, err := store.RecordReveal(ctx, participants[0].ID, &models.RevelationLog{ID: uuid.NewString(), ViewedAt: 10})
	require.NoError(t, err)

	require.NoError(t, store.DeleteGroup(ctx, group.ID))

	_, err = store.GetGroup(ctx, group.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	for _, p := range participants {
		_, err := store.GetParticipant(ctx, p.ID)
		assert.ErrorIs(t, err, errs.ErrNotFound)
		_, err = store.GetParticipantByToken(ctx, p.PublicToken)
		assert.ErrorIs(t, err, errs.ErrNotFound)
		_, err = store.ListRevelationLogs(ctx, p.ID)
		assert.ErrorIs(t, err, errs.ErrNotFound)
	}

	listed, err := store.ListParticipants(ctx, keep.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func testDetachedCopies(t *testing.T, store storage.Store) {
	ctx := context.Background()
	group, participants := NewGroup(t, "Copies", "A", "B")
	require.NoError(t, store.CreateGroup(ctx, group, participants))

	// Mutating the caller's slices after the write must not leak in.
	participants[0].Name = "mutated"

	p, err := store.GetParticipant(ctx, participants[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "A", p.Name)

	p.Name = "mutated again"
	again, err := store.GetParticipant(ctx, participants[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "A", again.Name)
}
