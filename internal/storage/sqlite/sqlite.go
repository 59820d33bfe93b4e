// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/secretsanta/internal/errs"
	"github.com/mmynk/secretsanta/internal/models"
	"github.com/mmynk/secretsanta/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
// ":memory:" opens a private in-memory database.
func New(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		// Create parent directory if it doesn't exist
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Pragmas go in the DSN so they apply to every connection the pool opens.
	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer at a time. A single connection turns
	// concurrent writers into a queue instead of SQLITE_BUSY errors, and
	// keeps a ":memory:" database alive for the life of the store.
	db.SetMaxOpenConns(1)

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateGroup persists a group and its participants in one transaction.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group, participants []*models.Participant) error {
	if err := storage.CheckAssignment(group, participants); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Insert group
	_, err = tx.ExecContext(ctx,
		"INSERT INTO groups (id, name, admin_token_digest, status, created_at) VALUES (?, ?, ?, ?, ?)",
		group.ID, group.Name, group.AdminTokenDigest, string(group.Status), group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	// Insert participants with their targets
	for i, p := range participants {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO participants (id, group_id, position, name, public_token, target_participant_id, revealed_at, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, group.ID, i, p.Name, p.PublicToken, p.TargetParticipantID, nullUnix(p.RevealedAt), p.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

const groupColumns = "id, name, admin_token_digest, status, created_at"

// GetGroup retrieves a group by ID.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+groupColumns+" FROM groups WHERE id = ?", groupID)
	group, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("group", groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

// GetGroupByAdminDigest retrieves a group by the digest of its admin token.
func (s *SQLiteStore) GetGroupByAdminDigest(ctx context.Context, digest string) (*models.Group, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+groupColumns+" FROM groups WHERE admin_token_digest = ?", digest)
	group, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group by admin token: %w", errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group by admin token: %w", err)
	}
	return group, nil
}

// DeleteGroup removes a group. Participants and their logs go with it
// through ON DELETE CASCADE.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, groupID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", groupID)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if n == 0 {
		return errs.NotFound("group", groupID)
	}
	return nil
}

func scanGroup(row *sql.Row) (*models.Group, error) {
	group := &models.Group{}
	var status string
	if err := row.Scan(&group.ID, &group.Name, &group.AdminTokenDigest, &status, &group.CreatedAt); err != nil {
		return nil, err
	}
	group.Status = models.GroupStatus(status)
	if !group.Status.Valid() {
		return nil, fmt.Errorf("group %s has unknown status %q", group.ID, status)
	}
	return group, nil
}

// nullUnix stores a zero timestamp as NULL.
func nullUnix(ts int64) interface{} {
	if ts == 0 {
		return nil
	}
	return ts
}
