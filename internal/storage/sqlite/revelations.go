package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/mmynk/secretsanta/internal/errs"
	"github.com/mmynk/secretsanta/internal/models"
)

// RecordReveal appends a log entry and sets revealed_at if it is still NULL.
// The conditional UPDATE is the compare-and-set: only one transaction can
// move revealed_at away from NULL.
func (s *SQLiteStore) RecordReveal(ctx context.Context, participantID string, entry *models.RevelationLog) (bool, error) {
	deviceInfo, err := encodeDeviceInfo(entry.DeviceInfo)
	if err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var groupID string
	err = tx.QueryRowContext(ctx, "SELECT group_id FROM participants WHERE id = ?", participantID).Scan(&groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, errs.NotFound("participant", participantID)
	}
	if err != nil {
		return false, fmt.Errorf("failed to get participant: %w", err)
	}

	id := entry.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO revelation_logs (id, participant_id, viewed_at, ip_address, user_agent, device_info)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, participantID, entry.ViewedAt, nullString(entry.IPAddress), nullString(entry.UserAgent), deviceInfo,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert revelation log: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE participants SET revealed_at = ? WHERE id = ? AND revealed_at IS NULL",
		entry.ViewedAt, participantID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark participant revealed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check revealed rows: %w", err)
	}
	first := n == 1

	if first {
		_, err = tx.ExecContext(ctx,
			"UPDATE groups SET status = ? WHERE id = ? AND status <> ?",
			string(models.StatusRevealed), groupID, string(models.StatusRevealed),
		)
		if err != nil {
			return false, fmt.Errorf("failed to update group status: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return first, nil
}

// ListRevelationLogs retrieves a participant's log entries oldest first.
func (s *SQLiteStore) ListRevelationLogs(ctx context.Context, participantID string) ([]*models.RevelationLog, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM participants WHERE id = ?", participantID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("participant", participantID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check participant existence: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, participant_id, viewed_at, ip_address, user_agent, device_info
		 FROM revelation_logs WHERE participant_id = ? ORDER BY seq`,
		participantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list revelation logs: %w", err)
	}
	defer rows.Close()

	logs := []*models.RevelationLog{}
	for rows.Next() {
		entry := &models.RevelationLog{}
		var ip, ua, info sql.NullString

		if err := rows.Scan(&entry.ID, &entry.ParticipantID, &entry.ViewedAt, &ip, &ua, &info); err != nil {
			return nil, fmt.Errorf("failed to scan revelation log: %w", err)
		}

		entry.IPAddress = ip.String
		entry.UserAgent = ua.String
		if info.Valid {
			entry.DeviceInfo = &models.DeviceInfo{}
			if err := json.Unmarshal([]byte(info.String), entry.DeviceInfo); err != nil {
				return nil, fmt.Errorf("failed to decode device info: %w", err)
			}
		}

		logs = append(logs, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate revelation logs: %w", err)
	}

	return logs, nil
}

func encodeDeviceInfo(info *models.DeviceInfo) (interface{}, error) {
	if info == nil {
		return nil, nil
	}
	b, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("failed to encode device info: %w", err)
	}
	return string(b), nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
