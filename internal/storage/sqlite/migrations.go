package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// Targets reference participants of the same insert, so that foreign key is
// deferred to commit.
const schema = `
CREATE TABLE IF NOT EXISTS groups (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    admin_token_digest TEXT NOT NULL UNIQUE,
    status TEXT NOT NULL CHECK (status IN ('open', 'matched', 'revealed')),
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS participants (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    public_token TEXT NOT NULL UNIQUE,
    target_participant_id TEXT NOT NULL,
    revealed_at INTEGER,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE,
    FOREIGN KEY (target_participant_id) REFERENCES participants(id) DEFERRABLE INITIALLY DEFERRED,
    CHECK (target_participant_id <> id)
);

CREATE TABLE IF NOT EXISTS revelation_logs (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    participant_id TEXT NOT NULL,
    viewed_at INTEGER NOT NULL,
    ip_address TEXT,
    user_agent TEXT,
    device_info TEXT,
    FOREIGN KEY (participant_id) REFERENCES participants(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_participants_group_id ON participants(group_id, position);
CREATE UNIQUE INDEX IF NOT EXISTS idx_participants_target ON participants(target_participant_id);
CREATE INDEX IF NOT EXISTS idx_revelation_logs_participant_id ON revelation_logs(participant_id, seq);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
