package models

// GroupStatus is the lifecycle state of a drawing.
type GroupStatus string

const (
	// StatusOpen is a group without an assignment. Groups are assigned at
	// creation, so stores never write it.
	StatusOpen GroupStatus = "open"

	// StatusMatched means the assignment exists and nobody has revealed yet.
	StatusMatched GroupStatus = "matched"

	// StatusRevealed means at least one participant has revealed their match.
	StatusRevealed GroupStatus = "revealed"
)

// Valid reports whether s is one of the known statuses.
func (s GroupStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusMatched, StatusRevealed:
		return true
	}
	return false
}

// Group represents one gift-exchange drawing.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	// It doubles as the public share link for self-identification.
	ID string

	// Name is the display name of the group (e.g., "Team", "Family 2026").
	Name string

	// AdminTokenDigest is the blake2b digest of the admin capability.
	// The token itself is handed to the creator once and never stored.
	AdminTokenDigest string

	// Status only moves forward: matched -> revealed.
	Status GroupStatus

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}
