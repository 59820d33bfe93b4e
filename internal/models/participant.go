package models

// Participant is one member of a group.
type Participant struct {
	// ID is the unique identifier for the participant (UUID format).
	ID string

	// GroupID is the owning group.
	GroupID string

	// Name is not unique within a group; two people may share a name.
	Name string

	// PublicToken is the participant's reveal capability.
	PublicToken string

	// TargetParticipantID is who this participant gives a gift to.
	TargetParticipantID string

	// RevealedAt is the Unix timestamp of the first reveal, 0 until then.
	// Set once, never changed.
	RevealedAt int64

	// CreatedAt is the Unix timestamp when the participant was created.
	CreatedAt int64
}

// Revealed reports whether the participant has looked at their match.
func (p *Participant) Revealed() bool {
	return p.RevealedAt != 0
}

// PublicParticipant is the self-identification view of a participant.
type PublicParticipant struct {
	ID   string
	Name string
}
