package models

// DeviceInfo is a coarse description of the client that performed a reveal.
// Advisory only.
type DeviceInfo struct {
	Browser string `json:"browser"`
	OS      string `json:"os"`
	Device  string `json:"device"`
}

// RevelationLog records one lookup of a participant's match.
// Entries are append-only.
type RevelationLog struct {
	// ID is the unique identifier for the entry (UUID format).
	ID string

	// ParticipantID is the participant whose match was disclosed.
	ParticipantID string

	// ViewedAt is the Unix timestamp of the lookup.
	ViewedAt int64

	IPAddress  string
	UserAgent  string
	DeviceInfo *DeviceInfo
}
