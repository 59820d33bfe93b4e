// Package models defines the core domain models for the gift exchange.
//
// # Models
//
//   - Group: one drawing, owned by whoever holds its admin token
//   - Participant: a member of a group with exactly one gift target
//   - RevelationLog: one audited lookup of a participant's target
//
// Relationships use ID strings instead of pointers. Timestamps are Unix seconds;
// zero means unset.
//
// # Capabilities
//
// Access is granted by possession of opaque tokens rather than accounts:
//   1. The admin token (stored as a digest on Group) grants the organizer view
//   2. The group ID lists participant names for self-identification
//   3. A participant's PublicToken resolves to that participant's target name
package models
