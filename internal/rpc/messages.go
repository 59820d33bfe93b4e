package rpc

import "github.com/mmynk/secretsanta/internal/models"

// Wire messages for santa.v1.SantaService. Field names are snake_case.

type CreateGroupRequest struct {
	Name             string   `json:"name"`
	ParticipantNames []string `json:"participant_names"`
}

type CreateGroupResponse struct {
	GroupID    string `json:"group_id"`
	AdminToken string `json:"admin_token"`
}

// AdminTokenRequest is the input of every call scoped to an admin token.
type AdminTokenRequest struct {
	AdminToken string `json:"admin_token"`
}

type Group struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Status           string `json:"status"`
	CreatedAt        int64  `json:"created_at"`
	ParticipantCount int    `json:"participant_count"`
	RevealedCount    int    `json:"revealed_count"`
}

type GetGroupByAdminTokenResponse struct {
	Group Group `json:"group"`
}

// AdminParticipant never carries the participant's target.
type AdminParticipant struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	RevealedAt *int64 `json:"revealed_at"`
	CreatedAt  int64  `json:"created_at"`
}

type GetParticipantsByAdminTokenResponse struct {
	Participants []AdminParticipant `json:"participants"`
}

type GetParticipantsPublicListRequest struct {
	GroupID string `json:"group_id"`
}

type PublicParticipant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type GetParticipantsPublicListResponse struct {
	Participants []PublicParticipant `json:"participants"`
}

type GetParticipantTokenRequest struct {
	ParticipantID string `json:"participant_id"`
}

type GetParticipantTokenResponse struct {
	Token string `json:"token"`
}

type GetMyMatchRequest struct {
	Token string `json:"token"`
}

type GetMyMatchResponse struct {
	MatchName   string `json:"match_name"`
	GroupName   string `json:"group_name"`
	FirstReveal bool   `json:"first_reveal"`
}

type GetRevelationLogsRequest struct {
	AdminToken    string `json:"admin_token"`
	ParticipantID string `json:"participant_id"`
}

type RevelationLog struct {
	ID         string             `json:"id"`
	ViewedAt   int64              `json:"viewed_at"`
	IPAddress  string             `json:"ip_address,omitempty"`
	UserAgent  string             `json:"user_agent,omitempty"`
	DeviceInfo *models.DeviceInfo `json:"device_info,omitempty"`
}

type GetRevelationLogsResponse struct {
	Logs []RevelationLog `json:"logs"`
}

type DeleteGroupResponse struct{}
