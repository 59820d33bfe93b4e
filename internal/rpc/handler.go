// Package rpc serves the group and reveal operations over Connect.
package rpc

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/secretsanta/internal/middleware"
	"github.com/mmynk/secretsanta/internal/service"
)

// ServiceName is the fully-qualified name of the RPC service.
const ServiceName = "santa.v1.SantaService"

// Procedure paths.
const (
	CreateGroupProcedure                 = "/" + ServiceName + "/CreateGroup"
	GetGroupByAdminTokenProcedure        = "/" + ServiceName + "/GetGroupByAdminToken"
	GetParticipantsByAdminTokenProcedure = "/" + ServiceName + "/GetParticipantsByAdminToken"
	GetParticipantsPublicListProcedure   = "/" + ServiceName + "/GetParticipantsPublicList"
	GetParticipantTokenProcedure         = "/" + ServiceName + "/GetParticipantToken"
	GetMyMatchProcedure                  = "/" + ServiceName + "/GetMyMatch"
	GetRevelationLogsProcedure           = "/" + ServiceName + "/GetRevelationLogs"
	DeleteGroupProcedure                 = "/" + ServiceName + "/DeleteGroup"
)

// Server adapts the services to Connect handlers.
type Server struct {
	groups *service.GroupService
	reveal *service.RevealService
	logger *slog.Logger
}

// NewServer creates a Server backed by the given services.
func NewServer(groups *service.GroupService, reveal *service.RevealService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{groups: groups, reveal: reveal, logger: logger}
}

// NewHandler builds an HTTP handler for every procedure and returns the path
// on which to mount it.
func NewHandler(srv *Server, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(CreateGroupProcedure, connect.NewUnaryHandler(CreateGroupProcedure, srv.CreateGroup, opts...))
	mux.Handle(GetGroupByAdminTokenProcedure, connect.NewUnaryHandler(GetGroupByAdminTokenProcedure, srv.GetGroupByAdminToken, opts...))
	mux.Handle(GetParticipantsByAdminTokenProcedure, connect.NewUnaryHandler(GetParticipantsByAdminTokenProcedure, srv.GetParticipantsByAdminToken, opts...))
	mux.Handle(GetParticipantsPublicListProcedure, connect.NewUnaryHandler(GetParticipantsPublicListProcedure, srv.GetParticipantsPublicList, opts...))
	mux.Handle(GetParticipantTokenProcedure, connect.NewUnaryHandler(GetParticipantTokenProcedure, srv.GetParticipantToken, opts...))
	mux.Handle(GetMyMatchProcedure, connect.NewUnaryHandler(GetMyMatchProcedure, srv.GetMyMatch, opts...))
	mux.Handle(GetRevelationLogsProcedure, connect.NewUnaryHandler(GetRevelationLogsProcedure, srv.GetRevelationLogs, opts...))
	mux.Handle(DeleteGroupProcedure, connect.NewUnaryHandler(DeleteGroupProcedure, srv.DeleteGroup, opts...))

	return "/" + ServiceName + "/", mux
}

// CreateGroup creates a group and draws its assignment.
func (s *Server) CreateGroup(
	ctx context.Context,
	req *connect.Request[CreateGroupRequest],
) (*connect.Response[CreateGroupResponse], error) {
	created, err := s.groups.CreateGroup(ctx, req.Msg.Name, req.Msg.ParticipantNames)
	if err != nil {
		return nil, toConnectError(s.logger, CreateGroupProcedure, err)
	}

	return connect.NewResponse(&CreateGroupResponse{
		GroupID:    created.GroupID,
		AdminToken: created.AdminToken,
	}), nil
}

// GetGroupByAdminToken returns the organizer's summary of a group.
func (s *Server) GetGroupByAdminToken(
	ctx context.Context,
	req *connect.Request[AdminTokenRequest],
) (*connect.Response[GetGroupByAdminTokenResponse], error) {
	group, err := s.groups.GetGroupByAdminToken(ctx, req.Msg.AdminToken)
	if err != nil {
		return nil, toConnectError(s.logger, GetGroupByAdminTokenProcedure, err)
	}

	return connect.NewResponse(&GetGroupByAdminTokenResponse{
		Group: Group{
			ID:               group.ID,
			Name:             group.Name,
			Status:           string(group.Status),
			CreatedAt:        group.CreatedAt,
			ParticipantCount: group.ParticipantCount,
			RevealedCount:    group.RevealedCount,
		},
	}), nil
}

// GetParticipantsByAdminToken lists participants with their reveal status.
func (s *Server) GetParticipantsByAdminToken(
	ctx context.Context,
	req *connect.Request[AdminTokenRequest],
) (*connect.Response[GetParticipantsByAdminTokenResponse], error) {
	participants, err := s.groups.GetParticipantsByAdminToken(ctx, req.Msg.AdminToken)
	if err != nil {
		return nil, toConnectError(s.logger, GetParticipantsByAdminTokenProcedure, err)
	}

	out := make([]AdminParticipant, len(participants))
	for i, p := range participants {
		out[i] = AdminParticipant{ID: p.ID, Name: p.Name, CreatedAt: p.CreatedAt}
		if p.RevealedAt != 0 {
			revealedAt := p.RevealedAt
			out[i].RevealedAt = &revealedAt
		}
	}

	return connect.NewResponse(&GetParticipantsByAdminTokenResponse{Participants: out}), nil
}

// GetParticipantsPublicList returns the id and name of every participant.
func (s *Server) GetParticipantsPublicList(
	ctx context.Context,
	req *connect.Request[GetParticipantsPublicListRequest],
) (*connect.Response[GetParticipantsPublicListResponse], error) {
	participants, err := s.groups.GetParticipantsPublicList(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(s.logger, GetParticipantsPublicListProcedure, err)
	}

	out := make([]PublicParticipant, len(participants))
	for i, p := range participants {
		out[i] = PublicParticipant{ID: p.ID, Name: p.Name}
	}

	return connect.NewResponse(&GetParticipantsPublicListResponse{Participants: out}), nil
}

// GetParticipantToken returns the reveal token for a participant.
func (s *Server) GetParticipantToken(
	ctx context.Context,
	req *connect.Request[GetParticipantTokenRequest],
) (*connect.Response[GetParticipantTokenResponse], error) {
	tok, err := s.groups.GetParticipantToken(ctx, req.Msg.ParticipantID)
	if err != nil {
		return nil, toConnectError(s.logger, GetParticipantTokenProcedure, err)
	}

	return connect.NewResponse(&GetParticipantTokenResponse{Token: tok}), nil
}

// GetMyMatch reveals the recipient for a reveal token.
func (s *Server) GetMyMatch(
	ctx context.Context,
	req *connect.Request[GetMyMatchRequest],
) (*connect.Response[GetMyMatchResponse], error) {
	match, err := s.reveal.Reveal(ctx, req.Msg.Token, middleware.GetViewer(ctx))
	if err != nil {
		return nil, toConnectError(s.logger, GetMyMatchProcedure, err)
	}

	return connect.NewResponse(&GetMyMatchResponse{
		MatchName:   match.RecipientName,
		GroupName:   match.GroupName,
		FirstReveal: match.FirstReveal,
	}), nil
}

// GetRevelationLogs returns a participant's reveal history, oldest first.
func (s *Server) GetRevelationLogs(
	ctx context.Context,
	req *connect.Request[GetRevelationLogsRequest],
) (*connect.Response[GetRevelationLogsResponse], error) {
	logs, err := s.groups.GetRevelationLogs(ctx, req.Msg.AdminToken, req.Msg.ParticipantID)
	if err != nil {
		return nil, toConnectError(s.logger, GetRevelationLogsProcedure, err)
	}

	out := make([]RevelationLog, len(logs))
	for i, l := range logs {
		out[i] = RevelationLog{
			ID:         l.ID,
			ViewedAt:   l.ViewedAt,
			IPAddress:  l.IPAddress,
			UserAgent:  l.UserAgent,
			DeviceInfo: l.DeviceInfo,
		}
	}

	return connect.NewResponse(&GetRevelationLogsResponse{Logs: out}), nil
}

// DeleteGroup removes a group and everything in it.
func (s *Server) DeleteGroup(
	ctx context.Context,
	req *connect.Request[AdminTokenRequest],
) (*connect.Response[DeleteGroupResponse], error) {
	if err := s.groups.DeleteGroup(ctx, req.Msg.AdminToken); err != nil {
		return nil, toConnectError(s.logger, DeleteGroupProcedure, err)
	}

	return connect.NewResponse(&DeleteGroupResponse{}), nil
}
