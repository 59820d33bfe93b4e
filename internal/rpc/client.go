package rpc

import (
	"context"
	"strings"

	"connectrpc.com/connect"
)

// Client is a typed client for santa.v1.SantaService.
type Client struct {
	createGroup                 *connect.Client[CreateGroupRequest, CreateGroupResponse]
	getGroupByAdminToken        *connect.Client[AdminTokenRequest, GetGroupByAdminTokenResponse]
	getParticipantsByAdminToken *connect.Client[AdminTokenRequest, GetParticipantsByAdminTokenResponse]
	getParticipantsPublicList   *connect.Client[GetParticipantsPublicListRequest, GetParticipantsPublicListResponse]
	getParticipantToken         *connect.Client[GetParticipantTokenRequest, GetParticipantTokenResponse]
	getMyMatch                  *connect.Client[GetMyMatchRequest, GetMyMatchResponse]
	getRevelationLogs           *connect.Client[GetRevelationLogsRequest, GetRevelationLogsResponse]
	deleteGroup                 *connect.Client[AdminTokenRequest, DeleteGroupResponse]
}

// NewClient constructs a client for the service at baseURL.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)

	return &Client{
		createGroup: connect.NewClient[CreateGroupRequest, CreateGroupResponse](
			httpClient, baseURL+CreateGroupProcedure, opts...),
		getGroupByAdminToken: connect.NewClient[AdminTokenRequest, GetGroupByAdminTokenResponse](
			httpClient, baseURL+GetGroupByAdminTokenProcedure, opts...),
		getParticipantsByAdminToken: connect.NewClient[AdminTokenRequest, GetParticipantsByAdminTokenResponse](
			httpClient, baseURL+GetParticipantsByAdminTokenProcedure, opts...),
		getParticipantsPublicList: connect.NewClient[GetParticipantsPublicListRequest, GetParticipantsPublicListResponse](
			httpClient, baseURL+GetParticipantsPublicListProcedure, opts...),
		getParticipantToken: connect.NewClient[GetParticipantTokenRequest, GetParticipantTokenResponse](
			httpClient, baseURL+GetParticipantTokenProcedure, opts...),
		getMyMatch: connect.NewClient[GetMyMatchRequest, GetMyMatchResponse](
			httpClient, baseURL+GetMyMatchProcedure, opts...),
		getRevelationLogs: connect.NewClient[GetRevelationLogsRequest, GetRevelationLogsResponse](
			httpClient, baseURL+GetRevelationLogsProcedure, opts...),
		deleteGroup: connect.NewClient[AdminTokenRequest, DeleteGroupResponse](
			httpClient, baseURL+DeleteGroupProcedure, opts...),
	}
}

func call[Req, Res any](ctx context.Context, c *connect.Client[Req, Res], msg *Req) (*Res, error) {
	resp, err := c.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (c *Client) CreateGroup(ctx context.Context, req *CreateGroupRequest) (*CreateGroupResponse, error) {
	return call(ctx, c.createGroup, req)
}

func (c *Client) GetGroupByAdminToken(ctx context.Context, adminToken string) (*GetGroupByAdminTokenResponse, error) {
	return call(ctx, c.getGroupByAdminToken, &AdminTokenRequest{AdminToken: adminToken})
}

func (c *Client) GetParticipantsByAdminToken(ctx context.Context, adminToken string) (*GetParticipantsByAdminTokenResponse, error) {
	return call(ctx, c.getParticipantsByAdminToken, &AdminTokenRequest{AdminToken: adminToken})
}

func (c *Client) GetParticipantsPublicList(ctx context.Context, groupID string) (*GetParticipantsPublicListResponse, error) {
	return call(ctx, c.getParticipantsPublicList, &GetParticipantsPublicListRequest{GroupID: groupID})
}

func (c *Client) GetParticipantToken(ctx context.Context, participantID string) (*GetParticipantTokenResponse, error) {
	return call(ctx, c.getParticipantToken, &GetParticipantTokenRequest{ParticipantID: participantID})
}

func (c *Client) GetMyMatch(ctx context.Context, token string) (*GetMyMatchResponse, error) {
	return call(ctx, c.getMyMatch, &GetMyMatchRequest{Token: token})
}

func (c *Client) GetRevelationLogs(ctx context.Context, adminToken, participantID string) (*GetRevelationLogsResponse, error) {
	return call(ctx, c.getRevelationLogs, &GetRevelationLogsRequest{AdminToken: adminToken, ParticipantID: participantID})
}

func (c *Client) DeleteGroup(ctx context.Context, adminToken string) error {
	_, err := call(ctx, c.deleteGroup, &AdminTokenRequest{AdminToken: adminToken})
	return err
}
