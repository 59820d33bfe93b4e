package rpc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"connectrpc.com/connect"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/secretsanta/internal/errs"
	"github.com/mmynk/secretsanta/internal/middleware"
	"github.com/mmynk/secretsanta/internal/service"
	"github.com/mmynk/secretsanta/internal/storage/memory"
)

// setupTestServer serves the RPC handler over httptest and returns a client.
func setupTestServer(t *testing.T, trustForwardedFor bool) (*Client, *httptest.Server) {
	t.Helper()

	store := memory.New()
	srv := NewServer(
		service.NewGroupService(store, service.Limits{}, nil),
		service.NewRevealService(store, nil),
		nil,
	)

	path, handler := NewHandler(srv, connect.WithInterceptors(
		middleware.ViewerInterceptor(trustForwardedFor),
		middleware.LoggingInterceptor(nil),
	))
	mux := http.NewServeMux()
	mux.Handle(path, handler)

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		store.Close()
	})

	return NewClient(http.DefaultClient, server.URL), server
}

func createTeam(t *testing.T, client *Client, names ...string) *CreateGroupResponse {
	t.Helper()
	resp, err := client.CreateGroup(context.Background(), &CreateGroupRequest{
		Name:             "Team",
		ParticipantNames: names,
	})
	require.NoError(t, err)
	return resp
}

func TestRevealFlow(t *testing.T) {
	client, _ := setupTestServer(t, false)
	ctx := context.Background()

	created := createTeam(t, client, "A", "B", "C")
	assert.NotEmpty(t, created.GroupID)
	assert.NotEmpty(t, created.AdminToken)

	group, err := client.GetGroupByAdminToken(ctx, created.AdminToken)
	require.NoError(t, err)
	assert.Equal(t, "Team", group.Group.Name)
	assert.Equal(t, "matched", group.Group.Status)
	assert.Equal(t, 3, group.Group.ParticipantCount)

	admin, err := client.GetParticipantsByAdminToken(ctx, created.AdminToken)
	require.NoError(t, err)
	require.Len(t, admin.Participants, 3)
	for _, p := range admin.Participants {
		assert.Nil(t, p.RevealedAt)
	}

	public, err := client.GetParticipantsPublicList(ctx, created.GroupID)
	require.NoError(t, err)
	require.Len(t, public.Participants, 3)

	recipients := map[string]string{}
	for _, p := range public.Participants {
		tok, err := client.GetParticipantToken(ctx, p.ID)
		require.NoError(t, err)

		match, err := client.GetMyMatch(ctx, tok.Token)
		require.NoError(t, err)
		assert.Equal(t, "Team", match.GroupName)
		assert.True(t, match.FirstReveal)
		assert.NotEqual(t, p.Name, match.MatchName)
		recipients[p.Name] = match.MatchName
	}
	assert.ElementsMatch(t, []string{"A", "B", "C"}, []string{recipients["A"], recipients["B"], recipients["C"]})

	group, err = client.GetGroupByAdminToken(ctx, created.AdminToken)
	require.NoError(t, err)
	assert.Equal(t, "revealed", group.Group.Status)
	assert.Equal(t, 3, group.Group.RevealedCount)

	logs, err := client.GetRevelationLogs(ctx, created.AdminToken, public.Participants[0].ID)
	require.NoError(t, err)
	require.Len(t, logs.Logs, 1)
	assert.Equal(t, "127.0.0.1", logs.Logs[0].IPAddress)
	assert.NotEmpty(t, logs.Logs[0].UserAgent)

	require.NoError(t, client.DeleteGroup(ctx, created.AdminToken))
	_, err = client.GetGroupByAdminToken(ctx, created.AdminToken)
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestErrorCodes(t *testing.T) {
	client, _ := setupTestServer(t, false)
	ctx := context.Background()

	_, err := client.CreateGroup(ctx, &CreateGroupRequest{Name: "", ParticipantNames: []string{"A", "B"}})
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	assert.Equal(t, errs.KindValidation, KindOf(err))

	_, err = client.CreateGroup(ctx, &CreateGroupRequest{Name: "Team", ParticipantNames: []string{"A", " "}})
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	assert.Contains(t, err.Error(), "participant_names")

	_, err = client.GetMyMatch(ctx, "garbage")
	assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))
	assert.Equal(t, errs.KindInvalidToken, KindOf(err))

	_, err = client.GetParticipantToken(ctx, "missing")
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	_, err = client.GetParticipantsByAdminToken(ctx, strings.Repeat("x", 43))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

// revealFromBrowser posts GetMyMatch as plain JSON, the way a browser calls
// the Connect protocol, and returns the logged entry.
func revealFromBrowser(t *testing.T, client *Client, server *httptest.Server, forwardedFor string) RevelationLog {
	t.Helper()
	ctx := context.Background()

	created := createTeam(t, client, "A", "B")
	public, err := client.GetParticipantsPublicList(ctx, created.GroupID)
	require.NoError(t, err)
	tok, err := client.GetParticipantToken(ctx, public.Participants[0].ID)
	require.NoError(t, err)

	body, err := json.Marshal(GetMyMatchRequest{Token: tok.Token})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, server.URL+GetMyMatchProcedure, strings.NewReader(string(body)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", forwardedFor)
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var match map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&match))
	assert.Equal(t, "B", match["match_name"])
	assert.Equal(t, "Team", match["group_name"])

	logs, err := client.GetRevelationLogs(ctx, created.AdminToken, public.Participants[0].ID)
	require.NoError(t, err)
	require.Len(t, logs.Logs, 1)
	assert.NotEmpty(t, logs.Logs[0].ID)
	return logs.Logs[0]
}

func TestForwardedForTrusted(t *testing.T) {
	client, server := setupTestServer(t, true)

	entry := revealFromBrowser(t, client, server, "203.0.113.7, 10.0.0.1")

	assert.Equal(t, "203.0.113.7", entry.IPAddress)
	require.NotNil(t, entry.DeviceInfo)
	assert.Equal(t, "iOS", entry.DeviceInfo.OS)
	assert.Equal(t, "Mobile", entry.DeviceInfo.Device)
}

func TestForwardedForIgnoredByDefault(t *testing.T) {
	client, server := setupTestServer(t, false)

	entry := revealFromBrowser(t, client, server, "203.0.113.7")

	assert.Equal(t, "127.0.0.1", entry.IPAddress)
}
