package presence_api_client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mcdev12/presence/go/clients"
	"github.com/mcdev12/presence/go/internal/events"
	"github.com/mcdev12/presence/go/internal/models"
	"github.com/mcdev12/presence/go/internal/users"
)

// PresenceApiClient talks to the API server, or to a gateway for the
// state endpoints
type PresenceApiClient struct {
	*clients.BaseClient
}

func NewPresenceApiClient(baseURL string) *PresenceApiClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &PresenceApiClient{BaseClient: clients.NewBaseClient(baseURL)}
}

// SetToken authenticates every following request
func (c *PresenceApiClient) SetToken(token string) {
	c.SetHeader("Authorization", "Bearer "+token)
}

func (c *PresenceApiClient) SignUp(ctx context.Context, req users.SignUpRequest) (*users.Profile, error) {
	var profile users.Profile
	if err := c.DoJSON(ctx, http.MethodPost, SignUpEndpoint, req, &profile); err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	return &profile, nil
}

func (c *PresenceApiClient) LogIn(ctx context.Context, email, password string) (*users.LogInResponse, error) {
	var resp users.LogInResponse
	req := users.LogInRequest{Email: email, Password: password}
	if err := c.DoJSON(ctx, http.MethodPost, LogInEndpoint, req, &resp); err != nil {
		return nil, fmt.Errorf("log in: %w", err)
	}
	return &resp, nil
}

func (c *PresenceApiClient) LogOut(ctx context.Context) error {
	if err := c.DoJSON(ctx, http.MethodPost, LogOutEndpoint, nil, nil); err != nil {
		return fmt.Errorf("log out: %w", err)
	}
	return nil
}

func (c *PresenceApiClient) Me(ctx context.Context) (*users.Profile, error) {
	var profile users.Profile
	if err := c.DoJSON(ctx, http.MethodGet, MeEndpoint, nil, &profile); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &profile, nil
}

func (c *PresenceApiClient) UpdateColor(ctx context.Context, color string) (*users.Profile, error) {
	var profile users.Profile
	req := users.UpdatePreferencesRequest{Color: color}
	if err := c.DoJSON(ctx, http.MethodPut, PreferencesEndpoint, req, &profile); err != nil {
		return nil, fmt.Errorf("update preferences: %w", err)
	}
	return &profile, nil
}

func (c *PresenceApiClient) ListServers(ctx context.Context) ([]models.Server, error) {
	var servers []models.Server
	if err := c.DoJSON(ctx, http.MethodGet, ServersEndpoint, nil, &servers); err != nil {
		return nil, fmt.Errorf("list servers: %w", err)
	}
	return servers, nil
}

// ServerState fetches the current snapshot of serverID from a gateway
func (c *PresenceApiClient) ServerState(ctx context.Context, serverID string) (*events.SnapshotPayload, error) {
	var state events.SnapshotPayload
	endpoint := fmt.Sprintf(ServerStateEndpoint, url.PathEscape(serverID))
	if err := c.DoJSON(ctx, http.MethodGet, endpoint, nil, &state); err != nil {
		return nil, fmt.Errorf("get server state: %w", err)
	}
	return &state, nil
}

// ServerFrame fetches a spectator PNG of serverID from a gateway
func (c *PresenceApiClient) ServerFrame(ctx context.Context, serverID string) ([]byte, error) {
	png, err := c.Get(ctx, fmt.Sprintf(ServerFrameEndpoint, url.PathEscape(serverID)))
	if err != nil {
		return nil, fmt.Errorf("get server frame: %w", err)
	}
	return png, nil
}
