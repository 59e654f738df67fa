package presence_api_client

const (
	DefaultBaseURL = "http://localhost:8080"

	// API Endpoints
	SignUpEndpoint      = "/api/auth/signup"
	LogInEndpoint       = "/api/auth/login"
	LogOutEndpoint      = "/api/auth/logout"
	MeEndpoint          = "/api/me"
	PreferencesEndpoint = "/api/me/preferences"
	ServersEndpoint     = "/api/servers"

	// Gateway endpoints, relative to the gateway's http(s) address
	ServerStateEndpoint = "/api/servers/%s/state"
	ServerFrameEndpoint = "/api/servers/%s/frame.png"
)
