package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/presence/go/internal/apiutil"
	"github.com/mcdev12/presence/go/internal/sharedstate"
	"github.com/mcdev12/presence/go/internal/users"
)

// Authenticator resolves a login token to the user it was issued to
type Authenticator interface {
	Resolve(ctx context.Context, token string) (uuid.UUID, error)
}

// WebSocketHandler handles WebSocket upgrade requests for presence connections
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	auth              Authenticator
}

func NewWebSocketHandler(cm *ConnectionManager, auth Authenticator) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		auth:              auth,
	}
}

// HandlePresenceConnection handles GET /ws/presence?server=<id>. The actor id
// of the connection is the authenticated user's id.
func (h *WebSocketHandler) HandlePresenceConnection(w http.ResponseWriter, r *http.Request) {
	serverID := r.URL.Query().Get("server")
	if err := sharedstate.ValidateID("server", serverID); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "server/invalid-id", "A valid server id is required.")
		return
	}

	userID, err := h.auth.Resolve(r.Context(), apiutil.BearerToken(r))
	if err != nil {
		if errors.Is(err, users.ErrUnauthenticated) {
			apiutil.WriteError(w, http.StatusUnauthorized, users.ErrorCode(err), users.ErrorMessage(err))
			return
		}
		log.Error().Err(err).Msg("failed to resolve session")
		apiutil.WriteError(w, http.StatusServiceUnavailable, "internal", "Something went wrong. Please try again.")
		return
	}

	// After a successful upgrade the connection is hijacked, so failures are
	// reported on the socket rather than as an HTTP status
	if err := h.connectionManager.UpgradeConnection(w, r, userID.String(), serverID); err != nil {
		log.Error().
			Err(err).
			Str("server_id", serverID).
			Str("user_id", userID.String()).
			Msg("failed to open presence connection")
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	apiutil.WriteJSON(w, http.StatusOK, h.connectionManager.GetConnectionStats())
}
