package gateway

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/presence/go/internal/apiutil"
	"github.com/mcdev12/presence/go/internal/events"
	"github.com/mcdev12/presence/go/internal/models"
	"github.com/mcdev12/presence/go/internal/render"
	"github.com/mcdev12/presence/go/internal/sharedstate"
	"github.com/mcdev12/presence/go/internal/tuning"
)

// StateProvider returns the current contents of a server
type StateProvider interface {
	Snapshot(ctx context.Context, serverID string) (models.Snapshot, error)
}

// StateHandler serves server state over plain HTTP for spectators and tooling
type StateHandler struct {
	stateProvider StateProvider
	tuning        tuning.Config
	timeout       time.Duration
}

func NewStateHandler(provider StateProvider, tuning tuning.Config, timeout time.Duration) *StateHandler {
	return &StateHandler{
		stateProvider: provider,
		tuning:        tuning,
		timeout:       timeout,
	}
}

// HandleGetServerState handles GET /api/servers/:id/state
func (h *StateHandler) HandleGetServerState(w http.ResponseWriter, r *http.Request) {
	serverID := httprouter.ParamsFromContext(r.Context()).ByName("id")
	snap, ok := h.snapshot(w, r, serverID)
	if !ok {
		return
	}
	if snap == nil {
		snap = models.Snapshot{}
	}
	apiutil.WriteJSON(w, http.StatusOK, events.SnapshotPayload{Server: serverID, Actors: snap})
}

// HandleGetServerFrame handles GET /api/servers/:id/frame.png, a spectator
// view of the server drawn the way clients draw it
func (h *StateHandler) HandleGetServerFrame(w http.ResponseWriter, r *http.Request) {
	serverID := httprouter.ParamsFromContext(r.Context()).ByName("id")
	snap, ok := h.snapshot(w, r, serverID)
	if !ok {
		return
	}

	surface := render.NewImageSurface(int(h.tuning.SurfaceWidth), int(h.tuning.SurfaceHeight))
	render.Render(surface, nil, snap, h.tuning.Radius)

	var buf bytes.Buffer
	if err := surface.EncodePNG(&buf); err != nil {
		log.Error().Err(err).Str("server_id", serverID).Msg("failed to encode frame")
		apiutil.WriteError(w, http.StatusInternalServerError, "internal", "Failed to render frame.")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func (h *StateHandler) snapshot(w http.ResponseWriter, r *http.Request, serverID string) (models.Snapshot, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	snap, err := h.stateProvider.Snapshot(ctx, serverID)
	switch {
	case err == nil:
		return snap, true
	case errors.Is(err, sharedstate.ErrInvalidID):
		apiutil.WriteError(w, http.StatusBadRequest, "server/invalid-id", "A valid server id is required.")
	case errors.Is(err, context.DeadlineExceeded):
		apiutil.WriteError(w, http.StatusGatewayTimeout, "backend/timeout", "The shared state did not answer in time.")
	default:
		log.Error().Err(err).Str("server_id", serverID).Msg("failed to get server state")
		apiutil.WriteError(w, http.StatusBadGateway, "backend/unavailable", "Failed to get server state.")
	}
	return nil, false
}

// RegisterStateRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterStateRoutes(router *httprouter.Router) {
	router.HandlerFunc(http.MethodGet, "/api/servers/:id/state", h.HandleGetServerState)
	router.HandlerFunc(http.MethodGet, "/api/servers/:id/frame.png", h.HandleGetServerFrame)
}
