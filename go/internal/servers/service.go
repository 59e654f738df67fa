package servers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"

	"github.com/mcdev12/presence/go/internal/apiutil"
	"github.com/mcdev12/presence/go/internal/models"
)

// qrSize is the edge length of share codes in pixels
const qrSize = 320

// ServersApp defines what the service layer needs from the servers application
type ServersApp interface {
	List(ctx context.Context) ([]models.Server, error)
	Get(ctx context.Context, id string) (*models.Server, error)
}

// Service exposes the catalogue over JSON HTTP
type Service struct {
	app       ServersApp
	publicURL string
}

// NewService creates the catalogue service. Share links point at publicURL,
// or at presence://join/<id> when it is empty.
func NewService(app ServersApp, publicURL string) *Service {
	return &Service{app: app, publicURL: strings.TrimSuffix(publicURL, "/")}
}

func (s *Service) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/servers", s.List)
	router.GET("/api/servers/:id", s.Get)
	router.GET("/api/servers/:id/qr.png", s.QRCode)
}

func (s *Service) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	servers, err := s.app.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, servers)
}

func (s *Service) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	server, err := s.app.Get(r.Context(), ps.ByName("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, server)
}

// QRCode renders the server's join link as a PNG QR code
func (s *Service) QRCode(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	server, err := s.app.Get(r.Context(), ps.ByName("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	png, err := qrcode.Encode(s.JoinLink(server.ID), qrcode.Medium, qrSize)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// JoinLink is the link a share code points at
func (s *Service) JoinLink(serverID string) string {
	if s.publicURL == "" {
		return "presence://join/" + url.PathEscape(serverID)
	}
	return s.publicURL + "/?server=" + url.QueryEscape(serverID)
}

func (s *Service) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrServerNotFound) {
		apiutil.WriteError(w, http.StatusNotFound, "server/not-found", "That server does not exist.")
		return
	}
	log.Error().Err(err).Msg("servers request failed")
	apiutil.WriteError(w, http.StatusInternalServerError, "internal", "Something went wrong. Please try again.")
}
