package presence_api_client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"

	"github.com/mcdev12/presence/go/clients"
	"github.com/mcdev12/presence/go/internal/apiutil"
	"github.com/mcdev12/presence/go/internal/models"
	"github.com/mcdev12/presence/go/internal/servers"
	"github.com/mcdev12/presence/go/internal/users"
)

func TestServersAndErrors(t *testing.T) {
	router := httprouter.New()
	servers.NewService(servers.NewApp(nil, []models.Server{{ID: "lobby", Name: "Lobby"}}), "").RegisterRoutes(router)
	srv := httptest.NewServer(router)
	defer srv.Close()

	c := NewPresenceApiClient(srv.URL)
	list, err := c.ListServers(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != "lobby" {
		t.Fatalf("servers = %+v", list)
	}

	_, err = c.Me(context.Background())
	var apiErr *clients.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("err = %v, want 404 APIError", err)
	}
}

func TestLogInSendsCredentialsAndToken(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req users.LogInRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email != "ada@example.com" {
			apiutil.WriteError(w, http.StatusUnauthorized, "auth/invalid-credential", "bad login")
			return
		}
		apiutil.WriteJSON(w, http.StatusOK, users.LogInResponse{
			Token: "tok-1",
			User:  users.Profile{Email: req.Email, DisplayName: "ada"},
		})
	})
	mux.HandleFunc("/api/me", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		apiutil.WriteJSON(w, http.StatusOK, users.Profile{DisplayName: "ada"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := context.Background()
	c := NewPresenceApiClient(srv.URL)

	_, err := c.LogIn(ctx, "someone@example.com", "x")
	var apiErr *clients.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "auth/invalid-credential" || apiErr.Message != "bad login" {
		t.Fatalf("err = %v", err)
	}

	login, err := c.LogIn(ctx, "ada@example.com", "secret123")
	if err != nil {
		t.Fatal(err)
	}
	c.SetToken(login.Token)
	if _, err := c.Me(ctx); err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer tok-1" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
}
