package users

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSignUpValidation(t *testing.T) {
	tests := []struct {
		name string
		req  SignUpRequest
		want error
	}{
		{"missing email", SignUpRequest{Password: "secret1"}, ErrMissingFields},
		{"missing password", SignUpRequest{Email: "ana@example.com"}, ErrMissingFields},
		{"not an email", SignUpRequest{Email: "ana", Password: "secret1"}, ErrInvalidEmail},
		{"no domain dot", SignUpRequest{Email: "ana@localhost", Password: "secret1"}, ErrInvalidEmail},
		{"display form", SignUpRequest{Email: "Ana <ana@example.com>", Password: "secret1"}, ErrInvalidEmail},
		{"short password", SignUpRequest{Email: "ana@example.com", Password: "12345"}, ErrWeakPassword},
		{"bad colour", SignUpRequest{Email: "ana@example.com", Password: "123456", Color: "#12"}, ErrInvalidColor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _, _ := newTestApp()
			if _, err := app.SignUp(context.Background(), tt.req); !errors.Is(err, tt.want) {
				t.Fatalf("SignUp = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSignUpRejectsDuplicateEmail(t *testing.T) {
	app, _, _ := newTestApp()
	ctx := context.Background()
	if _, err := app.SignUp(ctx, SignUpRequest{Email: "ana@example.com", Password: "123456"}); err != nil {
		t.Fatal(err)
	}
	_, err := app.SignUp(ctx, SignUpRequest{Email: "ANA@example.com", Password: "654321"})
	if !errors.Is(err, ErrEmailInUse) {
		t.Fatalf("second SignUp = %v, want ErrEmailInUse", err)
	}
	if ErrorCode(err) != "auth/email-already-in-use" {
		t.Fatalf("code = %q", ErrorCode(err))
	}
}

func TestSignUpStoresHashAndPreferences(t *testing.T) {
	app, _, _ := newTestApp()
	user, err := app.SignUp(context.Background(), SignUpRequest{
		Email:    " Ana@Example.com ",
		Password: "123456",
		Username: "ana",
		Color:    "#00ff00",
	})
	if err != nil {
		t.Fatal(err)
	}
	if user.Email != "ana@example.com" {
		t.Fatalf("email = %q, want normalised", user.Email)
	}
	if user.PasswordHash == "" || user.PasswordHash == "123456" {
		t.Fatal("password stored in the clear")
	}
	if got := user.DecodePreferences().Color; got != "#00ff00" {
		t.Fatalf("color = %q", got)
	}
	if user.DisplayName() != "ana" {
		t.Fatalf("display name = %q", user.DisplayName())
	}
}

func TestLogIn(t *testing.T) {
	app, repo, _ := newTestApp()
	ctx := context.Background()
	if _, err := app.SignUp(ctx, SignUpRequest{Email: "ana@example.com", Password: "123456"}); err != nil {
		t.Fatal(err)
	}

	if _, err := app.LogIn(ctx, LogInRequest{Email: "ana@example.com", Password: "wrong!"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password = %v", err)
	}
	if _, err := app.LogIn(ctx, LogInRequest{Email: "bob@example.com", Password: "123456"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user = %v", err)
	}
	if _, err := app.LogIn(ctx, LogInRequest{Email: "bob", Password: "123456"}); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("invalid email = %v", err)
	}

	sess, err := app.LogIn(ctx, LogInRequest{Email: "ana@example.com", Password: "123456"})
	if err != nil {
		t.Fatal(err)
	}
	if sess.Token == "" || sess.User.Email != "ana@example.com" {
		t.Fatalf("session = %+v", sess)
	}
	// no username set: display name falls back to the email
	if sess.User.DisplayName() != "ana@example.com" {
		t.Fatalf("display name = %q", sess.User.DisplayName())
	}

	repo.disable("ana@example.com")
	if _, err := app.LogIn(ctx, LogInRequest{Email: "ana@example.com", Password: "123456"}); !errors.Is(err, ErrUserDisabled) {
		t.Fatalf("disabled user = %v", err)
	}
	if _, err := app.Authenticate(ctx, sess.Token); !errors.Is(err, ErrUserDisabled) {
		t.Fatalf("Authenticate disabled = %v", err)
	}
}

func TestAuthenticateAndLogOut(t *testing.T) {
	app, _, clock := newTestApp()
	ctx := context.Background()
	_, _ = app.SignUp(ctx, SignUpRequest{Email: "ana@example.com", Password: "123456"})
	sess, err := app.LogIn(ctx, LogInRequest{Email: "ana@example.com", Password: "123456"})
	if err != nil {
		t.Fatal(err)
	}

	user, err := app.Authenticate(ctx, sess.Token)
	if err != nil || user.ID != sess.User.ID {
		t.Fatalf("Authenticate = %+v, %v", user, err)
	}
	if _, err := app.Authenticate(ctx, "nope"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("unknown token = %v", err)
	}

	if err := app.LogOut(ctx, sess.Token); err != nil {
		t.Fatal(err)
	}
	if _, err := app.Authenticate(ctx, sess.Token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("after logout = %v", err)
	}

	sess, _ = app.LogIn(ctx, LogInRequest{Email: "ana@example.com", Password: "123456"})
	clock.Advance(DefaultSessionTTL + time.Second)
	if _, err := app.Authenticate(ctx, sess.Token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expired token = %v", err)
	}
}

func TestUpdatePreferences(t *testing.T) {
	app, _, _ := newTestApp()
	ctx := context.Background()
	user, _ := app.SignUp(ctx, SignUpRequest{Email: "ana@example.com", Password: "123456"})

	if _, err := app.UpdatePreferences(ctx, user.ID, UpdatePreferencesRequest{Color: "mauve-ish"}); !errors.Is(err, ErrInvalidColor) {
		t.Fatalf("err = %v", err)
	}
	updated, err := app.UpdatePreferences(ctx, user.ID, UpdatePreferencesRequest{Color: "#123456"})
	if err != nil {
		t.Fatal(err)
	}
	if updated.DecodePreferences().Color != "#123456" {
		t.Fatalf("preferences = %s", updated.Preferences)
	}
}

func TestErrorCodesAndMessages(t *testing.T) {
	tests := []struct {
		err  error
		code string
		msg  string
	}{
		{ErrEmailInUse, "auth/email-already-in-use", "That email is already in use. Try logging in or use a different email."},
		{ErrInvalidEmail, "auth/invalid-email", "Please enter a valid email address."},
		{ErrWeakPassword, "auth/weak-password", "Password should be at least 6 characters."},
		{ErrInvalidCredentials, "auth/invalid-credential", "Invalid email or password. Please try again."},
		{ErrUserDisabled, "auth/user-disabled", "Your account has been disabled."},
		{errors.New("boom"), "internal", "Something went wrong. Please try again."},
	}
	for _, tt := range tests {
		if got := ErrorCode(tt.err); got != tt.code {
			t.Errorf("ErrorCode(%v) = %q, want %q", tt.err, got, tt.code)
		}
		if got := ErrorMessage(tt.err); got != tt.msg {
			t.Errorf("ErrorMessage(%v) = %q, want %q", tt.err, got, tt.msg)
		}
	}
}

func TestLogInUnknownEmailStillComparesHash(t *testing.T) {
	app, _, _ := newTestApp()
	ctx := context.Background()
	if _, err := app.SignUp(ctx, SignUpRequest{Email: "ana@example.com", Password: "123456"}); err != nil {
		t.Fatal(err)
	}

	var compared int
	realCompare := app.compare
	app.compare = func(hash, password []byte) error {
		compared++
		return realCompare(hash, password)
	}

	if _, err := app.LogIn(ctx, LogInRequest{Email: "nobody@example.com", Password: "123456"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("LogIn unknown = %v, want ErrInvalidCredentials", err)
	}
	if compared != 1 {
		t.Fatalf("unknown email compared %d hashes, want 1", compared)
	}

	if _, err := app.LogIn(ctx, LogInRequest{Email: "ana@example.com", Password: "wrong-password"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("LogIn wrong password = %v, want ErrInvalidCredentials", err)
	}
	if compared != 2 {
		t.Fatalf("wrong password compared %d hashes in total, want 2", compared)
	}
}
