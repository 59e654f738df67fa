package users

import "errors"

var (
	ErrMissingFields      = errors.New("email and password are required")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("password too short")
	ErrEmailInUse         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserDisabled       = errors.New("user disabled")
	ErrUserNotFound       = errors.New("user not found")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidColor       = errors.New("invalid color")
)

// MinPasswordLength is the shortest password SignUp accepts
const MinPasswordLength = 6

// authError pairs an error code with the message shown to the user
type authError struct {
	code    string
	message string
}

var authErrors = map[error]authError{
	ErrMissingFields:      {"auth/missing-fields", "Please enter both email and password."},
	ErrInvalidEmail:       {"auth/invalid-email", "Please enter a valid email address."},
	ErrWeakPassword:       {"auth/weak-password", "Password should be at least 6 characters."},
	ErrEmailInUse:         {"auth/email-already-in-use", "That email is already in use. Try logging in or use a different email."},
	ErrInvalidCredentials: {"auth/invalid-credential", "Invalid email or password. Please try again."},
	ErrUserDisabled:       {"auth/user-disabled", "Your account has been disabled."},
	ErrUserNotFound:       {"auth/user-not-found", "No account exists for this user."},
	ErrUnauthenticated:    {"auth/unauthenticated", "Please log in again."},
	ErrInvalidColor:       {"user/invalid-color", "Please pick a colour like #ff8800."},
}

// ErrorCode returns the wire code for err, or "internal" for errors that are
// not part of the auth vocabulary
func ErrorCode(err error) string {
	for target, ae := range authErrors {
		if errors.Is(err, target) {
			return ae.code
		}
	}
	return "internal"
}

// ErrorMessage returns the user-facing message for err
func ErrorMessage(err error) string {
	for target, ae := range authErrors {
		if errors.Is(err, target) {
			return ae.message
		}
	}
	return "Something went wrong. Please try again."
}
