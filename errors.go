package addrbook

import (
	"errors"
	"net/http"
)

// Sentinel errors for the core auth and contact flows. Callers match with
// errors.Is; user-visible behavior is always a redirect, never an error page.
var (
	ErrDuplicateAccount   = errors.New("account already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUpstreamAuth       = errors.New("upstream provider rejected authentication")
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrPersistence        = errors.New("persistence failure")
	ErrSession            = errors.New("session failure")
	ErrUserNotFound       = errors.New("user not found")
	ErrContactNotFound    = errors.New("contact not found")
)

// Error codes for form-level auth errors
const (
	ErrCodeInvalidCreds    = "invalid_credentials"
	ErrCodeMissingField    = "missing_field"
	ErrCodeInvalidEmail    = "invalid_email"
	ErrCodeInvalidUsername = "invalid_username"
	ErrCodeWeakPassword    = "weak_password"
	ErrCodeUsernameTaken   = "username_taken"
)

// AuthError carries a machine-readable code and the offending form field so
// error handlers can decide how to respond (redirect, JSON, etc.)
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *AuthError) Error() string {
	return e.Message
}

func NewAuthError(code, message, field string) *AuthError {
	return &AuthError{Code: code, Message: message, Field: field}
}

// AuthErrorHandler handles an auth error. Returning true means the error was
// fully handled (e.g. a redirect was written) and no default response should
// be sent.
type AuthErrorHandler func(err *AuthError, w http.ResponseWriter, r *http.Request) bool

// RedirectingErrorHandler returns an AuthErrorHandler that sends the client
// back to the given form URL. Error details stay in the server logs.
func RedirectingErrorHandler(url string) AuthErrorHandler {
	return func(err *AuthError, w http.ResponseWriter, r *http.Request) bool {
		http.Redirect(w, r, url, http.StatusFound)
		return true
	}
}
