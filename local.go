package addrbook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// HandleUserFunc is called after a successful authentication with the now
// known user. token is nil for local auth (no OAuth tokens involved).
type HandleUserFunc func(authtype string, provider string, token *oauth2.Token, user *User, w http.ResponseWriter, r *http.Request)

// LocalAuth allows username/password based authentication
type LocalAuth struct {
	// Validates credentials during login
	ValidateCredentials CredentialsValidator

	// Validates credentials during signup
	ValidateSignup SignupValidator

	// Creates a new user (for signup)
	CreateUser CreateUserFunc

	// Provider name (defaults to "local")
	Provider string

	// Form field names for the login form. The register form always uses
	// "username", "email" and "password".
	UsernameField string
	PasswordField string
	EmailField    string

	// Handler called after successful authentication
	HandleUser HandleUserFunc

	// OnSignupError is called when signup fails. If nil, returns JSON error.
	OnSignupError AuthErrorHandler

	// OnLoginError is called when login fails. If nil, returns JSON error.
	OnLoginError AuthErrorHandler

	Logger *zap.SugaredLogger
}

// HandleLogin handles login requests
func (a *LocalAuth) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if a.ValidateCredentials == nil {
		http.Error(w, `{"error": "Login not configured"}`, http.StatusInternalServerError)
		return
	}

	creds, err := a.parseLoginForm(r)
	if err != nil {
		a.handleLoginError(NewAuthError(ErrCodeMissingField, err.Error(), "username"), w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), StorageTimeout)
	defer cancel()

	user, err := a.ValidateCredentials(ctx, creds)
	if err != nil || user == nil {
		if err != nil && !errors.Is(err, ErrInvalidCredentials) {
			a.logger().Errorw("error validating user", "err", err)
		}
		// Not-found and wrong-password are deliberately indistinguishable
		a.handleLoginError(NewAuthError(ErrCodeInvalidCreds, "Invalid credentials", "password"), w, r)
		return
	}

	a.HandleUser("local", a.getProvider(), nil, user, w, r)
}

// HandleSignup processes user registration. A successful registration
// immediately authenticates the new user.
func (a *LocalAuth) HandleSignup(w http.ResponseWriter, r *http.Request) {
	if a.CreateUser == nil {
		http.Error(w, `{"error": "Signup not configured"}`, http.StatusInternalServerError)
		return
	}

	creds, parseErr := a.parseSignupForm(r)
	if parseErr != nil {
		a.handleSignupError(parseErr, w, r)
		return
	}

	validator := a.ValidateSignup
	if validator == nil {
		validator = DefaultSignupValidator
	}
	if authErr := validator(creds); authErr != nil {
		a.handleSignupError(authErr, w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), StorageTimeout)
	defer cancel()

	user, err := a.CreateUser(ctx, creds)
	if err != nil {
		a.logger().Errorw("error creating user", "username", creds.Username, "err", err)
		if errors.Is(err, ErrDuplicateAccount) {
			a.handleSignupError(NewAuthError(ErrCodeUsernameTaken, "Username is already taken", "username"), w, r)
		} else {
			a.handleSignupError(NewAuthError("create_failed", fmt.Sprintf("Failed to create user: %s", err.Error()), ""), w, r)
		}
		return
	}

	a.HandleUser("local", a.getProvider(), nil, user, w, r)
}

func (a *LocalAuth) parseLoginForm(r *http.Request) (*Credentials, error) {
	contentType := r.Header.Get("Content-Type")
	usernameField := a.getUsernameField()
	passwordField := a.getPasswordField()
	emailField := a.getEmailField()

	var username, password, email string
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("error parsing form")
		}
		username = r.FormValue(usernameField)
		password = r.FormValue(passwordField)
		email = r.FormValue(emailField)
	} else {
		var data map[string]any
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil || data == nil {
			return nil, fmt.Errorf("invalid post body")
		}
		if u, ok := data[usernameField].(string); ok {
			username = u
		}
		if p, ok := data[passwordField].(string); ok {
			password = p
		}
		if e, ok := data[emailField].(string); ok {
			email = e
		}
	}

	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password required")
	}

	return &Credentials{Username: username, Email: email, Password: password}, nil
}

// parseSignupForm parses signup form data without validation
func (a *LocalAuth) parseSignupForm(r *http.Request) (*Credentials, *AuthError) {
	contentType := r.Header.Get("Content-Type")

	var username, email, password string
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseForm(); err != nil {
			return nil, NewAuthError("parse_error", "Error parsing form", "")
		}
		username = r.FormValue("username")
		email = r.FormValue("email")
		password = r.FormValue("password")
	} else {
		var data map[string]any
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil || data == nil {
			return nil, NewAuthError("parse_error", "Invalid post body", "")
		}
		if u, ok := data["username"].(string); ok {
			username = u
		}
		if e, ok := data["email"].(string); ok {
			email = e
		}
		if p, ok := data["password"].(string); ok {
			password = p
		}
	}

	return &Credentials{Username: username, Email: email, Password: password}, nil
}

func (a *LocalAuth) getProvider() string {
	if a.Provider != "" {
		return a.Provider
	}
	return ProviderLocal
}

func (a *LocalAuth) getUsernameField() string {
	if a.UsernameField != "" {
		return a.UsernameField
	}
	return "username"
}

func (a *LocalAuth) getPasswordField() string {
	if a.PasswordField != "" {
		return a.PasswordField
	}
	return "password"
}

func (a *LocalAuth) getEmailField() string {
	if a.EmailField != "" {
		return a.EmailField
	}
	return "email"
}

func (a *LocalAuth) logger() *zap.SugaredLogger {
	if a.Logger == nil {
		a.Logger = zap.NewNop().Sugar()
	}
	return a.Logger
}

// handleLoginError handles login errors using the configured handler or default JSON
func (a *LocalAuth) handleLoginError(err *AuthError, w http.ResponseWriter, r *http.Request) {
	if a.OnLoginError != nil && a.OnLoginError(err, w, r) {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	// Use 400 for validation errors, 401 for invalid credentials
	statusCode := http.StatusUnauthorized
	if err.Code == ErrCodeMissingField {
		statusCode = http.StatusBadRequest
	}
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]any{
		"error": err.Message,
		"code":  err.Code,
		"field": err.Field,
	})
}

// handleSignupError handles signup errors using the configured handler or default JSON
func (a *LocalAuth) handleSignupError(err *AuthError, w http.ResponseWriter, r *http.Request) {
	if a.OnSignupError != nil && a.OnSignupError(err, w, r) {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]any{
		"error": err.Message,
		"code":  err.Code,
		"field": err.Field,
	})
}
