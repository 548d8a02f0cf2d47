package addrbook

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Credentials represents the username/email/password triple submitted on the
// login and register forms.
type Credentials struct {
	Username string
	Email    string
	Password string
}

// SignupValidator validates credentials during registration
type SignupValidator func(creds *Credentials) *AuthError

// CredentialsValidator validates credentials during login and returns the user
type CredentialsValidator func(ctx context.Context, creds *Credentials) (*User, error)

// CreateUserFunc creates a new local user with the given credentials
type CreateUserFunc func(ctx context.Context, creds *Credentials) (*User, error)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// DefaultSignupValidator provides sensible default validation for signup
var DefaultSignupValidator SignupValidator = func(creds *Credentials) *AuthError {
	if creds.Username == "" {
		return NewAuthError(ErrCodeMissingField, "Username is required", "username")
	}
	if !usernameRegex.MatchString(creds.Username) {
		return NewAuthError(ErrCodeInvalidUsername, "Username must be 3-20 characters and contain only letters, numbers, underscores, and hyphens", "username")
	}
	if creds.Email == "" {
		return NewAuthError(ErrCodeMissingField, "Email is required", "email")
	}
	if !emailRegex.MatchString(creds.Email) {
		return NewAuthError(ErrCodeInvalidEmail, "Invalid email format", "email")
	}
	if len(creds.Password) < 8 {
		return NewAuthError(ErrCodeWeakPassword, "Password must be at least 8 characters", "password")
	}
	return nil
}

// NewCreateUserFunc creates a CreateUserFunc backed by the given store.
// The password is hashed with bcrypt before anything is persisted; the raw
// password never reaches the store.
func NewCreateUserFunc(store UserStore) CreateUserFunc {
	return func(ctx context.Context, creds *Credentials) (*User, error) {
		passwordHash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}

		user := &User{
			Id:           NewUserId(),
			Username:     creds.Username,
			Email:        creds.Email,
			PasswordHash: string(passwordHash),
			Provider:     ProviderLocal,
			AddressBook:  []Contact{},
			CreatedAt:    time.Now().UTC(),
			UpdatedAt:    time.Now().UTC(),
		}
		if err := store.CreateUser(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	}
}

// NewCredentialsValidator creates a CredentialsValidator backed by the given
// store. The account is looked up by username alone; the password is then
// verified against the stored hash with bcrypt's constant-time comparison.
// The stored secret is never part of the lookup query.
func NewCredentialsValidator(store UserStore) CredentialsValidator {
	return func(ctx context.Context, creds *Credentials) (*User, error) {
		user, err := store.GetUserByUsername(ctx, creds.Username)
		if err != nil {
			return nil, ErrInvalidCredentials
		}
		// Federated accounts have no password to verify against
		if user.PasswordHash == "" {
			return nil, ErrInvalidCredentials
		}
		if creds.Email != "" && creds.Email != user.Email {
			return nil, ErrInvalidCredentials
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
			return nil, ErrInvalidCredentials
		}
		return user, nil
	}
}
