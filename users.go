package addrbook

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Provider names for the supported authentication channels
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
	ProviderGithub = "github"
)

// DefaultGroup is the group a contact lands in when the form leaves it blank.
const DefaultGroup = "Default"

// Contact is a single address book entry. It is a value object owned by
// exactly one user; the Id is generated at creation time and is the only
// stable handle for deletion. Name is a display and search field and is not
// unique within a book.
type Contact struct {
	Id              string `json:"id" bson:"id"`
	Name            string `json:"name" bson:"name"`
	Group           string `json:"group" bson:"group"`
	CompanyOrSchool string `json:"company_or_school,omitempty" bson:"company_or_school,omitempty"`
	Phone           string `json:"phone,omitempty" bson:"phone,omitempty"`
	Email           string `json:"email,omitempty" bson:"email,omitempty"`
	Address         string `json:"address,omitempty" bson:"address,omitempty"`
}

// User is an account plus the address book it owns.
//
// PasswordHash is a bcrypt hash and is empty for federated accounts.
// Profile holds the raw provider profile snapshot as an opaque blob - its
// shape varies by provider and nothing beyond ProviderId and Email is read
// from it.
type User struct {
	Id           string         `json:"id" bson:"_id"`
	Username     string         `json:"username" bson:"username"`
	Email        string         `json:"email" bson:"email"`
	PasswordHash string         `json:"password_hash,omitempty" bson:"password_hash,omitempty"`
	Provider     string         `json:"provider" bson:"provider"`
	ProviderId   string         `json:"provider_id,omitempty" bson:"provider_id,omitempty"`
	Profile      map[string]any `json:"profile,omitempty" bson:"profile,omitempty"`
	AddressBook  []Contact      `json:"address_book" bson:"address_book"`
	CreatedAt    time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" bson:"updated_at"`
}

// UserStore manages user accounts and their embedded address books.
//
// Contact mutations are per-element operations rather than whole-array
// writes so that two concurrent requests from the same user cannot clobber
// each other's changes. Implementations must make AddContact and the Remove
// methods atomic with respect to each other.
type UserStore interface {
	// CreateUser persists a new user. Returns ErrDuplicateAccount if the
	// username is already taken.
	CreateUser(ctx context.Context, user *User) error

	// GetUserById retrieves a user by their opaque ID.
	// Returns ErrUserNotFound if no such user exists.
	GetUserById(ctx context.Context, userId string) (*User, error)

	// GetUserByUsername retrieves a user by their unique login handle.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// GetUserByProvider retrieves a federated user by (provider, providerId).
	GetUserByProvider(ctx context.Context, provider, providerId string) (*User, error)

	// SaveUser updates an existing user record (profile fields, not the book).
	SaveUser(ctx context.Context, user *User) error

	// AddContact appends a contact to the user's address book.
	AddContact(ctx context.Context, userId string, contact Contact) error

	// RemoveContactById removes the contact with the given id, returning the
	// number of entries removed (0 or 1).
	RemoveContactById(ctx context.Context, userId string, contactId string) (int, error)

	// RemoveContactsByName removes ALL contacts whose name exactly equals
	// name, returning the number of entries removed. Name collisions are
	// expected, not an error.
	RemoveContactsByName(ctx context.Context, userId string, name string) (int, error)
}

// NewUserId generates a cryptographically secure opaque user ID
func NewUserId() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
