package addrbook

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StorageTimeout bounds every store call made by the contact service.
const StorageTimeout = 5 * time.Second

// ContactService operates on the address book of a single authenticated
// user. Every method takes the owning user's id; authorization (is this
// request bound to that user?) is the web layer's job.
type ContactService struct {
	Store  UserStore
	Logger *zap.SugaredLogger
}

func NewContactService(store UserStore, logger *zap.SugaredLogger) *ContactService {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &ContactService{Store: store, Logger: logger}
}

// List returns the user's full address book in storage order.
func (s *ContactService) List(ctx context.Context, userId string) ([]Contact, error) {
	ctx, cancel := context.WithTimeout(ctx, StorageTimeout)
	defer cancel()

	user, err := s.Store.GetUserById(ctx, userId)
	if err != nil {
		return nil, err
	}
	return user.AddressBook, nil
}

// ListByGroup returns contacts whose group exactly equals group.
// The match is case-sensitive: "Friends" does not include "friends".
func (s *ContactService) ListByGroup(ctx context.Context, userId string, group string) ([]Contact, error) {
	book, err := s.List(ctx, userId)
	if err != nil {
		return nil, err
	}
	filtered := make([]Contact, 0, len(book))
	for _, c := range book {
		if c.Group == group {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

// Search returns contacts whose name contains query, ignoring case.
func (s *ContactService) Search(ctx context.Context, userId string, query string) ([]Contact, error) {
	book, err := s.List(ctx, userId)
	if err != nil {
		return nil, err
	}
	query = strings.ToLower(query)
	filtered := make([]Contact, 0, len(book))
	for _, c := range book {
		if strings.Contains(strings.ToLower(c.Name), query) {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

// Add assigns the contact a fresh id, defaults a blank group to
// DefaultGroup, and appends it to the user's book. The append is a single
// atomic store operation, not a whole-array rewrite.
func (s *ContactService) Add(ctx context.Context, userId string, contact Contact) (Contact, error) {
	if strings.TrimSpace(contact.Name) == "" {
		return Contact{}, fmt.Errorf("contact name is required")
	}
	if strings.TrimSpace(contact.Group) == "" {
		contact.Group = DefaultGroup
	}
	contact.Id = uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, StorageTimeout)
	defer cancel()

	if err := s.Store.AddContact(ctx, userId, contact); err != nil {
		s.Logger.Errorw("failed to add contact", "user", userId, "err", err)
		return Contact{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return contact, nil
}

// RemoveById removes the single contact with the given id.
func (s *ContactService) RemoveById(ctx context.Context, userId string, contactId string) error {
	ctx, cancel := context.WithTimeout(ctx, StorageTimeout)
	defer cancel()

	removed, err := s.Store.RemoveContactById(ctx, userId, contactId)
	if err != nil {
		s.Logger.Errorw("failed to remove contact", "user", userId, "contact", contactId, "err", err)
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if removed == 0 {
		return ErrContactNotFound
	}
	return nil
}

// RemoveByName removes ALL contacts whose name exactly equals name. Two
// contacts named "Alice" both go.
func (s *ContactService) RemoveByName(ctx context.Context, userId string, name string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, StorageTimeout)
	defer cancel()

	removed, err := s.Store.RemoveContactsByName(ctx, userId, name)
	if err != nil {
		s.Logger.Errorw("failed to remove contacts", "user", userId, "name", name, "err", err)
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return removed, nil
}

// Groups returns the distinct groups present in the user's book, in first
// appearance order. An empty book yields ["Default"] so that pages always
// have a group to offer.
func (s *ContactService) Groups(ctx context.Context, userId string) ([]string, error) {
	book, err := s.List(ctx, userId)
	if err != nil {
		return nil, err
	}
	if len(book) == 0 {
		return []string{DefaultGroup}, nil
	}
	seen := make(map[string]bool, len(book))
	groups := make([]string, 0, len(book))
	for _, c := range book {
		if !seen[c.Group] {
			seen[c.Group] = true
			groups = append(groups, c.Group)
		}
	}
	return groups, nil
}
