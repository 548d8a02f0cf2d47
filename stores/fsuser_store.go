package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	ab "github.com/panyam/addrbook"
)

// FSUserStore stores users as JSON files, one per user. It is meant for
// development and tests; production deployments use the mongo or gorm
// backends. A single mutex serializes all mutations so the per-element
// contact operations are atomic with respect to each other.
type FSUserStore struct {
	StoragePath string

	mu sync.Mutex
}

func NewFSUserStore(storagePath string) *FSUserStore {
	return &FSUserStore{StoragePath: storagePath}
}

func (s *FSUserStore) getUserPath(userId string) string {
	return filepath.Join(s.StoragePath, "users", userId+".json")
}

func (s *FSUserStore) CreateUser(ctx context.Context, user *ab.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, _ := s.findUser(func(u *ab.User) bool { return u.Username == user.Username }); existing != nil {
		return fmt.Errorf("%w: username %s", ab.ErrDuplicateAccount, user.Username)
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.UpdatedAt = time.Now().UTC()
	return s.writeUser(user)
}

func (s *FSUserStore) GetUserById(ctx context.Context, userId string) (*ab.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readUser(userId)
}

func (s *FSUserStore) GetUserByUsername(ctx context.Context, username string) (*ab.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findUser(func(u *ab.User) bool { return u.Username == username })
}

func (s *FSUserStore) GetUserByProvider(ctx context.Context, provider, providerId string) (*ab.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findUser(func(u *ab.User) bool {
		return u.Provider == provider && u.ProviderId == providerId
	})
}

func (s *FSUserStore) SaveUser(ctx context.Context, user *ab.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.readUser(user.Id); err != nil {
		return err
	}
	user.UpdatedAt = time.Now().UTC()
	return s.writeUser(user)
}

func (s *FSUserStore) AddContact(ctx context.Context, userId string, contact ab.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.readUser(userId)
	if err != nil {
		return err
	}
	user.AddressBook = append(user.AddressBook, contact)
	user.UpdatedAt = time.Now().UTC()
	return s.writeUser(user)
}

func (s *FSUserStore) RemoveContactById(ctx context.Context, userId string, contactId string) (int, error) {
	return s.removeContacts(userId, func(c ab.Contact) bool { return c.Id == contactId })
}

func (s *FSUserStore) RemoveContactsByName(ctx context.Context, userId string, name string) (int, error) {
	return s.removeContacts(userId, func(c ab.Contact) bool { return c.Name == name })
}

func (s *FSUserStore) removeContacts(userId string, match func(ab.Contact) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.readUser(userId)
	if err != nil {
		return 0, err
	}
	kept := user.AddressBook[:0:0]
	for _, c := range user.AddressBook {
		if !match(c) {
			kept = append(kept, c)
		}
	}
	removed := len(user.AddressBook) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	user.AddressBook = kept
	user.UpdatedAt = time.Now().UTC()
	return removed, s.writeUser(user)
}

// readUser loads a single user file. The caller must hold the mutex.
func (s *FSUserStore) readUser(userId string) (*ab.User, error) {
	data, err := os.ReadFile(s.getUserPath(userId))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ab.ErrUserNotFound, userId)
		}
		return nil, err
	}
	var user ab.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// findUser scans all user files for the first match. The caller must hold
// the mutex. Linear scans are fine at this store's dev/test scale.
func (s *FSUserStore) findUser(match func(*ab.User) bool) (*ab.User, error) {
	dir := filepath.Join(s.StoragePath, "users")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ab.ErrUserNotFound
		}
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		user, err := s.readUser(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		if match(user) {
			return user, nil
		}
	}
	return nil, ab.ErrUserNotFound
}

func (s *FSUserStore) writeUser(user *ab.User) error {
	path := s.getUserPath(user.Id)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomicFile(path, data)
}
