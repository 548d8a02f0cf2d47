//go:build !wasm
// +build !wasm

package gorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	ab "github.com/panyam/addrbook"
)

// AutoMigrate runs database migrations for the addrbook tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserModel{})
}

// UserStore implements ab.UserStore using GORM. The address book lives in a
// JSON column, so relational backends cannot do a per-element push the way
// Mongo can; instead every contact mutation runs in a transaction holding a
// row lock, which gives the same no-lost-update guarantee.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) CreateUser(ctx context.Context, user *ab.User) error {
	model := UserToModel(user)
	err := s.db.WithContext(ctx).Create(model).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: username %s", ab.ErrDuplicateAccount, user.Username)
	}
	return err
}

func (s *UserStore) GetUserById(ctx context.Context, userId string) (*ab.User, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", userId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ab.ErrUserNotFound, userId)
		}
		return nil, err
	}
	return model.ToUser(), nil
}

func (s *UserStore) GetUserByUsername(ctx context.Context, username string) (*ab.User, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).First(&model, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ab.ErrUserNotFound
		}
		return nil, err
	}
	return model.ToUser(), nil
}

func (s *UserStore) GetUserByProvider(ctx context.Context, provider, providerId string) (*ab.User, error) {
	var model UserModel
	err := s.db.WithContext(ctx).
		First(&model, "provider = ? AND provider_id = ?", provider, providerId).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ab.ErrUserNotFound
		}
		return nil, err
	}
	return model.ToUser(), nil
}

func (s *UserStore) SaveUser(ctx context.Context, user *ab.User) error {
	user.UpdatedAt = time.Now().UTC()
	return s.db.WithContext(ctx).Model(&UserModel{}).
		Where("id = ?", user.Id).
		Updates(map[string]any{
			"username": user.Username,
			"email":    user.Email,
			"provider": user.Provider,
			"profile":  JSONMap(user.Profile),
		}).Error
}

func (s *UserStore) AddContact(ctx context.Context, userId string, contact ab.Contact) error {
	return s.mutateBook(ctx, userId, func(book ContactList) (ContactList, int) {
		return append(book, contact), 1
	})
}

func (s *UserStore) RemoveContactById(ctx context.Context, userId string, contactId string) (int, error) {
	var removed int
	err := s.mutateBook(ctx, userId, func(book ContactList) (ContactList, int) {
		kept := book[:0:0]
		for _, c := range book {
			if c.Id != contactId {
				kept = append(kept, c)
			}
		}
		removed = len(book) - len(kept)
		return kept, removed
	})
	return removed, err
}

func (s *UserStore) RemoveContactsByName(ctx context.Context, userId string, name string) (int, error) {
	var removed int
	err := s.mutateBook(ctx, userId, func(book ContactList) (ContactList, int) {
		kept := book[:0:0]
		for _, c := range book {
			if c.Name != name {
				kept = append(kept, c)
			}
		}
		removed = len(book) - len(kept)
		return kept, removed
	})
	return removed, err
}

// mutateBook rewrites the address book column inside a row-locked
// transaction so concurrent mutations serialize instead of clobbering.
func (s *UserStore) mutateBook(ctx context.Context, userId string, mutate func(ContactList) (ContactList, int)) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model UserModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&model, "id = ?", userId).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ab.ErrUserNotFound, userId)
			}
			return err
		}

		book, changed := mutate(model.AddressBook)
		if changed == 0 {
			return nil
		}
		return tx.Model(&model).Updates(map[string]any{
			"address_book": book,
			"updated_at":   time.Now().UTC(),
		}).Error
	})
}
