//go:build !wasm
// +build !wasm

package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	ab "github.com/panyam/addrbook"
)

// JSONMap is a helper type for storing JSON maps in GORM
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, m)
}

// ContactList is a helper type for storing the address book as a JSON column
type ContactList []ab.Contact

func (l ContactList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]ab.Contact{})
	}
	return json.Marshal(l)
}

func (l *ContactList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// UserModel is the GORM model for users
type UserModel struct {
	ID           string      `gorm:"primaryKey;size:64"`
	Username     string      `gorm:"size:64;uniqueIndex"`
	Email        string      `gorm:"size:255"`
	PasswordHash string      `gorm:"size:128"`
	Provider     string      `gorm:"size:32;index:idx_provider_identity"`
	ProviderId   string      `gorm:"size:255;index:idx_provider_identity"`
	Profile      JSONMap     `gorm:"type:jsonb"`
	AddressBook  ContactList `gorm:"type:jsonb"`
	CreatedAt    time.Time   `gorm:"autoCreateTime"`
	UpdatedAt    time.Time   `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string {
	return "users"
}

func (m *UserModel) ToUser() *ab.User {
	return &ab.User{
		Id:           m.ID,
		Username:     m.Username,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Provider:     m.Provider,
		ProviderId:   m.ProviderId,
		Profile:      m.Profile,
		AddressBook:  m.AddressBook,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func UserToModel(u *ab.User) *UserModel {
	return &UserModel{
		ID:           u.Id,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Provider:     u.Provider,
		ProviderId:   u.ProviderId,
		Profile:      JSONMap(u.Profile),
		AddressBook:  ContactList(u.AddressBook),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
