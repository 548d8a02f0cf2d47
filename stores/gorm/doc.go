//go:build !wasm
// +build !wasm

// Package gorm provides a GORM-based implementation of the addrbook user
// store. It supports any database that GORM supports (PostgreSQL, MySQL,
// SQLite, etc.) and is an alternative to the Mongo backend for deployments
// that already run a relational database.
//
// # Database Schema
//
// The package auto-migrates a single table:
//   - users: accounts with the address book embedded as a JSON column
//
// # Usage
//
//	db, _ := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
//	gormstore.AutoMigrate(db)
//	userStore := gormstore.NewUserStore(db)
//
// TranslateError is required so username collisions surface as
// gorm.ErrDuplicatedKey and map onto addrbook.ErrDuplicateAccount.
package gorm
