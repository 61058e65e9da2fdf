//go:build !wasm
// +build !wasm

// Package gorm provides GORM-based implementations of the PolyAuth store
// interfaces. It supports any database that GORM supports (PostgreSQL,
// MySQL, SQLite, etc.) and is suitable for deployments requiring
// relational storage.
//
// # Database Schema
//
// The package auto-migrates the following tables:
//   - profiles: Identity profiles keyed by provider and user id
//   - profile_links: Additional identities attached to a primary profile
//   - verification_tokens: Sign-up activation and password reset tokens
//   - authenticators: Server-side login sessions
//
// # Usage
//
//	db, _ := gorm.Open(postgres.Open(dsn), &gorm.Config{})
//	if err := gormstore.AutoMigrate(db); err != nil { ... }
//	users := gormstore.NewUserStore(db)
//	auths := gormstore.NewAuthenticatorStore(db)
package gorm
