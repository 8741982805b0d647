// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package auth

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is used by HashPassword.
const bcryptCost = 12

// Account is a configured login: the admin, or the optional read-only
// viewer.
type Account struct {
	username     []byte
	passwordHash []byte
	role         string
}

// NewAccount checks that hash is a bcrypt hash before accepting it.
func NewAccount(username, hash, role string) (*Account, error) {
	if username == "" {
		return nil, fmt.Errorf("%s username is required", role)
	}
	if role != RoleAdmin && role != RoleViewer {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("%s password hash: %w", role, err)
	}
	return &Account{
		username:     []byte(username),
		passwordHash: []byte(hash),
		role:         role,
	}, nil
}

// Role returns the role issued to this account's tokens.
func (a *Account) Role() string {
	return a.role
}

// Verify reports whether the credentials match. The password is always
// compared so a wrong username costs the same as a wrong password.
func (a *Account) Verify(username, password string) bool {
	userMatch := subtle.ConstantTimeCompare(a.username, []byte(username)) == 1
	passMatch := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)) == nil
	return userMatch && passMatch
}

// HashPassword returns a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
