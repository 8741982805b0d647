// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

// Package validation provides struct validation using go-playground/validator v10.
//
// The package wraps a thread-safe singleton validator with the custom tags
// used by the tweet ingestion pipeline and translates field errors into
// readable messages.
//
// # Custom Tags
//
//   - username: only ASCII letters, digits, underscore and hyphen
//   - safecontent: rejects content matching the SQL injection denylist
//     (a quote followed by a terminator or comment marker, or the
//     UNION/DROP ALL|TABLE|DATABASE keyword pairs, case-insensitive)
//
// # Usage
//
//	type userInput struct {
//	    Username string `json:"username" validate:"required,min=3,max=50,username"`
//	}
//
//	if verr := validation.ValidateStruct(&in); verr != nil {
//	    first := verr.First()
//	    log.Printf("%s failed %s", first.Field(), first.Tag())
//	}
//
// Field names reported in errors follow the struct's json tag when it has one.
//
// # Thread Safety
//
// GetValidator and ValidateStruct are safe for concurrent use. The validator
// caches struct metadata after the first validation of each type.
package validation
