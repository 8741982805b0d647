// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package tweets

import (
	"errors"
	"fmt"
)

// Kind identifies which stage of tweet creation failed.
type Kind int

const (
	// KindUnknown is any error not produced by this package.
	KindUnknown Kind = iota
	// KindTweetValidation covers missing fields and content rule violations.
	KindTweetValidation
	// KindUserValidation covers a resolved user whose id or username is invalid.
	KindUserValidation
	// KindUserNotFound means no user matches the requested username.
	KindUserNotFound
	// KindCreateTweet means the insert produced no record.
	KindCreateTweet
)

// String returns the kind's display name, as used in dead-letter records.
func (k Kind) String() string {
	switch k {
	case KindTweetValidation:
		return "CreateTweetValidationError"
	case KindUserValidation:
		return "CreateUserValidationError"
	case KindUserNotFound:
		return "UserNotFoundError"
	case KindCreateTweet:
		return "CreateTweetError"
	default:
		return "Error"
	}
}

// Label returns a short lowercase name suitable for metric labels.
func (k Kind) Label() string {
	switch k {
	case KindTweetValidation:
		return "tweet_validation"
	case KindUserValidation:
		return "user_validation"
	case KindUserNotFound:
		return "user_not_found"
	case KindCreateTweet:
		return "create_tweet"
	default:
		return "unknown"
	}
}

// Error is a classified tweet creation failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// NewError creates a classified error with no underlying cause.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError creates a classified error around an underlying cause.
func WrapError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrUserNotFound) works
// regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// Sentinels for errors.Is checks by kind.
var (
	ErrTweetValidation = &Error{Kind: KindTweetValidation}
	ErrUserValidation  = &Error{Kind: KindUserValidation}
	ErrUserNotFound    = &Error{Kind: KindUserNotFound}
	ErrCreateTweet     = &Error{Kind: KindCreateTweet}
)

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Classify renders err as the display string stored in dead-letter records.
//
//   - classified errors: "<KindName> - <message>"
//   - any other error: "Error - <message>"
//   - nil (a recovered non-error panic value): "Unknown error"
func Classify(err error) string {
	if err == nil {
		return "Unknown error"
	}

	var e *Error
	if !errors.As(err, &e) {
		return "Error - " + err.Error()
	}

	switch e.Kind {
	case KindTweetValidation, KindUserValidation, KindUserNotFound, KindCreateTweet:
		return e.Kind.String() + " - " + e.Error()
	default:
		return "Error - " + e.Error()
	}
}
