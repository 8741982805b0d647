// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package tweets

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"tweet validation", NewError(KindTweetValidation, "Content is required"), "CreateTweetValidationError - Content is required"},
		{"user validation", NewError(KindUserValidation, "Id is required"), "CreateUserValidationError - Id is required"},
		{"user not found", NewError(KindUserNotFound, "User not found"), "UserNotFoundError - User not found"},
		{"create tweet", NewError(KindCreateTweet, "Tweet not created"), "CreateTweetError - Tweet not created"},
		{"wrapped kind", fmt.Errorf("store: %w", NewError(KindUserNotFound, "User not found")), "UserNotFoundError - User not found"},
		{"generic error", errors.New("connection refused"), "Error - connection refused"},
		{"unknown kind", NewError(KindUnknown, "odd"), "Error - odd"},
		{"nil", nil, "Unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{NewError(KindTweetValidation, "x"), KindTweetValidation},
		{fmt.Errorf("wrap: %w", NewError(KindCreateTweet, "x")), KindCreateTweet},
		{errors.New("plain"), KindUnknown},
		{nil, KindUnknown},
	}

	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %v, expected %v", tt.err, got, tt.want)
		}
	}
}

func TestError_IsAndUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapError(KindCreateTweet, "insert failed", cause)

	if !errors.Is(err, ErrCreateTweet) {
		t.Error("expected errors.Is to match ErrCreateTweet")
	}
	if errors.Is(err, ErrUserNotFound) {
		t.Error("expected errors.Is not to match ErrUserNotFound")
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to reach the cause")
	}
	if err.Error() != "insert failed: disk full" {
		t.Errorf("expected 'insert failed: disk full', got %q", err.Error())
	}
}

func TestKind_Label(t *testing.T) {
	kinds := []Kind{KindUnknown, KindTweetValidation, KindUserValidation, KindUserNotFound, KindCreateTweet}
	seen := make(map[string]bool)
	for _, k := range kinds {
		label := k.Label()
		if label == "" {
			t.Errorf("expected non-empty label for %v", k)
		}
		if seen[label] {
			t.Errorf("duplicate label %q", label)
		}
		seen[label] = true
	}
}
