// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package models

import "testing"

func TestDeadLetterFilter_EffectiveLimit(t *testing.T) {
	tests := []struct {
		limit int
		want  int
	}{
		{0, DefaultDeadLetterLimit},
		{-5, DefaultDeadLetterLimit},
		{1, 1},
		{MaxDeadLetterLimit, MaxDeadLetterLimit},
		{MaxDeadLetterLimit + 1, MaxDeadLetterLimit},
	}
	for _, tt := range tests {
		if got := (DeadLetterFilter{Limit: tt.limit}).EffectiveLimit(); got != tt.want {
			t.Errorf("EffectiveLimit(%d) = %d, want %d", tt.limit, got, tt.want)
		}
	}
}
