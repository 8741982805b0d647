// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

// Package query provides SQL query building utilities for the database package.
//
// The WhereBuilder assembles parameterized WHERE clauses for both stores. The
// bind marker style is chosen at construction: Question for DuckDB through
// database/sql, Dollar for Postgres through pgx.
//
//	wb := query.NewWhereBuilder(query.Question)
//	wb.AddSince("failed_at", since)
//	wb.AddPrefix("error", "UserNotFoundError - ")
//	whereClause, args := wb.Build()
//	// Result: "failed_at >= ? AND error LIKE ? ESCAPE '\'"
//	// Args: [since, "UserNotFoundError - %"]
//
// Callers append further markers with Next, which numbers them after the
// arguments already bound:
//
//	where, args := wb.BuildWithPrefix()
//	q := "SELECT ... " + where + " ORDER BY failed_at DESC LIMIT " + wb.Next()
//	args = append(args, limit)
//
// # Thread Safety
//
// WhereBuilder is not safe for concurrent use. Create one per query.
package query
