// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

// Package query provides SQL query building utilities shared by the DuckDB
// and Postgres stores.
package query

import (
	"strconv"
	"strings"
	"time"
)

// Placeholder renders the bind marker for the n-th argument (1-based).
type Placeholder func(n int) string

// Question renders "?" markers (DuckDB, database/sql drivers).
func Question(int) string { return "?" }

// Dollar renders "$n" markers (Postgres, pgx).
func Dollar(n int) string { return "$" + strconv.Itoa(n) }

// WhereBuilder constructs SQL WHERE clauses with parameterized arguments.
//
// Example usage:
//
//	wb := query.NewWhereBuilder(query.Dollar)
//	wb.AddSince("failed_at", since)
//	wb.AddPrefix("error", "UserNotFoundError - ")
//	whereClause, args := wb.BuildWithPrefix()
//	// WHERE failed_at >= $1 AND error LIKE $2
type WhereBuilder struct {
	placeholder Placeholder
	clauses     []string
	args        []interface{}
}

// NewWhereBuilder creates a new WhereBuilder using the given bind marker style.
// A nil placeholder defaults to Question.
func NewWhereBuilder(placeholder Placeholder) *WhereBuilder {
	if placeholder == nil {
		placeholder = Question
	}
	return &WhereBuilder{
		placeholder: placeholder,
		clauses:     []string{},
		args:        []interface{}{},
	}
}

// Next returns the marker for the next argument to be added.
func (wb *WhereBuilder) Next() string {
	return wb.placeholder(len(wb.args) + 1)
}

// AddCondition adds "column op <marker>" bound to arg.
func (wb *WhereBuilder) AddCondition(column, op string, arg interface{}) *WhereBuilder {
	wb.clauses = append(wb.clauses, column+" "+op+" "+wb.Next())
	wb.args = append(wb.args, arg)
	return wb
}

// AddSince adds "column >= <marker>". A nil time is skipped.
func (wb *WhereBuilder) AddSince(column string, since *time.Time) *WhereBuilder {
	if since == nil {
		return wb
	}
	return wb.AddCondition(column, ">=", since.UTC())
}

// AddPrefix adds "column LIKE <marker>" matching values that start with prefix.
// LIKE wildcards inside prefix are escaped. An empty prefix is skipped.
func (wb *WhereBuilder) AddPrefix(column, prefix string) *WhereBuilder {
	if prefix == "" {
		return wb
	}
	wb.clauses = append(wb.clauses, column+" LIKE "+wb.Next()+` ESCAPE '\'`)
	wb.args = append(wb.args, escapeLike(prefix)+"%")
	return wb
}

// Build constructs the final WHERE clause and returns it with arguments.
// Clauses are joined with "AND". Returns ("1=1", []) if no clauses were added.
func (wb *WhereBuilder) Build() (string, []interface{}) {
	if len(wb.clauses) == 0 {
		return "1=1", []interface{}{}
	}
	return strings.Join(wb.clauses, " AND "), wb.args
}

// BuildWithPrefix returns the WHERE clause with "WHERE " prefix.
func (wb *WhereBuilder) BuildWithPrefix() (string, []interface{}) {
	whereClause, args := wb.Build()
	return "WHERE " + whereClause, args
}

// Count returns the number of clauses added to the builder.
func (wb *WhereBuilder) Count() int {
	return len(wb.clauses)
}

// IsEmpty returns true if no clauses have been added.
func (wb *WhereBuilder) IsEmpty() bool {
	return len(wb.clauses) == 0
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
