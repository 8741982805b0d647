// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

// Package authz decides what each authenticated role may do on the admin
// routes, using a Casbin RBAC model.
//
// The built-in policy grants:
//
//	viewer  read  dead_letters
//	viewer  read  audit
//	viewer  read  backups
//	admin   write users       (and everything viewer may do)
//	admin   write backups
//
// AUTHZ_POLICY_PATH replaces the built-in policy with a CSV file in the
// same format; the file is re-read every 30 seconds. The model itself is
// fixed.
//
// Middleware.Require runs after auth.RequireToken and answers 403 with
// the standard error envelope when the token's role lacks the permission.
// Decisions are counted in authz_decisions_total.
package authz
