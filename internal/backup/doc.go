// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

// Package backup takes snapshots of the DuckDB tweet store.
//
// A backup runs DuckDB's EXPORT DATABASE into a temporary directory under
// BACKUP_DIR (schema.sql, load.sql and one Parquet file per table), packs
// it into backup-<time>-<id>.tar.gz and records the archive's SHA-256 and
// the table row counts in metadata.json. The Manager takes one backup
// every BACKUP_INTERVAL and keeps the newest BACKUP_RETAIN completed
// archives. Admins can also trigger a backup through the API.
//
// To restore, unpack an archive and run IMPORT DATABASE against its
// export/ directory from a fresh DuckDB file:
//
//	tar -xzf backup-20260301-030000-1a2b3c4d.tar.gz
//	duckdb /data/tweetqueue.duckdb "IMPORT DATABASE 'export'"
//
// Only one backup runs at a time; a concurrent request gets
// ErrBackupInProgress.
package backup
