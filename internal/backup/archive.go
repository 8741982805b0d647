// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package backup

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// archiveWriters holds the writers needed for creating backup archives
type archiveWriters struct {
	tarWriter *tar.Writer
	sum       func() string
	closers   []io.Closer
}

// Close closes all writers in reverse order, returning the first error encountered
func (aw *archiveWriters) Close() error {
	var firstErr error
	for i := len(aw.closers) - 1; i >= 0; i-- {
		if err := aw.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// setupArchiveWriters chains file <- sha256 tee <- gzip <- tar.
func setupArchiveWriters(filePath string, level int) (*archiveWriters, error) {
	outFile, err := os.OpenFile(filePath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640) //nolint:gosec // path is built from the backup dir
	if err != nil {
		return nil, fmt.Errorf("failed to create backup file: %w", err)
	}

	hasher := sha256.New()
	gzWriter, err := gzip.NewWriterLevel(io.MultiWriter(outFile, hasher), level)
	if err != nil {
		outFile.Close() //nolint:errcheck // Best effort cleanup on error
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}
	tw := tar.NewWriter(gzWriter)

	return &archiveWriters{
		tarWriter: tw,
		sum:       func() string { return hex.EncodeToString(hasher.Sum(nil)) },
		closers:   []io.Closer{outFile, gzWriter, tw},
	}, nil
}

// writeArchive packs every regular file under srcDir into a tar.gz at
// destPath and returns the archive's SHA-256.
func writeArchive(srcDir, destPath string, level int) (checksum string, err error) {
	aw, err := setupArchiveWriters(destPath, level)
	if err != nil {
		return "", err
	}

	err = filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		return addFileToArchive(aw.tarWriter, path, filepath.ToSlash(filepath.Join("export", rel)))
	})

	if closeErr := aw.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", err
	}
	// The hash is complete once the gzip trailer is flushed.
	return aw.sum(), nil
}

// addFileToArchive adds a file to the tar archive
func addFileToArchive(tw *tar.Writer, srcPath, destPath string) error {
	file, err := os.Open(srcPath) //nolint:gosec // srcPath comes from walking the export dir
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", srcPath, err)
	}
	defer file.Close() //nolint:errcheck // Best effort cleanup

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", srcPath, err)
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("failed to create tar header for %s: %w", srcPath, err)
	}
	header.Name = destPath

	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write tar header for %s: %w", srcPath, err)
	}
	if _, err := io.Copy(tw, file); err != nil {
		return fmt.Errorf("failed to copy %s to archive: %w", srcPath, err)
	}
	return nil
}
