package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// AtomicWriter writes to a temp file in the target directory and renames it
// over the target on Commit, so readers never see a partial file.
type AtomicWriter struct {
	targetPath string
	tempPath   string
	tempFile   *os.File
	perm       os.FileMode
}

// NewAtomicWriter creates a new atomic writer for the target path
func NewAtomicWriter(targetPath string, perm os.FileMode) (*AtomicWriter, error) {
	dir := filepath.Dir(targetPath)
	base := filepath.Base(targetPath)
	if base == "." || base == string(filepath.Separator) || strings.Contains(base, "..") {
		return nil, fmt.Errorf("invalid filename: %s", base)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	tempPath := filepath.Join(dir, fmt.Sprintf(".%s.tmp.%d.%d", base, os.Getpid(), time.Now().UnixNano()))
	tempFile, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	return &AtomicWriter{
		targetPath: targetPath,
		tempPath:   tempPath,
		tempFile:   tempFile,
		perm:       perm,
	}, nil
}

// Write writes data to the temporary file
func (aw *AtomicWriter) Write(data []byte) (int, error) {
	if aw.tempFile == nil {
		return 0, fmt.Errorf("writer is closed")
	}
	return aw.tempFile.Write(data)
}

// Commit syncs the temporary file and renames it over the target
func (aw *AtomicWriter) Commit() error {
	if aw.tempFile == nil {
		return fmt.Errorf("writer is closed")
	}

	if err := aw.tempFile.Sync(); err != nil {
		_ = aw.Abort()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := aw.tempFile.Chmod(aw.perm); err != nil {
		_ = aw.Abort()
		return fmt.Errorf("failed to set file permissions: %w", err)
	}
	if err := aw.tempFile.Close(); err != nil {
		aw.tempFile = nil
		_ = os.Remove(aw.tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	aw.tempFile = nil

	if err := os.Rename(aw.tempPath, aw.targetPath); err != nil {
		_ = os.Remove(aw.tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Abort discards the temporary file. It is safe to call after Commit.
func (aw *AtomicWriter) Abort() error {
	if aw.tempFile == nil {
		return nil
	}

	err := aw.tempFile.Close()
	aw.tempFile = nil
	if removeErr := os.Remove(aw.tempPath); removeErr != nil && err == nil {
		err = removeErr
	}
	return err
}

// AtomicWriteFile writes data to path atomically with the given permissions
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	writer, err := NewAtomicWriter(path, perm)
	if err != nil {
		return err
	}

	if _, err := writer.Write(data); err != nil {
		_ = writer.Abort()
		return err
	}
	return writer.Commit()
}

// EnsureFilePermissions restricts path to owner read/write when group or
// other bits are set.
func EnsureFilePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if info.Mode().Perm()&0o077 != 0 {
		return os.Chmod(path, 0o600)
	}
	return nil
}
