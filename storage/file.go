package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ruteri/split-session-service/interfaces"
)

// FileStore implements a session store using the local file system.
// Each snapshot is a JSON file under <baseDir>/sessions.
type FileStore struct {
	baseDir     string
	sessionsDir string
	log         *slog.Logger
	locationURI string
}

// NewFileStore creates a new file session store using the specified base directory.
// It creates the sessions subdirectory if it doesn't exist.
func NewFileStore(baseDir string, log *slog.Logger) (*FileStore, error) {
	sessionsDir := filepath.Join(baseDir, "sessions")
	if err := os.MkdirAll(sessionsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	return &FileStore{
		baseDir:     baseDir,
		sessionsDir: sessionsDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// Create writes a new snapshot file. Returns ErrSessionExists if the file exists.
func (b *FileStore) Create(ctx context.Context, snapshot *interfaces.SessionSnapshot) error {
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}
	filePath, err := b.getFilePath(snapshot.ID)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return interfaces.ErrSessionExists
		}
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	b.log.Debug("Stored session in file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))
	return nil
}

// Fetch reads a snapshot file. Returns ErrSessionNotFound if the file doesn't exist.
func (b *FileStore) Fetch(ctx context.Context, id interfaces.SessionID) (*interfaces.SessionSnapshot, error) {
	filePath, err := b.getFilePath(id)
	if err != nil {
		return nil, interfaces.ErrSessionNotFound
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, interfaces.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	b.log.Debug("Fetched session from file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return decodeSnapshot(id, data)
}

// Update atomically replaces an existing snapshot file.
func (b *FileStore) Update(ctx context.Context, snapshot *interfaces.SessionSnapshot) error {
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}
	filePath, err := b.getFilePath(snapshot.ID)
	if err != nil {
		return err
	}

	if _, err := os.Stat(filePath); errors.Is(err, fs.ErrNotExist) {
		return interfaces.ErrSessionNotFound
	}

	tmp, err := os.CreateTemp(b.sessionsDir, string(snapshot.ID)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return fmt.Errorf("failed to replace file: %w", err)
	}

	b.log.Debug("Updated session in file", slog.String("path", filePath))
	return nil
}

// Delete removes a snapshot file.
func (b *FileStore) Delete(ctx context.Context, id interfaces.SessionID) error {
	filePath, err := b.getFilePath(id)
	if err != nil {
		return interfaces.ErrSessionNotFound
	}
	if err := os.Remove(filePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return interfaces.ErrSessionNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Available checks if the file store is accessible by verifying the sessions directory exists.
func (b *FileStore) Available(ctx context.Context) bool {
	_, err := os.Stat(b.sessionsDir)
	if err != nil {
		b.log.Debug("File store unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this store.
func (b *FileStore) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(b.baseDir))
}

// LocationURI returns the URI that identifies this store.
func (b *FileStore) LocationURI() string {
	return b.locationURI
}

// getFilePath generates the file path of a session snapshot.
func (b *FileStore) getFilePath(id interfaces.SessionID) (string, error) {
	if err := validKey(id); err != nil {
		return "", err
	}
	return filepath.Join(b.sessionsDir, string(id)+".json"), nil
}
