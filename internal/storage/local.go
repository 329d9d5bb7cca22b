package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// LocalBlobStore implements BlobStore on a single filesystem root. Files
// are flat, named by generated UUIDs; variants live next to their base as
// <location>_<width>.
type LocalBlobStore struct {
	basePath string
}

// NewLocalBlobStore creates the storage root if it does not exist.
func NewLocalBlobStore(basePath string) (*LocalBlobStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		log.Error().Err(err).Str("path", basePath).Msg("failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	log.Info().Str("path", basePath).Msg("local blob storage initialized")
	return &LocalBlobStore{basePath: basePath}, nil
}

// Write persists content under a new opaque location.
func (ls *LocalBlobStore) Write(ctx context.Context, content []byte) (string, error) {
	location := uuid.New().String()
	if err := ls.publish(ctx, location, content); err != nil {
		return "", err
	}
	return location, nil
}

// Read returns the bytes at location.
func (ls *LocalBlobStore) Read(ctx context.Context, location string) ([]byte, error) {
	return ls.read(ctx, location)
}

// WriteVariant persists a size derivative next to its base location.
func (ls *LocalBlobStore) WriteVariant(ctx context.Context, location string, width int, content []byte) (string, error) {
	variant := variantLocation(location, width)
	if err := ls.publish(ctx, variant, content); err != nil {
		return "", err
	}
	return variant, nil
}

// ReadVariant returns the derivative bytes for (location, width).
func (ls *LocalBlobStore) ReadVariant(ctx context.Context, location string, width int) ([]byte, error) {
	return ls.read(ctx, variantLocation(location, width))
}

// Delete removes the bytes at location. Deleting an absent location is a
// no-op.
func (ls *LocalBlobStore) Delete(ctx context.Context, location string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(ls.basePath, location)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		log.Error().Err(err).Str("location", location).Msg("failed to delete blob")
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// Exists checks whether location holds bytes.
func (ls *LocalBlobStore) Exists(ctx context.Context, location string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := os.Stat(filepath.Join(ls.basePath, location))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check blob existence: %w", err)
	}
	return true, nil
}

// publish writes content to a temporary file and renames it into place, so
// a concurrent reader never observes a partial write.
func (ls *LocalBlobStore) publish(ctx context.Context, location string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	startTime := time.Now()
	fullPath := filepath.Join(ls.basePath, location)

	tempPath := fullPath + ".tmp." + fmt.Sprintf("%d", time.Now().UnixNano())
	tempFile, err := os.Create(tempPath)
	if err != nil {
		log.Error().Err(err).Str("location", location).Msg("failed to create temporary file")
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	// Ensure cleanup of temp file on failure
	defer func() {
		tempFile.Close()
		if _, err := os.Stat(tempPath); err == nil {
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(content); err != nil {
		log.Error().Err(err).Str("location", location).Msg("failed to write blob content")
		return fmt.Errorf("failed to write content: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		log.Error().Err(err).Str("location", location).Msg("failed to sync temporary file")
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	tempFile.Close()

	if err := os.Rename(tempPath, fullPath); err != nil {
		log.Error().Err(err).Str("location", location).Msg("failed to move temporary file to final location")
		return fmt.Errorf("failed to move blob to final location: %w", err)
	}

	log.Debug().
		Str("location", location).
		Int("bytes_written", len(content)).
		Dur("duration", time.Since(startTime)).
		Msg("blob stored")

	return nil
}

func (ls *LocalBlobStore) read(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(filepath.Join(ls.basePath, location))
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug().Str("location", location).Msg("blob not found")
			return nil, ErrBlobNotFound
		}
		log.Error().Err(err).Str("location", location).Msg("failed to read blob")
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return content, nil
}

func variantLocation(location string, width int) string {
	return fmt.Sprintf("%s_%d", location, width)
}
