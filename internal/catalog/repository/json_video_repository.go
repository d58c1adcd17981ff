// Package repository provides the JSON-file backed video catalog store.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	catalogDomain "github.com/allisson/videogate/internal/catalog/domain"
	"github.com/allisson/videogate/internal/validation"
)

// JSONVideoRepository serves the video catalog from an in-memory snapshot
// loaded once from a JSON array file. The snapshot is immutable for the
// process lifetime, so reads need no locking. Provisioning appends happen
// out-of-process through AppendVideo.
type JSONVideoRepository struct {
	videos []*catalogDomain.Video
	byID   map[string]*catalogDomain.Video
}

// NewJSONVideoRepository loads and validates the catalog file.
// Every record must pass domain validation and ids must be unique.
func NewJSONVideoRepository(path string) (*JSONVideoRepository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}

	var videos []*catalogDomain.Video
	if err := json.Unmarshal(data, &videos); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file %s: %w", path, err)
	}

	byID := make(map[string]*catalogDomain.Video, len(videos))
	for _, video := range videos {
		if err := video.Validate(); err != nil {
			return nil, validation.WrapValidationError(
				fmt.Errorf("catalog record %q: %w", video.ID, err),
			)
		}
		if _, exists := byID[video.ID]; exists {
			return nil, fmt.Errorf("catalog record %q: %w", video.ID, catalogDomain.ErrDuplicateVideoID)
		}
		byID[video.ID] = video
	}

	return &JSONVideoRepository{videos: videos, byID: byID}, nil
}

// Get returns the video with the given id.
// Returns ErrVideoNotFound if the id is not in the catalog.
func (r *JSONVideoRepository) Get(_ context.Context, id string) (*catalogDomain.Video, error) {
	video, ok := r.byID[id]
	if !ok {
		return nil, catalogDomain.ErrVideoNotFound
	}
	return video, nil
}

// List returns all videos in catalog file order.
func (r *JSONVideoRepository) List(_ context.Context) ([]*catalogDomain.Video, error) {
	return r.videos, nil
}

// AppendVideo validates a record and appends it to the catalog file, creating
// the file if it does not exist. This is the offline provisioning path used by
// the add-video command; running servers never observe the change.
func AppendVideo(path string, video *catalogDomain.Video) error {
	if err := video.Validate(); err != nil {
		return validation.WrapValidationError(err)
	}

	var videos []*catalogDomain.Video

	data, err := os.ReadFile(path)
	switch {
	case err == nil && len(data) > 0:
		if err := json.Unmarshal(data, &videos); err != nil {
			return fmt.Errorf("failed to parse catalog file %s: %w", path, err)
		}
	case err != nil && !os.IsNotExist(err):
		return fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}

	for _, existing := range videos {
		if existing.ID == video.ID {
			return fmt.Errorf("catalog record %q: %w", video.ID, catalogDomain.ErrDuplicateVideoID)
		}
	}

	videos = append(videos, video)

	out, err := json.MarshalIndent(videos, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}

	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("failed to write catalog file %s: %w", path, err)
	}

	return nil
}
