package commands

import (
	"fmt"

	"github.com/google/uuid"

	catalogDomain "github.com/allisson/videogate/internal/catalog/domain"
	catalogRepository "github.com/allisson/videogate/internal/catalog/repository"
)

// AddVideoOptions holds the flag values for the add-video command.
type AddVideoOptions struct {
	IndexFile     string
	ID            string
	Title         string
	Locator       string
	Thumbnail     string
	Viewers       []string
	ContentKeyIDs []string
}

// RunAddVideo appends a video record to the catalog index file.
// Generates a fresh id when none is given and defaults the viewers list to
// the public "all" group. The record is validated before being written.
func RunAddVideo(opts AddVideoOptions, io IOTuple) error {
	id := opts.ID
	if id == "" {
		generated, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate video id: %w", err)
		}
		id = generated.String()
	}

	viewers := opts.Viewers
	if len(viewers) == 0 {
		viewers = []string{catalogDomain.WildcardViewer}
	}

	video := &catalogDomain.Video{
		ID:            id,
		Title:         opts.Title,
		Locator:       opts.Locator,
		Thumbnail:     opts.Thumbnail,
		Viewers:       viewers,
		ContentKeyIDs: opts.ContentKeyIDs,
	}

	if err := catalogRepository.AppendVideo(opts.IndexFile, video); err != nil {
		return fmt.Errorf("failed to add video to catalog: %w", err)
	}

	_, _ = fmt.Fprintf(io.Writer, "Video added to %s\n", opts.IndexFile)
	_, _ = fmt.Fprintf(io.Writer, "ID: %s\n", video.ID)
	_, _ = fmt.Fprintf(io.Writer, "Title: %s\n", video.Title)
	_, _ = fmt.Fprintf(io.Writer, "Viewers: %v\n", video.Viewers)

	return nil
}
