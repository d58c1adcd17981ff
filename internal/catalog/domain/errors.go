package domain

import (
	"github.com/allisson/videogate/internal/errors"
)

// Catalog errors.
var (
	// ErrVideoNotFound indicates a video with the specified id is not in the catalog.
	ErrVideoNotFound = errors.Wrap(errors.ErrNotFound, "video not found")

	// ErrDuplicateVideoID indicates the catalog file holds two records with the same id.
	ErrDuplicateVideoID = errors.Wrap(errors.ErrInvalidInput, "duplicate video id")
)
