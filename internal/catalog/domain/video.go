// Package domain defines the video catalog domain model and view-authorization logic.
//
// A video's viewer list holds opaque directory ids (users or security groups).
// The literal viewer "all" marks a video as public. Authorization is a pure set
// intersection between the viewer list and the caller's resolved identity tokens.
package domain

import (
	"slices"

	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/videogate/internal/validation"
)

// WildcardViewer is the viewer token that marks a video as viewable by anyone.
const WildcardViewer = "all"

// Video represents a catalog entry for a protected stream.
type Video struct {
	ID            string   `json:"id"`                  // Unique identifier within the catalog
	Title         string   `json:"title"`               // Display title
	Locator       string   `json:"locator"`             // Streaming manifest URI
	Thumbnail     string   `json:"thumbnail,omitempty"` // Optional thumbnail image URI
	Viewers       []string `json:"viewers"`             // Identity tokens permitted to view ("all" = public)
	ContentKeyIDs []string `json:"contentKeyIds"`       // DRM content key ids belonging to this video
}

// Validate checks that a catalog record is well-formed.
func (v *Video) Validate() error {
	return validation.ValidateStruct(v,
		validation.Field(&v.ID,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 255),
		),
		validation.Field(&v.Title,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 500),
		),
		validation.Field(&v.Locator,
			validation.Required,
			customValidation.NotBlank,
		),
		validation.Field(&v.Viewers,
			validation.Required,
			validation.Length(1, 0),
		),
		validation.Field(&v.ContentKeyIDs,
			validation.Each(customValidation.GUID),
		),
	)
}

// ViewableBy reports whether a caller holding the given identity tokens may
// view the video. Public videos ("all" in the viewer list) match any caller;
// otherwise the viewer list must intersect the token set. Order-independent,
// pure set semantics.
func (v *Video) ViewableBy(identityTokens map[string]struct{}) bool {
	for _, viewer := range v.Viewers {
		if viewer == WildcardViewer {
			return true
		}
		if _, ok := identityTokens[viewer]; ok {
			return true
		}
	}
	return false
}

// OwnsContentKey reports whether the content key id belongs to this video.
func (v *Video) OwnsContentKey(contentKeyID string) bool {
	return slices.Contains(v.ContentKeyIDs, contentKeyID)
}
