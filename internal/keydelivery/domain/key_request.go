package domain

import (
	"github.com/jellydator/validation"

	customValidation "github.com/allisson/videogate/internal/validation"
)

// KeyKind identifies the DRM protocol a key request targets.
type KeyKind string

// Supported DRM protocols.
const (
	KindEnvelope  KeyKind = "envelope"
	KindPlayReady KeyKind = "playready"
	KindWidevine  KeyKind = "widevine"
)

// String returns the string representation of the key kind.
func (k KeyKind) String() string {
	return string(k)
}

// KeyRequest is a single content-key request. It is never persisted; each
// request is validated, authorized and proxied within one HTTP exchange.
//
// The content key id is caller-supplied for envelope and Widevine requests.
// For PlayReady it is absent here and extracted from the SOAP challenge
// during authorization, since the protocol embeds it in the license
// challenge rather than a query parameter.
type KeyRequest struct {
	Kind         KeyKind
	VideoID      string
	ContentKeyID string
	Challenge    []byte
}

// Validate checks the request shape for its kind:
//   - VideoID is always required
//   - ContentKeyID is required and must be a GUID for envelope and Widevine
//   - Challenge is required for PlayReady and Widevine
func (r *KeyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Kind,
			validation.Required,
			validation.In(KindEnvelope, KindPlayReady, KindWidevine),
		),
		validation.Field(&r.VideoID,
			validation.Required,
			customValidation.NotBlank,
		),
		validation.Field(&r.ContentKeyID,
			validation.When(r.Kind == KindEnvelope || r.Kind == KindWidevine,
				validation.Required,
				customValidation.GUID,
			),
		),
		validation.Field(&r.Challenge,
			validation.When(r.Kind == KindPlayReady || r.Kind == KindWidevine,
				validation.Required,
			),
		),
	)
}
