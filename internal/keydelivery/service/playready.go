package service

import (
	"encoding/base64"
	"encoding/xml"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/allisson/videogate/internal/errors"
)

// acquireLicenseEnvelope mirrors the SOAP structure of a PlayReady license
// acquisition challenge. Element matching is namespace-exact: a challenge
// that carries the right local names under the wrong namespaces does not
// resolve to a key id.
type acquireLicenseEnvelope struct {
	XMLName xml.Name `xml:"http://schemas.xmlsoap.org/soap/envelope/ Envelope"`
	Body    struct {
		AcquireLicense struct {
			Challenge struct {
				Message struct {
					LA struct {
						ContentHeader struct {
							WRMHeader struct {
								Data struct {
									KID string `xml:"http://schemas.microsoft.com/DRM/2007/03/PlayReadyHeader KID"`
								} `xml:"http://schemas.microsoft.com/DRM/2007/03/PlayReadyHeader DATA"`
							} `xml:"http://schemas.microsoft.com/DRM/2007/03/PlayReadyHeader WRMHEADER"`
						} `xml:"http://schemas.microsoft.com/DRM/2007/03/protocols ContentHeader"`
					} `xml:"http://schemas.microsoft.com/DRM/2007/03/protocols LA"`
				} `xml:"http://schemas.microsoft.com/DRM/2007/03/protocols/messages Challenge"`
			} `xml:"http://schemas.microsoft.com/DRM/2007/03/protocols challenge"`
		} `xml:"http://schemas.microsoft.com/DRM/2007/03/protocols AcquireLicense"`
	} `xml:"http://schemas.xmlsoap.org/soap/envelope/ Body"`
}

// ExtractPlayReadyKeyID pulls the content key id out of a PlayReady license
// challenge. The challenge is an opaque SOAP envelope from the player's DRM
// stack; the key id is the only part the broker inspects, so it can enforce
// content-key ownership on a protocol that does not put the key id in a
// query parameter.
//
// The KID leaf holds a base64 value that must decode to exactly 16 bytes in
// the Microsoft GUID byte layout (first three fields little-endian). The
// returned string is the canonical GUID form.
//
// Returns ErrMalformedChallenge when the body is not well-formed XML, the
// element path does not resolve, or the payload is not a 16-byte value.
func ExtractPlayReadyKeyID(challenge []byte) (string, error) {
	var envelope acquireLicenseEnvelope
	if err := xml.Unmarshal(challenge, &envelope); err != nil {
		return "", apperrors.Wrap(apperrors.ErrMalformedChallenge, "challenge is not a well-formed license envelope")
	}

	encoded := strings.TrimSpace(envelope.Body.AcquireLicense.Challenge.Message.LA.ContentHeader.WRMHeader.Data.KID)
	if encoded == "" {
		return "", apperrors.Wrap(apperrors.ErrMalformedChallenge, "challenge has no key id")
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrMalformedChallenge, "challenge key id is not valid base64")
	}
	if len(raw) != 16 {
		return "", apperrors.Wrapf(apperrors.ErrMalformedChallenge, "challenge key id is %d bytes, want 16", len(raw))
	}

	// Convert the mixed-endian GUID layout to the RFC 4122 big-endian layout
	// before formatting.
	var b [16]byte
	copy(b[:], raw)
	b[0], b[1], b[2], b[3] = b[3], b[2], b[1], b[0]
	b[4], b[5] = b[5], b[4]
	b[6], b[7] = b[7], b[6]

	id, err := uuid.FromBytes(b[:])
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrMalformedChallenge, "challenge key id is not a valid guid")
	}

	return id.String(), nil
}
