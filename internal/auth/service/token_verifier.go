// Package service implements bearer token validation for the HTTP surface.
package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	authDomain "github.com/allisson/videogate/internal/auth/domain"
	apperrors "github.com/allisson/videogate/internal/errors"
)

// jwtVerifier validates RS256 access tokens issued by the directory tenant.
type jwtVerifier struct {
	keySource     KeySource
	issuer        string
	audience      string
	requiredScope string
}

// NewJWTVerifier creates a TokenVerifier that checks signature, issuer,
// audience, expiry and the required delegated scope.
func NewJWTVerifier(keySource KeySource, issuer, audience, requiredScope string) TokenVerifier {
	return &jwtVerifier{
		keySource:     keySource,
		issuer:        issuer,
		audience:      audience,
		requiredScope: requiredScope,
	}
}

// accessTokenClaims are the claims we consume from the access token.
type accessTokenClaims struct {
	jwt.RegisteredClaims
	ObjectID string `json:"oid"`
	Scope    string `json:"scp"`
}

// Verify validates the raw token and returns the calling principal.
//
// Failure modes:
//   - signature/issuer/audience/expiry failures → ErrInvalidToken (401)
//   - token valid but missing the required scope → ErrMissingScope (403)
//   - token valid but without an "oid" claim → ErrInvalidToken (401)
func (v *jwtVerifier) Verify(ctx context.Context, rawToken string) (*authDomain.Principal, error) {
	claims := &accessTokenClaims{}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
	)

	_, err := parser.ParseWithClaims(rawToken, claims, func(token *jwt.Token) (any, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, fmt.Errorf("token has no kid header")
		}
		return v.keySource.Key(ctx, kid)
	})
	if err != nil {
		return nil, apperrors.Wrapf(authDomain.ErrInvalidToken, "token validation failed: %v", err)
	}

	if claims.ObjectID == "" {
		return nil, apperrors.Wrap(authDomain.ErrInvalidToken, "token has no oid claim")
	}

	scopes := strings.Fields(claims.Scope)
	if v.requiredScope != "" && !slices.Contains(scopes, v.requiredScope) {
		return nil, apperrors.Wrapf(authDomain.ErrMissingScope, "required scope %q", v.requiredScope)
	}

	return &authDomain.Principal{
		ObjectID: claims.ObjectID,
		Scopes:   scopes,
	}, nil
}
