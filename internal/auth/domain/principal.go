// Package domain defines the authenticated caller model.
//
// A caller is identified by its directory object id taken from the validated
// bearer token. View authorization works on identity tokens: the caller's own
// object id plus every security group it transitively belongs to.
package domain

// Principal is the authenticated caller extracted from a bearer token.
type Principal struct {
	ObjectID string   // Directory object id ("oid" claim)
	Scopes   []string // Delegated scopes granted to the calling application
}

// IdentityTokens is the set of directory ids representing one caller: the
// principal's object id plus its transitive security group ids. Computed
// fresh per request; lifetime is one request.
type IdentityTokens map[string]struct{}

// NewIdentityTokens builds a token set seeded with the principal's object id.
func NewIdentityTokens(principalID string) IdentityTokens {
	return IdentityTokens{principalID: {}}
}

// Add inserts a directory id into the set.
func (t IdentityTokens) Add(id string) {
	t[id] = struct{}{}
}

// Contains reports whether the set holds the given id.
func (t IdentityTokens) Contains(id string) bool {
	_, ok := t[id]
	return ok
}
