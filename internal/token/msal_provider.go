package token

import (
	"context"
	"fmt"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/confidential"
)

// MSALProvider acquires service credentials through the client credentials
// flow against the directory tenant.
type MSALProvider struct {
	client confidential.Client
	scopes []string
}

// NewMSALProvider creates a confidential client for the given tenant and
// application. The scope selects the downstream audience (directory API or
// key delivery endpoint).
func NewMSALProvider(tenantID, clientID, clientSecret, scope string) (*MSALProvider, error) {
	cred, err := confidential.NewCredFromSecret(clientSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create client credential: %w", err)
	}

	authority := fmt.Sprintf("https://login.microsoftonline.com/%s", tenantID)
	client, err := confidential.New(authority, clientID, cred)
	if err != nil {
		return nil, fmt.Errorf("failed to create confidential client: %w", err)
	}

	return &MSALProvider{client: client, scopes: []string{scope}}, nil
}

// Acquire requests a fresh access token for the configured scope.
func (p *MSALProvider) Acquire(ctx context.Context) (Credential, error) {
	result, err := p.client.AcquireTokenByCredential(ctx, p.scopes)
	if err != nil {
		return Credential{}, fmt.Errorf("failed to acquire token: %w", err)
	}

	return Credential{
		AccessToken: result.AccessToken,
		ExpiresOn:   result.ExpiresOn,
	}, nil
}
