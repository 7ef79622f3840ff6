package oidc

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/wikifun/wikifun/backend/go-services/pkg/middleware"
)

// Verifier checks ID tokens issued by an external OIDC provider (Keycloak).
// The identity middleware reads preferred_username from the verified claims,
// so wiki usernames and Keycloak usernames line up.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
}

// IssuerURL builds the Keycloak realm issuer. An empty realm means url already
// points at the realm (older deployments).
func IssuerURL(url, realm string) string {
	url = strings.TrimRight(url, "/")
	if realm == "" {
		return url
	}
	return url + "/realms/" + realm
}

// NewVerifier discovers the provider at issuer and verifies tokens for clientID.
func NewVerifier(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	return &Verifier{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	return idToken, nil
}
