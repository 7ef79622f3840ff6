package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wikifun/wikifun/backend/go-services/pkg/middleware"
)

var errNoUsername = errors.New("token carries neither preferred_username nor sub")

// claimSet is a Token backed by claims that were decoded without a signature check.
type claimSet jwt.MapClaims

func (c claimSet) Claims(v interface{}) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// InsecureVerifier accepts any well-formed, unexpired JWT that names a user,
// without checking its signature. Only enabled with ALLOW_INSECURE_TOKEN=true
// for local integration runs against a throwaway identity provider.
type InsecureVerifier struct {
	now func() time.Time
}

func NewInsecureVerifier() *InsecureVerifier { return &InsecureVerifier{now: time.Now} }

func (v *InsecureVerifier) Verify(_ context.Context, raw string) (middleware.Token, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, err
	}
	if exp != nil && !v.now().Before(exp.Time) {
		return nil, fmt.Errorf("token expired at %s", exp.Time.UTC().Format(time.RFC3339))
	}
	if middleware.UsernameFromClaims(claims) == "" {
		return nil, errNoUsername
	}
	return claimSet(claims), nil
}
