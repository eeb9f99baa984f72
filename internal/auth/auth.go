// Package auth turns the profile's stored platform access token into the
// identity capability object threaded through every controller. The token is
// issued and verified by the platform; this client only reads its claims.
package auth

import (
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/caredesk/caredesk/internal/care"
)

// Identity is the signed-in user. Controllers receive it at construction
// instead of reading ambient global state.
type Identity struct {
	UserID      string
	Role        care.Role
	DisplayName string
}

// Load reads and parses the access token stored at path.
func Load(path string) (Identity, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Identity{}, fmt.Errorf("read token: %w", err)
	}
	return Parse(strings.TrimSpace(string(raw)))
}

// Parse extracts the identity claims from a platform access token. Signature
// verification is the platform's job, not the client's, so the token is
// decoded without a key.
func Parse(token string) (Identity, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return Identity{}, fmt.Errorf("parse token: %w", err)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Identity{}, fmt.Errorf("token missing sub claim")
	}
	roleClaim, _ := claims["role"].(string)
	role := care.Role(roleClaim)
	if role != care.RolePatient && role != care.RoleDoctor {
		return Identity{}, fmt.Errorf("token role %q is not patient or doctor", roleClaim)
	}
	name, _ := claims["name"].(string)

	return Identity{UserID: sub, Role: role, DisplayName: name}, nil
}
