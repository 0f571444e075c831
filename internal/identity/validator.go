package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

var ErrInvalidToken = errors.New("invalid or unknown token")

// TokenValidator resolves an API token to the identity it belongs to.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (Identity, error)
}

// StaticTokenValidator validates tokens against a fixed table loaded from
// configuration.
type StaticTokenValidator struct {
	tokens map[string]Identity
}

// ParseStaticTokens parses AUTH_TOKENS entries of the form
// token:family_id:user_id:username.
func ParseStaticTokens(entries []string) (map[string]Identity, error) {
	tokens := make(map[string]Identity, len(entries))
	for _, entry := range entries {
		parts := strings.Split(entry, ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf("malformed token entry %q: expected token:family_id:user_id:username", entry)
		}
		for i, part := range parts {
			if strings.TrimSpace(part) == "" {
				return nil, fmt.Errorf("malformed token entry %q: field %d is empty", entry, i+1)
			}
		}
		tokens[parts[0]] = Identity{
			FamilyID: parts[1],
			UserID:   parts[2],
			Username: parts[3],
		}
	}
	return tokens, nil
}

func NewStaticTokenValidator(tokens map[string]Identity) *StaticTokenValidator {
	return &StaticTokenValidator{tokens: tokens}
}

func (v *StaticTokenValidator) Validate(_ context.Context, token string) (Identity, error) {
	id, ok := v.tokens[token]
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	return id, nil
}

// FakeTokenValidator accepts any non-empty token and maps it to a fixed
// identity. Local development only.
type FakeTokenValidator struct {
	identity Identity
}

func NewFakeTokenValidator(familyID string, userID string, username string) *FakeTokenValidator {
	zap.S().Warn("Using FAKE token validator, all tokens are accepted")
	return &FakeTokenValidator{
		identity: Identity{
			FamilyID: familyID,
			UserID:   userID,
			Username: username,
		},
	}
}

func (v *FakeTokenValidator) Validate(_ context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrInvalidToken
	}
	return v.identity, nil
}
