package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RemoteTokenValidator implements TokenValidator by calling the family
// auth service.
type RemoteTokenValidator struct {
	baseURL    string
	httpClient *http.Client
}

func NewRemoteTokenValidator(baseURL string) *RemoteTokenValidator {
	return &RemoteTokenValidator{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 2 * time.Second,
		},
	}
}

func NewRemoteTokenValidatorWithClient(baseURL string, client *http.Client) *RemoteTokenValidator {
	return &RemoteTokenValidator{
		baseURL:    baseURL,
		httpClient: client,
	}
}

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	FamilyID string `json:"family_id"`
	Active   bool   `json:"active"`
}

// Validate posts the token to the auth service and maps the verified user
// onto an Identity.
func (v *RemoteTokenValidator) Validate(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrInvalidToken
	}

	url := fmt.Sprintf("%s/v1/verify", v.baseURL)

	body, err := json.Marshal(verifyRequest{Token: token})
	if err != nil {
		return Identity{}, fmt.Errorf("failed to marshal verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Identity{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to call auth service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return Identity{}, ErrInvalidToken
	}

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return Identity{}, fmt.Errorf("auth service returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var verified verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&verified); err != nil {
		return Identity{}, fmt.Errorf("failed to decode response: %w", err)
	}

	if !verified.Active {
		return Identity{}, ErrInvalidToken
	}

	if verified.FamilyID == "" {
		return Identity{}, fmt.Errorf("auth service returned no family_id for user %s", verified.Username)
	}

	return Identity{
		UserID:   verified.UserID,
		Username: verified.Username,
		FamilyID: verified.FamilyID,
	}, nil
}
