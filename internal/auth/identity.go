package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/desertthunder/novadrive/internal/models"
	"github.com/desertthunder/novadrive/internal/shared"
	"golang.org/x/oauth2"
)

// UserInfoURL is the Google OpenID userinfo endpoint.
const UserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// IdentityVerifier resolves the account email a token belongs to.
type IdentityVerifier interface {
	Email(ctx context.Context, cred models.Credential) (string, error)
}

// UserInfoClient implements [IdentityVerifier] against the userinfo endpoint.
type UserInfoClient struct {
	Endpoint string
	Client   *http.Client // base client; the bearer transport is layered on top
}

func NewUserInfoClient() *UserInfoClient {
	return &UserInfoClient{Endpoint: UserInfoURL}
}

type userInfoResponse struct {
	Email         *string `json:"email"`
	EmailVerified bool    `json:"email_verified"`
}

// Email fetches the email for cred. A response without an email is a provider error.
func (c *UserInfoClient) Email(ctx context.Context, cred models.Credential) (string, error) {
	if c.Client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.Client)
	}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(cred.Token()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create userinfo request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", shared.NewProviderError(0, "failed to verify user profile: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", shared.NewProviderError(resp.StatusCode, "failed to read userinfo response: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", shared.NewProviderError(resp.StatusCode, "failed to verify user profile: %s", body)
	}

	var info userInfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return "", shared.NewProviderError(resp.StatusCode, "malformed userinfo response: %v", err)
	}
	if info.Email == nil || *info.Email == "" {
		return "", shared.NewProviderError(resp.StatusCode, "userinfo response missing email")
	}

	return *info.Email, nil
}
