package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const httpCallTimeout = 10 * time.Second

// identityClient handles the code exchange and user info fetch against the
// hosted identity provider.
type identityClient interface {
	Exchange(ctx context.Context, code string) (*identityResult, error)
}

// identityResult holds the provider's claims after a successful login.
type identityResult struct {
	Subject string
	Email   string
	Name    string
}

// identityHTTPClient is the production implementation using the provider's
// HTTP endpoints.
type identityHTTPClient struct {
	issuerURL    string
	clientID     string
	clientSecret string
	redirectURI  string
}

func newIdentityClient(issuerURL, clientID, clientSecret, redirectURI string) *identityHTTPClient {
	return &identityHTTPClient{
		issuerURL:    strings.TrimSuffix(issuerURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
	}
}

func (c *identityHTTPClient) Exchange(ctx context.Context, code string) (*identityResult, error) {
	accessToken, err := c.exchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	result, err := c.fetchUserInfo(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("user info fetch failed: %w", err)
	}

	return result, nil
}

func (c *identityHTTPClient) exchangeCode(ctx context.Context, code string) (string, error) {
	data := url.Values{}
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)
	data.Set("code", code)
	data.Set("grant_type", "authorization_code")
	data.Set("redirect_uri", c.redirectURI)

	req, err := http.NewRequestWithContext(ctx, "POST", c.issuerURL+"/oauth/token", strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := &http.Client{Timeout: httpCallTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("no access token returned")
	}

	return tokenResp.AccessToken, nil
}

func (c *identityHTTPClient) fetchUserInfo(ctx context.Context, accessToken string) (*identityResult, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.issuerURL+"/userinfo", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	client := &http.Client{Timeout: httpCallTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute user info request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info endpoint returned status %d", resp.StatusCode)
	}

	var userResp struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&userResp); err != nil {
		return nil, fmt.Errorf("failed to decode user info response: %w", err)
	}

	if userResp.Sub == "" {
		return nil, fmt.Errorf("no subject claim returned")
	}

	return &identityResult{
		Subject: userResp.Sub,
		Email:   userResp.Email,
		Name:    userResp.Name,
	}, nil
}
