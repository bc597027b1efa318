package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

// DefaultScopes are the X API v2 scopes the uploader needs: read/write on
// posts, profile read, media write, and offline access for refresh tokens.
var DefaultScopes = []string{
	"tweet.read",
	"tweet.write",
	"users.read",
	"media.write",
	"offline.access",
}

// ProviderConfig contains configuration for the X OAuth provider
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	Scopes       []string
}

// UserInfo contains the authenticated user's profile from the provider
type UserInfo struct {
	ProviderUserID string
	Username       string
	Name           string
}

// Provider handles the X (Twitter) OAuth 2.0 authorization code flow with
// PKCE. The token endpoint is authenticated with HTTP Basic client
// credentials, which is what oauth2.AuthStyleInHeader produces.
type Provider struct {
	config      *oauth2.Config
	userInfoURL string
}

// NewXProvider creates a new X OAuth provider
func NewXProvider(cfg ProviderConfig) *Provider {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	return &Provider{
		userInfoURL: cfg.UserInfoURL,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
	}
}

// Configured reports whether a client ID is present.
func (p *Provider) Configured() bool {
	return p.config.ClientID != ""
}

// GenerateVerifier returns a new PKCE code verifier.
func (p *Provider) GenerateVerifier() string {
	return oauth2.GenerateVerifier()
}

// AuthCodeURL returns the authorization URL carrying the state token and
// the S256 challenge derived from the verifier.
func (p *Provider) AuthCodeURL(state, verifier string) string {
	return p.config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// ExchangeCode exchanges the authorization code plus the stored PKCE
// verifier for an access token at the provider's token endpoint.
func (p *Provider) ExchangeCode(
	ctx context.Context,
	code, verifier string,
) (*oauth2.Token, error) {
	token, err := p.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExchangeFailed, err)
	}
	return token, nil
}

// GetUserInfo retrieves the authenticated user's profile.
func (p *Provider) GetUserInfo(ctx context.Context, token *oauth2.Token) (*UserInfo, error) {
	client := p.config.Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUserInfoFailed, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUserInfoFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: %s - %s", ErrUserInfoFailed, resp.Status, string(body))
	}

	var user struct {
		Data struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			Username string `json:"username"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUserInfoFailed, err)
	}

	return &UserInfo{
		ProviderUserID: user.Data.ID,
		Username:       user.Data.Username,
		Name:           user.Data.Name,
	}, nil
}

// GenerateState generates a random state token for OAuth CSRF protection.
// 32 bytes gives 256 bits of entropy.
func GenerateState() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
