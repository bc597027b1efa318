package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-xpost/xpost/internal/auth"
	"github.com/go-xpost/xpost/internal/cache"
	"github.com/go-xpost/xpost/internal/metrics"
	"github.com/go-xpost/xpost/internal/models"
	"github.com/go-xpost/xpost/internal/store"
)

// DefaultUserID identifies the single account this deployment connects.
// The service is single-tenant; every credential and upload belongs to it.
const DefaultUserID = "default_user"

const sessionKeyPrefix = "pkce:"

// ConnectionStatus describes whether an X account is connected.
type ConnectionStatus struct {
	Authenticated bool
	UserID        string
	Username      string
	ExpiresAt     *time.Time
}

// AuthService runs the X OAuth 2.0 PKCE flow: it issues authorization
// URLs backed by single-use sessions and turns callbacks into stored
// credentials.
type AuthService struct {
	store      *store.Store
	provider   *auth.Provider
	sessions   cache.Cache[models.PKCESession]
	sessionTTL time.Duration
	metrics    metrics.Recorder
}

func NewAuthService(
	s *store.Store,
	provider *auth.Provider,
	sessions cache.Cache[models.PKCESession],
	sessionTTL time.Duration,
	m metrics.Recorder,
) *AuthService {
	if m == nil {
		m = metrics.NewNoopMetrics()
	}
	return &AuthService{
		store:      s,
		provider:   provider,
		sessions:   sessions,
		sessionTTL: sessionTTL,
		metrics:    m,
	}
}

// BeginAuthorization starts the PKCE flow for userID and returns the
// provider authorization URL. The verifier is held server-side, keyed by
// the state token, until the callback consumes it or the TTL expires.
func (s *AuthService) BeginAuthorization(ctx context.Context, userID string) (string, error) {
	if !s.provider.Configured() {
		return "", ErrNotConfigured
	}

	verifier := s.provider.GenerateVerifier()
	state, err := auth.GenerateState()
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}

	session := models.PKCESession{
		UserID:       userID,
		CodeVerifier: verifier,
	}
	if err := s.sessions.Set(ctx, sessionKeyPrefix+state, session, s.sessionTTL); err != nil {
		return "", fmt.Errorf("failed to store authorization session: %w", err)
	}

	s.metrics.RecordAuthorizationStarted()
	return s.provider.AuthCodeURL(state, verifier), nil
}

// CompleteAuthorization handles the provider callback. The state token is
// consumed atomically, so a replayed callback fails with ErrInvalidSession
// and no credential is touched.
func (s *AuthService) CompleteAuthorization(
	ctx context.Context,
	code, state, providerError, providerErrorDesc string,
) (*models.Credential, error) {
	if providerError != "" {
		log.Printf("[Auth] Provider returned error on callback: %s %s", providerError, providerErrorDesc)
		s.metrics.RecordOAuthCallback(false)
		return nil, &ProviderCallbackError{Code: providerError, Description: providerErrorDesc}
	}
	if code == "" || state == "" {
		s.metrics.RecordOAuthCallback(false)
		return nil, ErrInvalidCallback
	}

	session, err := s.sessions.Take(ctx, sessionKeyPrefix+state)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("[Auth] Callback with unknown or consumed state")
			s.metrics.RecordOAuthCallback(false)
			return nil, ErrInvalidSession
		}
		s.metrics.RecordOAuthCallback(false)
		return nil, fmt.Errorf("failed to load authorization session: %w", err)
	}

	token, err := s.provider.ExchangeCode(ctx, code, session.CodeVerifier)
	if err != nil {
		s.metrics.RecordOAuthCallback(false)
		return nil, err
	}

	// The profile fetch precedes the upsert: a callback that cannot
	// resolve the account identity stores nothing.
	info, err := s.provider.GetUserInfo(ctx, token)
	if err != nil {
		log.Printf("[Auth] Failed to fetch user profile: %v", err)
		s.metrics.RecordOAuthCallback(false)
		return nil, err
	}

	cred := &models.Credential{
		UserID:       session.UserID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Username:     info.Username,
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		cred.ExpiresAt = &expiry
	}

	saved, err := s.store.UpsertCredential(cred)
	if err != nil {
		s.metrics.RecordOAuthCallback(false)
		return nil, fmt.Errorf("failed to store credential: %w", err)
	}

	s.metrics.RecordOAuthCallback(true)
	log.Printf("[Auth] X account connected for user=%s username=%s", saved.UserID, saved.Username)
	return saved, nil
}

// Disconnect removes the stored credential. Removing an absent
// credential is not an error.
func (s *AuthService) Disconnect(userID string) error {
	return s.store.DeleteCredential(userID)
}

// Status reports the connection state for userID.
func (s *AuthService) Status(userID string) (*ConnectionStatus, error) {
	cred, err := s.store.GetCredential(userID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return &ConnectionStatus{Authenticated: false}, nil
		}
		return nil, err
	}
	return &ConnectionStatus{
		Authenticated: true,
		UserID:        cred.UserID,
		Username:      cred.Username,
		ExpiresAt:     cred.ExpiresAt,
	}, nil
}
