package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

// OAuth2 scope required to delete and create events
const calendarScope = calendar.CalendarScope

// ErrNoToken is returned when no usable token is cached and no flow was given
var ErrNoToken = errors.New("no cached token (run the auth command)")

// TokenManager handles OAuth2 token management including refresh
type TokenManager struct {
	config    *oauth2.Config
	tokenFile string
	logger    *slog.Logger
}

// NewTokenManager creates a new token manager from a client secret file
func NewTokenManager(credentialsPath, tokenPath string, logger *slog.Logger) (*TokenManager, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(data, calendarScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}

	return NewTokenManagerWithConfig(config, tokenPath, logger), nil
}

// NewTokenManagerWithConfig creates a token manager around an existing OAuth2 config
func NewTokenManagerWithConfig(config *oauth2.Config, tokenPath string, logger *slog.Logger) *TokenManager {
	if logger == nil {
		logger = slog.Default()
	}

	return &TokenManager{
		config:    config,
		tokenFile: tokenPath,
		logger:    logger,
	}
}

// TokenFile returns the path of the token cache
func (tm *TokenManager) TokenFile() string {
	return tm.tokenFile
}

// LoadToken loads a saved token from disk
func (tm *TokenManager) LoadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(tm.tokenFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}

	return &token, nil
}

// SaveToken saves a token to disk, creating the cache directory if needed
func (tm *TokenManager) SaveToken(token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(tm.tokenFile), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	if err := os.WriteFile(tm.tokenFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	return nil
}

// usable reports whether token can authorize requests as is or after a refresh
func usable(token *oauth2.Token) bool {
	return token.Valid() || token.RefreshToken != ""
}

// IsTokenValid checks if a stored token exists and is usable
func (tm *TokenManager) IsTokenValid() bool {
	token, err := tm.LoadToken()
	if err != nil {
		return false
	}
	return usable(token)
}

// GetTokenExpiry returns the expiry time of the stored token
func (tm *TokenManager) GetTokenExpiry() (time.Time, error) {
	token, err := tm.LoadToken()
	if err != nil {
		return time.Time{}, err
	}
	return token.Expiry, nil
}

// Authorize runs flow to obtain a new token and caches it
func (tm *TokenManager) Authorize(ctx context.Context, flow AuthFlow) (*oauth2.Token, error) {
	config := *tm.config
	state := uuid.NewString()

	code, err := flow.AuthCode(ctx, &config, state)
	if err != nil {
		return nil, fmt.Errorf("authorization failed: %w", err)
	}

	token, err := config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if err := tm.SaveToken(token); err != nil {
		return nil, fmt.Errorf("failed to save token: %w", err)
	}

	tm.logger.Info("Stored credentials", "token_file", tm.tokenFile)
	return token, nil
}

// TokenSource returns a refreshing token source backed by the cache.
// If the cache is missing or unusable, or the authorization server rejects
// the cached refresh token, flow is run to obtain a new one. With a nil flow
// those cases return ErrNoToken instead.
func (tm *TokenManager) TokenSource(ctx context.Context, flow AuthFlow) (oauth2.TokenSource, error) {
	token, err := tm.LoadToken()
	if err != nil || !usable(token) {
		if flow == nil {
			return nil, ErrNoToken
		}
		tm.logger.Info("No usable cached token, starting authorization", "token_file", tm.tokenFile)
		token, err = tm.Authorize(ctx, flow)
		if err != nil {
			return nil, err
		}
	}

	ts := tm.newTokenSource(ctx, token)

	// Refresh now so a revoked grant is caught before any API call
	if _, err := ts.Token(); err != nil {
		if !isInvalidGrant(err) {
			return nil, err
		}
		if flow == nil {
			return nil, fmt.Errorf("%w: cached token was rejected: %v", ErrNoToken, err)
		}

		tm.logger.Warn("Cached token was rejected, starting authorization",
			"token_file", tm.tokenFile,
			"error", err)
		token, err = tm.Authorize(ctx, flow)
		if err != nil {
			return nil, err
		}
		ts = tm.newTokenSource(ctx, token)
	}

	return ts, nil
}

func (tm *TokenManager) newTokenSource(ctx context.Context, token *oauth2.Token) *savingTokenSource {
	return &savingTokenSource{
		base:    tm.config.TokenSource(ctx, token),
		last:    token,
		manager: tm,
	}
}

// isInvalidGrant reports whether err is the authorization server refusing a
// refresh token that has expired or been revoked
func isInvalidGrant(err error) bool {
	var retrieveErr *oauth2.RetrieveError
	return errors.As(err, &retrieveErr) && retrieveErr.ErrorCode == "invalid_grant"
}

// savingTokenSource persists tokens the underlying source refreshes
type savingTokenSource struct {
	mu      sync.Mutex
	base    oauth2.TokenSource
	last    *oauth2.Token
	manager *TokenManager
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to get valid token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last == nil || token.AccessToken != s.last.AccessToken {
		s.manager.logger.Info("Token refreshed, saving new token")
		if err := s.manager.SaveToken(token); err != nil {
			s.manager.logger.Warn("Failed to save refreshed token", "error", err)
		}
		s.last = token
	}

	return token, nil
}
