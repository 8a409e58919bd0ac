package auth

import (
	"context"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/novadrive/internal/models"
	"github.com/desertthunder/novadrive/internal/store"
)

// Storage keys. The expiry is absolute unix milliseconds as a decimal string.
const (
	TokenKey    = "drive_token"
	ExpiryKey   = "drive_token_expiry"
	ClientIDKey = "drive_client_id"
)

// TokenStore persists the bearer credential in a [store.KV].
type TokenStore struct {
	kv     store.KV
	now    func() time.Time
	logger *log.Logger
}

// TokenStoreOption configures a [TokenStore].
type TokenStoreOption func(*TokenStore)

// WithClock replaces the wall clock used for expiry checks.
func WithClock(now func() time.Time) TokenStoreOption {
	return func(s *TokenStore) { s.now = now }
}

// WithTokenLogger sets the logger used for storage failures.
func WithTokenLogger(l *log.Logger) TokenStoreOption {
	return func(s *TokenStore) { s.logger = l }
}

func NewTokenStore(kv store.KV, opts ...TokenStoreOption) *TokenStore {
	s := &TokenStore{kv: kv, now: time.Now, logger: log.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the stored credential.
//
// An expired credential (including the five minute buffer) or a half-written record is cleared and reported absent.
func (s *TokenStore) Get(ctx context.Context) (models.Credential, bool) {
	token, hasToken, err := s.kv.Get(ctx, TokenKey)
	if err != nil {
		s.logger.Warn("failed to read stored token", "error", err)
		return models.Credential{}, false
	}
	rawExpiry, hasExpiry, err := s.kv.Get(ctx, ExpiryKey)
	if err != nil {
		s.logger.Warn("failed to read stored token expiry", "error", err)
		return models.Credential{}, false
	}

	if !hasToken && !hasExpiry {
		return models.Credential{}, false
	}

	ms, err := strconv.ParseInt(rawExpiry, 10, 64)
	if !hasToken || !hasExpiry || token == "" || err != nil {
		s.logger.Warn("discarding incomplete stored credential")
		s.clear(ctx)
		return models.Credential{}, false
	}

	cred := models.Credential{AccessToken: token, ExpiresAt: time.UnixMilli(ms)}
	if cred.Expired(s.now()) {
		s.clear(ctx)
		return models.Credential{}, false
	}
	return cred, true
}

// Save persists token with an expiry of now + expiresIn. Both keys are written together.
func (s *TokenStore) Save(ctx context.Context, token string, expiresIn time.Duration) (models.Credential, error) {
	cred := models.Credential{AccessToken: token, ExpiresAt: s.now().Add(expiresIn)}
	err := s.kv.SetMany(ctx, map[string]string{
		TokenKey:  token,
		ExpiryKey: strconv.FormatInt(cred.ExpiresAt.UnixMilli(), 10),
	})
	return cred, err
}

// Clear removes the stored credential. Clearing an empty store is not an error.
func (s *TokenStore) Clear(ctx context.Context) error {
	return s.kv.DeleteMany(ctx, TokenKey, ExpiryKey)
}

func (s *TokenStore) clear(ctx context.Context) {
	if err := s.Clear(ctx); err != nil {
		s.logger.Warn("failed to clear stored token", "error", err)
	}
}

// Now returns the store's current time.
func (s *TokenStore) Now() time.Time {
	return s.now()
}

