package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/novadrive/internal/models"
	"github.com/desertthunder/novadrive/internal/shared"
	"github.com/desertthunder/novadrive/internal/store"
	"golang.org/x/sync/singleflight"
)

// State is the connection state of a [Session].
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Readiness polling bounds for the consent prompter.
const (
	ReadyInterval = 100 * time.Millisecond
	ReadyCeiling  = 10 * time.Second
)

// SessionOpts configures a [Session].
type SessionOpts struct {
	Tokens       *TokenStore
	KV           store.KV // holds the client id fallback
	Prompter     Prompter
	Identity     IdentityVerifier
	ClientID     string // from config or env; wins over the stored value
	AllowedEmail string // empty disables the identity check
	Logger       *log.Logger

	ReadyInterval time.Duration
	ReadyCeiling  time.Duration
}

// Session owns the connection lifecycle and the single in-memory credential.
//
// Concurrent Connect calls share one consent flow and its result.
type Session struct {
	tokens       *TokenStore
	kv           store.KV
	prompter     Prompter
	identity     IdentityVerifier
	clientID     string
	allowedEmail string
	logger       *log.Logger
	interval     time.Duration
	ceiling      time.Duration

	group singleflight.Group

	mu    sync.RWMutex
	state State
	cred  *models.Credential
}

func NewSession(opts SessionOpts) *Session {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.ReadyInterval == 0 {
		opts.ReadyInterval = ReadyInterval
	}
	if opts.ReadyCeiling == 0 {
		opts.ReadyCeiling = ReadyCeiling
	}
	return &Session{
		tokens:       opts.Tokens,
		kv:           opts.KV,
		prompter:     opts.Prompter,
		identity:     opts.Identity,
		clientID:     opts.ClientID,
		allowedEmail: opts.AllowedEmail,
		logger:       shared.WithLogger(opts.Logger, "component", "auth"),
		interval:     opts.ReadyInterval,
		ceiling:      opts.ReadyCeiling,
	}
}

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Credential returns the live in-memory credential.
func (s *Session) Credential() (models.Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred == nil {
		return models.Credential{}, false
	}
	return *s.cred, true
}

// CanPrompt reports whether an interactive Connect is possible.
func (s *Session) CanPrompt() bool {
	return s.prompter != nil
}

// ClientID returns the configured client id, falling back to the stored one.
func (s *Session) ClientID(ctx context.Context) string {
	s.mu.RLock()
	id := s.clientID
	s.mu.RUnlock()
	if id != "" || s.kv == nil {
		return id
	}

	stored, ok, err := s.kv.Get(ctx, ClientIDKey)
	if err != nil {
		s.logger.Warn("failed to read stored client id", "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return stored
}

// SetClientID stores id for later runs and uses it immediately.
func (s *Session) SetClientID(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: client id", shared.ErrMissingArgument)
	}
	if s.kv != nil {
		if err := s.kv.Set(ctx, ClientIDKey, id); err != nil {
			return fmt.Errorf("failed to save client id: %w", err)
		}
	}
	s.mu.Lock()
	s.clientID = id
	s.mu.Unlock()
	return nil
}

// Connect acquires a credential through the consent prompter.
func (s *Session) Connect(ctx context.Context) (models.Credential, error) {
	clientID := s.ClientID(ctx)
	if clientID == "" {
		return models.Credential{}, shared.ErrMissingClientConfiguration
	}
	if s.prompter == nil {
		return models.Credential{}, fmt.Errorf("%w: no consent prompter", shared.ErrIdentityProviderUnavailable)
	}

	v, err, joined := s.group.Do("connect", func() (any, error) {
		return s.connect(ctx, clientID)
	})
	if joined {
		s.logger.Debug("joined in-flight connect")
	}
	if err != nil {
		return models.Credential{}, err
	}
	return v.(models.Credential), nil
}

// connect keeps any live credential until a new one is granted. A failed attempt
// restores the previous state.
func (s *Session) connect(ctx context.Context, clientID string) (cred models.Credential, err error) {
	s.mu.Lock()
	prevState, prevCred := s.state, s.cred
	s.state = Connecting
	s.mu.Unlock()

	defer func() {
		if err != nil {
			s.mu.Lock()
			if s.state == Connecting {
				s.state, s.cred = prevState, prevCred
			}
			s.mu.Unlock()
			s.logger.Warn("connect failed", "error", err)
		}
	}()

	if err := shared.WaitFor(ctx, s.interval, s.ceiling, s.prompter.Ready); err != nil {
		if errors.Is(err, shared.ErrTimeout) {
			return cred, fmt.Errorf("%w: %v", shared.ErrIdentityProviderUnavailable, err)
		}
		return cred, fmt.Errorf("%w: %v", shared.ErrUserCancelled, err)
	}

	result, err := s.prompter.RequestToken(ctx, ConsentRequest{ClientID: clientID, Scopes: Scopes})
	if err != nil {
		return cred, err
	}

	if s.allowedEmail != "" {
		if err := s.verify(ctx, result.AccessToken); err != nil {
			return cred, err
		}
	}

	cred, err = s.tokens.Save(ctx, result.AccessToken, result.ExpiresIn)
	if err != nil {
		s.logger.Warn("failed to persist credential, keeping it for this run", "error", err)
		err = nil
	}

	s.setState(Connected, &cred)
	s.logger.Info("connected", "expires_at", cred.ExpiresAt.Format(time.RFC3339))
	return cred, nil
}

// verify fails secure: on any error the token is dropped without being saved.
func (s *Session) verify(ctx context.Context, token string) error {
	if s.identity == nil {
		return fmt.Errorf("%w: no identity verifier configured", shared.ErrUnauthorizedIdentity)
	}
	probe := models.Credential{AccessToken: token, ExpiresAt: s.tokens.Now().Add(time.Minute * 10)}
	email, err := s.identity.Email(ctx, probe)
	if err != nil {
		return err
	}
	if !strings.EqualFold(email, s.allowedEmail) {
		return fmt.Errorf("%w: %s is not %s", shared.ErrUnauthorizedIdentity, email, s.allowedEmail)
	}
	return nil
}

// ResumeIfStored restores a non-expired stored credential without prompting.
func (s *Session) ResumeIfStored(ctx context.Context) (models.Credential, bool) {
	cred, ok := s.tokens.Get(ctx)
	if !ok {
		return models.Credential{}, false
	}
	s.setState(Connected, &cred)
	return cred, true
}

// Invalidate drops the credential everywhere, typically after the provider rejects it.
func (s *Session) Invalidate(ctx context.Context) {
	if err := s.tokens.Clear(ctx); err != nil {
		s.logger.Warn("failed to clear stored credential", "error", err)
	}
	s.setState(Disconnected, nil)
}

// Disconnect is a user-initiated [Session.Invalidate].
func (s *Session) Disconnect(ctx context.Context) error {
	if err := s.tokens.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear stored credential: %w", err)
	}
	s.setState(Disconnected, nil)
	return nil
}

func (s *Session) setState(state State, cred *models.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.cred = cred
}
