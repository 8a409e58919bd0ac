package auth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/novadrive/internal/server"
	"github.com/desertthunder/novadrive/internal/shared"
	"golang.org/x/oauth2"
)

// OAuth scopes requested for the Drive library.
var Scopes = []string{
	"https://www.googleapis.com/auth/drive.readonly",
	"https://www.googleapis.com/auth/userinfo.email",
}

// GoogleEndpoint is the Google OAuth2 endpoint pair.
var GoogleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/v2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

// ConsentRequest describes one interactive token request.
type ConsentRequest struct {
	ClientID string
	Scopes   []string
}

// ConsentResult is a granted token and its lifetime.
type ConsentResult struct {
	AccessToken string
	ExpiresIn   time.Duration
}

// Prompter obtains a token through user consent.
//
// Ready reports whether a prompt can be shown right now. It is polled until it succeeds or a ceiling passes.
type Prompter interface {
	Ready(ctx context.Context) error
	RequestToken(ctx context.Context, req ConsentRequest) (ConsentResult, error)
}

// BrowserPrompter runs the implicit grant in the system browser, relayed through a loopback server.
type BrowserPrompter struct {
	RedirectAddr string
	Endpoint     oauth2.Endpoint
	HTTPClient   *http.Client
	OpenURL      func(string) error
	logger       *log.Logger
}

// NewBrowserPrompter creates a prompter that redirects to addr (e.g. "127.0.0.1:8484").
func NewBrowserPrompter(addr string, logger *log.Logger) *BrowserPrompter {
	return &BrowserPrompter{
		RedirectAddr: addr,
		Endpoint:     GoogleEndpoint,
		HTTPClient:   &http.Client{Timeout: 5 * time.Second},
		OpenURL:      OpenBrowser,
		logger:       logger,
	}
}

// Ready checks that the redirect address can be bound and the authorization endpoint answers.
func (p *BrowserPrompter) Ready(ctx context.Context) error {
	ln, err := net.Listen("tcp", p.RedirectAddr)
	if err != nil {
		return fmt.Errorf("redirect address unavailable: %w", err)
	}
	ln.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.Endpoint.AuthURL, nil)
	if err != nil {
		return err
	}
	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("authorization endpoint unreachable: %w", err)
	}
	resp.Body.Close()
	return nil
}

// RequestToken opens the consent page and waits for the relayed result or ctx cancellation.
func (p *BrowserPrompter) RequestToken(ctx context.Context, req ConsentRequest) (ConsentResult, error) {
	state := shared.GenerateID()
	handler := server.NewImplicitGrantHandler(state)

	mux := server.NewRelayMux()
	mux.Use(server.LoggingMiddleware(p.logger))
	mux.Mount(handler)

	lb, err := server.Listen(p.RedirectAddr, mux)
	if err != nil {
		return ConsentResult{}, fmt.Errorf("%w: %v", shared.ErrIdentityProviderUnavailable, err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		lb.Shutdown(shutdownCtx)
	}()

	cfg := &oauth2.Config{
		ClientID:    req.ClientID,
		Endpoint:    p.Endpoint,
		RedirectURL: lb.URL("/callback"),
		Scopes:      req.Scopes,
	}
	authURL := cfg.AuthCodeURL(state,
		oauth2.SetAuthURLParam("response_type", "token"),
		oauth2.SetAuthURLParam("prompt", "consent"),
	)

	if err := p.OpenURL(authURL); err != nil {
		p.logger.Warn("could not open browser, visit the URL manually", "url", authURL, "error", err)
	} else {
		p.logger.Info("waiting for consent in browser", "redirect", cfg.RedirectURL)
	}

	select {
	case <-ctx.Done():
		return ConsentResult{}, fmt.Errorf("%w: %v", shared.ErrUserCancelled, ctx.Err())
	case result := <-handler.Result():
		if err := result.Error(); err != nil {
			return ConsentResult{}, err
		}
		return ConsentResult{
			AccessToken: result.AccessToken,
			ExpiresIn:   time.Duration(result.ExpiresIn) * time.Second,
		}, nil
	}
}
