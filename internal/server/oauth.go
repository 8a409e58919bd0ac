package server

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/desertthunder/novadrive/internal/shared"
)

// DefaultExpiresIn is used when the provider omits expires_in.
const DefaultExpiresIn = 3599

// GrantResult contains the outcome of an implicit grant consent flow.
type GrantResult struct {
	AccessToken string
	ExpiresIn   int // seconds
	Scope       string
	err         error
}

func (g *GrantResult) Error() error {
	return g.err
}

// ImplicitGrantHandler relays an OAuth2 implicit grant redirect back to the process.
//
// The provider returns the token in the URL fragment, which never reaches a server.
// GET /callback serves a relay page that posts the fragment to POST /token.
// Only the first posted result is delivered; later posts are rejected.
type ImplicitGrantHandler struct {
	state      string
	resultChan chan GrantResult
	once       sync.Once
	mu         sync.Mutex
	tokenHit   bool
}

// NewImplicitGrantHandler creates a handler that accepts results carrying the given state token.
func NewImplicitGrantHandler(state string) *ImplicitGrantHandler {
	return &ImplicitGrantHandler{
		state:      state,
		resultChan: make(chan GrantResult, 1),
	}
}

// Routes returns the method patterns this handler serves.
func (h *ImplicitGrantHandler) Routes() []string {
	return []string{"GET /callback", "POST /token"}
}

// ServeHTTP dispatches between the relay page and the token post.
func (h *ImplicitGrantHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/callback":
		h.serveRelay(w)
	case "/token":
		h.serveToken(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *ImplicitGrantHandler) serveToken(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.tokenHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.tokenHit = true
	h.mu.Unlock()

	if err := r.ParseForm(); err != nil {
		h.Send(GrantResult{err: shared.NewProviderError(http.StatusBadRequest, "malformed relay body: %v", err)})
		http.Error(w, "Malformed body", http.StatusBadRequest)
		return
	}

	if r.PostForm.Get("state") != h.state {
		h.Send(GrantResult{err: shared.NewProviderError(http.StatusBadRequest, "invalid state parameter")})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	if errParam := r.PostForm.Get("error"); errParam != "" {
		h.Send(GrantResult{err: grantError(errParam, r.PostForm.Get("error_description"))})
		w.WriteHeader(http.StatusOK)
		return
	}

	token := r.PostForm.Get("access_token")
	if token == "" {
		h.Send(GrantResult{err: shared.NewProviderError(http.StatusBadRequest, "response did not include an access token")})
		http.Error(w, "Missing access token", http.StatusBadRequest)
		return
	}

	expiresIn := DefaultExpiresIn
	if raw := r.PostForm.Get("expires_in"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.Send(GrantResult{err: shared.NewProviderError(http.StatusBadRequest, "invalid expires_in %q", raw)})
			http.Error(w, "Invalid expires_in", http.StatusBadRequest)
			return
		}
		expiresIn = n
	}

	h.Send(GrantResult{AccessToken: token, ExpiresIn: expiresIn, Scope: r.PostForm.Get("scope")})
	w.WriteHeader(http.StatusOK)
}

func grantError(code, desc string) error {
	switch code {
	case "access_denied":
		return shared.ErrAccessDenied
	case "popup_closed_by_user", "popup_closed", "user_cancelled":
		return shared.ErrUserCancelled
	default:
		return shared.NewProviderError(http.StatusBadRequest, "authorization failed: %s - %s", code, desc)
	}
}

func (h *ImplicitGrantHandler) serveRelay(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, relayPage)
}

// Send sends the grant result through the channel (only once).
func (h *ImplicitGrantHandler) Send(result GrantResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving grant completion.
//
// Channel will receive exactly one result and then be closed.
func (h *ImplicitGrantHandler) Result() <-chan GrantResult {
	return h.resultChan
}

const relayPage = `<!DOCTYPE html>
<html>
<head>
    <title>NovaDrive</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #0f0f14; color: #e5e5e5; }
        .container { text-align: center; padding: 2rem; border-radius: 8px; background: #1a1a24; }
        h1 { color: #8b5cf6; margin: 0 0 1rem 0; }
        p { color: #9ca3af; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1 id="title">Connecting…</h1>
        <p id="msg">Finishing sign in.</p>
    </div>
    <script>
        var params = new URLSearchParams(window.location.hash.slice(1));
        fetch("/token", { method: "POST", body: params })
            .then(function (res) {
                var ok = res.ok && !params.get("error");
                document.getElementById("title").textContent = ok ? "Connected" : "Authorization failed";
                document.getElementById("msg").textContent = "You can close this window and return to the terminal.";
            });
    </script>
</body>
</html>
`
