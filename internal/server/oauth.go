package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotx/internal/models"
	"github.com/desertthunder/spotx/internal/shared"
	"golang.org/x/oauth2"
)

// Identify resolves the account that authorized tok.
type Identify func(ctx context.Context, tok *oauth2.Token) (string, error)

// OAuthResult contains the result of an OAuth authorization flow.
type OAuthResult struct {
	Credential *models.Credential
	err        error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler handles OAuth2 callback requests for authorization code flow.
// Implements the Handler interface for registration with a Router.
//
// A successful callback yields the identity's first credential, ready for the lifecycle
// handoff.
type OAuthHandler struct {
	config      *oauth2.Config
	state       string
	identify    Identify
	expiry      func(*oauth2.Token) time.Time
	logger      *log.Logger
	resultChan  chan OAuthResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// OAuthHandlerOpts contains configuration options for creating an OAuthHandler.
type OAuthHandlerOpts struct {
	Config *oauth2.Config
	// State should be cryptographically random for CSRF protection.
	State    string
	Identify Identify
	// Expiry converts the token's expiry into the stored one. Defaults to the token's own.
	Expiry func(*oauth2.Token) time.Time
	Logger *log.Logger
}

// NewOAuthHandler creates a new OAuth handler.
func NewOAuthHandler(opts OAuthHandlerOpts) *OAuthHandler {
	if opts.Expiry == nil {
		opts.Expiry = func(tok *oauth2.Token) time.Time { return tok.Expiry }
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &OAuthHandler{
		config:     opts.Config,
		state:      opts.State,
		identify:   opts.Identify,
		expiry:     opts.Expiry,
		logger:     opts.Logger,
		resultChan: make(chan OAuthResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{"/callback"}
}

// ServeHTTP handles the OAuth callback request.
//
// Validates state parameter, exchanges the authorization code for tokens, resolves the
// identity and sends the credential through the result channel.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Only handle callback once
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	state := r.URL.Query().Get("state")
	if state != h.state {
		h.Send(OAuthResult{err: fmt.Errorf("%w: invalid state parameter", shared.ErrAuthFailed)})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		errParam := r.URL.Query().Get("error")
		errDesc := r.URL.Query().Get("error_description")
		h.Send(OAuthResult{err: fmt.Errorf("%w: %s - %s", shared.ErrAuthFailed, errParam, errDesc)})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		h.Send(OAuthResult{err: fmt.Errorf("%w: token exchange failed: %v", shared.ErrAuthFailed, err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	cred, err := h.credential(r.Context(), token)
	if err != nil {
		h.Send(OAuthResult{err: err})
		http.Error(w, "Could not identify account", http.StatusInternalServerError)
		return
	}

	h.logger.Info("authorization complete", "identity", cred.Identity)
	h.Send(OAuthResult{Credential: cred})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `
<!DOCTYPE html>
<html>
<head>
    <title>Authorization Successful</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>✓ Signed in as %s</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`, template.HTMLEscapeString(cred.Identity))
}

func (h *OAuthHandler) credential(ctx context.Context, token *oauth2.Token) (*models.Credential, error) {
	if token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: token response carried no refresh token", shared.ErrAuthFailed)
	}

	identity, err := h.identify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to resolve identity: %v", shared.ErrAuthFailed, err)
	}

	var scopes []string
	if s, ok := token.Extra("scope").(string); ok {
		scopes = models.ParseScopes(s)
	}

	return &models.Credential{
		Identity:      identity,
		AccessSecret:  token.AccessToken,
		RefreshSecret: token.RefreshToken,
		Scopes:        scopes,
		ExpiresAt:     h.expiry(token),
	}, nil
}

// Send sends the OAuth result through the channel (only once).
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving OAuth flow completion.
//
// Channel will receive exactly one result and then be closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.resultChan
}
