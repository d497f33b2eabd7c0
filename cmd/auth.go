package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/desertthunder/spotx/internal/auth"
	"github.com/desertthunder/spotx/internal/models"
	"github.com/desertthunder/spotx/internal/server"
	"github.com/desertthunder/spotx/internal/services"
	"github.com/desertthunder/spotx/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const loginTimeout = 2 * time.Minute

// AuthLogin runs the authorization code flow through a local callback server and hands the
// resulting credential to the lifecycle.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	pair, err := r.clientPair()
	if err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}

	cred, err := r.doOAuth(ctx, pair)
	if err != nil {
		return err
	}

	if err := r.lifecycle.Handoff(ctx, cred, pair); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}

	r.writePlainln("✓ Signed in as %s", cred.Identity)
	r.writePlain("  Credential valid until %s\n", cred.ExpiresAt.Local().Format(time.DateTime))
	r.writePlain("\nYou can now use: spotx session\n")
	return nil
}

// identify asks the profile endpoint who owns tok.
func (r *Runner) identify(ctx context.Context, tok *oauth2.Token) (string, error) {
	gw := r.config.Gateway
	player := services.NewSpotifyPlayer(services.SpotifyPlayerOpts{
		BaseURL:    gw.APIBaseURL,
		HTTPClient: services.NewAuthorizedClient(oauth2.StaticTokenSource(tok), gw.Timeout()),
		MaxRetries: gw.MaxRetries,
		Backoff:    gw.RetryBackoff(),
		Logger:     r.logger,
	})

	profile, err := player.UserProfile(ctx)
	if err != nil {
		return "", err
	}
	if profile.ID == "" {
		return "", fmt.Errorf("profile carried no user id")
	}
	return profile.ID, nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, pair *models.ClientSecretPair) (*models.Credential, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	spotify := r.config.Credentials.Spotify
	scopes := spotify.Scopes
	if len(scopes) == 0 {
		scopes = auth.DefaultScopes
	}

	config := auth.OAuthConfig(pair, auth.Endpoints{
		AuthURL:  r.config.Gateway.AuthURL,
		TokenURL: r.config.Gateway.TokenURL,
	}, spotify.RedirectURI, scopes)

	oauthHandler := server.NewOAuthHandler(server.OAuthHandlerOpts{
		Config:   config,
		State:    state,
		Identify: r.identify,
		Expiry:   r.lifecycle.ExpiryFor,
		Logger:   r.logger,
	})
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(oauthHandler)

	addr := net.JoinHostPort(r.config.Server.Host, strconv.Itoa(r.config.Server.Port))
	srv, err := server.Start(addr, router)
	if err != nil {
		return nil, err
	}
	r.logger.Info("started OAuth callback server", "addr", srv.Addr())

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	authURL := config.AuthCodeURL(state)
	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser automatically", "error", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", loginTimeout)

	timeout := time.NewTimer(loginTimeout)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-srv.Errors():
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, loginTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Credential == nil {
		return nil, fmt.Errorf("%w: no credential received", shared.ErrAuthFailed)
	}
	return result.Credential, nil
}

// AuthImport stores a credential record read from a JSON file, for accounts authorized
// elsewhere. The client pair comes from the config when it is set.
func (r *Runner) AuthImport(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path to a credential JSON file", shared.ErrMissingArgument)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read credential file: %w", err)
	}

	var cred models.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return fmt.Errorf("%w: credential file is not valid JSON: %v", shared.ErrInvalidInput, err)
	}
	if err := cred.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	pair, err := r.clientPair()
	if err != nil {
		r.logger.Warn("client pair not configured, storing credential only", "error", err)
		pair = nil
	}

	if err := r.open(); err != nil {
		return err
	}
	if err := r.lifecycle.Handoff(ctx, &cred, pair); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}

	return r.writePlain("✓ Stored credential for %s\n", cred.Identity)
}

type identityStatus struct {
	Identity  string    `json:"identity"`
	ExpiresAt time.Time `json:"expires_at"`
	Expired   bool      `json:"expired"`
	Scopes    []string  `json:"granted_scopes"`
}

// AuthStatus lists stored identities with their credential expiry. Nothing is renewed.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	ids, err := r.creds.ListIdentities()
	if err != nil {
		return err
	}

	now := time.Now()
	statuses := make([]identityStatus, 0, len(ids))
	for _, id := range ids {
		cred, err := r.creds.Get(id)
		if err != nil {
			return err
		}
		statuses = append(statuses, identityStatus{
			Identity:  id,
			ExpiresAt: cred.ExpiresAt,
			Expired:   cred.Expired(now),
			Scopes:    cred.Scopes,
		})
	}

	if cmd.Bool("json") {
		return r.writeJSON(statuses, true)
	}

	if len(statuses) == 0 {
		return r.writePlain("No identities signed in. Run 'spotx auth login'.\n")
	}

	for _, s := range statuses {
		state := "valid"
		if s.Expired {
			state = "expired, renews on next use"
		}
		r.writePlain("%s\n", s.Identity)
		r.writePlain("   Expires: %s (%s)\n", s.ExpiresAt.Local().Format(time.DateTime), state)
		r.writePlain("   Scopes: %d granted\n", len(s.Scopes))
	}

	if _, err := r.creds.GetClientSecretPair(); err != nil {
		r.writePlain("\n⚠ No client pair stored; expired credentials cannot be renewed.\n")
	}
	return nil
}
