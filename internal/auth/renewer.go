package auth

import (
	"context"
	"net/http"

	"github.com/desertthunder/spotx/internal/models"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// DefaultScopes are requested at login; they cover reading and controlling playback.
var DefaultScopes = []string{
	"user-read-private",
	"user-read-email",
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
	"playlist-read-private",
}

// Renewer exchanges a refresh secret for a new token.
type Renewer interface {
	Renew(ctx context.Context, pair *models.ClientSecretPair, refreshSecret string) (*oauth2.Token, error)
}

// OAuthRenewer performs the refresh-token grant with [oauth2.Config.TokenSource].
type OAuthRenewer struct {
	TokenURL   string
	HTTPClient *http.Client
}

// Renew posts the refresh grant to the token endpoint with the client pair in the
// Authorization header. The returned token keeps refreshSecret when the endpoint does not
// rotate it.
func (r *OAuthRenewer) Renew(ctx context.Context, pair *models.ClientSecretPair, refreshSecret string) (*oauth2.Token, error) {
	conf := OAuthConfig(pair, Endpoints{TokenURL: r.TokenURL}, "", nil)

	if r.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.HTTPClient)
	}

	// An empty access token is never valid, so the source always goes to the network.
	return conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshSecret}).Token()
}

// Endpoints overrides the authorization server URLs. Zero values use Spotify's.
type Endpoints struct {
	AuthURL  string
	TokenURL string
}

// OAuthConfig builds the client configuration shared by login and renewal.
func OAuthConfig(pair *models.ClientSecretPair, endpoints Endpoints, redirectURI string, scopes []string) *oauth2.Config {
	if endpoints.AuthURL == "" {
		endpoints.AuthURL = spotifyAuthURL
	}
	if endpoints.TokenURL == "" {
		endpoints.TokenURL = spotifyTokenURL
	}

	return &oauth2.Config{
		ClientID:     pair.ClientID,
		ClientSecret: pair.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   endpoints.AuthURL,
			TokenURL:  endpoints.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}
