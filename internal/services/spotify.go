// Spotify Web API implementation of [Player]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotx/internal/models"
	"github.com/desertthunder/spotx/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyBaseURL     = "https://api.spotify.com/v1"
	defaultQueueLength = 5
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Country     string `json:"country"`
	Product     string `json:"product"` // premium, free, etc.
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyTrack represents a Spotify track. Episodes decode into the same shape with an empty album.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int64           `json:"duration_ms"`
	Explicit   bool            `json:"explicit"`
	URI        string          `json:"uri"`
	Type       string          `json:"type"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	ReleaseDate string          `json:"release_date"`
	TotalTracks int             `json:"total_tracks"`
	Images      []SpotifyImage  `json:"images"`
	URI         string          `json:"uri"`
}

// SpotifyDevice represents a playback device.
type SpotifyDevice struct {
	ID            string `json:"id"`
	IsActive      bool   `json:"is_active"`
	IsRestricted  bool   `json:"is_restricted"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	VolumePercent *int   `json:"volume_percent"`
}

// SpotifyCurrentlyPlaying is the currently-playing payload.
type SpotifyCurrentlyPlaying struct {
	ProgressMS           int64         `json:"progress_ms"`
	IsPlaying            bool          `json:"is_playing"`
	Item                 *SpotifyTrack `json:"item"`
	CurrentlyPlayingType string        `json:"currently_playing_type"`
}

// SpotifyQueue is the user's playback queue.
type SpotifyQueue struct {
	CurrentlyPlaying *SpotifyTrack  `json:"currently_playing"`
	Queue            []SpotifyTrack `json:"queue"`
}

// Owner is a playlist owner.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type simplePlaylistTrack struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID     string              `json:"id"`
	Name   string              `json:"name"`
	Owner  Owner               `json:"owner"`
	Public bool                `json:"public"`
	Tracks simplePlaylistTrack `json:"tracks"`
	URI    string              `json:"uri"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items  []SpotifySimplePlaylist `json:"items"`
	Total  int                     `json:"total"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
	Next   *string                 `json:"next"`
}

// SpotifyPlayer implements [Player] against the Spotify Web API.
//
// Authorization is the HTTP client's concern: build it with [NewAuthorizedClient] so every
// request carries a credential that is valid when it is sent.
type SpotifyPlayer struct {
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxRetries  int
	backoff     time.Duration
	queueLength int
	logger      *log.Logger
}

var _ Player = (*SpotifyPlayer)(nil)

// SpotifyPlayerOpts contains configuration options for creating a SpotifyPlayer.
type SpotifyPlayerOpts struct {
	BaseURL           string
	HTTPClient        *http.Client
	MaxRetries        int
	Backoff           time.Duration
	RequestsPerSecond float64
	QueueLength       int
	Logger            *log.Logger
}

// NewSpotifyPlayer creates a new [SpotifyPlayer].
func NewSpotifyPlayer(opts SpotifyPlayerOpts) *SpotifyPlayer {
	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.QueueLength <= 0 {
		opts.QueueLength = defaultQueueLength
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &SpotifyPlayer{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		httpClient:  opts.HTTPClient,
		limiter:     limiter,
		maxRetries:  opts.MaxRetries,
		backoff:     opts.Backoff,
		queueLength: opts.QueueLength,
		logger:      opts.Logger,
	}
}

// NewAuthorizedClient returns an HTTP client that asks src for a token before each request.
func NewAuthorizedClient(src oauth2.TokenSource, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &oauth2.Transport{Source: src, Base: http.DefaultTransport},
		Timeout:   timeout,
	}
}

// doRequest performs a request to the Spotify API.
//
// When result is non-nil a 204 response returns [shared.ErrNoContent]; for commands a 204 is
// plain success. Credential failures surface unwrapped from the transport so callers can
// classify them; every other failure wraps [shared.ErrGateway].
func (s *SpotifyPlayer) doRequest(ctx context.Context, method, endpoint string, query url.Values, body any, result any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	apiURL := s.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.doRequestWithRetry(req)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrRenewalRejected), errors.Is(err, shared.ErrNotFound), errors.Is(err, shared.ErrStorage):
			return fmt.Errorf("authorize request: %w", err)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		}
		return fmt.Errorf("%w: %w", shared.ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newGatewayError(resp)
	}

	if result == nil {
		return nil
	}

	if resp.StatusCode == http.StatusNoContent {
		return shared.ErrNoContent
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		if errors.Is(err, io.EOF) {
			return shared.ErrNoContent
		}
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrGateway, err)
	}

	return nil
}

func deviceQuery(deviceID string) url.Values {
	q := url.Values{}
	if deviceID != "" {
		q.Set("device_id", deviceID)
	}
	return q
}

// CurrentlyPlaying returns [shared.ErrNoContent] when nothing is playing or the item is not a
// track the service describes (ads, unavailable media).
func (s *SpotifyPlayer) CurrentlyPlaying(ctx context.Context) (*models.PlaybackSnapshot, error) {
	var cp SpotifyCurrentlyPlaying
	q := url.Values{"additional_types": {"track,episode"}}
	if err := s.doRequest(ctx, http.MethodGet, "/me/player/currently-playing", q, nil, &cp); err != nil {
		return nil, err
	}

	if cp.Item == nil {
		return nil, shared.ErrNoContent
	}

	track := mapTrack(*cp.Item)
	return &models.PlaybackSnapshot{
		Active:   &track,
		Progress: models.NewProgress(cp.ProgressMS, cp.Item.DurationMS),
		Playing:  cp.IsPlaying,
	}, nil
}

// Queue returns at most the configured number of upcoming tracks.
func (s *SpotifyPlayer) Queue(ctx context.Context) ([]models.TrackRef, error) {
	var q SpotifyQueue
	if err := s.doRequest(ctx, http.MethodGet, "/me/player/queue", nil, nil, &q); err != nil {
		return nil, err
	}

	n := min(len(q.Queue), s.queueLength)
	upcoming := make([]models.TrackRef, 0, n)
	for _, t := range q.Queue[:n] {
		upcoming = append(upcoming, mapTrack(t))
	}
	return upcoming, nil
}

// Devices lists the devices the account can play on.
func (s *SpotifyPlayer) Devices(ctx context.Context) ([]models.Device, error) {
	var response struct {
		Devices []SpotifyDevice `json:"devices"`
	}
	if err := s.doRequest(ctx, http.MethodGet, "/me/player/devices", nil, nil, &response); err != nil {
		return nil, err
	}

	devices := make([]models.Device, 0, len(response.Devices))
	for _, d := range response.Devices {
		devices = append(devices, mapDevice(d))
	}
	return devices, nil
}

func (s *SpotifyPlayer) Next(ctx context.Context, deviceID string) error {
	return s.doRequest(ctx, http.MethodPost, "/me/player/next", deviceQuery(deviceID), nil, nil)
}

func (s *SpotifyPlayer) Previous(ctx context.Context, deviceID string) error {
	return s.doRequest(ctx, http.MethodPost, "/me/player/previous", deviceQuery(deviceID), nil, nil)
}

func (s *SpotifyPlayer) Play(ctx context.Context, deviceID, contextURI string) error {
	var body any
	if contextURI != "" {
		body = map[string]string{"context_uri": contextURI}
	}
	return s.doRequest(ctx, http.MethodPut, "/me/player/play", deviceQuery(deviceID), body, nil)
}

func (s *SpotifyPlayer) Pause(ctx context.Context, deviceID string) error {
	return s.doRequest(ctx, http.MethodPut, "/me/player/pause", deviceQuery(deviceID), nil, nil)
}

func (s *SpotifyPlayer) SetShuffle(ctx context.Context, enabled bool, deviceID string) error {
	q := deviceQuery(deviceID)
	q.Set("state", strconv.FormatBool(enabled))
	return s.doRequest(ctx, http.MethodPut, "/me/player/shuffle", q, nil, nil)
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyPlayer) UserProfile(ctx context.Context) (*Profile, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &Profile{ID: user.ID, DisplayName: user.DisplayName, Email: user.Email, Product: user.Product}, nil
}

// UserPlaylists retrieves one page of the current user's playlists.
func (s *SpotifyPlayer) UserPlaylists(ctx context.Context, limit, offset int) (*SpotifyPaginatedPlaylists, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var response SpotifyPaginatedPlaylists
	if err := s.doRequest(ctx, http.MethodGet, "/me/playlists", q, nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Playlists retrieves every playlist for the authenticated user.
func (s *SpotifyPlayer) Playlists(ctx context.Context) ([]Playlist, error) {
	var all []Playlist
	limit := 50
	offset := 0

	for {
		response, err := s.UserPlaylists(ctx, limit, offset)
		if err != nil {
			return nil, err
		}

		for _, sp := range response.Items {
			all = append(all, Playlist{
				ID:         sp.ID,
				Name:       sp.Name,
				URI:        sp.URI,
				Owner:      sp.Owner.DisplayName,
				TrackCount: sp.Tracks.Total,
				Public:     sp.Public,
			})
		}

		if response.Next == nil || len(response.Items) == 0 {
			break
		}
		offset += limit
	}

	return all, nil
}
