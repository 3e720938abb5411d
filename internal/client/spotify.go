package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/quizbeat/api/internal/config"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// PlaylistPageSize is the API's maximum page size for playlist
	// tracks; always fetching full pages keeps round-trips minimal.
	PlaylistPageSize = 50
)

var playlistIDExpr = regexp.MustCompile(`playlist/([A-Za-z0-9]+)`)

// ErrInvalidPlaylistURL marks a playlist reference we cannot parse.
var ErrInvalidPlaylistURL = fmt.Errorf("invalid playlist URL")

// SpotifyTrack is the slice of the track object the quiz needs.
type SpotifyTrack struct {
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		ReleaseDate string `json:"release_date"`
	} `json:"album"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
}

type playlistTracksResponse struct {
	Total int `json:"total"`
	Items []struct {
		Track SpotifyTrack `json:"track"`
	} `json:"items"`
}

// SpotifyClient fetches playlist metadata with a cached
// client-credentials bearer token. The oauth2 token source refreshes
// the token shortly before its expires_in window closes.
type SpotifyClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewSpotifyClient builds a client whose transport injects and
// refreshes the bearer token.
func NewSpotifyClient(cfg *config.StreamingConfig) *SpotifyClient {
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     spotifyTokenURL,
	}
	httpClient := cc.Client(context.Background())
	httpClient.Timeout = 30 * time.Second
	return &SpotifyClient{
		httpClient: httpClient,
		baseURL:    spotifyBaseURL,
	}
}

// ParsePlaylistID extracts the playlist token from a share URL.
func ParsePlaylistID(playlistURL string) (string, error) {
	m := playlistIDExpr.FindStringSubmatch(playlistURL)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidPlaylistURL, playlistURL)
	}
	return m[1], nil
}

// GetPlaylistTotal returns the number of tracks in a playlist.
func (c *SpotifyClient) GetPlaylistTotal(ctx context.Context, playlistID string) (int, error) {
	v := url.Values{}
	v.Set("fields", "total")
	v.Set("limit", "1")

	var result playlistTracksResponse
	endpoint := fmt.Sprintf("/playlists/%s/tracks?%s", playlistID, v.Encode())
	if err := c.get(ctx, endpoint, &result); err != nil {
		return 0, err
	}
	return result.Total, nil
}

// GetPlaylistTracks fetches one page of playlist tracks.
func (c *SpotifyClient) GetPlaylistTracks(ctx context.Context, playlistID string, offset, limit int) ([]SpotifyTrack, error) {
	v := url.Values{}
	v.Set("offset", strconv.Itoa(offset))
	v.Set("limit", strconv.Itoa(limit))
	v.Set("fields", "items(track(name,artists(name),album(release_date),external_urls(spotify)))")

	var result playlistTracksResponse
	endpoint := fmt.Sprintf("/playlists/%s/tracks?%s", playlistID, v.Encode())
	if err := c.get(ctx, endpoint, &result); err != nil {
		return nil, err
	}

	tracks := make([]SpotifyTrack, 0, len(result.Items))
	for _, item := range result.Items {
		tracks = append(tracks, item.Track)
	}
	return tracks, nil
}

func (c *SpotifyClient) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("streaming API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}
