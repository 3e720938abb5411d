package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizbeat/api/internal/client"
	"github.com/quizbeat/api/internal/service"
)

type fakePlaylistAPI struct {
	tracks []client.SpotifyTrack
	err    error
}

func (f *fakePlaylistAPI) GetPlaylistTotal(context.Context, string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return len(f.tracks), nil
}

func (f *fakePlaylistAPI) GetPlaylistTracks(_ context.Context, _ string, offset, limit int) ([]client.SpotifyTrack, error) {
	if f.err != nil {
		return nil, f.err
	}
	if offset >= len(f.tracks) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.tracks) {
		end = len(f.tracks)
	}
	return f.tracks[offset:end], nil
}

func playlistApp(api service.StreamingAPI) *fiber.App {
	h := NewPlaylistHandler(service.NewPlaylistService(api, 10))
	app := fiber.New()
	app.Get("/playlist", h.Sample)
	return app
}

func playlistTrack(artist, title string) client.SpotifyTrack {
	var tr client.SpotifyTrack
	tr.Name = title
	tr.Artists = []struct {
		Name string `json:"name"`
	}{{Name: artist}}
	tr.Album.ReleaseDate = "1994-09-13"
	return tr
}

func TestPlaylistSample(t *testing.T) {
	api := &fakePlaylistAPI{}
	for i := 0; i < 15; i++ {
		api.tracks = append(api.tracks, playlistTrack("Artist", fmt.Sprintf("Song %d", i)))
	}
	app := playlistApp(api)

	target := "/playlist?count=5&url=" + url.QueryEscape("https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M")
	resp := doJSON(t, app, http.MethodGet, target, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := parseJSON(t, resp)
	songs, ok := result["songs"].([]interface{})
	require.True(t, ok)
	assert.Len(t, songs, 5)
}

func TestPlaylistMissingURL(t *testing.T) {
	app := playlistApp(&fakePlaylistAPI{})

	resp := doJSON(t, app, http.MethodGet, "/playlist", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPlaylistBadURL(t *testing.T) {
	app := playlistApp(&fakePlaylistAPI{})

	resp := doJSON(t, app, http.MethodGet, "/playlist?url="+url.QueryEscape("https://example.com/x"), "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPlaylistUpstreamFailure(t *testing.T) {
	app := playlistApp(&fakePlaylistAPI{err: fmt.Errorf("streaming API error (status 500)")})

	target := "/playlist?url=" + url.QueryEscape("https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M")
	resp := doJSON(t, app, http.MethodGet, target, "", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}
