package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizbeat/api/internal/client"
)

type fakeStreaming struct {
	tracks []client.SpotifyTrack
	err    error

	pages [][2]int
}

func (f *fakeStreaming) GetPlaylistTotal(_ context.Context, _ string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return len(f.tracks), nil
}

func (f *fakeStreaming) GetPlaylistTracks(_ context.Context, _ string, offset, limit int) ([]client.SpotifyTrack, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.pages = append(f.pages, [2]int{offset, limit})
	if offset >= len(f.tracks) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.tracks) {
		end = len(f.tracks)
	}
	return f.tracks[offset:end], nil
}

func track(artist, title string) client.SpotifyTrack {
	var t client.SpotifyTrack
	t.Name = title
	t.Artists = []struct {
		Name string `json:"name"`
	}{{Name: artist}}
	t.Album.ReleaseDate = "1999-01-01"
	t.ExternalURLs.Spotify = "https://open.spotify.com/track/x"
	return t
}

const playlistURL = "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M"

func TestSamplePagesThroughPlaylist(t *testing.T) {
	streaming := &fakeStreaming{}
	for i := 0; i < 120; i++ {
		streaming.tracks = append(streaming.tracks, track("Artist", fmt.Sprintf("Song %d", i)))
	}
	svc := NewPlaylistService(streaming, 10)

	songs, err := svc.Sample(context.Background(), playlistURL, 10)
	require.NoError(t, err)

	assert.Len(t, songs, 10)
	// Full pages of 50, minimal round-trips.
	assert.Equal(t, [][2]int{{0, 50}, {50, 50}, {100, 50}}, streaming.pages)
}

func TestSampleDropsUnusableTracks(t *testing.T) {
	streaming := &fakeStreaming{
		tracks: []client.SpotifyTrack{
			track("Artist", "Keep Me"),
			track("", "No Artist"),
			track("No Title", ""),
		},
	}
	svc := NewPlaylistService(streaming, 10)

	songs, err := svc.Sample(context.Background(), playlistURL, 10)
	require.NoError(t, err)

	require.Len(t, songs, 1)
	assert.Equal(t, "Keep Me", songs[0].Title)
	assert.Equal(t, "1999-01-01", songs[0].CurrentReleaseDate)
}

func TestSampleDefaultCount(t *testing.T) {
	streaming := &fakeStreaming{}
	for i := 0; i < 30; i++ {
		streaming.tracks = append(streaming.tracks, track("Artist", fmt.Sprintf("Song %d", i)))
	}
	svc := NewPlaylistService(streaming, 7)

	songs, err := svc.Sample(context.Background(), playlistURL, 0)
	require.NoError(t, err)
	assert.Len(t, songs, 7)
}

func TestSampleBadURL(t *testing.T) {
	svc := NewPlaylistService(&fakeStreaming{}, 10)

	_, err := svc.Sample(context.Background(), "https://example.com/nope", 10)
	assert.ErrorIs(t, err, client.ErrInvalidPlaylistURL)
}

func TestSampleEmptyPlaylist(t *testing.T) {
	svc := NewPlaylistService(&fakeStreaming{}, 10)

	_, err := svc.Sample(context.Background(), playlistURL, 10)
	assert.Error(t, err)
}
