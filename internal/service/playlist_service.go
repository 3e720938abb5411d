package service

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/quizbeat/api/internal/client"
	"github.com/quizbeat/api/internal/model"
)

// StreamingAPI is the slice of the streaming client the sampler needs.
type StreamingAPI interface {
	GetPlaylistTotal(ctx context.Context, playlistID string) (int, error)
	GetPlaylistTracks(ctx context.Context, playlistID string, offset, limit int) ([]client.SpotifyTrack, error)
}

// PlaylistService turns a playlist reference into a randomized
// candidate set of songs.
type PlaylistService struct {
	streaming  StreamingAPI
	sampleSize int
}

func NewPlaylistService(streaming StreamingAPI, sampleSize int) *PlaylistService {
	if sampleSize <= 0 {
		sampleSize = 10
	}
	return &PlaylistService{streaming: streaming, sampleSize: sampleSize}
}

// Sample fetches every track of the playlist, drops unusable entries,
// shuffles and returns at most count songs. count <= 0 uses the
// configured default.
func (s *PlaylistService) Sample(ctx context.Context, playlistURL string, count int) ([]model.Song, error) {
	playlistID, err := client.ParsePlaylistID(playlistURL)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		count = s.sampleSize
	}

	total, err := s.streaming.GetPlaylistTotal(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("playlist total: %w", err)
	}

	songs := make([]model.Song, 0, total)
	for offset := 0; offset < total; offset += client.PlaylistPageSize {
		tracks, err := s.streaming.GetPlaylistTracks(ctx, playlistID, offset, client.PlaylistPageSize)
		if err != nil {
			return nil, fmt.Errorf("playlist tracks at %d: %w", offset, err)
		}
		if len(tracks) == 0 {
			break
		}
		for _, t := range tracks {
			if t.Name == "" || len(t.Artists) == 0 || t.Artists[0].Name == "" {
				continue
			}
			songs = append(songs, model.Song{
				Artist:             t.Artists[0].Name,
				Title:              t.Name,
				SpotifyURL:         t.ExternalURLs.Spotify,
				CurrentReleaseDate: t.Album.ReleaseDate,
			})
		}
	}

	if len(songs) == 0 {
		return nil, fmt.Errorf("playlist %s has no usable tracks", playlistID)
	}

	rand.Shuffle(len(songs), func(i, j int) {
		songs[i], songs[j] = songs[j], songs[i]
	})
	if len(songs) > count {
		songs = songs[:count]
	}
	return songs, nil
}
