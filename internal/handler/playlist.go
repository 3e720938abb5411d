package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/quizbeat/api/internal/client"
	"github.com/quizbeat/api/internal/model"
	"github.com/quizbeat/api/internal/service"
	"github.com/quizbeat/api/pkg/response"
)

// maxSampleSize caps how many quiz cards one request can ask for.
const maxSampleSize = 20

type PlaylistHandler struct {
	service *service.PlaylistService
}

func NewPlaylistHandler(svc *service.PlaylistService) *PlaylistHandler {
	return &PlaylistHandler{service: svc}
}

// Sample handles GET /playlist: a shuffled candidate set drawn from
// the playlist. The client splits the head off as the first song for
// POST /process.
func (h *PlaylistHandler) Sample(c *fiber.Ctx) error {
	playlistURL := c.Query("url")
	if playlistURL == "" {
		return response.ValidationError(c, "Missing url parameter", nil)
	}

	count := c.QueryInt("count")
	if count > maxSampleSize {
		count = maxSampleSize
	}

	songs, err := h.service.Sample(c.Context(), playlistURL, count)
	if err != nil {
		if errors.Is(err, client.ErrInvalidPlaylistURL) {
			return response.ValidationError(c, err.Error(), nil)
		}
		return response.UpstreamError(c, err.Error())
	}

	return response.OK(c, model.PlaylistResponse{Songs: songs})
}
