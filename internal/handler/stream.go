package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/quizbeat/api/internal/config"
	"github.com/quizbeat/api/internal/model"
	"github.com/quizbeat/api/internal/store"
	"github.com/quizbeat/api/pkg/response"
)

// storeReadTimeout bounds one poll's store round-trips.
const storeReadTimeout = 5 * time.Second

// StreamHandler serves the long-lived event stream. It is a read-only
// observer of the job store: every poll interval it drains new results
// as `song` events and closes with `done` once the job is terminal and
// fully drained.
type StreamHandler struct {
	store        *store.JobStore
	pollInterval time.Duration
	maxLifetime  time.Duration
}

func NewStreamHandler(jobStore *store.JobStore, cfg *config.StreamConfig) *StreamHandler {
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = time.Second
	}
	lifetime := cfg.MaxLifetime
	if lifetime <= 0 {
		lifetime = 60 * time.Second
	}
	return &StreamHandler{
		store:        jobStore,
		pollInterval: poll,
		maxLifetime:  lifetime,
	}
}

// Stream handles GET /stream?jobId=…
func (h *StreamHandler) Stream(c *fiber.Ctx) error {
	jobID := c.Query("jobId")
	if _, err := uuid.Parse(jobID); err != nil {
		return response.ValidationError(c, "Missing or invalid jobId", nil)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		h.run(w, jobID)
	})
	return nil
}

// run polls the store until the job is drained, the deadline expires
// or the client goes away. On deadline expiry the stream closes
// without a done event; the client reconnects and replays from
// index 0.
func (h *StreamHandler) run(w *bufio.Writer, jobID string) {
	deadline := time.Now().Add(h.maxLifetime)
	lastIndex := 0

	for {
		status, songs, err := h.poll(jobID, lastIndex)
		if err != nil {
			writeErrorEvent(w, err)
			return
		}

		for _, song := range songs {
			if err := writeSongEvent(w, song); err != nil {
				return
			}
			lastIndex++
		}

		// Status was read before the drain: once terminal, the results
		// list is frozen, so lastIndex has caught up with it here.
		if status.Terminal() {
			writeDoneEvent(w, status)
			return
		}

		if err := w.Flush(); err != nil {
			// Client disconnected.
			return
		}
		if time.Now().After(deadline) {
			return
		}
		time.Sleep(h.pollInterval)
	}
}

// poll reads the status, then new results. Status first: a terminal
// status freezes the results list, so the drain that follows cannot
// miss a late append.
func (h *StreamHandler) poll(jobID string, from int) (model.JobStatus, []model.ProcessedSong, error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeReadTimeout)
	defer cancel()

	status, err := h.store.GetStatus(ctx, jobID)
	if err != nil {
		return "", nil, err
	}
	songs, err := h.store.ListResults(ctx, jobID, from)
	if err != nil {
		return "", nil, err
	}
	return status, songs, nil
}

func writeSongEvent(w *bufio.Writer, song model.ProcessedSong) error {
	data, err := json.Marshal(song)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: song\ndata: %s\n\n", data); err != nil {
		return err
	}
	return w.Flush()
}

func writeDoneEvent(w *bufio.Writer, status model.JobStatus) {
	fmt.Fprintf(w, "event: done\ndata: %s\n\n", status)
	if err := w.Flush(); err != nil {
		log.Printf("[Stream] flush done event: %v", err)
	}
}

func writeErrorEvent(w *bufio.Writer, cause error) {
	data, err := json.Marshal(fiber.Map{"message": cause.Error()})
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: error\ndata: %s\n\n", data)
	if err := w.Flush(); err != nil {
		log.Printf("[Stream] flush error event: %v", err)
	}
}
