package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/quizbeat/api/internal/model"
)

const writeTimeout = 10 * time.Second

// Hub fans the worker's progress out to WebSocket subscribers. A quiz
// job has a single writer and lives for at most its store TTL, so
// messages are delivered by direct fan-out under a lock; subscriptions
// for a job are torn down as soon as its terminal status goes out.
type Hub struct {
	mu   sync.Mutex
	jobs map[string]map[chan []byte]struct{}
}

func NewHub() *Hub {
	return &Hub{jobs: make(map[string]map[chan []byte]struct{})}
}

// Subscribe registers interest in one job's events. The returned
// channel closes when the job finishes or the subscriber falls behind.
func (h *Hub) Subscribe(jobID string) chan []byte {
	sub := make(chan []byte, 16)

	h.mu.Lock()
	subs := h.jobs[jobID]
	if subs == nil {
		subs = make(map[chan []byte]struct{})
		h.jobs[jobID] = subs
	}
	subs[sub] = struct{}{}
	h.mu.Unlock()

	return sub
}

// Unsubscribe drops a subscription. Safe to call after the hub has
// already torn the job down.
func (h *Hub) Unsubscribe(jobID string, sub chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.jobs[jobID]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub)
	if len(subs) == 0 {
		delete(h.jobs, jobID)
	}
}

// BroadcastSong pushes a freshly appended song to the job's
// subscribers.
func (h *Hub) BroadcastSong(jobID string, song model.ProcessedSong) {
	h.publish(jobID, model.WSSongMessage{
		Type:  model.WSMessageTypeSong,
		JobID: jobID,
		Song:  song,
	}, false)
}

// BroadcastDone pushes the terminal status and closes the job's
// subscriptions; a finished job has nothing further to say.
func (h *Hub) BroadcastDone(jobID string, status model.JobStatus) {
	h.publish(jobID, model.WSDoneMessage{
		Type:   model.WSMessageTypeDone,
		JobID:  jobID,
		Status: status,
	}, true)
}

func (h *Hub) publish(jobID string, msg interface{}, final bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal hub message: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.jobs[jobID]
	for sub := range subs {
		select {
		case sub <- data:
		default:
			// Subscriber stopped draining; cut it loose.
			delete(subs, sub)
			close(sub)
		}
	}
	if final {
		for sub := range subs {
			close(sub)
		}
		delete(h.jobs, jobID)
	}
}

// HandleConnection serves one WebSocket connection until the job
// finishes or the client disconnects.
func (h *Hub) HandleConnection(conn *websocket.Conn, jobID string) {
	sub := h.Subscribe(jobID)
	defer h.Unsubscribe(jobID, sub)

	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-sub:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-disconnected:
			return
		}
	}
}
