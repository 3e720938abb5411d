package model

// WebSocket message types pushed by the hub.
const (
	WSMessageTypeSong = "song"
	WSMessageTypeDone = "done"
)

// WSSongMessage mirrors a `song` stream event over WebSocket.
type WSSongMessage struct {
	Type  string        `json:"type"`
	JobID string        `json:"jobId"`
	Song  ProcessedSong `json:"song"`
}

// WSDoneMessage mirrors the terminal `done` stream event.
type WSDoneMessage struct {
	Type   string    `json:"type"`
	JobID  string    `json:"jobId"`
	Status JobStatus `json:"status"`
}
