package model

// JobStatus tracks a background quiz job through its lifetime.
type JobStatus string

const (
	JobStatusQueued        JobStatus = "queued"
	JobStatusProcessing    JobStatus = "processing"
	JobStatusComplete      JobStatus = "complete"
	JobStatusPublishFailed JobStatus = "publish_failed"
	JobStatusWorkerFailed  JobStatus = "worker_failed"
)

// Terminal reports whether a status ends the job; the event stream
// closes once it has drained all results of a terminal job.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusComplete, JobStatusPublishFailed, JobStatusWorkerFailed:
		return true
	}
	return false
}

// QuizJobPayload is the task body handed to the worker.
type QuizJobPayload struct {
	JobID string `json:"jobId"`
	Songs []Song `json:"songsToProcess"`
}

// ProcessRequest is the body of POST /process.
type ProcessRequest struct {
	FirstSong      Song   `json:"firstSong" validate:"required"`
	RemainingSongs []Song `json:"remainingSongs" validate:"dive"`
}

// ProcessResponse returns the inline-resolved first song plus the id
// of the background job resolving the rest.
type ProcessResponse struct {
	ProcessedSong ProcessedSong `json:"processedSong"`
	JobID         string        `json:"jobId"`
}

// WorkerRequest is the body of POST /worker, delivered by the queue.
type WorkerRequest struct {
	JobID          string `json:"jobId" validate:"required,uuid"`
	SongsToProcess []Song `json:"songsToProcess" validate:"dive"`
}

// PlaylistResponse is the body of GET /playlist.
type PlaylistResponse struct {
	Songs []Song `json:"songs"`
}
