package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/quizbeat/api/internal/model"
	"github.com/quizbeat/api/internal/service"
)

// QuizWorker consumes queued quiz jobs and resolves their songs.
type QuizWorker struct {
	quizService *service.QuizService
}

// NewQuizWorker creates a new quiz worker.
func NewQuizWorker(quizService *service.QuizService) *QuizWorker {
	return &QuizWorker{quizService: quizService}
}

// ProcessTask handles one quiz job. Songs are resolved strictly in
// order; the catalog's rate budget leaves no room for intra-job
// parallelism.
func (w *QuizWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.QuizJobPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}
	if payload.JobID == "" {
		return fmt.Errorf("task payload missing jobId")
	}

	log.Printf("Starting quiz job: %s (%d songs)", payload.JobID, len(payload.Songs))
	return w.quizService.ProcessJob(ctx, payload.JobID, payload.Songs)
}
