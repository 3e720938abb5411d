package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/quizbeat/api/internal/model"
	"github.com/quizbeat/api/internal/store"
	ws "github.com/quizbeat/api/internal/websocket"
)

const (
	// TaskTypeQuiz is the asynq task type for background song resolution.
	TaskTypeQuiz = "quiz:process"

	// QueueQuiz is the asynq queue quiz jobs are published to.
	QueueQuiz = "quiz"
)

// QuizService coordinates the synchronous first-song path, the
// background job and the job state.
type QuizService struct {
	resolver    *Resolver
	store       *store.JobStore
	asynqClient *asynq.Client
	hub         *ws.Hub
}

func NewQuizService(resolver *Resolver, jobStore *store.JobStore, asynqClient *asynq.Client, hub *ws.Hub) *QuizService {
	return &QuizService{
		resolver:    resolver,
		store:       jobStore,
		asynqClient: asynqClient,
		hub:         hub,
	}
}

// Process resolves the first song inline, creates the job and hands
// the remaining songs to the queue. The first song is returned even
// when publishing fails; only a store failure is an error.
func (s *QuizService) Process(ctx context.Context, req *model.ProcessRequest) (*model.ProcessResponse, error) {
	first := s.resolver.Resolve(ctx, req.FirstSong)
	jobID := uuid.New().String()

	if err := s.store.InitJob(ctx, jobID, first.ReleaseYear); err != nil {
		return nil, fmt.Errorf("failed to init job: %w", err)
	}

	if len(req.RemainingSongs) == 0 {
		if err := s.store.SetStatus(ctx, jobID, model.JobStatusComplete); err != nil {
			return nil, fmt.Errorf("failed to complete empty job: %w", err)
		}
		return &model.ProcessResponse{ProcessedSong: first, JobID: jobID}, nil
	}

	if err := s.enqueue(jobID, req.RemainingSongs); err != nil {
		log.Printf("[Quiz] job %s: publish failed: %v", jobID, err)
		if serr := s.store.SetStatus(ctx, jobID, model.JobStatusPublishFailed); serr != nil {
			log.Printf("[Quiz] job %s: failed to record publish failure: %v", jobID, serr)
		}
	}

	return &model.ProcessResponse{ProcessedSong: first, JobID: jobID}, nil
}

func (s *QuizService) enqueue(jobID string, songs []model.Song) error {
	payload, err := json.Marshal(model.QuizJobPayload{JobID: jobID, Songs: songs})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(TaskTypeQuiz, payload)
	// A quiz job runs once to completion or fails outright.
	_, err = s.asynqClient.Enqueue(task,
		asynq.Queue(QueueQuiz),
		asynq.MaxRetry(0),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// ProcessJob resolves the remaining songs of a job strictly in order,
// deduplicating by release year. Backs both the asynq worker and the
// signed HTTP delivery path.
func (s *QuizService) ProcessJob(ctx context.Context, jobID string, songs []model.Song) error {
	if err := s.store.SetStatus(ctx, jobID, model.JobStatusProcessing); err != nil {
		return s.failJob(ctx, jobID, err)
	}

	for _, song := range songs {
		processed := s.resolver.Resolve(ctx, song)
		appended, err := s.store.AppendResult(ctx, jobID, processed)
		if err != nil {
			return s.failJob(ctx, jobID, err)
		}
		if appended && s.hub != nil {
			s.hub.BroadcastSong(jobID, processed)
		}
	}

	if err := s.store.SetStatus(ctx, jobID, model.JobStatusComplete); err != nil {
		return s.failJob(ctx, jobID, err)
	}
	if s.hub != nil {
		s.hub.BroadcastDone(jobID, model.JobStatusComplete)
	}

	log.Printf("[Quiz] job %s: processed %d songs", jobID, len(songs))
	return nil
}

// failJob records worker failure best-effort and returns the original
// error. The status write ignores ctx's cancellation so a cancelled job
// can still be marked failed.
func (s *QuizService) failJob(ctx context.Context, jobID string, cause error) error {
	log.Printf("[Quiz] job %s: worker failed: %v", jobID, cause)
	if err := s.store.SetStatus(context.WithoutCancel(ctx), jobID, model.JobStatusWorkerFailed); err != nil {
		log.Printf("[Quiz] job %s: failed to record worker failure: %v", jobID, err)
	}
	if s.hub != nil {
		s.hub.BroadcastDone(jobID, model.JobStatusWorkerFailed)
	}
	return cause
}
