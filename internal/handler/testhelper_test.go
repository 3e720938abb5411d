package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/quizbeat/api/internal/client"
	"github.com/quizbeat/api/internal/config"
	"github.com/quizbeat/api/internal/middleware"
	"github.com/quizbeat/api/internal/model"
	"github.com/quizbeat/api/internal/service"
	"github.com/quizbeat/api/internal/store"
)

const testQueueToken = "test-queue-token"

// downCatalog simulates a catalog outage: every call fails, so the
// resolver falls back to streaming metadata without touching the
// process-wide rate gate.
type downCatalog struct{}

func (downCatalog) Search(context.Context, string, client.SearchOptions) ([]client.SearchResult, error) {
	return nil, &client.CatalogError{Status: 500, Body: "down"}
}

func (downCatalog) GetMaster(context.Context, int) (*client.Master, error) {
	return nil, &client.CatalogError{Status: 500, Body: "down"}
}

func (downCatalog) GetRelease(context.Context, int) (*client.Release, error) {
	return nil, &client.CatalogError{Status: 500, Body: "down"}
}

func (downCatalog) MasterURL(id int) string { return "https://www.discogs.com/master/0" }

// testApp holds the components handler tests drive directly.
type testApp struct {
	app   *fiber.App
	store *store.JobStore
	quiz  *service.QuizService
}

// setupApp builds a Fiber app wired like main.go, against local Redis
// DB 15 and a scripted-down catalog. Skips when Redis is unavailable.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	redisClient := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // test DB, avoids collision
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { redisClient.Close() })

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr: "localhost:6379",
		DB:   15,
	})
	t.Cleanup(func() { asynqClient.Close() })

	validate := validator.New()

	jobStore := store.NewJobStore(redisClient, time.Hour)
	resolver := service.NewResolver(downCatalog{})
	quizService := service.NewQuizService(resolver, jobStore, asynqClient, nil)

	quizHandler := NewQuizHandler(quizService, validate)
	workerHandler := NewWorkerHandler(quizService, validate)
	streamHandler := NewStreamHandler(jobStore, &config.StreamConfig{
		PollInterval: 20 * time.Millisecond,
		MaxLifetime:  500 * time.Millisecond,
	})

	signatureMiddleware := middleware.NewSignatureMiddleware(testQueueToken)

	app := fiber.New()
	app.Post("/process", quizHandler.Process)
	app.Post("/worker", signatureMiddleware.Verify(), workerHandler.Handle)
	app.Get("/stream", streamHandler.Stream)

	return &testApp{app: app, store: jobStore, quiz: quizService}
}

func doJSON(t *testing.T, app *fiber.App, method, target, body string, headers map[string]string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	return resp
}

func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &result), "body: %s", data)
	return result
}

func songJSON(artist, title, date string) string {
	data, _ := json.Marshal(model.Song{
		Artist:             artist,
		Title:              title,
		SpotifyURL:         "https://open.spotify.com/track/x",
		CurrentReleaseDate: date,
	})
	return string(data)
}
