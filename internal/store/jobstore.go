package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quizbeat/api/internal/model"
)

// ErrJobNotFound is returned when a job's status key is absent (never
// created, deleted, or TTL-expired).
var ErrJobNotFound = fmt.Errorf("job not found")

// appendScript gates the append on set membership so that concurrent
// appenders for one job cannot commit two songs with the same year.
// All job keys share one TTL, refreshed on every write.
// KEYS[1] = years set, KEYS[2] = results list, KEYS[3] = status;
// ARGV[1] = year, ARGV[2] = serialized song, ARGV[3] = TTL seconds.
var appendScript = redis.NewScript(`
local added = redis.call("SADD", KEYS[1], ARGV[1])
if added == 1 then
	redis.call("RPUSH", KEYS[2], ARGV[2])
end
redis.call("EXPIRE", KEYS[1], ARGV[3])
redis.call("EXPIRE", KEYS[2], ARGV[3])
redis.call("EXPIRE", KEYS[3], ARGV[3])
return added
`)

// JobStore owns the three per-job keys: status, results and years.
// No other component writes them.
type JobStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewJobStore(redisClient *redis.Client, ttl time.Duration) *JobStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &JobStore{redis: redisClient, ttl: ttl}
}

func statusKey(jobID string) string  { return fmt.Sprintf("job:%s:status", jobID) }
func resultsKey(jobID string) string { return fmt.Sprintf("job:%s:results", jobID) }
func yearsKey(jobID string) string   { return fmt.Sprintf("job:%s:years", jobID) }

// InitJob creates a fresh job: status queued, empty results, years
// seeded with the first song's resolved year.
func (s *JobStore) InitJob(ctx context.Context, jobID, firstYear string) error {
	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, statusKey(jobID), string(model.JobStatusQueued), s.ttl)
	pipe.Del(ctx, resultsKey(jobID))
	pipe.Del(ctx, yearsKey(jobID))
	pipe.SAdd(ctx, yearsKey(jobID), firstYear)
	pipe.Expire(ctx, yearsKey(jobID), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("init job %s: %w", jobID, err)
	}
	return nil
}

// SetStatus writes the status and refreshes the TTL on all job keys.
func (s *JobStore) SetStatus(ctx context.Context, jobID string, status model.JobStatus) error {
	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, statusKey(jobID), string(status), s.ttl)
	pipe.Expire(ctx, resultsKey(jobID), s.ttl)
	pipe.Expire(ctx, yearsKey(jobID), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set status %s=%s: %w", jobID, status, err)
	}
	return nil
}

// GetStatus reads the job status. ErrJobNotFound when the key is gone.
func (s *JobStore) GetStatus(ctx context.Context, jobID string) (model.JobStatus, error) {
	val, err := s.redis.Get(ctx, statusKey(jobID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrJobNotFound
		}
		return "", fmt.Errorf("get status %s: %w", jobID, err)
	}
	return model.JobStatus(val), nil
}

// AppendResult appends the song to the job's results unless its
// release year is already committed. Returns whether it was appended.
func (s *JobStore) AppendResult(ctx context.Context, jobID string, song model.ProcessedSong) (bool, error) {
	data, err := json.Marshal(song)
	if err != nil {
		return false, fmt.Errorf("marshal result: %w", err)
	}

	ttlSecs := int(s.ttl.Seconds())
	added, err := appendScript.Run(ctx, s.redis,
		[]string{yearsKey(jobID), resultsKey(jobID), statusKey(jobID)},
		song.ReleaseYear, data, ttlSecs,
	).Int()
	if err != nil {
		return false, fmt.Errorf("append result %s: %w", jobID, err)
	}
	return added == 1, nil
}

// ListResults reads the ordered results list starting at index from.
func (s *JobStore) ListResults(ctx context.Context, jobID string, from int) ([]model.ProcessedSong, error) {
	vals, err := s.redis.LRange(ctx, resultsKey(jobID), int64(from), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list results %s: %w", jobID, err)
	}

	songs := make([]model.ProcessedSong, 0, len(vals))
	for _, v := range vals {
		var song model.ProcessedSong
		if err := json.Unmarshal([]byte(v), &song); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
		songs = append(songs, song)
	}
	return songs, nil
}

// Years reads the committed year set.
func (s *JobStore) Years(ctx context.Context, jobID string) ([]string, error) {
	vals, err := s.redis.SMembers(ctx, yearsKey(jobID)).Result()
	if err != nil {
		return nil, fmt.Errorf("years %s: %w", jobID, err)
	}
	return vals, nil
}

// Delete drops all three job keys.
func (s *JobStore) Delete(ctx context.Context, jobID string) error {
	if err := s.redis.Del(ctx, statusKey(jobID), resultsKey(jobID), yearsKey(jobID)).Err(); err != nil {
		return fmt.Errorf("delete job %s: %w", jobID, err)
	}
	return nil
}
