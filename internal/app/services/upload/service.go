// Package upload simulates video uploads: a job advances by a random step
// every tick, pauses in processing and then completes. Progress is fanned
// out to watchers for the websocket stream.
package upload

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/video_portal/internal/app/metrics"
	"github.com/R3E-Network/video_portal/pkg/logger"
)

// Job states.
const (
	StateUploading  = "uploading"
	StateProcessing = "processing"
	StateComplete   = "complete"
	StateCanceled   = "canceled"
)

// ProcessingDelay is how long a job stays in processing after reaching 100%.
const ProcessingDelay = 1500 * time.Millisecond

// DefaultRetention is how long finished jobs stay visible when New is given
// no retention.
const DefaultRetention = time.Hour

var (
	// ErrNotFound is returned for unknown or foreign job ids.
	ErrNotFound = errors.New("upload not found")
	// ErrInvalidInput wraps validation failures.
	ErrInvalidInput = errors.New("invalid input")
	// ErrFinished is returned when canceling a job that already ended.
	ErrFinished = errors.New("upload already finished")
)

// Meta describes the uploaded video.
type Meta struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Visibility  string   `json:"visibility"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	IsShort     bool     `json:"isShort"`
	FileName    string   `json:"fileName"`
	Size        int64    `json:"size"`
}

// Job is a snapshot of one upload.
type Job struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Meta      Meta      `json:"meta"`
	Progress  int       `json:"progress"`
	State     string    `json:"state"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Done reports whether the job reached a terminal state.
func (j Job) Done() bool {
	return j.State == StateComplete || j.State == StateCanceled
}

type job struct {
	Job
	progress   float64
	completeAt time.Time
	finishedAt time.Time
	watchers   map[int]chan Job
}

// Service owns the upload jobs.
type Service struct {
	mu        sync.Mutex
	jobs      map[string]*job
	nextSub   int
	rnd       *rand.Rand
	retention time.Duration
	log       *logger.Logger
	now       func() time.Time
}

// New creates an upload service. A nil rnd is seeded from the clock.
// Finished jobs are dropped once they have been terminal for retention.
func New(rnd *rand.Rand, retention time.Duration, log *logger.Logger) *Service {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if log == nil {
		log = logger.NewDefault("upload")
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Service{
		jobs:      make(map[string]*job),
		rnd:       rnd,
		retention: retention,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// TitleFromFileName derives a default title: extension dropped, dashes and
// underscores turned into spaces.
func TitleFromFileName(name string) string {
	base := strings.TrimSuffix(name, path.Ext(name))
	return strings.NewReplacer("_", " ", "-", " ").Replace(base)
}

// Start registers a new upload for userID.
func (s *Service) Start(ctx context.Context, userID string, meta Meta) (Job, error) {
	meta.FileName = strings.TrimSpace(meta.FileName)
	meta.Title = strings.TrimSpace(meta.Title)
	if userID == "" {
		return Job{}, fmt.Errorf("%w: user is required", ErrInvalidInput)
	}
	if meta.FileName == "" {
		return Job{}, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}
	if meta.Title == "" {
		meta.Title = TitleFromFileName(meta.FileName)
	}
	if meta.Title == "" {
		return Job{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	switch meta.Visibility {
	case "":
		meta.Visibility = "public"
	case "public", "unlisted", "private":
	default:
		return Job{}, fmt.Errorf("%w: visibility must be public, unlisted or private", ErrInvalidInput)
	}

	now := s.now()
	j := &job{
		Job: Job{
			ID:        uuid.NewString(),
			UserID:    userID,
			Meta:      meta,
			State:     StateUploading,
			CreatedAt: now,
			UpdatedAt: now,
		},
		watchers: make(map[int]chan Job),
	}

	s.mu.Lock()
	s.jobs[j.ID] = j
	s.mu.Unlock()

	metrics.UploadStarted()
	s.log.WithField("upload_id", j.ID).WithField("user_id", userID).Info("upload started")
	return j.Job, nil
}

// Get returns the job if it belongs to userID.
func (s *Service) Get(ctx context.Context, userID, id string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || j.UserID != userID {
		return Job{}, ErrNotFound
	}
	return j.Job, nil
}

// List returns the user's jobs, newest first.
func (s *Service) List(ctx context.Context, userID string) []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Job{}
	for _, j := range s.jobs {
		if j.UserID == userID {
			out = append(out, j.Job)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	return out
}

// Cancel stops an unfinished job.
func (s *Service) Cancel(ctx context.Context, userID, id string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || j.UserID != userID {
		return Job{}, ErrNotFound
	}
	if j.Done() {
		return j.Job, ErrFinished
	}
	j.State = StateCanceled
	j.Message = "Upload canceled"
	s.finish(j)
	return j.Job, nil
}

// Watch subscribes to updates of a job owned by userID. The current state is
// delivered first. The channel closes when the job ends or stop is called.
func (s *Service) Watch(userID, id string) (<-chan Job, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || j.UserID != userID {
		return nil, nil, ErrNotFound
	}

	ch := make(chan Job, 8)
	ch <- j.Job
	if j.Done() {
		close(ch)
		return ch, func() {}, nil
	}

	s.nextSub++
	sub := s.nextSub
	j.watchers[sub] = ch
	stop := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := j.watchers[sub]; ok {
			delete(j.watchers, sub)
			close(c)
		}
	}
	return ch, stop, nil
}

// Advance moves every active job forward one tick and drops finished jobs
// older than the retention window.
func (s *Service) Advance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, j := range s.jobs {
		switch j.State {
		case StateUploading:
			j.progress += s.rnd.Float64() * 10
			if j.progress >= 100 {
				j.progress = 100
				j.State = StateProcessing
				j.Message = "Processing video..."
				j.completeAt = now.Add(ProcessingDelay)
			}
			j.Progress = int(math.Floor(j.progress))
		case StateProcessing:
			if now.Before(j.completeAt) {
				continue
			}
			j.State = StateComplete
			j.Message = "Upload complete"
			s.finish(j)
			continue
		default:
			if j.Done() && now.Sub(j.finishedAt) >= s.retention {
				delete(s.jobs, id)
			}
			continue
		}
		j.UpdatedAt = now
		s.publish(j)
	}
}

// Active counts unfinished jobs.
func (s *Service) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, j := range s.jobs {
		if !j.Done() {
			n++
		}
	}
	return n
}

// finish publishes the terminal snapshot and closes watchers. Callers hold mu.
func (s *Service) finish(j *job) {
	j.UpdatedAt = s.now()
	j.finishedAt = j.UpdatedAt
	s.publish(j)
	for sub, ch := range j.watchers {
		close(ch)
		delete(j.watchers, sub)
	}
	metrics.UploadFinished()
	s.log.WithField("upload_id", j.ID).WithField("state", j.State).Info("upload finished")
}

// publish sends without blocking; a slow watcher loses its oldest frame.
func (s *Service) publish(j *job) {
	for _, ch := range j.watchers {
		select {
		case ch <- j.Job:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- j.Job:
			default:
			}
		}
	}
}
