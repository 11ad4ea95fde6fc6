// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Trimora - 视频裁剪合并工具

// Package job queues trim work behind the single ffmpeg driver and
// keeps the results around for the API to report on.
package job

import (
	"sync"
	"time"

	"github.com/ZSC714725/trimora/internal/ffmpeg/parse"
	"github.com/ZSC714725/trimora/internal/logger"
	"github.com/ZSC714725/trimora/internal/segment"
	"github.com/ZSC714725/trimora/internal/trim"
	"github.com/ZSC714725/trimora/internal/validate"

	"github.com/lithammer/shortuuid/v4"
)

// Kind distinguishes a one-spec job from a batch of independent files.
type Kind string

const (
	KindSingle Kind = "single"
	KindBatch  Kind = "batch"
)

// Job is one queued unit of work. The fixed fields are immutable after
// Add; the mutable state is guarded and read through the getters.
type Job struct {
	ID        string
	Kind      Kind
	Specs     []trim.JobSpec
	CreatedAt int64
	UpdatedAt int64

	mu        sync.RWMutex
	state     trim.State
	progress  parse.Progress
	results   []trim.Status
	summary   *trim.Summary
	current   int
	cancelled bool
	batch     *trim.Batch
}

// State returns the job-level lifecycle state.
func (j *Job) State() trim.State {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.state
}

// Progress returns the latest overall progress snapshot. For a batch
// the percentage spans all files.
func (j *Job) Progress() parse.Progress {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.progress
}

// Results returns the per-spec terminal statuses recorded so far.
func (j *Job) Results() []trim.Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]trim.Status, len(j.results))
	copy(out, j.results)
	return out
}

// Summary returns the batch summary, nil until the job finished.
func (j *Job) Summary() *trim.Summary {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.summary
}

// CurrentIndex returns the index of the spec being processed.
func (j *Job) CurrentIndex() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.current
}

func (j *Job) setState(s trim.State) {
	j.mu.Lock()
	j.state = s
	j.UpdatedAt = time.Now().Unix()
	j.mu.Unlock()
}

// Store manages jobs in memory
type Store interface {
	Add(kind Kind, specs []trim.JobSpec) (*Job, error)
	Get(id string) (*Job, error)
	List() []*Job
	Cancel(id string) error
	Delete(id string) error
}

type store struct {
	driver *trim.Driver
	logger logger.Logger
	jobs   map[string]*Job
	queue  chan *Job
	mu     sync.RWMutex
}

// NewStore creates a job store and starts its worker. Jobs run
// strictly one at a time through the shared driver.
func NewStore(driver *trim.Driver, log logger.Logger) Store {
	if log == nil {
		log = logger.New("job ")
	}
	s := &store{
		driver: driver,
		logger: log,
		jobs:   make(map[string]*Job),
		queue:  make(chan *Job, 64),
	}
	go s.worker()
	return s
}

func (s *store) Add(kind Kind, specs []trim.JobSpec) (*Job, error) {
	if len(specs) == 0 {
		return nil, ErrInvalidSpec
	}
	for _, spec := range specs {
		if err := checkSpec(spec); err != nil {
			return nil, err
		}
	}

	now := time.Now().Unix()
	j := &Job{
		ID:        shortuuid.New(),
		Kind:      kind,
		Specs:     specs,
		CreatedAt: now,
		UpdatedAt: now,
		state:     trim.StateNotStarted,
		results:   make([]trim.Status, len(specs)),
	}

	s.mu.Lock()
	s.jobs[j.ID] = j
	s.mu.Unlock()

	select {
	case s.queue <- j:
	default:
		s.mu.Lock()
		delete(s.jobs, j.ID)
		s.mu.Unlock()
		return nil, ErrQueueFull
	}

	return j, nil
}

func (s *store) Get(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return j, nil
}

func (s *store) List() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j)
	}
	return out
}

// Cancel stops a running job or withdraws a queued one. Cancelling a
// finished job is a no-op.
func (s *store) Cancel(id string) error {
	j, err := s.Get(id)
	if err != nil {
		return err
	}

	j.mu.Lock()
	if j.state.Terminal() {
		j.mu.Unlock()
		return nil
	}
	j.cancelled = true
	batch := j.batch
	j.mu.Unlock()

	if batch != nil {
		batch.Cancel()
	}
	return nil
}

func (s *store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if j.State() == trim.StateRunning {
		return ErrJobRunning
	}
	delete(s.jobs, id)
	return nil
}

func (s *store) worker() {
	for j := range s.queue {
		s.runJob(j)
	}
}

func (s *store) runJob(j *Job) {
	j.mu.Lock()
	if j.cancelled {
		j.state = trim.StateCancelled
		j.UpdatedAt = time.Now().Unix()
		j.mu.Unlock()
		return
	}
	batch := trim.NewBatch(s.driver, s.logger)
	j.batch = batch
	j.state = trim.StateRunning
	j.UpdatedAt = time.Now().Unix()
	j.mu.Unlock()

	events, err := batch.Run(j.Specs)
	if err != nil {
		// Only possible through store misuse; record and move on.
		j.mu.Lock()
		j.state = trim.StateFailed
		j.batch = nil
		j.mu.Unlock()
		s.logger.Error("job %s: %v", j.ID, err)
		return
	}

	// A cancel may have landed between queuing the batch and Run; the
	// batch was not running yet, so repeat it now.
	j.mu.Lock()
	cancelled := j.cancelled
	j.mu.Unlock()
	if cancelled {
		batch.Cancel()
	}

	total := len(j.Specs)
	for ev := range events {
		j.mu.Lock()
		switch {
		case ev.Summary != nil:
			j.summary = ev.Summary
		case ev.Event.Progress != nil:
			p := *ev.Event.Progress
			if total > 1 {
				p.Percentage = (float64(ev.JobIndex)*100 + p.Percentage) / float64(total)
			}
			j.progress = p
			j.current = ev.JobIndex
		case ev.Event.Status != nil:
			j.results[ev.JobIndex] = *ev.Event.Status
		}
		j.UpdatedAt = time.Now().Unix()
		j.mu.Unlock()
	}

	j.mu.Lock()
	j.batch = nil
	switch {
	case j.summary == nil:
		j.state = trim.StateFailed
	case j.summary.Cancelled:
		j.state = trim.StateCancelled
	case j.summary.Failure > 0:
		j.state = trim.StateFailed
	default:
		j.state = trim.StateCompleted
	}
	j.UpdatedAt = time.Now().Unix()
	j.mu.Unlock()

	s.logger.Info("job %s finished: %s", j.ID, j.State())
}

// checkSpec rejects specs the driver would choke on, before they are
// accepted into the queue.
func checkSpec(spec trim.JobSpec) error {
	if spec.Input == "" || spec.Output == "" {
		return ErrInvalidSpec
	}
	if validate.ContainsDangerousChars(spec.Input) || validate.ContainsDangerousChars(spec.Output) {
		return ErrUnsafePath
	}

	if len(spec.Segments) > 0 {
		for _, seg := range spec.Segments {
			if r := segment.Validate(seg); !r.Valid {
				return ErrInvalidSpec
			}
		}
		return nil
	}

	if r := validate.TimeRange(spec.Start, spec.End); !r.Valid {
		return ErrInvalidSpec
	}
	return nil
}
