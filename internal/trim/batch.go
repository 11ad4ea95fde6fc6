// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Trimora - 视频裁剪合并工具

package trim

import (
	"errors"
	"sync"

	"github.com/ZSC714725/trimora/internal/logger"
)

// ErrBatchRunning is returned when Run is called on a batch that has
// not finished.
var ErrBatchRunning = errors.New("batch already running")

// Summary aggregates one batch run.
type Summary struct {
	Success   int      `json:"success_count"`
	Failure   int      `json:"failure_count"`
	Cancelled bool     `json:"cancelled"`
	Results   []Status `json:"results"`
}

// BatchEvent tags a driver event with the index of the job it belongs
// to. The final event carries the Summary instead (JobIndex -1).
type BatchEvent struct {
	JobIndex int
	Event    Event
	Summary  *Summary
}

// Batch sequences independent jobs through a single Driver, strictly
// one at a time. A failed job does not stop the batch; cancellation
// stops before the next job starts and leaves the rest NotStarted.
type Batch struct {
	driver *Driver
	logger logger.Logger

	mu        sync.Mutex
	index     int
	results   []Status
	cancelled bool
	running   bool
}

// NewBatch creates a Batch around a shared driver.
func NewBatch(driver *Driver, log logger.Logger) *Batch {
	if log == nil {
		log = logger.New("batch ")
	}
	return &Batch{driver: driver, logger: log}
}

// Run processes the jobs in order and returns the event channel. Job
// N's terminal status strictly precedes job N+1's first event; the
// summary is the last event before close. The batch resets itself for
// reuse once the summary is emitted.
func (b *Batch) Run(specs []JobSpec) (<-chan BatchEvent, error) {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return nil, ErrBatchRunning
	}
	b.running = true
	b.cancelled = false
	b.index = 0
	b.results = make([]Status, len(specs)) // zero value is NotStarted
	b.mu.Unlock()

	out := make(chan BatchEvent, 16)
	go b.run(specs, out)
	return out, nil
}

// Cancel stops the batch: the running job is cancelled through the
// driver and no further job starts. Idempotent.
func (b *Batch) Cancel() {
	b.mu.Lock()
	if !b.running || b.cancelled {
		b.mu.Unlock()
		return
	}
	b.cancelled = true
	b.mu.Unlock()

	b.driver.Cancel()
}

// CurrentIndex returns the index of the job being processed.
func (b *Batch) CurrentIndex() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index
}

func (b *Batch) run(specs []JobSpec, out chan<- BatchEvent) {
	defer close(out)

	for i := range specs {
		if b.isCancelled() {
			break
		}

		b.mu.Lock()
		b.index = i
		b.mu.Unlock()

		events, err := b.driver.Start(specs[i])
		if err != nil {
			// Driver misuse, recorded as this job's failure.
			b.setResult(i, Status{State: StateFailed, Reason: err.Error()})
			continue
		}

		for ev := range events {
			if ev.Status != nil {
				b.setResult(i, *ev.Status)
			}
			out <- BatchEvent{JobIndex: i, Event: ev}
		}

		if b.resultAt(i).State == StateCancelled {
			// The driver was cancelled directly; treat the whole batch
			// as cancelled.
			b.mu.Lock()
			b.cancelled = true
			b.mu.Unlock()
		}
	}

	summary := b.summarize()
	b.logger.Info("batch done: %d ok, %d failed, cancelled=%v",
		summary.Success, summary.Failure, summary.Cancelled)
	out <- BatchEvent{JobIndex: -1, Summary: &summary}

	b.mu.Lock()
	b.running = false
	b.index = 0
	b.mu.Unlock()
}

func (b *Batch) isCancelled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cancelled
}

func (b *Batch) setResult(i int, s Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results[i] = s
}

func (b *Batch) resultAt(i int) Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.results[i]
}

func (b *Batch) summarize() Summary {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := Summary{
		Cancelled: b.cancelled,
		Results:   make([]Status, len(b.results)),
	}
	copy(s.Results, b.results)

	for _, r := range b.results {
		switch r.State {
		case StateCompleted:
			s.Success++
		case StateFailed:
			s.Failure++
		case StateCancelled:
			s.Cancelled = true
		}
	}
	return s
}
