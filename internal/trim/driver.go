// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Trimora - 视频裁剪合并工具

package trim

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/ZSC714725/trimora/internal/ffmpeg/parse"
	"github.com/ZSC714725/trimora/internal/logger"
	"github.com/ZSC714725/trimora/internal/timecode"
)

// Prober reports a media file's total duration in seconds, 0 when it
// cannot be determined.
type Prober interface {
	Duration(input string) float64
}

// Config for a Driver.
type Config struct {
	Binary string
	Prober Prober
	Logger logger.Logger
}

// ErrDriverBusy is returned by Start while a job is running. Callers
// that need more than one job serialize through a Batch.
var ErrDriverBusy = errors.New("a trim job is already running")

// Grace period between the interrupt and the hard kill on cancel.
const killGrace = 5 * time.Second

// Driver runs one trim job at a time. Start spawns a worker goroutine
// that drains the subprocess output; the caller never blocks on the
// child. Progress events are delivered in source line order and the
// terminal status is always the last event.
type Driver struct {
	binary string
	prober Prober
	logger logger.Logger
	usage  usageSampler

	mu        sync.Mutex
	state     State
	cancelled bool
	cmd       *exec.Cmd
	killTimer *time.Timer
}

// NewDriver creates a Driver for the given ffmpeg binary.
func NewDriver(config Config) *Driver {
	log := config.Logger
	if log == nil {
		log = logger.New("trim ")
	}
	return &Driver{
		binary: config.Binary,
		prober: config.Prober,
		logger: log,
		state:  StateNotStarted,
	}
}

// State returns the current lifecycle state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Usage returns CPU percent and RSS of the running child, zeros when
// idle.
func (d *Driver) Usage() (cpu float64, memory uint64) {
	return d.usage.current()
}

// Start validates the spec, spawns the job worker and returns its
// event channel. Tool or input problems surface as a Failed status on
// the channel, not as an error; the only error is ErrDriverBusy.
func (d *Driver) Start(spec JobSpec) (<-chan Event, error) {
	d.mu.Lock()
	if d.state == StateRunning {
		d.mu.Unlock()
		return nil, ErrDriverBusy
	}
	d.state = StateRunning
	d.cancelled = false
	d.mu.Unlock()

	events := make(chan Event, 16)
	go d.run(spec, events)
	return events, nil
}

// Cancel requests cancellation of the running job: the child gets an
// interrupt, then a hard kill after the grace period. Idempotent; no
// effect unless Running. No further progress events are emitted after
// the request is observed.
func (d *Driver) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateRunning || d.cancelled {
		return
	}
	d.cancelled = true
	d.terminate()
}

func (d *Driver) cancelRequested() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelled
}

// terminate interrupts the child and arms the kill timer. d.mu held.
func (d *Driver) terminate() {
	if d.cmd == nil || d.cmd.Process == nil {
		return
	}
	proc := d.cmd.Process
	if runtime.GOOS == "windows" {
		proc.Kill()
		return
	}
	if err := proc.Signal(os.Interrupt); err != nil {
		proc.Kill()
		return
	}
	d.killTimer = time.AfterFunc(killGrace, func() {
		proc.Kill()
	})
}

func (d *Driver) run(spec JobSpec, events chan<- Event) {
	status := d.execute(spec, events)

	d.mu.Lock()
	d.state = status.State
	d.mu.Unlock()

	if status.State == StateFailed {
		d.logger.Error("trim job failed: %s", status.Reason)
	} else {
		d.logger.Info("trim job %s (input %s)", status.State, spec.Input)
	}

	events <- Event{Status: &status}
	close(events)
}

func (d *Driver) execute(spec JobSpec, events chan<- Event) Status {
	if _, err := exec.LookPath(d.binary); err != nil {
		return Status{State: StateFailed, Reason: fmt.Sprintf("ffmpeg not found: %v", err)}
	}
	if _, err := os.Stat(spec.Input); err != nil {
		return Status{State: StateFailed, Reason: fmt.Sprintf("input file does not exist: %s", spec.Input)}
	}
	if dir := filepath.Dir(spec.Output); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Status{State: StateFailed, Reason: fmt.Sprintf("cannot create output directory: %v", err)}
		}
	}

	plan, err := BuildPlan(spec)
	if err != nil {
		return Status{State: StateFailed, Reason: err.Error()}
	}

	// One probe up front; steps with a known segment duration use
	// their own target instead.
	probed := 0.0
	if d.prober != nil {
		probed = d.prober.Duration(spec.Input)
	}

	if plan.ListFile != "" {
		if err := os.WriteFile(plan.ListFile, []byte(ConcatList(plan.TempFiles)), 0o644); err != nil {
			return Status{State: StateFailed, Reason: fmt.Sprintf("cannot write concat list: %v", err)}
		}
	}
	if len(plan.TempFiles) > 0 || plan.ListFile != "" {
		defer d.cleanup(plan)
	}

	steps := len(plan.Steps)
	for i, step := range plan.Steps {
		if d.cancelRequested() {
			return Status{State: StateCancelled, Reason: "cancelled"}
		}
		if st := d.runStep(step, i, steps, probed, events); st != nil {
			return *st
		}
	}

	// A successful job always reports 100%, whatever the last parsed
	// line said.
	final := parse.Progress{Percentage: 100}
	if last := plan.Steps[steps-1]; last.Duration > 0 {
		final.CurrentTime = timecode.Format(last.Duration)
	}
	events <- Event{Progress: &final}

	return Status{State: StateCompleted}
}

// runStep executes one invocation. A nil return means the step
// succeeded; otherwise the returned status ends the job.
func (d *Driver) runStep(step Step, index, total int, probed float64, events chan<- Event) *Status {
	target := step.Duration
	if target <= 0 {
		target = probed
	}

	cmd := exec.Command(d.binary, step.Args...)

	// Merge stdout (machine progress stream) and stderr (status lines)
	// into one readable end.
	r, w, err := os.Pipe()
	if err != nil {
		return &Status{State: StateFailed, Reason: fmt.Sprintf("pipe: %v", err)}
	}
	cmd.Stdout = w
	cmd.Stderr = w

	if err := cmd.Start(); err != nil {
		r.Close()
		w.Close()
		return &Status{State: StateFailed, Reason: fmt.Sprintf("failed to launch ffmpeg: %v", err)}
	}
	w.Close()

	d.attach(cmd)
	defer d.detach()

	scanner := bufio.NewScanner(r)
	scanner.Split(scanLine)
	for scanner.Scan() {
		if d.cancelRequested() {
			break
		}
		p := parse.Parse(scanner.Text(), target)
		if p == (parse.Progress{}) {
			continue
		}
		if total > 1 {
			// Scale the step's percentage into the whole job.
			p.Percentage = (float64(index)*100 + p.Percentage) / float64(total)
		}
		events <- Event{Progress: &p}
	}
	r.Close()

	err = cmd.Wait()

	if d.cancelRequested() {
		return &Status{State: StateCancelled, Reason: "cancelled"}
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &Status{State: StateFailed, Reason: fmt.Sprintf("ffmpeg exited with code %d", exitErr.ExitCode())}
		}
		return &Status{State: StateFailed, Reason: fmt.Sprintf("ffmpeg: %v", err)}
	}
	return nil
}

func (d *Driver) attach(cmd *exec.Cmd) {
	d.mu.Lock()
	d.cmd = cmd
	if d.cancelled {
		// Cancel raced the launch; take the child down now.
		d.terminate()
	}
	d.mu.Unlock()
	d.usage.attach(cmd.Process.Pid)
}

func (d *Driver) detach() {
	d.usage.detach()
	d.mu.Lock()
	d.cmd = nil
	if d.killTimer != nil {
		d.killTimer.Stop()
		d.killTimer = nil
	}
	d.mu.Unlock()
}

// cleanup removes merge temporaries on every exit path.
func (d *Driver) cleanup(plan Plan) {
	for _, f := range plan.TempFiles {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			d.logger.Debug("cleanup %s: %v", f, err)
		}
	}
	if plan.ListFile != "" {
		os.Remove(plan.ListFile)
	}
}
