// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Trimora - 视频裁剪合并工具

package job

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/ZSC714725/trimora/internal/trim"
)

type staticProber struct{ seconds float64 }

func (p staticProber) Duration(string) float64 { return p.seconds }

func fakeFFmpeg(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixtures need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "fake-ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func testSpec(t *testing.T, name string) trim.JobSpec {
	t.Helper()
	input := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(input, []byte("fake video"), 0o644); err != nil {
		t.Fatal(err)
	}
	return trim.JobSpec{
		Input:     input,
		Output:    filepath.Join(t.TempDir(), "out.mp4"),
		Start:     "00:00:00",
		End:       "00:00:10",
		CopyCodec: true,
	}
}

func waitTerminal(t *testing.T, j *Job) trim.State {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if s := j.State(); s.Terminal() {
			return s
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s still %s after deadline", j.ID, j.State())
	return trim.StateNotStarted
}

func newTestStore(t *testing.T, scriptBody string) Store {
	bin := fakeFFmpeg(t, scriptBody)
	driver := trim.NewDriver(trim.Config{Binary: bin, Prober: staticProber{seconds: 10}})
	return NewStore(driver, nil)
}

func TestStoreRunsJob(t *testing.T) {
	s := newTestStore(t, "echo \"out_time_us=5000000\"\nexit 0\n")

	j, err := s.Add(KindSingle, []trim.JobSpec{testSpec(t, "in.mp4")})
	if err != nil {
		t.Fatal(err)
	}
	if j.ID == "" {
		t.Fatal("job has no ID")
	}

	if got := waitTerminal(t, j); got != trim.StateCompleted {
		t.Fatalf("state = %v, results = %+v", got, j.Results())
	}
	if p := j.Progress(); p.Percentage != 100 {
		t.Errorf("final progress = %+v", p)
	}
	if sum := j.Summary(); sum == nil || sum.Success != 1 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestStoreJobFailure(t *testing.T) {
	s := newTestStore(t, "exit 3\n")

	j, err := s.Add(KindSingle, []trim.JobSpec{testSpec(t, "in.mp4")})
	if err != nil {
		t.Fatal(err)
	}

	if got := waitTerminal(t, j); got != trim.StateFailed {
		t.Fatalf("state = %v", got)
	}
	if r := j.Results(); r[0].Reason != "ffmpeg exited with code 3" {
		t.Errorf("reason = %q", r[0].Reason)
	}
}

func TestStoreQueuesSequentially(t *testing.T) {
	s := newTestStore(t, "echo \"out_time_us=5000000\"\nexit 0\n")

	first, err := s.Add(KindSingle, []trim.JobSpec{testSpec(t, "a.mp4")})
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Add(KindSingle, []trim.JobSpec{testSpec(t, "b.mp4")})
	if err != nil {
		t.Fatal(err)
	}

	if waitTerminal(t, first) != trim.StateCompleted {
		t.Fatalf("first job: %+v", first.Results())
	}
	if waitTerminal(t, second) != trim.StateCompleted {
		t.Fatalf("second job: %+v", second.Results())
	}
	if len(s.List()) != 2 {
		t.Errorf("list = %d jobs", len(s.List()))
	}
}

func TestStoreCancelRunningJob(t *testing.T) {
	s := newTestStore(t, "echo \"out_time_us=1000000\"\nexec sleep 30\n")

	j, err := s.Add(KindSingle, []trim.JobSpec{testSpec(t, "in.mp4")})
	if err != nil {
		t.Fatal(err)
	}

	// Wait for the child to come up before cancelling.
	deadline := time.Now().Add(10 * time.Second)
	for j.State() != trim.StateRunning && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if err := s.Cancel(j.ID); err != nil {
		t.Fatal(err)
	}

	if got := waitTerminal(t, j); got != trim.StateCancelled {
		t.Fatalf("state = %v", got)
	}
	// Idempotent on a finished job.
	if err := s.Cancel(j.ID); err != nil {
		t.Errorf("second cancel: %v", err)
	}
}

func TestStoreRejectsBadSpecs(t *testing.T) {
	s := newTestStore(t, "exit 0\n")

	cases := []struct {
		name string
		spec trim.JobSpec
		want error
	}{
		{"missing output", trim.JobSpec{Input: "in.mp4", Start: "0", End: "10"}, ErrInvalidSpec},
		{"reversed range", trim.JobSpec{Input: "in.mp4", Output: "out.mp4", Start: "10", End: "5"}, ErrInvalidSpec},
		{"bad timestamp", trim.JobSpec{Input: "in.mp4", Output: "out.mp4", Start: "abc", End: "10"}, ErrInvalidSpec},
		{"shell metacharacters", trim.JobSpec{Input: "in.mp4; rm -rf /", Output: "out.mp4", Start: "0", End: "10"}, ErrUnsafePath},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.Add(KindSingle, []trim.JobSpec{tc.spec}); err != tc.want {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}

	if _, err := s.Add(KindBatch, nil); err != ErrInvalidSpec {
		t.Errorf("empty batch err = %v", err)
	}
}

func TestStoreGetAndDelete(t *testing.T) {
	s := newTestStore(t, "exit 0\n")

	if _, err := s.Get("nope"); err != ErrNotFound {
		t.Errorf("Get unknown = %v", err)
	}
	if err := s.Delete("nope"); err != ErrNotFound {
		t.Errorf("Delete unknown = %v", err)
	}

	j, err := s.Add(KindSingle, []trim.JobSpec{testSpec(t, "in.mp4")})
	if err != nil {
		t.Fatal(err)
	}
	waitTerminal(t, j)

	got, err := s.Get(j.ID)
	if err != nil || got.ID != j.ID {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if err := s.Delete(j.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(j.ID); err != ErrNotFound {
		t.Errorf("Get after delete = %v", err)
	}
}
