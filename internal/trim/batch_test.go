// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Trimora - 视频裁剪合并工具

package trim

import (
	"os"
	"path/filepath"
	"testing"
)

// failOnMatch exits nonzero when any argument contains "fail",
// otherwise prints one progress line and succeeds.
const failOnMatch = `for a in "$@"; do
  case "$a" in
    *fail*) exit 3 ;;
  esac
done
echo "out_time_us=5000000"
exit 0
`

func batchSpecs(t *testing.T, names ...string) []JobSpec {
	t.Helper()
	dir := t.TempDir()
	outDir := t.TempDir()

	specs := make([]JobSpec, 0, len(names))
	for _, name := range names {
		input := filepath.Join(dir, name)
		if err := os.WriteFile(input, []byte("fake video"), 0o644); err != nil {
			t.Fatal(err)
		}
		specs = append(specs, JobSpec{
			Input:     input,
			Output:    filepath.Join(outDir, "trimmed_"+name),
			Start:     "00:00:00",
			End:       "00:00:10",
			CopyCodec: true,
		})
	}
	return specs
}

func TestBatchFailureIsolation(t *testing.T) {
	bin := writeScript(t, failOnMatch)
	specs := batchSpecs(t, "one.mp4", "fail.mp4", "three.mp4")

	b := NewBatch(NewDriver(Config{Binary: bin, Prober: staticProber{}}), nil)
	events, err := b.Run(specs)
	if err != nil {
		t.Fatal(err)
	}

	var summary *Summary
	lastJob := -1
	for ev := range events {
		if ev.Summary != nil {
			summary = ev.Summary
			continue
		}
		// Job N's events never interleave with job N+1's
		if ev.JobIndex < lastJob {
			t.Errorf("event for job %d after job %d", ev.JobIndex, lastJob)
		}
		lastJob = ev.JobIndex
	}

	if summary == nil {
		t.Fatal("no summary event")
	}
	if summary.Success != 2 || summary.Failure != 1 || summary.Cancelled {
		t.Fatalf("summary = %+v", summary)
	}

	wantStates := []State{StateCompleted, StateFailed, StateCompleted}
	for i, want := range wantStates {
		if summary.Results[i].State != want {
			t.Errorf("job %d state = %v, want %v", i, summary.Results[i].State, want)
		}
	}
	if summary.Results[1].Reason != "ffmpeg exited with code 3" {
		t.Errorf("job 1 reason = %q", summary.Results[1].Reason)
	}
}

func TestBatchCancelLeavesRestNotStarted(t *testing.T) {
	bin := writeScript(t, "echo \"out_time_us=1000000\"\nexec sleep 30\n")
	specs := batchSpecs(t, "one.mp4", "two.mp4", "three.mp4")

	b := NewBatch(NewDriver(Config{Binary: bin, Prober: staticProber{seconds: 10}}), nil)
	events, err := b.Run(specs)
	if err != nil {
		t.Fatal(err)
	}

	var summary *Summary
	for ev := range events {
		if ev.Event.Progress != nil {
			b.Cancel()
		}
		if ev.Summary != nil {
			summary = ev.Summary
		}
	}

	if summary == nil {
		t.Fatal("no summary event")
	}
	if !summary.Cancelled {
		t.Fatalf("summary = %+v, want cancelled", summary)
	}
	if summary.Success != 0 || summary.Failure != 0 {
		t.Errorf("summary counts = %+v", summary)
	}
	if summary.Results[0].State != StateCancelled {
		t.Errorf("job 0 state = %v, want Cancelled", summary.Results[0].State)
	}
	for i := 1; i < 3; i++ {
		if summary.Results[i].State != StateNotStarted {
			t.Errorf("job %d state = %v, want NotStarted", i, summary.Results[i].State)
		}
	}
}

func TestBatchReusableAfterRun(t *testing.T) {
	bin := writeScript(t, "echo \"out_time_us=5000000\"\nexit 0\n")

	b := NewBatch(NewDriver(Config{Binary: bin, Prober: staticProber{}}), nil)

	for run := 0; run < 2; run++ {
		specs := batchSpecs(t, "a.mp4")
		events, err := b.Run(specs)
		if err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		var summary *Summary
		for ev := range events {
			if ev.Summary != nil {
				summary = ev.Summary
			}
		}
		if summary == nil || summary.Success != 1 {
			t.Fatalf("run %d summary = %+v", run, summary)
		}
	}
}

func TestBatchRejectsConcurrentRun(t *testing.T) {
	bin := writeScript(t, "echo \"out_time_us=1000000\"\nexec sleep 30\n")
	specs := batchSpecs(t, "a.mp4")

	b := NewBatch(NewDriver(Config{Binary: bin, Prober: staticProber{}}), nil)
	events, err := b.Run(specs)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := b.Run(specs); err != ErrBatchRunning {
		t.Errorf("second Run err = %v, want ErrBatchRunning", err)
	}

	b.Cancel()
	for range events {
	}
}
