// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Trimora - 视频裁剪合并工具

package trim

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ZSC714725/trimora/internal/segment"
	"github.com/ZSC714725/trimora/internal/timecode"
	"github.com/ZSC714725/trimora/internal/validate"
)

// ErrNoEnabledSegments is returned when a multi-segment job has every
// segment disabled.
var ErrNoEnabledSegments = errors.New("no enabled segments")

// Step is a single FFmpeg invocation of a Plan. Args never include the
// binary itself; they go straight into exec.Command.
type Step struct {
	Args     []string
	Output   string
	Duration float64 // target duration in seconds, 0 when unknown
}

// Plan is the ordered set of invocations for one job. Merge mode adds
// per-segment temp files and a concat list file that the driver writes
// before the first step and removes afterwards.
type Plan struct {
	Steps     []Step
	TempFiles []string
	ListFile  string
}

// BuildPlan turns a JobSpec into argument vectors. It is pure: nothing
// is executed and no file is touched.
func BuildPlan(spec JobSpec) (Plan, error) {
	if !spec.multiSegment() {
		return Plan{Steps: []Step{{
			Args:     rangeArgs(spec.Input, spec.Output, spec.Start, spec.End, spec.CopyCodec),
			Output:   spec.Output,
			Duration: rangeDuration(spec.Start, spec.End),
		}}}, nil
	}

	enabled := enabledSegments(spec.Segments)
	if len(enabled) == 0 {
		return Plan{}, ErrNoEnabledSegments
	}

	if spec.Mode == segment.SeparateFiles {
		var plan Plan
		for i, seg := range enabled {
			out := segmentOutput(spec.Output, i+1, seg.Name)
			plan.Steps = append(plan.Steps, Step{
				Args:     rangeArgs(spec.Input, out, seg.Start, seg.End, spec.CopyCodec),
				Output:   out,
				Duration: seg.Duration(),
			})
		}
		return plan, nil
	}

	// Merge: extract each enabled segment into a temp file next to the
	// final output, then concatenate losslessly in list order.
	ext := filepath.Ext(spec.Output)
	stem := strings.TrimSuffix(spec.Output, ext)

	plan := Plan{ListFile: spec.Output + ".concat.txt"}
	total := 0.0
	for i, seg := range enabled {
		tmp := fmt.Sprintf("%s.seg%d%s", stem, i+1, ext)
		plan.TempFiles = append(plan.TempFiles, tmp)
		plan.Steps = append(plan.Steps, Step{
			Args:     rangeArgs(spec.Input, tmp, seg.Start, seg.End, spec.CopyCodec),
			Output:   tmp,
			Duration: seg.Duration(),
		})
		total += seg.Duration()
	}
	plan.Steps = append(plan.Steps, Step{
		Args:     concatArgs(plan.ListFile, spec.Output),
		Output:   spec.Output,
		Duration: total,
	})
	return plan, nil
}

// ConcatList renders the concat demuxer input for the temp files, in
// order. Single quotes are escaped the way the demuxer expects.
func ConcatList(tempFiles []string) string {
	var b strings.Builder
	for _, f := range tempFiles {
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(f, "'", `'\''`))
	}
	return b.String()
}

func rangeArgs(input, output, start, end string, copyCodec bool) []string {
	args := []string{"-y", "-progress", "pipe:1", "-ss", start, "-to", end, "-i", input}
	if copyCodec {
		args = append(args, "-c", "copy")
	}
	return append(args, output)
}

func concatArgs(listFile, output string) []string {
	return []string{
		"-y", "-progress", "pipe:1",
		"-f", "concat", "-safe", "0",
		"-i", listFile,
		"-c", "copy",
		output,
	}
}

func enabledSegments(segments []segment.Segment) []segment.Segment {
	var out []segment.Segment
	for _, s := range segments {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// segmentOutput derives a per-segment output path from the base path,
// a 1-based index and the optional segment name.
func segmentOutput(base string, index int, name string) string {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if name != "" {
		return fmt.Sprintf("%s_%02d_%s%s", stem, index, validate.SanitizeFilename(name), ext)
	}
	return fmt.Sprintf("%s_%02d%s", stem, index, ext)
}

func rangeDuration(start, end string) float64 {
	s, err := timecode.Parse(start)
	if err != nil {
		return 0
	}
	e, err := timecode.Parse(end)
	if err != nil || e <= s {
		return 0
	}
	return e - s
}
