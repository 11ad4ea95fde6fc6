// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Trimora - 视频裁剪合并工具
//
// Package parse turns FFmpeg progress output lines into snapshots.
// Two dialects are recognized: the machine readable -progress stream
// (out_time_us=...) and the human readable stderr status line
// (time=... fps=... speed=...).

package parse

import (
	"math"
	"regexp"
	"strconv"

	"github.com/ZSC714725/trimora/internal/timecode"
)

// Progress is one normalized snapshot. It is transient; no history is
// kept here.
type Progress struct {
	Percentage  float64 `json:"percentage"`
	CurrentTime string  `json:"current_time,omitempty"`
	FPS         string  `json:"fps,omitempty"`
	Speed       string  `json:"speed,omitempty"`
}

var (
	reOutTimeUS = regexp.MustCompile(`out_time_us=\s*([0-9]+)`)
	reTime      = regexp.MustCompile(`time=\s*([0-9]{2,}:[0-9]{2}:[0-9]{2}(?:\.[0-9]{0,3})?)`)
	reFPS       = regexp.MustCompile(`fps=\s*([0-9]+\.?[0-9]*)`)
	reSpeed     = regexp.MustCompile(`speed=\s*([0-9]+\.?[0-9]*)x`)
)

// Parse inspects one output line. The machine dialect wins over the
// human dialect; a line matching neither yields the zero snapshot.
// totalDuration is the target duration of the job in seconds; when it
// is 0 the percentage stays 0.
func Parse(line string, totalDuration float64) Progress {
	var p Progress

	if m := reOutTimeUS.FindStringSubmatch(line); m != nil {
		us, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			return p
		}
		current := float64(us) / 1e6
		p.Percentage = percent(current, totalDuration)
		p.CurrentTime = timecode.Format(current)
		return p
	}

	if m := reTime.FindStringSubmatch(line); m != nil {
		if current, err := timecode.Parse(m[1]); err == nil {
			p.Percentage = percent(current, totalDuration)
			p.CurrentTime = m[1]
		}
		if m := reFPS.FindStringSubmatch(line); m != nil {
			p.FPS = m[1]
		}
		if m := reSpeed.FindStringSubmatch(line); m != nil {
			p.Speed = m[1] + "x"
		}
	}

	return p
}

func percent(current, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Min(100, current/total*100)
}
