// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Trimora - 视频裁剪合并工具
//
// Package trim drives FFmpeg trim and concat jobs to completion.

package trim

import (
	"encoding/json"

	"github.com/ZSC714725/trimora/internal/ffmpeg/parse"
	"github.com/ZSC714725/trimora/internal/segment"
)

// State is the lifecycle state of one trim job.
type State int

const (
	StateNotStarted State = iota
	StateRunning
	StateCompleted
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// MarshalJSON renders the state name, not the numeric value.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Status pairs a state with a human readable reason for failures.
type Status struct {
	State  State  `json:"state"`
	Reason string `json:"reason,omitempty"`
}

// JobSpec describes one trim job. When Segments is empty the job is a
// single Start..End range written to Output. With segments, Mode
// selects between one merged Output and one file per segment derived
// from Output as a base path.
type JobSpec struct {
	Input     string
	Output    string
	Start     string
	End       string
	Segments  []segment.Segment
	CopyCodec bool
	Mode      segment.ExportMode
}

func (s JobSpec) multiSegment() bool {
	return len(s.Segments) > 0
}

// Event is one notification from a running job: either a progress
// snapshot or a status change. Exactly one field is set. The terminal
// status is always the last event before the channel closes.
type Event struct {
	Progress *parse.Progress
	Status   *Status
}
