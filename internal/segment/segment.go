// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Trimora - 视频裁剪合并工具
//
// Package segment holds the ordered list of trim segments.

package segment

import (
	"fmt"
	"sync"

	"github.com/ZSC714725/trimora/internal/timecode"
	"github.com/ZSC714725/trimora/internal/validate"
)

// Segment is one labeled time range. A disabled segment stays in the
// list but is skipped by export and overlap checks.
type Segment struct {
	Start   string `json:"start"`
	End     string `json:"end"`
	Name    string `json:"name,omitempty"`
	Enabled bool   `json:"enabled"`
}

// New creates an enabled segment.
func New(start, end, name string) Segment {
	return Segment{Start: start, End: end, Name: name, Enabled: true}
}

// Duration returns end-start in seconds, 0 when either timestamp does
// not parse or the range is inverted.
func (s Segment) Duration() float64 {
	start, err := timecode.Parse(s.Start)
	if err != nil {
		return 0
	}
	end, err := timecode.Parse(s.End)
	if err != nil || end <= start {
		return 0
	}
	return end - start
}

// ExportMode selects how multiple segments leave the trimmer.
type ExportMode int

const (
	// MergeAll extracts every enabled segment and concatenates them
	// into a single output file.
	MergeAll ExportMode = iota
	// SeparateFiles writes one output file per enabled segment.
	SeparateFiles
)

func (m ExportMode) String() string {
	if m == SeparateFiles {
		return "separate"
	}
	return "merge"
}

// Manager is the mutable, ordered segment collection. Segments are
// identified by position; moving a segment changes its identity.
type Manager struct {
	mu       sync.RWMutex
	segments []Segment
	mode     ExportMode
}

// NewManager creates an empty manager in merge mode.
func NewManager() *Manager {
	return &Manager{}
}

// Add appends a segment.
func (m *Manager) Add(s Segment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.segments = append(m.segments, s)
}

// RemoveAt deletes the segment at index. Out of bounds is a no-op.
func (m *Manager) RemoveAt(index int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.segments) {
		return
	}
	m.segments = append(m.segments[:index], m.segments[index+1:]...)
}

// UpdateAt replaces the segment at index. Out of bounds is a no-op.
func (m *Manager) UpdateAt(index int, s Segment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.segments) {
		return
	}
	m.segments[index] = s
}

// Clear removes every segment.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.segments = nil
}

// MoveTo moves the segment at from to position to. Equal or out of
// bounds indexes are a no-op.
func (m *Manager) MoveTo(from, to int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.segments)
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		return
	}
	s := m.segments[from]
	m.segments = append(m.segments[:from], m.segments[from+1:]...)
	m.segments = append(m.segments[:to], append([]Segment{s}, m.segments[to:]...)...)
}

// Get returns the segment at index, or the zero Segment when index is
// out of bounds. Callers treat the zero Segment as "not found".
func (m *Manager) Get(index int) Segment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if index < 0 || index >= len(m.segments) {
		return Segment{}
	}
	return m.segments[index]
}

// All returns a copy of the segment list in order.
func (m *Manager) All() []Segment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Segment, len(m.segments))
	copy(out, m.segments)
	return out
}

// Count returns the number of segments, enabled or not.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.segments)
}

// SetExportMode selects merge or separate file export.
func (m *Manager) SetExportMode(mode ExportMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = mode
}

// ExportMode returns the current export mode.
func (m *Manager) ExportMode() ExportMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mode
}

// CheckOverlaps reports whether any two enabled segments overlap as
// open intervals. Touching endpoints do not overlap. Pass -1 to check
// every segment, or an index to leave that segment out of the check.
func (m *Manager) CheckOverlaps(excludeIndex int) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := 0; i < len(m.segments); i++ {
		if i == excludeIndex || !m.segments[i].Enabled {
			continue
		}
		startI, errI := timecode.Parse(m.segments[i].Start)
		endI, errI2 := timecode.Parse(m.segments[i].End)
		if errI != nil || errI2 != nil {
			continue
		}

		for j := i + 1; j < len(m.segments); j++ {
			if j == excludeIndex || !m.segments[j].Enabled {
				continue
			}
			startJ, errJ := timecode.Parse(m.segments[j].Start)
			endJ, errJ2 := timecode.Parse(m.segments[j].End)
			if errJ != nil || errJ2 != nil {
				continue
			}

			if startI < endJ && endI > startJ {
				return true
			}
		}
	}
	return false
}

// Validate checks a single segment's timestamps and range, reusing the
// validate package. The first failing message wins.
func Validate(s Segment) validate.Result {
	if r := validate.Timestamp(s.Start); !r.Valid {
		r.Message = fmt.Sprintf("invalid start time: %s", r.Message)
		return r
	}
	if r := validate.Timestamp(s.End); !r.Valid {
		r.Message = fmt.Sprintf("invalid end time: %s", r.Message)
		return r
	}
	return validate.TimeRange(s.Start, s.End)
}
