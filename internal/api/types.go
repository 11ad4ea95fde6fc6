// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Trimora - 视频裁剪合并工具

package api

import (
	"github.com/ZSC714725/trimora/internal/ffmpeg/parse"
	"github.com/ZSC714725/trimora/internal/trim"
)

// SegmentRequest is one time range in a request body. Enabled defaults
// to true when omitted.
type SegmentRequest struct {
	Start   string `json:"start" binding:"required"`
	End     string `json:"end" binding:"required"`
	Name    string `json:"name"`
	Enabled *bool  `json:"enabled"`
}

// TrimRequest describes one trim job. Either start/end or segments must
// be given. CopyCodec defaults to true when omitted; Mode is "merge"
// (default) or "separate".
type TrimRequest struct {
	Input     string           `json:"input" binding:"required"`
	Output    string           `json:"output"`
	Start     string           `json:"start"`
	End       string           `json:"end"`
	Segments  []SegmentRequest `json:"segments"`
	Mode      string           `json:"mode"`
	CopyCodec *bool            `json:"copy_codec"`
}

// BatchRequest bundles independent trim jobs to run in order.
type BatchRequest struct {
	Jobs []TrimRequest `json:"jobs" binding:"required"`
}

// RangeRequest for POST /validate/range
type RangeRequest struct {
	Start string `json:"start" binding:"required"`
	End   string `json:"end" binding:"required"`
}

// SegmentsRequest for POST /validate/segments
type SegmentsRequest struct {
	Segments []SegmentRequest `json:"segments" binding:"required"`
}

// ValidationResult is one check outcome in API format.
type ValidationResult struct {
	Valid   bool   `json:"valid"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

// SegmentsValidation reports per-segment checks plus the overlap scan.
type SegmentsValidation struct {
	Valid    bool               `json:"valid"`
	Segments []ValidationResult `json:"segments"`
	Overlap  bool               `json:"overlap"`
}

// JobResponse is a job in API responses.
type JobResponse struct {
	ID           string          `json:"id"`
	Kind         string          `json:"kind"`
	State        trim.State      `json:"state"`
	CreatedAt    int64           `json:"created_at"`
	UpdatedAt    int64           `json:"updated_at"`
	CurrentIndex int             `json:"current_index"`
	Progress     parse.Progress  `json:"progress"`
	Results      []trim.Status   `json:"results"`
	Summary      *trim.Summary   `json:"summary,omitempty"`
}

// VersionResponse for GET /version
type VersionResponse struct {
	Version string `json:"version"`
	Binary  string `json:"binary"`
}

// ErrorResponse for API errors
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}
