// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Trimora - 视频裁剪合并工具

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ZSC714725/trimora/internal/config"
	"github.com/ZSC714725/trimora/internal/ffmpeg"
	"github.com/ZSC714725/trimora/internal/fileman"
	"github.com/ZSC714725/trimora/internal/job"
	"github.com/ZSC714725/trimora/internal/segment"
	"github.com/ZSC714725/trimora/internal/trim"
	"github.com/ZSC714725/trimora/internal/validate"
)

// Handler holds dependencies
type Handler struct {
	store  job.Store
	ffmpeg *ffmpeg.FFmpeg
	cfg    *config.Config
}

// NewHandler creates API handler
func NewHandler(store job.Store, ff *ffmpeg.FFmpeg, cfg *config.Config) *Handler {
	return &Handler{store: store, ffmpeg: ff, cfg: cfg}
}

func errResp(c *gin.Context, code int, msg, detail string) {
	c.JSON(code, ErrorResponse{Code: code, Message: msg, Detail: detail})
}

// Version GET /api/v1/version
func (h *Handler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, VersionResponse{
		Version: h.ffmpeg.Version(),
		Binary:  h.ffmpeg.Binary(),
	})
}

// AddJob POST /api/v1/jobs
func (h *Handler) AddJob(c *gin.Context) {
	var req TrimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errResp(c, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}

	if r := validate.InputFile(req.Input); !r.Valid {
		errResp(c, http.StatusBadRequest, "Invalid input file", r.Message)
		return
	}
	if req.Output != "" {
		if r := validate.OutputPath(req.Output); !r.Valid {
			errResp(c, http.StatusBadRequest, "Invalid output path", r.Message)
			return
		}
	}
	if msg := checkRequest(&req); msg != "" {
		errResp(c, http.StatusBadRequest, "Invalid trim request", msg)
		return
	}

	spec := h.requestToSpec(&req)
	j, err := h.store.Add(job.KindSingle, []trim.JobSpec{spec})
	if err != nil {
		errResp(c, http.StatusBadRequest, "Rejected", err.Error())
		return
	}

	c.JSON(http.StatusOK, jobToResponse(j))
}

// AddBatch POST /api/v1/batches
//
// Per-file existence is not checked here: a missing input fails that
// one job and the rest of the batch still runs.
func (h *Handler) AddBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errResp(c, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if len(req.Jobs) == 0 {
		errResp(c, http.StatusBadRequest, "At least one job required", "")
		return
	}

	specs := make([]trim.JobSpec, 0, len(req.Jobs))
	for i := range req.Jobs {
		if msg := checkRequest(&req.Jobs[i]); msg != "" {
			errResp(c, http.StatusBadRequest, "Invalid trim request", msg)
			return
		}
		specs = append(specs, h.requestToSpec(&req.Jobs[i]))
	}

	j, err := h.store.Add(job.KindBatch, specs)
	if err != nil {
		errResp(c, http.StatusBadRequest, "Rejected", err.Error())
		return
	}

	c.JSON(http.StatusOK, jobToResponse(j))
}

// ListJobs GET /api/v1/jobs
func (h *Handler) ListJobs(c *gin.Context) {
	jobs := h.store.List()
	out := make([]JobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, jobToResponse(j))
	}
	c.JSON(http.StatusOK, out)
}

// GetJob GET /api/v1/jobs/:id
func (h *Handler) GetJob(c *gin.Context) {
	j, err := h.store.Get(c.Param("id"))
	if err != nil {
		errResp(c, http.StatusNotFound, "Unknown job ID", err.Error())
		return
	}
	c.JSON(http.StatusOK, jobToResponse(j))
}

// CancelJob POST /api/v1/jobs/:id/cancel
func (h *Handler) CancelJob(c *gin.Context) {
	if err := h.store.Cancel(c.Param("id")); err != nil {
		errResp(c, http.StatusNotFound, "Unknown job ID", err.Error())
		return
	}
	c.JSON(http.StatusOK, "OK")
}

// DeleteJob DELETE /api/v1/jobs/:id
func (h *Handler) DeleteJob(c *gin.Context) {
	if err := h.store.Delete(c.Param("id")); err != nil {
		if err == job.ErrJobRunning {
			errResp(c, http.StatusConflict, "Job is running", err.Error())
			return
		}
		errResp(c, http.StatusNotFound, "Unknown job ID", err.Error())
		return
	}
	c.JSON(http.StatusOK, "OK")
}

// ValidateRange POST /api/v1/validate/range
func (h *Handler) ValidateRange(c *gin.Context) {
	var req RangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errResp(c, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	c.JSON(http.StatusOK, resultToAPI(validate.TimeRange(req.Start, req.End)))
}

// ValidateSegments POST /api/v1/validate/segments
func (h *Handler) ValidateSegments(c *gin.Context) {
	var req SegmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errResp(c, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}

	resp := SegmentsValidation{Valid: true}
	mgr := segment.NewManager()
	for _, sr := range req.Segments {
		seg := requestToSegment(sr)
		mgr.Add(seg)

		r := segment.Validate(seg)
		if !r.Valid {
			resp.Valid = false
		}
		resp.Segments = append(resp.Segments, resultToAPI(r))
	}

	if mgr.CheckOverlaps(-1) {
		resp.Valid = false
		resp.Overlap = true
	}

	c.JSON(http.StatusOK, resp)
}

// checkRequest validates the time selection of one request. Empty
// string means valid.
func checkRequest(req *TrimRequest) string {
	if len(req.Segments) == 0 {
		if r := validate.TimeRange(req.Start, req.End); !r.Valid {
			return r.Message
		}
		return ""
	}

	mgr := segment.NewManager()
	for _, sr := range req.Segments {
		seg := requestToSegment(sr)
		if r := segment.Validate(seg); !r.Valid {
			return r.Message
		}
		mgr.Add(seg)
	}
	if mgr.CheckOverlaps(-1) {
		return "segments overlap"
	}
	return ""
}

func (h *Handler) requestToSpec(req *TrimRequest) trim.JobSpec {
	output := req.Output
	if output == "" {
		dir := h.cfg.Output.Directory
		if dir == "" {
			dir = fileman.DefaultOutputDir()
		}
		output = fileman.GenerateOutputFilename(req.Input, dir, h.cfg.Output.NamingPattern)
	}

	spec := trim.JobSpec{
		Input:     req.Input,
		Output:    output,
		Start:     req.Start,
		End:       req.End,
		CopyCodec: req.CopyCodec == nil || *req.CopyCodec,
	}
	if req.Mode == "separate" {
		spec.Mode = segment.SeparateFiles
	}
	for _, sr := range req.Segments {
		spec.Segments = append(spec.Segments, requestToSegment(sr))
	}
	return spec
}

func requestToSegment(sr SegmentRequest) segment.Segment {
	return segment.Segment{
		Start:   sr.Start,
		End:     sr.End,
		Name:    sr.Name,
		Enabled: sr.Enabled == nil || *sr.Enabled,
	}
}

func resultToAPI(r validate.Result) ValidationResult {
	out := ValidationResult{Valid: r.Valid, Message: r.Message}
	if !r.Valid {
		out.Kind = r.Kind.String()
	}
	return out
}

func jobToResponse(j *job.Job) JobResponse {
	return JobResponse{
		ID:           j.ID,
		Kind:         string(j.Kind),
		State:        j.State(),
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
		CurrentIndex: j.CurrentIndex(),
		Progress:     j.Progress(),
		Results:      j.Results(),
		Summary:      j.Summary(),
	}
}
