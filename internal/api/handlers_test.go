// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Trimora - 视频裁剪合并工具

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ZSC714725/trimora/internal/config"
	"github.com/ZSC714725/trimora/internal/ffmpeg"
	"github.com/ZSC714725/trimora/internal/job"
	"github.com/ZSC714725/trimora/internal/trim"
)

// The stand-in answers the version probe and "writes" its output file,
// which is always the last argument.
const fakeBinary = `case "$1" in
  -version) echo "ffmpeg version 6.0-fake"; exit 0 ;;
esac
for last; do :; done
: > "$last"
echo "out_time_us=5000000"
exit 0
`

func newTestRouter(t *testing.T) (*gin.Engine, *config.Config) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixtures need a POSIX shell")
	}
	gin.SetMode(gin.TestMode)

	bin := filepath.Join(t.TempDir(), "fake-ffmpeg")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"+fakeBinary), 0o755); err != nil {
		t.Fatal(err)
	}

	ff, err := ffmpeg.New(ffmpeg.Config{Binary: bin, ProbeBinary: bin})
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Output.Directory = t.TempDir()

	driver := trim.NewDriver(trim.Config{Binary: ff.Binary(), Prober: ff})
	store := job.NewStore(driver, nil)
	handler := NewHandler(store, ff, cfg)

	r := gin.New()
	v1 := r.Group("/api/v1")
	v1.GET("/version", handler.Version)
	v1.GET("/jobs", handler.ListJobs)
	v1.POST("/jobs", handler.AddJob)
	v1.GET("/jobs/:id", handler.GetJob)
	v1.POST("/jobs/:id/cancel", handler.CancelJob)
	v1.DELETE("/jobs/:id", handler.DeleteJob)
	v1.POST("/batches", handler.AddBatch)
	v1.POST("/validate/range", handler.ValidateRange)
	v1.POST("/validate/segments", handler.ValidateSegments)
	return r, cfg
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestVersionEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/version", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp VersionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(resp.Version, "ffmpeg version") {
		t.Errorf("version = %q", resp.Version)
	}
}

func TestValidateRangeEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/validate/range",
		`{"start":"00:00:05","end":"00:00:10"}`)
	var res ValidationResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if !res.Valid {
		t.Errorf("valid range rejected: %+v", res)
	}

	w = doJSON(t, r, http.MethodPost, "/api/v1/validate/range",
		`{"start":"00:00:10","end":"00:00:05"}`)
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Valid || res.Kind != "start_time_after_end_time" {
		t.Errorf("reversed range: %+v", res)
	}
}

func TestValidateSegmentsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/validate/segments",
		`{"segments":[{"start":"0","end":"10"},{"start":"5","end":"15"}]}`)
	var res SegmentsValidation
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Valid || !res.Overlap {
		t.Errorf("overlapping segments: %+v", res)
	}
	if len(res.Segments) != 2 || !res.Segments[0].Valid {
		t.Errorf("per-segment results: %+v", res.Segments)
	}

	// Disabled segments do not count against the overlap check.
	w = doJSON(t, r, http.MethodPost, "/api/v1/validate/segments",
		`{"segments":[{"start":"0","end":"10"},{"start":"5","end":"15","enabled":false}]}`)
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if !res.Valid || res.Overlap {
		t.Errorf("disabled overlap: %+v", res)
	}
}

func TestAddJobRejectsMissingInput(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/jobs",
		`{"input":"/nonexistent/in.mp4","start":"0","end":"10"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestGetJobNotFound(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/jobs/nope", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestAddJobDefaultsOutput(t *testing.T) {
	r, cfg := newTestRouter(t)

	input := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(input, []byte("fake video"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, r, http.MethodPost, "/api/v1/jobs",
		`{"input":"`+input+`","start":"00:00:00","end":"00:00:05"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp JobResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ID == "" || resp.Kind != "single" {
		t.Fatalf("job = %+v", resp)
	}

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		w = doJSON(t, r, http.MethodGet, "/api/v1/jobs/"+resp.ID, "")
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.State.Terminal() {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if resp.State != trim.StateCompleted {
		t.Fatalf("job = %+v", resp)
	}

	// Output was generated into the configured directory.
	entries, err := os.ReadDir(cfg.Output.Directory)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || !strings.HasPrefix(entries[0].Name(), "clip_trimmed_") {
		t.Errorf("output dir entries: %v", entries)
	}
}
