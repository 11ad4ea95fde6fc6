// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Trimora - 视频裁剪合并工具
//
// Package ffmpeg resolves the external binaries and answers probe
// queries. It never inspects media content itself.

package ffmpeg

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Config for locating the binaries. Empty fields fall back to PATH
// lookup of the conventional names.
type Config struct {
	Binary      string
	ProbeBinary string
}

// FFmpeg holds the resolved binary paths and the version banner.
type FFmpeg struct {
	binary      string
	probeBinary string
	version     string
}

// New resolves the ffmpeg binary via PATH lookup and reads its version
// banner. A missing ffprobe is tolerated; the duration probe then
// reports 0 and progress percentages stay at 0.
func New(config Config) (*FFmpeg, error) {
	name := config.Binary
	if name == "" {
		name = "ffmpeg"
	}
	binary, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("invalid ffmpeg binary: %w", err)
	}

	probeName := config.ProbeBinary
	if probeName == "" {
		probeName = "ffprobe"
	}
	probeBinary, err := exec.LookPath(probeName)
	if err != nil {
		probeBinary = ""
	}

	f := &FFmpeg{binary: binary, probeBinary: probeBinary}
	f.version = f.readVersion()
	return f, nil
}

// Binary returns the resolved ffmpeg path.
func (f *FFmpeg) Binary() string {
	return f.binary
}

// Version returns the first line of `ffmpeg -version`, empty if the
// probe failed.
func (f *FFmpeg) Version() string {
	return f.version
}

// Duration asks ffprobe for the total duration of input in seconds.
// Any failure yields 0.
func (f *FFmpeg) Duration(input string) float64 {
	if f.probeBinary == "" {
		return 0
	}

	out, err := exec.Command(f.probeBinary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		input,
	).Output()
	if err != nil {
		return 0
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func (f *FFmpeg) readVersion() string {
	out, err := exec.Command(f.binary, "-version").Output()
	if err != nil {
		return ""
	}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text())
	}
	return ""
}
