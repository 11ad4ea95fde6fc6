// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Trimora - 视频裁剪合并工具

// Package fileman derives output file locations from input paths and
// the configured naming pattern.
package fileman

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultPattern is used when no naming pattern is configured.
const DefaultPattern = "{name}_trimmed_{timestamp}"

const timestampLayout = "20060102_150405"

// GenerateOutputFilename expands pattern ({name}, {timestamp}) for the
// given input and places the result under outputDir, keeping the input
// extension. When the expanded name already exists a numeric counter is
// appended until a free name is found.
func GenerateOutputFilename(input, outputDir, pattern string) string {
	if pattern == "" {
		pattern = DefaultPattern
	}

	base := filepath.Base(input)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	name := strings.NewReplacer(
		"{name}", stem,
		"{timestamp}", time.Now().Format(timestampLayout),
	).Replace(pattern)

	candidate := filepath.Join(outputDir, name+ext)
	for counter := 1; ; counter++ {
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
		candidate = filepath.Join(outputDir, fmt.Sprintf("%s_%d%s", name, counter, ext))
	}
}

// DefaultOutputDir returns ~/Videos/Trimmed, falling back to the
// working directory when the home directory is unknown.
func DefaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		wd, werr := os.Getwd()
		if werr != nil {
			return "."
		}
		return wd
	}
	return filepath.Join(home, "Videos", "Trimmed")
}
