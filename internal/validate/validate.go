// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Trimora - 视频裁剪合并工具
//
// Package validate checks user supplied timestamps, ranges and paths.
// Every check returns a Result value, never an error or a panic.

package validate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/ZSC714725/trimora/internal/timecode"
)

// Kind classifies a validation failure.
type Kind int

const (
	None Kind = iota
	FileNotFound
	FileNotReadable
	InvalidFormat
	InvalidTimestamp
	StartTimeAfterEndTime
	OutputNotWritable
	InsufficientDiskSpace
	PathContainsDangerousChars
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case FileNotFound:
		return "file_not_found"
	case FileNotReadable:
		return "file_not_readable"
	case InvalidFormat:
		return "invalid_format"
	case InvalidTimestamp:
		return "invalid_timestamp"
	case StartTimeAfterEndTime:
		return "start_time_after_end_time"
	case OutputNotWritable:
		return "output_not_writable"
	case InsufficientDiskSpace:
		return "insufficient_disk_space"
	case PathContainsDangerousChars:
		return "path_contains_dangerous_chars"
	default:
		return "unknown"
	}
}

// Result carries the outcome of one check.
type Result struct {
	Valid   bool
	Kind    Kind
	Message string
}

func ok() Result {
	return Result{Valid: true}
}

func fail(kind Kind, format string, args ...interface{}) Result {
	return Result{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Characters that must never reach a command line or a generated
// filename.
const dangerousChars = ";&|$`\n\r"

// Timestamp checks that text parses as HH:MM:SS[.mmm] or decimal
// seconds.
func Timestamp(text string) Result {
	if text == "" {
		return fail(InvalidTimestamp, "timestamp cannot be empty")
	}
	if _, err := timecode.Parse(text); err != nil {
		return fail(InvalidTimestamp, "invalid timestamp %q: use HH:MM:SS.mmm or decimal seconds", text)
	}
	return ok()
}

// TimeRange checks both timestamps and requires start < end strictly.
func TimeRange(start, end string) Result {
	if r := Timestamp(start); !r.Valid {
		return r
	}
	if r := Timestamp(end); !r.Valid {
		return r
	}

	startSeconds, _ := timecode.Parse(start)
	endSeconds, _ := timecode.Parse(end)

	if startSeconds >= endSeconds {
		return fail(StartTimeAfterEndTime, "start time must be less than end time")
	}
	return ok()
}

// InputFile checks that path names an existing, regular, readable file.
func InputFile(path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		return fail(FileNotFound, "file not found: %s", path)
	}
	if !info.Mode().IsRegular() {
		return fail(InvalidFormat, "path is not a regular file: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fail(FileNotReadable, "file is not readable: %s", path)
	}
	f.Close()

	return ok()
}

// OutputPath checks that the parent directory of path exists and is
// writable.
func OutputPath(path string) Result {
	parent := filepath.Dir(path)

	info, err := os.Stat(parent)
	if err != nil || !info.IsDir() {
		return fail(OutputNotWritable, "output directory does not exist: %s", parent)
	}
	if info.Mode().Perm()&0o200 == 0 {
		return fail(OutputNotWritable, "output directory is not writable: %s", parent)
	}
	return ok()
}

// SanitizeFilename replaces every dangerous character with an
// underscore. Length and all other characters are preserved.
func SanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(dangerousChars, r) {
			return '_'
		}
		return r
	}, name)
}

// ContainsDangerousChars reports whether any shell metacharacter from
// the dangerous set appears in path.
func ContainsDangerousChars(path string) bool {
	return strings.ContainsAny(path, dangerousChars)
}

// HasSufficientDiskSpace reports whether the filesystem containing dir
// has at least requiredBytes free. Any query failure counts as
// insufficient.
func HasSufficientDiskSpace(dir string, requiredBytes uint64) bool {
	usage, err := disk.Usage(dir)
	if err != nil {
		return false
	}
	return usage.Free >= requiredBytes
}

// IsValidMP4 sniffs the ftyp box signature at offset 4 of the file.
func IsValidMP4(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	var header [12]byte
	if _, err := f.Read(header[:]); err != nil {
		return false
	}
	return string(header[4:8]) == "ftyp"
}
