// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Trimora - 视频裁剪合并工具

package job

import "errors"

var (
	ErrNotFound    = errors.New("job not found")
	ErrInvalidSpec = errors.New("invalid spec: need input, output and a time range")
	ErrUnsafePath  = errors.New("path contains characters that are not allowed")
	ErrJobRunning  = errors.New("job is running, cancel it first")
	ErrQueueFull   = errors.New("job queue is full")
)
