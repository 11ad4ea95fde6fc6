// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Trimora - 视频裁剪合并工具
//
// Package timecode converts between timestamp strings and seconds.

package timecode

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrInvalidTimestamp is returned for any string that is neither
// HH:MM:SS[.mmm] nor a plain non-negative decimal number.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

var (
	clockRe   = regexp.MustCompile(`^([0-9]{2,}):([0-9]{2}):([0-9]{2})(?:\.([0-9]{0,3}))?$`)
	decimalRe = regexp.MustCompile(`^[0-9]+(?:\.[0-9]*)?$`)
)

// Parse accepts "HH:MM:SS" with an optional dot and up to three
// fractional digits, or a bare decimal number of seconds. Hours are
// unbounded, minutes and seconds must each be < 60.
func Parse(text string) (float64, error) {
	if m := clockRe.FindStringSubmatch(text); m != nil {
		h, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		ss, _ := strconv.Atoi(m[3])
		if mm >= 60 || ss >= 60 {
			return 0, fmt.Errorf("%w: minutes/seconds must be < 60 in %q", ErrInvalidTimestamp, text)
		}
		frac := 0.0
		if m[4] != "" {
			x, _ := strconv.ParseUint(m[4], 10, 64)
			div := 1.0
			for range m[4] {
				div *= 10
			}
			frac = float64(x) / div
		}
		return float64(h*3600+mm*60+ss) + frac, nil
	}

	if decimalRe.MatchString(text) {
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimestamp, text)
		}
		return v, nil
	}

	return 0, fmt.Errorf("%w: %q", ErrInvalidTimestamp, text)
}

// Format renders seconds as zero-padded HH:MM:SS. Hours are not
// clamped to 24.
func Format(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int64(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// FormatMilli renders seconds as HH:MM:SS.mmm, milliseconds truncated.
func FormatMilli(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int64(seconds)
	ms := int64((seconds - float64(total)) * 1000)
	return fmt.Sprintf("%s.%03d", Format(seconds), ms)
}
