/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import "github.com/Proshanto08/Team-management/internal/domain"

const (
	JobNotDoneWindow = "not-done-window"
	JobNotDoneToday  = "not-done-today"
	JobDoneWindow    = "done-window"
	JobDoneToday     = "done-today"
	JobScore         = "score"
)

// Job is one of the five independent scheduled passes.
type Job struct {
	Name   string
	Window domain.Window
	Mode   domain.Mode
	Score  bool
}

var Jobs = []Job{
	{Name: JobNotDoneWindow, Window: domain.WindowRange, Mode: domain.ModeNotDone},
	{Name: JobNotDoneToday, Window: domain.WindowToday, Mode: domain.ModeNotDone},
	{Name: JobDoneWindow, Window: domain.WindowRange, Mode: domain.ModeDone},
	{Name: JobDoneToday, Window: domain.WindowToday, Mode: domain.ModeDone},
	{Name: JobScore, Score: true},
}

func LookupJob(name string) (Job, bool) {
	for _, j := range Jobs {
		if j.Name == name {
			return j, true
		}
	}
	return Job{}, false
}

func jobFor(window domain.Window, mode domain.Mode) string {
	for _, j := range Jobs {
		if !j.Score && j.Window == window && j.Mode == mode {
			return j.Name
		}
	}
	return string(mode) + "-" + string(window)
}
