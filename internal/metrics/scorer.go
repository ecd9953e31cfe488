/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */

// Package metrics derives completion rates, overall score and commentary
// from stored history entries.
package metrics

import (
	"fmt"
	"math"
	"strings"

	"github.com/Proshanto08/Team-management/internal/domain"
)

// ScoreEntry recomputes e's derived fields from its counts and issue lists.
// It reads nothing else, so repeated calls give identical results.
func ScoreEntry(e *domain.IssueHistoryEntry) {
	var notDone, done domain.TypeCounts
	if e.Counts.NotDone != nil {
		notDone = *e.Counts.NotDone
	}
	if e.Counts.Done != nil {
		done = *e.Counts.Done
	}
	notDoneTB := notDone.Task + notDone.Bug
	doneTB := done.Task + done.Bug

	var taskRate, storyRate float64
	var applicable []float64
	if notDoneTB > 0 {
		taskRate = float64(doneTB) / float64(notDoneTB) * 100
	}
	if notDone.Story > 0 {
		storyRate = float64(done.Story) / float64(notDone.Story) * 100
	}

	var notes []string
	target := notDoneTB + notDone.Story
	completed := doneTB + done.Story
	if completed > target {
		taskRate, storyRate = 100, 100
		notes = append(notes, fmt.Sprintf("Your target was %d, but you completed %d.", target, completed))
	}
	if n := unmatched(e.NotDoneIssues, e.DoneIssues); n > 0 {
		notes = append(notes, fmt.Sprintf("%d completed issue(s) were not in your planned list.", n))
	}

	if notDoneTB > 0 {
		applicable = append(applicable, taskRate)
	}
	if notDone.Story > 0 {
		applicable = append(applicable, storyRate)
	}

	e.TaskCompletionRate = finite(taskRate)
	e.UserStoryCompletionRate = finite(storyRate)
	e.OverallScore = finite(mean(applicable))
	e.Comment = strings.Join(notes, " ")
}

// ScoreAccount rescores every entry and sets the account's running score to
// the mean overall score.
func ScoreAccount(acc *domain.Account) {
	scores := make([]float64, 0, len(acc.History))
	for _, e := range acc.Entries() {
		ScoreEntry(e)
		scores = append(scores, e.OverallScore)
	}
	acc.CurrentPerformance = finite(mean(scores))
}

// unmatched counts distinct done issue ids missing from the planned list.
func unmatched(planned, done []domain.IssueSnapshot) int {
	seen := make(map[string]struct{}, len(planned))
	for _, s := range planned {
		seen[s.ID] = struct{}{}
	}
	extra := map[string]struct{}{}
	for _, s := range done {
		if _, ok := seen[s.ID]; !ok {
			extra[s.ID] = struct{}{}
		}
	}
	return len(extra)
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
