/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package history

import (
	"math"
	"strings"

	"github.com/Proshanto08/Team-management/internal/adapters/jira"
	"github.com/Proshanto08/Team-management/internal/domain"
)

// The window and today passes compute the bug-linkage ratio with different
// rules. Both are kept as they are.

const blocksLink = "Blocks"

// WindowBugRatios is used by the multi-day done pass: per date, outward
// "Blocks" links to a Bug divided by the date's Task+Story count.
func WindowBugRatios(issues []jira.Issue) map[string]float64 {
	links := map[string]int{}
	work := map[string]int{}
	for _, is := range issues {
		date, ok := DueDate(is.Fields.DueDate)
		if !ok {
			continue
		}
		if _, seen := work[date]; !seen {
			work[date] = 0
		}
		if isTaskOrStory(is.TypeName()) {
			work[date]++
		}
		for _, l := range is.Fields.IssueLinks {
			if l.OutwardIssue == nil || !strings.EqualFold(l.Type.Name, blocksLink) {
				continue
			}
			if strings.EqualFold(l.OutwardIssue.TypeName(), domain.TypeBug) {
				links[date]++
			}
		}
	}
	out := make(map[string]float64, len(work))
	for date, denom := range work {
		out[date] = ratio(links[date], denom)
	}
	return out
}

// TodayBugRatios is used by the today done pass: per date, all links to a Bug
// (either direction, any relation, any source type) divided by the number of
// Tasks and Stories that have at least one such link, rounded to 2 places.
func TodayBugRatios(issues []jira.Issue) map[string]float64 {
	linked := map[string]int{}
	taskAndStory := map[string]int{}
	for _, is := range issues {
		date, ok := DueDate(is.Fields.DueDate)
		if !ok {
			continue
		}
		if _, seen := taskAndStory[date]; !seen {
			taskAndStory[date] = 0
		}
		n := bugLinks(is)
		linked[date] += n
		if n > 0 && isTaskOrStory(is.TypeName()) {
			taskAndStory[date]++
		}
	}
	out := make(map[string]float64, len(taskAndStory))
	for date, denom := range taskAndStory {
		out[date] = round2(ratio(linked[date], denom))
	}
	return out
}

// BugRatios picks the rule for the pass window.
func BugRatios(window domain.Window, issues []jira.Issue) map[string]float64 {
	if window == domain.WindowToday {
		return TodayBugRatios(issues)
	}
	return WindowBugRatios(issues)
}

func bugLinks(is jira.Issue) int {
	n := 0
	for _, l := range is.Fields.IssueLinks {
		if strings.EqualFold(l.InwardIssue.TypeName(), domain.TypeBug) {
			n++
		}
		if strings.EqualFold(l.OutwardIssue.TypeName(), domain.TypeBug) {
			n++
		}
	}
	return n
}

func isTaskOrStory(typ string) bool {
	return strings.EqualFold(typ, domain.TypeTask) || strings.EqualFold(typ, domain.TypeStory)
}

func ratio(num, denom int) float64 {
	if denom == 0 {
		return 0
	}
	return float64(num) / float64(denom)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
