/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */

// Package history turns raw tracker issue lists into per-date history
// entries: classification by due date and type, bug-linkage ratios, and the
// merge of a pass's result into an account's stored history.
package history

import (
	"sort"
	"strings"
	"time"

	"github.com/Proshanto08/Team-management/internal/adapters/jira"
	"github.com/Proshanto08/Team-management/internal/domain"
)

// Bucket is everything one pass saw for one due date.
type Bucket struct {
	Date   string
	Counts domain.TypeCounts
	Issues []domain.IssueSnapshot
}

type Classification struct {
	Mode    domain.Mode
	Buckets map[string]*Bucket
}

// DueDate truncates an ISO-8601 due date or timestamp to its date part.
func DueDate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if len(raw) < len(domain.DateLayout) {
		return "", false
	}
	d := raw[:len(domain.DateLayout)]
	if _, err := time.Parse(domain.DateLayout, d); err != nil {
		return "", false
	}
	return d, true
}

// Classify buckets issues by due date. Issues without a due date are
// dropped; issues of an unrecognized type are listed but not counted.
func Classify(mode domain.Mode, issues []jira.Issue) *Classification {
	out := &Classification{Mode: mode, Buckets: map[string]*Bucket{}}
	for _, is := range issues {
		date, ok := DueDate(is.Fields.DueDate)
		if !ok {
			continue
		}
		b := out.Buckets[date]
		if b == nil {
			b = &Bucket{Date: date}
			out.Buckets[date] = b
		}
		count(&b.Counts, is.TypeName())
		b.Issues = append(b.Issues, Snapshot(is, date))
	}
	return out
}

func count(c *domain.TypeCounts, typ string) {
	switch {
	case strings.EqualFold(typ, domain.TypeTask):
		c.Task++
	case strings.EqualFold(typ, domain.TypeBug):
		c.Bug++
	case strings.EqualFold(typ, domain.TypeStory):
		c.Story++
	}
}

func Snapshot(is jira.Issue, date string) domain.IssueSnapshot {
	return domain.IssueSnapshot{
		ID:      is.ID,
		Key:     is.Key,
		Summary: is.Fields.Summary,
		Status:  is.StatusName(),
		Type:    is.TypeName(),
		DueDate: date,
	}
}

// Dates returns bucket dates in ascending order.
func (c *Classification) Dates() []string {
	out := make([]string, 0, len(c.Buckets))
	for d := range c.Buckets {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Updates converts the classification into per-date upserts. ratios is only
// read for done passes; a date missing from it gets 0.
func (c *Classification) Updates(ratios map[string]float64) []Update {
	dates := c.Dates()
	out := make([]Update, 0, len(dates))
	for _, d := range dates {
		b := c.Buckets[d]
		u := Update{Date: d, Mode: c.Mode, Counts: b.Counts, Issues: b.Issues}
		if c.Mode == domain.ModeDone {
			u.Ratio = ratios[d]
		}
		out = append(out, u)
	}
	return out
}
