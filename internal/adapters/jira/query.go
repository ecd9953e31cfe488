/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jira

import (
	"fmt"
	"strings"
	"time"

	"github.com/Proshanto08/Team-management/internal/domain"
)

// Query is the filter sent identically to both shards.
type Query struct {
	AccountID  string
	Mode       domain.Mode
	From, To   string // inclusive due-date bounds, YYYY-MM-DD
	DoneStatus string
}

// NewQuery builds the query for a pass. WindowRange covers the last days
// through today, WindowToday only today; both evaluated in now's location.
func NewQuery(accountID string, mode domain.Mode, window domain.Window, now time.Time, days int, doneStatus string) Query {
	if doneStatus == "" {
		doneStatus = "Done"
	}
	to := domain.Day(now)
	from := to
	if window == domain.WindowRange {
		from = domain.Day(now.AddDate(0, 0, -days))
	}
	return Query{AccountID: accountID, Mode: mode, From: from, To: to, DoneStatus: doneStatus}
}

func (q Query) JQL() string {
	status := fmt.Sprintf(`status != %s`, quote(q.DoneStatus))
	if q.Mode == domain.ModeDone {
		status = fmt.Sprintf(`status = %s`, quote(q.DoneStatus))
	}
	return fmt.Sprintf(`assignee = %s AND %s AND duedate >= %s AND duedate <= %s ORDER BY duedate ASC`,
		quote(q.AccountID), status, quote(q.From), quote(q.To))
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
