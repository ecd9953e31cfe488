/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package history

import "github.com/Proshanto08/Team-management/internal/domain"

// Update is one pass's result for one (account, date).
type Update struct {
	Date   string
	Mode   domain.Mode
	Counts domain.TypeCounts
	Issues []domain.IssueSnapshot
	Ratio  float64 // done mode only
}

// Apply merges u into the account's history. Only the fields owned by u.Mode
// are written; the other mode's fields are left as they are.
func Apply(acc *domain.Account, u Update) *domain.IssueHistoryEntry {
	if acc.History == nil {
		acc.History = map[string]*domain.IssueHistoryEntry{}
	}
	e := acc.History[u.Date]
	if e == nil {
		e = &domain.IssueHistoryEntry{Date: u.Date}
		acc.History[u.Date] = e
	}
	counts := u.Counts
	issues := append([]domain.IssueSnapshot(nil), u.Issues...)
	switch u.Mode {
	case domain.ModeNotDone:
		e.Counts.NotDone = &counts
		e.NotDoneIssues = issues
	case domain.ModeDone:
		e.Counts.Done = &counts
		e.DoneIssues = issues
		e.CodeToBugRatio = u.Ratio
	}
	return e
}

// ApplyAll applies updates in order.
func ApplyAll(acc *domain.Account, updates []Update) {
	for _, u := range updates {
		Apply(acc, u)
	}
}
