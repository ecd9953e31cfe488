/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package domain

import (
	"sort"
	"time"
)

// DateLayout is the key format of history entries.
const DateLayout = "2006-01-02"

type Designation string

const (
	DesignationSWE    Designation = "SWE"
	DesignationSQA    Designation = "SQA"
	DesignationLead   Designation = "LEAD"
	DesignationIntern Designation = "INTERN"
)

func (d Designation) Valid() bool {
	switch d {
	case DesignationSWE, DesignationSQA, DesignationLead, DesignationIntern:
		return true
	}
	return false
}

// Mode selects which half of a history entry a pass writes.
type Mode string

const (
	ModeNotDone Mode = "not_done"
	ModeDone    Mode = "done"
)

// Window selects the due-date range a pass queries.
type Window string

const (
	WindowRange Window = "window"
	WindowToday Window = "today"
)

// Recognized issue types. Anything else is listed but not counted.
const (
	TypeTask  = "Task"
	TypeBug   = "Bug"
	TypeStory = "Story"
)

type Account struct {
	ID                 string                        `json:"id"`
	Designation        Designation                   `json:"designation"`
	Archived           bool                          `json:"archived"`
	CurrentPerformance float64                       `json:"currentPerformance"`
	History            map[string]*IssueHistoryEntry `json:"history"`
	Version            int64                         `json:"-"`
}

// Entry returns the history entry for date, or nil.
func (a *Account) Entry(date string) *IssueHistoryEntry {
	if a.History == nil {
		return nil
	}
	return a.History[date]
}

// Entries returns history entries ordered by date.
func (a *Account) Entries() []*IssueHistoryEntry {
	out := make([]*IssueHistoryEntry, 0, len(a.History))
	for _, e := range a.History {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

type IssueSnapshot struct {
	ID      string `json:"id"`
	Key     string `json:"key"`
	Summary string `json:"summary"`
	Status  string `json:"status"`
	Type    string `json:"type"`
	DueDate string `json:"dueDate,omitempty"`
}

type TypeCounts struct {
	Task  int `json:"Task"`
	Bug   int `json:"Bug"`
	Story int `json:"Story"`
}

func (c TypeCounts) Total() int { return c.Task + c.Bug + c.Story }

// Counts holds both halves of an entry. A nil half means its pass has not run.
type Counts struct {
	NotDone *TypeCounts `json:"notDone,omitempty"`
	Done    *TypeCounts `json:"done,omitempty"`
}

type IssueHistoryEntry struct {
	Date                    string          `json:"date"`
	Counts                  Counts          `json:"counts"`
	NotDoneIssues           []IssueSnapshot `json:"notDoneIssues,omitempty"`
	DoneIssues              []IssueSnapshot `json:"doneIssues,omitempty"`
	CodeToBugRatio          float64         `json:"codeToBugRatio"`
	TaskCompletionRate      float64         `json:"taskCompletionRate"`
	UserStoryCompletionRate float64         `json:"userStoryCompletionRate"`
	OverallScore            float64         `json:"overallScore"`
	Comment                 string          `json:"comment"`
}

// AccountDetail is the tracker's view of an account.
type AccountDetail struct {
	AccountID   string `json:"accountId"`
	DisplayName string `json:"displayName"`
	Email       string `json:"emailAddress,omitempty"`
	Active      bool   `json:"active"`
	Shard       string `json:"shard"`
}

// Day formats t as a history key in t's location.
func Day(t time.Time) string { return t.Format(DateLayout) }
