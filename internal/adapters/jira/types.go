/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jira

// Only the fields the aggregation consumes are modeled.

type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Fields IssueFields `json:"fields"`
}

type IssueFields struct {
	Summary    string      `json:"summary"`
	Status     *NamedField `json:"status"`
	IssueType  *NamedField `json:"issuetype"`
	DueDate    string      `json:"duedate"`
	IssueLinks []IssueLink `json:"issuelinks"`
}

type NamedField struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

type IssueLink struct {
	ID           string       `json:"id,omitempty"`
	Type         NamedField   `json:"type"`
	InwardIssue  *LinkedIssue `json:"inwardIssue,omitempty"`
	OutwardIssue *LinkedIssue `json:"outwardIssue,omitempty"`
}

type LinkedIssue struct {
	ID     string `json:"id"`
	Key    string `json:"key"`
	Fields struct {
		IssueType *NamedField `json:"issuetype"`
	} `json:"fields"`
}

type SearchResult struct {
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	Total      int     `json:"total"`
	Issues     []Issue `json:"issues"`
}

type User struct {
	AccountID    string `json:"accountId"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
	Active       bool   `json:"active"`
}

func (i Issue) TypeName() string {
	if i.Fields.IssueType == nil {
		return ""
	}
	return i.Fields.IssueType.Name
}

func (i Issue) StatusName() string {
	if i.Fields.Status == nil {
		return ""
	}
	return i.Fields.Status.Name
}

func (l *LinkedIssue) TypeName() string {
	if l == nil || l.Fields.IssueType == nil {
		return ""
	}
	return l.Fields.IssueType.Name
}
