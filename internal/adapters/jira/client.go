/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jira

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

var (
	ErrNotFound  = errors.New("jira: not found")
	ErrInvalidID = errors.New("jira: invalid identifier")
)

// StatusError is a non-2xx answer that is neither 404 nor 400.
type StatusError struct {
	Shard string
	Code  int
	Body  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("jira api shard=%s status=%d body=%s", e.Shard, e.Code, e.Body)
}

// Shard is the explicit connection config of one tracker endpoint.
type Shard struct {
	Name       string
	BaseURL    string
	Username   string
	APIToken   string
	APIVersion string
	PageSize   int
	Timeout    time.Duration
	MaxRetries uint64
}

type Client struct {
	shard Shard
	basic string
	http  *http.Client
	log   zerolog.Logger
}

// searchFields is the set of fields the classifier and analyzer read.
const searchFields = "summary,status,issuetype,duedate,issuelinks"

func NewClient(s Shard, log zerolog.Logger) *Client {
	if s.APIVersion == "" {
		s.APIVersion = "3"
	}
	if s.PageSize <= 0 {
		s.PageSize = 100
	}
	if s.Timeout <= 0 {
		s.Timeout = 15 * time.Second
	}
	basic := ""
	if s.Username != "" || s.APIToken != "" {
		basic = base64.StdEncoding.EncodeToString([]byte(s.Username + ":" + s.APIToken))
	}
	return &Client{
		shard: s,
		basic: basic,
		http:  &http.Client{Timeout: s.Timeout},
		log:   log.With().Str("shard", s.Name).Logger(),
	}
}

func (c *Client) Name() string { return c.shard.Name }

func (c *Client) apiURL(path string, q url.Values) string {
	base := strings.TrimRight(c.shard.BaseURL, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := base + "/rest/api/" + c.shard.APIVersion + path
	if len(q) > 0 {
		u = u + "?" + q.Encode()
	}
	return u
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 300 * time.Millisecond
	bo.MaxElapsedTime = 30 * time.Second
	return backoff.WithContext(backoff.WithMaxRetries(bo, c.shard.MaxRetries), ctx)
}

// doJSON issues a GET and decodes the body into out. 429 and 5xx answers and
// network errors are retried; everything else is returned as is.
func (c *Client) doJSON(ctx context.Context, u string, out any) error {
	if c.shard.BaseURL == "" {
		return fmt.Errorf("jira: shard %s has empty baseURL", c.shard.Name)
	}
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		if c.basic != "" {
			req.Header.Set("Authorization", "Basic "+c.basic)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			switch {
			case resp.StatusCode == http.StatusNotFound:
				return backoff.Permanent(fmt.Errorf("shard %s: %w", c.shard.Name, ErrNotFound))
			case resp.StatusCode == http.StatusBadRequest:
				return backoff.Permanent(fmt.Errorf("shard %s: %w", c.shard.Name, ErrInvalidID))
			}
			serr := &StatusError{Shard: c.shard.Name, Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return serr
			}
			return backoff.Permanent(serr)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("jira: decode %s response: %w", c.shard.Name, err))
		}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.log.Warn().Err(err).Dur("wait", wait).Msg("jira request retry")
	}
	return backoff.RetryNotify(op, c.newBackOff(ctx), notify)
}

// Search returns every issue matching jql, following pagination.
func (c *Client) Search(ctx context.Context, jql string) ([]Issue, error) {
	if jql == "" {
		return nil, errors.New("jira: empty jql")
	}
	var all []Issue
	startAt := 0
	for {
		q := url.Values{
			"jql":        {jql},
			"fields":     {searchFields},
			"startAt":    {strconv.Itoa(startAt)},
			"maxResults": {strconv.Itoa(c.shard.PageSize)},
		}
		var page SearchResult
		if err := c.doJSON(ctx, c.apiURL("/search", q), &page); err != nil {
			return nil, fmt.Errorf("search issues: %w", err)
		}
		all = append(all, page.Issues...)
		if len(page.Issues) == 0 || startAt+len(page.Issues) >= page.Total {
			break
		}
		startAt += len(page.Issues)
	}
	c.log.Debug().Int("issues", len(all)).Msg("jira search done")
	return all, nil
}

// User looks up a tracker account by its opaque id.
func (c *Client) User(ctx context.Context, accountID string) (*User, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, fmt.Errorf("shard %s: %w", c.shard.Name, ErrInvalidID)
	}
	var u User
	if err := c.doJSON(ctx, c.apiURL("/user", url.Values{"accountId": {accountID}}), &u); err != nil {
		return nil, err
	}
	return &u, nil
}
