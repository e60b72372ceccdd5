// Package types contains shared types used across the tweet filter client
package types

import (
	"strings"
)

// JobStatus is the lifecycle state of a filter job
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusTimedOut  JobStatus = "timed_out"
)

// IsTerminal reports whether no further transition is allowed from s
func (s JobStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusTimedOut:
		return true
	}
	return false
}

// Progress describes how far the remote evaluation has got
type Progress struct {
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
	Message   string `json:"message,omitempty"`
}

// Scope selects the tweets a job evaluates: a named list or an explicit set of users
type Scope struct {
	List  string   `json:"list,omitempty"`
	Users []string `json:"users,omitempty"`
}

// Job identifies one filter run
type Job struct {
	ID       string    `json:"id,omitempty"`
	Status   JobStatus `json:"status"`
	Progress *Progress `json:"progress,omitempty"`
	Question string    `json:"question"`
	Scope    Scope     `json:"scope"`
}

// Tweet is one source item of the remote corpus
type Tweet struct {
	Username  string `json:"username"`
	Text      string `json:"text"`
	TweetID   string `json:"tweet_id"`
	CreatedAt string `json:"created_at"`
}

// FilteredItem is a tweet with the verdict the remote service gave it
type FilteredItem struct {
	Tweet     Tweet  `json:"tweet"`
	Pass      bool   `json:"pass"`
	Reasoning string `json:"reasoning"`
}

// ResultSet holds evaluated items and, for final sets only, a summary
type ResultSet struct {
	Items   []FilteredItem `json:"items"`
	Summary *string        `json:"summary,omitempty"`
}

// Passed returns the number of items that satisfied the question
func (rs ResultSet) Passed() int {
	n := 0
	for _, item := range rs.Items {
		if item.Pass {
			n++
		}
	}
	return n
}

// FilterRequest is the body sent to start a filter job, over either transport
type FilterRequest struct {
	Question string   `json:"question"`
	List     string   `json:"list,omitempty"`
	Users    []string `json:"users,omitempty"`
}

// Scope returns the scope carried by the request
func (r FilterRequest) Scope() Scope {
	return Scope{List: r.List, Users: r.Users}
}

// Normalize trims the question and list and drops blank user entries
func (r FilterRequest) Normalize() FilterRequest {
	out := FilterRequest{
		Question: strings.TrimSpace(r.Question),
		List:     strings.TrimSpace(r.List),
	}
	for _, u := range r.Users {
		if u = strings.TrimSpace(u); u != "" {
			out.Users = append(out.Users, u)
		}
	}
	return out
}

// Account is a monitored account on the remote service
type Account struct {
	Username string `json:"username"`
	List     string `json:"list,omitempty"`
}
