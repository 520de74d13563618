// Package model defines the core post data types.
package model

import (
	"math"
	"time"
)

// Post is a post decoded from the remote API.
type Post struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// Record is a persisted post (entity IdAndTitle).
type Record struct {
	ID       int16     `json:"id"`
	Title    *string   `json:"title,omitempty"`
	Seq      int       `json:"seq"`
	SyncedAt time.Time `json:"synced_at"`
}

// TitleOrEmpty returns the record title, or "" when it is unset.
func (r Record) TitleOrEmpty() string {
	if r.Title == nil {
		return ""
	}
	return *r.Title
}

// SyncRun records one fetch-and-persist attempt.
type SyncRun struct {
	ID         string    `json:"id"`
	Endpoint   string    `json:"endpoint"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Fetched    int       `json:"fetched"`
	Stored     int       `json:"stored"`
	Skipped    int       `json:"skipped"`
	Error      string    `json:"error,omitempty"`
}

// ValidID reports whether id fits the 16-bit key column.
func ValidID(id int) bool {
	return id >= math.MinInt16 && id <= math.MaxInt16
}
