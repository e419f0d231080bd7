// Package models defines the domain types shared across mdorg packages.
package models

import "time"

// FileMeta is a lightweight representation returned by list operations.
type FileMeta struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Conversion statuses.
const (
	StatusConverted = "converted"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// Conversion records the outcome of converting one source file.
type Conversion struct {
	Source      string    `json:"source"`
	Output      string    `json:"output"`
	Title       string    `json:"title"`
	ID          string    `json:"id,omitempty"`
	Checksum    string    `json:"checksum"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	ConvertedAt time.Time `json:"converted_at"`
}

// Link is a wiki-link found in a source note.
type Link struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	ID       string `json:"id,omitempty"`
	Resolved bool   `json:"resolved"`
}
