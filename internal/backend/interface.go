// Package backend opens the record store selected by configuration.
package backend

import (
	"keswan/internal/sheets"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// Result holds the opened store and its optional cleanup.
type Result struct {
	Store   sheets.Store
	Cleanup CleanupFunc
}

// Close runs the cleanup, if any.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Type represents the type of backend
type Type string

const (
	SQLite Type = "sqlite"
	Memory Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case SQLite, Memory:
		return true
	default:
		return false
	}
}

// Types returns all valid backend types
func Types() []Type {
	return []Type{SQLite, Memory}
}

// Config holds configuration for backend creation
type Config struct {
	Type         Type
	SQLiteDBPath string
	// DataDirectory holds the reference list seed files.
	DataDirectory string
}
