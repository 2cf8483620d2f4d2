// Package store holds the gorm-backed repositories. Services depend on the
// interfaces declared here; the concrete types are wired in main.
package store

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrCommentNotFound = fmt.Errorf("comment: %w", ErrNotFound)
	ErrDuplicate       = errors.New("duplicate record")
)
