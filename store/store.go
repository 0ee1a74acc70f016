// Package store implements the on-device cache: one typed store per logical
// table, all sharing a single gorm database. Direct lookups return
// ErrNotFound when the record is absent; list queries return empty slices.
package store

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned by direct record lookups for absent records.
var ErrNotFound = errors.New("record not found")

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
