package uuidx

import (
	"time"

	"github.com/google/uuid"
)

// New returns a version 7 UUID. Ids created later sort after ids created
// earlier. It panics when the random source fails.
func New() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewString is New in its canonical text form.
func NewString() string {
	return New().String()
}

// Created returns the creation time embedded in a version 7 UUID, with
// millisecond precision. It reports false for every other version.
func Created(id uuid.UUID) (time.Time, bool) {
	if id.Version() != 7 {
		return time.Time{}, false
	}
	sec, nsec := id.Time().UnixTime()
	return time.Unix(sec, nsec).UTC(), true
}
