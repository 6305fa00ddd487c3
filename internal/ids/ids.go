// Package ids provides the 16-byte opaque identifiers shared by every
// entity in the control plane: requests, approvals, users, groups,
// policies, named rules, and registry entries.
package ids

import (
	"bytes"

	"github.com/google/uuid"
)

// ID is a 16-byte opaque identifier. Ordering within stable maps is
// lexicographic over these bytes.
type ID = uuid.UUID

// Nil is the zero-value ID, used to mean "unset" where a pointer would
// otherwise be required.
var Nil = uuid.Nil

// New generates a fresh random ID.
func New() ID {
	return uuid.New()
}

// Parse decodes the canonical string form of an ID.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// Less reports whether a sorts before b under lexicographic byte order.
func Less(a, b ID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}

// Compare returns -1, 0, or 1 the way bytes.Compare does, over the raw id
// bytes. Used as the tiebreaker for every sort strategy in §4.5.
func Compare(a, b ID) int {
	return bytes.Compare(a[:], b[:])
}
