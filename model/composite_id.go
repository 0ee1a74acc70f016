package model

import (
	"errors"
	"fmt"
	"strings"
)

// CompositeIDDelimiter separates the owner pubky from the resource local id.
const CompositeIDDelimiter = ":"

// ErrMalformedCompositeID is returned by ParseCompositeID for any input that
// is not exactly "owner:localId" with both segments non-empty. Callers on a
// read path (e.g. rendering a cached stream) should treat it as "skip this
// item", never as a fatal condition.
var ErrMalformedCompositeID = errors.New("malformed composite id")

// BuildCompositeID encodes an owner pubky and a local resource id into the
// canonical "owner:localId" form used as primary key across all cached
// tables and streams.
func BuildCompositeID(owner string, localID string) (string, error) {
	if owner == "" || localID == "" {
		return "", fmt.Errorf("composite id parts must be non-empty, got owner=%q localId=%q", owner, localID)
	}
	if strings.Contains(owner, CompositeIDDelimiter) || strings.Contains(localID, CompositeIDDelimiter) {
		return "", fmt.Errorf("composite id parts must not contain %q, got owner=%q localId=%q", CompositeIDDelimiter, owner, localID)
	}
	return owner + CompositeIDDelimiter + localID, nil
}

// ParseCompositeID splits a composite id back into (owner, localId). Any
// split count other than exactly two, or any empty segment, yields
// ErrMalformedCompositeID.
func ParseCompositeID(id string) (string, string, error) {
	splits := strings.Split(id, CompositeIDDelimiter)
	if len(splits) != 2 || splits[0] == "" || splits[1] == "" {
		return "", "", ErrMalformedCompositeID
	}
	return splits[0], splits[1], nil
}

// OwnerOf returns the owner segment of a composite id, or "" when the id is
// malformed. It exists for callers that filter by author (e.g. the mute
// sweep) and must degrade to a no-op on bad ids.
func OwnerOf(id string) string {
	owner, _, err := ParseCompositeID(id)
	if err != nil {
		return ""
	}
	return owner
}
