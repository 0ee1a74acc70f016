package model

import "time"

// SyncStatus marks whether a cached record is an optimistic on-device write
// that has not yet been confirmed durable on the owner's homeserver, or a
// record confirmed remote / hydrated from Nexus.
type SyncStatus string

const (
	// SyncStatusLocal: written on this device, remote durability unconfirmed.
	SyncStatusLocal SyncStatus = "local"
	// SyncStatusSynced: confirmed on the homeserver or hydrated from Nexus.
	SyncStatusSynced SyncStatus = "synced"
)

// DefaultSyncTTL is how long a hydrated record is served from cache before a
// slice read reports it as a miss again and re-validates it against Nexus.
const DefaultSyncTTL = 5 * time.Minute

// NextSyncTTL returns the expiry to stamp on a record that was just written
// or hydrated.
func NextSyncTTL() time.Time {
	return time.Now().Add(DefaultSyncTTL)
}
