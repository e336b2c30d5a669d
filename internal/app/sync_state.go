package app

import "time"

type SyncStatus string

const (
	SyncIdle      SyncStatus = "idle"
	SyncPending   SyncStatus = "pending"
	SyncCommitted SyncStatus = "committed"
	SyncFailed    SyncStatus = "failed"
)

// SyncState tells the UI whether the displayed tree matches the remote store.
// A failed push leaves the edit in memory; Status stays failed until a later
// push succeeds.
type SyncState struct {
	Status SyncStatus `json:"status"`
	Error  string     `json:"error,omitempty"`
	At     time.Time  `json:"at,omitempty"`
}

func (s SyncState) Unsaved() bool {
	return s.Status == SyncPending || s.Status == SyncFailed
}

func (s SyncState) Label() string {
	switch s.Status {
	case SyncPending:
		return "Saving…"
	case SyncCommitted:
		return "Saved"
	case SyncFailed:
		return "Not saved"
	default:
		return ""
	}
}
