package syncer

// Status is the tri-state sync condition reported to callers. It is
// deliberately coarse: the UI never sees transport errors, only whether
// the local copy is known to match the server.
type Status string

const (
	// StatusSynced means local rows for the scope match the server.
	StatusSynced Status = "synced"

	// StatusSyncing means a cycle is currently in flight.
	StatusSyncing Status = "syncing"

	// StatusLocal means local rows carry changes the server has not
	// confirmed (or no credential is available to sync them).
	StatusLocal Status = "local"
)

// EventKind classifies sync lifecycle events broadcast to observers.
type EventKind string

const (
	EventPushComplete EventKind = "push_complete"
	EventPullComplete EventKind = "pull_complete"
	EventPushFailed   EventKind = "push_failed"
	EventPullFailed   EventKind = "pull_failed"
)

// Event describes one completed (or failed) cycle.
type Event struct {
	Kind    EventKind `json:"kind"`
	Feature string    `json:"feature"`
	DateKey string    `json:"date_key,omitempty"`
	Status  Status    `json:"status"`
}

// NotifyFunc receives sync events. Callers use it to refresh views and
// the dashboard uses it to broadcast; a nil NotifyFunc is skipped.
type NotifyFunc func(Event)
