package catalog

import "github.com/Xaypanya/sniperz"

// Event is a catalog change notification. Events carry value copies, never
// references into the store.
type Event interface {
	// Record returns the state of the record after the change.
	Record() sniperz.VideoRecord
}

type recordEvent struct {
	record sniperz.VideoRecord
}

func (e recordEvent) Record() sniperz.VideoRecord {
	return e.record
}

// RecordAdded is emitted once per record, on first sight of its ID.
type RecordAdded struct {
	recordEvent
}

// RecordChanged is emitted when an existing record's fields or status change.
type RecordChanged struct {
	recordEvent
	Old sniperz.VideoRecord
}
