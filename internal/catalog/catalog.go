// Package catalog owns the shared collection of VideoRecords. All mutation
// goes through the Catalog, which serializes writes, validates status
// transitions, and publishes change events; readers get consistent snapshots.
package catalog

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Xaypanya/sniperz"
	"github.com/Xaypanya/sniperz/internal/pubsub"
)

var (
	ErrUnknownRecord     = errors.New("no record with that ID")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// publisherBufSize gives emitters headroom over slow observers; observers
// must still drain their subscriptions to see every event.
const publisherBufSize = 256

type state struct {
	// order holds IDs in discovery order; records is the lookup index.
	order   []sniperz.VideoID
	records map[sniperz.VideoID]*sniperz.VideoRecord
}

type Catalog struct {
	// mu guards state; emitMu serializes event emission so events leave in
	// commit order without holding mu across a Send.
	mu     sync.RWMutex
	emitMu sync.Mutex
	state  state

	events pubsub.Publisher[Event]
	log    *zap.SugaredLogger
}

func New() *Catalog {
	return &Catalog{
		state: state{
			records: make(map[sniperz.VideoID]*sniperz.VideoRecord),
		},
		events: pubsub.NewPublisherBufSize[Event](publisherBufSize),
		log:    zap.S().Named("catalog"),
	}
}

// Subscribe returns a receiver of all future catalog events.
func (c *Catalog) Subscribe() (pubsub.ReceiverCloser[Event], error) {
	return c.events.Subscribe()
}

// SubscribeBufSize is Subscribe with an explicit subscriber buffer size.
func (c *Catalog) SubscribeBufSize(bufSize int) (pubsub.ReceiverCloser[Event], error) {
	return c.events.SubscribeBufSize(bufSize)
}

// AddSubscriber attaches an existing sender (e.g. a filtered one) to the
// catalog's event stream.
func (c *Catalog) AddSubscriber(s pubsub.SenderCloser[Event]) error {
	return c.events.AddSubscriber(s)
}

// commit runs mutate with the write lock held, then emits the returned events
// in commit order. The state lock is released before any Send happens.
func (c *Catalog) commit(mutate func(s *state) []Event) {
	c.mu.Lock()
	events := mutate(&c.state)
	c.emitMu.Lock()
	c.mu.Unlock()
	for _, e := range events {
		c.events.Send(e)
	}
	c.emitMu.Unlock()
}

// Upsert inserts a record for the descriptor, or updates the existing record
// with the same ID in place. Insertion order is append-on-first-sight; a
// duplicate never creates a second entry. Returns the resulting record copy
// and whether a new record was added.
func (c *Catalog) Upsert(id sniperz.VideoID, d sniperz.VideoDescriptor) (result sniperz.VideoRecord, added bool) {
	c.commit(func(s *state) []Event {
		if existing, ok := s.records[id]; ok {
			old := *existing
			if d.Title != "" {
				existing.Title = d.Title
			}
			if d.ThumbnailURL != "" {
				existing.ThumbnailURL = d.ThumbnailURL
			}
			result = *existing
			if old == *existing {
				return nil
			}
			return []Event{RecordChanged{recordEvent{*existing}, old}}
		}
		record := &sniperz.VideoRecord{
			ID:           id,
			Title:        d.Title,
			SourceURL:    d.SourceURL,
			ThumbnailURL: d.ThumbnailURL,
		}
		s.records[id] = record
		s.order = append(s.order, id)
		result = *record
		added = true
		return []Event{RecordAdded{recordEvent{*record}}}
	})
	return result, added
}

// Get returns a copy of the record with the given ID.
func (c *Catalog) Get(id sniperz.VideoID) (sniperz.VideoRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if record, ok := c.state.records[id]; ok {
		return *record, true
	}
	return sniperz.VideoRecord{}, false
}

// Update applies f to a copy of the record and commits the result if the
// status transitions it implies are legal. Thumbnail state and download state
// are validated independently, so neither concern can overwrite the other's
// terminal values. Emits RecordChanged if anything changed.
func (c *Catalog) Update(id sniperz.VideoID, f func(r *sniperz.VideoRecord)) (sniperz.VideoRecord, error) {
	var result sniperz.VideoRecord
	var err error
	c.commit(func(s *state) []Event {
		existing, ok := s.records[id]
		if !ok {
			err = fmt.Errorf("%w: %q", ErrUnknownRecord, id)
			return nil
		}
		old := *existing
		updated := old
		f(&updated)
		// The identity fields are fixed at insertion
		updated.ID = old.ID
		updated.SourceURL = old.SourceURL
		if updated.Thumbnail != old.Thumbnail && !old.Thumbnail.CanTransitionTo(updated.Thumbnail) {
			err = fmt.Errorf("%w: thumbnail %q -> %q for %q", ErrInvalidTransition, old.Thumbnail, updated.Thumbnail, id)
			result = old
			return nil
		}
		if updated.Download != old.Download && !old.Download.CanTransitionTo(updated.Download) {
			err = fmt.Errorf("%w: download %q -> %q for %q", ErrInvalidTransition, old.Download, updated.Download, id)
			result = old
			return nil
		}
		*existing = updated
		result = updated
		if updated == old {
			return nil
		}
		c.log.Debugw("record updated", "video_id", id, "download", updated.Download, "thumbnail", updated.Thumbnail)
		return []Event{RecordChanged{recordEvent{updated}, old}}
	})
	return result, err
}

// Snapshot returns copies of all records in discovery order. The snapshot is
// internally consistent: no concurrent mutation can tear a row.
func (c *Catalog) Snapshot() []sniperz.VideoRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snapshot := make([]sniperz.VideoRecord, 0, len(c.state.order))
	for _, id := range c.state.order {
		snapshot = append(snapshot, *c.state.records[id])
	}
	return snapshot
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.state.order)
}

// Close shuts down the event stream, closing all subscribers.
func (c *Catalog) Close() {
	c.events.Close()
}
