package thumbnail

import (
	"time"

	"github.com/Xaypanya/sniperz/internal/sync_"
)

// Entry is one cached thumbnail: either image bytes or a failure marker.
// Entries are never evicted within a run.
type Entry struct {
	Data      []byte    `json:"data,omitempty"`
	Failed    bool      `json:"failed,omitempty"`
	Error     string    `json:"error,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Store holds cache entries keyed by thumbnail URL.
type Store interface {
	Get(url string) (Entry, bool, error)
	Put(url string, e Entry) error
	// Delete removes an entry, e.g. before re-triggering a failed fetch.
	Delete(url string) error
}

type memoryStore struct {
	entries *sync_.Mutexed[map[string]Entry]
}

// NewMemoryStore keeps entries for the lifetime of the process only.
func NewMemoryStore() Store {
	return &memoryStore{
		entries: sync_.NewMutexed(make(map[string]Entry)),
	}
}

func (s *memoryStore) Get(url string) (entry Entry, ok bool, err error) {
	_ = s.entries.Locked(func(entries map[string]Entry) error {
		entry, ok = entries[url]
		return nil
	})
	return entry, ok, nil
}

func (s *memoryStore) Put(url string, e Entry) error {
	return s.entries.Locked(func(entries map[string]Entry) error {
		entries[url] = e
		return nil
	})
}

func (s *memoryStore) Delete(url string) error {
	return s.entries.Locked(func(entries map[string]Entry) error {
		delete(entries, url)
		return nil
	})
}
