// Package thumbnail fetches and caches video thumbnails in the background,
// driven by catalog events.
package thumbnail

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Xaypanya/sniperz"
	"github.com/Xaypanya/sniperz/internal/catalog"
	"github.com/Xaypanya/sniperz/internal/pubsub"
)

const eventBufSize = 64

var ErrNotFailed = fmt.Errorf("thumbnail fetch has not failed")

// Fetcher is the network half of thumbnail fetching.
type Fetcher interface {
	FetchThumbnail(ctx context.Context, url string) ([]byte, error)
}

type Config struct {
	Fetcher Fetcher
	Catalog *catalog.Catalog
	// Store defaults to an in-memory store.
	Store Store
	// Concurrency bounds simultaneous fetches; defaults to 1.
	Concurrency int
	// Timeout applies per fetch; zero means no per-fetch timeout.
	Timeout time.Duration
	Log     *zap.SugaredLogger
}

// Cache resolves thumbnail URLs to image bytes at most once each, updating
// the owning record's thumbnail status as fetches complete. Requests beyond
// the concurrency bound queue in arrival order.
type Cache struct {
	fetcher Fetcher
	catalog *catalog.Catalog
	store   Store
	timeout time.Duration
	log     *zap.SugaredLogger

	mu sync.Mutex
	// intake holds records seen on the event stream but not yet examined.
	// The receive loop only appends here, never touches the catalog, so it
	// can always keep draining its subscription.
	intake []sniperz.VideoRecord
	// waiters maps an in-flight (or queued) URL to the records awaiting it,
	// so a URL shared by many records is fetched only once.
	waiters map[string][]sniperz.VideoID
	queue   []string

	wake chan struct{}
	sem  chan struct{}
	wg   sync.WaitGroup
}

func NewCache(cfg Config) *Cache {
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Log == nil {
		cfg.Log = zap.S()
	}
	return &Cache{
		fetcher: cfg.Fetcher,
		catalog: cfg.Catalog,
		store:   cfg.Store,
		timeout: cfg.Timeout,
		log:     cfg.Log.Named("thumbnail"),
		waiters: make(map[string][]sniperz.VideoID),
		wake:    make(chan struct{}, 1),
		sem:     make(chan struct{}, cfg.Concurrency),
	}
}

// Run subscribes to the catalog and fetches thumbnails for newly added
// records until ctx is cancelled. In-flight fetches are waited for on exit.
func (c *Cache) Run(ctx context.Context) error {
	// Only additions matter here; status changes (including our own) are
	// filtered out before they ever reach the subscription buffer.
	events := pubsub.NewChannel[catalog.Event](eventBufSize)
	sender := pubsub.NewFilteredSender[catalog.Event](events, func(e catalog.Event) bool {
		_, ok := e.(catalog.RecordAdded)
		return ok
	})
	if err := c.catalog.AddSubscriber(sender); err != nil {
		return err
	}
	defer events.Close()
	defer c.wg.Wait()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-events.Receive():
				if !ok {
					return
				}
				c.mu.Lock()
				c.intake = append(c.intake, event.Record())
				c.mu.Unlock()
				c.signal()
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.wake:
		}
		for {
			if rec, ok := c.nextIntake(); ok {
				c.Enqueue(rec)
				continue
			}
			url, ok := c.next()
			if !ok {
				break
			}
			select {
			case c.sem <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			c.wg.Add(1)
			go c.fetch(ctx, url)
		}
	}
}

// Enqueue requests the thumbnail for rec, serving from the store without any
// network activity when the URL has been fetched before. Records without a
// thumbnail URL, or whose thumbnail state is already resolved, are ignored.
func (c *Cache) Enqueue(rec sniperz.VideoRecord) {
	if rec.ThumbnailURL == "" || rec.Thumbnail.IsTerminal() {
		return
	}
	entry, ok, err := c.store.Get(rec.ThumbnailURL)
	if err != nil {
		c.log.Errorw("thumbnail store read failed", "url", rec.ThumbnailURL, "error", err)
	} else if ok {
		c.apply(rec.ID, rec.ThumbnailURL, entry)
		return
	}
	c.markPending(rec.ID)
	c.push(rec.ThumbnailURL, rec.ID)
}

// Backfill enqueues every record already in the catalog, for when records
// were added before Run started consuming events.
func (c *Cache) Backfill() {
	for _, rec := range c.catalog.Snapshot() {
		c.Enqueue(rec)
	}
}

// Retrigger re-requests a thumbnail whose fetch previously failed, discarding
// the stored failure marker.
func (c *Cache) Retrigger(id sniperz.VideoID) error {
	rec, ok := c.catalog.Get(id)
	if !ok {
		return fmt.Errorf("%w: %q", catalog.ErrUnknownRecord, id)
	}
	if rec.Thumbnail != sniperz.ThumbnailFailed {
		return fmt.Errorf("%w: %q is %q", ErrNotFailed, id, rec.Thumbnail)
	}
	if err := c.store.Delete(rec.ThumbnailURL); err != nil {
		return err
	}
	if _, err := c.catalog.Update(id, func(r *sniperz.VideoRecord) {
		r.Thumbnail = sniperz.ThumbnailPending
		r.LastError = ""
	}); err != nil {
		return err
	}
	c.push(rec.ThumbnailURL, id)
	return nil
}

// Image returns the cached image bytes for a thumbnail URL, if any.
func (c *Cache) Image(url string) ([]byte, bool) {
	entry, ok, err := c.store.Get(url)
	if err != nil || !ok || entry.Failed {
		return nil, false
	}
	return entry.Data, true
}

func (c *Cache) push(url string, id sniperz.VideoID) {
	c.mu.Lock()
	if ids, ok := c.waiters[url]; ok {
		for _, existing := range ids {
			if existing == id {
				c.mu.Unlock()
				return
			}
		}
		c.waiters[url] = append(ids, id)
		c.mu.Unlock()
		return
	}
	c.waiters[url] = []sniperz.VideoID{id}
	c.queue = append(c.queue, url)
	c.mu.Unlock()
	c.signal()
}

func (c *Cache) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Cache) nextIntake() (sniperz.VideoRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.intake) == 0 {
		return sniperz.VideoRecord{}, false
	}
	rec := c.intake[0]
	c.intake = c.intake[1:]
	return rec, true
}

func (c *Cache) next() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return "", false
	}
	url := c.queue[0]
	c.queue = c.queue[1:]
	return url, true
}

func (c *Cache) fetch(ctx context.Context, url string) {
	defer c.wg.Done()
	defer func() { <-c.sem }()

	// An entry may have landed between the enqueue-time miss and now.
	if entry, ok, err := c.store.Get(url); err == nil && ok {
		c.settle(url, entry)
		return
	}

	fetchCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	data, err := c.fetcher.FetchThumbnail(fetchCtx, url)
	entry := Entry{FetchedAt: time.Now()}
	if err != nil {
		entry.Failed = true
		entry.Error = err.Error()
		c.log.Warnw("thumbnail fetch failed", "url", url, "error", err)
	} else {
		entry.Data = data
		c.log.Debugw("thumbnail fetched", "url", url, "bytes", len(data))
	}
	if err := c.store.Put(url, entry); err != nil {
		c.log.Errorw("thumbnail store write failed", "url", url, "error", err)
	}
	c.settle(url, entry)
}

// settle delivers a fetch outcome to every record waiting on the URL.
func (c *Cache) settle(url string, entry Entry) {
	c.mu.Lock()
	ids := c.waiters[url]
	delete(c.waiters, url)
	c.mu.Unlock()
	for _, id := range ids {
		c.apply(id, url, entry)
	}
}

func (c *Cache) markPending(id sniperz.VideoID) {
	if _, err := c.catalog.Update(id, func(r *sniperz.VideoRecord) {
		r.Thumbnail = sniperz.ThumbnailPending
	}); err != nil {
		c.log.Debugw("not marking thumbnail pending", "video_id", id, "error", err)
	}
}

func (c *Cache) apply(id sniperz.VideoID, url string, entry Entry) {
	if _, err := c.catalog.Update(id, func(r *sniperz.VideoRecord) {
		if entry.Failed {
			r.Thumbnail = sniperz.ThumbnailFailed
			r.LastError = fmt.Sprintf("thumbnail: %s", entry.Error)
		} else {
			r.Thumbnail = sniperz.ThumbnailReady
		}
	}); err != nil {
		c.log.Debugw("not applying thumbnail result", "video_id", id, "url", url, "error", err)
	}
}
