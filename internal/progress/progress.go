// Package progress aggregates catalog state into periodic summary counts,
// coalescing event bursts so observers see at most one update per interval.
package progress

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Xaypanya/sniperz"
	"github.com/Xaypanya/sniperz/internal/catalog"
	"github.com/Xaypanya/sniperz/internal/pubsub"
)

const eventBufSize = 256

// Counts is a point-in-time summary of the catalog.
type Counts struct {
	Total int

	ThumbnailPending int
	ThumbnailReady   int
	ThumbnailFailed  int

	Queued      int
	Downloading int
	Downloaded  int
	Failed      int
	Cancelled   int
}

// DownloadsSettled counts records whose download reached a terminal status.
func (c Counts) DownloadsSettled() int {
	return c.Downloaded + c.Failed + c.Cancelled
}

// DownloadsActive counts records queued or currently downloading.
func (c Counts) DownloadsActive() int {
	return c.Queued + c.Downloading
}

// Aggregate tallies a consistent snapshot of records.
func Aggregate(records []sniperz.VideoRecord) Counts {
	counts := Counts{Total: len(records)}
	for _, rec := range records {
		switch rec.Thumbnail {
		case sniperz.ThumbnailPending:
			counts.ThumbnailPending++
		case sniperz.ThumbnailReady:
			counts.ThumbnailReady++
		case sniperz.ThumbnailFailed:
			counts.ThumbnailFailed++
		}
		switch rec.Download {
		case sniperz.DownloadQueued:
			counts.Queued++
		case sniperz.DownloadDownloading:
			counts.Downloading++
		case sniperz.DownloadComplete:
			counts.Downloaded++
		case sniperz.DownloadFailed:
			counts.Failed++
		case sniperz.DownloadCancelled:
			counts.Cancelled++
		}
	}
	return counts
}

// Aggregator follows catalog events and publishes fresh Counts, at most once
// per interval, and only when something actually changed.
type Aggregator struct {
	catalog  *catalog.Catalog
	interval time.Duration
	updates  pubsub.Publisher[Counts]
	log      *zap.SugaredLogger
}

func NewAggregator(cat *catalog.Catalog, interval time.Duration, log *zap.SugaredLogger) *Aggregator {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	if log == nil {
		log = zap.S()
	}
	return &Aggregator{
		catalog:  cat,
		interval: interval,
		updates:  pubsub.NewPublisher[Counts](),
		log:      log.Named("progress"),
	}
}

func (a *Aggregator) Subscribe() (pubsub.ReceiverCloser[Counts], error) {
	return a.updates.SubscribeBufSize(eventBufSize)
}

// Current aggregates the catalog right now, bypassing the interval.
func (a *Aggregator) Current() Counts {
	return Aggregate(a.catalog.Snapshot())
}

// Run publishes updates until ctx is cancelled or the catalog closes its
// event stream. The final state is always published before returning.
func (a *Aggregator) Run(ctx context.Context) error {
	events, err := a.catalog.SubscribeBufSize(eventBufSize)
	if err != nil {
		return err
	}
	defer events.Close()
	defer a.updates.Close()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	var last Counts
	emitted := false
	dirty := false
	// force bypasses change detection, so the final state always goes out
	emit := func(force bool) {
		counts := a.Current()
		if force || !emitted || counts != last {
			a.updates.Send(counts)
			last = counts
			emitted = true
		}
		dirty = false
	}
	emit(false)

	for {
		select {
		case <-ctx.Done():
			emit(true)
			return ctx.Err()
		case _, ok := <-events.Receive():
			if !ok {
				emit(true)
				return nil
			}
			dirty = true
		case <-ticker.C:
			if dirty {
				emit(false)
			}
		}
	}
}
