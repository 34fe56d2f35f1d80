// Package downloads runs bounded-parallel media downloads over catalog
// records, with per-attempt timeouts, transient-failure retry, and
// run-scoped cancellation.
package downloads

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Xaypanya/sniperz"
	"github.com/Xaypanya/sniperz/internal/catalog"
)

// ArchiveRecorder remembers completed downloads across runs, so a video is
// never downloaded twice. internal/archive provides the durable
// implementation; a nil recorder disables skipping.
type ArchiveRecorder interface {
	IsDownloaded(id sniperz.VideoID) (bool, error)
	MarkDownloaded(rec sniperz.VideoRecord) error
}

type Config struct {
	Fetcher sniperz.MediaFetcher
	Catalog *catalog.Catalog
	// Archive may be nil, in which case every selected record is downloaded.
	Archive ArchiveRecorder
	// Namer defaults to sniperz.NewTargetNamer().
	Namer          sniperz.TargetNamer
	DestinationDir string
	// Concurrency bounds simultaneous downloads; defaults to 1.
	Concurrency int
	// MaxAttempts bounds attempts per video including the first; defaults to 1.
	MaxAttempts int
	// Timeout applies per attempt; zero means no per-attempt timeout.
	Timeout time.Duration
	Log     *zap.SugaredLogger
}

// Report summarizes one download run.
type Report struct {
	RunID     string
	Queued    int
	Completed int
	Failed    int
	Cancelled int
	Skipped   int
	// Err collects per-video failures and, when the destination became
	// unwritable, the fatal error that halted the run.
	Err error
}

// Orchestrator downloads catalog records through a fixed-size worker pool.
type Orchestrator struct {
	fetcher     sniperz.MediaFetcher
	catalog     *catalog.Catalog
	archive     ArchiveRecorder
	namer       sniperz.TargetNamer
	destDir     string
	concurrency int
	maxAttempts int
	timeout     time.Duration
	log         *zap.SugaredLogger
}

func NewOrchestrator(cfg Config) *Orchestrator {
	if cfg.Namer == nil {
		cfg.Namer = sniperz.NewTargetNamer()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Log == nil {
		cfg.Log = zap.S()
	}
	return &Orchestrator{
		fetcher:     cfg.Fetcher,
		catalog:     cfg.Catalog,
		archive:     cfg.Archive,
		namer:       cfg.Namer,
		destDir:     cfg.DestinationDir,
		concurrency: cfg.Concurrency,
		maxAttempts: cfg.MaxAttempts,
		timeout:     cfg.Timeout,
		log:         cfg.Log.Named("downloads"),
	}
}

type job struct {
	id   sniperz.VideoID
	dest string
}

// run is the mutable state of one Run call. The queue is sized so that
// requeues for retry can never block a worker.
type run struct {
	queue  chan job
	cancel context.CancelFunc

	mu          sync.Mutex
	outstanding int
	report      Report
	errs        *multierror.Error
}

// finish retires one job; the queue closes when no jobs remain, which is
// what lets the workers drain and Run return.
func (r *run) finish() {
	r.mu.Lock()
	r.outstanding--
	done := r.outstanding == 0
	r.mu.Unlock()
	if done {
		close(r.queue)
	}
}

func (r *run) recordErr(err error) {
	r.mu.Lock()
	r.errs = multierror.Append(r.errs, err)
	r.mu.Unlock()
}

// Run downloads the selected records, or every record in the catalog when
// ids is nil, in catalog discovery order. It returns once every selected
// record has reached a terminal download status.
func (o *Orchestrator) Run(ctx context.Context, ids []sniperz.VideoID) Report {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if ids == nil {
		for _, rec := range o.catalog.Snapshot() {
			ids = append(ids, rec.ID)
		}
	}

	r := &run{
		queue:  make(chan job, len(ids)*o.maxAttempts+1),
		cancel: cancel,
	}
	r.report.RunID = uuid.NewString()
	log := o.log.With("run_id", r.report.RunID)
	log.Infow("starting download run", "selected", len(ids), "concurrency", o.concurrency)

	for _, id := range ids {
		o.admit(r, id, log)
	}
	if r.report.Queued == 0 {
		close(r.queue)
	}

	g, workerCtx := errgroup.WithContext(runCtx)
	for i := 0; i < o.concurrency; i++ {
		g.Go(func() error {
			for j := range r.queue {
				o.process(workerCtx, r, j, log)
			}
			return nil
		})
	}
	_ = g.Wait()

	r.mu.Lock()
	report := r.report
	report.Err = r.errs.ErrorOrNil()
	r.mu.Unlock()
	log.Infow("download run finished",
		"completed", report.Completed,
		"failed", report.Failed,
		"cancelled", report.Cancelled,
		"skipped", report.Skipped,
	)
	return report
}

// admit decides whether a record joins the queue: unknown records and those
// already downloaded (in this catalog or in the archive) are skipped.
func (o *Orchestrator) admit(r *run, id sniperz.VideoID, log *zap.SugaredLogger) {
	rec, ok := o.catalog.Get(id)
	if !ok {
		r.report.Skipped++
		r.recordErr(fmt.Errorf("%w: %q", catalog.ErrUnknownRecord, id))
		return
	}
	if rec.Download == sniperz.DownloadComplete {
		r.report.Skipped++
		return
	}
	if o.archive != nil {
		if done, err := o.archive.IsDownloaded(id); err != nil {
			log.Warnw("archive lookup failed", "video_id", id, "error", err)
		} else if done {
			log.Infow("already downloaded, skipping", "video_id", id)
			r.report.Skipped++
			return
		}
	}
	filename, err := o.namer.TargetFilename(&rec)
	if err != nil {
		r.report.Skipped++
		r.recordErr(fmt.Errorf("naming %q: %w", id, err))
		return
	}
	if _, err := o.catalog.Update(id, func(rec *sniperz.VideoRecord) {
		rec.Download = sniperz.DownloadQueued
	}); err != nil {
		r.report.Skipped++
		r.recordErr(err)
		return
	}
	r.report.Queued++
	r.outstanding++
	r.queue <- job{id: id, dest: filepath.Join(o.destDir, filename)}
}

func (o *Orchestrator) process(ctx context.Context, r *run, j job, log *zap.SugaredLogger) {
	if ctx.Err() != nil {
		o.markCancelled(r, j.id)
		return
	}

	rec, err := o.catalog.Update(j.id, func(rec *sniperz.VideoRecord) {
		rec.Download = sniperz.DownloadDownloading
		rec.DestinationPath = j.dest
		rec.Attempt++
	})
	if err != nil {
		r.recordErr(err)
		r.mu.Lock()
		r.report.Failed++
		r.mu.Unlock()
		r.finish()
		return
	}

	attemptCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	log.Infow("downloading", "video_id", j.id, "attempt", rec.Attempt, "target", j.dest)
	written, err := o.fetcher.DownloadMedia(attemptCtx, rec.SourceURL, j.dest)
	if err == nil {
		o.complete(r, rec, written, log)
		return
	}

	o.removePartial(j.dest, log)
	switch {
	case ctx.Err() != nil:
		o.markCancelled(r, j.id)
	case sniperz.IsLocalResourceFailure(err):
		// The destination itself is broken; no other download can succeed.
		log.Errorw("destination unusable, halting run", "video_id", j.id, "error", err)
		o.markFailed(r, j.id, err)
		r.recordErr(fmt.Errorf("destination unusable: %w", err))
		r.cancel()
	case sniperz.IsTransientFetch(err) && rec.Attempt < o.maxAttempts:
		log.Warnw("download failed, will retry", "video_id", j.id, "attempt", rec.Attempt, "error", err)
		if _, uerr := o.catalog.Update(j.id, func(rec *sniperz.VideoRecord) {
			rec.Download = sniperz.DownloadQueued
			rec.LastError = err.Error()
		}); uerr != nil {
			r.recordErr(uerr)
			r.finish()
			return
		}
		// Queue capacity covers every possible retry, so this never blocks.
		r.queue <- j
	default:
		log.Warnw("download failed", "video_id", j.id, "attempt", rec.Attempt, "error", err)
		o.markFailed(r, j.id, err)
		r.recordErr(fmt.Errorf("downloading %q: %w", j.id, err))
	}
}

func (o *Orchestrator) complete(r *run, rec sniperz.VideoRecord, written int64, log *zap.SugaredLogger) {
	updated, err := o.catalog.Update(rec.ID, func(rec *sniperz.VideoRecord) {
		rec.Download = sniperz.DownloadComplete
		rec.LastError = ""
	})
	if err != nil {
		r.recordErr(err)
	}
	if o.archive != nil {
		if err := o.archive.MarkDownloaded(updated); err != nil {
			log.Warnw("archive write failed", "video_id", rec.ID, "error", err)
		}
	}
	log.Infow("download complete", "video_id", rec.ID, "size", humanize.Bytes(uint64(written)))
	r.mu.Lock()
	r.report.Completed++
	r.mu.Unlock()
	r.finish()
}

func (o *Orchestrator) markFailed(r *run, id sniperz.VideoID, cause error) {
	if _, err := o.catalog.Update(id, func(rec *sniperz.VideoRecord) {
		rec.Download = sniperz.DownloadFailed
		rec.LastError = cause.Error()
	}); err != nil {
		r.recordErr(err)
	}
	r.mu.Lock()
	r.report.Failed++
	r.mu.Unlock()
	r.finish()
}

func (o *Orchestrator) markCancelled(r *run, id sniperz.VideoID) {
	if _, err := o.catalog.Update(id, func(rec *sniperz.VideoRecord) {
		rec.Download = sniperz.DownloadCancelled
		rec.LastError = "cancelled"
	}); err != nil {
		r.recordErr(err)
	}
	r.mu.Lock()
	r.report.Cancelled++
	r.mu.Unlock()
	r.finish()
}

func (o *Orchestrator) removePartial(path string, log *zap.SugaredLogger) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warnw("could not remove partial file", "path", path, "error", err)
	}
}
