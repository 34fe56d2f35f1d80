package sniperz

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/Xaypanya/sniperz/generic"
)

var (
	ErrNoVideoID = errors.New("cannot derive a video ID from URL")
)

// VideoID is the catalog's deduplication key, derived from the canonical video URL.
type VideoID string

// DeriveVideoID extracts a stable identifier from a video URL. URLs pointing at
// the same video through different paths (shorts page, watch page, youtu.be
// shortlink) derive the same ID.
func DeriveVideoID(rawURL string) (VideoID, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoVideoID, err)
	}
	if u.Query().Has("v") {
		return VideoID(u.Query().Get("v")), nil
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return "", ErrNoVideoID
	}
	segments := strings.Split(path, "/")
	id := segments[len(segments)-1]
	if id == "" || strings.ReplaceAll(id, ".", "") == "" {
		return "", ErrNoVideoID
	}
	return VideoID(id), nil
}

type ThumbnailStatus string

const (
	ThumbnailNone    ThumbnailStatus = ""
	ThumbnailPending ThumbnailStatus = "pending"
	ThumbnailReady   ThumbnailStatus = "ready"
	ThumbnailFailed  ThumbnailStatus = "failed"
)

// IsTerminal returns true if no further automatic transition will happen for this status.
func (s ThumbnailStatus) IsTerminal() bool {
	return s == ThumbnailReady || s == ThumbnailFailed
}

var thumbnailTransitions = map[ThumbnailStatus]generic.Set[ThumbnailStatus]{
	ThumbnailNone:    generic.NewSet(ThumbnailPending, ThumbnailReady, ThumbnailFailed),
	ThumbnailPending: generic.NewSet(ThumbnailReady, ThumbnailFailed),
	ThumbnailReady:   generic.NewSet[ThumbnailStatus](),
	// A failed fetch can be re-triggered manually.
	ThumbnailFailed: generic.NewSet(ThumbnailPending),
}

// CanTransitionTo returns true if next is a legal direct successor of s.
func (s ThumbnailStatus) CanTransitionTo(next ThumbnailStatus) bool {
	allowed, ok := thumbnailTransitions[s]
	return ok && allowed.Contains(next)
}

type DownloadStatus string

const (
	// DownloadNone means the record has been discovered but never selected for download.
	DownloadNone        DownloadStatus = ""
	DownloadQueued      DownloadStatus = "queued"
	DownloadDownloading DownloadStatus = "downloading"
	DownloadComplete    DownloadStatus = "downloaded"
	DownloadFailed      DownloadStatus = "failed"
	DownloadCancelled   DownloadStatus = "cancelled"
)

// IsTerminal returns true if no further automatic transition will happen for this status.
func (s DownloadStatus) IsTerminal() bool {
	return s == DownloadComplete || s == DownloadFailed || s == DownloadCancelled
}

var downloadTransitions = map[DownloadStatus]generic.Set[DownloadStatus]{
	DownloadNone:   generic.NewSet(DownloadQueued),
	DownloadQueued: generic.NewSet(DownloadDownloading, DownloadCancelled),
	// Downloading -> Queued is the transient-failure retry path.
	DownloadDownloading: generic.NewSet(DownloadComplete, DownloadFailed, DownloadCancelled, DownloadQueued),
	DownloadComplete:    generic.NewSet[DownloadStatus](),
	// Terminal failures and cancellations can be re-queued by a new run.
	DownloadFailed:    generic.NewSet(DownloadQueued),
	DownloadCancelled: generic.NewSet(DownloadQueued),
}

// CanTransitionTo returns true if next is a legal direct successor of s.
func (s DownloadStatus) CanTransitionTo(next DownloadStatus) bool {
	allowed, ok := downloadTransitions[s]
	return ok && allowed.Contains(next)
}

// VideoRecord is one discovered video and its scrape/thumbnail/download state.
// Thumbnail and download state are tracked separately because the two concerns
// progress independently and must not clobber each other's terminal values.
type VideoRecord struct {
	ID           VideoID
	Title        string
	SourceURL    string
	ThumbnailURL string

	Thumbnail ThumbnailStatus
	Download  DownloadStatus

	// DestinationPath is set once a download attempt starts.
	DestinationPath string
	// Attempt counts download attempts, including the one in progress.
	Attempt int
	// LastError holds the most recent failure description, cleared on success.
	LastError string
}

func (r *VideoRecord) String() string {
	return fmt.Sprintf("VideoRecord{ID:%q, Title:%q, Download:%q, Thumbnail:%q}", r.ID, r.Title, r.Download, r.Thumbnail)
}
