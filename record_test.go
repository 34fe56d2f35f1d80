package sniperz

import (
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestDeriveVideoID(t *testing.T) {
	assert := assert_.New(t)

	for input, want := range map[string]VideoID{
		"https://www.youtube.com/watch?v=abc123":         "abc123",
		"https://www.youtube.com/watch?v=abc123&t=10s":   "abc123",
		"https://youtu.be/xyz789":                        "xyz789",
		"https://www.youtube.com/shorts/shortid":         "shortid",
		"https://www.youtube.com/shorts/shortid/":        "shortid",
		"https://img.youtube.com/vi/vid42/hqdefault.jpg": "hqdefault.jpg",
	} {
		id, err := DeriveVideoID(input)
		assert.NoError(err, "url %q", input)
		assert.Equal(want, id, "url %q", input)
	}

	for _, input := range []string{"", "https://example.com", "https://example.com/", "%%%"} {
		_, err := DeriveVideoID(input)
		assert.ErrorIs(err, ErrNoVideoID, "url %q", input)
	}
}

func TestThumbnailStatusTransitions(t *testing.T) {
	assert := assert_.New(t)

	assert.True(ThumbnailNone.CanTransitionTo(ThumbnailPending))
	assert.True(ThumbnailNone.CanTransitionTo(ThumbnailReady))
	assert.True(ThumbnailPending.CanTransitionTo(ThumbnailReady))
	assert.True(ThumbnailPending.CanTransitionTo(ThumbnailFailed))
	assert.True(ThumbnailFailed.CanTransitionTo(ThumbnailPending), "failed fetches can be re-triggered")

	assert.False(ThumbnailReady.CanTransitionTo(ThumbnailPending), "ready is terminal")
	assert.False(ThumbnailReady.CanTransitionTo(ThumbnailFailed))
	assert.False(ThumbnailNone.CanTransitionTo(ThumbnailNone))

	assert.True(ThumbnailReady.IsTerminal())
	assert.True(ThumbnailFailed.IsTerminal())
	assert.False(ThumbnailPending.IsTerminal())
	assert.False(ThumbnailNone.IsTerminal())
}

func TestDownloadStatusTransitions(t *testing.T) {
	assert := assert_.New(t)

	assert.True(DownloadNone.CanTransitionTo(DownloadQueued))
	assert.True(DownloadQueued.CanTransitionTo(DownloadDownloading))
	assert.True(DownloadQueued.CanTransitionTo(DownloadCancelled))
	assert.True(DownloadDownloading.CanTransitionTo(DownloadComplete))
	assert.True(DownloadDownloading.CanTransitionTo(DownloadFailed))
	assert.True(DownloadDownloading.CanTransitionTo(DownloadCancelled))
	assert.True(DownloadDownloading.CanTransitionTo(DownloadQueued), "transient failures requeue")
	assert.True(DownloadFailed.CanTransitionTo(DownloadQueued), "a new run may retry failures")
	assert.True(DownloadCancelled.CanTransitionTo(DownloadQueued))

	assert.False(DownloadNone.CanTransitionTo(DownloadDownloading), "must queue before downloading")
	assert.False(DownloadNone.CanTransitionTo(DownloadComplete))
	assert.False(DownloadComplete.CanTransitionTo(DownloadQueued), "downloaded is terminal")
	assert.False(DownloadQueued.CanTransitionTo(DownloadComplete))

	assert.True(DownloadComplete.IsTerminal())
	assert.True(DownloadFailed.IsTerminal())
	assert.True(DownloadCancelled.IsTerminal())
	assert.False(DownloadQueued.IsTerminal())
	assert.False(DownloadDownloading.IsTerminal())
}

func TestVideoRecordString(t *testing.T) {
	assert := assert_.New(t)
	r := VideoRecord{ID: "abc", Title: "A Video", Download: DownloadQueued, Thumbnail: ThumbnailReady}
	s := r.String()
	assert.Contains(s, `"abc"`)
	assert.Contains(s, `"queued"`)
	assert.Contains(s, `"ready"`)
}
