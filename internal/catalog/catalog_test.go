package catalog

import (
	"fmt"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
	require_ "github.com/stretchr/testify/require"

	"github.com/Xaypanya/sniperz"
)

func descriptor(id int) sniperz.VideoDescriptor {
	return sniperz.VideoDescriptor{
		Title:        fmt.Sprintf("video %d", id),
		SourceURL:    fmt.Sprintf("https://www.youtube.com/shorts/vid%d", id),
		ThumbnailURL: fmt.Sprintf("https://img.youtube.com/vi/vid%d/hqdefault.jpg", id),
	}
}

func TestUpsertDeduplicates(t *testing.T) {
	assert := assert_.New(t)
	c := New()
	defer c.Close()

	// 12 descriptors, 2 of them with duplicate IDs
	ids := []int{0, 1, 2, 3, 4, 1, 5, 6, 3, 7, 8, 9}
	for _, n := range ids {
		c.Upsert(sniperz.VideoID(fmt.Sprintf("vid%d", n)), descriptor(n))
	}

	assert.Equal(10, c.Len())
	snapshot := c.Snapshot()
	require_.Len(t, snapshot, 10)
	// Insertion order preserved: first sight wins the position
	expected := []string{"vid0", "vid1", "vid2", "vid3", "vid4", "vid5", "vid6", "vid7", "vid8", "vid9"}
	for i, record := range snapshot {
		assert.Equal(sniperz.VideoID(expected[i]), record.ID)
	}
}

func TestUpsertUpdatesInPlace(t *testing.T) {
	assert := assert_.New(t)
	c := New()
	defer c.Close()

	_, added := c.Upsert("vid1", sniperz.VideoDescriptor{Title: "old title", SourceURL: "https://youtu.be/vid1"})
	assert.True(added)
	record, added := c.Upsert("vid1", sniperz.VideoDescriptor{Title: "new title", SourceURL: "https://youtu.be/vid1", ThumbnailURL: "https://example.com/t.jpg"})
	assert.False(added)
	assert.Equal("new title", record.Title)
	assert.Equal("https://example.com/t.jpg", record.ThumbnailURL)
	assert.Equal(1, c.Len())
}

func TestUpsertEvents(t *testing.T) {
	assert := assert_.New(t)
	c := New()

	events, err := c.SubscribeBufSize(16)
	assert.Nil(err)

	c.Upsert("vid1", descriptor(1))
	// Identical duplicate: update is a no-op, no event
	c.Upsert("vid1", descriptor(1))
	c.Upsert("vid2", descriptor(2))
	c.Close()

	var received []Event
	for e := range events.Receive() {
		received = append(received, e)
	}
	require_.Len(t, received, 2)
	_, ok := received[0].(RecordAdded)
	assert.True(ok, "expected RecordAdded, got %T", received[0])
	assert.Equal(sniperz.VideoID("vid1"), received[0].Record().ID)
	assert.Equal(sniperz.VideoID("vid2"), received[1].Record().ID)
}

func TestUpdateValidatesTransitions(t *testing.T) {
	assert := assert_.New(t)
	c := New()
	defer c.Close()

	c.Upsert("vid1", descriptor(1))

	// Discovered -> Downloading skips Queued, must be rejected
	_, err := c.Update("vid1", func(r *sniperz.VideoRecord) { r.Download = sniperz.DownloadDownloading })
	assert.ErrorIs(err, ErrInvalidTransition)

	record, err := c.Update("vid1", func(r *sniperz.VideoRecord) { r.Download = sniperz.DownloadQueued })
	assert.Nil(err)
	assert.Equal(sniperz.DownloadQueued, record.Download)

	record, err = c.Update("vid1", func(r *sniperz.VideoRecord) { r.Download = sniperz.DownloadDownloading })
	assert.Nil(err)
	record, err = c.Update("vid1", func(r *sniperz.VideoRecord) { r.Download = sniperz.DownloadComplete })
	assert.Nil(err)
	assert.Equal(sniperz.DownloadComplete, record.Download)

	// Downloaded is terminal
	_, err = c.Update("vid1", func(r *sniperz.VideoRecord) { r.Download = sniperz.DownloadQueued })
	assert.ErrorIs(err, ErrInvalidTransition)
}

func TestUpdateConcernsAreIndependent(t *testing.T) {
	assert := assert_.New(t)
	c := New()
	defer c.Close()

	c.Upsert("vid1", descriptor(1))

	_, err := c.Update("vid1", func(r *sniperz.VideoRecord) { r.Thumbnail = sniperz.ThumbnailReady })
	assert.Nil(err)

	// Download transitions must not disturb terminal thumbnail state
	record, err := c.Update("vid1", func(r *sniperz.VideoRecord) { r.Download = sniperz.DownloadQueued })
	assert.Nil(err)
	assert.Equal(sniperz.ThumbnailReady, record.Thumbnail)

	// And a thumbnail write that would regress terminal state is rejected
	_, err = c.Update("vid1", func(r *sniperz.VideoRecord) { r.Thumbnail = sniperz.ThumbnailPending })
	assert.ErrorIs(err, ErrInvalidTransition)
	record, _ = c.Get("vid1")
	assert.Equal(sniperz.DownloadQueued, record.Download)
	assert.Equal(sniperz.ThumbnailReady, record.Thumbnail)
}

func TestUpdateUnknownRecord(t *testing.T) {
	assert := assert_.New(t)
	c := New()
	defer c.Close()

	_, err := c.Update("nope", func(r *sniperz.VideoRecord) {})
	assert.ErrorIs(err, ErrUnknownRecord)
}

func TestSnapshotIsACopy(t *testing.T) {
	assert := assert_.New(t)
	c := New()
	defer c.Close()

	c.Upsert("vid1", descriptor(1))
	snapshot := c.Snapshot()
	snapshot[0].Title = "mutated"

	record, ok := c.Get("vid1")
	assert.True(ok)
	assert.Equal("video 1", record.Title)
}
