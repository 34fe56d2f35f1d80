package scrape

import (
	"context"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
	require_ "github.com/stretchr/testify/require"

	"github.com/Xaypanya/sniperz"
	"github.com/Xaypanya/sniperz/internal/catalog"
)

// fakeProvider maps channel URL -> descriptors, or an error for that channel.
type fakeProvider struct {
	videos map[string][]sniperz.VideoDescriptor
	errs   map[string]error
	calls  []string
}

func (p *fakeProvider) ListVideos(ctx context.Context, channelID string, emit func(sniperz.VideoDescriptor)) error {
	p.calls = append(p.calls, channelID)
	if err := p.errs[channelID]; err != nil {
		return err
	}
	for _, d := range p.videos[channelID] {
		emit(d)
	}
	return nil
}

func short(id string, title string) sniperz.VideoDescriptor {
	return sniperz.VideoDescriptor{
		Title:     title,
		SourceURL: "https://www.youtube.com/shorts/" + id,
	}
}

func TestScrapePopulatesCatalog(t *testing.T) {
	assert := assert_.New(t)
	cat := catalog.New()
	defer cat.Close()

	provider := &fakeProvider{videos: map[string][]sniperz.VideoDescriptor{
		"https://example.com/a": {short("a1", "  first  "), short("a2", "second")},
		"https://example.com/b": {short("b1", "third")},
	}}
	s := New(provider, cat, 0)

	err := s.Scrape(context.Background(), []string{"https://example.com/a", "https://example.com/b"})
	assert.Nil(err)
	assert.Equal(3, cat.Len())

	record, ok := cat.Get("a1")
	assert.True(ok)
	assert.Equal("first", record.Title, "titles should be trimmed")
}

func TestScrapeChannelFailureIsIsolated(t *testing.T) {
	assert := assert_.New(t)
	cat := catalog.New()
	defer cat.Close()

	provider := &fakeProvider{
		videos: map[string][]sniperz.VideoDescriptor{
			"https://example.com/good": {short("g1", "survivor")},
		},
		errs: map[string]error{
			"https://example.com/bad": sniperz.ErrChannelUnreachable,
		},
	}
	s := New(provider, cat, 0)

	err := s.Scrape(context.Background(), []string{
		"https://example.com/bad",
		"https://example.com/good",
	})
	// The bad channel is reported...
	assert.ErrorIs(err, sniperz.ErrChannelUnreachable)
	// ...but the good channel was still processed
	assert.Equal([]string{"https://example.com/bad", "https://example.com/good"}, provider.calls)
	assert.Equal(1, cat.Len())
}

func TestScrapeInvalidChannelRejectedBeforeProvider(t *testing.T) {
	assert := assert_.New(t)
	cat := catalog.New()
	defer cat.Close()

	provider := &fakeProvider{}
	s := New(provider, cat, 0)

	err := s.Scrape(context.Background(), []string{"not a url", "ftp://example.com/x"})
	assert.ErrorIs(err, sniperz.ErrInvalidChannel)
	assert.Empty(provider.calls, "provider must not be invoked for invalid channels")
}

func TestScrapeEmptyChannel(t *testing.T) {
	assert := assert_.New(t)
	cat := catalog.New()
	defer cat.Close()

	provider := &fakeProvider{videos: map[string][]sniperz.VideoDescriptor{}}
	s := New(provider, cat, 0)

	err := s.Scrape(context.Background(), []string{"https://example.com/empty"})
	assert.ErrorIs(err, sniperz.ErrEmptyChannel)
}

func TestScrapeDeduplicatesAcrossChannels(t *testing.T) {
	assert := assert_.New(t)
	cat := catalog.New()
	defer cat.Close()

	provider := &fakeProvider{videos: map[string][]sniperz.VideoDescriptor{
		"https://example.com/a": {short("x1", "from a"), short("a2", "only a")},
		"https://example.com/b": {short("x1", "from b"), short("b2", "only b")},
	}}
	s := New(provider, cat, 0)

	err := s.Scrape(context.Background(), []string{"https://example.com/a", "https://example.com/b"})
	assert.Nil(err)
	assert.Equal(3, cat.Len())

	// Second sighting updates the record in place
	record, ok := cat.Get("x1")
	require_.True(t, ok)
	assert.Equal("from b", record.Title)
	// Insertion order follows first sight
	snapshot := cat.Snapshot()
	assert.Equal(sniperz.VideoID("x1"), snapshot[0].ID)
}

func TestScrapeDropsUnusableDescriptors(t *testing.T) {
	assert := assert_.New(t)
	cat := catalog.New()
	defer cat.Close()

	provider := &fakeProvider{videos: map[string][]sniperz.VideoDescriptor{
		"https://example.com/a": {
			{Title: "no url"},
			{Title: "relative", SourceURL: "/shorts/rel1"},
			short("ok1", "fine"),
		},
	}}
	s := New(provider, cat, 0)

	err := s.Scrape(context.Background(), []string{"https://example.com/a"})
	assert.Nil(err)
	assert.Equal(1, cat.Len())
}
