package youtube

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"testing"

	assert_ "github.com/stretchr/testify/assert"

	"github.com/Xaypanya/sniperz"
)

func TestShortsPlaylistID(t *testing.T) {
	assert := assert_.New(t)
	id, err := ShortsPlaylistID("UCabcdefghijklmnop")
	assert.NoError(err)
	assert.Equal("UUSHabcdefghijklmnop", id)

	_, err = ShortsPlaylistID("PLnotachannel")
	assert.ErrorIs(err, sniperz.ErrInvalidChannel)
	_, err = ShortsPlaylistID("UC")
	assert.ErrorIs(err, sniperz.ErrInvalidChannel)
}

func TestResolvePlaylistID(t *testing.T) {
	assert := assert_.New(t)
	p := New(nil)
	ctx := context.Background()

	id, err := p.resolvePlaylistID(ctx, "https://www.youtube.com/playlist?list=PL123456")
	assert.NoError(err)
	assert.Equal("PL123456", id)

	id, err = p.resolvePlaylistID(ctx, "https://www.youtube.com/channel/UCabcdefghijklmnop/shorts")
	assert.NoError(err)
	assert.Equal("UUSHabcdefghijklmnop", id)

	for _, bad := range []string{
		"not a url",
		"https://vimeo.com/channels/foo",
		"https://www.youtube.com/",
		"https://www.youtube.com/watch?v=abc123",
	} {
		_, err := p.resolvePlaylistID(ctx, bad)
		assert.ErrorIs(err, sniperz.ErrInvalidChannel, "channel URL %q", bad)
	}
}

func TestLookupChannelID(t *testing.T) {
	assert := assert_.New(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/@goodchannel":
			fmt.Fprint(w, `<html>..."channelId":"UCabcdefghijklmnop"...</html>`)
		case "/@nochannelid":
			fmt.Fprint(w, `<html>nothing useful</html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()
	p := New(nil)
	ctx := context.Background()

	id, err := p.lookupChannelID(ctx, server.URL+"/@goodchannel")
	assert.NoError(err)
	assert.Equal("UCabcdefghijklmnop", id)

	_, err = p.lookupChannelID(ctx, server.URL+"/@nochannelid")
	assert.ErrorIs(err, sniperz.ErrInvalidChannel)

	_, err = p.lookupChannelID(ctx, server.URL+"/@missing")
	assert.ErrorIs(err, sniperz.ErrInvalidChannel)
}

func TestFetchThumbnail(t *testing.T) {
	assert := assert_.New(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.jpg":
			_, _ = w.Write([]byte("jpegbytes"))
		case "/gone.jpg":
			w.WriteHeader(http.StatusGone)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()
	p := New(nil)
	ctx := context.Background()

	data, err := p.FetchThumbnail(ctx, server.URL+"/ok.jpg")
	assert.NoError(err)
	assert.Equal([]byte("jpegbytes"), data)

	_, err = p.FetchThumbnail(ctx, server.URL+"/gone.jpg")
	var fetchErr *sniperz.FetchError
	if assert.ErrorAs(err, &fetchErr) {
		assert.Equal(sniperz.FetchNotFound, fetchErr.Kind)
	}

	_, err = p.FetchThumbnail(ctx, server.URL+"/boom.jpg")
	if assert.ErrorAs(err, &fetchErr) {
		assert.Equal(sniperz.FetchNetworkError, fetchErr.Kind)
	}
	assert.False(sniperz.IsTransientFetch(errors.New("plain")))
}

func TestFetchThumbnailTimeout(t *testing.T) {
	assert := assert_.New(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()
	p := New(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()

	_, err := p.FetchThumbnail(ctx, server.URL+"/slow.jpg")
	assert.Error(err)
	assert.True(sniperz.IsTransientFetch(err))
}

func TestWatchAndThumbnailURLs(t *testing.T) {
	assert := assert_.New(t)
	assert.Equal("https://www.youtube.com/watch?v=abc123", WatchURL("abc123"))
	assert.Equal("https://img.youtube.com/vi/abc123/hqdefault.jpg", FallbackThumbnailURL("abc123"))
}

func TestClassifyCopyError(t *testing.T) {
	assert := assert_.New(t)
	var fetchErr *sniperz.FetchError

	diskErr := classifyCopyError(&fs.PathError{Op: "write", Path: "/x", Err: errors.New("no space")}, "u")
	if assert.ErrorAs(diskErr, &fetchErr) {
		assert.Equal(sniperz.FetchDiskWrite, fetchErr.Kind)
	}
	assert.True(sniperz.IsLocalResourceFailure(diskErr))

	netErr := classifyCopyError(errors.New("stream reset"), "u")
	if assert.ErrorAs(netErr, &fetchErr) {
		assert.Equal(sniperz.FetchNetworkError, fetchErr.Kind)
	}

	// Already-classified errors pass through unchanged
	original := sniperz.NewFetchError(sniperz.FetchTimeout, "u", context.DeadlineExceeded)
	assert.Equal(error(original), classifyCopyError(original, "u"))
}
