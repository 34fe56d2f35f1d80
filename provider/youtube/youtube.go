// Package youtube implements metadata listing and media fetching against
// YouTube channels, playlists, and the shorts shelf of a channel.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	kkdai "github.com/kkdai/youtube/v2"
	"go.uber.org/zap"

	"github.com/Xaypanya/sniperz"
)

// channelIDPattern finds the canonical channel ID in a channel page, which is
// the only way to resolve an @handle URL without the official API.
var channelIDPattern = regexp.MustCompile(`"channelId":"(UC[0-9A-Za-z_-]{10,})"`)

// maxShortDuration is the cutoff for treating a listed video as a short.
// Unknown durations report as zero and pass.
const maxShortDuration = 61 * time.Second

type Provider struct {
	client kkdai.Client
	http   *http.Client
	log    *zap.SugaredLogger
}

func New(log *zap.SugaredLogger) *Provider {
	if log == nil {
		log = zap.S()
	}
	return &Provider{
		http: &http.Client{Timeout: 30 * time.Second},
		log:  log.Named("youtube"),
	}
}

// ListVideos lists a channel's shorts shelf (or a plain playlist) in upload
// order, emitting one descriptor per video.
func (p *Provider) ListVideos(ctx context.Context, channelURL string, emit func(sniperz.VideoDescriptor)) error {
	playlistID, err := p.resolvePlaylistID(ctx, channelURL)
	if err != nil {
		return err
	}
	playlist, err := p.client.GetPlaylistContext(ctx, playlistID)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %q: %v", sniperz.ErrChannelUnreachable, channelURL, err)
	}
	for _, entry := range playlist.Videos {
		if entry == nil || entry.ID == "" {
			continue
		}
		// Non-short videos can appear when the caller points directly at a
		// plain playlist; the shorts shelf itself only ever contains shorts.
		if entry.Duration > maxShortDuration {
			continue
		}
		emit(sniperz.VideoDescriptor{
			Title:        entry.Title,
			SourceURL:    WatchURL(entry.ID),
			ThumbnailURL: thumbnailURL(entry),
		})
	}
	return nil
}

// resolvePlaylistID maps the supported URL shapes to a playlist ID:
//
//	.../playlist?list={ID}           -> {ID}
//	.../channel/{UC...}[/shorts]     -> UUSH{...} (the shorts shelf)
//	.../@handle[/shorts]             -> channel page lookup, then UUSH{...}
func (p *Provider) resolvePlaylistID(ctx context.Context, channelURL string) (string, error) {
	parsed, err := url.Parse(channelURL)
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("%w: %q", sniperz.ErrInvalidChannel, channelURL)
	}
	if !strings.HasSuffix(parsed.Hostname(), "youtube.com") {
		return "", fmt.Errorf("%w: %q: not a youtube.com URL", sniperz.ErrInvalidChannel, channelURL)
	}
	if list := parsed.Query().Get("list"); list != "" {
		return list, nil
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return "", fmt.Errorf("%w: %q", sniperz.ErrInvalidChannel, channelURL)
	}
	switch {
	case segments[0] == "channel" && len(segments) >= 2:
		return ShortsPlaylistID(segments[1])
	case strings.HasPrefix(segments[0], "@"):
		channelID, err := p.lookupChannelID(ctx, parsed.Scheme+"://"+parsed.Host+"/"+segments[0])
		if err != nil {
			return "", err
		}
		return ShortsPlaylistID(channelID)
	default:
		return "", fmt.Errorf("%w: %q", sniperz.ErrInvalidChannel, channelURL)
	}
}

// lookupChannelID fetches a channel page and scrapes its canonical ID.
func (p *Provider) lookupChannelID(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", sniperz.ErrInvalidChannel, pageURL, err)
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", sniperz.ErrChannelUnreachable, pageURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%w: %q: no such channel", sniperz.ErrInvalidChannel, pageURL)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %q: HTTP %d", sniperz.ErrChannelUnreachable, pageURL, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", sniperz.ErrChannelUnreachable, pageURL, err)
	}
	match := channelIDPattern.FindSubmatch(body)
	if match == nil {
		return "", fmt.Errorf("%w: %q: channel ID not found in page", sniperz.ErrInvalidChannel, pageURL)
	}
	return string(match[1]), nil
}

// ShortsPlaylistID converts a channel ID ("UC...") into the auto-generated
// playlist holding only that channel's shorts ("UUSH...").
func ShortsPlaylistID(channelID string) (string, error) {
	if !strings.HasPrefix(channelID, "UC") || len(channelID) < 12 {
		return "", fmt.Errorf("%w: bad channel ID %q", sniperz.ErrInvalidChannel, channelID)
	}
	return "UUSH" + channelID[2:], nil
}

// WatchURL is the canonical watch page for a video ID.
func WatchURL(videoID string) string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)
}

// FallbackThumbnailURL is the static thumbnail endpoint that exists for every
// public video, used when a listing carries no thumbnail of its own.
func FallbackThumbnailURL(videoID string) string {
	return fmt.Sprintf("https://img.youtube.com/vi/%s/hqdefault.jpg", videoID)
}

func thumbnailURL(entry *kkdai.PlaylistEntry) string {
	best := ""
	bestWidth := uint(0)
	for _, t := range entry.Thumbnails {
		if t.URL != "" && t.Width >= bestWidth {
			best = t.URL
			bestWidth = t.Width
		}
	}
	if best == "" {
		return FallbackThumbnailURL(entry.ID)
	}
	return best
}

var _ sniperz.MetadataProvider = (*Provider)(nil)

var errNoUsableFormat = errors.New("no format with audio channels")

func classifyHTTPStatus(status int, url string) error {
	switch {
	case status == http.StatusNotFound || status == http.StatusGone:
		return sniperz.NewFetchError(sniperz.FetchNotFound, url, fmt.Errorf("HTTP %d", status))
	default:
		return sniperz.NewFetchError(sniperz.FetchNetworkError, url, fmt.Errorf("HTTP %d", status))
	}
}

func classifyTransportError(err error, url string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return sniperz.NewFetchError(sniperz.FetchTimeout, url, err)
	}
	return sniperz.NewFetchError(sniperz.FetchNetworkError, url, err)
}

// classifyCopyError splits a failed stream copy into its disk and network
// halves: write-side errors surface as *fs.PathError from the destination
// file, everything else came from the stream.
func classifyCopyError(err error, url string) error {
	var fetchErr *sniperz.FetchError
	if errors.As(err, &fetchErr) {
		return err
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return sniperz.NewFetchError(sniperz.FetchDiskWrite, url, err)
	}
	return classifyTransportError(err, url)
}
