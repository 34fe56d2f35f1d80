package sniperz

import (
	"context"
	"errors"
)

var (
	ErrInvalidChannel     = errors.New("invalid channel URL")
	ErrChannelUnreachable = errors.New("channel unreachable")
	ErrEmptyChannel       = errors.New("channel has no videos")
)

// VideoDescriptor is the raw shape of one video as reported by a MetadataProvider,
// before normalization and deduplication.
type VideoDescriptor struct {
	Title        string
	SourceURL    string
	ThumbnailURL string
}

// MetadataProvider resolves a channel identifier into a stream of video descriptors.
type MetadataProvider interface {
	// ListVideos calls emit once per video found on the channel, in the order the
	// channel reports them. The provider may keep fetching while emit is being
	// called; a caller that needs to stop early should cancel ctx.
	ListVideos(ctx context.Context, channelID string, emit func(VideoDescriptor)) error
}

// MediaFetcher is the low-level transport for thumbnail and media bytes.
type MediaFetcher interface {
	// FetchThumbnail returns the raw image bytes for a thumbnail URL.
	FetchThumbnail(ctx context.Context, url string) ([]byte, error)
	// DownloadMedia streams the video at sourceURL to destinationPath, returning
	// the number of bytes written. Cancelling ctx aborts the stream mid-transfer;
	// the caller is responsible for cleaning up any partial file.
	DownloadMedia(ctx context.Context, sourceURL string, destinationPath string) (int64, error)
}
