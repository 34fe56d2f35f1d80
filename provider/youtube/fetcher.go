package youtube

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/Xaypanya/sniperz"
)

// FetchThumbnail downloads a thumbnail image, classifying failures so the
// caller's retry policy can tell transient from permanent.
func (p *Provider) FetchThumbnail(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, sniperz.NewFetchError(sniperz.FetchNotFound, url, err)
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return nil, classifyTransportError(err, url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, classifyHTTPStatus(resp.StatusCode, url)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err, url)
	}
	return data, nil
}

// DownloadMedia streams the best available muxed format of a video to
// destinationPath, returning the number of bytes written. The partial file is
// left in place on failure; removal is the caller's policy.
func (p *Provider) DownloadMedia(ctx context.Context, sourceURL string, destinationPath string) (int64, error) {
	video, err := p.client.GetVideoContext(ctx, sourceURL)
	if err != nil {
		return 0, classifyTransportError(err, sourceURL)
	}
	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return 0, sniperz.NewFetchError(sniperz.FetchNotFound, sourceURL, errNoUsableFormat)
	}
	// TODO: select "highest" quality
	format := &formats[0]

	stream, size, err := p.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return 0, classifyTransportError(err, sourceURL)
	}
	defer stream.Close()

	f, err := os.Create(destinationPath)
	if err != nil {
		return 0, sniperz.NewFetchError(sniperz.FetchDiskWrite, sourceURL, err)
	}
	p.log.Debugw("streaming video", "url", sourceURL, "target", destinationPath, "expected_bytes", size)
	written, err := io.Copy(f, sniperz.NewContextReader(ctx, stream))
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = sniperz.NewFetchError(sniperz.FetchDiskWrite, sourceURL, closeErr)
	}
	if err != nil {
		return written, classifyCopyError(err, sourceURL)
	}
	return written, nil
}

var _ sniperz.MediaFetcher = (*Provider)(nil)
