// Package scrape turns channel identifiers into catalog records by driving a
// MetadataProvider and normalizing what it reports.
package scrape

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/Xaypanya/sniperz"
	"github.com/Xaypanya/sniperz/internal/catalog"
)

type Scraper struct {
	provider sniperz.MetadataProvider
	catalog  *catalog.Catalog
	// timeout bounds each channel's metadata fetch; zero means no deadline.
	timeout time.Duration
	log     *zap.SugaredLogger
}

func New(provider sniperz.MetadataProvider, cat *catalog.Catalog, timeout time.Duration) *Scraper {
	return &Scraper{
		provider: provider,
		catalog:  cat,
		timeout:  timeout,
		log:      zap.S().Named("scrape"),
	}
}

// Scrape processes every channel independently: a channel that is invalid,
// unreachable or empty is reported in the returned error but never stops the
// remaining channels. The returned error is nil only if every channel
// succeeded.
func (s *Scraper) Scrape(ctx context.Context, channels []string) error {
	var result error
	for _, channel := range channels {
		if err := ctx.Err(); err != nil {
			result = multierror.Append(result, err)
			break
		}
		if err := s.scrapeChannel(ctx, channel); err != nil {
			s.log.Warnw("channel scrape failed", "channel", channel, "err", err)
			result = multierror.Append(result, multierror.Prefix(err, fmt.Sprintf("[%s]", channel)))
		}
	}
	return result
}

func (s *Scraper) scrapeChannel(ctx context.Context, channel string) error {
	// Reject malformed channel URLs before any network activity
	if err := validateChannelURL(channel); err != nil {
		return err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.log.Infow("scraping channel", "channel", channel)
	var discovered, updated, skipped int
	err := s.provider.ListVideos(ctx, channel, func(d sniperz.VideoDescriptor) {
		id, ok := s.normalize(&d)
		if !ok {
			skipped++
			return
		}
		if _, added := s.catalog.Upsert(id, d); added {
			discovered++
		} else {
			updated++
		}
	})
	if err != nil {
		return err
	}
	if discovered+updated == 0 {
		return sniperz.ErrEmptyChannel
	}
	s.log.Infow("channel scraped", "channel", channel, "discovered", discovered, "updated", updated, "skipped", skipped)
	return nil
}

// normalize trims and validates a descriptor in place, returning its derived
// ID. Descriptors without a usable URL are dropped.
func (s *Scraper) normalize(d *sniperz.VideoDescriptor) (sniperz.VideoID, bool) {
	d.Title = strings.TrimSpace(d.Title)
	u, err := url.Parse(d.SourceURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		s.log.Debugw("dropping descriptor with invalid source URL", "url", d.SourceURL)
		return "", false
	}
	id, err := sniperz.DeriveVideoID(d.SourceURL)
	if err != nil {
		s.log.Debugw("dropping descriptor without derivable ID", "url", d.SourceURL, "err", err)
		return "", false
	}
	return id, true
}

func validateChannelURL(channel string) error {
	u, err := url.Parse(channel)
	if err != nil {
		return fmt.Errorf("%w: %v", sniperz.ErrInvalidChannel, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", sniperz.ErrInvalidChannel, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", sniperz.ErrInvalidChannel)
	}
	return nil
}
