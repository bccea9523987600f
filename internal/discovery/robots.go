package discovery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

const maxRobotsBytes = 1 << 20

// discoverFromRobots fetches robots.txt and applies the sitemap parser to
// every Sitemap: directive it declares.
func (d *Discoverer) discoverFromRobots(ctx context.Context, origin string) []string {
	data, err := d.loadRobots(ctx, origin)
	if err != nil {
		d.logger.Debug("robots.txt unavailable", zap.String("origin", origin), zap.Error(err))
		return nil
	}

	var urls []string
	for _, sitemapURL := range data.Sitemaps {
		if ctx.Err() != nil {
			break
		}
		found, err := d.fetchSitemap(ctx, sitemapURL, 0)
		if err != nil {
			d.logger.Debug("robots-declared sitemap failed",
				zap.String("url", sitemapURL),
				zap.Error(err),
			)
			continue
		}
		urls = append(urls, found...)
	}
	return urls
}

func (d *Discoverer) loadRobots(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	client := &http.Client{Timeout: d.cfg.Timeout}
	if client.Timeout <= 0 {
		client.Timeout = 10 * time.Second
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil, fmt.Errorf("new robots request: %w", err)
	}
	req.Header.Set("User-Agent", d.cfg.UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			d.logger.Debug("close robots body failed", zap.Error(cerr))
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return nil, fmt.Errorf("read robots body: %w", err)
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots: %w", err)
	}
	return data, nil
}
