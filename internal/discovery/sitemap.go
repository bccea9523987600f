package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// errSitemapNotFound marks a candidate path that did not answer with a
// parseable sitemap.
var errSitemapNotFound = errors.New("sitemap not found")

// discoverSitemaps tries the conventional sitemap paths in order and returns
// the URLs of the first one that answers. Later candidates are not tried once
// one responds.
func (d *Discoverer) discoverSitemaps(ctx context.Context, origin string) []string {
	for _, p := range d.cfg.SitemapPaths {
		if ctx.Err() != nil {
			return nil
		}
		urls, err := d.fetchSitemap(ctx, origin+p, 0)
		if err != nil {
			d.logger.Debug("sitemap candidate failed",
				zap.String("url", origin+p),
				zap.Error(err),
			)
			continue
		}
		return urls
	}
	return nil
}

// fetchSitemap downloads and parses one sitemap document, following nested
// sitemap indexes one level deep.
func (d *Discoverer) fetchSitemap(ctx context.Context, sitemapURL string, depth int) ([]string, error) {
	var (
		pageURLs      []string
		childSitemaps []string
		responded     bool
		fetchErr      error
	)

	c := colly.NewCollector(colly.UserAgent(d.cfg.UserAgent))
	c.SetRequestTimeout(d.cfg.Timeout)
	c.OnResponse(func(_ *colly.Response) {
		responded = true
	})
	c.OnXML("//urlset/url/loc", func(e *colly.XMLElement) {
		if loc := strings.TrimSpace(e.Text); loc != "" {
			pageURLs = append(pageURLs, loc)
		}
	})
	c.OnXML("//sitemapindex/sitemap/loc", func(e *colly.XMLElement) {
		if loc := strings.TrimSpace(e.Text); loc != "" {
			childSitemaps = append(childSitemaps, loc)
		}
	})
	c.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := c.Visit(sitemapURL); err != nil {
		return nil, fmt.Errorf("visit sitemap: %w", err)
	}
	c.Wait()
	if fetchErr != nil {
		return nil, fmt.Errorf("fetch sitemap: %w", fetchErr)
	}
	if !responded {
		return nil, errSitemapNotFound
	}

	if depth < 1 {
		for _, child := range childSitemaps {
			if ctx.Err() != nil || len(pageURLs) >= d.cfg.MaxSitemapURLs {
				break
			}
			childURLs, err := d.fetchSitemap(ctx, child, depth+1)
			if err != nil {
				d.logger.Debug("nested sitemap failed",
					zap.String("url", child),
					zap.Error(err),
				)
				continue
			}
			pageURLs = append(pageURLs, childURLs...)
		}
	}

	if len(pageURLs) > d.cfg.MaxSitemapURLs {
		pageURLs = pageURLs[:d.cfg.MaxSitemapURLs]
	}
	return pageURLs, nil
}
