package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newDiscoverer() *Discoverer {
	return New(Config{UserAgent: "schemascope-test"}, zap.NewNop())
}

func TestDiscoverSeedPageLinks(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	html := fmt.Sprintf(`<html><body>
		<a href="/pricing">Pricing</a>
		<a href="%s/team">Team</a>
		<a href="https://other-site.example/x">External</a>
		<a href="mailto:hi@example.com">Mail</a>
		<a href="tel:+1555">Call</a>
		<a href="/logo.png">Logo</a>
		<a href="/wp-admin/options.php">Admin</a>
		<a href="/page?utm_source=news">Tracked</a>
		<a href="javascript:void(0)">JS</a>
	</body></html>`, srv.URL)

	urls := newDiscoverer().Discover(context.Background(), srv.URL+"/", html)

	require.Contains(t, urls, srv.URL+"/pricing")
	require.Contains(t, urls, srv.URL+"/team")
	for _, u := range urls {
		require.NotContains(t, u, "other-site.example")
		require.NotContains(t, u, "wp-admin")
		require.NotContains(t, u, "utm_source")
		require.NotContains(t, u, ".png")
	}
}

func TestDiscoverSitemap(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	var srvURL string
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
	<url><loc>%s/products/widget</loc></url>
	<url><loc>%s/blog/launch</loc></url>
</urlset>`, srvURL, srvURL)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL

	urls := newDiscoverer().Discover(context.Background(), srv.URL+"/", "")
	require.Contains(t, urls, srv.URL+"/products/widget")
	require.Contains(t, urls, srv.URL+"/blog/launch")
}

func TestDiscoverSitemapIndexFollowedOneLevel(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	var srvURL string
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
	<sitemap><loc>%s/sitemap-posts.xml</loc></sitemap>
</sitemapindex>`, srvURL)
	})
	mux.HandleFunc("/sitemap-posts.xml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
	<url><loc>%s/blog/post-1</loc></url>
</urlset>`, srvURL)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL

	urls := newDiscoverer().Discover(context.Background(), srv.URL+"/", "")
	require.Contains(t, urls, srv.URL+"/blog/post-1")
}

func TestDiscoverRobotsDeclaredSitemap(t *testing.T) {
	t.Parallel()

	// The conventional sitemap paths all 404; robots.txt points at a
	// reachable sitemap under a non-standard path. Discovery must still
	// surface its URLs and report no error for the failed candidates.
	mux := http.NewServeMux()
	var srvURL string
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, "User-agent: *\nAllow: /\nSitemap: %s/custom/map.xml\n", srvURL)
	})
	mux.HandleFunc("/custom/map.xml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
	<url><loc>%s/hidden/page</loc></url>
</urlset>`, srvURL)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL

	urls := newDiscoverer().Discover(context.Background(), srv.URL+"/", "")
	require.Contains(t, urls, srv.URL+"/hidden/page")
}

func TestDiscoverCommonPathsAppended(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	urls := newDiscoverer().Discover(context.Background(), srv.URL+"/", "")
	require.Contains(t, urls, srv.URL+"/about")
	require.Contains(t, urls, srv.URL+"/contact")
}

func TestDiscoverAllMethodsFailingStillReturns(t *testing.T) {
	t.Parallel()

	// Nothing reachable at all: discovery must degrade to the static common
	// paths rather than fail.
	d := newDiscoverer()
	urls := d.Discover(context.Background(), "http://127.0.0.1:1/", "")
	require.Contains(t, urls, "http://127.0.0.1:1/about")
}

func TestDiscoverBadSeedURL(t *testing.T) {
	t.Parallel()

	require.Nil(t, newDiscoverer().Discover(context.Background(), "not-a-url", ""))
}

func TestSkipURLFilters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		skip bool
	}{
		{"https://example.com/about", false},
		{"https://example.com/style.css", true},
		{"https://example.com/feed/", true},
		{"https://example.com/login", true},
		{"https://example.com/p?gclid=abc", true},
		{"https://example.com/blog/post", false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.skip, skipURL(tt.url), tt.url)
	}
}
