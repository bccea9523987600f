package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases scheme and host", "HTTPS://Example.COM/About", "https://example.com/About"},
		{"strips default https port", "https://example.com:443/", "https://example.com/"},
		{"strips default http port", "http://example.com:80/a", "http://example.com/a"},
		{"drops fragment", "https://example.com/page#section", "https://example.com/page"},
		{"sorts query params", "https://example.com/p?b=2&a=1", "https://example.com/p?a=1&b=2"},
		{"trims trailing slash", "https://example.com/about/", "https://example.com/about"},
		{"keeps root slash", "https://example.com/", "https://example.com/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeURL(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeURLRejectsRelative(t *testing.T) {
	t.Parallel()

	_, err := NormalizeURL("/about")
	require.Error(t, err)
}

func TestNormalizeURLEquivalentFormsCollide(t *testing.T) {
	t.Parallel()

	a, err := NormalizeURL("https://example.com/about/?b=2&a=1#top")
	require.NoError(t, err)
	b, err := NormalizeURL("https://EXAMPLE.com/about?a=1&b=2")
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestResolveRef(t *testing.T) {
	t.Parallel()

	got, err := ResolveRef("https://example.com/blog/post", "../about")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/about", got)

	got, err = ResolveRef("https://example.com/", "https://other.com/x")
	require.NoError(t, err)
	require.Equal(t, "https://other.com/x", got)
}

func TestSameOrigin(t *testing.T) {
	t.Parallel()

	require.True(t, SameOrigin("https://example.com/a", "https://EXAMPLE.com/b"))
	require.False(t, SameOrigin("https://example.com/a", "https://sub.example.com/a"))
	require.False(t, SameOrigin("https://example.com/a", "http://example.com/a"))
}
