package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/schemascope/schemascope/internal/schema"
)

var testPage = schema.PageRef{URL: "https://example.com/about"}

func TestExtractSingleObject(t *testing.T) {
	t.Parallel()

	blocks := []string{`{
		"@context": "https://schema.org",
		"@type": "Organization",
		"@id": "schema:Organization",
		"name": "Acme",
		"url": "https://example.com",
		"logo": "https://example.com/logo.png"
	}`}

	records, errs := New(zap.NewNop()).Extract(blocks, testPage)
	require.Empty(t, errs)
	require.Len(t, records, 1)
	require.Equal(t, "Organization", records[0].Kind)
	require.Equal(t, "schema:Organization", records[0].ID)
	require.Equal(t, testPage.URL, records[0].Source.URL)
	require.NotContains(t, records[0].Properties, "@type")
	require.NotContains(t, records[0].Properties, "@id")
	require.Contains(t, records[0].Properties, "name")
}

func TestExtractArrayOfObjects(t *testing.T) {
	t.Parallel()

	blocks := []string{`[
		{"@type": "Person", "name": "Ada", "jobTitle": "Engineer", "worksFor": "schema:Organization"},
		{"@type": "Organization", "name": "Acme", "url": "https://example.com", "logo": "x.png"}
	]`}

	records, errs := New(zap.NewNop()).Extract(blocks, testPage)
	require.Empty(t, errs)
	require.Len(t, records, 2)
}

func TestExtractGraphContainer(t *testing.T) {
	t.Parallel()

	blocks := []string{`{
		"@context": "https://schema.org",
		"@graph": [
			{"@type": "WebSite", "name": "Acme", "url": "https://example.com", "publisher": "schema:Organization"},
			{"@type": "Organization", "@id": "schema:Organization", "name": "Acme", "url": "https://example.com", "logo": "x.png"}
		]
	}`}

	records, errs := New(zap.NewNop()).Extract(blocks, testPage)
	require.Empty(t, errs)
	require.Len(t, records, 2)
}

func TestExtractMalformedBlockRecordedNotFatal(t *testing.T) {
	t.Parallel()

	blocks := []string{
		`{not valid json`,
		`{"@type": "Organization", "name": "Acme", "url": "https://example.com", "logo": "x.png"}`,
	}

	records, errs := New(zap.NewNop()).Extract(blocks, testPage)
	require.Len(t, errs, 1)
	require.Equal(t, 0, errs[0].BlockIndex)
	require.Len(t, records, 1)
}

func TestExtractRejectsEmptyRecords(t *testing.T) {
	t.Parallel()

	blocks := []string{
		// Only kind and id; no meaningful properties.
		`{"@type": "Organization", "@id": "schema:Organization"}`,
		// Two meaningful fields is still below the floor.
		`{"@type": "Organization", "name": "Acme", "url": "https://example.com"}`,
	}

	records, errs := New(zap.NewNop()).Extract(blocks, testPage)
	require.Empty(t, errs)
	require.Empty(t, records)
}

func TestExtractRejectsMissingKind(t *testing.T) {
	t.Parallel()

	blocks := []string{`{"name": "Acme", "url": "https://example.com", "logo": "x.png"}`}
	records, errs := New(zap.NewNop()).Extract(blocks, testPage)
	require.Empty(t, errs)
	require.Empty(t, records)
}

func TestExtractTypeArrayTakesFirst(t *testing.T) {
	t.Parallel()

	blocks := []string{`{"@type": ["Organization", "Brand"], "name": "Acme", "url": "https://example.com", "logo": "x.png"}`}
	records, _ := New(zap.NewNop()).Extract(blocks, testPage)
	require.Len(t, records, 1)
	require.Equal(t, "Organization", records[0].Kind)
}

func TestExtractSkipsBlankBlocks(t *testing.T) {
	t.Parallel()

	records, errs := New(zap.NewNop()).Extract([]string{"", "   "}, testPage)
	require.Empty(t, records)
	require.Empty(t, errs)
}
