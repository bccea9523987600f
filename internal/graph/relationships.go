package graph

// kindPair keys the relationship lookup table.
type kindPair struct {
	from string
	to   string
}

// relationshipLabels maps (fromKind, toKind) pairs to a display label. This is
// presentation metadata only; connectivity does not depend on it.
var relationshipLabels = map[kindPair]string{
	{"Person", "Organization"}:       "worksFor",
	{"Organization", "Person"}:       "employee",
	{"Article", "Person"}:            "author",
	{"BlogPosting", "Person"}:        "author",
	{"NewsArticle", "Person"}:        "author",
	{"Article", "Organization"}:      "publisher",
	{"BlogPosting", "Organization"}:  "publisher",
	{"NewsArticle", "Organization"}:  "publisher",
	{"WebSite", "Organization"}:      "publisher",
	{"WebPage", "WebSite"}:           "isPartOf",
	{"WebPage", "Organization"}:      "about",
	{"Product", "Organization"}:      "manufacturer",
	{"Product", "Brand"}:             "brand",
	{"Organization", "Organization"}: "parentOrganization",
	{"Service", "Organization"}:      "provider",
	{"Event", "Organization"}:        "organizer",
	{"Event", "Person"}:              "performer",
	{"Review", "Product"}:            "itemReviewed",
	{"Review", "Person"}:             "author",
}

// relationshipFor returns the display label for an edge between two kinds,
// defaulting to a generic "relatedTo".
func relationshipFor(fromKind, toKind string) string {
	if label, ok := relationshipLabels[kindPair{fromKind, toKind}]; ok {
		return label
	}
	return "relatedTo"
}
