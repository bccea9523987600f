package graph

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/schemascope/schemascope/internal/schema"
)

// maxWalkDepth bounds the property-tree walk against pathological nesting.
const maxWalkDepth = 8

// identifierPattern matches string values that look like stable identifiers
// rather than prose.
var identifierPattern = regexp.MustCompile(`^(schema:|#|_:)[A-Za-z0-9][A-Za-z0-9_.:-]*$`)

// referenceProperties are the property names whose values are treated as
// cross-entity references when they hold an identifier string.
var referenceProperties = map[string]struct{}{
	"author":             {},
	"creator":            {},
	"publisher":          {},
	"worksFor":           {},
	"memberOf":           {},
	"affiliation":        {},
	"brand":              {},
	"manufacturer":       {},
	"provider":           {},
	"sponsor":            {},
	"isPartOf":           {},
	"hasPart":            {},
	"mainEntity":         {},
	"mainEntityOfPage":   {},
	"about":              {},
	"subjectOf":          {},
	"parentOrganization": {},
	"subOrganization":    {},
	"employee":           {},
	"founder":            {},
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Builder constructs entity graphs from record lists.
type Builder struct {
	logger *zap.Logger
}

// NewBuilder constructs a Builder.
func NewBuilder(logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{logger: logger}
}

// Build maps every record to exactly one entity, then walks each record's
// property tree for references and links the entities. Records sharing an
// identifier collapse into one entity; entities never merge afterwards.
func (b *Builder) Build(records []schema.SchemaRecord) *EntityGraph {
	g := &EntityGraph{byID: make(map[string]int)}

	// Pass 1: allocate entities in the arena.
	recordEntity := make([]int, len(records))
	positional := make(map[string]int)
	for i, rec := range records {
		id := entityIDFor(rec, positional)
		idx, exists := g.byID[id]
		if !exists {
			idx = len(g.Entities)
			g.byID[id] = idx
			g.Entities = append(g.Entities, &Entity{
				Index:     idx,
				ID:        id,
				Kind:      rec.Kind,
				Name:      rec.Name(),
				Synthetic: !rec.HasID(),
			})
		}
		e := g.Entities[idx]
		e.Records++
		e.Pages = appendUnique(e.Pages, rec.Source.URL)
		recordEntity[i] = idx
	}

	// Pass 2: discover references and create connections.
	seenEdges := make(map[string]struct{})
	seenBroken := make(map[string]struct{})
	for i, rec := range records {
		from := recordEntity[i]
		for _, ref := range findReferences(rec.Properties) {
			b.link(g, from, ref, rec.Source.URL, seenEdges, seenBroken)
		}
	}

	b.logger.Debug("entity graph built",
		zap.Int("entities", len(g.Entities)),
		zap.Int("connections", len(g.Connections)),
		zap.Int("broken_references", len(g.Broken)),
		zap.Int("orphans", len(g.Orphans())),
	)
	return g
}

// reference is one identifier discovered inside a record's property tree.
type reference struct {
	targetID string
	property string
}

func (b *Builder) link(
	g *EntityGraph,
	from int,
	ref reference,
	fromPage string,
	seenEdges map[string]struct{},
	seenBroken map[string]struct{},
) {
	to, ok := g.byID[ref.targetID]
	if !ok {
		key := fmt.Sprintf("%d\x00%s", from, ref.targetID)
		if _, dup := seenBroken[key]; dup {
			return
		}
		seenBroken[key] = struct{}{}
		g.Broken = append(g.Broken, BrokenReference{
			From:     from,
			FromID:   g.Entities[from].ID,
			TargetID: ref.targetID,
			Property: ref.property,
			Page:     fromPage,
		})
		return
	}
	if to == from {
		return
	}
	key := fmt.Sprintf("%d\x00%d", from, to)
	if _, dup := seenEdges[key]; dup {
		return
	}
	seenEdges[key] = struct{}{}

	fromEntity := g.Entities[from]
	toEntity := g.Entities[to]
	toPage := ""
	if len(toEntity.Pages) > 0 {
		toPage = toEntity.Pages[0]
	}
	g.Connections = append(g.Connections, Connection{
		From:         from,
		To:           to,
		FromID:       fromEntity.ID,
		ToID:         toEntity.ID,
		FromPage:     fromPage,
		ToPage:       toPage,
		Property:     ref.property,
		Relationship: relationshipFor(fromEntity.Kind, toEntity.Kind),
		CrossPage:    toPage != "" && toPage != fromPage,
	})
	fromEntity.Outgoing = append(fromEntity.Outgoing, to)
	toEntity.Incoming = append(toEntity.Incoming, from)
}

// entityIDFor resolves a record to its entity identity: the real id when
// present, else kind plus normalized name, else kind plus a per-kind
// positional counter.
func entityIDFor(rec schema.SchemaRecord, positional map[string]int) string {
	if rec.HasID() {
		return rec.ID
	}
	if name := rec.Name(); name != "" {
		return rec.Kind + "#" + slugify(name)
	}
	n := positional[rec.Kind]
	positional[rec.Kind]++
	return fmt.Sprintf("%s#pos-%d", rec.Kind, n)
}

// findReferences walks the property tree with an explicit worklist, collecting
// identifier strings under known reference properties and any nested object
// carrying its own @id.
func findReferences(props map[string]any) []reference {
	type item struct {
		value    any
		property string
		depth    int
	}
	var refs []reference
	seen := make(map[string]struct{})
	add := func(targetID, property string) {
		targetID = strings.TrimSpace(targetID)
		if targetID == "" {
			return
		}
		key := targetID + "\x00" + property
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		refs = append(refs, reference{targetID: targetID, property: property})
	}

	var stack []item
	for k, v := range props {
		stack = append(stack, item{value: v, property: k, depth: 1})
	}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch v := it.value.(type) {
		case string:
			if _, known := referenceProperties[it.property]; known && identifierPattern.MatchString(v) {
				add(v, it.property)
			}
		case map[string]any:
			if id, ok := v["@id"].(string); ok {
				add(id, it.property)
			}
			if it.depth >= maxWalkDepth {
				continue
			}
			for k, child := range v {
				if k == "@id" {
					continue
				}
				stack = append(stack, item{value: child, property: k, depth: it.depth + 1})
			}
		case []any:
			if it.depth >= maxWalkDepth {
				continue
			}
			for _, child := range v {
				stack = append(stack, item{value: child, property: it.property, depth: it.depth + 1})
			}
		}
	}
	return refs
}

func slugify(name string) string {
	s := slugPattern.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
