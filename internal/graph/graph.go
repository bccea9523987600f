// Package graph links schema records across pages into an entity graph,
// detecting cross-page connections, broken references, and orphaned entities.
package graph

// Entity is one distinct real-world thing derived from one or more schema
// records sharing an identifier. Entities live in a flat arena; connections
// reference arena indices rather than pointers.
type Entity struct {
	Index     int      `json:"index"`
	ID        string   `json:"id"`
	Kind      string   `json:"kind"`
	Name      string   `json:"name,omitempty"`
	Synthetic bool     `json:"synthetic"`
	Pages     []string `json:"pages"`
	Records   int      `json:"records"`

	// Incoming and Outgoing hold arena indices of connected entities.
	Incoming []int `json:"incoming_refs"`
	Outgoing []int `json:"outgoing_refs"`
}

// Orphaned reports whether the entity has no valid connections in either
// direction. Broken outgoing references do not count.
func (e *Entity) Orphaned() bool {
	return len(e.Incoming) == 0 && len(e.Outgoing) == 0
}

// Connection is an edge between two entities. Edges are undirected for
// connectivity purposes but retain their direction for display.
type Connection struct {
	From         int    `json:"from"`
	To           int    `json:"to"`
	FromID       string `json:"from_id"`
	ToID         string `json:"to_id"`
	FromPage     string `json:"from_page"`
	ToPage       string `json:"to_page"`
	Property     string `json:"property,omitempty"`
	Relationship string `json:"relationship"`
	CrossPage    bool   `json:"cross_page"`
}

// BrokenReference records a reference to an identifier with no matching
// entity in the scan.
type BrokenReference struct {
	From     int    `json:"from"`
	FromID   string `json:"from_id"`
	TargetID string `json:"target_id"`
	Property string `json:"property,omitempty"`
	Page     string `json:"page"`
}

// EntityGraph is the output of Build.
type EntityGraph struct {
	Entities    []*Entity         `json:"entities"`
	Connections []Connection      `json:"connections"`
	Broken      []BrokenReference `json:"broken_references"`

	byID map[string]int
}

// Lookup resolves an entity id to its arena index.
func (g *EntityGraph) Lookup(id string) (int, bool) {
	idx, ok := g.byID[id]
	return idx, ok
}

// Orphans returns the arena indices of entities with no valid connections.
func (g *EntityGraph) Orphans() []int {
	var out []int
	for _, e := range g.Entities {
		if e.Orphaned() {
			out = append(out, e.Index)
		}
	}
	return out
}

// CrossPageConnections returns only the edges spanning two distinct pages.
func (g *EntityGraph) CrossPageConnections() []Connection {
	var out []Connection
	for _, c := range g.Connections {
		if c.CrossPage {
			out = append(out, c)
		}
	}
	return out
}
