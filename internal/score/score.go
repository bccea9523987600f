// Package score computes the identifier-consistency score for a scan and the
// ranked recommendation list derived from the same groupings.
package score

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/schemascope/schemascope/internal/graph"
	"github.com/schemascope/schemascope/internal/schema"
)

// Sub-score weights. The four components are computed independently and
// combined additively; the final score is clamped to [0, 100].
const (
	coverageWeight    = 40.0
	patternWeight     = 30.0
	reuseBonusCap     = 30.0
	reuseBonusPerID   = 5.0
	perKindPenalty    = 5.0
	maxScore          = 100.0
	minReuseForCredit = 2
)

// recommendedIDPattern is the identifier prefix convention the scorer rewards.
var recommendedIDPattern = regexp.MustCompile(`^schema:[A-Za-z]`)

// Severity orders recommendations in the report.
type Severity string

// Severity levels, highest first.
const (
	SeverityHigh    Severity = "high"
	SeverityMedium  Severity = "medium"
	SeverityLow     Severity = "low"
	SeveritySuccess Severity = "success"
)

var severityRank = map[Severity]int{
	SeverityHigh:    0,
	SeverityMedium:  1,
	SeverityLow:     2,
	SeveritySuccess: 3,
}

// Category is one line of the score breakdown.
type Category struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Max    float64 `json:"max"`
	Detail string  `json:"detail"`
}

// Recommendation is one actionable finding, ordered by severity.
type Recommendation struct {
	Severity        Severity `json:"severity"`
	Category        string   `json:"category"`
	Message         string   `json:"message"`
	AffectedSchemas int      `json:"affected_schemas,omitempty"`
	Kind            string   `json:"kind,omitempty"`
	Identifiers     []string `json:"identifiers,omitempty"`
}

// Result is the scorer output: the clamped 0-100 score, its breakdown, and
// the recommendation list.
type Result struct {
	Score           int              `json:"score"`
	Breakdown       []Category       `json:"breakdown"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Scorer computes consistency scores.
type Scorer struct {
	logger *zap.Logger
}

// New constructs a Scorer.
func New(logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{logger: logger}
}

// Score computes the identifier-consistency score from the records and the
// entity graph built over them.
func (s *Scorer) Score(records []schema.SchemaRecord, g *graph.EntityGraph) Result {
	withID := 0
	uniqueIDs := make(map[string]struct{})
	idPages := make(map[string]map[string]struct{})
	kindIDs := make(map[string]map[string]struct{})
	for _, rec := range records {
		if !rec.HasID() {
			continue
		}
		withID++
		uniqueIDs[rec.ID] = struct{}{}
		if idPages[rec.ID] == nil {
			idPages[rec.ID] = make(map[string]struct{})
		}
		idPages[rec.ID][rec.Source.URL] = struct{}{}
		if kindIDs[rec.Kind] == nil {
			kindIDs[rec.Kind] = make(map[string]struct{})
		}
		kindIDs[rec.Kind][rec.ID] = struct{}{}
	}

	coverage := 0.0
	if len(records) > 0 {
		coverage = float64(withID) / float64(len(records)) * coverageWeight
	}

	compliant := 0
	for id := range uniqueIDs {
		if recommendedIDPattern.MatchString(id) {
			compliant++
		}
	}
	pattern := 0.0
	if len(uniqueIDs) > 0 {
		pattern = float64(compliant) / float64(len(uniqueIDs)) * patternWeight
	}

	// Reuse counts distinct pages per identifier, not raw occurrences.
	reused := 0
	for _, pages := range idPages {
		if len(pages) >= minReuseForCredit {
			reused++
		}
	}
	bonus := math.Min(reuseBonusCap, reuseBonusPerID*float64(reused))

	penalty := 0.0
	inconsistentKinds := 0
	for _, ids := range kindIDs {
		if len(ids) > 1 {
			penalty += perKindPenalty
			inconsistentKinds++
		}
	}

	raw := coverage + pattern + bonus - penalty
	final := int(math.Round(math.Min(maxScore, math.Max(0, raw))))

	s.logger.Debug("consistency score computed",
		zap.Int("records", len(records)),
		zap.Int("with_id", withID),
		zap.Int("unique_ids", len(uniqueIDs)),
		zap.Int("reused_ids", reused),
		zap.Int("inconsistent_kinds", inconsistentKinds),
		zap.Int("score", final),
	)

	return Result{
		Score: final,
		Breakdown: []Category{
			{
				Name:   "identifier_coverage",
				Score:  round1(coverage),
				Max:    coverageWeight,
				Detail: fmt.Sprintf("%d of %d records carry an identifier", withID, len(records)),
			},
			{
				Name:   "pattern_compliance",
				Score:  round1(pattern),
				Max:    patternWeight,
				Detail: fmt.Sprintf("%d of %d unique identifiers follow the schema: prefix", compliant, len(uniqueIDs)),
			},
			{
				Name:   "cross_page_reuse",
				Score:  round1(bonus),
				Max:    reuseBonusCap,
				Detail: fmt.Sprintf("%d identifiers reused on more than one page", reused),
			},
			{
				Name:   "type_consistency",
				Score:  -round1(penalty),
				Max:    0,
				Detail: fmt.Sprintf("%d kinds use more than one identifier", inconsistentKinds),
			},
		},
		Recommendations: s.recommendations(records, g, idPages, kindIDs),
	}
}

// recommendations derives the ranked finding list from the same groupings the
// score uses, so the two never disagree.
func (s *Scorer) recommendations(
	records []schema.SchemaRecord,
	g *graph.EntityGraph,
	idPages map[string]map[string]struct{},
	kindIDs map[string]map[string]struct{},
) []Recommendation {
	var recs []Recommendation

	missing := 0
	for _, rec := range records {
		if !rec.HasID() {
			missing++
		}
	}
	if missing > 0 {
		recs = append(recs, Recommendation{
			Severity:        SeverityHigh,
			Category:        "missing_identifier",
			Message:         fmt.Sprintf("Missing @id: %d schema record(s) have no stable identifier", missing),
			AffectedSchemas: missing,
		})
	}

	for kind, ids := range kindIDs {
		if len(ids) <= 1 {
			continue
		}
		list := sortedKeys(ids)
		recs = append(recs, Recommendation{
			Severity:    SeverityMedium,
			Category:    "type_inconsistency",
			Message:     fmt.Sprintf("Kind %s uses %d different identifiers: %s", kind, len(list), strings.Join(list, ", ")),
			Kind:        kind,
			Identifiers: list,
		})
	}

	for _, id := range sortedKeys(collapse(idPages)) {
		if recommendedIDPattern.MatchString(id) {
			continue
		}
		recs = append(recs, Recommendation{
			Severity:    SeverityLow,
			Category:    "non_standard_pattern",
			Message:     fmt.Sprintf("Identifier %q does not follow the schema: prefix convention", id),
			Identifiers: []string{id},
		})
	}

	for _, id := range sortedKeys(collapse(idPages)) {
		pages := idPages[id]
		if len(pages) < minReuseForCredit || !recommendedIDPattern.MatchString(id) {
			continue
		}
		recs = append(recs, Recommendation{
			Severity:    SeveritySuccess,
			Category:    "consistent_identifier",
			Message:     fmt.Sprintf("Excellent consistency: identifier %q is reused across %d pages", id, len(pages)),
			Identifiers: []string{id},
		})
	}

	if g != nil {
		if broken := len(g.Broken); broken > 0 {
			recs = append(recs, Recommendation{
				Severity:        SeverityMedium,
				Category:        "broken_reference",
				Message:         fmt.Sprintf("%d reference(s) point to identifiers that do not exist in the scan", broken),
				AffectedSchemas: broken,
			})
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return severityRank[recs[i].Severity] < severityRank[recs[j].Severity]
	})
	return recs
}

func collapse(m map[string]map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
