// Package extract parses raw JSON-LD script blocks into validated schema
// records. Parse failures are recorded per block and never abort the page.
package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/schemascope/schemascope/internal/schema"
)

// minMeaningfulFields is the acceptance floor for a record: anything with
// fewer semantically meaningful properties is treated as empty and dropped.
const minMeaningfulFields = 3

// Keys that carry structure rather than meaning; they do not count toward the
// empty-record check.
var structuralKeys = map[string]struct{}{
	"@type":    {},
	"@id":      {},
	"@context": {},
}

// Container properties whose list values hold nested records.
var containerKeys = []string{"@graph", "itemListElement"}

// Extractor turns raw structured-data blocks into SchemaRecords.
type Extractor struct {
	logger *zap.Logger
}

// New constructs an Extractor.
func New(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// Extract parses each raw block and returns the accepted records stamped with
// their source page, plus one ExtractionError per malformed block.
func (e *Extractor) Extract(blocks []string, page schema.PageRef) ([]schema.SchemaRecord, []schema.ExtractionError) {
	var records []schema.SchemaRecord
	var errs []schema.ExtractionError

	for i, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		if !gjson.Valid(block) {
			errs = append(errs, schema.ExtractionError{
				Page:       page.URL,
				BlockIndex: i,
				Message:    "invalid JSON",
			})
			e.logger.Debug("skipping malformed structured-data block",
				zap.String("url", page.URL),
				zap.Int("block", i),
			)
			continue
		}

		parsed := gjson.Parse(block)
		for _, candidate := range flatten(parsed) {
			rec, err := e.toRecord(candidate, page)
			if err != nil {
				errs = append(errs, schema.ExtractionError{
					Page:       page.URL,
					BlockIndex: i,
					Message:    err.Error(),
				})
				continue
			}
			if rec == nil {
				continue
			}
			records = append(records, *rec)
		}
	}
	return records, errs
}

// flatten expands a parsed block into individual candidate objects: a bare
// object, an array of objects, or an object wrapping a list container.
func flatten(v gjson.Result) []gjson.Result {
	switch {
	case v.IsArray():
		var out []gjson.Result
		for _, item := range v.Array() {
			if item.IsObject() {
				out = append(out, item)
			}
		}
		return out
	case v.IsObject():
		for _, key := range containerKeys {
			nested := v.Get(key)
			if nested.IsArray() {
				out := flatten(nested)
				// The container itself may still be a record (e.g. an
				// ItemList with its own identity).
				if kindOf(v) != "" && meaningfulFieldCount(v) >= minMeaningfulFields {
					out = append(out, v)
				}
				return out
			}
		}
		return []gjson.Result{v}
	default:
		return nil
	}
}

// toRecord validates one candidate object. A nil record with nil error means
// the candidate was silently rejected (no kind, or empty).
func (e *Extractor) toRecord(v gjson.Result, page schema.PageRef) (*schema.SchemaRecord, error) {
	kind := kindOf(v)
	if kind == "" {
		return nil, nil
	}
	if meaningfulFieldCount(v) < minMeaningfulFields {
		return nil, nil
	}

	var props map[string]any
	if err := json.Unmarshal([]byte(v.Raw), &props); err != nil {
		return nil, fmt.Errorf("decode record properties: %w", err)
	}
	delete(props, "@type")
	delete(props, "@context")

	id := strings.TrimSpace(v.Get(`@id`).String())
	delete(props, "@id")

	return &schema.SchemaRecord{
		Kind:       kind,
		ID:         id,
		Properties: props,
		Source:     page,
	}, nil
}

// kindOf returns the record's type, taking the first entry when @type is an
// array.
func kindOf(v gjson.Result) string {
	t := v.Get(`@type`)
	if t.IsArray() {
		arr := t.Array()
		if len(arr) == 0 {
			return ""
		}
		t = arr[0]
	}
	if t.Type != gjson.String {
		return ""
	}
	return strings.TrimSpace(t.String())
}

func meaningfulFieldCount(v gjson.Result) int {
	count := 0
	v.ForEach(func(key, _ gjson.Result) bool {
		if _, structural := structuralKeys[key.String()]; !structural {
			count++
		}
		return true
	})
	return count
}
