package node

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	// Analysis components referenced by index settings payloads.
	_ "github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	_ "github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	_ "github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	_ "github.com/blevesearch/bleve/v2/analysis/char/asciifolding"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/fr"
	_ "github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	_ "github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
)

// typeField carries the document type inside the indexed source.
const typeField = "_type"

// Settings keys handled by the node rather than the engine.
const (
	settingShards   = "number_of_shards"
	settingReplicas = "number_of_replicas"
)

// indexSettings holds node-level settings extracted from a payload.
type indexSettings struct {
	shards   int
	replicas int
}

// buildIndexMapping turns raw settings and per-type mapping payloads into
// an engine mapping. Settings keys other than shard and replica counts
// (analysis, default_analyzer, ...) are handed to the engine unchanged;
// each mapping payload becomes the document mapping of its type.
func buildIndexMapping(settings string, mappings map[string]string) (*mapping.IndexMappingImpl, indexSettings, error) {
	parsed := indexSettings{shards: 1}

	top := map[string]json.RawMessage{}
	if strings.TrimSpace(settings) != "" {
		if err := json.Unmarshal([]byte(settings), &top); err != nil {
			return nil, parsed, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
		}
	}
	// Accept settings nested under "index" too.
	if nested, ok := top["index"]; ok {
		inner := map[string]json.RawMessage{}
		if err := json.Unmarshal(nested, &inner); err != nil {
			return nil, parsed, fmt.Errorf("%w: index: %v", ErrInvalidSettings, err)
		}
		delete(top, "index")
		for k, v := range inner {
			if _, exists := top[k]; !exists {
				top[k] = v
			}
		}
	}

	for key, dst := range map[string]*int{settingShards: &parsed.shards, settingReplicas: &parsed.replicas} {
		raw, ok := top[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, dst); err != nil || *dst < 0 {
			return nil, parsed, fmt.Errorf("%w: %s must be a non-negative integer", ErrInvalidSettings, key)
		}
		delete(top, key)
	}
	if parsed.shards == 0 {
		return nil, parsed, fmt.Errorf("%w: %s must be at least 1", ErrInvalidSettings, settingShards)
	}

	if len(mappings) > 0 {
		types := make(map[string]json.RawMessage, len(mappings))
		for typ, raw := range mappings {
			if strings.TrimSpace(typ) == "" {
				return nil, parsed, fmt.Errorf("%w: type name is required", ErrInvalidMapping)
			}
			if !json.Valid([]byte(raw)) {
				return nil, parsed, fmt.Errorf("%w: type %s is not valid JSON", ErrInvalidMapping, typ)
			}
			types[typ] = json.RawMessage(raw)
		}
		encoded, err := json.Marshal(types)
		if err != nil {
			return nil, parsed, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
		}
		top["types"] = encoded
		if _, ok := top["default_type"]; !ok {
			if def := defaultTypeOf(mappings); def != "" {
				top["default_type"], _ = json.Marshal(def)
			}
		}
	}

	im := bleve.NewIndexMapping()
	if len(top) > 0 {
		encoded, err := json.Marshal(top)
		if err != nil {
			return nil, parsed, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
		}
		if err := json.Unmarshal(encoded, im); err != nil {
			return nil, parsed, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
		}
	}
	im.TypeField = typeField

	// The type marker routes documents to their mapping but is not searchable.
	im.DefaultMapping.AddSubDocumentMapping(typeField, bleve.NewDocumentDisabledMapping())
	for _, dm := range im.TypeMapping {
		dm.AddSubDocumentMapping(typeField, bleve.NewDocumentDisabledMapping())
	}

	if err := im.Validate(); err != nil {
		return nil, parsed, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
	}
	return im, parsed, nil
}

// defaultTypeOf returns the only type of a single-type mapping set.
func defaultTypeOf(mappings map[string]string) string {
	if len(mappings) != 1 {
		return ""
	}
	for typ := range mappings {
		return typ
	}
	return ""
}

func sortedTypes(mappings map[string]string) []string {
	types := make([]string, 0, len(mappings))
	for typ := range mappings {
		types = append(types, typ)
	}
	slices.Sort(types)
	return types
}
