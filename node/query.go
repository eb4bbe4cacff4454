package node

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Query builds an engine query.
type Query interface {
	Build() (query.Query, error)
}

// MatchAllQuery matches every document.
type MatchAllQuery struct{}

// MatchAll returns a query matching every document.
func MatchAll() MatchAllQuery {
	return MatchAllQuery{}
}

// Build implements Query.
func (MatchAllQuery) Build() (query.Query, error) {
	return bleve.NewMatchAllQuery(), nil
}

type boostedField struct {
	name  string
	boost float64
}

// QueryStringQuery searches with the engine's query-string syntax
// (`+must -not field:value "phrase" prefix*`).
type QueryStringQuery struct {
	text    string
	lenient bool
	fields  []boostedField
}

// QueryString returns a strict query-string query: syntax errors fail the
// search.
func QueryString(text string) *QueryStringQuery {
	return &QueryStringQuery{text: text}
}

// SimpleQueryString returns a lenient query-string query: text that does
// not parse is searched as plain words instead.
func SimpleQueryString(text string) *QueryStringQuery {
	return &QueryStringQuery{text: text, lenient: true}
}

// MultiFieldQueryString returns a lenient query searching every listed
// field. A field may carry a boost suffix, as in "titre^10".
func MultiFieldQueryString(text string, fields ...string) *QueryStringQuery {
	q := SimpleQueryString(text)
	for _, f := range fields {
		name, boost := f, 1.0
		if i := strings.LastIndexByte(f, '^'); i > 0 {
			if b, err := strconv.ParseFloat(f[i+1:], 64); err == nil {
				name, boost = f[:i], b
			}
		}
		q.Field(name, boost)
	}
	return q
}

// Field restricts the search to field, weighting its matches by boost.
// Repeated calls search several fields. A boost <= 0 means 1.
func (q *QueryStringQuery) Field(name string, boost float64) *QueryStringQuery {
	if boost <= 0 {
		boost = 1
	}
	q.fields = append(q.fields, boostedField{name: name, boost: boost})
	return q
}

// Build implements Query. With fields set, every clause of the parsed
// query that names no field is searched in each of them instead.
func (q *QueryStringQuery) Build() (query.Query, error) {
	parsed, err := bleve.NewQueryStringQuery(q.text).Parse()
	if err != nil {
		if !q.lenient {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidQuery, q.text, err)
		}
		parsed = bleve.NewMatchQuery(q.text)
	}
	if len(q.fields) == 0 {
		return parsed, nil
	}
	return q.spread(parsed), nil
}

// spread rewrites the field-less leaves of a parsed query into a
// disjunction over the configured fields.
func (q *QueryStringQuery) spread(part query.Query) query.Query {
	switch v := part.(type) {
	case *query.BooleanQuery:
		if v.Must != nil {
			v.Must = q.spread(v.Must)
		}
		if v.Should != nil {
			v.Should = q.spread(v.Should)
		}
		if v.MustNot != nil {
			v.MustNot = q.spread(v.MustNot)
		}
		if v.Filter != nil {
			v.Filter = q.spread(v.Filter)
		}
		return v
	case *query.ConjunctionQuery:
		for i, c := range v.Conjuncts {
			v.Conjuncts[i] = q.spread(c)
		}
		return v
	case *query.DisjunctionQuery:
		for i, d := range v.Disjuncts {
			v.Disjuncts[i] = q.spread(d)
		}
		return v
	case query.FieldableQuery:
		if v.Field() != "" {
			return v
		}
		disjuncts := make([]query.Query, 0, len(q.fields))
		for _, f := range q.fields {
			leaf, ok := cloneLeaf(v)
			if !ok {
				return v
			}
			leaf.SetField(f.name)
			if b, ok := leaf.(query.BoostableQuery); ok {
				b.SetBoost(b.Boost() * f.boost)
			}
			disjuncts = append(disjuncts, leaf)
		}
		return bleve.NewDisjunctionQuery(disjuncts...)
	}
	return part
}

// cloneLeaf copies the leaf kinds the query-string parser produces.
func cloneLeaf(leaf query.FieldableQuery) (query.FieldableQuery, bool) {
	switch v := leaf.(type) {
	case *query.MatchQuery:
		c := *v
		return &c, true
	case *query.MatchPhraseQuery:
		c := *v
		return &c, true
	case *query.WildcardQuery:
		c := *v
		return &c, true
	case *query.RegexpQuery:
		c := *v
		return &c, true
	case *query.NumericRangeQuery:
		c := *v
		return &c, true
	case *query.DateRangeQuery:
		c := *v
		return &c, true
	}
	return nil, false
}

// FunctionScoreQuery rescales the score of a wrapped query.
type FunctionScoreQuery struct {
	inner  Query
	factor float64
}

// FunctionScore wraps q. Without a boost factor scores are unchanged.
func FunctionScore(q Query) *FunctionScoreQuery {
	return &FunctionScoreQuery{inner: q, factor: 1}
}

// BoostFactor multiplies the wrapped query's scores by f.
func (q *FunctionScoreQuery) BoostFactor(f float64) *FunctionScoreQuery {
	q.factor = f
	return q
}

// Build implements Query.
func (q *FunctionScoreQuery) Build() (query.Query, error) {
	built, err := buildOrMatchAll(q.inner)
	if err != nil {
		return nil, err
	}
	if q.factor == 1 || q.factor <= 0 {
		return built, nil
	}
	if bq, ok := built.(query.BoostableQuery); ok {
		bq.SetBoost(bq.Boost() * q.factor)
		return bq, nil
	}
	// Wrap non-boostable queries so the factor still applies.
	wrapped := bleve.NewConjunctionQuery(built)
	wrapped.SetBoost(q.factor)
	return wrapped, nil
}

// BoolQuery combines clauses with boolean logic.
type BoolQuery struct {
	must    []Query
	should  []Query
	mustNot []Query
}

// Bool returns an empty boolean query.
func Bool() *BoolQuery {
	return &BoolQuery{}
}

// Must adds clauses every hit has to match.
func (q *BoolQuery) Must(qs ...Query) *BoolQuery {
	q.must = append(q.must, qs...)
	return q
}

// Should adds optional clauses. Without Must clauses at least one Should
// clause has to match.
func (q *BoolQuery) Should(qs ...Query) *BoolQuery {
	q.should = append(q.should, qs...)
	return q
}

// MustNot adds clauses excluding documents.
func (q *BoolQuery) MustNot(qs ...Query) *BoolQuery {
	q.mustNot = append(q.mustNot, qs...)
	return q
}

// Build implements Query.
func (q *BoolQuery) Build() (query.Query, error) {
	bq := bleve.NewBooleanQuery()

	must, err := buildAll(q.must)
	if err != nil {
		return nil, err
	}
	should, err := buildAll(q.should)
	if err != nil {
		return nil, err
	}
	mustNot, err := buildAll(q.mustNot)
	if err != nil {
		return nil, err
	}

	if len(must) > 0 {
		bq.AddMust(must...)
	}
	if len(should) > 0 {
		bq.AddShould(should...)
		if len(must) == 0 {
			bq.SetMinShould(1)
		}
	}
	if len(mustNot) > 0 {
		bq.AddMustNot(mustNot...)
	}
	if len(must) == 0 && len(should) == 0 {
		bq.AddMust(bleve.NewMatchAllQuery())
	}
	return bq, nil
}

// FilteredQuery restricts a query to documents matching a filter.
type FilteredQuery struct {
	query  Query
	filter Query
}

// Filtered returns q restricted to documents matching filter.
func Filtered(q, filter Query) *FilteredQuery {
	return &FilteredQuery{query: q, filter: filter}
}

// Build implements Query.
func (q *FilteredQuery) Build() (query.Query, error) {
	built, err := buildOrMatchAll(q.query)
	if err != nil {
		return nil, err
	}
	if q.filter == nil {
		return built, nil
	}
	filter, err := q.filter.Build()
	if err != nil {
		return nil, err
	}
	return bleve.NewConjunctionQuery(built, filter), nil
}

// TermFilterQuery matches documents whose field equals a value exactly.
type TermFilterQuery struct {
	field string
	value any
}

// TermFilter matches documents whose field equals value. Numbers compare
// numerically, strings against the indexed term, booleans against boolean
// fields.
func TermFilter(field string, value any) *TermFilterQuery {
	return &TermFilterQuery{field: field, value: value}
}

// Build implements Query.
func (q *TermFilterQuery) Build() (query.Query, error) {
	switch v := q.value.(type) {
	case string:
		tq := bleve.NewTermQuery(v)
		tq.SetField(q.field)
		return tq, nil
	case bool:
		bq := bleve.NewBoolFieldQuery(v)
		bq.SetField(q.field)
		return bq, nil
	}

	f, ok := toFloat(q.value)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported term value %T for field %s", ErrInvalidQuery, q.value, q.field)
	}
	inclusive := true
	nq := bleve.NewNumericRangeInclusiveQuery(&f, &f, &inclusive, &inclusive)
	nq.SetField(q.field)
	return nq, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func buildOrMatchAll(q Query) (query.Query, error) {
	if q == nil {
		return bleve.NewMatchAllQuery(), nil
	}
	return q.Build()
}

func buildAll(qs []Query) ([]query.Query, error) {
	out := make([]query.Query, 0, len(qs))
	for _, q := range qs {
		if q == nil {
			continue
		}
		built, err := q.Build()
		if err != nil {
			return nil, err
		}
		out = append(out, built)
	}
	return out, nil
}
