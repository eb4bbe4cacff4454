package node

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// TermsOrder orders terms buckets.
type TermsOrder int

const (
	// OrderCountDesc sorts by document count, most frequent first.
	// Ties are broken by term ascending.
	OrderCountDesc TermsOrder = iota
	// OrderTermAsc sorts by term ascending.
	OrderTermAsc
	// OrderTermDesc sorts by term descending.
	OrderTermDesc
)

const defaultTermsSize = 10

// TermsAggregation buckets matching documents by the distinct values of a
// field.
type TermsAggregation struct {
	name  string
	field string
	size  int
	order TermsOrder
	subs  []*TermsAggregation
}

// Terms returns a terms aggregation over field, reported under name.
func Terms(name, field string) *TermsAggregation {
	return &TermsAggregation{name: name, field: field, size: defaultTermsSize}
}

// Name returns the name results are reported under.
func (a *TermsAggregation) Name() string {
	return a.name
}

// Size caps the number of buckets. Values <= 0 keep the default.
func (a *TermsAggregation) Size(n int) *TermsAggregation {
	if n > 0 {
		a.size = n
	}
	return a
}

// Order sets the bucket order.
func (a *TermsAggregation) Order(o TermsOrder) *TermsAggregation {
	a.order = o
	return a
}

// SubAggregation computes sub within every bucket.
func (a *TermsAggregation) SubAggregation(sub *TermsAggregation) *TermsAggregation {
	a.subs = append(a.subs, sub)
	return a
}

// fields appends every field the aggregation tree reads.
func (a *TermsAggregation) fields(dst []string) []string {
	dst = append(dst, a.field)
	for _, sub := range a.subs {
		dst = sub.fields(dst)
	}
	return dst
}

// Aggregations maps aggregation names to their results.
type Aggregations map[string]*AggregationResult

// Terms returns the named terms result.
func (a Aggregations) Terms(name string) (*AggregationResult, bool) {
	r, ok := a[name]
	return r, ok
}

// AggregationResult holds the buckets of a terms aggregation.
type AggregationResult struct {
	Buckets []Bucket `json:"buckets"`
	// SumOtherDocCount counts documents in buckets cut by the size limit.
	SumOtherDocCount int `json:"sum_other_doc_count"`
}

// Bucket is one distinct term with its document count.
type Bucket struct {
	Key          string
	DocCount     int
	Aggregations Aggregations
}

// MarshalJSON inlines sub-aggregations next to key and doc_count.
func (b Bucket) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 2+len(b.Aggregations))
	for name, sub := range b.Aggregations {
		out[name] = sub
	}
	out["key"] = b.Key
	out["doc_count"] = b.DocCount
	return json.Marshal(out)
}

// compute buckets docs, each a map of stored field values.
func (a *TermsAggregation) compute(docs []map[string]any) *AggregationResult {
	groups := make(map[string][]map[string]any)
	for _, doc := range docs {
		seen := map[string]bool{}
		for _, key := range termKeys(doc[a.field]) {
			if seen[key] {
				continue
			}
			seen[key] = true
			groups[key] = append(groups[key], doc)
		}
	}

	buckets := make([]Bucket, 0, len(groups))
	for key, members := range groups {
		buckets = append(buckets, Bucket{Key: key, DocCount: len(members)})
	}

	sort.Slice(buckets, func(i, j int) bool {
		bi, bj := buckets[i], buckets[j]
		switch a.order {
		case OrderTermAsc:
			return compareTerms(bi.Key, bj.Key) < 0
		case OrderTermDesc:
			return compareTerms(bi.Key, bj.Key) > 0
		default:
			if bi.DocCount != bj.DocCount {
				return bi.DocCount > bj.DocCount
			}
			return compareTerms(bi.Key, bj.Key) < 0
		}
	})

	result := &AggregationResult{}
	if len(buckets) > a.size {
		for _, cut := range buckets[a.size:] {
			result.SumOtherDocCount += cut.DocCount
		}
		buckets = buckets[:a.size]
	}

	for i := range buckets {
		if len(a.subs) == 0 {
			continue
		}
		members := groups[buckets[i].Key]
		buckets[i].Aggregations = make(Aggregations, len(a.subs))
		for _, sub := range a.subs {
			buckets[i].Aggregations[sub.name] = sub.compute(members)
		}
	}
	result.Buckets = buckets
	return result
}

// termKeys renders a stored field value as bucket keys. Multi-valued
// fields yield one key per value.
func termKeys(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return []string{t}
	case float64:
		return []string{strconv.FormatFloat(t, 'f', -1, 64)}
	case bool:
		return []string{strconv.FormatBool(t)}
	case time.Time:
		return []string{t.UTC().Format(time.RFC3339)}
	case []any:
		keys := make([]string, 0, len(t))
		for _, item := range t {
			keys = append(keys, termKeys(item)...)
		}
		return keys
	default:
		return []string{fmt.Sprint(t)}
	}
}

// compareTerms orders numeric keys numerically and everything else
// lexically; numbers sort before words.
func compareTerms(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	switch {
	case errA == nil && errB == nil:
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(a, b)
}
