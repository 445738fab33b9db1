package sift

import (
	"math"
	"strconv"
	"strings"
)

// PredicateKind identifies a selection rule.
type PredicateKind string

const (
	PredicateAll      PredicateKind = "all"
	PredicateIDs      PredicateKind = "ids"
	PredicateBest     PredicateKind = "best"
	PredicateCheapest PredicateKind = "cheapest"
	PredicateRange    PredicateKind = "range"
)

// Predicate selects a subset of collected records.
// IDs is used by PredicateIDs; Min and Max by PredicateRange.
type Predicate struct {
	Kind PredicateKind `json:"kind"`
	IDs  []int         `json:"ids,omitempty"`
	Min  float64       `json:"min,omitempty"`
	Max  float64       `json:"max,omitempty"`
}

// SelectAll selects every record.
func SelectAll() Predicate { return Predicate{Kind: PredicateAll} }

// SelectIDs selects the records with the given ids.
func SelectIDs(ids ...int) Predicate { return Predicate{Kind: PredicateIDs, IDs: ids} }

// SelectBest selects the highest rated record.
func SelectBest() Predicate { return Predicate{Kind: PredicateBest} }

// SelectCheapest selects the lowest priced record.
func SelectCheapest() Predicate { return Predicate{Kind: PredicateCheapest} }

// SelectRange selects records priced within [min, max].
// Use math.Inf(1) for an open upper bound.
func SelectRange(min, max float64) Predicate {
	return Predicate{Kind: PredicateRange, Min: min, Max: max}
}

// Validate returns an EINVALID error for malformed parameters.
func (p Predicate) Validate() error {
	switch p.Kind {
	case PredicateAll, PredicateBest, PredicateCheapest:
		return nil
	case PredicateIDs:
		if len(p.IDs) == 0 {
			return Errorf(EINVALID, "at least one id required")
		}
		for _, id := range p.IDs {
			if id <= 0 {
				return Errorf(EINVALID, "invalid id %d", id)
			}
		}
		return nil
	case PredicateRange:
		if math.IsNaN(p.Min) || math.IsNaN(p.Max) {
			return Errorf(EINVALID, "price bounds must be numbers")
		}
		if p.Min < 0 || p.Max < 0 {
			return Errorf(EINVALID, "price bounds must be non-negative")
		}
		if p.Min > p.Max {
			return Errorf(EINVALID, "minimum price %g exceeds maximum %g", p.Min, p.Max)
		}
		return nil
	default:
		return Errorf(EINVALID, "unknown predicate %q", p.Kind)
	}
}

// String renders the predicate in the form accepted by ParsePredicate.
func (p Predicate) String() string {
	switch p.Kind {
	case PredicateIDs:
		parts := make([]string, len(p.IDs))
		for i, id := range p.IDs {
			parts[i] = strconv.Itoa(id)
		}
		return strings.Join(parts, ",")
	case PredicateRange:
		max := ""
		if !math.IsInf(p.Max, 1) {
			max = strconv.FormatFloat(p.Max, 'f', -1, 64)
		}
		return "range:" + strconv.FormatFloat(p.Min, 'f', -1, 64) + "-" + max
	default:
		return string(p.Kind)
	}
}

// ParsePredicate parses a selection command: "all", "best", "cheapest",
// a comma-separated id list such as "1,3,5", or "range:MIN-MAX" where either
// bound may be left blank. The result is validated.
func ParsePredicate(s string) (Predicate, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	var p Predicate
	switch s {
	case "", "all", "todos":
		p = SelectAll()
	case "best", "mejor":
		p = SelectBest()
	case "cheapest", "barato":
		p = SelectCheapest()
	default:
		if rest, ok := strings.CutPrefix(s, "range:"); ok {
			lo, hi, found := strings.Cut(rest, "-")
			if !found {
				return Predicate{}, Errorf(EINVALID, "range must be MIN-MAX, got %q", rest)
			}
			min, err := parseBound(lo, 0)
			if err != nil {
				return Predicate{}, err
			}
			max, err := parseBound(hi, math.Inf(1))
			if err != nil {
				return Predicate{}, err
			}
			p = SelectRange(min, max)
			break
		}

		var ids []int
		for _, part := range strings.Split(s, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.Atoi(part)
			if err != nil {
				return Predicate{}, Errorf(EINVALID, "invalid selection %q", s)
			}
			ids = append(ids, id)
		}
		p = SelectIDs(ids...)
	}

	if err := p.Validate(); err != nil {
		return Predicate{}, err
	}
	return p, nil
}

func parseBound(s string, blank float64) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return blank, nil
	}
	v, ok := ParsePrice(s)
	if !ok {
		return 0, Errorf(EINVALID, "invalid price bound %q", s)
	}
	return v, nil
}

// Filter returns the records matching pred in emission order.
// Unknown prices and ratings (0) never satisfy price or rating rules.
// Invalid predicates return an error and no subset.
func Filter(records []*Record, pred Predicate) ([]*Record, error) {
	if err := pred.Validate(); err != nil {
		return nil, err
	}

	switch pred.Kind {
	case PredicateIDs:
		want := make(map[int]struct{}, len(pred.IDs))
		for _, id := range pred.IDs {
			want[id] = struct{}{}
		}
		var out []*Record
		for _, r := range records {
			if _, ok := want[r.ID]; ok {
				out = append(out, r)
			}
		}
		return out, nil

	case PredicateBest:
		var best *Record
		for _, r := range records {
			if !r.HasRating() {
				continue
			}
			if best == nil || r.RatingNum > best.RatingNum ||
				(r.RatingNum == best.RatingNum && r.ReviewCount > best.ReviewCount) {
				best = r
			}
		}
		if best == nil {
			return nil, nil
		}
		return []*Record{best}, nil

	case PredicateCheapest:
		var cheapest *Record
		for _, r := range records {
			if !r.HasPrice() {
				continue
			}
			if cheapest == nil || r.PriceNum < cheapest.PriceNum {
				cheapest = r
			}
		}
		if cheapest == nil {
			return nil, nil
		}
		return []*Record{cheapest}, nil

	case PredicateRange:
		var out []*Record
		for _, r := range records {
			if r.HasPrice() && r.PriceNum >= pred.Min && r.PriceNum <= pred.Max {
				out = append(out, r)
			}
		}
		return out, nil
	}

	out := make([]*Record, len(records))
	copy(out, records)
	return out, nil
}
