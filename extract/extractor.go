// Package extract reads fields from listing elements through ordered
// strategy chains and assembles them into records.
package extract

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/fwojciec/sift"
)

// Extractor evaluates field strategies against a PageSource.
// No state is shared between strategy attempts.
type Extractor struct {
	Source sift.PageSource
}

// NewExtractor returns an Extractor reading from src.
func NewExtractor(src sift.PageSource) *Extractor {
	return &Extractor{Source: src}
}

// Field returns the first value accepted by a strategy of spec, trying them
// in order. Query errors count as a miss for that strategy only.
// Returns sift.Unknown when nothing matched.
func (e *Extractor) Field(ctx context.Context, scope sift.Element, spec sift.FieldSpec) string {
	for _, st := range spec.Strategies {
		if v, ok := e.try(ctx, scope, st); ok {
			return v
		}
	}
	return sift.Unknown
}

func (e *Extractor) try(ctx context.Context, scope sift.Element, st sift.Strategy) (string, bool) {
	raw, found, err := e.Source.QueryAttribute(ctx, scope, st.Selector, st.Attribute)
	if err != nil || !found {
		return "", false
	}
	for _, c := range candidates(raw, st.Lines) {
		if v, ok := Accept(st, c); ok {
			return v, true
		}
	}
	return "", false
}

// List returns the values of the first strategy of spec that yields at least
// one accepted value, capped at spec.Limit when positive. Each strategy
// selector matches the list entries under scope. Never returns nil.
func (e *Extractor) List(ctx context.Context, scope sift.Element, spec sift.ListSpec) []string {
	for _, st := range spec.Strategies {
		if out := e.list(ctx, scope, st, spec.Limit); len(out) > 0 {
			return out
		}
	}
	return []string{}
}

func (e *Extractor) list(ctx context.Context, scope sift.Element, st sift.Strategy, limit int) []string {
	entries := []sift.Element{scope}
	if st.Selector != "" {
		els, err := e.Source.QueryAll(ctx, scope, st.Selector)
		if err != nil {
			return nil
		}
		entries = els
	}

	var out []string
	for _, el := range entries {
		raw, found, err := e.Source.QueryAttribute(ctx, el, "", st.Attribute)
		if err != nil || !found {
			continue
		}
		v, ok := Accept(st, raw)
		if !ok {
			continue
		}
		out = append(out, v)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Accept applies the validity checks of st to one candidate value and
// returns the cleaned value. Whitespace is collapsed first.
func Accept(st sift.Strategy, raw string) (string, bool) {
	v := Collapse(raw)
	if v == "" || v == sift.Unknown {
		return "", false
	}

	lower := strings.ToLower(v)
	if len(st.Contains) > 0 && !containsAny(lower, st.Contains) {
		return "", false
	}
	if containsAny(lower, st.Exclude) {
		return "", false
	}

	if st.Pattern != nil {
		m := st.Pattern.FindStringSubmatch(v)
		if m == nil {
			return "", false
		}
		v = m[0]
		if len(m) > 1 {
			v = m[1]
		}
		v = strings.TrimSpace(v)
		if v == "" {
			return "", false
		}
	}

	if utf8.RuneCountInString(v) < st.MinLength {
		return "", false
	}
	return v, true
}

// Collapse trims s and folds every whitespace run into one space.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func candidates(raw string, lines bool) []string {
	if !lines {
		return []string{raw}
	}
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func containsAny(lower string, subs []string) bool {
	for _, s := range subs {
		if s != "" && strings.Contains(lower, strings.ToLower(s)) {
			return true
		}
	}
	return false
}
