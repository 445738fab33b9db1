package extract

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/fwojciec/sift"
)

// Builder assembles records from listing elements. Title is mandatory:
// elements without one are discarded and counted. Ids follow the emission
// sequence, so they stay dense whatever is discarded.
//
// A Builder is not safe for concurrent use.
type Builder struct {
	Extractor  *Extractor
	Profile    *sift.Profile
	Normalizer *sift.Normalizer

	// Now stamps emitted records. Defaults to time.Now.
	Now func() time.Time

	base      *url.URL
	emitted   int
	discarded int
}

// NewBuilder returns a Builder reading elements from src with profile p.
func NewBuilder(src sift.PageSource, p *sift.Profile) (*Builder, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	n, err := sift.NewNormalizer(p.Locale, p.Currency)
	if err != nil {
		return nil, err
	}
	b := &Builder{
		Extractor:  NewExtractor(src),
		Profile:    p,
		Normalizer: n,
	}
	if p.BaseURL != "" {
		b.base, _ = url.Parse(p.BaseURL)
	}
	return b, nil
}

// Build assembles and emits the record for el.
// The boolean is false when the element was discarded.
func (b *Builder) Build(ctx context.Context, el sift.Element) (*sift.Record, bool) {
	r, ok := b.Assemble(ctx, el)
	if !ok {
		return nil, false
	}
	b.Emit(r)
	return r, true
}

// Assemble extracts and normalizes the fields of el without emitting it.
// A missing title counts as a discard.
func (b *Builder) Assemble(ctx context.Context, el sift.Element) (*sift.Record, bool) {
	p := b.Profile
	e := b.Extractor

	title := e.Field(ctx, el, p.Title)
	if title == sift.Unknown {
		b.discarded++
		return nil, false
	}

	r := &sift.Record{
		Title:      title,
		URL:        b.resolve(e.Field(ctx, el, p.URL)),
		ImageURL:   b.resolve(e.Field(ctx, el, p.Image)),
		Features:   []string{},
		Reviews:    []string{},
		Enrichment: sift.EnrichmentPending,
	}
	r.PriceDisplay, r.PriceNum = b.Normalizer.Price(e.Field(ctx, el, p.Price))
	r.RatingDisplay, r.RatingNum = b.Normalizer.Rating(e.Field(ctx, el, p.Rating))
	r.ReviewCount = b.Normalizer.Count(e.Field(ctx, el, p.ReviewCount))
	return r, true
}

// Emit assigns the next id and timestamp to r.
func (b *Builder) Emit(r *sift.Record) {
	b.emitted++
	r.ID = b.emitted
	r.Timestamp = b.now()
}

// Skip counts an assembled record that will not be emitted as a discard.
func (b *Builder) Skip() { b.discarded++ }

// Emitted returns the number of records emitted so far.
func (b *Builder) Emitted() int { return b.emitted }

// Discarded returns the number of elements discarded so far.
func (b *Builder) Discarded() int { return b.discarded }

// Resolve resolves a possibly relative URL against the profile base URL.
// The sentinel and empty values resolve to "".
func (b *Builder) Resolve(raw string) string { return b.resolve(raw) }

func (b *Builder) resolve(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == sift.Unknown {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if b.base == nil || ref.IsAbs() {
		return ref.String()
	}
	return b.base.ResolveReference(ref).String()
}

func (b *Builder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}
