// Package bloom provides listing URL deduplication using Bloom filters.
package bloom

import (
	"github.com/bits-and-blooms/bloom/v3"
	"github.com/fwojciec/sift"
)

// Ensure Filter implements sift.URLSet at compile time.
var _ sift.URLSet = (*Filter)(nil)

// DefaultFalsePositiveRate is used by Factory.
const DefaultFalsePositiveRate = 0.001

// Filter is a probabilistic set of record URLs. URLs pass through
// sift.CanonicalURL before hashing.
type Filter struct {
	f *bloom.BloomFilter
}

// NewFilter creates a new Bloom filter sized for n expected URLs
// with the given false positive rate.
func NewFilter(n uint, fpRate float64) *Filter {
	return &Filter{
		f: bloom.NewWithEstimates(n, fpRate),
	}
}

// Factory returns a constructor of fresh filters sized for n URLs,
// suitable for scrape.Pipeline.NewURLSet.
func Factory(n uint) func() sift.URLSet {
	if n == 0 {
		n = 1000
	}
	return func() sift.URLSet {
		return NewFilter(n, DefaultFalsePositiveRate)
	}
}

// Add adds a URL to the filter.
func (f *Filter) Add(rawURL string) {
	f.f.AddString(sift.CanonicalURL(rawURL))
}

// Test returns true if the URL might be in the filter.
// False positives are possible; false negatives are not.
func (f *Filter) Test(rawURL string) bool {
	return f.f.TestString(sift.CanonicalURL(rawURL))
}

// EstimatedCount returns the approximate number of URLs in the filter.
func (f *Filter) EstimatedCount() uint {
	return uint(f.f.ApproximatedSize())
}
