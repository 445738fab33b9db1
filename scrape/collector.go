// Package scrape orchestrates listing extraction: collecting records,
// enriching them from detail pages and driving the overall pipeline.
package scrape

import (
	"context"

	"github.com/fwojciec/sift"
	"github.com/fwojciec/sift/extract"
)

// Collector feeds listing elements through a Builder until Target records
// have been emitted. Discarded elements do not count toward the target.
// A Collector keeps its count across calls so pages can be fed one by one.
type Collector struct {
	Builder *extract.Builder

	// Target is the number of records wanted. Zero means no limit.
	Target int

	// Seen, if set, suppresses records whose URL was already emitted.
	Seen sift.URLSet

	elements   int
	duplicates int
}

// Collect processes elements in order and returns the records emitted.
func (c *Collector) Collect(ctx context.Context, elements []sift.Element) []*sift.Record {
	var out []*sift.Record
	for _, el := range elements {
		if c.Done() || ctx.Err() != nil {
			break
		}
		c.elements++

		r, ok := c.Builder.Assemble(ctx, el)
		if !ok {
			continue
		}
		if c.Seen != nil && r.URL != "" {
			if c.Seen.Test(r.URL) {
				c.duplicates++
				c.Builder.Skip()
				continue
			}
			c.Seen.Add(r.URL)
		}

		c.Builder.Emit(r)
		out = append(out, r)
	}
	return out
}

// Done reports whether the target has been reached.
func (c *Collector) Done() bool {
	return c.Target > 0 && c.Builder.Emitted() >= c.Target
}

// Elements returns the number of elements examined.
func (c *Collector) Elements() int { return c.elements }

// Duplicates returns the number of records suppressed by Seen.
func (c *Collector) Duplicates() int { return c.duplicates }
