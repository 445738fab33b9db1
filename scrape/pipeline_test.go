package scrape_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fwojciec/sift"
	"github.com/fwojciec/sift/bloom"
	"github.com/fwojciec/sift/goquery"
	"github.com/fwojciec/sift/scrape"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPipeline(s *site) *scrape.Pipeline {
	return &scrape.Pipeline{
		Source:      goquery.NewSource(s.fetcher()),
		Profile:     testProfile(),
		RetryDelays: []time.Duration{},
		Now:         func() time.Time { return fixedNow },
	}
}

// clickingSource adds consent button support to a static source.
type clickingSource struct {
	*goquery.Source
	clicks []string
}

func (c *clickingSource) Click(_ context.Context, selector string) (bool, error) {
	c.clicks = append(c.clicks, selector)
	return selector == "#accept", nil
}

func TestPipeline_Run(t *testing.T) {
	t.Parallel()

	t.Run("extracts a single page", func(t *testing.T) {
		t.Parallel()

		s := newSite(map[string]string{listingURL: listingPage("",
			item("/p/1", "Tetera", "12,50 €", "4,5"),
			item("/p/2", "", "3,00 €", "4,9"),
			item("/p/3", "Taza", "4,00 €", "4,8"),
		)})

		rs, err := newPipeline(s).Run(context.Background(), listingURL, sift.SelectAll())

		require.NoError(t, err)
		require.Len(t, rs.Records, 2)
		assert.Equal(t, 1, rs.Records[0].ID)
		assert.Equal(t, 2, rs.Records[1].ID)
		assert.Equal(t, "Taza", rs.Records[1].Title)
		assert.Equal(t, "https://shop.example/p/3", rs.Records[1].URL)
		assert.InDelta(t, 4.0, rs.Records[1].PriceNum, 1e-9)
		assert.Equal(t, fixedNow, rs.Records[0].Timestamp)
		assert.Len(t, rs.Selected, 2)
		assert.Equal(t, sift.Stats{State: sift.StateDone, Pages: 1, Elements: 3, Discarded: 1}, rs.Stats)
	})

	t.Run("applies the predicate", func(t *testing.T) {
		t.Parallel()

		s := newSite(map[string]string{listingURL: listingPage("",
			item("/p/1", "Tetera", "12,50 €", "4,5"),
			item("/p/2", "Taza", "4,00 €", "4,8"),
			item("/p/3", "Jarra", "8,00 €", ""),
		)})

		rs, err := newPipeline(s).Run(context.Background(), listingURL, sift.SelectBest())

		require.NoError(t, err)
		require.Len(t, rs.Selected, 1)
		assert.Equal(t, 2, rs.Selected[0].ID)
		assert.True(t, rs.Records[1].Selected)
		assert.False(t, rs.Records[0].Selected)
	})

	t.Run("rejects an invalid predicate before navigating", func(t *testing.T) {
		t.Parallel()

		s := newSite(map[string]string{listingURL: listingPage("", item("/p/1", "A", "1,00 €", ""))})

		rs, err := newPipeline(s).Run(context.Background(), listingURL, sift.SelectRange(10, 1))

		assert.Nil(t, rs)
		assert.Equal(t, sift.EINVALID, sift.ErrorCode(err))
		assert.Zero(t, s.total())
	})

	t.Run("unreachable listing fails navigation", func(t *testing.T) {
		t.Parallel()

		s := newSite(nil)

		rs, err := newPipeline(s).Run(context.Background(), listingURL, sift.SelectAll())

		require.Error(t, err)
		assert.Equal(t, sift.ENAVIGATION, sift.ErrorCode(err))
		require.NotNil(t, rs)
		assert.Empty(t, rs.Records)
		assert.Empty(t, rs.Selected)
		assert.Equal(t, sift.StateFailedNavigation, rs.Stats.State)
	})

	t.Run("listing that never becomes ready fails navigation", func(t *testing.T) {
		t.Parallel()

		s := newSite(map[string]string{listingURL: "<html><body>Type the characters you see</body></html>"})

		rs, err := newPipeline(s).Run(context.Background(), listingURL, sift.SelectAll())

		assert.Equal(t, sift.ENAVIGATION, sift.ErrorCode(err))
		assert.Equal(t, sift.StateFailedNavigation, rs.Stats.State)
	})

	t.Run("retries listing navigation", func(t *testing.T) {
		t.Parallel()

		s := newSite(map[string]string{listingURL: listingPage("", item("/p/1", "A", "1,00 €", ""))})
		s.fail = func(_ string, hit int) error {
			if hit < 3 {
				return errors.New("connection reset")
			}
			return nil
		}
		p := newPipeline(s)
		p.RetryDelays = []time.Duration{0, 0}

		rs, err := p.Run(context.Background(), listingURL, sift.SelectAll())

		require.NoError(t, err)
		assert.Len(t, rs.Records, 1)
		assert.Equal(t, 3, s.count(listingURL))
	})

	t.Run("follows pagination until the target", func(t *testing.T) {
		t.Parallel()

		s := newSite(map[string]string{
			listingURL: listingPage("/s?k=tea&page=2",
				item("/p/1", "A", "1,00 €", ""),
				item("/p/2", "B", "2,00 €", ""),
			),
			page2URL: listingPage("/s?k=tea&page=3",
				item("/p/3", "C", "3,00 €", ""),
				item("/p/4", "D", "4,00 €", ""),
			),
		})
		p := newPipeline(s)
		p.Target = 3

		rs, err := p.Run(context.Background(), listingURL, sift.SelectAll())

		require.NoError(t, err)
		require.Len(t, rs.Records, 3)
		assert.Equal(t, "C", rs.Records[2].Title)
		assert.Equal(t, 3, rs.Records[2].ID)
		assert.Equal(t, 2, rs.Stats.Pages)
		assert.Zero(t, s.count("https://shop.example/s?k=tea&page=3"))
	})

	t.Run("stops at max pages", func(t *testing.T) {
		t.Parallel()

		s := newSite(map[string]string{
			listingURL: listingPage("/s?k=tea&page=2", item("/p/1", "A", "1,00 €", "")),
			page2URL:   listingPage("/s?k=tea&page=3", item("/p/2", "B", "2,00 €", "")),
		})
		p := newPipeline(s)
		p.Profile.MaxPages = 2

		rs, err := p.Run(context.Background(), listingURL, sift.SelectAll())

		require.NoError(t, err)
		assert.Len(t, rs.Records, 2)
		assert.Equal(t, 2, rs.Stats.Pages)
	})

	t.Run("keeps earlier pages when a later page fails", func(t *testing.T) {
		t.Parallel()

		s := newSite(map[string]string{
			listingURL: listingPage("/s?k=tea&page=2",
				item("/p/1", "A", "1,00 €", ""),
				item("/p/2", "B", "2,00 €", ""),
			),
		})

		rs, err := newPipeline(s).Run(context.Background(), listingURL, sift.SelectAll())

		assert.Equal(t, sift.ENAVIGATION, sift.ErrorCode(err))
		assert.Equal(t, sift.StateFailedNavigation, rs.Stats.State)
		assert.Len(t, rs.Records, 2)
		assert.Equal(t, 1, rs.Stats.Pages)
	})

	t.Run("dismisses the first consent button found", func(t *testing.T) {
		t.Parallel()

		s := newSite(map[string]string{listingURL: listingPage("", item("/p/1", "A", "1,00 €", ""))})
		src := &clickingSource{Source: goquery.NewSource(s.fetcher())}
		p := newPipeline(s)
		p.Source = src

		_, err := p.Run(context.Background(), listingURL, sift.SelectAll())

		require.NoError(t, err)
		assert.Equal(t, []string{"#cookie", "#accept"}, src.clicks)
	})

	t.Run("drops repeated urls across pages", func(t *testing.T) {
		t.Parallel()

		s := newSite(map[string]string{
			listingURL: listingPage("/s?k=tea&page=2",
				item("/p/1", "A", "1,00 €", ""),
				item("/p/2", "B", "2,00 €", ""),
			),
			page2URL: listingPage("",
				item("/p/2", "B sponsored", "2,00 €", ""),
				item("/p/3", "C", "3,00 €", ""),
			),
		})
		p := newPipeline(s)
		p.NewURLSet = bloom.Factory(100)

		rs, err := p.Run(context.Background(), listingURL, sift.SelectAll())

		require.NoError(t, err)
		require.Len(t, rs.Records, 3)
		assert.Equal(t, "C", rs.Records[2].Title)
		assert.Equal(t, 1, rs.Stats.Duplicates)
		assert.Equal(t, 1, rs.Stats.Discarded)
	})

	t.Run("enriches before filtering", func(t *testing.T) {
		t.Parallel()

		s := newSite(map[string]string{
			listingURL: listingPage("",
				item("/p/1", "A", "1,00 €", "4,0"),
				item("/p/2", "B", "2,00 €", "4,2"),
			),
			"https://shop.example/p/1": detailPage(3, 2),
		})
		p := newPipeline(s)
		p.Enricher = newEnricher(s)

		var types []scrape.ProgressType
		p.Progress = func(e scrape.ProgressEvent) { types = append(types, e.Type) }

		rs, err := p.Run(context.Background(), listingURL, sift.SelectCheapest())

		require.NoError(t, err)
		assert.Equal(t, sift.StateDone, rs.Stats.State)
		assert.Equal(t, 1, rs.Stats.Enriched)
		assert.Equal(t, 1, rs.Stats.EnrichFailed)
		assert.Equal(t, []string{"feature 1", "feature 2", "feature 3"}, rs.Records[0].Features)
		assert.Equal(t, sift.EnrichmentFailed, rs.Records[1].Enrichment)
		require.Len(t, rs.Selected, 1)
		assert.Equal(t, 1, rs.Selected[0].ID)
		require.NotEmpty(t, types)
		assert.Equal(t, scrape.ProgressListing, types[0])
		assert.Equal(t, scrape.ProgressFinished, types[len(types)-1])
	})

	t.Run("identical input yields identical ids", func(t *testing.T) {
		t.Parallel()

		pages := map[string]string{listingURL: listingPage("",
			item("/p/1", "A", "1,00 €", ""),
			item("/p/x", "", "", ""),
			item("/p/2", "B", "2,00 €", ""),
		)}

		first, err := newPipeline(newSite(pages)).Run(context.Background(), listingURL, sift.SelectAll())
		require.NoError(t, err)
		second, err := newPipeline(newSite(pages)).Run(context.Background(), listingURL, sift.SelectAll())
		require.NoError(t, err)

		require.Len(t, second.Records, len(first.Records))
		for i := range first.Records {
			assert.Equal(t, first.Records[i].ID, second.Records[i].ID)
			assert.Equal(t, first.Records[i].URL, second.Records[i].URL)
		}
	})

	t.Run("returns context error when canceled", func(t *testing.T) {
		t.Parallel()

		s := newSite(map[string]string{listingURL: listingPage("", item("/p/1", "A", "1,00 €", ""))})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		rs, err := newPipeline(s).Run(ctx, listingURL, sift.SelectAll())

		assert.ErrorIs(t, err, context.Canceled)
		require.NotNil(t, rs)
		assert.NotEqual(t, sift.StateDone, rs.Stats.State)
	})

	t.Run("fails pending records when canceled before enrichment", func(t *testing.T) {
		t.Parallel()

		s := newSite(map[string]string{
			listingURL: listingPage("",
				item("/p/1", "A", "1,00 €", ""),
				item("/p/2", "B", "2,00 €", ""),
			),
			"https://shop.example/p/1": detailPage(1, 1),
		})
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		p := newPipeline(s)
		p.Enricher = newEnricher(s)
		p.Progress = func(e scrape.ProgressEvent) {
			if e.Type == scrape.ProgressListing {
				cancel()
			}
		}

		rs, err := p.Run(ctx, listingURL, sift.SelectAll())

		assert.ErrorIs(t, err, context.Canceled)
		require.Len(t, rs.Records, 2)
		for _, r := range rs.Records {
			assert.Equal(t, sift.EnrichmentFailed, r.Enrichment)
			assert.Equal(t, context.Canceled.Error(), r.EnrichError)
		}
		assert.Equal(t, 2, rs.Stats.EnrichFailed)
		assert.Zero(t, rs.Stats.Enriched)
		assert.Equal(t, 1, s.count(listingURL))
		assert.Zero(t, s.count("https://shop.example/p/1"))
	})
}
