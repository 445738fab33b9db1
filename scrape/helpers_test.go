package scrape_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/sift"
	"github.com/fwojciec/sift/mock"
)

const (
	listingURL = "https://shop.example/s?k=tea"
	page2URL   = "https://shop.example/s?k=tea&page=2"
)

var fixedNow = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

func testProfile() *sift.Profile {
	return &sift.Profile{
		Name:     "shop",
		BaseURL:  "https://shop.example",
		Ready:    ".results",
		Item:     ".item",
		Dismiss:  []string{"#cookie", "#accept", "#other"},
		Locale:   "es-ES",
		Currency: "EUR",
		Title:    sift.FieldSpec{Name: "title", Strategies: []sift.Strategy{{Selector: "h2"}}},
		Price:    sift.FieldSpec{Name: "price", Strategies: []sift.Strategy{{Selector: ".price"}}},
		Rating:   sift.FieldSpec{Name: "rating", Strategies: []sift.Strategy{{Selector: ".rating"}}},
		URL:      sift.FieldSpec{Name: "url", Strategies: []sift.Strategy{{Selector: "a.link", Attribute: "href"}}},
		NextPage: sift.FieldSpec{Name: "next", Strategies: []sift.Strategy{{Selector: "a.next", Attribute: "href"}}},
		MaxPages: 3,
		Detail: sift.DetailSpec{
			Ready:    "#detail",
			Features: sift.ListSpec{FieldSpec: sift.FieldSpec{Strategies: []sift.Strategy{{Selector: ".features li"}}}},
			Reviews:  sift.ListSpec{FieldSpec: sift.FieldSpec{Strategies: []sift.Strategy{{Selector: ".review"}}}},
		},
	}
}

// item renders one listing entry. An empty title omits the heading.
func item(path, title, price, rating string) string {
	var b strings.Builder
	b.WriteString(`<div class="item">`)
	if title != "" {
		fmt.Fprintf(&b, `<h2>%s</h2>`, title)
	}
	fmt.Fprintf(&b, `<a class="link" href="%s">ver</a><span class="price">%s</span><span class="rating">%s</span></div>`, path, price, rating)
	return b.String()
}

func listingPage(next string, items ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="results">`)
	for _, it := range items {
		b.WriteString(it)
	}
	b.WriteString(`</div>`)
	if next != "" {
		fmt.Fprintf(&b, `<a class="next" href="%s">siguiente</a>`, next)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func detailPage(features, reviews int) string {
	var b strings.Builder
	b.WriteString(`<html><body><div id="detail"><ul class="features">`)
	for i := 1; i <= features; i++ {
		fmt.Fprintf(&b, `<li>feature %d</li>`, i)
	}
	b.WriteString(`</ul>`)
	for i := 1; i <= reviews; i++ {
		fmt.Fprintf(&b, `<p class="review">review %d</p>`, i)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

// site serves HTML by URL and counts fetches per URL.
type site struct {
	mu    sync.Mutex
	pages map[string]string
	hits  map[string]int
	// fail, if set, is consulted before serving.
	fail func(url string, hit int) error
}

func newSite(pages map[string]string) *site {
	return &site{pages: pages, hits: make(map[string]int)}
}

func (s *site) fetcher() *mock.Fetcher {
	return &mock.Fetcher{
		FetchFn: func(_ context.Context, url string) (string, error) {
			s.mu.Lock()
			s.hits[url]++
			hit := s.hits[url]
			html, ok := s.pages[url]
			fail := s.fail
			s.mu.Unlock()

			if fail != nil {
				if err := fail(url, hit); err != nil {
					return "", err
				}
			}
			if !ok {
				return "", sift.Errorf(sift.ENAVIGATION, "%s: status 404", url)
			}
			return html, nil
		},
		CloseFn: func() error { return nil },
	}
}

func (s *site) count(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[url]
}

func (s *site) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for _, v := range s.hits {
		n += v
	}
	return n
}
