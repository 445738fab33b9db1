package main_test

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/fwojciec/sift"
	main "github.com/fwojciec/sift/cmd/sift"
	"github.com/fwojciec/sift/goquery"
	"github.com/fwojciec/sift/mock"
	"github.com/fwojciec/sift/yaml"
)

const shopListingURL = "https://shop.example/s?k=tea"

var fixedNow = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

func shopProfile() *sift.Profile {
	return &sift.Profile{
		Name:      "shop",
		SearchURL: "https://shop.example/s?k={query}",
		BaseURL:   "https://shop.example",
		Ready:     ".results",
		Item:      ".item",
		Locale:    "es-ES",
		Currency:  "EUR",
		Title:     sift.FieldSpec{Name: "title", Strategies: []sift.Strategy{{Selector: "h2"}}},
		Price:     sift.FieldSpec{Name: "price", Strategies: []sift.Strategy{{Selector: ".price"}}},
		Rating:    sift.FieldSpec{Name: "rating", Strategies: []sift.Strategy{{Selector: ".rating"}}},
		URL:       sift.FieldSpec{Name: "url", Strategies: []sift.Strategy{{Selector: "a", Attribute: "href"}}},
		MaxPages:  1,
		Detail: sift.DetailSpec{
			Ready:    "#detail",
			Features: sift.ListSpec{FieldSpec: sift.FieldSpec{Strategies: []sift.Strategy{{Selector: ".features li"}}}},
			Reviews:  sift.ListSpec{FieldSpec: sift.FieldSpec{Strategies: []sift.Strategy{{Selector: ".review"}}}},
		},
	}
}

const shopListing = `<html><body><div class="results">
<div class="item"><h2>Té verde</h2><a href="/p/1">ver</a><span class="price">12,50 €</span><span class="rating">4,5 de 5 estrellas</span></div>
<div class="item"><h2>Té negro</h2><a href="/p/2">ver</a><span class="price">8,99 €</span><span class="rating">4,1 de 5 estrellas</span></div>
<div class="item"><a href="/p/ad">anuncio</a></div>
<div class="item"><h2>Rooibos</h2><a href="/p/3">ver</a><span class="price">consultar</span></div>
</div></body></html>`

const shopDetail = `<html><body><div id="detail">
<ul class="features"><li>Hoja entera</li><li>Origen Japón</li></ul>
<p class="review">Muy bueno</p>
</div></body></html>`

// pages serves canned HTML by URL and records every fetch.
type pages struct {
	mu      sync.Mutex
	html    map[string]string
	fetched []string
}

func newPages(html map[string]string) *pages {
	return &pages{html: html}
}

func (p *pages) fetcher() *mock.Fetcher {
	return &mock.Fetcher{
		FetchFn: func(_ context.Context, url string) (string, error) {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.fetched = append(p.fetched, url)
			html, ok := p.html[url]
			if !ok {
				return "", sift.Errorf(sift.ENAVIGATION, "HTTP 404 for %s", url)
			}
			return html, nil
		},
		CloseFn: func() error { return nil },
	}
}

func (p *pages) sources() sift.SourceFactory {
	return &goquery.SourceFactory{Fetcher: p.fetcher()}
}

func (p *pages) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.fetched)
}

func newDeps(runs sift.RunService, sources sift.SourceFactory) (*main.Dependencies, *bytes.Buffer, *bytes.Buffer) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	return &main.Dependencies{
		Ctx:      context.Background(),
		Stdout:   stdout,
		Stderr:   stderr,
		Runs:     runs,
		Profiles: yaml.NewRegistry(shopProfile()),
		Sources:  sources,
		Now:      func() time.Time { return fixedNow },
	}, stdout, stderr
}
