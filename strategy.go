package sift

import (
	"net/url"
	"regexp"
	"strings"
)

// Strategy is one candidate method for reading a field's raw value.
//
// An empty Selector reads the scope element itself; an empty Attribute reads
// the visible text. Contains and Exclude test the candidate text. Pattern,
// when set, must then match and its first capture group (or the whole match)
// becomes the value, which must be at least MinLength runes long.
type Strategy struct {
	Selector  string
	Attribute string
	Pattern   *regexp.Regexp

	// MinLength is the minimum accepted length in runes.
	MinLength int
	// Contains requires any one of the substrings, case-insensitively.
	Contains []string
	// Exclude rejects values containing any of the substrings, case-insensitively.
	Exclude []string
	// Lines evaluates each non-empty line of the raw text as its own candidate.
	Lines bool
}

// FieldSpec is the ordered strategy chain for one field. Earlier strategies
// carry strictly higher confidence than later ones.
type FieldSpec struct {
	Name       string
	Strategies []Strategy
}

// Empty reports whether the spec has no strategies.
func (s FieldSpec) Empty() bool { return len(s.Strategies) == 0 }

// ListSpec is a strategy chain for a multi-valued field.
// Results are capped at Limit.
type ListSpec struct {
	FieldSpec
	Limit int
}

// DetailSpec describes the detail page of a record.
type DetailSpec struct {
	// Ready is a selector that signals the detail page has rendered.
	Ready    string
	Features ListSpec
	Reviews  ListSpec
}

// Empty reports whether no subordinate list is configured.
func (s DetailSpec) Empty() bool {
	return s.Features.Empty() && s.Reviews.Empty()
}

// Profile is the immutable extraction configuration for one kind of site.
type Profile struct {
	Name string
	// SearchURL is a listing URL template; {query} is replaced with the
	// query-escaped search terms.
	SearchURL string
	// BaseURL resolves relative record and next-page URLs.
	BaseURL string

	// Ready is a selector that signals the listing has rendered.
	Ready string
	// Item selects one element per listing item.
	Item string
	// Dismiss lists consent-banner buttons tried in order.
	Dismiss []string

	Title       FieldSpec
	Price       FieldSpec
	Rating      FieldSpec
	ReviewCount FieldSpec
	URL         FieldSpec
	Image       FieldSpec

	// NextPage is read from the whole document to find the following page.
	NextPage FieldSpec
	MaxPages int

	Detail DetailSpec

	Locale   string
	Currency string
}

// Validate returns an error if the profile cannot drive an extraction.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return Errorf(EINVALID, "profile name required")
	}
	if p.Item == "" {
		return Errorf(EINVALID, "profile %q: item selector required", p.Name)
	}
	if p.Title.Empty() {
		return Errorf(EINVALID, "profile %q: title strategies required", p.Name)
	}
	if p.MaxPages < 0 {
		return Errorf(EINVALID, "profile %q: max pages must be non-negative", p.Name)
	}
	if p.BaseURL != "" {
		u, err := url.Parse(p.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return Errorf(EINVALID, "profile %q: invalid base URL %q", p.Name, p.BaseURL)
		}
	}
	for _, l := range []ListSpec{p.Detail.Features, p.Detail.Reviews} {
		if l.Limit < 0 {
			return Errorf(EINVALID, "profile %q: %s limit must be non-negative", p.Name, l.Name)
		}
	}
	return nil
}

// ListingURL renders the search URL template for query.
func (p *Profile) ListingURL(query string) (string, error) {
	if p.SearchURL == "" {
		return "", Errorf(EINVALID, "profile %q has no search URL", p.Name)
	}
	if strings.TrimSpace(query) == "" {
		return "", Errorf(EINVALID, "search query required")
	}
	return strings.ReplaceAll(p.SearchURL, "{query}", url.QueryEscape(strings.TrimSpace(query))), nil
}
