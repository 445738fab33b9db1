package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/sift"
)

// Detector picks the profile whose listing markup matches an HTML page.
type Detector struct {
	profiles []*sift.Profile
}

// NewDetector creates a Detector over the candidate profiles.
func NewDetector(profiles ...*sift.Profile) *Detector {
	return &Detector{profiles: profiles}
}

// Detect returns the profile with the most item matches. Profiles whose ready
// selector is absent are skipped; ties go to the earlier profile.
func (d *Detector) Detect(html string) (*sift.Profile, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, false
	}

	var best *sift.Profile
	bestCount := 0
	for _, p := range d.profiles {
		if p.Ready != "" && !d.hasSelector(doc, p.Ready) {
			continue
		}
		n := doc.Find(p.Item).Length()
		if n > bestCount {
			best, bestCount = p, n
		}
	}
	return best, best != nil
}

// hasSelector checks if the document contains at least one element matching the selector.
func (d *Detector) hasSelector(doc *goquery.Document, selector string) bool {
	return doc.Find(selector).Length() > 0
}
