package sift

import (
	"net/url"
	"strings"
)

// trackingParams are query parameters that vary per search or campaign
// without changing the listing a URL points to.
var trackingParams = map[string]bool{
	"ref":      true,
	"ref_":     true,
	"qid":      true,
	"sr":       true,
	"crid":     true,
	"sprefix":  true,
	"keywords": true,
	"dib":      true,
	"dib_tag":  true,
	"th":       true,
	"psc":      true,
}

// CanonicalURL returns the identity of a listing URL: scheme and host
// lowercased, fragment removed, a trailing "ref=" path segment removed and
// tracking parameters (utm_*, pd_rd_*, pf_rd_* and trackingParams) dropped.
// Input without a host is returned trimmed.
func CanonicalURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	if i := strings.LastIndex(u.Path, "/"); i >= 0 && strings.HasPrefix(u.Path[i+1:], "ref=") {
		u.Path = u.Path[:i]
		u.RawPath = ""
	}

	if u.RawQuery != "" {
		q := u.Query()
		for k := range q {
			if isTrackingParam(k) {
				q.Del(k)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func isTrackingParam(k string) bool {
	k = strings.ToLower(k)
	return trackingParams[k] ||
		strings.HasPrefix(k, "utm_") ||
		strings.HasPrefix(k, "pd_rd_") ||
		strings.HasPrefix(k, "pf_rd_")
}
