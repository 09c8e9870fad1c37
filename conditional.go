package respcache

import (
	"net/http"
	"strings"
)

// conditionalRequestSatisfied reports whether a cached response answers
// the request's conditional headers, in which case a 304 with no body is
// due instead of the full response.
//
// If-None-Match, when present, entirely overrides If-Unmodified-Since.
func conditionalRequestSatisfied(reqHeader, cachedHeader http.Header) bool {
	if tags := etagList(reqHeader.Values("If-None-Match")); len(tags) > 0 {
		for _, tag := range tags {
			if tag == "*" {
				return true
			}
		}
		cachedTag := cachedHeader.Get("Etag")
		if cachedTag == "" {
			return false
		}
		for _, tag := range tags {
			if etagStrongMatch(tag, cachedTag) {
				return true
			}
		}
		return false
	}

	if since := reqHeader.Get("If-Unmodified-Since"); since != "" {
		limit, err := http.ParseTime(since)
		if err != nil {
			return false
		}
		reference := cachedHeader.Get("Last-Modified")
		if reference == "" {
			reference = cachedHeader.Get("Date")
		}
		modified, err := http.ParseTime(reference)
		if err != nil {
			return false
		}
		return !modified.After(limit)
	}

	return false
}

// etagList splits comma-separated entity-tag header values.
func etagList(values []string) []string {
	var tags []string
	for _, v := range values {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	return tags
}

// etagStrongMatch implements the strong comparison function of RFC 7232
// Section 2.3.2: both tags must be identical and neither may be weak.
func etagStrongMatch(a, b string) bool {
	if strings.HasPrefix(a, "W/") || strings.HasPrefix(b, "W/") {
		return false
	}
	return a == b
}
