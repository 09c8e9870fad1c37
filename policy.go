package respcache

import (
	"net/http"
	"strings"
	"time"
)

const (
	cacheControlNoCache      = "no-cache"
	cacheControlNoStore      = "no-store"
	cacheControlPrivate      = "private"
	cacheControlPublic       = "public"
	cacheControlMaxAge       = "max-age"
	cacheControlSMaxAge      = "s-maxage"
	cacheControlMinFresh     = "min-fresh"
	cacheControlMaxStale     = "max-stale"
	cacheControlOnlyIfCached = "only-if-cached"
)

// cacheControl is a map of Cache-Control directive names to their values.
type cacheControl map[string]string

// parseCacheControl parses the Cache-Control header into a directive map.
// Duplicate directives keep the first occurrence.
func parseCacheControl(headers http.Header) cacheControl {
	cc := cacheControl{}
	for _, ccHeader := range headers.Values("Cache-Control") {
		for _, part := range strings.Split(ccHeader, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			directive, value, _ := strings.Cut(part, "=")
			directive = strings.ToLower(strings.TrimSpace(directive))
			if _, seen := cc[directive]; seen {
				continue
			}
			cc[directive] = strings.Trim(strings.TrimSpace(value), `"`)
		}
	}
	return cc
}

func (cc cacheControl) has(directive string) bool {
	_, ok := cc[directive]
	return ok
}

// seconds parses a delta-seconds directive value. The bool is false when
// the directive is absent or unparseable.
func (cc cacheControl) seconds(directive string) (time.Duration, bool) {
	v, ok := cc[directive]
	if !ok || v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v + "s")
	if err != nil || d < 0 {
		return 0, false
	}
	return d, true
}

// A PolicyProvider decides what may be cached and what may be served.
// Implementations must be pure: predicates over their inputs with no
// side effects.
type PolicyProvider interface {
	// IsRequestCacheable reports whether the incoming request is
	// allowed to interact with the cache at all.
	IsRequestCacheable(r *http.Request) bool
	// IsResponseCacheable reports whether an outgoing response with the
	// given status and headers may be stored by a shared cache.
	IsResponseCacheable(statusCode int, header http.Header) bool
	// IsCachedEntryFresh reports whether a cached entry with the given
	// remaining validity and current age is still usable for a request
	// with the given headers.
	IsCachedEntryFresh(reqHeader http.Header, validFor, age time.Duration) bool
}

// DefaultPolicy implements the shared-cache rules of RFC 7234 for the
// subset of the protocol this middleware speaks.
type DefaultPolicy struct{}

// IsRequestCacheable returns false for methods other than GET and HEAD,
// for requests carrying Cache-Control: no-cache or no-store or
// Pragma: no-cache, and for authorized requests (shared-cache rule).
func (DefaultPolicy) IsRequestCacheable(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	cc := parseCacheControl(r.Header)
	if cc.has(cacheControlNoCache) || cc.has(cacheControlNoStore) {
		return false
	}
	if strings.Contains(strings.ToLower(r.Header.Get("Pragma")), cacheControlNoCache) {
		return false
	}
	if r.Header.Get("Authorization") != "" {
		return false
	}
	return true
}

// cacheableByDefault lists the status codes cacheable in the absence of
// explicit freshness information, per RFC 7231 Section 6.1.
var cacheableByDefault = map[int]bool{
	http.StatusOK:                   true,
	http.StatusNonAuthoritativeInfo: true,
	http.StatusNoContent:            true,
	http.StatusPartialContent:       true,
	http.StatusMultipleChoices:      true,
	http.StatusMovedPermanently:     true,
	http.StatusNotFound:             true,
	http.StatusMethodNotAllowed:     true,
	http.StatusGone:                 true,
	http.StatusRequestURITooLong:    true,
	http.StatusNotImplemented:       true,
}

// IsResponseCacheable reports whether the response may be stored: the
// status must be cacheable by default or the response must carry an
// explicit freshness directive, nothing may forbid shared storage, and
// Set-Cookie responses are never stored.
func (DefaultPolicy) IsResponseCacheable(statusCode int, header http.Header) bool {
	cc := parseCacheControl(header)
	if cc.has(cacheControlNoStore) || cc.has(cacheControlNoCache) || cc.has(cacheControlPrivate) {
		return false
	}
	if header.Get("Set-Cookie") != "" {
		return false
	}
	if cacheableByDefault[statusCode] {
		return true
	}
	return cc.has(cacheControlPublic) || cc.has(cacheControlSMaxAge) || cc.has(cacheControlMaxAge)
}

// IsCachedEntryFresh applies the request's freshness directives on top
// of the entry's remaining validity: max-age replaces the entry's
// lifetime (so it may shorten or lengthen it), min-fresh demands
// headroom, max-stale may extend it.
func (DefaultPolicy) IsCachedEntryFresh(reqHeader http.Header, validFor, age time.Duration) bool {
	cc := parseCacheControl(reqHeader)

	lifetime := validFor
	if v, ok := cc[cacheControlMaxAge]; ok {
		if d, err := time.ParseDuration(v + "s"); err == nil && d >= 0 {
			lifetime = d
		} else {
			lifetime = 0
		}
	}

	if d, ok := cc.seconds(cacheControlMinFresh); ok {
		age += d
	}

	if v, ok := cc[cacheControlMaxStale]; ok {
		if v == "" {
			// bare max-stale accepts a response of any staleness
			return true
		}
		if d, err := time.ParseDuration(v + "s"); err == nil && d >= 0 {
			age -= d
		}
	}

	return lifetime > age
}

// responseValidFor computes how long a response stays fresh: the first
// present of s-maxage, max-age, Expires relative to ref, else fallback.
func responseValidFor(header http.Header, ref time.Time, fallback time.Duration) time.Duration {
	cc := parseCacheControl(header)
	if d, ok := cc.seconds(cacheControlSMaxAge); ok {
		return d
	}
	if d, ok := cc.seconds(cacheControlMaxAge); ok {
		return d
	}
	if expiresHeader := header.Get("Expires"); expiresHeader != "" {
		if expires, err := http.ParseTime(expiresHeader); err == nil {
			return expires.Sub(ref)
		}
	}
	return fallback
}
