package respcache

import (
	"net/http"
	"time"
)

// entryKind discriminates the three persisted entry types. The in-memory
// representation mirrors the wire tag written by the codec.
type entryKind byte

const (
	kindBody      entryKind = 'B'
	kindResponse  entryKind = 'R'
	kindVaryRules entryKind = 'V'
)

// Entry is implemented by the three types that can live in the cache
// store: CachedResponse, CachedResponseBody and CachedVaryRules.
type Entry interface {
	kind() entryKind
}

// CachedResponse is the persisted form of an upstream response: status,
// headers and, for small responses, the body itself. Larger bodies are
// stored as a separate CachedResponseBody entry keyed by BodyKeyPrefix.
type CachedResponse struct {
	// BodyKeyPrefix is the store key of the split-out body entry.
	// It is minted fresh for every stored response.
	BodyKeyPrefix string

	// Created is the response Date at store time.
	Created time.Time

	StatusCode int

	// Headers holds the response headers as captured at store time.
	// The Age header is never persisted; it is synthesized on serve.
	Headers http.Header

	// Body is non-nil iff the body is colocated with the response entry.
	// A colocated empty body is []byte{}, not nil.
	Body []byte
}

func (*CachedResponse) kind() entryKind { return kindResponse }

// hasBody reports whether the body is colocated in this entry.
func (r *CachedResponse) hasBody() bool { return r.Body != nil }

// CachedResponseBody holds a response body stored separately from its
// CachedResponse entry.
type CachedResponseBody struct {
	Body []byte
}

func (*CachedResponseBody) kind() entryKind { return kindBody }

// CachedVaryRules is the intermediate entry stored under a base key when
// a response varies on request headers or query parameters. It redirects
// a probe to the secondary (vary) key space identified by VaryKeyPrefix.
//
// Headers and Params are normalized (trimmed, upper-cased, sorted) name
// lists. Whenever the normalized rules for a resource change, a new
// rules entry with a fresh VaryKeyPrefix replaces the old one; variants
// stored under the old prefix become unreachable and expire by TTL.
type CachedVaryRules struct {
	VaryKeyPrefix string
	Headers       []string
	Params        []string
}

func (*CachedVaryRules) kind() entryKind { return kindVaryRules }

// matches reports whether the stored rules are equivalent to the given
// normalized header and param lists.
func (v *CachedVaryRules) matches(headers, params []string) bool {
	return stringListsEqual(v.Headers, headers) && stringListsEqual(v.Params, params)
}

func stringListsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
