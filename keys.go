package respcache

import (
	"net/http"
	"strings"
)

// keyDelimiter separates the fields of a cache key. The unit separator
// never occurs in HTTP token syntax, so composed keys cannot collide
// with each other.
const keyDelimiter = "\x1f"

// A KeyProvider produces the store keys the middleware probes and writes.
//
// Lookup methods return finite ordered sequences; order defines lookup
// priority. Storage methods return the single key an entry is written
// under. Implementations may yield multiple lookup keys to hedge across
// alternate normalizations; the defaults yield exactly one.
type KeyProvider interface {
	// LookupBaseKeys returns the keys to probe for a primary entry.
	LookupBaseKeys(r *http.Request) []string
	// LookupVaryKeys returns the keys to probe for a response variant
	// once vary rules have been discovered under a base key.
	LookupVaryKeys(r *http.Request, rules *CachedVaryRules) []string
	// StorageBaseKey returns the key the base entry (vary rules, or the
	// response itself when nothing varies) is written under.
	StorageBaseKey(r *http.Request) string
	// StorageVaryKey returns the key the variant response is written
	// under. Only meaningful when vary rules exist.
	StorageVaryKey(r *http.Request, rules *CachedVaryRules) string
}

// DefaultKeyProvider derives keys from the request method and path, and
// variant keys from the rules' prefix plus the canonicalized request
// header and query parameter values the rules name.
type DefaultKeyProvider struct{}

// LookupBaseKeys yields the single key METHOD<US>PATH.
func (p DefaultKeyProvider) LookupBaseKeys(r *http.Request) []string {
	return []string{p.StorageBaseKey(r)}
}

// LookupVaryKeys yields the single variant key for the request.
func (p DefaultKeyProvider) LookupVaryKeys(r *http.Request, rules *CachedVaryRules) []string {
	return []string{p.StorageVaryKey(r, rules)}
}

func (DefaultKeyProvider) StorageBaseKey(r *http.Request) string {
	return strings.ToUpper(r.Method) + keyDelimiter + r.URL.EscapedPath()
}

func (DefaultKeyProvider) StorageVaryKey(r *http.Request, rules *CachedVaryRules) string {
	base := DefaultKeyProvider{}.StorageBaseKey(r)

	tokens := make([]string, 0, len(rules.Headers)+len(rules.Params))
	for _, name := range rules.Headers {
		tokens = append(tokens, name+"="+varyHeaderValue(r, name))
	}
	for _, name := range rules.Params {
		tokens = append(tokens, name+"="+varyParamValue(r, name))
	}

	return base + rules.VaryKeyPrefix + strings.Join(tokens, keyDelimiter)
}

// varyHeaderValue combines the request's values for a varied header into
// a single upper-cased token. A missing header contributes the empty
// token, so "absent" and "present but empty" key identically.
func varyHeaderValue(r *http.Request, name string) string {
	values := r.Header.Values(name)
	if len(values) == 0 {
		return ""
	}
	return strings.ToUpper(strings.Join(values, ","))
}

// varyParamValue combines the request's values for a varied query
// parameter, matched case-insensitively since rule names are normalized
// to upper case.
func varyParamValue(r *http.Request, name string) string {
	var values []string
	for param, vv := range r.URL.Query() {
		if strings.ToUpper(param) == name {
			values = append(values, vv...)
		}
	}
	if len(values) == 0 {
		return ""
	}
	return strings.ToUpper(strings.Join(values, ","))
}
