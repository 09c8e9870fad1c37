package respcache

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
)

type varyParamsKey struct{}

// varyParamsHolder is the side-channel through which an inner handler
// declares query parameters its response varies on. The middleware
// installs one per request; declarations after response start are too
// late and ignored.
type varyParamsHolder struct {
	mu     sync.Mutex
	params []string
}

func (h *varyParamsHolder) set(params []string) {
	h.mu.Lock()
	h.params = append([]string(nil), params...)
	h.mu.Unlock()
}

func (h *varyParamsHolder) get() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.params
}

// withVaryParamsHolder installs a fresh holder into ctx.
func withVaryParamsHolder(ctx context.Context) (context.Context, *varyParamsHolder) {
	h := &varyParamsHolder{}
	return context.WithValue(ctx, varyParamsKey{}, h), h
}

// SetVaryParams declares query parameter names the response varies on,
// beyond the Vary header. Handlers running under the middleware call it
// before writing the response:
//
//	respcache.SetVaryParams(r.Context(), []string{"lang"})
//
// Outside the middleware it is a no-op.
func SetVaryParams(ctx context.Context, params []string) {
	if h, ok := ctx.Value(varyParamsKey{}).(*varyParamsHolder); ok {
		h.set(params)
	}
}

// normalizeVaryList canonicalizes a list of vary tokens: each element is
// split on commas, trimmed, upper-cased, then the whole list is sorted.
// Empty tokens are dropped. The result is the same for any permutation
// of the input, and normalizing twice is a no-op.
//
// A "*" element receives no special treatment; it normalizes like any
// other token and simply becomes part of the rules list.
func normalizeVaryList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !strings.Contains(v, ",") {
			// fast path: already a single token
			if t := strings.ToUpper(strings.TrimSpace(v)); t != "" {
				out = append(out, t)
			}
			continue
		}
		for _, part := range strings.Split(v, ",") {
			if t := strings.ToUpper(strings.TrimSpace(part)); t != "" {
				out = append(out, t)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}

// varySignature gathers and normalizes the vary rules advertised by an
// outgoing response: the Vary header plus any query parameters declared
// through SetVaryParams.
func varySignature(respHeader http.Header, declared *varyParamsHolder) (headers, params []string) {
	headers = normalizeVaryList(respHeader.Values("Vary"))
	if declared != nil {
		params = normalizeVaryList(declared.get())
	}
	return headers, params
}
