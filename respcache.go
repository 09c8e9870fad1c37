package respcache

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sandrolain/respcache/metrics"
)

const (
	// DefaultMaximumCachedBodySize is the default shadow-buffer cap.
	DefaultMaximumCachedBodySize int64 = 1 << 20
	// DefaultMinimumSplitBodySize is the default threshold above which
	// a body is stored separately from its response entry.
	DefaultMinimumSplitBodySize int64 = 70*1024 - 1
	// DefaultExpiration is the freshness lifetime applied when a
	// response carries no explicit expiration information.
	DefaultExpiration = 10 * time.Second
)

// Middleware is a shared HTTP response cache. One instance is created
// per pipeline and re-entered concurrently by unrelated requests; all
// per-request state lives on the stack of a single invocation, so the
// only shared resource is the Cache backend.
type Middleware struct {
	cache             Cache
	maxBodySize       int64
	minSplitBodySize  int64
	defaultExpiration time.Duration
	clock             Clock
	keys              KeyProvider
	policy            PolicyProvider
	logger            *slog.Logger
	collector         metrics.Collector
}

// New returns a Middleware storing entries in cache, configured with
// the provided options.
func New(cache Cache, opts ...Option) (*Middleware, error) {
	if cache == nil {
		return nil, errors.New("respcache: cache cannot be nil")
	}
	m := &Middleware{
		cache:             cache,
		maxBodySize:       DefaultMaximumCachedBodySize,
		minSplitBodySize:  DefaultMinimumSplitBodySize,
		defaultExpiration: DefaultExpiration,
		clock:             systemClock{},
		keys:              DefaultKeyProvider{},
		policy:            DefaultPolicy{},
		collector:         metrics.NoOpCollector{},
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler wraps next with the caching middleware.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.Invoke(w, r, next)
	})
}

// requestContext is the per-request state the middleware accumulates.
// It is constructed at request entry and discarded at request exit.
type requestContext struct {
	req *http.Request

	responseTime time.Time

	cachedResponse *CachedResponse
	cachedHeaders  http.Header
	cachedAge      time.Duration

	varyRules  *CachedVaryRules
	varyParams *varyParamsHolder

	storageBaseKey string
	storageVaryKey string

	validFor time.Duration

	shouldCache     bool
	responseStarted bool

	// storeDegraded is set when a probe hit a backend error; no Set is
	// attempted on such a request.
	storeDegraded bool

	// newResponse is the entry under construction on the capture path;
	// its body is attached at body finalization.
	newResponse *CachedResponse
}

// Invoke runs one request through the cache: serve from store when the
// rules permit, otherwise capture the downstream response for future
// reuse.
func (m *Middleware) Invoke(w http.ResponseWriter, r *http.Request, next http.Handler) {
	if !m.policy.IsRequestCacheable(r) {
		m.collector.RecordRequest(r.Method, "bypass", 0)
		next.ServeHTTP(w, r)
		return
	}

	rc := &requestContext{req: r}

	if m.tryServeFromCache(rc, w, r) {
		return
	}

	// Install the vary-params side-channel so inner handlers can
	// declare query parameters the response varies on.
	ctx, holder := withVaryParamsHolder(r.Context())
	r = r.WithContext(ctx)
	rc.req = r
	rc.varyParams = holder

	bw := newBufferingResponseWriter(w, m.maxBodySize, nil)
	bw.onResponseStart = func(int) { m.finalizeHeaders(rc, bw) }
	// The shim must come off on every exit path, panics included; once
	// off, the response-start hook can no longer fire.
	defer func() { bw.onResponseStart = nil }()

	next.ServeHTTP(bw, r)

	// Covers handlers that complete without writing; a no-op when the
	// hook already fired.
	m.finalizeHeaders(rc, bw)
	m.finalizeBody(rc, bw)
}

// tryServeFromCache probes the store and writes a cached response, a
// 304, or a 504 for only-if-cached requests. It reports whether the
// request was served.
func (m *Middleware) tryServeFromCache(rc *requestContext, w http.ResponseWriter, r *http.Request) bool {
	ctx := r.Context()

	var candidate *CachedResponse
probe:
	for _, key := range m.keys.LookupBaseKeys(r) {
		entry, err := m.getEntry(ctx, key)
		if err != nil {
			rc.storeDegraded = true
		}
		switch e := entry.(type) {
		case *CachedVaryRules:
			rc.varyRules = e
			for _, varyKey := range m.keys.LookupVaryKeys(r, e) {
				variant, err := m.getEntry(ctx, varyKey)
				if err != nil {
					rc.storeDegraded = true
				}
				if resp, ok := variant.(*CachedResponse); ok {
					candidate = resp
					break probe
				}
			}
		case *CachedResponse:
			candidate = e
			break probe
		}
	}

	served := false
	if candidate != nil {
		// A matched entry that is not fresh would need revalidation;
		// with no revalidator this is a miss, and remaining keys are
		// not tried.
		served = m.serveCached(rc, w, r, candidate)
	}

	if !served && parseCacheControl(r.Header).has(cacheControlOnlyIfCached) {
		w.WriteHeader(http.StatusGatewayTimeout)
		m.collector.RecordRequest(r.Method, "only_if_cached", http.StatusGatewayTimeout)
		served = true
	}
	return served
}

// serveCached writes resp to the client if it is fresh and its body is
// retrievable. It reports whether the request was served.
func (m *Middleware) serveCached(rc *requestContext, w http.ResponseWriter, r *http.Request, resp *CachedResponse) bool {
	rc.responseTime = m.clock.Now()
	age := rc.responseTime.Sub(resp.Created)
	if age < 0 {
		age = 0
	}
	rc.cachedResponse = resp
	rc.cachedHeaders = resp.Headers
	rc.cachedAge = age
	rc.validFor = responseValidFor(resp.Headers, resp.Created, m.defaultExpiration)

	if !m.policy.IsCachedEntryFresh(r.Header, rc.validFor, age) {
		m.log().Debug("cached entry is stale", "url", r.URL.String(), "age", age, "valid_for", rc.validFor)
		return false
	}

	if conditionalRequestSatisfied(r.Header, resp.Headers) {
		w.WriteHeader(http.StatusNotModified)
		m.collector.RecordRequest(r.Method, "conditional", http.StatusNotModified)
		return true
	}

	body := resp.Body
	if body == nil {
		entry, err := m.getEntry(r.Context(), resp.BodyKeyPrefix)
		if err != nil {
			rc.storeDegraded = true
		}
		bodyEntry, ok := entry.(*CachedResponseBody)
		if !ok {
			m.log().Warn("cached body entry is gone, abandoning candidate", "body_key", resp.BodyKeyPrefix)
			return false
		}
		body = bodyEntry.Body
	}

	header := w.Header()
	for k, vv := range resp.Headers {
		header[k] = append([]string(nil), vv...)
	}
	header.Set("Age", strconv.FormatInt(int64(age/time.Second), 10))
	if header.Get("Content-Length") == "" && header.Get("Transfer-Encoding") == "" {
		header.Set("Content-Length", strconv.Itoa(len(body)))
	}

	w.WriteHeader(resp.StatusCode)
	if len(body) > 0 {
		if _, err := w.Write(body); err != nil {
			m.log().Debug("error writing cached body to client", "error", err)
		}
	}
	m.collector.RecordRequest(r.Method, "hit", resp.StatusCode)
	m.collector.RecordResponseSize("hit", int64(len(body)))
	return true
}

// finalizeHeaders runs once per request, at response start (or after
// the handler returns without writing). It decides whether the response
// will be stored and, if so, pins down its validity, vary rules and
// storage keys while headers can still be amended.
func (m *Middleware) finalizeHeaders(rc *requestContext, bw *bufferingResponseWriter) {
	if rc.responseStarted {
		return
	}
	rc.responseStarted = true
	rc.responseTime = m.clock.Now()

	header := bw.Header()
	status := bw.status()

	if rc.storeDegraded || !m.policy.IsResponseCacheable(status, header) {
		bw.DisableBuffering()
		m.collector.RecordRequest(rc.req.Method, "miss", status)
		return
	}

	rc.shouldCache = true
	rc.validFor = responseValidFor(header, rc.responseTime, m.defaultExpiration)
	rc.storageBaseKey = m.keys.StorageBaseKey(rc.req)

	varyHeaders, varyParams := varySignature(header, rc.varyParams)
	if len(varyHeaders) > 0 || len(varyParams) > 0 {
		rules := rc.varyRules
		if rules == nil || !rules.matches(varyHeaders, varyParams) {
			// Rules changed (or did not exist): mint a fresh prefix so
			// variants stored under the old one fall out of reach.
			rules = &CachedVaryRules{
				VaryKeyPrefix: newKeyPrefix(),
				Headers:       varyHeaders,
				Params:        varyParams,
			}
			m.setEntry(rc.req.Context(), rc.storageBaseKey, rules, rc.validFor)
			rc.varyRules = rules
		}
		rc.storageVaryKey = m.keys.StorageVaryKey(rc.req, rules)
	}

	if header.Get("Date") == "" {
		header.Set("Date", rc.responseTime.UTC().Format(http.TimeFormat))
	}
	created, err := http.ParseTime(header.Get("Date"))
	if err != nil {
		created = rc.responseTime
	}

	rc.newResponse = &CachedResponse{
		BodyKeyPrefix: newKeyPrefix(),
		Created:       created,
		StatusCode:    status,
		Headers:       cloneHeaderWithoutAge(header),
	}
	m.collector.RecordRequest(rc.req.Method, "miss", status)
}

// finalizeBody runs at request end and persists the captured response
// when everything lines up: the headers said cacheable, the buffer
// survived, the declared Content-Length (if any) matches what was
// written, and the request was not aborted midway.
func (m *Middleware) finalizeBody(rc *requestContext, bw *bufferingResponseWriter) {
	if !rc.shouldCache || rc.newResponse == nil {
		return
	}
	if !bw.BufferingEnabled() {
		return
	}
	if err := rc.req.Context().Err(); err != nil {
		m.log().Debug("request aborted, not persisting response", "error", err)
		return
	}
	if cl := bw.Header().Get("Content-Length"); cl != "" {
		declared, err := strconv.ParseInt(cl, 10, 64)
		if err != nil || declared != bw.BufferedLength() {
			m.log().Debug("Content-Length does not match written body, not persisting",
				"declared", cl, "written", bw.BufferedLength())
			return
		}
	}

	key := rc.storageVaryKey
	if key == "" {
		key = rc.storageBaseKey
	}

	ctx := rc.req.Context()
	body := bw.Snapshot()
	resp := rc.newResponse
	if int64(len(body)) > m.minSplitBodySize {
		m.setEntry(ctx, key, resp, rc.validFor)
		m.setEntry(ctx, resp.BodyKeyPrefix, &CachedResponseBody{Body: body}, rc.validFor)
	} else {
		resp.Body = body
		m.setEntry(ctx, key, resp, rc.validFor)
	}
	m.collector.RecordResponseSize("miss", int64(len(body)))
}

// cloneHeaderWithoutAge deep-copies h, dropping any Age header; Age is
// synthesized on serve, never persisted.
func cloneHeaderWithoutAge(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vv := range h {
		if http.CanonicalHeaderKey(k) == "Age" {
			continue
		}
		out[k] = append([]string(nil), vv...)
	}
	return out
}
