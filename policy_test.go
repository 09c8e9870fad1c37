package respcache

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIsRequestCacheable(t *testing.T) {
	policy := DefaultPolicy{}

	cases := []struct {
		name    string
		method  string
		headers map[string]string
		want    bool
	}{
		{"plain GET", http.MethodGet, nil, true},
		{"plain HEAD", http.MethodHead, nil, true},
		{"POST", http.MethodPost, nil, false},
		{"DELETE", http.MethodDelete, nil, false},
		{"no-cache", http.MethodGet, map[string]string{"Cache-Control": "no-cache"}, false},
		{"no-store", http.MethodGet, map[string]string{"Cache-Control": "no-store"}, false},
		{"pragma", http.MethodGet, map[string]string{"Pragma": "no-cache"}, false},
		{"authorized", http.MethodGet, map[string]string{"Authorization": "Bearer tok"}, false},
		{"unrelated directives", http.MethodGet, map[string]string{"Cache-Control": "max-age=5"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(tc.method, "/x", nil)
			for k, v := range tc.headers {
				r.Header.Set(k, v)
			}
			if got := policy.IsRequestCacheable(r); got != tc.want {
				t.Errorf("IsRequestCacheable = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsResponseCacheable(t *testing.T) {
	policy := DefaultPolicy{}

	header := func(kv ...string) http.Header {
		h := http.Header{}
		for i := 0; i < len(kv); i += 2 {
			h.Set(kv[i], kv[i+1])
		}
		return h
	}

	cases := []struct {
		name   string
		status int
		header http.Header
		want   bool
	}{
		{"200 bare", 200, header(), true},
		{"404 bare", 404, header(), true},
		{"501 bare", 501, header(), true},
		{"500 bare", 500, header(), false},
		{"500 with max-age", 500, header("Cache-Control", "max-age=30"), true},
		{"418 with public", 418, header("Cache-Control", "public"), true},
		{"418 with s-maxage", 418, header("Cache-Control", "s-maxage=5"), true},
		{"200 no-store", 200, header("Cache-Control", "no-store"), false},
		{"200 no-cache", 200, header("Cache-Control", "no-cache"), false},
		{"200 private", 200, header("Cache-Control", "private"), false},
		{"200 set-cookie", 200, header("Set-Cookie", "a=b"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := policy.IsResponseCacheable(tc.status, tc.header); got != tc.want {
				t.Errorf("IsResponseCacheable = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsCachedEntryFresh(t *testing.T) {
	policy := DefaultPolicy{}

	header := func(cc string) http.Header {
		h := http.Header{}
		if cc != "" {
			h.Set("Cache-Control", cc)
		}
		return h
	}

	cases := []struct {
		name     string
		reqCC    string
		validFor time.Duration
		age      time.Duration
		want     bool
	}{
		{"young entry", "", 10 * time.Second, 2 * time.Second, true},
		{"expired entry", "", 10 * time.Second, 12 * time.Second, false},
		{"exactly at lifetime", "", 10 * time.Second, 10 * time.Second, false},
		{"request max-age tightens", "max-age=1", 10 * time.Second, 5 * time.Second, false},
		{"request max-age loosens lifetime but entry younger", "max-age=30", 10 * time.Second, 12 * time.Second, true},
		{"min-fresh demands headroom", "min-fresh=9", 10 * time.Second, 2 * time.Second, false},
		{"bare max-stale accepts anything", "max-stale", 10 * time.Second, time.Hour, true},
		{"valued max-stale extends", "max-stale=5", 10 * time.Second, 13 * time.Second, true},
		{"valued max-stale exhausted", "max-stale=5", 10 * time.Second, 16 * time.Second, false},
		{"invalid request max-age forces stale", "max-age=banana", 10 * time.Second, 1 * time.Second, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := policy.IsCachedEntryFresh(header(tc.reqCC), tc.validFor, tc.age)
			if got != tc.want {
				t.Errorf("IsCachedEntryFresh = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestResponseValidFor(t *testing.T) {
	ref := time.Date(2024, 5, 14, 12, 0, 0, 0, time.UTC)

	h := http.Header{}
	if got := responseValidFor(h, ref, 10*time.Second); got != 10*time.Second {
		t.Errorf("bare response validity = %v, want the 10s fallback", got)
	}

	h = http.Header{}
	h.Set("Cache-Control", "max-age=60")
	if got := responseValidFor(h, ref, 10*time.Second); got != time.Minute {
		t.Errorf("max-age validity = %v, want 1m", got)
	}

	h = http.Header{}
	h.Set("Cache-Control", "max-age=60, s-maxage=120")
	if got := responseValidFor(h, ref, 10*time.Second); got != 2*time.Minute {
		t.Errorf("s-maxage should win over max-age, got %v", got)
	}

	h = http.Header{}
	h.Set("Expires", ref.Add(90*time.Second).Format(http.TimeFormat))
	if got := responseValidFor(h, ref, 10*time.Second); got != 90*time.Second {
		t.Errorf("Expires validity = %v, want 90s", got)
	}
}

func TestParseCacheControl(t *testing.T) {
	h := http.Header{}
	h.Set("Cache-Control", "max-age=60, no-store, s-maxage=\"30\"")
	cc := parseCacheControl(h)

	if cc["max-age"] != "60" {
		t.Errorf("max-age = %q", cc["max-age"])
	}
	if !cc.has("no-store") {
		t.Error("no-store not parsed")
	}
	if cc["s-maxage"] != "30" {
		t.Errorf("s-maxage = %q, want quotes stripped", cc["s-maxage"])
	}
}
