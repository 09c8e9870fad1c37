package respcache

import (
	"net/http"
	"testing"
	"time"
)

func headerWith(kv ...string) http.Header {
	h := http.Header{}
	for i := 0; i < len(kv); i += 2 {
		h.Set(kv[i], kv[i+1])
	}
	return h
}

func TestConditionalIfNoneMatch(t *testing.T) {
	cases := []struct {
		name   string
		req    http.Header
		cached http.Header
		want   bool
	}{
		{"star matches anything", headerWith("If-None-Match", "*"), headerWith(), true},
		{"strong match", headerWith("If-None-Match", `"E1"`), headerWith("ETag", `"E1"`), true},
		{"list match", headerWith("If-None-Match", `"E0", "E1"`), headerWith("ETag", `"E1"`), true},
		{"no match", headerWith("If-None-Match", `"E2"`), headerWith("ETag", `"E1"`), false},
		{"weak request tag", headerWith("If-None-Match", `W/"E1"`), headerWith("ETag", `"E1"`), false},
		{"weak cached tag", headerWith("If-None-Match", `"E1"`), headerWith("ETag", `W/"E1"`), false},
		{"no cached etag", headerWith("If-None-Match", `"E1"`), headerWith(), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := conditionalRequestSatisfied(tc.req, tc.cached); got != tc.want {
				t.Errorf("satisfied = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestConditionalIfUnmodifiedSince(t *testing.T) {
	base := time.Date(2024, 5, 14, 12, 0, 0, 0, time.UTC)
	fmtTime := func(t time.Time) string { return t.Format(http.TimeFormat) }

	cases := []struct {
		name   string
		req    http.Header
		cached http.Header
		want   bool
	}{
		{
			"modified before limit",
			headerWith("If-Unmodified-Since", fmtTime(base)),
			headerWith("Last-Modified", fmtTime(base.Add(-time.Hour))),
			true,
		},
		{
			"modified at limit",
			headerWith("If-Unmodified-Since", fmtTime(base)),
			headerWith("Last-Modified", fmtTime(base)),
			true,
		},
		{
			"modified after limit",
			headerWith("If-Unmodified-Since", fmtTime(base)),
			headerWith("Last-Modified", fmtTime(base.Add(time.Hour))),
			false,
		},
		{
			"falls back to Date",
			headerWith("If-Unmodified-Since", fmtTime(base)),
			headerWith("Date", fmtTime(base.Add(-time.Minute))),
			true,
		},
		{
			"unparseable limit",
			headerWith("If-Unmodified-Since", "not a date"),
			headerWith("Last-Modified", fmtTime(base)),
			false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := conditionalRequestSatisfied(tc.req, tc.cached); got != tc.want {
				t.Errorf("satisfied = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIfNoneMatchOverridesIfUnmodifiedSince(t *testing.T) {
	base := time.Date(2024, 5, 14, 12, 0, 0, 0, time.UTC)
	req := headerWith(
		"If-None-Match", `"E2"`,
		"If-Unmodified-Since", base.Format(http.TimeFormat),
	)
	cached := headerWith(
		"ETag", `"E1"`,
		"Last-Modified", base.Add(-time.Hour).Format(http.TimeFormat),
	)
	// If-Unmodified-Since alone would be satisfied, but the failing
	// If-None-Match takes precedence.
	if conditionalRequestSatisfied(req, cached) {
		t.Fatal("If-None-Match should override If-Unmodified-Since")
	}
}
