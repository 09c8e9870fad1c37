package respcache

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestBufferingWriterForwardsAndBuffers(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newBufferingResponseWriter(rec, 1024, nil)

	if _, err := w.Write([]byte("hello ")); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("world")); err != nil {
		t.Fatal(err)
	}

	if rec.Body.String() != "hello world" {
		t.Errorf("forwarded = %q", rec.Body.String())
	}
	if !w.BufferingEnabled() {
		t.Error("buffering disabled without overflow")
	}
	if got := string(w.Snapshot()); got != "hello world" {
		t.Errorf("snapshot = %q", got)
	}
	if w.BufferedLength() != 11 {
		t.Errorf("buffered length = %d", w.BufferedLength())
	}
}

func TestBufferingWriterOverflowDisablesForGood(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newBufferingResponseWriter(rec, 8, nil)

	_, _ = w.Write([]byte("12345"))
	_, _ = w.Write([]byte("6789")) // 9 > 8: overflow

	if w.BufferingEnabled() {
		t.Fatal("buffering still enabled after overflow")
	}
	if w.BufferedLength() != 0 {
		t.Errorf("buffer not discarded: %d bytes", w.BufferedLength())
	}

	// later small writes must not re-enable buffering
	_, _ = w.Write([]byte("x"))
	if w.BufferingEnabled() || w.BufferedLength() != 0 {
		t.Error("buffering resumed after overflow")
	}

	if rec.Body.String() != "123456789x" {
		t.Errorf("forwarding affected by overflow: %q", rec.Body.String())
	}
}

func TestBufferingWriterExplicitDisable(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newBufferingResponseWriter(rec, 1024, nil)

	_, _ = w.Write([]byte("abc"))
	w.DisableBuffering()

	if w.BufferingEnabled() || w.BufferedLength() != 0 {
		t.Error("disable did not discard the buffer")
	}
	_, _ = w.Write([]byte("def"))
	if rec.Body.String() != "abcdef" {
		t.Errorf("forwarded = %q", rec.Body.String())
	}
}

func TestBufferingWriterResponseStartHook(t *testing.T) {
	rec := httptest.NewRecorder()
	var hookStatus int
	fired := 0
	w := newBufferingResponseWriter(rec, 1024, func(status int) {
		hookStatus = status
		fired++
	})

	w.WriteHeader(418)
	w.WriteHeader(500) // second call must be ignored
	_, _ = w.Write([]byte("tea"))

	if fired != 1 {
		t.Fatalf("hook fired %d times", fired)
	}
	if hookStatus != 418 {
		t.Errorf("hook status = %d", hookStatus)
	}
	if rec.Code != 418 {
		t.Errorf("forwarded status = %d", rec.Code)
	}
}

func TestBufferingWriterImplicitWriteHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	fired := 0
	w := newBufferingResponseWriter(rec, 1024, func(int) { fired++ })

	_, _ = w.Write([]byte("body"))

	if fired != 1 {
		t.Fatalf("hook fired %d times", fired)
	}
	if w.status() != 200 {
		t.Errorf("status = %d", w.status())
	}
}

func TestBufferingWriterReadFrom(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newBufferingResponseWriter(rec, 1024, nil)

	n, err := w.ReadFrom(strings.NewReader("streamed content"))
	if err != nil {
		t.Fatal(err)
	}
	if n != int64(len("streamed content")) {
		t.Errorf("n = %d", n)
	}
	if rec.Body.String() != "streamed content" {
		t.Errorf("forwarded = %q", rec.Body.String())
	}
	if !bytes.Equal(w.Snapshot(), []byte("streamed content")) {
		t.Errorf("snapshot = %q", w.Snapshot())
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newBufferingResponseWriter(rec, 1024, nil)
	_, _ = w.Write([]byte("abc"))

	snap := w.Snapshot()
	snap[0] = 'X'

	if got := string(w.Snapshot()); got != "abc" {
		t.Errorf("buffer mutated through snapshot: %q", got)
	}
}

func TestSnapshotOfEmptyBufferIsNonNil(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newBufferingResponseWriter(rec, 1024, nil)
	if w.Snapshot() == nil {
		t.Fatal("empty snapshot is nil; colocated empty bodies need a non-nil slice")
	}
}
