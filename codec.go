package respcache

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"
)

// Persisted entry format, version 1. All integers are little-endian:
//
//	int32  format version (= 1)
//	uint8  kind tag ('B', 'R' or 'V')
//	...    kind-specific payload
//
// Strings are int32 length-prefixed UTF-8. Timestamps are int64 counts
// of 100-nanosecond ticks since the Unix epoch, UTC.
const formatVersion int32 = 1

const ticksPerSecond = int64(10_000_000)

var (
	// ErrInvalidArgument is returned by encodeEntry when given a nil entry.
	ErrInvalidArgument = errors.New("respcache: cannot encode nil entry")
	// ErrUnsupportedKind is returned by encodeEntry for unknown entry types.
	ErrUnsupportedKind = errors.New("respcache: unsupported entry kind")

	errVersionMismatch = errors.New("respcache: entry format version mismatch")
	errUnknownKindTag  = errors.New("respcache: unknown entry kind tag")
	errTruncatedEntry  = errors.New("respcache: truncated entry")
)

// encodeEntry serializes e into the versioned binary format.
func encodeEntry(e Entry) ([]byte, error) {
	if e == nil {
		return nil, ErrInvalidArgument
	}

	var buf bytes.Buffer
	writeInt32(&buf, formatVersion)

	switch v := e.(type) {
	case *CachedResponseBody:
		buf.WriteByte(byte(kindBody))
		writeBytes(&buf, v.Body)
	case *CachedResponse:
		buf.WriteByte(byte(kindResponse))
		writeString(&buf, v.BodyKeyPrefix)
		writeInt64(&buf, toTicks(v.Created))
		writeInt32(&buf, int32(v.StatusCode))
		writeHeader(&buf, v.Headers)
		if v.hasBody() {
			buf.WriteByte(1)
			writeBytes(&buf, v.Body)
		} else {
			buf.WriteByte(0)
		}
	case *CachedVaryRules:
		buf.WriteByte(byte(kindVaryRules))
		writeString(&buf, v.VaryKeyPrefix)
		writeStringList(&buf, v.Headers)
		writeStringList(&buf, v.Params)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKind, e)
	}

	return buf.Bytes(), nil
}

// decodeEntry deserializes data into one of the three entry types.
// A nil or empty input yields a nil entry with no error. A version
// mismatch, an unknown kind tag or any read short of a declared length
// yields a nil entry and a describing error; callers treat all of these
// as cache misses.
func decodeEntry(data []byte) (Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}

	r := &entryReader{data: data}
	if v := r.int32(); v != formatVersion {
		if r.err != nil {
			return nil, r.err
		}
		return nil, fmt.Errorf("%w: got %d", errVersionMismatch, v)
	}

	var e Entry
	switch kind := entryKind(r.byte()); kind {
	case kindBody:
		e = &CachedResponseBody{Body: r.bytes()}
	case kindResponse:
		resp := &CachedResponse{
			BodyKeyPrefix: r.string(),
			Created:       fromTicks(r.int64()),
			StatusCode:    int(r.int32()),
			Headers:       r.header(),
		}
		if r.byte() != 0 {
			resp.Body = r.bytes()
			if resp.Body == nil {
				resp.Body = []byte{}
			}
		}
		e = resp
	case kindVaryRules:
		e = &CachedVaryRules{
			VaryKeyPrefix: r.string(),
			Headers:       r.stringList(),
			Params:        r.stringList(),
		}
	default:
		if r.err == nil {
			r.err = fmt.Errorf("%w: %q", errUnknownKindTag, byte(kind))
		}
	}

	if r.err != nil {
		return nil, r.err
	}
	return e, nil
}

func toTicks(t time.Time) int64 {
	t = t.UTC()
	return t.Unix()*ticksPerSecond + int64(t.Nanosecond())/100
}

func fromTicks(ticks int64) time.Time {
	return time.Unix(ticks/ticksPerSecond, (ticks%ticksPerSecond)*100).UTC()
}

func writeInt32(buf *bytes.Buffer, v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	buf.Write(b[:])
}

func writeInt64(buf *bytes.Buffer, v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	buf.Write(b[:])
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	writeInt32(buf, int32(len(b)))
	buf.Write(b)
}

func writeString(buf *bytes.Buffer, s string) {
	writeInt32(buf, int32(len(s)))
	buf.WriteString(s)
}

func writeStringList(buf *bytes.Buffer, list []string) {
	writeInt32(buf, int32(len(list)))
	for _, s := range list {
		writeString(buf, s)
	}
}

// writeHeader writes headers as a flat sequence of key/value records,
// one record per value. Keys are sorted so equal headers encode to equal
// bytes; the order of values within a key is preserved.
func writeHeader(buf *bytes.Buffer, h http.Header) {
	count := 0
	keys := make([]string, 0, len(h))
	for k, vv := range h {
		keys = append(keys, k)
		count += len(vv)
	}
	sort.Strings(keys)

	writeInt32(buf, int32(count))
	for _, k := range keys {
		for _, v := range h[k] {
			writeString(buf, k)
			writeString(buf, v)
		}
	}
}

// entryReader is a cursor over an encoded entry. The first failed read
// sets err and makes every subsequent read a zero-value no-op, so decode
// paths can read unconditionally and check the error once.
type entryReader struct {
	data []byte
	off  int
	err  error
}

func (r *entryReader) fail() {
	if r.err == nil {
		r.err = errTruncatedEntry
	}
}

func (r *entryReader) byte() byte {
	if r.err != nil {
		return 0
	}
	if r.off+1 > len(r.data) {
		r.fail()
		return 0
	}
	b := r.data[r.off]
	r.off++
	return b
}

func (r *entryReader) int32() int32 {
	if r.err != nil {
		return 0
	}
	if r.off+4 > len(r.data) {
		r.fail()
		return 0
	}
	v := int32(binary.LittleEndian.Uint32(r.data[r.off:]))
	r.off += 4
	return v
}

func (r *entryReader) int64() int64 {
	if r.err != nil {
		return 0
	}
	if r.off+8 > len(r.data) {
		r.fail()
		return 0
	}
	v := int64(binary.LittleEndian.Uint64(r.data[r.off:]))
	r.off += 8
	return v
}

func (r *entryReader) bytes() []byte {
	n := r.int32()
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+int(n) > len(r.data) {
		r.fail()
		return nil
	}
	b := make([]byte, n)
	copy(b, r.data[r.off:r.off+int(n)])
	r.off += int(n)
	return b
}

func (r *entryReader) string() string {
	return string(r.bytes())
}

func (r *entryReader) stringList() []string {
	n := r.int32()
	if r.err != nil {
		return nil
	}
	if n < 0 || int(n) > len(r.data)-r.off {
		r.fail()
		return nil
	}
	list := make([]string, 0, n)
	for i := int32(0); i < n; i++ {
		list = append(list, r.string())
	}
	if r.err != nil {
		return nil
	}
	return list
}

func (r *entryReader) header() http.Header {
	n := r.int32()
	if r.err != nil {
		return nil
	}
	if n < 0 || int(n) > len(r.data)-r.off {
		r.fail()
		return nil
	}
	h := make(http.Header, n)
	for i := int32(0); i < n; i++ {
		k := r.string()
		v := r.string()
		if r.err != nil {
			return nil
		}
		h[k] = append(h[k], v)
	}
	return h
}
