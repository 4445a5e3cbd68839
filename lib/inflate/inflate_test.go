// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inflate

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/klauspost/compress/zlib"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// compressStream compresses each message with one zlib stream,
// sync-flushing after every message the way the gateway does. It
// returns the per-message compressed segments.
func compressStream(t *testing.T, messages []string) [][]byte {
	t.Helper()
	var buffer bytes.Buffer
	writer := zlib.NewWriter(&buffer)
	var segments [][]byte
	for _, message := range messages {
		start := buffer.Len()
		if _, err := writer.Write([]byte(message)); err != nil {
			t.Fatalf("compress: %v", err)
		}
		if err := writer.Flush(); err != nil {
			t.Fatalf("flush: %v", err)
		}
		segment := bytes.Clone(buffer.Bytes()[start:])
		if !bytes.HasSuffix(segment, flushMarker) {
			t.Fatalf("segment for %q does not end with the flush marker", message)
		}
		segments = append(segments, segment)
	}
	return segments
}

// inflateDirect decompresses the concatenation of segments in one pass.
func inflateDirect(t *testing.T, segments [][]byte) []byte {
	t.Helper()
	reader, err := zlib.NewReader(bytes.NewReader(bytes.Join(segments, nil)))
	if err != nil {
		t.Fatalf("zlib.NewReader: %v", err)
	}
	output, err := io.ReadAll(reader)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("direct inflate: %v", err)
	}
	return output
}

// splitSegment cuts a segment into random frames. Cut points that
// would leave a non-final frame ending in the flush marker are skipped,
// because the framing cannot distinguish those from a real message end.
func splitSegment(random *rand.Rand, segment []byte) [][]byte {
	var frames [][]byte
	start := 0
	for start < len(segment) {
		end := start + 1 + random.IntN(len(segment)-start)
		if end < len(segment) && bytes.HasSuffix(segment[:end], flushMarker) {
			continue
		}
		frames = append(frames, segment[start:end])
		start = end
	}
	return frames
}

func testMessages(count int) []string {
	messages := make([]string, count)
	for index := range messages {
		messages[index] = fmt.Sprintf(
			`{"op":0,"s":%d,"t":"MESSAGE_CREATE","d":{"id":"%d","content":%q}}`,
			index+1, 1000+index, strings.Repeat("hello gateway ", index%7+1),
		)
	}
	return messages
}

func TestFeedRandomFrameBoundaries(t *testing.T) {
	messages := testMessages(40)
	segments := compressStream(t, messages)
	direct := inflateDirect(t, segments)

	for seed := uint64(1); seed <= 25; seed++ {
		t.Run(fmt.Sprintf("seed_%d", seed), func(t *testing.T) {
			random := rand.New(rand.NewPCG(seed, seed*7919))
			decompressor := New(64, discardLogger())

			var payloads [][]byte
			for index, segment := range segments {
				frames := splitSegment(random, segment)
				for frameIndex, frame := range frames {
					got := decompressor.Feed(frame)
					if frameIndex < len(frames)-1 && got != nil {
						t.Fatalf("message %d: non-final frame %d produced output", index, frameIndex)
					}
					payloads = append(payloads, got...)
				}
			}

			if len(payloads) != len(messages) {
				t.Fatalf("got %d payloads, want %d", len(payloads), len(messages))
			}
			if joined := bytes.Join(payloads, nil); !bytes.Equal(joined, direct) {
				t.Fatalf("payloads differ from direct inflation of the concatenated stream")
			}
			for index, payload := range payloads {
				if string(payload) != messages[index] {
					t.Errorf("payload %d = %s, want %s", index, payload, messages[index])
				}
			}
		})
	}
}

func TestFeedGrowsOutputBuffer(t *testing.T) {
	large := fmt.Sprintf(`{"op":0,"d":{"content":%q}}`, strings.Repeat("abcdefghij", 20000))
	segments := compressStream(t, []string{large, `{"op":11}`})

	decompressor := New(128, discardLogger())
	got := decompressor.Feed(segments[0])
	if len(got) != 1 || string(got[0]) != large {
		t.Fatalf("large message did not round-trip (got %d payloads)", len(got))
	}
	got = decompressor.Feed(segments[1])
	if len(got) != 1 || string(got[0]) != `{"op":11}` {
		t.Fatalf("message after large message = %q", got)
	}
}

func TestFeedLongHistory(t *testing.T) {
	// Messages repeat content from far back in the stream, so decoding
	// later ones depends on the dictionary carried between calls.
	var messages []string
	for index := range 30 {
		messages = append(messages, fmt.Sprintf(`{"n":%d,"pad":%q}`, index, strings.Repeat("xyz0123456789", 300)))
	}
	segments := compressStream(t, messages)

	decompressor := New(0, discardLogger())
	for index, segment := range segments {
		got := decompressor.Feed(segment)
		if len(got) != 1 || string(got[0]) != messages[index] {
			t.Fatalf("message %d did not round-trip", index)
		}
	}
}

func TestFeedMultipleDocumentsPerFlush(t *testing.T) {
	segments := compressStream(t, []string{`{"op":1} {"op":11}` + "\n" + `{"op":0}`})
	got := New(0, discardLogger()).Feed(segments[0])
	want := []string{`{"op":1}`, `{"op":11}`, `{"op":0}`}
	if len(got) != len(want) {
		t.Fatalf("got %d payloads, want %d", len(got), len(want))
	}
	for index := range want {
		if string(got[index]) != want[index] {
			t.Errorf("payload %d = %s, want %s", index, got[index], want[index])
		}
	}
}

func TestResetStartsFreshStream(t *testing.T) {
	first := compressStream(t, testMessages(3))
	decompressor := New(64, discardLogger())
	for _, segment := range first {
		decompressor.Feed(segment)
	}
	// Leave a partial frame behind, as a connection drop would.
	decompressor.Feed(first[0][:3])
	if decompressor.Buffered() != 3 {
		t.Fatalf("Buffered() = %d, want 3", decompressor.Buffered())
	}

	decompressor.Reset()
	if decompressor.Buffered() != 0 {
		t.Fatalf("Buffered() after Reset = %d, want 0", decompressor.Buffered())
	}
	if cap(decompressor.output) != 64 {
		t.Fatalf("output capacity after Reset = %d, want 64", cap(decompressor.output))
	}

	// An independently compressed stream decodes after the reset.
	second := compressStream(t, []string{`{"op":10,"d":{"heartbeat_interval":41250}}`})
	got := decompressor.Feed(second[0])
	if len(got) != 1 || string(got[0]) != `{"op":10,"d":{"heartbeat_interval":41250}}` {
		t.Fatalf("fresh stream after Reset = %q", got)
	}
}

func TestFeedWithoutResetRejectsNewStream(t *testing.T) {
	decompressor := New(0, discardLogger())
	for _, segment := range compressStream(t, testMessages(2)) {
		decompressor.Feed(segment)
	}
	// A second stream begins with a zlib header the running context
	// does not expect; its bytes must not decode into the first message.
	fresh := compressStream(t, []string{`{"op":10}`})
	if got := decompressor.Feed(fresh[0]); len(got) == 1 && string(got[0]) == `{"op":10}` {
		t.Fatal("stale context decoded a foreign stream as if it were fresh")
	}
}

func TestFeedBadHeader(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
	}{
		{name: "wrong method", frame: []byte{0x79, 0x9c, 0x00, 0x00, 0xff, 0xff}},
		{name: "bad checksum", frame: []byte{0x78, 0x9d, 0x00, 0x00, 0xff, 0xff}},
		{name: "preset dictionary", frame: []byte{0x78, 0xbb, 0x00, 0x00, 0xff, 0xff}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			decompressor := New(0, discardLogger())
			if got := decompressor.Feed(test.frame); got != nil {
				t.Fatalf("Feed = %q, want nil for a bad header", got)
			}
			if decompressor.Buffered() != 0 {
				t.Fatal("bad message left bytes in the hold buffer")
			}
		})
	}
}
