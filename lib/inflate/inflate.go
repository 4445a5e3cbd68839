// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inflate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/klauspost/compress/flate"
)

// DefaultChunkSize is the output buffer growth step.
const DefaultChunkSize = 16 * 1024

// windowSize is the deflate history limit. Back-references in later
// messages never reach further than this into earlier output.
const windowSize = 32 * 1024

// flushMarker terminates every sync-flushed message.
var flushMarker = []byte{0x00, 0x00, 0xff, 0xff}

// Decompressor turns zlib-stream frames into JSON payloads.
type Decompressor struct {
	logger    *slog.Logger
	chunkSize int

	// hold accumulates frames until one ends with the flush marker.
	hold []byte

	// output is reused across messages. Its capacity starts at
	// chunkSize and grows by chunkSize whenever inflation fills it.
	output []byte

	// window holds the most recent windowSize bytes of output, the
	// preset dictionary for the next message.
	window []byte

	input   bytes.Reader
	reader  io.ReadCloser
	started bool
}

// New returns a Decompressor with an output buffer of chunkSize bytes.
// A non-positive chunkSize selects DefaultChunkSize; a nil logger
// selects slog.Default().
func New(chunkSize int, logger *slog.Logger) *Decompressor {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Decompressor{
		logger:    logger,
		chunkSize: chunkSize,
		output:    make([]byte, 0, chunkSize),
	}
}

// Feed consumes one transport frame. Frames that do not complete a
// message return nil. A frame that completes one or more messages
// returns one payload per JSON document in the inflated bytes, in
// order. The returned slices are owned by the caller.
//
// A corrupt message is logged and dropped; Feed never returns an
// error because the connection survives a single bad message.
func (d *Decompressor) Feed(frame []byte) [][]byte {
	d.hold = append(d.hold, frame...)
	if !bytes.HasSuffix(d.hold, flushMarker) {
		return nil
	}

	inflated, err := d.inflate(d.hold)
	d.hold = d.hold[:0]
	if err != nil {
		d.logger.Warn("dropping undecodable compressed message", "error", err)
		return nil
	}
	return d.split(inflated)
}

// Buffered reports the number of bytes held for an incomplete message.
func (d *Decompressor) Buffered() int { return len(d.hold) }

// Reset discards the compression context and any held bytes, returning
// the Decompressor to its initial state for a new connection.
func (d *Decompressor) Reset() {
	if d.reader != nil {
		d.reader.Close()
		d.reader = nil
	}
	d.started = false
	d.hold = d.hold[:0]
	d.window = d.window[:0]
	if cap(d.output) > d.chunkSize {
		d.output = make([]byte, 0, d.chunkSize)
	} else {
		d.output = d.output[:0]
	}
}

// inflate runs one complete message through the persistent context.
func (d *Decompressor) inflate(compressed []byte) ([]byte, error) {
	if !d.started {
		body, err := stripZlibHeader(compressed)
		if err != nil {
			return nil, err
		}
		compressed = body
	}

	d.input.Reset(compressed)
	if d.reader == nil {
		d.reader = flate.NewReaderDict(&d.input, nil)
	} else if err := d.reader.(flate.Resetter).Reset(&d.input, d.window); err != nil {
		return nil, fmt.Errorf("inflate: resetting reader: %w", err)
	}
	d.started = true

	d.output = d.output[:0]
	for {
		if len(d.output) == cap(d.output) {
			d.output = slices.Grow(d.output, d.chunkSize)
		}
		count, err := d.reader.Read(d.output[len(d.output):cap(d.output)])
		d.output = d.output[:len(d.output)+count]
		if err == nil {
			continue
		}
		// A sync-flushed stream has no final block, so running out of
		// input is the normal end of a message.
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		return nil, fmt.Errorf("inflate: %w", err)
	}

	d.remember(d.output)
	return d.output, nil
}

// remember appends output to the history window, keeping only the
// last windowSize bytes.
func (d *Decompressor) remember(output []byte) {
	if len(output) >= windowSize {
		d.window = append(d.window[:0], output[len(output)-windowSize:]...)
		return
	}
	d.window = append(d.window, output...)
	if excess := len(d.window) - windowSize; excess > 0 {
		d.window = append(d.window[:0], d.window[excess:]...)
	}
}

// split separates concatenated JSON documents. Whitespace between
// documents is ignored. A malformed document ends the split; the
// documents before it are still returned.
func (d *Decompressor) split(inflated []byte) [][]byte {
	decoder := json.NewDecoder(bytes.NewReader(inflated))
	var payloads [][]byte
	for {
		var document json.RawMessage
		err := decoder.Decode(&document)
		if errors.Is(err, io.EOF) {
			return payloads
		}
		if err != nil {
			d.logger.Warn("dropping malformed inflated payload",
				"error", err,
				"offset", decoder.InputOffset(),
			)
			return payloads
		}
		payloads = append(payloads, []byte(document))
	}
}

// stripZlibHeader validates and removes the two byte zlib header that
// opens the stream.
func stripZlibHeader(data []byte) ([]byte, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("inflate: stream shorter than zlib header")
	}
	cmf, flg := data[0], data[1]
	if cmf&0x0f != 8 {
		return nil, fmt.Errorf("inflate: unsupported compression method %d", cmf&0x0f)
	}
	if (uint16(cmf)<<8|uint16(flg))%31 != 0 {
		return nil, fmt.Errorf("inflate: zlib header checksum mismatch")
	}
	if flg&0x20 != 0 {
		return nil, fmt.Errorf("inflate: preset dictionary not supported")
	}
	return data[2:], nil
}
