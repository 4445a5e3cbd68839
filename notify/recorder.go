// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bureau-foundation/switchboard/lib/clock"
	"github.com/bureau-foundation/switchboard/lib/codec"
)

// Record is one entry of a recording.
type Record struct {
	Kind Kind             `cbor:"kind"`
	Time time.Time        `cbor:"time"`
	Body codec.RawMessage `cbor:"body"`
}

// Recorder writes notifications to w as a CBOR sequence of Records.
type Recorder struct {
	clock clock.Clock

	mu      sync.Mutex
	encoder *codec.Encoder
	count   int
	err     error
}

// NewRecorder returns a Recorder writing to w. The caller owns w.
func NewRecorder(w io.Writer, clk clock.Clock) *Recorder {
	if clk == nil {
		clk = clock.Real()
	}
	return &Recorder{clock: clk, encoder: codec.NewEncoder(w)}
}

// Handle records notification. After the first write error the
// Recorder stops writing; Err reports the error.
func (r *Recorder) Handle(notification Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return
	}
	body, err := codec.Marshal(notification)
	if err != nil {
		r.err = fmt.Errorf("notify: encoding %s: %w", notification.Kind(), err)
		return
	}
	record := Record{Kind: notification.Kind(), Time: r.clock.Now().UTC(), Body: body}
	if err := r.encoder.Encode(record); err != nil {
		r.err = fmt.Errorf("notify: writing record: %w", err)
		return
	}
	r.count++
}

// Count returns the number of records written.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Err returns the first error encountered, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// ReadRecording decodes every Record in r and returns the
// notifications in recorded order. Records of an unknown kind are
// skipped so recordings from newer versions still replay.
func ReadRecording(r io.Reader) ([]Notification, error) {
	decoder := codec.NewDecoder(r)
	var notifications []Notification
	for {
		var record Record
		err := decoder.Decode(&record)
		if errors.Is(err, io.EOF) {
			return notifications, nil
		}
		if err != nil {
			return notifications, fmt.Errorf("notify: reading record %d: %w", len(notifications), err)
		}
		decode, ok := decoders[record.Kind]
		if !ok {
			continue
		}
		notification, err := decode(record.Body)
		if err != nil {
			return notifications, fmt.Errorf("notify: decoding %s record: %w", record.Kind, err)
		}
		notifications = append(notifications, notification)
	}
}

// Decode decodes one CBOR notification body of the given kind.
func Decode(kind Kind, body []byte) (Notification, error) {
	decode, ok := decoders[kind]
	if !ok {
		return nil, fmt.Errorf("notify: unknown notification kind %q", kind)
	}
	return decode(body)
}

func decodeAs[T Notification](body []byte) (Notification, error) {
	var notification T
	if err := codec.Unmarshal(body, &notification); err != nil {
		return nil, err
	}
	return notification, nil
}

var decoders = map[Kind]func([]byte) (Notification, error){
	KindConnected:         decodeAs[Connected],
	KindDisconnected:      decodeAs[Disconnected],
	KindEntityCreated:     decodeAs[EntityCreated],
	KindEntityUpdated:     decodeAs[EntityUpdated],
	KindEntityDeleted:     decodeAs[EntityDeleted],
	KindThreadCreated:     decodeAs[ThreadCreated],
	KindThreadsSynced:     decodeAs[ThreadsSynced],
	KindMembersChunk:      decodeAs[MembersChunk],
	KindMessagesDeleted:   decodeAs[MessagesDeleted],
	KindReactionAdded:     decodeAs[ReactionAdded],
	KindReactionRemoved:   decodeAs[ReactionRemoved],
	KindReadStateChanged:  decodeAs[ReadStateChanged],
	KindPresenceChanged:   decodeAs[PresenceChanged],
	KindTypingStarted:     decodeAs[TypingStarted],
	KindVoiceStateChanged: decodeAs[VoiceStateChanged],
}
