// Copyright 2025 The AWP Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sse implements the server-sent events framing the HTTP bindings
// use for streaming responses.
package sse

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"net/http"

	"github.com/google/uuid"
)

// ContentEventStream is the media type of an event stream response.
const ContentEventStream = "text/event-stream"

const dataPrefix = "data:"

// maxLineSize caps a single data line at 10MB. The bufio.Scanner default of
// 64KB is too small for large payloads.
const maxLineSize = 10 << 20

// Writer frames payloads as server-sent events on an HTTP response.
type Writer struct {
	rw      http.ResponseWriter
	flusher http.Flusher
}

// NewWriter wraps rw. The response writer must support flushing, a buffered
// response cannot stream.
func NewWriter(rw http.ResponseWriter) (*Writer, error) {
	flusher, ok := rw.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}
	return &Writer{rw: rw, flusher: flusher}, nil
}

// WriteHeaders sends the event stream headers and commits the status code.
func (w *Writer) WriteHeaders() {
	h := w.rw.Header()
	h.Set("Content-Type", ContentEventStream)
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.rw.WriteHeader(http.StatusOK)
}

// WriteKeepAlive emits a comment line to keep an idle connection open.
func (w *Writer) WriteKeepAlive(ctx context.Context) error {
	if _, err := io.WriteString(w.rw, ": keep-alive\n\n"); err != nil {
		return err
	}
	w.flusher.Flush()
	return nil
}

// WriteData emits data as a single event with a fresh event ID and flushes it
// to the client.
func (w *Writer) WriteData(ctx context.Context, data []byte) error {
	if _, err := fmt.Fprintf(w.rw, "id: %s\n%s %s\n\n", uuid.NewString(), dataPrefix, data); err != nil {
		return err
	}
	w.flusher.Flush()
	return nil
}

// ParseDataStream iterates over the data lines of an event stream. Comments,
// event IDs, other event types and blank lines are skipped.
func ParseDataStream(body io.Reader) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineSize)
		for scanner.Scan() {
			// The field separator is the colon alone. A single leading space
			// in the value is padding.
			data, found := bytes.CutPrefix(scanner.Bytes(), []byte(dataPrefix))
			if !found {
				continue
			}
			if len(data) > 0 && data[0] == ' ' {
				data = data[1:]
			}
			if !yield(data, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(nil, fmt.Errorf("SSE stream error: %w", err))
		}
	}
}
