// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
package ollama

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// =============================================================================
// PROTOCOL ERRORS
// =============================================================================

// ErrMalformedFragment matches any *MalformedFragmentError via errors.Is.
var ErrMalformedFragment = errors.New("malformed fragment")

// MalformedFragmentError describes a single stream line that was not a JSON object.
type MalformedFragmentError struct {
	Line  int    // 1-based line number within the stream
	Raw   string // the offending line, truncated for display
	Cause error
}

func (e *MalformedFragmentError) Error() string {
	msg := fmt.Sprintf("malformed fragment on line %d: %q", e.Line, e.Raw)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *MalformedFragmentError) Is(target error) bool {
	return target == ErrMalformedFragment
}

func (e *MalformedFragmentError) Unwrap() error {
	return e.Cause
}

// maxRawPreview bounds the raw text kept on a MalformedFragmentError.
const maxRawPreview = 80

// MaxLineSize is the longest stream line the Decoder buffers. Longer lines
// are discarded and reported as malformed.
const MaxLineSize = 1 << 20

// ErrLineTooLong is the cause of a MalformedFragmentError for a line longer
// than MaxLineSize.
var ErrLineTooLong = errors.New("line exceeds maximum length")

// =============================================================================
// DECODER
// =============================================================================

// Decoder turns a newline-delimited JSON chat stream into Fragments.
//
// It is a pull iterator: nothing is read until Next is called, and only one
// line is buffered at a time. A Decoder is single use.
//
//	dec := NewDecoder(body)
//	defer dec.Close()
//	for dec.Next() {
//	    frag := dec.Fragment()
//	    ...
//	}
//	if err := dec.Err(); err != nil { ... }
type Decoder struct {
	reader *bufio.Reader
	body   io.ReadCloser

	current Fragment
	line    int
	done    bool

	// pending holds a read error seen together with the last partial line;
	// it is reported on the following call to Next.
	pending error
	err     error
}

// NewDecoder creates a Decoder reading from r. If r is an io.ReadCloser,
// Close closes it.
func NewDecoder(r io.Reader) *Decoder {
	d := &Decoder{reader: bufio.NewReader(r)}
	if rc, ok := r.(io.ReadCloser); ok {
		d.body = rc
	}
	return d
}

// Next advances to the next fragment. It returns false when the stream has
// delivered its Done fragment, or when it failed; Err distinguishes the two.
func (d *Decoder) Next() bool {
	if d.done || d.err != nil {
		return false
	}

	for {
		if d.pending != nil {
			d.fail(d.pending)
			return false
		}

		raw, tooLong, readErr := d.readLine()
		if readErr != nil {
			d.pending = readErr
		}
		if tooLong {
			d.line++
			d.current = Fragment{Err: d.malformed(bytes.TrimSpace(raw), ErrLineTooLong)}
			return true
		}

		line := bytes.TrimSpace(raw)
		line = bytes.TrimSpace(bytes.TrimPrefix(line, []byte("data:")))
		if len(line) == 0 {
			continue
		}

		d.line++
		frag, remoteErr := d.decodeLine(line)
		if remoteErr != nil {
			d.err = remoteErr
			return false
		}

		d.current = frag
		if frag.Done {
			d.done = true
			d.pending = nil
		}
		return true
	}
}

// readLine reads through the next newline. Past MaxLineSize the rest of
// the line is read and dropped, and raw keeps only the start.
func (d *Decoder) readLine() (raw []byte, tooLong bool, err error) {
	for {
		chunk, err := d.reader.ReadSlice('\n')
		if !tooLong {
			if len(raw)+len(chunk) > MaxLineSize {
				tooLong = true
			} else {
				raw = append(raw, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return raw, tooLong, err
	}
}

// fail records the terminal error for a read failure.
func (d *Decoder) fail(readErr error) {
	if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
		d.err = ErrTruncatedStream
		return
	}
	d.err = &ClientError{Type: ErrTypeConnection, Message: "stream interrupted", Cause: readErr}
}

// decodeLine parses one non-empty line. The second return value is non-nil
// only when the service reported an error in-band, which ends the stream.
func (d *Decoder) decodeLine(line []byte) (Fragment, error) {
	var resp ChatResponse
	if line[0] != '{' {
		return Fragment{Err: d.malformed(line, nil)}, nil
	}
	if err := json.Unmarshal(line, &resp); err != nil {
		return Fragment{Err: d.malformed(line, err)}, nil
	}

	if resp.Error != "" {
		return Fragment{}, &ClientError{Type: ErrTypeRemote, Message: resp.Error}
	}

	frag := Fragment{
		Content:    resp.content(),
		Done:       resp.Done,
		DoneReason: resp.DoneReason,
		Model:      resp.Model,
	}
	if resp.Done {
		frag.Stats = resp.stats()
	}
	return frag, nil
}

func (d *Decoder) malformed(line []byte, cause error) *MalformedFragmentError {
	raw := string(line)
	if len(raw) > maxRawPreview {
		raw = raw[:maxRawPreview] + "..."
	}
	return &MalformedFragmentError{Line: d.line, Raw: raw, Cause: cause}
}

// Fragment returns the fragment produced by the last successful call to Next.
func (d *Decoder) Fragment() Fragment {
	return d.current
}

// Err returns the error that stopped the stream, or nil if it completed.
// A stream that ends without a Done fragment reports ErrTruncatedStream.
func (d *Decoder) Err() error {
	return d.err
}

// Done reports whether the terminal fragment has been seen.
func (d *Decoder) Done() bool {
	return d.done
}

// Close releases the underlying reader. It is safe to call more than once.
func (d *Decoder) Close() error {
	if d.body == nil {
		return nil
	}
	body := d.body
	d.body = nil
	// A completed reply is drained so the connection goes back to the pool.
	// Anything else is closed as-is; the caller cancels the request first.
	if d.done {
		_, _ = io.Copy(io.Discard, io.LimitReader(body, drainLimit))
	}
	return body.Close()
}

// drainLimit caps how much of an abandoned response is read before closing.
const drainLimit = 64 << 10
