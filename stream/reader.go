// Package stream demultiplexes the "data: <json>" framed bodies returned by the
// generation endpoints into typed events.
package stream

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

var dataPrefix = []byte("data: ")

// Reader yields the JSON payload of every "data: " line of a body. A line split
// across two reads is kept in the buffer until its newline arrives, so no line is
// processed twice.
type Reader struct {
	reader *bufio.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{reader: bufio.NewReader(r)}
}

// Next returns the next data payload. Lines without the prefix are skipped. It
// returns io.EOF once the body is exhausted.
func (r *Reader) Next() ([]byte, error) {
	for {
		line, err := r.reader.ReadBytes('\n')
		if len(line) > 0 {
			line = bytes.TrimRight(line, "\r\n")
			if bytes.HasPrefix(line, dataPrefix) {
				return line[len(dataPrefix):], nil
			}
		}
		if err != nil {
			return nil, err
		}
	}
}

// Each decodes every payload of r with decode and hands the result to fn, in
// arrival order. Payloads that decode rejects are dropped. Iteration stops when fn
// returns false or the body ends; io.EOF is not reported as an error.
func Each[E any](r io.Reader, decode func([]byte) (E, bool), fn func(E) bool) error {
	reader := NewReader(r)
	for {
		payload, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		ev, ok := decode(payload)
		if !ok {
			continue
		}
		if !fn(ev) {
			return nil
		}
	}
}
