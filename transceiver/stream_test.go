/*
 * Cherry - An OpenFlow Controller
 *
 * Copyright (C) 2015 Samjung Data Service, Inc. All rights reserved.
 * Kitae Kim <superkkt@sds.co.kr>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation; either version 2 of the License, or
 * any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License along
 * with this program; if not, write to the Free Software Foundation, Inc.,
 * 51 Franklin Street, Fifth Floor, Boston, MA 02110-1301 USA.
 */

package transceiver

import (
	"bytes"
	"testing"
)

// fakeChannel is an io.ReadWriteCloser backed by in-memory buffers; it does
// not implement the deadline interface, exercising Stream's fallback path.
type fakeChannel struct {
	in     *bytes.Buffer
	out    *bytes.Buffer
	closed bool
}

func newFakeChannel(data []byte) *fakeChannel {
	return &fakeChannel{in: bytes.NewBuffer(data), out: &bytes.Buffer{}}
}

func (c *fakeChannel) Read(p []byte) (int, error)  { return c.in.Read(p) }
func (c *fakeChannel) Write(p []byte) (int, error) { return c.out.Write(p) }
func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func TestStreamPeekDoesNotConsume(t *testing.T) {
	ch := newFakeChannel([]byte("hello world"))
	s := NewStream(ch, 4096)

	first, err := s.Peek(5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(first) != "hello" {
		t.Fatalf("got %q, want %q", first, "hello")
	}

	second, err := s.Peek(5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(second) != "hello" {
		t.Fatalf("expected Peek to be idempotent, got %q", second)
	}
}

func TestStreamReadNConsumesExactly(t *testing.T) {
	ch := newFakeChannel([]byte("hello world"))
	s := NewStream(ch, 4096)

	first, err := s.ReadN(5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(first) != "hello" {
		t.Fatalf("got %q, want %q", first, "hello")
	}

	rest, err := s.ReadN(6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(rest) != " world" {
		t.Fatalf("got %q, want %q", rest, " world")
	}
}

func TestStreamWritePassesThrough(t *testing.T) {
	ch := newFakeChannel(nil)
	s := NewStream(ch, 4096)

	if _, err := s.Write([]byte("payload")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.out.String() != "payload" {
		t.Fatalf("got %q written to the channel, want %q", ch.out.String(), "payload")
	}
}

func TestStreamCloseClosesUnderlyingChannel(t *testing.T) {
	ch := newFakeChannel(nil)
	s := NewStream(ch, 4096)

	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ch.closed {
		t.Fatal("expected Close to close the underlying channel")
	}
}
