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

package slice

import (
	"context"
	"testing"
	"time"
)

func TestMeterIDOffsetsSliceID(t *testing.T) {
	// Meter id 0 is reserved; slice 0 must land on meter 1.
	if got := New(0, "10.0.0.1:6633", 100).MeterID(); got != 1 {
		t.Fatalf("got meter id=%v, want=1", got)
	}
	if got := New(7, "10.0.0.1:6633", 100).MeterID(); got != 8 {
		t.Fatalf("got meter id=%v, want=8", got)
	}
}

func TestRateLimiterAllowsUpToMaxPerSecond(t *testing.T) {
	limiter := newRateLimiter(3)

	for i := 0; i < 3; i++ {
		if !limiter.allow() {
			t.Fatalf("event %v should have been allowed", i)
		}
	}
	if limiter.allow() {
		t.Fatal("the fourth event within one second should have been denied")
	}
}

func TestRateLimiterDeniedEventConsumesNoBudget(t *testing.T) {
	limiter := newRateLimiter(1)

	if !limiter.allow() {
		t.Fatal("the first event should have been allowed")
	}
	for i := 0; i < 10; i++ {
		if limiter.allow() {
			t.Fatal("events beyond the budget should have been denied")
		}
	}
	if len(limiter.stamps) != 1 {
		t.Fatalf("denied events should not grow the window: len=%v", len(limiter.stamps))
	}
}

func TestRateLimiterWindowSlides(t *testing.T) {
	limiter := newRateLimiter(2)

	// Age the whole window past one second by hand instead of sleeping.
	old := time.Now().Add(-2 * time.Second)
	limiter.stamps = []time.Time{old, old}

	if !limiter.allow() {
		t.Fatal("an event after the window expired should have been allowed")
	}
}

func TestStartStopAreIdempotent(t *testing.T) {
	s := New(1, "10.0.0.1:6633", 100)

	if s.Started() {
		t.Fatal("a new slice should not be started")
	}
	s.Stop() // no-op on a stopped slice
	if s.Started() {
		t.Fatal("stop on a stopped slice should not start it")
	}

	s.Start(context.Background())
	s.Start(context.Background()) // no-op on a started slice
	if !s.Started() {
		t.Fatal("a second start should leave the slice started")
	}
	s.Stop()
	s.Stop() // no-op on a stopped slice
	if s.Started() {
		t.Fatal("a second stop should leave the slice stopped")
	}
}
