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

package topology

import (
	"testing"
	"time"
)

func TestSchedulerRotatesRoundRobin(t *testing.T) {
	s := NewScheduler()
	s.SetCandidates([]PortNo{1, 2, 3})

	period := 900 * time.Millisecond
	want := []PortNo{1, 2, 3, 1, 2, 3}
	for i, w := range want {
		port, interval, ok := s.Next(period)
		if !ok {
			t.Fatalf("iteration %v: expected ok=true", i)
		}
		if port != w {
			t.Fatalf("iteration %v: got port=%v, want=%v", i, port, w)
		}
		if interval != period/3 {
			t.Fatalf("iteration %v: got interval=%v, want=%v", i, interval, period/3)
		}
	}
}

func TestSchedulerWithNoCandidates(t *testing.T) {
	s := NewScheduler()

	if _, _, ok := s.Next(time.Second); ok {
		t.Fatal("expected ok=false with no candidate ports")
	}
}

func TestSchedulerResetsIndexWhenCandidatesShrink(t *testing.T) {
	s := NewScheduler()
	s.SetCandidates([]PortNo{1, 2, 3})

	s.Next(time.Second)
	s.Next(time.Second)

	s.SetCandidates([]PortNo{5})
	port, _, ok := s.Next(time.Second)
	if !ok || port != 5 {
		t.Fatalf("got port=%v, ok=%v, want=5, true", port, ok)
	}
}
