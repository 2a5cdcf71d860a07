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

package physical

import "testing"

func TestGroupAllocatorReusesReleasedIDs(t *testing.T) {
	g := newGroupAllocator()

	a := g.allocate()
	b := g.allocate()
	if a == b {
		t.Fatalf("expected distinct ids, got %v twice", a)
	}

	g.release(a)
	c := g.allocate()
	if c != a {
		t.Fatalf("got id=%v, want freelist reuse of %v", c, a)
	}
}

func TestGroupAllocatorNeverHandsOutReservedZero(t *testing.T) {
	g := newGroupAllocator()
	if id := g.allocate(); id == 0 {
		t.Fatal("expected group id 0 to stay reserved")
	}
}

func TestBuildIndirectBucketLocalHostLink(t *testing.T) {
	bucket := buildIndirectBucket(OutputGroupSpec{Locality: LocalHostLink, LocalPort: 3})
	if len(bucket.Actions.Actions) != 1 {
		t.Fatalf("got %v actions, want=1 (Output only)", len(bucket.Actions.Actions))
	}
}

func TestBuildIndirectBucketMultiHopUsesSwitchForwardGroup(t *testing.T) {
	bucket := buildIndirectBucket(OutputGroupSpec{
		Locality:             MultiHop,
		SliceID:              2,
		ForeignPort:          9,
		SwitchForwardGroupID: 77,
	})

	if len(bucket.Actions.Actions) != 3 {
		t.Fatalf("got %v actions, want=3 (PushVLAN, SetField, Group)", len(bucket.Actions.Actions))
	}
}
