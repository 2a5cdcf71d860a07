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

func TestTwoSwitchesOneLink(t *testing.T) {
	topo := New()
	topo.AddSwitch(1)
	topo.AddSwitch(2)

	topo.AddLink(Link{
		A: Endpoint{Switch: 1, Port: 1},
		B: Endpoint{Switch: 2, Port: 1},
	})

	if d := topo.Distance(1, 2); d != 1 {
		t.Fatalf("unexpected distance: got=%v, want=1", d)
	}
	if p, ok := topo.NextHop(1, 2); !ok || p != 1 {
		t.Fatalf("unexpected next hop: got=%v, ok=%v, want=1", p, ok)
	}
}

func TestDisjointSwitchesAreUnreachable(t *testing.T) {
	topo := New()
	topo.AddSwitch(1)
	topo.AddSwitch(2)

	if d := topo.Distance(1, 2); d != Infinite {
		t.Fatalf("unexpected distance: got=%v, want=Infinite", d)
	}
	if _, ok := topo.NextHop(1, 2); ok {
		t.Fatal("expected no next hop between disjoint switches")
	}
}

func TestMultiHopRouting(t *testing.T) {
	topo := New()
	topo.AddSwitch(1)
	topo.AddSwitch(2)
	topo.AddSwitch(3)

	topo.AddLink(Link{A: Endpoint{Switch: 1, Port: 1}, B: Endpoint{Switch: 2, Port: 1}})
	topo.AddLink(Link{A: Endpoint{Switch: 2, Port: 2}, B: Endpoint{Switch: 3, Port: 1}})

	if d := topo.Distance(1, 3); d != 2 {
		t.Fatalf("unexpected distance: got=%v, want=2", d)
	}
	if p, ok := topo.NextHop(1, 3); !ok || p != 1 {
		t.Fatalf("unexpected next hop from 1 toward 3: got=%v, ok=%v, want=1", p, ok)
	}
}

func TestLinkLossRemovesRoute(t *testing.T) {
	topo := New()
	topo.AddSwitch(1)
	topo.AddSwitch(2)

	topo.AddLink(Link{A: Endpoint{Switch: 1, Port: 1}, B: Endpoint{Switch: 2, Port: 1}})
	if d := topo.Distance(1, 2); d != 1 {
		t.Fatalf("expected switches to be linked before removal: got=%v", d)
	}

	if _, ok := topo.RemoveLink(Endpoint{Switch: 1, Port: 1}); !ok {
		t.Fatal("expected RemoveLink to find the link")
	}
	if d := topo.Distance(1, 2); d != Infinite {
		t.Fatalf("unexpected distance after link removal: got=%v, want=Infinite", d)
	}
}

func TestRemoveStaleLinks(t *testing.T) {
	topo := New()
	topo.AddSwitch(1)
	topo.AddSwitch(2)

	topo.AddLink(Link{A: Endpoint{Switch: 1, Port: 1}, B: Endpoint{Switch: 2, Port: 1}})

	// A link refreshed within the TTL must survive the sweep.
	if removed := topo.RemoveStaleLinks(1 * time.Hour); len(removed) != 0 {
		t.Fatalf("unexpected removal of a fresh link: %+v", removed)
	}

	removed := topo.RemoveStaleLinks(0)
	if len(removed) != 1 {
		t.Fatalf("expected exactly one stale link removed, got %v", len(removed))
	}
	if d := topo.Distance(1, 2); d != Infinite {
		t.Fatalf("unexpected distance after stale sweep: got=%v, want=Infinite", d)
	}
}

func TestAddLinkUpsertsRatherThanDuplicates(t *testing.T) {
	topo := New()
	topo.AddSwitch(1)
	topo.AddSwitch(2)

	l := Link{A: Endpoint{Switch: 1, Port: 1}, B: Endpoint{Switch: 2, Port: 1}}
	if added := topo.AddLink(l); !added {
		t.Fatal("expected the first AddLink to report added=true")
	}
	if added := topo.AddLink(l); added {
		t.Fatal("expected a repeated AddLink to report added=false")
	}
}
