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

// Package topology is the Hypervisor-owned view of the physical substrate:
// per-switch port adjacency discovered via crafted Ethernet frames, and the
// all-pairs shortest-path (Floyd-Warshall) dist/next tables derived from it.
package topology

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/superkkt/go-logging"
)

var logger = logging.MustGetLogger("topology")

// Infinite is the sentinel distance between two switches with no discovered
// path, mirroring the source's topology::infinite constant.
const Infinite = 10000

type SwitchID int
type PortNo uint32

// Endpoint names one side of a discovered link: a physical switch and a
// local port number on it.
type Endpoint struct {
	Switch SwitchID
	Port   PortNo
}

func (e Endpoint) id() string {
	return fmt.Sprintf("%v:%v", e.Switch, e.Port)
}

// Link is an unordered pair of endpoints discovered by a topology-discovery
// frame received on one side naming the other.
type Link struct {
	A, B Endpoint
}

func (l Link) id() string {
	a, b := l.A.id(), l.B.id()
	if a > b {
		a, b = b, a
	}
	return a + "-" + b
}

// Other returns the endpoint at the far side of the link from sw.
func (l Link) Other(sw SwitchID) (Endpoint, bool) {
	switch sw {
	case l.A.Switch:
		return l.B, true
	case l.B.Switch:
		return l.A, true
	default:
		return Endpoint{}, false
	}
}

type link struct {
	value     Link
	timestamp time.Time
}

// Topology tracks registered physical switches and the links discovered
// between them, and recomputes all-pairs shortest paths whenever either
// changes. Adapted from graph.Graph's vertex/edge/TTL bookkeeping; its
// calculateMST Kruskal's-algorithm spanning tree is replaced here by
// Floyd-Warshall, since routing needs every pairwise shortest path and
// next-hop port rather than a single minimum tree.
type Topology struct {
	mutex sync.RWMutex

	switches map[SwitchID]bool
	links    map[string]*link
	points   map[string]*link

	dist map[SwitchID]map[SwitchID]int
	next map[SwitchID]map[SwitchID]PortNo
}

func New() *Topology {
	return &Topology{
		switches: make(map[SwitchID]bool),
		links:    make(map[string]*link),
		points:   make(map[string]*link),
		dist:     make(map[SwitchID]map[SwitchID]int),
		next:     make(map[SwitchID]map[SwitchID]PortNo),
	}
}

func (r *Topology) AddSwitch(id SwitchID) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.switches[id] {
		return
	}
	r.switches[id] = true
	r.recompute()
}

func (r *Topology) RemoveSwitch(id SwitchID) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.switches[id] {
		return
	}
	for _, v := range r.links {
		if v.value.A.Switch == id || v.value.B.Switch == id {
			r.removeLink(v.value)
		}
	}
	delete(r.switches, id)
	r.recompute()
}

func (r *Topology) removeLink(l Link) {
	delete(r.links, l.id())
	delete(r.points, l.A.id())
	delete(r.points, l.B.id())
}

// AddLink upserts a discovered link, refreshing its timestamp if it is
// already known. Returns true if this is a newly discovered link.
func (r *Topology) AddLink(l Link) (added bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if existing, ok := r.links[l.id()]; ok {
		existing.timestamp = time.Now()
		return false
	}
	if !r.switches[l.A.Switch] || !r.switches[l.B.Switch] {
		logger.Warningf("ignoring a link referencing an unregistered switch: %+v", l)
		return false
	}

	v := &link{value: l, timestamp: time.Now()}
	r.links[l.id()] = v
	r.points[l.A.id()] = v
	r.points[l.B.id()] = v
	r.recompute()
	logger.Debugf("discovered a new link: %+v", l)

	return true
}

// RemoveLink drops the link attached to the given endpoint, if any.
func (r *Topology) RemoveLink(e Endpoint) (removed Link, ok bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	v, exists := r.points[e.id()]
	if !exists {
		return Link{}, false
	}
	r.removeLink(v.value)
	r.recompute()

	return v.value, true
}

// RemoveStaleLinks drops every link whose last discovery frame is older
// than expiration, mirroring graph.Graph.RemoveStaleEdges's TTL sweep.
func (r *Topology) RemoveStaleLinks(expiration time.Duration) (removed []Link) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := time.Now()
	for _, v := range r.links {
		if now.Sub(v.timestamp) < expiration {
			continue
		}
		removed = append(removed, v.value)
	}
	for _, l := range removed {
		logger.Infof("removing a stale link from the topology: %+v", l)
		r.removeLink(l)
	}
	if len(removed) > 0 {
		r.recompute()
	}

	return removed
}

// HasLink reports whether a discovered link is currently attached to the
// given endpoint, used by the port classifier: a port with a link is always
// a LinkRule port regardless of tenant interest.
func (r *Topology) HasLink(e Endpoint) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	_, ok := r.points[e.id()]
	return ok
}

// Links returns a snapshot of every currently discovered link.
func (r *Topology) Links() []Link {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make([]Link, 0, len(r.links))
	for _, v := range r.links {
		out = append(out, v.value)
	}
	return out
}

// Distance returns the hop count between two switches, or Infinite if no
// path currently exists between them.
func (r *Topology) Distance(a, b SwitchID) int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	row, ok := r.dist[a]
	if !ok {
		return Infinite
	}
	d, ok := row[b]
	if !ok {
		return Infinite
	}
	return d
}

// NextHop returns the local port on switch a through which the shortest
// path toward switch b currently leaves.
func (r *Topology) NextHop(a, b SwitchID) (PortNo, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	row, ok := r.next[a]
	if !ok {
		return 0, false
	}
	p, ok := row[b]
	return p, ok
}

// recompute rebuilds dist/next from scratch with Floyd-Warshall. The caller
// must hold the write lock.
func (r *Topology) recompute() {
	switches := r.sortedSwitches()

	dist := make(map[SwitchID]map[SwitchID]int)
	next := make(map[SwitchID]map[SwitchID]PortNo)
	for _, s := range switches {
		dist[s] = make(map[SwitchID]int)
		next[s] = make(map[SwitchID]PortNo)
		for _, t := range switches {
			if s == t {
				dist[s][t] = 0
			} else {
				dist[s][t] = Infinite
			}
		}
	}

	for _, v := range r.links {
		l := v.value
		if dist[l.A.Switch][l.B.Switch] > 1 {
			dist[l.A.Switch][l.B.Switch] = 1
			next[l.A.Switch][l.B.Switch] = l.A.Port
		}
		if dist[l.B.Switch][l.A.Switch] > 1 {
			dist[l.B.Switch][l.A.Switch] = 1
			next[l.B.Switch][l.A.Switch] = l.B.Port
		}
	}

	for _, k := range switches {
		for _, i := range switches {
			for _, j := range switches {
				if dist[i][k]+dist[k][j] < dist[i][j] {
					dist[i][j] = dist[i][k] + dist[k][j]
					next[i][j] = next[i][k]
				}
			}
		}
	}

	r.dist = dist
	r.next = next
}

func (r *Topology) sortedSwitches() []SwitchID {
	v := make([]SwitchID, 0, len(r.switches))
	for s := range r.switches {
		v = append(v, s)
	}
	sort.Slice(v, func(i, j int) bool { return v[i] < v[j] })

	return v
}
