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
	"sync"
	"time"
)

// Scheduler rotates a physical switch's link-candidate ports round-robin
// so that discovery frames are spread evenly across PERIOD_MS, one port
// per tick.
type Scheduler struct {
	mutex sync.Mutex
	ports []PortNo
	index int
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// SetCandidates replaces the set of ports eligible for discovery frames
// (every non-host port). The rotation index is reset if it fell out of
// range.
func (r *Scheduler) SetCandidates(ports []PortNo) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.ports = ports
	if r.index >= len(r.ports) {
		r.index = 0
	}
}

// Next returns the port the next discovery frame should be sent out of,
// along with the wait before the tick after that (period divided by the
// number of candidate ports). ok is false if there are no candidates.
func (r *Scheduler) Next(period time.Duration) (port PortNo, interval time.Duration, ok bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if len(r.ports) == 0 {
		return 0, period, false
	}

	port = r.ports[r.index]
	r.index = (r.index + 1) % len(r.ports)
	interval = period / time.Duration(len(r.ports))

	return port, interval, true
}
