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
	"sync"
	"time"
)

// rateLimiter allows at most max events per sliding one-second window. A
// denied event does not consume budget.
type rateLimiter struct {
	mutex  sync.Mutex
	max    uint
	stamps []time.Time
}

func newRateLimiter(max uint) *rateLimiter {
	if max == 0 {
		panic("max should be greater than zero")
	}

	return &rateLimiter{
		max:    max,
		stamps: make([]time.Time, 0),
	}
}

func (r *rateLimiter) allow() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	t := time.Now()
	stamps := append(r.stamps, t)
	l := uint(len(stamps))
	if l <= r.max {
		r.stamps = stamps
		return true
	}
	// Only allows r.max events per 1 second
	if t.Sub(stamps[0]) > 1*time.Second {
		// Shrink (l > r.max)
		r.stamps = stamps[l-r.max : l]
		return true
	}
	// Deny! r.stamps should not be updated!
	return false
}
