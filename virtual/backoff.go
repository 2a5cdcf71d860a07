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

package virtual

import (
	"math"
	"time"
)

// maxBackoff bounds how long a virtual switch waits between reconnect
// attempts to its slice's controller endpoint.
const maxBackoff = 1 * time.Hour

// backoff tracks one switch's reconnect attempt count and computes the
// exponential delay before the next try (2^count seconds, capped).
type backoff struct {
	count uint64
}

func (r *backoff) next() time.Duration {
	if float64(r.count) > math.Log2(maxBackoff.Seconds()) {
		return maxBackoff
	}
	delay := time.Duration(math.Pow(2, float64(r.count))) * time.Second
	r.count++
	return delay
}

func (r *backoff) reset() {
	r.count = 0
}
