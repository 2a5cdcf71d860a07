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

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// requestTTL bounds how long a forwarded request may wait for its reply
// before the translation entry is silently dropped.
const requestTTL = 10 * time.Second

// requestSource is the information needed to forward a reply arriving on
// this physical switch back to the virtual switch that originated the
// request, rewriting its transaction id back to the tenant's original one.
type requestSource struct {
	originalXID     uint32
	virtualSwitchID uint32
	timestamp       time.Time
}

// xidTranslator implements the xid_map from the original PhysicalSwitch:
// a bounded, TTL-checked table from a rewritten transaction id back to the
// virtual switch and transaction id a forwarded request came from.
type xidTranslator struct {
	cache *lru.Cache
	ttl   time.Duration
}

func newXIDTranslator() *xidTranslator {
	c, err := lru.New(4096)
	if err != nil {
		panic(fmt.Sprintf("physical: failed to init xid translation cache: %v", err))
	}
	return &xidTranslator{cache: c, ttl: requestTTL}
}

func (r *xidTranslator) store(newXID uint32, originalXID uint32, virtualSwitchID uint32) {
	r.cache.Add(newXID, requestSource{
		originalXID:     originalXID,
		virtualSwitchID: virtualSwitchID,
		timestamp:       time.Now(),
	})
}

// resolve looks up and removes the translation entry for xid. ok is false
// if the entry does not exist or its TTL has expired.
func (r *xidTranslator) resolve(xid uint32) (source requestSource, ok bool) {
	v, found := r.cache.Get(xid)
	if !found {
		return requestSource{}, false
	}
	r.cache.Remove(xid)

	source = v.(requestSource)
	if time.Since(source.timestamp) > r.ttl {
		return requestSource{}, false
	}
	return source, true
}
