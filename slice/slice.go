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

// Package slice models a tenant: its controller endpoint, its packet-rate
// budget, and the virtual switches it owns. A slice's id maps 1:1 onto the
// drop meter installed for it on every physical switch (meter id = slice
// id + 1; meter id 0 is reserved).
package slice

import (
	"context"
	"sync"

	logging "github.com/superkkt/go-logging"

	"github.com/flowvisor/hypervisor/virtual"
)

var logger = logging.MustGetLogger("slice")

// Slice is one tenant.
type Slice struct {
	mutex sync.Mutex

	id         uint16
	endpoint   string
	maxRatePPS uint

	started  bool
	limiter  *rateLimiter
	switches map[uint32]*virtual.Switch

	cancel context.CancelFunc
}

// New creates a slice. endpoint is the tenant controller's "host:port"
// address; maxRatePPS bounds both the slice's physical drop meter and the
// software-side PacketIn rate toward its controller.
func New(id uint16, endpoint string, maxRatePPS uint) *Slice {
	if maxRatePPS == 0 {
		panic("maxRatePPS should be greater than zero")
	}

	return &Slice{
		id:         id,
		endpoint:   endpoint,
		maxRatePPS: maxRatePPS,
		limiter:    newRateLimiter(maxRatePPS),
		switches:   make(map[uint32]*virtual.Switch),
	}
}

func (r *Slice) ID() uint16 { return r.id }

func (r *Slice) Endpoint() string { return r.endpoint }

func (r *Slice) MaxRatePPS() uint { return r.maxRatePPS }

// MeterID is the physical-side drop-meter id reserved for this slice.
// Meter id 0 is never handed to a tenant, so slice ids start the meter
// space at 1.
func (r *Slice) MeterID() uint32 { return uint32(r.id) + 1 }

// AddSwitch attaches a virtual switch to this slice. It does not start the
// switch: only Start starts switches, namely those attached at that time.
func (r *Slice) AddSwitch(sw *virtual.Switch) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.switches[sw.ID()] = sw
}

func (r *Slice) Switch(id uint32) (*virtual.Switch, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	sw, ok := r.switches[id]
	return sw, ok
}

// Switches returns a snapshot of the slice's virtual switches.
func (r *Slice) Switches() []*virtual.Switch {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	out := make([]*virtual.Switch, 0, len(r.switches))
	for _, sw := range r.switches {
		out = append(out, sw)
	}
	return out
}

func (r *Slice) Started() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.started
}

// Start begins every virtual switch's connect loop toward this slice's
// controller. Idempotent.
func (r *Slice) Start(ctx context.Context) {
	r.mutex.Lock()
	if r.started {
		r.mutex.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.started = true
	switches := make([]*virtual.Switch, 0, len(r.switches))
	for _, sw := range r.switches {
		switches = append(switches, sw)
	}
	r.mutex.Unlock()

	for _, sw := range switches {
		sw.Start(ctx)
	}
	logger.Infof("slice %v: started (%v virtual switches, controller=%v)", r.id, len(switches), r.endpoint)
}

// Stop tears down every virtual switch's controller connection and halts
// their reconnect loops. Idempotent.
func (r *Slice) Stop() {
	r.mutex.Lock()
	if !r.started {
		r.mutex.Unlock()
		return
	}
	r.started = false
	cancel := r.cancel
	r.cancel = nil
	switches := make([]*virtual.Switch, 0, len(r.switches))
	for _, sw := range r.switches {
		switches = append(switches, sw)
	}
	r.mutex.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, sw := range switches {
		sw.Stop()
	}
	logger.Infof("slice %v: stopped", r.id)
}

// AllowPacket consumes one unit of the slice's packet-per-second budget and
// reports whether the packet may be forwarded to the tenant controller.
// The physical drop meters bound the data plane; this bounds the PacketIn
// stream the hypervisor itself relays.
func (r *Slice) AllowPacket() bool {
	allowed := r.limiter.allow()
	if !allowed {
		logger.Infof("slice %v: too many packets, dropping to honor the %v pps budget", r.id, r.maxRatePPS)
	}
	return allowed
}
