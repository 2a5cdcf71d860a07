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

package hypervisor

import (
	"github.com/flowvisor/hypervisor/topology"
)

// barrierKey identifies one outstanding physical BarrierRequest issued on
// behalf of a tenant barrier.
type barrierKey struct {
	sw  topology.SwitchID
	xid uint32
}

// pendingBarrier is one tenant BarrierRequest fanned out across the
// physical switches its slice touched since its previous barrier. The
// tenant's reply goes out when the last physical reply arrives.
type pendingBarrier struct {
	virtualSwitchID uint32
	tenantXID       uint32
	outstanding     int
}

// markTouched records that a physical switch received a FlowMod on behalf
// of this virtual switch, making it part of the slice's next barrier fence.
func (r *Hypervisor) markTouched(virtualSwitchID uint32, sw topology.SwitchID) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	set, ok := r.touched[virtualSwitchID]
	if !ok {
		set = make(map[topology.SwitchID]struct{})
		r.touched[virtualSwitchID] = set
	}
	set[sw] = struct{}{}
}

// Barrier fences every physical switch this slice touched since its
// previous barrier, implementing virtual.Installer. handled is false when
// nothing was pending (the virtual switch replies immediately itself).
func (r *Hypervisor) Barrier(virtualSwitchID uint32, xid uint32) (handled bool, err error) {
	r.mutex.Lock()
	touched := r.touched[virtualSwitchID]
	delete(r.touched, virtualSwitchID)
	r.mutex.Unlock()

	if len(touched) == 0 {
		return false, nil
	}

	pending := &pendingBarrier{virtualSwitchID: virtualSwitchID, tenantXID: xid}
	for swID := range touched {
		sw, ok := r.PhysicalSwitch(swID)
		if !ok {
			// The switch went away; its rules went with it, nothing to fence.
			continue
		}
		physicalXID, err := sw.Barrier()
		if err != nil {
			logger.Errorf("physical switch %v: failed to send a barrier: %v", swID, err)
			continue
		}

		r.mutex.Lock()
		r.barriers[barrierKey{sw: swID, xid: physicalXID}] = pending
		pending.outstanding++
		r.mutex.Unlock()
	}

	if pending.outstanding == 0 {
		return false, nil
	}
	return true, nil
}

// completeBarrier consumes one physical BarrierReply. It reports whether
// the reply belonged to an aggregated tenant barrier; the final reply of a
// fence releases the tenant-side BarrierReply.
func (r *Hypervisor) completeBarrier(sw topology.SwitchID, xid uint32) bool {
	r.mutex.Lock()
	key := barrierKey{sw: sw, xid: xid}
	pending, ok := r.barriers[key]
	if !ok {
		r.mutex.Unlock()
		return false
	}
	delete(r.barriers, key)
	pending.outstanding--
	done := pending.outstanding == 0
	r.mutex.Unlock()

	if done {
		r.finishBarrier(pending)
	}
	return true
}

// dropBarriersFor settles every fence entry pointing at a switch that just
// went away, releasing any tenant barrier it was the last holdout of.
func (r *Hypervisor) dropBarriersFor(sw topology.SwitchID) {
	r.mutex.Lock()
	var finished []*pendingBarrier
	for key, pending := range r.barriers {
		if key.sw != sw {
			continue
		}
		delete(r.barriers, key)
		pending.outstanding--
		if pending.outstanding == 0 {
			finished = append(finished, pending)
		}
	}
	r.mutex.Unlock()

	for _, pending := range finished {
		r.finishBarrier(pending)
	}
}

func (r *Hypervisor) finishBarrier(pending *pendingBarrier) {
	vsw, ok := r.virtualSwitch(pending.virtualSwitchID)
	if !ok {
		return
	}

	reply, err := r.factory.NewBarrierReply()
	if err != nil {
		logger.Errorf("failed to create a BarrierReply: %v", err)
		return
	}
	reply.SetTransactionID(pending.tenantXID)

	if err := vsw.Send(reply); err != nil {
		logger.Warningf("virtual switch %v: failed to deliver an aggregated barrier reply: %v", pending.virtualSwitchID, err)
	}
}
