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
	"sort"
	"sync"

	"github.com/flowvisor/hypervisor/openflow"
	"github.com/flowvisor/hypervisor/tag"
	"github.com/flowvisor/hypervisor/topology"
)

// groupAllocator hands out group ids from a monotonic pool with freelist
// reuse.
type groupAllocator struct {
	mutex    sync.Mutex
	next     uint32
	freelist []uint32
}

func newGroupAllocator() *groupAllocator {
	return &groupAllocator{next: 1} // group id 0 is reserved (OFPG_ANY-adjacent)
}

func (r *groupAllocator) allocate() uint32 {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if n := len(r.freelist); n > 0 {
		id := r.freelist[n-1]
		r.freelist = r.freelist[:n-1]
		return id
	}
	id := r.next
	r.next++
	return id
}

func (r *groupAllocator) release(id uint32) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.freelist = append(r.freelist, id)
}

// OutputLocality classifies where a virtual port lives relative to this
// physical switch; the locality decides the bucket of its output group.
type OutputLocality int

const (
	// LocalHostLink: the port is local and sits on a host link.
	LocalHostLink OutputLocality = iota
	// LocalSharedLink: the port is local and sits on a shared (inter-switch) link.
	LocalSharedLink
	// OneHop: the target physical switch is one hop away.
	OneHop
	// MultiHop: the target physical switch is two or more hops away.
	MultiHop
)

// OutputGroupSpec describes everything buildIndirectBucket needs to build
// the single bucket of an indirect output group for one virtual port.
type OutputGroupSpec struct {
	Locality OutputLocality
	// LocalPort is set for LocalHostLink/LocalSharedLink.
	LocalPort uint32
	// SliceID and ForeignPort are set for OneHop/MultiHop (the tag written
	// on the packet as it crosses the shared link toward its target).
	SliceID     uint16
	ForeignPort uint16
	// NextHopPort is set for OneHop: the local port toward the target switch.
	NextHopPort uint32
	// SwitchForwardGroupID is set for MultiHop: the id of this switch's
	// switch_forward_group[target] indirect group.
	SwitchForwardGroupID uint32
}

// buildIndirectBucket builds the single bucket an indirect output group
// needs for one virtual port.
func buildIndirectBucket(spec OutputGroupSpec) openflow.Bucket {
	actions := openflow.ActionList{}

	switch spec.Locality {
	case LocalHostLink:
		actions.Add(&openflow.OutputAction{Port: spec.LocalPort, MaxLen: openflow.OFPCML_NO_BUFFER})
	case LocalSharedLink:
		actions.Add(&openflow.PushVLANAction{})
		actions.Add(&openflow.SetFieldAction{Field: openflow.VLANVIDField(tag.PortVLANTag{SliceID: spec.SliceID, PortID: tag.MaxPortID}.Encode())})
		actions.Add(&openflow.OutputAction{Port: spec.LocalPort, MaxLen: openflow.OFPCML_NO_BUFFER})
	case OneHop:
		actions.Add(&openflow.PushVLANAction{})
		actions.Add(&openflow.SetFieldAction{Field: openflow.VLANVIDField(tag.PortVLANTag{SliceID: spec.SliceID, PortID: spec.ForeignPort}.Encode())})
		actions.Add(&openflow.OutputAction{Port: spec.NextHopPort, MaxLen: openflow.OFPCML_NO_BUFFER})
	case MultiHop:
		actions.Add(&openflow.PushVLANAction{})
		actions.Add(&openflow.SetFieldAction{Field: openflow.VLANVIDField(tag.PortVLANTag{SliceID: spec.SliceID, PortID: spec.ForeignPort}.Encode())})
		actions.Add(&openflow.GroupAction{GroupID: spec.SwitchForwardGroupID})
	}

	return openflow.Bucket{Actions: actions}
}

// AllocateOutputGroup installs (or reinstalls) the indirect output group
// backing one virtual port's Output action and returns its group id.
func (r *Switch) AllocateOutputGroup(spec OutputGroupSpec) (groupID uint32, err error) {
	groupID = r.groups.allocate()

	groupMod, err := r.factory.NewGroupMod()
	if err != nil {
		r.groups.release(groupID)
		return 0, err
	}
	groupMod.SetTransactionID(r.allocXID())
	groupMod.SetCommand(openflow.GroupCommandAdd)
	groupMod.SetGroupType(openflow.GroupTypeIndirect)
	groupMod.SetGroupID(groupID)
	groupMod.SetBuckets([]openflow.Bucket{buildIndirectBucket(spec)})

	if err := r.send(groupMod); err != nil {
		r.groups.release(groupID)
		return 0, err
	}
	return groupID, nil
}

// ReleaseOutputGroup deletes a previously allocated group and returns its id
// to the freelist.
func (r *Switch) ReleaseOutputGroup(groupID uint32) error {
	groupMod, err := r.factory.NewGroupMod()
	if err != nil {
		return err
	}
	groupMod.SetTransactionID(r.allocXID())
	groupMod.SetCommand(openflow.GroupCommandDelete)
	groupMod.SetGroupType(openflow.GroupTypeIndirect)
	groupMod.SetGroupID(groupID)

	if err := r.send(groupMod); err != nil {
		return err
	}
	r.groups.release(groupID)
	return nil
}

// UpdateSwitchForwardGroups rewrites every switch_forward_group[target]
// bucket after a routing change, which automatically redirects all the
// output groups that point at it. ids maps target switch id to this
// switch's already-allocated switch_forward_group id for that target.
func (r *Switch) UpdateSwitchForwardGroups(topo *topology.Topology, ids map[topology.SwitchID]uint32) error {
	targets := make([]topology.SwitchID, 0, len(ids))
	for id := range ids {
		targets = append(targets, id)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })

	for _, target := range targets {
		next, ok := topo.NextHop(r.id, target)
		if !ok {
			continue
		}

		groupMod, err := r.factory.NewGroupMod()
		if err != nil {
			return err
		}
		groupMod.SetTransactionID(r.allocXID())
		groupMod.SetCommand(openflow.GroupCommandModify)
		groupMod.SetGroupType(openflow.GroupTypeIndirect)
		groupMod.SetGroupID(ids[target])

		actions := openflow.ActionList{}
		actions.Add(&openflow.PushVLANAction{})
		actions.Add(&openflow.SetFieldAction{Field: openflow.VLANVIDField(tag.SwitchVLANTag{SwitchID: uint16(target)}.Encode())})
		actions.Add(&openflow.OutputAction{Port: uint32(next), MaxLen: openflow.OFPCML_NO_BUFFER})
		groupMod.SetBuckets([]openflow.Bucket{{Actions: actions}})

		if err := r.send(groupMod); err != nil {
			return err
		}
	}
	return nil
}
