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
	"context"

	"github.com/flowvisor/hypervisor/slice"
	"github.com/flowvisor/hypervisor/topology"
	"github.com/flowvisor/hypervisor/virtual"
)

// SliceDef is the declarative shape of one tenant as the configuration
// loader hands it over; the hypervisor turns it into live slice and
// virtual-switch objects.
type SliceDef struct {
	ID         uint16
	Endpoint   string
	MaxRatePPS uint
	Switches   []VirtualSwitchDef
}

type VirtualSwitchDef struct {
	DatapathID uint64
	Ports      []PortDef
}

type PortDef struct {
	Number       uint32
	PhysicalDPID uint64
	PhysicalPort uint32
}

// ApplySlices reconciles the running slice set against defs: slices whose
// id is new are created and started, slices that disappeared are stopped
// and torn down. An existing slice keeps running untouched even if its
// definition changed; endpoint or port changes require removing and
// re-adding the slice id, which keeps a config reload from silently
// restarting every tenant's controller connection.
func (r *Hypervisor) ApplySlices(ctx context.Context, defs []SliceDef) {
	want := make(map[uint16]SliceDef, len(defs))
	for _, def := range defs {
		want[def.ID] = def
	}

	r.mutex.Lock()
	var removed []*slice.Slice
	for id, sl := range r.slices {
		if _, ok := want[id]; ok {
			continue
		}
		removed = append(removed, sl)
		delete(r.slices, id)
	}
	var added []SliceDef
	for id, def := range want {
		if _, ok := r.slices[id]; !ok {
			added = append(added, def)
		}
	}
	r.mutex.Unlock()

	for _, sl := range removed {
		r.removeSlice(sl)
	}
	for _, def := range added {
		r.addSlice(ctx, def)
	}
}

func (r *Hypervisor) addSlice(ctx context.Context, def SliceDef) {
	sl := slice.New(def.ID, def.Endpoint, def.MaxRatePPS)

	r.mutex.Lock()
	r.slices[def.ID] = sl

	var vswitches []*virtual.Switch
	for _, swDef := range def.Switches {
		r.nextVSwitchID++
		vsw := virtual.NewSwitch(r.nextVSwitchID, def.ID, swDef.DatapathID, def.Endpoint, r, r.factory)
		for _, p := range swDef.Ports {
			vsw.AddPort(p.Number, virtual.VirtualPort{
				PhysicalSwitch: r.idForDPIDLocked(p.PhysicalDPID),
				PhysicalPort:   p.PhysicalPort,
			})
		}
		r.vswitches[vsw.ID()] = vsw
		r.vswitchSlice[vsw.ID()] = sl
		vswitches = append(vswitches, vsw)
	}
	r.mutex.Unlock()

	for _, vsw := range vswitches {
		vsw.SetInstaller(r)
		sl.AddSwitch(vsw)
		r.wireVirtualSwitch(vsw)
	}

	logger.Infof("slice %v: defined with %v virtual switches", def.ID, len(vswitches))
	sl.Start(ctx)
}

func (r *Hypervisor) removeSlice(sl *slice.Slice) {
	sl.Stop()

	for _, vsw := range sl.Switches() {
		r.unwireVirtualSwitch(vsw)
		r.mutex.Lock()
		delete(r.vswitches, vsw.ID())
		delete(r.vswitchSlice, vsw.ID())
		r.mutex.Unlock()
	}
	logger.Infof("slice %v: removed", sl.ID())
}

// wireVirtualSwitch registers a virtual switch's port interest and slice
// target on every physical switch that is already registered; switches
// that register later pick the same state up in their own registration
// path.
func (r *Hypervisor) wireVirtualSwitch(vsw *virtual.Switch) {
	affected := make(map[topology.SwitchID]bool)
	for _, loc := range vsw.Ports() {
		sw, ok := r.PhysicalSwitch(loc.PhysicalSwitch)
		if !ok {
			continue
		}
		sw.RegisterPortInterest(loc.PhysicalPort, vsw.ID())
		sw.RegisterSliceTarget(vsw.SliceID(), vsw.ID())
		affected[loc.PhysicalSwitch] = true
	}
	if len(affected) > 0 {
		r.recomputeRoutes()
	}
}

func (r *Hypervisor) unwireVirtualSwitch(vsw *virtual.Switch) {
	var affected bool
	for _, loc := range vsw.Ports() {
		sw, ok := r.PhysicalSwitch(loc.PhysicalSwitch)
		if !ok {
			continue
		}
		sw.RemovePortInterest(loc.PhysicalPort, vsw.ID())
		affected = true
	}

	// Free the output groups the tenant's FlowMods may have allocated.
	r.mutex.Lock()
	type release struct {
		sw      topology.SwitchID
		groupID uint32
		key     groupKey
	}
	var releases []release
	for swID, groups := range r.outputGroups {
		for key, groupID := range groups {
			if key.virtualSwitchID == vsw.ID() {
				releases = append(releases, release{sw: swID, groupID: groupID, key: key})
			}
		}
	}
	r.mutex.Unlock()

	for _, rel := range releases {
		sw, ok := r.PhysicalSwitch(rel.sw)
		if ok {
			if err := sw.ReleaseOutputGroup(rel.groupID); err != nil {
				logger.Errorf("physical switch %v: failed to release output group %v: %v", rel.sw, rel.groupID, err)
			}
		}
		r.mutex.Lock()
		if groups, ok := r.outputGroups[rel.sw]; ok {
			delete(groups, rel.key)
		}
		r.mutex.Unlock()
	}

	if affected {
		r.recomputeRoutes()
	}
}

// slicesSnapshot snapshots the registered slices for the status surface.
func (r *Hypervisor) slicesSnapshot() []*slice.Slice {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	out := make([]*slice.Slice, 0, len(r.slices))
	for _, sl := range r.slices {
		out = append(out, sl)
	}
	return out
}
