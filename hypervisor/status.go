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
	"fmt"
	"sort"

	"github.com/flowvisor/hypervisor/api"
)

// Switches implements api.Status: a snapshot of every registered physical
// switch for the read-only operator surface.
func (r *Hypervisor) Switches() []api.SwitchStatus {
	sessions := r.registeredSessions()

	out := make([]api.SwitchStatus, 0, len(sessions))
	for _, s := range sessions {
		sw := s.physicalSwitch()

		status := api.SwitchStatus{
			ID:         int(sw.ID()),
			DatapathID: fmt.Sprintf("%#x", sw.DatapathID()),
			NumTables:  sw.NumTables(),
		}
		for portNo, port := range sw.Ports() {
			status.Ports = append(status.Ports, api.PortStatus{
				Number: portNo,
				Name:   port.Data.Name,
				State:  port.State.String(),
			})
		}
		sort.Slice(status.Ports, func(i, j int) bool { return status.Ports[i].Number < status.Ports[j].Number })
		out = append(out, status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

// Slices implements api.Status.
func (r *Hypervisor) Slices() []api.SliceStatus {
	slices := r.slicesSnapshot()

	out := make([]api.SliceStatus, 0, len(slices))
	for _, sl := range slices {
		status := api.SliceStatus{
			ID:         sl.ID(),
			Controller: sl.Endpoint(),
			MaxRatePPS: sl.MaxRatePPS(),
			Started:    sl.Started(),
		}
		for _, vsw := range sl.Switches() {
			status.Switches = append(status.Switches, api.VirtualSwitchStatus{
				DatapathID: fmt.Sprintf("%#x", vsw.DatapathID()),
				State:      vsw.State().String(),
				NumPorts:   len(vsw.Ports()),
			})
		}
		out = append(out, status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

// Links implements api.Status.
func (r *Hypervisor) Links() []api.LinkStatus {
	links := r.topo.Links()

	out := make([]api.LinkStatus, 0, len(links))
	for _, l := range links {
		out = append(out, api.LinkStatus{
			A: api.LinkEndpoint{Switch: int(l.A.Switch), Port: uint32(l.A.Port)},
			B: api.LinkEndpoint{Switch: int(l.B.Switch), Port: uint32(l.B.Port)},
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A.Switch != out[j].A.Switch {
			return out[i].A.Switch < out[j].A.Switch
		}
		return out[i].A.Port < out[j].A.Port
	})

	return out
}
