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
	stderrors "errors"

	"github.com/pkg/errors"

	"github.com/flowvisor/hypervisor/openflow"
	"github.com/flowvisor/hypervisor/physical"
	"github.com/flowvisor/hypervisor/slice"
	"github.com/flowvisor/hypervisor/tag"
	"github.com/flowvisor/hypervisor/topology"
	"github.com/flowvisor/hypervisor/virtual"
)

// InstallFlowMod translates one tenant FlowMod onto the physical substrate,
// implementing virtual.Installer. The FlowMod is replicated across the
// physical switches backing the slice (or pinned to the one hosting a
// matched in_port); the switch hosting the named output port gets the
// with-output instruction variant, every other switch the without-output
// one. A rejected instruction produces an Error back to the tenant and no
// physical FlowMod at all.
func (r *Hypervisor) InstallFlowMod(virtualSwitchID uint32, msg openflow.FlowMod) error {
	vsw, ok := r.virtualSwitch(virtualSwitchID)
	if !ok {
		return errors.Errorf("flowmod from an unknown virtual switch id=%v", virtualSwitchID)
	}
	sl, _ := r.sliceOf(virtualSwitchID)
	ports := vsw.Ports()

	targets, pinned, err := r.flowModTargets(vsw, msg)
	if err != nil {
		return r.rejectFlowMod(vsw, msg, err)
	}
	if len(targets) == 0 {
		logger.Debugf("virtual switch %v: flowmod with no online physical switch to land on, dropped", virtualSwitchID)
		return nil
	}

	outputs := collectOutputPorts(msg.Instructions())

	// Rewrite for every target first so a rejection emits no physical
	// FlowMod at all.
	type installation struct {
		sw      *physical.Switch
		flowmod openflow.FlowMod
	}
	installs := make([]installation, 0, len(targets))

	for _, target := range targets {
		sw, ok := r.PhysicalSwitch(target)
		if !ok {
			continue
		}

		rewriteCtx := r.rewriteContext(sw, vsw, sl)

		// Compare before shifting so a table id near 255 cannot wrap.
		if sw.NumTables() < openflow.FirstTenantTable || msg.TableID() >= sw.NumTables()-openflow.FirstTenantTable {
			return r.rejectFlowMod(vsw, msg, physical.ErrTableOutOfRange)
		}
		table := msg.TableID() + openflow.FirstTenantTable
		match, err := physical.RewriteMatch(msg.Match(), rewriteCtx)
		if err != nil {
			return r.rejectFlowMod(vsw, msg, err)
		}
		withOutput, withoutOutput, err := physical.RewriteInstructions(msg.Instructions(), rewriteCtx)
		if err != nil {
			return r.rejectFlowMod(vsw, msg, err)
		}

		flowmod, err := r.factory.NewFlowMod()
		if err != nil {
			return err
		}
		flowmod.SetTransactionID(msg.TransactionID())
		flowmod.SetCommand(msg.Command())
		flowmod.SetTableID(table)
		flowmod.SetPriority(msg.Priority())
		flowmod.SetCookie(msg.Cookie())
		flowmod.SetCookieMask(msg.CookieMask())
		flowmod.SetBufferID(openflow.NoBuffer)
		flowmod.SetMatch(match)

		// A rule pinned to its ingress switch by an in_port match carries
		// the output there: the output group tunnels remote delivery. In
		// the replicated case only the switch hosting the output port
		// applies it, so the fan-out cannot output the same packet twice.
		if pinned || hostsAnyOutput(ports, outputs, target) {
			flowmod.SetInstructions(withOutput)
		} else {
			flowmod.SetInstructions(withoutOutput)
		}

		installs = append(installs, installation{sw: sw, flowmod: flowmod})
	}

	for _, inst := range installs {
		if err := inst.sw.ForwardRequest(inst.flowmod, virtualSwitchID); err != nil {
			logger.Errorf("physical switch %v: failed to forward a tenant flowmod: %v", inst.sw.ID(), err)
			continue
		}
		r.markTouched(virtualSwitchID, inst.sw.ID())
	}

	return nil
}

// flowModTargets picks the physical switches a tenant FlowMod lands on: the
// single switch hosting a matched in_port (pinned), or the slice's whole
// physical footprint when the match doesn't pin a port.
func (r *Hypervisor) flowModTargets(vsw *virtual.Switch, msg openflow.FlowMod) (targets []topology.SwitchID, pinned bool, err error) {
	field, ok := msg.Match().Field(openflow.OXMTypeInPort)
	if !ok {
		return vsw.PhysicalSwitches(), false, nil
	}

	vport, ok := field.AsInPort()
	if !ok {
		return vsw.PhysicalSwitches(), false, nil
	}
	loc, ok := vsw.Ports()[vport]
	if !ok {
		return nil, false, physical.ErrUnresolvedVirtualPort
	}
	return []topology.SwitchID{loc.PhysicalSwitch}, true, nil
}

// rewriteContext builds the per-target-switch resolution callbacks the
// rewrite engine needs.
func (r *Hypervisor) rewriteContext(sw *physical.Switch, vsw *virtual.Switch, sl *slice.Slice) physical.RewriteContext {
	ports := vsw.Ports()

	return physical.RewriteContext{
		NumTables: sw.NumTables(),
		ResolveMatchPort: func(virtualPort uint32) (uint32, bool) {
			loc, ok := ports[virtualPort]
			if !ok || loc.PhysicalSwitch != sw.ID() {
				return 0, false
			}
			return loc.PhysicalPort, true
		},
		ResolveOutputGroup: func(virtualPort uint32) (uint32, bool) {
			return r.outputGroup(sw, vsw, sl, virtualPort)
		},
	}
}

// outputGroup returns the id of the indirect group on sw that delivers to
// the given virtual port, allocating and installing it on first use. The
// bucket depends on where the port lives relative to sw, per the locality
// table of the flow-table design.
func (r *Hypervisor) outputGroup(sw *physical.Switch, vsw *virtual.Switch, sl *slice.Slice, virtualPort uint32) (uint32, bool) {
	loc, ok := vsw.Ports()[virtualPort]
	if !ok {
		return 0, false
	}

	swID := sw.ID()
	key := groupKey{virtualSwitchID: vsw.ID(), virtualPort: virtualPort}

	r.mutex.Lock()
	groups, exists := r.outputGroups[swID]
	if !exists {
		groups = make(map[groupKey]uint32)
		r.outputGroups[swID] = groups
	}
	if id, ok := groups[key]; ok {
		r.mutex.Unlock()
		return id, true
	}
	r.mutex.Unlock()

	var sliceID uint16
	if sl != nil {
		sliceID = sl.ID()
	}

	spec := physical.OutputGroupSpec{SliceID: sliceID}
	if loc.PhysicalSwitch == swID {
		spec.LocalPort = loc.PhysicalPort
		if port, ok := sw.Ports()[loc.PhysicalPort]; ok && port.State == physical.PortStateLink {
			spec.Locality = physical.LocalSharedLink
		} else {
			spec.Locality = physical.LocalHostLink
		}
	} else {
		dist := r.topo.Distance(swID, loc.PhysicalSwitch)
		if dist >= topology.Infinite {
			return 0, false
		}
		spec.ForeignPort = uint16(loc.PhysicalPort)
		if dist == 1 {
			next, ok := r.topo.NextHop(swID, loc.PhysicalSwitch)
			if !ok {
				return 0, false
			}
			spec.Locality = physical.OneHop
			spec.NextHopPort = uint32(next)
		} else {
			forwardID, ok := r.forwardGroupID(sw, loc.PhysicalSwitch)
			if !ok {
				return 0, false
			}
			spec.Locality = physical.MultiHop
			spec.SwitchForwardGroupID = forwardID
		}
	}

	groupID, err := sw.AllocateOutputGroup(spec)
	if err != nil {
		logger.Errorf("physical switch %v: failed to allocate an output group for virtual port %v: %v", swID, virtualPort, err)
		return 0, false
	}

	r.mutex.Lock()
	groups[key] = groupID
	r.mutex.Unlock()

	return groupID, true
}

// forwardGroupID returns sw's switch_forward_group[target], allocating and
// programming it on first use.
func (r *Hypervisor) forwardGroupID(sw *physical.Switch, target topology.SwitchID) (uint32, bool) {
	swID := sw.ID()

	r.mutex.Lock()
	groups, exists := r.forwardGroups[swID]
	if !exists {
		groups = make(map[topology.SwitchID]uint32)
		r.forwardGroups[swID] = groups
	}
	if id, ok := groups[target]; ok {
		r.mutex.Unlock()
		return id, true
	}
	r.mutex.Unlock()

	groupID, err := sw.AllocateOutputGroup(physical.OutputGroupSpec{})
	if err != nil {
		logger.Errorf("physical switch %v: failed to allocate a switch-forward group toward %v: %v", swID, target, err)
		return 0, false
	}

	r.mutex.Lock()
	groups[target] = groupID
	r.mutex.Unlock()

	// Program the real bucket (push SwitchVLANTag{target}, output next hop).
	if err := sw.UpdateSwitchForwardGroups(r.topo, map[topology.SwitchID]uint32{target: groupID}); err != nil {
		logger.Errorf("physical switch %v: failed to program the switch-forward group toward %v: %v", swID, target, err)
	}

	return groupID, true
}

// collectOutputPorts gathers the virtual ports named by Output actions in a
// tenant instruction set, before any rewriting.
func collectOutputPorts(set *openflow.InstructionSet) []uint32 {
	var out []uint32
	for _, inst := range set.Instructions {
		switch v := inst.(type) {
		case *openflow.WriteActionsInstruction:
			for _, a := range v.Actions.Actions {
				if output, ok := a.(*openflow.OutputAction); ok {
					out = append(out, output.Port)
				}
			}
		case *openflow.ApplyActionsInstruction:
			for _, a := range v.Actions.Actions {
				if output, ok := a.(*openflow.OutputAction); ok {
					out = append(out, output.Port)
				}
			}
		}
	}
	return out
}

// hostsAnyOutput reports whether target hosts the physical port behind any
// of the named output virtual ports.
func hostsAnyOutput(ports map[uint32]virtual.VirtualPort, outputs []uint32, target topology.SwitchID) bool {
	for _, vport := range outputs {
		if loc, ok := ports[vport]; ok && loc.PhysicalSwitch == target {
			return true
		}
	}
	return false
}

// rejectFlowMod answers a tenant FlowMod with the Error message its
// rejected instruction maps to, per the error-handling table.
func (r *Hypervisor) rejectFlowMod(vsw *virtual.Switch, msg openflow.FlowMod, cause error) error {
	class, code := openflow.OFPET_BAD_INSTRUCTION, openflow.OFPBIC_UNSUP_INST
	switch {
	case stderrors.Is(cause, physical.ErrTableOutOfRange):
		class, code = openflow.OFPET_BAD_INSTRUCTION, openflow.OFPBIC_BAD_TABLE_ID
	case stderrors.Is(cause, physical.ErrRejectedInstruction), stderrors.Is(cause, tag.ErrReservedMetadataBits):
		class, code = openflow.OFPET_BAD_INSTRUCTION, openflow.OFPBIC_UNSUP_META
	case stderrors.Is(cause, physical.ErrUnresolvedVirtualPort):
		class, code = openflow.OFPET_BAD_ACTION, openflow.OFPBAC_BAD_OUT_PORT
	}

	logger.Infof("virtual switch %v: rejecting a tenant flowmod: %v", vsw.ID(), cause)

	errMsg, err := r.factory.NewError()
	if err != nil {
		return err
	}
	errMsg.SetTransactionID(msg.TransactionID())
	errMsg.SetClass(class)
	errMsg.SetCode(code)
	if data, err := msg.MarshalBinary(); err == nil {
		if len(data) > 64 {
			data = data[:64]
		}
		errMsg.SetData(data)
	}

	return vsw.Send(errMsg)
}

// SendPacketOut injects a tenant PacketOut into the substrate via the
// physical switch hosting the first named output port, implementing
// virtual.Installer.
func (r *Hypervisor) SendPacketOut(virtualSwitchID uint32, msg openflow.PacketOut) error {
	vsw, ok := r.virtualSwitch(virtualSwitchID)
	if !ok {
		return errors.Errorf("packet-out from an unknown virtual switch id=%v", virtualSwitchID)
	}
	sl, _ := r.sliceOf(virtualSwitchID)
	ports := vsw.Ports()

	var target topology.SwitchID
	var found bool
	for _, a := range msg.Actions().Actions {
		output, ok := a.(*openflow.OutputAction)
		if !ok {
			continue
		}
		loc, ok := ports[output.Port]
		if !ok {
			continue
		}
		target, found = loc.PhysicalSwitch, true
		break
	}
	if !found {
		logger.Debugf("virtual switch %v: packet-out without a resolvable output port, dropped", virtualSwitchID)
		return nil
	}

	sw, ok := r.PhysicalSwitch(target)
	if !ok {
		logger.Debugf("virtual switch %v: packet-out toward an offline physical switch %v, dropped", virtualSwitchID, target)
		return nil
	}

	actions, err := physical.RewriteActions(msg.Actions(), r.rewriteContext(sw, vsw, sl))
	if err != nil {
		logger.Infof("virtual switch %v: rejecting a tenant packet-out: %v", virtualSwitchID, err)
		return nil
	}

	return sw.SendPacketOut(actions, msg.Data())
}

// deliverTenantPacketIn forwards a tenant-table miss to the owning tenant
// controller: the metadata tag names the virtual switch, the physical
// in_port is rewritten to its tenant-facing number, and the slice's
// PacketIn budget is consumed.
func (r *Hypervisor) deliverTenantPacketIn(sw *physical.Switch, msg openflow.PacketIn) error {
	field, ok := msg.Match().Field(openflow.OXMTypeMetadata)
	if !ok {
		logger.Debugf("physical switch %v: tenant packet-in without a metadata match field, dropped", sw.ID())
		return nil
	}
	metadata, ok := field.AsMetadata()
	if !ok {
		return nil
	}

	virtualSwitchID := tag.DecodeMetadataTag(metadata).VirtualSwitchID
	vsw, ok := r.virtualSwitch(virtualSwitchID)
	if !ok {
		logger.Debugf("physical switch %v: tenant packet-in for an unknown virtual switch id=%v, dropped", sw.ID(), virtualSwitchID)
		return nil
	}

	if sl, ok := r.sliceOf(virtualSwitchID); ok && !sl.AllowPacket() {
		return nil
	}

	physicalPort := packetInPort(msg)
	virtualPort, ok := vsw.VirtualPortOf(sw.ID(), physicalPort)
	if !ok {
		logger.Debugf("physical switch %v: tenant packet-in on port %v that is not mapped into virtual switch %v, dropped", sw.ID(), physicalPort, virtualSwitchID)
		return nil
	}

	packetIn, err := r.factory.NewPacketIn()
	if err != nil {
		return err
	}
	packetIn.SetTransactionID(msg.TransactionID())
	packetIn.SetBufferID(openflow.NoBuffer)
	if msg.TableID() >= openflow.FirstTenantTable {
		packetIn.SetTableID(msg.TableID() - openflow.FirstTenantTable)
	}
	match := openflow.NewMatch()
	match.Add(openflow.InPortField(virtualPort))
	packetIn.SetMatch(match)
	packetIn.SetData(msg.Data())

	if err := vsw.Send(packetIn); err != nil {
		logger.Debugf("virtual switch %v: failed to forward a packet-in: %v", virtualSwitchID, err)
	}
	return nil
}
