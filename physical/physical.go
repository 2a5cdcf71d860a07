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

// Package physical models a single southbound OpenFlow 1.3 switch: its
// features, its ports and their classification into link/host/drop rules,
// xid translation for requests forwarded on behalf of tenants, the static
// and dynamic flow-table installers, and the indirect-output-group
// allocator. Handlers run synchronously, invoked by the owning session's
// dispatch loop; the switch itself never blocks.
package physical

import (
	"encoding"
	"sort"
	"sync"
	"sync/atomic"

	logging "github.com/superkkt/go-logging"

	"github.com/flowvisor/hypervisor/openflow"
	"github.com/flowvisor/hypervisor/tag"
	"github.com/flowvisor/hypervisor/topology"
)

var logger = logging.MustGetLogger("physical")

// PortState is the classification result for a physical port: a port
// with a discovered link is a link port, a port with exactly one
// interested virtual switch is a host port, everything else drops.
type PortState int

const (
	// PortStateNone means no rule has ever been installed for this port.
	PortStateNone PortState = iota
	PortStateLink
	PortStateHost
	PortStateDrop
)

func (s PortState) String() string {
	switch s {
	case PortStateLink:
		return "link"
	case PortStateHost:
		return "host"
	case PortStateDrop:
		return "drop"
	default:
		return "none"
	}
}

// Port is the hypervisor's view of one port on a physical switch.
type Port struct {
	Data  openflow.Port
	State PortState
	// HostVirtualSwitchID is meaningful only when State == PortStateHost.
	HostVirtualSwitchID uint32
}

// SliceMeter is the (id, rate) pair the static-rule installer needs to
// create one drop meter per slice.
type SliceMeter struct {
	ID         uint32
	MaxRatePPS uint32
}

// Writer is the subset of transceiver.Writer the switch needs; kept as a
// local interface so this package does not import transceiver.
type Writer interface {
	Write(msg encoding.BinaryMarshaler) error
}

// Switch is one connected physical OpenFlow switch.
type Switch struct {
	mutex sync.Mutex

	id      topology.SwitchID
	writer  Writer
	factory openflow.Factory
	nextXID uint32

	registered   bool
	datapathID   uint64
	numBuffers   uint32
	numTables    uint8
	capabilities uint32

	groupCapabilities uint32
	meterMaxMeter     uint32
	meterBandTypes    uint32

	ports       map[uint32]*Port
	neededPorts map[uint32]map[uint32]struct{} // port -> set of interested virtual switch ids

	xids *xidTranslator

	groups *groupAllocator

	// sliceTargets maps a slice id to the virtual switch id packets tagged
	// with that slice should be delivered to, for the table 1 priority-30
	// shared-link-arrival rules.
	sliceTargets map[uint16]uint32

	// currentNext mirrors what table 1 priority-20 rules currently install
	// for inter-switch routing, keyed by destination switch id, so the
	// dynamic-rule installer only emits a diff.
	currentNext map[topology.SwitchID]topology.PortNo
}

// New creates a switch identified by id, writing wire messages via w.
func New(id topology.SwitchID, w Writer, factory openflow.Factory) *Switch {
	return &Switch{
		id:           id,
		writer:       w,
		factory:      factory,
		ports:        make(map[uint32]*Port),
		neededPorts:  make(map[uint32]map[uint32]struct{}),
		xids:         newXIDTranslator(),
		groups:       newGroupAllocator(),
		sliceTargets: make(map[uint16]uint32),
		currentNext:  make(map[topology.SwitchID]topology.PortNo),
	}
}

// RegisterSliceTarget records which virtual switch owns a slice id, so a
// shared-link-arrival rule can be installed for it on every LinkRule port.
func (r *Switch) RegisterSliceTarget(sliceID uint16, virtualSwitchID uint32) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.sliceTargets[sliceID] = virtualSwitchID
}

func (r *Switch) ID() topology.SwitchID { return r.id }

func (r *Switch) allocXID() uint32 {
	return atomic.AddUint32(&r.nextXID, 1)
}

func (r *Switch) send(msg encoding.BinaryMarshaler) error {
	return r.writer.Write(msg)
}

// Registered reports whether a FeaturesReply has been processed.
func (r *Switch) Registered() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.registered
}

func (r *Switch) DatapathID() uint64 {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.datapathID
}

// Capabilities returns the OFPC_* bits advertised in this switch's last
// FeaturesReply, used by the virtual package to compute the capability
// intersection a VirtualSwitch advertises to its tenant.
func (r *Switch) Capabilities() uint32 {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.capabilities
}

// NumTables returns the table count advertised in this switch's last
// FeaturesReply, used by the virtual package to size the tenant-visible
// table pipeline.
func (r *Switch) NumTables() uint8 {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.numTables
}

// Start issues the remainder of the connection-establishment sequence once
// the switch's identity is known: the three capability MultipartRequests, a
// bulk FlowMod(DELETE, table=ALL, cookie_mask=0) and a BarrierRequest to
// guarantee every pre-existing rule from a previous incarnation is gone
// before any static rule is installed. The FeaturesRequest that precedes
// this is sent by the owning session right after version negotiation, since
// the switch object itself is only created once the FeaturesReply names its
// datapath id.
func (r *Switch) Start() error {
	meterReq, err := r.factory.NewMeterFeaturesRequest()
	if err != nil {
		return err
	}
	meterReq.SetTransactionID(r.allocXID())
	if err := r.send(meterReq); err != nil {
		return err
	}

	groupReq, err := r.factory.NewGroupFeaturesRequest()
	if err != nil {
		return err
	}
	groupReq.SetTransactionID(r.allocXID())
	if err := r.send(groupReq); err != nil {
		return err
	}

	portReq, err := r.factory.NewPortDescRequest()
	if err != nil {
		return err
	}
	portReq.SetTransactionID(r.allocXID())
	if err := r.send(portReq); err != nil {
		return err
	}

	del, err := r.factory.NewFlowMod()
	if err != nil {
		return err
	}
	del.SetTransactionID(r.allocXID())
	del.SetCommand(openflow.FlowModCommandDelete)
	del.SetTableID(openflow.FlowTableAll)
	del.SetCookieMask(0)
	del.SetBufferID(openflow.NoBuffer)
	if err := r.send(del); err != nil {
		return err
	}

	barrier, err := r.factory.NewBarrierRequest()
	if err != nil {
		return err
	}
	barrier.SetTransactionID(r.allocXID())
	if err := r.send(barrier); err != nil {
		return err
	}

	logger.Infof("physical switch %v: start sequence issued", r.id)
	return nil
}

// OnFeaturesReply records the switch's identity and capabilities. Route
// recomputation and registration with the hypervisor registry is the
// caller's responsibility (the hypervisor package owns cross-switch state).
func (r *Switch) OnFeaturesReply(reply openflow.FeaturesReply) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.datapathID = reply.DatapathID()
	r.numBuffers = reply.NumBuffers()
	r.numTables = reply.NumTables()
	r.capabilities = reply.Capabilities()
	r.registered = true

	logger.Infof("physical switch %v: registered dpid=%#x n_tables=%v", r.id, r.datapathID, r.numTables)
}

// OnPortDescReply populates the port table from a MultipartReply(PortDesc).
func (r *Switch) OnPortDescReply(ports []openflow.Port) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, p := range ports {
		if existing, ok := r.ports[p.PortNo]; ok {
			existing.Data = p
			continue
		}
		r.ports[p.PortNo] = &Port{Data: p, State: PortStateNone}
	}
}

// CapabilityRequirement is the outcome of one of the meter/group
// capability checks run on connect.
type CapabilityRequirement struct {
	OK     bool
	Reason string
}

// VerifyGroupCapabilities checks the switch advertises both group types the
// flow-table engine relies on (OFPGT_ALL for the flood group and
// OFPGT_INDIRECT for output groups).
func (r *Switch) VerifyGroupCapabilities(caps uint32) CapabilityRequirement {
	r.mutex.Lock()
	r.groupCapabilities = caps
	r.mutex.Unlock()

	if caps&openflow.GroupCapabilityIndirect == 0 {
		return CapabilityRequirement{OK: false, Reason: "switch does not advertise OFPGT_INDIRECT group support"}
	}
	if caps&openflow.GroupCapabilityAll == 0 {
		return CapabilityRequirement{OK: false, Reason: "switch does not advertise OFPGT_ALL group support"}
	}
	return CapabilityRequirement{OK: true}
}

// VerifyMeterCapabilities checks the switch has a DROP meter band and
// enough meter slots for the configured slice count.
func (r *Switch) VerifyMeterCapabilities(maxMeter, bandTypes uint32, sliceCount int) CapabilityRequirement {
	r.mutex.Lock()
	r.meterMaxMeter, r.meterBandTypes = maxMeter, bandTypes
	r.mutex.Unlock()

	if bandTypes&(1<<openflow.MeterBandTypeDrop) == 0 {
		return CapabilityRequirement{OK: false, Reason: "switch does not advertise an OFPMBT_DROP meter band"}
	}
	if uint32(sliceCount) > maxMeter {
		return CapabilityRequirement{OK: false, Reason: "switch does not have enough meter slots for the configured slices"}
	}
	return CapabilityRequirement{OK: true}
}

// RegisterPortInterest records that a virtual switch wants PortStatus and
// forwarding rules for port. Re-running UpdateDynamicRules will pick up the
// new classification.
func (r *Switch) RegisterPortInterest(port uint32, virtualSwitchID uint32) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	set, ok := r.neededPorts[port]
	if !ok {
		set = make(map[uint32]struct{})
		r.neededPorts[port] = set
	}
	set[virtualSwitchID] = struct{}{}
}

func (r *Switch) RemovePortInterest(port uint32, virtualSwitchID uint32) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if set, ok := r.neededPorts[port]; ok {
		delete(set, virtualSwitchID)
		if len(set) == 0 {
			delete(r.neededPorts, port)
		}
	}
}

// classify derives a port's forwarding state. hasLink reports whether the
// topology package currently has a discovered link on this port.
func (r *Switch) classify(portNo uint32, hasLink bool) (state PortState, hostVirtualSwitchID uint32) {
	if hasLink {
		return PortStateLink, 0
	}

	interested := r.neededPorts[portNo]
	if len(interested) == 1 {
		for vswitchID := range interested {
			return PortStateHost, vswitchID
		}
	}
	return PortStateDrop, 0
}

// linkChecker reports whether a physical switch's port currently has a
// discovered link, so this package does not need to import the concrete
// topology.Topology type into the hot classification path.
type linkChecker func(portNo uint32) bool

// UpdateDynamicRules recomputes port classification and inter-switch
// routing and emits only the FlowMod diffs required: an unchanged
// classification or next hop sends nothing.
func (r *Switch) UpdateDynamicRules(hasLink linkChecker, topo *topology.Topology, allSwitches []topology.SwitchID) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for portNo, port := range r.ports {
		state, vswitchID := r.classify(portNo, hasLink(portNo))
		prev := port.State

		if prev != PortStateNone && prev == state {
			continue
		}

		command := openflow.FlowModCommandAdd
		if prev != PortStateNone {
			command = openflow.FlowModCommandModify
		}

		port.State = state
		port.HostVirtualSwitchID = vswitchID

		logger.Infof("physical switch %v: port %v classified as %v", r.id, portNo, state)

		if err := r.installPortRuleTable0(portNo, state, vswitchID, command); err != nil {
			return err
		}
		if state != PortStateDrop {
			if err := r.installPortRuleTable1(portNo, state, command); err != nil {
				return err
			}
		}
		if state == PortStateLink {
			if err := r.installSharedLinkArrivalRules(portNo, command); err != nil {
				return err
			}
		}
	}

	for _, other := range allSwitches {
		if other == r.id {
			continue
		}
		if err := r.updateRouteRule(other, topo); err != nil {
			return err
		}
	}

	return nil
}

func (r *Switch) installPortRuleTable0(portNo uint32, state PortState, vswitchID uint32, command uint8) error {
	flowmod, err := r.factory.NewFlowMod()
	if err != nil {
		return err
	}
	flowmod.SetTransactionID(r.allocXID())
	flowmod.SetCommand(command)
	flowmod.SetTableID(openflow.IngressTable)
	flowmod.SetPriority(10)
	flowmod.SetCookie(uint64(portNo))
	flowmod.SetBufferID(openflow.NoBuffer)

	match := openflow.NewMatch()
	match.Add(openflow.InPortField(portNo))
	flowmod.SetMatch(match)

	instructions := &openflow.InstructionSet{}
	switch state {
	case PortStateLink:
		instructions.Add(&openflow.GoToTableInstruction{TableID: openflow.ForwardingTable})
	case PortStateHost:
		instructions.Add(&openflow.GoToTableInstruction{TableID: openflow.FirstTenantTable})
		metadata := &openflow.WriteMetadataInstruction{}
		tag.MetadataTag{Group: false, VirtualSwitchID: vswitchID}.AddToInstruction(metadata)
		instructions.Add(metadata)
	case PortStateDrop:
		// No instructions: the packet is dropped by falling off the table.
	}
	flowmod.SetInstructions(instructions)

	return r.send(flowmod)
}

func (r *Switch) installPortRuleTable1(portNo uint32, state PortState, command uint8) error {
	flowmod, err := r.factory.NewFlowMod()
	if err != nil {
		return err
	}
	flowmod.SetTransactionID(r.allocXID())
	flowmod.SetCommand(command)
	flowmod.SetTableID(openflow.ForwardingTable)
	flowmod.SetPriority(10)
	flowmod.SetCookie(uint64(portNo))
	flowmod.SetBufferID(openflow.NoBuffer)

	match := openflow.NewMatch()
	vlan := tag.PortVLANTag{PortID: uint16(portNo)}
	vlan.AddToMatch(match)
	flowmod.SetMatch(match)

	actions := &openflow.ActionSet{}
	if state == PortStateHost {
		actions.Add(&openflow.PopVLANAction{})
	} else if state == PortStateLink {
		shared := tag.PortVLANTag{PortID: tag.MaxPortID}
		shared.AddToActions(actions)
	}
	actions.Add(&openflow.OutputAction{Port: portNo, MaxLen: openflow.OFPCML_NO_BUFFER})

	instructions := &openflow.InstructionSet{}
	instructions.Add(&openflow.WriteActionsInstruction{Actions: *actions})
	flowmod.SetInstructions(instructions)

	return r.send(flowmod)
}

// installSharedLinkArrivalRules installs table 1's priority-30 rules for a
// port that just became a LinkRule: one rule per known slice, matching
// (in_port, PortVLANTag{port=max_port_id, slice=S}), popping the VLAN,
// writing metadata {vswitch=target} and jumping to table 2.
func (r *Switch) installSharedLinkArrivalRules(portNo uint32, command uint8) error {
	sliceIDs := make([]uint16, 0, len(r.sliceTargets))
	for id := range r.sliceTargets {
		sliceIDs = append(sliceIDs, id)
	}
	sort.Slice(sliceIDs, func(i, j int) bool { return sliceIDs[i] < sliceIDs[j] })

	for _, sliceID := range sliceIDs {
		vswitchID := r.sliceTargets[sliceID]

		flowmod, err := r.factory.NewFlowMod()
		if err != nil {
			return err
		}
		flowmod.SetTransactionID(r.allocXID())
		flowmod.SetCommand(command)
		flowmod.SetTableID(openflow.ForwardingTable)
		flowmod.SetPriority(30)
		flowmod.SetCookie(uint64(portNo)<<16 | uint64(sliceID))
		flowmod.SetBufferID(openflow.NoBuffer)

		match := openflow.NewMatch()
		match.Add(openflow.InPortField(portNo))
		shared := tag.PortVLANTag{SliceID: sliceID, PortID: tag.MaxPortID}
		shared.AddToMatch(match)
		flowmod.SetMatch(match)

		actions := &openflow.ActionSet{}
		actions.Add(&openflow.PopVLANAction{})
		instructions := &openflow.InstructionSet{}
		instructions.Add(&openflow.WriteActionsInstruction{Actions: *actions})
		metadata := &openflow.WriteMetadataInstruction{}
		tag.MetadataTag{Group: false, VirtualSwitchID: vswitchID}.AddToInstruction(metadata)
		instructions.Add(metadata)
		instructions.Add(&openflow.GoToTableInstruction{TableID: openflow.FirstTenantTable})
		flowmod.SetInstructions(instructions)

		if err := r.send(flowmod); err != nil {
			return err
		}
	}
	return nil
}

// updateRouteRule diffs the installed next hop toward other against the
// routing table and emits at most one FlowMod: ADD out of nothing, MODIFY
// on a changed port, DELETE when the destination became unreachable.
func (r *Switch) updateRouteRule(other topology.SwitchID, topo *topology.Topology) error {
	next, nextExists := topo.NextHop(r.id, other)
	current, currentExists := r.currentNext[other]

	if !nextExists && !currentExists {
		return nil
	}
	if nextExists && currentExists && next == current {
		return nil
	}

	flowmod, err := r.factory.NewFlowMod()
	if err != nil {
		return err
	}
	flowmod.SetTransactionID(r.allocXID())
	flowmod.SetTableID(openflow.ForwardingTable)
	flowmod.SetPriority(20)
	flowmod.SetBufferID(openflow.NoBuffer)

	switch {
	case !currentExists:
		flowmod.SetCommand(openflow.FlowModCommandAdd)
	case currentExists && nextExists:
		flowmod.SetCommand(openflow.FlowModCommandModify)
	default:
		flowmod.SetCommand(openflow.FlowModCommandDelete)
	}

	match := openflow.NewMatch()
	vlan := tag.SwitchVLANTag{SwitchID: uint16(other)}
	vlan.AddToMatch(match)
	flowmod.SetMatch(match)

	if nextExists {
		actions := &openflow.ActionSet{}
		actions.Add(&openflow.OutputAction{Port: uint32(next), MaxLen: openflow.OFPCML_NO_BUFFER})
		if topo.Distance(r.id, other) == 1 {
			actions.Add(&openflow.PopVLANAction{})
		}
		instructions := &openflow.InstructionSet{}
		instructions.Add(&openflow.WriteActionsInstruction{Actions: *actions})
		flowmod.SetInstructions(instructions)

		r.currentNext[other] = next
	} else {
		delete(r.currentNext, other)
	}

	return r.send(flowmod)
}

// CreateStaticRules installs the fixed table-0/table-1 rules and the
// per-slice drop meters, using discoveryEtherType for the
// topology-discovery forwarding rule.
func (r *Switch) CreateStaticRules(discoveryEtherType uint16, slices []SliceMeter) error {
	if err := r.createDiscoveryRule(discoveryEtherType); err != nil {
		return err
	}
	if err := r.createErrorCatchRules(); err != nil {
		return err
	}
	if err := r.createControllerInjectRule(); err != nil {
		return err
	}
	for _, s := range slices {
		if err := r.createSliceMeter(s); err != nil {
			return err
		}
	}
	return nil
}

func (r *Switch) createDiscoveryRule(etherType uint16) error {
	flowmod, err := r.factory.NewFlowMod()
	if err != nil {
		return err
	}
	flowmod.SetTransactionID(r.allocXID())
	flowmod.SetCommand(openflow.FlowModCommandAdd)
	flowmod.SetTableID(openflow.IngressTable)
	flowmod.SetPriority(20)
	flowmod.SetCookie(openflow.CookieDiscovery)
	flowmod.SetBufferID(openflow.NoBuffer)

	match := openflow.NewMatch()
	match.Add(openflow.EthTypeField(etherType))
	flowmod.SetMatch(match)

	actions := &openflow.ActionSet{}
	actions.Add(&openflow.OutputAction{Port: openflow.OFPP_CONTROLLER, MaxLen: openflow.OFPCML_NO_BUFFER})
	instructions := &openflow.InstructionSet{}
	instructions.Add(&openflow.WriteActionsInstruction{Actions: *actions})
	flowmod.SetInstructions(instructions)

	return r.send(flowmod)
}

func (r *Switch) createErrorCatchRules() error {
	for _, entry := range []struct {
		table  uint8
		cookie uint64
	}{
		{openflow.IngressTable, openflow.CookieErrorTable0},
		{openflow.ForwardingTable, openflow.CookieErrorTable1},
	} {
		flowmod, err := r.factory.NewFlowMod()
		if err != nil {
			return err
		}
		flowmod.SetTransactionID(r.allocXID())
		flowmod.SetCommand(openflow.FlowModCommandAdd)
		flowmod.SetTableID(entry.table)
		flowmod.SetPriority(0)
		flowmod.SetCookie(entry.cookie)
		flowmod.SetBufferID(openflow.NoBuffer)

		actions := &openflow.ActionSet{}
		actions.Add(&openflow.OutputAction{Port: openflow.OFPP_CONTROLLER, MaxLen: openflow.OFPCML_NO_BUFFER})
		instructions := &openflow.InstructionSet{}
		instructions.Add(&openflow.WriteActionsInstruction{Actions: *actions})
		flowmod.SetInstructions(instructions)

		if err := r.send(flowmod); err != nil {
			return err
		}
	}
	return nil
}

func (r *Switch) createControllerInjectRule() error {
	flowmod, err := r.factory.NewFlowMod()
	if err != nil {
		return err
	}
	flowmod.SetTransactionID(r.allocXID())
	flowmod.SetCommand(openflow.FlowModCommandAdd)
	flowmod.SetTableID(openflow.IngressTable)
	flowmod.SetPriority(10)
	flowmod.SetCookie(uint64(openflow.OFPP_CONTROLLER))
	flowmod.SetBufferID(openflow.NoBuffer)

	match := openflow.NewMatch()
	match.Add(openflow.InPortField(openflow.OFPP_CONTROLLER))
	flowmod.SetMatch(match)

	instructions := &openflow.InstructionSet{}
	instructions.Add(&openflow.GoToTableInstruction{TableID: openflow.ForwardingTable})
	flowmod.SetInstructions(instructions)

	return r.send(flowmod)
}

func (r *Switch) createSliceMeter(s SliceMeter) error {
	meterMod, err := r.factory.NewMeterMod()
	if err != nil {
		return err
	}
	meterMod.SetTransactionID(r.allocXID())
	meterMod.SetCommand(openflow.MeterCommandAdd)
	meterMod.SetFlags(openflow.MeterFlagPKTPS)
	meterMod.SetMeterID(s.ID)
	meterMod.SetBands([]openflow.MeterBand{
		{Type: openflow.MeterBandTypeDrop, Rate: s.MaxRatePPS, BurstSize: 0},
	})

	return r.send(meterMod)
}

// Barrier sends a BarrierRequest and returns the xid it was sent with, so
// the hypervisor's barrier aggregation can match the eventual BarrierReply.
func (r *Switch) Barrier() (xid uint32, err error) {
	barrier, err := r.factory.NewBarrierRequest()
	if err != nil {
		return 0, err
	}
	xid = r.allocXID()
	barrier.SetTransactionID(xid)
	return xid, r.send(barrier)
}

// SendPacketOut injects a raw frame into the switch's pipeline. Packets
// injected this way match table 0's in_port=CONTROLLER rule and re-enter
// table 1 as if they arrived over a shared link; discovery frames instead
// name an explicit egress port in actions and bypass the tables entirely.
func (r *Switch) SendPacketOut(actions *openflow.ActionList, data []byte) error {
	po, err := r.factory.NewPacketOut()
	if err != nil {
		return err
	}
	po.SetTransactionID(r.allocXID())
	po.SetBufferID(openflow.NoBuffer)
	po.SetInPort(openflow.OFPP_CONTROLLER)
	po.SetActions(actions)
	po.SetData(data)

	return r.send(po)
}

// forwardable is the subset of a wire message ForwardRequest needs: enough
// to read and rewrite its xid and marshal it back out.
type forwardable interface {
	openflow.Header
	encoding.BinaryMarshaler
}

// ForwardRequest sends message on behalf of a tenant request, remembering
// how to route the eventual reply back. It rewrites the message's own xid
// to a fresh one scoped to this physical connection.
func (r *Switch) ForwardRequest(message forwardable, virtualSwitchID uint32) error {
	newXID := r.allocXID()
	originalXID := message.TransactionID()
	message.SetTransactionID(newXID)

	r.xids.store(newXID, originalXID, virtualSwitchID)
	return r.send(message)
}

// ResolveReply looks up the virtual switch and original xid a reply with
// xid should be forwarded to.
func (r *Switch) ResolveReply(xid uint32) (originalXID uint32, virtualSwitchID uint32, ok bool) {
	source, found := r.xids.resolve(xid)
	if !found {
		return 0, 0, false
	}
	return source.originalXID, source.virtualSwitchID, true
}

// Ports returns a snapshot of the port table.
func (r *Switch) Ports() map[uint32]Port {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	out := make(map[uint32]Port, len(r.ports))
	for no, p := range r.ports {
		out[no] = *p
	}
	return out
}

// interestedVirtualSwitches returns the set of virtual switch ids currently
// registered as interested in port, used by PortStatus fan-out.
func (r *Switch) interestedVirtualSwitches(port uint32) []uint32 {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	set, ok := r.neededPorts[port]
	if !ok {
		return nil
	}
	out := make([]uint32, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// PortStatusTarget is one virtual switch a PortStatus should fan out to.
type PortStatusTarget struct {
	VirtualSwitchID uint32
}

// OnPortStatus updates the local port table and returns the set of virtual
// switches that must be notified. The caller (the hypervisor/virtual
// package) resolves virtual-switch-specific port numbering and connection
// state before actually sending anything.
func (r *Switch) OnPortStatus(reason uint8, port openflow.Port) []PortStatusTarget {
	r.mutex.Lock()
	if reason == openflow.PortReasonDelete {
		delete(r.ports, port.PortNo)
	} else if existing, ok := r.ports[port.PortNo]; ok {
		existing.Data = port
	} else {
		r.ports[port.PortNo] = &Port{Data: port, State: PortStateNone}
	}
	r.mutex.Unlock()

	ids := r.interestedVirtualSwitches(port.PortNo)
	targets := make([]PortStatusTarget, 0, len(ids))
	for _, id := range ids {
		targets = append(targets, PortStatusTarget{VirtualSwitchID: id})
	}
	return targets
}
