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
	"encoding"
	"testing"

	"github.com/flowvisor/hypervisor/openflow"
	"github.com/flowvisor/hypervisor/openflow/of13"
	"github.com/flowvisor/hypervisor/physical"
	"github.com/flowvisor/hypervisor/protocol"
	"github.com/flowvisor/hypervisor/slice"
	"github.com/flowvisor/hypervisor/topology"
	"github.com/flowvisor/hypervisor/virtual"
)

// recordingWriter captures every message a physical switch decides to
// emit, standing in for the transceiver.
type recordingWriter struct {
	sent []encoding.BinaryMarshaler
}

func (w *recordingWriter) Write(msg encoding.BinaryMarshaler) error {
	w.sent = append(w.sent, msg)
	return nil
}

func (w *recordingWriter) flowMods() []openflow.FlowMod {
	var out []openflow.FlowMod
	for _, msg := range w.sent {
		if fm, ok := msg.(openflow.FlowMod); ok {
			out = append(out, fm)
		}
	}
	return out
}

func (w *recordingWriter) groupMods() []openflow.GroupMod {
	var out []openflow.GroupMod
	for _, msg := range w.sent {
		if gm, ok := msg.(openflow.GroupMod); ok {
			out = append(out, gm)
		}
	}
	return out
}

// seedSwitch registers a fake southbound switch: a session whose physical
// switch writes into a recording writer instead of a socket.
func seedSwitch(t *testing.T, hv *Hypervisor, dpid uint64, ports []uint32) (*physical.Switch, *recordingWriter) {
	t.Helper()

	factory := of13.NewFactory()
	w := &recordingWriter{}
	s := &session{hv: hv, scheduler: topology.NewScheduler()}

	id := hv.registerSession(s, dpid)
	sw := physical.New(id, w, factory)

	reply, err := factory.NewFeaturesReply()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reply.SetDatapathID(dpid)
	reply.SetNumTables(10)
	reply.SetCapabilities(0xFF)
	sw.OnFeaturesReply(reply)

	var descs []openflow.Port
	for _, p := range ports {
		descs = append(descs, openflow.Port{PortNo: p})
	}
	sw.OnPortDescReply(descs)

	s.mutex.Lock()
	s.sw = sw
	s.mutex.Unlock()

	return sw, w
}

// seedVirtualSwitch installs a virtual switch and its slice straight into
// the registry, bypassing the dial loop.
func seedVirtualSwitch(hv *Hypervisor, id uint32, sliceID uint16, ports map[uint32]virtual.VirtualPort) *virtual.Switch {
	vsw := virtual.NewSwitch(id, sliceID, 0x64, "127.0.0.1:0", hv, of13.NewFactory())
	for vport, loc := range ports {
		vsw.AddPort(vport, loc)
	}
	sl := slice.New(sliceID, "127.0.0.1:0", 1000)

	hv.mutex.Lock()
	hv.vswitches[id] = vsw
	hv.vswitchSlice[id] = sl
	hv.slices[sliceID] = sl
	hv.mutex.Unlock()

	return vsw
}

func TestIDForDPIDIsStableAcrossReconnects(t *testing.T) {
	hv := New(Settings{})

	a := hv.idForDPID(0x1)
	b := hv.idForDPID(0x2)
	if a == b {
		t.Fatalf("two datapath ids got the same local id %v", a)
	}
	if hv.idForDPID(0x1) != a {
		t.Fatal("a reconnecting datapath id should keep its local id")
	}
}

func TestDiscoveryPacketInAddsLinkAndRoutes(t *testing.T) {
	hv := New(Settings{})
	sw1, _ := seedSwitch(t, hv, 0x1, []uint32{1, 2})
	sw2, _ := seedSwitch(t, hv, 0x2, []uint32{1, 2})

	// A frame crafted by switch 1 port 1, received by switch 2 port 1.
	frame := protocol.DiscoveryFrame{SenderDatapathID: 0x1, SenderPort: 1, SendTimestamp: 1}
	data, err := protocol.NewDiscoveryEthernetFrame(make([]byte, 6), frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	factory := of13.NewFactory()
	packetIn, err := factory.NewPacketIn()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	packetIn.SetCookie(openflow.CookieDiscovery)
	match := openflow.NewMatch()
	match.Add(openflow.InPortField(1))
	packetIn.SetMatch(match)
	packetIn.SetData(data)

	if err := hv.handleDiscoveryPacketIn(sw2, packetIn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := hv.topo.Distance(sw1.ID(), sw2.ID()); got != 1 {
		t.Fatalf("got dist=%v, want=1", got)
	}
	next, ok := hv.topo.NextHop(sw1.ID(), sw2.ID())
	if !ok || next != 1 {
		t.Fatalf("got next=%v (ok=%v), want=1", next, ok)
	}
}

func TestInstallFlowModRewritesOutputToGroup(t *testing.T) {
	hv := New(Settings{})
	sw1, w1 := seedSwitch(t, hv, 0x1, []uint32{1, 2})
	sw2, _ := seedSwitch(t, hv, 0x2, []uint32{1, 2})

	hv.topo.AddLink(topology.Link{
		A: topology.Endpoint{Switch: sw1.ID(), Port: 1},
		B: topology.Endpoint{Switch: sw2.ID(), Port: 1},
	})

	seedVirtualSwitch(hv, 100, 1, map[uint32]virtual.VirtualPort{
		1: {PhysicalSwitch: sw1.ID(), PhysicalPort: 2},
		2: {PhysicalSwitch: sw2.ID(), PhysicalPort: 2},
	})

	factory := of13.NewFactory()
	fm, err := factory.NewFlowMod()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fm.SetCommand(openflow.FlowModCommandAdd)
	fm.SetTableID(0)
	match := openflow.NewMatch()
	match.Add(openflow.InPortField(1))
	fm.SetMatch(match)
	actions := &openflow.ActionSet{}
	actions.Add(&openflow.OutputAction{Port: 2, MaxLen: openflow.OFPCML_NO_BUFFER})
	instructions := &openflow.InstructionSet{}
	instructions.Add(&openflow.WriteActionsInstruction{Actions: *actions})
	fm.SetInstructions(instructions)

	before := len(w1.flowMods())
	if err := hv.InstallFlowMod(100, fm); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	flowMods := w1.flowMods()[before:]
	if len(flowMods) != 1 {
		t.Fatalf("got %v flowmods on the ingress switch, want 1", len(flowMods))
	}
	installed := flowMods[0]

	if installed.TableID() != openflow.FirstTenantTable {
		t.Fatalf("got table=%v, want=%v", installed.TableID(), openflow.FirstTenantTable)
	}
	field, ok := installed.Match().Field(openflow.OXMTypeInPort)
	if !ok {
		t.Fatal("the rewritten match lost its in_port field")
	}
	if port, _ := field.AsInPort(); port != 2 {
		t.Fatalf("got match in_port=%v, want the physical port 2", port)
	}

	inst, ok := installed.Instructions().Get(openflow.InstructionTypeWriteActions)
	if !ok {
		t.Fatal("the rewritten instructions lost WriteActions")
	}
	var groupID uint32
	var found bool
	for _, a := range inst.(*openflow.WriteActionsInstruction).Actions.Actions {
		if group, ok := a.(*openflow.GroupAction); ok {
			groupID, found = group.GroupID, true
		}
	}
	if !found {
		t.Fatal("Output(2) was not rewritten to a Group action")
	}

	// The indirect group's bucket tunnels toward switch 2: push VLAN, tag
	// with (slice=1, foreign_port=2), output via next[2]=1.
	var bucket *openflow.Bucket
	for _, gm := range w1.groupMods() {
		if gm.GroupID() == groupID {
			buckets := gm.Buckets()
			bucket = &buckets[0]
		}
	}
	if bucket == nil {
		t.Fatalf("no GroupMod was emitted for group %v", groupID)
	}

	var sawPush, sawOutput bool
	for _, a := range bucket.Actions.Actions {
		switch v := a.(type) {
		case *openflow.PushVLANAction:
			sawPush = true
		case *openflow.OutputAction:
			sawOutput = true
			if v.Port != 1 {
				t.Fatalf("got bucket output port=%v, want next-hop port 1", v.Port)
			}
		}
	}
	if !sawPush || !sawOutput {
		t.Fatalf("incomplete tunnel bucket: push=%v output=%v", sawPush, sawOutput)
	}
}

func TestInstallFlowModRejectsMeterInstruction(t *testing.T) {
	hv := New(Settings{})
	sw1, w1 := seedSwitch(t, hv, 0x1, []uint32{1, 2})

	seedVirtualSwitch(hv, 100, 1, map[uint32]virtual.VirtualPort{
		1: {PhysicalSwitch: sw1.ID(), PhysicalPort: 2},
	})

	factory := of13.NewFactory()
	fm, err := factory.NewFlowMod()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fm.SetTableID(0)
	match := openflow.NewMatch()
	match.Add(openflow.InPortField(1))
	fm.SetMatch(match)
	instructions := &openflow.InstructionSet{}
	instructions.Add(&openflow.MeterInstruction{MeterID: 5})
	fm.SetInstructions(instructions)

	before := len(w1.sent)
	// The Error toward the tenant fails since the fake slice was never
	// connected; what matters is that nothing physical was emitted.
	hv.InstallFlowMod(100, fm)

	if len(w1.sent) != before {
		t.Fatalf("a rejected flowmod still emitted %v physical messages", len(w1.sent)-before)
	}
}

func TestBarrierAggregation(t *testing.T) {
	hv := New(Settings{})
	sw1, w1 := seedSwitch(t, hv, 0x1, []uint32{1})
	seedVirtualSwitch(hv, 100, 1, map[uint32]virtual.VirtualPort{
		1: {PhysicalSwitch: sw1.ID(), PhysicalPort: 1},
	})

	// Nothing touched yet: the barrier is not aggregated.
	handled, err := hv.Barrier(100, 0x1234)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handled {
		t.Fatal("a barrier with nothing pending should not be aggregated")
	}

	hv.markTouched(100, sw1.ID())
	before := len(w1.sent)
	handled, err = hv.Barrier(100, 0x1234)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handled {
		t.Fatal("a barrier with a touched switch should be aggregated")
	}

	var physicalXID uint32
	var found bool
	for _, msg := range w1.sent[before:] {
		if req, ok := msg.(openflow.BarrierRequest); ok {
			physicalXID, found = req.TransactionID(), true
		}
	}
	if !found {
		t.Fatal("no BarrierRequest was fanned out to the touched switch")
	}

	if hv.completeBarrier(sw1.ID(), physicalXID+1) {
		t.Fatal("an unknown barrier xid should not resolve")
	}
	if !hv.completeBarrier(sw1.ID(), physicalXID) {
		t.Fatal("the fanned-out barrier xid should resolve")
	}
	if len(hv.barriers) != 0 {
		t.Fatalf("%v barrier entries leaked", len(hv.barriers))
	}

	// The touched set was consumed: the next barrier is immediate again.
	handled, _ = hv.Barrier(100, 0x1235)
	if handled {
		t.Fatal("the touched set should have been consumed by the first barrier")
	}
}

func TestRemovedSwitchSettlesItsBarriers(t *testing.T) {
	hv := New(Settings{})
	sw1, _ := seedSwitch(t, hv, 0x1, []uint32{1})
	seedVirtualSwitch(hv, 100, 1, map[uint32]virtual.VirtualPort{
		1: {PhysicalSwitch: sw1.ID(), PhysicalPort: 1},
	})

	hv.markTouched(100, sw1.ID())
	handled, err := hv.Barrier(100, 0x42)
	if err != nil || !handled {
		t.Fatalf("barrier was not aggregated: handled=%v err=%v", handled, err)
	}

	hv.dropBarriersFor(sw1.ID())
	if len(hv.barriers) != 0 {
		t.Fatalf("%v barrier entries leaked after the switch went away", len(hv.barriers))
	}
}

func TestLinkLossEmitsRouteDeletes(t *testing.T) {
	hv := New(Settings{})
	sw1, w1 := seedSwitch(t, hv, 0x1, []uint32{1})
	sw2, _ := seedSwitch(t, hv, 0x2, []uint32{1})

	hv.topo.AddLink(topology.Link{
		A: topology.Endpoint{Switch: sw1.ID(), Port: 1},
		B: topology.Endpoint{Switch: sw2.ID(), Port: 1},
	})
	hv.recomputeRoutes()

	var sawAdd bool
	for _, fm := range w1.flowMods() {
		if fm.TableID() == openflow.ForwardingTable && fm.Priority() == 20 && fm.Command() == openflow.FlowModCommandAdd {
			sawAdd = true
		}
	}
	if !sawAdd {
		t.Fatal("discovering the link should have installed a priority-20 route rule")
	}

	if got := hv.topo.Distance(sw1.ID(), sw2.ID()); got != 1 {
		t.Fatalf("got dist=%v, want=1", got)
	}

	before := len(w1.flowMods())
	hv.topo.RemoveLink(topology.Endpoint{Switch: sw1.ID(), Port: 1})
	hv.recomputeRoutes()

	if got := hv.topo.Distance(sw1.ID(), sw2.ID()); got < topology.Infinite {
		t.Fatalf("got dist=%v, want unreachable", got)
	}

	var sawDelete bool
	for _, fm := range w1.flowMods()[before:] {
		if fm.TableID() == openflow.ForwardingTable && fm.Priority() == 20 && fm.Command() == openflow.FlowModCommandDelete {
			sawDelete = true
		}
	}
	if !sawDelete {
		t.Fatal("losing the link should have emitted a priority-20 route delete")
	}
}

func TestPortClassificationFollowsInterestAndLinks(t *testing.T) {
	hv := New(Settings{})
	sw1, _ := seedSwitch(t, hv, 0x1, []uint32{1, 2, 3})
	sw2, _ := seedSwitch(t, hv, 0x2, []uint32{1})

	seedVirtualSwitch(hv, 100, 1, map[uint32]virtual.VirtualPort{
		1: {PhysicalSwitch: sw1.ID(), PhysicalPort: 2},
	})
	sw1.RegisterPortInterest(2, 100)

	hv.topo.AddLink(topology.Link{
		A: topology.Endpoint{Switch: sw1.ID(), Port: 1},
		B: topology.Endpoint{Switch: sw2.ID(), Port: 1},
	})
	hv.recomputeRoutes()

	ports := sw1.Ports()
	if got := ports[1].State; got != physical.PortStateLink {
		t.Fatalf("port 1 has a link, got state=%v", got)
	}
	if got := ports[2].State; got != physical.PortStateHost {
		t.Fatalf("port 2 has one interested virtual switch, got state=%v", got)
	}
	if got := ports[3].State; got != physical.PortStateDrop {
		t.Fatalf("port 3 has no interest and no link, got state=%v", got)
	}
}
