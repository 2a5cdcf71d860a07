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
	"encoding"
	"testing"

	"github.com/flowvisor/hypervisor/openflow"
	"github.com/flowvisor/hypervisor/openflow/of13"
	"github.com/flowvisor/hypervisor/physical"
	"github.com/flowvisor/hypervisor/topology"
)

// discardWriter implements physical.Writer without sending anything
// anywhere; the physical switches in these tests never have Start called.
type discardWriter struct{}

func (discardWriter) Write(msg encoding.BinaryMarshaler) error { return nil }

// fakeRegistry is a minimal, test-local stand-in for the hypervisor's
// switch/topology bookkeeping.
type fakeRegistry struct {
	switches  map[topology.SwitchID]*physical.Switch
	distances map[[2]topology.SwitchID]int
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		switches:  make(map[topology.SwitchID]*physical.Switch),
		distances: make(map[[2]topology.SwitchID]int),
	}
}

func (r *fakeRegistry) PhysicalSwitch(id topology.SwitchID) (*physical.Switch, bool) {
	sw, ok := r.switches[id]
	return sw, ok
}

func (r *fakeRegistry) Distance(a, b topology.SwitchID) int {
	if a == b {
		return 0
	}
	if d, ok := r.distances[[2]topology.SwitchID{a, b}]; ok {
		return d
	}
	return topology.Infinite
}

// registerSwitch creates a registered physical switch with the given
// capabilities/table count and adds it to the registry.
func registerSwitch(t *testing.T, reg *fakeRegistry, id topology.SwitchID, caps uint32, numTables uint8) *physical.Switch {
	t.Helper()

	factory := of13.NewFactory()
	sw := physical.New(id, discardWriter{}, factory)

	reply, err := factory.NewFeaturesReply()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reply.SetDatapathID(uint64(id))
	reply.SetCapabilities(caps)
	reply.SetNumTables(numTables)
	sw.OnFeaturesReply(reply)

	reg.switches[id] = sw
	return sw
}

func TestReachableFalseWhenAPhysicalSwitchIsUnregistered(t *testing.T) {
	reg := newFakeRegistry()
	reg.switches[1] = physical.New(1, discardWriter{}, of13.NewFactory()) // never fed a FeaturesReply

	v := NewSwitch(100, 1, 100, "127.0.0.1:0", reg, of13.NewFactory())
	v.AddPort(1, VirtualPort{PhysicalSwitch: 1, PhysicalPort: 1})

	if v.reachable() {
		t.Fatal("expected unreachable: physical switch 1 was never registered")
	}
}

func TestReachableFalseWhenDistanceIsInfinite(t *testing.T) {
	reg := newFakeRegistry()
	registerSwitch(t, reg, 1, 0xff, 8)
	registerSwitch(t, reg, 2, 0xff, 8)
	// No distance entry recorded between 1 and 2: defaults to Infinite.

	v := NewSwitch(100, 1, 100, "127.0.0.1:0", reg, of13.NewFactory())
	v.AddPort(1, VirtualPort{PhysicalSwitch: 1, PhysicalPort: 1})
	v.AddPort(2, VirtualPort{PhysicalSwitch: 2, PhysicalPort: 1})

	if v.reachable() {
		t.Fatal("expected unreachable: switches 1 and 2 have no discovered path")
	}
}

func TestReachableTrueWhenRegisteredAndConnected(t *testing.T) {
	reg := newFakeRegistry()
	registerSwitch(t, reg, 1, 0xff, 8)
	registerSwitch(t, reg, 2, 0xff, 8)
	reg.distances[[2]topology.SwitchID{1, 2}] = 1
	reg.distances[[2]topology.SwitchID{2, 1}] = 1

	v := NewSwitch(100, 1, 100, "127.0.0.1:0", reg, of13.NewFactory())
	v.AddPort(1, VirtualPort{PhysicalSwitch: 1, PhysicalPort: 1})
	v.AddPort(2, VirtualPort{PhysicalSwitch: 2, PhysicalPort: 1})

	if !v.reachable() {
		t.Fatal("expected reachable: both switches registered with a finite path between them")
	}
}

func TestCapabilitiesIntersectsAcrossPhysicalSwitches(t *testing.T) {
	const (
		capA uint32 = 0b1110
		capB uint32 = 0b0111
	)

	reg := newFakeRegistry()
	registerSwitch(t, reg, 1, capA, 8)
	registerSwitch(t, reg, 2, capB, 8)

	v := NewSwitch(100, 1, 100, "127.0.0.1:0", reg, of13.NewFactory())
	v.AddPort(1, VirtualPort{PhysicalSwitch: 1, PhysicalPort: 1})
	v.AddPort(2, VirtualPort{PhysicalSwitch: 2, PhysicalPort: 1})

	if got, want := v.capabilities(), capA&capB; got != want {
		t.Fatalf("got capabilities=%#b, want=%#b", got, want)
	}
}

func TestNumTablesTakesTheNarrowestPipeline(t *testing.T) {
	reg := newFakeRegistry()
	registerSwitch(t, reg, 1, 0xff, 10)
	registerSwitch(t, reg, 2, 0xff, 4)

	v := NewSwitch(100, 1, 100, "127.0.0.1:0", reg, of13.NewFactory())
	v.AddPort(1, VirtualPort{PhysicalSwitch: 1, PhysicalPort: 1})
	v.AddPort(2, VirtualPort{PhysicalSwitch: 2, PhysicalPort: 1})

	want := uint8(4) - openflow.FirstTenantTable
	if got := v.numTables(); got != want {
		t.Fatalf("got numTables=%v, want=%v", got, want)
	}
}

func TestAddPortAndVirtualPortOfRoundTrip(t *testing.T) {
	reg := newFakeRegistry()
	v := NewSwitch(100, 1, 100, "127.0.0.1:0", reg, of13.NewFactory())

	v.AddPort(5, VirtualPort{PhysicalSwitch: 1, PhysicalPort: 42})

	got, ok := v.VirtualPortOf(1, 42)
	if !ok || got != 5 {
		t.Fatalf("got (%v, %v), want (5, true)", got, ok)
	}

	v.RemovePort(5)
	if _, ok := v.VirtualPortOf(1, 42); ok {
		t.Fatal("expected the mapping to be gone after RemovePort")
	}
}

// fakeWriter records the last message handed to it.
type fakeWriter struct {
	last encoding.BinaryMarshaler
}

func (w *fakeWriter) Write(msg encoding.BinaryMarshaler) error {
	w.last = msg
	return nil
}

func TestOnFeaturesRequestAdvertisesDatapathIDAndCapabilityIntersection(t *testing.T) {
	reg := newFakeRegistry()
	registerSwitch(t, reg, 1, 0b1111, 8)
	registerSwitch(t, reg, 2, 0b0011, 8)

	factory := of13.NewFactory()
	v := NewSwitch(100, 1, 0xc0ffee, "127.0.0.1:0", reg, factory)
	v.AddPort(1, VirtualPort{PhysicalSwitch: 1, PhysicalPort: 1})
	v.AddPort(2, VirtualPort{PhysicalSwitch: 2, PhysicalPort: 1})

	req, err := factory.NewFeaturesRequest()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req.SetTransactionID(7)

	w := &fakeWriter{}
	if err := v.OnFeaturesRequest(factory, w, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reply, ok := w.last.(openflow.FeaturesReply)
	if !ok {
		t.Fatalf("expected a FeaturesReply, got %T", w.last)
	}
	if reply.DatapathID() != 0xc0ffee {
		t.Fatalf("got datapath id=%#x, want=%#x", reply.DatapathID(), 0xc0ffee)
	}
	if reply.Capabilities() != 0b0011 {
		t.Fatalf("got capabilities=%#b, want=%#b", reply.Capabilities(), 0b0011)
	}
}

func TestOnBarrierRequestRepliesWithSameTransactionID(t *testing.T) {
	reg := newFakeRegistry()
	factory := of13.NewFactory()
	v := NewSwitch(100, 1, 1, "127.0.0.1:0", reg, factory)

	req, err := factory.NewBarrierRequest()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req.SetTransactionID(42)

	w := &fakeWriter{}
	if err := v.OnBarrierRequest(factory, w, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reply, ok := w.last.(openflow.BarrierReply)
	if !ok {
		t.Fatalf("expected a BarrierReply, got %T", w.last)
	}
	if reply.TransactionID() != 42 {
		t.Fatalf("got xid=%v, want=42", reply.TransactionID())
	}
}

func TestOnFlowModDelegatesToInstaller(t *testing.T) {
	reg := newFakeRegistry()
	factory := of13.NewFactory()
	v := NewSwitch(100, 1, 1, "127.0.0.1:0", reg, factory)

	var gotID uint32
	var gotFlowMod openflow.FlowMod
	v.SetInstaller(fakeInstaller{
		installFlowMod: func(id uint32, fm openflow.FlowMod) error {
			gotID, gotFlowMod = id, fm
			return nil
		},
	})

	fm, err := factory.NewFlowMod()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fm.SetTransactionID(9)

	if err := v.OnFlowMod(factory, &fakeWriter{}, fm); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotID != 100 {
		t.Fatalf("got virtual switch id=%v, want=100", gotID)
	}
	if gotFlowMod.TransactionID() != 9 {
		t.Fatalf("got xid=%v, want=9", gotFlowMod.TransactionID())
	}
}

type fakeInstaller struct {
	installFlowMod func(uint32, openflow.FlowMod) error
	sendPacketOut  func(uint32, openflow.PacketOut) error
	barrier        func(uint32, uint32) (bool, error)
}

func (f fakeInstaller) Barrier(id uint32, xid uint32) (bool, error) {
	if f.barrier == nil {
		return false, nil
	}
	return f.barrier(id, xid)
}

func (f fakeInstaller) InstallFlowMod(id uint32, fm openflow.FlowMod) error {
	if f.installFlowMod == nil {
		return nil
	}
	return f.installFlowMod(id, fm)
}

func (f fakeInstaller) SendPacketOut(id uint32, po openflow.PacketOut) error {
	if f.sendPacketOut == nil {
		return nil
	}
	return f.sendPacketOut(id, po)
}
