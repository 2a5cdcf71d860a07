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
	"testing"

	"github.com/flowvisor/hypervisor/openflow"
	"github.com/flowvisor/hypervisor/tag"
)

func testContext() RewriteContext {
	return RewriteContext{
		NumTables: 8,
		ResolveMatchPort: func(vport uint32) (uint32, bool) {
			return vport + 100, true
		},
		ResolveOutputGroup: func(vport uint32) (uint32, bool) {
			return vport + 1000, true
		},
	}
}

func TestRewriteMatchRewritesInPort(t *testing.T) {
	in := openflow.NewMatch()
	in.Add(openflow.InPortField(3))

	out, err := RewriteMatch(in, testContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := out.Field(openflow.OXMTypeInPort)
	if !ok {
		t.Fatal("expected an in-port field in the rewritten match")
	}
	port, _ := got.AsInPort()
	if port != 103 {
		t.Fatalf("got port=%v, want=103", port)
	}
}

func TestRewriteMatchRejectsUnresolvablePort(t *testing.T) {
	ctx := testContext()
	ctx.ResolveMatchPort = func(uint32) (uint32, bool) { return 0, false }

	in := openflow.NewMatch()
	in.Add(openflow.InPortField(3))

	if _, err := RewriteMatch(in, ctx); err != ErrUnresolvedVirtualPort {
		t.Fatalf("got err=%v, want=ErrUnresolvedVirtualPort", err)
	}
}

func TestRewriteInstructionsGoToTableShiftsByTwo(t *testing.T) {
	in := &openflow.InstructionSet{}
	in.Add(&openflow.GoToTableInstruction{TableID: 0})

	withOutput, withoutOutput, err := RewriteInstructions(in, testContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, set := range []*openflow.InstructionSet{withOutput, withoutOutput} {
		inst, ok := set.Get(openflow.InstructionTypeGoToTable)
		if !ok {
			t.Fatal("expected a GoToTable instruction")
		}
		if got := inst.(*openflow.GoToTableInstruction).TableID; got != 2 {
			t.Fatalf("got table=%v, want=2", got)
		}
	}
}

func TestRewriteInstructionsGoToTableRejectsOutOfRange(t *testing.T) {
	ctx := testContext()
	ctx.NumTables = 2 // tenant table 0 -> physical table 2, but NumTables-1 == 1

	in := &openflow.InstructionSet{}
	in.Add(&openflow.GoToTableInstruction{TableID: 0})

	if _, _, err := RewriteInstructions(in, ctx); err != ErrTableOutOfRange {
		t.Fatalf("got err=%v, want=ErrTableOutOfRange", err)
	}
}

func TestRewriteInstructionsWriteMetadataShiftsAndRejectsReserved(t *testing.T) {
	in := &openflow.InstructionSet{}
	in.Add(&openflow.WriteMetadataInstruction{Metadata: 0x1, MetadataMask: 0xF})

	withOutput, _, err := RewriteInstructions(in, testContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	inst, _ := withOutput.Get(openflow.InstructionTypeWriteMetadata)
	wm := inst.(*openflow.WriteMetadataInstruction)
	if wm.Metadata != 0x1<<tag.ReservedMetadataBits || wm.MetadataMask != 0xF<<tag.ReservedMetadataBits {
		t.Fatalf("unexpected shifted metadata: %+v", wm)
	}

	reserved := &openflow.InstructionSet{}
	topBits := uint64(1) << 63
	reserved.Add(&openflow.WriteMetadataInstruction{Metadata: 0, MetadataMask: topBits})
	if _, _, err := RewriteInstructions(reserved, testContext()); err == nil {
		t.Fatal("expected an error for a mask that touches reserved bits")
	}
}

func TestRewriteInstructionsWriteActionsProducesBothVariants(t *testing.T) {
	in := &openflow.InstructionSet{}
	actions := openflow.ActionSet{}
	actions.Add(&openflow.OutputAction{Port: 5})
	actions.Add(&openflow.PopVLANAction{})
	in.Add(&openflow.WriteActionsInstruction{Actions: actions})

	withOutput, withoutOutput, err := RewriteInstructions(in, testContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	withInst, _ := withOutput.Get(openflow.InstructionTypeWriteActions)
	withoutInst, _ := withoutOutput.Get(openflow.InstructionTypeWriteActions)

	withActions := withInst.(*openflow.WriteActionsInstruction).Actions.Actions
	withoutActions := withoutInst.(*openflow.WriteActionsInstruction).Actions.Actions

	if len(withActions) != 2 {
		t.Fatalf("expected with-output variant to carry both actions, got %v", len(withActions))
	}
	if len(withoutActions) != 1 {
		t.Fatalf("expected without-output variant to drop the output action, got %v", len(withoutActions))
	}

	// The with-output variant must have OR'd in the group flag, since
	// Output(5) rewrites to a Group action. Only bit 0 may be masked: a
	// wider mask would zero the virtual-switch id written by table 0.
	inst, ok := withOutput.Get(openflow.InstructionTypeWriteMetadata)
	if !ok {
		t.Fatal("expected a WriteMetadata instruction marking the group bit")
	}
	flag := inst.(*openflow.WriteMetadataInstruction)
	if flag.Metadata != 1 || flag.MetadataMask != 1 {
		t.Fatalf("group flag must touch bit 0 only: %+v", flag)
	}
}

func TestRewriteInstructionsMergesMetadataContributions(t *testing.T) {
	// Tenant WriteMetadata, a Group-producing WriteActions, and
	// ClearActions each contribute to the metadata word; a flow entry may
	// carry only one WriteMetadata instruction, so they must merge.
	in := &openflow.InstructionSet{}
	in.Add(&openflow.WriteMetadataInstruction{Metadata: 0x5, MetadataMask: 0xF})
	actions := openflow.ActionSet{}
	actions.Add(&openflow.OutputAction{Port: 5})
	in.Add(&openflow.WriteActionsInstruction{Actions: actions})
	in.Add(&openflow.ClearActionsInstruction{})

	withOutput, withoutOutput, err := RewriteInstructions(in, testContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, set := range []*openflow.InstructionSet{withOutput, withoutOutput} {
		var metadata []*openflow.WriteMetadataInstruction
		for _, inst := range set.Instructions {
			if wm, ok := inst.(*openflow.WriteMetadataInstruction); ok {
				metadata = append(metadata, wm)
			}
		}
		if len(metadata) != 1 {
			t.Fatalf("got %v WriteMetadata instructions, want exactly 1", len(metadata))
		}

		wantValue := uint64(0x5)<<tag.ReservedMetadataBits | 1
		wantMask := uint64(0xF)<<tag.ReservedMetadataBits | 1
		if metadata[0].Metadata != wantValue || metadata[0].MetadataMask != wantMask {
			t.Fatalf("got metadata=%#x/%#x, want=%#x/%#x: tenant bits intact, bit 0 toggled, nothing else",
				metadata[0].Metadata, metadata[0].MetadataMask, wantValue, wantMask)
		}
	}
}

func TestRewriteInstructionsApplyActionsRejectsSetQueue(t *testing.T) {
	in := &openflow.InstructionSet{}
	list := openflow.ActionList{}
	list.Add(&openflow.SetQueueAction{QueueID: 1})
	in.Add(&openflow.ApplyActionsInstruction{Actions: list})

	if _, _, err := RewriteInstructions(in, testContext()); err != ErrRejectedInstruction {
		t.Fatalf("got err=%v, want=ErrRejectedInstruction", err)
	}
}

func TestRewriteInstructionsRejectsMeter(t *testing.T) {
	in := &openflow.InstructionSet{}
	in.Add(&openflow.MeterInstruction{MeterID: 1})

	if _, _, err := RewriteInstructions(in, testContext()); err != ErrRejectedInstruction {
		t.Fatalf("got err=%v, want=ErrRejectedInstruction", err)
	}
}

func TestRewriteInstructionsClearActionsClearsGroupBit(t *testing.T) {
	in := &openflow.InstructionSet{}
	in.Add(&openflow.ClearActionsInstruction{})

	withOutput, _, err := RewriteInstructions(in, testContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	inst, ok := withOutput.Get(openflow.InstructionTypeWriteMetadata)
	if !ok {
		t.Fatal("expected a WriteMetadata instruction clearing the group bit")
	}
	if inst.(*openflow.WriteMetadataInstruction).MetadataMask != 1 {
		t.Fatal("expected only the group bit to be masked")
	}
}
