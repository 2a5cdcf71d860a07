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
	"errors"

	"github.com/flowvisor/hypervisor/openflow"
	"github.com/flowvisor/hypervisor/tag"
)

var (
	// ErrTableOutOfRange is returned when GoToTable(t)+2 would run off the
	// end of the switch's table pipeline.
	ErrTableOutOfRange = errors.New("physical: goto-table target exceeds switch's table count")
	// ErrRejectedInstruction covers every instruction/action that rejects
	// the whole FlowMod: Meter, Experimenter, SetQueue.
	ErrRejectedInstruction = errors.New("physical: tenant flowmod uses a rejected instruction or action")
	// ErrUnresolvedVirtualPort is returned when a match or action names a
	// virtual port this rewrite context cannot map to anything physical.
	ErrUnresolvedVirtualPort = errors.New("physical: tenant flowmod references an unresolvable virtual port")
)

// RewriteContext carries everything the rewrite needs to know about one
// target physical switch and the virtual switch the tenant FlowMod belongs
// to.
type RewriteContext struct {
	NumTables uint8

	// ResolveMatchPort maps a virtual port number found in an InPort match
	// field to this switch's physical port number.
	ResolveMatchPort func(virtualPort uint32) (physicalPort uint32, ok bool)

	// ResolveOutputGroup maps a virtual port number named by an Output
	// action to the indirect group id that already exists on this switch
	// for that port.
	ResolveOutputGroup func(virtualPort uint32) (groupID uint32, ok bool)
}

// RewriteMatch rewrites a tenant match's InPort field (if present) to the
// physical port on this switch. Every other field (metadata, VLAN VID) is
// not tenant-visible and is passed through unchanged, since tenants never
// match on it directly.
func RewriteMatch(in *openflow.Match, ctx RewriteContext) (*openflow.Match, error) {
	out := openflow.NewMatch()
	for _, f := range in.Fields {
		if f.Type != openflow.OXMTypeInPort {
			out.Add(f)
			continue
		}

		vport, ok := f.AsInPort()
		if !ok {
			out.Add(f)
			continue
		}
		phys, ok := ctx.ResolveMatchPort(vport)
		if !ok {
			return nil, ErrUnresolvedVirtualPort
		}
		out.Add(openflow.InPortField(phys))
	}
	return out, nil
}

// RewriteInstructions translates a tenant's instruction set into the two
// variants a physical switch may need to install: withOutput carries the
// real Output/Group side effect; withoutOutput carries every other
// instruction unchanged so that replica switches touched by the same
// tenant FlowMod don't duplicate the output.
//
// Every metadata contribution — the shifted tenant WriteMetadata, the
// group flag, the clear-actions flag — is accumulated into one value/mask
// pair and emitted as a single WriteMetadata instruction at the end: a
// flow entry may carry at most one instruction per type.
func RewriteInstructions(in *openflow.InstructionSet, ctx RewriteContext) (withOutput, withoutOutput *openflow.InstructionSet, err error) {
	withOutput = &openflow.InstructionSet{}
	withoutOutput = &openflow.InstructionSet{}

	var metadataValue, metadataMask uint64

	for _, inst := range in.Instructions {
		switch v := inst.(type) {
		case *openflow.GoToTableInstruction:
			// Compare before shifting so a table id near 255 cannot wrap.
			if ctx.NumTables < openflow.FirstTenantTable || v.TableID >= ctx.NumTables-openflow.FirstTenantTable {
				return nil, nil, ErrTableOutOfRange
			}
			target := v.TableID + openflow.FirstTenantTable
			withOutput.Add(&openflow.GoToTableInstruction{TableID: target})
			withoutOutput.Add(&openflow.GoToTableInstruction{TableID: target})

		case *openflow.WriteMetadataInstruction:
			value, mask, err := tag.ShiftWriteMetadata(v.Metadata, v.MetadataMask)
			if err != nil {
				return nil, nil, err
			}
			metadataValue |= value
			metadataMask |= mask

		case *openflow.WriteActionsInstruction:
			withActions, withoutActions, usedGroup, err := rewriteActionSet(&v.Actions, ctx)
			if err != nil {
				return nil, nil, err
			}
			withOutput.Add(&openflow.WriteActionsInstruction{Actions: *withActions})
			withoutOutput.Add(&openflow.WriteActionsInstruction{Actions: *withoutActions})
			if usedGroup {
				// Bit 0 alone: the virtual-switch id in bits 1..N was
				// written by table 0 and must survive the tenant tables.
				metadataValue |= 1
				metadataMask |= 1
			}

		case *openflow.ApplyActionsInstruction:
			rewritten, err := rewriteActionList(&v.Actions, ctx)
			if err != nil {
				return nil, nil, err
			}
			withOutput.Add(&openflow.ApplyActionsInstruction{Actions: *rewritten})
			withoutOutput.Add(&openflow.ApplyActionsInstruction{Actions: *rewritten})

		case *openflow.ClearActionsInstruction:
			withOutput.Add(&openflow.ClearActionsInstruction{})
			withoutOutput.Add(&openflow.ClearActionsInstruction{})
			// Mask bit 0 so a stale group bit is overwritten with zero.
			// Clear-actions runs before write-actions, so if a Group in a
			// write-actions set already raised the bit this is a no-op.
			metadataMask |= 1

		case *openflow.MeterInstruction, *openflow.ExperimenterInstruction:
			return nil, nil, ErrRejectedInstruction

		default:
			withOutput.Add(inst.Clone())
			withoutOutput.Add(inst.Clone())
		}
	}

	if metadataMask != 0 {
		withOutput.Add(&openflow.WriteMetadataInstruction{Metadata: metadataValue, MetadataMask: metadataMask})
		withoutOutput.Add(&openflow.WriteMetadataInstruction{Metadata: metadataValue, MetadataMask: metadataMask})
	}

	return withOutput, withoutOutput, nil
}

// rewriteActionSet rewrites a Write-Actions action set into its with-output
// and without-output variants. usedGroup reports whether the with-output
// variant ended up containing a Group action.
func rewriteActionSet(in *openflow.ActionSet, ctx RewriteContext) (withOutput, withoutOutput *openflow.ActionSet, usedGroup bool, err error) {
	withOutput = &openflow.ActionSet{}
	withoutOutput = &openflow.ActionSet{}

	for _, a := range in.Actions {
		rewritten, isOutput, err := rewriteAction(a, ctx)
		if err != nil {
			return nil, nil, false, err
		}

		if isOutput {
			withOutput.Add(rewritten)
			if rewritten.Type() == openflow.ActionTypeGroup {
				usedGroup = true
			}
			continue
		}
		withOutput.Add(rewritten)
		withoutOutput.Add(rewritten)
	}

	return withOutput, withoutOutput, usedGroup, nil
}

// RewriteActions rewrites an order-preserving action list, used both for
// Apply-Actions instructions and for the action list of a tenant PacketOut,
// which follows the same Output-to-Group substitution.
func RewriteActions(in *openflow.ActionList, ctx RewriteContext) (*openflow.ActionList, error) {
	return rewriteActionList(in, ctx)
}

// rewriteActionList rewrites an order-preserving Apply-Actions list into a
// new list; the input list is left unchanged.
func rewriteActionList(in *openflow.ActionList, ctx RewriteContext) (*openflow.ActionList, error) {
	out := &openflow.ActionList{}
	for _, a := range in.Actions {
		rewritten, _, err := rewriteAction(a, ctx)
		if err != nil {
			return nil, err
		}
		out.Add(rewritten)
	}
	return out, nil
}

// rewriteAction applies the action-rewriting rule: Output(virtual_port)
// becomes Group(G); Group and everything else not named below passes
// through; SetQueue is rejected.
func rewriteAction(a openflow.Action, ctx RewriteContext) (rewritten openflow.Action, isOutput bool, err error) {
	switch v := a.(type) {
	case *openflow.OutputAction:
		groupID, ok := ctx.ResolveOutputGroup(v.Port)
		if !ok {
			return nil, false, ErrUnresolvedVirtualPort
		}
		return &openflow.GroupAction{GroupID: groupID}, true, nil

	case *openflow.SetQueueAction:
		return nil, false, ErrRejectedInstruction

	case *openflow.GroupAction:
		return a.Clone(), true, nil

	default:
		return a.Clone(), false, nil
	}
}
