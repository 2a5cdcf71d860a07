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

package openflow

// Instruction types.
const (
	InstructionTypeGoToTable     uint16 = 1
	InstructionTypeWriteMetadata uint16 = 2
	InstructionTypeWriteActions  uint16 = 3
	InstructionTypeApplyActions  uint16 = 4
	InstructionTypeClearActions  uint16 = 5
	InstructionTypeMeter         uint16 = 6
	InstructionTypeExperimenter  uint16 = 0xffff
)

type Instruction interface {
	Type() uint16
	Clone() Instruction
}

type GoToTableInstruction struct {
	TableID uint8
}

func (r *GoToTableInstruction) Type() uint16 { return InstructionTypeGoToTable }
func (r *GoToTableInstruction) Clone() Instruction {
	c := *r
	return &c
}

type WriteMetadataInstruction struct {
	Metadata     uint64
	MetadataMask uint64
}

func (r *WriteMetadataInstruction) Type() uint16 { return InstructionTypeWriteMetadata }
func (r *WriteMetadataInstruction) Clone() Instruction {
	c := *r
	return &c
}

type WriteActionsInstruction struct {
	Actions ActionSet
}

func (r *WriteActionsInstruction) Type() uint16 { return InstructionTypeWriteActions }
func (r *WriteActionsInstruction) Clone() Instruction {
	c := *r
	c.Actions.Actions = append([]Action(nil), r.Actions.Actions...)
	return &c
}

type ApplyActionsInstruction struct {
	Actions ActionList
}

func (r *ApplyActionsInstruction) Type() uint16 { return InstructionTypeApplyActions }
func (r *ApplyActionsInstruction) Clone() Instruction {
	c := *r
	c.Actions.Actions = append([]Action(nil), r.Actions.Actions...)
	return &c
}

type ClearActionsInstruction struct{}

func (r *ClearActionsInstruction) Type() uint16 { return InstructionTypeClearActions }
func (r *ClearActionsInstruction) Clone() Instruction {
	c := *r
	return &c
}

// MeterInstruction is parsed only so the rewriter can recognize and reject
// it: a Meter or Experimenter instruction rejects the whole FlowMod.
type MeterInstruction struct {
	MeterID uint32
}

func (r *MeterInstruction) Type() uint16 { return InstructionTypeMeter }
func (r *MeterInstruction) Clone() Instruction {
	c := *r
	return &c
}

type ExperimenterInstruction struct {
	ExperimenterID uint32
	Data           []byte
}

func (r *ExperimenterInstruction) Type() uint16 { return InstructionTypeExperimenter }
func (r *ExperimenterInstruction) Clone() Instruction {
	c := *r
	c.Data = append([]byte(nil), r.Data...)
	return &c
}

// InstructionSet is the ordered set of instructions attached to a FlowMod.
type InstructionSet struct {
	Instructions []Instruction
}

func (r *InstructionSet) Add(i Instruction) {
	r.Instructions = append(r.Instructions, i)
}

func (r *InstructionSet) Get(t uint16) (Instruction, bool) {
	for _, i := range r.Instructions {
		if i.Type() == t {
			return i, true
		}
	}
	return nil, false
}
