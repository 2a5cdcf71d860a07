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

import "encoding"

const (
	FlowModCommandAdd    uint8 = 0
	FlowModCommandModify uint8 = 1
	FlowModCommandDelete uint8 = 3

	FlowTableAll uint8 = 0xff

	NoBuffer uint32 = 0xffffffff
)

// FlowMod is both the interface exchanged over the wire and the value type
// the physical/virtual packages build up before marshaling.
type FlowMod interface {
	Header
	Command() uint8
	SetCommand(uint8)
	TableID() uint8
	SetTableID(uint8)
	Priority() uint16
	SetPriority(uint16)
	Cookie() uint64
	SetCookie(uint64)
	CookieMask() uint64
	SetCookieMask(uint64)
	BufferID() uint32
	SetBufferID(uint32)
	Match() *Match
	SetMatch(*Match)
	Instructions() *InstructionSet
	SetInstructions(*InstructionSet)
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

type BaseFlowMod struct {
	Message
	command      uint8
	tableID      uint8
	priority     uint16
	cookie       uint64
	cookieMask   uint64
	bufferID     uint32
	match        Match
	instructions InstructionSet
}

func (r *BaseFlowMod) Command() uint8           { return r.command }
func (r *BaseFlowMod) SetCommand(v uint8)       { r.command = v }
func (r *BaseFlowMod) TableID() uint8           { return r.tableID }
func (r *BaseFlowMod) SetTableID(v uint8)       { r.tableID = v }
func (r *BaseFlowMod) Priority() uint16         { return r.priority }
func (r *BaseFlowMod) SetPriority(v uint16)     { r.priority = v }
func (r *BaseFlowMod) Cookie() uint64           { return r.cookie }
func (r *BaseFlowMod) SetCookie(v uint64)       { r.cookie = v }
func (r *BaseFlowMod) CookieMask() uint64       { return r.cookieMask }
func (r *BaseFlowMod) SetCookieMask(v uint64)   { r.cookieMask = v }
func (r *BaseFlowMod) BufferID() uint32         { return r.bufferID }
func (r *BaseFlowMod) SetBufferID(v uint32)     { r.bufferID = v }
func (r *BaseFlowMod) Match() *Match            { return &r.match }
func (r *BaseFlowMod) SetMatch(m *Match)        { r.match = *m }
func (r *BaseFlowMod) Instructions() *InstructionSet     { return &r.instructions }
func (r *BaseFlowMod) SetInstructions(i *InstructionSet) { r.instructions = *i }

type FlowRemoved interface {
	Header
	Cookie() uint64
	Priority() uint16
	Reason() uint8
	TableID() uint8
	Match() *Match
	encoding.BinaryUnmarshaler
}

type BaseFlowRemoved struct {
	Message
	cookie   uint64
	priority uint16
	reason   uint8
	tableID  uint8
	match    Match
}

func (r *BaseFlowRemoved) Cookie() uint64   { return r.cookie }
func (r *BaseFlowRemoved) Priority() uint16 { return r.priority }
func (r *BaseFlowRemoved) Reason() uint8    { return r.reason }
func (r *BaseFlowRemoved) TableID() uint8   { return r.tableID }
func (r *BaseFlowRemoved) Match() *Match    { return &r.match }

func (r *BaseFlowRemoved) SetCookie(v uint64)   { r.cookie = v }
func (r *BaseFlowRemoved) SetPriority(v uint16) { r.priority = v }
func (r *BaseFlowRemoved) SetReason(v uint8)    { r.reason = v }
func (r *BaseFlowRemoved) SetTableID(v uint8)   { r.tableID = v }
func (r *BaseFlowRemoved) SetMatch(m *Match)    { r.match = *m }
