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

type PacketIn interface {
	Header
	BufferID() uint32
	SetBufferID(uint32)
	TableID() uint8
	SetTableID(uint8)
	Cookie() uint64
	SetCookie(uint64)
	Match() *Match
	SetMatch(*Match)
	Data() []byte
	SetData([]byte)
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

type BasePacketIn struct {
	Message
	bufferID uint32
	tableID  uint8
	cookie   uint64
	match    Match
	data     []byte
}

func (r *BasePacketIn) BufferID() uint32 { return r.bufferID }
func (r *BasePacketIn) TableID() uint8   { return r.tableID }
func (r *BasePacketIn) Cookie() uint64   { return r.cookie }
func (r *BasePacketIn) Match() *Match    { return &r.match }
func (r *BasePacketIn) Data() []byte     { return r.data }

func (r *BasePacketIn) SetBufferID(v uint32) { r.bufferID = v }
func (r *BasePacketIn) SetTableID(v uint8)   { r.tableID = v }
func (r *BasePacketIn) SetCookie(v uint64)   { r.cookie = v }
func (r *BasePacketIn) SetMatch(m *Match)    { r.match = *m }
func (r *BasePacketIn) SetData(d []byte)     { r.data = d }

type PacketOut interface {
	Header
	BufferID() uint32
	SetBufferID(uint32)
	InPort() uint32
	SetInPort(uint32)
	Actions() *ActionList
	SetActions(*ActionList)
	Data() []byte
	SetData([]byte)
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

type BasePacketOut struct {
	Message
	bufferID uint32
	inPort   uint32
	actions  ActionList
	data     []byte
}

func (r *BasePacketOut) BufferID() uint32        { return r.bufferID }
func (r *BasePacketOut) SetBufferID(v uint32)    { r.bufferID = v }
func (r *BasePacketOut) InPort() uint32          { return r.inPort }
func (r *BasePacketOut) SetInPort(v uint32)      { r.inPort = v }
func (r *BasePacketOut) Actions() *ActionList    { return &r.actions }
func (r *BasePacketOut) SetActions(a *ActionList) { r.actions = *a }
func (r *BasePacketOut) Data() []byte            { return r.data }
func (r *BasePacketOut) SetData(d []byte)        { r.data = d }
