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
	GroupCommandAdd    uint16 = 0
	GroupCommandModify uint16 = 1
	GroupCommandDelete uint16 = 2

	// GroupTypeIndirect is the only group type the flow-table engine
	// installs.
	GroupTypeIndirect uint8 = 2
	GroupTypeAll      uint8 = 0

	GroupCapabilityAll      uint32 = 1 << GroupTypeAll
	GroupCapabilityIndirect uint32 = 1 << GroupTypeIndirect
)

// Bucket is a single group bucket; an indirect group has exactly one.
type Bucket struct {
	Actions ActionList
}

type GroupMod interface {
	Header
	Command() uint16
	SetCommand(uint16)
	GroupType() uint8
	SetGroupType(uint8)
	GroupID() uint32
	SetGroupID(uint32)
	Buckets() []Bucket
	SetBuckets([]Bucket)
	encoding.BinaryMarshaler
}

type BaseGroupMod struct {
	Message
	command   uint16
	groupType uint8
	groupID   uint32
	buckets   []Bucket
}

func (r *BaseGroupMod) Command() uint16       { return r.command }
func (r *BaseGroupMod) SetCommand(v uint16)   { r.command = v }
func (r *BaseGroupMod) GroupType() uint8      { return r.groupType }
func (r *BaseGroupMod) SetGroupType(v uint8)  { r.groupType = v }
func (r *BaseGroupMod) GroupID() uint32       { return r.groupID }
func (r *BaseGroupMod) SetGroupID(v uint32)   { r.groupID = v }
func (r *BaseGroupMod) Buckets() []Bucket     { return r.buckets }
func (r *BaseGroupMod) SetBuckets(b []Bucket) { r.buckets = b }

type MultipartReplyGroupFeatures interface {
	Header
	Types() uint32
	Capabilities() uint32
	encoding.BinaryUnmarshaler
}

type BaseMultipartReplyGroupFeatures struct {
	Message
	types        uint32
	capabilities uint32
}

func (r *BaseMultipartReplyGroupFeatures) Types() uint32        { return r.types }
func (r *BaseMultipartReplyGroupFeatures) Capabilities() uint32 { return r.capabilities }

func (r *BaseMultipartReplyGroupFeatures) SetTypes(v uint32)        { r.types = v }
func (r *BaseMultipartReplyGroupFeatures) SetCapabilities(v uint32) { r.capabilities = v }
