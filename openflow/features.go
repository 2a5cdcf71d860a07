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

type FeaturesRequest interface {
	Header
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

type BaseFeaturesRequest struct {
	Message
}

type FeaturesReply interface {
	Header
	DatapathID() uint64
	SetDatapathID(uint64)
	NumBuffers() uint32
	SetNumBuffers(uint32)
	NumTables() uint8
	SetNumTables(uint8)
	Capabilities() uint32
	SetCapabilities(uint32)
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

type BaseFeaturesReply struct {
	Message
	datapathID   uint64
	numBuffers   uint32
	numTables    uint8
	capabilities uint32
}

func (r *BaseFeaturesReply) DatapathID() uint64      { return r.datapathID }
func (r *BaseFeaturesReply) SetDatapathID(v uint64)  { r.datapathID = v }
func (r *BaseFeaturesReply) NumBuffers() uint32      { return r.numBuffers }
func (r *BaseFeaturesReply) SetNumBuffers(v uint32)  { r.numBuffers = v }
func (r *BaseFeaturesReply) NumTables() uint8        { return r.numTables }
func (r *BaseFeaturesReply) SetNumTables(v uint8)    { r.numTables = v }
func (r *BaseFeaturesReply) Capabilities() uint32    { return r.capabilities }
func (r *BaseFeaturesReply) SetCapabilities(v uint32) { r.capabilities = v }
