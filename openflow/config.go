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

type GetConfigRequest interface {
	Header
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

type BaseGetConfigRequest struct {
	Message
}

type GetConfigReply interface {
	Header
	Flags() uint16
	SetFlags(uint16)
	MissSendLen() uint16
	SetMissSendLen(uint16)
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

type BaseGetConfigReply struct {
	Message
	flags       uint16
	missSendLen uint16
}

func (r *BaseGetConfigReply) Flags() uint16          { return r.flags }
func (r *BaseGetConfigReply) SetFlags(v uint16)      { r.flags = v }
func (r *BaseGetConfigReply) MissSendLen() uint16     { return r.missSendLen }
func (r *BaseGetConfigReply) SetMissSendLen(v uint16) { r.missSendLen = v }

type SetConfig interface {
	Header
	Flags() uint16
	SetFlags(uint16)
	MissSendLen() uint16
	SetMissSendLen(uint16)
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

type BaseSetConfig struct {
	Message
	flags       uint16
	missSendLen uint16
}

func (r *BaseSetConfig) Flags() uint16       { return r.flags }
func (r *BaseSetConfig) MissSendLen() uint16 { return r.missSendLen }

func (r *BaseSetConfig) SetFlags(v uint16)       { r.flags = v }
func (r *BaseSetConfig) SetMissSendLen(v uint16) { r.missSendLen = v }
