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

// Error types and codes used by the hypervisor when it has to reject a
// tenant-issued FlowMod.
const (
	OFPET_BAD_INSTRUCTION uint16 = 3
	OFPET_BAD_ACTION      uint16 = 2

	OFPBIC_UNSUP_INST    uint16 = 1
	OFPBIC_BAD_TABLE_ID  uint16 = 2
	OFPBIC_UNSUP_META    uint16 = 3
	OFPBAC_BAD_OUT_PORT  uint16 = 4
	OFPBAC_UNSUP_ORDER   uint16 = 11
)

type Error interface {
	Header
	Class() uint16 // error type, named Class() to avoid colliding with Header.Type()
	SetClass(uint16)
	Code() uint16
	SetCode(uint16)
	Data() []byte
	SetData([]byte)
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

type BaseError struct {
	Message
	errType uint16
	code    uint16
	data    []byte
}

func (r *BaseError) Class() uint16 {
	return r.errType
}

func (r *BaseError) SetClass(t uint16) {
	r.errType = t
}

func (r *BaseError) Code() uint16 {
	return r.code
}

func (r *BaseError) SetCode(c uint16) {
	r.code = c
}

func (r *BaseError) Data() []byte {
	return r.data
}

func (r *BaseError) SetData(d []byte) {
	r.data = d
}
