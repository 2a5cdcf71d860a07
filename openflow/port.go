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
	PortReasonAdd    uint8 = 0
	PortReasonDelete uint8 = 1
	PortReasonModify uint8 = 2
)

// Port mirrors the OFPT_PORT structure: a switch-local port number plus its
// advertised state.
type Port struct {
	PortNo uint32
	HWAddr [6]byte
	Name   string
	Config uint32
	State  uint32
}

type PortStatus interface {
	Header
	Reason() uint8
	SetReason(uint8)
	Desc() Port
	SetDesc(Port)
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

type BasePortStatus struct {
	Message
	reason uint8
	desc   Port
}

func (r *BasePortStatus) Reason() uint8      { return r.reason }
func (r *BasePortStatus) SetReason(v uint8)  { r.reason = v }
func (r *BasePortStatus) Desc() Port         { return r.desc }
func (r *BasePortStatus) SetDesc(p Port)     { r.desc = p }
