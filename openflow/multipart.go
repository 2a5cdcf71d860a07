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
	MultipartTypeDesc       uint16 = 0
	MultipartTypePortDesc   uint16 = 13
	MultipartTypeMeterFeat  uint16 = 11
	MultipartTypeGroupFeat  uint16 = 8
)

type MultipartRequest interface {
	Header
	MultipartType() uint16
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

type BaseMultipartRequest struct {
	Message
	multipartType uint16
}

func (r *BaseMultipartRequest) MultipartType() uint16     { return r.multipartType }
func (r *BaseMultipartRequest) SetMultipartType(v uint16) { r.multipartType = v }

type DescReply interface {
	Header
	MfrDesc() string
	HWDesc() string
	SWDesc() string
	SerialNum() string
	encoding.BinaryUnmarshaler
}

type BaseDescReply struct {
	Message
	mfrDesc   string
	hwDesc    string
	swDesc    string
	serialNum string
}

func (r *BaseDescReply) MfrDesc() string   { return r.mfrDesc }
func (r *BaseDescReply) HWDesc() string    { return r.hwDesc }
func (r *BaseDescReply) SWDesc() string    { return r.swDesc }
func (r *BaseDescReply) SerialNum() string { return r.serialNum }

func (r *BaseDescReply) SetMfrDesc(v string)   { r.mfrDesc = v }
func (r *BaseDescReply) SetHWDesc(v string)    { r.hwDesc = v }
func (r *BaseDescReply) SetSWDesc(v string)    { r.swDesc = v }
func (r *BaseDescReply) SetSerialNum(v string) { r.serialNum = v }

type PortDescReply interface {
	Header
	Ports() []Port
	SetPorts([]Port)
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

type BasePortDescReply struct {
	Message
	ports []Port
}

func (r *BasePortDescReply) Ports() []Port        { return r.ports }
func (r *BasePortDescReply) SetPorts(p []Port)    { r.ports = p }
