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
	MeterCommandAdd    uint16 = 0
	MeterCommandModify uint16 = 1
	MeterCommandDelete uint16 = 2

	MeterFlagPKTPS uint16 = 1 << 0

	MeterBandTypeDrop uint16 = 1
)

type MeterBand struct {
	Type      uint16
	Rate      uint32
	BurstSize uint32
}

type MeterMod interface {
	Header
	Command() uint16
	SetCommand(uint16)
	Flags() uint16
	SetFlags(uint16)
	MeterID() uint32
	SetMeterID(uint32)
	Bands() []MeterBand
	SetBands([]MeterBand)
	encoding.BinaryMarshaler
}

type BaseMeterMod struct {
	Message
	command uint16
	flags   uint16
	meterID uint32
	bands   []MeterBand
}

func (r *BaseMeterMod) Command() uint16      { return r.command }
func (r *BaseMeterMod) SetCommand(v uint16)  { r.command = v }
func (r *BaseMeterMod) Flags() uint16        { return r.flags }
func (r *BaseMeterMod) SetFlags(v uint16)    { r.flags = v }
func (r *BaseMeterMod) MeterID() uint32      { return r.meterID }
func (r *BaseMeterMod) SetMeterID(v uint32)  { r.meterID = v }
func (r *BaseMeterMod) Bands() []MeterBand   { return r.bands }
func (r *BaseMeterMod) SetBands(b []MeterBand) { r.bands = b }

type MultipartReplyMeterFeatures interface {
	Header
	MaxMeter() uint32
	BandTypes() uint32
	encoding.BinaryUnmarshaler
}

type BaseMultipartReplyMeterFeatures struct {
	Message
	maxMeter  uint32
	bandTypes uint32
}

func (r *BaseMultipartReplyMeterFeatures) MaxMeter() uint32  { return r.maxMeter }
func (r *BaseMultipartReplyMeterFeatures) BandTypes() uint32 { return r.bandTypes }

func (r *BaseMultipartReplyMeterFeatures) SetMaxMeter(v uint32)  { r.maxMeter = v }
func (r *BaseMultipartReplyMeterFeatures) SetBandTypes(v uint32) { r.bandTypes = v }
