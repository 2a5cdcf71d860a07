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

// Package tag packs and unpacks the bit-field tags the hypervisor threads
// through the OpenFlow metadata pipeline field and the 12-bit VLAN VID to
// carry virtual-switch, slice, and port identity across the physical
// substrate.
package tag

import (
	"errors"

	"github.com/flowvisor/hypervisor/openflow"
)

const (
	// VirtualSwitchIDBits is the compile-time width of the virtual-switch-id
	// subfield packed into the metadata pipeline field, mirroring
	// MetadataTag::num_virtual_switch_bits.
	VirtualSwitchIDBits = 24

	// GroupBits is the width of the group-action-used flag, always 1.
	GroupBits = 1

	// ReservedMetadataBits is 1 (group flag) + VirtualSwitchIDBits; the low
	// bits of every physical-side metadata word are reserved for the
	// hypervisor and forbidden to tenant-supplied WriteMetadata values.
	ReservedMetadataBits = GroupBits + VirtualSwitchIDBits

	// SliceIDBits and PortIDBits split the 12-bit VLAN VID between a slice
	// identifier and a port identifier. 4/8 gives up to 16 slices and 255
	// ports per switch.
	SliceIDBits = 4
	PortIDBits  = 12 - SliceIDBits

	// MaxPortID is the reserved port-id sentinel meaning "packet arrived via
	// a shared link, consult metadata."
	MaxPortID = 1<<PortIDBits - 1

	vlanVIDMask   = 1<<12 - 1
	sliceIDMask   = 1<<SliceIDBits - 1
	portIDMask    = 1<<PortIDBits - 1
	vswitchIDMask = 1<<VirtualSwitchIDBits - 1
)

var ErrReservedMetadataBits = errors.New("tag: write-metadata uses reserved bits")

// MetadataTag is the bit layout of the OpenFlow metadata pipeline field:
// bit 0 is the group-action-used flag, the next VirtualSwitchIDBits bits
// hold the virtual switch id, the remainder is reserved for tenant use.
type MetadataTag struct {
	Group           bool
	VirtualSwitchID uint32
}

// Encode packs the tag into the low ReservedMetadataBits bits of a metadata
// value; any tenant-owned bits above that are left as zero.
func (t MetadataTag) Encode() uint64 {
	v := uint64(t.VirtualSwitchID&vswitchIDMask) << GroupBits
	if t.Group {
		v |= 1
	}
	return v
}

func DecodeMetadataTag(v uint64) MetadataTag {
	return MetadataTag{
		Group:           v&1 != 0,
		VirtualSwitchID: uint32((v >> GroupBits) & vswitchIDMask),
	}
}

// AddToInstruction ORs this tag into an existing WriteMetadata instruction's
// value and mask. The mask covers the whole reserved field, so this is only
// for the table-0 classify rules that establish the tag; a tenant-table
// rule that toggles the group bit must mask bit 0 alone or it would zero
// the virtual-switch id alongside it.
func (t MetadataTag) AddToInstruction(i *openflow.WriteMetadataInstruction) {
	i.Metadata |= t.Encode()
	i.MetadataMask |= uint64(1)<<ReservedMetadataBits - 1
}

// ShiftWriteMetadata rewrites a tenant-supplied WriteMetadata(value, mask)
// into physical-side values by shifting both left by ReservedMetadataBits,
// after rejecting a mask that uses any of the top ReservedMetadataBits bits
// of the 64-bit word (those bits would be shifted out and silently lost).
func ShiftWriteMetadata(value, mask uint64) (shiftedValue, shiftedMask uint64, err error) {
	reserved := (uint64(1)<<ReservedMetadataBits - 1) << (64 - ReservedMetadataBits)
	if mask&reserved != 0 {
		return 0, 0, ErrReservedMetadataBits
	}
	return value << ReservedMetadataBits, mask << ReservedMetadataBits, nil
}

// UnshiftWriteMetadata reverses ShiftWriteMetadata, recovering the
// tenant's original value and mask.
func UnshiftWriteMetadata(value, mask uint64) (origValue, origMask uint64) {
	return value >> ReservedMetadataBits, mask >> ReservedMetadataBits
}

// PortVLANTag packs a slice id and a local port id into the 12-bit VLAN
// VID used on the substrate side of a shared link.
type PortVLANTag struct {
	SliceID uint16
	PortID  uint16
}

func (t PortVLANTag) Encode() uint16 {
	return (t.SliceID&sliceIDMask)<<PortIDBits | (t.PortID & portIDMask)
}

func DecodePortVLANTag(vid uint16) PortVLANTag {
	vid &= vlanVIDMask
	return PortVLANTag{
		SliceID: (vid >> PortIDBits) & sliceIDMask,
		PortID:  vid & portIDMask,
	}
}

func (t PortVLANTag) AddToMatch(m *openflow.Match) {
	m.Add(openflow.VLANVIDField(t.Encode()))
}

func (t PortVLANTag) AddToActions(s *openflow.ActionSet) {
	s.Add(&openflow.SetFieldAction{Field: openflow.VLANVIDField(t.Encode())})
}

// SwitchVLANTag packs a switch id into the 12-bit VLAN VID used for
// multi-hop inter-switch forwarding on table 1.
type SwitchVLANTag struct {
	SwitchID uint16
}

func (t SwitchVLANTag) Encode() uint16 {
	return t.SwitchID & vlanVIDMask
}

func DecodeSwitchVLANTag(vid uint16) SwitchVLANTag {
	return SwitchVLANTag{SwitchID: vid & vlanVIDMask}
}

func (t SwitchVLANTag) AddToMatch(m *openflow.Match) {
	m.Add(openflow.VLANVIDField(t.Encode()))
}

func (t SwitchVLANTag) AddToActions(s *openflow.ActionSet) {
	s.Add(&openflow.SetFieldAction{Field: openflow.VLANVIDField(t.Encode())})
}
