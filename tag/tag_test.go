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

package tag

import (
	"testing"

	"github.com/flowvisor/hypervisor/openflow"
	"github.com/google/go-cmp/cmp"
)

func TestMetadataTagRoundTrip(t *testing.T) {
	cases := []MetadataTag{
		{Group: false, VirtualSwitchID: 0},
		{Group: true, VirtualSwitchID: 1},
		{Group: true, VirtualSwitchID: 1<<VirtualSwitchIDBits - 1},
		{Group: false, VirtualSwitchID: 12345},
	}

	for _, want := range cases {
		got := DecodeMetadataTag(want.Encode())
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("metadata tag round-trip mismatch (-want +got):\n%v", diff)
		}
	}
}

func TestPortVLANTagRoundTrip(t *testing.T) {
	cases := []PortVLANTag{
		{SliceID: 0, PortID: 0},
		{SliceID: 1, PortID: MaxPortID},
		{SliceID: 1<<SliceIDBits - 1, PortID: 7},
	}

	for _, want := range cases {
		got := DecodePortVLANTag(want.Encode())
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("port vlan tag round-trip mismatch (-want +got):\n%v", diff)
		}
	}
}

func TestSwitchVLANTagRoundTrip(t *testing.T) {
	cases := []SwitchVLANTag{
		{SwitchID: 0},
		{SwitchID: 4095},
		{SwitchID: 42},
	}

	for _, want := range cases {
		got := DecodeSwitchVLANTag(want.Encode())
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("switch vlan tag round-trip mismatch (-want +got):\n%v", diff)
		}
	}
}

func TestShiftWriteMetadataRoundTrip(t *testing.T) {
	value, mask := uint64(0x1234), uint64(0xffff)

	shiftedValue, shiftedMask, err := ShiftWriteMetadata(value, mask)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	origValue, origMask := UnshiftWriteMetadata(shiftedValue, shiftedMask)
	if origValue != value || origMask != mask {
		t.Fatalf("write-metadata round-trip mismatch: value=%v (want %v), mask=%v (want %v)", origValue, value, origMask, mask)
	}
}

func TestShiftWriteMetadataRejectsReservedBits(t *testing.T) {
	reserved := (uint64(1)<<ReservedMetadataBits - 1) << (64 - ReservedMetadataBits)

	if _, _, err := ShiftWriteMetadata(0, reserved); err != ErrReservedMetadataBits {
		t.Fatalf("expected ErrReservedMetadataBits, got %v", err)
	}
}

func TestMetadataTagAddToInstruction(t *testing.T) {
	tg := MetadataTag{Group: true, VirtualSwitchID: 7}

	inst := &openflow.WriteMetadataInstruction{}
	tg.AddToInstruction(inst)

	if got := DecodeMetadataTag(inst.Metadata); !cmp.Equal(got, tg) {
		t.Fatalf("unexpected decoded tag: %+v, want %+v", got, tg)
	}
	if inst.MetadataMask&1 == 0 {
		t.Fatalf("expected group bit to be set in the mask")
	}
}
