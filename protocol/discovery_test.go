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

package protocol

import (
	"net"
	"testing"
)

func TestDiscoveryFrameRoundTrip(t *testing.T) {
	want := DiscoveryFrame{
		SenderDatapathID: 0x0102030405060708,
		SenderPort:       7,
		SendTimestamp:    1717171717,
	}

	data, err := want.MarshalBinary()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got DiscoveryFrame
	if err := got.UnmarshalBinary(data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Fatalf("got=%+v, want=%+v", got, want)
	}
}

func TestDiscoveryEthernetFrameRoundTrip(t *testing.T) {
	srcMAC := net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	frame := DiscoveryFrame{SenderDatapathID: 42, SenderPort: 3, SendTimestamp: 99}

	data, err := NewDiscoveryEthernetFrame(srcMAC, frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var eth Ethernet
	if err := eth.UnmarshalBinary(data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eth.Type != DiscoveryEtherType {
		t.Fatalf("unexpected ethertype: got=%#x, want=%#x", eth.Type, DiscoveryEtherType)
	}

	var got DiscoveryFrame
	if err := got.UnmarshalBinary(eth.Payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != frame {
		t.Fatalf("got=%+v, want=%+v", got, frame)
	}
}
