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
	"encoding/binary"
	"errors"
	"net"
)

// discoveryDstMAC is a locally-scoped multicast address, the same address
// class real LLDP uses, so discovery frames are never forwarded past a
// directly-attached link by a switch that doesn't recognize the EtherType.
var discoveryDstMAC = net.HardwareAddr{0x01, 0x80, 0xC2, 0x00, 0x00, 0x0E}

// NewDiscoveryEthernetFrame wraps a DiscoveryFrame in an Ethernet frame
// ready to be sent as a PacketOut's data, mirroring newLLDPEtherFrame's
// shape but with the hypervisor's own EtherType and TLV.
func NewDiscoveryEthernetFrame(srcMAC net.HardwareAddr, frame DiscoveryFrame) ([]byte, error) {
	payload, err := frame.MarshalBinary()
	if err != nil {
		return nil, err
	}

	eth := Ethernet{
		SrcMAC:  srcMAC,
		DstMAC:  discoveryDstMAC,
		Type:    DiscoveryEtherType,
		Payload: payload,
	}

	return eth.MarshalBinary()
}

// DiscoveryEtherType is the proprietary EtherType the hypervisor crafts its
// topology-discovery frames with, distinct from real LLDP's 0x88CC so a
// discovery frame can never be mistaken for one sent by a genuine neighbor.
const DiscoveryEtherType uint16 = 0x8942

// DiscoveryFrame is the reserved payload of a topology-discovery frame: the
// sender's datapath id, the local port it was sent from, and the send-side
// timestamp (nanoseconds since epoch), used by the receiving physical
// switch to upsert a discovered link.
type DiscoveryFrame struct {
	SenderDatapathID uint64
	SenderPort       uint32
	SendTimestamp    uint64
}

func (r DiscoveryFrame) MarshalBinary() ([]byte, error) {
	v := make([]byte, 20)
	binary.BigEndian.PutUint64(v[0:8], r.SenderDatapathID)
	binary.BigEndian.PutUint32(v[8:12], r.SenderPort)
	binary.BigEndian.PutUint64(v[12:20], r.SendTimestamp)

	return v, nil
}

func (r *DiscoveryFrame) UnmarshalBinary(data []byte) error {
	if len(data) < 20 {
		return errors.New("invalid discovery frame length")
	}

	r.SenderDatapathID = binary.BigEndian.Uint64(data[0:8])
	r.SenderPort = binary.BigEndian.Uint32(data[8:12])
	r.SendTimestamp = binary.BigEndian.Uint64(data[12:20])

	return nil
}
