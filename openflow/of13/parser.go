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

package of13

import (
	"encoding"
	"encoding/binary"

	"github.com/flowvisor/hypervisor/openflow"
)

// Parse reads a single OpenFlow 1.3 message off the wire and returns the
// concrete type whose UnmarshalBinary has already been called. Version
// negotiation down to 1.0 is deliberately unsupported.
func Parse(data []byte) (openflow.Header, error) {
	if len(data) < 8 {
		return nil, openflow.ErrInvalidPacketLength
	}
	if data[0] != openflow.OF13_VERSION {
		return nil, openflow.ErrUnsupportedVersion
	}

	var msg encoding.BinaryUnmarshaler
	switch data[1] {
	case typeHello:
		msg = newHello()
	case typeError:
		msg = newError()
	case typeEchoRequest:
		msg = newEchoRequest()
	case typeEchoReply:
		msg = newEchoReply()
	case typeFeaturesRequest:
		msg = newFeaturesRequest()
	case typeFeaturesReply:
		msg = newFeaturesReply()
	case typeGetConfigRequest:
		msg = newGetConfigRequest()
	case typeGetConfigReply:
		msg = newGetConfigReply()
	case typeSetConfig:
		msg = newSetConfig()
	case typeBarrierRequest:
		msg = newBarrierRequest()
	case typeBarrierReply:
		msg = newBarrierReply()
	case typeFlowMod:
		msg = newFlowMod()
	case typeFlowRemoved:
		msg = newFlowRemoved()
	case typePacketIn:
		msg = newPacketIn()
	case typePacketOut:
		msg = newPacketOut()
	case typePortStatus:
		msg = newPortStatus()
	case typeMultipartRequest:
		msg = newMultipartRequest(0)
	case typeMultipartReply:
		return parseMultipartReply(data)
	default:
		return nil, openflow.ErrInvalidMessageType
	}

	if err := msg.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return msg.(openflow.Header), nil
}

// parseMultipartReply peeks the leading multipart-type prefix that every
// reply's payload carries (see messages.go) to pick the right concrete
// type before unmarshaling.
func parseMultipartReply(data []byte) (openflow.Header, error) {
	if len(data) < 10 {
		return nil, openflow.ErrInvalidPacketLength
	}
	multipartType := binary.BigEndian.Uint16(data[8:10])

	var msg encoding.BinaryUnmarshaler
	switch multipartType {
	case openflow.MultipartTypeDesc:
		msg = newDescReply()
	case openflow.MultipartTypePortDesc:
		msg = newPortDescReply()
	case openflow.MultipartTypeMeterFeat:
		msg = newMeterFeaturesReply()
	case openflow.MultipartTypeGroupFeat:
		msg = newGroupFeaturesReply()
	default:
		return nil, openflow.ErrInvalidMessageType
	}

	if err := msg.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return msg.(openflow.Header), nil
}
