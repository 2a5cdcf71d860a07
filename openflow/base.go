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

// Package openflow defines the version-agnostic vocabulary of OpenFlow
// messages exchanged by the hypervisor. Only the subset required to speak
// OpenFlow 1.3 to real switches and to tenant controllers is modeled; the
// concrete wire codec lives in the of13 subpackage.
package openflow

import (
	"encoding/binary"
	"errors"
)

const (
	// OF13_VERSION is the only wire version this hypervisor negotiates.
	OF13_VERSION uint8 = 0x04
)

var (
	ErrInvalidPacketLength = errors.New("invalid packet length")
	ErrUnsupportedVersion  = errors.New("unsupported openflow version")
	ErrInvalidMessageType  = errors.New("invalid message type for this handler")
)

// Header is implemented by every OpenFlow message.
type Header interface {
	Version() uint8
	Type() uint8
	TransactionID() uint32
	SetTransactionID(xid uint32)
}

// Message is the common 8-byte OpenFlow header plus an opaque payload. It is
// embedded by every concrete message type in the of13 package.
type Message struct {
	version uint8
	msgType uint8
	xid     uint32
	payload []byte
}

func NewMessage(version, msgType uint8) Message {
	return Message{version: version, msgType: msgType}
}

func (r *Message) Version() uint8 {
	return r.version
}

func (r *Message) Type() uint8 {
	return r.msgType
}

func (r *Message) TransactionID() uint32 {
	return r.xid
}

func (r *Message) SetTransactionID(xid uint32) {
	r.xid = xid
}

func (r *Message) SetPayload(payload []byte) {
	r.payload = payload
}

func (r *Message) Payload() []byte {
	if r.payload == nil {
		return nil
	}
	v := make([]byte, len(r.payload))
	copy(v, r.payload)
	return v
}

func (r *Message) MarshalBinary() ([]byte, error) {
	length := 8 + len(r.payload)
	v := make([]byte, length)
	v[0] = r.version
	v[1] = r.msgType
	binary.BigEndian.PutUint16(v[2:4], uint16(length))
	binary.BigEndian.PutUint32(v[4:8], r.xid)
	copy(v[8:], r.payload)

	return v, nil
}

// PeekHeader unmarshals only the 8-byte common header, ignoring any
// message-specific payload. It is used to recover the transaction ID of a
// message this hypervisor does not otherwise know how to decode, so that an
// Error reply can still reference the right request.
func PeekHeader(data []byte) (Header, error) {
	m := &Message{}
	if err := m.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *Message) UnmarshalBinary(data []byte) error {
	if len(data) < 8 {
		return ErrInvalidPacketLength
	}

	r.version = data[0]
	r.msgType = data[1]
	length := binary.BigEndian.Uint16(data[2:4])
	if int(length) < 8 || len(data) < int(length) {
		return ErrInvalidPacketLength
	}
	r.xid = binary.BigEndian.Uint32(data[4:8])
	r.payload = data[8:length]

	return nil
}
