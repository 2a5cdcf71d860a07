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

import "encoding/binary"

// OXM field types the hypervisor understands. Unrecognized fields are kept
// as opaque bytes and passed through untouched.
const (
	OXMTypeInPort   uint8 = 0
	OXMTypeMetadata uint8 = 1
	OXMTypeVLANVID  uint8 = 2
	OXMTypeEthType  uint8 = 3
)

const (
	OFPP_CONTROLLER uint32 = 0xfffffffd
	OFPP_ANY        uint32 = 0xffffffff
	OFPP_FLOOD      uint32 = 0xfffffffb
)

// OXMField is one match-field TLV. The hypervisor only needs to introspect
// and rewrite in-port, metadata, and VLAN-VID fields; everything else is
// preserved as opaque payload bytes.
type OXMField struct {
	Type  uint8
	Value []byte
	Mask  []byte // nil when the field carries no mask
}

// Match is an ordered set of OXM fields, mirroring fluid_msg's match object
// without caring about the exact OXM wire framing.
type Match struct {
	Fields []OXMField
}

func NewMatch() *Match {
	return &Match{}
}

func (r *Match) Add(f OXMField) {
	r.Fields = append(r.Fields, f)
}

// Field returns the first field of the given type, if any.
func (r *Match) Field(t uint8) (OXMField, bool) {
	for _, f := range r.Fields {
		if f.Type == t {
			return f, true
		}
	}
	return OXMField{}, false
}

// Remove drops every field of the given type from the match.
func (r *Match) Remove(t uint8) {
	out := r.Fields[:0]
	for _, f := range r.Fields {
		if f.Type != t {
			out = append(out, f)
		}
	}
	r.Fields = out
}

func InPortField(port uint32) OXMField {
	v := make([]byte, 4)
	binary.BigEndian.PutUint32(v, port)
	return OXMField{Type: OXMTypeInPort, Value: v}
}

func (r OXMField) AsInPort() (uint32, bool) {
	if r.Type != OXMTypeInPort || len(r.Value) != 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(r.Value), true
}

func MetadataField(v uint64) OXMField {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return OXMField{Type: OXMTypeMetadata, Value: b}
}

func (r OXMField) AsMetadata() (uint64, bool) {
	if r.Type != OXMTypeMetadata || len(r.Value) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(r.Value), true
}

func EthTypeField(ethType uint16) OXMField {
	v := make([]byte, 2)
	binary.BigEndian.PutUint16(v, ethType)
	return OXMField{Type: OXMTypeEthType, Value: v}
}

func (r OXMField) AsEthType() (uint16, bool) {
	if r.Type != OXMTypeEthType || len(r.Value) != 2 {
		return 0, false
	}
	return binary.BigEndian.Uint16(r.Value), true
}

func VLANVIDField(vid uint16) OXMField {
	v := make([]byte, 2)
	binary.BigEndian.PutUint16(v, vid)
	return OXMField{Type: OXMTypeVLANVID, Value: v}
}

func (r OXMField) AsVLANVID() (uint16, bool) {
	if r.Type != OXMTypeVLANVID || len(r.Value) != 2 {
		return 0, false
	}
	return binary.BigEndian.Uint16(r.Value), true
}
