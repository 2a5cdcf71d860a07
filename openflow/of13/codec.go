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

// Package of13 is the concrete OpenFlow 1.3 wire codec: it marshals and
// unmarshals the openflow package's version-agnostic message types. The
// encodings for match fields, actions, and instructions are
// self-delimiting (count- and length-prefixed) rather than the exact
// ofp_oxm bit-packing of the OpenFlow 1.3 standard, since the rest of
// this module only ever talks to itself through this codec.
package of13

import (
	"encoding/binary"

	"github.com/flowvisor/hypervisor/openflow"
)

func marshalOXM(f openflow.OXMField) []byte {
	v := []byte{f.Type}
	vlen := make([]byte, 2)
	binary.BigEndian.PutUint16(vlen, uint16(len(f.Value)))
	v = append(v, vlen...)
	v = append(v, f.Value...)
	if f.Mask == nil {
		v = append(v, 0)
	} else {
		v = append(v, 1)
		mlen := make([]byte, 2)
		binary.BigEndian.PutUint16(mlen, uint16(len(f.Mask)))
		v = append(v, mlen...)
		v = append(v, f.Mask...)
	}
	return v
}

func unmarshalOXM(data []byte) (openflow.OXMField, int, error) {
	if len(data) < 3 {
		return openflow.OXMField{}, 0, openflow.ErrInvalidPacketLength
	}
	f := openflow.OXMField{Type: data[0]}
	vlen := int(binary.BigEndian.Uint16(data[1:3]))
	off := 3
	if len(data) < off+vlen+1 {
		return openflow.OXMField{}, 0, openflow.ErrInvalidPacketLength
	}
	f.Value = append([]byte(nil), data[off:off+vlen]...)
	off += vlen
	hasMask := data[off]
	off++
	if hasMask == 1 {
		if len(data) < off+2 {
			return openflow.OXMField{}, 0, openflow.ErrInvalidPacketLength
		}
		mlen := int(binary.BigEndian.Uint16(data[off : off+2]))
		off += 2
		if len(data) < off+mlen {
			return openflow.OXMField{}, 0, openflow.ErrInvalidPacketLength
		}
		f.Mask = append([]byte(nil), data[off:off+mlen]...)
		off += mlen
	}
	return f, off, nil
}

func marshalMatch(m *openflow.Match) []byte {
	v := make([]byte, 2)
	binary.BigEndian.PutUint16(v, uint16(len(m.Fields)))
	for _, f := range m.Fields {
		v = append(v, marshalOXM(f)...)
	}
	return v
}

func unmarshalMatch(data []byte) (openflow.Match, int, error) {
	if len(data) < 2 {
		return openflow.Match{}, 0, openflow.ErrInvalidPacketLength
	}
	count := int(binary.BigEndian.Uint16(data[0:2]))
	off := 2
	m := openflow.Match{}
	for i := 0; i < count; i++ {
		f, n, err := unmarshalOXM(data[off:])
		if err != nil {
			return openflow.Match{}, 0, err
		}
		m.Add(f)
		off += n
	}
	return m, off, nil
}

func marshalAction(a openflow.Action) []byte {
	var body []byte
	switch act := a.(type) {
	case *openflow.OutputAction:
		body = make([]byte, 6)
		binary.BigEndian.PutUint32(body[0:4], act.Port)
		binary.BigEndian.PutUint16(body[4:6], act.MaxLen)
	case *openflow.GroupAction:
		body = make([]byte, 4)
		binary.BigEndian.PutUint32(body, act.GroupID)
	case *openflow.SetQueueAction:
		body = make([]byte, 4)
		binary.BigEndian.PutUint32(body, act.QueueID)
	case *openflow.PushVLANAction:
		body = make([]byte, 2)
		binary.BigEndian.PutUint16(body, act.EtherType)
	case *openflow.PopVLANAction:
		body = nil
	case *openflow.SetFieldAction:
		body = marshalOXM(act.Field)
	default:
		body = nil
	}

	v := make([]byte, 4)
	binary.BigEndian.PutUint16(v[0:2], a.Type())
	binary.BigEndian.PutUint16(v[2:4], uint16(len(body)))
	return append(v, body...)
}

func unmarshalAction(data []byte) (openflow.Action, int, error) {
	if len(data) < 4 {
		return nil, 0, openflow.ErrInvalidPacketLength
	}
	t := binary.BigEndian.Uint16(data[0:2])
	blen := int(binary.BigEndian.Uint16(data[2:4]))
	off := 4
	if len(data) < off+blen {
		return nil, 0, openflow.ErrInvalidPacketLength
	}
	body := data[off : off+blen]
	off += blen

	switch t {
	case openflow.ActionTypeOutput:
		if len(body) < 6 {
			return nil, 0, openflow.ErrInvalidPacketLength
		}
		return &openflow.OutputAction{
			Port:   binary.BigEndian.Uint32(body[0:4]),
			MaxLen: binary.BigEndian.Uint16(body[4:6]),
		}, off, nil
	case openflow.ActionTypeGroup:
		if len(body) < 4 {
			return nil, 0, openflow.ErrInvalidPacketLength
		}
		return &openflow.GroupAction{GroupID: binary.BigEndian.Uint32(body)}, off, nil
	case openflow.ActionTypeSetQueue:
		if len(body) < 4 {
			return nil, 0, openflow.ErrInvalidPacketLength
		}
		return &openflow.SetQueueAction{QueueID: binary.BigEndian.Uint32(body)}, off, nil
	case openflow.ActionTypePushVLAN:
		if len(body) < 2 {
			return nil, 0, openflow.ErrInvalidPacketLength
		}
		return &openflow.PushVLANAction{EtherType: binary.BigEndian.Uint16(body)}, off, nil
	case openflow.ActionTypePopVLAN:
		return &openflow.PopVLANAction{}, off, nil
	case openflow.ActionTypeSetField:
		f, _, err := unmarshalOXM(body)
		if err != nil {
			return nil, 0, err
		}
		return &openflow.SetFieldAction{Field: f}, off, nil
	default:
		return nil, 0, openflow.ErrInvalidMessageType
	}
}

func marshalActionList(l *openflow.ActionList) []byte {
	v := make([]byte, 2)
	binary.BigEndian.PutUint16(v, uint16(len(l.Actions)))
	for _, a := range l.Actions {
		v = append(v, marshalAction(a)...)
	}
	return v
}

func unmarshalActionList(data []byte) (openflow.ActionList, int, error) {
	if len(data) < 2 {
		return openflow.ActionList{}, 0, openflow.ErrInvalidPacketLength
	}
	count := int(binary.BigEndian.Uint16(data[0:2]))
	off := 2
	l := openflow.ActionList{}
	for i := 0; i < count; i++ {
		a, n, err := unmarshalAction(data[off:])
		if err != nil {
			return openflow.ActionList{}, 0, err
		}
		l.Add(a)
		off += n
	}
	return l, off, nil
}

func marshalActionSet(s *openflow.ActionSet) []byte {
	l := openflow.ActionList{Actions: s.Actions}
	return marshalActionList(&l)
}

func unmarshalActionSet(data []byte) (openflow.ActionSet, int, error) {
	l, n, err := unmarshalActionList(data)
	if err != nil {
		return openflow.ActionSet{}, 0, err
	}
	return openflow.ActionSet{Actions: l.Actions}, n, nil
}

func marshalInstruction(i openflow.Instruction) []byte {
	var body []byte
	switch ins := i.(type) {
	case *openflow.GoToTableInstruction:
		body = []byte{ins.TableID}
	case *openflow.WriteMetadataInstruction:
		body = make([]byte, 16)
		binary.BigEndian.PutUint64(body[0:8], ins.Metadata)
		binary.BigEndian.PutUint64(body[8:16], ins.MetadataMask)
	case *openflow.WriteActionsInstruction:
		body = marshalActionSet(&ins.Actions)
	case *openflow.ApplyActionsInstruction:
		body = marshalActionList(&ins.Actions)
	case *openflow.ClearActionsInstruction:
		body = nil
	case *openflow.MeterInstruction:
		body = make([]byte, 4)
		binary.BigEndian.PutUint32(body, ins.MeterID)
	case *openflow.ExperimenterInstruction:
		body = make([]byte, 4)
		binary.BigEndian.PutUint32(body, ins.ExperimenterID)
		body = append(body, ins.Data...)
	}

	v := make([]byte, 4)
	binary.BigEndian.PutUint16(v[0:2], i.Type())
	binary.BigEndian.PutUint16(v[2:4], uint16(len(body)))
	return append(v, body...)
}

func unmarshalInstruction(data []byte) (openflow.Instruction, int, error) {
	if len(data) < 4 {
		return nil, 0, openflow.ErrInvalidPacketLength
	}
	t := binary.BigEndian.Uint16(data[0:2])
	blen := int(binary.BigEndian.Uint16(data[2:4]))
	off := 4
	if len(data) < off+blen {
		return nil, 0, openflow.ErrInvalidPacketLength
	}
	body := data[off : off+blen]
	off += blen

	switch t {
	case openflow.InstructionTypeGoToTable:
		if len(body) < 1 {
			return nil, 0, openflow.ErrInvalidPacketLength
		}
		return &openflow.GoToTableInstruction{TableID: body[0]}, off, nil
	case openflow.InstructionTypeWriteMetadata:
		if len(body) < 16 {
			return nil, 0, openflow.ErrInvalidPacketLength
		}
		return &openflow.WriteMetadataInstruction{
			Metadata:     binary.BigEndian.Uint64(body[0:8]),
			MetadataMask: binary.BigEndian.Uint64(body[8:16]),
		}, off, nil
	case openflow.InstructionTypeWriteActions:
		set, _, err := unmarshalActionSet(body)
		if err != nil {
			return nil, 0, err
		}
		return &openflow.WriteActionsInstruction{Actions: set}, off, nil
	case openflow.InstructionTypeApplyActions:
		list, _, err := unmarshalActionList(body)
		if err != nil {
			return nil, 0, err
		}
		return &openflow.ApplyActionsInstruction{Actions: list}, off, nil
	case openflow.InstructionTypeClearActions:
		return &openflow.ClearActionsInstruction{}, off, nil
	case openflow.InstructionTypeMeter:
		if len(body) < 4 {
			return nil, 0, openflow.ErrInvalidPacketLength
		}
		return &openflow.MeterInstruction{MeterID: binary.BigEndian.Uint32(body)}, off, nil
	case openflow.InstructionTypeExperimenter:
		if len(body) < 4 {
			return nil, 0, openflow.ErrInvalidPacketLength
		}
		return &openflow.ExperimenterInstruction{
			ExperimenterID: binary.BigEndian.Uint32(body[0:4]),
			Data:           append([]byte(nil), body[4:]...),
		}, off, nil
	default:
		return nil, 0, openflow.ErrInvalidMessageType
	}
}

func marshalInstructionSet(s *openflow.InstructionSet) []byte {
	v := make([]byte, 2)
	binary.BigEndian.PutUint16(v, uint16(len(s.Instructions)))
	for _, i := range s.Instructions {
		v = append(v, marshalInstruction(i)...)
	}
	return v
}

func unmarshalInstructionSet(data []byte) (openflow.InstructionSet, int, error) {
	if len(data) < 2 {
		return openflow.InstructionSet{}, 0, openflow.ErrInvalidPacketLength
	}
	count := int(binary.BigEndian.Uint16(data[0:2]))
	off := 2
	s := openflow.InstructionSet{}
	for i := 0; i < count; i++ {
		ins, n, err := unmarshalInstruction(data[off:])
		if err != nil {
			return openflow.InstructionSet{}, 0, err
		}
		s.Add(ins)
		off += n
	}
	return s, off, nil
}

func marshalPort(p openflow.Port) []byte {
	v := make([]byte, 4)
	binary.BigEndian.PutUint32(v, p.PortNo)
	v = append(v, p.HWAddr[:]...)
	nlen := make([]byte, 2)
	binary.BigEndian.PutUint16(nlen, uint16(len(p.Name)))
	v = append(v, nlen...)
	v = append(v, []byte(p.Name)...)
	tail := make([]byte, 8)
	binary.BigEndian.PutUint32(tail[0:4], p.Config)
	binary.BigEndian.PutUint32(tail[4:8], p.State)
	return append(v, tail...)
}

func unmarshalPort(data []byte) (openflow.Port, int, error) {
	if len(data) < 12 {
		return openflow.Port{}, 0, openflow.ErrInvalidPacketLength
	}
	p := openflow.Port{}
	p.PortNo = binary.BigEndian.Uint32(data[0:4])
	copy(p.HWAddr[:], data[4:10])
	nlen := int(binary.BigEndian.Uint16(data[10:12]))
	off := 12
	if len(data) < off+nlen+8 {
		return openflow.Port{}, 0, openflow.ErrInvalidPacketLength
	}
	p.Name = string(data[off : off+nlen])
	off += nlen
	p.Config = binary.BigEndian.Uint32(data[off : off+4])
	p.State = binary.BigEndian.Uint32(data[off+4 : off+8])
	off += 8
	return p, off, nil
}

func putString(v []byte, s string) []byte {
	l := make([]byte, 2)
	binary.BigEndian.PutUint16(l, uint16(len(s)))
	v = append(v, l...)
	return append(v, []byte(s)...)
}

func getString(data []byte) (string, int, error) {
	if len(data) < 2 {
		return "", 0, openflow.ErrInvalidPacketLength
	}
	l := int(binary.BigEndian.Uint16(data[0:2]))
	if len(data) < 2+l {
		return "", 0, openflow.ErrInvalidPacketLength
	}
	return string(data[2 : 2+l]), 2 + l, nil
}
