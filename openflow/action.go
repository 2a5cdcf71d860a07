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

// Action types. Kept to the subset the flow-table engine needs to
// recognize by name when rewriting a tenant's action list/set; anything
// else is passed through untouched.
const (
	ActionTypeOutput   uint16 = 0
	ActionTypeGroup    uint16 = 22
	ActionTypeSetQueue uint16 = 21
	ActionTypePushVLAN uint16 = 17
	ActionTypePopVLAN  uint16 = 18
	ActionTypeSetField uint16 = 25
)

const OFPCML_NO_BUFFER uint16 = 0xffff

// Action is one OpenFlow action. Concrete kinds carry their own fields;
// Type() is used by the rewriter to dispatch without a full type switch
// everywhere.
type Action interface {
	Type() uint16
	Clone() Action
}

type OutputAction struct {
	Port   uint32
	MaxLen uint16
}

func (r *OutputAction) Type() uint16 { return ActionTypeOutput }
func (r *OutputAction) Clone() Action {
	c := *r
	return &c
}

// GroupAction outputs a packet via an indirect (or other) group table
// entry; see openflow/group.go and the physical package's group allocator.
type GroupAction struct {
	GroupID uint32
}

func (r *GroupAction) Type() uint16 { return ActionTypeGroup }
func (r *GroupAction) Clone() Action {
	c := *r
	return &c
}

type SetQueueAction struct {
	QueueID uint32
}

func (r *SetQueueAction) Type() uint16 { return ActionTypeSetQueue }
func (r *SetQueueAction) Clone() Action {
	c := *r
	return &c
}

type PushVLANAction struct {
	EtherType uint16
}

func (r *PushVLANAction) Type() uint16 { return ActionTypePushVLAN }
func (r *PushVLANAction) Clone() Action {
	c := *r
	return &c
}

type PopVLANAction struct{}

func (r *PopVLANAction) Type() uint16 { return ActionTypePopVLAN }
func (r *PopVLANAction) Clone() Action {
	c := *r
	return &c
}

// SetFieldAction carries a single OXM field, used by the tag codec to
// write a PortVLANTag/SwitchVLANTag VLAN-VID onto a packet.
type SetFieldAction struct {
	Field OXMField
}

func (r *SetFieldAction) Type() uint16 { return ActionTypeSetField }
func (r *SetFieldAction) Clone() Action {
	c := *r
	return &c
}

// ActionList is an ordered, duplicates-allowed action list (used by
// Apply-Actions instructions).
type ActionList struct {
	Actions []Action
}

func (r *ActionList) Add(a Action) {
	r.Actions = append(r.Actions, a)
}

// ActionSet is the action set used by Write-Actions instructions. OpenFlow
// defines at most one action per type in a set; Add does not enforce that
// and appends every action, duplicates included.
type ActionSet struct {
	Actions []Action
}

func (r *ActionSet) Add(a Action) {
	r.Actions = append(r.Actions, a)
}
