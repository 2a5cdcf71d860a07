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

// OpenFlow 1.3 message type codes (ofp_type), exported so the connection
// core (the transceiver package) can gate and dispatch on the raw wire
// type byte.
const (
	OFPT_HELLO             uint8 = 0
	OFPT_ERROR             uint8 = 1
	OFPT_ECHO_REQUEST      uint8 = 2
	OFPT_ECHO_REPLY        uint8 = 3
	OFPT_FEATURES_REQUEST  uint8 = 5
	OFPT_FEATURES_REPLY    uint8 = 6
	OFPT_GET_CONFIG_REQUEST uint8 = 7
	OFPT_GET_CONFIG_REPLY  uint8 = 8
	OFPT_SET_CONFIG        uint8 = 9
	OFPT_PACKET_IN         uint8 = 10
	OFPT_FLOW_REMOVED      uint8 = 11
	OFPT_PORT_STATUS       uint8 = 12
	OFPT_PACKET_OUT        uint8 = 13
	OFPT_FLOW_MOD          uint8 = 14
	OFPT_GROUP_MOD         uint8 = 15
	OFPT_METER_MOD         uint8 = 29
	OFPT_MULTIPART_REQUEST uint8 = 18
	OFPT_MULTIPART_REPLY   uint8 = 19
	OFPT_BARRIER_REQUEST   uint8 = 20
	OFPT_BARRIER_REPLY     uint8 = 21
)

// Reserved identifiers that have a fixed meaning within this hypervisor's
// own table layout: table ids 0 and 1 are never available to tenants,
// cookie 1 marks a topology-discovery PacketIn and cookies 2/3 mark the
// two error-catch PacketIns, and meter id 0 is never allocated to a slice
// (slice meter ids start at 1).
const (
	IngressTable    uint8 = 0
	ForwardingTable uint8 = 1
	FirstTenantTable uint8 = 2

	CookieDiscovery      uint64 = 1
	CookieErrorTable0    uint64 = 2
	CookieErrorTable1    uint64 = 3

	ReservedMeterID uint32 = 0
)
