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

// Factory constructs empty wire messages of a single OpenFlow version. The
// only implementation shipped is of13.NewFactory(); the interface exists so
// that the connection core (the transceiver package) does not import of13
// directly.
type Factory interface {
	NewHello() (Hello, error)
	NewEchoRequest() (EchoRequest, error)
	NewEchoReply() (EchoReply, error)
	NewError() (Error, error)
	NewFeaturesRequest() (FeaturesRequest, error)
	NewFeaturesReply() (FeaturesReply, error)
	NewGetConfigRequest() (GetConfigRequest, error)
	NewGetConfigReply() (GetConfigReply, error)
	NewSetConfig() (SetConfig, error)
	NewBarrierRequest() (BarrierRequest, error)
	NewBarrierReply() (BarrierReply, error)
	NewFlowMod() (FlowMod, error)
	NewFlowRemoved() (FlowRemoved, error)
	NewPacketIn() (PacketIn, error)
	NewPacketOut() (PacketOut, error)
	NewPortStatus() (PortStatus, error)
	NewGroupMod() (GroupMod, error)
	NewMeterMod() (MeterMod, error)
	NewDescRequest() (MultipartRequest, error)
	NewDescReply() (DescReply, error)
	NewPortDescRequest() (MultipartRequest, error)
	NewPortDescReply() (PortDescReply, error)
	NewMeterFeaturesRequest() (MultipartRequest, error)
	NewMeterFeaturesReply() (MultipartReplyMeterFeatures, error)
	NewGroupFeaturesRequest() (MultipartRequest, error)
	NewGroupFeaturesReply() (MultipartReplyGroupFeatures, error)
}
