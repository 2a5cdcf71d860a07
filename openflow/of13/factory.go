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

import "github.com/flowvisor/hypervisor/openflow"

type factory struct{}

// NewFactory returns the only openflow.Factory implementation this module
// ships: a constructor for OpenFlow 1.3 wire messages.
func NewFactory() openflow.Factory {
	return &factory{}
}

func (factory) NewHello() (openflow.Hello, error) { return newHello(), nil }

func (factory) NewEchoRequest() (openflow.EchoRequest, error) { return newEchoRequest(), nil }

func (factory) NewEchoReply() (openflow.EchoReply, error) { return newEchoReply(), nil }

func (factory) NewError() (openflow.Error, error) { return newError(), nil }

func (factory) NewFeaturesRequest() (openflow.FeaturesRequest, error) {
	return newFeaturesRequest(), nil
}

func (factory) NewFeaturesReply() (openflow.FeaturesReply, error) { return newFeaturesReply(), nil }

func (factory) NewGetConfigRequest() (openflow.GetConfigRequest, error) {
	return newGetConfigRequest(), nil
}

func (factory) NewGetConfigReply() (openflow.GetConfigReply, error) {
	return newGetConfigReply(), nil
}

func (factory) NewSetConfig() (openflow.SetConfig, error) { return newSetConfig(), nil }

func (factory) NewBarrierRequest() (openflow.BarrierRequest, error) {
	return newBarrierRequest(), nil
}

func (factory) NewBarrierReply() (openflow.BarrierReply, error) { return newBarrierReply(), nil }

func (factory) NewFlowMod() (openflow.FlowMod, error) { return newFlowMod(), nil }

func (factory) NewFlowRemoved() (openflow.FlowRemoved, error) { return newFlowRemoved(), nil }

func (factory) NewPacketIn() (openflow.PacketIn, error) { return newPacketIn(), nil }

func (factory) NewPacketOut() (openflow.PacketOut, error) { return newPacketOut(), nil }

func (factory) NewPortStatus() (openflow.PortStatus, error) { return newPortStatus(), nil }

func (factory) NewGroupMod() (openflow.GroupMod, error) { return newGroupMod(), nil }

func (factory) NewMeterMod() (openflow.MeterMod, error) { return newMeterMod(), nil }

func (factory) NewDescRequest() (openflow.MultipartRequest, error) {
	return newMultipartRequest(openflow.MultipartTypeDesc), nil
}

func (factory) NewDescReply() (openflow.DescReply, error) { return newDescReply(), nil }

func (factory) NewPortDescRequest() (openflow.MultipartRequest, error) {
	return newMultipartRequest(openflow.MultipartTypePortDesc), nil
}

func (factory) NewPortDescReply() (openflow.PortDescReply, error) { return newPortDescReply(), nil }

func (factory) NewMeterFeaturesRequest() (openflow.MultipartRequest, error) {
	return newMultipartRequest(openflow.MultipartTypeMeterFeat), nil
}

func (factory) NewMeterFeaturesReply() (openflow.MultipartReplyMeterFeatures, error) {
	return newMeterFeaturesReply(), nil
}

func (factory) NewGroupFeaturesRequest() (openflow.MultipartRequest, error) {
	return newMultipartRequest(openflow.MultipartTypeGroupFeat), nil
}

func (factory) NewGroupFeaturesReply() (openflow.MultipartReplyGroupFeatures, error) {
	return newGroupFeaturesReply(), nil
}
