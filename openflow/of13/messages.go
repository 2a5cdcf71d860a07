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
	"encoding/binary"

	"github.com/flowvisor/hypervisor/openflow"
)

// Message type codes are the exported openflow.OFPT_* constants; aliased
// here under shorter local names for readability.
const (
	typeHello            = openflow.OFPT_HELLO
	typeError            = openflow.OFPT_ERROR
	typeEchoRequest      = openflow.OFPT_ECHO_REQUEST
	typeEchoReply        = openflow.OFPT_ECHO_REPLY
	typeFeaturesRequest  = openflow.OFPT_FEATURES_REQUEST
	typeFeaturesReply    = openflow.OFPT_FEATURES_REPLY
	typeGetConfigRequest = openflow.OFPT_GET_CONFIG_REQUEST
	typeGetConfigReply   = openflow.OFPT_GET_CONFIG_REPLY
	typeSetConfig        = openflow.OFPT_SET_CONFIG
	typePacketIn         = openflow.OFPT_PACKET_IN
	typeFlowRemoved      = openflow.OFPT_FLOW_REMOVED
	typePortStatus       = openflow.OFPT_PORT_STATUS
	typePacketOut        = openflow.OFPT_PACKET_OUT
	typeFlowMod          = openflow.OFPT_FLOW_MOD
	typeGroupMod         = openflow.OFPT_GROUP_MOD
	typeMeterMod         = openflow.OFPT_METER_MOD
	typeMultipartRequest = openflow.OFPT_MULTIPART_REQUEST
	typeMultipartReply   = openflow.OFPT_MULTIPART_REPLY
	typeBarrierRequest   = openflow.OFPT_BARRIER_REQUEST
	typeBarrierReply     = openflow.OFPT_BARRIER_REPLY
)

func newMessage(t uint8) openflow.Message {
	return openflow.NewMessage(openflow.OF13_VERSION, t)
}

type hello struct{ openflow.BaseHello }

func newHello() *hello { return &hello{openflow.BaseHello{Message: newMessage(typeHello)}} }

type echoRequest struct{ openflow.BaseEcho }

func newEchoRequest() *echoRequest {
	return &echoRequest{openflow.BaseEcho{Message: newMessage(typeEchoRequest)}}
}

type echoReply struct{ openflow.BaseEcho }

func newEchoReply() *echoReply {
	return &echoReply{openflow.BaseEcho{Message: newMessage(typeEchoReply)}}
}

type errorMsg struct{ openflow.BaseError }

func newError() *errorMsg { return &errorMsg{openflow.BaseError{Message: newMessage(typeError)}} }

func (r *errorMsg) MarshalBinary() ([]byte, error) {
	body := make([]byte, 4)
	binary.BigEndian.PutUint16(body[0:2], r.Class())
	binary.BigEndian.PutUint16(body[2:4], r.Code())
	body = append(body, r.Data()...)
	r.SetPayload(body)
	return r.Message.MarshalBinary()
}

func (r *errorMsg) UnmarshalBinary(data []byte) error {
	if err := r.Message.UnmarshalBinary(data); err != nil {
		return err
	}
	p := r.Payload()
	if len(p) < 4 {
		return openflow.ErrInvalidPacketLength
	}
	r.SetClass(binary.BigEndian.Uint16(p[0:2]))
	r.SetCode(binary.BigEndian.Uint16(p[2:4]))
	r.SetData(p[4:])
	return nil
}

type featuresRequest struct{ openflow.BaseFeaturesRequest }

func newFeaturesRequest() *featuresRequest {
	return &featuresRequest{openflow.BaseFeaturesRequest{Message: newMessage(typeFeaturesRequest)}}
}

type featuresReply struct{ openflow.BaseFeaturesReply }

func newFeaturesReply() *featuresReply {
	return &featuresReply{openflow.BaseFeaturesReply{Message: newMessage(typeFeaturesReply)}}
}

func (r *featuresReply) MarshalBinary() ([]byte, error) {
	body := make([]byte, 17)
	binary.BigEndian.PutUint64(body[0:8], r.DatapathID())
	binary.BigEndian.PutUint32(body[8:12], r.NumBuffers())
	body[12] = r.NumTables()
	binary.BigEndian.PutUint32(body[13:17], r.Capabilities())
	r.SetPayload(body)
	return r.Message.MarshalBinary()
}

func (r *featuresReply) UnmarshalBinary(data []byte) error {
	if err := r.Message.UnmarshalBinary(data); err != nil {
		return err
	}
	p := r.Payload()
	if len(p) < 17 {
		return openflow.ErrInvalidPacketLength
	}
	r.SetDatapathID(binary.BigEndian.Uint64(p[0:8]))
	r.SetNumBuffers(binary.BigEndian.Uint32(p[8:12]))
	r.SetNumTables(p[12])
	r.SetCapabilities(binary.BigEndian.Uint32(p[13:17]))
	return nil
}

type getConfigRequest struct{ openflow.BaseGetConfigRequest }

func newGetConfigRequest() *getConfigRequest {
	return &getConfigRequest{openflow.BaseGetConfigRequest{Message: newMessage(typeGetConfigRequest)}}
}

type getConfigReply struct{ openflow.BaseGetConfigReply }

func newGetConfigReply() *getConfigReply {
	return &getConfigReply{openflow.BaseGetConfigReply{Message: newMessage(typeGetConfigReply)}}
}

func (r *getConfigReply) MarshalBinary() ([]byte, error) {
	body := make([]byte, 4)
	binary.BigEndian.PutUint16(body[0:2], r.Flags())
	binary.BigEndian.PutUint16(body[2:4], r.MissSendLen())
	r.SetPayload(body)
	return r.Message.MarshalBinary()
}

func (r *getConfigReply) UnmarshalBinary(data []byte) error {
	if err := r.Message.UnmarshalBinary(data); err != nil {
		return err
	}
	p := r.Payload()
	if len(p) < 4 {
		return openflow.ErrInvalidPacketLength
	}
	r.SetFlags(binary.BigEndian.Uint16(p[0:2]))
	r.SetMissSendLen(binary.BigEndian.Uint16(p[2:4]))
	return nil
}

type setConfig struct{ openflow.BaseSetConfig }

func newSetConfig() *setConfig {
	return &setConfig{openflow.BaseSetConfig{Message: newMessage(typeSetConfig)}}
}

func (r *setConfig) MarshalBinary() ([]byte, error) {
	body := make([]byte, 4)
	binary.BigEndian.PutUint16(body[0:2], r.Flags())
	binary.BigEndian.PutUint16(body[2:4], r.MissSendLen())
	r.SetPayload(body)
	return r.Message.MarshalBinary()
}

func (r *setConfig) UnmarshalBinary(data []byte) error {
	if err := r.Message.UnmarshalBinary(data); err != nil {
		return err
	}
	p := r.Payload()
	if len(p) < 4 {
		return openflow.ErrInvalidPacketLength
	}
	r.SetFlags(binary.BigEndian.Uint16(p[0:2]))
	r.SetMissSendLen(binary.BigEndian.Uint16(p[2:4]))
	return nil
}

type barrierRequest struct{ openflow.BaseBarrierRequest }

func newBarrierRequest() *barrierRequest {
	return &barrierRequest{openflow.BaseBarrierRequest{Message: newMessage(typeBarrierRequest)}}
}

type barrierReply struct{ openflow.BaseBarrierReply }

func newBarrierReply() *barrierReply {
	return &barrierReply{openflow.BaseBarrierReply{Message: newMessage(typeBarrierReply)}}
}

type flowMod struct{ openflow.BaseFlowMod }

func newFlowMod() *flowMod { return &flowMod{openflow.BaseFlowMod{Message: newMessage(typeFlowMod)}} }

func (r *flowMod) MarshalBinary() ([]byte, error) {
	body := make([]byte, 24)
	binary.BigEndian.PutUint64(body[0:8], r.Cookie())
	binary.BigEndian.PutUint64(body[8:16], r.CookieMask())
	body[16] = r.TableID()
	body[17] = r.Command()
	binary.BigEndian.PutUint16(body[18:20], r.Priority())
	binary.BigEndian.PutUint32(body[20:24], r.BufferID())
	body = append(body, marshalMatch(r.Match())...)
	body = append(body, marshalInstructionSet(r.Instructions())...)
	r.SetPayload(body)
	return r.Message.MarshalBinary()
}

func (r *flowMod) UnmarshalBinary(data []byte) error {
	if err := r.Message.UnmarshalBinary(data); err != nil {
		return err
	}
	p := r.Payload()
	if len(p) < 24 {
		return openflow.ErrInvalidPacketLength
	}
	r.SetCookie(binary.BigEndian.Uint64(p[0:8]))
	r.SetCookieMask(binary.BigEndian.Uint64(p[8:16]))
	r.SetTableID(p[16])
	r.SetCommand(p[17])
	r.SetPriority(binary.BigEndian.Uint16(p[18:20]))
	r.SetBufferID(binary.BigEndian.Uint32(p[20:24]))

	m, n, err := unmarshalMatch(p[24:])
	if err != nil {
		return err
	}
	r.SetMatch(&m)

	set, _, err := unmarshalInstructionSet(p[24+n:])
	if err != nil {
		return err
	}
	r.SetInstructions(&set)
	return nil
}

type flowRemoved struct{ openflow.BaseFlowRemoved }

func newFlowRemoved() *flowRemoved {
	return &flowRemoved{openflow.BaseFlowRemoved{Message: newMessage(typeFlowRemoved)}}
}

func (r *flowRemoved) UnmarshalBinary(data []byte) error {
	if err := r.Message.UnmarshalBinary(data); err != nil {
		return err
	}
	p := r.Payload()
	if len(p) < 12 {
		return openflow.ErrInvalidPacketLength
	}
	m, _, err := unmarshalMatch(p[12:])
	if err != nil {
		return err
	}
	r.SetCookie(binary.BigEndian.Uint64(p[0:8]))
	r.SetPriority(binary.BigEndian.Uint16(p[8:10]))
	r.SetReason(p[10])
	r.SetTableID(p[11])
	r.SetMatch(&m)
	return nil
}

type packetIn struct{ openflow.BasePacketIn }

func newPacketIn() *packetIn { return &packetIn{openflow.BasePacketIn{Message: newMessage(typePacketIn)}} }

func (r *packetIn) MarshalBinary() ([]byte, error) {
	body := make([]byte, 13)
	binary.BigEndian.PutUint32(body[0:4], r.BufferID())
	body[4] = r.TableID()
	binary.BigEndian.PutUint64(body[5:13], r.Cookie())
	body = append(body, marshalMatch(r.Match())...)
	dataLen := make([]byte, 4)
	binary.BigEndian.PutUint32(dataLen, uint32(len(r.Data())))
	body = append(body, dataLen...)
	body = append(body, r.Data()...)
	r.SetPayload(body)
	return r.Message.MarshalBinary()
}

func (r *packetIn) UnmarshalBinary(data []byte) error {
	if err := r.Message.UnmarshalBinary(data); err != nil {
		return err
	}
	p := r.Payload()
	if len(p) < 13 {
		return openflow.ErrInvalidPacketLength
	}
	bufferID := binary.BigEndian.Uint32(p[0:4])
	tableID := p[4]
	cookie := binary.BigEndian.Uint64(p[5:13])
	m, n, err := unmarshalMatch(p[13:])
	if err != nil {
		return err
	}
	off := 13 + n
	if len(p) < off+4 {
		return openflow.ErrInvalidPacketLength
	}
	dataLen := int(binary.BigEndian.Uint32(p[off : off+4]))
	off += 4
	if len(p) < off+dataLen {
		return openflow.ErrInvalidPacketLength
	}
	r.SetBufferID(bufferID)
	r.SetTableID(tableID)
	r.SetCookie(cookie)
	r.SetMatch(&m)
	r.SetData(append([]byte(nil), p[off:off+dataLen]...))
	return nil
}

type packetOut struct{ openflow.BasePacketOut }

func newPacketOut() *packetOut {
	return &packetOut{openflow.BasePacketOut{Message: newMessage(typePacketOut)}}
}

func (r *packetOut) MarshalBinary() ([]byte, error) {
	body := make([]byte, 8)
	binary.BigEndian.PutUint32(body[0:4], r.BufferID())
	binary.BigEndian.PutUint32(body[4:8], r.InPort())
	body = append(body, marshalActionList(r.Actions())...)
	dataLen := make([]byte, 4)
	binary.BigEndian.PutUint32(dataLen, uint32(len(r.Data())))
	body = append(body, dataLen...)
	body = append(body, r.Data()...)
	r.SetPayload(body)
	return r.Message.MarshalBinary()
}

func (r *packetOut) UnmarshalBinary(data []byte) error {
	if err := r.Message.UnmarshalBinary(data); err != nil {
		return err
	}
	p := r.Payload()
	if len(p) < 8 {
		return openflow.ErrInvalidPacketLength
	}
	bufferID := binary.BigEndian.Uint32(p[0:4])
	inPort := binary.BigEndian.Uint32(p[4:8])
	actions, n, err := unmarshalActionList(p[8:])
	if err != nil {
		return err
	}
	off := 8 + n
	if len(p) < off+4 {
		return openflow.ErrInvalidPacketLength
	}
	dataLen := int(binary.BigEndian.Uint32(p[off : off+4]))
	off += 4
	if len(p) < off+dataLen {
		return openflow.ErrInvalidPacketLength
	}
	r.SetBufferID(bufferID)
	r.SetInPort(inPort)
	r.SetActions(&actions)
	r.SetData(append([]byte(nil), p[off:off+dataLen]...))
	return nil
}

type portStatus struct{ openflow.BasePortStatus }

func newPortStatus() *portStatus {
	return &portStatus{openflow.BasePortStatus{Message: newMessage(typePortStatus)}}
}

func (r *portStatus) MarshalBinary() ([]byte, error) {
	body := []byte{r.Reason(), 0, 0, 0}
	body = append(body, marshalPort(r.Desc())...)
	r.SetPayload(body)
	return r.Message.MarshalBinary()
}

func (r *portStatus) UnmarshalBinary(data []byte) error {
	if err := r.Message.UnmarshalBinary(data); err != nil {
		return err
	}
	p := r.Payload()
	if len(p) < 4 {
		return openflow.ErrInvalidPacketLength
	}
	port, _, err := unmarshalPort(p[4:])
	if err != nil {
		return err
	}
	r.SetReason(p[0])
	r.SetDesc(port)
	return nil
}

type groupMod struct{ openflow.BaseGroupMod }

func newGroupMod() *groupMod { return &groupMod{openflow.BaseGroupMod{Message: newMessage(typeGroupMod)}} }

func (r *groupMod) MarshalBinary() ([]byte, error) {
	body := make([]byte, 8)
	binary.BigEndian.PutUint16(body[0:2], r.Command())
	body[2] = r.GroupType()
	binary.BigEndian.PutUint32(body[4:8], r.GroupID())
	bcount := make([]byte, 2)
	binary.BigEndian.PutUint16(bcount, uint16(len(r.Buckets())))
	body = append(body, bcount...)
	for _, b := range r.Buckets() {
		body = append(body, marshalActionList(&b.Actions)...)
	}
	r.SetPayload(body)
	return r.Message.MarshalBinary()
}

type meterMod struct{ openflow.BaseMeterMod }

func newMeterMod() *meterMod { return &meterMod{openflow.BaseMeterMod{Message: newMessage(typeMeterMod)}} }

func (r *meterMod) MarshalBinary() ([]byte, error) {
	body := make([]byte, 8)
	binary.BigEndian.PutUint16(body[0:2], r.Command())
	binary.BigEndian.PutUint16(body[2:4], r.Flags())
	binary.BigEndian.PutUint32(body[4:8], r.MeterID())
	bcount := make([]byte, 2)
	binary.BigEndian.PutUint16(bcount, uint16(len(r.Bands())))
	body = append(body, bcount...)
	for _, b := range r.Bands() {
		band := make([]byte, 10)
		binary.BigEndian.PutUint16(band[0:2], b.Type)
		binary.BigEndian.PutUint32(band[2:6], b.Rate)
		binary.BigEndian.PutUint32(band[6:10], b.BurstSize)
		body = append(body, band...)
	}
	r.SetPayload(body)
	return r.Message.MarshalBinary()
}

type multipartRequest struct{ openflow.BaseMultipartRequest }

func newMultipartRequest(t uint16) *multipartRequest {
	r := &multipartRequest{openflow.BaseMultipartRequest{Message: newMessage(typeMultipartRequest)}}
	r.SetMultipartType(t)
	return r
}

func (r *multipartRequest) MarshalBinary() ([]byte, error) {
	body := make([]byte, 2)
	binary.BigEndian.PutUint16(body, r.MultipartType())
	r.SetPayload(body)
	return r.Message.MarshalBinary()
}

func (r *multipartRequest) UnmarshalBinary(data []byte) error {
	if err := r.Message.UnmarshalBinary(data); err != nil {
		return err
	}
	p := r.Payload()
	if len(p) < 2 {
		return openflow.ErrInvalidPacketLength
	}
	r.SetMultipartType(binary.BigEndian.Uint16(p[0:2]))
	return nil
}

type descReply struct{ openflow.BaseDescReply }

func newDescReply() *descReply {
	return &descReply{openflow.BaseDescReply{Message: newMessage(typeMultipartReply)}}
}

func (r *descReply) UnmarshalBinary(data []byte) error {
	if err := r.Message.UnmarshalBinary(data); err != nil {
		return err
	}
	p := r.Payload()
	if len(p) < 2 {
		return openflow.ErrInvalidPacketLength
	}
	off := 2 // skip the leading multipart-type prefix
	mfr, n, err := getString(p[off:])
	if err != nil {
		return err
	}
	off += n
	hw, n, err := getString(p[off:])
	if err != nil {
		return err
	}
	off += n
	sw, n, err := getString(p[off:])
	if err != nil {
		return err
	}
	off += n
	serial, _, err := getString(p[off:])
	if err != nil {
		return err
	}
	r.SetMfrDesc(mfr)
	r.SetHWDesc(hw)
	r.SetSWDesc(sw)
	r.SetSerialNum(serial)
	return nil
}

type portDescReply struct{ openflow.BasePortDescReply }

func newPortDescReply() *portDescReply {
	return &portDescReply{openflow.BasePortDescReply{Message: newMessage(typeMultipartReply)}}
}

func (r *portDescReply) MarshalBinary() ([]byte, error) {
	ports := r.Ports()
	body := make([]byte, 4)
	binary.BigEndian.PutUint16(body[0:2], openflow.MultipartTypePortDesc)
	binary.BigEndian.PutUint16(body[2:4], uint16(len(ports)))
	for _, p := range ports {
		body = append(body, marshalPort(p)...)
	}
	r.SetPayload(body)
	return r.Message.MarshalBinary()
}

func (r *portDescReply) UnmarshalBinary(data []byte) error {
	if err := r.Message.UnmarshalBinary(data); err != nil {
		return err
	}
	p := r.Payload()
	if len(p) < 4 {
		return openflow.ErrInvalidPacketLength
	}
	count := int(binary.BigEndian.Uint16(p[2:4]))
	off := 4
	ports := make([]openflow.Port, 0, count)
	for i := 0; i < count; i++ {
		port, n, err := unmarshalPort(p[off:])
		if err != nil {
			return err
		}
		ports = append(ports, port)
		off += n
	}
	r.SetPorts(ports)
	return nil
}

type meterFeaturesReply struct{ openflow.BaseMultipartReplyMeterFeatures }

func newMeterFeaturesReply() *meterFeaturesReply {
	return &meterFeaturesReply{openflow.BaseMultipartReplyMeterFeatures{Message: newMessage(typeMultipartReply)}}
}

func (r *meterFeaturesReply) UnmarshalBinary(data []byte) error {
	if err := r.Message.UnmarshalBinary(data); err != nil {
		return err
	}
	p := r.Payload()
	if len(p) < 10 {
		return openflow.ErrInvalidPacketLength
	}
	r.SetMaxMeter(binary.BigEndian.Uint32(p[2:6]))
	r.SetBandTypes(binary.BigEndian.Uint32(p[6:10]))
	return nil
}

type groupFeaturesReply struct{ openflow.BaseMultipartReplyGroupFeatures }

func newGroupFeaturesReply() *groupFeaturesReply {
	return &groupFeaturesReply{openflow.BaseMultipartReplyGroupFeatures{Message: newMessage(typeMultipartReply)}}
}

func (r *groupFeaturesReply) UnmarshalBinary(data []byte) error {
	if err := r.Message.UnmarshalBinary(data); err != nil {
		return err
	}
	p := r.Payload()
	if len(p) < 10 {
		return openflow.ErrInvalidPacketLength
	}
	r.SetTypes(binary.BigEndian.Uint32(p[2:6]))
	r.SetCapabilities(binary.BigEndian.Uint32(p[6:10]))
	return nil
}
