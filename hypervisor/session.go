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

package hypervisor

import (
	"context"
	"encoding"
	"sync"

	"github.com/davecgh/go-spew/spew"

	"github.com/flowvisor/hypervisor/openflow"
	"github.com/flowvisor/hypervisor/physical"
	"github.com/flowvisor/hypervisor/protocol"
	"github.com/flowvisor/hypervisor/topology"
	"github.com/flowvisor/hypervisor/transceiver"
)

// xidRewritable is what forwardReply needs from a reply message: rewrite
// its transaction id and marshal it toward the tenant.
type xidRewritable interface {
	SetTransactionID(uint32)
	encoding.BinaryMarshaler
}

// session is one southbound connection: the transceiver feeding it, the
// physical switch object created once the peer's FeaturesReply named its
// datapath id, and the discovery-frame rotation for its ports.
type session struct {
	hv        *Hypervisor
	tr        *transceiver.Transceiver
	scheduler *topology.Scheduler

	mutex           sync.Mutex
	sw              *physical.Switch
	cancelDiscovery context.CancelFunc
}

func (r *session) physicalSwitch() *physical.Switch {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.sw
}

func (r *session) close() {
	if err := r.tr.Close(); err != nil {
		logger.Errorf("failed to close a southbound connection: %v", err)
	}
}

// OnHello kicks off the start protocol: the switch's identity is still
// unknown, so only a FeaturesRequest goes out here; everything else waits
// for the reply.
func (r *session) OnHello(f openflow.Factory, w transceiver.Writer, msg openflow.Hello) error {
	req, err := f.NewFeaturesRequest()
	if err != nil {
		return err
	}
	req.SetTransactionID(0)

	return w.Write(req)
}

// OnFeaturesReply creates and registers the physical switch, then issues
// the rest of the start protocol: capability requests, the bulk flow purge
// with its barrier, the static rules, and the first dynamic-rule pass.
func (r *session) OnFeaturesReply(f openflow.Factory, w transceiver.Writer, msg openflow.FeaturesReply) error {
	r.mutex.Lock()
	sw := r.sw
	r.mutex.Unlock()

	if sw != nil {
		// A re-sent FeaturesReply on a live session only refreshes features.
		sw.OnFeaturesReply(msg)
		return nil
	}

	id := r.hv.registerSession(r, msg.DatapathID())
	sw = physical.New(id, r.tr, f)
	sw.OnFeaturesReply(msg)

	r.mutex.Lock()
	r.sw = sw
	r.mutex.Unlock()

	if err := sw.Start(); err != nil {
		return err
	}
	if err := sw.CreateStaticRules(protocol.DiscoveryEtherType, r.hv.sliceMeters()); err != nil {
		return err
	}

	// Port interest and slice targets from every already-defined slice.
	r.hv.mutex.Lock()
	vswitches := make([]uint32, 0, len(r.hv.vswitches))
	for vid := range r.hv.vswitches {
		vswitches = append(vswitches, vid)
	}
	r.hv.mutex.Unlock()
	for _, vid := range vswitches {
		vsw, ok := r.hv.virtualSwitch(vid)
		if !ok {
			continue
		}
		for _, loc := range vsw.Ports() {
			if loc.PhysicalSwitch != id {
				continue
			}
			sw.RegisterPortInterest(loc.PhysicalPort, vsw.ID())
			sw.RegisterSliceTarget(vsw.SliceID(), vsw.ID())
		}
	}

	r.hv.recomputeRoutes()
	r.startDiscovery()

	return nil
}

// OnPortDescReply fills the port table; classification and the discovery
// rotation pick the new ports up on the next route pass, triggered here.
func (r *session) OnPortDescReply(f openflow.Factory, w transceiver.Writer, msg openflow.PortDescReply) error {
	sw := r.physicalSwitch()
	if sw == nil {
		logger.Warning("PORT_DESC reply before FEATURES reply, ignoring")
		return nil
	}

	sw.OnPortDescReply(msg.Ports())
	r.hv.recomputeRoutes()

	return nil
}

// OnMeterFeaturesReply runs the drop-band and meter-count capability check.
// A mismatch marks the switch degraded but keeps serving it: rule
// installation stays best-effort.
func (r *session) OnMeterFeaturesReply(f openflow.Factory, w transceiver.Writer, msg openflow.MultipartReplyMeterFeatures) error {
	sw := r.physicalSwitch()
	if sw == nil {
		return nil
	}

	if req := sw.VerifyMeterCapabilities(msg.MaxMeter(), msg.BandTypes(), r.hv.sliceCount()); !req.OK {
		logger.Errorf("physical switch %v: degraded, %v: %v", sw.ID(), req.Reason, spew.Sdump(msg))
	}
	return nil
}

// OnGroupFeaturesReply runs the INDIRECT/ALL group-type capability check.
func (r *session) OnGroupFeaturesReply(f openflow.Factory, w transceiver.Writer, msg openflow.MultipartReplyGroupFeatures) error {
	sw := r.physicalSwitch()
	if sw == nil {
		return nil
	}

	if req := sw.VerifyGroupCapabilities(msg.Types()); !req.OK {
		logger.Errorf("physical switch %v: degraded, %v: %v", sw.ID(), req.Reason, spew.Sdump(msg))
	}
	return nil
}

// OnPacketIn dispatches on the reserved cookie values: 1 is a topology
// discovery frame, 2 and 3 are the error-catch rules of tables 0 and 1,
// anything else is a tenant-table miss headed for a tenant controller.
func (r *session) OnPacketIn(f openflow.Factory, w transceiver.Writer, msg openflow.PacketIn) error {
	sw := r.physicalSwitch()
	if sw == nil {
		return nil
	}

	switch msg.Cookie() {
	case openflow.CookieDiscovery:
		return r.hv.handleDiscoveryPacketIn(sw, msg)
	case openflow.CookieErrorTable0:
		logger.Errorf("physical switch %v: a packet fell through table 0 unclassified (in_port=%v)", sw.ID(), packetInPort(msg))
		return nil
	case openflow.CookieErrorTable1:
		logger.Errorf("physical switch %v: a packet fell through table 1 with no forwarding rule (in_port=%v)", sw.ID(), packetInPort(msg))
		return nil
	default:
		return r.hv.deliverTenantPacketIn(sw, msg)
	}
}

// OnPortStatus updates the port table and fans the change out to every
// virtual switch with interest in the port, rewritten to its tenant-facing
// port number.
func (r *session) OnPortStatus(f openflow.Factory, w transceiver.Writer, msg openflow.PortStatus) error {
	sw := r.physicalSwitch()
	if sw == nil {
		return nil
	}

	targets := sw.OnPortStatus(msg.Reason(), msg.Desc())
	for _, target := range targets {
		vsw, ok := r.hv.virtualSwitch(target.VirtualSwitchID)
		if !ok {
			continue
		}
		if err := vsw.NotifyPortStatus(sw.ID(), msg.Reason(), msg.Desc()); err != nil {
			logger.Warningf("virtual switch %v: failed to forward a PortStatus: %v", target.VirtualSwitchID, err)
		}
	}

	r.hv.recomputeRoutes()
	return nil
}

// OnBarrierReply first checks the barrier aggregator (a reply for a fence
// the hypervisor itself issued on behalf of a tenant barrier), then the
// xid-translation map for an individually forwarded request.
func (r *session) OnBarrierReply(f openflow.Factory, w transceiver.Writer, msg openflow.BarrierReply) error {
	sw := r.physicalSwitch()
	if sw == nil {
		return nil
	}

	if r.hv.completeBarrier(sw.ID(), msg.TransactionID()) {
		return nil
	}
	r.forwardReply(sw, msg.TransactionID(), msg)
	return nil
}

// OnError routes a switch-originated error back to the tenant whose
// forwarded request provoked it, when the xid still translates.
func (r *session) OnError(f openflow.Factory, w transceiver.Writer, msg openflow.Error) error {
	sw := r.physicalSwitch()
	if sw == nil {
		logger.Errorf("southbound error before registration: type=%v code=%v", msg.Class(), msg.Code())
		return nil
	}

	if r.forwardReply(sw, msg.TransactionID(), msg) {
		return nil
	}
	logger.Errorf("physical switch %v: error from switch: type=%v code=%v", sw.ID(), msg.Class(), msg.Code())
	return nil
}

func (r *session) OnGetConfigReply(f openflow.Factory, w transceiver.Writer, msg openflow.GetConfigReply) error {
	sw := r.physicalSwitch()
	if sw == nil {
		return nil
	}
	r.forwardReply(sw, msg.TransactionID(), msg)
	return nil
}

func (r *session) OnDescReply(f openflow.Factory, w transceiver.Writer, msg openflow.DescReply) error {
	sw := r.physicalSwitch()
	if sw == nil {
		return nil
	}
	logger.Debugf("physical switch %v: %v %v (%v)", sw.ID(), msg.MfrDesc(), msg.HWDesc(), msg.SWDesc())
	return nil
}

// OnFlowRemoved is not forwarded: the hypervisor never installs tenant
// rules with the SEND_FLOW_REM flag, so these only arise from out-of-band
// table manipulation.
func (r *session) OnFlowRemoved(f openflow.Factory, w transceiver.Writer, msg openflow.FlowRemoved) error {
	sw := r.physicalSwitch()
	if sw != nil {
		logger.Debugf("physical switch %v: unexpected FlowRemoved, ignoring", sw.ID())
	}
	return nil
}

// The controller-to-switch half of the vocabulary: a real switch never
// sends these to us.

func (r *session) OnFeaturesRequest(f openflow.Factory, w transceiver.Writer, msg openflow.FeaturesRequest) error {
	logger.Warning("unexpected FeaturesRequest from a switch, ignoring")
	return nil
}

func (r *session) OnGetConfigRequest(f openflow.Factory, w transceiver.Writer, msg openflow.GetConfigRequest) error {
	logger.Warning("unexpected GetConfigRequest from a switch, ignoring")
	return nil
}

func (r *session) OnSetConfig(f openflow.Factory, w transceiver.Writer, msg openflow.SetConfig) error {
	logger.Warning("unexpected SetConfig from a switch, ignoring")
	return nil
}

func (r *session) OnMultipartRequest(f openflow.Factory, w transceiver.Writer, msg openflow.MultipartRequest) error {
	logger.Warning("unexpected MultipartRequest from a switch, ignoring")
	return nil
}

func (r *session) OnBarrierRequest(f openflow.Factory, w transceiver.Writer, msg openflow.BarrierRequest) error {
	logger.Warning("unexpected BarrierRequest from a switch, ignoring")
	return nil
}

func (r *session) OnFlowMod(f openflow.Factory, w transceiver.Writer, msg openflow.FlowMod) error {
	logger.Warning("unexpected FlowMod from a switch, ignoring")
	return nil
}

func (r *session) OnPacketOut(f openflow.Factory, w transceiver.Writer, msg openflow.PacketOut) error {
	logger.Warning("unexpected PacketOut from a switch, ignoring")
	return nil
}

// forwardReply rewrites a reply's xid back to the tenant's original and
// hands it to the virtual switch that issued the request. A miss drops the
// reply, logged, per the error-handling rules; it must never close the
// southbound connection, so no error propagates from here.
func (r *session) forwardReply(sw *physical.Switch, xid uint32, msg xidRewritable) (forwarded bool) {
	originalXID, virtualSwitchID, ok := sw.ResolveReply(xid)
	if !ok {
		logger.Infof("physical switch %v: dropping a reply with an untranslatable xid=%v", sw.ID(), xid)
		return false
	}

	vsw, ok := r.hv.virtualSwitch(virtualSwitchID)
	if !ok {
		logger.Infof("physical switch %v: reply for a virtual switch that no longer exists (id=%v)", sw.ID(), virtualSwitchID)
		return true
	}

	msg.SetTransactionID(originalXID)
	if err := vsw.Send(msg); err != nil {
		logger.Warningf("virtual switch %v: failed to forward a reply: %v", virtualSwitchID, err)
	}
	return true
}

func packetInPort(msg openflow.PacketIn) uint32 {
	field, ok := msg.Match().Field(openflow.OXMTypeInPort)
	if !ok {
		return 0
	}
	port, _ := field.AsInPort()
	return port
}
