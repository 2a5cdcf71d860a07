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

package virtual

import (
	"errors"
	"fmt"
	"sort"

	"github.com/flowvisor/hypervisor/openflow"
	"github.com/flowvisor/hypervisor/transceiver"
)

var errNotConnected = errors.New("virtual: switch is not connected to its tenant controller")

// Installer is how a Switch hands a tenant's FlowMod and PacketOut off to
// whatever owns translating it onto the physical substrate (the
// hypervisor's per-switch FlowMod-rewrite orchestration). Kept as an
// interface so this package is not wired to one concrete registry shape.
type Installer interface {
	InstallFlowMod(virtualSwitchID uint32, flowmod openflow.FlowMod) error
	SendPacketOut(virtualSwitchID uint32, packetOut openflow.PacketOut) error

	// Barrier asks the installer to fence every physical switch touched by
	// this slice's FlowMods since the previous barrier, and to deliver a
	// single tenant-side BarrierReply carrying xid once they have all
	// answered. handled is false if nothing was pending, in which case the
	// caller replies immediately itself.
	Barrier(virtualSwitchID uint32, xid uint32) (handled bool, err error)
}

// SetInstaller wires the component that actually carries out tenant
// FlowMod/PacketOut requests. Must be called before Start for OnFlowMod and
// OnPacketOut to do anything beyond logging.
func (r *Switch) SetInstaller(installer Installer) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.installer = installer
}

// OnHello completes the connecting side's half of version negotiation.
// The Hello itself was already sent by connect before the transceiver's
// read loop started; receiving one back confirms the tenant controller
// also speaks OpenFlow 1.3.
func (r *Switch) OnHello(factory openflow.Factory, w transceiver.Writer, msg openflow.Hello) error {
	if r.reachable() {
		r.setState(StateConnected)
		logger.Infof("virtual switch %v: connected and reachable", r.id)
	} else {
		logger.Warningf("virtual switch %v: negotiated but its physical substrate is not fully reachable", r.id)
	}
	return nil
}

// OnError logs an error the tenant controller sent us; nothing to reply
// with.
func (r *Switch) OnError(factory openflow.Factory, w transceiver.Writer, msg openflow.Error) error {
	logger.Errorf("virtual switch %v: received an error from its tenant controller: class=%v code=%v", r.id, msg.Class(), msg.Code())
	return nil
}

// OnFeaturesRequest replies with the capability intersection of the
// physical switches backing this slice; the port union is served
// separately through the PortDesc multipart request.
func (r *Switch) OnFeaturesRequest(factory openflow.Factory, w transceiver.Writer, msg openflow.FeaturesRequest) error {
	reply, err := factory.NewFeaturesReply()
	if err != nil {
		return err
	}
	reply.SetTransactionID(msg.TransactionID())
	reply.SetDatapathID(r.datapathID)
	reply.SetNumBuffers(0)
	reply.SetNumTables(r.numTables())
	reply.SetCapabilities(r.capabilities())

	return w.Write(reply)
}

// OnFeaturesReply is a switch-to-controller reply; a tenant controller
// never legitimately sends us one.
func (r *Switch) OnFeaturesReply(factory openflow.Factory, w transceiver.Writer, msg openflow.FeaturesReply) error {
	logger.Warningf("virtual switch %v: unexpected FeaturesReply from tenant controller, ignoring", r.id)
	return nil
}

// OnGetConfigRequest replies with a fixed, permissive configuration: no
// fragmentation handling flags, and full packets sent to the controller on
// a table miss.
func (r *Switch) OnGetConfigRequest(factory openflow.Factory, w transceiver.Writer, msg openflow.GetConfigRequest) error {
	reply, err := factory.NewGetConfigReply()
	if err != nil {
		return err
	}
	reply.SetTransactionID(msg.TransactionID())
	reply.SetFlags(0)
	reply.SetMissSendLen(openflow.OFPCML_NO_BUFFER)

	return w.Write(reply)
}

// OnGetConfigReply is a switch-to-controller reply; ignore it.
func (r *Switch) OnGetConfigReply(factory openflow.Factory, w transceiver.Writer, msg openflow.GetConfigReply) error {
	logger.Warningf("virtual switch %v: unexpected GetConfigReply from tenant controller, ignoring", r.id)
	return nil
}

// OnSetConfig accepts the tenant's requested config without acting on it;
// every tenant table miss already goes to the controller via table 0's
// priority 0 rule regardless of miss_send_len.
func (r *Switch) OnSetConfig(factory openflow.Factory, w transceiver.Writer, msg openflow.SetConfig) error {
	logger.Debugf("virtual switch %v: tenant SetConfig flags=%v miss_send_len=%v", r.id, msg.Flags(), msg.MissSendLen())
	return nil
}

// OnMultipartRequest answers the tenant's statistics requests. Only the
// port description is backed by real state: the union of the slice's
// virtual ports, numbered as the tenant declared them. Everything else is
// ignored; the tenant's controller falls back to its defaults.
func (r *Switch) OnMultipartRequest(factory openflow.Factory, w transceiver.Writer, msg openflow.MultipartRequest) error {
	if msg.MultipartType() != openflow.MultipartTypePortDesc {
		logger.Debugf("virtual switch %v: unanswered multipart request type=%v", r.id, msg.MultipartType())
		return nil
	}

	reply, err := factory.NewPortDescReply()
	if err != nil {
		return err
	}
	reply.SetTransactionID(msg.TransactionID())

	ports := r.Ports()
	numbers := make([]uint32, 0, len(ports))
	for vport := range ports {
		numbers = append(numbers, vport)
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })

	descs := make([]openflow.Port, 0, len(numbers))
	for _, vport := range numbers {
		descs = append(descs, openflow.Port{
			PortNo: vport,
			Name:   fmt.Sprintf("port%v", vport),
		})
	}
	reply.SetPorts(descs)

	return w.Write(reply)
}

// OnDescReply is a switch-to-controller reply; ignore it.
func (r *Switch) OnDescReply(factory openflow.Factory, w transceiver.Writer, msg openflow.DescReply) error {
	logger.Warningf("virtual switch %v: unexpected DescReply from tenant controller, ignoring", r.id)
	return nil
}

// OnPortDescReply is a switch-to-controller reply; ignore it.
func (r *Switch) OnPortDescReply(factory openflow.Factory, w transceiver.Writer, msg openflow.PortDescReply) error {
	logger.Warningf("virtual switch %v: unexpected PortDescReply from tenant controller, ignoring", r.id)
	return nil
}

// OnMeterFeaturesReply is a switch-to-controller reply; ignore it.
func (r *Switch) OnMeterFeaturesReply(factory openflow.Factory, w transceiver.Writer, msg openflow.MultipartReplyMeterFeatures) error {
	logger.Warningf("virtual switch %v: unexpected MeterFeaturesReply from tenant controller, ignoring", r.id)
	return nil
}

// OnGroupFeaturesReply is a switch-to-controller reply; ignore it.
func (r *Switch) OnGroupFeaturesReply(factory openflow.Factory, w transceiver.Writer, msg openflow.MultipartReplyGroupFeatures) error {
	logger.Warningf("virtual switch %v: unexpected GroupFeaturesReply from tenant controller, ignoring", r.id)
	return nil
}

// OnBarrierRequest fences the physical switches this slice has touched
// since its previous barrier: the installer forwards a BarrierRequest to
// each and replies to the tenant once every physical reply has arrived. If
// nothing is pending, the reply is immediate.
func (r *Switch) OnBarrierRequest(factory openflow.Factory, w transceiver.Writer, msg openflow.BarrierRequest) error {
	r.mutex.Lock()
	installer := r.installer
	r.mutex.Unlock()

	if installer != nil {
		handled, err := installer.Barrier(r.id, msg.TransactionID())
		if err != nil {
			return err
		}
		if handled {
			return nil
		}
	}

	reply, err := factory.NewBarrierReply()
	if err != nil {
		return err
	}
	reply.SetTransactionID(msg.TransactionID())

	return w.Write(reply)
}

// OnBarrierReply is a switch-to-controller reply; ignore it.
func (r *Switch) OnBarrierReply(factory openflow.Factory, w transceiver.Writer, msg openflow.BarrierReply) error {
	logger.Warningf("virtual switch %v: unexpected BarrierReply from tenant controller, ignoring", r.id)
	return nil
}

// OnFlowMod hands the tenant's FlowMod to the installer, which rewrites and
// forwards it onto whichever physical switches back the ports it names.
func (r *Switch) OnFlowMod(factory openflow.Factory, w transceiver.Writer, msg openflow.FlowMod) error {
	r.mutex.Lock()
	installer := r.installer
	r.mutex.Unlock()

	if installer == nil {
		logger.Warningf("virtual switch %v: dropped a FlowMod, no installer configured", r.id)
		return nil
	}
	return installer.InstallFlowMod(r.id, msg)
}

// OnFlowRemoved is a switch-to-controller message; a tenant never sends us
// one.
func (r *Switch) OnFlowRemoved(factory openflow.Factory, w transceiver.Writer, msg openflow.FlowRemoved) error {
	logger.Warningf("virtual switch %v: unexpected FlowRemoved from tenant controller, ignoring", r.id)
	return nil
}

// OnPacketIn is a switch-to-controller message; a tenant never sends us
// one.
func (r *Switch) OnPacketIn(factory openflow.Factory, w transceiver.Writer, msg openflow.PacketIn) error {
	logger.Warningf("virtual switch %v: unexpected PacketIn from tenant controller, ignoring", r.id)
	return nil
}

// OnPacketOut hands the tenant's PacketOut to the installer, same as
// OnFlowMod.
func (r *Switch) OnPacketOut(factory openflow.Factory, w transceiver.Writer, msg openflow.PacketOut) error {
	r.mutex.Lock()
	installer := r.installer
	r.mutex.Unlock()

	if installer == nil {
		logger.Warningf("virtual switch %v: dropped a PacketOut, no installer configured", r.id)
		return nil
	}
	return installer.SendPacketOut(r.id, msg)
}

// OnPortStatus is a switch-to-controller message; a tenant never sends us
// one. PortStatus fan-out toward the tenant is driven the other way, by
// NotifyPortStatus.
func (r *Switch) OnPortStatus(factory openflow.Factory, w transceiver.Writer, msg openflow.PortStatus) error {
	logger.Warningf("virtual switch %v: unexpected PortStatus from tenant controller, ignoring", r.id)
	return nil
}
