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
	"net"
	"time"

	"github.com/flowvisor/hypervisor/openflow"
	"github.com/flowvisor/hypervisor/physical"
	"github.com/flowvisor/hypervisor/protocol"
	"github.com/flowvisor/hypervisor/topology"
)

// startDiscovery launches the per-switch discovery loop: every topology
// period divided by the number of link-candidate ports, one crafted frame
// goes out the next port in the rotation.
func (r *session) startDiscovery() {
	ctx, cancel := context.WithCancel(context.Background())

	r.mutex.Lock()
	if r.cancelDiscovery != nil {
		r.mutex.Unlock()
		cancel()
		return
	}
	r.cancelDiscovery = cancel
	r.mutex.Unlock()

	go r.runDiscovery(ctx)
}

func (r *session) stopDiscovery() {
	r.mutex.Lock()
	cancel := r.cancelDiscovery
	r.cancelDiscovery = nil
	r.mutex.Unlock()

	if cancel != nil {
		cancel()
	}
}

// refreshDiscoveryCandidates recomputes which ports are eligible for
// discovery frames: every port not classified as a host port. A host port
// has a single tenant's machine behind it; probing it would only leak
// hypervisor frames into a tenant network.
func (r *session) refreshDiscoveryCandidates() {
	sw := r.physicalSwitch()
	if sw == nil {
		return
	}

	var candidates []topology.PortNo
	for portNo, port := range sw.Ports() {
		if port.State == physical.PortStateHost {
			continue
		}
		candidates = append(candidates, topology.PortNo(portNo))
	}
	r.scheduler.SetCandidates(candidates)
}

func (r *session) runDiscovery(ctx context.Context) {
	defer logger.Debug("discovery loop terminated")

	period := r.hv.settings.TopologyPeriod
	for {
		port, interval, ok := r.scheduler.Next(period)
		if ok {
			if err := r.sendDiscoveryFrame(uint32(port)); err != nil {
				logger.Errorf("failed to send a discovery frame: %v", err)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

func (r *session) sendDiscoveryFrame(portNo uint32) error {
	sw := r.physicalSwitch()
	if sw == nil {
		return nil
	}

	ports := sw.Ports()
	port, ok := ports[portNo]
	if !ok {
		return nil
	}

	frame := protocol.DiscoveryFrame{
		SenderDatapathID: sw.DatapathID(),
		SenderPort:       portNo,
		SendTimestamp:    uint64(time.Now().UnixNano()),
	}
	data, err := protocol.NewDiscoveryEthernetFrame(net.HardwareAddr(port.Data.HWAddr[:]), frame)
	if err != nil {
		return err
	}

	actions := &openflow.ActionList{}
	actions.Add(&openflow.OutputAction{Port: portNo, MaxLen: openflow.OFPCML_NO_BUFFER})

	return sw.SendPacketOut(actions, data)
}

// handleDiscoveryPacketIn upserts the link a discovery frame reveals: the
// frame payload names the sending side, the PacketIn names the receiving
// side. A newly discovered link triggers a route recomputation; a refresh
// of a known link only bumps its timestamp.
func (r *Hypervisor) handleDiscoveryPacketIn(sw *physical.Switch, msg openflow.PacketIn) error {
	eth := new(protocol.Ethernet)
	if err := eth.UnmarshalBinary(msg.Data()); err != nil {
		logger.Warningf("physical switch %v: malformed discovery frame: %v", sw.ID(), err)
		return nil
	}
	if eth.Type != protocol.DiscoveryEtherType {
		logger.Warningf("physical switch %v: discovery cookie on a non-discovery frame (ethertype=%#x)", sw.ID(), eth.Type)
		return nil
	}

	frame := new(protocol.DiscoveryFrame)
	if err := frame.UnmarshalBinary(eth.Payload); err != nil {
		logger.Warningf("physical switch %v: malformed discovery payload: %v", sw.ID(), err)
		return nil
	}

	r.mutex.Lock()
	senderID, ok := r.idByDPID[frame.SenderDatapathID]
	r.mutex.Unlock()
	if !ok {
		logger.Debugf("discovery frame from an unknown datapath id %#x, ignoring", frame.SenderDatapathID)
		return nil
	}

	receiverPort := packetInPort(msg)
	if receiverPort == 0 {
		logger.Warningf("physical switch %v: discovery PacketIn without an in_port match field", sw.ID())
		return nil
	}

	link := topology.Link{
		A: topology.Endpoint{Switch: senderID, Port: topology.PortNo(frame.SenderPort)},
		B: topology.Endpoint{Switch: sw.ID(), Port: topology.PortNo(receiverPort)},
	}
	if r.topo.AddLink(link) {
		logger.Infof("discovered link %v:%v <-> %v:%v", senderID, frame.SenderPort, sw.ID(), receiverPort)
		r.recomputeRoutes()
	}

	return nil
}
