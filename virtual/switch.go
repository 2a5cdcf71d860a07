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

// Package virtual models a tenant's slice as a single OpenFlow 1.3 switch:
// the hypervisor connects out to the tenant's controller and plays the
// switch role over that connection, advertising a FeaturesReply built from
// the capability intersection of the physical switches backing the slice
// and answering PortDesc requests with the union of its virtual ports. The
// connect loop runs in its own goroutine: it waits until the substrate is
// reachable, then dials the tenant controller, retrying failed dials with
// exponential backoff.
package virtual

import (
	"context"
	"encoding"
	"net"
	"sync"
	"time"

	logging "github.com/superkkt/go-logging"

	"github.com/flowvisor/hypervisor/openflow"
	"github.com/flowvisor/hypervisor/physical"
	"github.com/flowvisor/hypervisor/topology"
	"github.com/flowvisor/hypervisor/transceiver"
)

var logger = logging.MustGetLogger("virtual")

// connectTimeout bounds a single dial attempt to a tenant's controller
// endpoint.
const connectTimeout = 5 * time.Second

// State is where a VirtualSwitch is in its connection lifecycle.
type State int

const (
	StateDown State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "down"
	}
}

// VirtualPort is where one of a slice's tenant-facing ports actually lives
// on the physical substrate.
type VirtualPort struct {
	PhysicalSwitch topology.SwitchID
	PhysicalPort   uint32
}

type physicalLocation struct {
	sw   topology.SwitchID
	port uint32
}

// PhysicalRegistry is the subset of the hypervisor's switch bookkeeping a
// VirtualSwitch needs: looking up the physical.Switch backing a port and
// the current substrate distances between them, kept as an interface so
// this package is not wired to one concrete registry shape.
type PhysicalRegistry interface {
	PhysicalSwitch(id topology.SwitchID) (*physical.Switch, bool)
	Distance(a, b topology.SwitchID) int
}

// Switch is one tenant's slice, presented to that tenant's controller as a
// single OpenFlow 1.3 switch.
type Switch struct {
	mutex sync.Mutex

	// id is the virtual switch id threaded through the metadata tag and
	// physical.Switch.RegisterSliceTarget.
	id      uint32
	sliceID uint16
	// datapathID is what this slice advertises to its tenant controller in
	// FeaturesReply; it never changes while the slice exists.
	datapathID uint64
	endpoint   string

	registry PhysicalRegistry

	ports     map[uint32]VirtualPort
	locations map[physicalLocation]uint32

	state   State
	backoff backoff
	factory openflow.Factory

	conn   net.Conn
	tr     *transceiver.Transceiver
	cancel context.CancelFunc

	installer Installer
}

// NewSwitch creates a slice's virtual switch. endpoint is the tenant
// controller's "host:port" address the hypervisor dials out to.
func NewSwitch(id uint32, sliceID uint16, datapathID uint64, endpoint string, registry PhysicalRegistry, factory openflow.Factory) *Switch {
	return &Switch{
		id:         id,
		sliceID:    sliceID,
		datapathID: datapathID,
		endpoint:   endpoint,
		registry:   registry,
		ports:      make(map[uint32]VirtualPort),
		locations:  make(map[physicalLocation]uint32),
		factory:    factory,
	}
}

func (r *Switch) ID() uint32 { return r.id }

func (r *Switch) SliceID() uint16 { return r.sliceID }

func (r *Switch) DatapathID() uint64 { return r.datapathID }

// Ports returns a snapshot of the virtual-to-physical port map.
func (r *Switch) Ports() map[uint32]VirtualPort {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	out := make(map[uint32]VirtualPort, len(r.ports))
	for no, loc := range r.ports {
		out[no] = loc
	}
	return out
}

// PhysicalSwitches returns the distinct physical switches backing this
// slice's ports.
func (r *Switch) PhysicalSwitches() []topology.SwitchID {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.physicalSwitches()
}

func (r *Switch) State() State {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.state
}

// AddPort maps a tenant-facing virtual port number to a location on the
// physical substrate, mirroring VirtualSwitch::add_port.
func (r *Switch) AddPort(virtualPort uint32, location VirtualPort) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.ports[virtualPort] = location
	r.locations[physicalLocation{location.PhysicalSwitch, location.PhysicalPort}] = virtualPort
}

// RemovePort undoes AddPort, mirroring VirtualSwitch::remove_port.
func (r *Switch) RemovePort(virtualPort uint32) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if loc, ok := r.ports[virtualPort]; ok {
		delete(r.locations, physicalLocation{loc.PhysicalSwitch, loc.PhysicalPort})
		delete(r.ports, virtualPort)
	}
}

// VirtualPortOf looks up which tenant-facing port number a physical
// (switch, port) pair is currently mapped to, used by PortStatus fan-out.
func (r *Switch) VirtualPortOf(sw topology.SwitchID, port uint32) (uint32, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	v, ok := r.locations[physicalLocation{sw, port}]
	return v, ok
}

func (r *Switch) physicalSwitches() []topology.SwitchID {
	seen := make(map[topology.SwitchID]struct{})
	var out []topology.SwitchID
	for _, loc := range r.ports {
		if _, ok := seen[loc.PhysicalSwitch]; !ok {
			seen[loc.PhysicalSwitch] = struct{}{}
			out = append(out, loc.PhysicalSwitch)
		}
	}
	return out
}

// reachable is the gate before Connected: every physical switch backing a
// port must be registered, and every pair of them must have a finite
// substrate distance between them.
func (r *Switch) reachable() bool {
	switches := r.physicalSwitches()
	for _, id := range switches {
		sw, ok := r.registry.PhysicalSwitch(id)
		if !ok || !sw.Registered() {
			return false
		}
	}
	for i := range switches {
		for j := range switches {
			if i == j {
				continue
			}
			if r.registry.Distance(switches[i], switches[j]) >= topology.Infinite {
				return false
			}
		}
	}
	return true
}

// capabilities intersects the OFPC_* bits of every physical switch backing
// this slice: a slice can only advertise a capability every one of its
// physical switches actually has.
func (r *Switch) capabilities() uint32 {
	switches := r.physicalSwitches()
	if len(switches) == 0 {
		return 0
	}

	caps := ^uint32(0)
	for _, id := range switches {
		sw, ok := r.registry.PhysicalSwitch(id)
		if !ok {
			return 0
		}
		caps &= sw.Capabilities()
	}
	return caps
}

// numTables returns the smallest tenant-visible table count across the
// physical switches backing this slice: each one reserves its first
// openflow.FirstTenantTable tables for substrate plumbing, so a tenant
// FlowMod's GoToTable must stay within the narrowest remaining pipeline.
func (r *Switch) numTables() uint8 {
	switches := r.physicalSwitches()
	if len(switches) == 0 {
		return 0
	}

	var min uint8
	for i, id := range switches {
		sw, ok := r.registry.PhysicalSwitch(id)
		if !ok {
			return 0
		}
		available := sw.NumTables() - openflow.FirstTenantTable
		if i == 0 || available < min {
			min = available
		}
	}
	return min
}

// Start begins the connect-with-backoff loop. It returns immediately; the
// loop runs until ctx is cancelled or Stop is called.
func (r *Switch) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.mutex.Lock()
	r.cancel = cancel
	r.mutex.Unlock()

	go r.run(ctx)
}

// Stop tears down the current connection, if any, and ends the reconnect
// loop started by Start.
func (r *Switch) Stop() {
	r.mutex.Lock()
	cancel := r.cancel
	r.mutex.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (r *Switch) run(ctx context.Context) {
	for {
		if !r.reachable() {
			r.setState(StateDown)
			select {
			case <-ctx.Done():
				return
			case <-time.After(1 * time.Second):
				continue
			}
		}

		if err := r.connect(ctx); err != nil {
			logger.Errorf("virtual switch %v: failed to connect to %v: %v", r.id, r.endpoint, err)
			delay := r.backoff.next()
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}

		r.backoff.reset()

		// Blocks until the connection drops or ctx is cancelled.
		r.serve(ctx)

		r.setState(StateDown)
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (r *Switch) setState(s State) {
	r.mutex.Lock()
	r.state = s
	r.mutex.Unlock()
}

func (r *Switch) connect(ctx context.Context) error {
	r.setState(StateConnecting)

	conn, err := net.DialTimeout("tcp", r.endpoint, connectTimeout)
	if err != nil {
		return err
	}

	tr := transceiver.NewTransceiver(transceiver.NewStream(conn, 4096), r)

	hello, err := r.factory.NewHello()
	if err != nil {
		conn.Close()
		return err
	}
	if err := tr.Write(hello); err != nil {
		conn.Close()
		return err
	}

	r.mutex.Lock()
	r.conn = conn
	r.tr = tr
	r.mutex.Unlock()

	logger.Infof("virtual switch %v: connected to %v", r.id, r.endpoint)
	return nil
}

func (r *Switch) serve(ctx context.Context) {
	r.mutex.Lock()
	tr := r.tr
	r.mutex.Unlock()

	if err := tr.Run(ctx); err != nil {
		logger.Errorf("virtual switch %v: connection to %v closed: %v", r.id, r.endpoint, err)
	}

	r.mutex.Lock()
	if r.conn != nil {
		r.conn.Close()
	}
	r.conn, r.tr = nil, nil
	r.mutex.Unlock()
}

// write marshals and sends msg to the tenant controller, if connected.
func (r *Switch) write(msg encoding.BinaryMarshaler) error {
	r.mutex.Lock()
	tr := r.tr
	r.mutex.Unlock()

	if tr == nil {
		return errNotConnected
	}
	return tr.Write(msg)
}

// Send marshals and forwards msg to the tenant controller. It is how the
// hypervisor delivers translated replies, PacketIns, and Errors to the
// tenant; callers see errNotConnected if the slice is currently down.
func (r *Switch) Send(msg encoding.BinaryMarshaler) error {
	return r.write(msg)
}

// ReevaluateReachability is called by the hypervisor after every route
// recomputation. A connected switch whose physical substrate is no longer
// pairwise reachable tears down its controller connection; the tenant sees
// a TCP close and the reconnect loop keeps probing until the substrate
// heals.
func (r *Switch) ReevaluateReachability() {
	r.mutex.Lock()
	state, tr := r.state, r.tr
	r.mutex.Unlock()

	if state != StateConnected {
		return
	}
	if r.reachable() {
		return
	}

	logger.Warningf("virtual switch %v: physical substrate no longer reachable, disconnecting from its controller", r.id)
	if tr != nil {
		tr.Close()
	}
}

// NotifyPortStatus rewrites a PortStatus from a physical switch's own port
// numbering to this slice's tenant-facing numbering and forwards it. It
// is a no-op if the port in
// question is not currently mapped into this slice, or the slice is not
// connected.
func (r *Switch) NotifyPortStatus(sw topology.SwitchID, reason uint8, port openflow.Port) error {
	vport, ok := r.VirtualPortOf(sw, port.PortNo)
	if !ok {
		return nil
	}

	status, err := r.factory.NewPortStatus()
	if err != nil {
		return err
	}
	status.SetReason(reason)
	port.PortNo = vport
	status.SetDesc(port)

	if err := r.write(status); err != errNotConnected {
		return err
	}
	return nil
}
