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

// Package hypervisor owns the process-wide registries: the physical
// switches connected southbound, the slices and virtual switches defined by
// configuration, and the topology with its all-pairs routing tables. Every
// cross-switch decision lives here: route recomputation fan-out, indirect
// output-group allocation, tenant FlowMod installation, and barrier
// aggregation. The registry is explicit state passed into every component
// at construction, never a package-level singleton.
package hypervisor

import (
	"context"
	"net"
	"sync"
	"time"

	logging "github.com/superkkt/go-logging"

	"github.com/flowvisor/hypervisor/openflow"
	"github.com/flowvisor/hypervisor/openflow/of13"
	"github.com/flowvisor/hypervisor/physical"
	"github.com/flowvisor/hypervisor/protocol"
	"github.com/flowvisor/hypervisor/slice"
	"github.com/flowvisor/hypervisor/topology"
	"github.com/flowvisor/hypervisor/transceiver"
	"github.com/flowvisor/hypervisor/virtual"
)

var logger = logging.MustGetLogger("hypervisor")

// Settings are the timing knobs from the configuration surface. Zero
// values fall back to the protocol defaults.
type Settings struct {
	EchoInterval   time.Duration
	TopologyPeriod time.Duration
	LinkTTL        time.Duration
}

func (r *Settings) applyDefaults() {
	if r.EchoInterval <= 0 {
		r.EchoInterval = 10 * time.Second
	}
	if r.TopologyPeriod <= 0 {
		r.TopologyPeriod = 1 * time.Second
	}
	if r.LinkTTL <= 0 {
		r.LinkTTL = 3 * r.TopologyPeriod
	}
}

// groupKey names one indirect output group: the virtual port it delivers
// to, scoped by the virtual switch owning that port.
type groupKey struct {
	virtualSwitchID uint32
	virtualPort     uint32
}

type Hypervisor struct {
	mutex sync.Mutex

	factory  openflow.Factory
	topo     *topology.Topology
	settings Settings

	// idByDPID assigns each datapath id a small, stable local switch id the
	// first time it registers; the id survives reconnects so that
	// SwitchVLANTag values stay valid across a switch flap.
	idByDPID map[uint64]topology.SwitchID
	nextID   topology.SwitchID

	sessions map[topology.SwitchID]*session

	slices        map[uint16]*slice.Slice
	vswitches     map[uint32]*virtual.Switch
	vswitchSlice  map[uint32]*slice.Slice
	nextVSwitchID uint32

	outputGroups  map[topology.SwitchID]map[groupKey]uint32
	forwardGroups map[topology.SwitchID]map[topology.SwitchID]uint32

	barriers map[barrierKey]*pendingBarrier
	touched  map[uint32]map[topology.SwitchID]struct{}
}

func New(settings Settings) *Hypervisor {
	settings.applyDefaults()

	return &Hypervisor{
		factory:       of13.NewFactory(),
		topo:          topology.New(),
		settings:      settings,
		idByDPID:      make(map[uint64]topology.SwitchID),
		sessions:      make(map[topology.SwitchID]*session),
		slices:        make(map[uint16]*slice.Slice),
		vswitches:     make(map[uint32]*virtual.Switch),
		vswitchSlice:  make(map[uint32]*slice.Slice),
		outputGroups:  make(map[topology.SwitchID]map[groupKey]uint32),
		forwardGroups: make(map[topology.SwitchID]map[topology.SwitchID]uint32),
		barriers:      make(map[barrierKey]*pendingBarrier),
		touched:       make(map[uint32]map[topology.SwitchID]struct{}),
	}
}

// Topology exposes the substrate view for status reporting and tests.
func (r *Hypervisor) Topology() *topology.Topology {
	return r.topo
}

// idForDPID returns the local switch id reserved for a datapath id,
// allocating one on first sight.
func (r *Hypervisor) idForDPID(dpid uint64) topology.SwitchID {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.idForDPIDLocked(dpid)
}

func (r *Hypervisor) idForDPIDLocked(dpid uint64) topology.SwitchID {
	if id, ok := r.idByDPID[dpid]; ok {
		return id
	}
	r.nextID++
	r.idByDPID[dpid] = r.nextID

	return r.nextID
}

// PhysicalSwitch returns the registered physical switch with the given
// local id, implementing virtual.PhysicalRegistry's lookup half.
func (r *Hypervisor) PhysicalSwitch(id topology.SwitchID) (*physical.Switch, bool) {
	r.mutex.Lock()
	s, ok := r.sessions[id]
	r.mutex.Unlock()

	if !ok {
		return nil, false
	}
	sw := s.physicalSwitch()
	if sw == nil || !sw.Registered() {
		return nil, false
	}
	return sw, true
}

// Distance implements virtual.PhysicalRegistry's routing half.
func (r *Hypervisor) Distance(a, b topology.SwitchID) int {
	return r.topo.Distance(a, b)
}

// AddConnection serves a newly accepted southbound TCP connection. It
// returns immediately; the connection's read loop runs until the peer
// disconnects, fails an echo probe, or ctx is cancelled.
func (r *Hypervisor) AddConnection(ctx context.Context, conn net.Conn) {
	stream := transceiver.NewStream(conn, 0xFFFF)
	s := &session{hv: r, scheduler: topology.NewScheduler()}
	tr := transceiver.NewTransceiver(stream, s)
	tr.SetIdleTimeout(r.settings.EchoInterval)
	s.tr = tr

	go func() {
		defer r.removeSession(s)
		defer tr.Close()

		hello, err := r.factory.NewHello()
		if err != nil {
			logger.Errorf("failed to create a HELLO message: %v", err)
			return
		}
		if err := tr.Write(hello); err != nil {
			logger.Errorf("failed to greet the new switch at %v: %v", conn.RemoteAddr(), err)
			return
		}
		if err := tr.Run(ctx); err != nil {
			logger.Errorf("southbound connection from %v closed: %v", conn.RemoteAddr(), err)
		}
	}()
}

// registerSession is called once a session's FeaturesReply named its
// datapath id. A still-live previous session for the same datapath id is
// evicted first, mirroring the duplicate-DPID canceller.
func (r *Hypervisor) registerSession(s *session, dpid uint64) topology.SwitchID {
	r.mutex.Lock()
	id := r.idForDPIDLocked(dpid)
	stale, hasStale := r.sessions[id]
	r.sessions[id] = s
	r.mutex.Unlock()

	if hasStale && stale != s {
		logger.Warningf("physical switch %v: duplicate datapath id %#x, evicting the previous connection", id, dpid)
		stale.close()
	}

	r.topo.AddSwitch(id)
	return id
}

// removeSession tears down all registry state derived from one southbound
// connection: its topology vertex and links, its groups, its pending
// barriers, and every route that crossed it.
func (r *Hypervisor) removeSession(s *session) {
	s.stopDiscovery()

	sw := s.physicalSwitch()
	if sw == nil {
		return
	}
	id := sw.ID()

	r.mutex.Lock()
	if r.sessions[id] != s {
		// A newer connection for the same datapath id already took over;
		// its registry state must survive this teardown.
		r.mutex.Unlock()
		return
	}
	delete(r.sessions, id)
	delete(r.outputGroups, id)
	delete(r.forwardGroups, id)
	r.mutex.Unlock()

	r.dropBarriersFor(id)
	r.topo.RemoveSwitch(id)

	logger.Infof("physical switch %v (dpid=%#x) unregistered", id, sw.DatapathID())
	r.recomputeRoutes()
}

// sliceMeters snapshots the (meter id, rate) pairs the static-rule
// installer needs, one drop meter per configured slice.
func (r *Hypervisor) sliceMeters() []physical.SliceMeter {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	out := make([]physical.SliceMeter, 0, len(r.slices))
	for _, sl := range r.slices {
		out = append(out, physical.SliceMeter{ID: sl.MeterID(), MaxRatePPS: uint32(sl.MaxRatePPS())})
	}
	return out
}

func (r *Hypervisor) sliceCount() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.slices)
}

func (r *Hypervisor) virtualSwitch(id uint32) (*virtual.Switch, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	v, ok := r.vswitches[id]
	return v, ok
}

func (r *Hypervisor) sliceOf(virtualSwitchID uint32) (*slice.Slice, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	sl, ok := r.vswitchSlice[virtualSwitchID]
	return sl, ok
}

// registeredSessions snapshots every session whose switch has completed its
// FeaturesReply, in no particular order.
func (r *Hypervisor) registeredSessions() []*session {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	out := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		if sw := s.physicalSwitch(); sw != nil && sw.Registered() {
			out = append(out, s)
		}
	}
	return out
}

// recomputeRoutes fans a routing change out to every registered switch:
// the switch-forward groups are rewritten first (redirecting every
// dependent output group), then each switch's dynamic rules are diffed
// against the new next-hop table, and finally every connected virtual
// switch re-checks its reachability gate. Floyd-Warshall itself already ran
// inside the topology package when the link set changed; this is the
// enactment half.
func (r *Hypervisor) recomputeRoutes() {
	sessions := r.registeredSessions()

	all := make([]topology.SwitchID, 0, len(sessions))
	for _, s := range sessions {
		all = append(all, s.physicalSwitch().ID())
	}

	for _, s := range sessions {
		sw := s.physicalSwitch()
		id := sw.ID()

		forward := r.ensureForwardGroups(sw, all)
		if err := sw.UpdateSwitchForwardGroups(r.topo, forward); err != nil {
			logger.Errorf("physical switch %v: failed to update switch-forward groups: %v", id, err)
		}

		hasLink := func(portNo uint32) bool {
			return r.topo.HasLink(topology.Endpoint{Switch: id, Port: topology.PortNo(portNo)})
		}
		if err := sw.UpdateDynamicRules(hasLink, r.topo, all); err != nil {
			logger.Errorf("physical switch %v: failed to update dynamic rules: %v", id, err)
		}

		s.refreshDiscoveryCandidates()
	}

	r.mutex.Lock()
	vswitches := make([]*virtual.Switch, 0, len(r.vswitches))
	for _, v := range r.vswitches {
		vswitches = append(vswitches, v)
	}
	r.mutex.Unlock()

	for _, v := range vswitches {
		v.ReevaluateReachability()
	}
}

// ensureForwardGroups allocates this switch's switch_forward_group[target]
// for every other registered switch, returning the full target-to-group-id
// table for UpdateSwitchForwardGroups.
func (r *Hypervisor) ensureForwardGroups(sw *physical.Switch, all []topology.SwitchID) map[topology.SwitchID]uint32 {
	id := sw.ID()

	r.mutex.Lock()
	groups, ok := r.forwardGroups[id]
	if !ok {
		groups = make(map[topology.SwitchID]uint32)
		r.forwardGroups[id] = groups
	}
	missing := make([]topology.SwitchID, 0)
	for _, target := range all {
		if target == id {
			continue
		}
		if _, ok := groups[target]; !ok {
			missing = append(missing, target)
		}
	}
	r.mutex.Unlock()

	for _, target := range missing {
		spec := physical.OutputGroupSpec{} // bucket is rewritten right away by UpdateSwitchForwardGroups
		groupID, err := sw.AllocateOutputGroup(spec)
		if err != nil {
			logger.Errorf("physical switch %v: failed to allocate a switch-forward group for target %v: %v", id, target, err)
			continue
		}
		r.mutex.Lock()
		groups[target] = groupID
		r.mutex.Unlock()
	}

	r.mutex.Lock()
	out := make(map[topology.SwitchID]uint32, len(groups))
	for target, groupID := range groups {
		out[target] = groupID
	}
	r.mutex.Unlock()

	return out
}

// Run blocks until ctx is cancelled, sweeping stale links out of the
// topology once per discovery period. A link whose last discovery frame is
// older than LinkTTL is dropped from both endpoint switches and the routes
// crossing it are recomputed.
func (r *Hypervisor) Run(ctx context.Context) {
	ticker := time.NewTicker(r.settings.TopologyPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("terminating the stale-link sweeper...")
			return
		case <-ticker.C:
			if removed := r.topo.RemoveStaleLinks(r.settings.LinkTTL); len(removed) > 0 {
				r.recomputeRoutes()
			}
		}
	}
}

// DiscoveryEtherType is re-exported so the status surface and tests don't
// import protocol directly for it.
const DiscoveryEtherType = protocol.DiscoveryEtherType
