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

package api

import (
	"github.com/ant0ine/go-json-rest/rest"
	"github.com/davecgh/go-spew/spew"
)

// Status is what the hypervisor exposes to the read-only surface.
type Status interface {
	Switches() []SwitchStatus
	Slices() []SliceStatus
	Links() []LinkStatus
}

type SwitchStatus struct {
	ID         int          `json:"id"`
	DatapathID string       `json:"dpid"`
	NumTables  uint8        `json:"num_tables"`
	Ports      []PortStatus `json:"ports"`
}

type PortStatus struct {
	Number uint32 `json:"number"`
	Name   string `json:"name"`
	State  string `json:"state"`
}

type SliceStatus struct {
	ID         uint16                `json:"id"`
	Controller string                `json:"controller"`
	MaxRatePPS uint                  `json:"max_rate_pps"`
	Started    bool                  `json:"started"`
	Switches   []VirtualSwitchStatus `json:"switches"`
}

type VirtualSwitchStatus struct {
	DatapathID string `json:"dpid"`
	State      string `json:"state"`
	NumPorts   int    `json:"num_ports"`
}

type LinkStatus struct {
	A LinkEndpoint `json:"a"`
	B LinkEndpoint `json:"b"`
}

type LinkEndpoint struct {
	Switch int    `json:"switch"`
	Port   uint32 `json:"port"`
}

type Config struct {
	Server
	Status Status
}

type Core struct {
	Config
}

func (r *Core) Serve() error {
	return r.Server.Serve(
		rest.Get("/api/v1/switch", r.listSwitch),
		rest.Get("/api/v1/slice", r.listSlice),
		rest.Get("/api/v1/topology", r.listTopology),
	)
}

func (r *Core) listSwitch(w rest.ResponseWriter, req *rest.Request) {
	switches := r.Status.Switches()
	logger.Debugf("switch list request from %v: %v", req.RemoteAddr, spew.Sdump(switches))

	w.WriteJson(Response{Status: StatusOkay, Data: switches})
}

func (r *Core) listSlice(w rest.ResponseWriter, req *rest.Request) {
	slices := r.Status.Slices()
	logger.Debugf("slice list request from %v: %v", req.RemoteAddr, spew.Sdump(slices))

	w.WriteJson(Response{Status: StatusOkay, Data: slices})
}

func (r *Core) listTopology(w rest.ResponseWriter, req *rest.Request) {
	links := r.Status.Links()
	logger.Debugf("topology request from %v: %v", req.RemoteAddr, spew.Sdump(links))

	w.WriteJson(Response{Status: StatusOkay, Data: links})
}
