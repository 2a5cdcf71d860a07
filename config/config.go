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

// Package config loads and validates the hypervisor's YAML configuration:
// the southbound listen port, the timing knobs, and the slice definitions.
// The file is watched; a rewrite re-validates and hands the new slice set
// to the registered callback so tenants can be added and removed without a
// restart. Structural settings (ports) are ignored on reload.
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	logging "github.com/superkkt/go-logging"
	"github.com/superkkt/viper"
)

var logger = logging.MustGetLogger("config")

type Config struct {
	ListenPort     uint16
	RESTPort       uint16
	LogLevel       string
	EchoInterval   time.Duration
	TopologyPeriod time.Duration
	LinkTTL        time.Duration
	Slices         []Slice
}

type Slice struct {
	ID              uint16
	ControllerHost  string
	ControllerPort  uint16
	MaxRatePPS      uint
	VirtualSwitches []VirtualSwitch
}

// Endpoint is the "host:port" address the slice's virtual switches dial.
func (r Slice) Endpoint() string {
	return net.JoinHostPort(r.ControllerHost, strconv.Itoa(int(r.ControllerPort)))
}

type VirtualSwitch struct {
	DatapathID uint64
	Ports      []PortMap
}

type PortMap struct {
	VirtualPort  uint32
	PhysicalDPID uint64
	PhysicalPort uint32
}

const (
	defaultListenPort     = 6653
	defaultTopologyPeriod = 1000 * time.Millisecond
	defaultEchoInterval   = 10000 * time.Millisecond
)

// Init reads the configuration file at path and starts watching it. On
// every rewrite the file is re-read, re-validated and, if sound, handed to
// onChange; a broken rewrite is logged and the previous configuration
// stays in force.
func Init(path string, onChange func(*Config)) (*Config, error) {
	viper.SetConfigFile(path)
	// Read the config file.
	if err := viper.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "failed to read the config file")
	}

	conf, err := parse()
	if err != nil {
		return nil, err
	}

	// Watching and re-reading config file whenever it changes.
	viper.OnConfigChange(func(e fsnotify.Event) {
		// Ignore everything but the WRITE operation to avoid reading empty config.
		if e.Op != fsnotify.Write {
			return
		}

		updated, err := parse()
		if err != nil {
			logger.Errorf("ignoring a broken configuration rewrite: %v", err)
			return
		}
		if onChange != nil {
			onChange(updated)
		}
	})
	viper.WatchConfig()

	return conf, nil
}

func parse() (*Config, error) {
	conf := &Config{
		ListenPort:     defaultListenPort,
		LogLevel:       viper.GetString("default.log_level"),
		EchoInterval:   defaultEchoInterval,
		TopologyPeriod: defaultTopologyPeriod,
	}

	if viper.IsSet("default.port") {
		port := viper.GetInt("default.port")
		if port <= 0 || port > 0xFFFF {
			return nil, errors.New("invalid default.port")
		}
		conf.ListenPort = uint16(port)
	}
	if viper.IsSet("rest.port") {
		port := viper.GetInt("rest.port")
		if port <= 0 || port > 0xFFFF {
			return nil, errors.New("invalid rest.port")
		}
		conf.RESTPort = uint16(port)
	}
	if viper.IsSet("default.echo_interval_ms") {
		ms := viper.GetInt("default.echo_interval_ms")
		if ms <= 0 {
			return nil, errors.New("invalid default.echo_interval_ms")
		}
		conf.EchoInterval = time.Duration(ms) * time.Millisecond
	}
	if viper.IsSet("default.topology_period_ms") {
		ms := viper.GetInt("default.topology_period_ms")
		if ms <= 0 {
			return nil, errors.New("invalid default.topology_period_ms")
		}
		conf.TopologyPeriod = time.Duration(ms) * time.Millisecond
	}
	conf.LinkTTL = 3 * conf.TopologyPeriod
	if viper.IsSet("default.link_ttl_ms") {
		ms := viper.GetInt("default.link_ttl_ms")
		if ms <= 0 {
			return nil, errors.New("invalid default.link_ttl_ms")
		}
		conf.LinkTTL = time.Duration(ms) * time.Millisecond
	}

	slices, err := parseSlices(viper.Get("slices"))
	if err != nil {
		return nil, err
	}
	conf.Slices = slices

	return conf, nil
}

func parseSlices(raw interface{}) ([]Slice, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, errors.New("slices should be a list")
	}

	seen := make(map[uint16]bool)
	out := make([]Slice, 0, len(items))
	for i, item := range items {
		entry, ok := toMap(item)
		if !ok {
			return nil, errors.Errorf("slices[%v] should be a map", i)
		}

		var s Slice
		id, err := toUint(entry["id"])
		if err != nil || id > 0xFFFF {
			return nil, errors.Errorf("invalid slices[%v].id", i)
		}
		s.ID = uint16(id)
		if seen[s.ID] {
			return nil, errors.Errorf("duplicate slice id %v", s.ID)
		}
		seen[s.ID] = true

		host, _ := entry["controller_host"].(string)
		if len(host) == 0 {
			return nil, errors.Errorf("empty slices[%v].controller_host", i)
		}
		s.ControllerHost = host

		port, err := toUint(entry["controller_port"])
		if err != nil || port == 0 || port > 0xFFFF {
			return nil, errors.Errorf("invalid slices[%v].controller_port", i)
		}
		s.ControllerPort = uint16(port)

		rate, err := toUint(entry["max_rate_pps"])
		if err != nil || rate == 0 {
			return nil, errors.Errorf("invalid slices[%v].max_rate_pps", i)
		}
		s.MaxRatePPS = uint(rate)

		switches, err := parseVirtualSwitches(entry["virtual_switches"])
		if err != nil {
			return nil, errors.Wrapf(err, "slices[%v]", i)
		}
		s.VirtualSwitches = switches

		out = append(out, s)
	}

	return out, nil
}

func parseVirtualSwitches(raw interface{}) ([]VirtualSwitch, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, errors.New("virtual_switches should be a list")
	}

	out := make([]VirtualSwitch, 0, len(items))
	for i, item := range items {
		entry, ok := toMap(item)
		if !ok {
			return nil, errors.Errorf("virtual_switches[%v] should be a map", i)
		}

		var v VirtualSwitch
		dpid, err := toUint(entry["dpid"])
		if err != nil {
			return nil, errors.Errorf("invalid virtual_switches[%v].dpid", i)
		}
		v.DatapathID = dpid

		ports, _ := entry["ports"].([]interface{})
		for j, p := range ports {
			pm, ok := toMap(p)
			if !ok {
				return nil, errors.Errorf("virtual_switches[%v].ports[%v] should be a map", i, j)
			}

			vport, err := toUint(pm["vport"])
			if err != nil || vport == 0 {
				return nil, errors.Errorf("invalid virtual_switches[%v].ports[%v].vport", i, j)
			}
			physDPID, err := toUint(pm["phys_dpid"])
			if err != nil {
				return nil, errors.Errorf("invalid virtual_switches[%v].ports[%v].phys_dpid", i, j)
			}
			physPort, err := toUint(pm["phys_port"])
			if err != nil || physPort == 0 {
				return nil, errors.Errorf("invalid virtual_switches[%v].ports[%v].phys_port", i, j)
			}

			v.Ports = append(v.Ports, PortMap{
				VirtualPort:  uint32(vport),
				PhysicalDPID: physDPID,
				PhysicalPort: uint32(physPort),
			})
		}

		out = append(out, v)
	}

	return out, nil
}

// toMap normalizes the two map shapes the YAML decoder may produce.
func toMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for key, value := range m {
			s, ok := key.(string)
			if !ok {
				return nil, false
			}
			out[s] = value
		}
		return out, true
	default:
		return nil, false
	}
}

// toUint accepts the numeric shapes the YAML decoder may produce, plus
// "0x"-prefixed strings so datapath ids can be written in hex.
func toUint(v interface{}) (uint64, error) {
	switch n := v.(type) {
	case int:
		if n < 0 {
			return 0, fmt.Errorf("negative value %v", n)
		}
		return uint64(n), nil
	case int64:
		if n < 0 {
			return 0, fmt.Errorf("negative value %v", n)
		}
		return uint64(n), nil
	case uint64:
		return n, nil
	case float64:
		if n < 0 || n != float64(uint64(n)) {
			return 0, fmt.Errorf("invalid numeric value %v", n)
		}
		return uint64(n), nil
	case string:
		return strconv.ParseUint(n, 0, 64)
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}
