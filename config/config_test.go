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

package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseSlices(t *testing.T) {
	raw := []interface{}{
		map[interface{}]interface{}{
			"id":              1,
			"controller_host": "10.0.0.1",
			"controller_port": 6633,
			"max_rate_pps":    500,
			"virtual_switches": []interface{}{
				map[interface{}]interface{}{
					"dpid": "0x64",
					"ports": []interface{}{
						map[interface{}]interface{}{"vport": 1, "phys_dpid": 1, "phys_port": 2},
						map[interface{}]interface{}{"vport": 2, "phys_dpid": 2, "phys_port": 2},
					},
				},
			},
		},
	}

	got, err := parseSlices(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []Slice{
		{
			ID:             1,
			ControllerHost: "10.0.0.1",
			ControllerPort: 6633,
			MaxRatePPS:     500,
			VirtualSwitches: []VirtualSwitch{
				{
					DatapathID: 0x64,
					Ports: []PortMap{
						{VirtualPort: 1, PhysicalDPID: 1, PhysicalPort: 2},
						{VirtualPort: 2, PhysicalDPID: 2, PhysicalPort: 2},
					},
				},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected slices (-want +got):\n%v", diff)
	}
}

func TestParseSlicesRejectsDuplicateIDs(t *testing.T) {
	raw := []interface{}{
		map[interface{}]interface{}{"id": 1, "controller_host": "a", "controller_port": 1, "max_rate_pps": 1},
		map[interface{}]interface{}{"id": 1, "controller_host": "b", "controller_port": 2, "max_rate_pps": 1},
	}

	if _, err := parseSlices(raw); err == nil {
		t.Fatal("duplicate slice ids should be rejected")
	}
}

func TestParseSlicesRejectsMissingController(t *testing.T) {
	raw := []interface{}{
		map[interface{}]interface{}{"id": 1, "controller_port": 1, "max_rate_pps": 1},
	}

	if _, err := parseSlices(raw); err == nil {
		t.Fatal("a slice without a controller host should be rejected")
	}
}

func TestToUintShapes(t *testing.T) {
	for _, tc := range []struct {
		in   interface{}
		want uint64
	}{
		{in: 5, want: 5},
		{in: int64(7), want: 7},
		{in: uint64(9), want: 9},
		{in: float64(11), want: 11},
		{in: "0x64", want: 0x64},
		{in: "42", want: 42},
	} {
		got, err := toUint(tc.in)
		if err != nil {
			t.Fatalf("toUint(%v): unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("toUint(%v)=%v, want=%v", tc.in, got, tc.want)
		}
	}

	for _, bad := range []interface{}{-1, float64(1.5), "nope", nil} {
		if _, err := toUint(bad); err == nil {
			t.Fatalf("toUint(%v) should have failed", bad)
		}
	}
}

func TestSliceEndpoint(t *testing.T) {
	s := Slice{ControllerHost: "10.0.0.1", ControllerPort: 6633}
	if got := s.Endpoint(); got != "10.0.0.1:6633" {
		t.Fatalf("got endpoint=%v", got)
	}
}
