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

package transceiver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/flowvisor/hypervisor/openflow"
	"github.com/flowvisor/hypervisor/openflow/of13"
)

// fakeHandler implements Handler, recording which callback fired on an
// unbuffered channel per message kind so tests can synchronize on dispatch
// without sleeping.
type fakeHandler struct {
	hello   chan openflow.Hello
	flowMod chan openflow.FlowMod
}

func newFakeHandler() *fakeHandler {
	return &fakeHandler{
		hello:   make(chan openflow.Hello, 1),
		flowMod: make(chan openflow.FlowMod, 1),
	}
}

func (h *fakeHandler) OnHello(_ openflow.Factory, _ Writer, v openflow.Hello) error {
	h.hello <- v
	return nil
}
func (h *fakeHandler) OnError(openflow.Factory, Writer, openflow.Error) error { return nil }
func (h *fakeHandler) OnFeaturesRequest(openflow.Factory, Writer, openflow.FeaturesRequest) error {
	return nil
}
func (h *fakeHandler) OnFeaturesReply(openflow.Factory, Writer, openflow.FeaturesReply) error {
	return nil
}
func (h *fakeHandler) OnGetConfigRequest(openflow.Factory, Writer, openflow.GetConfigRequest) error {
	return nil
}
func (h *fakeHandler) OnGetConfigReply(openflow.Factory, Writer, openflow.GetConfigReply) error {
	return nil
}
func (h *fakeHandler) OnSetConfig(openflow.Factory, Writer, openflow.SetConfig) error { return nil }
func (h *fakeHandler) OnMultipartRequest(openflow.Factory, Writer, openflow.MultipartRequest) error {
	return nil
}
func (h *fakeHandler) OnDescReply(openflow.Factory, Writer, openflow.DescReply) error { return nil }
func (h *fakeHandler) OnPortDescReply(openflow.Factory, Writer, openflow.PortDescReply) error {
	return nil
}
func (h *fakeHandler) OnMeterFeaturesReply(openflow.Factory, Writer, openflow.MultipartReplyMeterFeatures) error {
	return nil
}
func (h *fakeHandler) OnGroupFeaturesReply(openflow.Factory, Writer, openflow.MultipartReplyGroupFeatures) error {
	return nil
}
func (h *fakeHandler) OnBarrierRequest(openflow.Factory, Writer, openflow.BarrierRequest) error {
	return nil
}
func (h *fakeHandler) OnBarrierReply(openflow.Factory, Writer, openflow.BarrierReply) error {
	return nil
}
func (h *fakeHandler) OnFlowMod(_ openflow.Factory, _ Writer, v openflow.FlowMod) error {
	h.flowMod <- v
	return nil
}
func (h *fakeHandler) OnFlowRemoved(openflow.Factory, Writer, openflow.FlowRemoved) error {
	return nil
}
func (h *fakeHandler) OnPacketIn(openflow.Factory, Writer, openflow.PacketIn) error   { return nil }
func (h *fakeHandler) OnPacketOut(openflow.Factory, Writer, openflow.PacketOut) error { return nil }
func (h *fakeHandler) OnPortStatus(openflow.Factory, Writer, openflow.PortStatus) error {
	return nil
}

func TestTransceiverNegotiatesAndDispatchesFlowMod(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	handler := newFakeHandler()
	tr := NewTransceiver(NewStream(server, 4096), handler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- tr.Run(ctx) }()

	factory := of13.NewFactory()

	hello, err := factory.NewHello()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	helloBytes, err := hello.MarshalBinary()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := client.Write(helloBytes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-handler.hello:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for OnHello to fire")
	}

	if !tr.Negotiated() {
		t.Fatal("expected the transceiver to report negotiated after a valid Hello")
	}

	flowMod, err := factory.NewFlowMod()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	flowMod.SetTransactionID(5)
	flowModBytes, err := flowMod.MarshalBinary()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := client.Write(flowModBytes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case got := <-handler.flowMod:
		if got.TransactionID() != 5 {
			t.Fatalf("got xid=%v, want=5", got.TransactionID())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for OnFlowMod to fire")
	}
}
