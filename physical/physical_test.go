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

package physical

import (
	"encoding"
	"testing"

	"github.com/flowvisor/hypervisor/openflow"
	"github.com/flowvisor/hypervisor/openflow/of13"
	"github.com/flowvisor/hypervisor/topology"
)

// recordingWriter captures every message handed to Write, standing in for
// the transceiver in tests that only care about which FlowMods/GroupMods a
// switch decides to emit.
type recordingWriter struct {
	sent []encoding.BinaryMarshaler
}

func (w *recordingWriter) Write(msg encoding.BinaryMarshaler) error {
	w.sent = append(w.sent, msg)
	return nil
}

func newTestSwitch() (*Switch, *recordingWriter) {
	w := &recordingWriter{}
	return New(topology.SwitchID(1), w, of13.NewFactory()), w
}

func TestClassifyPrefersLinkOverHost(t *testing.T) {
	sw, _ := newTestSwitch()
	sw.RegisterPortInterest(5, 42)

	state, _ := sw.classify(5, true)
	if state != PortStateLink {
		t.Fatalf("got state=%v, want=link", state)
	}
}

func TestClassifySingleInterestedSwitchIsHost(t *testing.T) {
	sw, _ := newTestSwitch()
	sw.RegisterPortInterest(5, 42)

	state, vswitch := sw.classify(5, false)
	if state != PortStateHost || vswitch != 42 {
		t.Fatalf("got state=%v vswitch=%v, want=host/42", state, vswitch)
	}
}

func TestClassifyNoInterestOrMultipleInterestIsDrop(t *testing.T) {
	sw, _ := newTestSwitch()

	if state, _ := sw.classify(5, false); state != PortStateDrop {
		t.Fatalf("got state=%v, want=drop (no interest)", state)
	}

	sw.RegisterPortInterest(5, 42)
	sw.RegisterPortInterest(5, 43)
	if state, _ := sw.classify(5, false); state != PortStateDrop {
		t.Fatalf("got state=%v, want=drop (multiple interest)", state)
	}
}

func TestUpdateDynamicRulesSkipsUnchangedClassification(t *testing.T) {
	sw, w := newTestSwitch()
	sw.ports[5] = &Port{Data: openflow.Port{PortNo: 5}, State: PortStateNone}
	sw.RegisterPortInterest(5, 42)

	hasLink := func(uint32) bool { return false }
	topo := topology.New()

	if err := sw.UpdateDynamicRules(hasLink, topo, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	firstRound := len(w.sent)
	if firstRound == 0 {
		t.Fatal("expected the first classification to emit FlowMods")
	}

	if err := sw.UpdateDynamicRules(hasLink, topo, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.sent) != firstRound {
		t.Fatalf("got %v messages after an unchanged round, want=%v (no new FlowMods)", len(w.sent), firstRound)
	}
}

func TestUpdateDynamicRulesModifiesOnClassificationChange(t *testing.T) {
	sw, w := newTestSwitch()
	sw.ports[5] = &Port{Data: openflow.Port{PortNo: 5}, State: PortStateNone}
	sw.RegisterPortInterest(5, 42)

	topo := topology.New()
	if err := sw.UpdateDynamicRules(func(uint32) bool { return false }, topo, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The link now appears, so classification should flip host -> link and
	// use MODIFY rather than ADD.
	if err := sw.UpdateDynamicRules(func(uint32) bool { return true }, topo, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sawModify bool
	for _, msg := range w.sent {
		if fm, ok := msg.(openflow.FlowMod); ok && fm.Command() == openflow.FlowModCommandModify {
			sawModify = true
		}
	}
	if !sawModify {
		t.Fatal("expected a MODIFY FlowMod after the classification changed")
	}
	if sw.ports[5].State != PortStateLink {
		t.Fatalf("got final state=%v, want=link", sw.ports[5].State)
	}
}

func TestUpdateDynamicRulesNeverInstallsTable1ForDrop(t *testing.T) {
	sw, w := newTestSwitch()
	sw.ports[5] = &Port{Data: openflow.Port{PortNo: 5}, State: PortStateNone}

	topo := topology.New()
	if err := sw.UpdateDynamicRules(func(uint32) bool { return false }, topo, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, msg := range w.sent {
		fm, ok := msg.(openflow.FlowMod)
		if ok && fm.TableID() == openflow.ForwardingTable {
			t.Fatal("did not expect a table-1 FlowMod for a DropRule port")
		}
	}
}

func TestXIDTranslatorResolveRoundTrip(t *testing.T) {
	x := newXIDTranslator()
	x.store(99, 7, 42)

	source, ok := x.resolve(99)
	if !ok {
		t.Fatal("expected resolve to find the stored entry")
	}
	if source.originalXID != 7 || source.virtualSwitchID != 42 {
		t.Fatalf("got %+v, want original=7 vswitch=42", source)
	}

	if _, ok := x.resolve(99); ok {
		t.Fatal("expected resolve to remove the entry after the first lookup")
	}
}

func TestXIDTranslatorResolveMissReturnsNotFound(t *testing.T) {
	x := newXIDTranslator()
	if _, ok := x.resolve(123); ok {
		t.Fatal("expected a miss for an xid that was never stored")
	}
}

func TestForwardRequestRewritesXIDAndRemembersSource(t *testing.T) {
	sw, w := newTestSwitch()

	fm, err := sw.factory.NewFlowMod()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fm.SetTransactionID(7)

	if err := sw.ForwardRequest(fm, 42); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.sent) != 1 {
		t.Fatalf("got %v messages sent, want=1", len(w.sent))
	}

	sent := w.sent[0].(openflow.FlowMod)
	newXID := sent.TransactionID()
	if newXID == 7 {
		t.Fatal("expected the forwarded message's xid to be rewritten")
	}

	originalXID, vswitchID, ok := sw.ResolveReply(newXID)
	if !ok {
		t.Fatal("expected ResolveReply to find the translation entry")
	}
	if originalXID != 7 || vswitchID != 42 {
		t.Fatalf("got original=%v vswitch=%v, want 7/42", originalXID, vswitchID)
	}
}
