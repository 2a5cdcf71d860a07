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

// Package transceiver is the connection core shared by every TCP endpoint
// this hypervisor speaks OpenFlow 1.3 over: southbound to physical
// switches (the hypervisor acting as controller) and northbound to tenant
// controllers (the hypervisor acting as a switch). Only one Handler shape
// is defined; a physical.Switch and a virtual.Switch each implement every
// method, rejecting whichever half of the vocabulary does not belong to
// their role.
package transceiver

import (
	"context"
	"encoding"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/flowvisor/hypervisor/openflow"
	"github.com/flowvisor/hypervisor/openflow/of13"

	"github.com/pkg/errors"
	"github.com/superkkt/go-logging"
)

var logger = logging.MustGetLogger("transceiver")

const (
	// Allowed idle time before we send an echo request to the peer.
	maxIdleTime = 10 * time.Second
	// I/O timeouts (these should be less than maxIdleTime).
	readTimeout  = 1 * time.Second
	writeTimeout = readTimeout * 2
)

type Writer interface {
	Write(msg encoding.BinaryMarshaler) error
}

type WriteCloser interface {
	Writer
	Close() error
}

// Handler receives every message kind that can legitimately cross a
// hypervisor TCP boundary in either direction. A connection only ever
// exercises one half at a time; the other half's methods exist so the
// implementer can log-and-reject, mirroring how a real switch or a real
// controller responds to a message it was never supposed to receive.
type Handler interface {
	OnHello(openflow.Factory, Writer, openflow.Hello) error
	OnError(openflow.Factory, Writer, openflow.Error) error
	OnFeaturesRequest(openflow.Factory, Writer, openflow.FeaturesRequest) error
	OnFeaturesReply(openflow.Factory, Writer, openflow.FeaturesReply) error
	OnGetConfigRequest(openflow.Factory, Writer, openflow.GetConfigRequest) error
	OnGetConfigReply(openflow.Factory, Writer, openflow.GetConfigReply) error
	OnSetConfig(openflow.Factory, Writer, openflow.SetConfig) error
	OnMultipartRequest(openflow.Factory, Writer, openflow.MultipartRequest) error
	OnDescReply(openflow.Factory, Writer, openflow.DescReply) error
	OnPortDescReply(openflow.Factory, Writer, openflow.PortDescReply) error
	OnMeterFeaturesReply(openflow.Factory, Writer, openflow.MultipartReplyMeterFeatures) error
	OnGroupFeaturesReply(openflow.Factory, Writer, openflow.MultipartReplyGroupFeatures) error
	OnBarrierRequest(openflow.Factory, Writer, openflow.BarrierRequest) error
	OnBarrierReply(openflow.Factory, Writer, openflow.BarrierReply) error
	OnFlowMod(openflow.Factory, Writer, openflow.FlowMod) error
	OnFlowRemoved(openflow.Factory, Writer, openflow.FlowRemoved) error
	OnPacketIn(openflow.Factory, Writer, openflow.PacketIn) error
	OnPacketOut(openflow.Factory, Writer, openflow.PacketOut) error
	OnPortStatus(openflow.Factory, Writer, openflow.PortStatus) error
}

type Transceiver struct {
	stream      *Stream
	observer    Handler
	factory     openflow.Factory
	negotiated  bool
	pingCounter uint
	closed      bool
	idleTimeout time.Duration
}

func NewTransceiver(stream *Stream, handler Handler) *Transceiver {
	if stream == nil {
		panic("stream is nil")
	}
	if handler == nil {
		panic("handler is nil")
	}

	return &Transceiver{
		stream:      stream,
		observer:    handler,
		factory:     of13.NewFactory(),
		idleTimeout: maxIdleTime,
	}
}

// SetIdleTimeout overrides the default echo interval: the connection is
// probed with an echo request after this much idle time, and a single
// unanswered probe closes it. Must be called before Run.
func (r *Transceiver) SetIdleTimeout(d time.Duration) {
	if d > 0 {
		r.idleTimeout = d
	}
}

func (r *Transceiver) Negotiated() bool {
	return r.negotiated
}

func isTimeout(err error) bool {
	type Timeout interface {
		Timeout() bool
	}

	if v, ok := err.(Timeout); ok {
		return v.Timeout()
	}

	return false
}

// sendEchoRequest declares the peer dead after a single unanswered echo
// request rather than tolerating a run of misses, since a hypervisor's
// southbound and northbound connections are both expected to be on a low
// latency local network.
func (r *Transceiver) sendEchoRequest() error {
	if r.pingCounter >= 1 {
		return errors.New("device does not respond to our echo request")
	}

	echo, err := r.factory.NewEchoRequest()
	if err != nil {
		return err
	}
	// Current timestamp, to measure latency once the reply arrives.
	timestamp, err := time.Now().GobEncode()
	if err != nil {
		return err
	}
	echo.SetData(timestamp)

	if err := r.Write(echo); err != nil {
		return errors.Wrap(err, "failed to send ECHO_REQUEST message")
	}
	r.pingCounter++

	return nil
}

func (r *Transceiver) Run(ctx context.Context) error {
	defer logger.Info("transceiver is closed")
	r.stream.SetReadTimeout(readTimeout)
	r.stream.SetWriteTimeout(writeTimeout)

	readerCtx, cancelReader := context.WithCancel(ctx)
	defer cancelReader()
	reader := r.runReader(readerCtx)

	packet, err := r.negotiate(ctx, reader)
	if err != nil {
		return errors.Wrap(err, "failed to negotiate the protocol version")
	}

	for {
		if err := r.dispatch(packet); err != nil {
			if !isTemporaryErr(err) {
				return err
			}
			logger.Errorf("failed to dispatch the packet: %v", err)
		}

		var ok bool
		select {
		case <-ctx.Done():
			logger.Info("context done")
			return nil
		case packet, ok = <-reader:
			if !ok {
				logger.Info("the reader channel is closed")
				return nil
			}
			remain := len(reader)
			if remain > 0 {
				logger.Debugf("%v remaining unread packet(s) in the reader channel", remain)
			}
		}
	}
}

func (r *Transceiver) negotiate(ctx context.Context, reader <-chan []byte) (packet []byte, err error) {
	select {
	case <-ctx.Done():
		return nil, errors.New("context done")
	case <-time.After(30 * time.Second):
		return nil, errors.New("inactive for too long")
	case packet, ok := <-reader:
		if !ok {
			return nil, errors.New("the reader channel is closed")
		}
		if packet[1] != openflow.OFPT_HELLO {
			return nil, errors.New("missing HELLO message")
		}
		if packet[0] != openflow.OF13_VERSION {
			return nil, openflow.ErrUnsupportedVersion
		}
		r.negotiated = true
		logger.Info("negotiated to openflow version 1.3")

		return packet, nil
	}
}

func (r *Transceiver) runReader(ctx context.Context) <-chan []byte {
	c := make(chan []byte, 4096)
	go func() {
		defer close(c)
		defer logger.Info("transceiver reader is closed")

		lastActivated := time.Now()
		for {
			select {
			case <-ctx.Done():
				logger.Info("context done")
				return
			default:
			}

			packet, err := r.readPacket()
			if err != nil {
				if !isTimeout(err) {
					logger.Errorf("failed to read the next packet: %v", err)
					return
				}
				if time.Now().After(lastActivated.Add(r.idleTimeout)) {
					if err := r.sendEchoRequest(); err != nil {
						logger.Errorf("failed to send an echo request: %v", err)
						return
					}
				}
				continue
			}
			lastActivated = time.Now()

			ok, err := r.handleEcho(packet)
			if err != nil {
				logger.Errorf("failed to handle the echo request or response: %v", err)
				return
			}
			if ok {
				continue
			}

			select {
			case c <- packet:
			default:
				logger.Error("transceiver buffer full: drop the incoming packet!")
			}
		}
	}()

	return c
}

func isTemporaryErr(err error) bool {
	e, ok := errors.Cause(err).(interface {
		Temporary() bool
	})
	return ok && e.Temporary()
}

func (r *Transceiver) readPacket() ([]byte, error) {
	header, err := r.stream.Peek(8)
	if err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint16(header[2:4])
	if length < 8 {
		return nil, openflow.ErrInvalidPacketLength
	}
	packet, err := r.stream.ReadN(int(length))
	if err != nil {
		return nil, err
	}

	return packet, nil
}

func (r *Transceiver) Write(msg encoding.BinaryMarshaler) error {
	packet, err := msg.MarshalBinary()
	if err != nil {
		return err
	}

	if _, err := r.stream.Write(packet); err != nil {
		return err
	}

	return nil
}

func (r *Transceiver) handleEcho(packet []byte) (handled bool, err error) {
	if packet[0] != openflow.OF13_VERSION {
		return false, openflow.ErrUnsupportedVersion
	}

	switch packet[1] {
	case openflow.OFPT_ECHO_REQUEST:
		return true, r.handleEchoRequest(packet)
	case openflow.OFPT_ECHO_REPLY:
		return true, r.handleEchoReply(packet)
	default:
		return false, nil
	}
}

func (r *Transceiver) dispatch(packet []byte) error {
	if packet[0] != openflow.OF13_VERSION {
		return fmt.Errorf("mismatched openflow version: expected=%v, packet=%v", openflow.OF13_VERSION, packet[0])
	}

	msg, err := of13.Parse(packet)
	if err != nil {
		logger.Errorf("failed to parse an incoming message: %v", err)
		return nil
	}

	// Dispatch is keyed by the wire type byte, not a type switch over the
	// message interfaces: several of them (Hello, FeaturesRequest, the two
	// Barriers) are structurally identical, so an interface type switch
	// would route them all through its first matching case. The assertions
	// below cannot fail, since of13.Parse picked the concrete type from
	// the same byte.
	switch packet[1] {
	case openflow.OFPT_HELLO:
		return r.observer.OnHello(r.factory, r, msg.(openflow.Hello))
	case openflow.OFPT_ERROR:
		return r.observer.OnError(r.factory, r, msg.(openflow.Error))
	case openflow.OFPT_FEATURES_REQUEST:
		return r.observer.OnFeaturesRequest(r.factory, r, msg.(openflow.FeaturesRequest))
	case openflow.OFPT_FEATURES_REPLY:
		return r.observer.OnFeaturesReply(r.factory, r, msg.(openflow.FeaturesReply))
	case openflow.OFPT_GET_CONFIG_REQUEST:
		return r.observer.OnGetConfigRequest(r.factory, r, msg.(openflow.GetConfigRequest))
	case openflow.OFPT_GET_CONFIG_REPLY:
		return r.observer.OnGetConfigReply(r.factory, r, msg.(openflow.GetConfigReply))
	case openflow.OFPT_SET_CONFIG:
		return r.observer.OnSetConfig(r.factory, r, msg.(openflow.SetConfig))
	case openflow.OFPT_MULTIPART_REQUEST:
		return r.observer.OnMultipartRequest(r.factory, r, msg.(openflow.MultipartRequest))
	case openflow.OFPT_MULTIPART_REPLY:
		// The multipart replies carry distinguishing getters, so a type
		// switch is unambiguous within this byte.
		switch v := msg.(type) {
		case openflow.DescReply:
			return r.observer.OnDescReply(r.factory, r, v)
		case openflow.PortDescReply:
			return r.observer.OnPortDescReply(r.factory, r, v)
		case openflow.MultipartReplyMeterFeatures:
			return r.observer.OnMeterFeaturesReply(r.factory, r, v)
		case openflow.MultipartReplyGroupFeatures:
			return r.observer.OnGroupFeaturesReply(r.factory, r, v)
		default:
			return nil
		}
	case openflow.OFPT_BARRIER_REQUEST:
		return r.observer.OnBarrierRequest(r.factory, r, msg.(openflow.BarrierRequest))
	case openflow.OFPT_BARRIER_REPLY:
		return r.observer.OnBarrierReply(r.factory, r, msg.(openflow.BarrierReply))
	case openflow.OFPT_FLOW_MOD:
		return r.observer.OnFlowMod(r.factory, r, msg.(openflow.FlowMod))
	case openflow.OFPT_FLOW_REMOVED:
		return r.observer.OnFlowRemoved(r.factory, r, msg.(openflow.FlowRemoved))
	case openflow.OFPT_PACKET_IN:
		return r.observer.OnPacketIn(r.factory, r, msg.(openflow.PacketIn))
	case openflow.OFPT_PACKET_OUT:
		return r.observer.OnPacketOut(r.factory, r, msg.(openflow.PacketOut))
	case openflow.OFPT_PORT_STATUS:
		return r.observer.OnPortStatus(r.factory, r, msg.(openflow.PortStatus))
	default:
		// Unsupported message. Do nothing.
		return nil
	}
}

func (r *Transceiver) handleEchoRequest(packet []byte) error {
	msg, err := r.factory.NewEchoRequest()
	if err != nil {
		return err
	}
	if err := msg.UnmarshalBinary(packet); err != nil {
		return err
	}
	logger.Debug("received an ECHO_REQUEST packet")

	reply, err := r.factory.NewEchoReply()
	if err != nil {
		return err
	}
	reply.SetTransactionID(msg.TransactionID())
	reply.SetData(msg.Data())

	if err := r.Write(reply); err != nil {
		return errors.Wrap(err, "failed to send ECHO_REPLY message")
	}
	logger.Debug("sent an ECHO_REPLY packet")

	return nil
}

func (r *Transceiver) handleEchoReply(packet []byte) error {
	msg, err := r.factory.NewEchoReply()
	if err != nil {
		return err
	}
	if err := msg.UnmarshalBinary(packet); err != nil {
		return err
	}
	logger.Debug("received an ECHO_REPLY packet")

	data := msg.Data()
	if data == nil || len(data) != 8 {
		logger.Debug("unexpected ECHO_REPLY data")
		return nil
	}
	timestamp := time.Time{}
	if err := timestamp.GobDecode(data); err != nil {
		logger.Debug("unexpected timestamp data in the ECHO_REPLY packet")
		return nil
	}

	logger.Debugf("transceiver latency: %v", time.Now().Sub(timestamp))
	r.pingCounter = 0

	return nil
}

func (r *Transceiver) Close() error {
	if r.closed {
		return nil
	}

	if err := r.stream.Close(); err != nil {
		return err
	}
	r.closed = true

	return nil
}
