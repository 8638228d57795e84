package trace

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/deploymenttheory/go-fwtrace/internal/interfaces"
	"github.com/deploymenttheory/go-fwtrace/internal/parsers/eventtrace"
	"github.com/deploymenttheory/go-fwtrace/internal/types"
)

// session owns one shared trace buffer and one registered drain interrupt.
// It exists between a successful start and the matching teardown.
type session struct {
	id uuid.UUID

	// buf is the host mapping of the shared buffer; the first
	// TraceEventLogAreaSize bytes are the circular log area.
	buf        []byte
	deviceAddr uint64
	req        types.StartEventTraceReq

	meta interfaces.TraceMetadataReader
	head interfaces.TraceMetadataWriter

	irq interfaces.InterruptHandle

	// scratch linearizes wrapped drain ranges. One extra byte holds the
	// defensive NUL written after each drain.
	scratch []byte

	// Timestamp anchor, set once when firmware acknowledges the start
	// message.
	respTimestamp uint64
	sysStartTime  uint64

	bytesDrained   atomic.Uint64
	recordsDrained atomic.Uint64
}

// startSession allocates the shared buffer and registers the drain interrupt,
// in that order: the buffer must be addressable before the interrupt can
// fire. On any failure every resource acquired so far is released.
func (c *Collector) startSession() (*session, error) {
	s := &session{id: uuid.New()}

	buf, addr, err := c.dev.AllocBuffer(types.TraceEventBufferSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoMemory, err)
	}
	s.buf = buf
	s.deviceAddr = addr
	s.req = types.StartEventTraceReq{
		DRAMBufferAddress: addr,
		DRAMBufferSize:    types.TraceEventBufferSize,
	}

	s.meta, err = eventtrace.NewTraceMetadataReader(buf, c.endian)
	if err == nil {
		s.head, err = eventtrace.NewTraceMetadataWriter(buf, c.endian)
	}
	if err != nil {
		c.dev.FreeBuffer(s.buf, s.deviceAddr, types.TraceEventBufferSize)
		return nil, fmt.Errorf("%w: %v", ErrNoMemory, err)
	}

	s.scratch = make([]byte, types.TraceEventLogAreaSize+1)

	s.irq, err = c.dev.RegisterInterrupt(c.dev.LogBufferInterruptLine(), "LOG_BUFFER", c.HandleLogBufferInterrupt)
	if err != nil {
		c.dev.FreeBuffer(s.buf, s.deviceAddr, types.TraceEventBufferSize)
		c.log.WithError(err).Errorf("Failed to register irq %d", c.dev.LogBufferInterruptLine())
		return nil, fmt.Errorf("%w: %v", ErrIRQRegistration, err)
	}

	c.session.Store(s)
	c.log.Debugf("Start event trace buf addr: 0x%x size 0x%x session %s",
		s.req.DRAMBufferAddress, s.req.DRAMBufferSize, s.id)
	return s, nil
}

// stopSession tears down the active session. It is an idempotent no-op when
// none exists. The buffer is freed before the interrupt is deregistered; no
// drain can be serviced for a session already inside teardown because the
// caller holds the device lock and deregistration blocks until in-flight
// handlers return.
func (c *Collector) stopSession() {
	s := c.session.Load()
	if s == nil {
		return
	}

	c.dev.FreeBuffer(s.buf, s.deviceAddr, types.TraceEventBufferSize)
	c.session.Store(nil)
	c.dev.DeregisterInterrupt(s.irq)
}

// startEventTraceSend starts a session and tells firmware to begin tracing
// into it. A session left allocated after a failed send is the caller's to
// tear down.
func (c *Collector) startEventTraceSend() error {
	c.assertLocked()

	s, err := c.startSession()
	if err != nil {
		c.log.Error("Failed to allocate and register event trace")
		return err
	}

	resp, err := c.dev.Mailbox().SendStartTrace(s.req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}

	c.setTraceTimestamp(s, resp)
	return nil
}

// stopEventTraceSend tells firmware to stop tracing. No-op when tracing was
// never started.
func (c *Collector) stopEventTraceSend() error {
	if c.session.Load() == nil {
		c.log.Debug("Event tracing is not started")
		return nil
	}

	c.assertLocked()
	if err := c.dev.Mailbox().SendStopTrace(); err != nil {
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	return nil
}

// setTraceTimestamp anchors the device counter to host monotonic time. Called
// once per session, before any drain can observe the anchor.
func (c *Collector) setTraceTimestamp(s *session, resp *types.StartEventTraceResp) {
	s.respTimestamp = resp.CurrentTimestamp
	s.sysStartTime = uint64(c.clock().UnixNano() / 1000)
}
