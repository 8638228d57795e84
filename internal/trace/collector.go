package trace

import (
	"encoding/binary"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-fwtrace/internal/interfaces"
	"github.com/deploymenttheory/go-fwtrace/internal/types"
)

// Collector is the per-device control surface for firmware event tracing.
// Enable/disable transitions are serialized by the device lock; the drain
// path runs from interrupt context and is deliberately not serialized by it.
type Collector struct {
	dev    interfaces.TraceDevice
	log    *logrus.Entry
	endian binary.ByteOrder

	// mu is the device lock. SetState acquires it; the lifecycle send
	// helpers assert that it is held.
	mu sync.Mutex

	// enabled is read from interrupt context without holding mu.
	enabled atomic.Bool

	session atomic.Pointer[session]

	sink interfaces.TraceEventSink

	clock func() time.Time
}

// Option configures a Collector.
type Option func(*Collector)

// WithEventSink registers a sink that receives every decoded trace event in
// addition to the per-record log line.
func WithEventSink(sink interfaces.TraceEventSink) Option {
	return func(c *Collector) { c.sink = sink }
}

// WithClock overrides the host time source used for the timestamp anchor.
func WithClock(clock func() time.Time) Option {
	return func(c *Collector) { c.clock = clock }
}

// NewCollector creates an event-trace collector for one device instance.
func NewCollector(dev interfaces.TraceDevice, log *logrus.Entry, opts ...Option) *Collector {
	c := &Collector{
		dev:    dev,
		log:    log.WithField("device", dev.Name()),
		endian: binary.LittleEndian,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetState requests the enabled or disabled state. Requesting the current
// state is a logged no-op, as is requesting enable on an unsupported device.
// A failed enable never leaves tracing half-started: partial session
// resources are torn down and the device continues without tracing. The
// latched log-buffer interrupt condition is cleared on every exit path so a
// stale pending interrupt cannot fire against a torn-down session.
func (c *Collector) SetState(state types.TraceState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !IsTraceSupported(c.dev, c.log) {
		c.log.Error("Event trace is not supported on this device")
		return
	}

	if c.currentState() == state {
		c.log.Debugf("Event trace state is already %s", state)
		return
	}

	c.enabled.Store(state == types.TraceEnabled)
	if state == types.TraceEnabled {
		if err := c.startEventTraceSend(); err != nil {
			c.log.WithError(err).Error("Send start event trace failed")
			// Tracing is best effort; device bring-up must not fail
			// because firmware logging is unavailable.
			c.enabled.Store(false)
			c.stopSession()
		}
	} else {
		if c.dev.Started() {
			if err := c.stopEventTraceSend(); err != nil {
				c.log.WithError(err).Error("Send stop event trace failed")
			}
			c.stopSession()
		} else {
			c.log.Debug("Event trace is not started")
		}
	}

	c.clearLogBufferInterrupt()
	c.log.Debugf("Event trace state: %s", state)
}

// Enabled reports whether tracing is currently enabled.
func (c *Collector) Enabled() bool {
	return c.enabled.Load()
}

func (c *Collector) currentState() types.TraceState {
	if c.enabled.Load() {
		return types.TraceEnabled
	}
	return types.TraceDisabled
}

// clearLogBufferInterrupt clears the latched log-buffer interrupt condition
// at the device register level.
func (c *Collector) clearLogBufferInterrupt() {
	c.dev.WriteRegister(types.LogBufferInterruptReg, 0)
}

// assertLocked flags callers that reach a lifecycle send helper without the
// device lock. This is a programming error, not a recoverable condition, so
// it is logged loudly rather than silently repaired.
func (c *Collector) assertLocked() {
	if c.mu.TryLock() {
		c.mu.Unlock()
		c.log.Error("device lock not held for trace lifecycle call")
	}
}

// Status is a point-in-time snapshot of the collector.
type Status struct {
	State          types.TraceState
	SessionID      uuid.UUID
	BufferAddress  uint64
	BufferSize     uint32
	BytesDrained   uint64
	RecordsDrained uint64
}

// Status reports the current state and, when a session is active, its
// identity, buffer placement and drain totals.
func (c *Collector) Status() Status {
	st := Status{State: c.currentState()}
	if s := c.session.Load(); s != nil {
		st.SessionID = s.id
		st.BufferAddress = s.req.DRAMBufferAddress
		st.BufferSize = s.req.DRAMBufferSize
		st.BytesDrained = s.bytesDrained.Load()
		st.RecordsDrained = s.recordsDrained.Load()
	}
	return st
}
