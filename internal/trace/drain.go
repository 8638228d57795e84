package trace

import (
	"github.com/deploymenttheory/go-fwtrace/internal/interfaces"
	"github.com/deploymenttheory/go-fwtrace/internal/parsers/eventtrace"
	"github.com/deploymenttheory/go-fwtrace/internal/types"
)

// HandleLogBufferInterrupt is the drain path. It runs whenever firmware
// raises the log-buffer interrupt line: it clears the latched condition so
// the line can fire again, then decodes newly produced records if tracing is
// enabled. It never blocks.
func (c *Collector) HandleLogBufferInterrupt() {
	c.log.Tracef("mbox irq LOG_BUFFER line %d", c.dev.LogBufferInterruptLine())
	c.clearLogBufferInterrupt()

	if !c.enabled.Load() {
		return
	}
	c.printTraceEventLog()
}

// printTraceEventLog copies out whatever firmware has produced since the last
// drain and emits one line per decoded record.
func (c *Collector) printTraceEventLog() {
	s := c.session.Load()
	if s == nil {
		c.log.Error("FW trace buffer is null!")
		return
	}

	n := c.drain(s)
	c.log.Debugf("FW log size in bytes %d", n)
	if n == 0 {
		return
	}

	// Defensive terminator; decoding below is purely binary.
	s.scratch[n] = 0

	reader := eventtrace.NewTraceRecordReader(s.scratch, int(n), c.endian)
	if reader.Truncated() {
		c.log.Warnf("dropping partial trailing record, %d bytes drained", n)
	}

	for i := 0; i < reader.RecordCount(); i++ {
		rec := reader.Record(i)
		ts := (rec.Counter-s.respTimestamp)/types.DeviceCounterTicksPerMicrosecond + s.sysStartTime
		payload := rec.Payload()

		c.log.Infof("[%d][FW] type: 0x%04x payload:0x%016x", ts, rec.Type, payload)
		if c.sink != nil {
			c.sink.ConsumeTraceEvent(interfaces.TraceEvent{
				Timestamp: ts,
				Type:      rec.Type,
				Payload:   payload,
			})
		}
	}
	s.recordsDrained.Add(uint64(reader.RecordCount()))
}

// drain claims and copies out every byte firmware has produced since the last
// call, linearizing up to one wraparound into the session scratch buffer.
// Returns the number of bytes copied.
//
// The head cursor is published before the copy: the consumed range is fixed
// against firmware writes that land while the copy runs. If firmware lapped
// the buffer more than once since the last drain, the modulo arithmetic
// consumes whatever is physically present; the overwritten records are lost
// without detection.
func (c *Collector) drain(s *session) uint32 {
	rbSize := uint32(types.TraceEventLogAreaSize)
	if rbSize == 0 {
		return 0
	}

	logArea := s.buf[:rbSize]

	rdPtr := uint32(s.meta.HeadOffset() % uint64(rbSize))
	wrPtr := s.meta.TailOffset()
	wrPtrWrap := uint32(wrPtr % uint64(rbSize))

	s.head.SetHeadOffset(wrPtr)

	var total uint32
	for {
		var logSize uint32
		switch {
		case wrPtrWrap > rdPtr:
			logSize = wrPtrWrap - rdPtr
		case wrPtrWrap < rdPtr:
			// Tail of the log area first; the wrapped remainder at the
			// front is picked up on the next pass.
			logSize = rbSize - rdPtr
		default:
			// Nothing produced since the last drain.
			return 0
		}

		if logSize > rbSize {
			c.log.Errorf("drain segment %d exceeds log area %d", logSize, rbSize)
			return 0
		}

		copy(s.scratch[total:], logArea[rdPtr:rdPtr+logSize])
		total += logSize
		rdPtr = (rdPtr + logSize) % rbSize

		if rdPtr >= wrPtrWrap {
			break
		}
	}

	s.bytesDrained.Add(uint64(total))
	return total
}
