package trace

import (
	"encoding/binary"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-fwtrace/internal/interfaces"
	"github.com/deploymenttheory/go-fwtrace/internal/parsers/eventtrace"
	"github.com/deploymenttheory/go-fwtrace/internal/types"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

// newTestSession builds a session over a freshly zeroed shared buffer with
// the given absolute cursors.
func newTestSession(t *testing.T, head, tail uint64) (*Collector, *session) {
	t.Helper()

	c := &Collector{log: testLogger(), endian: binary.LittleEndian}

	s := &session{
		buf:     make([]byte, types.TraceEventBufferSize),
		scratch: make([]byte, types.TraceEventLogAreaSize+1),
	}
	var err error
	s.meta, err = eventtrace.NewTraceMetadataReader(s.buf, c.endian)
	require.NoError(t, err)
	s.head, err = eventtrace.NewTraceMetadataWriter(s.buf, c.endian)
	require.NoError(t, err)

	binary.LittleEndian.PutUint64(s.buf[types.TraceEventLogAreaSize:], tail)
	s.head.SetHeadOffset(head)
	c.session.Store(s)
	return c, s
}

func TestDrainNoWrap(t *testing.T) {
	c, s := newTestSession(t, 10, 50)
	for i := 10; i < 50; i++ {
		s.buf[i] = byte(i)
	}

	n := c.drain(s)

	assert.Equal(t, uint32(40), n, "should copy exactly the produced range")
	for i := 0; i < 40; i++ {
		assert.Equal(t, byte(i+10), s.scratch[i], "byte %d", i)
	}
	assert.Equal(t, uint64(50), s.meta.HeadOffset(), "head cursor should claim the tail")
	assert.Equal(t, uint64(40), s.bytesDrained.Load())
}

func TestDrainWithWrap(t *testing.T) {
	rbSize := uint64(types.TraceEventLogAreaSize)

	// Absolute cursors: ten bytes at the end of the log area, twenty at the
	// front.
	c, s := newTestSession(t, rbSize-10, rbSize+20)
	for i := rbSize - 10; i < rbSize; i++ {
		s.buf[i] = 0xAA
	}
	for i := 0; i < 20; i++ {
		s.buf[i] = 0xBB
	}

	n := c.drain(s)

	require.Equal(t, uint32(30), n, "tail segment plus wrapped segment")
	for i := 0; i < 10; i++ {
		assert.Equal(t, byte(0xAA), s.scratch[i], "tail-of-area byte %d", i)
	}
	for i := 10; i < 30; i++ {
		assert.Equal(t, byte(0xBB), s.scratch[i], "wrapped byte %d", i)
	}
	assert.Equal(t, rbSize+20, s.meta.HeadOffset())
}

func TestDrainNothingProduced(t *testing.T) {
	c, s := newTestSession(t, 100, 100)

	n := c.drain(s)

	assert.Zero(t, n)
	assert.Zero(t, s.bytesDrained.Load())
}

func TestDrainEqualModuloPositions(t *testing.T) {
	rbSize := uint64(types.TraceEventLogAreaSize)

	// A full lap: physical positions coincide, so nothing is copied even
	// though the absolute cursors differ.
	c, s := newTestSession(t, 100, 100+rbSize)

	n := c.drain(s)

	assert.Zero(t, n, "coinciding physical cursors drain nothing")
}

func TestDecodeEmitsCorrelatedEvents(t *testing.T) {
	c, s := newTestSession(t, 0, 2*types.MaxOneTimeLogInfoLen)
	s.respTimestamp = 1000
	s.sysStartTime = 5000

	var events []interfaces.TraceEvent
	c.sink = sinkFunc(func(ev interfaces.TraceEvent) { events = append(events, ev) })

	// counter 1048 -> (1048-1000)/24 + 5000 = 5002us
	putRecord(s.buf, 0, 1048, 0x0004, 0xdeadbeef)
	putRecord(s.buf, types.MaxOneTimeLogInfoLen, 1240, 0x0005, 0x1_00000000)

	c.printTraceEventLog()

	require.Len(t, events, 2)
	assert.Equal(t, uint64(5002), events[0].Timestamp)
	assert.Equal(t, uint16(0x0004), events[0].Type)
	assert.Equal(t, uint64(0xdeadbeef), events[0].Payload)

	assert.Equal(t, uint64(5010), events[1].Timestamp, "(1240-1000)/24 + 5000")
	assert.Equal(t, uint64(0x1_00000000), events[1].Payload)
	assert.Equal(t, uint64(2), s.recordsDrained.Load())
}

func TestDecodeDropsPartialTrailingRecord(t *testing.T) {
	c, s := newTestSession(t, 0, types.MaxOneTimeLogInfoLen+4)
	s.respTimestamp = 0
	s.sysStartTime = 0

	var events []interfaces.TraceEvent
	c.sink = sinkFunc(func(ev interfaces.TraceEvent) { events = append(events, ev) })

	putRecord(s.buf, 0, 24, 0x0001, 0x1)

	c.printTraceEventLog()

	require.Len(t, events, 1, "the 4-byte fragment must not decode")
	assert.Equal(t, uint64(1), events[0].Timestamp)
}

func TestDecodeNoSessionLogsError(t *testing.T) {
	c := &Collector{log: testLogger(), endian: binary.LittleEndian}

	// Must not panic with no session published.
	c.printTraceEventLog()
}

func TestTimestampAnchorSetOncePerSession(t *testing.T) {
	c, s := newTestSession(t, 0, 0)
	c.clock = func() time.Time { return time.Unix(0, 5_000_000_000) }

	c.setTraceTimestamp(s, &types.StartEventTraceResp{CurrentTimestamp: 777})

	assert.Equal(t, uint64(777), s.respTimestamp)
	assert.Equal(t, uint64(5_000_000), s.sysStartTime, "nanoseconds converted to microseconds")
}

type sinkFunc func(interfaces.TraceEvent)

func (f sinkFunc) ConsumeTraceEvent(ev interfaces.TraceEvent) { f(ev) }

// putRecord writes one wire-format record into the log area.
func putRecord(buf []byte, off int, counter uint64, recType uint16, payload uint64) {
	binary.LittleEndian.PutUint64(buf[off:off+8], counter)
	binary.LittleEndian.PutUint16(buf[off+8:off+10], uint16(payload>>32))
	binary.LittleEndian.PutUint16(buf[off+10:off+12], recType)
	binary.LittleEndian.PutUint32(buf[off+12:off+16], uint32(payload))
}
