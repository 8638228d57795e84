package interfaces

import (
	"github.com/deploymenttheory/go-fwtrace/internal/types"
)

// TraceMetadataReader reads the cursor block at the tail of the shared trace
// buffer through bounds-checked offsets.
type TraceMetadataReader interface {
	// TailOffset returns the absolute byte count firmware has produced.
	TailOffset() uint64

	// HeadOffset returns the absolute byte count the host has consumed.
	HeadOffset() uint64
}

// TraceMetadataWriter publishes the host-side consumer cursor.
type TraceMetadataWriter interface {
	// SetHeadOffset stores the absolute consumed byte count.
	SetHeadOffset(offset uint64)
}

// TraceRecordReader decodes fixed-size log records from a linearized byte
// range produced by a drain.
type TraceRecordReader interface {
	// RecordCount returns how many complete records the range holds.
	RecordCount() int

	// Record returns the record at index i.
	Record(i int) types.TraceEventLogDataT

	// Truncated reports whether the range ended in a partial record that was
	// dropped.
	Truncated() bool
}

// TraceEvent is one decoded, time-correlated firmware event.
type TraceEvent struct {
	// Timestamp is the host-relative time of the event in microseconds.
	Timestamp uint64

	// Type is the firmware-defined record type.
	Type uint16

	// Payload is the record's logical payload.
	Payload uint64
}

// TraceEventSink receives decoded events from the drain path. Implementations
// must not block; the drain path runs in interrupt context.
type TraceEventSink interface {
	ConsumeTraceEvent(event TraceEvent)
}
