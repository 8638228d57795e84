package types

// Firmware event tracing shares a fixed-size DMA buffer between the host and
// the firmware agent. Firmware appends fixed-size log records to the circular
// log area at the front of the buffer; the trailing metadata block holds the
// producer (tail) and consumer (head) cursors.

const (
	// TraceEventBufferSize is the total size of the shared trace buffer in
	// bytes, log area plus trailing metadata block.
	TraceEventBufferSize = 0x10000

	// TraceEventMetadataSize is the size of the metadata block at the end of
	// the shared buffer.
	TraceEventMetadataSize = 64

	// TraceEventLogAreaSize is the capacity of the circular log area.
	TraceEventLogAreaSize = TraceEventBufferSize - TraceEventMetadataSize

	// MaxOneTimeLogInfoLen is the wire stride of a single log record.
	MaxOneTimeLogInfoLen = 16
)

const (
	// TraceSupportedDeviceID is the PCI device id of the accelerator family
	// that carries the event-trace firmware feature.
	TraceSupportedDeviceID = 0x17f0

	// TraceSupportedMinRevision is the first silicon revision whose firmware
	// implements the trace protocol.
	TraceSupportedMinRevision = 0x10
)

// LogBufferInterruptReg is the register offset written to clear the latched
// log-buffer interrupt condition on the device.
const LogBufferInterruptReg = 0x3438

// DeviceCounterTicksPerMicrosecond converts the device's free-running counter
// to microseconds. It is a property of the counter's clock and must not be
// re-derived from observed records.
const DeviceCounterTicksPerMicrosecond = 24

// TraceState is the requested or current enablement state of event tracing on
// one device instance.
type TraceState uint32

const (
	TraceDisabled TraceState = iota
	TraceEnabled
)

func (s TraceState) String() string {
	if s == TraceEnabled {
		return "enabled"
	}
	return "disabled"
}

// TraceEventMetadataT is the metadata block at the tail of the shared buffer.
// Both offsets are absolute byte counters; their value modulo the log-area
// size gives the physical position. Firmware owns TailOffset, the host owns
// HeadOffset.
type TraceEventMetadataT struct {
	TailOffset uint64
	HeadOffset uint64
	Padding    [12]uint32
}

// TraceEventLogDataT is one fixed-size log record as firmware lays it out in
// the log area. The logical payload is (PayloadHi << 32) | PayloadLow.
type TraceEventLogDataT struct {
	Counter    uint64
	PayloadHi  uint16
	Type       uint16
	PayloadLow uint32
}

// Payload returns the record's logical 48-bit-ish payload as a single value.
func (r TraceEventLogDataT) Payload() uint64 {
	return uint64(r.PayloadHi)<<32 | uint64(r.PayloadLow)
}

// StartEventTraceReq is the body of the start-trace mailbox message. The
// address and size describe the shared buffer from the device's view.
type StartEventTraceReq struct {
	DRAMBufferAddress uint64
	DRAMBufferSize    uint32
}

// StartEventTraceResp is the firmware reply to a start-trace message.
// CurrentTimestamp is a device counter snapshot taken when tracing began and
// seeds the session's timestamp anchor.
type StartEventTraceResp struct {
	CurrentTimestamp uint64
}
