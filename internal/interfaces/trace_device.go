package interfaces

import (
	"github.com/deploymenttheory/go-fwtrace/internal/types"
)

// DeviceIdentity exposes the enumeration data the capability gate needs.
type DeviceIdentity interface {
	// VendorID returns the PCI vendor id of the device.
	VendorID() (uint16, error)

	// DeviceID returns the PCI device id of the device.
	DeviceID() (uint16, error)

	// Revision returns the silicon revision of the device.
	Revision() (uint8, error)
}

// DeviceMemory allocates and frees device-accessible (DMA) buffers. The host
// pointer is the host-side view of the allocation; the device address is what
// firmware is told to write to.
type DeviceMemory interface {
	// AllocBuffer allocates a zeroed device-accessible buffer of the given
	// size and returns the host mapping plus the device-visible address.
	AllocBuffer(size uint32) (hostBuf []byte, deviceAddr uint64, err error)

	// FreeBuffer releases a buffer previously returned by AllocBuffer.
	FreeBuffer(hostBuf []byte, deviceAddr uint64, size uint32)
}

// InterruptHandle identifies one registered interrupt handler.
type InterruptHandle interface {
	// Line returns the interrupt line the handle is registered on.
	Line() int
}

// InterruptController registers and deregisters interrupt handlers.
// Deregister must block until any in-flight invocation of the handler has
// returned; callers rely on that to free handler-owned memory safely.
type InterruptController interface {
	RegisterInterrupt(line int, name string, handler func()) (InterruptHandle, error)
	DeregisterInterrupt(handle InterruptHandle)
}

// RegisterWriter writes device registers. The drain path uses it to clear the
// log-buffer interrupt-pending bit.
type RegisterWriter interface {
	WriteRegister(offset uint32, value uint32)
}

// TraceMailbox is the command channel used to start and stop firmware-side
// tracing. Both calls block until firmware replies or the mailbox's own
// timeout fires; timeout classification belongs to the mailbox.
type TraceMailbox interface {
	// SendStartTrace tells firmware to begin writing records into the shared
	// buffer described by req. The response carries the device counter
	// snapshot used as the session's timestamp anchor.
	SendStartTrace(req types.StartEventTraceReq) (*types.StartEventTraceResp, error)

	// SendStopTrace tells firmware to stop producing records.
	SendStopTrace() error
}

// TraceDevice is the full set of collaborators one device instance provides
// to the event-trace collector.
type TraceDevice interface {
	DeviceIdentity
	DeviceMemory
	InterruptController
	RegisterWriter

	// Mailbox returns the device's command channel.
	Mailbox() TraceMailbox

	// LogBufferInterruptLine returns the interrupt line firmware raises when
	// it has produced new trace records.
	LogBufferInterruptLine() int

	// Started reports whether the device has passed its start milestone.
	// Stop messages are only sent to a started device.
	Started() bool

	// Name returns a short identifier for diagnostics.
	Name() string
}
