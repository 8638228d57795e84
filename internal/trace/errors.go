package trace

import "errors"

var (
	// ErrUnsupported means the device id/revision does not carry the
	// event-trace firmware feature.
	ErrUnsupported = errors.New("event trace not supported on this device")

	// ErrAlreadyInState means an enable or disable request matched the
	// current state and was ignored.
	ErrAlreadyInState = errors.New("event trace already in requested state")

	// ErrNoMemory means the device-accessible trace buffer could not be
	// allocated.
	ErrNoMemory = errors.New("failed to allocate trace buffer")

	// ErrIRQRegistration means the log-buffer interrupt handler could not be
	// registered.
	ErrIRQRegistration = errors.New("failed to register log buffer interrupt")

	// ErrProtocol means firmware rejected or failed to answer a start/stop
	// trace message.
	ErrProtocol = errors.New("trace protocol message failed")

	// ErrCorrupt means the drain computed a segment larger than the log area,
	// which can only happen if the shared cursors are damaged.
	ErrCorrupt = errors.New("trace buffer cursors corrupt")
)
