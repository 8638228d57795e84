package device

import (
	"fmt"
	"sync"

	"github.com/deploymenttheory/go-fwtrace/internal/interfaces"
)

// SimDevice is a software model of an accelerator with the event-trace
// firmware feature. It implements the full TraceDevice collaborator set:
// enumeration data, a register file, DMA-style buffer allocation, interrupt
// dispatch with blocking deregistration, and a firmware producer that writes
// trace records into the shared ring buffer.
type SimDevice struct {
	name string
	cfg  *SimConfig

	mu       sync.Mutex
	regs     map[uint32]uint32
	allocs   map[uint64][]byte
	nextAddr uint64
	started  bool

	irqMu    sync.Mutex
	handlers map[int]*simIRQHandle

	fw *SimFirmware
}

// NewSimDevice creates a simulated device from the given configuration.
func NewSimDevice(name string, cfg *SimConfig) *SimDevice {
	d := &SimDevice{
		name:     name,
		cfg:      cfg,
		regs:     make(map[uint32]uint32),
		allocs:   make(map[uint64][]byte),
		nextAddr: cfg.BaseAddress,
		handlers: make(map[int]*simIRQHandle),
		started:  true,
	}
	d.fw = &SimFirmware{dev: d, counter: cfg.CounterStart}
	return d
}

// Name returns the device identifier used in diagnostics.
func (d *SimDevice) Name() string { return d.name }

// VendorID returns the configured PCI vendor id.
func (d *SimDevice) VendorID() (uint16, error) { return d.cfg.VendorID, nil }

// DeviceID returns the configured PCI device id.
func (d *SimDevice) DeviceID() (uint16, error) { return d.cfg.DeviceID, nil }

// Revision returns the configured silicon revision.
func (d *SimDevice) Revision() (uint8, error) { return d.cfg.Revision, nil }

// Started reports whether the device has passed its start milestone. The
// simulator is started as soon as it is constructed.
func (d *SimDevice) Started() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.started
}

// LogBufferInterruptLine returns the configured drain interrupt line.
func (d *SimDevice) LogBufferInterruptLine() int { return d.cfg.IRQLine }

// Mailbox returns the device's command channel, serviced by the simulated
// firmware.
func (d *SimDevice) Mailbox() interfaces.TraceMailbox { return d.fw }

// Firmware exposes the simulated producer so callers can inject records.
func (d *SimDevice) Firmware() *SimFirmware { return d.fw }

// AllocBuffer hands out a zeroed host slice standing in for a DMA mapping
// and a device-visible address for it.
func (d *SimDevice) AllocBuffer(size uint32) ([]byte, uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf := make([]byte, size)
	addr := d.nextAddr
	d.nextAddr += uint64(size)
	d.allocs[addr] = buf
	return buf, addr, nil
}

// FreeBuffer releases an allocation. Freeing an unknown address is ignored,
// matching a free of already-released DMA memory being a caller bug rather
// than something the device can police.
func (d *SimDevice) FreeBuffer(_ []byte, deviceAddr uint64, _ uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.allocs, deviceAddr)
}

// WriteRegister stores a register value. Writing the log-buffer interrupt
// register clears the latched interrupt condition.
func (d *SimDevice) WriteRegister(offset uint32, value uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.regs[offset] = value
}

// ReadRegister returns the last value written to a register.
func (d *SimDevice) ReadRegister(offset uint32) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.regs[offset]
}

type simIRQHandle struct {
	line    int
	handler func()
	wg      sync.WaitGroup
}

func (h *simIRQHandle) Line() int { return h.line }

// RegisterInterrupt installs a handler on the given line. One handler per
// line.
func (d *SimDevice) RegisterInterrupt(line int, _ string, handler func()) (interfaces.InterruptHandle, error) {
	d.irqMu.Lock()
	defer d.irqMu.Unlock()

	if _, busy := d.handlers[line]; busy {
		return nil, fmt.Errorf("irq line %d already registered", line)
	}
	h := &simIRQHandle{line: line, handler: handler}
	d.handlers[line] = h
	return h, nil
}

// DeregisterInterrupt removes the handler and blocks until any in-flight
// invocation has returned.
func (d *SimDevice) DeregisterInterrupt(handle interfaces.InterruptHandle) {
	d.irqMu.Lock()
	h, ok := d.handlers[handle.Line()]
	if ok && h == handle {
		delete(d.handlers, handle.Line())
	}
	d.irqMu.Unlock()

	if ok {
		h.wg.Wait()
	}
}

// FireInterrupt invokes the handler registered on the line, if any. The
// in-flight count is raised under the registry lock so deregistration cannot
// miss a running handler.
func (d *SimDevice) FireInterrupt(line int) {
	d.irqMu.Lock()
	h, ok := d.handlers[line]
	if ok {
		h.wg.Add(1)
	}
	d.irqMu.Unlock()

	if !ok {
		return
	}
	defer h.wg.Done()
	h.handler()
}

// bufferAt resolves a device address previously handed out by AllocBuffer.
func (d *SimDevice) bufferAt(addr uint64) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf, ok := d.allocs[addr]
	return buf, ok
}

var _ interfaces.TraceDevice = (*SimDevice)(nil)
