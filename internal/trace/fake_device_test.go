package trace

import (
	"fmt"
	"sync"

	"github.com/deploymenttheory/go-fwtrace/internal/interfaces"
	"github.com/deploymenttheory/go-fwtrace/internal/types"
)

// fakeDevice is an instrumented TraceDevice for lifecycle tests. Every
// collaborator call is counted so tests can assert resource pairing.
type fakeDevice struct {
	mu sync.Mutex

	deviceID uint16
	revision uint8
	started  bool

	allocs     int
	frees      int
	allocFails bool

	irqRegs     int
	irqDeregs   int
	irqRegFails bool
	handler     func()

	startMsgs  int
	stopMsgs   int
	startFails bool
	stopFails  bool
	respTS     uint64

	regWrites map[uint32]uint32
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		deviceID:  types.TraceSupportedDeviceID,
		revision:  types.TraceSupportedMinRevision,
		started:   true,
		regWrites: make(map[uint32]uint32),
	}
}

func (d *fakeDevice) Name() string              { return "fake0" }
func (d *fakeDevice) VendorID() (uint16, error) { return 0x1022, nil }
func (d *fakeDevice) DeviceID() (uint16, error) { return d.deviceID, nil }
func (d *fakeDevice) Revision() (uint8, error)  { return d.revision, nil }
func (d *fakeDevice) Started() bool             { return d.started }

func (d *fakeDevice) LogBufferInterruptLine() int { return 3 }

func (d *fakeDevice) AllocBuffer(size uint32) ([]byte, uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.allocFails {
		return nil, 0, fmt.Errorf("out of device memory")
	}
	d.allocs++
	return make([]byte, size), 0x4000000, nil
}

func (d *fakeDevice) FreeBuffer(_ []byte, _ uint64, _ uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frees++
}

type fakeIRQHandle int

func (h fakeIRQHandle) Line() int { return int(h) }

func (d *fakeDevice) RegisterInterrupt(line int, _ string, handler func()) (interfaces.InterruptHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.irqRegFails {
		return nil, fmt.Errorf("no irq vector available")
	}
	d.irqRegs++
	d.handler = handler
	return fakeIRQHandle(line), nil
}

func (d *fakeDevice) DeregisterInterrupt(_ interfaces.InterruptHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.irqDeregs++
	d.handler = nil
}

// fire simulates the log-buffer interrupt line going high.
func (d *fakeDevice) fire() {
	d.mu.Lock()
	handler := d.handler
	d.mu.Unlock()
	if handler != nil {
		handler()
	}
}

func (d *fakeDevice) WriteRegister(offset uint32, value uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.regWrites[offset] = value
}

func (d *fakeDevice) Mailbox() interfaces.TraceMailbox { return (*fakeMailbox)(d) }

type fakeMailbox fakeDevice

func (m *fakeMailbox) SendStartTrace(_ types.StartEventTraceReq) (*types.StartEventTraceResp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startMsgs++
	if m.startFails {
		return nil, fmt.Errorf("firmware start timeout")
	}
	return &types.StartEventTraceResp{CurrentTimestamp: m.respTS}, nil
}

func (m *fakeMailbox) SendStopTrace() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopMsgs++
	if m.stopFails {
		return fmt.Errorf("firmware stop timeout")
	}
	return nil
}

var _ interfaces.TraceDevice = (*fakeDevice)(nil)
