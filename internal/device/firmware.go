package device

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/deploymenttheory/go-fwtrace/internal/types"
)

// SimFirmware models the on-device trace producer. It services the start and
// stop mailbox messages and, while tracing, appends fixed-size records to the
// circular log area and advances the tail cursor — the same protocol real
// firmware speaks over the shared buffer.
type SimFirmware struct {
	dev *SimDevice

	mu      sync.Mutex
	tracing bool
	buf     []byte
	tail    uint64
	counter uint64

	// failStart and failStop force the next mailbox message to fail, for
	// exercising the collector's error paths.
	failStart bool
	failStop  bool
}

// SendStartTrace begins producing into the buffer described by req and
// returns the current device counter as the timestamp anchor.
func (fw *SimFirmware) SendStartTrace(req types.StartEventTraceReq) (*types.StartEventTraceResp, error) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.failStart {
		fw.failStart = false
		return nil, fmt.Errorf("firmware rejected start trace")
	}
	buf, ok := fw.dev.bufferAt(req.DRAMBufferAddress)
	if !ok {
		return nil, fmt.Errorf("no buffer at device address 0x%x", req.DRAMBufferAddress)
	}
	if uint32(len(buf)) != req.DRAMBufferSize {
		return nil, fmt.Errorf("buffer size mismatch: have %d want %d", len(buf), req.DRAMBufferSize)
	}

	fw.buf = buf
	fw.tail = 0
	fw.tracing = true
	return &types.StartEventTraceResp{CurrentTimestamp: fw.counter}, nil
}

// SendStopTrace stops the producer.
func (fw *SimFirmware) SendStopTrace() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.failStop {
		fw.failStop = false
		return fmt.Errorf("firmware rejected stop trace")
	}
	fw.tracing = false
	fw.buf = nil
	return nil
}

// FailNextStart makes the next start message fail.
func (fw *SimFirmware) FailNextStart() {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.failStart = true
}

// FailNextStop makes the next stop message fail.
func (fw *SimFirmware) FailNextStop() {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.failStop = true
}

// AdvanceCounter moves the device's free-running counter forward by the given
// number of ticks.
func (fw *SimFirmware) AdvanceCounter(ticks uint64) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.counter += ticks
}

// EmitRecord appends one log record at the tail cursor, wrapping across the
// end of the log area byte by byte the way firmware does, then updates the
// tail in the metadata block and raises the drain interrupt. Returns false
// when tracing is not active.
func (fw *SimFirmware) EmitRecord(recType uint16, payload uint64) bool {
	fw.mu.Lock()
	if !fw.tracing || fw.buf == nil {
		fw.mu.Unlock()
		return false
	}

	var rec [types.MaxOneTimeLogInfoLen]byte
	binary.LittleEndian.PutUint64(rec[0:8], fw.counter)
	binary.LittleEndian.PutUint16(rec[8:10], uint16(payload>>32))
	binary.LittleEndian.PutUint16(rec[10:12], recType)
	binary.LittleEndian.PutUint32(rec[12:16], uint32(payload))

	rbSize := uint64(types.TraceEventLogAreaSize)
	for i, b := range rec {
		fw.buf[(fw.tail+uint64(i))%rbSize] = b
	}
	fw.tail += types.MaxOneTimeLogInfoLen
	binary.LittleEndian.PutUint64(fw.buf[rbSize:rbSize+8], fw.tail)

	line := fw.dev.LogBufferInterruptLine()
	fw.mu.Unlock()

	fw.dev.FireInterrupt(line)
	return true
}

// Tracing reports whether the producer is currently active.
func (fw *SimFirmware) Tracing() bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.tracing
}
