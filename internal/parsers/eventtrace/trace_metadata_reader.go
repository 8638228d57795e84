package eventtrace

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-fwtrace/internal/interfaces"
	"github.com/deploymenttheory/go-fwtrace/internal/types"
)

// traceMetadataReader implements the TraceMetadataReader and
// TraceMetadataWriter interfaces over the trailing metadata block of the
// shared trace buffer.
type traceMetadataReader struct {
	data   []byte
	endian binary.ByteOrder
}

// NewTraceMetadataReader creates a cursor-block accessor over the final
// TraceEventMetadataSize bytes of the shared buffer. The caller passes the
// whole buffer; the metadata offset is derived from its length so the log
// area and the cursor block can never be confused for one another.
func NewTraceMetadataReader(buf []byte, endian binary.ByteOrder) (interfaces.TraceMetadataReader, error) {
	r, err := newTraceMetadataAccessor(buf, endian)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// NewTraceMetadataWriter creates a writer for the host-owned head cursor over
// the same metadata block layout.
func NewTraceMetadataWriter(buf []byte, endian binary.ByteOrder) (interfaces.TraceMetadataWriter, error) {
	r, err := newTraceMetadataAccessor(buf, endian)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func newTraceMetadataAccessor(buf []byte, endian binary.ByteOrder) (*traceMetadataReader, error) {
	if len(buf) < types.TraceEventMetadataSize {
		return nil, fmt.Errorf("buffer too small for trace metadata: %d bytes", len(buf))
	}
	meta := buf[len(buf)-types.TraceEventMetadataSize:]
	return &traceMetadataReader{data: meta, endian: endian}, nil
}

// TailOffset returns the absolute produced byte count written by firmware.
func (r *traceMetadataReader) TailOffset() uint64 {
	return r.endian.Uint64(r.data[0:8])
}

// HeadOffset returns the absolute consumed byte count last written by the host.
func (r *traceMetadataReader) HeadOffset() uint64 {
	return r.endian.Uint64(r.data[8:16])
}

// SetHeadOffset publishes the absolute consumed byte count.
func (r *traceMetadataReader) SetHeadOffset(offset uint64) {
	r.endian.PutUint64(r.data[8:16], offset)
}
