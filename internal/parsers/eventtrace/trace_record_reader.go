package eventtrace

import (
	"encoding/binary"

	"github.com/deploymenttheory/go-fwtrace/internal/interfaces"
	"github.com/deploymenttheory/go-fwtrace/internal/types"
)

// traceRecordReader implements the TraceRecordReader interface over a
// linearized drain range.
type traceRecordReader struct {
	data      []byte
	endian    binary.ByteOrder
	count     int
	truncated bool
}

// NewTraceRecordReader creates a record accessor over the first length bytes
// of a drained range. A trailing partial record is not decodable; it is
// dropped and reported through Truncated.
func NewTraceRecordReader(data []byte, length int, endian binary.ByteOrder) interfaces.TraceRecordReader {
	if length > len(data) {
		length = len(data)
	}
	return &traceRecordReader{
		data:      data[:length],
		endian:    endian,
		count:     length / types.MaxOneTimeLogInfoLen,
		truncated: length%types.MaxOneTimeLogInfoLen != 0,
	}
}

// RecordCount returns the number of complete records in the range.
func (r *traceRecordReader) RecordCount() int {
	return r.count
}

// Truncated reports whether a partial trailing record was dropped.
func (r *traceRecordReader) Truncated() bool {
	return r.truncated
}

// Record decodes the record at index i.
func (r *traceRecordReader) Record(i int) types.TraceEventLogDataT {
	off := i * types.MaxOneTimeLogInfoLen
	rec := types.TraceEventLogDataT{}
	rec.Counter = r.endian.Uint64(r.data[off : off+8])
	rec.PayloadHi = r.endian.Uint16(r.data[off+8 : off+10])
	rec.Type = r.endian.Uint16(r.data[off+10 : off+12])
	rec.PayloadLow = r.endian.Uint32(r.data[off+12 : off+16])
	return rec
}
