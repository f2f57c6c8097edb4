// Package diag records an optional gap-inference trace to a Parquet
// file, using github.com/parquet-go/parquet-go for structured, typed
// record export (distinct from the ambient log.Logger used for
// warnings). It is
// exercised by cmd/batchfuse's -trace flag and is otherwise entirely
// optional: fuse.BatchFuse itself has no dependency on this package.
package diag

import (
	"os"

	"github.com/parquet-go/parquet-go"
)

// GapEvent is one row of a gap-inference trace: the gap recorded for a
// tensor at the moment SetForwardGap committed it.
type GapEvent struct {
	TensorID   int    `parquet:"tensor_id"`
	OpKind     string `parquet:"op_kind"`
	LeftW      int    `parquet:"left_w"`
	RightW     int    `parquet:"right_w"`
	LeftH      int    `parquet:"left_h"`
	RightH     int    `parquet:"right_h"`
	Revision   int    `parquet:"revision"`
}

// Recorder accumulates GapEvent rows in memory and flushes them to a
// Parquet file on Close.
type Recorder struct {
	path   string
	events []GapEvent
}

// NewRecorder returns a Recorder that will write to path on Close.
func NewRecorder(path string) *Recorder {
	return &Recorder{path: path}
}

// Record appends one gap-inference event to the trace.
func (r *Recorder) Record(e GapEvent) {
	r.events = append(r.events, e)
}

// Close writes every recorded event to r's Parquet file.
func (r *Recorder) Close() error {
	f, err := os.Create(r.path)
	if err != nil {
		return err
	}
	defer f.Close()

	writer := parquet.NewGenericWriter[GapEvent](f)

	if _, err := writer.Write(r.events); err != nil {
		_ = writer.Close()

		return err
	}

	return writer.Close()
}
