// Package buffer implements the scatter/gather buffer primitives: Buffer,
// BufferArray, the tagged Data variant, and the segmented ByteQueue that
// backs the watermark queues.
package buffer

// Buffer is a {ptr,len} view over a byte slice. ReadOnly distinguishes a
// const view (produced by gather, safe to read but never to mutate in
// place) from a mutable view (produced by scatter, safe to write into).
// Go has no const-overload duplication the way the source language does,
// so a single type carries a bool tag rather than two compiled types.
type Buffer struct {
	Bytes    []byte
	ReadOnly bool
}

// Len returns the buffer's length.
func (b Buffer) Len() int { return len(b.Bytes) }

// Array is an ordered sequence of buffers representing one logical datagram
// or stream segment. Invariant: no element has a nil Bytes unless Len()==0.
type Array []Buffer

// TotalLen returns the sum of every buffer's length.
func (a Array) TotalLen() int {
	n := 0
	for _, b := range a {
		n += b.Len()
	}
	return n
}

// Kind discriminates the variants of Data.
type Kind int

const (
	KindBuffer Kind = iota
	KindArray
	KindQueue
	KindFileRange
	KindString
)

// FileRange describes a {fd, offset, length} sendfile-style data source.
type FileRange struct {
	FD     int
	Offset int64
	Length int64
}

// Data is the tagged union carrying one of: a single buffer, a buffer
// array, a segmented byte queue, a file range, or a string. Call sites
// switch exhaustively on Kind, mirroring the teacher's
// UblksrvIODesc.GetOp() dispatch style rather than modeling this as an
// interface with one method per variant.
type Data struct {
	Kind   Kind
	Buffer Buffer
	Array  Array
	Queue  *ByteQueue
	File   FileRange
	String string
}

// Len returns the logical length of the data regardless of variant.
func (d Data) Len() int {
	switch d.Kind {
	case KindBuffer:
		return d.Buffer.Len()
	case KindArray:
		return d.Array.TotalLen()
	case KindQueue:
		if d.Queue == nil {
			return 0
		}
		return d.Queue.Len()
	case KindFileRange:
		return int(d.File.Length)
	case KindString:
		return len(d.String)
	default:
		return 0
	}
}
