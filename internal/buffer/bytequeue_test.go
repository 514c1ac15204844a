package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndPop(t *testing.T) {
	q := NewByteQueue()
	q.Append([]byte("hello "))
	q.Append([]byte("world"))
	require.Equal(t, 11, q.Len())

	out := q.Pop(5)
	assert.Equal(t, "hello", string(out))
	assert.Equal(t, 6, q.Len())

	out = q.Pop(100)
	assert.Equal(t, " world", string(out))
	assert.Equal(t, 0, q.Len())
}

func TestAppendAcrossChunkBoundary(t *testing.T) {
	q := NewByteQueue()
	big := make([]byte, ChunkSize+100)
	for i := range big {
		big[i] = byte(i)
	}
	q.Append(big)
	require.Equal(t, len(big), q.Len())

	out := q.Pop(len(big))
	assert.Equal(t, big, out)
}

func TestPrependPutsBytesAheadOfExistingQueueContent(t *testing.T) {
	q := NewByteQueue()
	q.Append([]byte("world"))
	q.Prepend([]byte("hello "))
	require.Equal(t, 11, q.Len())
	assert.Equal(t, "hello world", string(q.Pop(11)))
}

func TestPrependAcrossChunkBoundary(t *testing.T) {
	q := NewByteQueue()
	q.Append([]byte("tail"))
	big := make([]byte, ChunkSize+10)
	for i := range big {
		big[i] = byte(i)
	}
	q.Prepend(big)
	require.Equal(t, len(big)+4, q.Len())

	out := q.Pop(len(big))
	assert.Equal(t, big, out)
	assert.Equal(t, "tail", string(q.Pop(4)))
}

func TestGatherEmptyQueue(t *testing.T) {
	q := NewByteQueue()
	arr, count, bytes := Gather(q, 4, 1024)
	assert.Nil(t, arr)
	assert.Equal(t, 0, count)
	assert.Equal(t, 0, bytes)
}

func TestGatherRespectsMaxBytesTruncation(t *testing.T) {
	q := NewByteQueue()
	q.Append([]byte("abcdefghij"))

	arr, count, n := Gather(q, 4, 4)
	require.Equal(t, 1, count)
	assert.Equal(t, 4, n)
	assert.Equal(t, "abcd", string(arr[0].Bytes))
	assert.True(t, arr[0].ReadOnly)
}

func TestGatherRespectsMaxBuffersSilentTruncation(t *testing.T) {
	q := NewByteQueue()
	// Force three chunks.
	q.Append(make([]byte, ChunkSize))
	q.Append(make([]byte, ChunkSize))
	q.Append(make([]byte, ChunkSize))

	arr, count, _ := Gather(q, 2, 10*ChunkSize)
	assert.Equal(t, 2, count)
	assert.Len(t, arr, 2)
}

func TestScatterThenCommit(t *testing.T) {
	q := NewByteQueue()
	arr, count, n := Scatter(q, 4, 16)
	require.Equal(t, 1, count)
	require.Equal(t, 16, n)

	copy(arr[0].Bytes, "0123456789abcdef")
	q.Commit(16)

	assert.Equal(t, 16, q.Len())
	assert.Equal(t, "0123456789abcdef", string(q.Pop(16)))
}

func TestDiscardRecyclesChunks(t *testing.T) {
	q := NewByteQueue()
	q.Append(make([]byte, ChunkSize+10))
	dropped := q.Discard(ChunkSize + 10)
	assert.Equal(t, ChunkSize+10, dropped)
	assert.Equal(t, 0, q.Len())
}

func TestCopyFromArrayWithOffset(t *testing.T) {
	q := NewByteQueue()
	arr := Array{
		{Bytes: []byte("hello ")},
		{Bytes: []byte("world")},
	}
	Copy(q, arr, 3)
	assert.Equal(t, "lo world", string(q.Pop(100)))
}

func TestDataLenByKind(t *testing.T) {
	q := NewByteQueue()
	q.Append([]byte("xyz"))

	cases := []struct {
		name string
		data Data
		want int
	}{
		{"buffer", Data{Kind: KindBuffer, Buffer: Buffer{Bytes: []byte("abcd")}}, 4},
		{"array", Data{Kind: KindArray, Array: Array{{Bytes: []byte("ab")}, {Bytes: []byte("cde")}}}, 5},
		{"queue", Data{Kind: KindQueue, Queue: q}, 3},
		{"file", Data{Kind: KindFileRange, File: FileRange{Length: 42}}, 42},
		{"string", Data{Kind: KindString, String: "hello"}, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.data.Len())
		})
	}
}
