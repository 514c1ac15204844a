//go:build linux && !giouring

package proactor

import (
	"sync"
	"sync/atomic"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// minimalRing is a from-scratch io_uring binding: io_uring_setup plus the
// standard (non-CQE32/SQE128) submission and completion ring layout,
// generalized from the teacher's internal/uring/minimal.go (which built
// the same rings but only ever populated them with ublk URING_CMD SQEs).
// This variant issues ordinary READ/WRITE-class opcodes for socket I/O.
//
// Ring-index visibility between this process and the kernel is handled
// with sync/atomic loads/stores on the mmap'd head/tail words, the pure-Go
// equivalent of the teacher's internal/uring/barrier.go cgo
// sfence/mfence pair — no cgo, same memory-ordering guarantee.
type minimalRing struct {
	fd int

	sqEntries uint32
	cqEntries uint32

	sqMap  []byte
	sqesMap []byte
	cqMap  []byte

	sqHead  *uint32
	sqTail  *uint32
	sqMask  *uint32
	sqArray *uint32 // base of the index array

	cqHead *uint32
	cqTail *uint32
	cqMask *uint32
	cqes   unsafe.Pointer // base of cqe32-equivalent array (minimalCQE)

	sqes unsafe.Pointer // base of minimalSQE array

	mu        sync.Mutex
	userDatas map[uint64]uint32 // userData -> sqe index, for Cancel lookups
}

const (
	opRead        = 22
	opWrite       = 23
	opSend        = 26
	opRecv        = 27
	opConnect     = 16
	opAccept      = 13
	opTimeout     = 11
	opAsyncCancel = 14
)

type minimalSQE struct {
	opcode      uint8
	flags       uint8
	ioprio      uint16
	fd          int32
	off         uint64
	addr        uint64
	length      uint32
	opcodeFlags uint32
	userData    uint64
	bufIndex    uint16
	personality uint16
	spliceFdIn  int32
	addr3       uint64
	_           uint64
}

type minimalCQE struct {
	userData uint64
	res      int32
	flags    uint32
}

type uringParams struct {
	sqEntries    uint32
	cqEntries    uint32
	flags        uint32
	sqThreadCPU  uint32
	sqThreadIdle uint32
	features     uint32
	wqFd         uint32
	resv         [3]uint32
	sqOff        ringOffsets
	cqOff        ringOffsets
}

type ringOffsets struct {
	head        uint32
	tail        uint32
	ringMask    uint32
	ringEntries uint32
	flagsOrOvf  uint32
	dropped     uint32
	array       uint32
	resv1       uint32
	userAddr    uint64
}

const (
	sysIOUringSetup = 425
	sysIOUringEnter = 426

	ioringOffSQRing = 0
	ioringOffCQRing = 0x8000000
	ioringOffSQEs   = 0x10000000

	ioringEnterGetevents = 1
)

func newRing(queueDepth int) (ring, error) {
	if queueDepth <= 0 {
		queueDepth = 128
	}
	var params uringParams
	params.sqEntries = uint32(queueDepth)

	fdUintptr, _, errno := syscall.Syscall(sysIOUringSetup, uintptr(queueDepth), uintptr(unsafe.Pointer(&params)), 0)
	if errno != 0 {
		return nil, errno
	}
	fd := int(fdUintptr)

	sqSize := int(params.sqOff.array) + int(params.sqEntries)*4
	sqMap, err := unix.Mmap(fd, ioringOffSQRing, sqSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		syscall.Close(fd)
		return nil, err
	}

	sqesSize := int(params.sqEntries) * int(unsafe.Sizeof(minimalSQE{}))
	sqesMap, err := unix.Mmap(fd, ioringOffSQEs, sqesSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		unix.Munmap(sqMap)
		syscall.Close(fd)
		return nil, err
	}

	cqSize := int(params.cqOff.dropped) + int(params.cqEntries)*int(unsafe.Sizeof(minimalCQE{}))
	cqMap, err := unix.Mmap(fd, ioringOffCQRing, cqSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		unix.Munmap(sqesMap)
		unix.Munmap(sqMap)
		syscall.Close(fd)
		return nil, err
	}

	r := &minimalRing{
		fd:        fd,
		sqEntries: params.sqEntries,
		cqEntries: params.cqEntries,
		sqMap:     sqMap,
		sqesMap:   sqesMap,
		cqMap:     cqMap,
		sqHead:    ptrAt32(sqMap, params.sqOff.head),
		sqTail:    ptrAt32(sqMap, params.sqOff.tail),
		sqMask:    ptrAt32(sqMap, params.sqOff.ringMask),
		sqArray:   ptrAt32(sqMap, params.sqOff.array),
		cqHead:    ptrAt32(cqMap, params.cqOff.head),
		cqTail:    ptrAt32(cqMap, params.cqOff.tail),
		cqMask:    ptrAt32(cqMap, params.cqOff.ringMask),
		// The CQ ring's offsets struct reuses the same field layout as the
		// SQ ring's; its sixth slot (named "dropped" here) holds the byte
		// offset of the cqes array (kernel calls it io_cqring_offsets.cqes).
		cqes: unsafe.Pointer(&cqMap[params.cqOff.dropped]),
		sqes: unsafe.Pointer(&sqesMap[0]),
		userDatas: make(map[uint64]uint32),
	}
	return r, nil
}

func ptrAt32(buf []byte, off uint32) *uint32 {
	return (*uint32)(unsafe.Pointer(&buf[off]))
}

func (r *minimalRing) sqeAt(idx uint32) *minimalSQE {
	return (*minimalSQE)(unsafe.Pointer(uintptr(r.sqes) + uintptr(idx)*unsafe.Sizeof(minimalSQE{})))
}

func (r *minimalRing) cqeAt(idx uint32) *minimalCQE {
	return (*minimalCQE)(unsafe.Pointer(uintptr(r.cqes) + uintptr(idx)*unsafe.Sizeof(minimalCQE{})))
}

func (r *minimalRing) submit(userData uint64, sub Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tail := atomic.LoadUint32(r.sqTail)
	mask := atomic.LoadUint32(r.sqMask)
	idx := tail & mask

	sqe := r.sqeAt(idx)
	*sqe = minimalSQE{userData: userData}

	switch sub.Kind {
	case OpSend:
		sqe.opcode = opSend
		sqe.fd = sub.Handle
		sqe.addr = uint64(uintptr(unsafe.Pointer(&sub.Buffer[0])))
		sqe.length = uint32(len(sub.Buffer))
	case OpReceive:
		sqe.opcode = opRecv
		sqe.fd = sub.Handle
		sqe.addr = uint64(uintptr(unsafe.Pointer(&sub.Buffer[0])))
		sqe.length = uint32(len(sub.Buffer))
	case OpConnect:
		sqe.opcode = opConnect
		sqe.fd = sub.Handle
		sqe.addr = uint64(uintptr(unsafe.Pointer(&sub.Address[0])))
		sqe.off = uint64(len(sub.Address))
	case OpAccept:
		sqe.opcode = opAccept
		sqe.fd = sub.Handle
	case OpTimer:
		sqe.opcode = opTimeout
		ts := unix.NsecToTimespec(sub.Deadline.Nanoseconds())
		sqe.addr = uint64(uintptr(unsafe.Pointer(&ts)))
		sqe.length = 1
	}

	sqArrayEntry := (*uint32)(unsafe.Pointer(uintptr(unsafe.Pointer(r.sqArray)) + uintptr(idx)*4))
	*sqArrayEntry = idx
	atomic.StoreUint32(r.sqTail, tail+1)
	r.userDatas[userData] = idx

	_, _, errno := syscall.Syscall6(sysIOUringEnter, uintptr(r.fd), 1, 0, 0, 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func (r *minimalRing) reap(timeoutMs int) ([]ringCompletion, error) {
	// A negative timeoutMs blocks in io_uring_enter until at least one
	// completion arrives (minWait=1); any other value makes one
	// non-blocking GETEVENTS pass and relies on the caller's own retry/sleep
	// policy for timeout semantics.
	minWait := uintptr(0)
	if timeoutMs < 0 {
		minWait = 1
	}
	_, _, errno := syscall.Syscall6(sysIOUringEnter, uintptr(r.fd), 0, minWait, ioringEnterGetevents, 0, 0)
	if errno != 0 && errno != unix.EINTR {
		return nil, errno
	}

	var out []ringCompletion
	head := atomic.LoadUint32(r.cqHead)
	tail := atomic.LoadUint32(r.cqTail)
	mask := atomic.LoadUint32(r.cqMask)
	for head != tail {
		cqe := r.cqeAt(head & mask)
		out = append(out, ringCompletion{userData: cqe.userData, res: cqe.res})
		head++
	}
	atomic.StoreUint32(r.cqHead, head)
	return out, nil
}

func (r *minimalRing) cancel(userData uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tail := atomic.LoadUint32(r.sqTail)
	mask := atomic.LoadUint32(r.sqMask)
	idx := tail & mask

	sqe := r.sqeAt(idx)
	*sqe = minimalSQE{opcode: opAsyncCancel, addr: userData}

	sqArrayEntry := (*uint32)(unsafe.Pointer(uintptr(unsafe.Pointer(r.sqArray)) + uintptr(idx)*4))
	*sqArrayEntry = idx
	atomic.StoreUint32(r.sqTail, tail+1)

	_, _, errno := syscall.Syscall6(sysIOUringEnter, uintptr(r.fd), 1, 0, 0, 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func (r *minimalRing) close() error {
	unix.Munmap(r.cqMap)
	unix.Munmap(r.sqesMap)
	unix.Munmap(r.sqMap)
	return syscall.Close(r.fd)
}
