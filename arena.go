package symcalc

import (
	"log/slog"
	"math/big"
)

// NodeID addresses a slot of an Arena. The zero NodeID is never allocated.
type NodeID uint32

const (
	// DefaultArenaSize is the byte capacity used when NewArena is given a
	// non-positive size.
	DefaultArenaSize = 32 * 1024

	// MaxChildren caps the number of children of an n-ary node.
	MaxChildren = 6144

	nodeHeaderSize = 16
	childRefSize   = 4
)

type payload struct {
	rat      *big.Rat
	flt      float64
	name     string
	constant Constant
	rows     int
	cols     int
}

type slot struct {
	kind     Kind
	live     bool
	refs     int32
	parent   NodeID
	children []NodeID
	payload  payload
	seq      uint64
	size     int
}

// Arena is a bounded pool of expression nodes. It is not safe for concurrent
// use. Allocation failures are recorded on the arena (see Err) instead of
// unwinding the stack: once the arena is out of space every allocation
// returns the invalid handle and every mutation is a no-op until the error is
// cleared by a checkpoint rollback or Reset.
type Arena struct {
	slots    []slot
	free     []NodeID
	used     int
	peak     int
	capacity int
	seq      uint64
	err      error
	logger   *slog.Logger
}

// NewArena returns an arena holding at most capacity bytes of nodes.
func NewArena(capacity int) *Arena {
	if capacity <= 0 {
		capacity = DefaultArenaSize
	}
	return &Arena{
		slots:    make([]slot, 1, 64),
		capacity: capacity,
		seq:      1,
		logger:   slog.New(slog.DiscardHandler),
	}
}

// SetLogger routes the arena's diagnostics to l.
func (a *Arena) SetLogger(l *slog.Logger) {
	if l != nil {
		a.logger = l
	}
}

func (a *Arena) Used() int     { return a.used }
func (a *Arena) Capacity() int { return a.capacity }
func (a *Arena) Peak() int     { return a.peak }
func (a *Arena) Err() error    { return a.err }

// LiveNodes counts the nodes currently allocated.
func (a *Arena) LiveNodes() int {
	n := 0
	for i := 1; i < len(a.slots); i++ {
		if a.slots[i].live {
			n++
		}
	}
	return n
}

// Reset drops every node and clears the error. Handles into the arena become
// dangling.
func (a *Arena) Reset() {
	a.slots = a.slots[:1]
	a.free = a.free[:0]
	a.used = 0
	a.err = nil
	arenaBytesInUse.Set(0)
}

func (a *Arena) fail() {
	if a.err == nil {
		a.err = ErrOutOfArenaSpace
		arenaExhaustions.Inc()
		a.logger.Debug("arena exhausted", "used", a.used, "capacity", a.capacity)
	}
}

func payloadSize(p payload) int {
	n := len(p.name)
	if p.rat != nil {
		n += 2 + (p.rat.Num().BitLen()+7)/8 + (p.rat.Denom().BitLen()+7)/8
	}
	return n
}

func (a *Arena) slot(id NodeID) *slot {
	if id == 0 || int(id) >= len(a.slots) || !a.slots[id].live {
		panic("symcalc: access to a freed or invalid node")
	}
	return &a.slots[id]
}

// alloc creates a childless node with one hold.
func (a *Arena) alloc(k Kind, p payload) NodeID {
	if a.err != nil {
		return 0
	}
	size := nodeHeaderSize + payloadSize(p)
	switch k {
	case KindFloat, KindDecimal:
		size += 8
	case KindMatrix:
		size += 4
	}
	if a.used+size > a.capacity {
		a.fail()
		return 0
	}
	var id NodeID
	if n := len(a.free); n > 0 {
		id = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, slot{})
		id = NodeID(len(a.slots) - 1)
	}
	a.slots[id] = slot{kind: k, live: true, refs: 1, payload: p, seq: a.seq, size: size}
	a.seq++
	a.account(size)
	return id
}

func (a *Arena) account(delta int) {
	a.used += delta
	if a.used > a.peak {
		a.peak = a.used
	}
	arenaBytesInUse.Set(float64(a.used))
}

// grow reserves delta more bytes for an existing node.
func (a *Arena) grow(id NodeID, delta int) bool {
	if a.err != nil {
		return false
	}
	if a.used+delta > a.capacity {
		a.fail()
		return false
	}
	a.slots[id].size += delta
	a.account(delta)
	return true
}

func (a *Arena) shrink(id NodeID, delta int) {
	a.slots[id].size -= delta
	a.account(-delta)
}

func (a *Arena) retain(id NodeID) {
	a.slot(id).refs++
}

func (a *Arena) release(id NodeID) {
	s := a.slot(id)
	s.refs--
	if s.refs > 0 {
		return
	}
	if s.refs < 0 {
		panic("symcalc: negative reference count")
	}
	a.destroy(id)
}

func (a *Arena) destroy(id NodeID) {
	s := a.slot(id)
	children := s.children
	a.account(-s.size)
	a.slots[id] = slot{}
	for _, c := range children {
		a.slots[c].parent = 0
		a.release(c)
	}
	a.recycle(id)
}

func (a *Arena) recycle(id NodeID) {
	if int(id) >= len(a.slots) {
		// Already trimmed while releasing a child at the tail.
		return
	}
	if int(id) != len(a.slots)-1 {
		a.free = append(a.free, id)
		return
	}
	last := len(a.slots) - 1
	for last > 0 && !a.slots[last].live {
		last--
	}
	a.slots = a.slots[:last+1]
	kept := a.free[:0]
	for _, f := range a.free {
		if int(f) <= last {
			kept = append(kept, f)
		}
	}
	a.free = kept
}

// mark returns the allocation sequence number the next node will receive.
func (a *Arena) mark() uint64 { return a.seq }

// rollback frees every node allocated at or after m. Nodes allocated before m
// that were attached under a newer node get their parent link turned back into
// a hold, so the holders that existed at the mark stay valid.
func (a *Arena) rollback(m uint64) {
	for i := 1; i < len(a.slots); i++ {
		s := &a.slots[i]
		if !s.live || s.seq < m {
			continue
		}
		for _, c := range s.children {
			if cs := &a.slots[c]; cs.live && cs.seq < m && cs.parent == NodeID(i) {
				cs.parent = 0
			}
		}
	}
	for i := 1; i < len(a.slots); i++ {
		s := &a.slots[i]
		if s.live && s.seq >= m {
			a.account(-s.size)
			a.slots[i] = slot{}
		}
	}
	last := len(a.slots) - 1
	for last > 0 && !a.slots[last].live {
		last--
	}
	a.slots = a.slots[:last+1]
	a.free = a.free[:0]
	for i := 1; i < len(a.slots); i++ {
		if !a.slots[i].live {
			a.free = append(a.free, NodeID(i))
		}
	}
	a.err = nil
}
