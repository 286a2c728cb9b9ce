package memory

// listManager implements First-Fit, Next-Fit and Best-Fit over a circular
// doubly-linked free-list. Nodes live in an arena (slice) addressed by
// integer index rather than as a pointer-cyclic structure, so removal is
// O(1) and there is no ownership cycle for the Go garbage collector to
// reason about.
type listManager struct {
	strategy Strategy
	sink     Sink
	total    int

	arena     []segment
	freeSlots []int // recycled arena indices available for reuse
	head      int   // index of the segment with start == 0
	cursor    int   // last-allocated segment index, for Next-Fit
	length    int   // number of live segments in the ring
}

type segment struct {
	start, size, owner int
	next, prev         int
	alive              bool
}

func newListManager(strategy Strategy, size int, sink Sink) *listManager {
	m := &listManager{strategy: strategy, sink: sink, total: size}
	root := segment{start: 0, size: size, owner: 0, next: 0, prev: 0, alive: true}
	m.arena = []segment{root}
	m.head = 0
	m.cursor = 0
	m.length = 1
	return m
}

func (m *listManager) Size() int { return m.total }

func (m *listManager) newNode(start, size, owner int) int {
	if n := len(m.freeSlots); n > 0 {
		idx := m.freeSlots[n-1]
		m.freeSlots = m.freeSlots[:n-1]
		m.arena[idx] = segment{start: start, size: size, owner: owner, alive: true}
		return idx
	}
	m.arena = append(m.arena, segment{start: start, size: size, owner: owner, alive: true})
	return len(m.arena) - 1
}

func (m *listManager) freeNode(idx int) {
	m.arena[idx] = segment{}
	m.freeSlots = append(m.freeSlots, idx)
}

// splitAfter allocates size bytes out of the free segment at idx, inserting
// a residual free segment after it when the segment is strictly larger.
// Returns the offset granted.
func (m *listManager) splitAfter(idx, size int) int {
	seg := m.arena[idx]
	offset := seg.start
	if seg.size == size {
		return offset
	}
	residual := m.newNode(seg.start+size, seg.size-size, 0)
	nextIdx := seg.next
	m.arena[idx].next = residual
	m.arena[residual].prev = idx
	m.arena[residual].next = nextIdx
	m.arena[nextIdx].prev = residual
	m.length++
	return offset
}

// Allocate implements Manager.
func (m *listManager) Allocate(tick, size, jobID int) (int, bool) {
	if size <= 0 || size > m.total {
		return 0, false
	}

	var chosen int
	var found bool

	switch m.strategy {
	case FirstFit:
		chosen, found = m.scanFirstFit(size)
	case NextFit:
		chosen, found = m.scanNextFit(size)
	case BestFit:
		chosen, found = m.scanBestFit(size)
	default:
		return 0, false
	}
	if !found {
		return 0, false
	}

	offset := m.splitAfter(chosen, size)
	m.arena[chosen].size = size
	m.arena[chosen].owner = jobID
	m.cursor = chosen

	m.sink.MemoryEvent(Event{Tick: tick, Kind: Allocated, Size: size, JobID: jobID, Start: offset, End: offset + size})
	return offset, true
}

func (m *listManager) scanFirstFit(size int) (int, bool) {
	idx := m.head
	for i := 0; i < m.length; i++ {
		seg := m.arena[idx]
		if seg.owner == 0 && seg.size >= size {
			return idx, true
		}
		idx = seg.next
	}
	return 0, false
}

func (m *listManager) scanNextFit(size int) (int, bool) {
	start := m.arena[m.cursor].next
	idx := start
	for i := 0; i < m.length; i++ {
		seg := m.arena[idx]
		if seg.owner == 0 && seg.size >= size {
			return idx, true
		}
		idx = seg.next
	}
	return 0, false
}

func (m *listManager) scanBestFit(size int) (int, bool) {
	idx := m.head
	best := -1
	bestSize := 0
	bestStart := 0
	for i := 0; i < m.length; i++ {
		seg := m.arena[idx]
		if seg.owner == 0 && seg.size >= size {
			if best == -1 || seg.size < bestSize || (seg.size == bestSize && seg.start < bestStart) {
				best, bestSize, bestStart = idx, seg.size, seg.start
			}
		}
		idx = seg.next
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

// Free implements Manager.
func (m *listManager) Free(tick, offset, jobID int) error {
	idx := m.head
	found := -1
	for i := 0; i < m.length; i++ {
		seg := m.arena[idx]
		if seg.start == offset && seg.owner == jobID {
			found = idx
			break
		}
		idx = seg.next
	}
	if found == -1 {
		return ErrUnknownRegion
	}

	size := m.arena[found].size
	start := m.arena[found].start
	m.arena[found].owner = 0

	m.sink.MemoryEvent(Event{Tick: tick, Kind: Freed, Size: size, JobID: jobID, Start: start, End: start + size})

	m.coalesce(found)
	return nil
}

// coalesce merges the free segment at idx with adjacent free neighbors.
// The ring's next/prev links also close the loop from the highest-address
// segment back to the one starting at 0 (for Next-Fit wraparound scans);
// that wrap link is not real address adjacency, so merges are additionally
// gated on the arithmetic adjacency check (end of one == start of other).
func (m *listManager) coalesce(idx int) {
	if m.length > 1 {
		next := m.arena[idx].next
		if next != idx && m.arena[next].owner == 0 &&
			m.arena[idx].start+m.arena[idx].size == m.arena[next].start {
			m.mergeInto(idx, next)
		}
	}
	if m.length > 1 {
		prev := m.arena[idx].prev
		if prev != idx && m.arena[prev].owner == 0 &&
			m.arena[prev].start+m.arena[prev].size == m.arena[idx].start {
			m.mergeInto(prev, idx)
			idx = prev
		}
	}
	if m.cursor >= len(m.arena) || !m.arena[m.cursor].alive {
		m.cursor = m.head
	}
	if !m.arena[m.head].alive {
		m.head = idx
	}
}

// mergeInto absorbs the segment at rhs into the segment at lhs; lhs must
// immediately precede rhs in the ring.
func (m *listManager) mergeInto(lhs, rhs int) {
	m.arena[lhs].size += m.arena[rhs].size
	rhsNext := m.arena[rhs].next
	m.arena[lhs].next = rhsNext
	m.arena[rhsNext].prev = lhs
	if m.head == rhs {
		m.head = lhs
	}
	if m.cursor == rhs {
		m.cursor = lhs
	}
	m.freeNode(rhs)
	m.length--
}

// segments returns a snapshot of the live segments in ring order, starting
// at head. Exposed for tests verifying the partition invariant.
func (m *listManager) segments() []segment {
	out := make([]segment, 0, m.length)
	idx := m.head
	for i := 0; i < m.length; i++ {
		out = append(out, m.arena[idx])
		idx = m.arena[idx].next
	}
	return out
}
