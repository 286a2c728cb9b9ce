package memory

import "sort"

// buddyManager implements the Buddy strategy: allocations are rounded up
// to the next power of two and tracked in a binary-tree-by-order view.
// Since the configured address space M need not itself be a power of two,
// M is decomposed at construction into a small number of
// independent power-of-two regions (one per set bit of M, largest first)
// rather than rounding the whole space up and reserving the overhang —
// this way every byte of M is usable and no region ever needs a permanent
// "unusable" placeholder block.
type buddyManager struct {
	sink  Sink
	total int

	regions  []region
	freeList map[int][]int // order -> free block offsets at that order
	alloc    map[int]allocation
}

type region struct {
	base, order int // size = 1 << order
}

type allocation struct {
	order, jobID, reqSize int
}

func newBuddyManager(size int, sink Sink) *buddyManager {
	m := &buddyManager{
		sink:     sink,
		total:    size,
		freeList: make(map[int][]int),
		alloc:    make(map[int]allocation),
	}

	offset := 0
	remaining := size
	for order := 63; order >= 0 && remaining > 0; order-- {
		blockSize := 1 << uint(order)
		if blockSize <= remaining {
			m.regions = append(m.regions, region{base: offset, order: order})
			m.freeList[order] = append(m.freeList[order], offset)
			offset += blockSize
			remaining -= blockSize
		}
	}
	sort.Slice(m.regions, func(i, j int) bool { return m.regions[i].base < m.regions[j].base })
	return m
}

func (m *buddyManager) Size() int { return m.total }

func ceilOrder(size int) int {
	order := 0
	for (1 << uint(order)) < size {
		order++
	}
	return order
}

func (m *buddyManager) regionFor(offset int) region {
	// regions are few and sorted by base; linear scan is simplest and
	// plenty fast at realistic region counts (<=64).
	for i := len(m.regions) - 1; i >= 0; i-- {
		if m.regions[i].base <= offset {
			return m.regions[i]
		}
	}
	return m.regions[0]
}

func (m *buddyManager) maxOrder() int {
	best := 0
	for _, r := range m.regions {
		if r.order > best {
			best = r.order
		}
	}
	return best
}

// Allocate implements Manager.
func (m *buddyManager) Allocate(tick, size, jobID int) (int, bool) {
	if size <= 0 || size > m.total {
		return 0, false
	}
	target := ceilOrder(size)
	top := m.maxOrder()

	for order := target; order <= top; order++ {
		blocks := m.freeList[order]
		if len(blocks) == 0 {
			continue
		}
		offset := blocks[len(blocks)-1]
		m.freeList[order] = blocks[:len(blocks)-1]

		// split down from order to target, banking each buddy half
		for o := order; o > target; o-- {
			half := 1 << uint(o-1)
			buddyOffset := offset + half
			m.freeList[o-1] = append(m.freeList[o-1], buddyOffset)
		}

		rounded := 1 << uint(target)
		m.alloc[offset] = allocation{order: target, jobID: jobID, reqSize: size}
		m.sink.MemoryEvent(Event{Tick: tick, Kind: Allocated, Size: rounded, JobID: jobID, Start: offset, End: offset + rounded})
		return offset, true
	}
	return 0, false
}

// Free implements Manager.
func (m *buddyManager) Free(tick, offset, jobID int) error {
	rec, ok := m.alloc[offset]
	if !ok || rec.jobID != jobID {
		return ErrUnknownRegion
	}
	delete(m.alloc, offset)

	rounded := 1 << uint(rec.order)
	m.sink.MemoryEvent(Event{Tick: tick, Kind: Freed, Size: rounded, JobID: jobID, Start: offset, End: offset + rounded})

	cur := offset
	order := rec.order
	for {
		r := m.regionFor(cur)
		if order >= r.order {
			break
		}
		buddyOffset := r.base + ((cur - r.base) ^ (1 << uint(order)))
		blocks := m.freeList[order]
		idx := -1
		for i, b := range blocks {
			if b == buddyOffset {
				idx = i
				break
			}
		}
		if idx == -1 {
			break
		}
		m.freeList[order] = append(blocks[:idx], blocks[idx+1:]...)
		if buddyOffset < cur {
			cur = buddyOffset
		}
		order++
	}
	m.freeList[order] = append(m.freeList[order], cur)
	return nil
}

// snapshot reports, per order, how many free blocks remain. Exposed for
// tests checking the buddy tree returns to a single root free block.
func (m *buddyManager) snapshot() map[int]int {
	out := make(map[int]int, len(m.freeList))
	for order, blocks := range m.freeList {
		if len(blocks) > 0 {
			out[order] = len(blocks)
		}
	}
	return out
}
