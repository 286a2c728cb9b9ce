// Package policy implements the five interchangeable scheduling policies
// sharing a common per-tick skeleton, a process table, and a running slot.
//
// Each policy keeps its own ready structure. These are parametric
// containers over job ids rather than void-pointer/type-erased containers,
// and the one genuinely cyclic structure (RR's circular list) is
// implemented as an arena of records addressed by integer index instead of
// a pointer-cyclic linked list.
package policy

import "sort"

// fifo is a FIFO of job ids, used by FCFS.
type fifo struct {
	items []int
}

func (q *fifo) pushBack(id int) { q.items = append(q.items, id) }

func (q *fifo) front() (int, bool) {
	if len(q.items) == 0 {
		return 0, false
	}
	return q.items[0], true
}

func (q *fifo) popFront() {
	if len(q.items) > 0 {
		q.items = q.items[1:]
	}
}

func (q *fifo) remove(id int) {
	for i, v := range q.items {
		if v == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return
		}
	}
}

func (q *fifo) tail() []int {
	if len(q.items) <= 1 {
		return nil
	}
	out := make([]int, len(q.items)-1)
	copy(out, q.items[1:])
	return out
}

func (q *fifo) empty() bool { return len(q.items) == 0 }

// priorityNode is one entry of a priorityList: the smallest key is elected
// first; seq breaks ties in original-insertion order, so ties always
// resolve FIFO.
type priorityNode struct {
	id, key, seq int
}

// priorityList is an order-statistic list keyed ascending, used by SJF,
// HPF and SRTN. Re-keying (needed by SRTN's per-tick refresh) is done by
// remove-then-reinsert, a fine alternative to a decrease-key heap at
// realistic workload sizes.
type priorityList struct {
	items  []priorityNode
	seqOf  map[int]int
	nextSeq int
}

func newPriorityList() *priorityList {
	return &priorityList{seqOf: make(map[int]int)}
}

func (p *priorityList) enqueue(id, key int) {
	seq, ok := p.seqOf[id]
	if !ok {
		seq = p.nextSeq
		p.nextSeq++
		p.seqOf[id] = seq
	}
	node := priorityNode{id: id, key: key, seq: seq}
	i := sort.Search(len(p.items), func(i int) bool {
		if p.items[i].key != key {
			return p.items[i].key > key
		}
		return p.items[i].seq > seq
	})
	p.items = append(p.items, priorityNode{})
	copy(p.items[i+1:], p.items[i:])
	p.items[i] = node
}

func (p *priorityList) remove(id int) {
	for i, n := range p.items {
		if n.id == id {
			p.items = append(p.items[:i], p.items[i+1:]...)
			return
		}
	}
}

// rekey moves id to a new position under newKey, preserving its original
// tie-break sequence number.
func (p *priorityList) rekey(id, newKey int) {
	p.remove(id)
	p.enqueue(id, newKey)
}

func (p *priorityList) peekMin() (int, bool) {
	if len(p.items) == 0 {
		return 0, false
	}
	return p.items[0].id, true
}

func (p *priorityList) popMin() {
	if len(p.items) > 0 {
		p.items = p.items[1:]
	}
}

func (p *priorityList) tail() []int {
	if len(p.items) <= 1 {
		return nil
	}
	out := make([]int, 0, len(p.items)-1)
	for _, n := range p.items[1:] {
		out = append(out, n.id)
	}
	return out
}

func (p *priorityList) empty() bool { return len(p.items) == 0 }

// allExcept returns every id in the list other than excludeID, regardless
// of position. Needed by non-preemptive policies where the running job
// need not sit at the front of the list (its key may no longer be the
// minimum once a job with a smaller key arrives).
func (p *priorityList) allExcept(excludeID int) []int {
	out := make([]int, 0, len(p.items))
	for _, n := range p.items {
		if n.id != excludeID {
			out = append(out, n.id)
		}
	}
	return out
}

// rrNode is one arena slot of a circularList.
type rrNode struct {
	id         int
	next, prev int
	alive      bool
}

// circularList is the arena-backed circular ready list RR rotates through.
type circularList struct {
	arena     []rrNode
	freeSlots []int
	index     map[int]int // id -> arena slot
	head      int
	length    int
}

func newCircularList() *circularList {
	return &circularList{index: make(map[int]int), head: -1}
}

func (c *circularList) newNode(id int) int {
	if n := len(c.freeSlots); n > 0 {
		i := c.freeSlots[n-1]
		c.freeSlots = c.freeSlots[:n-1]
		c.arena[i] = rrNode{id: id, alive: true}
		return i
	}
	c.arena = append(c.arena, rrNode{id: id, alive: true})
	return len(c.arena) - 1
}

func (c *circularList) pushBack(id int) {
	i := c.newNode(id)
	c.index[id] = i
	if c.length == 0 {
		c.arena[i].next = i
		c.arena[i].prev = i
		c.head = i
	} else {
		tail := c.arena[c.head].prev
		c.arena[tail].next = i
		c.arena[i].prev = tail
		c.arena[i].next = c.head
		c.arena[c.head].prev = i
	}
	c.length++
}

func (c *circularList) remove(id int) {
	i, ok := c.index[id]
	if !ok {
		return
	}
	delete(c.index, id)
	if c.length == 1 {
		c.head = -1
	} else {
		prev, next := c.arena[i].prev, c.arena[i].next
		c.arena[prev].next = next
		c.arena[next].prev = prev
		if c.head == i {
			c.head = next
		}
	}
	c.arena[i] = rrNode{}
	c.freeSlots = append(c.freeSlots, i)
	c.length--
}

func (c *circularList) frontID() (int, bool) {
	if c.length == 0 {
		return 0, false
	}
	return c.arena[c.head].id, true
}

// advance rotates the head pointer to the next node and returns its id.
func (c *circularList) advance() (int, bool) {
	if c.length == 0 {
		return 0, false
	}
	c.head = c.arena[c.head].next
	return c.arena[c.head].id, true
}

func (c *circularList) tailIDs() []int {
	if c.length <= 1 {
		return nil
	}
	out := make([]int, 0, c.length-1)
	i := c.arena[c.head].next
	for k := 0; k < c.length-1; k++ {
		out = append(out, c.arena[i].id)
		i = c.arena[i].next
	}
	return out
}

func (c *circularList) empty() bool { return c.length == 0 }
