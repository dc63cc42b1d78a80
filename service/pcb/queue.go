package pcb

// Queue is a circular process queue referenced by its tail; the head is
// tail.next. The zero value is an empty queue. A Queue must not be copied
// once used since descriptors record the queue they sit on.
type Queue struct {
	tail ID
	size int
}

// IsEmpty reports whether q holds no descriptor.
func (q *Queue) IsEmpty() bool {
	return q.size == 0
}

// Len returns the number of queued descriptors.
func (q *Queue) Len() int {
	return q.size
}

// InsertTail appends id to q.
func (t *Table) InsertTail(q *Queue, id ID) {
	d := &t.descriptors[id]
	if q.size == 0 {
		d.next, d.prev = id, id
	} else {
		tail := &t.descriptors[q.tail]
		head := tail.next
		d.next, d.prev = head, q.tail
		tail.next = id
		t.descriptors[head].prev = id
	}
	q.tail = id
	q.size++
	d.queue = q
}

// Head returns the first descriptor of q without removing it.
func (t *Table) Head(q *Queue) (ID, bool) {
	if q.size == 0 {
		return None, false
	}
	return t.descriptors[q.tail].next, true
}

// RemoveHead removes and returns the first descriptor of q.
func (t *Table) RemoveHead(q *Queue) (ID, bool) {
	head, ok := t.Head(q)
	if !ok {
		return None, false
	}
	_ = t.Remove(q, head)
	return head, true
}

// Remove unlinks id from anywhere in q.
func (t *Table) Remove(q *Queue, id ID) error {
	d := t.Get(id)
	if d == nil || d.queue != q || q.size == 0 {
		return ErrNotQueued
	}
	if q.size == 1 {
		q.tail = None
	} else {
		t.descriptors[d.prev].next = d.next
		t.descriptors[d.next].prev = d.prev
		if q.tail == id {
			q.tail = d.prev
		}
	}
	q.size--
	d.next, d.prev, d.queue = None, None, nil
	return nil
}

// Items returns the handles of q in FIFO order.
func (t *Table) Items(q *Queue) []ID {
	ret := make([]ID, 0, q.size)
	if q.size == 0 {
		return ret
	}
	id := t.descriptors[q.tail].next
	for i := 0; i < q.size; i++ {
		ret = append(ret, id)
		id = t.descriptors[id].next
	}
	return ret
}
