package pcb

// InsertChild makes id the first child of parent.
func (t *Table) InsertChild(parent, id ID) {
	p := &t.descriptors[parent]
	d := &t.descriptors[id]
	d.parent = parent
	d.prevSib = None
	d.nextSib = p.child
	if p.child != None {
		t.descriptors[p.child].prevSib = id
	}
	p.child = id
}

// HasChildren reports whether parent has at least one child.
func (t *Table) HasChildren(parent ID) bool {
	return t.descriptors[parent].child != None
}

// RemoveFirstChild detaches and returns the first child of parent.
func (t *Table) RemoveFirstChild(parent ID) (ID, bool) {
	child := t.descriptors[parent].child
	if child == None {
		return None, false
	}
	if err := t.Detach(child); err != nil {
		return None, false
	}
	return child, true
}

// Detach removes id from its parent's children.
func (t *Table) Detach(id ID) error {
	d := t.Get(id)
	if d == nil || d.parent == None {
		return ErrNoParent
	}
	p := &t.descriptors[d.parent]
	if d.prevSib == None {
		if p.child != id {
			return ErrCorrupted
		}
		p.child = d.nextSib
	} else {
		t.descriptors[d.prevSib].nextSib = d.nextSib
	}
	if d.nextSib != None {
		t.descriptors[d.nextSib].prevSib = d.prevSib
	}
	d.parent, d.prevSib, d.nextSib = None, None, None
	return nil
}

// Children returns the children of parent, first child first.
func (t *Table) Children(parent ID) []ID {
	var ret []ID
	for c := t.descriptors[parent].child; c != None; c = t.descriptors[c].nextSib {
		ret = append(ret, c)
	}
	return ret
}
