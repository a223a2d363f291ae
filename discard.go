package arbor

// discardEntry is one object waiting for the render stage to let go of it.
type discardEntry struct {
	node   *Node
	owner  *PropertyOwner
	handle ResourceHandle
}

// DiscardQueue defers destruction of objects the render stage may still be
// reading. Objects added while the update stage writes buffer N are destroyed
// at the start of the next frame that writes buffer N, two frames later, when
// no published instruction can refer to them any more.
type DiscardQueue struct {
	entries [2][]discardEntry
}

// AddNode queues a disconnected node and its subtree.
func (q *DiscardQueue) AddNode(buf BufferIndex, n *Node) {
	q.entries[buf] = append(q.entries[buf], discardEntry{node: n})
}

// AddOwner queues a render object such as a renderer, material, shader or
// geometry.
func (q *DiscardQueue) AddOwner(buf BufferIndex, o *PropertyOwner) {
	q.entries[buf] = append(q.entries[buf], discardEntry{owner: o})
}

// AddHandle queues a backend handle for release on the render stage.
func (q *DiscardQueue) AddHandle(buf BufferIndex, h ResourceHandle) {
	if h == nil {
		return
	}
	q.entries[buf] = append(q.entries[buf], discardEntry{handle: h})
}

// Len returns the number of entries waiting in buf.
func (q *DiscardQueue) Len(buf BufferIndex) int { return len(q.entries[buf]) }

// clear destroys everything queued in buf. Handles go to release; destroyed
// owners are reported to forget.
func (q *DiscardQueue) clear(buf BufferIndex, release func(ResourceHandle), forget func(*PropertyOwner)) int {
	entries := q.entries[buf]
	for i, e := range entries {
		switch {
		case e.node != nil:
			e.node.destroySubtree()
		case e.owner != nil:
			e.owner.destroy()
			if forget != nil {
				forget(e.owner)
			}
		case e.handle != nil:
			release(e.handle)
		}
		entries[i] = discardEntry{}
	}
	q.entries[buf] = entries[:0]
	return len(entries)
}
