package mask

// history is the bounded undo ring. It stores full-mask snapshots of
// the state *before* each coalesced edit, newest last. When the ring is
// full the oldest snapshot is dropped, so undo depth is bounded by the
// configured capacity regardless of session length.
type history struct {
	depth int
	snaps [][]uint16
}

func newHistory(depth int) *history {
	if depth < 1 {
		depth = 1
	}
	return &history{depth: depth}
}

// push records a snapshot, evicting the oldest when at capacity.
func (h *history) push(snap []uint16) {
	if len(h.snaps) == h.depth {
		copy(h.snaps, h.snaps[1:])
		h.snaps = h.snaps[:len(h.snaps)-1]
	}
	h.snaps = append(h.snaps, snap)
}

// pop removes and returns the most recent snapshot.
func (h *history) pop() ([]uint16, bool) {
	if len(h.snaps) == 0 {
		return nil, false
	}
	snap := h.snaps[len(h.snaps)-1]
	h.snaps = h.snaps[:len(h.snaps)-1]
	return snap, true
}

func (h *history) len() int { return len(h.snaps) }
