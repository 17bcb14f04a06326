package mask

import (
	"testing"
	"time"
)

func TestHistoryRingEvictsOldest(t *testing.T) {
	h := newHistory(3)

	for i := 1; i <= 5; i++ {
		h.push([]uint16{uint16(i)})
	}
	if h.len() != 3 {
		t.Fatalf("Expected ring capped at 3, got %d", h.len())
	}

	// Pops return the newest first; the two oldest are gone.
	for _, want := range []uint16{5, 4, 3} {
		snap, ok := h.pop()
		if !ok || snap[0] != want {
			t.Fatalf("Expected snapshot %d, got %v (ok=%v)", want, snap, ok)
		}
	}
	if _, ok := h.pop(); ok {
		t.Error("Pop on empty history should fail")
	}
}

func TestUndoDepthBoundsHistory(t *testing.T) {
	dims := [3]int{4, 4, 1}
	store, clock := newTestStore(dims) // depth 10

	for i := 0; i < 14; i++ {
		if err := store.SetSelection(patchAt(dims, i%4, i/4%4, 0), true); err != nil {
			t.Fatalf("SetSelection %d failed: %v", i, err)
		}
		clock.advance(2 * time.Second)
	}

	undos := 0
	for store.Undo() {
		undos++
	}
	if undos != 10 {
		t.Errorf("Expected exactly 10 undo steps, got %d", undos)
	}
}
