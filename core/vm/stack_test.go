package vm

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestStackPushPop(t *testing.T) {
	st := NewStack()
	if st.Len() != 0 {
		t.Fatalf("new stack not empty: %d", st.Len())
	}
	st.Push(uint256.NewInt(1))
	st.Push(uint256.NewInt(2))
	st.Push(uint256.NewInt(3))
	if st.Len() != 3 {
		t.Fatalf("want depth 3, got %d", st.Len())
	}
	if v := st.Pop(); v.Uint64() != 3 {
		t.Errorf("pop: want 3, got %v", v.Uint64())
	}
	if v := st.Peek(); v.Uint64() != 2 {
		t.Errorf("peek: want 2, got %v", v.Uint64())
	}
	if st.Len() != 2 {
		t.Errorf("want depth 2, got %d", st.Len())
	}
}

func TestStackBack(t *testing.T) {
	st := NewStack()
	for i := uint64(1); i <= 4; i++ {
		st.Push(uint256.NewInt(i))
	}
	// Back(0) is the top.
	for i, want := range []uint64{4, 3, 2, 1} {
		if got := st.Back(i).Uint64(); got != want {
			t.Errorf("Back(%d): want %d, got %d", i, want, got)
		}
	}
}

func TestStackSwap(t *testing.T) {
	st := NewStack()
	for i := uint64(1); i <= 3; i++ {
		st.Push(uint256.NewInt(i))
	}
	st.Swap(2) // swap top (3) with third from top (1)
	if got := st.Back(0).Uint64(); got != 1 {
		t.Errorf("top after swap: want 1, got %d", got)
	}
	if got := st.Back(2).Uint64(); got != 3 {
		t.Errorf("depth 2 after swap: want 3, got %d", got)
	}
}

func TestStackDup(t *testing.T) {
	st := NewStack()
	st.Push(uint256.NewInt(42))
	st.Push(uint256.NewInt(7))
	st.Dup(2) // duplicate the second item from the top
	if st.Len() != 3 {
		t.Fatalf("want depth 3, got %d", st.Len())
	}
	if got := st.Back(0).Uint64(); got != 42 {
		t.Errorf("dup result: want 42, got %d", got)
	}
	// The duplicate is independent of the source.
	st.Peek().SetUint64(99)
	if got := st.Back(2).Uint64(); got != 42 {
		t.Errorf("source mutated by dup copy: got %d", got)
	}
}
