package exec

import (
	"fmt"

	"github.com/wasmutil/refrun/ref"
	"github.com/wasmutil/refrun/utils"
)

// Table is a fixed-length indexed store of reference-typed slots. It is
// created at instantiation, owned by its instance, and never resized.
// Slots start out as the null of the declared element heap type.
//
// Access is not synchronized; an embedding that shares a table across
// goroutines must serialize on its own.
type Table struct {
	elem  ref.RefType
	slots []ref.Value
}

func NewTable(length int, elem ref.RefType) *Table {
	t := &Table{
		elem:  elem,
		slots: make([]ref.Value, length),
	}
	for i := range t.slots {
		t.slots[i] = ref.Null(elem.Heap)
	}
	return t
}

func (t *Table) Len() int {
	return len(t.slots)
}

func (t *Table) Elem() ref.RefType {
	return t.elem
}

func (t *Table) Get(i int32) (ref.Value, error) {
	if !utils.InBounds(i, len(t.slots)) {
		return ref.Value{}, fmt.Errorf("table index %d (len %d): %w", i, len(t.slots), OutOfBoundsTrap)
	}
	return t.slots[i], nil
}

// Set stores v at index i. The caller's validator guarantees that v
// already matches the element type; it is not re-checked here.
func (t *Table) Set(i int32, v ref.Value) error {
	if !utils.InBounds(i, len(t.slots)) {
		return fmt.Errorf("table index %d (len %d): %w", i, len(t.slots), OutOfBoundsTrap)
	}
	t.slots[i] = v
	return nil
}
