package code

import "fmt"

// Validate performs the static checks on a decoded instruction
// sequence: well-formed heap-type immediates, balanced blocks, labels
// that target an enclosing block, and branch-on-cast immediates whose
// target type refines the source type within one hierarchy. A program
// that fails here never starts executing; these are not runtime traps.
func Validate(instrs []Instr) error {
	depth := 0
	for pc, in := range instrs {
		fail := func(format string, args ...any) error {
			return fmt.Errorf("instruction %d (%s): %s", pc, in, fmt.Sprintf(format, args...))
		}
		switch in.Op {
		case OpBlock:
			depth++
		case OpEnd:
			if depth == 0 {
				return fail("end without a matching block")
			}
			depth--
		case OpBr:
			if int(in.Label) >= depth {
				return fail("label %d does not target an enclosing block", in.Label)
			}
		case OpRefNull:
			if !in.Heap.Known() {
				return fail("unknown heap type %d", in.Heap)
			}
		case OpRefTest, OpRefCast:
			if !in.Target.Heap.Known() {
				return fail("unknown heap type %d", in.Target.Heap)
			}
			if in.Target.Nullable {
				return fail("non-null opcode variant with nullable target %s", in.Target)
			}
		case OpRefTestNull, OpRefCastNull:
			if !in.Target.Heap.Known() {
				return fail("unknown heap type %d", in.Target.Heap)
			}
			if !in.Target.Nullable {
				return fail("null opcode variant with non-nullable target %s", in.Target)
			}
		case OpBrOnCast, OpBrOnCastFail:
			if int(in.Label) >= depth {
				return fail("label %d does not target an enclosing block", in.Label)
			}
			if !in.From.Heap.Known() {
				return fail("unknown heap type %d", in.From.Heap)
			}
			if !in.To.Heap.Known() {
				return fail("unknown heap type %d", in.To.Heap)
			}
			if in.From.Heap.Hierarchy() != in.To.Heap.Hierarchy() {
				return fail("cast from %s to %s crosses hierarchies", in.From, in.To)
			}
			if !in.To.SubtypeOf(in.From) {
				return fail("cast target %s is not a subtype of %s", in.To, in.From)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("%d block(s) left open at end of program", depth)
	}
	return nil
}
