// Package interp is the dispatch loop around the executor: it owns the
// operand stack and the block/label structure, and performs the jumps
// that branch-on-cast instructions decide. The per-instruction
// semantics stay in the exec package.
package interp

import (
	"fmt"

	"github.com/wasmutil/refrun/code"
	"github.com/wasmutil/refrun/exec"
	"github.com/wasmutil/refrun/ref"
	"github.com/wasmutil/refrun/utils"
)

// Slot is one operand stack entry, either an i32 or a reference.
type Slot struct {
	IsRef bool
	I32   int32
	Ref   ref.Value
}

func I32Slot(n int32) Slot {
	return Slot{I32: n}
}

func RefSlot(v ref.Value) Slot {
	return Slot{IsRef: true, Ref: v}
}

func (s Slot) String() string {
	if s.IsRef {
		return s.Ref.String()
	}
	return fmt.Sprintf("%d", s.I32)
}

// frame is one entered block: where its end instruction is, the stack
// height on entry, and whether a branch to it carries a value.
type frame struct {
	end     int
	height  int
	carries bool
}

// Run validates prog and executes it to completion against x, returning
// whatever the program leaves on the operand stack. A trap aborts the
// run; nothing done to the table before the trap is rolled back.
func Run(prog []code.Instr, x *exec.Executor) ([]Slot, error) {
	if err := code.Validate(prog); err != nil {
		return nil, err
	}
	ends, err := matchBlocks(prog)
	if err != nil {
		return nil, err
	}

	m := &machine{x: x}
	for pc := 0; pc < len(prog); pc++ {
		in := prog[pc]
		switch in.Op {
		case code.OpBlock:
			m.frames = append(m.frames, frame{
				end:     ends[pc],
				height:  len(m.stack),
				carries: in.Block.Kind != code.BlockEmpty,
			})
		case code.OpEnd:
			m.frames = m.frames[:len(m.frames)-1]
		case code.OpBr:
			var carry *Slot
			if m.frameAt(in.Label).carries {
				s, err := m.pop(pc, in)
				if err != nil {
					return nil, err
				}
				carry = &s
			}
			pc = m.branch(in.Label, carry)
		case code.OpReturn:
			return m.stack, nil
		case code.OpDrop:
			if _, err := m.pop(pc, in); err != nil {
				return nil, err
			}
		case code.OpI32Const:
			m.push(I32Slot(in.N))

		case code.OpRefNull:
			m.push(RefSlot(x.RefNull(in.Heap)))
		case code.OpRefIsNull:
			v, err := m.popRef(pc, in)
			if err != nil {
				return nil, err
			}
			m.push(I32Slot(x.RefIsNull(v)))
		case code.OpRefI31:
			n, err := m.popI32(pc, in)
			if err != nil {
				return nil, err
			}
			m.push(RefSlot(x.RefI31(n)))
		case code.OpI31GetS, code.OpI31GetU:
			v, err := m.popRef(pc, in)
			if err != nil {
				return nil, err
			}
			get := x.I31GetS
			if in.Op == code.OpI31GetU {
				get = x.I31GetU
			}
			n, err := get(v)
			if err != nil {
				return nil, trapAt(pc, in, err)
			}
			m.push(I32Slot(n))
		case code.OpRefTest, code.OpRefTestNull:
			v, err := m.popRef(pc, in)
			if err != nil {
				return nil, err
			}
			m.push(I32Slot(x.RefTest(in.Target, v)))
		case code.OpRefCast, code.OpRefCastNull:
			v, err := m.popRef(pc, in)
			if err != nil {
				return nil, err
			}
			w, err := x.RefCast(in.Target, v)
			if err != nil {
				return nil, trapAt(pc, in, err)
			}
			m.push(RefSlot(w))
		case code.OpBrOnCast, code.OpBrOnCastFail:
			v, err := m.popRef(pc, in)
			if err != nil {
				return nil, err
			}
			decide := x.BrOnCast
			if in.Op == code.OpBrOnCastFail {
				decide = x.BrOnCastFail
			}
			br := decide(in.Label, in.From, in.To, v)
			if br.Taken {
				carry := RefSlot(br.Value)
				pc = m.branch(br.Label, &carry)
			} else {
				m.push(RefSlot(br.Value))
			}
		case code.OpAnyConvertExtern:
			v, err := m.popRef(pc, in)
			if err != nil {
				return nil, err
			}
			m.push(RefSlot(x.AnyConvertExtern(v)))
		case code.OpExternConvertAny:
			v, err := m.popRef(pc, in)
			if err != nil {
				return nil, err
			}
			m.push(RefSlot(x.ExternConvertAny(v)))
		case code.OpTableGet:
			i, err := m.popI32(pc, in)
			if err != nil {
				return nil, err
			}
			v, err := x.TableGet(i)
			if err != nil {
				return nil, trapAt(pc, in, err)
			}
			m.push(RefSlot(v))
		case code.OpTableSet:
			v, err := m.popRef(pc, in)
			if err != nil {
				return nil, err
			}
			i, err := m.popI32(pc, in)
			if err != nil {
				return nil, err
			}
			if err := x.TableSet(i, v); err != nil {
				return nil, trapAt(pc, in, err)
			}
		default:
			return nil, fmt.Errorf("instruction %d (%s): no semantics", pc, in)
		}
	}
	return m.stack, nil
}

type machine struct {
	x      *exec.Executor
	stack  []Slot
	frames []frame
}

func (m *machine) push(s Slot) {
	m.stack = append(m.stack, s)
}

func (m *machine) pop(pc int, in code.Instr) (Slot, error) {
	if len(m.stack) == 0 {
		return Slot{}, fmt.Errorf("instruction %d (%s): operand stack underflow", pc, in)
	}
	s := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return s, nil
}

func (m *machine) popRef(pc int, in code.Instr) (ref.Value, error) {
	s, err := m.pop(pc, in)
	if err != nil {
		return ref.Value{}, err
	}
	if !s.IsRef {
		return ref.Value{}, fmt.Errorf("instruction %d (%s): expected a reference operand, got i32", pc, in)
	}
	return s.Ref, nil
}

func (m *machine) popI32(pc int, in code.Instr) (int32, error) {
	s, err := m.pop(pc, in)
	if err != nil {
		return 0, err
	}
	if s.IsRef {
		return 0, fmt.Errorf("instruction %d (%s): expected an i32 operand, got a reference", pc, in)
	}
	return s.I32, nil
}

func (m *machine) frameAt(label uint32) frame {
	utils.Assert(utils.InBounds(label, len(m.frames)), "label %d with %d frames", label, len(m.frames))
	return m.frames[len(m.frames)-1-int(label)]
}

// branch transfers control past the end of the block the label names,
// unwinding the operand stack to the block's entry height and pushing
// the carried value, if any. Returns the new pc (the block's end; the
// run loop advances past it).
func (m *machine) branch(label uint32, carry *Slot) int {
	f := m.frameAt(label)
	m.stack = m.stack[:f.height]
	if carry != nil {
		m.push(*carry)
	}
	m.frames = m.frames[:len(m.frames)-1-int(label)]
	return f.end
}

func trapAt(pc int, in code.Instr, err error) error {
	return fmt.Errorf("instruction %d (%s): %w", pc, in, err)
}

// matchBlocks maps each block's pc to the pc of its matching end.
func matchBlocks(prog []code.Instr) (map[int]int, error) {
	ends := make(map[int]int)
	var open []int
	for pc, in := range prog {
		switch in.Op {
		case code.OpBlock:
			open = append(open, pc)
		case code.OpEnd:
			if len(open) == 0 {
				return nil, fmt.Errorf("instruction %d: end without a matching block", pc)
			}
			ends[open[len(open)-1]] = pc
			open = open[:len(open)-1]
		}
	}
	if len(open) != 0 {
		return nil, fmt.Errorf("instruction %d: block is never closed", open[len(open)-1])
	}
	return ends, nil
}
