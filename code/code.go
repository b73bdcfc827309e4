// Package code models the decoded form of the reference-type
// instruction subset, together with its binary encoding and the static
// checks that must pass before any instruction runs.
package code

import (
	"fmt"

	"github.com/wasmutil/refrun/ref"
)

// Opcode is a wasm opcode. Instructions from the 0xFB-prefixed GC
// group are stored as 0xFB00 | subopcode.
type Opcode uint16

const (
	OpBlock     Opcode = 0x02
	OpEnd       Opcode = 0x0B
	OpBr        Opcode = 0x0C
	OpReturn    Opcode = 0x0F
	OpDrop      Opcode = 0x1A
	OpTableGet  Opcode = 0x25
	OpTableSet  Opcode = 0x26
	OpI32Const  Opcode = 0x41
	OpRefNull   Opcode = 0xD0
	OpRefIsNull Opcode = 0xD1

	OpRefTest          Opcode = 0xFB14
	OpRefTestNull      Opcode = 0xFB15
	OpRefCast          Opcode = 0xFB16
	OpRefCastNull      Opcode = 0xFB17
	OpBrOnCast         Opcode = 0xFB18
	OpBrOnCastFail     Opcode = 0xFB19
	OpAnyConvertExtern Opcode = 0xFB1A
	OpExternConvertAny Opcode = 0xFB1B
	OpRefI31           Opcode = 0xFB1C
	OpI31GetS          Opcode = 0xFB1D
	OpI31GetU          Opcode = 0xFB1E
)

const gcPrefix = 0xFB

// Sentinel bytes indicating that a ref type's heap type follows.
const (
	rtNonNull int64 = -28 // 0x64
	rtNull    int64 = -29 // 0x63
)

func (op Opcode) String() string {
	switch op {
	case OpBlock:
		return "block"
	case OpEnd:
		return "end"
	case OpBr:
		return "br"
	case OpReturn:
		return "return"
	case OpDrop:
		return "drop"
	case OpTableGet:
		return "table.get"
	case OpTableSet:
		return "table.set"
	case OpI32Const:
		return "i32.const"
	case OpRefNull:
		return "ref.null"
	case OpRefIsNull:
		return "ref.is_null"
	case OpRefTest, OpRefTestNull:
		return "ref.test"
	case OpRefCast, OpRefCastNull:
		return "ref.cast"
	case OpBrOnCast:
		return "br_on_cast"
	case OpBrOnCastFail:
		return "br_on_cast_fail"
	case OpAnyConvertExtern:
		return "any.convert_extern"
	case OpExternConvertAny:
		return "extern.convert_any"
	case OpRefI31:
		return "ref.i31"
	case OpI31GetS:
		return "i31.get_s"
	case OpI31GetU:
		return "i31.get_u"
	}
	return fmt.Sprintf("opcode(0x%X)", uint16(op))
}

// BlockKind says what a block leaves on the stack.
type BlockKind uint8

const (
	BlockEmpty BlockKind = iota
	BlockI32
	BlockRef
)

// BlockType is a block's result type: empty, i32, or a single
// reference. Multi-value results are not supported.
type BlockType struct {
	Kind BlockKind
	Ref  ref.RefType // when Kind == BlockRef
}

func (bt BlockType) String() string {
	switch bt.Kind {
	case BlockEmpty:
		return ""
	case BlockI32:
		return " (result i32)"
	case BlockRef:
		return fmt.Sprintf(" (result %s)", bt.Ref)
	}
	return fmt.Sprintf(" blocktype(%d)", bt.Kind)
}

// Instr is one decoded instruction: an opcode plus whichever immediates
// that opcode carries. Operands are not part of an Instr; they come
// from the operand stack at run time.
type Instr struct {
	Op     Opcode
	Heap   ref.HeapType // ref.null
	Target ref.RefType  // ref.test / ref.cast
	From   ref.RefType  // br_on_cast* source type
	To     ref.RefType  // br_on_cast* target type
	Label  uint32       // br / br_on_cast*
	Index  uint32       // table.get / table.set
	N      int32        // i32.const
	Block  BlockType    // block
}

func (in Instr) String() string {
	switch in.Op {
	case OpBlock:
		return fmt.Sprintf("block%s", in.Block)
	case OpBr:
		return fmt.Sprintf("br %d", in.Label)
	case OpTableGet, OpTableSet:
		return fmt.Sprintf("%s %d", in.Op, in.Index)
	case OpI32Const:
		return fmt.Sprintf("i32.const %d", in.N)
	case OpRefNull:
		return fmt.Sprintf("ref.null %s", in.Heap)
	case OpRefTest, OpRefTestNull, OpRefCast, OpRefCastNull:
		return fmt.Sprintf("%s %s", in.Op, in.Target)
	case OpBrOnCast, OpBrOnCastFail:
		return fmt.Sprintf("%s %d %s %s", in.Op, in.Label, in.From, in.To)
	}
	return in.Op.String()
}

// Instruction constructors for building programs directly in Go. The
// ref.test/ref.cast opcode variant follows the target's nullability.

func Block(bt BlockType) Instr { return Instr{Op: OpBlock, Block: bt} }
func End() Instr               { return Instr{Op: OpEnd} }
func Br(label uint32) Instr    { return Instr{Op: OpBr, Label: label} }
func Return() Instr            { return Instr{Op: OpReturn} }
func Drop() Instr              { return Instr{Op: OpDrop} }
func I32Const(n int32) Instr   { return Instr{Op: OpI32Const, N: n} }

func TableGet(idx uint32) Instr { return Instr{Op: OpTableGet, Index: idx} }
func TableSet(idx uint32) Instr { return Instr{Op: OpTableSet, Index: idx} }

func RefNull(ht ref.HeapType) Instr { return Instr{Op: OpRefNull, Heap: ht} }
func RefIsNull() Instr              { return Instr{Op: OpRefIsNull} }
func RefI31() Instr                 { return Instr{Op: OpRefI31} }
func I31GetS() Instr                { return Instr{Op: OpI31GetS} }
func I31GetU() Instr                { return Instr{Op: OpI31GetU} }

func RefTest(rt ref.RefType) Instr {
	op := OpRefTest
	if rt.Nullable {
		op = OpRefTestNull
	}
	return Instr{Op: op, Target: rt}
}

func RefCast(rt ref.RefType) Instr {
	op := OpRefCast
	if rt.Nullable {
		op = OpRefCastNull
	}
	return Instr{Op: op, Target: rt}
}

func BrOnCast(label uint32, from, to ref.RefType) Instr {
	return Instr{Op: OpBrOnCast, Label: label, From: from, To: to}
}

func BrOnCastFail(label uint32, from, to ref.RefType) Instr {
	return Instr{Op: OpBrOnCastFail, Label: label, From: from, To: to}
}

func AnyConvertExtern() Instr { return Instr{Op: OpAnyConvertExtern} }
func ExternConvertAny() Instr { return Instr{Op: OpExternConvertAny} }
