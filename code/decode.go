package code

import (
	"errors"
	"fmt"
	"io"

	"github.com/wasmutil/refrun/leb128"
	"github.com/wasmutil/refrun/ref"
)

// Decode reads instructions from r until EOF. EOF is only legal at an
// instruction boundary; a stream that ends mid-immediate is an error.
func Decode(r io.Reader) ([]Instr, error) {
	p := newReader(r)
	var instrs []Instr
	for {
		op, err := p.readByte("opcode")
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, err
		}
		in, err := p.readInstr(op)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, in)
	}
	return instrs, nil
}

func (p *reader) readInstr(op byte) (Instr, error) {
	at := p.cur - 1
	switch Opcode(op) {
	case OpEnd, OpReturn, OpDrop, OpRefIsNull:
		return Instr{Op: Opcode(op)}, nil
	case OpBlock:
		bt, err := p.readBlockType()
		return Instr{Op: OpBlock, Block: bt}, err
	case OpBr:
		label, err := p.ReadU32("label")
		return Instr{Op: OpBr, Label: label}, err
	case OpTableGet, OpTableSet:
		idx, err := p.ReadU32("table index")
		return Instr{Op: Opcode(op), Index: idx}, err
	case OpI32Const:
		v, err := p.ReadS64("i32 constant")
		if err != nil {
			return Instr{}, err
		}
		if v < -0x80000000 || v > 0x7FFFFFFF {
			return Instr{}, fmt.Errorf("i32 constant at offset %d: %d does not fit in 32 bits", at, v)
		}
		return Instr{Op: OpI32Const, N: int32(v)}, nil
	case OpRefNull:
		ht, err := p.ReadHeapType("heap type")
		return Instr{Op: OpRefNull, Heap: ht}, err
	}
	if op == gcPrefix {
		return p.readGCInstr()
	}
	return Instr{}, fmt.Errorf("illegal opcode %02x at offset %d", op, at)
}

func (p *reader) readGCInstr() (Instr, error) {
	at := p.cur - 1
	sub, err := p.ReadU32("gc subopcode")
	if err != nil {
		return Instr{}, err
	}
	if sub > 0xFF {
		return Instr{}, fmt.Errorf("illegal opcode fb %d at offset %d", sub, at)
	}
	op := Opcode(uint16(gcPrefix)<<8 | uint16(sub))
	switch op {
	case OpAnyConvertExtern, OpExternConvertAny, OpRefI31, OpI31GetS, OpI31GetU:
		return Instr{Op: op}, nil
	case OpRefTest, OpRefTestNull, OpRefCast, OpRefCastNull:
		ht, err := p.ReadHeapType("cast target")
		if err != nil {
			return Instr{}, err
		}
		nullable := op == OpRefTestNull || op == OpRefCastNull
		return Instr{Op: op, Target: ref.RefType{Nullable: nullable, Heap: ht}}, nil
	case OpBrOnCast, OpBrOnCastFail:
		flags, err := p.readByte("cast flags")
		if err != nil {
			return Instr{}, err
		}
		label, err := p.ReadU32("label")
		if err != nil {
			return Instr{}, err
		}
		from, err := p.ReadHeapType("source heap type")
		if err != nil {
			return Instr{}, err
		}
		to, err := p.ReadHeapType("target heap type")
		if err != nil {
			return Instr{}, err
		}
		return Instr{
			Op:    op,
			Label: label,
			From:  ref.RefType{Nullable: flags&0x01 != 0, Heap: from},
			To:    ref.RefType{Nullable: flags&0x02 != 0, Heap: to},
		}, nil
	}
	return Instr{}, fmt.Errorf("illegal opcode fb %d at offset %d", sub, at)
}

func (p *reader) readBlockType() (BlockType, error) {
	at := p.cur
	v, err := p.ReadS64("block type")
	if err != nil {
		return BlockType{}, err
	}
	switch {
	case v == -64: // 0x40, empty
		return BlockType{Kind: BlockEmpty}, nil
	case v == -1: // 0x7F, i32
		return BlockType{Kind: BlockI32}, nil
	case int64(ref.HeapType(v)) == v && ref.HeapType(v).Known():
		// an abstract heap type used as a valtype is the nullable shorthand
		return BlockType{Kind: BlockRef, Ref: ref.NullableRef(ref.HeapType(v))}, nil
	case v == rtNull || v == rtNonNull:
		ht, err := p.ReadHeapType("block result heap type")
		if err != nil {
			return BlockType{}, err
		}
		return BlockType{Kind: BlockRef, Ref: ref.RefType{Nullable: v == rtNull, Heap: ht}}, nil
	}
	return BlockType{}, fmt.Errorf("block type at offset %d: unsupported code %d", at, v)
}

// reader wraps an io.Reader with offset tracking and labeled errors.
type reader struct {
	r   io.Reader
	cur int
}

func newReader(r io.Reader) *reader {
	return &reader{r: r}
}

func (p *reader) readByte(thing string) (byte, error) {
	at := p.cur
	var b [1]byte
	_, err := io.ReadFull(p.r, b[:])
	if err != nil {
		return 0, fmt.Errorf("%s at offset %d: %w", thing, at, err)
	}
	p.cur += 1
	return b[0], nil
}

func (p *reader) ReadU32(thing string) (uint32, error) {
	at := p.cur
	v, n, err := leb128.DecodeU64(p.r)
	if err == nil && n == 0 {
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		return 0, fmt.Errorf("%s at offset %d: %w", thing, at, err)
	}
	p.cur += n
	if v > 0xFFFFFFFF {
		return 0, fmt.Errorf("%s at offset %d: %d does not fit in 32 bits", thing, at, v)
	}
	return uint32(v), nil
}

func (p *reader) ReadS64(thing string) (int64, error) {
	at := p.cur
	v, n, err := leb128.DecodeS64(p.r)
	if err == nil && n == 0 {
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		return 0, fmt.Errorf("%s at offset %d: %w", thing, at, err)
	}
	p.cur += n
	return v, nil
}

func (p *reader) ReadHeapType(thing string) (ref.HeapType, error) {
	at := p.cur
	v, err := p.ReadS64(thing)
	if err != nil {
		return 0, err
	}
	ht := ref.HeapType(v)
	if int64(ht) != v || !ht.Known() {
		return 0, fmt.Errorf("%s at offset %d: unsupported heap type %d", thing, at, v)
	}
	return ht, nil
}
