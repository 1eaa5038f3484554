package insts

import "fmt"

// UopType is the role a micro-op plays inside its machine instruction.
type UopType uint8

// Micro-op types, in the order they appear inside an instruction.
const (
	UopLoad UopType = iota
	UopExecute
	UopStore
)

// String returns the trace name of the type.
func (t UopType) String() string {
	switch t {
	case UopLoad:
		return "load"
	case UopExecute:
		return "execute"
	case UopStore:
		return "store"
	default:
		return fmt.Sprintf("uoptype(%d)", uint8(t))
	}
}

// ParseUopType maps a trace name back to a UopType.
func ParseUopType(name string) (UopType, error) {
	switch name {
	case "load":
		return UopLoad, nil
	case "execute", "exec", "":
		return UopExecute, nil
	case "store":
		return UopStore, nil
	default:
		return UopExecute, fmt.Errorf("unknown micro-op type %q", name)
	}
}

// Subtype groups micro-ops by the functional unit family they occupy.
type Subtype uint8

// Subtypes.
const (
	SubtypeFpAddSub Subtype = iota
	SubtypeFpMulDiv
	SubtypeLoad
	SubtypeStore
	SubtypeGeneric
	SubtypeBranch

	NumSubtypes
)

var subtypeNames = [NumSubtypes]string{
	"fp_addsub", "fp_muldiv", "load", "store", "generic", "branch",
}

// String returns the statistics name of the subtype.
func (s Subtype) String() string {
	if s < NumSubtypes {
		return subtypeNames[s]
	}
	return fmt.Sprintf("subtype(%d)", uint8(s))
}

// MicroOp is the static description of one micro-op. Static micro-ops are
// shared between every dynamic instance of the same instruction and are
// never mutated once finalized.
type MicroOp struct {
	// Op is the opcode class of the parent instruction.
	Op Op
	// Type is the micro-op's role within the instruction.
	Type UopType
	// Subtype is derived from Type, Op and IsBranch by Finalize.
	Subtype Subtype

	// PC is the address of the parent instruction.
	PC uint64

	SourceRegs  []Reg
	AddressRegs []Reg
	DestRegs    []Reg

	// MemSize is the access size in bytes for loads and stores.
	MemSize uint32
	// OperandSize is the width of the widest operand in bits.
	OperandSize uint32

	// TypeOffset is the index of this micro-op among those of the same
	// type inside the instruction.
	TypeOffset uint32
	// IntraDeps is the number of micro-ops of the preceding type group
	// this micro-op depends on.
	IntraDeps uint32

	First bool
	Last  bool

	IsBranch      bool
	IsSerializing bool
	IsMemBarrier  bool
	IsFpLoadStore bool
	// IsWriteback marks loads and stores that also update their base
	// register.
	IsWriteback bool
}

// MakeLoad returns a load micro-op of the given access size.
func MakeLoad(op Op, memSize uint32) MicroOp {
	u := MicroOp{
		Op:            op,
		Type:          UopLoad,
		MemSize:       memSize,
		IsFpLoadStore: op.IsFP(),
	}
	u.setSubtype()

	return u
}

// MakeExecute returns an execute micro-op.
func MakeExecute(op Op, isBranch bool) MicroOp {
	u := MicroOp{
		Op:       op,
		Type:     UopExecute,
		IsBranch: isBranch,
	}
	u.setSubtype()

	return u
}

// MakeStore returns a store micro-op of the given access size.
func MakeStore(op Op, memSize uint32) MicroOp {
	u := MicroOp{
		Op:            op,
		Type:          UopStore,
		MemSize:       memSize,
		IsFpLoadStore: op.IsFP(),
	}
	u.setSubtype()

	return u
}

// MakeDynamic returns a standalone execute micro-op with no operands, used
// to inject a fixed delay into the timing stream.
func MakeDynamic() MicroOp {
	u := MicroOp{
		Op:    OpNOP,
		Type:  UopExecute,
		First: true,
		Last:  true,
	}
	u.setSubtype()

	return u
}

func (u *MicroOp) setSubtype() {
	switch {
	case u.Type == UopLoad:
		u.Subtype = SubtypeLoad
	case u.Type == UopStore:
		u.Subtype = SubtypeStore
	case u.IsBranch:
		u.Subtype = SubtypeBranch
	case u.Op.IsFPAddSub():
		u.Subtype = SubtypeFpAddSub
	case u.Op.IsFPMulDiv():
		u.Subtype = SubtypeFpMulDiv
	default:
		u.Subtype = SubtypeGeneric
	}
}

// IsLoad returns true for load micro-ops.
func (u *MicroOp) IsLoad() bool { return u.Type == UopLoad }

// IsStore returns true for store micro-ops.
func (u *MicroOp) IsStore() bool { return u.Type == UopStore }

// IsExecute returns true for execute micro-ops.
func (u *MicroOp) IsExecute() bool { return u.Type == UopExecute }

// Finalize lays out the micro-ops of one machine instruction. The group must
// be ordered loads, then executes, then stores. Finalize assigns TypeOffset,
// derives IntraDeps (executes depend on every load, stores on every
// execute) and marks the first and last micro-op.
func Finalize(group []MicroOp) error {
	if len(group) == 0 {
		return fmt.Errorf("empty micro-op group")
	}

	var counts [3]uint32
	prev := UopLoad

	for i := range group {
		u := &group[i]
		if u.Type < prev {
			return fmt.Errorf("micro-op %d: %s after %s", i, u.Type, prev)
		}
		prev = u.Type

		u.TypeOffset = counts[u.Type]
		counts[u.Type]++
		u.First = i == 0
		u.Last = i == len(group)-1
		u.setSubtype()
	}

	for i := range group {
		u := &group[i]
		switch u.Type {
		case UopLoad:
			u.IntraDeps = 0
		case UopExecute:
			u.IntraDeps = counts[UopLoad]
		case UopStore:
			u.IntraDeps = counts[UopExecute]
		}
	}

	return nil
}
