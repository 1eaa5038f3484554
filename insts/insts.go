// Package insts provides the static micro-op definitions consumed by the
// timing engines.
//
// A machine instruction arrives from the front end already cracked into
// micro-ops: zero or more loads, then the executes, then zero or more
// stores. Each MicroOp carries an opcode class, its register operands and
// the flags the timing models key on (branch, serializing, memory barrier).
//
// Usage:
//
//	group := []insts.MicroOp{
//		insts.MakeLoad(insts.OpALU, 8),
//		insts.MakeExecute(insts.OpALU, false),
//	}
//	if err := insts.Finalize(group); err != nil {
//		return err
//	}
package insts

import "fmt"

// Op represents the opcode class of the instruction a micro-op belongs to.
// Classes are microarchitecture neutral; each core model maps them onto its
// own latency and port tables.
type Op uint16

// Opcode classes.
const (
	OpUnknown   Op = iota
	OpNOP          // No operation
	OpALU          // Integer add, sub, logic, move, compare
	OpLEA          // Address generation
	OpBitfield     // Bitfield insert/extract
	OpExtract      // Register pair extract
	OpMUL          // Integer multiply
	OpMULH         // Integer multiply high / multiply-accumulate
	OpDIV          // Integer divide
	OpCRC          // CRC32
	OpFADD         // FP add/sub
	OpFMINMAX      // FP min/max
	OpFMUL         // FP multiply
	OpFMA          // FP fused multiply-add
	OpFDIV         // FP divide
	OpFSQRT        // FP square root
	OpFRSQRT       // FP reciprocal square root estimate
	OpFCVT         // FP/integer conversion
	OpFCMP         // FP compare setting flags
	OpFMOV         // FP logical, move and shuffle
	OpSIMD         // Integer vector arithmetic
	OpBranch       // Direct or indirect branch
	OpCall         // Branch with link
	OpFence        // Memory fence
	OpSerialize    // Fully serializing instruction
	OpSyscall      // Trap to the OS

	NumOps
)

var opNames = [NumOps]string{
	OpUnknown:   "unknown",
	OpNOP:       "nop",
	OpALU:       "alu",
	OpLEA:       "lea",
	OpBitfield:  "bitfield",
	OpExtract:   "extract",
	OpMUL:       "mul",
	OpMULH:      "mulh",
	OpDIV:       "div",
	OpCRC:       "crc",
	OpFADD:      "fadd",
	OpFMINMAX:   "fminmax",
	OpFMUL:      "fmul",
	OpFMA:       "fma",
	OpFDIV:      "fdiv",
	OpFSQRT:     "fsqrt",
	OpFRSQRT:    "frsqrt",
	OpFCVT:      "fcvt",
	OpFCMP:      "fcmp",
	OpFMOV:      "fmov",
	OpSIMD:      "simd",
	OpBranch:    "branch",
	OpCall:      "call",
	OpFence:     "fence",
	OpSerialize: "serialize",
	OpSyscall:   "syscall",
}

// String returns the trace name of the opcode class.
func (o Op) String() string {
	if o < NumOps {
		return opNames[o]
	}
	return fmt.Sprintf("op(%d)", uint16(o))
}

// ParseOp maps a trace name back to its opcode class.
func ParseOp(name string) (Op, error) {
	for i, n := range opNames {
		if n == name {
			return Op(i), nil
		}
	}
	return OpUnknown, fmt.Errorf("unknown opcode class %q", name)
}

// IsFPAddSub returns true for the FP classes executed on the adder.
func (o Op) IsFPAddSub() bool {
	switch o {
	case OpFADD, OpFMINMAX, OpFCMP:
		return true
	default:
		return false
	}
}

// IsFPMulDiv returns true for the FP classes executed on the multiplier or
// divider.
func (o Op) IsFPMulDiv() bool {
	switch o {
	case OpFMUL, OpFMA, OpFDIV, OpFSQRT:
		return true
	default:
		return false
	}
}

// IsFP returns true for every floating-point or vector class.
func (o Op) IsFP() bool {
	switch o {
	case OpFADD, OpFMINMAX, OpFMUL, OpFMA, OpFDIV, OpFSQRT, OpFRSQRT,
		OpFCVT, OpFCMP, OpFMOV, OpSIMD:
		return true
	default:
		return false
	}
}

// Reg identifies an architectural register. The numbering is chosen by the
// front end; the dependency trackers only require it to be below NumRegs.
type Reg uint16

// NumRegs bounds the register namespace.
const NumRegs = 512

// RegInvalid marks an absent register operand.
const RegInvalid Reg = 0xFFFF
