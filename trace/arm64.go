package trace

import (
	"fmt"

	"github.com/sarchlab/uopsim/insts"
)

// Register numbering used for cracked ARM64 instructions. X0-X30 map to
// 0-30, SP to 31 and the condition flags to 32. XZR is dropped.
const (
	RegSP   insts.Reg = 31
	RegNZCV insts.Reg = 32
	RegLR   insts.Reg = 30
)

// Crack decodes a 32-bit ARM64 instruction word into its micro-ops. Only
// the integer add/sub/logical and branch encodings are supported. For a
// direct branch, target is the branch destination.
func Crack(word uint32, pc uint64) (group []insts.MicroOp, target uint64, err error) {
	var u insts.MicroOp

	switch {
	case isAddSubImm(word):
		u = crackAddSubImm(word)
	case isDataProcessingReg(word):
		u = crackDataProcessingReg(word)
	case isBranchImm(word):
		u, target = crackBranchImm(word, pc)
	case isBranchCond(word):
		u, target = crackBranchCond(word, pc)
	case isBranchReg(word):
		u, err = crackBranchReg(word)
		if err != nil {
			return nil, 0, err
		}
	default:
		return nil, 0, fmt.Errorf("unsupported instruction 0x%08x at 0x%x", word, pc)
	}

	u.PC = pc
	group = []insts.MicroOp{u}
	if err := insts.Finalize(group); err != nil {
		return nil, 0, err
	}

	return group, target, nil
}

func operandSize(word uint32) uint32 {
	if word>>31 == 1 {
		return 64
	}
	return 32
}

func field(word uint32, lo, width uint) uint32 {
	return (word >> lo) & (1<<width - 1)
}

func signExtend(v uint32, bits uint) int64 {
	shift := 64 - bits
	return int64(uint64(v)<<shift) >> shift
}

// gpr maps a register field where 31 encodes the zero register.
func gpr(r uint32) []insts.Reg {
	if r == 31 {
		return nil
	}
	return []insts.Reg{insts.Reg(r)}
}

// gprOrSP maps a register field where 31 encodes the stack pointer.
func gprOrSP(r uint32) []insts.Reg {
	return []insts.Reg{insts.Reg(r)}
}

// ADD/SUB (immediate): sf | op | S | 100010 | sh | imm12 | Rn | Rd
func isAddSubImm(word uint32) bool {
	return field(word, 23, 6) == 0b100010
}

func crackAddSubImm(word uint32) insts.MicroOp {
	setFlags := field(word, 29, 1) == 1

	u := insts.MakeExecute(insts.OpALU, false)
	u.OperandSize = operandSize(word)
	u.SourceRegs = gprOrSP(field(word, 5, 5))
	if setFlags {
		u.DestRegs = append(gpr(field(word, 0, 5)), RegNZCV)
	} else {
		u.DestRegs = gprOrSP(field(word, 0, 5))
	}

	return u
}

// Add/sub (shifted register): sf | op | S | 01011 | shift | 0 | Rm | imm6 | Rn | Rd
// Logical (shifted register): sf | opc | 01010 | shift | N | Rm | imm6 | Rn | Rd
func isDataProcessingReg(word uint32) bool {
	op := field(word, 24, 5)
	return op == 0b01011 || op == 0b01010
}

func crackDataProcessingReg(word uint32) insts.MicroOp {
	var setFlags bool
	if field(word, 24, 5) == 0b01011 {
		setFlags = field(word, 29, 1) == 1
	} else {
		// ANDS is the only flag-setting logical op.
		setFlags = field(word, 29, 2) == 0b11
	}

	u := insts.MakeExecute(insts.OpALU, false)
	u.OperandSize = operandSize(word)
	u.SourceRegs = append(gpr(field(word, 5, 5)), gpr(field(word, 16, 5))...)
	u.DestRegs = gpr(field(word, 0, 5))
	if setFlags {
		u.DestRegs = append(u.DestRegs, RegNZCV)
	}

	return u
}

// B/BL: op | 00101 | imm26
func isBranchImm(word uint32) bool {
	op := field(word, 26, 6)
	return op == 0b000101 || op == 0b100101
}

func crackBranchImm(word uint32, pc uint64) (insts.MicroOp, uint64) {
	offset := signExtend(field(word, 0, 26), 26) * 4
	target := uint64(int64(pc) + offset)

	if word>>31 == 1 {
		u := insts.MakeExecute(insts.OpCall, true)
		u.DestRegs = []insts.Reg{RegLR}
		return u, target
	}

	return insts.MakeExecute(insts.OpBranch, true), target
}

// B.cond: 0101010 | 0 | imm19 | 0 | cond
func isBranchCond(word uint32) bool {
	return field(word, 25, 7) == 0b0101010 && field(word, 4, 1) == 0
}

func crackBranchCond(word uint32, pc uint64) (insts.MicroOp, uint64) {
	offset := signExtend(field(word, 5, 19), 19) * 4

	u := insts.MakeExecute(insts.OpBranch, true)
	if cond := field(word, 0, 4); cond < 0b1110 {
		u.SourceRegs = []insts.Reg{RegNZCV}
	}

	return u, uint64(int64(pc) + offset)
}

// BR/BLR/RET: 1101011 | 0 | 0 | op | 11111 | 000000 | Rn | 00000
func isBranchReg(word uint32) bool {
	return field(word, 25, 7) == 0b1101011 &&
		field(word, 10, 6) == 0 &&
		field(word, 0, 5) == 0
}

func crackBranchReg(word uint32) (insts.MicroOp, error) {
	rn := []insts.Reg{insts.Reg(field(word, 5, 5))}

	switch field(word, 21, 2) {
	case 0b00, 0b10: // BR, RET
		u := insts.MakeExecute(insts.OpBranch, true)
		u.SourceRegs = rn
		return u, nil
	case 0b01: // BLR
		u := insts.MakeExecute(insts.OpCall, true)
		u.SourceRegs = rn
		u.DestRegs = []insts.Reg{RegLR}
		return u, nil
	default:
		return insts.MicroOp{}, fmt.Errorf("unsupported branch-register instruction 0x%08x", word)
	}
}
