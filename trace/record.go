// Package trace is a trace-driven front end. It reads micro-op traces in
// JSON lines, one record per micro-op, and turns each machine instruction
// into a batch of dynamic micro-ops for a timing engine.
//
// A record either describes one micro-op of an instruction, with the
// instruction's last micro-op carrying "last": true, or carries the raw
// ARM64 encoding in "insn", in which case it stands for the whole
// instruction. A record with "idle" set stands alone and carries the cycles
// the thread spent blocked outside the core.
package trace

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/sarchlab/uopsim/insts"
)

// Record is one line of a trace.
type Record struct {
	PC   uint64 `json:"pc"`
	Insn uint32 `json:"insn,omitempty"`

	Op          string      `json:"op,omitempty"`
	Type        string      `json:"type,omitempty"`
	Src         []insts.Reg `json:"src,omitempty"`
	AddrRegs    []insts.Reg `json:"addr_regs,omitempty"`
	Dst         []insts.Reg `json:"dst,omitempty"`
	OperandSize uint32      `json:"operand_size,omitempty"`

	Addr uint64 `json:"addr,omitempty"`
	Size uint32 `json:"size,omitempty"`

	First bool `json:"first,omitempty"`
	Last  bool `json:"last,omitempty"`

	Branch       bool   `json:"branch,omitempty"`
	Taken        bool   `json:"taken,omitempty"`
	Target       uint64 `json:"target,omitempty"`
	Mispredicted *bool  `json:"mispredicted,omitempty"`

	Serializing bool `json:"serializing,omitempty"`
	MemBarrier  bool `json:"membar,omitempty"`
	FP          bool `json:"fp,omitempty"`
	Squashed    bool `json:"squashed,omitempty"`
	// LongLatency forces a load to be treated as a long-latency load.
	LongLatency bool `json:"lll,omitempty"`

	// Idle is the length of a wait, such as a lock or a barrier, in
	// cycles. The record has no micro-ops.
	Idle uint64 `json:"idle,omitempty"`
}

// Reader reads a trace one instruction at a time.
type Reader struct {
	dec  *json.Decoder
	line int
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: json.NewDecoder(bufio.NewReader(r))}
}

// ReadInstruction returns the records of the next instruction. It returns
// io.EOF at the end of the trace.
func (r *Reader) ReadInstruction() ([]Record, error) {
	var group []Record

	for {
		var rec Record
		err := r.dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			if len(group) > 0 {
				return nil, fmt.Errorf("record %d: trace ends inside an instruction", r.line)
			}
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", r.line+1, err)
		}
		r.line++

		if rec.Insn != 0 || rec.Idle != 0 {
			if len(group) > 0 {
				return nil, fmt.Errorf("record %d: standalone record inside an instruction", r.line)
			}
			return []Record{rec}, nil
		}

		group = append(group, rec)
		if rec.Last {
			return group, nil
		}
	}
}
