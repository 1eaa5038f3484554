// Package latency provides the per-microarchitecture timing tables used by
// the micro-op timing engines.
//
// A CoreModel is built once from a TimingConfig and is read-only afterwards,
// so one value can be shared by every core simulating the same
// microarchitecture.
package latency

import (
	"github.com/sarchlab/uopsim/insts"
)

const longestLatency = 60

// archTable is the per-microarchitecture part of a CoreModel.
type archTable interface {
	baseLatencies() [insts.NumOps]uint64
	adjustLatency(u *insts.MicroOp, base uint64) uint64
	aluLatency(u *insts.MicroOp, instLatency uint64) uint64
	port(u *insts.MicroOp) Port
	alu(u *insts.MicroOp) AluClass
	issueSlot(u *insts.MicroOp) IssueSlot
	bypassLatencies() [NumBypasses]uint64
}

// CoreModel provides latency, port and functional unit lookups for one
// microarchitecture.
type CoreModel struct {
	config     *TimingConfig
	arch       Microarch
	table      archTable
	latencies  [insts.NumOps]uint64
	overridden [insts.NumOps]bool
	bypass     [NumBypasses]uint64
}

// NewCoreModel creates a CoreModel for the microarchitecture named in the
// configuration. Latency overrides in the configuration replace the
// microarchitecture's own values.
func NewCoreModel(config *TimingConfig) (*CoreModel, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	arch, _ := ParseMicroarch(config.Microarchitecture)

	m := &CoreModel{
		config: config.Clone(),
		arch:   arch,
	}

	switch arch {
	case CortexA53:
		m.table = cortexA53Table{}
	case BoomV1:
		m.table = boomV1Table{}
	default:
		m.table = nehalemTable{}
	}

	m.latencies = m.table.baseLatencies()
	m.bypass = m.table.bypassLatencies()

	for name, cycles := range config.LatencyOverrides {
		op, _ := insts.ParseOp(name)
		m.latencies[op] = cycles
		m.overridden[op] = true
	}

	return m, nil
}

// NewDefaultCoreModel creates a CoreModel with the default configuration.
func NewDefaultCoreModel() *CoreModel {
	m, err := NewCoreModel(DefaultTimingConfig())
	if err != nil {
		panic(err)
	}
	return m
}

// Microarch returns the microarchitecture the tables describe.
func (m *CoreModel) Microarch() Microarch {
	return m.arch
}

// Config returns the configuration the model was built from.
func (m *CoreModel) Config() *TimingConfig {
	return m.config
}

// InstructionLatency returns the execution latency in cycles of the
// instruction the micro-op belongs to.
func (m *CoreModel) InstructionLatency(u *insts.MicroOp) uint64 {
	base := m.latencies[u.Op]
	if m.overridden[u.Op] {
		return base
	}
	return m.table.adjustLatency(u, base)
}

// AluLatency returns how long the micro-op keeps its functional unit busy.
func (m *CoreModel) AluLatency(u *insts.MicroOp) uint64 {
	return m.table.aluLatency(u, m.InstructionLatency(u))
}

// BypassClass returns the forwarding path the micro-op uses.
func (m *CoreModel) BypassClass(u *insts.MicroOp) Bypass {
	if !u.IsFpLoadStore {
		return BypassNone
	}

	switch u.Subtype {
	case insts.SubtypeLoad:
		return BypassLoadFP
	case insts.SubtypeStore:
		return BypassFPStore
	default:
		return BypassNone
	}
}

// BypassLatency returns the extra latency of a forwarding path.
func (m *CoreModel) BypassLatency(b Bypass) uint64 {
	return m.bypass[b]
}

// Port returns the issue port class of the micro-op.
func (m *CoreModel) Port(u *insts.MicroOp) Port {
	return m.table.port(u)
}

// Alu returns the multi-cycle functional unit the micro-op occupies.
func (m *CoreModel) Alu(u *insts.MicroOp) AluClass {
	return m.table.alu(u)
}

// IssueSlot returns the dual-issue policy of the micro-op.
func (m *CoreModel) IssueSlot(u *insts.MicroOp) IssueSlot {
	return m.table.issueSlot(u)
}

// LongestLatency returns an upper bound on any instruction latency.
func (m *CoreModel) LongestLatency() uint64 {
	return longestLatency
}

// LongLatencyCutoff returns the latency above which a load is treated as
// long-latency. Zero disables the classification.
func (m *CoreModel) LongLatencyCutoff() uint64 {
	return m.config.LLLCutoff
}
