package latency

import "fmt"

// Microarch identifies a family of latency and port tables.
type Microarch uint8

// Supported microarchitectures.
const (
	Nehalem Microarch = iota
	CortexA53
	BoomV1
)

// String returns the configuration name of the microarchitecture.
func (m Microarch) String() string {
	switch m {
	case Nehalem:
		return "nehalem"
	case CortexA53:
		return "cortex-a53"
	case BoomV1:
		return "boom-v1"
	default:
		return fmt.Sprintf("microarch(%d)", uint8(m))
	}
}

// ParseMicroarch maps a configuration name to a Microarch.
func ParseMicroarch(name string) (Microarch, error) {
	switch name {
	case "nehalem":
		return Nehalem, nil
	case "cortex-a53":
		return CortexA53, nil
	case "boom-v1":
		return BoomV1, nil
	default:
		return Nehalem, fmt.Errorf("unknown microarchitecture %q", name)
	}
}

// Port is an issue port class. Its meaning depends on the microarchitecture.
type Port uint8

// Nehalem issue ports. The combined classes may issue on any member port.
const (
	NehalemPort0 Port = iota
	NehalemPort1
	NehalemPort2
	NehalemPort34
	NehalemPort5
	NehalemPort05
	NehalemPort015

	NehalemNumPorts
)

// Cortex-A53 issue ports.
const (
	A53PortBranch     Port = iota // Branch
	A53PortBranchInt              // Branch and integer (two micro-ops)
	A53PortInt0                   // Integer 0 (MAC)
	A53PortInt1                   // Integer 1 (DIV)
	A53PortInt                    // Integer 0 or 1
	A53PortSIMD0                  // FP/ASIMD 0
	A53PortSIMD1                  // FP/ASIMD 1
	A53PortSIMD                   // FP/ASIMD 0 or 1
	A53PortLdSt                   // Load and store
	A53PortLdStInt                // Load/store and integer

	A53NumPorts
)

// BOOM v1 issue ports.
const (
	BoomPort0   Port = iota // FPU, FP divide and multiply
	BoomPort1               // Integer divide
	BoomPort2               // Memory
	BoomPort012             // Any ALU

	BoomNumPorts
)

// NumPorts returns the number of port classes of the microarchitecture.
func (m Microarch) NumPorts() int {
	switch m {
	case CortexA53:
		return int(A53NumPorts)
	case BoomV1:
		return int(BoomNumPorts)
	default:
		return int(NehalemNumPorts)
	}
}

// PortName returns a statistics name for a port class.
func (m Microarch) PortName(p Port) string {
	var names []string
	switch m {
	case CortexA53:
		names = []string{"port0", "port0_12", "port1", "port2", "port12",
			"port3", "port4", "port34", "port5", "port5_12"}
	case BoomV1:
		names = []string{"port0", "port1", "port2", "port012"}
	default:
		names = []string{"port0", "port1", "port2", "port34", "port5",
			"port05", "port015"}
	}

	if int(p) < len(names) {
		return names[p]
	}
	return fmt.Sprintf("port(%d)", uint8(p))
}

// AluClass is a functional unit that stays busy for several cycles.
type AluClass uint8

// ALU classes. Nehalem and BOOM only use AluTrig; the Cortex-A53 picks its
// unit when the micro-op is issued.
const (
	AluNone AluClass = iota
	AluTrig
	AluDiv
	AluMul
	AluFPNEON0
	AluFPNEON1

	NumAluClasses
)

// Bypass is a forwarding path with an extra latency.
type Bypass uint8

// Bypass classes.
const (
	BypassNone Bypass = iota
	BypassLoadFP
	BypassFPStore

	NumBypasses
)

// IssueSlot is the Cortex-A53 dual-issue policy of a micro-op.
type IssueSlot uint8

// Issue slot policies.
const (
	IssueSlot11 IssueSlot = iota // Either slot
	IssueSlot01                  // Slot 0 only
	IssueSlot10                  // Slot 1 only
	IssueSlot00                  // Both slots
)
