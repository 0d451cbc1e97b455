package flows

import (
	"fmt"
	"net/netip"

	"github.com/ethpandaops/netperfoor/pkg/affinity"
)

// BasePort is the receiver port of the first process in a group. Process i
// listens on BasePort+i.
const BasePort = 12000

// FlowDescriptor describes one measurement process: who sends, who
// receives, and how.
type FlowDescriptor struct {
	Type string `json:"type" yaml:"type"`

	Generator     Namespace  `json:"generator" yaml:"generator"`
	GeneratorBind netip.Addr `json:"generator_bind" yaml:"generator_bind"`
	GeneratorNIC  string     `json:"generator_nic" yaml:"generator_nic"`

	Receiver     Namespace  `json:"receiver" yaml:"receiver"`
	ReceiverBind netip.Addr `json:"receiver_bind" yaml:"receiver_bind"`
	ReceiverNIC  string     `json:"receiver_nic" yaml:"receiver_nic"`
	ReceiverPort int        `json:"receiver_port" yaml:"receiver_port"`

	MsgSize         int `json:"msg_size" yaml:"msg_size"`
	Duration        int `json:"duration" yaml:"duration"`
	ParallelStreams int `json:"parallel_streams" yaml:"parallel_streams"`

	// CPUPin is nil when the process is not pinned.
	CPUPin []int `json:"cpupin,omitempty" yaml:"cpupin,omitempty"`
}

// String renders a short human readable summary.
func (f FlowDescriptor) String() string {
	return fmt.Sprintf("%s %s.%s(%s) -> %s.%s(%s):%d size=%d cpus=%s",
		f.Type,
		f.Generator, f.GeneratorNIC, f.GeneratorBind,
		f.Receiver, f.ReceiverNIC, f.ReceiverBind, f.ReceiverPort,
		f.MsgSize, affinity.FormatCPUList(f.CPUPin))
}

// FlowGroup holds the flows measured in parallel for one combination of
// endpoint pair, address family, test type and message size, one per
// process in ascending process order.
type FlowGroup []FlowDescriptor

// Combination is one point of the generator's cartesian product.
type Combination struct {
	Test       string
	IPVersion  string
	Client     Endpoint
	ClientBind netip.Addr
	Server     Endpoint
	ServerBind netip.Addr
	MsgSize    int
}

// Factory builds the flow group for a combination.
type Factory struct {
	Duration          int
	ParallelStreams   int
	ParallelProcesses int
	Pinning           affinity.Pinning
	// Reverse makes the server endpoint the traffic generator.
	Reverse bool
}

// Group returns one flow per parallel process.
func (f Factory) Group(c Combination) (FlowGroup, error) {
	if f.ParallelProcesses < 0 {
		return nil, fmt.Errorf("invalid parallel process count %d", f.ParallelProcesses)
	}

	group := make(FlowGroup, 0, f.ParallelProcesses)

	for i := range f.ParallelProcesses {
		pin, err := f.Pinning.CPUsFor(i)
		if err != nil {
			return nil, fmt.Errorf("resolving cpu pin for process %d: %w", i, err)
		}

		group = append(group, f.Flow(c, BasePort+i, pin))
	}

	return group, nil
}

// Flow builds a single flow of c received on port.
func (f Factory) Flow(c Combination, port int, cpupin []int) FlowDescriptor {
	gen, genBind, recv, recvBind := c.Client, c.ClientBind, c.Server, c.ServerBind
	if f.Reverse {
		gen, genBind, recv, recvBind = recv, recvBind, gen, genBind
	}

	return FlowDescriptor{
		Type:            c.Test,
		Generator:       gen.Namespace(),
		GeneratorBind:   genBind,
		GeneratorNIC:    gen.Interface(),
		Receiver:        recv.Namespace(),
		ReceiverBind:    recvBind,
		ReceiverNIC:     recv.Interface(),
		ReceiverPort:    port,
		MsgSize:         c.MsgSize,
		Duration:        f.Duration,
		ParallelStreams: f.ParallelStreams,
		CPUPin:          cpupin,
	}
}
