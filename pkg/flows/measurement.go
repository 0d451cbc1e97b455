package flows

import (
	"fmt"
	"slices"
)

// Measurement tools accepted for net_perf_tool.
const (
	ToolIperf = "iperf"
	ToolNeper = "neper"
)

// Tools lists the supported measurement tools.
var Tools = []string{ToolIperf, ToolNeper}

// ValidateTool checks that tool is a supported measurement tool. An empty
// name selects iperf.
func ValidateTool(tool string) error {
	if tool == "" || slices.Contains(Tools, tool) {
		return nil
	}

	return fmt.Errorf("unknown net_perf_tool %q (supported: %v)", tool, Tools)
}

// Measurement is one flow group handed to a measurement tool. All flows of
// the group run at the same time.
type Measurement struct {
	Tool  string    `json:"tool" yaml:"tool"`
	Flows FlowGroup `json:"flows" yaml:"flows"`
}

// Plan is the full list of measurements for a run. Each measurement is
// repeated Iterations times by the executor.
type Plan struct {
	Tool         string        `json:"tool" yaml:"tool"`
	Iterations   int           `json:"iterations" yaml:"iterations"`
	Measurements []Measurement `json:"measurements" yaml:"measurements"`
}

// FlowCount returns the total number of flows across measurements.
func (p *Plan) FlowCount() int {
	var n int

	for _, m := range p.Measurements {
		n += len(m.Flows)
	}

	return n
}

// BuildPlan runs g and wraps every group in a measurement for tool.
func BuildPlan(g *Generator, tool string, iterations int) (*Plan, error) {
	if err := ValidateTool(tool); err != nil {
		return nil, err
	}

	if tool == "" {
		tool = ToolIperf
	}

	plan := &Plan{
		Tool:         tool,
		Iterations:   iterations,
		Measurements: make([]Measurement, 0),
	}

	for group, err := range g.Groups() {
		if err != nil {
			return nil, fmt.Errorf("generating flow combinations: %w", err)
		}

		plan.Measurements = append(plan.Measurements, Measurement{
			Tool:  tool,
			Flows: group,
		})
	}

	return plan, nil
}
