package affinity

import (
	"errors"
	"fmt"
	"slices"
)

// Policy names accepted for perf_tool_cpu_policy.
const (
	// PolicyRoundRobin pins each process to exactly one CPU, cycling
	// through the CPU list by process index.
	PolicyRoundRobin = "round-robin"
	// PolicyAll pins every process to the whole CPU list.
	PolicyAll = "all"
)

// NoProcess requests a pin for the generator as a whole rather than for a
// single parallel process. It never yields an affinity.
const NoProcess = -1

// ErrUnknownPolicy matches any UnknownPolicyError.
var ErrUnknownPolicy = errors.New("unknown perf_tool_cpu_policy")

// UnknownPolicyError reports a CPU policy name that is not supported.
type UnknownPolicyError struct {
	Policy string
}

func (e *UnknownPolicyError) Error() string {
	return fmt.Sprintf("unknown perf_tool_cpu_policy %q", e.Policy)
}

// Is makes errors.Is(err, ErrUnknownPolicy) hold.
func (e *UnknownPolicyError) Is(target error) bool {
	return target == ErrUnknownPolicy
}

// Pinning assigns CPUs to the parallel processes of a measurement tool.
// An empty CPU list means no CPUs were configured; an empty policy means no
// policy was configured and behaves like PolicyAll.
type Pinning struct {
	CPUs   []int
	Policy string
}

// CPUsFor returns the CPU set for the given process index, or nil when the
// process should not be pinned. The returned slice is never shared with p.
func (p Pinning) CPUsFor(process int) ([]int, error) {
	if process < 0 {
		return nil, nil
	}

	if len(p.CPUs) == 0 {
		return nil, nil
	}

	switch p.Policy {
	case "", PolicyAll:
		return slices.Clone(p.CPUs), nil
	case PolicyRoundRobin:
		return []int{p.CPUs[process%len(p.CPUs)]}, nil
	default:
		return nil, &UnknownPolicyError{Policy: p.Policy}
	}
}

// ValidatePolicy checks a policy name without resolving any pin.
func ValidatePolicy(policy string) error {
	switch policy {
	case "", PolicyAll, PolicyRoundRobin:
		return nil
	default:
		return &UnknownPolicyError{Policy: policy}
	}
}
