package flows

import (
	"fmt"
	"iter"
	"slices"

	"github.com/ethpandaops/netperfoor/pkg/affinity"
	"github.com/sirupsen/logrus"
)

// Params are the axes and per-flow settings the generator expands.
type Params struct {
	Tests             []string
	IPVersions        []string
	MsgSizes          []int
	Duration          int
	ParallelStreams   int
	ParallelProcesses int
	Pinning           affinity.Pinning
	Reverse           bool
}

// Generator expands endpoint pairs and Params into flow groups.
type Generator struct {
	log     logrus.FieldLogger
	params  Params
	pairs   PairSupplier
	factory Factory
}

// NewGenerator creates a generator. params is copied, so later changes to
// the caller's slices do not affect generation.
func NewGenerator(log logrus.FieldLogger, params Params, pairs PairSupplier) *Generator {
	params.Tests = slices.Clone(params.Tests)
	params.IPVersions = slices.Clone(params.IPVersions)
	params.MsgSizes = slices.Clone(params.MsgSizes)
	params.Pinning.CPUs = slices.Clone(params.Pinning.CPUs)

	return &Generator{
		log:    log.WithField("component", "flow-generator"),
		params: params,
		pairs:  pairs,
		factory: Factory{
			Duration:          params.Duration,
			ParallelStreams:   params.ParallelStreams,
			ParallelProcesses: params.ParallelProcesses,
			Pinning:           params.Pinning,
			Reverse:           params.Reverse,
		},
	}
}

// Groups yields flow groups ordered by endpoint pair, then ip version, then
// test, then message size. Every iteration asks the supplier for pairs and
// builds fresh groups. Iteration stops at the first error, which is yielded
// with a nil group.
func (g *Generator) Groups() iter.Seq2[FlowGroup, error] {
	return func(yield func(FlowGroup, error) bool) {
		for pairIdx, pair := range g.pairs.Pairs() {
			for _, ipv := range g.params.IPVersions {
				clientBind, err := SelectBind(pair.Client, ipv)
				if err != nil {
					yield(nil, fmt.Errorf("endpoint pair %d client: %w", pairIdx, err))

					return
				}

				serverBind, err := SelectBind(pair.Server, ipv)
				if err != nil {
					yield(nil, fmt.Errorf("endpoint pair %d server: %w", pairIdx, err))

					return
				}

				for _, test := range g.params.Tests {
					for _, size := range g.params.MsgSizes {
						c := Combination{
							Test:       test,
							IPVersion:  ipv,
							Client:     pair.Client,
							ClientBind: clientBind,
							Server:     pair.Server,
							ServerBind: serverBind,
							MsgSize:    size,
						}

						group, err := g.factory.Group(c)
						if err != nil {
							yield(nil, err)

							return
						}

						g.log.WithFields(logrus.Fields{
							"client":     endpointName(pair.Client),
							"server":     endpointName(pair.Server),
							"ip_version": ipv,
							"test":       test,
							"msg_size":   size,
							"processes":  len(group),
						}).Debug("Generated flow group")

						if !yield(group, nil) {
							return
						}
					}
				}
			}
		}
	}
}

// Collect runs Groups to completion.
func (g *Generator) Collect() ([]FlowGroup, error) {
	var groups []FlowGroup

	for group, err := range g.Groups() {
		if err != nil {
			return nil, err
		}

		groups = append(groups, group)
	}

	return groups, nil
}
