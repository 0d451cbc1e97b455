package flows

import (
	"net/netip"
	"testing"

	"github.com/ethpandaops/netperfoor/pkg/affinity"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return log
}

func endpoint(host, dev string, addrs ...string) *StaticEndpoint {
	e := &StaticEndpoint{Host: host, Device: dev}
	for _, a := range addrs {
		e.Addrs = append(e.Addrs, netip.MustParsePrefix(a))
	}

	return e
}

func guestPair() EndpointPair {
	return EndpointPair{
		Client: endpoint("guest1", "eth0", "fe80::3/64", "192.168.10.3/24", "fc00:0:0:1::3/64"),
		Server: endpoint("guest2", "eth0", "192.168.10.4/24", "fe80::4/64", "fc00:0:0:1::4/64"),
	}
}

func TestGenerator_EndToEnd(t *testing.T) {
	pairs := StaticPairs{{
		Client: endpoint("A", "eth0", "10.0.0.1/24"),
		Server: endpoint("B", "eth0", "10.0.0.2/24"),
	}}

	g := NewGenerator(testLogger(), Params{
		Tests:             []string{"tcp_stream"},
		IPVersions:        []string{IPv4},
		MsgSizes:          []int{64},
		Duration:          60,
		ParallelStreams:   1,
		ParallelProcesses: 2,
		Pinning:           affinity.Pinning{CPUs: []int{5, 6}, Policy: affinity.PolicyRoundRobin},
	}, pairs)

	groups, err := g.Collect()
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0], 2)

	want := []struct {
		port int
		cpus []int
	}{
		{port: 12000, cpus: []int{5}},
		{port: 12001, cpus: []int{6}},
	}

	for i, flow := range groups[0] {
		assert.Equal(t, "tcp_stream", flow.Type)
		assert.Equal(t, want[i].port, flow.ReceiverPort)
		assert.Equal(t, want[i].cpus, flow.CPUPin)
		assert.Equal(t, 64, flow.MsgSize)
		assert.Equal(t, 60, flow.Duration)
		assert.Equal(t, 1, flow.ParallelStreams)
		assert.Equal(t, netip.MustParseAddr("10.0.0.1"), flow.GeneratorBind)
		assert.Equal(t, netip.MustParseAddr("10.0.0.2"), flow.ReceiverBind)
		assert.Equal(t, Namespace{Host: "A"}, flow.Generator)
		assert.Equal(t, Namespace{Host: "B"}, flow.Receiver)
		assert.Equal(t, "eth0", flow.GeneratorNIC)
		assert.Equal(t, "eth0", flow.ReceiverNIC)
	}
}

func TestGenerator_Count(t *testing.T) {
	tests := []struct {
		name      string
		pairs     int
		versions  []string
		tests     []string
		sizes     []int
		processes int
	}{
		{name: "single", pairs: 1, versions: []string{IPv4}, tests: []string{"tcp_stream"}, sizes: []int{64}, processes: 1},
		{name: "both families", pairs: 2, versions: []string{IPv4, IPv6}, tests: []string{"tcp_stream", "udp_stream", "sctp_stream"}, sizes: []int{64, 1400}, processes: 3},
		{name: "no sizes", pairs: 2, versions: []string{IPv6}, tests: []string{"tcp_stream"}, sizes: nil, processes: 2},
		{name: "no pairs", pairs: 0, versions: []string{IPv4}, tests: []string{"tcp_stream"}, sizes: []int{64}, processes: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pairs := make(StaticPairs, tt.pairs)
			for i := range pairs {
				pairs[i] = guestPair()
			}

			g := NewGenerator(testLogger(), Params{
				Tests:             tt.tests,
				IPVersions:        tt.versions,
				MsgSizes:          tt.sizes,
				ParallelProcesses: tt.processes,
			}, pairs)

			groups, err := g.Collect()
			require.NoError(t, err)
			assert.Len(t, groups, tt.pairs*len(tt.versions)*len(tt.tests)*len(tt.sizes))

			for _, group := range groups {
				require.Len(t, group, tt.processes)

				for i, flow := range group {
					assert.Equal(t, BasePort+i, flow.ReceiverPort)
				}
			}
		})
	}
}

func TestGenerator_Order(t *testing.T) {
	second := EndpointPair{
		Client: endpoint("host1", "eth1", "10.1.0.1/24", "fd00::1/64"),
		Server: endpoint("host2", "eth1", "10.1.0.2/24", "fd00::2/64"),
	}

	g := NewGenerator(testLogger(), Params{
		Tests:             []string{"tcp_stream", "udp_stream"},
		IPVersions:        []string{IPv6, IPv4},
		MsgSizes:          []int{1400, 64},
		ParallelProcesses: 1,
	}, StaticPairs{guestPair(), second})

	groups, err := g.Collect()
	require.NoError(t, err)
	require.Len(t, groups, 16)

	type key struct {
		host string
		bind string
		test string
		size int
	}

	var got []key
	for _, group := range groups {
		f := group[0]
		got = append(got, key{f.Generator.Host, f.GeneratorBind.String(), f.Type, f.MsgSize})
	}

	assert.Equal(t, []key{
		{"guest1", "fc00:0:0:1::3", "tcp_stream", 1400},
		{"guest1", "fc00:0:0:1::3", "tcp_stream", 64},
		{"guest1", "fc00:0:0:1::3", "udp_stream", 1400},
		{"guest1", "fc00:0:0:1::3", "udp_stream", 64},
		{"guest1", "192.168.10.3", "tcp_stream", 1400},
		{"guest1", "192.168.10.3", "tcp_stream", 64},
		{"guest1", "192.168.10.3", "udp_stream", 1400},
		{"guest1", "192.168.10.3", "udp_stream", 64},
		{"host1", "fd00::1", "tcp_stream", 1400},
		{"host1", "fd00::1", "tcp_stream", 64},
		{"host1", "fd00::1", "udp_stream", 1400},
		{"host1", "fd00::1", "udp_stream", 64},
		{"host1", "10.1.0.1", "tcp_stream", 1400},
		{"host1", "10.1.0.1", "tcp_stream", 64},
		{"host1", "10.1.0.1", "udp_stream", 1400},
		{"host1", "10.1.0.1", "udp_stream", 64},
	}, got)
}

func TestGenerator_Deterministic(t *testing.T) {
	params := Params{
		Tests:             []string{"tcp_stream", "udp_rr"},
		IPVersions:        []string{IPv4, IPv6},
		MsgSizes:          []int{64, 9000},
		Duration:          30,
		ParallelStreams:   2,
		ParallelProcesses: 3,
		Pinning:           affinity.Pinning{CPUs: []int{0, 2, 4}, Policy: affinity.PolicyAll},
	}

	g := NewGenerator(testLogger(), params, StaticPairs{guestPair()})

	first, err := g.Collect()
	require.NoError(t, err)

	second, err := g.Collect()
	require.NoError(t, err)

	other, err := NewGenerator(testLogger(), params, StaticPairs{guestPair()}).Collect()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first, other)

	// Outputs are fresh values, not shared state.
	first[0][0].CPUPin[0] = 99
	first[0][0].ReceiverPort = 1

	again, err := g.Collect()
	require.NoError(t, err)
	assert.Equal(t, second, again)
}

func TestGenerator_ParamsCopied(t *testing.T) {
	params := Params{
		Tests:             []string{"tcp_stream"},
		IPVersions:        []string{IPv4},
		MsgSizes:          []int{64},
		ParallelProcesses: 1,
	}

	g := NewGenerator(testLogger(), params, StaticPairs{guestPair()})

	params.Tests[0] = "udp_stream"
	params.MsgSizes[0] = 1

	groups, err := g.Collect()
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "tcp_stream", groups[0][0].Type)
	assert.Equal(t, 64, groups[0][0].MsgSize)
}

func TestGenerator_StopsEarly(t *testing.T) {
	g := NewGenerator(testLogger(), Params{
		Tests:             []string{"tcp_stream", "udp_stream", "sctp_stream"},
		IPVersions:        []string{IPv4},
		MsgSizes:          []int{64},
		ParallelProcesses: 1,
	}, StaticPairs{guestPair()})

	var seen int

	for group, err := range g.Groups() {
		require.NoError(t, err)
		require.NotEmpty(t, group)

		seen++
		if seen == 2 {
			break
		}
	}

	assert.Equal(t, 2, seen)
}

func TestGenerator_SupplierCalledPerIteration(t *testing.T) {
	var calls int

	supplier := PairSupplierFunc(func() []EndpointPair {
		calls++

		return []EndpointPair{guestPair()}
	})

	g := NewGenerator(testLogger(), Params{
		Tests:             []string{"tcp_stream"},
		IPVersions:        []string{IPv4},
		MsgSizes:          []int{64},
		ParallelProcesses: 1,
	}, supplier)

	_, err := g.Collect()
	require.NoError(t, err)
	_, err = g.Collect()
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}

func TestGenerator_NoAddress(t *testing.T) {
	pairs := StaticPairs{{
		Client: endpoint("A", "eth0", "10.0.0.1/24", "fe80::1/64"),
		Server: endpoint("B", "eth0", "10.0.0.2/24", "fd00::2/64"),
	}}

	g := NewGenerator(testLogger(), Params{
		Tests:             []string{"tcp_stream"},
		IPVersions:        []string{IPv4, IPv6},
		MsgSizes:          []int{64},
		ParallelProcesses: 1,
	}, pairs)

	var (
		groups  int
		lastErr error
	)

	for group, err := range g.Groups() {
		if err != nil {
			assert.Nil(t, group)
			lastErr = err

			continue
		}

		groups++
	}

	assert.Equal(t, 1, groups)
	require.Error(t, lastErr)
	assert.ErrorIs(t, lastErr, ErrNoAddress)

	var addrErr *NoAddressError
	require.ErrorAs(t, lastErr, &addrErr)
	assert.Equal(t, "A.eth0", addrErr.Endpoint)
	assert.Equal(t, IPv6, addrErr.Family)
	assert.Contains(t, lastErr.Error(), "client")

	_, err := g.Collect()
	assert.ErrorIs(t, err, ErrNoAddress)
}

func TestGenerator_UnknownPolicy(t *testing.T) {
	g := NewGenerator(testLogger(), Params{
		Tests:             []string{"tcp_stream"},
		IPVersions:        []string{IPv4},
		MsgSizes:          []int{64},
		ParallelProcesses: 2,
		Pinning:           affinity.Pinning{CPUs: []int{1}, Policy: "bogus"},
	}, StaticPairs{guestPair()})

	_, err := g.Collect()
	require.Error(t, err)
	assert.ErrorIs(t, err, affinity.ErrUnknownPolicy)
	assert.Contains(t, err.Error(), "bogus")
}

func TestGenerator_UnknownPolicyWithoutPairs(t *testing.T) {
	g := NewGenerator(testLogger(), Params{
		Tests:             []string{"tcp_stream"},
		IPVersions:        []string{IPv4},
		MsgSizes:          []int{64},
		ParallelProcesses: 1,
		Pinning:           affinity.Pinning{CPUs: []int{1}, Policy: "bogus"},
	}, StaticPairs{})

	groups, err := g.Collect()
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestGenerator_NoAffinityWithoutCPUs(t *testing.T) {
	g := NewGenerator(testLogger(), Params{
		Tests:             []string{"tcp_stream"},
		IPVersions:        []string{IPv4},
		MsgSizes:          []int{64},
		ParallelProcesses: 3,
		Pinning:           affinity.Pinning{Policy: affinity.PolicyRoundRobin},
	}, StaticPairs{guestPair()})

	groups, err := g.Collect()
	require.NoError(t, err)

	for _, flow := range groups[0] {
		assert.Nil(t, flow.CPUPin)
	}
}

func TestGenerator_Reverse(t *testing.T) {
	g := NewGenerator(testLogger(), Params{
		Tests:             []string{"tcp_stream"},
		IPVersions:        []string{IPv4},
		MsgSizes:          []int{64},
		ParallelProcesses: 1,
		Reverse:           true,
	}, StaticPairs{guestPair()})

	groups, err := g.Collect()
	require.NoError(t, err)

	flow := groups[0][0]
	assert.Equal(t, "guest2", flow.Generator.Host)
	assert.Equal(t, netip.MustParseAddr("192.168.10.4"), flow.GeneratorBind)
	assert.Equal(t, "guest1", flow.Receiver.Host)
	assert.Equal(t, netip.MustParseAddr("192.168.10.3"), flow.ReceiverBind)
	assert.Equal(t, BasePort, flow.ReceiverPort)
}

func TestFactory_NegativeProcesses(t *testing.T) {
	pair := guestPair()
	c := Combination{
		Test:       "tcp_stream",
		IPVersion:  IPv4,
		Client:     pair.Client,
		ClientBind: netip.MustParseAddr("192.168.10.3"),
		Server:     pair.Server,
		ServerBind: netip.MustParseAddr("192.168.10.4"),
		MsgSize:    64,
	}

	group, err := Factory{ParallelProcesses: -1}.Group(c)
	require.Error(t, err)
	assert.Nil(t, group)
	assert.Contains(t, err.Error(), "-1")

	group, err = Factory{}.Group(c)
	require.NoError(t, err)
	assert.Empty(t, group)

	g := NewGenerator(testLogger(), Params{
		Tests:             []string{"tcp_stream"},
		IPVersions:        []string{IPv4},
		MsgSizes:          []int{64},
		ParallelProcesses: -3,
	}, StaticPairs{pair})

	_, err = g.Collect()
	require.Error(t, err)
}
