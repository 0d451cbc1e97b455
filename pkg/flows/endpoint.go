package flows

import (
	"net/netip"
	"slices"
)

// Namespace identifies the network context a flow endpoint lives in.
type Namespace struct {
	Host string `json:"host" yaml:"host"`
	// Name is the network namespace name, empty for the host's root namespace.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// String renders host or host.netns.
func (n Namespace) String() string {
	if n.Name == "" {
		return n.Host
	}

	return n.Host + "." + n.Name
}

// Endpoint is a network interface that flows can be bound to.
type Endpoint interface {
	Namespace() Namespace
	// Interface returns the interface name within its namespace.
	Interface() string
	// Addresses returns the configured addresses in a stable order.
	Addresses() []netip.Prefix
}

// EndpointPair is a client and server endpoint to measure between.
type EndpointPair struct {
	Client Endpoint
	Server Endpoint
}

// PairSupplier provides the endpoint pairs to generate flows for.
type PairSupplier interface {
	Pairs() []EndpointPair
}

// PairSupplierFunc adapts a function to PairSupplier.
type PairSupplierFunc func() []EndpointPair

// Pairs calls f.
func (f PairSupplierFunc) Pairs() []EndpointPair {
	return f()
}

// StaticPairs is a fixed list of endpoint pairs.
type StaticPairs []EndpointPair

// Pairs returns the list itself.
func (s StaticPairs) Pairs() []EndpointPair {
	return s
}

// StaticEndpoint is an Endpoint described entirely by its fields.
type StaticEndpoint struct {
	Host   string
	Netns  string
	Device string
	Addrs  []netip.Prefix
}

// Ensure interface compliance.
var _ Endpoint = (*StaticEndpoint)(nil)

// Namespace returns the endpoint's host and netns.
func (e *StaticEndpoint) Namespace() Namespace {
	return Namespace{Host: e.Host, Name: e.Netns}
}

// Interface returns the device name.
func (e *StaticEndpoint) Interface() string {
	return e.Device
}

// Addresses returns a copy of the configured addresses.
func (e *StaticEndpoint) Addresses() []netip.Prefix {
	return slices.Clone(e.Addrs)
}

// endpointName renders host[.netns].interface for logs and errors.
func endpointName(e Endpoint) string {
	return e.Namespace().String() + "." + e.Interface()
}
