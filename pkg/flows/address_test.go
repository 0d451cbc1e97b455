package flows

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prefixes(in ...string) []netip.Prefix {
	out := make([]netip.Prefix, 0, len(in))
	for _, s := range in {
		out = append(out, netip.MustParsePrefix(s))
	}

	return out
}

func TestFilterAddresses(t *testing.T) {
	addrs := prefixes(
		"fe80::1/64",
		"192.168.10.3/24",
		"fc00:0:0:1::3/64",
		"10.0.0.3/8",
		"::ffff:10.1.1.1/128",
		"2001:db8::3/64",
	)

	tests := []struct {
		name    string
		family  string
		want    []netip.Prefix
		wantErr error
	}{
		{
			name:   "ipv4 keeps order",
			family: IPv4,
			want:   prefixes("192.168.10.3/24", "10.0.0.3/8"),
		},
		{
			name:   "ipv6 drops link-local and mapped",
			family: IPv6,
			want:   prefixes("fc00:0:0:1::3/64", "2001:db8::3/64"),
		},
		{
			name:    "unknown family",
			family:  "ipx",
			wantErr: ErrUnknownIPVersion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FilterAddresses(addrs, tt.family)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, err.Error(), tt.family)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectBind(t *testing.T) {
	e := endpoint("guest1", "eth0", "fe80::3/64", "192.168.10.3/24", "192.168.10.30/24", "fc00::3/64")

	addr, err := SelectBind(e, IPv4)
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("192.168.10.3"), addr)

	addr, err = SelectBind(e, IPv6)
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("fc00::3"), addr)
}

func TestSelectBind_NoCandidates(t *testing.T) {
	e := &StaticEndpoint{Host: "guest1", Netns: "ns0", Device: "eth0", Addrs: prefixes("fe80::3/64")}

	_, err := SelectBind(e, IPv6)
	require.ErrorIs(t, err, ErrNoAddress)
	assert.Equal(t, "no bindable ipv6 address on endpoint guest1.ns0.eth0", err.Error())

	_, err = SelectBind(e, IPv4)
	require.ErrorIs(t, err, ErrNoAddress)
}

func TestStaticEndpoint(t *testing.T) {
	e := &StaticEndpoint{Host: "host1", Netns: "ns1", Device: "veth0", Addrs: prefixes("10.0.0.1/24")}

	assert.Equal(t, Namespace{Host: "host1", Name: "ns1"}, e.Namespace())
	assert.Equal(t, "host1.ns1", e.Namespace().String())
	assert.Equal(t, "veth0", e.Interface())

	addrs := e.Addresses()
	addrs[0] = netip.MustParsePrefix("10.9.9.9/32")
	assert.Equal(t, prefixes("10.0.0.1/24"), e.Addrs)
}
