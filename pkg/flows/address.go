package flows

import (
	"errors"
	"fmt"
	"net/netip"
)

// Address families accepted in ip_versions.
const (
	IPv4 = "ipv4"
	IPv6 = "ipv6"
)

var (
	// ErrUnknownIPVersion is returned for address families other than
	// IPv4 and IPv6.
	ErrUnknownIPVersion = errors.New("unknown ip version")

	// ErrNoAddress matches any NoAddressError.
	ErrNoAddress = errors.New("no bindable address of requested family on endpoint")
)

// NoAddressError reports an endpoint without an address of the requested
// family.
type NoAddressError struct {
	Endpoint string
	Family   string
}

func (e *NoAddressError) Error() string {
	return fmt.Sprintf("no bindable %s address on endpoint %s", e.Family, e.Endpoint)
}

// Is makes errors.Is(err, ErrNoAddress) hold.
func (e *NoAddressError) Is(target error) bool {
	return target == ErrNoAddress
}

// ValidateIPVersion checks that family is a supported address family.
func ValidateIPVersion(family string) error {
	switch family {
	case IPv4, IPv6:
		return nil
	default:
		return fmt.Errorf("%w %q", ErrUnknownIPVersion, family)
	}
}

// FilterAddresses returns the addresses of family in their original order.
// IPv6 link-local addresses are never bindable and are dropped.
func FilterAddresses(addrs []netip.Prefix, family string) ([]netip.Prefix, error) {
	if err := ValidateIPVersion(family); err != nil {
		return nil, err
	}

	var out []netip.Prefix

	for _, p := range addrs {
		addr := p.Addr()

		switch family {
		case IPv4:
			if !addr.Is4() {
				continue
			}
		case IPv6:
			if !addr.Is6() || addr.Is4In6() || addr.IsLinkLocalUnicast() {
				continue
			}
		}

		out = append(out, p)
	}

	return out, nil
}

// SelectBind returns the first address of family on e.
func SelectBind(e Endpoint, family string) (netip.Addr, error) {
	candidates, err := FilterAddresses(e.Addresses(), family)
	if err != nil {
		return netip.Addr{}, err
	}

	if len(candidates) == 0 {
		return netip.Addr{}, &NoAddressError{Endpoint: endpointName(e), Family: family}
	}

	return candidates[0].Addr(), nil
}
