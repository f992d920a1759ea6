// Package ipset numbers the addresses of an IP range so that sets of
// addresses can be held as index sets.
package ipset

import (
	"fmt"
	"math/big"
	"net/netip"

	"github.com/hansthienpondt/nipam/pkg/table"
	"github.com/henderiw/indexset/pkg/indexset"
	"go4.org/netipx"
	"k8s.io/apimachinery/pkg/labels"
)

// Space maps the addresses of an IP range to [0, Size()), the From address
// being index 0.
type Space struct {
	ipRange netipx.IPRange
	size    indexset.Index
}

func New(from, to netip.Addr) (*Space, error) {
	ipRange := netipx.IPRangeFrom(from, to)
	if !ipRange.IsValid() {
		return nil, fmt.Errorf("invalid ip range from %s to %s", from, to)
	}
	n := numIPs(from, to)
	if !n.IsUint64() {
		return nil, fmt.Errorf("ip range %s holds %s addresses, more than an index set can number", ipRange, n)
	}
	return &Space{ipRange: ipRange, size: n.Uint64()}, nil
}

// Parse accepts "from-to" or a prefix.
func Parse(s string) (*Space, error) {
	ipRange, err := netipx.ParseIPRange(s)
	if err != nil {
		p, perr := netip.ParsePrefix(s)
		if perr != nil {
			return nil, fmt.Errorf("ip range %s is invalid", s)
		}
		ipRange = netipx.RangeOfPrefix(p.Masked())
	}
	return New(ipRange.From(), ipRange.To())
}

func (r *Space) Size() indexset.Index { return r.size }

func (r *Space) Range() netipx.IPRange { return r.ipRange }

// NewSet returns an empty set over the space.
func (r *Space) NewSet() *indexset.IndexSet { return indexset.New(r.size) }

func (r *Space) Index(addr netip.Addr) (indexset.Index, error) {
	if err := r.validateIP(addr); err != nil {
		return 0, err
	}
	return calculateIndex(addr, r.ipRange.From()), nil
}

func (r *Space) Addr(id indexset.Index) (netip.Addr, error) {
	if id >= r.size {
		return netip.Addr{}, fmt.Errorf("index %d does not fit in the range from %s to %s", id, r.ipRange.From(), r.ipRange.To())
	}
	return calculateIPFromIndex(r.ipRange.From(), id), nil
}

// FromIPSet returns the indices of the addresses of ips. Addresses outside
// the space are ignored.
func (r *Space) FromIPSet(ips *netipx.IPSet) (*indexset.IndexSet, error) {
	var b netipx.IPSetBuilder
	b.AddSet(ips)
	b.Intersect(r.ipSet())
	clipped, err := b.IPSet()
	if err != nil {
		return nil, err
	}

	s := r.NewSet()
	for _, ipr := range clipped.Ranges() {
		from := calculateIndex(ipr.From(), r.ipRange.From())
		to := calculateIndex(ipr.To(), r.ipRange.From())
		s.AddRange(from, to+1)
	}
	return s, nil
}

// ToIPSet returns the addresses at the members of s.
func (r *Space) ToIPSet(s *indexset.IndexSet) (*netipx.IPSet, error) {
	if s.Size() != r.size {
		return nil, fmt.Errorf("set size %d does not match the %d addresses of %s", s.Size(), r.size, r.ipRange)
	}
	var b netipx.IPSetBuilder
	for rng := range s.Intervals() {
		b.AddRange(netipx.IPRangeFrom(
			calculateIPFromIndex(r.ipRange.From(), rng.Begin),
			calculateIPFromIndex(r.ipRange.From(), rng.End-1),
		))
	}
	return b.IPSet()
}

// FromRoutes returns the indices covered by the prefixes of the routes
// whose labels match selector.
func (r *Space) FromRoutes(routes table.Routes, selector labels.Selector) (*indexset.IndexSet, error) {
	var b netipx.IPSetBuilder
	for _, route := range routes {
		if selector.Matches(route.Labels()) {
			b.AddPrefix(route.Prefix().Masked())
		}
	}
	ips, err := b.IPSet()
	if err != nil {
		return nil, err
	}
	return r.FromIPSet(ips)
}

func (r *Space) ipSet() *netipx.IPSet {
	var b netipx.IPSetBuilder
	b.AddRange(r.ipRange)
	// a single valid range cannot fail to build
	ips, _ := b.IPSet()
	return ips
}

func (r *Space) validateIP(addr netip.Addr) error {
	if !r.ipRange.Contains(addr) {
		return fmt.Errorf("ip address %s, does not fit in the range from %s to %s", addr, r.ipRange.From(), r.ipRange.To())
	}
	return nil
}

func calculateIndex(ip, start netip.Addr) indexset.Index {
	return new(big.Int).Sub(ipToInt(ip), ipToInt(start)).Uint64()
}

func numIPs(startIP, endIP netip.Addr) *big.Int {
	diff := new(big.Int).Sub(ipToInt(endIP), ipToInt(startIP))
	return diff.Add(diff, big.NewInt(1))
}

func ipToInt(ip netip.Addr) *big.Int {
	bytes := ip.As16()
	return new(big.Int).SetBytes(bytes[:])
}

func calculateIPFromIndex(startIP netip.Addr, id indexset.Index) netip.Addr {
	ipInt := new(big.Int).Add(ipToInt(startIP), new(big.Int).SetUint64(id))
	var ip16 [16]byte
	ipInt.FillBytes(ip16[:])
	addr := netip.AddrFrom16(ip16)
	if startIP.Is4() {
		return addr.Unmap()
	}
	return addr
}
