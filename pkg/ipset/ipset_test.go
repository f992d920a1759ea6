package ipset

import (
	"net/netip"
	"testing"

	"github.com/hansthienpondt/nipam/pkg/table"
	"github.com/henderiw/indexset/pkg/indexset"
	"github.com/tj/assert"
	"go4.org/netipx"
	"k8s.io/apimachinery/pkg/labels"
)

func TestSpace(t *testing.T) {
	cases := map[string]struct {
		ipRange      string
		expectErr    bool
		expectedSize indexset.Index
		index        map[string]indexset.Index
	}{
		"Range": {
			ipRange:      "10.0.0.10-10.0.0.20",
			expectedSize: 11,
			index:        map[string]indexset.Index{"10.0.0.10": 0, "10.0.0.11": 1, "10.0.0.20": 10},
		},
		"Prefix": {
			ipRange:      "10.0.1.0/24",
			expectedSize: 256,
			index:        map[string]indexset.Index{"10.0.1.0": 0, "10.0.1.255": 255},
		},
		"IPv6": {
			ipRange:      "2001:db8::/120",
			expectedSize: 256,
			index:        map[string]indexset.Index{"2001:db8::": 0, "2001:db8::ff": 255},
		},
		"TooLarge": {
			ipRange:   "2001:db8::/64",
			expectErr: true,
		},
		"Invalid": {
			ipRange:   "10.0.0.20-10.0.0.10",
			expectErr: true,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			sp, err := Parse(tc.ipRange)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expectedSize, sp.Size())

			for addr, want := range tc.index {
				id, err := sp.Index(netip.MustParseAddr(addr))
				assert.NoError(t, err)
				if id != want {
					t.Errorf("%s: -want %d, +got: %d\n", addr, want, id)
				}
				back, err := sp.Addr(id)
				assert.NoError(t, err)
				assert.Equal(t, addr, back.String())
			}
			_, err = sp.Addr(sp.Size())
			assert.Error(t, err)
		})
	}
}

func TestIndexOutsideSpace(t *testing.T) {
	sp, err := Parse("10.0.0.10-10.0.0.20")
	assert.NoError(t, err)
	_, err = sp.Index(netip.MustParseAddr("10.0.0.21"))
	assert.Error(t, err)
	_, err = sp.Index(netip.MustParseAddr("2001:db8::1"))
	assert.Error(t, err)
}

func TestIPSetRoundTrip(t *testing.T) {
	sp, err := Parse("10.0.0.0/24")
	assert.NoError(t, err)

	var b netipx.IPSetBuilder
	b.AddRange(netipx.MustParseIPRange("10.0.0.4-10.0.0.7"))
	b.Add(netip.MustParseAddr("10.0.0.9"))
	// clipped to the space
	b.AddRange(netipx.MustParseIPRange("10.0.0.250-10.0.1.10"))
	b.AddPrefix(netip.MustParsePrefix("192.168.0.0/16"))
	ips, err := b.IPSet()
	assert.NoError(t, err)

	s, err := sp.FromIPSet(ips)
	assert.NoError(t, err)
	assert.Equal(t, []indexset.Range{{Begin: 4, End: 8}, {Begin: 9, End: 10}, {Begin: 250, End: 256}}, s.Ranges())

	back, err := sp.ToIPSet(s)
	assert.NoError(t, err)
	var want netipx.IPSetBuilder
	want.AddRange(netipx.MustParseIPRange("10.0.0.4-10.0.0.7"))
	want.Add(netip.MustParseAddr("10.0.0.9"))
	want.AddRange(netipx.MustParseIPRange("10.0.0.250-10.0.0.255"))
	wantSet, err := want.IPSet()
	assert.NoError(t, err)
	assert.True(t, wantSet.Equal(back))

	_, err = sp.ToIPSet(indexset.New(10))
	assert.Error(t, err)
}

func TestFromRoutes(t *testing.T) {
	sp, err := Parse("10.0.0.0/24")
	assert.NoError(t, err)

	routes := table.Routes{
		table.NewRoute(netip.MustParsePrefix("10.0.0.0/30"), map[string]string{"pool": "a"}, nil),
		table.NewRoute(netip.MustParsePrefix("10.0.0.16/29"), map[string]string{"pool": "b"}, nil),
		table.NewRoute(netip.MustParsePrefix("10.0.0.32/32"), map[string]string{"pool": "a"}, nil),
	}
	selector, err := labels.Parse("pool=a")
	assert.NoError(t, err)

	s, err := sp.FromRoutes(routes, selector)
	assert.NoError(t, err)
	assert.Equal(t, []indexset.Range{{Begin: 0, End: 4}, {Begin: 32, End: 33}}, s.Ranges())

	s, err = sp.FromRoutes(routes, labels.Everything())
	assert.NoError(t, err)
	assert.Equal(t, indexset.Index(13), s.NElements())
}
