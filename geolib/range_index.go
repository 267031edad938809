package geolib

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/EvilSuperstars/go-cidrman"
	"github.com/kentik/patricia"
	"github.com/kentik/patricia/uint32_tree"
)

var (
	errNotIPv4       = errors.New("not an ipv4 network")
	errRangeBoundary = errors.New("incorrect range boundaries")
)

type indexedRange struct {
	network *net.IPNet
	rng     NetworkRange
}

// Match is a result of the longest prefix match.
//
// Ambiguous is set if more than one range of the dataset has the same
// base address and prefix length as the matched one. Range is the one
// which was added first on index construction.
type Match struct {
	Network   *net.IPNet
	Range     NetworkRange
	Ambiguous bool
}

// RangeIndex is an immutable binary trie over IPv4 address space. Each
// node may hold a list of ranges which terminate there. Lookup descends
// the trie bit by bit and takes the deepest node with ranges, so it is
// bounded by 32 steps regardless of dataset size.
//
// RangeIndex is safe for concurrent use once built.
type RangeIndex struct {
	tree       *uint32_tree.TreeV4
	ranges     []indexedRange
	duplicates int
}

// Len returns a number of CIDR blocks stored in the index. It can be
// bigger than a number of ranges given to NewRangeIndex if some of them
// were address ranges expanded into several CIDR blocks.
func (r *RangeIndex) Len() int {
	return len(r.ranges)
}

// Duplicates returns a number of CIDR blocks which share both base
// address and prefix length with some other block in the index.
func (r *RangeIndex) Duplicates() int {
	return r.duplicates
}

func (r *RangeIndex) MostSpecificMatch(ip net.IP) (Match, bool) {
	ip = ip.To4()
	if ip == nil {
		return Match{}, false
	}

	ok, tags := r.tree.FindDeepestTags(patricia.NewIPv4AddressFromBytes(ip, 32))
	if !ok || len(tags) == 0 {
		return Match{}, false
	}

	winner := tags[0]

	for _, v := range tags[1:] {
		if v < winner {
			winner = v
		}
	}

	matched := r.ranges[winner]

	return Match{
		Network:   matched.network,
		Range:     matched.rng,
		Ambiguous: len(tags) > 1,
	}, true
}

func (r *RangeIndex) add(network *net.IPNet, rng NetworkRange) error {
	ones, _ := network.Mask.Size()
	tag := uint32(len(r.ranges))

	rng.Network = network.String()

	_, count := r.tree.Add(patricia.NewIPv4AddressFromBytes(network.IP, uint(ones)), tag, nil)

	r.ranges = append(r.ranges, indexedRange{
		network: network,
		rng:     rng,
	})

	if count > 1 {
		r.duplicates++

		return fmt.Errorf("%w %s: %d entries share this prefix", ErrDuplicateNetwork, network, count)
	}

	return nil
}

// NewRangeIndex builds a new index from a given list of ranges. Ranges
// do not have to be sorted or deduplicated.
//
// Network of each range is either a CIDR block (203.0.113.0/24) or an
// inclusive address range (203.0.113.0-203.0.113.127). Address ranges
// are split into the minimal set of CIDR blocks. Host bits of CIDR
// blocks are masked.
//
// Entries which cannot be parsed are skipped. Each of them produces an
// error wrapping ErrMalformedNetwork. Duplicates are indexed but
// produce errors wrapping ErrDuplicateNetwork. The index itself is
// always usable.
func NewRangeIndex(ranges []NetworkRange) (*RangeIndex, []error) {
	idx := &RangeIndex{
		tree:   uint32_tree.NewTreeV4(),
		ranges: make([]indexedRange, 0, len(ranges)),
	}
	issues := []error{}

	for _, v := range ranges {
		networks, err := parseNetworks(v.Network)
		if err != nil {
			issues = append(issues, fmt.Errorf("%w %q: %v", ErrMalformedNetwork, v.Network, err))

			continue
		}

		for _, network := range networks {
			if err := idx.add(network, v); err != nil {
				issues = append(issues, err)
			}
		}
	}

	return idx, issues
}

func parseNetworks(text string) ([]*net.IPNet, error) {
	text = strings.TrimSpace(text)

	if pos := strings.IndexByte(text, '-'); pos >= 0 {
		return parseAddressRange(text[:pos], text[pos+1:])
	}

	_, network, err := net.ParseCIDR(text)
	if err != nil {
		return nil, err
	}

	if len(network.IP) != net.IPv4len {
		return nil, errNotIPv4
	}

	return []*net.IPNet{network}, nil
}

func parseAddressRange(first, last string) ([]*net.IPNet, error) {
	firstIP := net.ParseIP(strings.TrimSpace(first)).To4()
	lastIP := net.ParseIP(strings.TrimSpace(last)).To4()

	switch {
	case firstIP == nil, lastIP == nil:
		return nil, errNotIPv4
	case bytes.Compare(firstIP, lastIP) > 0:
		return nil, errRangeBoundary
	}

	networks, err := cidrman.IPRangeToIPNets(firstIP, lastIP)
	if err != nil {
		return nil, fmt.Errorf("cannot split a range: %w", err)
	}

	rv := make([]*net.IPNet, 0, len(networks))

	for _, v := range networks {
		ones, _ := v.Mask.Size()
		if bits := len(v.Mask) * 8; bits == 128 {
			ones -= 96
		}

		mask := net.CIDRMask(ones, 32)

		rv = append(rv, &net.IPNet{
			IP:   v.IP.To4().Mask(mask),
			Mask: mask,
		})
	}

	return rv, nil
}
