package sources

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"net"
	"strconv"
	"strings"
)

func flushResponse(resp io.ReadCloser) {
	io.Copy(io.Discard, resp) // nolint: errcheck
	resp.Close()
}

func hashedCopy(hashFunc func() hash.Hash, dst io.Writer, src io.Reader) (string, error) {
	hasher := hashFunc()

	if _, err := io.Copy(io.MultiWriter(hasher, dst), bufio.NewReader(src)); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func parseOptionalInt(value string) (*int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("incorrect integer %q: %w", value, err)
	}

	return &parsed, nil
}

func parseOptionalFloat(value string) (*float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("incorrect float %q: %w", value, err)
	}

	return &parsed, nil
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "0", "f", "false", "no":
		return false, nil
	case "1", "t", "true", "yes":
		return true, nil
	}

	return false, fmt.Errorf("incorrect boolean %q", value)
}

// chooseGeonameID picks an id of the location entity for a network.
// Some networks have no geoname_id: MaxMind recommends to fall back to
// country ids in that case.
func chooseGeonameID(geonameID, registered, represented *int64) (int64, error) {
	for _, v := range []*int64{geonameID, registered, represented} {
		if v != nil {
			return *v, nil
		}
	}

	return 0, ErrNoGeonameID
}

// ipv4NetworkString renders a network in canonical IPv4 form. Networks
// from IPv4 subtree of IPv6 databases (::/96 or ::ffff:0:0/96) are
// converted to IPv4.
func ipv4NetworkString(network *net.IPNet) string {
	ones, bits := network.Mask.Size()
	ip := network.IP

	if bits == 8*net.IPv6len {
		if ones < 8*(net.IPv6len-net.IPv4len) {
			return network.String()
		}

		ones -= 8 * (net.IPv6len - net.IPv4len)

		if ip.To4() == nil && isIPv4Compatible(ip) {
			ip = ip[net.IPv6len-net.IPv4len:]
		}
	}

	ip = ip.To4()
	if ip == nil {
		return network.String()
	}

	mask := net.CIDRMask(ones, 8*net.IPv4len)

	return (&net.IPNet{IP: ip.Mask(mask), Mask: mask}).String()
}

func isIPv4Compatible(ip net.IP) bool {
	if len(ip) != net.IPv6len {
		return false
	}

	for _, v := range ip[:net.IPv6len-net.IPv4len] {
		if v != 0 {
			return false
		}
	}

	return true
}
