package geolib

import (
	"net"
	"strings"
)

// Int64 returns a pointer to a copy of v. It is a helper to fill
// optional fields of NetworkRange.
func Int64(v int64) *int64 {
	return &v
}

// Float64 returns a pointer to a copy of v.
func Float64(v float64) *float64 {
	return &v
}

func copyInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}

	return Int64(*v)
}

func copyFloat64(v *float64) *float64 {
	if v == nil {
		return nil
	}

	return Float64(*v)
}

// ParseIPv4 parses a text representation of IPv4 address. IPv4-mapped
// IPv6 addresses like ::ffff:1.2.3.4 are accepted, pure IPv6 addresses
// are not.
func ParseIPv4(text string) (net.IP, error) {
	ip := net.ParseIP(strings.TrimSpace(text))
	if ip == nil {
		return nil, ErrInvalidAddress
	}

	ip = ip.To4()
	if ip == nil {
		return nil, ErrInvalidAddress
	}

	return ip, nil
}
